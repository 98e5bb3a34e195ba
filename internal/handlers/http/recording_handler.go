package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"cohortcast/internal/core/domain"
	"cohortcast/internal/core/ports"
	"cohortcast/internal/infrastructure/middleware"
	apperrors "cohortcast/pkg/errors"
	"cohortcast/pkg/validation"

	"github.com/gin-gonic/gin"
)

var defaultResolution = domain.Resolution{Width: 1920, Height: 1080}

type RecordingHandler struct {
	recordings ports.RecordingService
	validator  ports.TokenValidator
}

func NewRecordingHandler(recordings ports.RecordingService, validator ports.TokenValidator) *RecordingHandler {
	return &RecordingHandler{
		recordings: recordings,
		validator:  validator,
	}
}

func (h *RecordingHandler) SetupRoutes(router gin.IRouter) {
	api := router.Group("/api/recordings")
	{
		api.GET("", h.ListRecordings)
		api.GET("/room/:roomId", h.ListRoomRecordings)
		api.GET("/status/:roomId", h.RecordingStatus)
		api.GET("/:recordingId", h.GetRecording)

		control := api.Group("", middleware.Authenticate(h.validator), middleware.RequireControl())
		control.POST("/start", h.StartRecording)
		control.POST("/stop", h.StopRecording)
	}
}

type pagination struct {
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	Total   int  `json:"total"`
	HasNext bool `json:"has_next"`
}

func pageBody(page *domain.RecordingPage) gin.H {
	return gin.H{
		"recordings": page.Recordings,
		"pagination": pagination{
			Page:    page.Page,
			Limit:   page.Limit,
			Total:   page.Total,
			HasNext: page.HasNext,
		},
	}
}

func queryInt(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.NewInvalidInputError(name + " must be an integer").WithContext("field", name)
	}
	return v, nil
}

func parseRecordingQuery(c *gin.Context, roomID string) (domain.RecordingQuery, error) {
	page, err := queryInt(c, "page")
	if err != nil {
		return domain.RecordingQuery{}, err
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		return domain.RecordingQuery{}, err
	}
	if roomID != "" {
		if err := validation.ValidateRoomID(roomID); err != nil {
			return domain.RecordingQuery{}, apperrors.NewInvalidInputError(err.Error()).WithContext("field", "room_id")
		}
	}
	return domain.RecordingQuery{RoomID: domain.RoomID(roomID), Page: page, Limit: limit}, nil
}

func (h *RecordingHandler) ListRecordings(c *gin.Context) {
	query, err := parseRecordingQuery(c, c.Query("room_id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	page, err := h.recordings.ListRecordings(c.Request.Context(), query)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, pageBody(page))
}

func (h *RecordingHandler) ListRoomRecordings(c *gin.Context) {
	roomID := c.Param("roomId")
	query, err := parseRecordingQuery(c, roomID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	page, err := h.recordings.ListRecordings(c.Request.Context(), query)
	if err != nil {
		_ = c.Error(err)
		return
	}
	body := pageBody(page)
	body["room_id"] = roomID
	c.JSON(http.StatusOK, body)
}

func (h *RecordingHandler) GetRecording(c *gin.Context) {
	id := c.Param("recordingId")
	if err := validation.ValidateRecordingID(id); err != nil {
		_ = c.Error(apperrors.NewInvalidInputError(err.Error()).WithContext("field", "recording_id"))
		return
	}

	body, err := h.recordings.GetRecording(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

func (h *RecordingHandler) RecordingStatus(c *gin.Context) {
	roomID := c.Param("roomId")
	if err := validation.ValidateRoomID(roomID); err != nil {
		_ = c.Error(apperrors.NewInvalidInputError(err.Error()).WithContext("field", "room_id"))
		return
	}

	body, err := h.recordings.RecordingStatus(c.Request.Context(), domain.RoomID(roomID))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

type StartRecordingBody struct {
	RoomID     string             `json:"room_id"`
	Resolution *domain.Resolution `json:"resolution"`
	Record     *bool              `json:"record"`
}

type StopRecordingBody struct {
	RoomID string `json:"room_id"`
}

func (h *RecordingHandler) StartRecording(c *gin.Context) {
	var body StartRecordingBody
	if err := bindOptionalJSON(c, &body); err != nil {
		_ = c.Error(err)
		return
	}

	roomID, err := controlledRoom(c, body.RoomID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	req := domain.StartRecordingRequest{
		RoomID:     roomID,
		Resolution: defaultResolution,
		Record:     true,
	}
	if body.Resolution != nil {
		if err := validation.ValidateResolution(body.Resolution.Width, body.Resolution.Height); err != nil {
			_ = c.Error(apperrors.NewInvalidInputError(err.Error()).WithContext("field", "resolution"))
			return
		}
		if body.Resolution.Width != 0 {
			req.Resolution = *body.Resolution
		}
	}
	if body.Record != nil {
		req.Record = *body.Record
	}

	result, err := h.recordings.StartRecording(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", result)
}

func (h *RecordingHandler) StopRecording(c *gin.Context) {
	var body StopRecordingBody
	if err := bindOptionalJSON(c, &body); err != nil {
		_ = c.Error(err)
		return
	}

	roomID, err := controlledRoom(c, body.RoomID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	result, err := h.recordings.StopRecording(c.Request.Context(), roomID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", result)
}

// bindOptionalJSON decodes the body when one was sent. An empty body, chunked
// or not, leaves dst untouched.
func bindOptionalJSON(c *gin.Context, dst any) error {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return apperrors.NewInvalidInputError("invalid request format")
	}
	return nil
}

// controlledRoom resolves the target room of a control request. A credential
// may only act on the room it was issued for.
func controlledRoom(c *gin.Context, requested string) (domain.RoomID, error) {
	cred, ok := middleware.CredentialFromContext(c)
	if !ok {
		return "", apperrors.NewUnauthorizedError("authentication required")
	}
	if requested == "" {
		return cred.RoomID, nil
	}
	if err := validation.ValidateRoomID(requested); err != nil {
		return "", apperrors.NewInvalidInputError(err.Error()).WithContext("field", "room_id")
	}
	if domain.RoomID(requested) != cred.RoomID {
		return "", apperrors.NewForbiddenError("credential is not valid for this room").
			WithContext("room_id", requested)
	}
	return cred.RoomID, nil
}
