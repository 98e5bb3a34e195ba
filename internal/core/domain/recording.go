package domain

import "encoding/json"

const (
	DefaultRecordingPageLimit = 10
	MaxRecordingPageLimit     = 100
)

// RecordingQuery selects a page of recordings. Page is 1-based.
type RecordingQuery struct {
	RoomID RoomID
	Page   int
	Limit  int
}

// Start is the vendor offset of the first item on the page.
func (q RecordingQuery) Start() int {
	return (q.Page - 1) * q.Limit
}

// RecordingPage holds vendor recording objects as returned by the platform.
type RecordingPage struct {
	Recordings []json.RawMessage `json:"recordings"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	Total      int               `json:"total"`
	HasNext    bool              `json:"has_next"`
}

type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// StartRecordingRequest is forwarded to the platform when a recording starts.
type StartRecordingRequest struct {
	RoomID     RoomID     `json:"room_id"`
	Resolution Resolution `json:"resolution"`
	Record     bool       `json:"record"`
}
