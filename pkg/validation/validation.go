package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	MaxDisplayNameLength = 128
	MaxTokenLength       = 4096
)

var (
	// RoomIDRegex matches the identifiers the platform hands out for rooms.
	RoomIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

	// RecordingIDRegex validates recording ids used in request paths.
	RecordingIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)
)

// ValidateDisplayName checks a participant display name as entered by a user.
func ValidateDisplayName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("display name is required")
	}
	if !utf8.ValidString(name) {
		return fmt.Errorf("display name contains invalid characters")
	}
	if utf8.RuneCountInString(name) > MaxDisplayNameLength {
		return fmt.Errorf("display name is too long (max %d characters)", MaxDisplayNameLength)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return fmt.Errorf("display name contains control characters")
		}
	}
	return nil
}

func ValidateRoomID(roomID string) error {
	if roomID == "" {
		return fmt.Errorf("room id is required")
	}
	if !RoomIDRegex.MatchString(roomID) {
		return fmt.Errorf("invalid room id format")
	}
	return nil
}

func ValidateRecordingID(recordingID string) error {
	if recordingID == "" {
		return fmt.Errorf("recording id is required")
	}
	if !RecordingIDRegex.MatchString(recordingID) {
		return fmt.Errorf("invalid recording id format")
	}
	return nil
}

// ValidateToken performs the cheap shape checks done before signature work.
func ValidateToken(token string) error {
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("token is required")
	}
	if len(token) > MaxTokenLength {
		return fmt.Errorf("token is too long (max %d bytes)", MaxTokenLength)
	}
	return nil
}

// ValidateResolution checks a recording resolution; zero values mean "platform default".
func ValidateResolution(width, height int) error {
	if width == 0 && height == 0 {
		return nil
	}
	if width < 320 || height < 240 {
		return fmt.Errorf("resolution must be at least 320x240")
	}
	if width > 3840 || height > 2160 {
		return fmt.Errorf("resolution is too high (max 3840x2160)")
	}
	return nil
}
