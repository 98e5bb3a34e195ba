package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrInvalidCredential = errors.New("invalid credential")
	ErrExpiredCredential = errors.New("credential expired")

	ErrMissingSecret = errors.New("signing secret is not configured")
	ErrMissingRoom   = errors.New("default room id is not configured")
)

// VendorError is a non-2xx answer from the streaming platform's REST API.
type VendorError struct {
	StatusCode int
	Message    string
	Body       json.RawMessage
}

func (e *VendorError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("platform api returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("platform api returned status %d: %s", e.StatusCode, e.Message)
}

// Temporary reports whether retrying the call may succeed.
func (e *VendorError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}
