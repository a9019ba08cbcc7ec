package client

import "fmt"

// RequestValidation indicates that a request's Validate method rejected its
// own parameters before any network I/O took place.
type RequestValidation struct {
	Message string
}

func (e *RequestValidation) Error() string {
	return fmt.Sprintf("adb: request validation failed: %s", e.Message)
}
