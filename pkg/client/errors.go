package client

import "fmt"

// APIError is a non-2xx response from the content endpoint.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("content api: %d %s: %s", e.Status, e.Code, e.Message)
}

// Permanent reports whether the failure is a client error that retrying
// cannot fix.
func (e *APIError) Permanent() bool {
	return e.Status >= 400 && e.Status < 500
}
