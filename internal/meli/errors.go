package meli

import "fmt"

// APIError is a non-success response from the marketplace API
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("marketplace API returned status %d: %s", e.StatusCode, e.Body)
}
