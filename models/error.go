package models

// ErrorResponse is the failure envelope written for every non 2xx response
type ErrorResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors,omitempty"`
}

// FieldError describes one violated input field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}
