package apiclient

import "encoding/json"

// Envelope wraps every JSON response from the backend.
type Envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Page is the paginated collection nested in Envelope.Data. Number is zero-based.
type Page[T any] struct {
	Content       []T  `json:"content"`
	TotalPages    int  `json:"totalPages"`
	TotalElements int  `json:"totalElements"`
	Size          int  `json:"size"`
	Number        int  `json:"number"`
	First         bool `json:"first"`
	Last          bool `json:"last"`
	Empty         bool `json:"empty"`
}

// errorBody is the shape of a failed response body.
type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}
