package server

import (
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// Response is the JSON envelope of every API response.
//
//	{"data": {"name": "Alice"}, "message": "person created"}
//	{"errors": [{"field": "name", "message": "must not be blank"}], "message": "validation failed"}
type Response[T any] struct {
	Data    T       `json:"data,omitempty"`
	Errors  []Error `json:"errors,omitempty"`
	Message string  `json:"message,omitempty"`
}

// Error is one field-level error.
type Error struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// WriteJSON writes response with statusCode. An encoding failure can only
// be logged, the status line is already sent.
func WriteJSON[T any](w http.ResponseWriter, statusCode int, response Response[T]) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Error().Err(err).Int("status_code", statusCode).Msg("failed to encode JSON response")
	}
}

// WriteError writes an envelope without data.
func WriteError(w http.ResponseWriter, statusCode int, message string, errors ...Error) {
	WriteJSON(w, statusCode, Response[any]{
		Errors:  errors,
		Message: message,
	})
}

// WriteSuccess writes an envelope with data.
func WriteSuccess[T any](w http.ResponseWriter, statusCode int, data T, message string) {
	WriteJSON(w, statusCode, Response[T]{
		Data:    data,
		Message: message,
	})
}
