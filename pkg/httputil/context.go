package httputil

import (
	"encoding/json"
	"net/http"
	"strconv"
)

type ContextKey string

const (
	RequestIDCtxKey ContextKey = "RequestID"
	LogEntryCtxKey  ContextKey = "LogEntry"
)

// RequestID returns the request id set by the RequestID middleware.
func RequestID(r *http.Request) (string, bool) {
	id, ok := r.Context().Value(RequestIDCtxKey).(string)
	return id, ok && id != ""
}

// JSON writes data as application/json with the given status code.
func JSON(w http.ResponseWriter, statusCode int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
	Blob(w, statusCode, append(body, '\n'), "application/json")
}

// Text writes a text/plain response.
func Text(w http.ResponseWriter, statusCode int, text string) {
	Blob(w, statusCode, []byte(text), "text/plain; charset=utf-8")
}

// Blob writes data with the given content type and length.
func Blob(w http.ResponseWriter, statusCode int, data []byte, contentType string) {
	h := w.Header()
	h.Set("Content-Type", contentType)
	h.Set("Content-Length", strconv.Itoa(len(data)))
	h.Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(statusCode)
	_, _ = w.Write(data)
}

// ErrorResponse is the body of errors raised outside a HAL formatter. It has
// the same fields as a HAL error document without the links.
type ErrorResponse struct {
	Message    string `json:"message"`
	StatusCode int    `json:"status_code"`
}

// Error writes an ErrorResponse. An empty message uses the status text.
func Error(w http.ResponseWriter, statusCode int, message string) {
	if message == "" {
		message = http.StatusText(statusCode)
	}
	JSON(w, statusCode, ErrorResponse{Message: message, StatusCode: statusCode})
}
