package response

import (
	"encoding/json"
	"net/http"
)

// Response represents a standard API response.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Message string      `json:"message,omitempty"`
}

// ErrorBody is written for every non-2xx response.
type ErrorBody struct {
	Success bool   `json:"success"`
	Detail  string `json:"detail"`
	Code    string `json:"code,omitempty"`
}

// JSON writes a JSON response.
func JSON(w http.ResponseWriter, status int, data interface{}) {
	write(w, status, Response{
		Success: status >= 200 && status < 300,
		Data:    data,
	})
}

// JSONWithMessage writes a JSON response carrying a human readable message.
func JSONWithMessage(w http.ResponseWriter, status int, data interface{}, message string) {
	write(w, status, Response{
		Success: status >= 200 && status < 300,
		Data:    data,
		Message: message,
	})
}

// Error writes an error response.
func Error(w http.ResponseWriter, status int, code, detail string) {
	write(w, status, ErrorBody{
		Success: false,
		Detail:  detail,
		Code:    code,
	})
}

// Unauthorized writes a 401 Unauthorized response.
func Unauthorized(w http.ResponseWriter, detail string) {
	Error(w, http.StatusUnauthorized, "UNAUTHORIZED", detail)
}

// InternalError writes a 500 Internal Server Error response.
func InternalError(w http.ResponseWriter, detail string) {
	Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", detail)
}

func write(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
