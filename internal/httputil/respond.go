package httputil

import (
	"encoding/json"
	"net/http"
)

// Response is the stable envelope every endpoint responds with.
type Response struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Error   string              `json:"error,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`
	Data    interface{}         `json:"data,omitempty"`
}

// RespondJSON writes a JSON response with the given status code.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// RespondSuccess writes a success envelope, optionally carrying data.
func RespondSuccess(w http.ResponseWriter, status int, message string, data interface{}) {
	RespondJSON(w, status, Response{Success: true, Message: message, Data: data})
}

// RespondError writes an error envelope with a machine-readable code.
func RespondError(w http.ResponseWriter, status int, code, message string) {
	RespondJSON(w, status, Response{Success: false, Message: message, Error: code})
}

// RespondValidationErrors writes the aggregated per-field error map.
func RespondValidationErrors(w http.ResponseWriter, message string, errs map[string][]string) {
	RespondJSON(w, http.StatusBadRequest, Response{Success: false, Message: message, Errors: errs})
}
