package handler

import (
	"net/http"

	"github.com/user-records-service/internal/httputil"
)

// Response is the standard JSON envelope.
type Response = httputil.Response

// RespondJSON writes a JSON response with the given status code.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	httputil.RespondJSON(w, status, data)
}

// RespondError writes a JSON error response.
func RespondError(w http.ResponseWriter, status int, code, message string) {
	httputil.RespondError(w, status, code, message)
}

// RespondSuccess writes a success envelope, optionally carrying data.
func RespondSuccess(w http.ResponseWriter, status int, message string, data interface{}) {
	httputil.RespondSuccess(w, status, message, data)
}
