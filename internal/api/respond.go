package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/dshills/orderdesk/pkg/types"
)

// maxBodyBytes caps request bodies
const maxBodyBytes = 1 << 20

type failure struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, failure{Message: message})
}

// statusFor maps an error kind onto an HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, types.ErrValidation),
		errors.Is(err, types.ErrNotAvailable),
		errors.Is(err, types.ErrInvalidTransition),
		errors.Is(err, types.ErrNotCancellable):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as {success:false, message}. Internal errors are
// logged and answered with a generic message; the detail is added in debug mode.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status != http.StatusInternalServerError {
		msg := types.Message(err)
		if msg == "" {
			msg = err.Error()
		}
		writeFailure(w, status, msg)
		return
	}

	s.logger.Error("request failed",
		"request_id", middleware.GetReqID(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
		"error", err)

	body := failure{Message: "Internal server error"}
	if s.debug {
		body.Error = err.Error()
	}
	writeJSON(w, status, body)
}
