package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/pagefs/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// writeError maps a service error to its HTTP status. Unclassified errors
// are logged and reported as 500 without detail.
func writeError(w http.ResponseWriter, op string, err error, attrs ...slog.Attr) {
	var status int
	msg := err.Error()
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		status, msg = http.StatusNotFound, apperr.ErrNotFound.Error()
	case errors.Is(err, apperr.ErrAlreadyExists):
		status, msg = http.StatusConflict, apperr.ErrAlreadyExists.Error()
	case errors.Is(err, apperr.ErrInvalidPage):
		status, msg = http.StatusBadRequest, apperr.ErrInvalidPage.Error()
	case errors.Is(err, apperr.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, apperr.ErrNotConfigured):
		status, msg = http.StatusNotImplemented, apperr.ErrNotConfigured.Error()
	default:
		args := []any{slog.String("error", err.Error())}
		for _, a := range attrs {
			args = append(args, a)
		}
		slog.Error(op+" failed", args...)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, status, errorBody(msg))
}
