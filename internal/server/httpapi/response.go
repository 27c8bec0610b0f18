package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/bookshelf/internal/common"
)

// ErrorResponse is the body of every error answer. Code is the numeric
// error kind; it is zero for errors outside the book taxonomy.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Message: msg})
}

// writeError maps err onto a response. Errors outside the known set are
// logged and answered with a generic 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		tooLarge *http.MaxBytesError
		typed    *common.Error
	)

	switch {
	case errors.As(err, &tooLarge):
		writeMessage(w, http.StatusRequestEntityTooLarge, "payload too large")
	case errors.As(err, &typed):
		if typed.Status >= http.StatusInternalServerError {
			s.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		}
		writeJSON(w, typed.Status, ErrorResponse{
			Code:    int(typed.Kind),
			Kind:    typed.Kind.String(),
			Message: typed.Message,
		})
	case errors.Is(err, common.ErrorNotFound):
		writeMessage(w, http.StatusNotFound, "not found")
	default:
		s.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeMessage(w, http.StatusInternalServerError, "internal server error")
	}
}
