package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"treepilot/family"
	"treepilot/source"
)

var (
	errBadRequest      = errors.New("bad request")
	errSessionNotFound = errors.New("view session not found")
	errTooManySessions = errors.New("too many view sessions")
)

type errorBody struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps package sentinels to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, family.ErrPersonNotFound), errors.Is(err, errSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, source.ErrUnavailable), errors.Is(err, errTooManySessions):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	respondJSON(w, status, errorBody{Error: err.Error()})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Join(errBadRequest, err)
	}
	return nil
}
