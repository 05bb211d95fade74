package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"

	"github.com/ivlev/takeone/internal/engine"
	"github.com/ivlev/takeone/internal/providers/assemblyai"
	"github.com/ivlev/takeone/internal/video"
)

// badRequest reports malformed form input caught before the engine.
func badRequest(detail string) error {
	return &engine.Error{Kind: engine.ErrValidation, Detail: detail}
}

// statusFor maps the error taxonomy onto HTTP.
func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrNotAWin):
		return http.StatusUnprocessableEntity
	case errors.Is(err, engine.ErrFeatureDisabled):
		return http.StatusServiceUnavailable
	case video.IsKind(err, video.KindTimeout), errors.Is(err, assemblyai.ErrPollTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, engine.ErrProvider):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Detail string `json:"detail"`
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	ev := s.log.Warn()
	if code >= http.StatusInternalServerError {
		ev = s.log.Error()
	}
	ev.Err(err).Str("request_id", RequestIDFromContext(r.Context())).Int("status", code).Msg("request failed")
	writeJSON(w, code, errorBody{Detail: err.Error()})
}
