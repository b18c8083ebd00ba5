package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/hlog"
)

// GenericFailureMessage accompanies every 5xx response
const GenericFailureMessage = "An error occurred processing your request"

// Error types translated into HTTP responses
type (
	// ValidationError indicates a request parameter failed validation.
	// It is always raised before a session is created.
	ValidationError struct {
		Param  string
		Reason string
	}

	// NotFoundError indicates the requested subject does not exist
	NotFoundError struct {
		Message string
	}

	// UpstreamError wraps any failure raised while creating or using a session
	UpstreamError struct {
		Err error
	}
)

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid parameter '%s': %s", e.Param, e.Reason)
}

func (e *NotFoundError) Error() string {
	return e.Message
}

func (e *UpstreamError) Error() string {
	if e.Err == nil {
		return "upstream failure"
	}
	return e.Err.Error()
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// upstream classifies err as an upstream failure unless it already carries a
// more specific classification
func upstream(err error) error {
	if err == nil {
		return nil
	}
	var notFound *NotFoundError
	var upstreamErr *UpstreamError
	if errors.As(err, &notFound) || errors.As(err, &upstreamErr) {
		return err
	}
	return &UpstreamError{Err: err}
}

// classify maps an error onto a status code and a human-readable message
func classify(err error) (int, string) {
	var (
		validation *ValidationError
		notFound   *NotFoundError
	)
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound, http.StatusText(http.StatusNotFound)
	case errors.As(err, &validation):
		return http.StatusUnprocessableEntity, http.StatusText(http.StatusUnprocessableEntity)
	default:
		return http.StatusInternalServerError, GenericFailureMessage
	}
}

// writeError renders err as an error envelope. It is the single place errors
// become HTTP responses and it never fails: encoding problems are only logged.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	status, message := classify(err)

	logger := hlog.FromRequest(r)
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
		reportError(r, err)
	} else {
		logger.Debug().Err(err).Int("status", status).Str("path", r.URL.Path).Msg("Request rejected")
	}

	body := Normalize(s.opts.Creator, Fields{
		{Key: "error", Value: err.Error()},
		{Key: "message", Value: message},
	})
	writeBody(w, r, status, body)
}

// writeJSON renders a successful payload, falling back to the failure
// envelope when the payload cannot be encoded
func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	raw, err := json.Marshal(Normalize(s.opts.Creator, payload))
	if err != nil {
		s.writeError(w, r, fmt.Errorf("failed to encode response: %w", err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(raw); err != nil {
		hlog.FromRequest(r).Debug().Err(err).Msg("Couldn't write response")
	}
}

func writeBody(w http.ResponseWriter, r *http.Request, status int, body Fields) {
	raw, err := json.Marshal(body)
	if err != nil {
		// Only strings reach here, so this is unreachable in practice
		hlog.FromRequest(r).Error().Err(err).Msg("Couldn't encode error envelope")
		raw = []byte(`{"error":"internal error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(raw); err != nil {
		hlog.FromRequest(r).Debug().Err(err).Msg("Couldn't write response")
	}
}

// reportError forwards server-side failures to Sentry. Without a configured
// client this is a no-op.
func reportError(r *http.Request, err error) {
	hub := sentry.GetHubFromContext(r.Context())
	if hub == nil {
		hub = sentry.CurrentHub().Clone()
	}
	hub.Scope().SetRequest(r)
	hub.Scope().SetTag("request_id", middleware.GetReqID(r.Context()))
	hub.CaptureException(err)
}

// recoverer converts panics escaping a handler into the failure envelope
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			err, ok := rec.(error)
			if !ok {
				err = fmt.Errorf("%v", rec)
			}
			hlog.FromRequest(r).Error().
				Str("stack", string(debug.Stack())).
				Msg("Recovered from panic")
			s.writeError(w, r, err)
		}()

		next.ServeHTTP(w, r)
	})
}
