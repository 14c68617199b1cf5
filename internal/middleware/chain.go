// Package middleware composes the HTTP middleware stack of the theme server.
package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/cors"

	"github.com/conneroisu/minima/internal/config"
	"github.com/conneroisu/minima/internal/logging"
	"github.com/conneroisu/minima/internal/security"
)

// HeaderRequestID carries the request id on requests and responses.
const HeaderRequestID = "X-Request-ID"

// Middleware wraps a handler.
type Middleware func(http.Handler) http.Handler

// Stack is an ordered list of middleware. The first one used is the
// outermost: requests pass through the stack in order before reaching the
// handler.
type Stack struct {
	origins   security.OriginValidator
	anyOrigin bool
	logger    logging.Logger
	layers    []Middleware
}

// New returns the standard stack of the theme server: request id, access
// log, panic recovery, CORS and the security headers of the configured
// environment. A nil origins validator uses the environment allow list.
func New(cfg *config.Config, logger logging.Logger, origins security.OriginValidator) *Stack {
	if cfg == nil {
		cfg = &config.Config{}
	}
	if logger == nil {
		logger = logging.Nop()
	}

	policy := security.ForEnvironment(cfg.Server.Environment, cfg.Server.AllowedOrigins)
	if origins == nil {
		origins = policy.AllowedOrigins
	}

	// Without a configured list, development previews accept any origin.
	anyOrigin := cfg.Server.Environment == security.EnvDevelopment && len(cfg.Server.AllowedOrigins) == 0

	s := &Stack{
		origins:   origins,
		anyOrigin: anyOrigin,
		logger:    logger.WithComponent("http"),
	}
	s.Use(RequestID, s.accessLog, s.recoverPanics, s.cors(), policy.Middleware)
	return s
}

// Use appends middleware inside the ones already in the stack. Nil entries
// are ignored.
func (s *Stack) Use(mw ...Middleware) {
	for _, m := range mw {
		if m != nil {
			s.layers = append(s.layers, m)
		}
	}
}

// Len is the number of middleware in the stack.
func (s *Stack) Len() int {
	return len(s.layers)
}

// Then wraps h with the stack. A nil h serves 404s.
func (s *Stack) Then(h http.Handler) http.Handler {
	if h == nil {
		h = http.NotFoundHandler()
	}
	for i := len(s.layers) - 1; i >= 0; i-- {
		h = s.layers[i](h)
	}
	return h
}

// RequestID assigns every request an id, reusing a valid incoming one, and
// echoes it on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)
		next.ServeHTTP(w, r.WithContext(logging.WithRequestID(r.Context(), id)))
	})
}

// responseMeter records the status and size of a response.
type responseMeter struct {
	http.ResponseWriter
	status int
	size   int
}

func (m *responseMeter) WriteHeader(code int) {
	if m.status == 0 {
		m.status = code
	}
	m.ResponseWriter.WriteHeader(code)
}

func (m *responseMeter) Write(b []byte) (int, error) {
	if m.status == 0 {
		m.status = http.StatusOK
	}
	n, err := m.ResponseWriter.Write(b)
	m.size += n
	return n, err
}

// Unwrap exposes the underlying writer to http.ResponseController, which the
// websocket upgrade needs.
func (m *responseMeter) Unwrap() http.ResponseWriter {
	return m.ResponseWriter
}

func (s *Stack) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		began := time.Now()
		meter := &responseMeter{ResponseWriter: w}
		next.ServeHTTP(meter, r)

		if meter.status == 0 {
			meter.status = http.StatusOK
		}
		s.logger.Info(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", meter.status,
			"bytes", meter.size,
			"duration", time.Since(began),
			"ip", security.ClientIP(r))
	})
}

func (s *Stack) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			v := recover()
			switch v {
			case nil:
				return
			case http.ErrAbortHandler:
				panic(v)
			}
			s.logger.Error(r.Context(), fmt.Errorf("panic: %v", v), "Recovered from handler panic", "path", r.URL.Path)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}()
		next.ServeHTTP(w, r)
	})
}

// cors answers preflight requests and sets the CORS response headers for
// origins the validator accepts.
func (s *Stack) cors() Middleware {
	opts := cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", HeaderRequestID},
		ExposedHeaders: []string{HeaderRequestID},
	}
	if s.anyOrigin {
		opts.AllowedOrigins = []string{"*"}
	} else {
		opts.AllowOriginFunc = s.origins.ValidateOrigin
	}
	return cors.New(opts).Handler
}
