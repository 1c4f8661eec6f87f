// Package mock provides a fake session API for exercising hitnet clients.
//
// POST {prefix}login issues the session cookie. Every other route requires
// that cookie unless it is public, and answers 401 without it. Requests
// that match no registered route are echoed back as JSON.
package mock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultCookieName is the session cookie issued by login.
const DefaultCookieName = "session"

type routeHandler func(w http.ResponseWriter, r *http.Request, params map[string]string)

// Server is a fake session API server
type Server struct {
	router     *Router
	port       int
	delay      time.Duration
	prefix     string
	cookieName string
	token      string
	logger     *zap.Logger
}

// Option is a functional option for Server
type Option func(*Server)

// WithPort sets the server port
func WithPort(port int) Option {
	return func(s *Server) {
		s.port = port
	}
}

// WithDelay adds a delay to all responses
func WithDelay(delay time.Duration) Option {
	return func(s *Server) {
		s.delay = delay
	}
}

// WithPrefix mounts the API under prefix, e.g. "/mockAPI/v1/".
func WithPrefix(prefix string) Option {
	return func(s *Server) {
		s.prefix = prefix
	}
}

// WithCookieName sets the name of the session cookie.
func WithCookieName(name string) Option {
	return func(s *Server) {
		s.cookieName = name
	}
}

// WithToken fixes the session token instead of generating one.
func WithToken(token string) Option {
	return func(s *Server) {
		s.token = token
	}
}

// WithLogger sets the request logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new mock server
func NewServer(opts ...Option) *Server {
	s := &Server{
		router:     NewRouter(),
		port:       3000,
		prefix:     "/",
		cookieName: DefaultCookieName,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.token == "" {
		s.token = uuid.NewString()
	}
	s.prefix = "/" + strings.Trim(s.prefix, "/")
	if s.prefix != "/" {
		s.prefix += "/"
	}

	s.router.AddRoute(&Route{Method: http.MethodPost, PathPattern: s.prefix + "login", Name: "login", Public: true, handler: s.handleLogin})
	s.router.AddRoute(&Route{Method: http.MethodPost, PathPattern: s.prefix + "logout", Name: "logout", handler: s.handleLogout})
	s.router.AddRoute(&Route{Method: http.MethodGet, PathPattern: s.prefix + "health", Name: "health", Public: true,
		Response: &MockResponse{StatusCode: http.StatusOK, Body: `{"status": "ok"}`}})
	return s
}

// AddRoute registers a canned response. The pattern is relative to the
// prefix and may contain {{param}} segments, which are substituted into the
// body.
func (s *Server) AddRoute(method, pattern string, public bool, resp *MockResponse) {
	s.router.AddRoute(&Route{
		Method:      strings.ToUpper(method),
		PathPattern: s.prefix + strings.TrimPrefix(pattern, "/"),
		Public:      public,
		Response:    resp,
	})
}

// Token returns the session token issued by login.
func (s *Server) Token() string {
	return s.token
}

// CookieName returns the session cookie name.
func (s *Server) CookieName() string {
	return s.cookieName
}

// Routes returns all registered routes
func (s *Server) Routes() []*Route {
	return s.router.Routes()
}

// Handler returns the server's http.Handler, e.g. for httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRequest)
	return mux
}

// Start starts the mock server
func (s *Server) Start() error {
	return s.StartWithContext(context.Background())
}

// StartWithContext starts the server and shuts it down when ctx is done
func (s *Server) StartWithContext(ctx context.Context) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("mock server starting",
		zap.String("url", fmt.Sprintf("http://localhost:%d%s", s.port, s.prefix)),
		zap.String("cookie", s.cookieName),
		zap.Int("routes", len(s.router.routes)))

	err := server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	route, params := s.router.Match(r.Method, r.URL.Path)

	public := route != nil && route.Public
	if !public && !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		s.logRequest(r, http.StatusUnauthorized, start)
		return
	}

	switch {
	case route == nil:
		s.handleEcho(w, r)
		s.logRequest(r, http.StatusOK, start)
	case route.handler != nil:
		route.handler(w, r, params)
		s.logRequest(r, 0, start)
	default:
		resp := route.Response
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		contentType := resp.ContentType
		if contentType == "" {
			contentType = "application/json"
		}
		w.Header().Set("Content-Type", contentType)
		status := resp.StatusCode
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(resolveBodyParams(resp.Body, params)))
		s.logRequest(r, status, start)
	}
}

func (s *Server) authorized(r *http.Request) bool {
	c, err := r.Cookie(s.cookieName)
	return err == nil && c.Value == s.token
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    s.token,
		Path:     "/",
		HttpOnly: true,
	})
	writeJSON(w, http.StatusOK, map[string]any{"authenticated": true})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	http.SetCookie(w, &http.Cookie{
		Name:   s.cookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
}

// echo is the body returned for unmatched routes.
type echo struct {
	Method string              `json:"method"`
	Path   string              `json:"path"`
	Query  map[string][]string `json:"query,omitempty"`
	Body   json.RawMessage     `json:"body,omitempty"`
}

func (s *Server) handleEcho(w http.ResponseWriter, r *http.Request) {
	e := echo{
		Method: r.Method,
		Path:   r.URL.Path,
	}
	if q := r.URL.Query(); len(q) > 0 {
		e.Query = q
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if len(body) > 0 {
		if !json.Valid(body) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "body is not valid JSON"})
			return
		}
		e.Body = body
	}

	writeJSON(w, http.StatusOK, e)
}

func (s *Server) logRequest(r *http.Request, status int, start time.Time) {
	fields := []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Duration("duration", time.Since(start)),
	}
	if status != 0 {
		fields = append(fields, zap.Int("status", status))
	}
	s.logger.Debug("mock request", fields...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func resolveBodyParams(body string, params map[string]string) string {
	result := body
	for key, value := range params {
		result = strings.ReplaceAll(result, "{{"+key+"}}", value)
	}
	return result
}
