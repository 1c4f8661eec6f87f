package network

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abdul-hamid-achik/hitnet/packages/cookiejar"
	"go.uber.org/zap"
)

// Recorder observes completed calls, e.g. for latency statistics.
type Recorder interface {
	Record(method Method, endpoint string, d time.Duration, err error)
}

// Manager issues plain and authenticated calls through a Transport.
type Manager struct {
	env        Environment
	transport  Transport
	builder    *Builder
	session    *SessionStore
	logger     *zap.Logger
	recorder   Recorder
	cookieName string
	jar        CookieJar
	headers    map[string]string
}

// Option configures a Manager.
type Option func(*Manager)

// WithSessionCookieName sets the name of the cookie captured as the session.
func WithSessionCookieName(name string) Option {
	return func(m *Manager) {
		m.cookieName = name
	}
}

// WithCookieJar sets the jar session cookies are persisted to. Defaults to
// cookiejar.Shared.
func WithCookieJar(jar CookieJar) Option {
	return func(m *Manager) {
		m.jar = jar
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithRecorder sets a Recorder notified after every call.
func WithRecorder(r Recorder) Option {
	return func(m *Manager) {
		m.recorder = r
	}
}

// WithDefaultHeaders adds default headers merged over DefaultHeaders.
func WithDefaultHeaders(headers map[string]string) Option {
	return func(m *Manager) {
		for k, v := range headers {
			m.headers[k] = v
		}
	}
}

// NewManager creates a Manager for env sending requests through transport.
func NewManager(env Environment, transport Transport, opts ...Option) (*Manager, error) {
	if env == nil {
		return nil, fmt.Errorf("environment is required")
	}
	if transport == nil {
		return nil, fmt.Errorf("transport is required")
	}

	m := &Manager{
		env:       env,
		transport: transport,
		logger:    zap.NewNop(),
		jar:       cookiejar.Shared,
		headers:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}

	m.builder = NewBuilder(env, m.headers)
	m.session = NewSessionStore(m.cookieName, env.Host(), m.jar, m.logger)
	return m, nil
}

// Environment returns the environment requests are resolved against.
func (m *Manager) Environment() Environment {
	return m.env
}

// Session returns the store holding the authentication cookie.
func (m *Manager) Session() *SessionStore {
	return m.session
}

// Logout clears the session cookie and purges it from the jar.
func (m *Manager) Logout() {
	m.session.SetAuthCookie(nil)
}

// Request sends an unauthenticated call.
func (m *Manager) Request(ctx context.Context, method Method, endpoint string, params any, headers map[string]string) *Observable {
	return &Observable{p: m.call(ctx, method, endpoint, params, m.builder.Headers(headers))}
}

// AuthenticatedRequest sends a call carrying the session cookie, if one is
// held. Without a cookie the call is sent as is. The cookie goes to whatever
// host endpoint resolves to, so absolute endpoints must be trusted.
func (m *Manager) AuthenticatedRequest(ctx context.Context, method Method, endpoint string, params any, headers map[string]string) *Observable {
	return &Observable{p: m.call(ctx, method, endpoint, params, m.authHeaders(headers))}
}

// RequestFuture is Request delivered as a Future.
func (m *Manager) RequestFuture(ctx context.Context, method Method, endpoint string, params any, headers map[string]string) *Future {
	return &Future{p: m.call(ctx, method, endpoint, params, m.builder.Headers(headers))}
}

// AuthenticatedRequestFuture is AuthenticatedRequest delivered as a Future.
func (m *Manager) AuthenticatedRequestFuture(ctx context.Context, method Method, endpoint string, params any, headers map[string]string) *Future {
	return &Future{p: m.call(ctx, method, endpoint, params, m.authHeaders(headers))}
}

func (m *Manager) authHeaders(headers map[string]string) map[string]string {
	return m.session.AuthHeaders(m.builder.Headers(headers))
}

func (m *Manager) call(ctx context.Context, method Method, endpoint string, params any, headers map[string]string) *promise {
	p := newPromise()
	start := time.Now()

	desc, err := m.builder.Build(method, endpoint, params, headers)
	if err != nil {
		m.logger.Warn("request could not be built",
			zap.String("method", method.String()),
			zap.String("endpoint", endpoint))
		m.finish(p, method, endpoint, start, Failed(ErrUnexpected))
		return p
	}

	log := m.logger.With(
		zap.String("call_id", desc.ID),
		zap.String("method", method.String()),
		zap.String("url", desc.URL))
	log.Debug("submitting request")

	task := m.transport.Submit(ctx, desc, func(body []byte, resp *ResponseMeta, err error) {
		r := m.complete(body, resp, err)
		if r.Err != nil {
			log.Warn("request failed", zap.Error(r.Err), zap.Duration("duration", time.Since(start)))
		} else {
			log.Debug("request completed", zap.Int("bytes", len(r.Data)), zap.Duration("duration", time.Since(start)))
		}
		m.finish(p, method, endpoint, start, r)
	})
	task.Start()
	return p
}

// complete maps a transport callback onto a Result. Cookies are observed
// only for successful calls that came with response metadata.
func (m *Manager) complete(body []byte, resp *ResponseMeta, err error) Result {
	if err != nil {
		var netErr *NetworkError
		if errors.As(err, &netErr) {
			return Failed(netErr)
		}
		return Failed(Failure(err.Error()))
	}
	if body == nil {
		return Failed(Failure(NoDataMessage))
	}
	if resp != nil {
		m.session.Observe(resp.Header)
	}
	return Succeeded(body)
}

func (m *Manager) finish(p *promise, method Method, endpoint string, start time.Time, r Result) {
	if !p.resolve(r) {
		return
	}
	if m.recorder != nil {
		var err error
		if r.Err != nil {
			err = r.Err
		}
		m.recorder.Record(method, endpoint, time.Since(start), err)
	}
}
