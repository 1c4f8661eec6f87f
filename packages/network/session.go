package network

import (
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CookiePurgeWindow is how far back cookies are purged when a cleared
// session cookie had no domain.
const CookiePurgeWindow = 30 * 24 * time.Hour

// CookieJar persists session cookies beyond a single SessionStore.
type CookieJar interface {
	// Store saves c under its domain.
	Store(c *http.Cookie) error
	// PurgeDomain removes every cookie stored for domain.
	PurgeDomain(domain string) error
	// PurgeSince removes every cookie stored at or after t.
	PurgeSince(t time.Time) error
}

// SessionStore holds the authentication cookie of one Manager.
//
// The slot and the jar are updated together under one mutex. Calls that are
// being built while a response updates the cookie may still read the previous
// value; they lose at most one round of authentication.
type SessionStore struct {
	mu         sync.Mutex
	cookieName string
	domain     string
	cookie     *http.Cookie
	jar        CookieJar
	logger     *zap.Logger
	now        func() time.Time
}

// NewSessionStore creates a store capturing cookies named cookieName. host is
// used as the domain of captured cookies that do not carry one. An empty
// cookieName disables capture.
func NewSessionStore(cookieName, host string, jar CookieJar, logger *zap.Logger) *SessionStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionStore{
		cookieName: cookieName,
		domain:     cookieDomain(host),
		jar:        jar,
		logger:     logger,
		now:        time.Now,
	}
}

// CookieName returns the configured session cookie name.
func (s *SessionStore) CookieName() string {
	return s.cookieName
}

// Observe adopts the first Set-Cookie in header named after the session cookie.
// A matching cookie that deletes itself clears the session instead.
func (s *SessionStore) Observe(header http.Header) {
	if s.cookieName == "" || len(header) == 0 {
		return
	}

	resp := &http.Response{Header: header}
	for _, c := range resp.Cookies() {
		if c.Name != s.cookieName {
			continue
		}
		if CookieExpired(c, s.now()) {
			s.SetAuthCookie(nil)
			s.logger.Info("session cookie cleared", zap.String("name", c.Name))
			return
		}
		if c.Domain == "" {
			c.Domain = s.domain
		}
		s.SetAuthCookie(c)
		s.logger.Info("session cookie captured",
			zap.String("name", c.Name),
			zap.String("domain", c.Domain))
		return
	}
}

// AuthCookie returns a copy of the current session cookie, or nil.
func (s *SessionStore) AuthCookie() *http.Cookie {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cookie == nil {
		return nil
	}
	c := *s.cookie
	return &c
}

// SetAuthCookie replaces the session cookie and mirrors the change into the
// jar. Passing nil clears the session: the previous cookie's domain is purged
// from the jar, or everything newer than CookiePurgeWindow when it had none.
// Jar errors are logged and otherwise ignored.
func (s *SessionStore) SetAuthCookie(c *http.Cookie) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.cookie
	if c != nil {
		cp := *c
		s.cookie = &cp
	} else {
		s.cookie = nil
	}

	if s.jar == nil {
		return
	}

	var err error
	switch {
	case c != nil:
		err = s.jar.Store(s.cookie)
	case prev != nil && prev.Domain != "":
		err = s.jar.PurgeDomain(prev.Domain)
	default:
		err = s.jar.PurgeSince(s.now().Add(-CookiePurgeWindow))
	}
	if err != nil {
		s.logger.Warn("cookie jar update failed", zap.Error(err))
	}
}

// AuthHeaders returns DefaultHeaders merged with headers, plus a Cookie
// header for the current session cookie. A Cookie header supplied by the
// caller takes precedence. Without a session cookie the merged headers are
// returned unchanged.
func (s *SessionStore) AuthHeaders(headers map[string]string) map[string]string {
	merged := MergeHeaders(DefaultHeaders(), headers)

	cookie := s.AuthCookie()
	if cookie == nil {
		return merged
	}

	auth := map[string]string{
		"Cookie": cookie.Name + "=" + cookie.Value,
	}
	return MergeHeaders(auth, merged)
}

// CookieExpired reports whether c is already expired at now. net/http parses
// "Max-Age=0" as a negative MaxAge.
func CookieExpired(c *http.Cookie, now time.Time) bool {
	if c.MaxAge < 0 {
		return true
	}
	return !c.Expires.IsZero() && !c.Expires.After(now)
}

func cookieDomain(host string) string {
	if host == "" {
		return ""
	}
	u, err := url.Parse("//" + host)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
