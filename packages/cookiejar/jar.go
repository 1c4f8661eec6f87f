// Package cookiejar provides the process-wide in-memory cookie jar session
// cookies are persisted to.
package cookiejar

import (
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

// Entry is a stored cookie with the time it was stored.
type Entry struct {
	Cookie  *http.Cookie
	Created time.Time
}

// MemoryJar is a thread-safe cookie jar keyed by domain and cookie name.
type MemoryJar struct {
	entries map[string]map[string]Entry
	mutex   sync.RWMutex
	now     func() time.Time
}

// NewMemoryJar creates an empty jar.
func NewMemoryJar() *MemoryJar {
	return &MemoryJar{
		entries: make(map[string]map[string]Entry),
		now:     time.Now,
	}
}

// Shared is the process-wide jar used when no other jar is configured.
var Shared = NewMemoryJar()

func normalizeDomain(domain string) string {
	return strings.ToLower(strings.TrimPrefix(domain, "."))
}

// Store saves c under its domain, replacing a cookie with the same name.
func (j *MemoryJar) Store(c *http.Cookie) error {
	if c == nil {
		return nil
	}
	domain := normalizeDomain(c.Domain)

	j.mutex.Lock()
	defer j.mutex.Unlock()

	cookies, ok := j.entries[domain]
	if !ok {
		cookies = make(map[string]Entry)
		j.entries[domain] = cookies
	}
	cp := *c
	cookies[c.Name] = Entry{Cookie: &cp, Created: j.now()}
	return nil
}

// PurgeDomain removes every cookie stored for domain.
func (j *MemoryJar) PurgeDomain(domain string) error {
	j.mutex.Lock()
	defer j.mutex.Unlock()
	delete(j.entries, normalizeDomain(domain))
	return nil
}

// PurgeSince removes every cookie stored at or after t.
func (j *MemoryJar) PurgeSince(t time.Time) error {
	j.mutex.Lock()
	defer j.mutex.Unlock()

	for domain, cookies := range j.entries {
		for name, e := range cookies {
			if !e.Created.Before(t) {
				delete(cookies, name)
			}
		}
		if len(cookies) == 0 {
			delete(j.entries, domain)
		}
	}
	return nil
}

// Cookies returns the cookies stored for domain, sorted by name.
func (j *MemoryJar) Cookies(domain string) []*http.Cookie {
	j.mutex.RLock()
	defer j.mutex.RUnlock()

	cookies := j.entries[normalizeDomain(domain)]
	result := make([]*http.Cookie, 0, len(cookies))
	for _, e := range cookies {
		cp := *e.Cookie
		result = append(result, &cp)
	}
	sort.Slice(result, func(a, b int) bool { return result[a].Name < result[b].Name })
	return result
}

// Len returns the number of stored cookies across all domains.
func (j *MemoryJar) Len() int {
	j.mutex.RLock()
	defer j.mutex.RUnlock()
	n := 0
	for _, cookies := range j.entries {
		n += len(cookies)
	}
	return n
}

// Clear removes all cookies.
func (j *MemoryJar) Clear() {
	j.mutex.Lock()
	defer j.mutex.Unlock()
	j.entries = make(map[string]map[string]Entry)
}
