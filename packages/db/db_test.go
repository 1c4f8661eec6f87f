package db

import (
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/hitnet/packages/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ network.CookieJar = (*CookieStore)(nil)

func openTestStore(t *testing.T) *CookieStore {
	t.Helper()
	store, err := Open("sqlite://" + filepath.Join(t.TempDir(), "cookies.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpen_ColonPrefix(t *testing.T) {
	store, err := Open("sqlite:" + filepath.Join(t.TempDir(), "cookies.db"))
	require.NoError(t, err)
	defer store.Close()

	cookies, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, cookies)
}

func TestOpen_Unsupported(t *testing.T) {
	_, err := Open("postgres://localhost/cookies")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported cookie store")
}

func TestCookieStore_StoreAndLoad(t *testing.T) {
	store := openTestStore(t)
	expires := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Store(&http.Cookie{
		Name:     "session",
		Value:    "abc",
		Domain:   ".Example.com",
		Path:     "/",
		Secure:   true,
		HttpOnly: true,
		Expires:  expires,
	}))

	cookies, err := store.Load("example.com")
	require.NoError(t, err)
	require.Len(t, cookies, 1)

	c := cookies[0].Cookie
	assert.Equal(t, "session", c.Name)
	assert.Equal(t, "abc", c.Value)
	assert.Equal(t, "example.com", c.Domain)
	assert.Equal(t, "/", c.Path)
	assert.True(t, c.Secure)
	assert.True(t, c.HttpOnly)
	assert.True(t, expires.Equal(c.Expires))
	assert.False(t, cookies[0].Created.IsZero())
}

func TestCookieStore_StoreReplaces(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.Store(&http.Cookie{Name: "session", Value: "old", Domain: "example.com"}))
	require.NoError(t, store.Store(&http.Cookie{Name: "session", Value: "new", Domain: "example.com"}))

	cookies, err := store.Load("example.com")
	require.NoError(t, err)
	require.Len(t, cookies, 1)
	assert.Equal(t, "new", cookies[0].Cookie.Value)
}

func TestCookieStore_PurgeDomain(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.Store(&http.Cookie{Name: "a", Value: "1", Domain: "one.test"}))
	require.NoError(t, store.Store(&http.Cookie{Name: "b", Value: "2", Domain: "two.test"}))

	require.NoError(t, store.PurgeDomain("one.test"))

	cookies, err := store.List()
	require.NoError(t, err)
	require.Len(t, cookies, 1)
	assert.Equal(t, "two.test", cookies[0].Cookie.Domain)
}

func TestCookieStore_PurgeSince(t *testing.T) {
	store := openTestStore(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	store.now = func() time.Time { return now.Add(-60 * 24 * time.Hour) }
	require.NoError(t, store.Store(&http.Cookie{Name: "old", Value: "1", Domain: "example.com"}))

	store.now = func() time.Time { return now }
	require.NoError(t, store.Store(&http.Cookie{Name: "fresh", Value: "2", Domain: "example.com"}))

	require.NoError(t, store.PurgeSince(now.Add(-network.CookiePurgeWindow)))

	cookies, err := store.List()
	require.NoError(t, err)
	require.Len(t, cookies, 1)
	assert.Equal(t, "old", cookies[0].Cookie.Name)
}

func TestCookieStore_Clear(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.Store(&http.Cookie{Name: "a", Value: "1", Domain: "example.com"}))

	require.NoError(t, store.Clear())

	cookies, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, cookies)
}

func TestCookieStore_AsSessionJar(t *testing.T) {
	store := openTestStore(t)
	session := network.NewSessionStore("session", "example.com", store, nil)

	h := http.Header{}
	h.Add("Set-Cookie", "session=abc; Path=/")
	session.Observe(h)

	cookies, err := store.Load("example.com")
	require.NoError(t, err)
	require.Len(t, cookies, 1)
	assert.Equal(t, "abc", cookies[0].Cookie.Value)

	session.SetAuthCookie(nil)

	cookies, err = store.Load("example.com")
	require.NoError(t, err)
	assert.Empty(t, cookies)
}

func TestCookieStore_ExpiredCookieDeletes(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.Store(&http.Cookie{Name: "session", Value: "tok", Domain: "example.com", Path: "/"}))
	require.NoError(t, store.Store(&http.Cookie{Name: "theme", Value: "dark", Domain: "example.com", Path: "/"}))

	require.NoError(t, store.Store(&http.Cookie{Name: "session", Domain: "example.com", Path: "/", MaxAge: -1}))

	cookies, err := store.Load("example.com")
	require.NoError(t, err)
	require.Len(t, cookies, 1)
	assert.Equal(t, "theme", cookies[0].Cookie.Name)

	past := time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Store(&http.Cookie{Name: "theme", Value: "x", Domain: "example.com", Path: "/", Expires: past}))

	cookies, err = store.Load("example.com")
	require.NoError(t, err)
	assert.Empty(t, cookies)
}

func TestCookieStore_MaxAgeBecomesExpiry(t *testing.T) {
	store := openTestStore(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Store(&http.Cookie{Name: "session", Value: "tok", Domain: "example.com", MaxAge: 3600}))

	cookies, err := store.Load("example.com")
	require.NoError(t, err)
	require.Len(t, cookies, 1)
	assert.True(t, now.Add(time.Hour).Equal(cookies[0].Cookie.Expires))
}

func TestCookieStore_SessionDeletionIsNotPersisted(t *testing.T) {
	store := openTestStore(t)
	session := network.NewSessionStore("session", "example.com", store, nil)

	h := http.Header{}
	h.Add("Set-Cookie", "session=tok; Path=/")
	session.Observe(h)

	cookies, err := store.Load("example.com")
	require.NoError(t, err)
	require.Len(t, cookies, 1)

	h = http.Header{}
	h.Add("Set-Cookie", "session=; Path=/; Max-Age=0")
	session.Observe(h)

	assert.Nil(t, session.AuthCookie())
	cookies, err = store.Load("example.com")
	require.NoError(t, err)
	assert.Empty(t, cookies)
}

func TestParseConnectionString(t *testing.T) {
	tests := []struct {
		input   string
		driver  string
		dsn     string
		wantErr bool
	}{
		{"sqlite://./cookies.db", "sqlite3", "./cookies.db", false},
		{"sqlite:/tmp/cookies.db", "sqlite3", "/tmp/cookies.db", false},
		{"  sqlite::memory:  ", "sqlite3", ":memory:", false},
		{"mysql://user@host/db", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			driver, dsn, err := parseConnectionString(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.driver, driver)
			assert.Equal(t, tt.dsn, dsn)
		})
	}
}
