package mock

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/hitnet/packages/cookiejar"
	hnhttp "github.com/abdul-hamid-achik/hitnet/packages/http"
	"github.com/abdul-hamid-achik/hitnet/packages/network"
)

const testToken = "0987654321"

func newTestServer(t *testing.T, opts ...Option) (*Server, *httptest.Server) {
	t.Helper()
	opts = append([]Option{WithPrefix("/mockAPI/v1/"), WithToken(testToken)}, opts...)
	srv := NewServer(opts...)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func TestServer_LoginSetsCookie(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/mockAPI/v1/login", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	cookies := resp.Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, DefaultCookieName, cookies[0].Name)
	assert.Equal(t, testToken, cookies[0].Value)
}

func TestServer_ProtectedRoute(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/mockAPI/v1/users")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/mockAPI/v1/users?page=2", nil)
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: testToken})
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var got echo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "GET", got.Method)
	assert.Equal(t, "/mockAPI/v1/users", got.Path)
	assert.Equal(t, []string{"2"}, got.Query["page"])
}

func TestServer_WrongTokenRejected(t *testing.T) {
	_, ts := newTestServer(t)

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/mockAPI/v1/users", nil)
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "stale"})
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServer_PublicRoutes(t *testing.T) {
	srv, ts := newTestServer(t)
	srv.AddRoute("get", "users/{{id}}", true, &MockResponse{Body: `{"id": "{{id}}"}`})

	resp, err := http.Get(ts.URL + "/mockAPI/v1/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/mockAPI/v1/users/42")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"id": "42"}`, string(body))
}

func TestServer_EchoRejectsInvalidJSON(t *testing.T) {
	_, ts := newTestServer(t)

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/mockAPI/v1/items", strings.NewReader("nope"))
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: testToken})
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_Defaults(t *testing.T) {
	srv := NewServer()
	assert.NotEmpty(t, srv.Token())
	assert.Equal(t, DefaultCookieName, srv.CookieName())
	assert.Len(t, srv.Routes(), 3)

	srv = NewServer(WithCookieName("sid"), WithPrefix("api"))
	assert.Equal(t, "sid", srv.CookieName())
	assert.Equal(t, "/api/login", srv.Routes()[0].PathPattern)
}

func TestServer_Delay(t *testing.T) {
	_, ts := newTestServer(t, WithDelay(30*time.Millisecond))

	start := time.Now()
	resp, err := http.Get(ts.URL + "/mockAPI/v1/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestRouter_Match(t *testing.T) {
	r := NewRouter()
	r.AddRoute(&Route{Method: "GET", PathPattern: "/users/{{id}}/posts/{{postId}}"})
	r.AddRoute(&Route{Method: "POST", PathPattern: "/users/"})

	route, params := r.Match("get", "/users/7/posts/9/")
	require.NotNil(t, route)
	assert.Equal(t, map[string]string{"id": "7", "postId": "9"}, params)

	route, _ = r.Match("POST", "/users")
	assert.NotNil(t, route)

	route, _ = r.Match("DELETE", "/users")
	assert.Nil(t, route)
}

// The full client stack against the fake API: login captures the cookie,
// authenticated calls replay it, logout drops it.
func TestIntegration_ManagerSession(t *testing.T) {
	srv, ts := newTestServer(t)

	u, err := url.Parse(ts.URL)
	require.NoError(t, err)
	env := network.NewEnvironment("http", u.Host, "mockAPI/v1/")

	jar := cookiejar.NewMemoryJar()
	manager, err := network.NewManager(env, hnhttp.NewClient(hnhttp.WithTimeout(5*time.Second)),
		network.WithSessionCookieName(srv.CookieName()),
		network.WithCookieJar(jar))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = manager.AuthenticatedRequestFuture(ctx, network.MethodGet, "users", nil, nil).Await(ctx)
	assert.ErrorIs(t, err, network.ErrUnauthorized)
	assert.Nil(t, manager.Session().AuthCookie())

	_, err = manager.RequestFuture(ctx, network.MethodPost, "login", map[string]string{"user": "ada"}, nil).Await(ctx)
	require.NoError(t, err)
	cookie := manager.Session().AuthCookie()
	require.NotNil(t, cookie)
	assert.Equal(t, testToken, cookie.Value)
	assert.Len(t, jar.Cookies(u.Hostname()), 1)

	result, err := manager.AuthenticatedRequest(ctx, network.MethodGet, "users", map[string]string{"page": "2"}, nil).Wait(ctx)
	require.NoError(t, err)
	require.True(t, result.IsSuccess())

	var got echo
	require.NoError(t, json.Unmarshal(result.Data, &got))
	assert.Equal(t, "/mockAPI/v1/users", got.Path)
	assert.Equal(t, []string{"2"}, got.Query["page"])

	body, err := manager.AuthenticatedRequestFuture(ctx, network.MethodPut, "users/1", map[string]any{"name": "Ada"}, nil).Await(ctx)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, &got))
	assert.JSONEq(t, `{"name": "Ada"}`, string(got.Body))

	manager.Logout()
	assert.Nil(t, manager.Session().AuthCookie())
	assert.Empty(t, jar.Cookies(u.Hostname()))

	_, err = manager.AuthenticatedRequestFuture(ctx, network.MethodGet, "users", nil, nil).Await(ctx)
	assert.ErrorIs(t, err, network.ErrUnauthorized)
}
