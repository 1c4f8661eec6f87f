package cmd

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/abdul-hamid-achik/hitnet/packages/cookiejar"
	"github.com/abdul-hamid-achik/hitnet/packages/core/config"
	"github.com/abdul-hamid-achik/hitnet/packages/core/env"
	"github.com/abdul-hamid-achik/hitnet/packages/db"
	hnhttp "github.com/abdul-hamid-achik/hitnet/packages/http"
	"github.com/abdul-hamid-achik/hitnet/packages/logging"
	"github.com/abdul-hamid-achik/hitnet/packages/mock"
	"github.com/abdul-hamid-achik/hitnet/packages/network"
)

// loadConfig reads the config file and exports the env file, if any.
func loadConfig(configPath, envFile string) (*config.Config, error) {
	if envFile != "" {
		if _, err := env.LoadAndExportDotEnv(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	}

	fileConfig, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	return config.DefaultConfig().Merge(fileConfig), nil
}

// resolveEnvironment picks the named environment from cfg, falling back to
// the config's default and then to HITNET_SCHEME/HOST/PATH variables.
func resolveEnvironment(cfg *config.Config, name string) (network.StaticEnvironment, error) {
	if name == "" {
		name = cfg.DefaultEnvironment
	}
	if _, ok := cfg.Environments[name]; ok {
		return cfg.Environment(name)
	}

	if sys, err := env.FromSystem(); err == nil {
		return sys, nil
	}

	if len(cfg.Environments) == 0 {
		return network.StaticEnvironment{}, fmt.Errorf("no environments configured and %sHOST is not set", env.Prefix)
	}
	return network.StaticEnvironment{}, fmt.Errorf("unknown environment %q (available: %s)",
		name, strings.Join(cfg.EnvironmentNames(), ", "))
}

func newLogger(cfg *config.Config, verbose int) (*zap.Logger, error) {
	level := cfg.LogLevel
	switch {
	case verbose >= 2:
		level = "debug"
	case verbose == 1 && level != "debug":
		level = "info"
	}
	return logging.New(logging.Config{
		Level:       level,
		Development: cfg.GetLogDevelopment(),
		OutputPaths: []string{"stderr"},
	})
}

// cookieJar is a jar the CLI may need to close.
type cookieJar interface {
	network.CookieJar
	Close() error
}

type sharedJar struct {
	*cookiejar.MemoryJar
}

func (sharedJar) Close() error { return nil }

// openJar opens the persisted cookie store named by connStr, or the
// process-wide memory jar when connStr is empty.
func openJar(connStr string) (cookieJar, error) {
	if connStr == "" {
		return sharedJar{cookiejar.Shared}, nil
	}
	store, err := db.Open(connStr)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// restoreSession adopts a persisted, unexpired session cookie for the
// environment's host.
func restoreSession(session *network.SessionStore, jar cookieJar, host string, now time.Time) bool {
	store, ok := jar.(*db.CookieStore)
	if !ok || session.CookieName() == "" {
		return false
	}
	domain := hostname(host)
	cookies, err := store.Load(domain)
	if err != nil {
		return false
	}
	for _, sc := range cookies {
		c := sc.Cookie
		if c.Name != session.CookieName() {
			continue
		}
		if c.Value == "" || network.CookieExpired(c, now) {
			continue
		}
		session.SetAuthCookie(c)
		return true
	}
	return false
}

func hostname(host string) string {
	u, err := url.Parse("//" + host)
	if err != nil {
		return host
	}
	return u.Hostname()
}

func newClient(cfg *config.Config, timeout time.Duration, proxy string, insecure bool) *hnhttp.Client {
	if proxy == "" {
		proxy = cfg.Proxy
	}
	validateSSL := cfg.GetValidateSSL()
	if insecure {
		validateSSL = false
	}
	return hnhttp.NewClient(
		hnhttp.WithTimeout(timeout),
		hnhttp.WithFollowRedirects(cfg.GetFollowRedirects()),
		hnhttp.WithMaxRedirects(cfg.MaxRedirects),
		hnhttp.WithValidateSSL(validateSSL),
		hnhttp.WithProxy(proxy),
		hnhttp.WithDefaultHeader("User-Agent", "hitnet/"+version),
	)
}

// cookieNameFor picks the session cookie name: flag, then config, then the
// mock server's cookie.
func cookieNameFor(flag string, cfg *config.Config) string {
	if flag != "" {
		return flag
	}
	if cfg.SessionCookieName != "" {
		return cfg.SessionCookieName
	}
	return mock.DefaultCookieName
}

// parseParams turns -P key=value pairs and a --data JSON document into call
// params. GET params must be flat: values of a JSON object are stringified.
// Pairs override keys of the JSON object.
func parseParams(method network.Method, pairs []string, data string) (any, error) {
	kv := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid param %q: expected key=value", p)
		}
		kv[strings.TrimSpace(k)] = v
	}

	if data == "" {
		if len(kv) == 0 {
			return nil, nil
		}
		return kv, nil
	}

	var doc any
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return nil, fmt.Errorf("invalid --data: %w", err)
	}

	obj, isObject := doc.(map[string]any)
	if method == network.MethodGet {
		if !isObject {
			return nil, fmt.Errorf("GET params must be a JSON object")
		}
		query := make(map[string]string, len(obj)+len(kv))
		for k, v := range obj {
			if s, ok := v.(string); ok {
				query[k] = s
			} else {
				b, _ := json.Marshal(v)
				query[k] = string(b)
			}
		}
		for k, v := range kv {
			query[k] = v
		}
		return query, nil
	}

	if len(kv) == 0 {
		return doc, nil
	}
	if !isObject {
		return nil, fmt.Errorf("cannot combine --param with a non-object --data")
	}
	for k, v := range kv {
		obj[k] = v
	}
	return obj, nil
}

// parseHeaders reads "Name: value" pairs.
func parseHeaders(values []string) (map[string]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	headers := make(map[string]string, len(values))
	for _, h := range values {
		k, v, ok := strings.Cut(h, ":")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid header %q: expected Name: value", h)
		}
		headers[k] = strings.TrimSpace(v)
	}
	return headers, nil
}
