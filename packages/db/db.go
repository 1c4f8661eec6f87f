// Package db persists session cookies in SQLite so they survive process
// restarts. CookieStore implements network.CookieJar.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/hitnet/packages/network"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS cookies (
	domain     TEXT    NOT NULL,
	name       TEXT    NOT NULL,
	value      TEXT    NOT NULL,
	path       TEXT    NOT NULL DEFAULT '',
	secure     INTEGER NOT NULL DEFAULT 0,
	http_only  INTEGER NOT NULL DEFAULT 0,
	expires    INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (domain, name, path)
)`

// StoredCookie is a cookie row with the time it was stored.
type StoredCookie struct {
	Cookie  *http.Cookie
	Created time.Time
}

// CookieStore is a SQLite-backed cookie jar.
type CookieStore struct {
	db           *sql.DB
	dataSource   string
	queryTimeout time.Duration
	now          func() time.Time
}

// Open opens (and if needed creates) the cookie store for a connection string
func Open(connectionString string) (*CookieStore, error) {
	driver, dsn, err := parseConnectionString(connectionString)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create cookies table: %w", err)
	}

	return &CookieStore{
		db:           db,
		dataSource:   dsn,
		queryTimeout: 30 * time.Second,
		now:          time.Now,
	}, nil
}

// Close closes the database connection
func (s *CookieStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Store inserts or replaces c under its domain. An expired cookie deletes the
// stored cookie with the same domain, name and path. A positive MaxAge is
// persisted as an absolute expiry.
func (s *CookieStore) Store(c *http.Cookie) error {
	if c == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.queryTimeout)
	defer cancel()

	now := s.now()
	if network.CookieExpired(c, now) {
		_, err := s.db.ExecContext(ctx, `DELETE FROM cookies WHERE domain = ? AND name = ? AND path = ?`,
			normalizeDomain(c.Domain), c.Name, c.Path)
		if err != nil {
			return fmt.Errorf("delete cookie %s: %w", c.Name, err)
		}
		return nil
	}

	var expires int64
	switch {
	case c.MaxAge > 0:
		expires = now.Add(time.Duration(c.MaxAge) * time.Second).Unix()
	case !c.Expires.IsZero():
		expires = c.Expires.Unix()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO cookies (domain, name, value, path, secure, http_only, expires, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		normalizeDomain(c.Domain), c.Name, c.Value, c.Path,
		boolInt(c.Secure), boolInt(c.HttpOnly), expires, now.UnixNano())
	if err != nil {
		return fmt.Errorf("store cookie %s: %w", c.Name, err)
	}
	return nil
}

// PurgeDomain deletes every cookie stored for domain.
func (s *CookieStore) PurgeDomain(domain string) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.queryTimeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM cookies WHERE domain = ?`, normalizeDomain(domain)); err != nil {
		return fmt.Errorf("purge domain %s: %w", domain, err)
	}
	return nil
}

// PurgeSince deletes every cookie stored at or after t.
func (s *CookieStore) PurgeSince(t time.Time) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.queryTimeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM cookies WHERE created_at >= ?`, t.UnixNano()); err != nil {
		return fmt.Errorf("purge cookies since %s: %w", t.Format(time.RFC3339), err)
	}
	return nil
}

// Load returns the cookies stored for domain, ordered by name.
func (s *CookieStore) Load(domain string) ([]StoredCookie, error) {
	return s.query(`SELECT domain, name, value, path, secure, http_only, expires, created_at
		FROM cookies WHERE domain = ? ORDER BY name, path`, normalizeDomain(domain))
}

// List returns every stored cookie ordered by domain and name.
func (s *CookieStore) List() ([]StoredCookie, error) {
	return s.query(`SELECT domain, name, value, path, secure, http_only, expires, created_at
		FROM cookies ORDER BY domain, name, path`)
}

// Clear deletes all cookies.
func (s *CookieStore) Clear() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.queryTimeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM cookies`); err != nil {
		return fmt.Errorf("clear cookies: %w", err)
	}
	return nil
}

func (s *CookieStore) query(query string, args ...any) ([]StoredCookie, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	result := make([]StoredCookie, 0)
	for rows.Next() {
		var (
			c                http.Cookie
			secure, httpOnly int
			expires, created int64
		)
		if err := rows.Scan(&c.Domain, &c.Name, &c.Value, &c.Path, &secure, &httpOnly, &expires, &created); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		c.Secure = secure != 0
		c.HttpOnly = httpOnly != 0
		if expires != 0 {
			c.Expires = time.Unix(expires, 0)
		}
		result = append(result, StoredCookie{Cookie: &c, Created: time.Unix(0, created)})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return result, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func normalizeDomain(domain string) string {
	return strings.ToLower(strings.TrimPrefix(domain, "."))
}

// parseConnectionString parses a connection string into driver and DSN
// Supported formats:
// - sqlite://path/to/cookies.db
// - sqlite:./cookies.db
func parseConnectionString(connStr string) (driver string, dsn string, err error) {
	connStr = strings.TrimSpace(connStr)

	// Handle sqlite:// and sqlite: prefixes
	if strings.HasPrefix(connStr, "sqlite://") {
		return "sqlite3", strings.TrimPrefix(connStr, "sqlite://"), nil
	}
	if strings.HasPrefix(connStr, "sqlite:") {
		return "sqlite3", strings.TrimPrefix(connStr, "sqlite:"), nil
	}

	return "", "", fmt.Errorf("unsupported cookie store: %q (expected sqlite://path)", connStr)
}
