package database

import (
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

func ParseDialect(s string) (Dialect, error) {
	switch d := Dialect(strings.ToLower(strings.TrimSpace(s))); d {
	case Postgres, SQLite:
		return d, nil
	default:
		return "", fmt.Errorf("unsupported store driver %q (expected %q or %q)", s, Postgres, SQLite)
	}
}

// DB wraps a connection pool together with its SQL dialect.
// Queries are written with ? placeholders and rebound per dialect.
type DB struct {
	*sql.DB
	dialect Dialect
}

// NewConnection opens a pool without dialing; call Ping to validate connectivity and credentials.
// For postgres the credential is injected as the connection password. SQLite ignores it.
func NewConnection(dialect Dialect, endpoint, credential string) (*DB, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("store endpoint is empty")
	}

	var (
		dsn string
		err error
	)
	switch dialect {
	case Postgres:
		dsn, err = postgresDSN(endpoint, credential)
		if err != nil {
			return nil, err
		}
	case SQLite:
		dsn = sqliteDSN(endpoint)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", dialect)
	}

	sqlDB, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", dialect, err)
	}

	if dialect == SQLite {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	return &DB{DB: sqlDB, dialect: dialect}, nil
}

func (db *DB) Dialect() Dialect {
	return db.dialect
}

// Rebind rewrites ? placeholders into the dialect's positional form.
func (db *DB) Rebind(query string) string {
	if db.dialect != Postgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func postgresDSN(endpoint, credential string) (string, error) {
	if strings.HasPrefix(endpoint, "postgres://") || strings.HasPrefix(endpoint, "postgresql://") {
		u, err := url.Parse(endpoint)
		if err != nil {
			return "", fmt.Errorf("invalid store URL: %w", err)
		}
		user := "postgres"
		if u.User != nil && u.User.Username() != "" {
			user = u.User.Username()
		}
		u.User = url.UserPassword(user, credential)
		return u.String(), nil
	}

	// key=value connection string
	escaped := strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(credential)
	return fmt.Sprintf("%s password='%s'", endpoint, escaped), nil
}

func sqliteDSN(endpoint string) string {
	sep := "?"
	if strings.Contains(endpoint, "?") {
		sep = "&"
	}
	return endpoint + sep + "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_time_format=sqlite"
}
