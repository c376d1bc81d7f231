// Package database opens the Postgres certificate registry.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/XSAM/otelsql"
	_ "github.com/jackc/pgx/v5/stdlib"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"rentscore/internal/config"
)

// ApplicationName identifies registry connections in pg_stat_activity.
const ApplicationName = "rentscore-registry"

// ErrRegistryDisabled is returned when no registry host is configured.
var ErrRegistryDisabled = errors.New("certificate registry is not configured")

// sqlOpen opens the pgx driver with otelsql spans and SQL comments.
var sqlOpen = func(dsn string) (*sql.DB, error) {
	return otelsql.Open("pgx", dsn,
		otelsql.WithAttributes(semconv.DBSystemPostgreSQL),
		otelsql.WithSQLCommenter(true),
	)
}

// BuildPostgresDSN renders the registry settings as a postgres:// URL. The
// connect_timeout bounds dialing; application_name tags the sessions.
func BuildPostgresDSN(c config.DatabaseConfig) (string, error) {
	var missing []string
	for _, f := range [...]struct{ name, value string }{
		{"host", c.Host}, {"port", c.Port}, {"user", c.User}, {"name", c.Name},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("invalid database config: missing %v", missing)
	}

	u := &url.URL{Scheme: "postgres", Host: c.Host + ":" + c.Port, Path: c.Name, User: url.User(c.User)}
	if c.Password != "" {
		u.User = url.UserPassword(c.User, c.Password)
	}

	q := url.Values{}
	q.Set("application_name", ApplicationName)
	if c.SSLMode != "" {
		q.Set("sslmode", c.SSLMode)
	}
	if c.ConnectTimeoutSec > 0 {
		q.Set("connect_timeout", strconv.Itoa(c.ConnectTimeoutSec))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// NewPostgres opens the registry, sizes its pool and pings it within the
// configured connect timeout. The pool is closed again when the ping fails.
func NewPostgres(ctx context.Context, c config.DatabaseConfig) (*sql.DB, error) {
	if !c.Enabled() {
		return nil, ErrRegistryDisabled
	}
	dsn, err := BuildPostgresDSN(c)
	if err != nil {
		return nil, err
	}

	db, err := sqlOpen(dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	configurePool(db, c)

	ctx, cancel := context.WithTimeout(ctx, c.ConnectTimeout())
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping %s:%s: %w", c.Host, c.Port, err)
	}
	return db, nil
}

// configurePool applies the pool limits. The registry sees one insert per
// exported certificate and one lookup per verification, so idle connections are
// never kept above the open limit.
func configurePool(db *sql.DB, c config.DatabaseConfig) {
	if c.MaxOpenConns > 0 {
		db.SetMaxOpenConns(c.MaxOpenConns)
	}
	idle := c.MaxIdleConns
	if c.MaxOpenConns > 0 && idle > c.MaxOpenConns {
		idle = c.MaxOpenConns
	}
	if idle > 0 {
		db.SetMaxIdleConns(idle)
	}
	if c.ConnMaxLifetimeSec > 0 {
		db.SetConnMaxLifetime(time.Duration(c.ConnMaxLifetimeSec) * time.Second)
	}
}
