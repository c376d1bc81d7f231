package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"rentscore/internal/config"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registryConfig() config.DatabaseConfig {
	return config.DatabaseConfig{Host: "db", Port: "5432", User: "rentscore", Name: "registry"}
}

func TestBuildPostgresDSN(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.DatabaseConfig)
		want   string
	}{
		{
			name:   "minimal",
			mutate: func(*config.DatabaseConfig) {},
			want:   "postgres://rentscore@db:5432/registry?application_name=rentscore-registry",
		},
		{
			name: "sslmode and connect timeout",
			mutate: func(c *config.DatabaseConfig) {
				c.SSLMode = "disable"
				c.ConnectTimeoutSec = 3
			},
			want: "postgres://rentscore@db:5432/registry?application_name=rentscore-registry&connect_timeout=3&sslmode=disable",
		},
		{
			name:   "escaped password",
			mutate: func(c *config.DatabaseConfig) { c.Password = "p@ss/word" },
			want:   "postgres://rentscore:p%40ss%2Fword@db:5432/registry?application_name=rentscore-registry",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := registryConfig()
			tt.mutate(&c)
			got, err := BuildPostgresDSN(c)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("names every missing field", func(t *testing.T) {
		_, err := BuildPostgresDSN(config.DatabaseConfig{Host: "db", Name: "registry"})
		assert.EqualError(t, err, "invalid database config: missing [port user]")
	})
}

func stubOpen(t *testing.T, db *sql.DB, err error) *string {
	t.Helper()
	var gotDSN string
	orig := sqlOpen
	sqlOpen = func(dsn string) (*sql.DB, error) {
		gotDSN = dsn
		return db, err
	}
	t.Cleanup(func() { sqlOpen = orig })
	return &gotDSN
}

func TestNewPostgres(t *testing.T) {
	conf := registryConfig()
	conf.MaxOpenConns, conf.MaxIdleConns, conf.ConnMaxLifetimeSec = 4, 10, 60

	t.Run("pings before returning", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()
		dsn := stubOpen(t, db, nil)
		mock.ExpectPing()

		got, err := NewPostgres(context.Background(), conf)
		require.NoError(t, err)
		assert.Equal(t, 4, got.Stats().MaxOpenConnections)
		assert.Contains(t, *dsn, "application_name="+ApplicationName)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("registry not configured", func(t *testing.T) {
		stubOpen(t, nil, errors.New("must not be called"))

		got, err := NewPostgres(context.Background(), config.DatabaseConfig{})
		assert.ErrorIs(t, err, ErrRegistryDisabled)
		assert.Nil(t, got)
	})

	t.Run("open fails", func(t *testing.T) {
		stubOpen(t, nil, errors.New("open error"))

		got, err := NewPostgres(context.Background(), conf)
		assert.ErrorContains(t, err, "sql open: open error")
		assert.Nil(t, got)
	})

	t.Run("ping fails and the pool is closed", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		stubOpen(t, db, nil)
		mock.ExpectPing().WillReturnError(errors.New("ping failed"))
		mock.ExpectClose()

		got, err := NewPostgres(context.Background(), conf)
		assert.ErrorContains(t, err, "db ping db:5432: ping failed")
		assert.Nil(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestConfigurePool(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	configurePool(db, config.DatabaseConfig{MaxOpenConns: 2, MaxIdleConns: 8, ConnMaxLifetimeSec: 30})
	assert.Equal(t, 2, db.Stats().MaxOpenConnections)
}
