package database

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-homework-api/pkg/config"
)

func TestDSNAndURL(t *testing.T) {
	cfg := config.DatabaseConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss word", Name: "homework_app", SSLMode: "disable"}

	assert.Equal(t, "host=db port=5432 user=app password=p@ss word dbname=homework_app sslmode=disable", DSN(cfg))

	parsed, err := url.Parse(URL(cfg))
	require.NoError(t, err)
	assert.Equal(t, "postgres", parsed.Scheme)
	assert.Equal(t, "db:5432", parsed.Host)
	assert.Equal(t, "/homework_app", parsed.Path)
	pw, _ := parsed.User.Password()
	assert.Equal(t, "p@ss word", pw)
	assert.Equal(t, "disable", parsed.Query().Get("sslmode"))
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
