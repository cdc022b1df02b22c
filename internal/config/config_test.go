package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
http:
  port: 8080
database:
  host: db
  port: 5433
  user: app
  password: secret
  database: caronas
rabbitmq:
  user: guest
  password: guest
jwt:
  secret_key: s3cret
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, "db", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	// defaults fill the omitted fields
	assert.Equal(t, "localhost", cfg.RabbitMQ.Host)
	assert.Equal(t, 5672, cfg.RabbitMQ.Port)
	assert.Equal(t, "caronas.events", cfg.RabbitMQ.Exchange)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestLoadFromFile_MissingRequired(t *testing.T) {
	path := writeConfig(t, `
database:
  user: app
`)

	_, err := LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt.secret_key")
	assert.Contains(t, err.Error(), "database.password")
}

func TestLoadFromFile_NotFound(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
