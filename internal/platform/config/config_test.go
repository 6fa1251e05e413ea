package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{"GRADVERIFY_ADDR", "ENVIRONMENT", "STORAGE_BACKEND", "MOE_SIGNING_KEY", "RSA_KEY_BITS", "SIGNING_WORKERS", "CORS_ALLOWED_ORIGINS", "KAFKA_BROKERS"} {
		t.Setenv(key, "")
	}

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, BackendMemory, cfg.StorageBackend)
	assert.Equal(t, 2048, cfg.Credential.RSAKeyBits)
	assert.Equal(t, devMoESigningKey, cfg.Credential.MoESigningKey)
	assert.Equal(t, int64(10<<20), cfg.Certificates.MaxBytes)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "gradverify.audit", cfg.Kafka.AuditTopic)
	assert.Positive(t, cfg.Credential.SigningWorkers)
	assert.Empty(t, cfg.CORSOrigins)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/gradverify")
	t.Setenv("SIGNING_WORKERS", "3")
	t.Setenv("REQUEST_TIMEOUT", "5s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,https://a.example")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, BackendPostgres, cfg.StorageBackend)
	assert.Equal(t, 3, cfg.Credential.SigningWorkers)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

func TestFromEnvRejects(t *testing.T) {
	tests := map[string]map[string]string{
		"unknown backend":            {"STORAGE_BACKEND": "mongo"},
		"postgres without url":       {"STORAGE_BACKEND": "postgres", "DATABASE_URL": ""},
		"redis without url":          {"STORAGE_BACKEND": "redis", "REDIS_URL": ""},
		"weak rsa":                   {"RSA_KEY_BITS": "1024"},
		"production without moe key": {"ENVIRONMENT": "production", "MOE_SIGNING_KEY": ""},
		"zero workers":               {"SIGNING_WORKERS": "0"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv("STORAGE_BACKEND", "memory")
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}
