package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	platformstrings "gradverify/pkg/platform/strings"
)

// StorageBackend selects where registry and record data live.
type StorageBackend string

const (
	BackendMemory   StorageBackend = "memory"
	BackendPostgres StorageBackend = "postgres"
	BackendRedis    StorageBackend = "redis"
)

const (
	devMoESigningKey          = "dev-moe-signing-key-change-in-production"
	defaultMaxCertificateSize = 10 << 20
)

// Server captures process level configuration.
type Server struct {
	Addr           string
	Environment    string
	LogLevel       string
	StorageBackend StorageBackend
	RequestTimeout time.Duration
	CORSOrigins    []string

	Database     DatabaseConfig
	Redis        RedisConfig
	Kafka        KafkaConfig
	Credential   CredentialConfig
	Certificates CertificateConfig
}

// DatabaseConfig configures the PostgreSQL pool.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig configures the Redis client.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the audit event sink. Empty Brokers disables it.
type KafkaConfig struct {
	Brokers    string
	AuditTopic string
	Acks       string
}

// CredentialConfig configures issuance.
type CredentialConfig struct {
	MoESigningKey  string
	RSAKeyBits     int
	SigningWorkers int
	AuditBuffer    int
}

// CertificateConfig configures certificate uploads.
type CertificateConfig struct {
	MaxBytes int64
}

// IsProduction reports whether the process runs with production settings.
func (s Server) IsProduction() bool {
	return s.Environment == "production"
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	cfg := Server{
		Addr:           envString("GRADVERIFY_ADDR", ":8080"),
		Environment:    envString("ENVIRONMENT", "development"),
		LogLevel:       envString("LOG_LEVEL", "info"),
		StorageBackend: StorageBackend(envString("STORAGE_BACKEND", string(BackendMemory))),
		RequestTimeout: envDuration("REQUEST_TIMEOUT", 30*time.Second),
		CORSOrigins:    platformstrings.SplitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:    os.Getenv("KAFKA_BROKERS"),
			AuditTopic: envString("AUDIT_TOPIC", "gradverify.audit"),
			Acks:       envString("KAFKA_ACKS", "all"),
		},
		Credential: CredentialConfig{
			MoESigningKey:  os.Getenv("MOE_SIGNING_KEY"),
			RSAKeyBits:     envInt("RSA_KEY_BITS", 2048),
			SigningWorkers: envInt("SIGNING_WORKERS", runtime.NumCPU()),
			AuditBuffer:    envInt("AUDIT_BUFFER_SIZE", 1024),
		},
		Certificates: CertificateConfig{
			MaxBytes: int64(envInt("MAX_CERTIFICATE_BYTES", defaultMaxCertificateSize)),
		},
	}

	if cfg.Credential.MoESigningKey == "" {
		if cfg.IsProduction() {
			return Server{}, fmt.Errorf("MOE_SIGNING_KEY is required in production")
		}
		cfg.Credential.MoESigningKey = devMoESigningKey
	}
	if err := cfg.validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

func (s Server) validate() error {
	switch s.StorageBackend {
	case BackendMemory:
	case BackendPostgres:
		if s.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
	case BackendRedis:
		if s.Redis.URL == "" {
			return fmt.Errorf("REDIS_URL is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", s.StorageBackend)
	}
	if s.Credential.RSAKeyBits < 2048 {
		return fmt.Errorf("RSA_KEY_BITS must be at least 2048")
	}
	if s.Credential.SigningWorkers < 1 {
		return fmt.Errorf("SIGNING_WORKERS must be positive")
	}
	if s.Certificates.MaxBytes < 1 {
		return fmt.Errorf("MAX_CERTIFICATE_BYTES must be positive")
	}
	return nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
