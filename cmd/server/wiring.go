package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gradverify/internal/audit"
	certificatehandler "gradverify/internal/certificate/handler"
	certificateservice "gradverify/internal/certificate/service"
	certificatestore "gradverify/internal/certificate/store"
	"gradverify/internal/credential/authority"
	credentialhandler "gradverify/internal/credential/handler"
	credentialmetrics "gradverify/internal/credential/metrics"
	"gradverify/internal/credential/registry"
	credentialservice "gradverify/internal/credential/service"
	"gradverify/internal/credential/signature"
	"gradverify/internal/credential/store/records"
	registrystore "gradverify/internal/credential/store/registry"
	"gradverify/internal/credential/tracer"
	"gradverify/internal/platform/config"
	"gradverify/internal/platform/database"
	"gradverify/internal/platform/health"
	"gradverify/internal/platform/kafka/producer"
	httpmetrics "gradverify/internal/platform/metrics"
	"gradverify/internal/platform/middleware"
	platformredis "gradverify/internal/platform/redis"
	"gradverify/pkg/platform/circuit"
)

const (
	jsonBodyLimit     = 8 << 20
	poolStatsInterval = 15 * time.Second
)

// infrastructure holds the optional external connections.
type infrastructure struct {
	db       *database.Pool
	redis    *platformredis.Client
	producer *producer.Producer
}

func openInfra(ctx context.Context, cfg config.Server, log *slog.Logger) (*infrastructure, error) {
	infra := &infrastructure{}

	db, err := database.New(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if db != nil {
		infra.db = db
		if err := db.Migrate(ctx); err != nil {
			infra.Close(log)
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		log.Info("postgres connected")
	}

	rc, err := platformredis.New(cfg.Redis)
	if err != nil {
		infra.Close(log)
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	if rc != nil {
		infra.redis = rc
		go rc.RunPoolStats(ctx, poolStatsInterval)
		log.Info("redis connected")
	}

	if cfg.Kafka.Brokers != "" {
		pcfg := producer.DefaultConfig(cfg.Kafka.Brokers)
		pcfg.Acks = cfg.Kafka.Acks
		p, err := producer.New(pcfg, log)
		if err != nil {
			infra.Close(log)
			return nil, fmt.Errorf("connect kafka: %w", err)
		}
		infra.producer = p
		log.Info("kafka audit producer ready", "topic", cfg.Kafka.AuditTopic)
	}
	return infra, nil
}

// Close releases connections in reverse order of opening.
func (i *infrastructure) Close(log *slog.Logger) {
	if i.producer != nil {
		if err := i.producer.Close(); err != nil {
			log.Error("failed to close kafka producer", "error", err)
		}
	}
	if i.redis != nil {
		if err := i.redis.Close(); err != nil {
			log.Error("failed to close redis", "error", err)
		}
	}
	if i.db != nil {
		if err := i.db.Close(); err != nil {
			log.Error("failed to close postgres", "error", err)
		}
	}
}

// application holds the wired services.
type application struct {
	credentials  *credentialservice.Service
	certificates *certificateservice.Service
	auditor      *audit.Publisher
}

type storeSet struct {
	registry     registry.Store
	records      credentialservice.RecordStore
	certificates certificatestore.Store
	audit        audit.Store
}

// selectStores picks the backends for cfg.StorageBackend. Certificates and
// audit events need a relational store, so under the redis backend they use
// Postgres when it is configured and memory otherwise.
func selectStores(cfg config.Server, infra *infrastructure, log *slog.Logger) (storeSet, error) {
	set := storeSet{
		registry:     registrystore.NewInMemoryStore(),
		records:      records.NewInMemoryStore(),
		certificates: certificatestore.NewInMemoryStore(),
		audit:        audit.NewInMemoryStore(),
	}
	if infra.db != nil {
		set.certificates = certificatestore.NewPostgres(infra.db.DB())
		set.audit = audit.NewPostgresStore(infra.db.DB())
	}

	switch cfg.StorageBackend {
	case config.BackendMemory:
	case config.BackendPostgres:
		if infra.db == nil {
			return storeSet{}, fmt.Errorf("postgres backend selected without a database")
		}
		set.registry = registrystore.NewPostgres(infra.db.DB())
		set.records = records.NewPostgres(infra.db.DB())
	case config.BackendRedis:
		if infra.redis == nil {
			return storeSet{}, fmt.Errorf("redis backend selected without a redis client")
		}
		set.registry = registrystore.NewRedis(infra.redis.Client)
		set.records = records.NewRedis(infra.redis.Client)
	default:
		return storeSet{}, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}

	if infra.producer != nil {
		sink := audit.NewKafkaStore(infra.producer, cfg.Kafka.AuditTopic,
			audit.WithBreaker(circuit.New("kafka-audit"), log))
		set.audit = audit.NewFanoutStore(set.audit, sink)
	}
	return set, nil
}

func buildApp(cfg config.Server, infra *infrastructure, log *slog.Logger) (*application, error) {
	stores, err := selectStores(cfg, infra, log)
	if err != nil {
		return nil, err
	}

	auditor := audit.NewPublisher(stores.audit,
		audit.WithAsyncBuffer(cfg.Credential.AuditBuffer),
		audit.WithPublisherLogger(log),
	)

	issuer, err := authority.NewIssuer(cfg.Credential.MoESigningKey)
	if err != nil {
		return nil, fmt.Errorf("moe issuer: %w", err)
	}
	m := credentialmetrics.New()
	reg, err := registry.New(stores.registry, issuer, registry.WithMetrics(m))
	if err != nil {
		return nil, err
	}

	credentials, err := credentialservice.New(reg, stores.records,
		signature.New(signature.WithKeyBits(cfg.Credential.RSAKeyBits)),
		credentialservice.WithLogger(log),
		credentialservice.WithAuditor(auditor),
		credentialservice.WithTracer(tracer.NewOTel()),
		credentialservice.WithMetrics(m),
		credentialservice.WithWorkers(cfg.Credential.SigningWorkers),
	)
	if err != nil {
		return nil, err
	}

	certificates, err := certificateservice.New(stores.certificates,
		certificateservice.WithLogger(log),
		certificateservice.WithAuditor(auditor),
		certificateservice.WithMaxBytes(cfg.Certificates.MaxBytes),
	)
	if err != nil {
		return nil, err
	}

	return &application{credentials: credentials, certificates: certificates, auditor: auditor}, nil
}

func newRouter(cfg config.Server, app *application, infra *infrastructure, log *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(log))
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.Latency(httpmetrics.New()))
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	healthHandler := health.New(cfg.Environment)
	if infra.db != nil {
		healthHandler.RegisterCheck("postgres", infra.db.Health)
	}
	if infra.redis != nil {
		healthHandler.RegisterCheck("redis", infra.redis.Health)
	}
	if infra.producer != nil {
		healthHandler.RegisterCheck("kafka", infra.producer.Ping)
	}
	healthHandler.Register(r)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.BodyLimit(jsonBodyLimit))
		credentialhandler.New(app.credentials, log).Register(r)
	})
	certificatehandler.New(app.certificates, log).Register(r)

	return r
}
