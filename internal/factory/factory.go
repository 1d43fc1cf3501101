package factory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"telecom-relay/internal/audit"
	"telecom-relay/internal/bucketing"
	"telecom-relay/internal/carrier"
	"telecom-relay/internal/client"
	"telecom-relay/internal/config"
	"telecom-relay/internal/encryption"
	"telecom-relay/internal/metrics"
	"telecom-relay/internal/notify"
	"telecom-relay/internal/repository/redis"
	"telecom-relay/internal/service"
	"telecom-relay/internal/tls"
	"telecom-relay/internal/util"
)

// Factory manages the lifecycle of all application dependencies
type Factory struct {
	config     *config.Config
	tlsManager *tls.Manager

	// Clients
	redisClient      *client.RedisClient
	kafkaProducer    *client.KafkaProducer
	clickhouseClient *client.ClickHouseClient

	// Domain pieces
	encryptor     *encryption.CredentialEncryptor
	bucketer      *bucketing.Bucketer
	carrierClient *carrier.Client
	metrics       *metrics.Metrics
	notifier      *notify.Manager
	recorder      *audit.Recorder

	// Repositories
	queryCache      *redis.QueryCache
	sessionStore    *redis.SessionStore
	webSessionStore *redis.WebSessionStore
	loginLimiter    *redis.LoginRateLimiter

	serviceFactory *service.ServiceFactory

	closeOnce sync.Once
	closed    chan struct{}
}

// NewFactory creates and initializes all application dependencies
func NewFactory() (*Factory, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	util.Init(cfg.Environment, cfg.Logging.Level, cfg.Logging.Format)

	factory := &Factory{
		config: cfg,
		closed: make(chan struct{}),
	}

	if cfg.TLS.Enabled {
		factory.tlsManager = tls.NewManager(cfg.TLS)
	}

	if err := factory.initializeClients(); err != nil {
		return nil, fmt.Errorf("failed to initialize clients: %w", err)
	}

	if err := factory.initializeDomain(); err != nil {
		return nil, fmt.Errorf("failed to initialize domain: %w", err)
	}

	util.Info("Factory initialized successfully",
		util.String("environment", cfg.Environment),
		util.Bool("tls_enabled", cfg.TLS.Enabled),
		util.Bool("kafka_enabled", factory.kafkaProducer != nil),
		util.Bool("clickhouse_enabled", factory.clickhouseClient != nil),
	)

	return factory, nil
}

// initializeClients initializes all external service clients with
// health checks. Redis is required; Kafka and ClickHouse are
// best-effort audit sinks.
func (f *Factory) initializeClients() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Redis
	redisClient, err := client.NewRedisClient(f.config, util.Get())
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	f.redisClient = redisClient
	if err := f.redisClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("redis health check: %w", err)
	}
	util.Info("Redis client initialized and healthy")

	// Kafka
	if f.config.Kafka.Enabled {
		if producer, err := client.NewKafkaProducer(f.config, util.Get()); err != nil {
			util.Warn("Kafka producer initialization failed - proceeding without Kafka", util.ErrorField(err))
		} else {
			f.kafkaProducer = producer
			util.Info("Kafka producer initialized")
		}
	}

	// ClickHouse
	if f.config.ClickHouse.Enabled {
		if chClient, err := client.NewClickHouseClient(f.config, util.Get()); err != nil {
			util.Warn("ClickHouse initialization failed - proceeding without ClickHouse", util.ErrorField(err))
		} else if err := chClient.HealthCheck(ctx); err != nil {
			util.Warn("ClickHouse health check failed - proceeding without ClickHouse", util.ErrorField(err))
			chClient.Close()
		} else if err := audit.EnsureSchema(ctx, chClient); err != nil {
			util.Warn("ClickHouse schema setup failed - proceeding without ClickHouse", util.ErrorField(err))
			chClient.Close()
		} else {
			f.clickhouseClient = chClient
			util.Info("ClickHouse client initialized and healthy")
		}
	}

	return nil
}

// initializeDomain wires the carrier client, repositories and the
// cross-cutting concerns the services share.
func (f *Factory) initializeDomain() error {
	encryptor, err := encryption.NewCredentialEncryptor(f.config.Telecom.PublicKeyPEM)
	if err != nil {
		return fmt.Errorf("credential encryptor: %w", err)
	}
	f.encryptor = encryptor
	f.bucketer = bucketing.NewBucketer(0)
	f.carrierClient = carrier.NewClient(f.config.Telecom.APIBase, encryptor, util.Get())
	f.metrics = metrics.New()
	f.notifier = notify.NewManager(&f.config.Notify)
	f.recorder = f.buildRecorder()

	f.queryCache = redis.NewQueryCache(f.redisClient, f.config.Telecom.CacheMaxAge)
	f.sessionStore = redis.NewSessionStore(f.redisClient)
	f.webSessionStore = redis.NewWebSessionStore(f.redisClient, f.config.Web.SessionTTL)
	f.loginLimiter = redis.NewLoginRateLimiter(
		f.redisClient,
		f.bucketer,
		f.config.RateLimit.LoginMaxAttempts,
		f.config.RateLimit.LoginWindow,
	)

	return nil
}

// buildRecorder picks the available audit sinks. The nil cases matter:
// a typed nil inside the interface would defeat the recorder's own
// nil checks.
func (f *Factory) buildRecorder() *audit.Recorder {
	switch {
	case f.kafkaProducer != nil && f.clickhouseClient != nil:
		return audit.NewRecorder(f.kafkaProducer, f.clickhouseClient)
	case f.kafkaProducer != nil:
		return audit.NewRecorder(f.kafkaProducer, nil)
	case f.clickhouseClient != nil:
		return audit.NewRecorder(nil, f.clickhouseClient)
	default:
		return nil
	}
}

// ==============================
// Service Factory
// ==============================
func (f *Factory) ServiceFactory() *service.ServiceFactory {
	if f.serviceFactory == nil {
		f.serviceFactory = service.NewServiceFactory(
			f.config,
			f.carrierClient,
			f.sessionStore,
			f.webSessionStore,
			f.queryCache,
			f.loginLimiter,
			f.notifier,
			f.recorder,
			f.metrics,
			util.Get(),
		)
	}
	return f.serviceFactory
}

// ==============================
// Health Checks
// ==============================

func (f *Factory) HealthCheck(ctx context.Context) map[string]error {
	healthErrors := make(map[string]error)

	if f.redisClient != nil {
		if err := f.redisClient.HealthCheck(ctx); err != nil {
			healthErrors["redis"] = err
		}
	} else {
		healthErrors["redis"] = fmt.Errorf("redis client not initialized")
	}

	if f.clickhouseClient != nil {
		if err := f.clickhouseClient.HealthCheck(ctx); err != nil {
			healthErrors["clickhouse"] = err
		}
	}

	if f.kafkaProducer != nil {
		if err := f.kafkaProducer.HealthCheck(ctx); err != nil {
			healthErrors["kafka"] = err
		}
	}

	if f.carrierClient != nil {
		if err := f.carrierClient.Ping(ctx); err != nil {
			healthErrors["carrier"] = err
		}
	} else {
		healthErrors["carrier"] = fmt.Errorf("carrier client not initialized")
	}

	return healthErrors
}

func (f *Factory) IsHealthy(ctx context.Context) bool {
	healthErrors := f.HealthCheck(ctx)
	// Audit sinks and the carrier itself are not fatal to the relay
	delete(healthErrors, "kafka")
	delete(healthErrors, "clickhouse")
	delete(healthErrors, "carrier")
	return len(healthErrors) == 0
}

// ==============================
// Lifecycle
// ==============================

func (f *Factory) Close() error {
	f.closeOnce.Do(func() {
		close(f.closed)
		util.Info("Shutting down factory...")

		if f.serviceFactory != nil {
			f.serviceFactory.Cleanup()
			util.Info("Service factory cleaned up")
		}

		if f.kafkaProducer != nil {
			if err := f.kafkaProducer.Close(); err != nil {
				util.Error("Failed to close Kafka producer", util.ErrorField(err))
			} else {
				util.Info("Kafka producer closed")
			}
		}

		if f.clickhouseClient != nil {
			if err := f.clickhouseClient.Close(); err != nil {
				util.Error("Failed to close ClickHouse client", util.ErrorField(err))
			} else {
				util.Info("ClickHouse client closed")
			}
		}

		if f.redisClient != nil {
			if err := f.redisClient.Close(); err != nil {
				util.Error("Failed to close Redis client", util.ErrorField(err))
			} else {
				util.Info("Redis client closed")
			}
		}

		util.Sync()
		util.Info("Factory shutdown completed")
	})

	return nil
}

func (f *Factory) WaitForClose() {
	<-f.closed
}

// ==============================
// Getters
// ==============================

func (f *Factory) Config() *config.Config {
	return f.config
}

func (f *Factory) TLSManager() *tls.Manager {
	return f.tlsManager
}

func (f *Factory) Metrics() *metrics.Metrics {
	return f.metrics
}
