// notifyd is the notification delivery service. It exposes an HTTP API for
// submitting notifications and reading delivery state, optionally consumes
// notification events from Kafka, and fans every accepted notification out to
// the push, email, and SMS channels through the delivery orchestrator.
//
// All configuration comes from the environment (a local .env file is honored).
// The default setup runs entirely in memory with dev channel providers, which
// is enough to exercise the full pipeline locally; Postgres, MongoDB, Redis,
// Postmark, SMTP, and the SMS gateway are switched on per deployment.
package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/notifykit/internal/api"
	"github.com/dmitrymomot/notifykit/internal/ingest"
	"github.com/dmitrymomot/notifykit/internal/metrics"
	"github.com/dmitrymomot/notifykit/pkg/channel"
	"github.com/dmitrymomot/notifykit/pkg/config"
	"github.com/dmitrymomot/notifykit/pkg/delivery"
	"github.com/dmitrymomot/notifykit/pkg/device"
	"github.com/dmitrymomot/notifykit/pkg/email"
	"github.com/dmitrymomot/notifykit/pkg/httpserver"
	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/mongo"
	"github.com/dmitrymomot/notifykit/pkg/notification"
	"github.com/dmitrymomot/notifykit/pkg/pg"
	"github.com/dmitrymomot/notifykit/pkg/push"
	"github.com/dmitrymomot/notifykit/pkg/ratelimit"
	"github.com/dmitrymomot/notifykit/pkg/redis"
	"github.com/dmitrymomot/notifykit/pkg/sms"
	"github.com/dmitrymomot/notifykit/pkg/template"
)

type appConfig struct {
	Environment string `env:"APP_ENV" envDefault:"development"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"notifyd"`

	// StorageBackend selects the notification store: memory, postgres, or mongo.
	StorageBackend string `env:"STORAGE_BACKEND" envDefault:"memory"`
	MongoDatabase  string `env:"MONGODB_DATABASE" envDefault:"notifykit"`

	// RedisEnabled moves the device registry and rate limit counters to Redis
	// so multiple notifyd instances share them.
	RedisEnabled bool `env:"REDIS_ENABLED" envDefault:"false"`

	TemplatesDir  string `env:"TEMPLATES_DIR" envDefault:"templates"`
	DefaultLocale string `env:"DEFAULT_LOCALE" envDefault:"en"`

	// EmailProvider selects the primary email provider: dev, postmark, or
	// smtp. With postmark, an SMTP fallback is added when SMTP_HOST is set.
	EmailProvider string `env:"EMAIL_PROVIDER" envDefault:"dev"`
	EmailDevDir   string `env:"EMAIL_DEV_DIR" envDefault:"tmp/outbox"`

	// SMSProvider selects the SMS provider: dev or http.
	SMSProvider string `env:"SMS_PROVIDER" envDefault:"dev"`
	// SMSEncryptionKey is the base64-encoded 32-byte service key used to seal
	// confidential SMS bodies. Without it, confidential sends fail permanently.
	SMSEncryptionKey string `env:"SMS_ENCRYPTION_KEY"`

	ChannelTimeout time.Duration `env:"CHANNEL_TIMEOUT" envDefault:"30s"`

	IngestEnabled bool `env:"INGEST_ENABLED" envDefault:"false"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(
		logger.WithEnvironment(cfg.Environment, cfg.ServiceName),
		logger.WithContextExtractors(api.CorrelationIDExtractor()),
	)
	logger.SetAsDefault(log)

	// Readiness covers every backend this deployment actually connects to.
	var health []func(context.Context) error

	store, closeStore, check, err := newStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()
	if check != nil {
		health = append(health, check)
	}

	registry, limitStore, closeRedis, check, err := newSharedState(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRedis()
	if check != nil {
		health = append(health, check)
	}

	renderer, err := template.New(os.DirFS(cfg.TemplatesDir), template.WithDefaultLocale(cfg.DefaultLocale))
	if err != nil {
		return fmt.Errorf("templates: %w", err)
	}

	emailSender, err := newEmailSender(cfg, limitStore, log)
	if err != nil {
		return err
	}
	pushSender, err := newPushSender(registry, log)
	if err != nil {
		return err
	}
	smsSender, err := newSMSSender(cfg, limitStore, log)
	if err != nil {
		return err
	}

	promRegistry := prometheus.NewRegistry()
	recorder := metrics.NewRecorder(promRegistry)

	orchestrator, err := delivery.New(
		[]channel.Sender{pushSender, emailSender, smsSender},
		delivery.WithRenderer(renderer),
		delivery.WithStorage(store),
		delivery.WithHooks(recorder),
		delivery.WithChannelTimeout(cfg.ChannelTimeout),
		delivery.WithLogger(log),
	)
	if err != nil {
		return fmt.Errorf("delivery: %w", err)
	}

	prefs := notification.NewMemoryPreferenceStore()

	handler, err := api.NewHandler(orchestrator, store, prefs, api.WithLogger(log))
	if err != nil {
		return fmt.Errorf("api: %w", err)
	}
	router := api.NewRouter(handler,
		api.WithHealthChecks(health...),
		api.WithMetricsHandler(promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{})),
		api.WithRouterLogger(log),
	)

	var wg sync.WaitGroup
	if cfg.IngestEnabled {
		var icfg ingest.Config
		if err := config.Load(&icfg); err != nil {
			return fmt.Errorf("load ingest config: %w", err)
		}
		reader := ingest.NewReader(icfg)
		defer func() { _ = reader.Close() }()

		consumer, err := ingest.NewConsumer(reader, orchestrator,
			ingest.WithWorkers(icfg.Workers),
			ingest.WithStorage(store),
			ingest.WithPreferences(prefs),
			ingest.WithLogger(log),
		)
		if err != nil {
			return fmt.Errorf("ingest: %w", err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := consumer.Run(ctx); err != nil {
				log.ErrorContext(ctx, "ingest consumer stopped", logger.Error(err))
			}
		}()
		log.InfoContext(ctx, "ingest consumer started",
			slog.String("topic", icfg.Topic), slog.String("group", icfg.GroupID))
	}

	var srvCfg httpserver.Config
	if err := config.Load(&srvCfg); err != nil {
		return fmt.Errorf("load http config: %w", err)
	}
	srv := httpserver.NewFromConfig(srvCfg, httpserver.WithLogger(log))

	err = srv.Run(ctx, router)
	wg.Wait()
	return err
}

// newStorage builds the notification store selected by STORAGE_BACKEND and
// returns it with its cleanup and readiness check. The memory store has
// neither.
func newStorage(ctx context.Context, cfg appConfig, log *slog.Logger) (notification.Storage, func(), func(context.Context) error, error) {
	noop := func() {}

	switch cfg.StorageBackend {
	case "memory":
		return notification.NewMemoryStorage(), noop, nil, nil

	case "postgres":
		var pgCfg pg.Config
		if err := config.Load(&pgCfg); err != nil {
			return nil, noop, nil, fmt.Errorf("load postgres config: %w", err)
		}
		pool, err := pg.Connect(ctx, pgCfg)
		if err != nil {
			return nil, noop, nil, fmt.Errorf("postgres: %w", err)
		}
		if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
			pool.Close()
			return nil, noop, nil, fmt.Errorf("postgres migrations: %w", err)
		}
		store, err := notification.NewPostgresStorage(pool)
		if err != nil {
			pool.Close()
			return nil, noop, nil, fmt.Errorf("postgres storage: %w", err)
		}
		return store, pool.Close, pg.Healthcheck(pool), nil

	case "mongo":
		var mCfg mongo.Config
		if err := config.Load(&mCfg); err != nil {
			return nil, noop, nil, fmt.Errorf("load mongo config: %w", err)
		}
		db, err := mongo.NewWithDatabase(ctx, mCfg, cfg.MongoDatabase)
		if err != nil {
			return nil, noop, nil, fmt.Errorf("mongo: %w", err)
		}
		disconnect := func() {
			if err := db.Client().Disconnect(context.Background()); err != nil {
				log.Error("mongo disconnect failed", logger.Error(err))
			}
		}
		store, err := notification.NewMongoStorage(db)
		if err != nil {
			disconnect()
			return nil, noop, nil, fmt.Errorf("mongo storage: %w", err)
		}
		return store, disconnect, mongo.Healthcheck(db.Client()), nil

	default:
		return nil, noop, nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// newSharedState builds the device registry and rate limit counter store,
// backed by Redis when enabled so horizontally scaled instances see the same
// devices and the same send budgets.
func newSharedState(ctx context.Context, cfg appConfig) (device.Registry, ratelimit.Store, func(), func(context.Context) error, error) {
	noop := func() {}

	if !cfg.RedisEnabled {
		return device.NewMemoryRegistry(), ratelimit.NewMemoryStore(), noop, nil, nil
	}

	var rCfg redis.Config
	if err := config.Load(&rCfg); err != nil {
		return nil, nil, noop, nil, fmt.Errorf("load redis config: %w", err)
	}
	client, err := redis.Connect(ctx, rCfg)
	if err != nil {
		return nil, nil, noop, nil, fmt.Errorf("redis: %w", err)
	}
	closeClient := func() { _ = client.Close() }

	registry, err := device.NewRedisRegistry(client)
	if err != nil {
		closeClient()
		return nil, nil, noop, nil, fmt.Errorf("device registry: %w", err)
	}
	limitStore, err := ratelimit.NewRedisStore(client)
	if err != nil {
		closeClient()
		return nil, nil, noop, nil, fmt.Errorf("rate limit store: %w", err)
	}
	return registry, limitStore, closeClient, redis.Healthcheck(client), nil
}

func newEmailSender(cfg appConfig, limitStore ratelimit.Store, log *slog.Logger) (*email.Sender, error) {
	var eCfg email.Config
	if err := config.Load(&eCfg); err != nil {
		return nil, fmt.Errorf("load email config: %w", err)
	}

	var providers []email.Provider
	switch cfg.EmailProvider {
	case "postmark":
		p, err := email.NewPostmarkProvider(eCfg)
		if err != nil {
			return nil, fmt.Errorf("postmark: %w", err)
		}
		providers = append(providers, p)
		// SMTP acts as the fallback provider when configured alongside.
		if eCfg.SMTPHost != "" {
			s, err := email.NewSMTPProvider(eCfg)
			if err != nil {
				return nil, fmt.Errorf("smtp: %w", err)
			}
			providers = append(providers, s)
		}
	case "smtp":
		s, err := email.NewSMTPProvider(eCfg)
		if err != nil {
			return nil, fmt.Errorf("smtp: %w", err)
		}
		providers = append(providers, s)
	case "dev":
		providers = append(providers, email.NewDevProvider(cfg.EmailDevDir))
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.EmailProvider)
	}

	limiter, err := ratelimit.NewSlidingWindow(limitStore, eCfg.RateLimit, eCfg.RateWindow,
		ratelimit.WithBurst(eCfg.BurstLimit, eCfg.BurstWindow))
	if err != nil {
		return nil, fmt.Errorf("email rate limiter: %w", err)
	}

	sender, err := email.NewSender(providers,
		email.WithRateLimiter(limiter),
		email.WithMaxAttempts(eCfg.MaxAttempts),
		email.WithLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("email sender: %w", err)
	}
	return sender, nil
}

func newPushSender(registry device.Registry, log *slog.Logger) (*push.Sender, error) {
	providers := make([]push.Provider, 0, len(device.Platforms))
	for _, platform := range device.Platforms {
		p, err := push.NewDevProvider(platform)
		if err != nil {
			return nil, fmt.Errorf("push provider %s: %w", platform, err)
		}
		providers = append(providers, p)
	}

	sender, err := push.NewSender(registry, providers, push.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("push sender: %w", err)
	}
	return sender, nil
}

func newSMSSender(cfg appConfig, limitStore ratelimit.Store, log *slog.Logger) (*sms.Sender, error) {
	var provider sms.Provider
	switch cfg.SMSProvider {
	case "http":
		var sCfg sms.Config
		if err := config.Load(&sCfg); err != nil {
			return nil, fmt.Errorf("load sms config: %w", err)
		}
		p, err := sms.NewHTTPProvider(sCfg)
		if err != nil {
			return nil, fmt.Errorf("sms gateway: %w", err)
		}
		provider = p
	case "dev":
		provider = sms.NewDevProvider()
	default:
		return nil, fmt.Errorf("unknown sms provider %q", cfg.SMSProvider)
	}

	opts := []sms.Option{
		sms.WithRateLimitStore(limitStore),
		sms.WithLogger(log),
	}
	if cfg.SMSEncryptionKey != "" {
		key, err := base64.StdEncoding.DecodeString(cfg.SMSEncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("sms encryption key: %w", err)
		}
		opts = append(opts, sms.WithEncryptionKey(key))
	}

	sender, err := sms.NewSender(provider, opts...)
	if err != nil {
		return nil, fmt.Errorf("sms sender: %w", err)
	}
	return sender, nil
}
