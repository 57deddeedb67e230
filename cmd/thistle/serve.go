package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/spf13/cobra"

	"github.com/Ramsey-B/thistle/config"
	"github.com/Ramsey-B/thistle/internal/repositories/account"
	"github.com/Ramsey-B/thistle/internal/repositories/contact"
	"github.com/Ramsey-B/thistle/internal/repositories/suppression"
	"github.com/Ramsey-B/thistle/pkg/database"
	"github.com/Ramsey-B/thistle/pkg/dedupekeys"
	"github.com/Ramsey-B/thistle/pkg/disposition"
	"github.com/Ramsey-B/thistle/pkg/events"
	"github.com/Ramsey-B/thistle/pkg/kafka"
	"github.com/Ramsey-B/thistle/pkg/locking"
	"github.com/Ramsey-B/thistle/pkg/matching"
	"github.com/Ramsey-B/thistle/pkg/redis"
	accountroutes "github.com/Ramsey-B/thistle/pkg/routes/account"
	contactroutes "github.com/Ramsey-B/thistle/pkg/routes/contact"
	"github.com/Ramsey-B/thistle/pkg/routes/health"
	"github.com/Ramsey-B/thistle/pkg/server"
	"github.com/Ramsey-B/thistle/pkg/startup"
	"github.com/Ramsey-B/thistle/pkg/tracing"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the matching API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger, flush, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer flush()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return serve(ctx, cfg, logger)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// deps holds the connections opened during startup
type deps struct {
	db       database.DB
	redis    *redis.Client
	producer *kafka.Producer
}

func serve(ctx context.Context, cfg *config.Config, logger ectologger.Logger) error {
	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing(), logger)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.WithError(err).Warn("Failed to flush traces")
		}
	}()

	d := &deps{}
	boot := startup.NewStartup(logger, cfg.StartupMaxAttempts)
	registerDependencies(boot, cfg, logger, d)
	if err := boot.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := boot.Stop(stopCtx); err != nil {
			logger.WithError(err).Error("Failed to stop dependencies")
		}
	}()

	checker := health.NewChecker(cfg.Version, pingers(d))
	srv := server.New(serverConfig(cfg), buildRoutes(cfg, logger, d, checker), logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()
	checker.SetReady(true)

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	checker.SetReady(false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func registerDependencies(boot *startup.Startup, cfg *config.Config, logger ectologger.Logger, d *deps) {
	boot.AddDependency(startup.Dependency{
		Name: "postgres",
		OnStart: func(ctx context.Context) error {
			db, err := database.Open(ctx, cfg.Database(), logger)
			if err != nil {
				return err
			}
			d.db = db
			return nil
		},
		OnStop: func(context.Context) error {
			return d.db.Close()
		},
	})

	if cfg.DatabaseMigrateOnStart {
		boot.AddDependency(startup.Dependency{
			Name:  "migrations",
			Needs: []string{"postgres"},
			OnStart: func(context.Context) error {
				return database.NewMigrationService(logger, cfg.Migration()).MigratePostgres(d.db.SQLDB())
			},
		})
	}

	if cfg.RedisEnabled {
		boot.AddDependency(startup.Dependency{
			Name: "redis",
			OnStart: func(ctx context.Context) error {
				client, err := redis.NewClient(ctx, cfg.Redis(), logger)
				if err != nil {
					return err
				}
				d.redis = client
				return nil
			},
			OnStop: func(context.Context) error {
				return d.redis.Close()
			},
		})
	}

	if cfg.KafkaEnabled {
		boot.AddDependency(startup.Dependency{
			Name: "kafka",
			OnStart: func(context.Context) error {
				d.producer = kafka.NewProducer(cfg.Producer(), logger)
				return nil
			},
			OnStop: func(context.Context) error {
				return d.producer.Close()
			},
		})
	}
}

func pingers(d *deps) map[string]health.Pinger {
	checks := map[string]health.Pinger{
		"postgres": health.PingFunc(d.db.PingContext),
	}
	if d.redis != nil {
		checks["redis"] = d.redis
	}
	return checks
}

func buildRoutes(cfg *config.Config, logger ectologger.Logger, d *deps, checker *health.Checker) server.Routes {
	accounts := account.NewRepository(d.db, logger)
	contacts := contact.NewRepository(d.db, logger)

	var locker matching.KeyLocker = matching.NoopLocker()
	if d.redis != nil {
		acquirer := locking.NewRedisAcquirer(redis.NewLocker(d.redis, cfg.LockKeyPrefix))
		locker = locking.NewLocker(acquirer, cfg.Locking(), logger)
	}

	matcher := matching.NewService(logger, dedupekeys.NewBuilder(), matching.Stores{
		Accounts:            accounts,
		Contacts:            contacts,
		SuppressionAccounts: suppression.NewAccountRepository(d.db, logger),
		SuppressionContacts: suppression.NewContactRepository(d.db, logger),
		Scopes:              suppression.NewScopeRepository(d.db, logger),
	}, locker, cfg.MatchingConfig())

	var publisher events.Publisher
	if d.producer != nil {
		publisher = d.producer
	}
	saver := disposition.NewService(matcher, accounts, contacts, d.db, events.NewEmitter(publisher, logger), logger)

	return server.Routes{
		Accounts: accountroutes.NewHandler(matcher, saver),
		Contacts: contactroutes.NewHandler(matcher, saver),
		Health:   checker,
	}
}

func serverConfig(cfg *config.Config) server.Config {
	return server.Config{
		ServiceName:       cfg.AppName,
		Port:              cfg.Port,
		ReadTimeout:       time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second,
		IdleTimeout:       time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second,
		ReadHeaderTimeout: time.Duration(cfg.ReadHeaderTimeoutSeconds) * time.Second,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
		AllowOrigins:      cfg.AllowOrigins,
		AllowMethods:      cfg.AllowMethods,
	}
}
