package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	accessloghandler "acredita/internal/accesslog/handler"
	accesslogpublisher "acredita/internal/accesslog/publisher"
	accesslogservice "acredita/internal/accesslog/service"
	"acredita/internal/checkin"
	checkinhandler "acredita/internal/checkin/handler"
	checkinmetrics "acredita/internal/checkin/metrics"
	eventhandler "acredita/internal/event/handler"
	eventservice "acredita/internal/event/service"
	identityhandler "acredita/internal/identity/handler"
	identityservice "acredita/internal/identity/service"
	"acredita/internal/identity/token"
	invitehandler "acredita/internal/invite/handler"
	inviteservice "acredita/internal/invite/service"
	participanthandler "acredita/internal/participant/handler"
	participantservice "acredita/internal/participant/service"
	"acredita/internal/platform/config"
	"acredita/internal/platform/httpserver"
	"acredita/internal/platform/logger"
	"acredita/internal/platform/metrics"
	"acredita/internal/platform/postgres"
	platformredis "acredita/internal/platform/redis"
	httptransport "acredita/internal/transport/http"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		st stores
		db *postgres.DB
	)
	if cfg.Database.URL != "" {
		var err error
		db, err = postgres.Open(cfg.Database)
		if err != nil {
			log.Error("database unavailable", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		st = newPostgresStores(db)
		log.Info("using postgres stores")
	} else {
		st = newMemoryStores()
		log.Warn("no DATABASE_URL configured, using in-memory stores")
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis unavailable", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	adminMetrics := metrics.New()
	scanMetrics := checkinmetrics.New()

	tokens := token.NewService(cfg.JWT.SigningKey, cfg.JWT.Issuer, cfg.JWT.TTL)
	identity := identityservice.New(st.users, tokens,
		identityservice.WithLogger(log),
		identityservice.WithMetrics(adminMetrics),
	)
	if err := identity.Bootstrap(ctx, cfg.Bootstrap.Email, cfg.Bootstrap.Password); err != nil {
		log.Error("super admin bootstrap failed", "error", err)
		os.Exit(1)
	}

	eventOpts := []eventservice.Option{
		eventservice.WithLogger(log),
		eventservice.WithMetrics(adminMetrics),
	}
	if db != nil {
		eventOpts = append(eventOpts, eventservice.WithTxRunner(newPostgresTx(db.DB)))
	}
	events := eventservice.New(st.events, st.participants, st.accessLog, eventOpts...)

	participants := participantservice.New(st.participants, st.events,
		participantservice.WithLogger(log),
		participantservice.WithMetrics(adminMetrics),
	)
	logs := accesslogservice.New(st.accessLog, st.events, accesslogservice.WithLogger(log))
	invitations := inviteservice.New(st.invitations, identity, inviteservice.WithLogger(log))

	var guard *checkin.DeviceGuard
	if redisClient != nil {
		guard = checkin.NewDeviceGuard(redisClient.Client, log)
	} else {
		guard = checkin.NewDeviceGuard(nil, log)
	}
	orchestrator := checkin.New(st.participants, st.events, st.accessLog,
		checkin.WithLogger(log),
		checkin.WithMetrics(scanMetrics),
		checkin.WithGuard(guard),
	)

	health := map[string]httptransport.HealthChecker{}
	if db != nil {
		health["postgres"] = db
	}
	if redisClient != nil {
		health["redis"] = redisClient
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:       log,
		Resolver:     identity,
		Identity:     identityhandler.New(identity, log),
		Invitations:  invitehandler.New(invitations, log),
		Scan:         checkinhandler.New(orchestrator, log),
		Events:       eventhandler.New(events, log),
		Participants: participanthandler.New(participants, log),
		AccessLog:    accessloghandler.New(logs, log),
		Health:       health,
	})

	srv := httpserver.New(cfg.Server.Addr, router)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting acredita", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// The outbox publisher needs both the database (outbox rows) and a
	// broker; without either the outbox simply accumulates for a later
	// deployment to drain.
	if db != nil && len(cfg.Kafka.Brokers) > 0 {
		kafkaClient, err := kgo.NewClient(kgo.SeedBrokers(cfg.Kafka.Brokers...))
		if err != nil {
			log.Error("kafka unavailable", "error", err)
			os.Exit(1)
		}
		defer kafkaClient.Close()

		worker, err := accesslogpublisher.New(ctx, db.DB, kafkaClient,
			accesslogpublisher.Config{Topic: cfg.Kafka.Topic}, log)
		if err != nil {
			log.Error("outbox publisher init failed", "error", err)
			os.Exit(1)
		}
		g.Go(func() error {
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
