package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	identityservice "trustgate/internal/identity/service"
	"trustgate/internal/identity/store/account"
	"trustgate/internal/identity/store/artifact"
	"trustgate/internal/identity/store/link"
	"trustgate/internal/identity/store/profile"
	"trustgate/internal/identity/verifier"
	"trustgate/internal/merge"
	"trustgate/internal/merge/store/record"
	"trustgate/internal/platform/config"
	"trustgate/internal/platform/httpserver"
	"trustgate/internal/platform/logger"
	"trustgate/internal/platform/metrics"
	"trustgate/internal/platform/postgres"
	platformredis "trustgate/internal/platform/redis"
	"trustgate/internal/platform/token"
	httptransport "trustgate/internal/transport/http"
	"trustgate/internal/trust"
	signalstore "trustgate/internal/trust/store/signal"
	"trustgate/pkg/platform/audit"
	"trustgate/pkg/platform/audit/publisher"
	auditmemory "trustgate/pkg/platform/audit/store/memory"
)

// main wires dependencies from configuration and keeps the server lifecycle
// small. Postgres, Redis and Kafka are each optional: an unset URL selects
// the in-memory stand-in so a dev instance runs with no external services.
// Business logic lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()
	ctx := context.Background()

	pool, err := postgres.New(ctx, cfg.Postgres)
	if err != nil {
		log.Error("postgres setup failed", "error", err)
		os.Exit(1)
	}
	if pool != nil {
		defer pool.Close()
	}
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis setup failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var (
		accounts account.Store     = account.NewMemory()
		links    link.Store        = link.NewMemory()
		profiles profile.Store     = profile.NewMemory()
		signals  trust.Store       = signalstore.NewMemory()
		records  merge.RecordStore = record.NewMemory()
	)
	if pool != nil {
		accounts = account.NewPostgres(pool)
		links = link.NewPostgres(pool)
		profiles = profile.NewPostgres(pool)
		signals = signalstore.NewPostgres(pool)
		records = record.NewPostgres(pool, record.DefaultTables())
	}
	var artifacts artifact.Store = artifact.NewMemory()
	if redisClient != nil {
		artifacts = artifact.NewRedis(redisClient.Client)
	}

	var auditStore audit.Store = auditmemory.NewInMemoryStore()
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaStore, err := publisher.NewKafkaStore(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			log.Error("kafka setup failed", "error", err)
			os.Exit(1)
		}
		defer kafkaStore.Close()
		auditStore = kafkaStore
	}
	auditor := publisher.NewPublisher(auditStore,
		publisher.WithAsyncBuffer(256),
		publisher.WithLogger(log),
	)
	defer auditor.Close()

	caps := trust.Caps{
		Handshakes: cfg.Trust.CapHandshakes,
		Wallet:     cfg.Trust.CapWallet,
		Social:     cfg.Trust.CapSocial,
		Events:     cfg.Trust.CapEvents,
		Community:  cfg.Trust.CapCommunity,
	}
	trustEngine := trust.NewEngine(signals, caps, trust.WithMetrics(m))
	mergeEngine := merge.NewEngine(accounts, links, profiles, artifacts, records, trustEngine, log,
		merge.WithMetrics(m),
		merge.WithAuditor(auditor),
	)
	resolver := identityservice.NewResolver(accounts, links, log,
		identityservice.WithResolverMetrics(m),
		identityservice.WithResolverAuditor(auditor),
	)

	oauth := verifier.NewOAuth(verifier.OAuthConfig{
		ClientID:     cfg.Providers.OAuthClientID,
		RedirectURI:  cfg.Providers.OAuthRedirectURI,
		AuthorizeURL: cfg.Providers.OAuthAuthorizeURL,
		TokenURL:     cfg.Providers.OAuthTokenURL,
		ProfileURL:   cfg.Providers.OAuthProfileURL,
		RevokeURL:    cfg.Providers.OAuthRevokeURL,
		StateSecret:  cfg.Providers.StateSecret,
	}, nil, log)

	svc := identityservice.New(
		verifier.NewMiniApp(cfg.Providers.BotSecret),
		verifier.NewWallet(),
		oauth,
		resolver,
		identityservice.NewGuard(signals),
		mergeEngine,
		trustEngine,
		accounts,
		artifacts,
		log,
		identityservice.WithMetrics(m),
		identityservice.WithAuditor(auditor),
	)

	issuer := token.NewJWTIssuer(cfg.Session.JWTSigningKey, cfg.Session.TokenTTL)
	handler := httptransport.NewHandler(svc, issuer, log)
	appServer := httpserver.New(cfg.Server.Addr, httptransport.NewRouter(handler, issuer))
	metricsServer := httpserver.New(cfg.Server.MetricsAddr, httptransport.NewMetricsHandler())

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(runCtx)
	group.Go(func() error {
		log.Info("starting trustgate", "addr", cfg.Server.Addr)
		if err := appServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		log.Info("serving metrics", "addr", cfg.Server.MetricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := appServer.Shutdown(shutdownCtx); err != nil {
			log.Error("app server shutdown failed", "error", err)
		}
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Error("metrics server shutdown failed", "error", err)
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("trustgate stopped")
}
