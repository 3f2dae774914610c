package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"socials-billing/internal/config"
	"socials-billing/internal/domain/ports/adapter"
	"socials-billing/internal/infra/adapters/ecocash"
	"socials-billing/internal/infra/adapters/notify"
	"socials-billing/internal/infra/api"
	"socials-billing/internal/infra/db/migrations"
	pg "socials-billing/internal/infra/db/postgres"
	"socials-billing/internal/infra/i18n"
	"socials-billing/internal/infra/logging"
	"socials-billing/internal/infra/metrics"
	red "socials-billing/internal/infra/redis"
	"socials-billing/internal/infra/sched"
	"socials-billing/internal/infra/security"
	"socials-billing/internal/infra/worker"
	"socials-billing/internal/usecase"
)

// Set with -ldflags "-X main.version=... -X main.commit=...".
var (
	version = "dev"
	commit  = "none"
)

const devEncryptionKey = "0123456789abcdef0123456789abcdef"

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "developer mode: console logs, noop provider when ecocash.api_url is empty")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fallback := zerolog.New(os.Stderr).With().Timestamp().Logger()
		fallback.Fatal().Err(err).Msg("config")
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("exited with error")
	}
	logger.Info().Msg("shutdown complete")
}

func run(cfg *config.Config, logger *zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)
	logger.Info().Str("version", version).Str("commit", commit).Bool("dev", cfg.Runtime.Dev).Msg("starting")

	// ---- Postgres ----
	if cfg.Database.Migrate {
		if err := migrations.Up(cfg.Database.URL, logger); err != nil {
			return err
		}
	}
	pool, err := pg.NewPgxPool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		return err
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)
	limiter := red.NewRateLimiter(redisClient)

	// ---- Encryption ----
	encKey := cfg.Security.EncryptionKey
	if len(encKey) != 32 {
		if !cfg.Runtime.Dev {
			return errors.New("security.encryption_key must be 32 bytes")
		}
		logger.Warn().Msg("security.encryption_key not set; using the INSECURE dev key")
		encKey = devEncryptionKey
	}
	keys := map[string]string{cfg.Security.KeyID: encKey}
	for id, k := range cfg.Security.RetiredKeys {
		if id != cfg.Security.KeyID {
			keys[id] = k
		}
	}
	cipher, err := security.NewKeyring(cfg.Security.KeyID, keys)
	if err != nil {
		return err
	}

	// ---- Repositories ----
	tm := pg.NewTxManager(pool)
	planRepo := pg.NewPlanRepoCacheDecorator(pg.NewPostgresPlanRepo(pool), redisClient, cfg.Redis.TTL)
	accountRepo := pg.NewAccountRepo(pool)
	subRepo := pg.NewSubscriptionRepo(pool, cipher)
	invoiceRepo := pg.NewInvoiceRepo(pool)
	paymentRepo := pg.NewPaymentRepo(pool)
	methodRepo := pg.NewPaymentMethodRepo(pool)

	// ---- Provider ----
	var gateway adapter.PushGateway
	if cfg.EcoCash.APIURL == "" {
		logger.Warn().Msg("ecocash.api_url empty; using the noop gateway")
		gateway = ecocash.NewNoopGateway()
	} else {
		gw, err := ecocash.NewGateway(cfg.EcoCash)
		if err != nil {
			return err
		}
		gateway = gw
	}

	// ---- Notifications ----
	notifyPool := worker.NewPool(cfg.Notify.Workers, cfg.Notify.QueueSize, logger)
	sinks := []adapter.Notifier{}
	if cfg.Notify.WebhookURL != "" {
		sinks = append(sinks, notify.NewWebhookNotifier(cfg.Notify.WebhookURL, cfg.Notify.Timeout))
	}
	if cfg.Notify.TelegramToken != "" {
		tg, err := notify.NewTelegramNotifier(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID)
		if err != nil {
			return err
		}
		sinks = append(sinks, tg)
	}
	if len(sinks) == 0 {
		sinks = append(sinks, notify.NoopNotifier{})
	}
	dispatcher := notify.NewDispatcher(notifyPool, cfg.Notify.Timeout, logger, sinks...)

	msgs, err := i18n.NewTranslator(i18n.LocalesFS, cfg.Locale)
	if err != nil {
		return err
	}

	// ---- Use cases ----
	clock := usecase.SystemClock{}
	ledger := usecase.NewLedgerUseCase(tm, subRepo, invoiceRepo, paymentRepo, planRepo, accountRepo, clock, logger)
	initiator := usecase.NewPaymentInitiator(planRepo, ledger, gateway, clock, usecase.InitiatorConfig{
		ShortCode:       cfg.EcoCash.ShortCode,
		USSDCode:        cfg.EcoCash.USSDCode,
		Currency:        cfg.EcoCash.Currency,
		ProviderTimeout: cfg.EcoCash.Timeout,
		LockTTL:         cfg.Initiation.LockTTL,
		RateLimit:       cfg.Initiation.RateLimit,
		RateWindow:      cfg.Initiation.RateWindow,
	}, logger, usecase.WithLocker(locker), usecase.WithRateLimiter(limiter), usecase.WithMessages(msgs))
	reconciler := usecase.NewCallbackReconciler(ledger, planRepo, gateway, dispatcher, clock, msgs, logger)

	srv := api.NewServer(api.Deps{
		Initiator:  initiator,
		Reconciler: reconciler,
		Ledger:     ledger,
		Plans:      usecase.NewPlanUseCase(planRepo),
		Methods:    usecase.NewPaymentMethodUseCase(tm, methodRepo, clock),
		Refunds:    usecase.NewRefundUseCase(ledger, gateway, logger),
		Auth:       api.NewAuthManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL),
		Callback: api.CallbackLimit{
			Limiter: limiter,
			Limit:   cfg.HTTP.CallbackRateLimit,
			Window:  cfg.HTTP.CallbackRateWindow,
			Key:     red.CallbackKey,
		},
		Clock:          clock,
		RequestTimeout: cfg.HTTP.RequestTimeout,
		Dev:            cfg.Runtime.Dev,
		Logger:         logger,
	})
	httpServer := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           srv.Routes(),
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}

	// ---- Lifecycle ----
	g, gctx := errgroup.WithContext(ctx)
	notifyPool.Start(context.WithoutCancel(ctx))

	g.Go(func() error {
		pg.ReportPoolStats(gctx, pool, 15*time.Second)
		return nil
	})
	if cfg.Reconciler.Enabled {
		rw := sched.NewPaymentReconciler(reconciler, ledger, locker, clock, sched.ReconcilerConfig{
			Interval:     cfg.Reconciler.Interval,
			StaleAfter:   cfg.Reconciler.StaleAfter,
			AbandonAfter: cfg.Reconciler.AbandonAfter,
			BatchSize:    cfg.Reconciler.BatchSize,
		}, logger)
		g.Go(func() error {
			if err := rw.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		logger.Info().Str("addr", httpServer.Addr).Msg("http listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutdown requested")
		sctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		err := httpServer.Shutdown(sctx)
		notifyPool.Stop()
		return err
	})
	return g.Wait()
}
