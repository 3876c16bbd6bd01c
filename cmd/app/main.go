// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"coach-storefront/internal/config"
	"coach-storefront/internal/domain/ports/adapter"
	"coach-storefront/internal/domain/ports/repository"
	"coach-storefront/internal/infra/adapters/email"
	payAdapters "coach-storefront/internal/infra/adapters/payment"
	tele "coach-storefront/internal/infra/adapters/telegram"
	"coach-storefront/internal/infra/adapters/whatsapp"
	"coach-storefront/internal/infra/api"
	"coach-storefront/internal/infra/db/memory"
	pg "coach-storefront/internal/infra/db/postgres"
	"coach-storefront/internal/infra/db/seed"
	"coach-storefront/internal/infra/i18n"
	"coach-storefront/internal/infra/logging"
	"coach-storefront/internal/infra/metrics"
	red "coach-storefront/internal/infra/redis"
	"coach-storefront/internal/infra/sched"
	"coach-storefront/internal/infra/web"
	"coach-storefront/internal/infra/worker"
	"coach-storefront/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

// stores bundles the persistence and coordination backends chosen at startup.
type stores struct {
	orders   repository.OrderRepository
	capacity repository.CapacityRepository
	products repository.ProductRepository
	gateway  adapter.PaymentGateway
	limiter  api.Limiter
	locker   red.Locker
}

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "in-memory stores, simulated gateway, logged notifications")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)

	if err := run(cfg, logger); err != nil {
		logger.Error().Err(err).Msg("exited with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit, cfg.Payment.Cashfree.Environment)

	tr, err := i18n.NewTranslator(i18n.LocalesFS, cfg.Notify.Language)
	if err != nil {
		return fmt.Errorf("i18n: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	var st stores
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] in-memory stores and simulated payment gateway")
		st, err = devStores(ctx, logger)
	} else {
		var cleanup func()
		st, cleanup, err = prodStores(ctx, g, cfg, logger)
		if cleanup != nil {
			defer cleanup()
		}
	}
	if err != nil {
		return err
	}

	// ---- Notifications ----
	emailSender, chatSender, alerter, err := senders(cfg, tr, logger)
	if err != nil {
		return err
	}
	pool := worker.NewPool(cfg.Notify.Workers, logger)
	pool.Start(context.Background())
	defer pool.Stop()

	// ---- Use cases ----
	base := strings.TrimRight(cfg.HTTP.PublicBaseURL, "/")
	notifyUC := usecase.NewNotificationUseCase(emailSender, chatSender, alerter, pool, tr, cfg.Notify.Timeout, logger)
	fulfillUC := usecase.NewFulfillmentUseCase(st.orders, st.capacity, st.products, st.gateway, notifyUC, alerter, tr,
		usecase.FulfillmentConfig{
			MaxSlots:  cfg.Capacity.MaxSlots,
			Location:  cfg.Location(),
			ReturnURL: base + cfg.Payment.ReturnPath,
			NotifyURL: base + "/api/webhook",
		}, logger)
	catalogUC := usecase.NewCatalogUseCase(st.products)
	statsUC := usecase.NewStatsUseCase(st.orders, st.capacity, cfg.Capacity.MaxSlots, cfg.Location(), logger)
	adminUC := usecase.NewAdminUseCase(st.orders, st.capacity, cfg.Capacity.MaxSlots, logger)

	// ---- HTTP ----
	opts := api.ServerOptions{
		Limiter:     st.limiter,
		CreateLimit: cfg.HTTP.CreateRateLimit,
		CoachName:   cfg.Notify.CoachName,
		SupportURL:  cfg.Notify.SupportURL,
	}
	if cfg.Payment.Cashfree.WebhookVerify {
		opts.Verifier = payAdapters.NewWebhookVerifier(cfg.Payment.Cashfree.SecretKey, 5*time.Minute)
	}

	r := chi.NewRouter()
	r.Use(api.TraceID(), api.RequestLog(logger), api.Recover(logger), api.Timeout(cfg.HTTP.RequestTimeout))
	api.NewServer(fulfillUC, catalogUC, opts, logger).Register(r)
	auth := web.NewAuthManager(cfg.Admin.Password, cfg.Admin.JWTSecret, cfg.Admin.Secure, cfg.Admin.TokenTTL)
	web.NewServer(statsUC, adminUC, auth, logger).RegisterRoutes(r)
	r.Handle("/metrics", metrics.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		logger.Info().Str("addr", srv.Addr).Str("version", version).Bool("dev", cfg.Runtime.Dev).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		logger.Info().Msg("shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	})

	reconciler := sched.NewPaymentReconciler(fulfillUC, st.locker, cfg.Scheduler.ReconcileInterval, cfg.Scheduler.StaleAfter, logger)
	g.Go(func() error {
		if err := reconciler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info().Msg("bye")
	return nil
}

func devStores(ctx context.Context, logger *zerolog.Logger) (stores, error) {
	products := memory.NewProductStore()
	if err := seed.Load(ctx, memory.TxManager{}, products, seed.Products(time.Now()), logger); err != nil {
		return stores{}, fmt.Errorf("seed catalog: %w", err)
	}
	return stores{
		orders:   memory.NewOrderStore(),
		capacity: memory.NewCapacityStore(),
		products: products,
		gateway:  payAdapters.NewNoopPaymentGateway(),
	}, nil
}

func prodStores(ctx context.Context, g *errgroup.Group, cfg *config.Config, logger *zerolog.Logger) (stores, func(), error) {
	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		return stores{}, nil, fmt.Errorf("postgres: %w", err)
	}
	g.Go(func() error {
		metrics.PollDBPool(ctx, pool, 15*time.Second)
		return nil
	})

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		pool.Close()
		return stores{}, nil, fmt.Errorf("redis: %w", err)
	}
	cleanup := func() {
		_ = redisClient.Close()
		pool.Close()
	}

	gw, err := payAdapters.NewCashfreeGateway(cfg.Payment.Cashfree, logger)
	if err != nil {
		cleanup()
		return stores{}, nil, fmt.Errorf("cashfree gateway: %w", err)
	}
	logger.Info().Str("environment", cfg.Payment.Cashfree.Environment).Msg("payment gateway configured")

	return stores{
		orders:   pg.NewOrderRepo(pool),
		capacity: pg.NewCapacityRepo(pool),
		products: pg.NewProductRepoCacheDecorator(pg.NewProductRepo(pool), redisClient, cfg.Redis.TTL, logger),
		gateway:  gw,
		limiter:  red.NewRateLimiter(redisClient, "ratelimit"),
		locker:   red.NewLocker(redisClient),
	}, cleanup, nil
}

func senders(cfg *config.Config, tr *i18n.Translator, logger *zerolog.Logger) (adapter.EmailSender, adapter.ChatSender, adapter.OperatorAlerter, error) {
	n := cfg.Notify
	var (
		es  adapter.EmailSender
		cs  adapter.ChatSender
		oa  adapter.OperatorAlerter
		err error
	)

	if cfg.Runtime.Dev || n.SMTP.Host == "" {
		es = email.NewNoopSender(tr, n.CoachName, n.SupportURL, logger)
	} else if es, err = email.NewSMTPSender(n.SMTP, tr, n.CoachName, n.SupportURL, logger); err != nil {
		return nil, nil, nil, fmt.Errorf("smtp sender: %w", err)
	}

	if cfg.Runtime.Dev || n.WhatsApp.Token == "" {
		cs = whatsapp.NewNoopSender(tr, n.CoachName, logger)
	} else if cs, err = whatsapp.NewCloudSender(n.WhatsApp, tr, n.CoachName, n.Timeout, logger); err != nil {
		return nil, nil, nil, fmt.Errorf("whatsapp sender: %w", err)
	}

	if cfg.Runtime.Dev || n.Telegram.Token == "" {
		oa = tele.NewNoopAlerter(logger)
	} else if oa, err = tele.NewBotAlerter(n.Telegram, logger); err != nil {
		return nil, nil, nil, fmt.Errorf("telegram alerter: %w", err)
	}
	return es, cs, oa, nil
}
