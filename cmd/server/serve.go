package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/iliyamo/learntrack/internal/auth"
	"github.com/iliyamo/learntrack/internal/config"
	"github.com/iliyamo/learntrack/internal/database"
	"github.com/iliyamo/learntrack/internal/handler"
	"github.com/iliyamo/learntrack/internal/identity"
	"github.com/iliyamo/learntrack/internal/middleware"
	"github.com/iliyamo/learntrack/internal/payment"
	"github.com/iliyamo/learntrack/internal/queue"
	"github.com/iliyamo/learntrack/internal/repository"
	"github.com/iliyamo/learntrack/internal/router"
	"github.com/iliyamo/learntrack/internal/service"
	"github.com/iliyamo/learntrack/internal/storage"
)

func serveCmd() *cobra.Command {
	var (
		migrate bool
		consume bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, migrate, consume)
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", true, "Apply the schema before serving")
	cmd.Flags().BoolVar(&consume, "consume", false, "Also run the event consumer in this process")

	return cmd
}

func runServer(ctx context.Context, migrate, consume bool) error {
	cfg := config.Load() // Load environment config

	db, err := database.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	if migrate {
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; response cache and rate limiting are disabled")
	} else {
		defer rdb.Close()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := middleware.NewMetrics(reg)

	provider := identity.NewGoTrueClient(cfg.SupabaseURL, cfg.SupabaseAnonKey, cfg.SupabaseServiceKey, cfg.SignupRedirectURL)
	repos := repository.NewRepos(db)
	builder := auth.NewBuilder(provider, repos)

	payCfg := config.LoadPaymentConfig()
	var payments payment.Processor
	if p := payment.NewStripeProcessor(payCfg.SecretKey, nil); p != nil {
		payments = p
	} else {
		log.Printf("STRIPE_SECRET_KEY not set; payment endpoints will answer 500")
	}

	var store storage.ObjectStore
	if sc := config.LoadStorageConfig(); sc.Enabled() {
		store = storage.NewS3Store(sc, cfg.MaxUploadBytes)
	} else {
		log.Printf("object store credentials not set; uploads are disabled")
	}

	queueCfg := config.LoadQueueConfig()
	events := service.NewPublisher(queueCfg)
	if consume && queueCfg.Enabled {
		go func() {
			if err := queue.StartEventConsumer(ctx, queueCfg); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("event consumer stopped: %v", err)
			}
		}()
	}

	authn := middleware.Authenticate(builder, metrics)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb, metrics)
	limit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, metrics)

	e := echo.New() // Create Echo instance
	router.Setup(e, cfg, metrics)
	router.RegisterRoutes(e)
	router.RegisterMetrics(e, reg)
	router.RegisterAuth(e, handler.NewAuthHandler(provider, builder, payments, payCfg, cfg.FrontendURL, events, metrics), limit)
	router.RegisterCourses(e, handler.NewCourseHandler(repos), authn, cache)
	router.RegisterCourseManagement(e, handler.NewCourseManagementHandler(repos, store), authn)
	router.RegisterEnrollments(e, handler.NewEnrollmentHandler(repos, events), authn)
	router.RegisterPayments(e, handler.NewPaymentHandler(repos, payments, payCfg, cfg.FrontendURL, events), authn)
	router.RegisterProfiles(e, handler.NewProfileHandler(provider), authn)
	router.RegisterStatic(e)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s (env=%s)", cfg.Addr(), cfg.Env) // Print startup info
		if err := e.Start(cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
