package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"voteflow-backend/internal/apiclient"
	"voteflow-backend/internal/auth"
	"voteflow-backend/internal/billing"
	"voteflow-backend/internal/config"
	"voteflow-backend/internal/cron"
	"voteflow-backend/internal/database"
	"voteflow-backend/internal/db"
	"voteflow-backend/internal/directory"
	"voteflow-backend/internal/handlers"
	"voteflow-backend/internal/health"
	h "voteflow-backend/internal/http"
	"voteflow-backend/internal/importer"
	"voteflow-backend/internal/logger"
	"voteflow-backend/internal/metrics"
	"voteflow-backend/internal/middleware"
	"voteflow-backend/internal/models"
	"voteflow-backend/internal/paystack"
	"voteflow-backend/internal/repositories"
	"voteflow-backend/internal/security"
	"voteflow-backend/internal/session"
	"voteflow-backend/internal/status"
	"voteflow-backend/internal/storage"
)

// sessionTTL matches the lifetime of the issued session token.
const sessionTTL = 24 * time.Hour

func main() {
	cfg := config.Load()
	logger.Setup(cfg)
	log := logger.For("main")

	ctx := context.Background()
	checker := health.NewHealthChecker()

	// Member directory: Postgres when enabled, otherwise in memory
	var store directory.Store
	var pool *pgxpool.Pool
	if cfg.Database.Enabled {
		var err error
		pool, err = db.Connect(ctx, cfg)
		if err != nil {
			log.WithError(err).Fatal("[DB] Connection failed")
		}
		defer pool.Close()
		if err := database.NewMigrator(pool).RunMigrations(ctx); err != nil {
			log.WithError(err).Fatal("[DB] Migrations failed")
		}
		repo := repositories.NewMemberRepository(pool)
		if cfg.Directory.Seed {
			seedDirectory(ctx, repo, log)
		}
		store = repo
		checker.Register("database", func(ctx context.Context) error { return pool.Ping(ctx) })
		log.Info("[DB] Member directory on PostgreSQL")
	} else {
		var seed []models.Member
		if cfg.Directory.Seed {
			seed = directory.SeedMembers()
		}
		store = directory.NewMemoryStore(seed...)
		log.Info("[DB] Member directory in memory")
	}
	directorySvc := directory.NewService(store, cfg.Directory.Latency, cfg.Directory.PageSize)

	// Session storage: Redis when configured, otherwise in memory
	var kv session.KV
	if cfg.Redis.URL != "" {
		client, err := session.Dial(ctx, cfg.Redis.URL)
		if err != nil {
			log.WithError(err).Fatal("[Redis] Connection failed")
		}
		defer client.Close()
		kv = session.NewRedisKV(client, sessionTTL)
		checker.Register("redis", func(ctx context.Context) error { return client.Ping(ctx).Err() })
		log.Info("[Redis] Sessions in Redis")
	} else {
		kv = session.NewMemoryKV()
		log.Warn("[Redis] REDIS_URL not set, sessions are kept in memory")
	}
	sessions := session.NewManager(kv)

	api := apiclient.New(cfg.API.BaseURL, sessions, apiclient.WithUnauthorizedHandler(sessions.OnUnauthorized))
	checker.Register("api", api.Ping)

	// Import archive bucket is optional
	var archive *storage.Archive
	if a, err := storage.NewFromConfig(ctx, cfg); err == nil {
		archive = a
		checker.Register("storage", func(ctx context.Context) error {
			_, err := a.Recent(ctx, 1)
			return err
		})
		log.WithField("bucket", cfg.Storage.Bucket).Info("[Storage] Import archive enabled")
	} else if !errors.Is(err, storage.ErrNotConfigured) {
		log.WithError(err).Warn("[Storage] Import archive unavailable")
	}

	importOpts := importer.Options{
		MaxFileBytes: cfg.Import.MaxFileBytes,
		PreviewRows:  cfg.Import.PreviewRows,
		Latency:      cfg.Import.Latency,
	}
	var importSvc *importer.Service
	var importArchive handlers.ImportArchive
	if archive != nil {
		importSvc = importer.NewService(importOpts, directorySvc, archive)
		importArchive = archive
	} else {
		importSvc = importer.NewService(importOpts, directorySvc, nil)
	}

	ps := paystack.Default(paystack.Config{
		PublicKey: cfg.Paystack.PublicKey,
		SecretKey: cfg.Paystack.SecretKey,
		BaseURL:   cfg.Paystack.BaseURL,
		ProxyURL:  cfg.Paystack.ProxyURL,
		Currency:  cfg.Paystack.Currency,
	})
	if cfg.Paystack.PublicKey == "" {
		log.Warn("[Paystack] Public key not set, checkout will be rejected by the widget")
	}

	jwtManager := auth.NewJWTManager(cfg)
	twoFA := security.NewService(kv)

	// Status dashboard
	collector := status.NewCollector(checker)
	collector.AddExtra("import_sessions", func(context.Context) interface{} {
		n := importSvc.Active()
		metrics.ImportSessionsActive.Set(float64(n))
		return n
	})
	collector.AddExtra("pending_payments", func(context.Context) interface{} { return ps.PendingCount() })
	if archive != nil {
		collector.AddExtra("storage", func(ctx context.Context) interface{} { return archive.Status(ctx) })
	}
	hub := status.NewHub(collector, cfg.Server.CorsAllowedOrigins)
	defer hub.Close()

	scheduler := cron.NewScheduler(importSvc, ps, hub, cfg.Import.SessionTTL)
	if err := scheduler.Start(); err != nil {
		log.WithError(err).Fatal("[Cron] Failed to start scheduler")
	}
	defer scheduler.Stop()

	authMiddleware := middleware.NewAuthMiddleware(jwtManager, sessions)
	corsMiddleware := middleware.NewCORS(cfg)

	router := h.NewRouter(
		handlers.NewSessionHandler(api, sessions, jwtManager, twoFA),
		handlers.NewSecurityHandler(twoFA),
		handlers.NewUpstreamHandler(api),
		handlers.NewMemberHandler(directorySvc),
		handlers.NewImportHandler(importSvc, importArchive, cfg.Import.MaxFileBytes),
		handlers.NewBillingHandler(billing.NewRegistry(billing.DemoCards), ps, cfg.Paystack.Currency),
		handlers.NewHealthHandler(checker, collector, hub),
		authMiddleware,
		cfg.Server.TrustedProxies,
	)

	// Wrap with panic recovery, request logging and CORS
	handler := middleware.PanicRecovery(middleware.RequestLogger(corsMiddleware(router)))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{
			"addr":        addr,
			"environment": cfg.Server.Environment,
			"api":         cfg.API.BaseURL,
		}).Info("Server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Server failed to start")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
	}
}

// seedDirectory fills an empty members table with the demo directory.
func seedDirectory(ctx context.Context, repo *repositories.MemberRepository, log *logrus.Entry) {
	n, err := repo.Count(ctx)
	if err != nil {
		log.WithError(err).Warn("[DB] Could not count members, skipping seed")
		return
	}
	if n > 0 {
		return
	}
	for _, m := range directory.SeedMembers() {
		if err := repo.Create(ctx, m); err != nil {
			log.WithError(err).Warn("[DB] Seed insert failed")
			return
		}
	}
	log.Info("[DB] Seeded demo members")
}
