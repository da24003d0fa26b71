package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aihaudit/aih/internal/config"
	"github.com/aihaudit/aih/internal/domain/aih"
	"github.com/aihaudit/aih/internal/domain/deletion"
	"github.com/aihaudit/aih/internal/domain/export"
	"github.com/aihaudit/aih/internal/domain/glosa"
	"github.com/aihaudit/aih/internal/domain/identity"
	"github.com/aihaudit/aih/internal/domain/professional"
	"github.com/aihaudit/aih/internal/domain/system"
	"github.com/aihaudit/aih/internal/platform/auth"
	"github.com/aihaudit/aih/internal/platform/db"
	"github.com/aihaudit/aih/internal/platform/middleware"
	"github.com/aihaudit/aih/internal/platform/objectstore"
)

const tokenIssuer = "aih-server"

// server holds the wired application and the state objects its background
// jobs drive.
type server struct {
	cfg         *config.Config
	logger      zerolog.Logger
	pool        *db.Pool
	store       *db.Store
	echo        *echo.Echo
	backup      *db.Backup
	maintenance *db.Maintenance
	limiter     *middleware.RateLimiter
	reauth      *auth.ReauthStore
}

func ensureDir(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create database dir %s: %w", dir, err)
	}
	return nil
}

func backupConfig(cfg *config.Config) db.BackupConfig {
	return db.BackupConfig{Dir: cfg.BackupDir, Keep: cfg.BackupKeep}
}

func maintenanceConfig(cfg *config.Config) db.MaintenanceConfig {
	return db.MaintenanceConfig{
		AccessLogRetention:   cfg.AccessLogRetention,
		DeletionLogRetention: cfg.DeletionLogRetention,
	}
}

// newUploader returns the S3 uploader when a bucket is configured and nil
// otherwise.
func newUploader(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (db.Uploader, error) {
	if cfg.BackupS3Bucket == "" {
		return nil, nil
	}
	up, err := objectstore.NewS3Uploader(ctx, objectstore.Config{
		Bucket:   cfg.BackupS3Bucket,
		Prefix:   cfg.BackupS3Prefix,
		Endpoint: cfg.BackupS3Endpoint,
	}, logger)
	if err != nil {
		return nil, err
	}
	return up, nil
}

// newServer opens and migrates the database, seeds the default administrator
// and builds the echo instance with every route mounted.
func newServer(ctx context.Context, cfg *config.Config, logger zerolog.Logger, public string) (*server, error) {
	pool, store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.NewMigrator(pool, db.Migrations, logger).Up(ctx); err != nil {
		pool.CloseAll()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	uploader, err := newUploader(ctx, cfg, logger)
	if err != nil {
		pool.CloseAll()
		return nil, err
	}

	s := &server{
		cfg:         cfg,
		logger:      logger,
		pool:        pool,
		store:       store,
		backup:      db.NewBackup(pool, backupConfig(cfg), uploader, logger),
		maintenance: db.NewMaintenance(store, maintenanceConfig(cfg), logger),
		reauth:      auth.NewReauthStore(cfg.ReauthWindow),
	}

	events := middleware.NewSecurityLog(middleware.DefaultSecurityLogSize)
	s.limiter = middleware.NewRateLimiter(middleware.RateLimitConfig{
		Window:      cfg.RateLimitWindow,
		Max:         cfg.RateLimitMax,
		ExemptLocal: !cfg.IsProduction(),
	}, events)

	tokens := auth.NewTokenIssuer([]byte(cfg.JWTSecret), tokenIssuer, cfg.JWTTTL)
	hasher := auth.NewHasher(cfg.BcryptCost)

	// Services
	identityRepo := identity.NewRepo(store)
	identitySvc := identity.NewService(identityRepo, hasher, tokens, s.reauth, logger)
	glosaSvc := glosa.NewService(glosa.NewRepo(store), logger)
	aihSvc := aih.NewService(aih.NewRepo(store), store, glosaSvc, logger)
	deletionSvc := deletion.NewService(deletion.NewRepo(store), store, s.reauth, logger)
	professionalSvc := professional.NewService(professional.NewRepo(store))
	exportSvc := export.NewService(export.NewRepo(store), logger)
	systemSvc := system.NewService(system.Deps{
		Store:   store,
		Limits:  s.limiter,
		Events:  events,
		Backups: s.backup,
		Logger:  logger,
	})

	if cfg.DefaultAdminPassword == "" {
		logger.Warn().Msg("DEFAULT_ADMIN_PASSWORD is unset, default administrator not ensured")
	} else if _, err := identitySvc.EnsureDefaultAdmin(ctx, cfg.DefaultAdminPassword); err != nil {
		pool.CloseAll()
		return nil, fmt.Errorf("seed default admin: %w", err)
	}

	// JSON money values are numbers, as the web client expects.
	decimal.MarshalJSONWithoutQuotes = true

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = middleware.NewValidator()
	e.HTTPErrorHandler = middleware.HTTPErrorHandler(logger)

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout, "/api/backup", "/api/export"))
	e.Use(s.limiter.Middleware())
	e.Use(middleware.Sanitize(logger, events))
	e.Use(middleware.AccessLog(logger, identityRepo))

	systemHandler := system.NewHandler(systemSvc)
	systemHandler.RegisterPublic(e)

	api := e.Group("/api", auth.JWTMiddleware(tokens.Config()))
	identity.NewHandler(identitySvc).RegisterRoutes(api)
	aih.NewHandler(aihSvc).RegisterRoutes(api)
	glosa.NewHandler(glosaSvc).RegisterRoutes(api)
	deletion.NewHandler(deletionSvc).RegisterRoutes(api)
	professional.NewHandler(professionalSvc).RegisterRoutes(api)
	export.NewHandler(exportSvc).RegisterRoutes(api)
	systemHandler.RegisterRoutes(api)

	if public != "" {
		e.Static("/", public)
	}

	s.echo = e
	return s, nil
}

// runBackground starts the periodic jobs. They stop when ctx is done.
func (s *server) runBackground(ctx context.Context) {
	if d := s.cfg.CacheSweepInterval; d > 0 {
		go s.store.Cache().Run(ctx, d)
	}
	go s.limiter.Run(5*time.Minute, ctx.Done())
	if d := s.cfg.BackupInterval; d > 0 {
		go s.backup.Schedule(ctx, d)
	}
	if d := s.cfg.MaintenanceInterval; d > 0 {
		go s.maintenance.Schedule(ctx, d)
	}
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.reauth.Sweep()
			}
		}
	}()
}

func runServer(public string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	s, err := newServer(ctx, cfg, logger, public)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to start")
	}
	defer s.pool.CloseAll()
	s.runBackground(ctx)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Bool("tls", cfg.TLSEnabled).Msg("starting server")
		var err error
		if cfg.TLSEnabled {
			err = s.echo.StartTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = s.echo.Start(addr)
		}
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
	if err := db.Checkpoint(shutdownCtx, s.pool, "TRUNCATE"); err != nil {
		logger.Error().Err(err).Msg("final checkpoint failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
