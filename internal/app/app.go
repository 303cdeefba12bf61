package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"go-lms/internal/autherr"
	"go-lms/internal/cache"
	"go-lms/internal/claims"
	"go-lms/internal/config"
	"go-lms/internal/database"
	"go-lms/internal/event"
	"go-lms/internal/handler"
	"go-lms/internal/metrics"
	"go-lms/internal/middleware"
	"go-lms/internal/model"
	"go-lms/internal/platform"
	"go-lms/internal/repository"
	"go-lms/internal/router"
	"go-lms/internal/service"
	"go-lms/internal/session"
)

type App struct {
	server          *http.Server
	lifecycle       *session.Lifecycle
	courseCache     *cache.TTL[string, model.CoursePage]
	cacheSweep      time.Duration
	shutdownTimeout time.Duration
	cleanupFuncs    []func()
}

// New wires the application from an already loaded configuration.
func New(cfg *config.Config) (*App, error) {
	m := metrics.New()

	client, err := platform.New(cfg.PlatformURL, cfg.PlatformAnonKey, &http.Client{Timeout: 15 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize platform client: %w", err)
	}

	slog.Info("connecting to PostgreSQL")
	db, err := database.New(context.Background(), database.Options{
		URL:              cfg.DatabaseURL,
		MaxConns:         cfg.DBMaxConns,
		MinConns:         cfg.DBMinConns,
		StatementTimeout: cfg.RequestTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	cleanup := []func(){db.Close}

	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	slog.Info("database ready")

	durable, closeDurable, err := durableBackend(cfg)
	if err != nil {
		db.Close()
		return nil, err
	}
	cleanup = append(cleanup, closeDurable)

	storage := session.NewAdapter(durable, session.NewMemoryBackend())
	storage.SetRememberMe(cfg.ServiceRememberMe)

	serviceSession := session.NewServiceSession(client, storage, client.ProjectRef(), session.Credentials{
		Email:    cfg.ServiceEmail,
		Password: cfg.ServicePassword,
	})
	monitor := session.NewMonitor(serviceSession,
		session.WithInterval(cfg.TokenCheckInterval),
		session.WithThreshold(cfg.TokenRefreshThreshold),
		session.WithRefreshObserver(m.TokenRefresh),
	)
	interceptor := autherr.New()
	lifecycle := session.NewLifecycle(interceptor, monitor, serviceSession, client, m.SignOut)

	profileRepo := repository.NewProfileRepository(db)
	contentRepo := repository.NewContentRepository(db)
	gamificationRepo := repository.NewGamificationRepository(db)
	resolver := claims.NewResolver(profileRepo, client)
	cleanup = append(cleanup, resolver.Wait)

	authService, err := service.NewAuthService(cfg.PlatformJWTSecret, client)
	if err != nil {
		closeAll(cleanup)
		return nil, fmt.Errorf("failed to initialize auth service: %w", err)
	}

	pageCache := cache.New(
		cache.WithTTL[string, model.CoursePage](cfg.CourseCacheTTL),
		cache.WithObserver[string, model.CoursePage](m.CacheHit, m.CacheMiss),
	)
	courseService := service.NewCourseService(repository.NewCourseQueryFactory(db), contentRepo, interceptor, pageCache)
	streakService := service.NewStreakService(gamificationRepo)
	gamificationService := service.NewGamificationService(gamificationRepo, streakService, m.XPGrant)
	progressService := service.NewProgressService(contentRepo, contentRepo, gamificationService, streakService, interceptor)
	bus := event.NewBus()
	progressService.SetPublisher(bus)
	permissionService := service.NewPermissionService(client, serviceSession, interceptor)
	profileService := service.NewProfileService(profileRepo, resolver, interceptor)
	adminService := service.NewAdminService(contentRepo, resolver, client, serviceSession, interceptor, service.AdminOptions{
		ThumbnailBucket: cfg.ThumbnailBucket,
		ThumbnailSize:   cfg.ThumbnailSize,
		MaxUploadSize:   cfg.MaxUploadSize,
	})

	authMiddleware := middleware.NewAuthMiddleware(authService, resolver)
	appRouter := router.New(cfg, authMiddleware, m, m.Handler(), router.Handlers{
		Auth:     handler.NewAuthHandler(authService),
		Courses:  handler.NewCourseHandler(courseService),
		Progress: handler.NewProgressHandler(progressService),
		Me:       handler.NewMeHandler(profileService, permissionService, gamificationService),
		Admin:    handler.NewAdminHandler(adminService, cfg.MaxUploadSize),
		Health:   handler.NewHealthHandler(db),
		Docs:     handler.NewDocsHandler(nil),
		Events:   handler.NewEventsHandler(bus),
	})

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return &App{
		server:          server,
		lifecycle:       lifecycle,
		courseCache:     pageCache,
		cacheSweep:      cfg.CourseCacheTTL,
		shutdownTimeout: cfg.ShutdownTimeout,
		cleanupFuncs:    cleanup,
	}, nil
}

// durableBackend returns Redis when REDIS_URL is set. Without it the
// "durable" side is process memory, so remember-me survives only until exit.
func durableBackend(cfg *config.Config) (session.Backend, func(), error) {
	if cfg.RedisURL == "" {
		slog.Warn("REDIS_URL not set; service session will not survive restarts")
		return session.NewMemoryBackend(), func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	slog.Info("redis session backend ready")
	return session.NewRedisBackend(client, "lms:session:"), func() { _ = client.Close() }, nil
}

func closeAll(funcs []func()) {
	for i := len(funcs) - 1; i >= 0; i-- {
		funcs[i]()
	}
}

func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.lifecycle.Start(ctx)
	go a.courseCache.StartCleanupTicker(ctx, a.cacheSweep)

	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	err := a.server.Shutdown(shutdownCtx)

	a.lifecycle.Stop()
	// Cleanup runs in reverse so pending claim syncs finish before the pool closes.
	closeAll(a.cleanupFuncs)

	if err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
