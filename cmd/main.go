package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ytempire/api/handler"
	apiMiddleware "ytempire/api/middleware"
	"ytempire/api/routes"
	"ytempire/config"
	"ytempire/internal/entity"
	"ytempire/internal/jobs"
	"ytempire/internal/metrics"
	"ytempire/internal/repository"
	"ytempire/internal/repository/memory"
	"ytempire/internal/service"
	"ytempire/internal/utils"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
)

type stores struct {
	users    repository.UserRepository
	profiles repository.ProfileRepository
	sessions repository.SessionRepository
	audit    repository.AuditLogRepository
	pinger   handler.Pinger
	close    func() error
}

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	logger.SetLevel(cfg.LogLevel)

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.SentryEnvironment,
		}); err != nil {
			logger.WithError(err).Error("sentry init failed")
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hasher := utils.BcryptPasswordHasher{Cost: cfg.BcryptCost}
	st, err := openStores(ctx, cfg, hasher, logger)
	if err != nil {
		logger.WithError(err).Fatal("storage unavailable")
	}
	defer func() {
		if err := st.close(); err != nil {
			logger.WithError(err).Warn("closing storage")
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(registry)

	jwtManager := &utils.JWTManager{
		Secret: []byte(cfg.JWTSecret),
		Issuer: cfg.JWTIssuer,
		TTL:    cfg.JWTTTL,
	}
	authService := service.NewAuthService(
		st.users,
		st.sessions,
		st.audit,
		hasher,
		service.JWTTokenIssuer{Manager: jwtManager, TTL: cfg.JWTTTL},
		appMetrics,
		service.RealClock{},
		service.AuthConfig{TokenTTL: cfg.JWTTTL, RegistrationTypes: registrationTypes(cfg.RegistrationTypes)},
	)
	userService := service.NewUserService(st.users, st.profiles, st.sessions, st.audit)

	validate := handler.NewValidator()
	healthHandler := handler.NewHealthHandler(st.pinger)
	healthHandler.Logger = logger

	app := echo.New()
	app.HideBanner = true
	app.HidePort = true
	app.HTTPErrorHandler = handler.ErrorHandler(logger)
	app.Use(echoMiddleware.Recover())
	app.Use(echoMiddleware.BodyLimit("10M"))
	app.Use(echoMiddleware.CORSWithConfig(echoMiddleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowCredentials: len(cfg.CORSOrigins) > 0,
		AllowHeaders:     []string{echo.HeaderAuthorization, echo.HeaderContentType},
	}))
	app.Use(echoMiddleware.RequestLoggerWithConfig(echoMiddleware.RequestLoggerConfig{
		LogStatus:   true,
		LogMethod:   true,
		LogURI:      true,
		LogRemoteIP: true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echoMiddleware.RequestLoggerValues) error {
			entry := logger.WithFields(logrus.Fields{
				"status":  v.Status,
				"method":  v.Method,
				"uri":     v.URI,
				"ip":      v.RemoteIP,
				"latency": v.Latency.String(),
			})
			if v.Error != nil {
				entry.WithError(v.Error).Error("request")
				return nil
			}
			entry.Info("request")
			return nil
		},
	}))
	app.Use(appMetrics.Middleware())

	authMiddleware := apiMiddleware.AuthMiddleware{Auth: authService, Logger: logger}
	router := routes.NewRouter(
		app,
		handler.NewAuthHandler(authService, validate),
		handler.NewUserHandler(userService, validate),
		healthHandler,
		authMiddleware,
	)
	router.Metrics = appMetrics.Handler()
	router.TrustedProxies = cfg.TrustedProxies
	router.RegisterRoutes()

	sweeper := jobs.NewSessionSweeper(st.sessions, logger)
	sweeper.Retention = cfg.SessionRetention
	if err := sweeper.Start(cfg.SweepSchedule); err != nil {
		logger.WithError(err).Fatal("invalid SESSION_SWEEP_SCHEDULE")
	}

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.WithFields(logrus.Fields{"addr": cfg.HTTPAddr, "store": cfg.StoreDriver}).Info("server started")
		if err := app.StartServer(server); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("server shutdown error")
	}
	sweeper.Stop(shutdownCtx)
	logger.Info("server stopped")
}

func registrationTypes(names []string) []entity.AccountType {
	types := make([]entity.AccountType, 0, len(names))
	for _, name := range names {
		types = append(types, entity.AccountType(name))
	}
	return types
}

func openStores(ctx context.Context, cfg *config.Config, hasher utils.PasswordHasher, logger *logrus.Logger) (*stores, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		logger.Warn("using in-memory store; data is lost on exit")
		store := memory.NewStore(hasher)
		return &stores{
			users:    store.Users(),
			profiles: store.Profiles(),
			sessions: store.Sessions(),
			audit:    store.AuditLogs(),
			close:    func() error { return nil },
		}, nil
	}

	db, err := config.ConnectionDb(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	timeout := cfg.DBQueryTimeout
	return &stores{
		users:    repository.NewUserRepository(db, hasher, timeout),
		profiles: repository.NewProfileRepository(db, timeout),
		sessions: repository.NewSessionRepository(db, timeout),
		audit:    repository.NewAuditLogRepository(db, timeout),
		pinger:   sqlDB,
		close:    sqlDB.Close,
	}, nil
}
