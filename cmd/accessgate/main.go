package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/accessgate/accessgate/internal/access"
	"github.com/accessgate/accessgate/internal/app"
	"github.com/accessgate/accessgate/internal/assignments"
	"github.com/accessgate/accessgate/internal/catalog"
	"github.com/accessgate/accessgate/internal/grants"
	"github.com/accessgate/accessgate/internal/identity"
	"github.com/accessgate/accessgate/internal/mock"
	"github.com/accessgate/accessgate/internal/observability"
	"github.com/accessgate/accessgate/internal/platform/cache"
	"github.com/accessgate/accessgate/internal/platform/db"
	"github.com/accessgate/accessgate/internal/roles"
	"github.com/accessgate/accessgate/internal/shared"
)

// elementCatalog adapts the catalog service to the decision engine.
type elementCatalog struct {
	elements *catalog.Service
}

func (c elementCatalog) ElementBySlug(ctx context.Context, slug string) (access.ElementRef, error) {
	elem, err := c.elements.ElementBySlug(ctx, slug)
	if err != nil {
		return access.ElementRef{}, err
	}
	return access.ElementRef{ID: elem.ID, Slug: elem.Slug}, nil
}

// grantMatrix adapts the grants service to the decision engine.
type grantMatrix struct {
	grants *grants.Service
}

func (g grantMatrix) Grant(ctx context.Context, elementID int64, role roles.Role) (access.Capabilities, error) {
	grant, err := g.grants.Grant(ctx, elementID, role)
	if err != nil {
		return access.Capabilities{}, err
	}
	return access.Capabilities{
		List:          grant.Capabilities.List,
		Create:        grant.Capabilities.Create,
		Retrieve:      grant.Capabilities.Retrieve,
		Update:        grant.Capabilities.Update,
		PartialUpdate: grant.Capabilities.PartialUpdate,
		Delete:        grant.Capabilities.Delete,
	}, nil
}

// principalSource adapts the identity service to the decision middleware.
type principalSource struct {
	users *identity.Service
}

func (p principalSource) PrincipalByID(ctx context.Context, id int64) (access.Principal, error) {
	user, err := p.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// userDirectory adapts the identity service to assignment management.
type userDirectory struct {
	users *identity.Service
}

func (d userDirectory) UserByEmail(ctx context.Context, email string) (assignments.UserRef, error) {
	user, err := d.users.GetByEmail(ctx, email)
	if err != nil {
		return assignments.UserRef{}, err
	}
	return assignments.UserRef{ID: user.ID, Email: user.Email, Active: user.IsActive}, nil
}

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "accessgate_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	metrics := observability.NewMetrics()

	identityRepo := identity.NewRepository(dbpool)
	identityService := identity.NewService(identityRepo, sessionManager)

	catalogRepo := catalog.NewRepository(dbpool)
	catalogService := catalog.NewService(catalogRepo)

	grantsRepo := grants.NewRepository(dbpool)
	grantsService := grants.NewService(grantsRepo, catalogService)

	assignmentsRepo := assignments.NewRepository(dbpool)
	assignmentsService := assignments.NewService(assignmentsRepo, userDirectory{users: identityService})

	engine := access.NewEngine(elementCatalog{elements: catalogService}, grantMatrix{grants: grantsService}, assignmentsService)
	accessMiddleware := access.Middleware{
		Engine:     engine,
		Principals: principalSource{users: identityService},
		Logger:     logger,
		Observer:   metrics,
	}

	identityHandler := identity.NewHandler(logger, identityService, sessionManager, csrfManager, accessMiddleware)
	catalogHandler := catalog.NewHandler(logger, catalogService, accessMiddleware)
	grantsHandler := grants.NewHandler(logger, grantsService, accessMiddleware)
	assignmentsHandler := assignments.NewHandler(logger, assignmentsService, accessMiddleware)
	mockHandler := mock.NewHandler(accessMiddleware)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		CSRFManager:        csrfManager,
		IdentityHandler:    identityHandler,
		CatalogHandler:     catalogHandler,
		GrantsHandler:      grantsHandler,
		AssignmentsHandler: assignmentsHandler,
		MockHandler:        mockHandler,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
