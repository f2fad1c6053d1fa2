package routes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/nomad-pass/nomad_pass/internal/auth"
	"github.com/nomad-pass/nomad_pass/internal/config"
	"github.com/nomad-pass/nomad_pass/internal/events"
	"github.com/nomad-pass/nomad_pass/internal/middleware"
	"github.com/nomad-pass/nomad_pass/internal/registry"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes, and provisions
// the bootstrap administrator from configuration.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.Env)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.Env)
		}
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	// Health
	RegisterHealthRoutes(app, d)

	// Stores and services
	var repo registry.Repository
	var operatorRepo auth.Repository
	if d.DB != nil {
		repo = registry.NewPostgresRepository(d.DB)
		operatorRepo = auth.NewPostgresRepository(d.DB)
	} else {
		repo = registry.NewMemoryRepository()
		operatorRepo = auth.NewMemoryRepository()
	}

	var publisher events.Publisher
	if d.Cache != nil {
		publisher = events.NewRedisPublisher(d.Cache, d.Cfg.EventChannel)
	} else {
		publisher = events.NewLoggerPublisher(d.Logger)
	}

	reg := registry.NewService(repo, publisher)
	authSvc := auth.NewService(d.Cfg, operatorRepo)

	if err := bootstrapAdmin(context.Background(), d.Cfg, reg, authSvc); err != nil {
		return err
	}

	registryHandler := registry.NewHandler(reg)
	authHandler := auth.NewHandler(authSvc)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public routes
	rateLimiter := middleware.LoginRateLimit(d.Cache, 5)
	api.Post("/auth/login", rateLimiter, authHandler.Login)
	RegisterRegistryReadRoutes(api, registryHandler)

	// Protected routes
	authmw := middleware.Auth(authSvc, reg)
	protected := api.Group("", authmw)
	RegisterRegistryWriteRoutes(protected, registryHandler)
	protected.Post("/operators", authHandler.Provision)

	return nil
}

// bootstrapAdmin grants the configured bootstrap address the admin role and
// provisions its operator credentials if missing. No-ops once applied.
func bootstrapAdmin(ctx context.Context, cfg config.Config, reg *registry.Service, authSvc *auth.Service) error {
	if cfg.AdminAddress == "" {
		return nil
	}
	if err := reg.EnsureAdmin(ctx, cfg.AdminAddress); err != nil {
		return fmt.Errorf("bootstrap admin role: %w", err)
	}
	if cfg.AdminSecret == "" {
		return nil
	}
	_, err := authSvc.Provision(ctx, auth.Credentials{Address: cfg.AdminAddress, Secret: cfg.AdminSecret})
	if err != nil && !errors.Is(err, auth.ErrOperatorExists) {
		return fmt.Errorf("bootstrap admin operator: %w", err)
	}
	return nil
}
