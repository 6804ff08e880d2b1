package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Abraxas-365/identity-core/pkg/config"
	"github.com/Abraxas-365/identity-core/pkg/errx"
	"github.com/Abraxas-365/identity-core/pkg/identity/session/sessionsrv"
	"github.com/Abraxas-365/identity-core/pkg/logx"
	"github.com/Abraxas-365/identity-core/pkg/ratelimit"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

func main() {
	cfg := config.Load()

	switch cfg.LogLevel {
	case "debug":
		logx.SetLevel(logx.LevelDebug)
	case "warn":
		logx.SetLevel(logx.LevelWarn)
	case "error":
		logx.SetLevel(logx.LevelError)
	default:
		logx.SetLevel(logx.LevelInfo)
	}

	logx.Info("starting identity-core server")

	container := NewContainer(cfg)
	defer container.Cleanup()

	app := fiber.New(fiber.Config{
		AppName:               "identity-core",
		DisableStartupMessage: true,
		ErrorHandler:          globalErrorHandler,
		IdleTimeout:           120,
	})

	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(requestid.New(requestid.Config{Header: "X-Request-ID"}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     getCORSOrigins(),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Request-ID",
		AllowMethods:     "GET, POST, PUT, DELETE, PATCH, OPTIONS",
		AllowCredentials: true,
		ExposeHeaders:    "X-Request-ID",
	}))
	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path} | ${ip} | ${reqHeader:X-Request-ID}\n",
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(ratelimit.Middleware(container.Identity.RateLimiter))

	app.Get("/health", healthCheckHandler(container))

	// Session resolution runs globally: every handler downstream can read
	// sessionsrv.GetAuthContext(c), and RequireUser/RequireAdmin enforce it
	// selectively per route group.
	app.Use(container.Identity.SessionMiddleware.Resolve())

	container.Identity.OAuthHandlers.RegisterRoutes(app)
	container.Identity.SSOHandlers.RegisterRoutes(app)

	admin := app.Group("/", sessionsrv.RequireAdmin())
	container.Identity.ClientHandlers.RegisterRoutes(admin)
	container.Identity.AdminHandlers.RegisterRoutes(admin)

	app.Use(notFoundHandler)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	container.StartBackgroundServices(ctx)

	startServer(app, cfg.Port)
}

func healthCheckHandler(container *Container) fiber.Handler {
	return func(c *fiber.Ctx) error {
		health := fiber.Map{"status": "healthy", "service": "identity-core"}
		if err := container.DB.Ping(); err != nil {
			health["status"] = "degraded"
			health["db"] = "unhealthy"
			return c.Status(fiber.StatusServiceUnavailable).JSON(health)
		}
		health["db"] = "healthy"
		return c.JSON(health)
	}
}

func notFoundHandler(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error":      "route not found",
		"path":       c.Path(),
		"request_id": c.Get("X-Request-ID"),
	})
}

func globalErrorHandler(c *fiber.Ctx, err error) error {
	logx.WithFields(map[string]interface{}{
		"path":       c.Path(),
		"method":     c.Method(),
		"ip":         c.IP(),
		"request_id": c.Get("X-Request-ID"),
	}).WithError(err).Error("request error")

	if e, ok := err.(*fiber.Error); ok {
		return c.Status(e.Code).JSON(fiber.Map{"error": e.Message})
	}

	if e, ok := err.(*errx.Error); ok {
		resp := fiber.Map{
			"error":   e.Message,
			"code":    e.Code,
			"type":    string(e.Type),
			"details": e.Details,
		}
		return c.Status(e.HTTPStatus).JSON(resp)
	}

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
}

func getCORSOrigins() string {
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		return v
	}
	return "*"
}

func startServer(app *fiber.App, port string) {
	go func() {
		logx.Infof("listening on port %s", port)
		if err := app.Listen(":" + port); err != nil {
			logx.Fatalf("server error: %v", err)
		}
	}()
	gracefulShutdown(app)
}

func gracefulShutdown(app *fiber.App) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	logx.Infof("received signal: %v", sig)
	logx.Info("shutting down gracefully")

	if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
		logx.Errorf("server forced to shutdown: %v", err)
	}
	logx.Info("server exited successfully")
}
