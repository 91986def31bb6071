package main

import (
	"blurrer/api/rest"
	"blurrer/config"
	"blurrer/converter"
	_ "blurrer/converter/native"
	"blurrer/service"
	"blurrer/shared/log"
	"blurrer/shared/trace"
	"blurrer/storage"
	"context"
	"github.com/gofiber/contrib/fiberzap/v2"
	"github.com/gofiber/contrib/otelfiber/v2"
	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/etag"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/hyperdxio/otel-config-go/otelconfig"
	"go.uber.org/zap"
	"log/slog"
	"time"
)

//	@title			Blur service
//	@version		1.0
//	@description	Gaussian blur over HTTP, for base64 bodies and multipart uploads

// @BasePath	/
func main() {
	serviceConfig := config.New()

	ctx := context.Background()

	if serviceConfig.OTLPEnabled {
		otelShutdown, err := otelconfig.ConfigureOpenTelemetry()
		if err != nil {
			slog.Error("Error configuring OpenTelemetry", "error", err)
		} else {
			defer otelShutdown()
		}
	} else {
		tp, err := trace.InitTrace(serviceConfig.TraceStdout)
		if err != nil {
			slog.Error("Error creating tracer provider", "error", err)
		} else {
			defer func() {
				if err := tp.Shutdown(ctx); err != nil {
					slog.Error("Error shutting down tracer provider", "error", err)
				}
			}()
		}
	}

	logger := log.InitLogger(ctx, serviceConfig.LogLevel, serviceConfig.OTLPEnabled)
	defer func() {
		_ = logger.Sync()
	}()

	engine, err := converter.New(serviceConfig.Engine, logger, converter.Options{
		JPEGQuality: serviceConfig.JPEGQuality,
		WebPQuality: serviceConfig.WebPQuality,
	})
	if err != nil {
		logger.Fatal("Failed to create blur engine", zap.Error(err))
	}

	spool, err := storage.NewSpool(serviceConfig.TempDir, logger)
	if err != nil {
		logger.Fatal("Failed to prepare temp dir", zap.String("dir", serviceConfig.TempDir), zap.Error(err))
	}
	if removed, err := spool.Cleanup(time.Hour); err != nil {
		logger.Warn("Temp dir cleanup failed", zap.Error(err))
	} else if removed > 0 {
		logger.Info("Removed stale temp files", zap.Int("count", removed))
	}

	opts, closeCollaborators := collaborators(ctx, serviceConfig, logger)
	defer closeCollaborators()

	blurService, err := service.NewBlurService(serviceConfig, engine, spool, logger, opts...)
	if err != nil {
		logger.Fatal("Failed to create blur service", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		AppName:      serviceConfig.AppName,
		BodyLimit:    serviceConfig.BodyLimit(),
		ErrorHandler: rest.ErrorHandler(logger),
	})
	app.Use(
		recover.New(),
		requestid.New(),
		otelfiber.Middleware(),
		fiberzap.New(fiberzap.Config{Logger: logger, Fields: []string{"requestId", "latency", "status", "method", "url"}}),
		compress.New(compress.Config{Level: compress.LevelBestSpeed}),
		etag.New(),
		limiter.New(limiter.Config{
			Next: func(c *fiber.Ctx) bool {
				return c.IP() == "127.0.0.1"
			},
			Max:        serviceConfig.RateLimitMaxRequests,
			Expiration: serviceConfig.RateLimitDuration,
		}),
		swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: "./docs/swagger.json",
			Path:     "docs",
			Title:    "Blur service",
		}),
	)

	rest.NewBlurController(app, serviceConfig, blurService, logger)

	logger.Info("Starting blur service", zap.String("engine", engine.Name()), zap.String("port", serviceConfig.Port))
	if err = app.Listen(":" + serviceConfig.Port); err != nil {
		logger.Panic(err.Error())
		return
	}
}

// collaborators connects the optional cache, archive and journal. A backend
// that cannot be reached at startup is skipped, not fatal.
func collaborators(ctx context.Context, cfg *config.Config, logger *zap.Logger) ([]service.Option, func()) {
	var (
		opts    []service.Option
		closers []func()
	)

	if cfg.Dragonfly.Enabled() {
		client := service.NewDragonflyClient(cfg.Dragonfly)
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("Dragonfly unavailable, caching disabled", zap.String("addr", cfg.Dragonfly.Addr()), zap.Error(err))
		} else {
			opts = append(opts, service.WithCache(service.NewRedisCache(client, cfg.CacheTTL)))
			closers = append(closers, func() { _ = client.Close() })
		}
	}

	if cfg.S3.Enabled() {
		client, err := service.NewS3Client(cfg.S3)
		if err != nil {
			logger.Warn("S3 unavailable, archive disabled", zap.Error(err))
		} else {
			opts = append(opts, service.WithArchive(service.NewS3Archive(client, cfg.S3)))
		}
	}

	if cfg.Mongo.Enabled() {
		journal, err := service.NewMongoJournal(cfg.Mongo)
		if err != nil {
			logger.Warn("Mongo unavailable, journal disabled", zap.Error(err))
		} else {
			opts = append(opts, service.WithJournal(journal))
			closers = append(closers, func() {
				if err := journal.Close(context.Background()); err != nil {
					logger.Warn("Failed to disconnect from Mongo", zap.Error(err))
				}
			})
		}
	}

	return opts, func() {
		for _, c := range closers {
			c()
		}
	}
}
