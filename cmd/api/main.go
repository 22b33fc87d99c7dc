package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/campaign-vault/backend/internal/app"
	"github.com/campaign-vault/backend/internal/config"
	apphttp "github.com/campaign-vault/backend/internal/http"
	"github.com/campaign-vault/backend/internal/http/dto"
	"github.com/campaign-vault/backend/internal/http/handlers"
	"github.com/campaign-vault/backend/internal/ingest"
	"github.com/campaign-vault/backend/internal/middleware"
	"github.com/campaign-vault/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := cfg.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := cfg.Validate(log); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to initialise dependencies", zap.Error(err))
	}
	defer deps.Close()

	// Services
	campaignService := services.NewCampaignService(deps.Store, deps.Publisher, log)
	contactService := services.NewContactService(deps.Store, deps.Codec, log)
	pipeline := ingest.NewPipeline(deps.Store, deps.Codec, deps.Mapper, deps.Publisher, ingest.Options{
		MaxBytes: cfg.MaxUploadBytes,
		MaxRows:  cfg.MaxUploadRows,
	}, log)

	// Handlers
	authHandler := handlers.NewAuthHandler(cfg, log)
	campaignHandler := handlers.NewCampaignHandler(campaignService, pipeline, cfg.MaxUploadBytes, log)
	contactHandler := handlers.NewContactHandler(contactService, log)
	metaHandler := handlers.NewMetaHandler(deps.Mapper)
	wsHub := handlers.NewWSHub(cfg.JWTSecret, deps.Subscriber, log)

	// Start WS hub
	if err := wsHub.Start(ctx); err != nil {
		log.Fatal("failed to subscribe to campaign events", zap.Error(err))
	}

	// Fiber app
	server := fiber.New(fiber.Config{
		// multipart overhead on top of the file itself
		BodyLimit: cfg.MaxUploadBytes + 1<<20,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
			if code >= fiber.StatusInternalServerError {
				log.Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
			}
			return c.Status(code).JSON(dto.ErrorResponse{
				Error:     err.Error(),
				RequestID: middleware.GetRequestID(c),
			})
		},
	})

	apphttp.SetupRouter(server, cfg, log, deps.Redis, authHandler, campaignHandler, contactHandler, metaHandler, wsHub)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = server.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server",
		zap.String("addr", addr),
		zap.String("storage", cfg.StorageDriver),
		zap.Bool("redis", deps.Redis != nil),
	)
	if err := server.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
