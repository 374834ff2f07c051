package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-telegram/bot"
	"github.com/reshetovitsme/relaybot/internal/di"
	directoryService "github.com/reshetovitsme/relaybot/internal/modules/directory/service"
	mediaService "github.com/reshetovitsme/relaybot/internal/modules/media/service"
	voiceService "github.com/reshetovitsme/relaybot/internal/modules/voice/service"
	"github.com/reshetovitsme/relaybot/internal/shared/config"
	"github.com/reshetovitsme/relaybot/internal/shared/logging"
	httpServer "github.com/reshetovitsme/relaybot/internal/transport/http"
	"github.com/samber/do/v2"
)

func main() {
	logging.Setup(os.Getenv("LOG_LEVEL"))

	injector, err := di.Setup()
	if err != nil {
		slog.Error("Failed to setup dependency injection", "error", err)
		os.Exit(1)
	}

	cfg, err := do.Invoke[*config.Config](injector)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	b, err := do.Invoke[*bot.Bot](injector)
	if err != nil {
		slog.Error("Failed to create telegram bot", "error", err)
		os.Exit(1)
	}
	scheduler := do.MustInvoke[*mediaService.Scheduler](injector)
	directoryWatcher := do.MustInvoke[*directoryService.Watcher](injector)
	voiceWatcher := do.MustInvoke[*voiceService.Watcher](injector)
	server := do.MustInvoke[*httpServer.Server](injector)

	go b.Start(ctx)
	scheduler.Start()
	directoryWatcher.Start()
	voiceWatcher.Start()

	go func() {
		if err := server.Start(); err != nil {
			slog.Error("Failed to start HTTP server", "error", err)
			cancel()
		}
	}()

	slog.Info("Application started", "port", cfg.HTTPPort, "watermarks", cfg.WatermarkBackend)

	<-ctx.Done()
	slog.Info("Shutting down...")

	if err := di.Shutdown(injector); err != nil {
		slog.Error("Error during shutdown", "error", err)
	}
}
