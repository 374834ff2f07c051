package di

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-telegram/bot"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	communityRepo "github.com/reshetovitsme/relaybot/internal/modules/community/repository"
	communityService "github.com/reshetovitsme/relaybot/internal/modules/community/service"
	directoryService "github.com/reshetovitsme/relaybot/internal/modules/directory/service"
	feedService "github.com/reshetovitsme/relaybot/internal/modules/feed/service"
	mediaDomain "github.com/reshetovitsme/relaybot/internal/modules/media/domain"
	"github.com/reshetovitsme/relaybot/internal/modules/media/platform/trovo"
	"github.com/reshetovitsme/relaybot/internal/modules/media/platform/twitch"
	"github.com/reshetovitsme/relaybot/internal/modules/media/platform/youtube"
	mediaRepo "github.com/reshetovitsme/relaybot/internal/modules/media/repository"
	mediaService "github.com/reshetovitsme/relaybot/internal/modules/media/service"
	notificationService "github.com/reshetovitsme/relaybot/internal/modules/notification/service"
	operatorRepo "github.com/reshetovitsme/relaybot/internal/modules/operator/repository"
	operatorService "github.com/reshetovitsme/relaybot/internal/modules/operator/service"
	"github.com/reshetovitsme/relaybot/internal/modules/voice/query"
	voiceService "github.com/reshetovitsme/relaybot/internal/modules/voice/service"
	"github.com/reshetovitsme/relaybot/internal/shared/config"
	"github.com/reshetovitsme/relaybot/internal/shared/redisconn"
	httpServer "github.com/reshetovitsme/relaybot/internal/transport/http"
	"github.com/reshetovitsme/relaybot/internal/transport/telegram"
	"github.com/samber/do/v2"
	"github.com/samber/oops"
	"golang.org/x/time/rate"
)

const (
	httpClientTimeout = 20 * time.Second
	journalSize       = 200
	shutdownTimeout   = 10 * time.Second
)

// Setup initializes the dependency injection container
func Setup() (do.Injector, error) {
	injector := do.New()

	do.Provide(injector, func(i do.Injector) (*config.Config, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, oops.With("context", "failed to load config").Wrap(err)
		}
		return cfg, nil
	})

	do.Provide(injector, func(i do.Injector) (clockwork.Clock, error) {
		return clockwork.NewRealClock(), nil
	})

	do.Provide(injector, func(i do.Injector) (*http.Client, error) {
		return &http.Client{Timeout: httpClientTimeout}, nil
	})

	// Repositories

	do.Provide(injector, func(i do.Injector) (communityRepo.Repository, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo, err := communityRepo.NewFileStorage(cfg.StoragePath)
		if err != nil {
			return nil, oops.With("storage_path", cfg.StoragePath, "context", "failed to initialize community repository").Wrap(err)
		}
		return repo, nil
	})

	do.Provide(injector, func(i do.Injector) (operatorRepo.Repository, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo, err := operatorRepo.NewFileStorage(cfg.StoragePath)
		if err != nil {
			return nil, oops.With("storage_path", cfg.StoragePath, "context", "failed to initialize operator repository").Wrap(err)
		}
		return repo, nil
	})

	do.Provide(injector, func(i do.Injector) (*redis.Client, error) {
		cfg := do.MustInvoke[*config.Config](i)
		client, err := redisconn.Connect(context.Background(), redisconn.DefaultOptions(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB))
		if err != nil {
			return nil, oops.With("context", "failed to connect to redis").Wrap(err)
		}
		return client, nil
	})

	do.Provide(injector, func(i do.Injector) (mediaRepo.Repository, error) {
		cfg := do.MustInvoke[*config.Config](i)
		switch cfg.WatermarkBackend {
		case config.WatermarkBackendRedis:
			client, err := do.Invoke[*redis.Client](i)
			if err != nil {
				return nil, err
			}
			return mediaRepo.NewRedisStorage(client), nil
		default:
			repo, err := mediaRepo.NewFileStorage(cfg.StoragePath)
			if err != nil {
				return nil, oops.With("storage_path", cfg.StoragePath, "context", "failed to initialize watermark repository").Wrap(err)
			}
			return repo, nil
		}
	})

	// Domain services

	do.Provide(injector, func(i do.Injector) (*communityService.Service, error) {
		return communityService.New(do.MustInvoke[communityRepo.Repository](i)), nil
	})

	do.Provide(injector, func(i do.Injector) (*operatorService.Service, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo := do.MustInvoke[operatorRepo.Repository](i)
		return operatorService.New(repo, cfg.AllowedUsers, do.MustInvoke[clockwork.Clock](i)), nil
	})

	do.Provide(injector, func(i do.Injector) (mediaService.Registry, error) {
		return newRegistry(i), nil
	})

	do.Provide(injector, func(i do.Injector) (*notificationService.Journal, error) {
		return notificationService.NewJournal(journalSize), nil
	})

	do.Provide(injector, func(i do.Injector) (*directoryService.Cache, error) {
		cfg := do.MustInvoke[*config.Config](i)
		var source directoryService.Source
		src, err := directoryService.NewHTTPSource(cfg.DirectoryURL, cfg.DirectoryLogin, cfg.DirectoryPassword, do.MustInvoke[*http.Client](i))
		if err != nil {
			slog.Warn("Server directory disabled", "error", err)
			source = directoryService.DisabledSource{Err: err}
		} else {
			source = src
		}
		return directoryService.NewCache(source, do.MustInvoke[clockwork.Clock](i), cfg.DirectoryTTLPeriod()), nil
	})

	do.Provide(injector, func(i do.Injector) (*voiceService.Manager, error) {
		return voiceService.NewManager(query.TS3Dialer{Timeout: query.DefaultTimeout}, voiceService.DefaultManagerConfig()), nil
	})

	do.Provide(injector, func(i do.Injector) (*feedService.Service, error) {
		communities := do.MustInvoke[*communityService.Service](i)
		return feedService.New(communities, do.MustInvoke[*notificationService.Journal](i)), nil
	})

	// Telegram

	do.Provide(injector, func(i do.Injector) (*telegram.Handler, error) {
		return telegram.New(
			do.MustInvoke[*config.Config](i),
			do.MustInvoke[*operatorService.Service](i),
			do.MustInvoke[*communityService.Service](i),
			do.MustInvoke[mediaService.Registry](i),
			do.MustInvoke[*directoryService.Cache](i),
			do.MustInvoke[*voiceService.Manager](i),
		), nil
	})

	do.Provide(injector, func(i do.Injector) (*bot.Bot, error) {
		cfg := do.MustInvoke[*config.Config](i)
		handler := do.MustInvoke[*telegram.Handler](i)

		opts := []bot.Option{
			bot.WithDefaultHandler(handler.HandleUpdate),
			bot.WithServerURL(cfg.TelegramAPIURL),
		}

		b, err := bot.New(cfg.TelegramBotToken, opts...)
		if err != nil {
			return nil, oops.With("context", "failed to create telegram bot").Wrap(err)
		}
		handler.RegisterCommands(b)
		return b, nil
	})

	// Announcements and status boards share one send budget.
	do.Provide(injector, func(i do.Injector) (*rate.Limiter, error) {
		return telegram.NewLimiter(do.MustInvoke[*config.Config](i).SendRate), nil
	})

	do.Provide(injector, func(i do.Injector) (*telegram.Notifier, error) {
		return telegram.NewNotifier(do.MustInvoke[*bot.Bot](i), do.MustInvoke[*rate.Limiter](i)), nil
	})

	do.Provide(injector, func(i do.Injector) (*telegram.Display, error) {
		return telegram.NewDisplay(do.MustInvoke[*bot.Bot](i), do.MustInvoke[*rate.Limiter](i)), nil
	})

	do.Provide(injector, func(i do.Injector) (*notificationService.Service, error) {
		return notificationService.New(
			do.MustInvoke[*telegram.Notifier](i),
			do.MustInvoke[*notificationService.Journal](i),
			do.MustInvoke[clockwork.Clock](i),
		), nil
	})

	// Pollers

	do.Provide(injector, func(i do.Injector) (*mediaService.Scheduler, error) {
		cfg := do.MustInvoke[*config.Config](i)
		schedulerCfg := mediaService.SchedulerConfig{
			Interval:     cfg.MediaPeriod(),
			FetchTimeout: cfg.FetchDeadline(),
			Concurrency:  cfg.FetchConcurrency,
		}
		return mediaService.NewScheduler(
			schedulerCfg,
			do.MustInvoke[mediaService.Registry](i),
			do.MustInvoke[*communityService.Service](i),
			do.MustInvoke[*notificationService.Service](i),
			do.MustInvoke[clockwork.Clock](i),
		), nil
	})

	do.Provide(injector, func(i do.Injector) (*directoryService.Watcher, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return directoryService.NewWatcher(
			do.MustInvoke[*directoryService.Cache](i),
			do.MustInvoke[*communityService.Service](i),
			do.MustInvoke[*telegram.Display](i),
			do.MustInvoke[clockwork.Clock](i),
			cfg.DirectoryPeriod(),
			cfg.FetchDeadline(),
		), nil
	})

	do.Provide(injector, func(i do.Injector) (*voiceService.Watcher, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return voiceService.NewWatcher(
			do.MustInvoke[*voiceService.Manager](i),
			do.MustInvoke[*communityService.Service](i),
			do.MustInvoke[*telegram.Display](i),
			do.MustInvoke[clockwork.Clock](i),
			cfg.VoicePeriod(),
		), nil
	})

	do.Provide(injector, func(i do.Injector) (*httpServer.Server, error) {
		cfg := do.MustInvoke[*config.Config](i)
		server := httpServer.New(cfg, do.MustInvoke[*feedService.Service](i))
		server.SetLogger(slog.Default())
		return server, nil
	})

	return injector, nil
}

// newRegistry builds one adapter per platform. An adapter whose credentials
// are missing is still registered, disabled, so /status can report it.
func newRegistry(i do.Injector) mediaService.Registry {
	cfg := do.MustInvoke[*config.Config](i)
	clock := do.MustInvoke[clockwork.Clock](i)
	client := do.MustInvoke[*http.Client](i)
	repo := do.MustInvoke[mediaRepo.Repository](i)

	var registry mediaService.Registry
	add := func(fetcher mediaService.Fetcher, err error) {
		adapter := mediaService.NewAdapter(fetcher, repo, clock, mediaDomain.DefaultRingSize)
		if err != nil {
			adapter.Disable(err)
		}
		registry = append(registry, adapter)
	}

	yt, err := youtube.NewFromKey(context.Background(), cfg.YoutubeAPIKey, client, clock)
	if err != nil {
		add(youtube.New(nil, nil, clock), err)
	} else {
		add(yt, nil)
	}

	tw, err := twitch.NewFromCredentials(cfg.TwitchClientID, cfg.TwitchClientSecret, client)
	if err != nil {
		add(twitch.New(nil), err)
	} else {
		add(tw, nil)
	}

	tr, err := trovo.NewFromClientID(cfg.TrovoClientID, client)
	if err != nil {
		add(trovo.New(nil), err)
	} else {
		add(tr, nil)
	}

	return registry
}

// Shutdown gracefully shuts down all services
func Shutdown(injector do.Injector) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if scheduler, err := do.Invoke[*mediaService.Scheduler](injector); err == nil {
		scheduler.Stop()
	}
	if watcher, err := do.Invoke[*directoryService.Watcher](injector); err == nil {
		watcher.Stop()
	}
	if watcher, err := do.Invoke[*voiceService.Watcher](injector); err == nil {
		watcher.Stop()
	}
	if server, err := do.Invoke[*httpServer.Server](injector); err == nil {
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("HTTP server shutdown failed", "error", err)
		}
	}
	cfg, err := do.Invoke[*config.Config](injector)
	if err == nil && cfg.WatermarkBackend == config.WatermarkBackendRedis {
		if client, err := do.Invoke[*redis.Client](injector); err == nil {
			_ = client.Close()
		}
	}
	return nil
}
