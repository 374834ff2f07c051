package redisconn

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
)

// Options defines Redis connection and retry behavior.
type Options struct {
	Addr           string
	Password       string
	DB             int
	DialTimeout    time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	ConnectTimeout time.Duration // total time allowed for connection attempts
	RetryInterval  time.Duration // initial wait between retries, doubled each attempt
	MaxWait        time.Duration // cap for the wait between retries
	PingTimeout    time.Duration
}

// DefaultOptions returns the options used when only an address is configured.
func DefaultOptions(addr, password string, db int) Options {
	return Options{
		Addr:           addr,
		Password:       password,
		DB:             db,
		DialTimeout:    5 * time.Second,
		ReadTimeout:    3 * time.Second,
		WriteTimeout:   3 * time.Second,
		ConnectTimeout: 30 * time.Second,
		RetryInterval:  time.Second,
		MaxWait:        10 * time.Second,
		PingTimeout:    2 * time.Second,
	}
}

func (o Options) validate() error {
	switch {
	case o.ConnectTimeout <= 0:
		return oops.With("value", o.ConnectTimeout).Errorf("ConnectTimeout must be > 0")
	case o.RetryInterval <= 0:
		return oops.With("value", o.RetryInterval).Errorf("RetryInterval must be > 0")
	case o.MaxWait <= 0:
		return oops.With("value", o.MaxWait).Errorf("MaxWait must be > 0")
	case o.PingTimeout <= 0:
		return oops.With("value", o.PingTimeout).Errorf("PingTimeout must be > 0")
	}
	return nil
}

// Connect creates a Redis client and pings it with exponential backoff until
// ConnectTimeout is reached.
func Connect(ctx context.Context, opts Options) (*redis.Client, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	})
	client.AddHook(&MetricsHook{})

	ctx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()

	slog.Info("Connecting to redis", "addr", opts.Addr, "timeout", opts.ConnectTimeout)
	wait := opts.RetryInterval

	for attempt := 1; ; attempt++ {
		pingCtx, pingCancel := context.WithTimeout(ctx, opts.PingTimeout)
		err := client.Ping(pingCtx).Err()
		pingCancel()

		if err == nil {
			if attempt > 1 {
				slog.Warn("Connected to redis after retry", "addr", opts.Addr, "attempts", attempt)
			} else {
				slog.Info("Connected to redis", "addr", opts.Addr)
			}
			return client, nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			_ = client.Close()
			return nil, oops.
				With("addr", opts.Addr, "attempts", attempt, "timeout", opts.ConnectTimeout).
				Wrapf(err, "redis unavailable")
		case <-timer.C:
			slog.Warn("Redis connection failed, retrying",
				"addr", opts.Addr,
				"attempt", attempt,
				"next_retry_in", wait,
				"error", err)
			wait *= 2
			if wait > opts.MaxWait {
				wait = opts.MaxWait
			}
		}
	}
}
