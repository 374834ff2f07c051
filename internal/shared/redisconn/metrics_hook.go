package redisconn

import (
	"context"
	"net"

	"github.com/redis/go-redis/v9"
	"github.com/reshetovitsme/relaybot/internal/metrics"
)

// MetricsHook implements redis.Hook to count operations and dial failures.
type MetricsHook struct{}

var _ redis.Hook = (*MetricsHook)(nil)

func (h *MetricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := next(ctx, network, addr)
		if err != nil {
			metrics.RedisConnectionErrors.Inc()
		}
		return conn, err
	}
}

func (h *MetricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		metrics.RedisOpsTotal.WithLabelValues(cmd.Name(), status(err)).Inc()
		return err
	}
}

func (h *MetricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		metrics.RedisOpsTotal.WithLabelValues("pipeline", status(err)).Inc()
		return err
	}
}

func status(err error) string {
	if err != nil && err != redis.Nil {
		return "error"
	}
	return "success"
}
