package ticker

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/reshetovitsme/relaybot/internal/shared/logging"
)

// Run calls fn once immediately and then on every interval until ctx is done.
// Each call gets its own tick id in the context.
func Run(ctx context.Context, clock clockwork.Clock, interval time.Duration, fn func(ctx context.Context)) {
	fn(logging.WithTick(ctx))

	t := clock.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.Chan():
			fn(logging.WithTick(ctx))
		}
	}
}
