package service

import (
	"context"

	"github.com/reshetovitsme/relaybot/internal/modules/notification/domain"
)

// Sink delivers notification cards to an output channel. Delivery is
// fire-and-forget; ordering is left to the platform.
type Sink interface {
	SendNotification(ctx context.Context, channelID int64, cards []domain.Card, prefix string) error
}

// Display keeps a set of cards visible under a stable key, replacing what was
// shown for that key on the previous call.
type Display interface {
	Show(ctx context.Context, channelID int64, key string, cards []domain.Card) error
}
