package service

import (
	"context"
	"log/slog"

	"github.com/jonboulle/clockwork"
	"github.com/reshetovitsme/relaybot/internal/metrics"
	"github.com/reshetovitsme/relaybot/internal/modules/notification/domain"
	"github.com/samber/oops"
)

// Service batches cards for the sink and records what was delivered.
type Service struct {
	sink    Sink
	journal *Journal
	clock   clockwork.Clock
}

func New(sink Sink, journal *Journal, clock clockwork.Clock) *Service {
	return &Service{
		sink:    sink,
		journal: journal,
		clock:   clock,
	}
}

func (s *Service) Journal() *Journal {
	return s.journal
}

// Deliver sends cards to channelID in batches of domain.MaxCardsPerMessage.
// Every batch is attempted; the first error is returned.
func (s *Service) Deliver(ctx context.Context, communityID string, channelID int64, cards []domain.Card, prefix string) error {
	var firstErr error
	for _, batch := range domain.Batch(cards) {
		if err := s.sink.SendNotification(ctx, channelID, batch, prefix); err != nil {
			metrics.CardsDelivered.WithLabelValues("error").Add(float64(len(batch)))
			slog.ErrorContext(ctx, "Failed to deliver notification batch",
				"community_id", communityID,
				"channel_id", channelID,
				"cards", len(batch),
				"error", err)
			if firstErr == nil {
				firstErr = oops.With("community_id", communityID, "channel_id", channelID).Wrap(err)
			}
			continue
		}
		metrics.CardsDelivered.WithLabelValues("ok").Add(float64(len(batch)))
		s.journal.Record(communityID, s.clock.Now(), batch...)
	}
	return firstErr
}
