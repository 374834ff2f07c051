package telegram

import (
	"context"
	"errors"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	notification "github.com/reshetovitsme/relaybot/internal/modules/notification/domain"
	apperrors "github.com/reshetovitsme/relaybot/internal/shared/errors"
	"github.com/samber/oops"
	"golang.org/x/time/rate"
)

// Messenger is the part of the bot API used for output.
type Messenger interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	EditMessageText(ctx context.Context, params *bot.EditMessageTextParams) (*models.Message, error)
	DeleteMessage(ctx context.Context, params *bot.DeleteMessageParams) (bool, error)
}

// NewLimiter paces outgoing messages at perSecond with a small burst.
func NewLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		perSecond = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), 3)
}

// Notifier sends notification cards as HTML messages.
type Notifier struct {
	messenger Messenger
	limiter   *rate.Limiter
}

func NewNotifier(messenger Messenger, limiter *rate.Limiter) *Notifier {
	return &Notifier{messenger: messenger, limiter: limiter}
}

func (n *Notifier) SendNotification(ctx context.Context, channelID int64, cards []notification.Card, prefix string) error {
	if len(cards) == 0 {
		return nil
	}
	preview := previewFor(cards)

	for _, text := range RenderMessages(cards, prefix) {
		if err := n.limiter.Wait(ctx); err != nil {
			return apperrors.Transient(err, "channel_id", channelID)
		}
		_, err := n.messenger.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:             channelID,
			Text:               text,
			ParseMode:          models.ParseModeHTML,
			LinkPreviewOptions: preview,
		})
		if err != nil {
			return classifySendError(err, channelID)
		}
	}
	slog.DebugContext(ctx, "Notification sent", "channel_id", channelID, "cards", len(cards))
	return nil
}

func classifySendError(err error, channelID int64) error {
	var tooMany *bot.TooManyRequestsError
	if errors.As(err, &tooMany) {
		return apperrors.Transient(err, "channel_id", channelID, "retry_after", tooMany.RetryAfter)
	}
	if errors.Is(err, bot.ErrorForbidden) || errors.Is(err, bot.ErrorBadRequest) {
		return oops.With("channel_id", channelID).Wrapf(err, "messenger rejected message")
	}
	return apperrors.Transient(err, "channel_id", channelID)
}
