package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	notification "github.com/reshetovitsme/relaybot/internal/modules/notification/domain"
	apperrors "github.com/reshetovitsme/relaybot/internal/shared/errors"
	"github.com/samber/lo"
	"github.com/samber/oops"
	"golang.org/x/time/rate"
)

const emptyBoard = "<i>Nothing to show</i>"

// Display keeps one board per channel and key, editing its messages in place
// and deleting the ones no longer needed.
type Display struct {
	messenger Messenger
	limiter   *rate.Limiter

	mu     sync.Mutex
	boards map[string][]int
}

func NewDisplay(messenger Messenger, limiter *rate.Limiter) *Display {
	return &Display{
		messenger: messenger,
		limiter:   limiter,
		boards:    make(map[string][]int),
	}
}

func (d *Display) Show(ctx context.Context, channelID int64, key string, cards []notification.Card) error {
	texts := RenderMessages(cards, "")
	if len(texts) == 0 {
		texts = []string{emptyBoard}
	}

	boardKey := fmt.Sprintf("%d/%s", channelID, key)
	d.mu.Lock()
	defer d.mu.Unlock()

	previous := d.boards[boardKey]
	current := make([]int, 0, len(texts))
	var firstErr error

	for i, text := range texts {
		if i < len(previous) {
			if err := d.edit(ctx, channelID, previous[i], text); err == nil {
				current = append(current, previous[i])
				continue
			}
		}
		id, err := d.send(ctx, channelID, text)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		current = append(current, id)
	}

	for _, id := range previous {
		if !lo.Contains(current, id) {
			d.delete(ctx, channelID, id)
		}
	}

	d.boards[boardKey] = current
	return firstErr
}

func (d *Display) edit(ctx context.Context, channelID int64, messageID int, text string) error {
	if err := d.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := d.messenger.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:             channelID,
		MessageID:          messageID,
		Text:               text,
		ParseMode:          models.ParseModeHTML,
		LinkPreviewOptions: previewFor(nil),
	})
	if err != nil && strings.Contains(err.Error(), "message is not modified") {
		return nil
	}
	if err != nil {
		slog.DebugContext(ctx, "Board edit failed, sending a new message",
			"channel_id", channelID,
			"message_id", messageID,
			"error", err)
	}
	return err
}

func (d *Display) send(ctx context.Context, channelID int64, text string) (int, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return 0, apperrors.Transient(err, "channel_id", channelID)
	}
	msg, err := d.messenger.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:             channelID,
		Text:               text,
		ParseMode:          models.ParseModeHTML,
		LinkPreviewOptions: previewFor(nil),
	})
	if err != nil {
		return 0, classifySendError(err, channelID)
	}
	if msg == nil {
		return 0, oops.With("channel_id", channelID).Errorf("messenger returned no message")
	}
	return msg.ID, nil
}

func (d *Display) delete(ctx context.Context, channelID int64, messageID int) {
	if _, err := d.messenger.DeleteMessage(ctx, &bot.DeleteMessageParams{ChatID: channelID, MessageID: messageID}); err != nil {
		slog.WarnContext(ctx, "Failed to delete board message",
			"channel_id", channelID,
			"message_id", messageID,
			"error", err)
	}
}
