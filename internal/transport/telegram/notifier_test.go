package telegram

import (
	"context"
	"fmt"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	notification "github.com/reshetovitsme/relaybot/internal/modules/notification/domain"
	"github.com/reshetovitsme/relaybot/internal/shared/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestNotifier_SendNotification(t *testing.T) {
	m := &fakeMessenger{}
	n := NewNotifier(m, rate.NewLimiter(rate.Inf, 1))

	err := n.SendNotification(context.Background(), 42, []notification.Card{{Title: "New video", Image: "https://img"}}, "@here")
	require.NoError(t, err)

	require.Len(t, m.sent, 1)
	assert.Equal(t, int64(42), m.sent[0].ChatID)
	assert.Equal(t, models.ParseModeHTML, m.sent[0].ParseMode)
	assert.Contains(t, m.sent[0].Text, "@here")
	assert.Contains(t, m.sent[0].Text, "New video")
}

func TestNotifier_NoCards(t *testing.T) {
	m := &fakeMessenger{}
	n := NewNotifier(m, rate.NewLimiter(rate.Inf, 1))

	require.NoError(t, n.SendNotification(context.Background(), 1, nil, "prefix"))
	assert.Empty(t, m.sent)
}

func TestNotifier_ClassifiesErrors(t *testing.T) {
	m := &fakeMessenger{sendErr: fmt.Errorf("%w, chat not found", bot.ErrorBadRequest)}
	n := NewNotifier(m, rate.NewLimiter(rate.Inf, 1))
	err := n.SendNotification(context.Background(), 1, []notification.Card{{Title: "x"}}, "")
	require.Error(t, err)
	assert.False(t, errors.IsTransient(err))

	m.sendErr = fmt.Errorf("dial tcp: i/o timeout")
	err = n.SendNotification(context.Background(), 1, []notification.Card{{Title: "x"}}, "")
	assert.True(t, errors.IsTransient(err))
}
