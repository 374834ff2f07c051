package telegram

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

type fakeMessenger struct {
	mu      sync.Mutex
	nextID  int
	sent    []*bot.SendMessageParams
	edited  []*bot.EditMessageTextParams
	deleted []int
	editErr error
	sendErr error
}

func (f *fakeMessenger) SendMessage(_ context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.nextID++
	f.sent = append(f.sent, params)
	return &models.Message{ID: f.nextID}, nil
}

func (f *fakeMessenger) EditMessageText(_ context.Context, params *bot.EditMessageTextParams) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.editErr != nil {
		return nil, f.editErr
	}
	f.edited = append(f.edited, params)
	return &models.Message{ID: params.MessageID}, nil
}

func (f *fakeMessenger) DeleteMessage(_ context.Context, params *bot.DeleteMessageParams) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, params.MessageID)
	return true, nil
}

var errMessageGone = fmt.Errorf("%w, Bad Request: message to edit not found", bot.ErrorBadRequest)
