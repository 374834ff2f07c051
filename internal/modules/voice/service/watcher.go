package service

import (
	"context"
	"html"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/reshetovitsme/relaybot/internal/metrics"
	communityDomain "github.com/reshetovitsme/relaybot/internal/modules/community/domain"
	communityService "github.com/reshetovitsme/relaybot/internal/modules/community/service"
	notification "github.com/reshetovitsme/relaybot/internal/modules/notification/domain"
	notificationService "github.com/reshetovitsme/relaybot/internal/modules/notification/service"
	"github.com/reshetovitsme/relaybot/internal/modules/voice/domain"
	"github.com/reshetovitsme/relaybot/internal/shared/ticker"
)

const (
	BoardKey = "voice"

	maxRosterText = 2000
	emptyRoster   = "Nobody online"
	unavailable   = "Voice server data unavailable"
)

type CommunitySource interface {
	VoiceCommunities() ([]*communityDomain.Community, error)
}

// Watcher reconciles voice connections against every community's
// configuration and renders the rosters to their status channels.
type Watcher struct {
	manager     *Manager
	communities CommunitySource
	display     notificationService.Display
	clock       clockwork.Clock
	interval    time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewWatcher(manager *Manager, communities CommunitySource, display notificationService.Display, clock clockwork.Clock, interval time.Duration) *Watcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		manager:     manager,
		communities: communities,
		display:     display,
		clock:       clock,
		interval:    interval,
		ctx:         ctx,
		cancel:      cancel,
	}
}

func (w *Watcher) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker.Run(w.ctx, w.clock, w.interval, w.Tick)
	}()
}

// Stop ends the tick loop and closes every connection.
func (w *Watcher) Stop() {
	w.cancel()
	w.wg.Wait()
	w.manager.Close(context.Background())
}

func (w *Watcher) Tick(ctx context.Context) {
	start := w.clock.Now()
	metrics.TicksTotal.WithLabelValues("voice").Inc()
	defer func() {
		metrics.TickDuration.WithLabelValues("voice").Observe(w.clock.Since(start).Seconds())
	}()

	communities, err := w.communities.VoiceCommunities()
	if err != nil {
		slog.ErrorContext(ctx, "Failed to load communities", "error", err)
		return
	}

	w.manager.Reconcile(ctx, communityService.DesiredVoiceServers(communities))

	for _, c := range communities {
		cards := w.Render(ctx, c.Voice.Servers)
		if err := w.display.Show(ctx, c.Voice.ChannelID, BoardKey, cards); err != nil {
			slog.ErrorContext(ctx, "Failed to update voice board",
				"community_id", c.ID,
				"channel_id", c.Voice.ChannelID,
				"error", err)
		}
	}
}

// Render builds the roster cards for each server. A server whose roster
// cannot be read yields a single placeholder card.
func (w *Watcher) Render(ctx context.Context, servers []domain.VoiceServerConfig) []notification.Card {
	var cards []notification.Card
	for _, cfg := range servers {
		cards = append(cards, w.render(ctx, cfg)...)
	}
	return cards
}

func (w *Watcher) render(ctx context.Context, cfg domain.VoiceServerConfig) []notification.Card {
	hash := cfg.ConfigHash()
	roster, err := w.manager.Roster(ctx, hash)
	if err != nil {
		slog.WarnContext(ctx, "Failed to read voice roster", "host", cfg.Host, "error", err)
		return []notification.Card{notification.Unavailable(cfg.Host, unavailable)}
	}

	conn, _ := w.manager.Connection(hash)
	title := TitleFor(cfg, conn)
	footer := ""
	if title != cfg.Host {
		footer = cfg.Host
	}

	chunks := notification.SplitLines(rosterLines(roster), maxRosterText)
	if len(chunks) == 0 {
		chunks = []string{emptyRoster}
	}

	cards := make([]notification.Card, 0, len(chunks))
	for _, chunk := range chunks {
		cards = append(cards, notification.Card{
			Title:       title,
			Description: chunk,
			Color:       notification.ColorVoice,
			Footer:      footer,
		})
	}
	return cards
}

func rosterLines(roster domain.Roster) []string {
	var lines []string
	for _, channel := range roster.Channels() {
		lines = append(lines, "<b>"+html.EscapeString(channel)+"</b>")
		for _, nick := range roster[channel] {
			lines = append(lines, html.EscapeString(nick))
		}
		lines = append(lines, "")
	}
	if len(lines) > 0 {
		lines = lines[:len(lines)-1]
	}
	return lines
}
