package telegram

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	communityDomain "github.com/reshetovitsme/relaybot/internal/modules/community/domain"
	directoryDomain "github.com/reshetovitsme/relaybot/internal/modules/directory/domain"
	mediaService "github.com/reshetovitsme/relaybot/internal/modules/media/service"
	"github.com/reshetovitsme/relaybot/internal/shared/config"
	"github.com/reshetovitsme/relaybot/internal/shared/errors"
	"github.com/samber/lo"
)

const resolveTimeout = 10 * time.Second

type Operators interface {
	IsAuthorized(userID int64) bool
	Bootstrap(userID int64, username string) bool
}

type Communities interface {
	Snapshot() ([]*communityDomain.Community, error)
	TrackLink(communityID, link, text string) (bool, error)
	UntrackLink(communityID, link string) (bool, error)
}

type Sources interface {
	Adapters() []mediaService.SourceAdapter
	AdapterFor(link string) (mediaService.SourceAdapter, bool)
}

type Directory interface {
	Search(ctx context.Context, query string) ([]directoryDomain.ServerRecord, error)
	Count() int
	State() directoryDomain.CacheState
}

type Voice interface {
	Hashes() []string
}

// Handler answers operator commands
type Handler struct {
	cfg         *config.Config
	operators   Operators
	communities Communities
	sources     Sources
	directory   Directory
	voice       Voice
}

func New(cfg *config.Config, operators Operators, communities Communities, sources Sources, directory Directory, voice Voice) *Handler {
	return &Handler{
		cfg:         cfg,
		operators:   operators,
		communities: communities,
		sources:     sources,
		directory:   directory,
		voice:       voice,
	}
}

// RegisterCommands registers bot commands
func (h *Handler) RegisterCommands(b *bot.Bot) {
	b.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, h.handleStart)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypeExact, h.handleStart)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/status", bot.MatchTypeExact, h.handleStatus)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/sources", bot.MatchTypePrefix, h.handleSources)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/track", bot.MatchTypePrefix, h.handleTrack)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/untrack", bot.MatchTypePrefix, h.handleUntrack)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/servers", bot.MatchTypePrefix, h.handleServers)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/rsslink", bot.MatchTypePrefix, h.handleRSSLink)
}

// HandleUpdate is the default handler for updates no command matched
func (h *Handler) HandleUpdate(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	slog.DebugContext(ctx, "Ignoring message", "chat_id", update.Message.Chat.ID, "user_id", update.Message.From.ID)
}

func (h *Handler) handleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	from := update.Message.From
	if from == nil {
		return
	}
	if !h.operators.IsAuthorized(from.ID) && !h.operators.Bootstrap(from.ID, from.Username) {
		h.reply(ctx, b, update, "❌ You are not authorized to use this bot.")
		return
	}

	h.reply(ctx, b, update, `👋 Relay bot

Announces new videos and streams, keeps game server and voice server boards up to date.

Available commands:
/status - Show bot status
/sources [community_id] - List tracked links
/track &lt;community_id&gt; &lt;link&gt; [text] - Track a channel
/untrack &lt;community_id&gt; &lt;link&gt; - Stop tracking a channel
/servers &lt;query&gt; - Search the game server directory
/rsslink [community_id] - Get feed links`)
}

func (h *Handler) handleStatus(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !h.authorized(ctx, b, update) {
		return
	}
	h.reply(ctx, b, update, h.StatusText())
}

func (h *Handler) handleSources(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !h.authorized(ctx, b, update) {
		return
	}
	h.reply(ctx, b, update, h.SourcesText(ctx, argument(update.Message.Text)))
}

func (h *Handler) handleTrack(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !h.authorized(ctx, b, update) {
		return
	}
	h.reply(ctx, b, update, h.TrackText(ctx, argument(update.Message.Text)))
}

func (h *Handler) handleUntrack(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !h.authorized(ctx, b, update) {
		return
	}
	h.reply(ctx, b, update, h.UntrackText(argument(update.Message.Text)))
}

func (h *Handler) handleServers(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !h.authorized(ctx, b, update) {
		return
	}
	h.reply(ctx, b, update, h.ServersText(ctx, argument(update.Message.Text)))
}

func (h *Handler) handleRSSLink(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !h.authorized(ctx, b, update) {
		return
	}
	h.reply(ctx, b, update, h.RSSLinkText(argument(update.Message.Text)))
}

// StatusText summarizes communities, adapters and boards.
func (h *Handler) StatusText() string {
	communities, err := h.communities.Snapshot()
	if err != nil {
		return fmt.Sprintf("❌ Failed to get status: %s", html.EscapeString(err.Error()))
	}

	enabled := lo.CountBy(communities, func(c *communityDomain.Community) bool { return c.Enabled })
	links := lo.Uniq(lo.FlatMap(communities, func(c *communityDomain.Community, _ int) []string { return c.Media.Links }))

	var text strings.Builder
	text.WriteString("📊 <b>Bot Status</b>\n\n")
	fmt.Fprintf(&text, "Communities: %d (Enabled: %d)\n", len(communities), enabled)
	fmt.Fprintf(&text, "Tracked links: %d\n", len(links))
	fmt.Fprintf(&text, "Poll interval: %s\n\n", h.cfg.MediaPeriod())

	for _, a := range h.sources.Adapters() {
		state := "✅"
		if a.Disabled() {
			state = "⛔ disabled"
		}
		fmt.Fprintf(&text, "%s: %s\n", a.Platform(), state)
	}

	fmt.Fprintf(&text, "\nServer directory: %d cached (%s)\n", h.directory.Count(), h.directory.State())
	fmt.Fprintf(&text, "Voice connections: %d\n", len(h.voice.Hashes()))
	fmt.Fprintf(&text, "Storage: %s", html.EscapeString(h.cfg.StoragePath))
	return text.String()
}

// SourcesText lists the tracked links of one or all communities with their
// resolved titles.
func (h *Handler) SourcesText(ctx context.Context, communityID string) string {
	communities, err := h.communities.Snapshot()
	if err != nil {
		return fmt.Sprintf("❌ Failed to list sources: %s", html.EscapeString(err.Error()))
	}
	if communityID != "" {
		communities = lo.Filter(communities, func(c *communityDomain.Community, _ int) bool { return c.ID == communityID })
	}
	if len(communities) == 0 {
		return "📭 No communities configured."
	}

	titles := make(map[string]string)
	var text strings.Builder
	text.WriteString("📋 <b>Tracked sources</b>\n")
	for _, c := range communities {
		fmt.Fprintf(&text, "\n<b>%s</b> (<code>%s</code>)\n", html.EscapeString(c.Title), html.EscapeString(c.ID))
		if len(c.Media.Links) == 0 {
			text.WriteString("  none\n")
			continue
		}
		for _, link := range c.Media.Links {
			title, ok := titles[link]
			if !ok {
				title = h.resolveTitle(ctx, link)
				titles[link] = title
			}
			fmt.Fprintf(&text, "• %s\n  %s\n", title, html.EscapeString(link))
		}
	}
	return text.String()
}

func (h *Handler) resolveTitle(ctx context.Context, link string) string {
	adapter, ok := h.sources.AdapterFor(link)
	if !ok {
		return "<i>unsupported link</i>"
	}
	ctx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()

	title, err := adapter.ResolveTitle(ctx, link)
	if err != nil {
		slog.WarnContext(ctx, "Failed to resolve source title", "link", link, "error", err)
		return "<i>unavailable</i>"
	}
	return fmt.Sprintf("[%s] %s", adapter.Platform(), html.EscapeString(title))
}

// TrackText adds a link to a community after checking that a platform
// recognizes it and the channel resolves. Anything after the link becomes the
// link's notification text.
func (h *Handler) TrackText(ctx context.Context, args string) string {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		return "Usage: /track &lt;community_id&gt; &lt;link&gt; [text]"
	}
	communityID, link := fields[0], fields[1]
	text := strings.Join(fields[2:], " ")

	adapter, ok := h.sources.AdapterFor(link)
	if !ok {
		return fmt.Sprintf("❌ Unsupported link: %s", html.EscapeString(link))
	}

	resolveCtx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()
	title, err := adapter.ResolveTitle(resolveCtx, link)
	if err != nil {
		slog.WarnContext(ctx, "Failed to resolve tracked link", "community_id", communityID, "link", link, "error", err)
		return fmt.Sprintf("❌ Failed to resolve %s: %s", html.EscapeString(link), html.EscapeString(err.Error()))
	}

	added, err := h.communities.TrackLink(communityID, link, text)
	if err != nil {
		return communityError(communityID, err)
	}
	slog.InfoContext(ctx, "Tracked link", "community_id", communityID, "link", link, "added", added)
	if !added {
		return fmt.Sprintf("ℹ️ Already tracking [%s] %s", adapter.Platform(), html.EscapeString(title))
	}
	return fmt.Sprintf("✅ Tracking [%s] %s", adapter.Platform(), html.EscapeString(title))
}

// UntrackText removes a link from a community. The link must match the
// tracked one exactly.
func (h *Handler) UntrackText(args string) string {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return "Usage: /untrack &lt;community_id&gt; &lt;link&gt;"
	}
	communityID, link := fields[0], fields[1]

	removed, err := h.communities.UntrackLink(communityID, link)
	if err != nil {
		return communityError(communityID, err)
	}
	if !removed {
		return fmt.Sprintf("ℹ️ Not tracked: %s", html.EscapeString(link))
	}
	slog.Info("Untracked link", "community_id", communityID, "link", link)
	return fmt.Sprintf("✅ Removed %s", html.EscapeString(link))
}

func communityError(communityID string, err error) string {
	if errors.Is(err, errors.ErrCommunityNotFound) {
		return fmt.Sprintf("❌ Community not found: %s", html.EscapeString(communityID))
	}
	return fmt.Sprintf("❌ %s", html.EscapeString(err.Error()))
}

// ServersText answers a directory search.
func (h *Handler) ServersText(ctx context.Context, query string) string {
	if len([]rune(strings.TrimSpace(query))) < 2 {
		return "Usage: /servers &lt;name or address&gt; (at least 2 characters)"
	}
	servers, err := h.directory.Search(ctx, query)
	if err != nil {
		return fmt.Sprintf("❌ %s", html.EscapeString(err.Error()))
	}
	if len(servers) == 0 {
		return fmt.Sprintf("🔍 No servers match %q (%d cached)", html.EscapeString(query), h.directory.Count())
	}

	var text strings.Builder
	fmt.Fprintf(&text, "🔍 <b>%d servers</b>\n\n", len(servers))
	for _, s := range servers {
		fmt.Fprintf(&text, "<code>%s</code> %s [%s]\n", s.IP, html.EscapeString(s.DisplayName()), s.PlayersText())
	}
	return text.String()
}

func (h *Handler) RSSLinkText(communityID string) string {
	communities, err := h.communities.Snapshot()
	if err != nil {
		return fmt.Sprintf("❌ Failed to get communities: %s", html.EscapeString(err.Error()))
	}
	if communityID != "" {
		communities = lo.Filter(communities, func(c *communityDomain.Community, _ int) bool { return c.ID == communityID })
		if len(communities) == 0 {
			return fmt.Sprintf("❌ Community not found: %s", html.EscapeString(communityID))
		}
	}

	var text strings.Builder
	text.WriteString("🔗 <b>Feed links</b>\n\n")
	for _, c := range communities {
		fmt.Fprintf(&text, "%s:\nhttp://localhost:%s/rss/%s\n\n", html.EscapeString(c.Title), h.cfg.HTTPPort, html.EscapeString(c.ID))
	}
	return strings.TrimSpace(text.String())
}

func (h *Handler) authorized(ctx context.Context, b *bot.Bot, update *models.Update) bool {
	if update.Message.From != nil && h.operators.IsAuthorized(update.Message.From.ID) {
		return true
	}
	h.reply(ctx, b, update, "❌ Unauthorized")
	return false
}

func (h *Handler) reply(ctx context.Context, b *bot.Bot, update *models.Update, text string) {
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:             update.Message.Chat.ID,
		Text:               text,
		ParseMode:          models.ParseModeHTML,
		LinkPreviewOptions: previewFor(nil),
	})
	if err != nil {
		slog.ErrorContext(ctx, "Failed to send reply", "chat_id", update.Message.Chat.ID, "error", err)
	}
}

func argument(text string) string {
	parts := strings.Fields(text)
	if len(parts) < 2 {
		return ""
	}
	return strings.Join(parts[1:], " ")
}
