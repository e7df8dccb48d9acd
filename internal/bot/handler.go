package bot

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/p-blackswan/afkbot/internal/autodelete"
	"github.com/p-blackswan/afkbot/internal/broadcast"
	"github.com/p-blackswan/afkbot/internal/cache"
	"github.com/p-blackswan/afkbot/internal/presence"
	"github.com/p-blackswan/afkbot/internal/store"
	"github.com/p-blackswan/afkbot/internal/telegram"
)

// Directory records the users and groups the bot has seen.
type Directory interface {
	TouchUser(ctx context.Context, userID int64, username, firstName string) error
	FindUserByUsername(ctx context.Context, username string) (*store.User, error)
	TrackGroup(ctx context.Context, chatID int64, title string) error
	CountUsers(ctx context.Context) (int, error)
	CountGroups(ctx context.Context) (int, error)
}

// Config holds the handler's static settings.
type Config struct {
	BotID         int64
	BotUsername   string
	OwnerID       int64
	StartPhotoURL string
	OwnerURL      string
	SupportURL    string
	StartedAt     time.Time
	CommandLimit  int           // commands per user per CommandWindow, 0 = unlimited
	CommandWindow time.Duration // default 1m
}

// Deps are the handler's collaborators.
type Deps struct {
	Client     Client
	Outbox     *Outbox
	Tracker    *presence.Tracker
	Media      *presence.MediaStore
	Directory  Directory
	Policies   *autodelete.PolicyStore
	Tasks      *autodelete.TaskStore
	Broadcasts *broadcast.Service
	Recorder   Recorder // optional
}

// Handler processes Telegram updates. Updates are handled one at a time
// in arrival order; failures are logged and never stop the pipeline.
type Handler struct {
	cfg        Config
	client     Client
	outbox     *Outbox
	tracker    *presence.Tracker
	media      *presence.MediaStore
	dir        Directory
	policies   *autodelete.PolicyStore
	tasks      *autodelete.TaskStore
	broadcasts *broadcast.Service
	recorder   Recorder
	limiter    *RateLimiter
	admins     *cache.TTL[adminKey, bool]
	now        func() time.Time
	logger     zerolog.Logger

	// broadcasts run outside the update loop
	bg sync.WaitGroup
}

// NewHandler creates a new update handler.
func NewHandler(cfg Config, deps Deps, logger zerolog.Logger) *Handler {
	if cfg.CommandWindow <= 0 {
		cfg.CommandWindow = time.Minute
	}
	if cfg.StartedAt.IsZero() {
		cfg.StartedAt = time.Now()
	}
	cfg.BotUsername = strings.TrimPrefix(cfg.BotUsername, "@")

	rec := deps.Recorder
	if rec == nil {
		rec = nopRecorder{}
	}
	return &Handler{
		cfg:        cfg,
		client:     deps.Client,
		outbox:     deps.Outbox,
		tracker:    deps.Tracker,
		media:      deps.Media,
		dir:        deps.Directory,
		policies:   deps.Policies,
		tasks:      deps.Tasks,
		broadcasts: deps.Broadcasts,
		recorder:   rec,
		limiter:    NewRateLimiter(cfg.CommandLimit, cfg.CommandWindow),
		admins:     cache.NewTTL[adminKey, bool](1024, adminCacheTTL),
		now:        time.Now,
		logger:     logger.With().Str("component", "bot").Logger(),
	}
}

// Limiter exposes the command rate limiter for housekeeping.
func (h *Handler) Limiter() *RateLimiter {
	return h.limiter
}

// Run consumes updates until ctx is cancelled or the channel closes.
func (h *Handler) Run(ctx context.Context, updates <-chan telegram.Update) {
	h.logger.Info().Msg("handler started")
	defer h.logger.Info().Msg("handler stopped")
	for {
		select {
		case <-ctx.Done():
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			h.HandleUpdate(ctx, upd)
		}
	}
}

// Wait blocks until background broadcasts finish.
func (h *Handler) Wait() {
	h.bg.Wait()
}

// HandleUpdate routes one update. Panics are recovered and logged.
func (h *Handler) HandleUpdate(ctx context.Context, upd telegram.Update) {
	defer func() {
		if r := recover(); r != nil {
			h.recorder.RecordError("bot", "panic")
			h.logger.Error().
				Interface("panic", r).
				Int("update_id", upd.UpdateID).
				Str("stack", string(debug.Stack())).
				Msg("recovered from panic while handling update")
		}
	}()

	switch {
	case upd.Message != nil:
		h.recorder.RecordUpdate("message")
		h.handleMessage(ctx, upd.Message)
	case upd.CallbackQuery != nil:
		h.recorder.RecordUpdate("callback_query")
		h.handleCallback(ctx, upd.CallbackQuery)
	default:
		h.logger.Debug().Int("update_id", upd.UpdateID).Msg("unhandled update type")
	}
}

func (h *Handler) handleMessage(ctx context.Context, msg *telegram.Message) {
	if msg.Chat.IsGroup() {
		h.trackGroup(ctx, msg.Chat)
	}

	if len(msg.NewChatMembers) > 0 {
		h.handleNewMembers(msg)
		return
	}
	if msg.IsService() {
		return
	}

	from := msg.From
	if from != nil && !from.IsBot {
		if err := h.dir.TouchUser(ctx, from.ID, from.Username, from.FirstName); err != nil {
			h.logger.Error().Err(err).Int64("user_id", from.ID).Msg("failed to record user")
		}
	}

	if cmd, ok := parseCommand(msg.Content(), h.cfg.BotUsername); ok && h.isKnown(cmd.name) {
		if h.allowCommand(msg, cmd.name) {
			h.dispatch(ctx, msg, cmd)
		}
		if isAFKCommand(cmd.name) {
			return
		}
	}

	if msg.Chat.IsGroup() && from != nil && !from.IsBot && msg.SenderChat == nil {
		h.watch(ctx, msg)
	}
}

func (h *Handler) isKnown(name string) bool {
	switch name {
	case cmdStart, cmdHelp, cmdAFK, cmdBRB, cmdStats, cmdAutoDelete, cmdSettings, cmdBcast, cmdFcast:
		return true
	}
	return false
}

func (h *Handler) allowCommand(msg *telegram.Message, name string) bool {
	if msg.From == nil {
		return true
	}
	if h.limiter.Allow(msg.From.ID) {
		return true
	}
	h.recorder.RecordCommand(name, "rate_limited")
	h.logger.Warn().Int64("user_id", msg.From.ID).Str("command", name).Msg("rate limited")
	return false
}

func (h *Handler) dispatch(ctx context.Context, msg *telegram.Message, cmd command) {
	var err error
	switch cmd.name {
	case cmdStart, cmdHelp:
		err = h.cmdStart(ctx, msg)
	case cmdAFK, cmdBRB:
		err = h.cmdAFK(ctx, msg, cmd.args)
	case cmdStats:
		err = h.cmdStats(ctx, msg)
	case cmdAutoDelete, cmdSettings:
		err = h.cmdAutoDelete(ctx, msg)
	case cmdBcast, cmdFcast:
		err = h.cmdBroadcast(ctx, msg, cmd)
	}

	status := "ok"
	if err != nil {
		status = "error"
		h.recorder.RecordError("bot", cmd.name)
		h.logger.Error().Err(err).Str("command", cmd.name).Int64("chat_id", msg.Chat.ID).Msg("command failed")
	}
	h.recorder.RecordCommand(cmd.name, status)
}

func (h *Handler) trackGroup(ctx context.Context, chat telegram.Chat) {
	if err := h.dir.TrackGroup(ctx, chat.ID, chat.Title); err != nil {
		h.logger.Error().Err(err).Int64("chat_id", chat.ID).Msg("failed to track group")
	}
	if _, err := h.policies.GetOrInit(ctx, chat.ID); err != nil {
		h.logger.Error().Err(err).Int64("chat_id", chat.ID).Msg("failed to init policy")
	}
}

func (h *Handler) handleNewMembers(msg *telegram.Message) {
	for _, m := range msg.NewChatMembers {
		if h.isSelf(m) {
			h.logger.Info().Int64("chat_id", msg.Chat.ID).Str("title", msg.Chat.Title).Msg("bot added to group")
		}
	}
}

func (h *Handler) isSelf(u telegram.User) bool {
	if h.cfg.BotID != 0 {
		return u.ID == h.cfg.BotID
	}
	return u.IsBot && strings.EqualFold(u.Username, h.cfg.BotUsername)
}

type adminKey struct {
	chatID, userID int64
}

// adminCacheTTL bounds how long an admin lookup is reused.
const adminCacheTTL = time.Minute

// isAdmin reports whether userID administers chatID.
func (h *Handler) isAdmin(ctx context.Context, chatID, userID int64) (bool, error) {
	key := adminKey{chatID, userID}
	if admin, ok := h.admins.Get(key); ok {
		return admin, nil
	}
	m, err := h.client.GetChatMember(ctx, chatID, userID)
	if err != nil {
		return false, fmt.Errorf("get chat member: %w", err)
	}
	h.admins.Put(key, m.IsAdmin())
	return m.IsAdmin(), nil
}

func (h *Handler) uptime() string {
	return presence.ReadableDuration(h.now().Sub(h.cfg.StartedAt))
}

func (h *Handler) reply(ctx context.Context, msg *telegram.Message, text string, markup *telegram.InlineKeyboardMarkup) (*telegram.Message, error) {
	return h.outbox.SendText(ctx, msg.Chat.ID, text, telegram.SendOptions{ReplyTo: msg.MessageID, ReplyMarkup: markup})
}
