package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/p-blackswan/afkbot/internal/autodelete"
	"github.com/p-blackswan/afkbot/internal/broadcast"
	perrors "github.com/p-blackswan/afkbot/internal/errors"
	"github.com/p-blackswan/afkbot/internal/telegram"
)

const (
	cbHelp        = "help"
	cbBackToStart = "back_to_start"
)

func (h *Handler) startKeyboard() *telegram.InlineKeyboardMarkup {
	rows := [][]telegram.InlineKeyboardButton{
		telegram.Row(telegram.URLButton("➕ Add to Group ➕", fmt.Sprintf("https://t.me/%s?startgroup=true", h.cfg.BotUsername))),
	}
	second := telegram.Row(telegram.CallbackButton("Help ❓", cbHelp))
	if h.cfg.OwnerURL != "" {
		second = append(second, telegram.URLButton("Owner 👤", h.cfg.OwnerURL))
	}
	rows = append(rows, second)
	if h.cfg.SupportURL != "" {
		rows = append(rows, telegram.Row(telegram.URLButton("Support Group", h.cfg.SupportURL)))
	}
	return telegram.Keyboard(rows...)
}

func backKeyboard() *telegram.InlineKeyboardMarkup {
	return telegram.Keyboard(telegram.Row(telegram.CallbackButton("🔙 Back", cbBackToStart)))
}

// cmdStart greets with the start photo, or text when no photo is configured
// or the photo cannot be sent.
func (h *Handler) cmdStart(ctx context.Context, msg *telegram.Message) error {
	caption := startText(h.uptime())
	opts := telegram.SendOptions{ReplyTo: msg.MessageID, ReplyMarkup: h.startKeyboard()}
	if h.cfg.StartPhotoURL != "" {
		_, err := h.outbox.SendPhoto(ctx, msg.Chat.ID, h.cfg.StartPhotoURL, caption, opts)
		if err == nil {
			return nil
		}
		h.logger.Warn().Err(err).Msg("failed to send start photo, falling back to text")
	}
	_, err := h.outbox.SendText(ctx, msg.Chat.ID, caption, opts)
	return err
}

func (h *Handler) cmdStats(ctx context.Context, msg *telegram.Message) error {
	users, err := h.dir.CountUsers(ctx)
	if err != nil {
		return err
	}
	away, err := h.tracker.CountAway(ctx)
	if err != nil {
		return err
	}
	groups, err := h.dir.CountGroups(ctx)
	if err != nil {
		return err
	}
	_, err = h.reply(ctx, msg, statsText(h.uptime(), users, away, groups), nil)
	return err
}

// cmdAutoDelete shows the auto-delete settings to chat admins.
func (h *Handler) cmdAutoDelete(ctx context.Context, msg *telegram.Message) error {
	if !msg.Chat.IsGroup() {
		_, err := h.reply(ctx, msg, groupOnlyText, nil)
		return err
	}

	admin, err := h.senderIsAdmin(ctx, msg)
	if err != nil {
		return err
	}
	if !admin {
		_, err := h.reply(ctx, msg, adminOnlyText, nil)
		return err
	}

	policy, err := h.policies.GetOrInit(ctx, msg.Chat.ID)
	if err != nil {
		return err
	}
	_, err = h.reply(ctx, msg, autodelete.SettingsText(policy, h.pending(ctx, msg.Chat.ID)), autodelete.SettingsKeyboard(policy))
	return err
}

// senderIsAdmin also accepts anonymous admins posting as the group itself.
func (h *Handler) senderIsAdmin(ctx context.Context, msg *telegram.Message) (bool, error) {
	if msg.SenderChat != nil {
		return msg.SenderChat.ID == msg.Chat.ID, nil
	}
	if msg.From == nil {
		return false, nil
	}
	return h.isAdmin(ctx, msg.Chat.ID, msg.From.ID)
}

func (h *Handler) pending(ctx context.Context, chatID int64) int {
	n, err := h.tasks.CountForChat(ctx, chatID)
	if err != nil {
		h.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("failed to count pending deletions")
	}
	return n
}

// cmdBroadcast opens the broadcast menu. Only the owner may broadcast;
// anyone else is ignored.
func (h *Handler) cmdBroadcast(ctx context.Context, msg *telegram.Message, cmd command) error {
	if !h.isOwner(msg.From) {
		return nil
	}

	draft := broadcast.Draft{
		Command:         broadcast.Command(cmd.name),
		OriginChatID:    msg.Chat.ID,
		OriginMessageID: msg.MessageID,
	}
	if r := msg.ReplyToMessage; r != nil {
		draft.SourceChatID = r.Chat.ID
		draft.SourceMessageID = r.MessageID
	} else {
		draft.Text = cmd.args
	}

	d, err := h.broadcasts.Create(ctx, draft)
	if err != nil {
		return err
	}
	_, err = h.reply(ctx, msg, broadcast.DraftText(d), broadcast.DraftKeyboard(d))
	return err
}

func (h *Handler) isOwner(u *telegram.User) bool {
	return u != nil && h.cfg.OwnerID != 0 && u.ID == h.cfg.OwnerID
}

func (h *Handler) handleCallback(ctx context.Context, cq *telegram.CallbackQuery) {
	var err error
	switch {
	case cq.Message == nil:
		err = h.answer(ctx, cq, "", false)
	case cq.Data == cbHelp:
		err = h.cbHelp(ctx, cq)
	case cq.Data == cbBackToStart:
		err = h.cbBackToStart(ctx, cq)
	default:
		if c, ok := autodelete.ParseCallback(cq.Data); ok {
			err = h.cbSettings(ctx, cq, c)
		} else if c, ok := broadcast.ParseCallback(cq.Data); ok {
			err = h.cbBroadcast(ctx, cq, c)
		} else {
			err = h.answer(ctx, cq, "", false)
		}
	}
	if err != nil {
		h.recorder.RecordError("bot", "callback")
		h.logger.Error().Err(err).Str("data", cq.Data).Int64("user_id", cq.From.ID).Msg("callback failed")
	}
}

func (h *Handler) answer(ctx context.Context, cq *telegram.CallbackQuery, text string, alert bool) error {
	return h.client.AnswerCallbackQuery(ctx, cq.ID, text, alert)
}

// editMenu edits a menu message in place, as a caption when it is a photo.
func (h *Handler) editMenu(ctx context.Context, m *telegram.Message, text string, markup *telegram.InlineKeyboardMarkup) error {
	opts := telegram.SendOptions{ParseMode: telegram.ParseModeHTML, ReplyMarkup: markup}
	if len(m.Photo) > 0 {
		return h.client.EditMessageCaption(ctx, m.Chat.ID, m.MessageID, text, opts)
	}
	return h.client.EditMessageText(ctx, m.Chat.ID, m.MessageID, text, opts)
}

func (h *Handler) cbHelp(ctx context.Context, cq *telegram.CallbackQuery) error {
	if err := h.answer(ctx, cq, "", false); err != nil {
		h.logger.Warn().Err(err).Msg("failed to answer callback")
	}
	return h.editMenu(ctx, cq.Message, helpText, backKeyboard())
}

func (h *Handler) cbBackToStart(ctx context.Context, cq *telegram.CallbackQuery) error {
	if err := h.answer(ctx, cq, "", false); err != nil {
		h.logger.Warn().Err(err).Msg("failed to answer callback")
	}
	return h.editMenu(ctx, cq.Message, startText(h.uptime()), h.startKeyboard())
}

// cbSettings applies a settings keyboard press after re-checking that the
// presser administers the chat.
func (h *Handler) cbSettings(ctx context.Context, cq *telegram.CallbackQuery, c autodelete.Callback) error {
	chat := cq.Message.Chat
	admin, err := h.isAdmin(ctx, chat.ID, cq.From.ID)
	if err != nil {
		_ = h.answer(ctx, cq, "Could not verify your permissions, try again.", true)
		return err
	}
	if !admin {
		return h.answer(ctx, cq, adminOnlyAlert, true)
	}

	var (
		policy autodelete.Policy
		toast  string
	)
	switch c.Action {
	case autodelete.ActionClose:
		if err := h.client.DeleteMessage(ctx, chat.ID, cq.Message.MessageID); err != nil {
			_ = h.client.EditMessageText(ctx, chat.ID, cq.Message.MessageID, "Settings closed.", telegram.SendOptions{})
		}
		return h.answer(ctx, cq, "", false)
	case autodelete.ActionEnable:
		policy, err = h.policies.SetEnabled(ctx, chat.ID, true)
	case autodelete.ActionDisable:
		policy, err = h.policies.SetEnabled(ctx, chat.ID, false)
	case autodelete.ActionToggle:
		policy, err = h.policies.Toggle(ctx, chat.ID)
	case autodelete.ActionTime:
		policy, err = h.policies.SetRetention(ctx, chat.ID, c.Seconds)
		if errors.Is(err, perrors.ErrInvalidInput) {
			return h.answer(ctx, cq, "Unsupported retention period.", true)
		}
		toast = "Messages will be deleted after " + autodelete.RetentionLabel(c.Seconds)
	}
	if err != nil {
		_ = h.answer(ctx, cq, "Failed to update settings.", true)
		return err
	}

	if toast == "" {
		toast = "Auto-delete disabled"
		if policy.Enabled {
			toast = "Auto-delete enabled"
		}
	}
	h.logger.Info().
		Int64("chat_id", chat.ID).
		Int64("admin_id", cq.From.ID).
		Bool("enabled", policy.Enabled).
		Int("retention_seconds", policy.RetentionSeconds).
		Msg("auto-delete policy changed")

	if err := h.answer(ctx, cq, toast, false); err != nil {
		h.logger.Warn().Err(err).Msg("failed to answer callback")
	}
	return h.editMenu(ctx, cq.Message, autodelete.SettingsText(policy, h.pending(ctx, chat.ID)), autodelete.SettingsKeyboard(policy))
}

func (h *Handler) cbBroadcast(ctx context.Context, cq *telegram.CallbackQuery, c broadcast.Callback) error {
	if !h.isOwner(&cq.From) {
		return h.answer(ctx, cq, "Only the bot owner can broadcast.", true)
	}
	m := cq.Message

	switch c.Action {
	case broadcast.ActionOption:
		_ = h.answer(ctx, cq, "", false)
		d, err := h.broadcasts.ToggleOption(ctx, c.DraftID, c.Option)
		if errors.Is(err, perrors.ErrNotFound) {
			return h.editMenu(ctx, m, draftExpiredText, nil)
		}
		if err != nil {
			return err
		}
		return h.editMenu(ctx, m, broadcast.DraftText(d), broadcast.DraftKeyboard(d))

	case broadcast.ActionCancel:
		_ = h.answer(ctx, cq, "Broadcast cancelled", false)
		if err := h.broadcasts.Cancel(ctx, c.DraftID); err != nil {
			return err
		}
		return h.editMenu(ctx, m, broadcastCancelText, nil)

	case broadcast.ActionSend:
		_ = h.answer(ctx, cq, "", false)
		if err := h.editMenu(ctx, m, broadcastStartText, nil); err != nil {
			h.logger.Warn().Err(err).Msg("failed to edit broadcast menu")
		}
		h.bg.Add(1)
		go func() {
			defer h.bg.Done()
			h.runBroadcast(ctx, m, c.DraftID)
		}()
	}
	return nil
}

// runBroadcast delivers a confirmed draft, editing the menu message with
// progress and the final summary.
func (h *Handler) runBroadcast(ctx context.Context, m *telegram.Message, draftID string) {
	progress := func(target broadcast.Target, done, total int) {
		if err := h.editMenu(ctx, m, broadcast.ProgressText(target, done, total), nil); err != nil {
			h.logger.Debug().Err(err).Msg("failed to edit broadcast progress")
		}
	}

	report, err := h.broadcasts.Confirm(ctx, draftID, progress)
	switch {
	case errors.Is(err, perrors.ErrNotFound):
		_ = h.editMenu(ctx, m, draftExpiredText, nil)
		return
	case errors.Is(err, perrors.ErrInvalidInput):
		_ = h.editMenu(ctx, m, draftEmptyText, nil)
		return
	case err != nil && report == nil:
		h.logger.Error().Err(err).Str("draft", draftID).Msg("broadcast failed")
		_ = h.editMenu(ctx, m, broadcastFailedText, nil)
		return
	case err != nil:
		h.logger.Error().Err(err).Str("draft", draftID).Msg("broadcast interrupted")
	}

	if err := h.editMenu(ctx, m, broadcast.SummaryText(report), broadcast.SummaryKeyboard(report)); err != nil {
		h.logger.Error().Err(err).Msg("failed to send broadcast summary")
	}
}
