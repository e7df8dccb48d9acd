package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/p-blackswan/afkbot/internal/presence"
	"github.com/p-blackswan/afkbot/internal/telegram"
)

// cmdAFK toggles the sender's away state. Anonymous (channel) senders are ignored.
func (h *Handler) cmdAFK(ctx context.Context, msg *telegram.Message, reason string) error {
	if msg.SenderChat != nil || msg.From == nil {
		return nil
	}
	user := msg.From

	rec, away, err := h.tracker.QueryAway(ctx, user.ID)
	if err != nil {
		return err
	}
	if away {
		if err := h.tracker.ClearAway(ctx, user.ID); err != nil {
			return err
		}
		h.recorder.RecordPresence("back")
		h.announceReturn(ctx, msg, user.FirstName, rec)
		return nil
	}

	details := h.mediaDetails(ctx, msg)
	details.Reason = reason

	rec, err = h.tracker.SetAway(ctx, user.ID, details)
	if err != nil {
		return err
	}
	h.recorder.RecordPresence("away")

	_, err = h.reply(ctx, msg, nowAwayText(user.FirstName, rec.Reason), nil)
	return err
}

// mediaDetails picks the AFK media from the message or the message it
// replies to. Photos and static stickers are downloaded; a failed download
// falls back to a text AFK with a notice.
func (h *Handler) mediaDetails(ctx context.Context, msg *telegram.Message) presence.Details {
	text := presence.Details{Kind: presence.KindText}

	var fileID string
	switch reply := msg.ReplyToMessage; {
	case msg.Animation != nil:
		return presence.Details{Kind: presence.KindAnimation, MediaRef: msg.Animation.FileID}
	case len(msg.Photo) > 0:
		fileID = msg.LargestPhoto().FileID
	case reply == nil:
		return text
	case reply.Animation != nil:
		return presence.Details{Kind: presence.KindAnimation, MediaRef: reply.Animation.FileID}
	case len(reply.Photo) > 0:
		fileID = reply.LargestPhoto().FileID
	case reply.Sticker != nil && !reply.Sticker.IsAnimated && !reply.Sticker.IsVideo:
		fileID = reply.Sticker.FileID
	default:
		return text
	}

	if err := h.downloadMedia(ctx, msg.From.ID, fileID); err != nil {
		h.logger.Error().Err(err).Int64("user_id", msg.From.ID).Msg("failed to download afk media")
		if _, err := h.reply(ctx, msg, mediaFallbackText, nil); err != nil {
			h.logger.Error().Err(err).Msg("failed to send media fallback notice")
		}
		return text
	}
	return presence.Details{Kind: presence.KindPhoto}
}

func (h *Handler) downloadMedia(ctx context.Context, userID int64, fileID string) error {
	if h.media == nil {
		return fmt.Errorf("media store not configured")
	}
	f, err := h.client.GetFile(ctx, fileID)
	if err != nil {
		return err
	}
	body, err := h.client.DownloadFile(ctx, f.FilePath)
	if err != nil {
		return err
	}
	defer body.Close()
	return h.media.Save(userID, body)
}

// watch handles ordinary group activity: a returning sender, replies to
// away users and mentions of away users.
func (h *Handler) watch(ctx context.Context, msg *telegram.Message) {
	sender := msg.From

	rec, away, err := h.tracker.QueryAway(ctx, sender.ID)
	if err != nil {
		h.logger.Error().Err(err).Int64("user_id", sender.ID).Msg("failed to query presence")
	} else if away {
		if err := h.tracker.ClearAway(ctx, sender.ID); err != nil {
			h.logger.Error().Err(err).Int64("user_id", sender.ID).Msg("failed to clear presence")
		} else {
			h.recorder.RecordPresence("back")
			h.announceReturn(ctx, msg, sender.FirstName, rec)
		}
	}

	notified := map[int64]bool{sender.ID: true}

	if r := msg.ReplyToMessage; r != nil && r.From != nil && !r.From.IsBot {
		h.noticeIfAway(ctx, msg, r.From.ID, r.From.FirstName, notified)
	}

	text, entities := msg.Text, msg.Entities
	if text == "" {
		text, entities = msg.Caption, msg.CaptionEntities
	}
	for _, e := range entities {
		switch e.Type {
		case telegram.EntityMention:
			handle := telegram.EntityText(text, e)
			if len(handle) < 2 || strings.EqualFold(handle[1:], h.cfg.BotUsername) {
				continue
			}
			u, err := h.dir.FindUserByUsername(ctx, handle)
			if err != nil {
				h.logger.Error().Err(err).Str("handle", handle).Msg("failed to resolve mention")
				continue
			}
			if u == nil {
				continue
			}
			h.noticeIfAway(ctx, msg, u.UserID, u.FirstName, notified)
		case telegram.EntityTextMention:
			if e.User != nil {
				h.noticeIfAway(ctx, msg, e.User.ID, e.User.FirstName, notified)
			}
		}
	}
}

func (h *Handler) noticeIfAway(ctx context.Context, msg *telegram.Message, userID int64, name string, notified map[int64]bool) {
	if notified[userID] {
		return
	}
	notified[userID] = true

	rec, away, err := h.tracker.QueryAway(ctx, userID)
	if err != nil {
		h.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to query presence")
		return
	}
	if !away {
		return
	}
	caption := awayNoticeText(name, rec, presence.ReadableDuration(h.tracker.AwayFor(rec)))
	if err := h.sendPresence(ctx, msg, rec, caption); err != nil {
		h.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to send afk notice")
	}
}

// announceReturn sends exactly one "back online" notice, falling back to a
// plain line when the detailed one cannot be sent.
func (h *Handler) announceReturn(ctx context.Context, msg *telegram.Message, name string, rec presence.Record) {
	caption := backOnlineText(name, rec, presence.ReadableDuration(h.tracker.AwayFor(rec)))
	err := h.sendPresence(ctx, msg, rec, caption)
	if err == nil {
		return
	}
	h.logger.Error().Err(err).Int64("user_id", rec.UserID).Msg("failed to send return notice")
	if _, err := h.reply(ctx, msg, backOnlinePlain(name), nil); err != nil {
		h.logger.Error().Err(err).Int64("user_id", rec.UserID).Msg("failed to send plain return notice")
	}
}

// sendPresence replies with the record's media and caption.
func (h *Handler) sendPresence(ctx context.Context, msg *telegram.Message, rec presence.Record, caption string) error {
	opts := telegram.SendOptions{ReplyTo: msg.MessageID}
	switch rec.Kind {
	case presence.KindAnimation:
		if rec.MediaRef != "" {
			_, err := h.outbox.SendAnimation(ctx, msg.Chat.ID, rec.MediaRef, caption, opts)
			return err
		}
	case presence.KindPhoto:
		if h.media != nil && h.media.Exists(rec.UserID) {
			f, err := h.media.Open(rec.UserID)
			if err != nil {
				return err
			}
			defer f.Close()
			_, err = h.outbox.SendPhotoFile(ctx, msg.Chat.ID, strconv.FormatInt(rec.UserID, 10)+".jpg", f, caption, opts)
			return err
		}
	}
	_, err := h.outbox.SendText(ctx, msg.Chat.ID, caption, opts)
	return err
}
