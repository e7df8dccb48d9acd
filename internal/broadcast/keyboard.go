package broadcast

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/p-blackswan/afkbot/internal/telegram"
)

// CallbackPrefix marks broadcast keyboard callbacks.
const CallbackPrefix = "bc:"

// Callback actions.
const (
	ActionOption = "opt"
	ActionSend   = "send"
	ActionCancel = "cancel"
)

// Callback is a parsed broadcast keyboard press.
type Callback struct {
	Action  string
	DraftID string
	Option  Option // set for ActionOption
}

// ParseCallback decodes callback data produced by DraftKeyboard.
func ParseCallback(data string) (Callback, bool) {
	rest, ok := strings.CutPrefix(data, CallbackPrefix)
	if !ok {
		return Callback{}, false
	}
	parts := strings.Split(rest, ":")
	switch {
	case len(parts) == 3 && parts[0] == ActionOption:
		opt := Option(parts[2])
		if opt != OptionPin && opt != OptionGroup && opt != OptionUser {
			return Callback{}, false
		}
		return Callback{Action: ActionOption, DraftID: parts[1], Option: opt}, true
	case len(parts) == 2 && (parts[0] == ActionSend || parts[0] == ActionCancel):
		return Callback{Action: parts[0], DraftID: parts[1]}, true
	}
	return Callback{}, false
}

// DraftKeyboard builds the options keyboard for a draft.
func DraftKeyboard(d *Draft) *telegram.InlineKeyboardMarkup {
	opt := func(label string, o Option) telegram.InlineKeyboardButton {
		return telegram.CallbackButton(label, fmt.Sprintf("%s%s:%s:%s", CallbackPrefix, ActionOption, d.ID, o))
	}
	return telegram.Keyboard(
		telegram.Row(opt("📍 Pin", OptionPin), opt("👥 Group", OptionGroup)),
		telegram.Row(opt("👤 User", OptionUser)),
		telegram.Row(
			telegram.CallbackButton("🚀 Send Now", CallbackPrefix+ActionSend+":"+d.ID),
			telegram.CallbackButton("❌ Cancel", CallbackPrefix+ActionCancel+":"+d.ID),
		),
	)
}

// DraftText renders the options menu.
func DraftText(d *Draft) string {
	var b strings.Builder
	b.WriteString("🔔 <b>Broadcast Options</b>\n\n")
	switch {
	case d.Text != "":
		preview := d.Text
		if r := []rune(preview); len(r) > 100 {
			preview = string(r[:100]) + "..."
		}
		fmt.Fprintf(&b, "Message: %s\n\n", html.EscapeString(preview))
	case d.SourceMessageID != 0:
		b.WriteString("Message: Replied content\n\n")
	default:
		b.WriteString("⚠️ No message content provided\n\n")
	}
	b.WriteString("<b>Selected Options:</b>\n")
	fmt.Fprintf(&b, "- 📍 Pin: %s\n", mark(d.Options[OptionPin]))
	fmt.Fprintf(&b, "- 👥 Group: %s\n", mark(d.Options[OptionGroup]))
	fmt.Fprintf(&b, "- 👤 User: %s\n\n", mark(d.Options[OptionUser]))
	b.WriteString("Select options:")
	return b.String()
}

// ProgressText renders a fan-out progress line.
func ProgressText(target Target, done, total int) string {
	if target == TargetUsers {
		return fmt.Sprintf("👤 User broadcast: %d/%d", done, total)
	}
	return fmt.Sprintf("👥 Group broadcast: %d/%d", done, total)
}

// SummaryText renders the final report.
func SummaryText(r *Report) string {
	var b strings.Builder
	b.WriteString("✅ <b>Broadcast Completed</b>\n\n")
	if r.OriginMessageID != 0 {
		b.WriteString("📍 Current chat message: Sent\n")
	} else if r.OriginErr != nil {
		b.WriteString("📍 Current chat message: Failed\n")
	}
	fmt.Fprintf(&b, "👥 Group broadcast: %s\n", sentOrSkipped(r.Groups))
	fmt.Fprintf(&b, "👤 User broadcast: %s", sentOrSkipped(r.Users))
	if r.Groups != nil {
		fmt.Fprintf(&b, "\n\n👥 <b>Group Broadcast Stats</b>\n• Total groups: %d\n• Successful: %d\n• Failed: %d",
			r.Groups.Total, r.Groups.Success, r.Groups.Failed)
	}
	if r.Users != nil {
		fmt.Fprintf(&b, "\n\n👤 <b>User Broadcast Stats</b>\n• Total users: %d\n• Successful: %d\n• Failed: %d",
			r.Users.Total, r.Users.Success, r.Users.Failed)
	}
	return b.String()
}

// SummaryKeyboard links to the origin message when it lives in a supergroup.
func SummaryKeyboard(r *Report) *telegram.InlineKeyboardMarkup {
	if url := MessageURL(r.OriginChatID, r.OriginMessageID); url != "" {
		return telegram.Keyboard(telegram.Row(telegram.URLButton("🔍 View in Group", url)))
	}
	return nil
}

// MessageURL returns a t.me link to a supergroup message, or "" for other chats.
func MessageURL(chatID int64, messageID int) string {
	id := strconv.FormatInt(chatID, 10)
	internal, ok := strings.CutPrefix(id, "-100")
	if !ok || messageID == 0 {
		return ""
	}
	return fmt.Sprintf("https://t.me/c/%s/%d", internal, messageID)
}

func mark(on bool) string {
	if on {
		return "✅"
	}
	return "❌"
}

func sentOrSkipped(t *Tally) string {
	if t == nil {
		return "Skipped"
	}
	return "Sent"
}
