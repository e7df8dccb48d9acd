package autodelete

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/p-blackswan/afkbot/internal/telegram"
)

// CallbackPrefix marks settings keyboard callbacks.
const CallbackPrefix = "ad:"

// Action is a settings keyboard action.
type Action string

const (
	ActionEnable  Action = "on"
	ActionDisable Action = "off"
	ActionToggle  Action = "toggle"
	ActionTime    Action = "time"
	ActionClose   Action = "close"
)

// Callback is a parsed settings keyboard press.
type Callback struct {
	Action  Action
	Seconds int // set for ActionTime
}

// ParseCallback decodes callback data produced by SettingsKeyboard.
func ParseCallback(data string) (Callback, bool) {
	rest, ok := strings.CutPrefix(data, CallbackPrefix)
	if !ok {
		return Callback{}, false
	}
	switch a := Action(rest); a {
	case ActionEnable, ActionDisable, ActionToggle, ActionClose:
		return Callback{Action: a}, true
	}
	secs, ok := strings.CutPrefix(rest, string(ActionTime)+":")
	if !ok {
		return Callback{}, false
	}
	n, err := strconv.Atoi(secs)
	if err != nil {
		return Callback{}, false
	}
	return Callback{Action: ActionTime, Seconds: n}, true
}

// SettingsText renders the current policy for the settings message.
func SettingsText(p Policy, pending int) string {
	state := "disabled ❌"
	if p.Enabled {
		state = "enabled ✅"
	}
	return fmt.Sprintf("<b>Auto-delete settings</b>\n\n"+
		"Status: <b>%s</b>\n"+
		"Delete bot messages after: <b>%s</b>\n"+
		"Pending deletions: <code>%d</code>\n\n"+
		"Only chat admins can change these settings.",
		state, RetentionLabel(p.RetentionSeconds), pending)
}

// RetentionLabel formats a retention period, e.g. "5 minutes".
func RetentionLabel(seconds int) string {
	switch {
	case seconds%3600 == 0 && seconds >= 3600:
		h := seconds / 3600
		if h == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", h)
	case seconds%60 == 0 && seconds >= 60:
		m := seconds / 60
		if m == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", m)
	default:
		return fmt.Sprintf("%d seconds", seconds)
	}
}

// SettingsKeyboard builds the inline keyboard for a policy. The active
// retention is marked.
func SettingsKeyboard(p Policy) *telegram.InlineKeyboardMarkup {
	toggle := telegram.CallbackButton("Enable", CallbackPrefix+string(ActionEnable))
	if p.Enabled {
		toggle = telegram.CallbackButton("Disable", CallbackPrefix+string(ActionDisable))
	}

	var times []telegram.InlineKeyboardButton
	for _, secs := range RetentionChoices {
		label := fmt.Sprintf("%d min", secs/60)
		if secs == p.RetentionSeconds {
			label = "• " + label + " •"
		}
		times = append(times, telegram.CallbackButton(label, fmt.Sprintf("%s%s:%d", CallbackPrefix, ActionTime, secs)))
	}

	return telegram.Keyboard(
		telegram.Row(toggle),
		times,
		telegram.Row(telegram.CallbackButton("Close", CallbackPrefix+string(ActionClose))),
	)
}
