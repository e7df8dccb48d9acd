package bot

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode"

	"github.com/p-blackswan/afkbot/internal/presence"
)

const (
	cmdStart      = "start"
	cmdHelp       = "help"
	cmdAFK        = "afk"
	cmdBRB        = "brb"
	cmdStats      = "stats"
	cmdAutoDelete = "autodelete"
	cmdSettings   = "settings"
	cmdBcast      = "bcast"
	cmdFcast      = "fcast"
)

var brbPattern = regexp.MustCompile(`(?i)^brb\b`)

// command is a parsed bot command.
type command struct {
	name string
	args string
}

// parseCommand recognises "/cmd", "/cmd@bot", "!afk" and a leading "brb".
// Commands addressed to a different bot are ignored.
func parseCommand(text, botUsername string) (command, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return command{}, false
	}

	if brbPattern.MatchString(text) {
		var args string
		if i := strings.IndexFunc(text, unicode.IsSpace); i >= 0 {
			args = strings.TrimSpace(text[i:])
		}
		return command{name: cmdBRB, args: args}, true
	}

	prefix := text[0]
	if prefix != '/' && prefix != '!' {
		return command{}, false
	}
	head, args, _ := strings.Cut(text[1:], " ")
	if i := strings.IndexAny(head, "\n\t"); i >= 0 {
		args = head[i+1:] + " " + args
		head = head[:i]
	}
	name, target, addressed := strings.Cut(head, "@")
	if addressed && !strings.EqualFold(target, botUsername) {
		return command{}, false
	}
	name = strings.ToLower(name)
	if name == "" || (prefix == '!' && name != cmdAFK) {
		return command{}, false
	}
	return command{name: name, args: strings.TrimSpace(args)}, true
}

func isAFKCommand(name string) bool {
	return name == cmdAFK || name == cmdBRB
}

// displayName returns an HTML-safe name for a user.
func displayName(firstName string) string {
	if strings.TrimSpace(firstName) == "" {
		return "User"
	}
	return html.EscapeString(firstName)
}

func withReason(text, reason string) string {
	if reason == "" || strings.EqualFold(reason, "none") {
		return text
	}
	return text + "\n\nReason: <code>" + html.EscapeString(reason) + "</code>"
}

func nowAwayText(name, reason string) string {
	return withReason(fmt.Sprintf("<b>%s</b> is now AFK", displayName(name)), reason)
}

func backOnlineText(name string, rec presence.Record, awayFor string) string {
	return withReason(fmt.Sprintf("<b>%s</b> is back online and was away for %s", displayName(name), awayFor), rec.Reason)
}

func backOnlinePlain(name string) string {
	return fmt.Sprintf("<b>%s</b> is back online", displayName(name))
}

func awayNoticeText(name string, rec presence.Record, awayFor string) string {
	return withReason(fmt.Sprintf("<b>%s</b> is AFK since %s", displayName(name), awayFor), rec.Reason)
}

const mediaFallbackText = "Failed to download media, using text AFK"

func startText(uptime string) string {
	return fmt.Sprintf("Hello! I'm AFK BOT.\n\nActive since %s\n\nUse /help for more info.", uptime)
}

const helpText = `<b>📖 AFK Bot Guide</b>

<b>To set AFK:</b>
- <code>/afk</code> or <code>brb</code> - Set basic AFK
- <code>/afk [reason]</code> or <code>brb [reason]</code> - Set AFK with reason
- Reply to a photo/GIF with <code>/afk</code> or <code>brb</code> - Set media AFK

<b>When AFK:</b>
- Bot will notify when you're mentioned
- Shows duration and reason you've been AFK
- Media AFK will display your image/GIF

<b>When back:</b>
- Send any message to disable AFK
- Bot will notify with AFK duration

<b>Group admins:</b>
- /autodelete - Automatically delete bot messages after a while

<b>Other Commands:</b>
- /stats - Show bot statistics`

func statsText(uptime string, users, away, groups int) string {
	return fmt.Sprintf("🤖 <b>Bot Statistics</b>\n"+
		"• Uptime: <code>%s</code>\n"+
		"• Total Users: <code>%d</code>\n"+
		"• AFK Users: <code>%d</code>\n"+
		"• Groups Added: <code>%d</code>", uptime, users, away, groups)
}

const (
	groupOnlyText       = "This command only works in groups."
	adminOnlyText       = "Only chat admins can change auto-delete settings."
	adminOnlyAlert      = "Only admins can change these settings."
	draftExpiredText    = "❌ Broadcast session expired or invalid"
	draftEmptyText      = "⚠️ No message content provided"
	broadcastFailedText = "❌ Broadcast failed"
	broadcastCancelText = "❌ Broadcast cancelled"
	broadcastStartText  = "📤 Broadcasting..."
)
