// Package broadcast delivers owner announcements to every known group and user.
package broadcast

import (
	"context"
	"sort"
	"strings"
	"time"
)

// Command selects how replied-to content is delivered.
type Command string

const (
	// CommandCopy re-posts the content without a "forwarded from" header.
	CommandCopy Command = "bcast"
	// CommandForward forwards the original message.
	CommandForward Command = "fcast"
)

// Option is a delivery toggle chosen on the draft keyboard.
type Option string

const (
	OptionPin   Option = "pin"
	OptionGroup Option = "group"
	OptionUser  Option = "user"
)

// Options is a set of selected delivery toggles.
type Options map[Option]bool

// ParseOptions decodes the comma separated storage form.
func ParseOptions(raw string) Options {
	opts := Options{}
	for _, part := range strings.Split(raw, ",") {
		switch o := Option(strings.TrimSpace(part)); o {
		case OptionPin, OptionGroup, OptionUser:
			opts[o] = true
		}
	}
	return opts
}

// String encodes the set in a stable order.
func (o Options) String() string {
	parts := make([]string, 0, len(o))
	for opt, on := range o {
		if on {
			parts = append(parts, string(opt))
		}
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

// Toggle flips opt and returns the set for chaining.
func (o Options) Toggle(opt Option) Options {
	if o[opt] {
		delete(o, opt)
	} else {
		o[opt] = true
	}
	return o
}

// Draft is a pending broadcast awaiting confirmation.
type Draft struct {
	ID              string
	Command         Command
	Text            string // set for text broadcasts
	SourceChatID    int64  // set for replied-to content
	SourceMessageID int
	OriginChatID    int64
	OriginMessageID int
	Options         Options
	CreatedAt       time.Time
}

// HasContent reports whether the draft has anything to send.
func (d *Draft) HasContent() bool {
	return d.Text != "" || d.SourceMessageID != 0
}

// Repository persists drafts between the command and the confirmation callback.
type Repository interface {
	SaveDraft(ctx context.Context, d *Draft) error
	// GetDraft returns nil if the draft does not exist (expired or already sent).
	GetDraft(ctx context.Context, id string) (*Draft, error)
	SetDraftOptions(ctx context.Context, id string, opts Options) error
	DeleteDraft(ctx context.Context, id string) error
}

// Audience lists broadcast targets.
type Audience interface {
	ListGroupIDs(ctx context.Context) ([]int64, error)
	ListUserIDs(ctx context.Context) ([]int64, error)
}
