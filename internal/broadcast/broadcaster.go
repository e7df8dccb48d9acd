package broadcast

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.uber.org/ratelimit"

	"github.com/p-blackswan/afkbot/internal/retry"
)

// Sender is the subset of the chat client a broadcast needs. Each send
// returns the id of the new message.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string) (int, error)
	Copy(ctx context.Context, chatID, fromChatID int64, messageID int) (int, error)
	Forward(ctx context.Context, chatID, fromChatID int64, messageID int) (int, error)
	Pin(ctx context.Context, chatID int64, messageID int) error
}

// Target is a broadcast audience.
type Target string

const (
	TargetGroups Target = "group"
	TargetUsers  Target = "user"
)

// Progress edit cadence, in deliveries.
const (
	groupProgressEvery = 10
	userProgressEvery  = 100
)

// ProgressFunc is called periodically during a fan-out.
type ProgressFunc func(target Target, done, total int)

// Tally counts deliveries to one audience.
type Tally struct {
	Total   int
	Success int
	Failed  int
}

// Report is the outcome of a broadcast.
type Report struct {
	OriginChatID    int64
	OriginMessageID int // zero when the origin send failed
	OriginErr       error
	Groups          *Tally // nil when groups were not selected
	Users           *Tally // nil when users were not selected
}

// Broadcaster fans a draft out to the audience.
type Broadcaster struct {
	sender   Sender
	audience Audience
	limiter  ratelimit.Limiter
	retry    retry.Config
	observe  func(target Target, ok bool)
	logger   zerolog.Logger
}

// BroadcasterOption configures a Broadcaster.
type BroadcasterOption func(*Broadcaster)

// WithRetry overrides the per-delivery retry policy.
func WithRetry(cfg retry.Config) BroadcasterOption {
	return func(b *Broadcaster) { b.retry = cfg }
}

// WithDeliveryObserver is called after every fan-out delivery.
func WithDeliveryObserver(fn func(target Target, ok bool)) BroadcasterOption {
	return func(b *Broadcaster) { b.observe = fn }
}

// NewBroadcaster creates a Broadcaster sending at most ratePerSec messages per second.
func NewBroadcaster(sender Sender, audience Audience, ratePerSec int, logger zerolog.Logger, opts ...BroadcasterOption) *Broadcaster {
	if ratePerSec <= 0 {
		ratePerSec = 20
	}
	b := &Broadcaster{
		sender:   sender,
		audience: audience,
		limiter:  ratelimit.New(ratePerSec),
		retry:    retry.DefaultConfig(),
		observe:  func(Target, bool) {},
		logger:   logger.With().Str("component", "broadcast").Logger(),
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Deliver sends d to its origin chat and then to every selected audience.
// Individual delivery failures are counted, not returned; the error is
// non-nil only when an audience could not be listed or ctx ended.
func (b *Broadcaster) Deliver(ctx context.Context, d *Draft, progress ProgressFunc) (*Report, error) {
	if progress == nil {
		progress = func(Target, int, int) {}
	}
	report := &Report{OriginChatID: d.OriginChatID}

	msgID, err := b.send(ctx, d, d.OriginChatID)
	if err != nil {
		b.logger.Error().Err(err).Int64("chat_id", d.OriginChatID).Msg("origin delivery failed")
		report.OriginErr = err
	} else {
		report.OriginMessageID = msgID
	}

	if d.Options[OptionGroup] {
		ids, err := b.audience.ListGroupIDs(ctx)
		if err != nil {
			return report, fmt.Errorf("list groups: %w", err)
		}
		ids = exclude(ids, d.OriginChatID)
		tally, err := b.fanOut(ctx, d, TargetGroups, ids, d.Options[OptionPin], groupProgressEvery, progress)
		report.Groups = tally
		if err != nil {
			return report, err
		}
	}

	if d.Options[OptionUser] {
		ids, err := b.audience.ListUserIDs(ctx)
		if err != nil {
			return report, fmt.Errorf("list users: %w", err)
		}
		tally, err := b.fanOut(ctx, d, TargetUsers, ids, false, userProgressEvery, progress)
		report.Users = tally
		if err != nil {
			return report, err
		}
	}

	return report, nil
}

func (b *Broadcaster) fanOut(ctx context.Context, d *Draft, target Target, ids []int64, pin bool, every int, progress ProgressFunc) (*Tally, error) {
	tally := &Tally{Total: len(ids)}
	b.logger.Info().Str("target", string(target)).Int("total", len(ids)).Str("draft", d.ID).Msg("broadcast started")

	for i, chatID := range ids {
		if err := ctx.Err(); err != nil {
			return tally, err
		}
		b.limiter.Take()

		var msgID int
		err := retry.Do(ctx, b.retry, func(ctx context.Context) error {
			var err error
			msgID, err = b.send(ctx, d, chatID)
			return err
		})
		if err != nil {
			tally.Failed++
			b.logger.Warn().Err(err).Int64("chat_id", chatID).Str("target", string(target)).Msg("delivery failed")
		} else {
			tally.Success++
			if pin && chatID < 0 {
				if err := b.sender.Pin(ctx, chatID, msgID); err != nil {
					b.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("pin failed")
				}
			}
		}
		b.observe(target, err == nil)

		if done := i + 1; done%every == 0 {
			progress(target, done, len(ids))
		}
	}

	b.logger.Info().
		Str("target", string(target)).
		Int("success", tally.Success).
		Int("failed", tally.Failed).
		Msg("broadcast finished")
	return tally, nil
}

// send delivers the draft's content to one chat.
func (b *Broadcaster) send(ctx context.Context, d *Draft, chatID int64) (int, error) {
	switch {
	case d.Text != "":
		return b.sender.SendText(ctx, chatID, d.Text)
	case d.SourceMessageID == 0:
		return 0, fmt.Errorf("draft %s has no content", d.ID)
	case d.Command == CommandForward:
		return b.sender.Forward(ctx, chatID, d.SourceChatID, d.SourceMessageID)
	default:
		return b.sender.Copy(ctx, chatID, d.SourceChatID, d.SourceMessageID)
	}
}

func exclude(ids []int64, skip int64) []int64 {
	out := ids[:0:0]
	for _, id := range ids {
		if id != skip {
			out = append(out, id)
		}
	}
	return out
}
