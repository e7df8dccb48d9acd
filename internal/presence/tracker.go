package presence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Tracker answers "is user X away" and records AFK set/clear events.
type Tracker struct {
	repo   Repository
	now    func() time.Time
	logger zerolog.Logger
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithClock overrides the time source.
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) { t.now = now }
}

// NewTracker creates a Tracker backed by repo.
func NewTracker(repo Repository, logger zerolog.Logger, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		repo:   repo,
		now:    time.Now,
		logger: logger.With().Str("component", "presence").Logger(),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// SetAway marks the user as away. An existing record is overwritten.
func (t *Tracker) SetAway(ctx context.Context, userID int64, d Details) (Record, error) {
	kind := d.Kind
	if kind == "" {
		kind = KindText
	}
	rec := Record{
		UserID:    userID,
		Kind:      kind,
		AwaySince: t.now(),
		Reason:    TruncateReason(d.Reason),
	}
	if kind == KindAnimation {
		rec.MediaRef = d.MediaRef
	}

	if err := t.repo.UpsertAFK(ctx, rec); err != nil {
		return Record{}, fmt.Errorf("set away for user %d: %w", userID, err)
	}
	t.logger.Debug().Int64("user_id", userID).Str("kind", string(kind)).Msg("user is away")
	return rec, nil
}

// ClearAway removes the user's away record. Clearing a user who is not away is a no-op.
func (t *Tracker) ClearAway(ctx context.Context, userID int64) error {
	if err := t.repo.DeleteAFK(ctx, userID); err != nil {
		return fmt.Errorf("clear away for user %d: %w", userID, err)
	}
	return nil
}

// QueryAway returns the user's record and whether they are away.
func (t *Tracker) QueryAway(ctx context.Context, userID int64) (Record, bool, error) {
	rec, err := t.repo.GetAFK(ctx, userID)
	if err != nil {
		return Record{}, false, fmt.Errorf("query away for user %d: %w", userID, err)
	}
	if rec == nil {
		return Record{}, false, nil
	}
	return *rec, true, nil
}

// CountAway returns how many users are currently away.
func (t *Tracker) CountAway(ctx context.Context) (int, error) {
	return t.repo.CountAFK(ctx)
}

// AwayFor returns how long the record's user has been away.
func (t *Tracker) AwayFor(rec Record) time.Duration {
	d := t.now().Sub(rec.AwaySince)
	if d < 0 {
		return 0
	}
	return d
}

// TruncateReason trims whitespace and keeps at most MaxReasonLength characters.
func TruncateReason(reason string) string {
	r := []rune(strings.TrimSpace(reason))
	if len(r) > MaxReasonLength {
		r = r[:MaxReasonLength]
	}
	return string(r)
}
