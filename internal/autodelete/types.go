// Package autodelete removes bot-authored messages from group chats once
// the chat's retention period has elapsed.
package autodelete

import "time"

// DefaultRetentionSeconds applies to every chat until an admin changes it.
const DefaultRetentionSeconds = 300

// RetentionChoices are the retention periods offered to chat admins.
var RetentionChoices = []int{300, 600, 1800, 3600}

// ValidRetention reports whether seconds is one of RetentionChoices.
func ValidRetention(seconds int) bool {
	for _, c := range RetentionChoices {
		if c == seconds {
			return true
		}
	}
	return false
}

// Config holds sweeper timing.
type Config struct {
	SweepInterval time.Duration // default 30s
	ErrorBackoff  time.Duration // default 2m
	DeleteTimeout time.Duration // per deleteMessage call
	BatchSize     int           // due tasks fetched per query
}

// DefaultConfig returns sane defaults.
func DefaultConfig() Config {
	return Config{
		SweepInterval: 30 * time.Second,
		ErrorBackoff:  2 * time.Minute,
		DeleteTimeout: 15 * time.Second,
		BatchSize:     200,
	}
}

// Policy is a chat's auto-delete setting. A chat never seen before behaves
// as disabled with the default retention.
type Policy struct {
	ChatID           int64
	Enabled          bool
	RetentionSeconds int
}

// Retention returns the retention period as a duration.
func (p Policy) Retention() time.Duration {
	return time.Duration(p.RetentionSeconds) * time.Second
}

// Task is a pending deletion. (ChatID, MessageID) is unique.
type Task struct {
	ID        int64
	ChatID    int64
	MessageID int
	DueAt     time.Time
	CreatedAt time.Time
}

// Outcome classifies a registration attempt.
type Outcome string

const (
	OutcomeRegistered Outcome = "registered"
	OutcomeSkipped    Outcome = "skipped"
	OutcomeFailed     Outcome = "failed"
)

// Result is the best-effort answer of Scheduler.Register. Err is set only
// when Outcome is OutcomeFailed.
type Result struct {
	Outcome Outcome
	DueAt   time.Time
	Err     error
}

// DeleteOutcome classifies one deletion attempt.
type DeleteOutcome string

const (
	DeleteDeleted   DeleteOutcome = "deleted"
	DeleteGone      DeleteOutcome = "gone"
	DeleteForbidden DeleteOutcome = "forbidden"
	DeleteFailed    DeleteOutcome = "failed"
)

// SweepReport summarizes one sweep pass.
type SweepReport struct {
	Due       int
	Deleted   int
	Gone      int
	Forbidden int
	Failed    int
	Removed   int
}

func (r *SweepReport) add(o DeleteOutcome) {
	switch o {
	case DeleteDeleted:
		r.Deleted++
	case DeleteGone:
		r.Gone++
	case DeleteForbidden:
		r.Forbidden++
	default:
		r.Failed++
	}
}

// Observer receives scheduling and sweep events, typically for metrics.
type Observer interface {
	ObserveRegistration(o Outcome)
	ObserveDeletion(o DeleteOutcome)
	ObserveSweep(d time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) ObserveRegistration(Outcome)       {}
func (nopObserver) ObserveDeletion(DeleteOutcome)     {}
func (nopObserver) ObserveSweep(time.Duration, error) {}
