package autodelete

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Option configures a Scheduler or Sweeper.
type Option func(*options)

type options struct {
	now      func() time.Time
	observer Observer
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithObserver reports events to obs.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now, observer: nopObserver{}}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// Scheduler registers bot-authored messages for later deletion.
type Scheduler struct {
	policies *PolicyStore
	tasks    *TaskStore
	opts     options
	logger   zerolog.Logger
}

// NewScheduler creates a new Scheduler.
func NewScheduler(policies *PolicyStore, tasks *TaskStore, logger zerolog.Logger, opts ...Option) *Scheduler {
	return &Scheduler{
		policies: policies,
		tasks:    tasks,
		opts:     buildOptions(opts),
		logger:   logger.With().Str("component", "autodelete").Logger(),
	}
}

// Register schedules deletion of a message the bot just sent, if the chat
// has auto-delete enabled. It never returns an error: failures are logged
// and reported as OutcomeFailed so the send path is never affected.
func (s *Scheduler) Register(ctx context.Context, chatID int64, messageID int) Result {
	res := s.register(ctx, chatID, messageID)
	s.opts.observer.ObserveRegistration(res.Outcome)
	return res
}

func (s *Scheduler) register(ctx context.Context, chatID int64, messageID int) Result {
	policy, err := s.policies.GetOrInit(ctx, chatID)
	if err != nil {
		s.logger.Error().Err(err).Int64("chat_id", chatID).Int("message_id", messageID).Msg("failed to load policy")
		return Result{Outcome: OutcomeFailed, Err: err}
	}
	if !policy.Enabled {
		return Result{Outcome: OutcomeSkipped}
	}

	now := s.opts.now()
	task := Task{
		ChatID:    chatID,
		MessageID: messageID,
		DueAt:     now.Add(policy.Retention()),
		CreatedAt: now,
	}
	if err := s.tasks.Add(ctx, task); err != nil {
		s.logger.Error().Err(err).Int64("chat_id", chatID).Int("message_id", messageID).Msg("failed to register deletion")
		return Result{Outcome: OutcomeFailed, Err: err}
	}

	s.logger.Debug().Int64("chat_id", chatID).Int("message_id", messageID).Time("due_at", task.DueAt).Msg("deletion registered")
	return Result{Outcome: OutcomeRegistered, DueAt: task.DueAt}
}
