package autodelete

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	perrors "github.com/p-blackswan/afkbot/internal/errors"
)

// Deleter abstracts deleting a chat message.
type Deleter interface {
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
}

// Sweeper deletes messages whose retention has elapsed.
//
// Each due task gets exactly one delete attempt and is then removed from
// the queue whatever the attempt's outcome.
type Sweeper struct {
	cfg     Config
	tasks   *TaskStore
	deleter Deleter
	opts    options
	logger  zerolog.Logger
}

// NewSweeper creates a new Sweeper.
func NewSweeper(cfg Config, tasks *TaskStore, deleter Deleter, logger zerolog.Logger, opts ...Option) *Sweeper {
	def := DefaultConfig()
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = def.SweepInterval
	}
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = def.ErrorBackoff
	}
	if cfg.DeleteTimeout <= 0 {
		cfg.DeleteTimeout = def.DeleteTimeout
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	return &Sweeper{
		cfg:     cfg,
		tasks:   tasks,
		deleter: deleter,
		opts:    buildOptions(opts),
		logger:  logger.With().Str("component", "sweeper").Logger(),
	}
}

// Run sweeps immediately and then again after SweepInterval, or after
// ErrorBackoff when a pass faulted. It blocks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info().
		Dur("interval", s.cfg.SweepInterval).
		Dur("error_backoff", s.cfg.ErrorBackoff).
		Msg("sweeper started")
	defer s.logger.Info().Msg("sweeper stopped")

	for {
		if ctx.Err() != nil {
			return
		}

		delay := s.cfg.SweepInterval
		report, err := s.safeSweep(ctx)
		switch {
		case err != nil && ctx.Err() != nil:
			return
		case err != nil:
			s.logger.Error().Err(err).Dur("retry_in", s.cfg.ErrorBackoff).Msg("sweep failed")
			delay = s.cfg.ErrorBackoff
		case report.Due > 0:
			s.logger.Info().
				Int("due", report.Due).
				Int("deleted", report.Deleted).
				Int("gone", report.Gone).
				Int("forbidden", report.Forbidden).
				Int("failed", report.Failed).
				Msg("sweep complete")
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// safeSweep runs one pass and turns a panic outside a delete attempt into
// an error.
func (s *Sweeper) safeSweep(ctx context.Context) (report SweepReport, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sweep panic: %v", r)
		}
		s.opts.observer.ObserveSweep(time.Since(start), err)
	}()
	return s.SweepOnce(ctx)
}

// SweepOnce processes every task due at the current clock time. Delete
// failures are per-task and only counted; failures to read or remove tasks
// are returned.
func (s *Sweeper) SweepOnce(ctx context.Context) (SweepReport, error) {
	var report SweepReport
	now := s.opts.now()

	for {
		tasks, err := s.tasks.Due(ctx, now, s.cfg.BatchSize)
		if err != nil {
			return report, err
		}

		var errs []error
		for _, task := range tasks {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			report.Due++
			outcome := s.attempt(ctx, task)
			report.add(outcome)
			s.opts.observer.ObserveDeletion(outcome)

			if err := s.tasks.Remove(ctx, task.ID); err != nil {
				errs = append(errs, err)
				continue
			}
			report.Removed++
		}
		if len(errs) > 0 {
			return report, errors.Join(errs...)
		}
		if len(tasks) < s.cfg.BatchSize {
			return report, nil
		}
	}
}

// attempt makes the single delete call for task. A panicking deleter counts
// as a failed attempt so the task is still removed.
func (s *Sweeper) attempt(ctx context.Context, task Task) (outcome DeleteOutcome) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.DeleteTimeout)
	defer cancel()

	log := s.logger.With().Int64("chat_id", task.ChatID).Int("message_id", task.MessageID).Logger()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("delete attempt panicked")
			outcome = DeleteFailed
		}
	}()

	err := s.deleter.DeleteMessage(ctx, task.ChatID, task.MessageID)
	switch {
	case err == nil:
		log.Debug().Msg("message deleted")
		return DeleteDeleted
	case perrors.IsNotFound(err):
		log.Debug().Msg("message already gone")
		return DeleteGone
	case perrors.IsForbidden(err):
		log.Warn().Err(err).Msg("not allowed to delete message")
		return DeleteForbidden
	default:
		log.Warn().Err(err).Msg("failed to delete message")
		return DeleteFailed
	}
}
