package broadcast

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	perrors "github.com/p-blackswan/afkbot/internal/errors"
)

// Service manages the draft lifecycle: create, toggle options, confirm or cancel.
type Service struct {
	repo        Repository
	broadcaster *Broadcaster
	now         func() time.Time
	logger      zerolog.Logger
}

// NewService creates a new Service.
func NewService(repo Repository, broadcaster *Broadcaster, logger zerolog.Logger) *Service {
	return &Service{
		repo:        repo,
		broadcaster: broadcaster,
		now:         time.Now,
		logger:      logger.With().Str("component", "broadcast").Logger(),
	}
}

// Create stores a new draft. Either text or a source message should be set;
// drafts without content are still stored so the menu can show a warning.
func (s *Service) Create(ctx context.Context, d Draft) (*Draft, error) {
	d.ID = uuid.NewString()
	d.CreatedAt = s.now()
	if d.Options == nil {
		d.Options = Options{}
	}
	if d.Command != CommandForward {
		d.Command = CommandCopy
	}
	if err := s.repo.SaveDraft(ctx, &d); err != nil {
		return nil, err
	}
	s.logger.Info().Str("draft", d.ID).Str("command", string(d.Command)).Msg("draft created")
	return &d, nil
}

// Get loads a draft. It returns ErrNotFound when the draft expired or was used.
func (s *Service) Get(ctx context.Context, id string) (*Draft, error) {
	d, err := s.repo.GetDraft(ctx, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, fmt.Errorf("broadcast draft %s: %w", id, perrors.ErrNotFound)
	}
	return d, nil
}

// ToggleOption flips one option on the draft.
func (s *Service) ToggleOption(ctx context.Context, id string, opt Option) (*Draft, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	d.Options.Toggle(opt)
	if err := s.repo.SetDraftOptions(ctx, id, d.Options); err != nil {
		return nil, err
	}
	return d, nil
}

// Cancel discards a draft.
func (s *Service) Cancel(ctx context.Context, id string) error {
	return s.repo.DeleteDraft(ctx, id)
}

// Confirm delivers the draft and deletes it. The draft is removed before
// delivery starts so a second press cannot send it twice.
func (s *Service) Confirm(ctx context.Context, id string, progress ProgressFunc) (*Report, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.DeleteDraft(ctx, id); err != nil {
		return nil, err
	}
	if !d.HasContent() {
		return nil, fmt.Errorf("broadcast draft %s is empty: %w", id, perrors.ErrInvalidInput)
	}
	return s.broadcaster.Deliver(ctx, d, progress)
}
