package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/p-blackswan/afkbot/internal/broadcast"
	perrors "github.com/p-blackswan/afkbot/internal/errors"
)

var _ broadcast.Repository = (*Store)(nil)

// SaveDraft inserts or replaces a broadcast draft.
func (s *Store) SaveDraft(ctx context.Context, d *broadcast.Draft) error {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}

	query := `
	INSERT OR REPLACE INTO broadcast_drafts (
		id, command, text, source_chat_id, source_message_id,
		origin_chat_id, origin_message_id, options, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		d.ID, string(d.Command),
		sql.NullString{String: d.Text, Valid: d.Text != ""},
		sql.NullInt64{Int64: d.SourceChatID, Valid: d.SourceMessageID != 0},
		sql.NullInt64{Int64: int64(d.SourceMessageID), Valid: d.SourceMessageID != 0},
		d.OriginChatID, d.OriginMessageID, d.Options.String(), d.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to save broadcast draft: %w", err)
	}
	return nil
}

// GetDraft retrieves a broadcast draft by ID. Returns nil if absent.
func (s *Store) GetDraft(ctx context.Context, id string) (*broadcast.Draft, error) {
	var (
		d         broadcast.Draft
		command   string
		text      sql.NullString
		srcChat   sql.NullInt64
		srcMsg    sql.NullInt64
		options   string
		createdAt int64
	)

	query := `
	SELECT id, command, text, source_chat_id, source_message_id,
	       origin_chat_id, origin_message_id, options, created_at
	FROM broadcast_drafts WHERE id = ?
	`

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&d.ID, &command, &text, &srcChat, &srcMsg,
		&d.OriginChatID, &d.OriginMessageID, &options, &createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get broadcast draft: %w", err)
	}

	d.Command = broadcast.Command(command)
	d.Text = text.String
	d.SourceChatID = srcChat.Int64
	d.SourceMessageID = int(srcMsg.Int64)
	d.Options = broadcast.ParseOptions(options)
	d.CreatedAt = time.UnixMilli(createdAt)
	return &d, nil
}

// SetDraftOptions replaces the selected options of a draft.
func (s *Store) SetDraftOptions(ctx context.Context, id string, opts broadcast.Options) error {
	result, err := s.db.ExecContext(ctx, `UPDATE broadcast_drafts SET options = ? WHERE id = ?`, opts.String(), id)
	if err != nil {
		return fmt.Errorf("failed to update draft options: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("broadcast draft %s: %w", id, perrors.ErrNotFound)
	}
	return nil
}

// DeleteDraft removes a broadcast draft. Missing drafts are ignored.
func (s *Store) DeleteDraft(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM broadcast_drafts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete broadcast draft: %w", err)
	}
	return nil
}
