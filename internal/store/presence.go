package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/p-blackswan/afkbot/internal/presence"
)

var _ presence.Repository = (*Store)(nil)

// UpsertAFK creates or overwrites the AFK record for rec.UserID.
func (s *Store) UpsertAFK(ctx context.Context, rec presence.Record) error {
	query := `
	INSERT INTO afk_users (user_id, kind, away_since, reason, media_ref)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		kind = excluded.kind,
		away_since = excluded.away_since,
		reason = excluded.reason,
		media_ref = excluded.media_ref
	`

	_, err := s.db.ExecContext(ctx, query,
		rec.UserID, string(rec.Kind), rec.AwaySince.UnixMilli(),
		sql.NullString{String: rec.Reason, Valid: rec.Reason != ""},
		sql.NullString{String: rec.MediaRef, Valid: rec.MediaRef != ""},
	)
	if err != nil {
		return fmt.Errorf("failed to upsert afk record: %w", err)
	}
	return nil
}

// GetAFK returns the AFK record for a user, or nil if the user is not away.
func (s *Store) GetAFK(ctx context.Context, userID int64) (*presence.Record, error) {
	var (
		kind      string
		awaySince int64
		reason    sql.NullString
		mediaRef  sql.NullString
	)

	query := `SELECT kind, away_since, reason, media_ref FROM afk_users WHERE user_id = ?`
	err := s.db.QueryRowContext(ctx, query, userID).Scan(&kind, &awaySince, &reason, &mediaRef)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get afk record: %w", err)
	}

	return &presence.Record{
		UserID:    userID,
		Kind:      presence.Kind(kind),
		AwaySince: time.UnixMilli(awaySince),
		Reason:    reason.String,
		MediaRef:  mediaRef.String,
	}, nil
}

// DeleteAFK removes the AFK record for a user. Missing records are ignored.
func (s *Store) DeleteAFK(ctx context.Context, userID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM afk_users WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to delete afk record: %w", err)
	}
	return nil
}

// CountAFK returns the number of users currently away.
func (s *Store) CountAFK(ctx context.Context) (int, error) {
	return s.count(ctx, "afk_users")
}

func (s *Store) count(ctx context.Context, table string) (int, error) {
	var n int
	// table names are compile-time constants from this package
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}
