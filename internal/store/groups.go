package store

import (
	"context"
	"fmt"
	"time"
)

// TrackGroup records activity in a group chat.
func (s *Store) TrackGroup(ctx context.Context, chatID int64, title string) error {
	query := `
	INSERT INTO chat_groups (chat_id, title, last_active)
	VALUES (?, ?, ?)
	ON CONFLICT(chat_id) DO UPDATE SET title = excluded.title, last_active = excluded.last_active
	`

	if _, err := s.db.ExecContext(ctx, query, chatID, title, time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("failed to track group: %w", err)
	}
	return nil
}

// ListGroupIDs returns every known group chat ID.
func (s *Store) ListGroupIDs(ctx context.Context) ([]int64, error) {
	return s.listIDs(ctx, `SELECT chat_id FROM chat_groups ORDER BY chat_id`)
}

// CountGroups returns the number of known groups.
func (s *Store) CountGroups(ctx context.Context) (int, error) {
	return s.count(ctx, "chat_groups")
}
