package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// User is a user the bot has seen.
type User struct {
	UserID    int64
	Username  string
	FirstName string
	LastSeen  int64 // unix ms
}

// TouchUser records activity for a user. Username and first name are refreshed when given.
func (s *Store) TouchUser(ctx context.Context, userID int64, username, firstName string) error {
	query := `
	INSERT INTO users (user_id, username, first_name, last_seen)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		username = CASE WHEN excluded.username != '' THEN excluded.username ELSE users.username END,
		first_name = CASE WHEN excluded.first_name != '' THEN excluded.first_name ELSE users.first_name END,
		last_seen = excluded.last_seen
	`

	_, err := s.db.ExecContext(ctx, query, userID, strings.ToLower(username), firstName, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to touch user: %w", err)
	}
	return nil
}

// FindUserByUsername resolves a handle (with or without '@'). Returns nil if unknown.
func (s *Store) FindUserByUsername(ctx context.Context, username string) (*User, error) {
	username = strings.ToLower(strings.TrimPrefix(username, "@"))
	if username == "" {
		return nil, nil
	}

	u := &User{}
	query := `
	SELECT user_id, username, first_name, last_seen FROM users
	WHERE username = ? ORDER BY last_seen DESC LIMIT 1
	`
	err := s.db.QueryRowContext(ctx, query, username).Scan(&u.UserID, &u.Username, &u.FirstName, &u.LastSeen)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return u, nil
}

// ListUserIDs returns every known user ID.
func (s *Store) ListUserIDs(ctx context.Context) ([]int64, error) {
	return s.listIDs(ctx, `SELECT user_id FROM users ORDER BY user_id`)
}

// CountUsers returns the number of known users.
func (s *Store) CountUsers(ctx context.Context) (int, error) {
	return s.count(ctx, "users")
}

func (s *Store) listIDs(ctx context.Context, query string) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
