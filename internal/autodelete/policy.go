package autodelete

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	perrors "github.com/p-blackswan/afkbot/internal/errors"
)

// PolicyStore persists per-chat auto-delete policies. It performs no
// permission checks.
type PolicyStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewPolicyStore creates a new PolicyStore.
func NewPolicyStore(db *sql.DB) *PolicyStore {
	return &PolicyStore{db: db, now: time.Now}
}

const policyReturning = ` RETURNING enabled, retention_seconds`

// GetOrInit returns the chat's policy, materializing the default on first
// touch. Concurrent first touches resolve to one row.
func (s *PolicyStore) GetOrInit(ctx context.Context, chatID int64) (Policy, error) {
	query := `
	INSERT INTO chat_policies (chat_id, enabled, retention_seconds, created_at, updated_at)
	VALUES (?, 0, ?, ?, ?)
	ON CONFLICT(chat_id) DO UPDATE SET updated_at = chat_policies.updated_at` + policyReturning

	now := s.now().UnixMilli()
	p, err := s.upsert(ctx, chatID, query, DefaultRetentionSeconds, now, now)
	if err != nil {
		return Policy{}, fmt.Errorf("failed to load policy for chat %d: %w", chatID, err)
	}
	return p, nil
}

// SetEnabled switches auto-delete on or off for the chat.
func (s *PolicyStore) SetEnabled(ctx context.Context, chatID int64, enabled bool) (Policy, error) {
	query := `
	INSERT INTO chat_policies (chat_id, enabled, retention_seconds, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(chat_id) DO UPDATE SET enabled = excluded.enabled, updated_at = excluded.updated_at` + policyReturning

	now := s.now().UnixMilli()
	p, err := s.upsert(ctx, chatID, query, boolToInt(enabled), DefaultRetentionSeconds, now, now)
	if err != nil {
		return Policy{}, fmt.Errorf("failed to set enabled for chat %d: %w", chatID, err)
	}
	return p, nil
}

// SetRetention changes the retention period. Only RetentionChoices are accepted.
func (s *PolicyStore) SetRetention(ctx context.Context, chatID int64, seconds int) (Policy, error) {
	if !ValidRetention(seconds) {
		return Policy{}, fmt.Errorf("retention %ds: %w", seconds, perrors.ErrInvalidInput)
	}
	query := `
	INSERT INTO chat_policies (chat_id, enabled, retention_seconds, created_at, updated_at)
	VALUES (?, 0, ?, ?, ?)
	ON CONFLICT(chat_id) DO UPDATE SET retention_seconds = excluded.retention_seconds, updated_at = excluded.updated_at` + policyReturning

	now := s.now().UnixMilli()
	p, err := s.upsert(ctx, chatID, query, seconds, now, now)
	if err != nil {
		return Policy{}, fmt.Errorf("failed to set retention for chat %d: %w", chatID, err)
	}
	return p, nil
}

// Toggle flips the enabled flag. A chat never seen before starts from the
// disabled default, so its first toggle enables.
func (s *PolicyStore) Toggle(ctx context.Context, chatID int64) (Policy, error) {
	query := `
	INSERT INTO chat_policies (chat_id, enabled, retention_seconds, created_at, updated_at)
	VALUES (?, 1, ?, ?, ?)
	ON CONFLICT(chat_id) DO UPDATE SET enabled = 1 - chat_policies.enabled, updated_at = excluded.updated_at` + policyReturning

	now := s.now().UnixMilli()
	p, err := s.upsert(ctx, chatID, query, DefaultRetentionSeconds, now, now)
	if err != nil {
		return Policy{}, fmt.Errorf("failed to toggle chat %d: %w", chatID, err)
	}
	return p, nil
}

// CountEnabled returns how many chats have auto-delete switched on.
func (s *PolicyStore) CountEnabled(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chat_policies WHERE enabled = 1`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count enabled policies: %w", err)
	}
	return n, nil
}

func (s *PolicyStore) upsert(ctx context.Context, chatID int64, query string, args ...any) (Policy, error) {
	p := Policy{ChatID: chatID}
	var enabled int
	err := s.db.QueryRowContext(ctx, query, append([]any{chatID}, args...)...).Scan(&enabled, &p.RetentionSeconds)
	if err != nil {
		return Policy{}, err
	}
	p.Enabled = enabled == 1
	return p, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
