package autodelete

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// TaskStore persists pending deletions.
type TaskStore struct {
	db *sql.DB
}

// NewTaskStore creates a new TaskStore.
func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

// Add records a deletion. Registering the same (chat, message) twice keeps
// the first due time.
func (s *TaskStore) Add(ctx context.Context, t Task) error {
	query := `
	INSERT INTO deletion_tasks (chat_id, message_id, due_at, created_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(chat_id, message_id) DO NOTHING
	`
	if _, err := s.db.ExecContext(ctx, query, t.ChatID, t.MessageID, t.DueAt.UnixMilli(), t.CreatedAt.UnixMilli()); err != nil {
		return fmt.Errorf("failed to add deletion task: %w", err)
	}
	return nil
}

// Due returns up to limit tasks whose due time is at or before now, oldest first.
func (s *TaskStore) Due(ctx context.Context, now time.Time, limit int) ([]Task, error) {
	query := `
	SELECT id, chat_id, message_id, due_at, created_at
	FROM deletion_tasks
	WHERE due_at <= ?
	ORDER BY due_at, id
	LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, now.UnixMilli(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list due tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		var t Task
		var due, created int64
		if err := rows.Scan(&t.ID, &t.ChatID, &t.MessageID, &due, &created); err != nil {
			return nil, fmt.Errorf("failed to scan deletion task: %w", err)
		}
		t.DueAt = time.UnixMilli(due)
		t.CreatedAt = time.UnixMilli(created)
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// Remove deletes a task by id. Removing a missing task is not an error.
func (s *TaskStore) Remove(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM deletion_tasks WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to remove deletion task %d: %w", id, err)
	}
	return nil
}

// Count returns the number of pending tasks.
func (s *TaskStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM deletion_tasks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count deletion tasks: %w", err)
	}
	return n, nil
}

// CountForChat returns the number of pending tasks in one chat.
func (s *TaskStore) CountForChat(ctx context.Context, chatID int64) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM deletion_tasks WHERE chat_id = ?`, chatID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count deletion tasks: %w", err)
	}
	return n, nil
}
