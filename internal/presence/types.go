// Package presence tracks which users are away (AFK) and how to announce it.
package presence

import (
	"context"
	"time"
)

// Kind is the type of media attached to an AFK record.
type Kind string

const (
	KindText      Kind = "text"
	KindPhoto     Kind = "photo"
	KindAnimation Kind = "animation"
)

// MaxReasonLength is the maximum number of characters kept from an AFK reason.
const MaxReasonLength = 100

// Record is one user's away state. A record exists only while the user is away.
type Record struct {
	UserID    int64
	Kind      Kind
	AwaySince time.Time
	Reason    string // empty = no reason given
	MediaRef  string // platform file reference, set only for KindAnimation
}

// Details is the input for SetAway.
type Details struct {
	Kind     Kind
	Reason   string
	MediaRef string
}

// Repository persists AFK records keyed by user ID.
type Repository interface {
	// UpsertAFK creates or overwrites the record for rec.UserID.
	UpsertAFK(ctx context.Context, rec Record) error
	// GetAFK returns the record, or nil if the user is not away.
	GetAFK(ctx context.Context, userID int64) (*Record, error)
	// DeleteAFK removes the record. Deleting a missing record is not an error.
	DeleteAFK(ctx context.Context, userID int64) error
	// CountAFK returns the number of users currently away.
	CountAFK(ctx context.Context) (int, error)
}
