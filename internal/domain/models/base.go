package models

import (
	"time"

	"github.com/google/uuid"
)

// Base carries the columns shared by every persisted record.
type Base struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	IsDeleted bool      `gorm:"not null;index" json:"-"`
}

// EnsureID assigns a fresh identifier when the record has none yet.
func (b *Base) EnsureID() {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
}

// Page is one window of a list result.
type Page[T any] struct {
	Items  []T   `json:"results"`
	Count  int64 `json:"count"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

// ListQuery is the caller-controlled part of a list request. Filters are matched
// against a per-resource whitelist; unknown keys are rejected.
type ListQuery struct {
	Filters  map[string]string
	Search   string
	Ordering string
	Limit    int
	Offset   int
}

const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// Normalize clamps paging to sane bounds.
func (q ListQuery) Normalize() ListQuery {
	if q.Limit <= 0 {
		q.Limit = DefaultPageSize
	}
	if q.Limit > MaxPageSize {
		q.Limit = MaxPageSize
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return q
}

// WithFilter returns a copy of q with key=value added to its filters.
func (q ListQuery) WithFilter(key, value string) ListQuery {
	filters := make(map[string]string, len(q.Filters)+1)
	for k, v := range q.Filters {
		filters[k] = v
	}
	filters[key] = value
	q.Filters = filters
	return q
}
