package gormdb

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mamadbah2/dairyfarm/internal/domain/models"
)

type identified interface {
	EnsureID()
}

// Create inserts rec, assigning its id first.
func Create[T any](db *gorm.DB, rec *T) error {
	if e, ok := any(rec).(identified); ok {
		e.EnsureID()
	}
	return translate(db.Create(rec).Error)
}

// Get loads a live record by id. name labels the not-found error.
func Get[T any](db *gorm.DB, id uuid.UUID, name string) (*T, error) {
	var rec T
	err := db.Where("id = ? AND is_deleted = ?", id, false).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%s %s: %w", name, id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s %s: %w", name, id, err)
	}
	return &rec, nil
}

// First loads the first live record matching the condition.
func First[T any](db *gorm.DB, name string, query string, args ...any) (*T, error) {
	var rec T
	err := db.Where("is_deleted = ?", false).Where(query, args...).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%s: %w", name, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	return &rec, nil
}

// Save writes every column of an existing record.
func Save[T any](db *gorm.DB, rec *T) error {
	return translate(db.Save(rec).Error)
}

// SoftDelete flags a live record as deleted.
func SoftDelete[T any](db *gorm.DB, id uuid.UUID, name string) error {
	res := db.Model(new(T)).Where("id = ? AND is_deleted = ?", id, false).Update("is_deleted", true)
	if res.Error != nil {
		return fmt.Errorf("delete %s %s: %w", name, id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s %s: %w", name, id, models.ErrNotFound)
	}
	return nil
}

// Find returns every live record matching the condition.
func Find[T any](db *gorm.DB, query string, args ...any) ([]T, error) {
	var out []T
	err := db.Where("is_deleted = ?", false).Where(query, args...).Order("id").Find(&out).Error
	return out, err
}

// Exists reports whether a record matching the condition exists. Deleted rows count
// when includeDeleted is set, which matters for unique columns.
func Exists[T any](db *gorm.DB, includeDeleted bool, query string, args ...any) (bool, error) {
	tx := db.Model(new(T)).Where(query, args...)
	if !includeDeleted {
		tx = tx.Where("is_deleted = ?", false)
	}
	var n int64
	if err := tx.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// Count counts live records matching the condition.
func Count[T any](db *gorm.DB, query string, args ...any) (int64, error) {
	var n int64
	err := db.Model(new(T)).Where("is_deleted = ?", false).Where(query, args...).Count(&n).Error
	return n, err
}

// SourceFingerprint summarises the rows a derived figure reads: every row matching
// the condition, deleted ones included, so that deletes are seen as changes too.
func SourceFingerprint[T any](db *gorm.DB, query string, args ...any) (models.Fingerprint, error) {
	var stamps []time.Time
	if err := db.Model(new(T)).Where(query, args...).Pluck("updated_at", &stamps).Error; err != nil {
		return models.Fingerprint{}, err
	}
	fp := models.Fingerprint{Count: int64(len(stamps))}
	for _, ts := range stamps {
		ts = ts.UTC().Truncate(time.Microsecond)
		if fp.LatestUpdate == nil || ts.After(*fp.LatestUpdate) {
			latest := ts
			fp.LatestUpdate = &latest
		}
	}
	return fp, nil
}
