package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/frostline/frostline-backend/pkg/db/models"
)

// DBLimiter persists one row per admitted request and counts the rows inside the
// window. The window is anchored on the oldest counted row, so a scope regains
// capacity once that row ages out. Checks for one scope are serialized so
// concurrent callers cannot all read the same count and all insert.
type DBLimiter struct {
	db   *gorm.DB
	now  func() time.Time
	lock scopeLock
}

// scopeLock holds a per-scope lock until tx ends.
type scopeLock func(tx *gorm.DB, scope string) *gorm.DB

// advisoryScopeLock takes a transaction-scoped Postgres advisory lock keyed on
// the scope hash.
func advisoryScopeLock(tx *gorm.DB, scope string) *gorm.DB {
	return tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", scope)
}

// lockFor picks the scope lock for a dialect. SQLite allows a single writer
// per database, so it needs none.
func lockFor(dialect string) scopeLock {
	if dialect == "postgres" {
		return advisoryScopeLock
	}
	return func(tx *gorm.DB, _ string) *gorm.DB { return tx }
}

func NewDBLimiter(db *gorm.DB) *DBLimiter {
	l := &DBLimiter{db: db, now: time.Now, lock: lockFor("")}
	if db != nil && db.Dialector != nil {
		l.lock = lockFor(db.Dialector.Name())
	}
	return l
}

func (l *DBLimiter) Check(ctx context.Context, scope string, limit int, window time.Duration) (Decision, error) {
	if l.db == nil {
		return Decision{}, errors.New("rate limit database not configured")
	}
	now := l.now().UTC()
	since := now.Add(-window)

	var decision Decision
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := l.lock(tx, scope).Error; err != nil {
			return err
		}
		var count int64
		if err := tx.Model(&models.AIRateLimitEntry{}).
			Where("scope = ? AND created_at > ?", scope, since).
			Count(&count).Error; err != nil {
			return err
		}

		resetAt := now.Add(window)
		if count > 0 {
			var oldest models.AIRateLimitEntry
			if err := tx.Where("scope = ? AND created_at > ?", scope, since).
				Order("created_at ASC").
				Take(&oldest).Error; err != nil {
				return err
			}
			resetAt = oldest.CreatedAt.Add(window)
		}

		if count >= int64(limit) {
			decision = Decision{Allowed: false, Limit: limit, Remaining: 0, ResetAt: resetAt}
			return nil
		}

		entry := models.AIRateLimitEntry{ID: uuid.New(), Scope: scope, CreatedAt: now}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		decision = Decision{
			Allowed:   true,
			Limit:     limit,
			Remaining: limit - int(count) - 1,
			ResetAt:   resetAt,
		}
		return nil
	})
	if err != nil {
		return Decision{}, err
	}
	return decision, nil
}

// Cleanup deletes rows created before the cutoff.
func (l *DBLimiter) Cleanup(ctx context.Context, before time.Time) (int64, error) {
	res := l.db.WithContext(ctx).
		Where("created_at < ?", before.UTC()).
		Delete(&models.AIRateLimitEntry{})
	return res.RowsAffected, res.Error
}
