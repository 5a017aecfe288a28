// Package repository defines the storage interfaces for the four entity
// collections: users, subscriptions, usage stats, and activity records.
//
// Each collection is a durable mapping from an entity id to a record.
// Implementations translate "row does not exist" into apperror.ErrNotFound
// so services never see driver-level sentinel errors.
//
// The store assumes a single logical writer at any instant — one process
// owns the database file. Concurrent multi-writer access is unsupported.
package repository

import (
	"context"
	"time"

	"github.com/sakif/eco-tracker/internal/model"
)

// UserRepository stores user accounts, keyed by user id.
// Email is unique across all users.
type UserRepository interface {
	// Create inserts a new user, generating its ID and timestamps.
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// Update persists mutable fields and refreshes UpdatedAt.
	Update(ctx context.Context, user *model.User) error
	SetPassword(ctx context.Context, id, hash string) error
	// Delete removes the user if present and reports whether it did.
	Delete(ctx context.Context, id string) (bool, error)
	List(ctx context.Context) ([]model.User, error)
	// Put writes the record exactly as given (used by import/restore).
	Put(ctx context.Context, user *model.User) error
}

// SubscriptionRepository stores subscriptions, keyed by user id (1:1).
type SubscriptionRepository interface {
	// Put inserts or replaces the subscription for its user.
	Put(ctx context.Context, sub *model.Subscription) error
	GetByUserID(ctx context.Context, userID string) (*model.Subscription, error)
	Delete(ctx context.Context, userID string) (bool, error)
	List(ctx context.Context) ([]model.Subscription, error)
}

// UsageRepository stores rolling usage statistics, keyed by user id.
//
// Apply and CurrentMonthly take the caller's clock so the calendar-month
// bucket is derived at the moment of the call, not at subscription time.
type UsageRepository interface {
	// Init (re)creates zeroed stats with a seeded bucket for now's month.
	Init(ctx context.Context, userID string, now time.Time) (*model.UsageStats, error)
	Get(ctx context.Context, userID string) (*model.UsageStats, error)
	// Apply atomically adds delta to the lifetime counters and to now's
	// monthly bucket, creating the bucket (and, for resilience, the stats
	// row itself) if absent. Returns the updated record.
	Apply(ctx context.Context, userID string, delta model.UsageDelta, now time.Time) (*model.UsageStats, error)
	// CurrentMonthly returns now's bucket. A user with stats but no bucket
	// for the current month gets a zero bucket; a user with no stats at
	// all gets ErrNotFound.
	CurrentMonthly(ctx context.Context, userID string, now time.Time) (*model.MonthlyUsage, error)
	Put(ctx context.Context, stats *model.UsageStats) error
	Delete(ctx context.Context, userID string) (bool, error)
	List(ctx context.Context) ([]model.UsageStats, error)
}

// ActivityRepository stores append-only activity records grouped in a
// per-user container that is provisioned lazily on first append.
type ActivityRepository interface {
	AddScan(ctx context.Context, scan *model.Scan) error
	AddAnalysis(ctx context.Context, analysis *model.Analysis) error
	AddReport(ctx context.Context, report *model.Report) error
	GetByUserID(ctx context.Context, userID string) (*model.AppData, error)
	Put(ctx context.Context, data *model.AppData) error
	Delete(ctx context.Context, userID string) (bool, error)
}

// StoreAdmin exposes store-wide maintenance operations.
type StoreAdmin interface {
	// Reset clears all four collections and reinitializes empty defaults.
	Reset(ctx context.Context) error
}
