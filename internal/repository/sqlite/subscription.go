package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sakif/eco-tracker/internal/apperror"
	"github.com/sakif/eco-tracker/internal/model"
	"github.com/sakif/eco-tracker/internal/repository"
)

// SubscriptionStore implements repository.SubscriptionRepository on top of
// a shared DB.
type SubscriptionStore struct {
	db *DB
}

func NewSubscriptionStore(db *DB) *SubscriptionStore { return &SubscriptionStore{db: db} }

var _ repository.SubscriptionRepository = (*SubscriptionStore)(nil)

const subscriptionColumns = `user_id, plan, status, start_date, end_date,
	auto_renew, last_payment, next_payment, payment_method,
	scans_per_month, analyses_per_month, reports_per_month, features,
	created_at, updated_at`

// Put inserts or replaces the subscription for sub.UserID. The record is
// stored exactly as given: the subscription service owns all field
// computation (validity windows, billing stamps, catalog copies), and
// import relies on Put not rewriting anything.
func (s *SubscriptionStore) Put(ctx context.Context, sub *model.Subscription) error {
	var lastPayment, nextPayment sql.NullTime
	if sub.BillingInfo.LastPayment != nil {
		lastPayment = sql.NullTime{Time: *sub.BillingInfo.LastPayment, Valid: true}
	}
	if sub.BillingInfo.NextPayment != nil {
		nextPayment = sql.NullTime{Time: *sub.BillingInfo.NextPayment, Valid: true}
	}

	_, err := s.db.conn.ExecContext(ctx,
		`INSERT OR REPLACE INTO subscriptions (`+subscriptionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.UserID,
		string(sub.Plan),
		sub.Status,
		sub.StartDate,
		sub.EndDate,
		sub.AutoRenew,
		lastPayment,
		nextPayment,
		sub.BillingInfo.PaymentMethod,
		sub.Limits.ScansPerMonth,
		sub.Limits.AnalysesPerMonth,
		sub.Limits.ReportsPerMonth,
		encodeJSON(sub.Features),
		sub.CreatedAt,
		sub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: putting subscription for user %s: %w", sub.UserID, err)
	}
	return nil
}

func scanSubscription(row rowScanner) (*model.Subscription, error) {
	var (
		s                        model.Subscription
		lastPayment, nextPayment sql.NullTime
		features                 string
	)
	err := row.Scan(
		&s.UserID,
		&s.Plan,
		&s.Status,
		&s.StartDate,
		&s.EndDate,
		&s.AutoRenew,
		&lastPayment,
		&nextPayment,
		&s.BillingInfo.PaymentMethod,
		&s.Limits.ScansPerMonth,
		&s.Limits.AnalysesPerMonth,
		&s.Limits.ReportsPerMonth,
		&features,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lastPayment.Valid {
		t := lastPayment.Time
		s.BillingInfo.LastPayment = &t
	}
	if nextPayment.Valid {
		t := nextPayment.Time
		s.BillingInfo.NextPayment = &t
	}

	s.Features = model.Features{}
	decodeJSON(features, &s.Features)

	return &s, nil
}

// GetByUserID retrieves the subscription for a user.
// Returns apperror.ErrNotFound if the user has none.
func (s *SubscriptionStore) GetByUserID(ctx context.Context, userID string) (*model.Subscription, error) {
	sub, err := scanSubscription(s.db.conn.QueryRowContext(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE user_id = ?`, userID,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("subscription", userID)
		}
		return nil, fmt.Errorf("sqlite: getting subscription for user %s: %w", userID, err)
	}
	return sub, nil
}

// Delete removes a user's subscription and reports whether a row was
// deleted. Absent subscription is a no-op.
func (s *SubscriptionStore) Delete(ctx context.Context, userID string) (bool, error) {
	result, err := s.db.conn.ExecContext(ctx,
		`DELETE FROM subscriptions WHERE user_id = ?`, userID,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: deleting subscription for user %s: %w", userID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// List returns all subscriptions.
func (s *SubscriptionStore) List(ctx context.Context) ([]model.Subscription, error) {
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []model.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning subscription row: %w", err)
		}
		subs = append(subs, *sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating subscriptions: %w", err)
	}

	return subs, nil
}
