package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sakif/eco-tracker/internal/apperror"
	"github.com/sakif/eco-tracker/internal/model"
	"github.com/sakif/eco-tracker/internal/repository"
)

// UsageStore implements repository.UsageRepository on top of a shared DB.
type UsageStore struct {
	db *DB
}

func NewUsageStore(db *DB) *UsageStore { return &UsageStore{db: db} }

var _ repository.UsageRepository = (*UsageStore)(nil)

// Init (re)creates zeroed usage stats for a user, seeding a zero bucket
// for the month containing now. Any previous stats and buckets for the
// user are discarded — this is provisioning, not an increment.
func (s *UsageStore) Init(ctx context.Context, userID string, now time.Time) (*model.UsageStats, error) {
	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: beginning usage init: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO usage_stats
		 (user_id, total_scans, total_analyses, total_reports,
		  total_food_waste, total_fertilizer, waste_reduction,
		  last_updated, created_at)
		 VALUES (?, 0, 0, 0, 0, 0, 0, ?, ?)`,
		userID, now, now,
	); err != nil {
		return nil, fmt.Errorf("sqlite: initializing usage stats for user %s: %w", userID, err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM monthly_usage WHERE user_id = ?`, userID,
	); err != nil {
		return nil, fmt.Errorf("sqlite: clearing monthly usage for user %s: %w", userID, err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO monthly_usage (user_id, period) VALUES (?, ?)`,
		userID, model.PeriodKey(now),
	); err != nil {
		return nil, fmt.Errorf("sqlite: seeding monthly usage for user %s: %w", userID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: committing usage init: %w", err)
	}

	return s.Get(ctx, userID)
}

// Get retrieves a user's usage stats with all monthly buckets attached.
// Returns apperror.ErrNotFound if the user was never initialized.
func (s *UsageStore) Get(ctx context.Context, userID string) (*model.UsageStats, error) {
	var stats model.UsageStats
	err := s.db.conn.QueryRowContext(ctx,
		`SELECT user_id, total_scans, total_analyses, total_reports,
		        total_food_waste, total_fertilizer, waste_reduction,
		        last_updated, created_at
		 FROM usage_stats WHERE user_id = ?`,
		userID,
	).Scan(
		&stats.UserID,
		&stats.TotalScans,
		&stats.TotalAnalyses,
		&stats.TotalReports,
		&stats.TotalFoodWasteTracked,
		&stats.TotalFertilizerProduced,
		&stats.WasteReduction,
		&stats.LastUpdated,
		&stats.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("usage stats", userID)
		}
		return nil, fmt.Errorf("sqlite: getting usage stats for user %s: %w", userID, err)
	}

	stats.MonthlyStats = map[string]model.MonthlyUsage{}
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT period, scans, analyses, reports, food_waste, fertilizer
		 FROM monthly_usage WHERE user_id = ?`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting monthly usage for user %s: %w", userID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			period string
			m      model.MonthlyUsage
		)
		if err := rows.Scan(&period, &m.Scans, &m.Analyses, &m.Reports, &m.FoodWaste, &m.Fertilizer); err != nil {
			return nil, fmt.Errorf("sqlite: scanning monthly usage row: %w", err)
		}
		stats.MonthlyStats[period] = m
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating monthly usage: %w", err)
	}

	return &stats, nil
}

// Apply adds delta to the lifetime counters and to now's monthly bucket in
// one transaction, so the "lifetime equals sum of monthly" invariant can
// never be observed half-applied. The bucket for the current month is
// created on demand when the month has rolled over; stale buckets are left
// untouched. A user with no stats row at all gets one created with zeroed
// counters first — recording usage must not fail just because provisioning
// was incomplete.
func (s *UsageStore) Apply(ctx context.Context, userID string, delta model.UsageDelta, now time.Time) (*model.UsageStats, error) {
	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: beginning usage apply: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO usage_stats
		 (user_id, last_updated, created_at) VALUES (?, ?, ?)`,
		userID, now, now,
	); err != nil {
		return nil, fmt.Errorf("sqlite: ensuring usage stats for user %s: %w", userID, err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE usage_stats
		 SET total_scans      = total_scans + ?,
		     total_analyses   = total_analyses + ?,
		     total_reports    = total_reports + ?,
		     total_food_waste = total_food_waste + ?,
		     total_fertilizer = total_fertilizer + ?,
		     last_updated     = ?
		 WHERE user_id = ?`,
		delta.Scans, delta.Analyses, delta.Reports,
		delta.FoodWaste, delta.Fertilizer,
		now, userID,
	); err != nil {
		return nil, fmt.Errorf("sqlite: updating lifetime counters for user %s: %w", userID, err)
	}

	// Additive upsert: creates the current month's bucket with the delta
	// as its initial value, or adds to an existing bucket.
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO monthly_usage (user_id, period, scans, analyses, reports, food_waste, fertilizer)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, period) DO UPDATE SET
		     scans      = scans + excluded.scans,
		     analyses   = analyses + excluded.analyses,
		     reports    = reports + excluded.reports,
		     food_waste = food_waste + excluded.food_waste,
		     fertilizer = fertilizer + excluded.fertilizer`,
		userID, model.PeriodKey(now),
		delta.Scans, delta.Analyses, delta.Reports,
		delta.FoodWaste, delta.Fertilizer,
	); err != nil {
		return nil, fmt.Errorf("sqlite: updating monthly usage for user %s: %w", userID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: committing usage apply: %w", err)
	}

	return s.Get(ctx, userID)
}

// CurrentMonthly returns the bucket for the month containing now.
//
// The distinction here matters for quota checks: a user whose stats exist
// but who has no bucket for the current month simply hasn't acted this
// month — that's a zero bucket. A user with no stats row at all was never
// provisioned, and that's ErrNotFound so limit checks fail closed.
func (s *UsageStore) CurrentMonthly(ctx context.Context, userID string, now time.Time) (*model.MonthlyUsage, error) {
	var exists int
	err := s.db.conn.QueryRowContext(ctx,
		`SELECT 1 FROM usage_stats WHERE user_id = ?`, userID,
	).Scan(&exists)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("usage stats", userID)
		}
		return nil, fmt.Errorf("sqlite: checking usage stats for user %s: %w", userID, err)
	}

	var m model.MonthlyUsage
	err = s.db.conn.QueryRowContext(ctx,
		`SELECT scans, analyses, reports, food_waste, fertilizer
		 FROM monthly_usage WHERE user_id = ? AND period = ?`,
		userID, model.PeriodKey(now),
	).Scan(&m.Scans, &m.Analyses, &m.Reports, &m.FoodWaste, &m.Fertilizer)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("sqlite: getting current monthly usage for user %s: %w", userID, err)
	}

	return &m, nil
}

// Put writes a full usage record exactly as given, replacing any existing
// stats and buckets. Used by import to overwrite the matching key.
func (s *UsageStore) Put(ctx context.Context, stats *model.UsageStats) error {
	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning usage put: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO usage_stats
		 (user_id, total_scans, total_analyses, total_reports,
		  total_food_waste, total_fertilizer, waste_reduction,
		  last_updated, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		stats.UserID,
		stats.TotalScans,
		stats.TotalAnalyses,
		stats.TotalReports,
		stats.TotalFoodWasteTracked,
		stats.TotalFertilizerProduced,
		stats.WasteReduction,
		stats.LastUpdated,
		stats.CreatedAt,
	); err != nil {
		return fmt.Errorf("sqlite: putting usage stats for user %s: %w", stats.UserID, err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM monthly_usage WHERE user_id = ?`, stats.UserID,
	); err != nil {
		return fmt.Errorf("sqlite: clearing monthly usage for user %s: %w", stats.UserID, err)
	}

	for period, m := range stats.MonthlyStats {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO monthly_usage (user_id, period, scans, analyses, reports, food_waste, fertilizer)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			stats.UserID, period, m.Scans, m.Analyses, m.Reports, m.FoodWaste, m.Fertilizer,
		); err != nil {
			return fmt.Errorf("sqlite: putting monthly usage %s for user %s: %w", period, stats.UserID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing usage put: %w", err)
	}
	return nil
}

// Delete removes a user's usage stats and all monthly buckets. Reports
// whether a stats row existed.
func (s *UsageStore) Delete(ctx context.Context, userID string) (bool, error) {
	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("sqlite: beginning usage delete: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`DELETE FROM usage_stats WHERE user_id = ?`, userID,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: deleting usage stats for user %s: %w", userID, err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM monthly_usage WHERE user_id = ?`, userID,
	); err != nil {
		return false, fmt.Errorf("sqlite: deleting monthly usage for user %s: %w", userID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("sqlite: committing usage delete: %w", err)
	}
	return rowsAffected > 0, nil
}

// List returns every user's usage stats with monthly buckets attached.
func (s *UsageStore) List(ctx context.Context) ([]model.UsageStats, error) {
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT user_id, total_scans, total_analyses, total_reports,
		        total_food_waste, total_fertilizer, waste_reduction,
		        last_updated, created_at
		 FROM usage_stats ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing usage stats: %w", err)
	}
	defer rows.Close()

	var (
		all   []model.UsageStats
		index = map[string]int{}
	)
	for rows.Next() {
		var stats model.UsageStats
		if err := rows.Scan(
			&stats.UserID,
			&stats.TotalScans,
			&stats.TotalAnalyses,
			&stats.TotalReports,
			&stats.TotalFoodWasteTracked,
			&stats.TotalFertilizerProduced,
			&stats.WasteReduction,
			&stats.LastUpdated,
			&stats.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning usage stats row: %w", err)
		}
		stats.MonthlyStats = map[string]model.MonthlyUsage{}
		index[stats.UserID] = len(all)
		all = append(all, stats)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating usage stats: %w", err)
	}

	monthly, err := s.db.conn.QueryContext(ctx,
		`SELECT user_id, period, scans, analyses, reports, food_waste, fertilizer
		 FROM monthly_usage`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing monthly usage: %w", err)
	}
	defer monthly.Close()

	for monthly.Next() {
		var (
			userID, period string
			m              model.MonthlyUsage
		)
		if err := monthly.Scan(&userID, &period, &m.Scans, &m.Analyses, &m.Reports, &m.FoodWaste, &m.Fertilizer); err != nil {
			return nil, fmt.Errorf("sqlite: scanning monthly usage row: %w", err)
		}
		if i, ok := index[userID]; ok {
			all[i].MonthlyStats[period] = m
		}
	}
	if err := monthly.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating monthly usage: %w", err)
	}

	return all, nil
}
