package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/eco-tracker/internal/apperror"
	"github.com/sakif/eco-tracker/internal/model"
	"github.com/sakif/eco-tracker/internal/repository"
)

// ActivityStore implements repository.ActivityRepository on top of a
// shared DB.
type ActivityStore struct {
	db *DB
}

func NewActivityStore(db *DB) *ActivityStore { return &ActivityStore{db: db} }

var (
	_ repository.ActivityRepository = (*ActivityStore)(nil)
	_ repository.StoreAdmin         = (*DB)(nil)
)

// ensureAppData lazily provisions the per-user activity container with
// default settings. Safe to call on every append.
func (s *ActivityStore) ensureAppData(ctx context.Context, userID string, now time.Time) error {
	settings := model.DefaultAppSettings()
	_, err := s.db.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO app_data
		 (user_id, default_units, auto_save, sync_enabled, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		userID, settings.DefaultUnits, settings.AutoSave, settings.SyncEnabled, now, now,
	)
	if err != nil {
		return fmt.Errorf("sqlite: ensuring app data for user %s: %w", userID, err)
	}
	return nil
}

func (s *ActivityStore) touchAppData(ctx context.Context, userID string, now time.Time) error {
	if _, err := s.db.conn.ExecContext(ctx,
		`UPDATE app_data SET updated_at = ? WHERE user_id = ?`, now, userID,
	); err != nil {
		return fmt.Errorf("sqlite: touching app data for user %s: %w", userID, err)
	}
	return nil
}

// AddScan appends a scan record, generating its ID and timestamp.
// The user's activity container is provisioned on first append.
func (s *ActivityStore) AddScan(ctx context.Context, scan *model.Scan) error {
	now := time.Now()
	if err := s.ensureAppData(ctx, scan.UserID, now); err != nil {
		return err
	}

	scan.ID = xid.New().String()
	scan.Timestamp = now

	_, err := s.db.conn.ExecContext(ctx,
		`INSERT INTO scans (id, user_id, timestamp, food_type, weight, nutrients,
		                    fertilizer_potential, image, location)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		scan.ID,
		scan.UserID,
		scan.Timestamp,
		scan.FoodType,
		scan.Weight,
		encodeJSON(scan.Nutrients),
		scan.FertilizerPotential,
		scan.Image,
		scan.Location,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting scan for user %s: %w", scan.UserID, err)
	}

	return s.touchAppData(ctx, scan.UserID, now)
}

// AddAnalysis appends an analysis record, generating its ID and timestamp.
func (s *ActivityStore) AddAnalysis(ctx context.Context, analysis *model.Analysis) error {
	now := time.Now()
	if err := s.ensureAppData(ctx, analysis.UserID, now); err != nil {
		return err
	}

	analysis.ID = xid.New().String()
	analysis.Timestamp = now

	_, err := s.db.conn.ExecContext(ctx,
		`INSERT INTO analyses (id, user_id, timestamp, scan_id, summary, score)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		analysis.ID,
		analysis.UserID,
		analysis.Timestamp,
		analysis.ScanID,
		analysis.Summary,
		analysis.Score,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting analysis for user %s: %w", analysis.UserID, err)
	}

	return s.touchAppData(ctx, analysis.UserID, now)
}

// AddReport appends a report record, generating its ID and timestamp.
func (s *ActivityStore) AddReport(ctx context.Context, report *model.Report) error {
	now := time.Now()
	if err := s.ensureAppData(ctx, report.UserID, now); err != nil {
		return err
	}

	report.ID = xid.New().String()
	report.Timestamp = now

	_, err := s.db.conn.ExecContext(ctx,
		`INSERT INTO reports (id, user_id, timestamp, title, summary)
		 VALUES (?, ?, ?, ?, ?)`,
		report.ID,
		report.UserID,
		report.Timestamp,
		report.Title,
		report.Summary,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting report for user %s: %w", report.UserID, err)
	}

	return s.touchAppData(ctx, report.UserID, now)
}

// GetByUserID assembles the full activity container for a user, records
// ordered oldest first. Returns apperror.ErrNotFound if the container was
// never provisioned.
func (s *ActivityStore) GetByUserID(ctx context.Context, userID string) (*model.AppData, error) {
	var data model.AppData
	err := s.db.conn.QueryRowContext(ctx,
		`SELECT user_id, default_units, auto_save, sync_enabled, created_at, updated_at
		 FROM app_data WHERE user_id = ?`,
		userID,
	).Scan(
		&data.UserID,
		&data.Settings.DefaultUnits,
		&data.Settings.AutoSave,
		&data.Settings.SyncEnabled,
		&data.CreatedAt,
		&data.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("app data", userID)
		}
		return nil, fmt.Errorf("sqlite: getting app data for user %s: %w", userID, err)
	}

	data.Scans = []model.Scan{}
	data.Analyses = []model.Analysis{}
	data.Reports = []model.Report{}

	scans, err := s.db.conn.QueryContext(ctx,
		`SELECT id, user_id, timestamp, food_type, weight, nutrients,
		        fertilizer_potential, image, location
		 FROM scans WHERE user_id = ? ORDER BY timestamp, id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing scans for user %s: %w", userID, err)
	}
	defer scans.Close()

	for scans.Next() {
		var (
			sc        model.Scan
			nutrients string
		)
		if err := scans.Scan(
			&sc.ID, &sc.UserID, &sc.Timestamp, &sc.FoodType, &sc.Weight,
			&nutrients, &sc.FertilizerPotential, &sc.Image, &sc.Location,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning scan row: %w", err)
		}
		sc.Nutrients = model.Nutrients{}
		decodeJSON(nutrients, &sc.Nutrients)
		data.Scans = append(data.Scans, sc)
	}
	if err := scans.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating scans: %w", err)
	}

	analyses, err := s.db.conn.QueryContext(ctx,
		`SELECT id, user_id, timestamp, scan_id, summary, score
		 FROM analyses WHERE user_id = ? ORDER BY timestamp, id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing analyses for user %s: %w", userID, err)
	}
	defer analyses.Close()

	for analyses.Next() {
		var a model.Analysis
		if err := analyses.Scan(&a.ID, &a.UserID, &a.Timestamp, &a.ScanID, &a.Summary, &a.Score); err != nil {
			return nil, fmt.Errorf("sqlite: scanning analysis row: %w", err)
		}
		data.Analyses = append(data.Analyses, a)
	}
	if err := analyses.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating analyses: %w", err)
	}

	reports, err := s.db.conn.QueryContext(ctx,
		`SELECT id, user_id, timestamp, title, summary
		 FROM reports WHERE user_id = ? ORDER BY timestamp, id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing reports for user %s: %w", userID, err)
	}
	defer reports.Close()

	for reports.Next() {
		var r model.Report
		if err := reports.Scan(&r.ID, &r.UserID, &r.Timestamp, &r.Title, &r.Summary); err != nil {
			return nil, fmt.Errorf("sqlite: scanning report row: %w", err)
		}
		data.Reports = append(data.Reports, r)
	}
	if err := reports.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating reports: %w", err)
	}

	return &data, nil
}

// Put writes a full activity container exactly as given, replacing any
// existing records for the user. Used by import to overwrite the matching
// key.
func (s *ActivityStore) Put(ctx context.Context, data *model.AppData) error {
	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning app data put: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO app_data
		 (user_id, default_units, auto_save, sync_enabled, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		data.UserID,
		data.Settings.DefaultUnits,
		data.Settings.AutoSave,
		data.Settings.SyncEnabled,
		data.CreatedAt,
		data.UpdatedAt,
	); err != nil {
		return fmt.Errorf("sqlite: putting app data for user %s: %w", data.UserID, err)
	}

	for _, table := range []string{"scans", "analyses", "reports"} {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM `+table+` WHERE user_id = ?`, data.UserID,
		); err != nil {
			return fmt.Errorf("sqlite: clearing %s for user %s: %w", table, data.UserID, err)
		}
	}

	for _, sc := range data.Scans {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO scans (id, user_id, timestamp, food_type, weight, nutrients,
			                    fertilizer_potential, image, location)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sc.ID, sc.UserID, sc.Timestamp, sc.FoodType, sc.Weight,
			encodeJSON(sc.Nutrients), sc.FertilizerPotential, sc.Image, sc.Location,
		); err != nil {
			return fmt.Errorf("sqlite: putting scan %s: %w", sc.ID, err)
		}
	}
	for _, a := range data.Analyses {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO analyses (id, user_id, timestamp, scan_id, summary, score)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			a.ID, a.UserID, a.Timestamp, a.ScanID, a.Summary, a.Score,
		); err != nil {
			return fmt.Errorf("sqlite: putting analysis %s: %w", a.ID, err)
		}
	}
	for _, r := range data.Reports {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO reports (id, user_id, timestamp, title, summary)
			 VALUES (?, ?, ?, ?, ?)`,
			r.ID, r.UserID, r.Timestamp, r.Title, r.Summary,
		); err != nil {
			return fmt.Errorf("sqlite: putting report %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing app data put: %w", err)
	}
	return nil
}

// Delete removes a user's activity container and every record in it.
// Reports whether a container existed.
func (s *ActivityStore) Delete(ctx context.Context, userID string) (bool, error) {
	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("sqlite: beginning app data delete: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `DELETE FROM app_data WHERE user_id = ?`, userID)
	if err != nil {
		return false, fmt.Errorf("sqlite: deleting app data for user %s: %w", userID, err)
	}

	for _, table := range []string{"scans", "analyses", "reports"} {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM `+table+` WHERE user_id = ?`, userID,
		); err != nil {
			return false, fmt.Errorf("sqlite: deleting %s for user %s: %w", table, userID, err)
		}
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("sqlite: committing app data delete: %w", err)
	}
	return rowsAffected > 0, nil
}

// Reset clears all collections, leaving the empty tables in place.
// Development and testing only; there is no undo.
func (db *DB) Reset(ctx context.Context) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning reset: %w", err)
	}
	defer tx.Rollback()

	tables := []string{
		"users", "subscriptions", "usage_stats", "monthly_usage",
		"app_data", "scans", "analyses", "reports",
	}
	for _, table := range tables {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("sqlite: clearing %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing reset: %w", err)
	}
	return nil
}
