package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sakif/eco-tracker/internal/apperror"
	"github.com/sakif/eco-tracker/internal/model"
)

func TestUsageInit(t *testing.T) {
	u := newTestDB(t).Usage()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	stats, err := u.Init(context.Background(), "user-1", now)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if stats.TotalScans != 0 {
		t.Errorf("TotalScans = %d, want 0", stats.TotalScans)
	}
	if len(stats.MonthlyStats) != 1 {
		t.Fatalf("MonthlyStats len = %d, want 1", len(stats.MonthlyStats))
	}
	if _, ok := stats.MonthlyStats["2026-03"]; !ok {
		t.Errorf("missing seeded bucket 2026-03, got %v", stats.MonthlyStats)
	}
}

func TestUsageInit_DiscardsPrevious(t *testing.T) {
	u := newTestDB(t).Usage()
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	if _, err := u.Init(context.Background(), "u", now); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if _, err := u.Apply(context.Background(), "u", model.UsageDelta{Scans: 5}, now); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	stats, err := u.Init(context.Background(), "u", now)
	if err != nil {
		t.Fatalf("second Init() error = %v", err)
	}
	if stats.TotalScans != 0 {
		t.Errorf("TotalScans after re-init = %d, want 0", stats.TotalScans)
	}
	if stats.MonthlyStats["2026-03"].Scans != 0 {
		t.Errorf("monthly scans after re-init = %d, want 0", stats.MonthlyStats["2026-03"].Scans)
	}
}

func TestUsageApply(t *testing.T) {
	u := newTestDB(t).Usage()
	now := time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC)

	if _, err := u.Init(context.Background(), "u", now); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	delta := model.UsageDelta{Scans: 1, FoodWaste: 2.5, Fertilizer: 0.8}
	if _, err := u.Apply(context.Background(), "u", delta, now); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	stats, err := u.Apply(context.Background(), "u", delta, now)
	if err != nil {
		t.Fatalf("second Apply() error = %v", err)
	}

	if stats.TotalScans != 2 {
		t.Errorf("TotalScans = %d, want 2", stats.TotalScans)
	}
	if stats.TotalFoodWasteTracked != 5.0 {
		t.Errorf("TotalFoodWasteTracked = %v, want 5.0", stats.TotalFoodWasteTracked)
	}
	m := stats.MonthlyStats["2026-05"]
	if m.Scans != 2 || m.FoodWaste != 5.0 || m.Fertilizer != 1.6 {
		t.Errorf("monthly bucket = %+v", m)
	}
}

// A month rollover must create a fresh bucket and leave the old one intact,
// while lifetime counters keep accumulating.
func TestUsageApply_MonthRollover(t *testing.T) {
	u := newTestDB(t).Usage()
	march := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	april := time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC)

	if _, err := u.Init(context.Background(), "u", march); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if _, err := u.Apply(context.Background(), "u", model.UsageDelta{Scans: 3}, march); err != nil {
		t.Fatalf("Apply(march) error = %v", err)
	}
	stats, err := u.Apply(context.Background(), "u", model.UsageDelta{Scans: 1}, april)
	if err != nil {
		t.Fatalf("Apply(april) error = %v", err)
	}

	if stats.TotalScans != 4 {
		t.Errorf("TotalScans = %d, want 4", stats.TotalScans)
	}
	if stats.MonthlyStats["2026-03"].Scans != 3 {
		t.Errorf("march bucket = %d, want 3", stats.MonthlyStats["2026-03"].Scans)
	}
	if stats.MonthlyStats["2026-04"].Scans != 1 {
		t.Errorf("april bucket = %d, want 1", stats.MonthlyStats["2026-04"].Scans)
	}
}

// Recording against a user with no stats row must create one rather than
// fail: usage recording survives incomplete provisioning.
func TestUsageApply_UnprovisionedUser(t *testing.T) {
	u := newTestDB(t).Usage()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	stats, err := u.Apply(context.Background(), "ghost", model.UsageDelta{Analyses: 1}, now)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if stats.TotalAnalyses != 1 {
		t.Errorf("TotalAnalyses = %d, want 1", stats.TotalAnalyses)
	}
}

func TestUsageCurrentMonthly(t *testing.T) {
	u := newTestDB(t).Usage()
	march := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	april := time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC)

	if _, err := u.Init(context.Background(), "u", march); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if _, err := u.Apply(context.Background(), "u", model.UsageDelta{Scans: 7}, march); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	m, err := u.CurrentMonthly(context.Background(), "u", march)
	if err != nil {
		t.Fatalf("CurrentMonthly() error = %v", err)
	}
	if m.Scans != 7 {
		t.Errorf("march scans = %d, want 7", m.Scans)
	}

	// New month, no bucket yet: zero usage, not an error
	m, err = u.CurrentMonthly(context.Background(), "u", april)
	if err != nil {
		t.Fatalf("CurrentMonthly() after rollover error = %v", err)
	}
	if m.Scans != 0 {
		t.Errorf("april scans = %d, want 0", m.Scans)
	}
}

// Never-provisioned users get ErrNotFound so quota checks fail closed.
func TestUsageCurrentMonthly_NotFound(t *testing.T) {
	u := newTestDB(t).Usage()

	_, err := u.CurrentMonthly(context.Background(), "ghost", time.Now())
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("CurrentMonthly() error = %v, want ErrNotFound", err)
	}
}

func TestUsagePut_RoundTrip(t *testing.T) {
	u := newTestDB(t).Usage()
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	stats := &model.UsageStats{
		UserID:                  "import-user",
		TotalScans:              12,
		TotalAnalyses:           4,
		TotalReports:            2,
		TotalFoodWasteTracked:   30.5,
		TotalFertilizerProduced: 9.1,
		MonthlyStats: map[string]model.MonthlyUsage{
			"2026-05": {Scans: 8, Analyses: 3, Reports: 1, FoodWaste: 20, Fertilizer: 6},
			"2026-06": {Scans: 4, Analyses: 1, Reports: 1, FoodWaste: 10.5, Fertilizer: 3.1},
		},
		LastUpdated: now,
		CreatedAt:   now.AddDate(0, -1, 0),
	}

	if err := u.Put(context.Background(), stats); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := u.Get(context.Background(), "import-user")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.TotalScans != 12 {
		t.Errorf("TotalScans = %d, want 12", got.TotalScans)
	}
	if len(got.MonthlyStats) != 2 {
		t.Fatalf("MonthlyStats len = %d, want 2", len(got.MonthlyStats))
	}
	if got.MonthlyStats["2026-05"].FoodWaste != 20 {
		t.Errorf("2026-05 food waste = %v, want 20", got.MonthlyStats["2026-05"].FoodWaste)
	}
}

func TestUsageDelete(t *testing.T) {
	u := newTestDB(t).Usage()
	now := time.Now()

	if _, err := u.Init(context.Background(), "u", now); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	deleted, err := u.Delete(context.Background(), "u")
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if !deleted {
		t.Error("Delete() = false, want true")
	}

	if _, err := u.Get(context.Background(), "u"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}

	deleted, err = u.Delete(context.Background(), "u")
	if err != nil {
		t.Fatalf("second Delete() error = %v", err)
	}
	if deleted {
		t.Error("second Delete() = true, want false")
	}
}

func TestUsageList(t *testing.T) {
	u := newTestDB(t).Usage()
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	for _, id := range []string{"a", "b"} {
		if _, err := u.Init(context.Background(), id, now); err != nil {
			t.Fatalf("Init(%s) error = %v", id, err)
		}
	}
	if _, err := u.Apply(context.Background(), "b", model.UsageDelta{Reports: 2}, now); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	all, err := u.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("List() len = %d, want 2", len(all))
	}
	for _, stats := range all {
		if stats.UserID == "b" && stats.MonthlyStats["2026-02"].Reports != 2 {
			t.Errorf("b's 2026-02 reports = %d, want 2", stats.MonthlyStats["2026-02"].Reports)
		}
	}
}
