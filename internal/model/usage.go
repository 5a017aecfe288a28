package model

import "time"

// PeriodKey returns the "YYYY-MM" calendar-month bucket key for t, in t's
// own location. Usage counters roll into a new bucket the moment the local
// month changes — a session straddling midnight on the 1st transparently
// starts writing into the new period.
func PeriodKey(t time.Time) string {
	return t.Format("2006-01")
}

// MonthlyUsage is one calendar month's worth of counted actions.
// Every bucket carries all five counters; absent actions are zero.
type MonthlyUsage struct {
	Scans      int     `json:"scans"`
	Analyses   int     `json:"analyses"`
	Reports    int     `json:"reports"`
	FoodWaste  float64 `json:"foodWaste"`
	Fertilizer float64 `json:"fertilizer"`
}

// UsageStats is the rolling usage record for one user.
//
// The lifetime counters always equal the sum of the same-named counters
// across every bucket in MonthlyStats — both sides are incremented by the
// same delta in one transaction. Old buckets are retained forever; only the
// current month's bucket is ever written to.
type UsageStats struct {
	UserID                  string                  `json:"userId"                db:"user_id"`
	TotalScans              int                     `json:"totalScans"            db:"total_scans"`
	TotalAnalyses           int                     `json:"totalAnalyses"         db:"total_analyses"`
	TotalReports            int                     `json:"totalReports"          db:"total_reports"`
	TotalFoodWasteTracked   float64                 `json:"totalFoodWasteTracked" db:"total_food_waste"` // kg
	TotalFertilizerProduced float64                 `json:"totalFertilizerProduced" db:"total_fertilizer"` // kg
	WasteReduction          float64                 `json:"wasteReduction"        db:"waste_reduction"` // percentage
	MonthlyStats            map[string]MonthlyUsage `json:"monthlyStats"`
	LastUpdated             time.Time               `json:"lastUpdated" db:"last_updated"`
	CreatedAt               time.Time               `json:"createdAt"   db:"created_at"`
}

// UsageDelta is a batch of counter increments applied atomically to both
// the lifetime counters and the current month's bucket.
//
// The delta is a typed struct rather than a map of counter names so the
// pairing between an event ("scans") and its lifetime counter
// ("totalScans") is fixed at compile time instead of derived from strings.
type UsageDelta struct {
	Scans      int     `json:"scans,omitempty"`
	Analyses   int     `json:"analyses,omitempty"`
	Reports    int     `json:"reports,omitempty"`
	FoodWaste  float64 `json:"foodWaste,omitempty"`
	Fertilizer float64 `json:"fertilizer,omitempty"`
}

// IsZero reports whether the delta would change nothing.
func (d UsageDelta) IsZero() bool {
	return d == UsageDelta{}
}
