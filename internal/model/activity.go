package model

import "time"

// Nutrients maps a nutrient name (e.g. "nitrogen") to its measured amount.
type Nutrients map[string]float64

// Scan is one recorded food-waste scan. Records are append-only: once
// created they are never mutated, only removed by account deletion.
type Scan struct {
	ID                  string    `json:"id"        db:"id"`
	UserID              string    `json:"userId"    db:"user_id"`
	Timestamp           time.Time `json:"timestamp" db:"timestamp"`
	FoodType            string    `json:"foodType"  db:"food_type"`
	Weight              float64   `json:"weight"    db:"weight"` // kg
	Nutrients           Nutrients `json:"nutrients"`
	FertilizerPotential float64   `json:"fertilizerPotential" db:"fertilizer_potential"` // kg
	Image               string    `json:"image,omitempty"    db:"image"`
	Location            string    `json:"location,omitempty" db:"location"`
}

// Analysis is a recorded composting analysis, usually derived from a scan.
type Analysis struct {
	ID        string    `json:"id"        db:"id"`
	UserID    string    `json:"userId"    db:"user_id"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
	ScanID    string    `json:"scanId,omitempty" db:"scan_id"`
	Summary   string    `json:"summary"   db:"summary"`
	Score     float64   `json:"score"     db:"score"`
}

// Report is a generated waste-reduction report.
type Report struct {
	ID        string    `json:"id"        db:"id"`
	UserID    string    `json:"userId"    db:"user_id"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
	Title     string    `json:"title"     db:"title"`
	Summary   string    `json:"summary"   db:"summary"`
}

// AppSettings are per-user application settings stored with the activity
// container.
type AppSettings struct {
	DefaultUnits string `json:"defaultUnits"`
	AutoSave     bool   `json:"autoSave"`
	SyncEnabled  bool   `json:"syncEnabled"`
}

// DefaultAppSettings returns the settings a freshly provisioned activity
// container starts with.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		DefaultUnits: "metric",
		AutoSave:     true,
		SyncEnabled:  true,
	}
}

// AppData is the per-user container of activity records. It is provisioned
// lazily on the first append and removed only by account deletion.
type AppData struct {
	UserID    string      `json:"userId"    db:"user_id"`
	Scans     []Scan      `json:"scans"`
	Analyses  []Analysis  `json:"analyses"`
	Reports   []Report    `json:"reports"`
	Settings  AppSettings `json:"settings"`
	CreatedAt time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time   `json:"updatedAt" db:"updated_at"`
}
