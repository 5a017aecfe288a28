package model

import "time"

// Plan is a named subscription tier. The four known tiers are below; an
// unknown plan name is tolerated by the catalog (it resolves to trial
// limits) so a stored record with a stale plan name still behaves sanely.
type Plan string

const (
	PlanTrial   Plan = "trial"
	PlanBasic   Plan = "basic"
	PlanPro     Plan = "pro"
	PlanPremium Plan = "premium"
)

// Subscription statuses.
const (
	StatusActive   = "active"
	StatusExpired  = "expired"
	StatusCanceled = "canceled"
)

// Limits are the per-month action ceilings attached to a plan.
// A value of -1 means unlimited and must never be compared numerically.
type Limits struct {
	ScansPerMonth    int `json:"scansPerMonth"`
	AnalysesPerMonth int `json:"analysesPerMonth"`
	ReportsPerMonth  int `json:"reportsPerMonth"`
}

// Features maps a feature name (e.g. "advanced_analytics") to whether the
// plan includes it.
type Features map[string]bool

// BillingInfo tracks payment bookkeeping for a subscription. Trial
// subscriptions have nil payment dates.
type BillingInfo struct {
	LastPayment   *time.Time `json:"lastPayment"`
	NextPayment   *time.Time `json:"nextPayment"`
	PaymentMethod string     `json:"paymentMethod,omitempty"`
}

// Subscription is a user's plan together with the quota limits and feature
// flags that were current at the last plan change.
//
// Limits and Features are always a verbatim copy of the catalog entry for
// Plan — they are replaced wholesale on every plan change, never edited
// field by field.
type Subscription struct {
	UserID      string      `json:"userId"    db:"user_id"`
	Plan        Plan        `json:"plan"      db:"plan"`
	Status      string      `json:"status"    db:"status"`
	StartDate   time.Time   `json:"startDate" db:"start_date"`
	EndDate     time.Time   `json:"endDate"   db:"end_date"`
	AutoRenew   bool        `json:"autoRenew" db:"auto_renew"`
	BillingInfo BillingInfo `json:"billingInfo"`
	Limits      Limits      `json:"limits"`
	Features    Features    `json:"features"`
	CreatedAt   time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time   `json:"updatedAt" db:"updated_at"`
}
