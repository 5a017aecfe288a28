package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/sakif/eco-tracker/internal/model"
	"github.com/sakif/eco-tracker/internal/plan"
	"github.com/sakif/eco-tracker/internal/repository"
)

// Action is a quota-limited user action.
type Action string

const (
	ActionScan     Action = "scan"
	ActionAnalysis Action = "analysis"
	ActionReport   Action = "report"
)

// UsageService tracks per-user usage counters and answers quota and
// feature questions against the user's current subscription.
type UsageService struct {
	usage  repository.UsageRepository
	subs   repository.SubscriptionRepository
	logger *slog.Logger
}

func NewUsageService(usage repository.UsageRepository, subs repository.SubscriptionRepository, logger *slog.Logger) *UsageService {
	return &UsageService{usage: usage, subs: subs, logger: logger}
}

// Initialize provisions zeroed usage stats for a new user, discarding any
// previous counters.
func (s *UsageService) Initialize(ctx context.Context, userID string) (*model.UsageStats, error) {
	return s.usage.Init(ctx, userID, time.Now())
}

// Record applies a usage delta to the lifetime counters and the current
// month's bucket.
func (s *UsageService) Record(ctx context.Context, userID string, delta model.UsageDelta) (*model.UsageStats, error) {
	return s.usage.Apply(ctx, userID, delta, time.Now())
}

// CheckLimit reports whether the user may perform one more occurrence of
// action this month.
//
// The check FAILS CLOSED: a user with no subscription or no usage record
// gets false, not an error. Entitlement questions about half-provisioned
// accounts answer "no" until provisioning completes.
func (s *UsageService) CheckLimit(ctx context.Context, userID string, action Action) (bool, error) {
	sub, err := s.subs.GetByUserID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}

	// Both records must exist before anything is allowed — the unlimited
	// sentinel only applies to a fully provisioned account.
	current, err := s.usage.CurrentMonthly(ctx, userID, time.Now())
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}

	limit := limitFor(sub.Limits, action)
	if limit == plan.Unlimited {
		return true, nil
	}

	return usedFor(current, action) < limit, nil
}

// HasFeature reports whether the user's plan includes the named feature.
// Unknown features and missing subscriptions both answer false.
func (s *UsageService) HasFeature(ctx context.Context, userID, feature string) (bool, error) {
	sub, err := s.subs.GetByUserID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return sub.Features[feature], nil
}

// Stats returns the full usage record for a user.
func (s *UsageService) Stats(ctx context.Context, userID string) (*model.UsageStats, error) {
	return s.usage.Get(ctx, userID)
}

// Remove deletes a user's usage record. Reports whether one existed.
func (s *UsageService) Remove(ctx context.Context, userID string) (bool, error) {
	return s.usage.Delete(ctx, userID)
}

// List returns every user's usage record.
func (s *UsageService) List(ctx context.Context) ([]model.UsageStats, error) {
	return s.usage.List(ctx)
}

// Restore writes a usage record verbatim. Used by import.
func (s *UsageService) Restore(ctx context.Context, stats *model.UsageStats) error {
	return s.usage.Put(ctx, stats)
}

func limitFor(l model.Limits, action Action) int {
	switch action {
	case ActionScan:
		return l.ScansPerMonth
	case ActionAnalysis:
		return l.AnalysesPerMonth
	case ActionReport:
		return l.ReportsPerMonth
	}
	// Unrecognized actions have no allowance.
	return 0
}

func usedFor(m *model.MonthlyUsage, action Action) int {
	switch action {
	case ActionScan:
		return m.Scans
	case ActionAnalysis:
		return m.Analyses
	case ActionReport:
		return m.Reports
	}
	return 0
}
