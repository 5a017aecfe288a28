// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// Services take repository interfaces, not *sqlite.DB, so tests can hand
// them mocks and the storage backend can change without touching business
// rules. Handlers never see SQL; repositories never see plan rules.
//
// THE DEPENDENCY CHAIN:
//
//	main.go creates:  DB → Repositories → Services → Handlers
//	At runtime:       Handler calls Service calls Repository calls DB
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/sakif/eco-tracker/internal/model"
	"github.com/sakif/eco-tracker/internal/plan"
	"github.com/sakif/eco-tracker/internal/repository"
)

// Validity windows. Trial accounts get a week; every paid plan is billed
// yearly.
const (
	trialDays = 7
	paidYears = 1
)

// SubscriptionService owns the plan lifecycle: creating, upgrading, and
// cancelling subscriptions. All limit and feature values flow from the
// plan catalog — the service copies catalog entries onto records, it never
// invents quota numbers.
type SubscriptionService struct {
	subs   repository.SubscriptionRepository
	logger *slog.Logger
}

func NewSubscriptionService(subs repository.SubscriptionRepository, logger *slog.Logger) *SubscriptionService {
	return &SubscriptionService{subs: subs, logger: logger}
}

// validityEnd returns when a subscription starting now stops being valid.
// Only the trial plan gets the short window; unknown plan names are billed
// like paid plans even though they resolve to trial limits.
func validityEnd(p model.Plan, start time.Time) time.Time {
	if p == model.PlanTrial {
		return start.AddDate(0, 0, trialDays)
	}
	return start.AddDate(paidYears, 0, 0)
}

// Create provisions a new subscription for userID on the given plan,
// replacing any existing record. Trial subscriptions carry no billing
// dates; paid plans stamp the first payment at creation.
func (s *SubscriptionService) Create(ctx context.Context, userID string, p model.Plan) (*model.Subscription, error) {
	details, exact := plan.Get(p)
	if !exact {
		s.logger.Warn("unknown plan name, falling back to trial limits",
			"plan", string(p), "user_id", userID)
	}

	now := time.Now()
	end := validityEnd(p, now)

	sub := &model.Subscription{
		UserID:    userID,
		Plan:      p,
		Status:    model.StatusActive,
		StartDate: now,
		EndDate:   end,
		AutoRenew: p != model.PlanTrial,
		Limits:    details.Limits,
		Features:  details.Features,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if p != model.PlanTrial {
		sub.BillingInfo.LastPayment = &now
		sub.BillingInfo.NextPayment = &end
	}

	if err := s.subs.Put(ctx, sub); err != nil {
		return nil, err
	}

	s.logger.Info("subscription created", "user_id", userID, "plan", string(p))
	return sub, nil
}

// Upgrade moves an existing subscription to a new plan. Limits and
// features are replaced wholesale with the catalog entry for the new plan,
// the validity window restarts at a full year from now, auto-renewal is
// switched on, and a payment is stamped — uniformly, even when the new
// plan is the trial. The original start date, creation time, and stored
// payment method survive the change.
//
// A user without a subscription gets a fresh one — upgrade-by-ghost
// degrades to create rather than failing.
func (s *SubscriptionService) Upgrade(ctx context.Context, userID string, p model.Plan) (*model.Subscription, error) {
	sub, err := s.subs.GetByUserID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return s.Create(ctx, userID, p)
		}
		return nil, err
	}

	details, exact := plan.Get(p)
	if !exact {
		s.logger.Warn("unknown plan name, falling back to trial limits",
			"plan", string(p), "user_id", userID)
	}

	now := time.Now()
	end := now.AddDate(paidYears, 0, 0)

	sub.Plan = p
	sub.Status = model.StatusActive
	sub.EndDate = end
	sub.AutoRenew = true
	sub.Limits = details.Limits
	sub.Features = details.Features
	sub.UpdatedAt = now
	sub.BillingInfo.LastPayment = &now
	sub.BillingInfo.NextPayment = &end

	if err := s.subs.Put(ctx, sub); err != nil {
		return nil, err
	}

	s.logger.Info("subscription upgraded", "user_id", userID, "plan", string(p))
	return sub, nil
}

// Get returns the subscription for a user.
func (s *SubscriptionService) Get(ctx context.Context, userID string) (*model.Subscription, error) {
	return s.subs.GetByUserID(ctx, userID)
}

// Remove cancels a user's subscription by deleting the record. Reports
// whether one existed.
func (s *SubscriptionService) Remove(ctx context.Context, userID string) (bool, error) {
	return s.subs.Delete(ctx, userID)
}

// List returns all subscriptions.
func (s *SubscriptionService) List(ctx context.Context) ([]model.Subscription, error) {
	return s.subs.List(ctx)
}

// Restore writes a subscription record verbatim. Used by import, which
// must not restamp dates or recompute limits.
func (s *SubscriptionService) Restore(ctx context.Context, sub *model.Subscription) error {
	return s.subs.Put(ctx, sub)
}
