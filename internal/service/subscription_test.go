package service

import (
	"context"
	"testing"
	"time"

	"github.com/sakif/eco-tracker/internal/model"
	"github.com/sakif/eco-tracker/internal/plan"
)

func TestSubscriptionCreate_Trial(t *testing.T) {
	f := newFixture()

	sub, err := f.subs.Create(context.Background(), "u", model.PlanTrial)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if sub.Status != model.StatusActive {
		t.Errorf("status = %q, want active", sub.Status)
	}
	if sub.AutoRenew {
		t.Error("trial should not auto-renew")
	}
	if sub.Limits.ScansPerMonth != 10 || sub.Limits.ReportsPerMonth != 3 {
		t.Errorf("limits = %+v, want trial limits", sub.Limits)
	}
	if sub.BillingInfo.LastPayment != nil || sub.BillingInfo.NextPayment != nil {
		t.Error("trial should carry no payment dates")
	}

	// A trial is valid for seven days
	wantEnd := sub.StartDate.AddDate(0, 0, 7)
	if !sub.EndDate.Equal(wantEnd) {
		t.Errorf("end date = %v, want %v", sub.EndDate, wantEnd)
	}
}

func TestSubscriptionCreate_Paid(t *testing.T) {
	f := newFixture()

	sub, err := f.subs.Create(context.Background(), "u", model.PlanBasic)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if !sub.AutoRenew {
		t.Error("paid plan should auto-renew")
	}
	wantEnd := sub.StartDate.AddDate(1, 0, 0)
	if !sub.EndDate.Equal(wantEnd) {
		t.Errorf("end date = %v, want one year out", sub.EndDate)
	}
	if sub.BillingInfo.LastPayment == nil || sub.BillingInfo.NextPayment == nil {
		t.Fatal("paid plan should stamp payment dates")
	}
	if !sub.BillingInfo.NextPayment.Equal(sub.EndDate) {
		t.Errorf("next payment %v should match end date %v", sub.BillingInfo.NextPayment, sub.EndDate)
	}
}

// Unknown plan names keep their name on the record but fall back to trial
// limits, and are billed on the paid-plan window.
func TestSubscriptionCreate_UnknownPlan(t *testing.T) {
	f := newFixture()

	sub, err := f.subs.Create(context.Background(), "u", model.Plan("enterprise"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if sub.Plan != "enterprise" {
		t.Errorf("plan = %q, want the raw name preserved", sub.Plan)
	}
	if sub.Limits.ScansPerMonth != 10 {
		t.Errorf("scans limit = %d, want trial fallback 10", sub.Limits.ScansPerMonth)
	}
	wantEnd := sub.StartDate.AddDate(1, 0, 0)
	if !sub.EndDate.Equal(wantEnd) {
		t.Errorf("end date = %v, want one year out", sub.EndDate)
	}
}

func TestSubscriptionUpgrade(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	original, err := f.subs.Create(ctx, "u", model.PlanTrial)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	f.subRepo.subs["u"].BillingInfo.PaymentMethod = "card"

	upgraded, err := f.subs.Upgrade(ctx, "u", model.PlanPremium)
	if err != nil {
		t.Fatalf("Upgrade() error = %v", err)
	}

	if upgraded.Plan != model.PlanPremium {
		t.Errorf("plan = %q, want premium", upgraded.Plan)
	}
	if upgraded.Limits.ScansPerMonth != plan.Unlimited {
		t.Errorf("scans limit = %d, want unlimited", upgraded.Limits.ScansPerMonth)
	}
	if !upgraded.Features["white_label"] {
		t.Error("premium should include white_label")
	}
	if upgraded.BillingInfo.PaymentMethod != "card" {
		t.Errorf("payment method = %q, should survive the upgrade", upgraded.BillingInfo.PaymentMethod)
	}
	if upgraded.BillingInfo.LastPayment == nil {
		t.Error("upgrade to a paid plan should stamp a payment")
	}
	if !upgraded.StartDate.Equal(original.StartDate) {
		t.Error("upgrade must not move the original start date")
	}
	if !upgraded.CreatedAt.Equal(original.CreatedAt) {
		t.Error("upgrade must not restamp CreatedAt")
	}
}

func TestSubscriptionUpgrade_NoExisting(t *testing.T) {
	f := newFixture()

	sub, err := f.subs.Upgrade(context.Background(), "ghost", model.PlanPro)
	if err != nil {
		t.Fatalf("Upgrade() error = %v", err)
	}
	if sub.Plan != model.PlanPro {
		t.Errorf("plan = %q, want pro", sub.Plan)
	}
	if sub.Limits.ScansPerMonth != 2400 {
		t.Errorf("scans limit = %d, want 2400", sub.Limits.ScansPerMonth)
	}
}

// A plan change is billed the same way regardless of the target plan:
// moving an existing subscription to trial still restarts the one-year
// window, keeps auto-renewal on, and stamps a payment. Only a FRESH trial
// (via Create) gets the 7-day unbilled window.
func TestSubscriptionChangeToTrial_BilledLikeAnyChange(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.subs.Create(ctx, "u", model.PlanPro); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	sub, err := f.subs.Upgrade(ctx, "u", model.PlanTrial)
	if err != nil {
		t.Fatalf("Upgrade() error = %v", err)
	}
	if sub.Limits.ReportsPerMonth != 3 {
		t.Errorf("reports limit = %d, want trial's 3", sub.Limits.ReportsPerMonth)
	}
	if sub.BillingInfo.LastPayment == nil || sub.BillingInfo.NextPayment == nil {
		t.Fatal("plan change should stamp payment dates")
	}
	if !sub.AutoRenew {
		t.Error("plan change should keep auto-renewal on")
	}
	if !sub.BillingInfo.NextPayment.Equal(sub.EndDate) {
		t.Errorf("next payment %v should match end date %v", sub.BillingInfo.NextPayment, sub.EndDate)
	}
	if sub.EndDate.Before(time.Now().AddDate(0, 11, 0)) {
		t.Errorf("end date %v should be a year out", sub.EndDate)
	}
}

func TestSubscriptionRemove(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.subs.Create(ctx, "u", model.PlanBasic); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	removed, err := f.subs.Remove(ctx, "u")
	if err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if !removed {
		t.Error("Remove() = false, want true")
	}

	removed, err = f.subs.Remove(ctx, "u")
	if err != nil {
		t.Fatalf("second Remove() error = %v", err)
	}
	if removed {
		t.Error("second Remove() = true, want false")
	}
}
