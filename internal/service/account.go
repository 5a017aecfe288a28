package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/eco-tracker/internal/apperror"
	"github.com/sakif/eco-tracker/internal/model"
	"github.com/sakif/eco-tracker/internal/plan"
	"github.com/sakif/eco-tracker/internal/repository"
)

// AccountService orchestrates operations that span more than one
// collection: account creation with default provisioning, activity
// recording with quota enforcement, cascading deletion, analytics, and
// export/import.
//
// It deliberately composes the subscription and usage SERVICES (not their
// repositories) so plan rules and fail-closed quota checks are applied in
// exactly one place.
type AccountService struct {
	users    repository.UserRepository
	subs     *SubscriptionService
	usage    *UsageService
	activity repository.ActivityRepository
	admin    repository.StoreAdmin
	logger   *slog.Logger
}

func NewAccountService(
	users repository.UserRepository,
	subs *SubscriptionService,
	usage *UsageService,
	activity repository.ActivityRepository,
	admin repository.StoreAdmin,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		users:    users,
		subs:     subs,
		usage:    usage,
		activity: activity,
		admin:    admin,
		logger:   logger,
	}
}

// isNotFound is shared by all services in this package.
func isNotFound(err error) bool {
	return errors.Is(err, apperror.ErrNotFound)
}

// CreateAccount registers a new user and provisions their subscription and
// usage stats.
//
// The user record commits first; if a later provisioning step fails the
// account still exists and the error wraps apperror.ErrPartialProvisioning
// alongside the created user, so callers can surface a degraded success
// and retry provisioning later.
func (s *AccountService) CreateAccount(ctx context.Context, ident model.Identity, p model.Plan) (*model.User, error) {
	email := strings.TrimSpace(strings.ToLower(ident.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperror.ValidationFailed("email", "a valid email address is required")
	}

	name := strings.TrimSpace(ident.Name)
	if name == "" {
		// Identity providers occasionally omit the display name.
		name = email[:strings.Index(email, "@")]
	}

	// Pre-check so the common duplicate case gets a clean conflict before
	// any insert. The UNIQUE index still catches races.
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperror.Conflict("user", email)
	} else if !isNotFound(err) {
		return nil, err
	}

	authMethod := ident.AuthMethod
	if authMethod == "" {
		authMethod = "email"
	}

	user := &model.User{
		Name:       name,
		Email:      email,
		Phone:      ident.Phone,
		AuthMethod: authMethod,
		IsActive:   true,
		Profile: model.Profile{
			Location:    ident.Location,
			Avatar:      ident.Picture,
			Preferences: model.DefaultPreferences(),
		},
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	if err := s.ProvisionDefaults(ctx, user.ID, p); err != nil {
		s.logger.Error("account provisioning incomplete",
			"user_id", user.ID, "error", err)
		return user, apperror.PartialProvisioning(user.ID, err)
	}

	s.logger.Info("account created", "user_id", user.ID, "plan", string(p))
	return user, nil
}

// ProvisionDefaults creates the subscription and zeroed usage stats for a
// user. Safe to call again after a partial failure: both steps overwrite
// whatever half-state the previous attempt left.
func (s *AccountService) ProvisionDefaults(ctx context.Context, userID string, p model.Plan) error {
	if _, err := s.subs.Create(ctx, userID, p); err != nil {
		return fmt.Errorf("creating subscription: %w", err)
	}
	if _, err := s.usage.Initialize(ctx, userID); err != nil {
		return fmt.Errorf("initializing usage stats: %w", err)
	}
	return nil
}

// GetUser returns a user by ID.
func (s *AccountService) GetUser(ctx context.Context, id string) (*model.User, error) {
	return s.users.GetByID(ctx, id)
}

// ListUsers returns all users.
func (s *AccountService) ListUsers(ctx context.Context) ([]model.User, error) {
	return s.users.List(ctx)
}

// UpdateUser applies a partial update to a user record. Nil fields in the
// update are left unchanged.
func (s *AccountService) UpdateUser(ctx context.Context, id string, upd model.UserUpdate) (*model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		if strings.TrimSpace(*upd.Name) == "" {
			return nil, apperror.ValidationFailed("name", "name must not be empty")
		}
		user.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.Phone != nil {
		user.Phone = *upd.Phone
	}
	if upd.IsActive != nil {
		user.IsActive = *upd.IsActive
	}
	if upd.Location != nil {
		user.Profile.Location = *upd.Location
	}
	if upd.Avatar != nil {
		user.Profile.Avatar = *upd.Avatar
	}
	if upd.Preferences != nil {
		user.Profile.Preferences = *upd.Preferences
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// RecordScan checks the scan quota, appends the scan to the activity log,
// and applies the usage delta (one scan, the scanned weight, and the
// fertilizer potential) in that order. Returns the stored record with its
// generated ID and timestamp.
func (s *AccountService) RecordScan(ctx context.Context, userID string, scan *model.Scan) (*model.Scan, error) {
	allowed, err := s.usage.CheckLimit(ctx, userID, ActionScan)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperror.QuotaExceeded(string(ActionScan))
	}

	scan.UserID = userID
	if err := s.activity.AddScan(ctx, scan); err != nil {
		return nil, err
	}

	_, err = s.usage.Record(ctx, userID, model.UsageDelta{
		Scans:      1,
		FoodWaste:  scan.Weight,
		Fertilizer: scan.FertilizerPotential,
	})
	if err != nil {
		return nil, err
	}
	return scan, nil
}

// RecordAnalysis checks the analysis quota, appends the analysis, and
// counts it.
func (s *AccountService) RecordAnalysis(ctx context.Context, userID string, analysis *model.Analysis) (*model.Analysis, error) {
	allowed, err := s.usage.CheckLimit(ctx, userID, ActionAnalysis)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperror.QuotaExceeded(string(ActionAnalysis))
	}

	analysis.UserID = userID
	if err := s.activity.AddAnalysis(ctx, analysis); err != nil {
		return nil, err
	}

	if _, err := s.usage.Record(ctx, userID, model.UsageDelta{Analyses: 1}); err != nil {
		return nil, err
	}
	return analysis, nil
}

// RecordReport checks the report quota, appends the report, and counts it.
func (s *AccountService) RecordReport(ctx context.Context, userID string, report *model.Report) (*model.Report, error) {
	allowed, err := s.usage.CheckLimit(ctx, userID, ActionReport)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperror.QuotaExceeded(string(ActionReport))
	}

	report.UserID = userID
	if err := s.activity.AddReport(ctx, report); err != nil {
		return nil, err
	}

	if _, err := s.usage.Record(ctx, userID, model.UsageDelta{Reports: 1}); err != nil {
		return nil, err
	}
	return report, nil
}

// Activity returns a user's full activity container.
func (s *AccountService) Activity(ctx context.Context, userID string) (*model.AppData, error) {
	return s.activity.GetByUserID(ctx, userID)
}

// DeleteAccount removes a user and everything keyed to them. The cascade
// runs unconditionally — a half-provisioned account deletes cleanly — and
// the returned bool reports whether the USER record existed, regardless of
// how many dependent records were found.
func (s *AccountService) DeleteAccount(ctx context.Context, userID string) (bool, error) {
	deleted, err := s.users.Delete(ctx, userID)
	if err != nil {
		return false, err
	}

	var cascade error
	if _, err := s.subs.Remove(ctx, userID); err != nil {
		cascade = errors.Join(cascade, err)
	}
	if _, err := s.usage.Remove(ctx, userID); err != nil {
		cascade = errors.Join(cascade, err)
	}
	if _, err := s.activity.Delete(ctx, userID); err != nil {
		cascade = errors.Join(cascade, err)
	}
	if cascade != nil {
		return deleted, fmt.Errorf("cascading delete for user %s: %w", userID, cascade)
	}

	if deleted {
		s.logger.Info("account deleted", "user_id", userID)
	}
	return deleted, nil
}

// Analytics aggregates usage and subscription figures across all users.
// The subscription breakdown counts only the four catalog tiers; records
// carrying a stale plan name are excluded rather than miscounted.
func (s *AccountService) Analytics(ctx context.Context) (*model.AnalyticsSnapshot, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	subs, err := s.subs.List(ctx)
	if err != nil {
		return nil, err
	}
	usage, err := s.usage.List(ctx)
	if err != nil {
		return nil, err
	}

	snapshot := &model.AnalyticsSnapshot{
		TotalUsers:            len(users),
		SubscriptionBreakdown: map[model.Plan]int{},
	}
	for _, p := range plan.All() {
		snapshot.SubscriptionBreakdown[p] = 0
	}

	for _, u := range users {
		if u.IsActive {
			snapshot.ActiveUsers++
		}
	}
	for _, sub := range subs {
		if plan.Known(sub.Plan) {
			snapshot.SubscriptionBreakdown[sub.Plan]++
		}
	}
	var reductionSum float64
	for _, stats := range usage {
		snapshot.TotalScans += stats.TotalScans
		snapshot.TotalFoodWaste += stats.TotalFoodWasteTracked
		snapshot.TotalFertilizer += stats.TotalFertilizerProduced
		reductionSum += stats.WasteReduction
	}

	// Arithmetic mean of the per-user waste-reduction percentages.
	// Guard the division: an empty install reports zero, not NaN.
	if len(usage) > 0 {
		snapshot.AverageWasteReduction = reductionSum / float64(len(usage))
	}

	return snapshot, nil
}

// ExportUserData snapshots all four of a user's records. The user must
// exist; the other three records are optional and export as nil when
// absent.
func (s *AccountService) ExportUserData(ctx context.Context, userID string) (*model.UserExport, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	export := &model.UserExport{
		SchemaVersion: model.SchemaVersion,
		User:          user,
	}

	if sub, err := s.subs.Get(ctx, userID); err == nil {
		export.Subscription = sub
	} else if !isNotFound(err) {
		return nil, err
	}

	if stats, err := s.usage.Stats(ctx, userID); err == nil {
		export.UsageStats = stats
	} else if !isNotFound(err) {
		return nil, err
	}

	if data, err := s.activity.GetByUserID(ctx, userID); err == nil {
		export.AppData = data
	} else if !isNotFound(err) {
		return nil, err
	}

	return export, nil
}

// ImportUserData writes an exported snapshot back into the store,
// overwriting any records with the same keys. Records are written verbatim
// — no IDs regenerated, no timestamps restamped — so export followed by
// import round-trips exactly.
//
// Snapshots from a NEWER schema version are rejected; version 0 snapshots
// (pre-versioning exports) are accepted as-is.
func (s *AccountService) ImportUserData(ctx context.Context, export *model.UserExport) error {
	if export == nil || export.User == nil {
		return apperror.ValidationFailed("user", "snapshot must contain a user record")
	}
	if export.SchemaVersion > model.SchemaVersion {
		return apperror.ValidationFailed("schemaVersion",
			fmt.Sprintf("snapshot schema version %d is newer than this server supports (%d)",
				export.SchemaVersion, model.SchemaVersion))
	}
	if export.User.ID == "" || export.User.Email == "" {
		return apperror.ValidationFailed("user", "user record must carry its id and email")
	}

	if err := s.users.Put(ctx, export.User); err != nil {
		return err
	}
	if export.Subscription != nil {
		if err := s.subs.Restore(ctx, export.Subscription); err != nil {
			return err
		}
	}
	if export.UsageStats != nil {
		if err := s.usage.Restore(ctx, export.UsageStats); err != nil {
			return err
		}
	}
	if export.AppData != nil {
		if err := s.activity.Put(ctx, export.AppData); err != nil {
			return err
		}
	}

	s.logger.Info("user data imported", "user_id", export.User.ID)
	return nil
}

// ResetAll wipes every collection. Development and testing only.
func (s *AccountService) ResetAll(ctx context.Context) error {
	s.logger.Warn("resetting all collections")
	return s.admin.Reset(ctx)
}
