package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/sakif/eco-tracker/internal/apperror"
	"github.com/sakif/eco-tracker/internal/model"
)

// Hand-written in-memory mocks for the four repository interfaces.
// The services only see the interfaces, so these swap in for the SQLite
// implementations without the services noticing. Each mock has a `fail`
// field to simulate a storage failure on its write paths.

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ---- users ----

type mockUserRepo struct {
	users  map[string]*model.User
	nextID int
	fail   error
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: map[string]*model.User{}}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if m.fail != nil {
		return m.fail
	}
	for _, u := range m.users {
		if u.Email == user.Email {
			return apperror.Conflict("user", user.Email)
		}
	}
	m.nextID++
	user.ID = fmt.Sprintf("mock-user-%d", m.nextID)
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	result := *u
	return &result, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			result := *u
			return &result, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	if _, ok := m.users[user.ID]; !ok {
		return apperror.NotFound("user", user.ID)
	}
	user.UpdatedAt = time.Now()
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *mockUserRepo) SetPassword(_ context.Context, id, hash string) error {
	u, ok := m.users[id]
	if !ok {
		return apperror.NotFound("user", id)
	}
	u.PasswordHash = hash
	return nil
}

func (m *mockUserRepo) Delete(_ context.Context, id string) (bool, error) {
	if _, ok := m.users[id]; !ok {
		return false, nil
	}
	delete(m.users, id)
	return true, nil
}

func (m *mockUserRepo) List(_ context.Context) ([]model.User, error) {
	result := make([]model.User, 0, len(m.users))
	for _, u := range m.users {
		result = append(result, *u)
	}
	return result, nil
}

func (m *mockUserRepo) Put(_ context.Context, user *model.User) error {
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

// ---- subscriptions ----

type mockSubscriptionRepo struct {
	subs map[string]*model.Subscription
	fail error
}

func newMockSubscriptionRepo() *mockSubscriptionRepo {
	return &mockSubscriptionRepo{subs: map[string]*model.Subscription{}}
}

func (m *mockSubscriptionRepo) Put(_ context.Context, sub *model.Subscription) error {
	if m.fail != nil {
		return m.fail
	}
	stored := *sub
	m.subs[sub.UserID] = &stored
	return nil
}

func (m *mockSubscriptionRepo) GetByUserID(_ context.Context, userID string) (*model.Subscription, error) {
	sub, ok := m.subs[userID]
	if !ok {
		return nil, apperror.NotFound("subscription", userID)
	}
	result := *sub
	return &result, nil
}

func (m *mockSubscriptionRepo) Delete(_ context.Context, userID string) (bool, error) {
	if _, ok := m.subs[userID]; !ok {
		return false, nil
	}
	delete(m.subs, userID)
	return true, nil
}

func (m *mockSubscriptionRepo) List(_ context.Context) ([]model.Subscription, error) {
	result := make([]model.Subscription, 0, len(m.subs))
	for _, sub := range m.subs {
		result = append(result, *sub)
	}
	return result, nil
}

// ---- usage ----

type mockUsageRepo struct {
	stats map[string]*model.UsageStats
	fail  error
}

func newMockUsageRepo() *mockUsageRepo {
	return &mockUsageRepo{stats: map[string]*model.UsageStats{}}
}

func copyStats(s *model.UsageStats) *model.UsageStats {
	result := *s
	result.MonthlyStats = make(map[string]model.MonthlyUsage, len(s.MonthlyStats))
	for k, v := range s.MonthlyStats {
		result.MonthlyStats[k] = v
	}
	return &result
}

func (m *mockUsageRepo) Init(_ context.Context, userID string, now time.Time) (*model.UsageStats, error) {
	if m.fail != nil {
		return nil, m.fail
	}
	stats := &model.UsageStats{
		UserID:       userID,
		MonthlyStats: map[string]model.MonthlyUsage{model.PeriodKey(now): {}},
		LastUpdated:  now,
		CreatedAt:    now,
	}
	m.stats[userID] = stats
	return copyStats(stats), nil
}

func (m *mockUsageRepo) Get(_ context.Context, userID string) (*model.UsageStats, error) {
	stats, ok := m.stats[userID]
	if !ok {
		return nil, apperror.NotFound("usage stats", userID)
	}
	return copyStats(stats), nil
}

func (m *mockUsageRepo) Apply(_ context.Context, userID string, delta model.UsageDelta, now time.Time) (*model.UsageStats, error) {
	if m.fail != nil {
		return nil, m.fail
	}
	stats, ok := m.stats[userID]
	if !ok {
		stats = &model.UsageStats{
			UserID:       userID,
			MonthlyStats: map[string]model.MonthlyUsage{},
			CreatedAt:    now,
		}
		m.stats[userID] = stats
	}
	stats.TotalScans += delta.Scans
	stats.TotalAnalyses += delta.Analyses
	stats.TotalReports += delta.Reports
	stats.TotalFoodWasteTracked += delta.FoodWaste
	stats.TotalFertilizerProduced += delta.Fertilizer
	stats.LastUpdated = now

	period := model.PeriodKey(now)
	bucket := stats.MonthlyStats[period]
	bucket.Scans += delta.Scans
	bucket.Analyses += delta.Analyses
	bucket.Reports += delta.Reports
	bucket.FoodWaste += delta.FoodWaste
	bucket.Fertilizer += delta.Fertilizer
	stats.MonthlyStats[period] = bucket

	return copyStats(stats), nil
}

func (m *mockUsageRepo) CurrentMonthly(_ context.Context, userID string, now time.Time) (*model.MonthlyUsage, error) {
	stats, ok := m.stats[userID]
	if !ok {
		return nil, apperror.NotFound("usage stats", userID)
	}
	bucket := stats.MonthlyStats[model.PeriodKey(now)]
	return &bucket, nil
}

func (m *mockUsageRepo) Put(_ context.Context, stats *model.UsageStats) error {
	m.stats[stats.UserID] = copyStats(stats)
	return nil
}

func (m *mockUsageRepo) Delete(_ context.Context, userID string) (bool, error) {
	if _, ok := m.stats[userID]; !ok {
		return false, nil
	}
	delete(m.stats, userID)
	return true, nil
}

func (m *mockUsageRepo) List(_ context.Context) ([]model.UsageStats, error) {
	result := make([]model.UsageStats, 0, len(m.stats))
	for _, stats := range m.stats {
		result = append(result, *copyStats(stats))
	}
	return result, nil
}

// ---- activity ----

type mockActivityRepo struct {
	data   map[string]*model.AppData
	nextID int
	fail   error
}

func newMockActivityRepo() *mockActivityRepo {
	return &mockActivityRepo{data: map[string]*model.AppData{}}
}

func (m *mockActivityRepo) container(userID string, now time.Time) *model.AppData {
	if d, ok := m.data[userID]; ok {
		return d
	}
	d := &model.AppData{
		UserID:    userID,
		Scans:     []model.Scan{},
		Analyses:  []model.Analysis{},
		Reports:   []model.Report{},
		Settings:  model.DefaultAppSettings(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.data[userID] = d
	return d
}

func (m *mockActivityRepo) AddScan(_ context.Context, scan *model.Scan) error {
	if m.fail != nil {
		return m.fail
	}
	now := time.Now()
	m.nextID++
	scan.ID = fmt.Sprintf("mock-scan-%d", m.nextID)
	scan.Timestamp = now
	d := m.container(scan.UserID, now)
	d.Scans = append(d.Scans, *scan)
	d.UpdatedAt = now
	return nil
}

func (m *mockActivityRepo) AddAnalysis(_ context.Context, analysis *model.Analysis) error {
	if m.fail != nil {
		return m.fail
	}
	now := time.Now()
	m.nextID++
	analysis.ID = fmt.Sprintf("mock-analysis-%d", m.nextID)
	analysis.Timestamp = now
	d := m.container(analysis.UserID, now)
	d.Analyses = append(d.Analyses, *analysis)
	d.UpdatedAt = now
	return nil
}

func (m *mockActivityRepo) AddReport(_ context.Context, report *model.Report) error {
	if m.fail != nil {
		return m.fail
	}
	now := time.Now()
	m.nextID++
	report.ID = fmt.Sprintf("mock-report-%d", m.nextID)
	report.Timestamp = now
	d := m.container(report.UserID, now)
	d.Reports = append(d.Reports, *report)
	d.UpdatedAt = now
	return nil
}

func (m *mockActivityRepo) GetByUserID(_ context.Context, userID string) (*model.AppData, error) {
	d, ok := m.data[userID]
	if !ok {
		return nil, apperror.NotFound("app data", userID)
	}
	result := *d
	return &result, nil
}

func (m *mockActivityRepo) Put(_ context.Context, data *model.AppData) error {
	stored := *data
	m.data[data.UserID] = &stored
	return nil
}

func (m *mockActivityRepo) Delete(_ context.Context, userID string) (bool, error) {
	if _, ok := m.data[userID]; !ok {
		return false, nil
	}
	delete(m.data, userID)
	return true, nil
}

// ---- store admin ----

type mockStoreAdmin struct {
	users    *mockUserRepo
	subs     *mockSubscriptionRepo
	usage    *mockUsageRepo
	activity *mockActivityRepo
}

func (m *mockStoreAdmin) Reset(_ context.Context) error {
	m.users.users = map[string]*model.User{}
	m.subs.subs = map[string]*model.Subscription{}
	m.usage.stats = map[string]*model.UsageStats{}
	m.activity.data = map[string]*model.AppData{}
	return nil
}

// ---- fixture wiring ----

// fixture bundles a fully wired service graph over the mocks so tests can
// reach both the services and the raw in-memory state.
type fixture struct {
	users    *mockUserRepo
	subRepo  *mockSubscriptionRepo
	usgRepo  *mockUsageRepo
	activity *mockActivityRepo

	subs     *SubscriptionService
	usage    *UsageService
	accounts *AccountService
}

func newFixture() *fixture {
	f := &fixture{
		users:    newMockUserRepo(),
		subRepo:  newMockSubscriptionRepo(),
		usgRepo:  newMockUsageRepo(),
		activity: newMockActivityRepo(),
	}
	logger := testLogger()
	f.subs = NewSubscriptionService(f.subRepo, logger)
	f.usage = NewUsageService(f.usgRepo, f.subRepo, logger)
	admin := &mockStoreAdmin{users: f.users, subs: f.subRepo, usage: f.usgRepo, activity: f.activity}
	f.accounts = NewAccountService(f.users, f.subs, f.usage, f.activity, admin, logger)
	return f
}
