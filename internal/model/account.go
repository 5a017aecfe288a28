package model

// SchemaVersion is the current version of the persisted record shapes.
// It is stamped on every export snapshot and stored alongside the database
// so future shape changes have a defined migration point. Version 0 is
// treated as "legacy, unversioned".
const SchemaVersion = 1

// Identity is what an identity provider yields on successful
// authentication. The account layer treats it as an opaque input to
// account creation — it carries no tokens and no provider session state.
type Identity struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Phone          string `json:"phone,omitempty"`
	Picture        string `json:"picture,omitempty"`
	Location       string `json:"location,omitempty"`
	ProviderUserID string `json:"providerUserId,omitempty"`
	AuthMethod     string `json:"authMethod,omitempty"`
}

// AnalyticsSnapshot is the aggregate view over all users.
type AnalyticsSnapshot struct {
	TotalUsers            int          `json:"totalUsers"`
	ActiveUsers           int          `json:"activeUsers"`
	SubscriptionBreakdown map[Plan]int `json:"subscriptionBreakdown"`
	TotalScans            int          `json:"totalScans"`
	TotalFoodWaste        float64      `json:"totalFoodWaste"`
	TotalFertilizer       float64      `json:"totalFertilizer"`
	AverageWasteReduction float64      `json:"averageWasteReduction"`
}

// UserExport is a full snapshot of one user's four records, suitable for
// backup and restore. Missing records are nil — an under-provisioned user
// exports with a nil Subscription, and importing such a snapshot leaves
// that collection untouched.
type UserExport struct {
	SchemaVersion int           `json:"schemaVersion"`
	User          *User         `json:"user"`
	Subscription  *Subscription `json:"subscription"`
	UsageStats    *UsageStats   `json:"usageStats"`
	AppData       *AppData      `json:"appData"`
}
