// Package plan is the static catalog of subscription tiers.
//
// The catalog is pure data: no storage, no clock, no state. Each entry
// bundles the monthly quota limits and the feature flags for one tier.
// Tiers are strictly non-decreasing — every limit and every feature of a
// lower tier is present in all higher tiers, with premium fully unlimited.
package plan

import "github.com/sakif/eco-tracker/internal/model"

// Unlimited is the sentinel limit value meaning "no monthly ceiling".
// It must be checked for explicitly, never compared numerically.
const Unlimited = -1

// Feature names known to the catalog. Subscription.Features is keyed by
// these strings; HasFeature lookups use them verbatim.
const (
	FeatureBasicAnalysis        = "basicAnalysis"
	FeatureFertilizerCalculator = "fertilizer_calculator"
	FeatureEmailSupport         = "email_support"
	FeatureAdvancedAnalytics    = "advanced_analytics"
	FeatureAPIAccess            = "api_access"
	FeatureCustomRecipes        = "custom_recipes"
	FeaturePrioritySupport      = "priority_support"
	FeaturePhoneSupport         = "phone_support"
	FeatureWhiteLabel           = "white_label"
)

// Details is one catalog entry.
type Details struct {
	Limits   model.Limits
	Features model.Features
}

var catalog = map[model.Plan]Details{
	model.PlanTrial: {
		Limits: model.Limits{ScansPerMonth: 10, AnalysesPerMonth: 10, ReportsPerMonth: 3},
		Features: model.Features{
			FeatureBasicAnalysis:        true,
			FeatureFertilizerCalculator: true,
			FeatureEmailSupport:         true,
			FeatureAdvancedAnalytics:    false,
			FeatureAPIAccess:            false,
			FeatureCustomRecipes:        false,
			FeaturePrioritySupport:      false,
			FeaturePhoneSupport:         false,
			FeatureWhiteLabel:           false,
		},
	},
	model.PlanBasic: {
		Limits: model.Limits{ScansPerMonth: 600, AnalysesPerMonth: 600, ReportsPerMonth: 120},
		Features: model.Features{
			FeatureBasicAnalysis:        true,
			FeatureFertilizerCalculator: true,
			FeatureEmailSupport:         true,
			FeatureAdvancedAnalytics:    false,
			FeatureAPIAccess:            false,
			FeatureCustomRecipes:        false,
			FeaturePrioritySupport:      false,
			FeaturePhoneSupport:         false,
			FeatureWhiteLabel:           false,
		},
	},
	model.PlanPro: {
		Limits: model.Limits{ScansPerMonth: 2400, AnalysesPerMonth: 2400, ReportsPerMonth: 600},
		Features: model.Features{
			FeatureBasicAnalysis:        true,
			FeatureFertilizerCalculator: true,
			FeatureEmailSupport:         true,
			FeatureAdvancedAnalytics:    true,
			FeatureAPIAccess:            false,
			FeatureCustomRecipes:        true,
			FeaturePrioritySupport:      true,
			FeaturePhoneSupport:         false,
			FeatureWhiteLabel:           false,
		},
	},
	model.PlanPremium: {
		Limits: model.Limits{ScansPerMonth: Unlimited, AnalysesPerMonth: Unlimited, ReportsPerMonth: Unlimited},
		Features: model.Features{
			FeatureBasicAnalysis:        true,
			FeatureFertilizerCalculator: true,
			FeatureEmailSupport:         true,
			FeatureAdvancedAnalytics:    true,
			FeatureAPIAccess:            true,
			FeatureCustomRecipes:        true,
			FeaturePrioritySupport:      true,
			FeaturePhoneSupport:         true,
			FeatureWhiteLabel:           true,
		},
	},
}

// All returns the known tiers in ascending order.
func All() []model.Plan {
	return []model.Plan{model.PlanTrial, model.PlanBasic, model.PlanPro, model.PlanPremium}
}

// Known reports whether p is one of the four catalog tiers.
func Known(p model.Plan) bool {
	_, ok := catalog[p]
	return ok
}

// Get returns the catalog entry for p and whether the lookup was exact.
// Unknown plan names resolve to the trial entry — a deliberate fallback so
// a typo'd or stale plan name degrades to the most restrictive limits
// instead of failing. Callers that care should log when exact is false.
//
// The returned Features map is a copy; mutating it cannot corrupt the
// catalog.
func Get(p model.Plan) (d Details, exact bool) {
	d, exact = catalog[p]
	if !exact {
		d = catalog[model.PlanTrial]
	}

	features := make(model.Features, len(d.Features))
	for name, enabled := range d.Features {
		features[name] = enabled
	}
	d.Features = features

	return d, exact
}
