package eligibility

import "eligibility-signposting/internal/campaign"

// Reason records one rule evaluated for a cohort.
type Reason struct {
	RuleType     campaign.RuleType
	RuleName     string
	RuleCode     string
	RulePriority int
	RuleText     string
	Matched      bool
}

// CohortResult is the outcome for one iteration cohort.
type CohortResult struct {
	Label       string
	Group       string
	Status      Status
	Reasons     []Reason
	Description string

	// Audit holds the failing filter rules that excluded the cohort. They are
	// never reported as suitability rules.
	Audit []Reason
}

// CohortGroupResult merges the cohort results that share a cohort group.
type CohortGroupResult struct {
	CohortCode  string
	Status      Status
	Reasons     []Reason
	Description string
}

type SuggestedAction struct {
	InternalActionCode string
	ActionType         string
	ActionCode         string
	Description        string
	URLLink            string
	URLLabel           string
}

type Condition struct {
	Name             string
	Status           Status
	StatusText       string
	CohortResults    []CohortGroupResult
	SuitabilityRules []Reason
	Actions          []SuggestedAction
}

type Result struct {
	Conditions []Condition
}

// Query is a validated eligibility request.
type Query struct {
	IncludeActions bool
	Conditions     []string // upper case condition names, or just "ALL"
	Category       Category
}

type Category string

const (
	CategoryAll          Category = "ALL"
	CategoryVaccinations Category = "VACCINATIONS"
	CategoryScreening    Category = "SCREENING"
)

// Types returns the campaign types the category admits.
func (c Category) Types() []campaign.Type {
	switch c {
	case CategoryVaccinations:
		return []campaign.Type{campaign.Vaccination}
	case CategoryScreening:
		return []campaign.Type{campaign.Screening}
	}
	return []campaign.Type{campaign.Vaccination, campaign.Screening}
}
