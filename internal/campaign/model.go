package campaign

import (
	"cmp"
	"slices"
	"sort"
	"strings"
	"time"

	"eligibility-signposting/internal/operators"
)

// MagicCohort is a cohort every person belongs to.
const MagicCohort = "elid_all_people"

// CohortLabelAttribute is the only attribute a COHORT-level rule may read.
const CohortLabelAttribute = "COHORT_LABEL"

type CampaignConfig struct {
	ID                  string      `json:"ID"`
	Version             int         `json:"Version"`
	Name                string      `json:"Name"`
	Type                Type        `json:"Type"`
	Target              string      `json:"Target"`
	Manager             []string    `json:"Manager,omitempty"`
	Approver            []string    `json:"Approver,omitempty"`
	Reviewer            []string    `json:"Reviewer,omitempty"`
	IterationFrequency  string      `json:"IterationFrequency"`
	IterationType       string      `json:"IterationType"`
	IterationTime       string      `json:"IterationTime,omitempty"`
	DefaultCommsRouting string      `json:"DefaultCommsRouting,omitempty"`
	StartDate           Date        `json:"StartDate"`
	EndDate             Date        `json:"EndDate"`
	ApprovalMinimum     *int        `json:"ApprovalMinimum,omitempty"`
	ApprovalMaximum     *int        `json:"ApprovalMaximum,omitempty"`
	Iterations          []Iteration `json:"Iterations"`
}

// Live reports whether asOf falls inside the campaign's start and end dates.
func (c CampaignConfig) Live(asOf time.Time) bool {
	return c.StartDate.OnOrBefore(asOf) && c.EndDate.OnOrAfter(asOf)
}

// IterationAt returns the latest iteration already in effect on asOf.
func (c CampaignConfig) IterationAt(asOf time.Time) (Iteration, bool) {
	var (
		best  Iteration
		found bool
	)
	for _, it := range c.Iterations {
		if !it.IterationDate.OnOrBefore(asOf) {
			continue
		}
		if !found || it.IterationDate.After(best.IterationDate.Time) {
			best, found = it, true
		}
	}
	return best, found
}

type Iteration struct {
	ID                          string            `json:"ID"`
	Version                     int               `json:"Version"`
	Name                        string            `json:"Name"`
	IterationDate               Date              `json:"IterationDate"`
	IterationNumber             *int              `json:"IterationNumber,omitempty"`
	ApprovalMinimum             *int              `json:"ApprovalMinimum,omitempty"`
	ApprovalMaximum             *int              `json:"ApprovalMaximum,omitempty"`
	Type                        string            `json:"Type"`
	DefaultCommsRouting         string            `json:"DefaultCommsRouting"`
	DefaultNotEligibleRouting   string            `json:"DefaultNotEligibleRouting"`
	DefaultNotActionableRouting string            `json:"DefaultNotActionableRouting"`
	IterationCohorts            []IterationCohort `json:"IterationCohorts"`
	IterationRules              []IterationRule   `json:"IterationRules"`
	ActionsMapper               ActionsMapper     `json:"ActionsMapper"`
	RulesMapper                 RulesMapper       `json:"RulesMapper,omitempty"`
	StatusText                  *StatusText       `json:"StatusText,omitempty"`
}

// Rules returns the rules of type t ordered by priority. The sort is stable
// so equal priorities keep their file order.
func (it Iteration) Rules(t RuleType) []IterationRule {
	var out []IterationRule
	for _, r := range it.IterationRules {
		if r.Type == t {
			out = append(out, r)
		}
	}
	slices.SortStableFunc(out, func(a, b IterationRule) int { return cmp.Compare(a.Priority, b.Priority) })
	return out
}

// Cohorts returns the iteration cohorts by ascending priority; cohorts without
// a priority sort last.
func (it Iteration) Cohorts() []IterationCohort {
	out := slices.Clone(it.IterationCohorts)
	slices.SortStableFunc(out, func(a, b IterationCohort) int {
		switch {
		case a.Priority == nil && b.Priority == nil:
			return 0
		case a.Priority == nil:
			return 1
		case b.Priority == nil:
			return -1
		}
		return cmp.Compare(*a.Priority, *b.Priority)
	})
	return out
}

// RuleCode is the code reported for r: a RulesMapper entry listing the rule's
// name wins, then the rule's own code, then its name.
func (it Iteration) RuleCode(r IterationRule) string {
	if e, ok := it.RulesMapper.entryFor(r.Name); ok && e.RuleCode != "" {
		return e.RuleCode
	}
	if r.Code != "" {
		return r.Code
	}
	return r.Name
}

func (it Iteration) RuleText(r IterationRule) string {
	if e, ok := it.RulesMapper.entryFor(r.Name); ok && e.RuleText != "" {
		return e.RuleText
	}
	return r.Description
}

type IterationCohort struct {
	CohortLabel         string `json:"CohortLabel"`
	CohortGroup         string `json:"CohortGroup"`
	PositiveDescription string `json:"PositiveDescription,omitempty"`
	NegativeDescription string `json:"NegativeDescription,omitempty"`
	Priority            *int   `json:"Priority,omitempty"`
	Virtual             Flag   `json:"Virtual,omitempty"`
}

func (c IterationCohort) IsMagic() bool { return c.CohortLabel == MagicCohort }

type IterationRule struct {
	Type            RuleType           `json:"Type"`
	Name            string             `json:"Name"`
	Code            string             `json:"Code,omitempty"`
	Description     string             `json:"Description"`
	Priority        int                `json:"Priority"`
	AttributeLevel  AttributeLevel     `json:"AttributeLevel"`
	AttributeName   string             `json:"AttributeName,omitempty"`
	AttributeTarget string             `json:"AttributeTarget,omitempty"`
	CohortLabel     string             `json:"CohortLabel,omitempty"`
	Operator        operators.Operator `json:"Operator"`
	Comparator      string             `json:"Comparator"`
	RuleStop        Flag               `json:"RuleStop,omitempty"`
	CommsRouting    string             `json:"CommsRouting,omitempty"`
}

// CohortLabels splits the comma separated CohortLabel field.
func (r IterationRule) CohortLabels() []string {
	var out []string
	for _, l := range strings.Split(r.CohortLabel, ",") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// AppliesTo reports whether r is scoped to cohortLabel. Unscoped rules apply
// to every cohort.
func (r IterationRule) AppliesTo(cohortLabel string) bool {
	labels := r.CohortLabels()
	return len(labels) == 0 || slices.Contains(labels, cohortLabel)
}

// Attribute is the attribute name the rule reads, defaulted for COHORT rules.
func (r IterationRule) Attribute() string {
	if r.AttributeLevel == LevelCohort && r.AttributeName == "" {
		return CohortLabelAttribute
	}
	return r.AttributeName
}

type AvailableAction struct {
	ActionType          string `json:"ActionType"`
	ExternalRoutingCode string `json:"ExternalRoutingCode"`
	ActionDescription   string `json:"ActionDescription,omitempty"`
	UrlLink             string `json:"UrlLink,omitempty"`
	UrlLabel            string `json:"UrlLabel,omitempty"`
}

// ActionsMapper maps an internal routing code to the action it stands for.
type ActionsMapper map[string]AvailableAction

type RuleEntry struct {
	RuleNames []string `json:"RuleNames"`
	RuleCode  string   `json:"RuleCode,omitempty"`
	RuleText  string   `json:"RuleText,omitempty"`
}

type RulesMapper map[string]RuleEntry

// entryFor walks entries in key order and returns the last one naming rule.
func (m RulesMapper) entryFor(rule string) (RuleEntry, bool) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var (
		out   RuleEntry
		found bool
	)
	for _, k := range keys {
		if slices.Contains(m[k].RuleNames, rule) {
			out, found = m[k], true
		}
	}
	return out, found
}

type StatusText struct {
	NotEligible   string `json:"NotEligible,omitempty"`
	NotActionable string `json:"NotActionable,omitempty"`
	Actionable    string `json:"Actionable,omitempty"`
}
