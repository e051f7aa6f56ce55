package engine

import (
	"fmt"
	"time"

	"eligibility-signposting/internal/campaign"
	"eligibility-signposting/internal/eligibility"
	"eligibility-signposting/internal/operators"
	"eligibility-signposting/internal/person"
)

// subject is the per-request view of a person the rules read from.
type subject struct {
	person     person.Person
	cohorts    map[string]struct{}
	cohortList string
	asOf       time.Time
}

func newSubject(p person.Person, asOf time.Time) subject {
	return subject{
		person:     p,
		cohorts:    person.Cohorts(p),
		cohortList: person.CohortList(p),
		asOf:       asOf,
	}
}

func (s subject) inCohort(c campaign.IterationCohort) bool {
	if c.IsMagic() {
		return true
	}
	_, ok := s.cohorts[c.CohortLabel]
	return ok
}

// attribute pulls the value r compares against. nil means absent.
func (s subject) attribute(r campaign.IterationRule) any {
	switch r.AttributeLevel {
	case campaign.LevelPerson:
		if rec, ok := s.person.Record(person.TypePerson); ok {
			return rec[r.Attribute()]
		}
	case campaign.LevelCohort:
		if _, ok := s.person.Record(person.TypeCohorts); ok {
			return s.cohortList
		}
	case campaign.LevelTarget:
		if rec, ok := s.person.Record(r.AttributeTarget); ok {
			return rec[r.Attribute()]
		}
	}
	return nil
}

// matches evaluates r's predicate against the subject.
func (s subject) matches(r campaign.IterationRule) (bool, error) {
	m, err := operators.New(r.Operator, r.Comparator)
	if err != nil {
		return false, fmt.Errorf("rule %q: %w", r.Name, err)
	}
	return m.Match(s.attribute(r), s.asOf), nil
}

func reason(it campaign.Iteration, r campaign.IterationRule, matched bool) eligibility.Reason {
	return eligibility.Reason{
		RuleType:     r.Type,
		RuleName:     r.Name,
		RuleCode:     it.RuleCode(r),
		RulePriority: r.Priority,
		RuleText:     it.RuleText(r),
		Matched:      matched,
	}
}

// priorityGroups splits rules, already sorted by priority, into runs of equal
// priority.
func priorityGroups(rules []campaign.IterationRule) [][]campaign.IterationRule {
	var out [][]campaign.IterationRule
	for start := 0; start < len(rules); {
		end := start + 1
		for end < len(rules) && rules[end].Priority == rules[start].Priority {
			end++
		}
		out = append(out, rules[start:end])
		start = end
	}
	return out
}

func scoped(rules []campaign.IterationRule, cohortLabel string) []campaign.IterationRule {
	var out []campaign.IterationRule
	for _, r := range rules {
		if r.AppliesTo(cohortLabel) {
			out = append(out, r)
		}
	}
	return out
}

// filtered runs the filter groups in priority order. A filter rule passes when
// its predicate matches; a group excludes the cohort when none of its rules
// pass, and the first excluding group decides.
func (s subject) filtered(it campaign.Iteration, filters []campaign.IterationRule) (bool, []eligibility.Reason, error) {
	for _, group := range priorityGroups(filters) {
		var (
			failed []eligibility.Reason
			passed bool
		)
		for _, r := range group {
			ok, err := s.matches(r)
			if err != nil {
				return false, nil, err
			}
			if ok {
				passed = true
				continue
			}
			failed = append(failed, reason(it, r, false))
		}
		if !passed {
			return true, failed, nil
		}
	}
	return false, nil, nil
}

// suppressed runs the suppression groups in priority order. A group fires
// when every rule in it matches. Reasons accumulate across fired groups until
// one carrying RuleStop fires.
func (s subject) suppressed(it campaign.Iteration, suppressions []campaign.IterationRule) (bool, []eligibility.Reason, error) {
	var (
		fired   bool
		reasons []eligibility.Reason
	)
	for _, group := range priorityGroups(suppressions) {
		all, stop := true, false
		groupReasons := make([]eligibility.Reason, 0, len(group))
		for _, r := range group {
			ok, err := s.matches(r)
			if err != nil {
				return false, nil, err
			}
			stop = stop || bool(r.RuleStop)
			if !ok {
				all = false
				continue
			}
			groupReasons = append(groupReasons, reason(it, r, true))
		}
		if !all {
			continue
		}
		fired = true
		reasons = append(reasons, groupReasons...)
		if stop {
			break
		}
	}
	return fired, reasons, nil
}

// cohortResults evaluates every cohort of it in priority order.
func (s subject) cohortResults(it campaign.Iteration) ([]eligibility.CohortResult, error) {
	filters := it.Rules(campaign.RuleFilter)
	suppressions := it.Rules(campaign.RuleSuppression)

	var out []eligibility.CohortResult
	for _, c := range it.Cohorts() {
		res := eligibility.CohortResult{Label: c.CohortLabel, Group: c.CohortGroup}
		if res.Group == "" {
			res.Group = c.CohortLabel
		}

		if !s.inCohort(c) {
			res.Status, res.Description = eligibility.NotEligible, c.NegativeDescription
			out = append(out, res)
			continue
		}

		excluded, reasons, err := s.filtered(it, scoped(filters, c.CohortLabel))
		if err != nil {
			return nil, err
		}
		if excluded {
			res.Status, res.Description, res.Audit = eligibility.NotEligible, c.NegativeDescription, reasons
			out = append(out, res)
			continue
		}

		fired, reasons, err := s.suppressed(it, scoped(suppressions, c.CohortLabel))
		if err != nil {
			return nil, err
		}
		res.Description = c.PositiveDescription
		if fired {
			res.Status, res.Reasons = eligibility.NotActionable, reasons
		} else {
			res.Status = eligibility.Actionable
		}
		out = append(out, res)
	}
	return out, nil
}
