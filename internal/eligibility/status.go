package eligibility

import (
	"fmt"

	"eligibility-signposting/internal/campaign"
)

// Status orders outcomes from least to most favourable.
type Status int

const (
	NotEligible Status = iota + 1
	NotActionable
	Actionable
)

func (s Status) String() string {
	switch s {
	case NotEligible:
		return "NotEligible"
	case NotActionable:
		return "NotActionable"
	case Actionable:
		return "Actionable"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Status) UnmarshalText(b []byte) error {
	for _, v := range []Status{NotEligible, NotActionable, Actionable} {
		if v.String() == string(b) {
			*s = v
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", string(b))
}

func (s Status) IsExclusion() bool { return s != Actionable }

// Best returns the most favourable status, NotEligible when none are given.
func Best(statuses ...Status) Status {
	best := NotEligible
	for _, s := range statuses {
		if s > best {
			best = s
		}
	}
	return best
}

// Worst returns the least favourable status, Actionable when none are given.
func Worst(statuses ...Status) Status {
	worst := Actionable
	for _, s := range statuses {
		if s < worst {
			worst = s
		}
	}
	return worst
}

// ActionRuleType is the rule type whose routing decides actions for s.
func (s Status) ActionRuleType() campaign.RuleType {
	switch s {
	case NotEligible:
		return campaign.RuleNotEligibleActions
	case NotActionable:
		return campaign.RuleNotActionableActions
	}
	return campaign.RuleRedirect
}

// DefaultRouting picks the iteration's default routing for s.
func (s Status) DefaultRouting(it campaign.Iteration) string {
	switch s {
	case NotEligible:
		return it.DefaultNotEligibleRouting
	case NotActionable:
		return it.DefaultNotActionableRouting
	}
	return it.DefaultCommsRouting
}

// Text is the status text for condition, taken from the iteration override
// when one is configured.
func (s Status) Text(condition string, override *campaign.StatusText) string {
	if override != nil {
		var t string
		switch s {
		case NotEligible:
			t = override.NotEligible
		case NotActionable:
			t = override.NotActionable
		case Actionable:
			t = override.Actionable
		}
		if t != "" {
			return t
		}
	}
	if s == NotEligible {
		return "We do not believe you can have it"
	}
	return fmt.Sprintf("You should have the %s vaccine", condition)
}
