package engine

import (
	"cmp"
	"slices"
	"time"

	"eligibility-signposting/internal/campaign"
	"eligibility-signposting/internal/eligibility"
)

const AllConditions = "ALL"

// Group is the live campaigns targeting one condition.
type Group struct {
	Condition string
	Campaigns []campaign.CampaignConfig
}

// Evaluator narrows campaign configs down to what a request asked for.
type Evaluator struct{}

// ActiveCampaigns keeps the campaigns live on asOf.
func (Evaluator) ActiveCampaigns(configs []campaign.CampaignConfig, asOf time.Time) []campaign.CampaignConfig {
	out := make([]campaign.CampaignConfig, 0, len(configs))
	for _, c := range configs {
		if c.Live(asOf) {
			out = append(out, c)
		}
	}
	return out
}

// Grouped groups live campaigns by target condition, in target order, and
// keeps the groups the category and condition list admit. Only the first
// campaign of a group is checked against the category.
func (e Evaluator) Grouped(configs []campaign.CampaignConfig, conditions []string, category eligibility.Category, asOf time.Time) []Group {
	active := e.ActiveCampaigns(configs, asOf)
	slices.SortStableFunc(active, func(a, b campaign.CampaignConfig) int { return cmp.Compare(a.Target, b.Target) })

	allowed := category.Types()
	all := slices.Contains(conditions, AllConditions)

	var out []Group
	for start := 0; start < len(active); {
		end := start + 1
		for end < len(active) && active[end].Target == active[start].Target {
			end++
		}
		g := Group{Condition: active[start].Target, Campaigns: active[start:end]}
		if slices.Contains(allowed, g.Campaigns[0].Type) && (all || slices.Contains(conditions, g.Condition)) {
			out = append(out, g)
		}
		start = end
	}
	return out
}
