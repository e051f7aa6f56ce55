package engine

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"eligibility-signposting/internal/campaign"
	"eligibility-signposting/internal/derived"
	"eligibility-signposting/internal/eligibility"
	"eligibility-signposting/internal/person"
	"eligibility-signposting/internal/token"
)

// Calculator turns a person and a set of campaign configs into per-condition
// eligibility. It holds no per-request state.
type Calculator struct {
	evaluator Evaluator
	tokens    *token.Processor
	log       zerolog.Logger
}

func NewCalculator(registry *derived.Registry, logger zerolog.Logger) *Calculator {
	return &Calculator{
		tokens: token.NewProcessor(registry, logger),
		log:    logger,
	}
}

type iterationResult struct {
	campaignID string
	iteration  campaign.Iteration
	status     eligibility.Status
	cohorts    []eligibility.CohortResult
}

// Evaluate computes the result for every condition q selects. Conditions
// whose campaigns have no iteration in effect on asOf are left out.
func (c *Calculator) Evaluate(p person.Person, configs []campaign.CampaignConfig, q eligibility.Query, asOf time.Time) (eligibility.Result, error) {
	s := newSubject(p, asOf)

	res := eligibility.Result{Conditions: []eligibility.Condition{}}
	for _, g := range c.evaluator.Grouped(configs, q.Conditions, q.Category, asOf) {
		best, ok, err := c.bestIteration(s, g)
		if err != nil {
			return eligibility.Result{}, fmt.Errorf("condition %s: %w", g.Condition, err)
		}
		if !ok {
			continue
		}

		var actions []eligibility.SuggestedAction
		if q.IncludeActions {
			if actions, err = s.actions(best.iteration, best.status); err != nil {
				return eligibility.Result{}, fmt.Errorf("condition %s: %w", g.Condition, err)
			}
		}

		cond, err := c.buildCondition(s, g.Condition, best, actions)
		if err != nil {
			return eligibility.Result{}, fmt.Errorf("condition %s: %w", g.Condition, err)
		}
		res.Conditions = append(res.Conditions, cond)
	}
	return res, nil
}

// bestIteration evaluates the iteration in effect for each campaign and keeps
// the most favourable; the earlier campaign wins a tie.
func (c *Calculator) bestIteration(s subject, g Group) (iterationResult, bool, error) {
	var (
		best  iterationResult
		found bool
	)
	for _, cc := range g.Campaigns {
		it, ok := cc.IterationAt(s.asOf)
		if !ok {
			c.log.Info().Str("campaign_id", cc.ID).Msgf("Skipping campaign ID %s as no active iteration was found.", cc.ID)
			continue
		}
		cohorts, err := s.cohortResults(it)
		if err != nil {
			return iterationResult{}, false, fmt.Errorf("campaign %s: %w", cc.ID, err)
		}
		statuses := make([]eligibility.Status, len(cohorts))
		for i, cr := range cohorts {
			statuses[i] = cr.Status
			for _, r := range cr.Audit {
				c.log.Debug().Str("campaign_id", cc.ID).Str("cohort", cr.Label).Str("rule", r.RuleName).Msg("cohort excluded by filter")
			}
		}
		r := iterationResult{campaignID: cc.ID, iteration: it, status: eligibility.Best(statuses...), cohorts: cohorts}
		if !found || r.status > best.status {
			best, found = r, true
		}
	}
	return best, found, nil
}

// buildCondition keeps the cohorts that reached the condition's status,
// merged by cohort group, and resolves tokens in every text field.
func (c *Calculator) buildCondition(s subject, name string, best iterationResult, actions []eligibility.SuggestedAction) (eligibility.Condition, error) {
	var (
		groups []*eligibility.CohortGroupResult
		byCode = map[string]*eligibility.CohortGroupResult{}
	)
	for _, cr := range best.cohorts {
		if cr.Status != best.status {
			continue
		}
		g, ok := byCode[cr.Group]
		if !ok {
			g = &eligibility.CohortGroupResult{CohortCode: cr.Group, Status: cr.Status}
			byCode[cr.Group] = g
			groups = append(groups, g)
		}
		g.Reasons = append(g.Reasons, cr.Reasons...)
		if g.Description == "" {
			g.Description = cr.Description
		}
	}

	cond := eligibility.Condition{
		Name:             name,
		Status:           best.status,
		CohortResults:    make([]eligibility.CohortGroupResult, 0, len(groups)),
		SuitabilityRules: []eligibility.Reason{},
		Actions:          []eligibility.SuggestedAction{},
	}

	var err error
	if cond.StatusText, err = c.tokens.Replace(s.person, best.status.Text(name, best.iteration.StatusText)); err != nil {
		return eligibility.Condition{}, err
	}

	var reasons []eligibility.Reason
	for _, g := range groups {
		if g.Description, err = c.tokens.Replace(s.person, g.Description); err != nil {
			return eligibility.Condition{}, err
		}
		cond.CohortResults = append(cond.CohortResults, *g)
		reasons = append(reasons, g.Reasons...)
	}

	for _, r := range suitability(reasons) {
		if r.RuleText, err = c.tokens.Replace(s.person, r.RuleText); err != nil {
			return eligibility.Condition{}, err
		}
		if strings.TrimSpace(r.RuleText) == "" {
			continue
		}
		cond.SuitabilityRules = append(cond.SuitabilityRules, r)
	}

	for _, a := range actions {
		if a.Description, err = c.tokens.Replace(s.person, a.Description); err != nil {
			return eligibility.Condition{}, err
		}
		if a.URLLink, err = c.tokens.Replace(s.person, a.URLLink); err != nil {
			return eligibility.Condition{}, err
		}
		if a.URLLabel, err = c.tokens.Replace(s.person, a.URLLabel); err != nil {
			return eligibility.Condition{}, err
		}
		cond.Actions = append(cond.Actions, a)
	}
	return cond, nil
}

// suitability de-duplicates reasons on rule type, name and priority, keeping
// the first, and orders them by priority.
func suitability(reasons []eligibility.Reason) []eligibility.Reason {
	type key struct {
		t        campaign.RuleType
		name     string
		priority int
	}
	seen := map[key]struct{}{}
	out := make([]eligibility.Reason, 0, len(reasons))
	for _, r := range reasons {
		k := key{r.RuleType, r.RuleName, r.RulePriority}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	slices.SortStableFunc(out, func(a, b eligibility.Reason) int { return cmp.Compare(a.RulePriority, b.RulePriority) })
	return out
}
