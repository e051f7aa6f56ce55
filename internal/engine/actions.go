package engine

import (
	"strings"

	"eligibility-signposting/internal/campaign"
	"eligibility-signposting/internal/eligibility"
)

// actions resolves the actions for status. The iteration's default routing
// applies unless a priority group of the matching action rule type all
// matches and its first rule carries a CommsRouting.
func (s subject) actions(it campaign.Iteration, status eligibility.Status) ([]eligibility.SuggestedAction, error) {
	out := fromRouting(it.ActionsMapper, status.DefaultRouting(it))

	for _, group := range priorityGroups(it.Rules(status.ActionRuleType())) {
		routing := group[0].CommsRouting
		if routing == "" {
			continue
		}
		all := true
		for _, r := range group {
			ok, err := s.matches(r)
			if err != nil {
				return nil, err
			}
			if !ok {
				all = false
				break
			}
		}
		if !all {
			continue
		}
		if redirected := fromRouting(it.ActionsMapper, routing); len(redirected) > 0 {
			out = redirected
		}
		break
	}
	return dedupeActions(out), nil
}

// fromRouting maps a "|" separated list of routing codes through the
// ActionsMapper. Unknown codes are dropped.
func fromRouting(mapper campaign.ActionsMapper, routing string) []eligibility.SuggestedAction {
	var out []eligibility.SuggestedAction
	for _, code := range strings.Split(routing, "|") {
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		a, ok := mapper[code]
		if !ok {
			continue
		}
		out = append(out, eligibility.SuggestedAction{
			InternalActionCode: code,
			ActionType:         a.ActionType,
			ActionCode:         a.ExternalRoutingCode,
			Description:        a.ActionDescription,
			URLLink:            a.UrlLink,
			URLLabel:           a.UrlLabel,
		})
	}
	return out
}

func dedupeActions(actions []eligibility.SuggestedAction) []eligibility.SuggestedAction {
	seen := make(map[string]struct{}, len(actions))
	out := make([]eligibility.SuggestedAction, 0, len(actions))
	for _, a := range actions {
		if _, dup := seen[a.ActionCode]; dup {
			continue
		}
		seen[a.ActionCode] = struct{}{}
		out = append(out, a)
	}
	return out
}
