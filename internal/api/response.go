package api

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"eligibility-signposting/internal/campaign"
	"eligibility-signposting/internal/eligibility"
)

type EligibilityResponse struct {
	ResponseID           string                `json:"responseId"`
	Meta                 Meta                  `json:"meta"`
	ProcessedSuggestions []ProcessedSuggestion `json:"processedSuggestions"`
}

type Meta struct {
	LastUpdated string `json:"lastUpdated"`
}

type ProcessedSuggestion struct {
	Condition          string              `json:"condition"`
	Status             eligibility.Status  `json:"status"`
	StatusText         string              `json:"statusText"`
	EligibilityCohorts []EligibilityCohort `json:"eligibilityCohorts"`
	SuitabilityRules   []SuitabilityRule   `json:"suitabilityRules"`
	Actions            []Action            `json:"actions"`
}

type EligibilityCohort struct {
	CohortCode   string             `json:"cohortCode"`
	CohortText   string             `json:"cohortText"`
	CohortStatus eligibility.Status `json:"cohortStatus"`
}

type SuitabilityRule struct {
	RuleType campaign.RuleType `json:"ruleType"`
	RuleCode string            `json:"ruleCode"`
	RuleText string            `json:"ruleText"`
}

type Action struct {
	ActionType  string `json:"actionType"`
	ActionCode  string `json:"actionCode"`
	Description string `json:"description"`
	URLLink     string `json:"urlLink"`
	URLLabel    string `json:"urlLabel,omitempty"`
}

func NewResponse(res eligibility.Result, now time.Time) EligibilityResponse {
	out := EligibilityResponse{
		ResponseID:           uuid.NewString(),
		Meta:                 Meta{LastUpdated: now.UTC().Format(time.RFC3339)},
		ProcessedSuggestions: make([]ProcessedSuggestion, 0, len(res.Conditions)),
	}
	for _, c := range res.Conditions {
		ps := ProcessedSuggestion{
			Condition:          c.Name,
			Status:             c.Status,
			StatusText:         c.StatusText,
			EligibilityCohorts: make([]EligibilityCohort, 0, len(c.CohortResults)),
			SuitabilityRules:   make([]SuitabilityRule, 0, len(c.SuitabilityRules)),
			Actions:            make([]Action, 0, len(c.Actions)),
		}
		for _, g := range c.CohortResults {
			if strings.TrimSpace(g.Description) == "" {
				continue
			}
			ps.EligibilityCohorts = append(ps.EligibilityCohorts, EligibilityCohort{CohortCode: g.CohortCode, CohortText: g.Description, CohortStatus: g.Status})
		}
		for _, r := range c.SuitabilityRules {
			ps.SuitabilityRules = append(ps.SuitabilityRules, SuitabilityRule{RuleType: r.RuleType, RuleCode: r.RuleCode, RuleText: r.RuleText})
		}
		for _, a := range c.Actions {
			ps.Actions = append(ps.Actions, Action{
				ActionType:  a.ActionType,
				ActionCode:  a.ActionCode,
				Description: a.Description,
				URLLink:     a.URLLink,
				URLLabel:    a.URLLabel,
			})
		}
		out.ProcessedSuggestions = append(out.ProcessedSuggestions, ps)
	}
	return out
}
