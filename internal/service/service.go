package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"eligibility-signposting/internal/eligibility"
	"eligibility-signposting/internal/engine"
	"eligibility-signposting/internal/observability"
	"eligibility-signposting/internal/person"
	"eligibility-signposting/internal/storage"
)

var (
	ErrUnknownPerson     = errors.New("unknown person")
	ErrInvalidQueryParam = errors.New("invalid query parameter")
)

// QueryParamError names the query parameter that failed validation.
type QueryParamError struct {
	Param string
	Value string
}

func (e *QueryParamError) Error() string {
	return fmt.Sprintf("%s: %s=%q", ErrInvalidQueryParam, e.Param, e.Value)
}

func (e *QueryParamError) Is(target error) bool { return target == ErrInvalidQueryParam }

type PersonRepo interface {
	GetEligibilityData(ctx context.Context, id string) (person.Person, error)
}

type Service struct {
	persons   PersonRepo
	campaigns engine.CampaignSource
	calc      *engine.Calculator
	now       func() time.Time
}

func New(persons PersonRepo, campaigns engine.CampaignSource, calc *engine.Calculator) *Service {
	return &Service{persons: persons, campaigns: campaigns, calc: calc, now: time.Now}
}

// WithClock overrides the evaluation date source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// GetEligibilityStatus evaluates id against the current campaigns.
func (s *Service) GetEligibilityStatus(ctx context.Context, id string, q eligibility.Query) (eligibility.Result, error) {
	p, err := s.persons.GetEligibilityData(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return eligibility.Result{}, fmt.Errorf("%w: %w", ErrUnknownPerson, err)
	}
	if err != nil {
		return eligibility.Result{}, fmt.Errorf("load person: %w", err)
	}

	configs, err := s.campaigns.LoadCampaignConfigs(ctx)
	if err != nil {
		return eligibility.Result{}, fmt.Errorf("load campaigns: %w", err)
	}

	res, err := s.calc.Evaluate(p, configs, q, s.now().UTC())
	if err != nil {
		return eligibility.Result{}, err
	}
	for _, c := range res.Conditions {
		observability.ConditionStatus.WithLabelValues(c.Name, c.Status.String()).Inc()
	}
	log.Debug().Int("conditions", len(res.Conditions)).Msg("eligibility evaluated")
	return res, nil
}

var (
	conditionPattern      = regexp.MustCompile(`(?i)^\s*[a-z0-9]+\s*$`)
	categoryPattern       = regexp.MustCompile(`(?i)^\s*(VACCINATIONS|SCREENING|ALL)\s*$`)
	includeActionsPattern = regexp.MustCompile(`(?i)^\s*([YN])\s*$`)
)

// ParseQuery validates raw query parameters. Empty values take the defaults:
// all conditions, all categories, actions included.
func ParseQuery(includeActions, conditions, category string) (eligibility.Query, error) {
	if conditions == "" {
		conditions = engine.AllConditions
	}
	if category == "" {
		category = string(eligibility.CategoryAll)
	}
	if includeActions == "" {
		includeActions = "Y"
	}

	q := eligibility.Query{}
	for _, c := range strings.Split(conditions, ",") {
		if !conditionPattern.MatchString(c) {
			return eligibility.Query{}, &QueryParamError{Param: "conditions", Value: c}
		}
		q.Conditions = append(q.Conditions, strings.ToUpper(strings.TrimSpace(c)))
	}

	m := categoryPattern.FindStringSubmatch(category)
	if m == nil {
		return eligibility.Query{}, &QueryParamError{Param: "category", Value: category}
	}
	q.Category = eligibility.Category(strings.ToUpper(m[1]))

	m = includeActionsPattern.FindStringSubmatch(includeActions)
	if m == nil {
		return eligibility.Query{}, &QueryParamError{Param: "includeActions", Value: includeActions}
	}
	q.IncludeActions = strings.EqualFold(m[1], "Y")
	return q, nil
}
