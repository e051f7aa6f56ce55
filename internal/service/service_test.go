package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eligibility-signposting/internal/campaign"
	"eligibility-signposting/internal/derived"
	"eligibility-signposting/internal/eligibility"
	"eligibility-signposting/internal/engine"
	"eligibility-signposting/internal/person"
	"eligibility-signposting/internal/storage"
)

type mockPersons struct {
	p   person.Person
	err error
}

func (m mockPersons) GetEligibilityData(context.Context, string) (person.Person, error) {
	return m.p, m.err
}

type mockCampaigns struct {
	configs []campaign.CampaignConfig
	err     error
}

func (m mockCampaigns) LoadCampaignConfigs(context.Context) ([]campaign.CampaignConfig, error) {
	return m.configs, m.err
}

func fluCampaign() campaign.CampaignConfig {
	return campaign.CampaignConfig{
		ID: "FLU_2025", Type: campaign.Vaccination, Target: "FLU",
		StartDate: campaign.MustDate("20250101"), EndDate: campaign.MustDate("20251231"),
		Iterations: []campaign.Iteration{{
			ID:               "FLU_IT1",
			IterationDate:    campaign.MustDate("20250101"),
			IterationCohorts: []campaign.IterationCohort{{CohortLabel: campaign.MagicCohort, CohortGroup: "all"}},
		}},
	}
}

func TestParseQuery(t *testing.T) {
	tests := []struct {
		name           string
		includeActions string
		conditions     string
		category       string
		want           eligibility.Query
		wantParam      string
	}{
		{
			name: "defaults",
			want: eligibility.Query{IncludeActions: true, Conditions: []string{"ALL"}, Category: eligibility.CategoryAll},
		},
		{
			name:           "explicit values are normalised",
			includeActions: " n ",
			conditions:     "flu, rsv ",
			category:       "vaccinations",
			want:           eligibility.Query{IncludeActions: false, Conditions: []string{"FLU", "RSV"}, Category: eligibility.CategoryVaccinations},
		},
		{name: "punctuation in condition", conditions: "FLU;RSV", wantParam: "conditions"},
		{name: "empty condition in list", conditions: "FLU,,RSV", wantParam: "conditions"},
		{name: "unknown category", category: "TRAVEL", wantParam: "category"},
		{name: "bad includeActions", includeActions: "yes", wantParam: "includeActions"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseQuery(tt.includeActions, tt.conditions, tt.category)
			if tt.wantParam != "" {
				require.ErrorIs(t, err, ErrInvalidQueryParam)
				var qe *QueryParamError
				require.True(t, errors.As(err, &qe))
				assert.Equal(t, tt.wantParam, qe.Param)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetEligibilityStatus(t *testing.T) {
	known := person.Person{{"ATTRIBUTE_TYPE": "PERSON", "NHS_NUMBER": "9990000001"}}
	clock := func() time.Time { return time.Date(2025, 4, 25, 0, 0, 0, 0, time.UTC) }
	calc := engine.NewCalculator(derived.Default(), zerolog.Nop())
	q := eligibility.Query{IncludeActions: true, Conditions: []string{engine.AllConditions}, Category: eligibility.CategoryAll}

	tests := []struct {
		name      string
		persons   mockPersons
		campaigns mockCampaigns
		wantErr   error
		wantConds int
	}{
		{"evaluates known person", mockPersons{p: known}, mockCampaigns{configs: []campaign.CampaignConfig{fluCampaign()}}, nil, 1},
		{"unknown person", mockPersons{err: storage.ErrNotFound}, mockCampaigns{}, ErrUnknownPerson, 0},
		{"no campaigns", mockPersons{p: known}, mockCampaigns{}, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := New(tt.persons, tt.campaigns, calc).WithClock(clock)
			res, err := svc.GetEligibilityStatus(context.Background(), "9990000001", q)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, res.Conditions, tt.wantConds)
		})
	}

	t.Run("repository failures are not unknown person", func(t *testing.T) {
		svc := New(mockPersons{err: errors.New("connection reset")}, mockCampaigns{}, calc)
		_, err := svc.GetEligibilityStatus(context.Background(), "9990000001", q)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrUnknownPerson)
	})

	t.Run("campaign source failure", func(t *testing.T) {
		svc := New(mockPersons{p: known}, mockCampaigns{err: errors.New("db down")}, calc)
		_, err := svc.GetEligibilityStatus(context.Background(), "9990000001", q)
		assert.Error(t, err)
	})
}
