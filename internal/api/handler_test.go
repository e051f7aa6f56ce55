package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eligibility-signposting/internal/campaign"
	"eligibility-signposting/internal/eligibility"
	"eligibility-signposting/internal/service"
	"eligibility-signposting/internal/storage"
)

type MockService struct {
	res eligibility.Result
	err error

	gotID    string
	gotQuery eligibility.Query
}

func (m *MockService) GetEligibilityStatus(_ context.Context, id string, q eligibility.Query) (eligibility.Result, error) {
	m.gotID, m.gotQuery = id, q
	return m.res, m.err
}

var rsvResult = eligibility.Result{Conditions: []eligibility.Condition{{
	Name:       "RSV",
	Status:     eligibility.NotActionable,
	StatusText: "You should have the RSV vaccine",
	CohortResults: []eligibility.CohortGroupResult{
		{CohortCode: "rsv_age", Status: eligibility.NotActionable, Description: "You are aged 75 to 79"},
	},
	SuitabilityRules: []eligibility.Reason{
		{RuleType: campaign.RuleSuppression, RuleName: "Leeds", RuleCode: "LEEDS", RuleText: "Not yet in your area"},
	},
	Actions: []eligibility.SuggestedAction{
		{ActionType: "InfoText", ActionCode: "ContactGP", Description: "Speak to your GP"},
	},
}}}

func newTestRouter(svc EligibilityService) http.Handler {
	h := NewEligibilityHandler(svc)
	h.now = func() time.Time { return time.Date(2025, 4, 25, 10, 0, 0, 0, time.UTC) }
	return Router(h, time.Second)
}

func TestPatientCheck_Scenarios(t *testing.T) {
	tests := []struct {
		name       string
		svc        *MockService
		url        string
		header     map[string]string
		wantStatus int
		wantIssue  string
		wantLoc    []string
	}{
		{"ok", &MockService{res: rsvResult}, "/patient-check/9990000001", nil, http.StatusOK, "", nil},
		{"matching header", &MockService{res: rsvResult}, "/patient-check/9990000001", map[string]string{NHSNumberHeader: "9990000001"}, http.StatusOK, "", nil},
		{"mismatched header", &MockService{}, "/patient-check/9990000001", map[string]string{NHSNumberHeader: "9990000002"}, http.StatusForbidden, "ACCESS_DENIED", nil},
		{"missing id", &MockService{}, "/patient-check/", nil, http.StatusForbidden, "ACCESS_DENIED", nil},
		{"bad conditions", &MockService{}, "/patient-check/9990000001?conditions=FLU;RSV", nil, http.StatusBadRequest, "INVALID_PARAMETER", []string{"parameters/conditions"}},
		{"escaped semicolon conditions", &MockService{}, "/patient-check/9990000001?conditions=FLU%3BRSV", nil, http.StatusBadRequest, "INVALID_PARAMETER", []string{"parameters/conditions"}},
		{"semicolon in category", &MockService{}, "/patient-check/9990000001?conditions=RSV&category=VACCINATIONS;X", nil, http.StatusUnprocessableEntity, "INVALID_PARAMETER", []string{"parameters/category"}},
		{"bad category", &MockService{}, "/patient-check/9990000001?category=TRAVEL", nil, http.StatusUnprocessableEntity, "INVALID_PARAMETER", []string{"parameters/category"}},
		{"bad includeActions", &MockService{}, "/patient-check/9990000001?includeActions=maybe", nil, http.StatusUnprocessableEntity, "INVALID_PARAMETER", []string{"parameters/includeActions"}},
		{"unknown person", &MockService{err: fmt.Errorf("%w: %w", service.ErrUnknownPerson, storage.ErrNotFound)}, "/patient-check/9990000001", nil, http.StatusNotFound, "REFERENCE_NOT_FOUND", nil},
		{"internal error", &MockService{err: errors.New("db down")}, "/patient-check/9990000001", nil, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			newTestRouter(tt.svc).ServeHTTP(w, req)

			require.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				return
			}

			assert.Equal(t, fhirContentType, w.Header().Get("Content-Type"))
			var oo OperationOutcome
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &oo))
			assert.Equal(t, "OperationOutcome", oo.ResourceType)
			require.Len(t, oo.Issue, 1)
			assert.Equal(t, tt.wantIssue, oo.Issue[0].Details.Coding[0].Code)
			assert.Equal(t, tt.wantLoc, oo.Issue[0].Location)
			assert.NotContains(t, oo.Issue[0].Diagnostics, "db down")
		})
	}
}

func TestPatientCheck_Body(t *testing.T) {
	svc := &MockService{res: rsvResult}
	req := httptest.NewRequest(http.MethodGet, "/patient-check/9990000001?conditions=rsv&category=VACCINATIONS&includeActions=Y", nil)
	w := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, "9990000001", svc.gotID)
	assert.Equal(t, eligibility.Query{IncludeActions: true, Conditions: []string{"RSV"}, Category: eligibility.CategoryVaccinations}, svc.gotQuery)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	_, err := uuid.Parse(body["responseId"].(string))
	assert.NoError(t, err)
	assert.Equal(t, "2025-04-25T10:00:00Z", body["meta"].(map[string]any)["lastUpdated"])

	var resp EligibilityResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.ProcessedSuggestions, 1)

	ps := resp.ProcessedSuggestions[0]
	assert.Equal(t, "RSV", ps.Condition)
	assert.Equal(t, "NotActionable", body["processedSuggestions"].([]any)[0].(map[string]any)["status"])
	assert.Equal(t, []EligibilityCohort{{CohortCode: "rsv_age", CohortText: "You are aged 75 to 79", CohortStatus: eligibility.NotActionable}}, ps.EligibilityCohorts)
	assert.Equal(t, []SuitabilityRule{{RuleType: campaign.RuleSuppression, RuleCode: "LEEDS", RuleText: "Not yet in your area"}}, ps.SuitabilityRules)
	assert.Equal(t, "ContactGP", ps.Actions[0].ActionCode)
}

func TestNewResponse_SkipsCohortsWithoutDescription(t *testing.T) {
	res := eligibility.Result{Conditions: []eligibility.Condition{{
		Name:   "RSV",
		Status: eligibility.NotEligible,
		CohortResults: []eligibility.CohortGroupResult{
			{CohortCode: "rsv_age", Status: eligibility.NotEligible},
			{CohortCode: "rsv_catchup", Status: eligibility.NotEligible, Description: "You are not aged 80 or over"},
			{CohortCode: "rsv_care_home", Status: eligibility.NotEligible, Description: "  "},
		},
	}}}

	resp := NewResponse(res, time.Date(2025, 4, 25, 10, 0, 0, 0, time.UTC))
	require.Len(t, resp.ProcessedSuggestions, 1)
	assert.Equal(t, []EligibilityCohort{
		{CohortCode: "rsv_catchup", CohortText: "You are not aged 80 or over", CohortStatus: eligibility.NotEligible},
	}, resp.ProcessedSuggestions[0].EligibilityCohorts)

	body, err := json.Marshal(NewResponse(eligibility.Result{Conditions: []eligibility.Condition{{
		Name:          "RSV",
		Status:        eligibility.NotEligible,
		CohortResults: []eligibility.CohortGroupResult{{CohortCode: "rsv_age", Status: eligibility.NotEligible}},
	}}}, time.Now()))
	require.NoError(t, err)
	assert.Contains(t, string(body), `"eligibilityCohorts":[]`)
}

func TestRouter_Healthz(t *testing.T) {
	ts := httptest.NewServer(newTestRouter(&MockService{}))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestQueryValues(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantParam string
		wantValue string
	}{
		{"valid", "conditions=RSV,FLU&category=ALL", "", ""},
		{"semicolon", "conditions=FLU;RSV", "conditions", "FLU;RSV"},
		{"semicolon after valid pair", "includeActions=Y&category=ALL;x", "category", "ALL;x"},
		{"bad escape", "conditions=%zz", "conditions", "%zz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := queryValues(tt.raw)
			if tt.wantParam == "" {
				require.NoError(t, err)
				assert.Equal(t, "RSV,FLU", q.Get("conditions"))
				return
			}
			var qe *service.QueryParamError
			require.ErrorAs(t, err, &qe)
			assert.Equal(t, tt.wantParam, qe.Param)
			assert.Equal(t, tt.wantValue, qe.Value)
			assert.ErrorIs(t, err, service.ErrInvalidQueryParam)
		})
	}
}
