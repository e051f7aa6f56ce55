package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

const spineCodingSystem = "https://fhir.nhs.uk/STU3/ValueSet/Spine-ErrorOrWarningCode-1"

// OperationOutcome is the FHIR shaped error body.
type OperationOutcome struct {
	ResourceType string  `json:"resourceType"`
	ID           string  `json:"id"`
	Meta         Meta    `json:"meta"`
	Issue        []Issue `json:"issue"`
}

type Issue struct {
	Severity    string       `json:"severity"`
	Code        string       `json:"code"`
	Diagnostics string       `json:"diagnostics"`
	Location    []string     `json:"location,omitempty"`
	Details     IssueDetails `json:"details"`
}

type IssueDetails struct {
	Coding []Coding `json:"coding"`
}

type Coding struct {
	System  string `json:"system"`
	Code    string `json:"code"`
	Display string `json:"display"`
}

// apiError is one kind of error response.
type apiError struct {
	status    int
	issueCode string
	spineCode string
	display   string
}

var (
	errInvalidParameter = apiError{http.StatusBadRequest, "value", "INVALID_PARAMETER", "The given conditions were not in the expected format."}
	errInvalidCategory  = apiError{http.StatusUnprocessableEntity, "value", "INVALID_PARAMETER", "The supplied category was not recognised by the API."}
	errInvalidValue     = apiError{http.StatusUnprocessableEntity, "value", "INVALID_PARAMETER", "The supplied value was not recognised by the API."}
	errAccessDenied     = apiError{http.StatusForbidden, "forbidden", "ACCESS_DENIED", "Access has been denied to process this request."}
	errNotFound         = apiError{http.StatusNotFound, "processing", "REFERENCE_NOT_FOUND", "The given NHS number was not found in our datasets. This could be because the number is incorrect or some other reason we cannot process that number."}
	errInternal         = apiError{http.StatusInternalServerError, "processing", "INTERNAL_SERVER_ERROR", "An unexpected internal server error occurred."}
)

func (e apiError) write(w http.ResponseWriter, diagnostics, location string, now time.Time) {
	issue := Issue{
		Severity:    "error",
		Code:        e.issueCode,
		Diagnostics: diagnostics,
		Details:     IssueDetails{Coding: []Coding{{System: spineCodingSystem, Code: e.spineCode, Display: e.display}}},
	}
	if location != "" {
		issue.Location = []string{"parameters/" + location}
	}
	writeJSON(w, e.status, OperationOutcome{
		ResourceType: "OperationOutcome",
		ID:           uuid.NewString(),
		Meta:         Meta{LastUpdated: now.UTC().Format(time.RFC3339)},
		Issue:        []Issue{issue},
	}, fhirContentType)
}
