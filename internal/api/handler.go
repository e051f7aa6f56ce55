package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"eligibility-signposting/internal/eligibility"
	"eligibility-signposting/internal/observability"
	"eligibility-signposting/internal/service"
)

const (
	// NHSNumberHeader carries the caller's own identifier when the request
	// comes through NHS login.
	NHSNumberHeader = "nhs-login-nhs-number"

	fhirContentType = "application/fhir+json"
)

const notAuthorised = "You are not authorised to request information for the supplied NHS Number"

type EligibilityService interface {
	GetEligibilityStatus(ctx context.Context, id string, q eligibility.Query) (eligibility.Result, error)
}

type EligibilityHandler struct {
	Svc EligibilityService
	now func() time.Time
}

func NewEligibilityHandler(svc EligibilityService) *EligibilityHandler {
	return &EligibilityHandler{Svc: svc, now: time.Now}
}

func writeJSON(w http.ResponseWriter, status int, v any, contentType string) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *EligibilityHandler) PatientCheck(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	now := h.now()

	if id == "" {
		observability.RequestErrors.WithLabelValues("forbidden").Inc()
		errAccessDenied.write(w, notAuthorised, "", now)
		return
	}
	if hdr, ok := r.Header[http.CanonicalHeaderKey(NHSNumberHeader)]; ok && (len(hdr) == 0 || hdr[0] != id) {
		log.Warn().Str("request_id", middleware.GetReqID(r.Context())).Msg("NHS number mismatch")
		observability.RequestErrors.WithLabelValues("forbidden").Inc()
		errAccessDenied.write(w, notAuthorised, "", now)
		return
	}

	q, err := queryValues(r.URL.RawQuery)
	if err != nil {
		h.writeQueryError(w, err, now)
		return
	}
	query, err := service.ParseQuery(q.Get("includeActions"), q.Get("conditions"), q.Get("category"))
	if err != nil {
		h.writeQueryError(w, err, now)
		return
	}

	res, err := h.Svc.GetEligibilityStatus(r.Context(), id, query)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrUnknownPerson):
		observability.RequestErrors.WithLabelValues("not_found").Inc()
		errNotFound.write(w, fmt.Sprintf("NHS Number '%s' was not recognised by the Eligibility Signposting API", id), "", now)
		return
	default:
		log.Error().Err(err).Str("request_id", middleware.GetReqID(r.Context())).Msg("eligibility evaluation failed")
		observability.RequestErrors.WithLabelValues("internal").Inc()
		errInternal.write(w, "An unexpected error occurred.", "", now)
		return
	}

	writeJSON(w, http.StatusOK, NewResponse(res, now), "application/json")
}

func (h *EligibilityHandler) writeQueryError(w http.ResponseWriter, err error, now time.Time) {
	observability.RequestErrors.WithLabelValues("invalid_param").Inc()

	var qe *service.QueryParamError
	if !errors.As(err, &qe) {
		errInvalidParameter.write(w, err.Error(), "", now)
		return
	}
	log.Info().Str("param", qe.Param).Str("value", qe.Value).Msg("invalid query param")
	switch qe.Param {
	case "category":
		errInvalidCategory.write(w, fmt.Sprintf("%s is not a category that is supported by the API", qe.Value), qe.Param, now)
	case "includeActions":
		errInvalidValue.write(w, fmt.Sprintf("%s is not a value that is supported by the API", qe.Value), qe.Param, now)
	default:
		errInvalidParameter.write(w, fmt.Sprintf("%s should be a single or comma separated list of condition strings with no other punctuation or special characters", qe.Value), qe.Param, now)
	}
}

// queryValues parses the raw query, reporting the parameter whose pair could
// not be parsed (url.Values silently drops pairs containing ';').
func queryValues(raw string) (url.Values, error) {
	q, err := url.ParseQuery(raw)
	if err == nil {
		return q, nil
	}
	for _, pair := range strings.Split(raw, "&") {
		if _, perr := url.ParseQuery(pair); perr == nil {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		if k, uerr := url.QueryUnescape(key); uerr == nil {
			key = k
		}
		if v, uerr := url.QueryUnescape(value); uerr == nil {
			value = v
		}
		return nil, &service.QueryParamError{Param: key, Value: value}
	}
	return nil, &service.QueryParamError{Param: "conditions", Value: raw}
}
