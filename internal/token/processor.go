package token

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/ncruces/go-strftime"
	"github.com/rs/zerolog"

	"eligibility-signposting/internal/derived"
	"eligibility-signposting/internal/operators"
	"eligibility-signposting/internal/person"
)

const (
	LevelPerson = "PERSON"
	LevelTarget = "TARGET"
	LevelCohort = "COHORT"
)

// TargetAttributes are the stored target attributes a token may read directly.
var TargetAttributes = map[string]struct{}{
	"ATTRIBUTE_TYPE":              {},
	"VALID_DOSES_COUNT":           {},
	"INVALID_DOSES_COUNT":         {},
	"LAST_SUCCESSFUL_DATE":        {},
	"SUCCESSFUL_PROCEDURE_COUNT":  {},
	"LAST_VALID_DOSE_DATE":        {},
	"BOOKED_APPOINTMENT_DATE":     {},
	"BOOKED_APPOINTMENT_PROVIDER": {},
	"LAST_INVITE_DATE":            {},
	"LAST_INVITE_STATUS":          {},
	"NEXT_DOSE_DUE":               {},
}

// ApplyFormatting reads key from record and, when format is set, re-renders
// the stored YYYYMMDD value with it. A missing key yields "".
func ApplyFormatting(record any, key, format string) (string, error) {
	var (
		v  any
		ok bool
	)
	switch r := record.(type) {
	case person.Attributes:
		v, ok = r[key]
	case map[string]any:
		v, ok = r[key]
	case map[string]string:
		v, ok = r[key]
	default:
		return "", fmt.Errorf("%w: %T has no attributes", ErrInvalidTokenFormat, record)
	}
	if !ok || v == nil {
		return "", nil
	}
	raw := operators.Text(v)
	if format == "" {
		return raw, nil
	}
	t, err := time.Parse("20060102", raw)
	if err != nil {
		return "", fmt.Errorf("%w: %s=%q is not YYYYMMDD", ErrTokenValue, key, raw)
	}
	return strftime.Format(format, t), nil
}

// Processor resolves template tokens against a person's attribute records.
type Processor struct {
	registry *derived.Registry
	log      zerolog.Logger
}

func NewProcessor(registry *derived.Registry, logger zerolog.Logger) *Processor {
	return &Processor{registry: registry, log: logger}
}

// Resolve returns the value tok refers to. Missing records and attributes
// resolve to "".
func (p *Processor) Resolve(subject person.Person, tok Parsed) (string, error) {
	switch tok.AttributeLevel {
	case LevelPerson:
		rec, ok := subject.Record(person.TypePerson)
		if !ok {
			return "", nil
		}
		return ApplyFormatting(rec, tok.AttributeName, tok.Format)
	case LevelTarget:
		return p.resolveTarget(subject, tok)
	default:
		return "", nil
	}
}

func (p *Processor) resolveTarget(subject person.Person, tok Parsed) (string, error) {
	attr := tok.AttributeValue
	if attr == "" {
		return "", nil
	}

	h, src, ok, err := p.derivedFor(attr)
	if err != nil {
		return "", err
	}
	if ok {
		v, err := h.Compute(derived.Context{
			Person:    subject,
			Level:     tok.AttributeLevel,
			Condition: tok.AttributeName,
			Target:    attr,
			Source:    src,
			Format:    tok.Format,
		})
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrTokenValue, err)
		}
		return v, nil
	}

	if _, ok := TargetAttributes[attr]; !ok {
		p.log.Warn().Str("condition", tok.AttributeName).Str("attribute", attr).Msg("token names an unknown target attribute")
		return "", nil
	}
	rec, ok := subject.Record(tok.AttributeName)
	if !ok {
		return "", nil
	}
	return ApplyFormatting(rec, attr, tok.Format)
}

// DerivedAttributes maps target attributes that are computed rather than
// stored to the registry key of the handler computing them.
var DerivedAttributes = map[string]string{
	"NEXT_DOSE_DUE": derived.AddDaysKey,
}

// derivedFor finds the handler for attr, first through DerivedAttributes and
// then through whatever else has been registered.
func (p *Processor) derivedFor(attr string) (derived.Handler, string, bool, error) {
	if p.registry == nil {
		return nil, "", false, nil
	}
	if key, ok := DerivedAttributes[attr]; ok {
		h, err := p.registry.Handler(key)
		if err != nil {
			return nil, "", false, err
		}
		src, ok := h.SourceFor(attr)
		if !ok {
			src = attr
		}
		return h, src, true, nil
	}
	h, src, ok := p.registry.Lookup(attr)
	return h, src, ok, nil
}

var tokenPattern = regexp.MustCompile(`\[\[.*?\]\]`)

// Replace substitutes every token in text. Malformed tokens render as "";
// value errors and unknown derived values are returned.
func (p *Processor) Replace(subject person.Person, text string) (string, error) {
	var firstErr error
	out := tokenPattern.ReplaceAllStringFunc(text, func(raw string) string {
		if firstErr != nil {
			return ""
		}
		tok, err := Parse(raw)
		if err != nil {
			p.log.Warn().Err(err).Str("token", raw).Msg("unparsable token")
			return ""
		}
		v, err := p.Resolve(subject, tok)
		switch {
		case err == nil:
			return v
		case errors.Is(err, ErrInvalidTokenFormat):
			p.log.Warn().Err(err).Str("token", raw).Msg("unresolvable token")
			return ""
		default:
			firstErr = fmt.Errorf("token %s: %w", raw, err)
			return ""
		}
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}
