package campaign

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"eligibility-signposting/internal/operators"
)

type RuleType string

const (
	RuleFilter               RuleType = "F"
	RuleSuppression          RuleType = "S"
	RuleRedirect             RuleType = "R"
	RuleNotEligibleActions   RuleType = "X"
	RuleNotActionableActions RuleType = "Y"
)

func (t *RuleType) UnmarshalText(b []byte) error {
	switch v := RuleType(b); v {
	case RuleFilter, RuleSuppression, RuleRedirect, RuleNotEligibleActions, RuleNotActionableActions:
		*t = v
		return nil
	}
	return fmt.Errorf("unknown rule type %q", string(b))
}

type AttributeLevel string

const (
	LevelPerson AttributeLevel = "PERSON"
	LevelTarget AttributeLevel = "TARGET"
	LevelCohort AttributeLevel = "COHORT"
)

func (l *AttributeLevel) UnmarshalText(b []byte) error {
	switch v := AttributeLevel(b); v {
	case LevelPerson, LevelTarget, LevelCohort:
		*l = v
		return nil
	}
	return fmt.Errorf("unknown attribute level %q", string(b))
}

// Type is V for vaccination campaigns and S for screening.
type Type string

const (
	Vaccination Type = "V"
	Screening   Type = "S"
)

func (t *Type) UnmarshalText(b []byte) error {
	switch v := Type(b); v {
	case Vaccination, Screening:
		*t = v
		return nil
	}
	return fmt.Errorf("unknown campaign type %q", string(b))
}

// Flag decodes the "Y"/"N" switches used across campaign files. JSON booleans
// are accepted too.
type Flag bool

func (f *Flag) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*f = false
		return nil
	}
	var asBool bool
	if err := json.Unmarshal(b, &asBool); err == nil {
		*f = Flag(asBool)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("flag: %w", err)
	}
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "Y":
		*f = true
	case "N", "":
		*f = false
	default:
		return fmt.Errorf("invalid flag %q, want Y or N", s)
	}
	return nil
}

func (f Flag) MarshalJSON() ([]byte, error) {
	if f {
		return []byte(`"Y"`), nil
	}
	return []byte(`"N"`), nil
}

const dateLayout = "20060102"

var eightDigits = regexp.MustCompile(`^\d{8}$`)

// Date is a calendar day written as YYYYMMDD.
type Date struct{ time.Time }

func ParseDate(s string) (Date, error) {
	if !eightDigits.MatchString(s) {
		return Date{}, fmt.Errorf("invalid format: %s, must be YYYYMMDD with 8 digits", s)
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date value: %s: %w", s, err)
	}
	return Date{t}, nil
}

func MustDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d *Date) UnmarshalJSON(b []byte) error {
	parsed, err := ParseDate(strings.Trim(string(b), `"`))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d Date) String() string { return d.Format(dateLayout) }

// OnOrBefore compares at day granularity in UTC.
func (d Date) OnOrBefore(t time.Time) bool { return !d.Time.After(operators.Day(t)) }

func (d Date) OnOrAfter(t time.Time) bool { return !d.Time.Before(operators.Day(t)) }
