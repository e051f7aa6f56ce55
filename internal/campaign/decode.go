package campaign

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"eligibility-signposting/internal/operators"
)

var ErrInvalidConfig = errors.New("invalid campaign config")

type envelope struct {
	CampaignConfig *CampaignConfig `json:"CampaignConfig"`
}

// Decode reads one campaign config, either bare or wrapped in a
// {"CampaignConfig": {...}} envelope, and validates it.
func Decode(r io.Reader) (CampaignConfig, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return CampaignConfig{}, fmt.Errorf("read campaign config: %w", err)
	}
	return Unmarshal(raw)
}

func Unmarshal(raw []byte) (CampaignConfig, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return CampaignConfig{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	var cfg CampaignConfig
	if env.CampaignConfig != nil {
		cfg = *env.CampaignConfig
	} else {
		dec := json.NewDecoder(bytes.NewReader(raw))
		if err := dec.Decode(&cfg); err != nil {
			return CampaignConfig{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return CampaignConfig{}, err
	}
	return cfg, nil
}

// Validate checks the structural invariants evaluation relies on.
func (c CampaignConfig) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.ID == "" {
		add("campaign has no ID")
	}
	if strings.TrimSpace(c.Target) == "" {
		add("campaign %s has no target", c.ID)
	}
	if c.StartDate.After(c.EndDate.Time) {
		add("start date %s after end date %s", c.StartDate, c.EndDate)
	}
	if len(c.Iterations) == 0 {
		add("campaign %s has no iterations", c.ID)
	}

	seen := map[string]int{}
	for _, it := range c.Iterations {
		seen[it.IterationDate.String()]++
		for _, r := range it.IterationRules {
			if err := r.validate(); err != nil {
				add("iteration %s rule %q: %w", it.ID, r.Name, err)
			}
		}
	}
	for d, n := range seen {
		if n > 1 {
			add("%d iterations with iteration date %s in campaign %s", n, d, c.ID)
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

func (r IterationRule) validate() error {
	switch r.AttributeLevel {
	case LevelCohort:
		if r.AttributeName != "" && r.AttributeName != CohortLabelAttribute {
			return fmt.Errorf("COHORT rules may only read %s, got %q", CohortLabelAttribute, r.AttributeName)
		}
	case LevelTarget:
		if r.AttributeTarget == "" {
			return errors.New("TARGET rules need an AttributeTarget")
		}
		if r.AttributeName == "" {
			return errors.New("TARGET rules need an AttributeName")
		}
	case LevelPerson:
		if r.AttributeName == "" {
			return errors.New("PERSON rules need an AttributeName")
		}
	default:
		return fmt.Errorf("unknown attribute level %q", r.AttributeLevel)
	}
	if r.CohortLabel != "" && r.Type != RuleFilter && r.Type != RuleSuppression {
		return fmt.Errorf("CohortLabel is only valid on F and S rules, not %s", r.Type)
	}
	if _, err := operators.New(r.Operator, r.Comparator); err != nil {
		return err
	}
	return nil
}
