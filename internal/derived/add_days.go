package derived

import (
	"fmt"
	"time"

	"github.com/ncruces/go-strftime"

	"eligibility-signposting/internal/operators"
	"eligibility-signposting/internal/person"
)

const (
	AddDaysKey     = "ADD_DAYS"
	DefaultAddDays = 91
)

// AddDays derives a date a number of days after a stored date, e.g. the next
// dose due from the last successful one.
type AddDays struct {
	DefaultDays   int
	ConditionDays map[string]int
	Sources       map[string]string
}

func NewAddDays(defaultDays int, conditionDays map[string]int) *AddDays {
	if conditionDays == nil {
		conditionDays = map[string]int{}
	}
	return &AddDays{
		DefaultDays:   defaultDays,
		ConditionDays: conditionDays,
		Sources:       map[string]string{"NEXT_DOSE_DUE": "LAST_SUCCESSFUL_DATE"},
	}
}

func (h *AddDays) Key() string { return AddDaysKey }

func (h *AddDays) SourceFor(target string) (string, bool) {
	src, ok := h.Sources[target]
	return src, ok
}

// Days is the offset for condition: its override if set, else the default.
func (h *AddDays) Days(condition string) int {
	if d, ok := h.ConditionDays[condition]; ok {
		return d
	}
	return h.DefaultDays
}

func (h *AddDays) Compute(ctx Context) (string, error) {
	if ctx.Source == "" {
		return "", nil
	}
	recordType := ctx.Condition
	if ctx.Level == person.TypePerson || ctx.Level == "COHORT" {
		recordType = ctx.Level
	}
	rec, ok := ctx.Person.Record(recordType)
	if !ok {
		return "", nil
	}
	raw := operators.Text(rec[ctx.Source])
	if raw == "" {
		return "", nil
	}
	from, err := time.Parse("20060102", raw)
	if err != nil {
		return "", fmt.Errorf("%w: %s=%q", ErrInvalidSourceDate, ctx.Source, raw)
	}
	due := from.AddDate(0, 0, h.Days(ctx.Condition))
	if ctx.Format == "" {
		return due.Format("20060102"), nil
	}
	return strftime.Format(ctx.Format, due), nil
}
