package person

import (
	"sort"
	"strings"
)

const (
	AttributeTypeKey = "ATTRIBUTE_TYPE"

	TypePerson  = "PERSON"
	TypeCohorts = "COHORTS"

	cohortMembershipsKey = "COHORT_MEMBERSHIPS"
	cohortLabelKey       = "COHORT_LABEL"
)

// Attributes is one attribute record, tagged by its ATTRIBUTE_TYPE.
type Attributes map[string]any

func (a Attributes) Type() string {
	s, _ := a[AttributeTypeKey].(string)
	return s
}

// Person is the ordered attribute records held for one subject.
type Person []Attributes

// Record returns the first record tagged attributeType.
func (p Person) Record(attributeType string) (Attributes, bool) {
	for _, r := range p {
		if r.Type() == attributeType {
			return r, true
		}
	}
	return nil, false
}

// Types lists the attribute types present.
func (p Person) Types() map[string]struct{} {
	out := make(map[string]struct{}, len(p))
	for _, r := range p {
		out[r.Type()] = struct{}{}
	}
	return out
}

// Cohorts reads the cohort labels from the first COHORTS record. Later
// COHORTS records are not merged in.
func Cohorts(p Person) map[string]struct{} {
	out := map[string]struct{}{}
	rec, ok := p.Record(TypeCohorts)
	if !ok {
		return out
	}
	for _, m := range memberships(rec[cohortMembershipsKey]) {
		label, _ := m[cohortLabelKey].(string)
		if label != "" {
			out[label] = struct{}{}
		}
	}
	return out
}

// CohortList is Cohorts as a sorted comma separated string.
func CohortList(p Person) string {
	set := Cohorts(p)
	labels := make([]string, 0, len(set))
	for l := range set {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return strings.Join(labels, ",")
}

func memberships(v any) []map[string]any {
	switch xs := v.(type) {
	case []map[string]any:
		return xs
	case []Attributes:
		out := make([]map[string]any, len(xs))
		for i, x := range xs {
			out[i] = x
		}
		return out
	case []any:
		out := make([]map[string]any, 0, len(xs))
		for _, x := range xs {
			switch m := x.(type) {
			case map[string]any:
				out = append(out, m)
			case Attributes:
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}
