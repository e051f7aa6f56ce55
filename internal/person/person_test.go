package person

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCohorts(t *testing.T) {
	tests := []struct {
		name   string
		person Person
		want   []string
	}{
		{
			name:   "no cohorts record",
			person: Person{{AttributeTypeKey: TypePerson, "POSTCODE": "SW1A 1AA"}},
			want:   nil,
		},
		{
			name: "labels from memberships",
			person: Person{
				{AttributeTypeKey: TypePerson},
				{AttributeTypeKey: TypeCohorts, "COHORT_MEMBERSHIPS": []any{
					map[string]any{"COHORT_LABEL": "rsv_75_rolling", "DATE_JOINED": "20250101"},
					map[string]any{"COHORT_LABEL": ""},
					map[string]any{"DATE_JOINED": "20250101"},
					map[string]any{"COHORT_LABEL": "flu_65"},
				}},
			},
			want: []string{"flu_65", "rsv_75_rolling"},
		},
		{
			name: "only first cohorts record is read",
			person: Person{
				{AttributeTypeKey: TypeCohorts, "COHORT_MEMBERSHIPS": []map[string]any{{"COHORT_LABEL": "a"}}},
				{AttributeTypeKey: TypeCohorts, "COHORT_MEMBERSHIPS": []map[string]any{{"COHORT_LABEL": "b"}}},
			},
			want: []string{"a"},
		},
		{
			name:   "memberships missing",
			person: Person{{AttributeTypeKey: TypeCohorts}},
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Cohorts(tt.person)
			assert.Len(t, got, len(tt.want))
			for _, l := range tt.want {
				assert.Contains(t, got, l)
			}
		})
	}
}

func TestCohortList_Sorted(t *testing.T) {
	p := Person{{AttributeTypeKey: TypeCohorts, "COHORT_MEMBERSHIPS": []any{
		map[string]any{"COHORT_LABEL": "rsv_80"},
		map[string]any{"COHORT_LABEL": "covid_care_home"},
	}}}
	assert.Equal(t, "covid_care_home,rsv_80", CohortList(p))
}

func TestRecord(t *testing.T) {
	p := Person{
		{AttributeTypeKey: TypePerson, "AGE": "80"},
		{AttributeTypeKey: "RSV", "LAST_SUCCESSFUL_DATE": "20240101"},
	}
	rec, ok := p.Record("RSV")
	assert.True(t, ok)
	assert.Equal(t, "20240101", rec["LAST_SUCCESSFUL_DATE"])

	_, ok = p.Record("FLU")
	assert.False(t, ok)
	assert.Contains(t, p.Types(), TypePerson)
}
