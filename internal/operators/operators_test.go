package operators

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var asOf = time.Date(2025, 4, 25, 15, 30, 0, 0, time.UTC)

func TestMatcher_Match(t *testing.T) {
	tests := []struct {
		name       string
		op         Operator
		comparator string
		item       any
		want       bool
	}{
		{"eq strings", Equals, "Y", "Y", true},
		{"eq ints ignore leading zeros", Equals, "7", "007", true},
		{"eq absent never matches", Equals, "Y", nil, false},
		{"ne absent matches", NotEquals, "Y", nil, true},
		{"eq empty item vs empty comparator", Equals, "", "", true},
		{"gt empty item never matches", Greater, "1", "", false},
		{"gt numeric", Greater, "9", "10", true},
		{"gt falls back to strings", Greater, "b", "a", false},
		{"lte numeric", LessEquals, "75", "75", true},
		{"nvl default used when absent", Equals, "N[[NVL:N]]", nil, true},
		{"nvl default ignored when present", Equals, "N[[NVL:N]]", "Y", false},
		{"contains", Contains, "SW1", "SW1A 1AA", true},
		{"contains absent", Contains, "SW1", nil, false},
		{"not contains", NotContains, "LS", "SW1A 1AA", true},
		{"starts with", StartsWith, "SW", "SW1A 1AA", true},
		{"not starts with", NotStartsWith, "SW", "LS1 4AP", true},
		{"ends with", EndsWith, "AA", "SW1A 1AA", true},
		{"in", In, "Q1,Q2", "Q2", true},
		{"not in", NotIn, "Q1,Q2", "Q3", true},
		{"member of any overlap", MemberOf, "rsv_75,rsv_80", "flu_65,rsv_80", true},
		{"not a member of", NotMemberOf, "rsv_75", "flu_65", true},
		{"is null absent", IsNull, "", nil, true},
		{"is null empty", IsNull, "", "", true},
		{"is not null", IsNotNull, "", "x", true},
		{"is empty absent", IsEmpty, "", nil, true},
		{"is empty empty list", IsEmpty, "", []any{}, true},
		{"is not empty", IsNotEmpty, "", "20240101", true},
		{"is true", IsTrue, "", true, true},
		{"is true rejects string", IsTrue, "", "true", false},
		{"is false", IsFalse, "", false, true},
		{"between inclusive", Between, "75,79", "79", true},
		{"between unordered bounds", Between, "79,75", "75", true},
		{"between absent", Between, "75,79", nil, false},
		{"not between", NotBetween, "75,79", "80", true},
		{"day lte today", DayLessEquals, "0", "20250425", true},
		{"day gt future", DayGreater, "0", "20250426", true},
		{"week gte", WeekGreaterEquals, "-1", "20250418", true},
		{"year lte age 75", YearLessEquals, "-75", "19500425", true},
		{"year lte too young", YearLessEquals, "-75", "19500426", false},
		{"offset replaces today", DayGreaterEquals, "0[[OFFSET:20250901]]", "20250901", true},
		{"date absent", DayLessEquals, "0", nil, false},
		{"date unparsable", DayLessEquals, "0", "not-a-date", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New(tt.op, tt.comparator)
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.Match(tt.item, asOf))
		})
	}
}

func TestNew_RejectsBadComparators(t *testing.T) {
	tests := []struct {
		name       string
		op         Operator
		comparator string
	}{
		{"unknown operator", Operator("~="), "x"},
		{"between without pair", Between, "75"},
		{"between not numeric", Between, "a,b"},
		{"date not numeric", DayLessEquals, "soon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.op, tt.comparator)
			assert.Error(t, err)
		})
	}
}

func TestOperator_UnmarshalText(t *testing.T) {
	var op Operator
	assert.NoError(t, op.UnmarshalText([]byte("Y>=")))
	assert.Equal(t, YearGreaterEquals, op)
	assert.Error(t, op.UnmarshalText([]byte("like")))
}

func TestAddYears_LeapDay(t *testing.T) {
	leap := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC), addYears(leap, 1))
	assert.Equal(t, time.Date(2028, 2, 29, 0, 0, 0, 0, time.UTC), addYears(leap, 4))
}

func TestText(t *testing.T) {
	assert.Equal(t, "", Text(nil))
	assert.Equal(t, "3", Text(float64(3)))
	assert.Equal(t, "2", Text(2))
	assert.Equal(t, "true", Text(true))
}
