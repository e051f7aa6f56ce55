package operators

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Operator is the closed set of comparisons a rule can apply to a person attribute.
type Operator string

const (
	Equals        Operator = "="
	NotEquals     Operator = "!="
	Greater       Operator = ">"
	GreaterEquals Operator = ">="
	Less          Operator = "<"
	LessEquals    Operator = "<="

	Contains      Operator = "contains"
	NotContains   Operator = "not_contains"
	StartsWith    Operator = "starts_with"
	NotStartsWith Operator = "not_starts_with"
	EndsWith      Operator = "ends_with"

	In          Operator = "in"
	NotIn       Operator = "not_in"
	MemberOf    Operator = "MemberOf"
	NotMemberOf Operator = "NotaMemberOf"

	IsNull     Operator = "is_null"
	IsNotNull  Operator = "is_not_null"
	IsEmpty    Operator = "is_empty"
	IsNotEmpty Operator = "is_not_empty"
	IsTrue     Operator = "is_true"
	IsFalse    Operator = "is_false"

	Between    Operator = "between"
	NotBetween Operator = "not_between"

	DayLessEquals     Operator = "D<="
	DayLess           Operator = "D<"
	DayGreaterEquals  Operator = "D>="
	DayGreater        Operator = "D>"
	WeekLessEquals    Operator = "W<="
	WeekLess          Operator = "W<"
	WeekGreaterEquals Operator = "W>="
	WeekGreater       Operator = "W>"
	YearLessEquals    Operator = "Y<="
	YearLess          Operator = "Y<"
	YearGreaterEquals Operator = "Y>="
	YearGreater       Operator = "Y>"
)

type kind int

const (
	kindScalar kind = iota
	kindText
	kindSet
	kindPresence
	kindRange
	kindDate
)

type unit int

const (
	days unit = iota
	weeks
	years
)

type cmp int

const (
	eq cmp = iota
	ne
	gt
	ge
	lt
	le
)

type opDef struct {
	kind kind
	cmp  cmp
	unit unit
}

var vocabulary = map[Operator]opDef{
	Equals:        {kind: kindScalar, cmp: eq},
	NotEquals:     {kind: kindScalar, cmp: ne},
	Greater:       {kind: kindScalar, cmp: gt},
	GreaterEquals: {kind: kindScalar, cmp: ge},
	Less:          {kind: kindScalar, cmp: lt},
	LessEquals:    {kind: kindScalar, cmp: le},

	Contains:      {kind: kindText},
	NotContains:   {kind: kindText},
	StartsWith:    {kind: kindText},
	NotStartsWith: {kind: kindText},
	EndsWith:      {kind: kindText},

	In:          {kind: kindSet},
	NotIn:       {kind: kindSet},
	MemberOf:    {kind: kindSet},
	NotMemberOf: {kind: kindSet},

	IsNull:     {kind: kindPresence},
	IsNotNull:  {kind: kindPresence},
	IsEmpty:    {kind: kindPresence},
	IsNotEmpty: {kind: kindPresence},
	IsTrue:     {kind: kindPresence},
	IsFalse:    {kind: kindPresence},

	Between:    {kind: kindRange},
	NotBetween: {kind: kindRange},

	DayLessEquals:     {kind: kindDate, unit: days, cmp: le},
	DayLess:           {kind: kindDate, unit: days, cmp: lt},
	DayGreaterEquals:  {kind: kindDate, unit: days, cmp: ge},
	DayGreater:        {kind: kindDate, unit: days, cmp: gt},
	WeekLessEquals:    {kind: kindDate, unit: weeks, cmp: le},
	WeekLess:          {kind: kindDate, unit: weeks, cmp: lt},
	WeekGreaterEquals: {kind: kindDate, unit: weeks, cmp: ge},
	WeekGreater:       {kind: kindDate, unit: weeks, cmp: gt},
	YearLessEquals:    {kind: kindDate, unit: years, cmp: le},
	YearLess:          {kind: kindDate, unit: years, cmp: lt},
	YearGreaterEquals: {kind: kindDate, unit: years, cmp: ge},
	YearGreater:       {kind: kindDate, unit: years, cmp: gt},
}

func (o Operator) Valid() bool {
	_, ok := vocabulary[o]
	return ok
}

func (o *Operator) UnmarshalText(b []byte) error {
	op := Operator(b)
	if !op.Valid() {
		return fmt.Errorf("unknown operator %q", string(b))
	}
	*o = op
	return nil
}

var (
	itemDefaultPattern = regexp.MustCompile(`^([^\[]+)\[\[NVL:([^\]]+)\]\]$`)
	offsetPattern      = regexp.MustCompile(`^([^\[]+)\[\[OFFSET:(\d{8})\]\]$`)
	intLike            = regexp.MustCompile(`^-?\d+$`)
)

// Matcher is an operator bound to a rule comparator.
type Matcher struct {
	op          Operator
	def         opDef
	value       string
	itemDefault *string

	low, high int
	amount    int
	offset    *time.Time
}

// New compiles op against comparator, splitting off the [[NVL:x]] item default
// and, for date operators, the [[OFFSET:YYYYMMDD]] base date.
func New(op Operator, comparator string) (Matcher, error) {
	sp, ok := vocabulary[op]
	if !ok {
		return Matcher{}, fmt.Errorf("unknown operator %q", op)
	}
	m := Matcher{op: op, def: sp, value: comparator}
	if g := itemDefaultPattern.FindStringSubmatch(m.value); g != nil {
		m.value = g[1]
		def := g[2]
		m.itemDefault = &def
	}

	switch sp.kind {
	case kindRange:
		lo, hi, found := strings.Cut(m.value, ",")
		if !found {
			return Matcher{}, fmt.Errorf("operator %s: comparator %q is not a low,high pair", op, comparator)
		}
		a, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return Matcher{}, fmt.Errorf("operator %s: %w", op, err)
		}
		b, err := strconv.Atoi(strings.TrimSpace(hi))
		if err != nil {
			return Matcher{}, fmt.Errorf("operator %s: %w", op, err)
		}
		m.low, m.high = min(a, b), max(a, b)
	case kindDate:
		if g := offsetPattern.FindStringSubmatch(m.value); g != nil {
			t, err := time.Parse("20060102", g[2])
			if err != nil {
				return Matcher{}, fmt.Errorf("operator %s: offset %q: %w", op, g[2], err)
			}
			m.value = g[1]
			m.offset = &t
		}
		n, err := strconv.Atoi(strings.TrimSpace(m.value))
		if err != nil {
			return Matcher{}, fmt.Errorf("operator %s: comparator %q is not a whole number: %w", op, comparator, err)
		}
		m.amount = n
	}
	return m, nil
}

// Match reports whether item satisfies the operator. A nil item means the
// attribute is absent from the person's data.
func (m Matcher) Match(item any, asOf time.Time) bool {
	switch m.def.kind {
	case kindScalar:
		return m.scalar(m.withDefault(item))
	case kindText:
		return m.text(m.withDefault(item))
	case kindSet:
		items := splitSet(Text(m.withDefault(item)))
		for c := range splitSet(m.value) {
			if _, ok := items[c]; ok {
				return m.op == In || m.op == MemberOf
			}
		}
		return m.op == NotIn || m.op == NotMemberOf
	case kindPresence:
		return m.presence(item)
	case kindRange:
		v := m.withDefault(item)
		if v == nil || Text(v) == "" {
			return false
		}
		n, err := strconv.Atoi(Text(v))
		if err != nil {
			return false
		}
		inside := m.low <= n && n <= m.high
		if m.op == NotBetween {
			return !inside
		}
		return inside
	case kindDate:
		return m.date(m.withDefault(item), asOf)
	}
	return false
}

func (m Matcher) withDefault(item any) any {
	if item == nil && m.itemDefault != nil {
		return *m.itemDefault
	}
	return item
}

func (m Matcher) scalar(item any) bool {
	if item == nil {
		// an absent attribute only ever satisfies !=
		return m.def.cmp == ne
	}
	s := Text(item)
	if s == "" {
		switch m.def.cmp {
		case eq:
			return m.value == ""
		case ne:
			return m.value != ""
		}
		return false
	}
	if intLike.MatchString(s) && intLike.MatchString(m.value) {
		a, errA := strconv.Atoi(s)
		b, errB := strconv.Atoi(m.value)
		if errA == nil && errB == nil {
			return compare(m.def.cmp, a, b)
		}
	}
	return compare(m.def.cmp, strings.Compare(s, m.value), 0)
}

func (m Matcher) text(item any) bool {
	s := Text(item)
	switch m.op {
	case Contains:
		return s != "" && strings.Contains(s, m.value)
	case NotContains:
		return !strings.Contains(s, m.value)
	case StartsWith:
		return strings.HasPrefix(s, m.value)
	case NotStartsWith:
		return !strings.HasPrefix(s, m.value)
	case EndsWith:
		return strings.HasSuffix(s, m.value)
	}
	return false
}

func (m Matcher) presence(item any) bool {
	switch m.op {
	case IsNull:
		return item == nil || Text(item) == ""
	case IsNotNull:
		return item != nil && Text(item) != ""
	case IsEmpty:
		return empty(item)
	case IsNotEmpty:
		return !empty(item)
	case IsTrue:
		b, ok := item.(bool)
		return ok && b
	case IsFalse:
		b, ok := item.(bool)
		return ok && !b
	}
	return false
}

func (m Matcher) date(item any, asOf time.Time) bool {
	s := Text(item)
	if s == "" {
		return false
	}
	attr, err := time.Parse("20060102", s)
	if err != nil {
		return false
	}
	base := Day(asOf)
	if m.offset != nil {
		base = *m.offset
	}
	var cutoff time.Time
	switch m.def.unit {
	case days:
		cutoff = base.AddDate(0, 0, m.amount)
	case weeks:
		cutoff = base.AddDate(0, 0, 7*m.amount)
	case years:
		cutoff = addYears(base, m.amount)
	}
	return compare(m.def.cmp, attr.Compare(cutoff), 0)
}

func compare(c cmp, a, b int) bool {
	switch c {
	case eq:
		return a == b
	case ne:
		return a != b
	case gt:
		return a > b
	case ge:
		return a >= b
	case lt:
		return a < b
	case le:
		return a <= b
	}
	return false
}

// addYears clamps 29 February to the 28th in non-leap target years.
func addYears(t time.Time, n int) time.Time {
	out := t.AddDate(n, 0, 0)
	if out.Month() != t.Month() {
		out = out.AddDate(0, 0, -out.Day())
	}
	return out
}

func splitSet(s string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, p := range strings.Split(s, ",") {
		out[p] = struct{}{}
	}
	return out
}

func empty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case bool:
		return !x
	case int:
		return x == 0
	case int64:
		return x == 0
	case float64:
		return x == 0
	case []any:
		return len(x) == 0
	case map[string]any:
		return len(x) == 0
	}
	return false
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Text renders a stored attribute value the way rules and tokens compare it.
func Text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return x.Format("20060102")
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}
