package query

import (
	"strconv"
	"strings"

	"github.com/ajjswift/gcselog-search-new/internal/domain/search/filter"
)

// Filter columns.
const (
	ColumnTags      = "tags"
	ColumnSubject   = "subject"
	ColumnExamBoard = "examboard"
	ColumnLevel     = "level"
	ColumnType      = "type"
)

// PredicateSet is an immutable accumulator of positional predicates and their
// bound values. Every method returns a new set; the receiver is never changed.
// Next always equals the start cursor plus the number of bound values.
type PredicateSet struct {
	start     int
	fragments []string
	values    []any
}

// NewPredicateSet starts an empty set whose first placeholder is $start.
// Cursors below 1 are treated as 1.
func NewPredicateSet(start int) PredicateSet {
	if start < 1 {
		start = 1
	}
	return PredicateSet{start: start}
}

// BuildPredicates turns filters into a set: tags first as one AND-joined
// containment fragment, then subject, exam board, level and type equality.
func BuildPredicates(f filter.Filters, start int) PredicateSet {
	return NewPredicateSet(start).
		ContainsAll(ColumnTags, f.Tags()).
		Equal(ColumnSubject, f.Subject()).
		Equal(ColumnExamBoard, f.ExamBoard()).
		Equal(ColumnLevel, f.Level()).
		Equal(ColumnType, f.Type())
}

// Next returns the next free placeholder index.
func (p PredicateSet) Next() int { return p.start + len(p.values) }

// Len returns the number of bound values.
func (p PredicateSet) Len() int { return len(p.values) }

// IsEmpty reports whether no predicate fragment has been added.
func (p PredicateSet) IsEmpty() bool { return len(p.fragments) == 0 }

// Values returns a copy of the bound values in placeholder order.
func (p PredicateSet) Values() []any {
	out := make([]any, len(p.values))
	copy(out, p.values)
	return out
}

// Fragments returns a copy of the predicate fragments in append order.
func (p PredicateSet) Fragments() []string {
	out := make([]string, len(p.fragments))
	copy(out, p.fragments)
	return out
}

// Where renders "WHERE a AND b ..." or "" when no fragment exists.
func (p PredicateSet) Where() string {
	if len(p.fragments) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(p.fragments, " AND ")
}

// With binds values to consecutive placeholders and adds the fragment render
// builds from them. No values means no fragment.
func (p PredicateSet) With(values []any, render func(placeholders []string) string) PredicateSet {
	if len(values) == 0 {
		return p
	}
	ph := make([]string, len(values))
	for i := range values {
		ph[i] = placeholder(p.Next() + i)
	}
	next := p.extend(values)
	next.fragments = append(next.fragments, render(ph))
	return next
}

// Bind adds a value with no predicate fragment (vector, limit, offset) and
// returns its placeholder.
func (p PredicateSet) Bind(value any) (PredicateSet, string) {
	ph := placeholder(p.Next())
	return p.extend([]any{value}), ph
}

// Equal adds "column = $n". An empty value is no constraint.
func (p PredicateSet) Equal(column, value string) PredicateSet {
	if value == "" {
		return p
	}
	return p.With([]any{value}, func(ph []string) string {
		return column + " = " + ph[0]
	})
}

// ContainsAll adds one array-containment check per tag, AND-joined into a
// single parenthesized fragment.
func (p PredicateSet) ContainsAll(column string, tags []string) PredicateSet {
	if len(tags) == 0 {
		return p
	}
	values := make([]any, len(tags))
	for i, t := range tags {
		values[i] = t
	}
	return p.With(values, func(ph []string) string {
		parts := make([]string, len(ph))
		for i, x := range ph {
			parts[i] = column + " @> ARRAY[" + x + "]::text[]"
		}
		return "(" + strings.Join(parts, " AND ") + ")"
	})
}

// extend copies both slices so sets derived from the same parent never share
// backing arrays.
func (p PredicateSet) extend(values []any) PredicateSet {
	next := PredicateSet{
		start:     p.start,
		fragments: make([]string, len(p.fragments), len(p.fragments)+1),
		values:    make([]any, len(p.values), len(p.values)+len(values)),
	}
	copy(next.fragments, p.fragments)
	copy(next.values, p.values)
	next.values = append(next.values, values...)
	return next
}

func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}
