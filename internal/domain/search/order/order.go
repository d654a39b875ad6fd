// Package order parses the caller-requested sort into a closed set of store columns.
package order

import (
	"fmt"
	"strings"

	"github.com/ajjswift/gcselog-search-new/internal/domain"
)

// Field is a sortable resource attribute.
type Field string

// Sortable attributes.
const (
	Subject       Field = "subject"
	ExamBoard     Field = "examboard"
	Level         Field = "level"
	Type          Field = "type"
	AverageRating Field = "averagerating"
	Title         Field = "title"
)

// columns maps each sortable attribute to its store column reference.
// Only values from this table ever reach query text.
var columns = map[Field]string{
	Subject:       "subject",
	ExamBoard:     "examboard",
	Level:         "level",
	Type:          "type",
	AverageRating: "averagerating",
	Title:         "title",
}

// Direction is the sort direction.
type Direction string

// Sort directions.
const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Order is a validated sort key.
type Order struct {
	field     Field
	direction Direction
}

// Default is averagerating descending.
func Default() Order {
	return Order{field: AverageRating, direction: Desc}
}

// New validates field against the allow-list.
func New(field Field, direction Direction) (Order, error) {
	if _, ok := columns[field]; !ok {
		return Order{}, domain.NewFieldError("sort", fmt.Sprintf("unsupported sort field %q", string(field)))
	}
	if direction != Asc {
		direction = Desc
	}
	return Order{field: field, direction: direction}, nil
}

// Parse reads "field[:direction]". The direction collapses to desc unless it is
// exactly "asc" or "desc". An empty field yields Default regardless of direction.
func Parse(raw string) (Order, error) {
	field, dir, _ := strings.Cut(raw, ":")
	if field == "" {
		return Default(), nil
	}
	return New(Field(field), Direction(dir))
}

// Field returns the sort attribute.
func (o Order) Field() Field { return o.field }

// Direction returns the sort direction.
func (o Order) Direction() Direction { return o.direction }

// String renders the order as "field:direction".
func (o Order) String() string { return string(o.field) + ":" + string(o.direction) }

// SQL renders the ORDER BY key, e.g. "averagerating DESC".
func (o Order) SQL() string {
	col, ok := columns[o.field]
	if !ok {
		// zero Order: fall back to the fixed default
		return "averagerating DESC"
	}
	if o.direction == Asc {
		return col + " ASC"
	}
	return col + " DESC"
}

// Fields lists the sortable attributes.
func Fields() []Field {
	return []Field{Subject, ExamBoard, Level, Type, AverageRating, Title}
}
