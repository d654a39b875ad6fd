package order

import (
	"errors"
	"strings"
	"testing"

	"github.com/ajjswift/gcselog-search-new/internal/domain"
)

func TestParse(t *testing.T) {
	tests := []struct {
		raw     string
		wantSQL string
	}{
		{"", "averagerating DESC"},
		{"title", "title DESC"},
		{"title:asc", "title ASC"},
		{"title:desc", "title DESC"},
		{"title:ASC", "title DESC"},
		{"title:sideways", "title DESC"},
		{"subject:asc", "subject ASC"},
		{"examboard:asc", "examboard ASC"},
		{"level:asc", "level ASC"},
		{"type:asc", "type ASC"},
		{"averagerating:asc", "averagerating ASC"},
		{":asc", "averagerating DESC"},
		{":", "averagerating DESC"},
		{"title:asc:extra", "title DESC"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			o, err := Parse(tt.raw)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if o.SQL() != tt.wantSQL {
				t.Errorf("SQL() = %q, want %q", o.SQL(), tt.wantSQL)
			}
		})
	}
}

func TestParse_RejectsUnknownField(t *testing.T) {
	for _, raw := range []string{
		"price",
		"Title",
		"title; DROP TABLE resources",
		"averagerating DESC, (SELECT 1)",
		"1",
	} {
		t.Run(raw, func(t *testing.T) {
			_, err := Parse(raw)
			if !errors.Is(err, domain.ErrInvalidRequest) {
				t.Fatalf("expected ErrInvalidRequest, got %v", err)
			}
			var fe *domain.FieldError
			if !errors.As(err, &fe) || fe.Field != "sort" {
				t.Errorf("expected FieldError on sort, got %v", err)
			}
		})
	}
}

func TestSQL_OnlyAllowListedColumns(t *testing.T) {
	for _, f := range Fields() {
		for _, d := range []Direction{Asc, Desc} {
			o, err := New(f, d)
			if err != nil {
				t.Fatalf("New(%q, %q): %v", f, d, err)
			}
			col, _, _ := strings.Cut(o.SQL(), " ")
			if col != columns[f] {
				t.Errorf("SQL() column = %q, want %q", col, columns[f])
			}
		}
	}
}

func TestZeroOrder_RendersDefault(t *testing.T) {
	var o Order
	if o.SQL() != Default().SQL() {
		t.Errorf("zero Order SQL() = %q, want %q", o.SQL(), Default().SQL())
	}
}

func TestString(t *testing.T) {
	if Default().String() != "averagerating:desc" {
		t.Errorf("String() = %q", Default().String())
	}
}
