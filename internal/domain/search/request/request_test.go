package request

import (
	"errors"
	"net/url"
	"reflect"
	"strings"
	"testing"

	"github.com/ajjswift/gcselog-search-new/internal/domain"
	"github.com/ajjswift/gcselog-search-new/internal/domain/search/filter"
	"github.com/ajjswift/gcselog-search-new/internal/domain/search/order"
	"github.com/ajjswift/gcselog-search-new/internal/domain/search/strategy"
)

func TestParse_Defaults(t *testing.T) {
	r, err := Parse(Params{}, DefaultLimits())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Query() != "" {
		t.Errorf("Query() = %q", r.Query())
	}
	if !r.Filters().IsEmpty() {
		t.Errorf("Filters() should be empty")
	}
	if r.Limit() != DefaultLimit {
		t.Errorf("Limit() = %d, want %d", r.Limit(), DefaultLimit)
	}
	if r.Offset() != 0 {
		t.Errorf("Offset() = %d, want 0", r.Offset())
	}
	if r.Order() != order.Default() {
		t.Errorf("Order() = %v, want default", r.Order())
	}
	if !r.FuzzyEnabled() {
		t.Error("fuzzy should default to true")
	}
	if r.SemanticEnabled() {
		t.Error("semantic should default to false")
	}
	if r.Strategy() != strategy.FilterOnly {
		t.Errorf("Strategy() = %q, want filter", r.Strategy())
	}
}

func TestParse_AllFields(t *testing.T) {
	r, err := Parse(Params{
		ParamQuery:     "  quadratic equations ",
		ParamTags:      "gcse,revision",
		ParamSubject:   "Maths",
		ParamExamBoard: "AQA",
		ParamLevel:     "GCSE",
		ParamType:      "worksheet",
		ParamLimit:     "15",
		ParamOffset:    "30",
		ParamSort:      "title:asc",
		ParamFuzzy:     "false",
		ParamSemantic:  "true",
	}, DefaultLimits())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Query() != "quadratic equations" {
		t.Errorf("Query() = %q, want trimmed", r.Query())
	}
	want := filter.New([]string{"gcse", "revision"}, "Maths", "AQA", "GCSE", "worksheet")
	if !reflect.DeepEqual(r.Filters(), want) {
		t.Errorf("Filters() = %+v, want %+v", r.Filters(), want)
	}
	if r.Limit() != 15 || r.Offset() != 30 {
		t.Errorf("Limit/Offset = %d/%d, want 15/30", r.Limit(), r.Offset())
	}
	if r.Order().SQL() != "title ASC" {
		t.Errorf("Order().SQL() = %q", r.Order().SQL())
	}
	if r.FuzzyEnabled() || !r.SemanticEnabled() {
		t.Errorf("fuzzy=%v semantic=%v, want false/true", r.FuzzyEnabled(), r.SemanticEnabled())
	}
	if r.Strategy() != strategy.Semantic {
		t.Errorf("Strategy() = %q, want semantic", r.Strategy())
	}
}

func TestParse_Pagination(t *testing.T) {
	tests := []struct {
		name       string
		limit      string
		offset     string
		wantLimit  int
		wantOffset int
		wantErr    bool
	}{
		{"explicit", "10", "0", 10, 0, false},
		{"zero limit allowed", "0", "", 0, 0, false},
		{"clamped", "1000", "", MaxLimit, 0, false},
		{"at max", "100", "5", 100, 5, false},
		{"whitespace", " 7 ", " 3 ", 7, 3, false},
		{"non-numeric limit", "ten", "", 0, 0, true},
		{"negative limit", "-1", "", 0, 0, true},
		{"fractional limit", "2.5", "", 0, 0, true},
		{"non-numeric offset", "", "abc", 0, 0, true},
		{"negative offset", "", "-20", 0, 0, true},
		{"injection attempt", "10; DROP TABLE resources", "", 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Parse(Params{ParamLimit: tt.limit, ParamOffset: tt.offset}, DefaultLimits())
			if tt.wantErr {
				if !errors.Is(err, domain.ErrInvalidRequest) {
					t.Fatalf("expected ErrInvalidRequest, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if r.Limit() != tt.wantLimit || r.Offset() != tt.wantOffset {
				t.Errorf("Limit/Offset = %d/%d, want %d/%d",
					r.Limit(), r.Offset(), tt.wantLimit, tt.wantOffset)
			}
		})
	}
}

func TestParse_ConfiguredLimits(t *testing.T) {
	r, err := Parse(Params{}, Limits{DefaultLimit: 5, MaxLimit: 50})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Limit() != 5 {
		t.Errorf("Limit() = %d, want 5", r.Limit())
	}

	r, err = Parse(Params{ParamLimit: "75"}, Limits{MaxLimit: 50})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Limit() != 50 {
		t.Errorf("Limit() = %d, want 50", r.Limit())
	}

	// zero Limits fall back to package defaults
	r, err = Parse(Params{}, Limits{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Limit() != DefaultLimit {
		t.Errorf("Limit() = %d, want %d", r.Limit(), DefaultLimit)
	}
}

func TestParse_QueryTooLong(t *testing.T) {
	_, err := Parse(Params{ParamQuery: strings.Repeat("a", MaxQueryLength+1)}, DefaultLimits())
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}

	if _, err := Parse(Params{ParamQuery: strings.Repeat("a", MaxQueryLength)}, DefaultLimits()); err != nil {
		t.Fatalf("query at the cap should pass: %v", err)
	}
}

func TestParse_TooManyTags(t *testing.T) {
	tags := make([]string, filter.MaxTags+1)
	for i := range tags {
		tags[i] = "t" + strings.Repeat("x", i)
	}
	_, err := Parse(Params{ParamTags: strings.Join(tags, ",")}, DefaultLimits())
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestParse_RejectsMalformedText(t *testing.T) {
	tests := []struct {
		name  string
		param string
		value string
	}{
		{"invalid utf8 query", ParamQuery, "alg\xffebra"},
		{"nul in query", ParamQuery, "photo\x00synthesis"},
		{"invalid utf8 tag", ParamTags, "maths,gc\xfese"},
		{"nul in subject", ParamSubject, "Ma\x00ths"},
		{"invalid utf8 exam board", ParamExamBoard, "AQ\xc3"},
		{"nul in level", ParamLevel, "GCSE\x00"},
		{"invalid utf8 type", ParamType, "\xfeworksheet"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(Params{tt.param: tt.value}, DefaultLimits())
			var fe *domain.FieldError
			if !errors.As(err, &fe) {
				t.Fatalf("expected FieldError, got %v", err)
			}
			if fe.Field != tt.param {
				t.Errorf("field = %q, want %q", fe.Field, tt.param)
			}
			if !errors.Is(err, domain.ErrInvalidRequest) {
				t.Errorf("expected ErrInvalidRequest, got %v", err)
			}
		})
	}
}

func TestParse_AcceptsMultibyteText(t *testing.T) {
	req, err := Parse(Params{ParamQuery: "énergie cinétique", ParamSubject: "Français"}, DefaultLimits())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Query() != "énergie cinétique" {
		t.Errorf("query = %q", req.Query())
	}
}

func TestParse_UnknownSortField(t *testing.T) {
	_, err := Parse(Params{ParamSort: "price:asc"}, DefaultLimits())
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestParse_Flags(t *testing.T) {
	tests := []struct {
		fuzzy, semantic         string
		wantFuzzy, wantSemantic bool
	}{
		{"", "", true, false},
		{"true", "true", true, true},
		{"false", "false", false, false},
		{"0", "1", false, true},
		{"FALSE", "TRUE", false, true},
		{"nope", "yes", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.fuzzy+"/"+tt.semantic, func(t *testing.T) {
			r, err := Parse(Params{ParamFuzzy: tt.fuzzy, ParamSemantic: tt.semantic}, DefaultLimits())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if r.FuzzyEnabled() != tt.wantFuzzy {
				t.Errorf("FuzzyEnabled() = %v, want %v", r.FuzzyEnabled(), tt.wantFuzzy)
			}
			if r.SemanticEnabled() != tt.wantSemantic {
				t.Errorf("SemanticEnabled() = %v, want %v", r.SemanticEnabled(), tt.wantSemantic)
			}
		})
	}
}

func TestParse_WhitespaceQueryIsFilterOnly(t *testing.T) {
	r, err := Parse(Params{ParamQuery: "   ", ParamSemantic: "true"}, DefaultLimits())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Strategy() != strategy.FilterOnly {
		t.Errorf("Strategy() = %q, want filter", r.Strategy())
	}
}

func TestParseTags(t *testing.T) {
	tests := []struct {
		raw  string
		want []string
	}{
		{"", nil},
		{",,", nil},
		{"gcse", []string{"gcse"}},
		{"gcse,revision", []string{"gcse", "revision"}},
		{" gcse , revision ", []string{"gcse", "revision"}},
		{"gcse,,revision,", []string{"gcse", "revision"}},
		{"revision,gcse,revision", []string{"revision", "gcse"}},
		{"Gcse,gcse", []string{"Gcse", "gcse"}},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := ParseTags(tt.raw); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseTags(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestFromValues(t *testing.T) {
	v := url.Values{}
	v.Add("subject", "Maths")
	v.Add("subject", "Physics")
	v.Add("query", "")
	v["empty"] = nil

	p := FromValues(v)
	if p["subject"] != "Maths" {
		t.Errorf("subject = %q, want first value", p["subject"])
	}
	if _, ok := p["query"]; !ok {
		t.Error("empty values should still be present")
	}
	if _, ok := p["empty"]; ok {
		t.Error("keys with no values should be skipped")
	}
}
