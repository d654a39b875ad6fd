package request

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ajjswift/gcselog-search-new/internal/domain"
	"github.com/ajjswift/gcselog-search-new/internal/domain/search/filter"
	"github.com/ajjswift/gcselog-search-new/internal/domain/search/order"
	"github.com/ajjswift/gcselog-search-new/internal/domain/search/strategy"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length in bytes.
	MaxQueryLength = 4096
	DefaultLimit   = 20
	MaxLimit       = 100
)

// Raw parameter names accepted by Parse.
const (
	ParamQuery     = "query"
	ParamTags      = "tags"
	ParamSubject   = "subject"
	ParamExamBoard = "examBoard"
	ParamLevel     = "level"
	ParamType      = "type"
	ParamLimit     = "limit"
	ParamOffset    = "offset"
	ParamSort      = "sort"
	ParamFuzzy     = "fuzzy"
	ParamSemantic  = "semantic"
)

// Params is the raw, string-valued parameter mapping.
type Params map[string]string

// FromValues takes the first value of every key.
func FromValues(v url.Values) Params {
	p := make(Params, len(v))
	for k, vals := range v {
		if len(vals) > 0 {
			p[k] = vals[0]
		}
	}
	return p
}

// Limits bounds pagination and query size. Zero fields take the package defaults.
type Limits struct {
	DefaultLimit   int
	MaxLimit       int
	MaxQueryLength int
}

// DefaultLimits returns the package defaults.
func DefaultLimits() Limits {
	return Limits{DefaultLimit: DefaultLimit, MaxLimit: MaxLimit, MaxQueryLength: MaxQueryLength}
}

func (l Limits) withDefaults() Limits {
	if l.MaxLimit <= 0 {
		l.MaxLimit = MaxLimit
	}
	if l.DefaultLimit <= 0 {
		l.DefaultLimit = DefaultLimit
	}
	if l.DefaultLimit > l.MaxLimit {
		l.DefaultLimit = l.MaxLimit
	}
	if l.MaxQueryLength <= 0 {
		l.MaxQueryLength = MaxQueryLength
	}
	return l
}

// Request is a validated, immutable search request.
type Request struct {
	query    string
	filters  filter.Filters
	limit    int
	offset   int
	sort     order.Order
	fuzzy    bool
	semantic bool
}

// textParams are the parameters whose values reach the store as text.
var textParams = []string{ParamQuery, ParamTags, ParamSubject, ParamExamBoard, ParamLevel, ParamType}

// Parse normalizes raw parameters into a Request. The only failures are
// InvalidRequest: text that is not valid UTF-8 or holds a NUL byte, bad
// pagination, an over-long query, too many tags, or a sort field outside the
// allow-list.
func Parse(p Params, limits Limits) (Request, error) {
	limits = limits.withDefaults()

	for _, name := range textParams {
		if !validText(p[name]) {
			return Request{}, domain.NewFieldError(name, "must be valid UTF-8 text")
		}
	}

	query := strings.TrimSpace(p[ParamQuery])
	if len(query) > limits.MaxQueryLength {
		return Request{}, domain.NewFieldError(ParamQuery,
			fmt.Sprintf("too long (max %d bytes)", limits.MaxQueryLength))
	}

	tags := ParseTags(p[ParamTags])
	if len(tags) > filter.MaxTags {
		return Request{}, domain.NewFieldError(ParamTags,
			fmt.Sprintf("too many tags (max %d)", filter.MaxTags))
	}

	limit, err := parseCount(ParamLimit, p[ParamLimit], limits.DefaultLimit)
	if err != nil {
		return Request{}, err
	}
	if limit > limits.MaxLimit {
		limit = limits.MaxLimit
	}
	offset, err := parseCount(ParamOffset, p[ParamOffset], 0)
	if err != nil {
		return Request{}, err
	}

	sort, err := order.Parse(p[ParamSort])
	if err != nil {
		return Request{}, err
	}

	return Request{
		query: query,
		filters: filter.New(tags,
			p[ParamSubject], p[ParamExamBoard], p[ParamLevel], p[ParamType]),
		limit:    limit,
		offset:   offset,
		sort:     sort,
		fuzzy:    flag(p[ParamFuzzy], true),
		semantic: flag(p[ParamSemantic], false),
	}, nil
}

// ParseTags splits a comma-delimited tag list. Elements are trimmed, empty
// elements dropped and duplicates removed, keeping first-occurrence order.
func ParseTags(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		tag := strings.TrimSpace(part)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	if len(tags) == 0 {
		return nil
	}
	return tags
}

// validText rejects values PostgreSQL cannot store in a text parameter.
func validText(s string) bool {
	return utf8.ValidString(s) && strings.IndexByte(s, 0) < 0
}

// parseCount reads a non-negative integer; empty input yields def.
func parseCount(name, raw string, def int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewFieldError(name, "must be an integer")
	}
	if n < 0 {
		return 0, domain.NewFieldError(name, "must be non-negative")
	}
	return n, nil
}

// flag reads a boolean. Anything that is not a recognizable boolean keeps def.
func flag(raw string, def bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	return v
}

// Query returns the trimmed search text, possibly empty.
func (r *Request) Query() string { return r.query }

// Filters returns the exact-match filters.
func (r *Request) Filters() filter.Filters { return r.filters }

// Limit returns the page size.
func (r *Request) Limit() int { return r.limit }

// Offset returns the number of rows to skip.
func (r *Request) Offset() int { return r.offset }

// Order returns the caller's sort key.
func (r *Request) Order() order.Order { return r.sort }

// FuzzyEnabled reports whether trigram matching widens full-text search.
func (r *Request) FuzzyEnabled() bool { return r.fuzzy }

// SemanticEnabled reports whether the caller asked for vector search.
func (r *Request) SemanticEnabled() bool { return r.semantic }

// Strategy returns the query-construction path for this request.
func (r *Request) Strategy() strategy.Strategy {
	return strategy.Select(r.query, r.semantic)
}
