// Package query compiles a normalized search request into a single
// parameterized PostgreSQL statement. It performs no I/O.
package query

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ajjswift/gcselog-search-new/internal/domain/search/request"
	"github.com/ajjswift/gcselog-search-new/internal/domain/search/strategy"
)

// Projection is the fixed resource column list every strategy selects.
var Projection = []string{
	"id", "title", "description", "averagerating", "subject", "examboard", "level", "type",
}

// Compile errors.
var (
	ErrMissingVector = errors.New("semantic plan requires a query vector")
	ErrInvalidVector = errors.New("query vector contains non-finite values")
)

var (
	identRe    = regexp.MustCompile(`^[a-z_][a-z0-9_]*(\.[a-z_][a-z0-9_]*)?$`)
	tsConfigRe = regexp.MustCompile(`^[a-z_]+$`)
)

// Config holds the operator-controlled parts of the query text. None of it
// ever comes from a request.
type Config struct {
	Table            string
	TextSearchConfig string
	FuzzyThreshold   float64
}

// DefaultConfig returns the stock table and text-search settings.
func DefaultConfig() Config {
	return Config{
		Table:            "resources",
		TextSearchConfig: "english",
		FuzzyThreshold:   0.3,
	}
}

// Validate checks that every value is safe to splice into query text.
func (c *Config) Validate() error {
	if !identRe.MatchString(c.Table) {
		return fmt.Errorf("invalid table name %q", c.Table)
	}
	if !tsConfigRe.MatchString(c.TextSearchConfig) {
		return fmt.Errorf("invalid text search config %q", c.TextSearchConfig)
	}
	if c.FuzzyThreshold <= 0 || c.FuzzyThreshold > 1 {
		return fmt.Errorf("fuzzy threshold must be in (0, 1], got %v", c.FuzzyThreshold)
	}
	return nil
}

// Compiler turns requests into Plans. It holds no per-request state and is
// safe for concurrent use.
type Compiler struct {
	cfg       Config
	columns   string
	threshold string
	tsQuery   string
}

// NewCompiler validates cfg and creates a Compiler.
func NewCompiler(cfg Config) (*Compiler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("query compiler: %w", err)
	}
	return &Compiler{
		cfg:       cfg,
		columns:   strings.Join(Projection, ", "),
		threshold: strconv.FormatFloat(cfg.FuzzyThreshold, 'f', -1, 64),
		tsQuery:   "plainto_tsquery('" + cfg.TextSearchConfig + "', ",
	}, nil
}

// Config returns the compiler configuration.
func (c *Compiler) Config() Config { return c.cfg }

// Compile builds the plan for req on top of the filter predicates. vector is
// required for the semantic strategy and ignored otherwise.
func (c *Compiler) Compile(req *request.Request, preds PredicateSet, vector []float32) (Plan, error) {
	sort := req.Order().SQL()

	switch s := req.Strategy(); s {
	case strategy.Semantic:
		if len(vector) == 0 {
			return Plan{}, ErrMissingVector
		}
		if !finite(vector) {
			return Plan{}, ErrInvalidVector
		}
		bound, v := preds.Bind(VectorLiteral(vector))
		score := "1 - (embedding <=> " + v + "::vector) AS " + ScoreSimilarity
		tie := []string{ScoreSimilarity + " DESC", sort}
		return c.assemble(s, bound, req, []string{score}, bound.Where(), tie, ScoreSimilarity), nil

	case strategy.FullText:
		var rank, fuzzy string
		if req.FuzzyEnabled() {
			preds = preds.With([]any{req.Query(), req.Query()}, func(ph []string) string {
				rank = "ts_rank(search_vector, " + c.tsQuery + ph[0] + ")) AS " + ScoreRank
				fuzzy = "similarity(title, " + ph[1] + ") AS " + ScoreFuzzy
				return "(search_vector @@ " + c.tsQuery + ph[0] + ") OR similarity(title, " +
					ph[1] + ") > " + c.threshold + ")"
			})
		} else {
			preds = preds.With([]any{req.Query()}, func(ph []string) string {
				rank = "ts_rank(search_vector, " + c.tsQuery + ph[0] + ")) AS " + ScoreRank
				fuzzy = "0 AS " + ScoreFuzzy
				return "search_vector @@ " + c.tsQuery + ph[0] + ")"
			})
		}
		tie := []string{ScoreRank + " DESC", ScoreFuzzy + " DESC", sort}
		return c.assemble(s, preds, req, []string{rank, fuzzy}, preds.Where(), tie, ScoreRank), nil

	case strategy.FilterOnly:
		return c.assemble(s, preds, req, nil, preds.Where(), []string{sort}, ""), nil

	default:
		return Plan{}, fmt.Errorf("unknown strategy %q", s)
	}
}

// assemble appends limit and offset and joins the clauses.
func (c *Compiler) assemble(
	s strategy.Strategy,
	preds PredicateSet,
	req *request.Request,
	scores []string,
	where string,
	tieBreak []string,
	scoreColumn string,
) Plan {
	preds, limit := preds.Bind(req.Limit())
	preds, offset := preds.Bind(req.Offset())

	selectList := c.columns
	if len(scores) > 0 {
		selectList += ", " + strings.Join(scores, ", ")
	}

	clauses := []string{"SELECT", selectList, "FROM", c.cfg.Table}
	if where != "" {
		clauses = append(clauses, where)
	}
	clauses = append(clauses,
		"ORDER BY", strings.Join(tieBreak, ", "),
		"LIMIT", limit,
		"OFFSET", offset,
	)

	return Plan{
		text:        strings.Join(clauses, " "),
		params:      preds.Values(),
		strategy:    s,
		tieBreak:    tieBreak,
		scoreColumn: scoreColumn,
	}
}
