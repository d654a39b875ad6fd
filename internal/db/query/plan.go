package query

import (
	"github.com/ajjswift/gcselog-search-new/internal/domain/search/strategy"
)

// Ranking columns projected by the scoring strategies.
const (
	ScoreSimilarity = "similarity"
	ScoreRank       = "rank"
	ScoreFuzzy      = "fuzzy_score"
)

// Plan is a compiled, parameterized query. It is built once per request and
// never modified.
type Plan struct {
	text        string
	params      []any
	strategy    strategy.Strategy
	tieBreak    []string
	scoreColumn string
}

// Text returns the SQL text with $n placeholders.
func (p *Plan) Text() string { return p.text }

// Params returns a copy of the bound values in placeholder order.
func (p *Plan) Params() []any {
	out := make([]any, len(p.params))
	copy(out, p.params)
	return out
}

// Strategy returns the strategy the plan was compiled for.
func (p *Plan) Strategy() strategy.Strategy { return p.strategy }

// TieBreak returns the ORDER BY keys, most significant first.
func (p *Plan) TieBreak() []string {
	out := make([]string, len(p.tieBreak))
	copy(out, p.tieBreak)
	return out
}

// ScoreColumn names the projected column carrying the hit score, or "" when
// the strategy produces none.
func (p *Plan) ScoreColumn() string { return p.scoreColumn }
