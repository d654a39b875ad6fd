package result

import (
	"github.com/ajjswift/gcselog-search-new/internal/domain/resource"
)

// Hit is a single search hit: the resource plus the strategy's ranking score,
// if the strategy produced one.
type Hit struct {
	resource resource.Resource
	score    float64
	scored   bool
}

// New creates an unscored hit (filter-only strategy).
func New(r resource.Resource) Hit {
	return Hit{resource: r}
}

// NewScored creates a hit carrying a ranking score.
func NewScored(r resource.Resource, score float64) Hit {
	return Hit{resource: r, score: score, scored: true}
}

// Resource returns the matched resource.
func (h *Hit) Resource() resource.Resource { return h.resource }

// Score returns the ranking score and whether one was produced.
func (h *Hit) Score() (float64, bool) { return h.score, h.scored }

// Envelope is the response to one search.
type Envelope struct {
	Hits []Hit
	// TotalHits is the number of hits in this page, not the total match count.
	TotalHits        int
	ProcessingTimeMs int64
	FuzzyEnabled     bool
	SemanticEnabled  bool
}

// NewEnvelope assembles the response. Hits are never nil.
func NewEnvelope(hits []Hit, processingTimeMs int64, fuzzy, semantic bool) Envelope {
	if hits == nil {
		hits = []Hit{}
	}
	return Envelope{
		Hits:             hits,
		TotalHits:        len(hits),
		ProcessingTimeMs: processingTimeMs,
		FuzzyEnabled:     fuzzy,
		SemanticEnabled:  semantic,
	}
}
