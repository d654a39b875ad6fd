package strategy

// Strategy is the query-construction path chosen for a request.
type Strategy string

// Search strategies. Exactly one applies per request.
const (
	// Semantic ranks by vector similarity to the embedded query.
	Semantic Strategy = "semantic"
	// FullText ranks by full-text relevance, optionally widened by trigram similarity.
	FullText Strategy = "fulltext"
	// FilterOnly applies filters and the caller's sort with no text scoring.
	FilterOnly Strategy = "filter"
)

// Select picks the strategy for a request. An empty query always yields
// FilterOnly, whatever the semantic flag says; semantic wins over full-text.
func Select(query string, semanticEnabled bool) Strategy {
	switch {
	case query == "":
		return FilterOnly
	case semanticEnabled:
		return Semantic
	default:
		return FullText
	}
}

// IsValid checks if the strategy is one of the supported values.
func (s Strategy) IsValid() bool {
	return s == Semantic || s == FullText || s == FilterOnly
}

// NeedsEmbedding reports whether the strategy requires a query vector.
func (s Strategy) NeedsEmbedding() bool { return s == Semantic }
