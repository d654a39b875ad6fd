package search

import (
	"context"
	"time"

	"github.com/ajjswift/gcselog-search-new/internal/db/query"
	"github.com/ajjswift/gcselog-search-new/internal/domain"
	"github.com/ajjswift/gcselog-search-new/internal/domain/search/outcome"
	"github.com/ajjswift/gcselog-search-new/internal/domain/search/result"
	"github.com/ajjswift/gcselog-search-new/internal/domain/search/strategy"
)

// Repository executes compiled plans against the resource store.
type Repository interface {
	Execute(ctx context.Context, plan *query.Plan) ([]result.Hit, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Observer records search outcomes. Implementations must be safe for
// concurrent use.
type Observer interface {
	ObserveSearch(s strategy.Strategy, o outcome.Outcome, hits int)
	ObserveStoreQuery(s strategy.Strategy, d time.Duration)
}
