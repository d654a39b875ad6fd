package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ajjswift/gcselog-search-new/internal/db/query"
	"github.com/ajjswift/gcselog-search-new/internal/domain"
	"github.com/ajjswift/gcselog-search-new/internal/domain/search/outcome"
	"github.com/ajjswift/gcselog-search-new/internal/domain/search/request"
	"github.com/ajjswift/gcselog-search-new/internal/domain/search/result"
	"github.com/ajjswift/gcselog-search-new/internal/domain/search/strategy"
)

// Service compiles and runs resource searches. It holds no per-request state.
type Service struct {
	compiler *query.Compiler
	repo     Repository
	embed    Embedder
	observer Observer
}

// New creates a search service. observer may be nil.
func New(compiler *query.Compiler, repo Repository, embed Embedder, observer Observer) *Service {
	if observer == nil {
		observer = nopObserver{}
	}
	return &Service{compiler: compiler, repo: repo, embed: embed, observer: observer}
}

// Search runs one request end to end: at most one embedding call and exactly
// one store query, awaited in that order.
func (s *Service) Search(ctx context.Context, req *request.Request) (result.Envelope, error) {
	start := time.Now()
	strat := req.Strategy()

	plan, err := s.Plan(ctx, req)
	if err != nil {
		s.observer.ObserveSearch(strat, outcome.Of(err), 0)
		return result.Envelope{}, err
	}

	queryStart := time.Now()
	hits, err := s.repo.Execute(ctx, &plan)
	s.observer.ObserveStoreQuery(strat, time.Since(queryStart))
	if err != nil {
		s.observer.ObserveSearch(strat, outcome.Of(err), 0)
		return result.Envelope{}, fmt.Errorf("execute %s plan: %w", strat, err)
	}

	s.observer.ObserveSearch(strat, outcome.OK, len(hits))
	return result.NewEnvelope(
		hits,
		time.Since(start).Milliseconds(),
		req.FuzzyEnabled(),
		req.SemanticEnabled(),
	), nil
}

// Plan compiles req without executing it. The query is embedded only when
// the semantic strategy is selected; a failed embedding never falls back to
// another strategy.
func (s *Service) Plan(ctx context.Context, req *request.Request) (query.Plan, error) {
	preds := query.BuildPredicates(req.Filters(), 1)

	var vec []float32
	if req.Strategy().NeedsEmbedding() {
		res, err := s.embed.Embed(ctx, req.Query())
		if err != nil {
			if !errors.Is(err, domain.ErrEmbeddingServiceFailure) {
				err = fmt.Errorf("%w: %w", domain.ErrEmbeddingServiceFailure, err)
			}
			return query.Plan{}, fmt.Errorf("vectorize query: %w", err)
		}
		domain.UsageFromContext(ctx).AddTokens(res.TotalTokens)
		vec = res.Embedding
	}

	plan, err := s.compiler.Compile(req, preds, vec)
	if err != nil {
		if errors.Is(err, query.ErrMissingVector) || errors.Is(err, query.ErrInvalidVector) {
			return query.Plan{}, fmt.Errorf("%w: %w", domain.ErrEmbeddingServiceFailure, err)
		}
		return query.Plan{}, fmt.Errorf("compile: %w", err)
	}
	return plan, nil
}

type nopObserver struct{}

func (nopObserver) ObserveSearch(strategy.Strategy, outcome.Outcome, int) {}
func (nopObserver) ObserveStoreQuery(strategy.Strategy, time.Duration)    {}
