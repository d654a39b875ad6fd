package search

import (
	"context"
	"testing"

	"github.com/ajjswift/gcselog-search-new/internal/db"
	"github.com/ajjswift/gcselog-search-new/internal/db/query"
	"github.com/ajjswift/gcselog-search-new/internal/domain/search/request"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	queryFn func(ctx context.Context, sql string, args ...any) ([]db.Row, error)
}

func (m *mockStore) Query(ctx context.Context, sql string, args ...any) ([]db.Row, error) {
	if m.queryFn != nil {
		return m.queryFn(ctx, sql, args...)
	}
	return nil, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms), ms
}

// compilePlan compiles raw parameters with the default compiler.
func compilePlan(t *testing.T, p request.Params, vec []float32) *query.Plan {
	t.Helper()
	req, err := request.Parse(p, request.DefaultLimits())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	c, err := query.NewCompiler(query.DefaultConfig())
	if err != nil {
		t.Fatalf("NewCompiler: %v", err)
	}
	plan, err := c.Compile(&req, query.BuildPredicates(req.Filters(), 1), vec)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return &plan
}

func row(id any, title string, rating any) db.Row {
	return db.Row{
		"id":            id,
		"title":         title,
		"description":   "desc " + title,
		"averagerating": rating,
		"subject":       "Maths",
		"examboard":     "AQA",
		"level":         "GCSE",
		"type":          "worksheet",
	}
}
