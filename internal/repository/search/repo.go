package search

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"

	"github.com/ajjswift/gcselog-search-new/internal/db"
	"github.com/ajjswift/gcselog-search-new/internal/db/query"
	"github.com/ajjswift/gcselog-search-new/internal/domain"
	"github.com/ajjswift/gcselog-search-new/internal/domain/resource"
	"github.com/ajjswift/gcselog-search-new/internal/domain/search/result"
	"github.com/ajjswift/gcselog-search-new/internal/domain/search/strategy"
	"github.com/ajjswift/gcselog-search-new/internal/logger"
)

// vectorLogComponents is how many vector components a failed-query log keeps.
const vectorLogComponents = 4

// store is the consumer interface for search operations (ISP).
type store interface {
	Query(ctx context.Context, sql string, args ...any) ([]db.Row, error)
}

// Repo implements usecase/search.Repository.
type Repo struct {
	store store
}

// New creates a search repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Execute runs a compiled plan and maps its rows to hits in store order.
// Any failure is a StoreQueryFailure; the statement and its parameters are
// logged through the request logger and never returned to the caller.
func (r *Repo) Execute(ctx context.Context, plan *query.Plan) ([]result.Hit, error) {
	rows, err := r.store.Query(ctx, plan.Text(), plan.Params()...)
	if err != nil {
		logFailure(ctx, plan, err)
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreQueryFailure, err)
	}

	hits := make([]result.Hit, 0, len(rows))
	for i, row := range rows {
		hit, err := toHit(row, plan.ScoreColumn())
		if err != nil {
			err = fmt.Errorf("row %d: %w", i, err)
			logFailure(ctx, plan, err)
			return nil, fmt.Errorf("%w: %w", domain.ErrStoreQueryFailure, err)
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func logFailure(ctx context.Context, plan *query.Plan, err error) {
	logger.FromContext(ctx).Error("Search query failed",
		zap.String("strategy", string(plan.Strategy())),
		zap.String("query", plan.Text()),
		zap.Any("params", loggableParams(plan)),
		zap.Error(err),
	)
}

// loggableParams abbreviates the vector literal of semantic plans.
func loggableParams(plan *query.Plan) []any {
	params := plan.Params()
	if plan.Strategy() != strategy.Semantic {
		return params
	}
	for i, p := range params {
		if s, ok := p.(string); ok && strings.HasPrefix(s, "[") {
			params[i] = query.AbbreviateVector(s, vectorLogComponents)
		}
	}
	return params
}

func toHit(row db.Row, scoreColumn string) (result.Hit, error) {
	id, err := asID(row["id"])
	if err != nil {
		return result.Hit{}, fmt.Errorf("id: %w", err)
	}
	rating, err := asFloat(row["averagerating"])
	if err != nil {
		return result.Hit{}, fmt.Errorf("averagerating: %w", err)
	}

	text := make(map[string]string, 6)
	for _, col := range []string{"title", "description", "subject", "examboard", "level", "type"} {
		s, err := asText(row[col])
		if err != nil {
			return result.Hit{}, fmt.Errorf("%s: %w", col, err)
		}
		text[col] = s
	}

	res := resource.Reconstruct(id, text["title"], text["description"], rating,
		text["subject"], text["examboard"], text["level"], text["type"])

	if scoreColumn == "" {
		return result.New(res), nil
	}
	score, err := asFloat(row[scoreColumn])
	if err != nil {
		return result.Hit{}, fmt.Errorf("%s: %w", scoreColumn, err)
	}
	return result.NewScored(res, score), nil
}

func asID(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", fmt.Errorf("missing")
	case string:
		return x, nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case int:
		return strconv.Itoa(x), nil
	case [16]byte:
		return formatUUID(pgtype.UUID{Bytes: x, Valid: true})
	case pgtype.UUID:
		if !x.Valid {
			return "", fmt.Errorf("missing")
		}
		return formatUUID(x)
	default:
		return "", fmt.Errorf("unsupported type %T", v)
	}
}

func asText(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	default:
		return "", fmt.Errorf("unsupported type %T", v)
	}
}

func asFloat(v any) (float64, error) {
	switch x := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case pgtype.Numeric:
		f, err := x.Float64Value()
		if err != nil {
			return 0, err
		}
		if !f.Valid {
			return 0, nil
		}
		return f.Float64, nil
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}

func formatUUID(u pgtype.UUID) (string, error) {
	v, err := u.Value()
	if err != nil {
		return "", err
	}
	str, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("unexpected uuid value %T", v)
	}
	return str, nil
}
