package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/ajjswift/gcselog-search-new/internal/db/query"
	"github.com/ajjswift/gcselog-search-new/internal/domain"
	"github.com/ajjswift/gcselog-search-new/internal/domain/search/request"
	searchuc "github.com/ajjswift/gcselog-search-new/internal/usecase/search"
)

const explainVectorPreview = 4

func explainCommand() *cli.Command {
	return &cli.Command{
		Name:  "explain",
		Usage: "Compile a search request offline and print the query plan",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: request.ParamQuery, Usage: "Search text"},
			&cli.StringFlag{Name: request.ParamTags, Usage: "Comma-separated tags"},
			&cli.StringFlag{Name: request.ParamSubject, Usage: "Subject filter"},
			&cli.StringFlag{Name: request.ParamExamBoard, Usage: "Exam board filter"},
			&cli.StringFlag{Name: request.ParamLevel, Usage: "Level filter"},
			&cli.StringFlag{Name: request.ParamType, Usage: "Resource type filter"},
			&cli.StringFlag{Name: request.ParamLimit, Usage: "Page size"},
			&cli.StringFlag{Name: request.ParamOffset, Usage: "Rows to skip"},
			&cli.StringFlag{Name: request.ParamSort, Usage: "Sort as field:direction"},
			&cli.StringFlag{Name: request.ParamFuzzy, Usage: "Enable trigram matching (default true)"},
			&cli.StringFlag{Name: request.ParamSemantic, Usage: "Enable vector search (default false)"},
			&cli.IntFlag{
				Name:  "dimensions",
				Usage: "Placeholder vector size for semantic plans",
				Value: domain.DefaultEmbeddingConfig().Dimensions,
			},
			&cli.BoolFlag{Name: "use-config", Usage: "Take table and limits from config/<env>.yaml"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			params := request.Params{}
			for _, name := range []string{
				request.ParamQuery, request.ParamTags, request.ParamSubject, request.ParamExamBoard,
				request.ParamLevel, request.ParamType, request.ParamLimit, request.ParamOffset,
				request.ParamSort, request.ParamFuzzy, request.ParamSemantic,
			} {
				if v := c.String(name); v != "" {
					params[name] = v
				}
			}

			qcfg := query.DefaultConfig()
			limits := request.DefaultLimits()
			dims := c.Int("dimensions")
			if c.Bool("use-config") {
				cfg, err := loadConfig(c.String("env"))
				if err != nil {
					return err
				}
				qcfg = compilerConfig(cfg.Search)
				limits = searchLimits(cfg.Search)
				if !c.IsSet("dimensions") {
					dims = cfg.Embedding.Dimensions
				}
			}

			return explain(ctx, c.Root().Writer, params, explainOptions{
				compiler:   qcfg,
				limits:     limits,
				dimensions: dims,
			})
		},
	}
}

type explainOptions struct {
	compiler   query.Config
	limits     request.Limits
	dimensions int
}

// zeroEmbedder stands in for the provider so semantic plans can be shown
// without a network call.
type zeroEmbedder struct {
	dimensions int
}

func (z zeroEmbedder) Embed(context.Context, string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{Embedding: make([]float32, z.dimensions)}, nil
}

func explain(ctx context.Context, w io.Writer, params request.Params, opts explainOptions) error {
	req, err := request.Parse(params, opts.limits)
	if err != nil {
		return fmt.Errorf("normalize request: %w", err)
	}

	compiler, err := query.NewCompiler(opts.compiler)
	if err != nil {
		return fmt.Errorf("create query compiler: %w", err)
	}

	svc := searchuc.New(compiler, nil, zeroEmbedder{dimensions: opts.dimensions}, nil)
	plan, err := svc.Plan(ctx, &req)
	if err != nil {
		return fmt.Errorf("plan: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "strategy:  %s\n", plan.Strategy())
	fmt.Fprintf(&b, "order by:  %s\n", strings.Join(plan.TieBreak(), ", "))
	if col := plan.ScoreColumn(); col != "" {
		fmt.Fprintf(&b, "score:     %s\n", col)
	}
	fmt.Fprintf(&b, "sql:       %s\n", plan.Text())
	b.WriteString("params:\n")
	planParams := plan.Params()
	vectorSlot := -1
	if plan.Strategy().NeedsEmbedding() {
		// filters..., vector, limit, offset
		vectorSlot = len(planParams) - 3
	}
	for i, p := range planParams {
		fmt.Fprintf(&b, "  $%d = %s\n", i+1, formatParam(p, i == vectorSlot))
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("write plan: %w", err)
	}
	return nil
}

func formatParam(p any, vector bool) string {
	switch v := p.(type) {
	case string:
		if vector {
			return query.AbbreviateVector(v, explainVectorPreview)
		}
		return strconv.Quote(v)
	default:
		return fmt.Sprint(v)
	}
}
