package embcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/ajjswift/gcselog-search-new/internal/db"
	"github.com/ajjswift/gcselog-search-new/internal/domain"
)

func TestEmbed_CacheMiss(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{
		Embedding:    []float32{0.1, 0.2, 0.3},
		PromptTokens: 10,
		TotalTokens:  10,
	}}
	ce, ms := newTestCachedEmbedder(t, inner, Options{TTL: time.Hour})
	ctx := context.Background()

	// GET → ErrKeyNotFound (cache miss)
	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		return nil, db.ErrKeyNotFound
	}

	var gotTTL time.Duration
	var setCalled bool
	ms.setFn = func(_ context.Context, _ string, _ []byte, ttl time.Duration) error {
		setCalled = true
		gotTTL = ttl
		return nil
	}

	result, err := ce.Embed(ctx, "test text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Embedding) != 3 || result.Embedding[0] != 0.1 {
		t.Fatalf("unexpected vector: %v", result.Embedding)
	}
	if result.TotalTokens != 10 {
		t.Fatalf("expected TotalTokens=10, got %d", result.TotalTokens)
	}
	if !setCalled {
		t.Fatal("expected SET to be called for cache put")
	}
	if gotTTL != time.Hour {
		t.Errorf("ttl = %v, want 1h", gotTTL)
	}
}

func TestEmbed_StoreHit(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{
		Embedding: []float32{0.1, 0.2, 0.3},
	}}
	ce, ms := newTestCachedEmbedder(t, inner, Options{})

	cached := vectorToCacheBytes([]float32{0.4, 0.5, 0.6})
	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		return cached, nil
	}

	result, err := ce.Embed(context.Background(), "test text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Embedding) != 3 || result.Embedding[0] != 0.4 {
		t.Fatalf("expected cached vector, got: %v", result.Embedding)
	}
	if result.TotalTokens != 0 {
		t.Fatalf("expected TotalTokens=0 on cache hit, got %d", result.TotalTokens)
	}
	if inner.calls != 0 {
		t.Errorf("inner calls = %d, want 0", inner.calls)
	}
}

func TestEmbed_LocalHitSkipsStore(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{
		Embedding:   []float32{0.7, 0.8},
		TotalTokens: 4,
	}}
	ce, ms := newTestCachedEmbedder(t, inner, Options{LocalSize: 8})

	gets := 0
	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		gets++
		return nil, db.ErrKeyNotFound
	}

	if _, err := ce.Embed(context.Background(), "photosynthesis"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := ce.Embed(context.Background(), "photosynthesis")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if inner.calls != 1 {
		t.Errorf("inner calls = %d, want 1", inner.calls)
	}
	if gets != 1 {
		t.Errorf("store gets = %d, want 1 (second call served locally)", gets)
	}
	if second.TotalTokens != 0 || second.Embedding[1] != 0.8 {
		t.Errorf("unexpected local hit result: %+v", second)
	}

	// returned vectors must not alias the cached entry
	second.Embedding[0] = 99
	third, _ := ce.Embed(context.Background(), "photosynthesis")
	if third.Embedding[0] != 0.7 {
		t.Errorf("cached entry mutated through returned slice: %v", third.Embedding)
	}
}

func TestEmbed_LocalOnly(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}}}
	ce, err := New(inner, nil, Options{LocalSize: 2}, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for range 3 {
		if _, err := ce.Embed(context.Background(), "cells"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if inner.calls != 1 {
		t.Errorf("inner calls = %d, want 1", inner.calls)
	}
}

func TestEmbed_KeyIncludesModel(t *testing.T) {
	a, _ := New(&mockEmbedder{}, nil, Options{Model: "small"}, nil, zap.NewNop())
	b, _ := New(&mockEmbedder{}, nil, Options{Model: "large"}, nil, zap.NewNop())
	if a.cacheKey("x") == b.cacheKey("x") {
		t.Error("different models must not share cache keys")
	}
	if a.cacheKey("x") == a.cacheKey("y") {
		t.Error("different texts must not share cache keys")
	}
}

func TestEmbed_KeyIncludesDimensions(t *testing.T) {
	a, _ := New(&mockEmbedder{}, nil, Options{Model: "m", Dimensions: 256}, nil, zap.NewNop())
	b, _ := New(&mockEmbedder{}, nil, Options{Model: "m", Dimensions: 1024}, nil, zap.NewNop())
	if a.cacheKey("x") == b.cacheKey("x") {
		t.Error("different dimensions must not share cache keys")
	}
}

func TestEmbed_WrongDimensionsIsMiss(t *testing.T) {
	want := make([]float32, 1024)
	want[0] = 0.9
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: want, TotalTokens: 3}}
	ce, ms := newTestCachedEmbedder(t, inner, Options{Model: "m", Dimensions: 1024, LocalSize: 4})

	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		return vectorToCacheBytes([]float32{0.1, 0.2, 0.3}), nil
	}
	var stored []byte
	ms.setFn = func(_ context.Context, _ string, value []byte, _ time.Duration) error {
		stored = value
		return nil
	}

	result, err := ce.Embed(context.Background(), "photosynthesis")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("inner calls = %d, want 1", inner.calls)
	}
	if len(result.Embedding) != 1024 || result.Embedding[0] != 0.9 {
		t.Errorf("len = %d, first = %v; want fresh 1024-dim vector", len(result.Embedding), result.Embedding[0])
	}
	if len(stored) != 1024*4 {
		t.Errorf("stored %d bytes, want %d", len(stored), 1024*4)
	}
}

func TestEmbed_WrongDimensionsNotCached(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1, 0.2}}}
	ce, ms := newTestCachedEmbedder(t, inner, Options{Dimensions: 4, LocalSize: 4})

	setCalled := false
	ms.setFn = func(_ context.Context, _ string, _ []byte, _ time.Duration) error {
		setCalled = true
		return nil
	}

	for range 2 {
		if _, err := ce.Embed(context.Background(), "cells"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if setCalled {
		t.Error("wrong-length vector must not reach the shared store")
	}
	if inner.calls != 2 {
		t.Errorf("inner calls = %d, want 2 (nothing cached locally)", inner.calls)
	}
}

func TestEmbed_StoreErrorsAreSoft(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.3}}}
	ce, ms := newTestCachedEmbedder(t, inner, Options{})
	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		return nil, errors.New("connection reset")
	}
	ms.setFn = func(_ context.Context, _ string, _ []byte, _ time.Duration) error {
		return errors.New("connection reset")
	}

	result, err := ce.Embed(context.Background(), "test text")
	if err != nil {
		t.Fatalf("cache failures must not fail the embed: %v", err)
	}
	if result.Embedding[0] != 0.3 {
		t.Errorf("unexpected vector: %v", result.Embedding)
	}
}

func TestEmbed_CorruptEntryIsMiss(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.3}}}
	ce, ms := newTestCachedEmbedder(t, inner, Options{})
	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		return []byte{1, 2, 3}, nil
	}

	if _, err := ce.Embed(context.Background(), "test text"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("inner calls = %d, want 1", inner.calls)
	}
}

func TestEmbed_InnerError(t *testing.T) {
	inner := &mockEmbedder{err: errors.New("provider down")}
	ce, ms := newTestCachedEmbedder(t, inner, Options{})

	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		return nil, db.ErrKeyNotFound
	}

	_, err := ce.Embed(context.Background(), "test text")
	if err == nil {
		t.Fatal("expected error from inner embedder")
	}
}

func TestEmbed_Metrics(t *testing.T) {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_cache_total"}, []string{"result"})
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1}}}
	ce, err := New(inner, nil, Options{LocalSize: 4}, counter, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, _ = ce.Embed(context.Background(), "a")
	_, _ = ce.Embed(context.Background(), "a")

	if got := testutil.ToFloat64(counter.WithLabelValues("miss")); got != 1 {
		t.Errorf("miss = %v, want 1", got)
	}
	if got := testutil.ToFloat64(counter.WithLabelValues("hit")); got != 1 {
		t.Errorf("hit = %v, want 1", got)
	}
}

type healthyEmbedder struct {
	mockEmbedder
	err error
}

func (h *healthyEmbedder) HealthCheck(context.Context) error { return h.err }

func TestHealthCheck(t *testing.T) {
	ce, _ := New(&mockEmbedder{}, nil, Options{}, nil, zap.NewNop())
	if err := ce.HealthCheck(context.Background()); err != nil {
		t.Errorf("inner without health check should pass: %v", err)
	}

	down := errors.New("down")
	ce, _ = New(&healthyEmbedder{err: down}, nil, Options{}, nil, zap.NewNop())
	if err := ce.HealthCheck(context.Background()); !errors.Is(err, down) {
		t.Errorf("expected forwarded error, got %v", err)
	}
}

func TestVectorBytes(t *testing.T) {
	in := []float32{0.5, -1.25, 3}
	out, err := bytesToVector(vectorToCacheBytes(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range in {
		if in[i] != out[i] {
			t.Fatalf("vector mismatch at %d: %v != %v", i, in[i], out[i])
		}
	}
}
