package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ajjswift/gcselog-search-new/internal/db"
	"github.com/ajjswift/gcselog-search-new/internal/domain"
)

var cacheKeyPrefix = domain.KeyPrefix + "emb_cache:"

// store is the consumer interface for the shared embedding cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Options configure a CachedEmbedder.
type Options struct {
	// Model is mixed into the key so vectors from different models never collide.
	Model string
	// Dimensions is mixed into the key as well. When positive, cached vectors
	// of any other length are treated as misses.
	Dimensions int
	// TTL bounds how long shared entries live. Zero keeps them forever.
	TTL time.Duration
	// LocalSize is the in-process LRU capacity. Zero disables the local layer.
	LocalSize int
}

// CachedEmbedder memoizes query embeddings in an in-process LRU backed by an
// optional shared key-value store. Search results are never cached here.
type CachedEmbedder struct {
	inner      domain.Embedder
	store      store
	local      *lru.Cache[string, []float32]
	model      string
	dims       int
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator. s may be nil for a local-only cache.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(
	inner domain.Embedder,
	s store,
	opts Options,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) (*CachedEmbedder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &CachedEmbedder{
		inner:      inner,
		store:      s,
		model:      opts.Model,
		dims:       opts.Dimensions,
		ttl:        opts.TTL,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
	if opts.LocalSize > 0 {
		local, err := lru.New[string, []float32](opts.LocalSize)
		if err != nil {
			return nil, fmt.Errorf("create local cache: %w", err)
		}
		c.local = local
	}
	return c, nil
}

// Embed returns a cached embedding or calls the inner embedder.
// Cache hit: TotalTokens = 0 (no real tokens consumed).
// Cache miss: full EmbeddingResult from inner.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := c.cacheKey(text)

	if vec, ok := c.getLocal(key); ok {
		c.incCache("hit")
		return domain.EmbeddingResult{Embedding: vec}, nil
	}
	if vec, ok := c.getFromStore(ctx, key); ok {
		c.incCache("hit")
		c.putLocal(key, vec)
		return domain.EmbeddingResult{Embedding: vec}, nil
	}

	c.incCache("miss")

	result, err := c.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}

	c.putLocal(key, result.Embedding)
	c.putToStore(ctx, key, result.Embedding)
	return result, nil
}

// HealthCheck forwards to the inner embedder when it supports health checks.
func (c *CachedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := c.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

func (c *CachedEmbedder) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *CachedEmbedder) cacheKey(text string) string {
	h := sha256.New()
	h.Write([]byte(c.model))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(c.dims)))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return cacheKeyPrefix + hex.EncodeToString(h.Sum(nil))
}

func (c *CachedEmbedder) getLocal(key string) ([]float32, bool) {
	if c.local == nil {
		return nil, false
	}
	vec, ok := c.local.Get(key)
	if !ok || !c.fits(vec) {
		return nil, false
	}
	return append([]float32(nil), vec...), true
}

func (c *CachedEmbedder) putLocal(key string, vec []float32) {
	if c.local == nil || len(vec) == 0 || !c.fits(vec) {
		return
	}
	c.local.Add(key, append([]float32(nil), vec...))
}

func (c *CachedEmbedder) getFromStore(ctx context.Context, key string) ([]float32, bool) {
	if c.store == nil {
		return nil, false
	}
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached embedding", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}

	vec, err := bytesToVector(data)
	if err != nil {
		c.logger.Warn("Failed to parse cached embedding", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if !c.fits(vec) {
		c.logger.Warn("Ignoring cached embedding with wrong dimensions",
			zap.String("key", key),
			zap.Int("got", len(vec)),
			zap.Int("want", c.dims),
		)
		return nil, false
	}

	return vec, true
}

func (c *CachedEmbedder) putToStore(ctx context.Context, key string, vec []float32) {
	if c.store == nil || len(vec) == 0 || !c.fits(vec) {
		return
	}
	if err := c.store.SetWithTTL(ctx, key, vectorToCacheBytes(vec), c.ttl); err != nil {
		c.logger.Warn("Failed to cache embedding", zap.String("key", key), zap.Error(err))
	}
}

// fits reports whether vec matches the configured dimensions.
func (c *CachedEmbedder) fits(vec []float32) bool {
	return c.dims <= 0 || len(vec) == c.dims
}

func vectorToCacheBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding cache data: len=%d (not multiple of 4)", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
