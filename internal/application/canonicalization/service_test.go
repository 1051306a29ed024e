package canonicalization

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/smartscanon/internal/config"
	"github.com/turtacn/smartscanon/internal/infrastructure/database/redis"
	"github.com/turtacn/smartscanon/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/smartscanon/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/smartscanon/pkg/errors"
	dto "github.com/turtacn/smartscanon/pkg/types/canon"
)

func testConfig() config.CanonConfig {
	return config.CanonConfig{
		DefaultEmbedding: "drugbank",
		Remap:            true,
		MaxAtoms:         32,
		BatchWorkers:     3,
		BatchLimit:       10,
		CacheTTL:         time.Hour,
	}
}

func newTestService(t *testing.T, cfg config.CanonConfig, deps Deps) Service {
	t.Helper()
	svc, err := NewService(cfg, deps)
	require.NoError(t, err)
	return svc
}

func newCachedService(t *testing.T) (Service, *prometheus.CanonMetrics, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	client := redis.NewClientFromRedis(rdb, "test:", logging.NewNopLogger())
	t.Cleanup(func() { _ = client.Close() })

	collector, err := prometheus.NewCollector(prometheus.CollectorConfig{Namespace: "test"}, nil)
	require.NoError(t, err)
	metrics := prometheus.NewCanonMetrics(collector)

	svc := newTestService(t, testConfig(), Deps{
		Cache:   redis.NewCache(client, nil, redis.WithJitter(0)),
		Metrics: metrics,
	})
	return svc, metrics, mr
}

func TestCanonicalizePattern(t *testing.T) {
	svc := newTestService(t, testConfig(), Deps{})
	resp, err := svc.CanonicalizePattern(context.Background(), &dto.PatternRequest{Pattern: "OC"})
	require.NoError(t, err)
	assert.Equal(t, "OC", resp.Input)
	assert.Equal(t, "[O][C]", resp.Canonical)
	assert.Equal(t, "drugbank", resp.Embedding)
	require.Len(t, resp.Fragments, 1)
	assert.NotEmpty(t, resp.Fragments[0].Score)
	assert.False(t, resp.Cached)
}

func TestCanonicalizePattern_Validation(t *testing.T) {
	svc := newTestService(t, testConfig(), Deps{})
	_, err := svc.CanonicalizePattern(context.Background(), &dto.PatternRequest{})
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest), "%v", err)

	_, err = svc.CanonicalizePattern(context.Background(), nil)
	assert.Error(t, err)

	_, err = svc.CanonicalizePattern(context.Background(), &dto.PatternRequest{Pattern: "C("})
	assert.True(t, errors.IsCode(err, errors.ErrCodeMalformedPattern), "%v", err)

	_, err = svc.CanonicalizePattern(context.Background(), &dto.PatternRequest{
		Pattern: "CC",
		Options: dto.Options{Embedding: "nope"},
	})
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnknownEmbedding), "%v", err)
}

func TestCanonicalizePattern_MaxAtoms(t *testing.T) {
	cfg := testConfig()
	cfg.MaxAtoms = 3
	svc := newTestService(t, cfg, Deps{})

	_, err := svc.CanonicalizePattern(context.Background(), &dto.PatternRequest{Pattern: "C1CCCCC1"})
	assert.True(t, errors.IsCode(err, errors.ErrCodePatternTooLarge), "%v", err)

	_, err = svc.CanonicalizeReaction(context.Background(), &dto.ReactionRequest{Reaction: "CC.CC>>CCCC"})
	assert.True(t, errors.IsCode(err, errors.ErrCodePatternTooLarge), "%v", err)

	_, err = svc.CanonicalizePattern(context.Background(), &dto.PatternRequest{Pattern: "CCC"})
	assert.NoError(t, err)
}

func TestCanonicalizePattern_MappingOverride(t *testing.T) {
	svc := newTestService(t, testConfig(), Deps{})
	resp, err := svc.CanonicalizePattern(context.Background(), &dto.PatternRequest{Pattern: "[C:4][O]"})
	require.NoError(t, err)
	assert.Equal(t, "[O][C]", resp.Canonical)

	resp, err = svc.CanonicalizePattern(context.Background(), &dto.PatternRequest{
		Pattern: "[C:4][O]",
		Options: dto.Options{Mapping: dto.Bool(true)},
	})
	require.NoError(t, err)
	assert.Equal(t, "[O][C:4]", resp.Canonical)
	assert.Equal(t, "[O][C]", resp.Unmapped)
}

func TestCanonicalizePattern_CacheHit(t *testing.T) {
	svc, metrics, mr := newCachedService(t)
	ctx := context.Background()

	first, err := svc.CanonicalizePattern(ctx, &dto.PatternRequest{Pattern: "CN"})
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Len(t, mr.Keys(), 1)

	second, err := svc.CanonicalizePattern(ctx, &dto.PatternRequest{Pattern: "CN"})
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Canonical, second.Canonical)

	assert.Equal(t, 1.0, promtest.ToFloat64(metrics.CacheHitsTotal.WithLabelValues("pattern")))
	assert.Equal(t, 1.0, promtest.ToFloat64(metrics.CacheMissesTotal.WithLabelValues("pattern")))
	assert.Equal(t, 2.0, promtest.ToFloat64(metrics.CanonRequestsTotal.WithLabelValues("pattern", prometheus.ResultOK)))

	// Different options hash to a different key.
	third, err := svc.CanonicalizePattern(ctx, &dto.PatternRequest{Pattern: "CN", Options: dto.Options{Embedding: "uniform"}})
	require.NoError(t, err)
	assert.False(t, third.Cached)
	assert.Len(t, mr.Keys(), 2)
}

// coalescedCache simulates a caller that joined another request's load: the
// stored read misses and GetOrSet fills dest without running the loader.
type coalescedCache struct {
	redis.Cache
	value dto.PatternResponse
}

func (c *coalescedCache) Get(context.Context, string, interface{}) error {
	return redis.ErrCacheMiss
}

func (c *coalescedCache) GetOrSet(_ context.Context, _ string, dest interface{}, _ time.Duration, _ func(context.Context) (interface{}, error)) error {
	*dest.(*dto.PatternResponse) = c.value
	return nil
}

func TestCanonicalizePattern_CoalescedLoadIsMiss(t *testing.T) {
	collector, err := prometheus.NewCollector(prometheus.CollectorConfig{Namespace: "test"}, nil)
	require.NoError(t, err)
	metrics := prometheus.NewCanonMetrics(collector)

	cache := &coalescedCache{value: dto.PatternResponse{Input: "CN", Canonical: "[N][C]", Unmapped: "[N][C]", Embedding: "drugbank"}}
	svc := newTestService(t, testConfig(), Deps{Cache: cache, Metrics: metrics})

	resp, err := svc.CanonicalizePattern(context.Background(), &dto.PatternRequest{Pattern: "CN"})
	require.NoError(t, err)
	assert.Equal(t, "[N][C]", resp.Canonical)
	assert.False(t, resp.Cached)
	assert.Equal(t, 0.0, promtest.ToFloat64(metrics.CacheHitsTotal.WithLabelValues("pattern")))
	assert.Equal(t, 1.0, promtest.ToFloat64(metrics.CacheMissesTotal.WithLabelValues("pattern")))
}

func TestCanonicalizePattern_ErrorsNotCached(t *testing.T) {
	svc, metrics, mr := newCachedService(t)
	_, err := svc.CanonicalizePattern(context.Background(), &dto.PatternRequest{Pattern: "C("})
	assert.Error(t, err)
	assert.Empty(t, mr.Keys())
	assert.Equal(t, 1.0, promtest.ToFloat64(metrics.CanonRequestsTotal.WithLabelValues("pattern", prometheus.ResultError)))
}

func TestCanonicalizeReaction(t *testing.T) {
	svc := newTestService(t, testConfig(), Deps{})
	resp, err := svc.CanonicalizeReaction(context.Background(), &dto.ReactionRequest{Reaction: "C>O>N"})
	require.NoError(t, err)
	assert.Equal(t, "[C]>[O]>>[N]", resp.Canonical)
	assert.Equal(t, []string{"[C]"}, resp.Reactants)
	assert.Equal(t, []string{"[O]"}, resp.Agents)
	assert.Equal(t, []string{"[N]"}, resp.Products)

	resp, err = svc.CanonicalizeReaction(context.Background(), &dto.ReactionRequest{
		Reaction: "[C:5][N:3]>>[N:3][C:5]",
		Options:  dto.Options{Mapping: dto.Bool(true)},
	})
	require.NoError(t, err)
	assert.Equal(t, "[N:1][C:2]>>[N:1][C:2]", resp.Canonical)

	_, err = svc.CanonicalizeReaction(context.Background(), &dto.ReactionRequest{Reaction: "CC"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeMalformedReaction), "%v", err)
}

func TestCompare(t *testing.T) {
	svc := newTestService(t, testConfig(), Deps{})
	resp, err := svc.Compare(context.Background(), &dto.CompareRequest{A: "CCO", B: "OCC"})
	require.NoError(t, err)
	assert.True(t, resp.Equal)
	assert.Equal(t, resp.CanonicalA, resp.CanonicalB)

	resp, err = svc.Compare(context.Background(), &dto.CompareRequest{A: "CCO", B: "CCN"})
	require.NoError(t, err)
	assert.False(t, resp.Equal)

	_, err = svc.Compare(context.Background(), &dto.CompareRequest{A: "CCO"})
	assert.Error(t, err)
}

func TestCanonicalizeBatch(t *testing.T) {
	svc := newTestService(t, testConfig(), Deps{})
	resp, err := svc.CanonicalizeBatch(context.Background(), &dto.BatchRequest{Items: []dto.BatchItem{
		{ID: "a", Kind: dto.KindPattern, Text: "OC"},
		{ID: "b", Kind: dto.KindReaction, Text: "CN>>OC"},
		{ID: "c", Kind: dto.KindPattern, Text: "C("},
		{ID: "d", Kind: dto.KindPattern, Text: "NC"},
	}})
	require.NoError(t, err)
	require.Len(t, resp.Results, 4)
	assert.Equal(t, 3, resp.Succeeded)
	assert.Equal(t, 1, resp.Failed)

	assert.Equal(t, "a", resp.Results[0].ID)
	assert.Equal(t, "[O][C]", resp.Results[0].Canonical)
	assert.Equal(t, "[N][C]>>[O][C]", resp.Results[1].Canonical)
	assert.True(t, resp.Results[2].Failed())
	assert.Equal(t, string(errors.ErrCodeMalformedPattern), resp.Results[2].ErrorCode)
	assert.Equal(t, "[N][C]", resp.Results[3].Canonical)
}

func TestCanonicalizeBatch_Limits(t *testing.T) {
	svc := newTestService(t, testConfig(), Deps{})
	items := make([]dto.BatchItem, 11)
	for i := range items {
		items[i] = dto.BatchItem{Kind: dto.KindPattern, Text: "C"}
	}
	_, err := svc.CanonicalizeBatch(context.Background(), &dto.BatchRequest{Items: items})
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest), "%v", err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.CanonicalizeBatch(ctx, &dto.BatchRequest{Items: items[:2]})
	assert.Error(t, err)
}

func TestRunJob(t *testing.T) {
	svc := newTestService(t, testConfig(), Deps{})
	job := dto.NewJob(dto.KindPattern, []dto.BatchItem{
		{ID: "1", Kind: dto.KindPattern, Text: "CO"},
		{ID: "2", Kind: dto.KindPattern, Text: ""},
	}, dto.Options{})

	res := svc.RunJob(context.Background(), job)
	assert.Equal(t, job.JobID, res.JobID)
	assert.Equal(t, 1, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
	assert.False(t, res.FinishedAt.IsZero())
}

func TestUpdateConfig(t *testing.T) {
	svc := newTestService(t, testConfig(), Deps{})

	bad := testConfig()
	bad.DefaultEmbedding = "missing"
	assert.Error(t, svc.UpdateConfig(bad))
	assert.Equal(t, "drugbank", svc.Config().DefaultEmbedding)

	dir := t.TempDir()
	file := filepath.Join(dir, "house.yaml")
	require.NoError(t, os.WriteFile(file, []byte("O: 5\nC: 1\n"), 0o644))

	next := testConfig()
	next.EmbeddingFiles = []string{file}
	next.DefaultEmbedding = "house"
	require.NoError(t, svc.UpdateConfig(next))

	resp, err := svc.CanonicalizePattern(context.Background(), &dto.PatternRequest{Pattern: "CO"})
	require.NoError(t, err)
	assert.Equal(t, "house", resp.Embedding)

	next.EmbeddingFiles = []string{filepath.Join(dir, "absent.yaml")}
	assert.Error(t, svc.UpdateConfig(next))
}

//Personal.AI order the ending
