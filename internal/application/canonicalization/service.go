// Package canonicalization is the application service in front of the
// canonicalization engine. It applies the configured defaults, enforces the
// atom limit, caches results in Redis and records metrics. The HTTP API, the
// CLI and the queue worker all go through it.
package canonicalization

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/smartscanon/internal/config"
	"github.com/turtacn/smartscanon/internal/infrastructure/database/redis"
	"github.com/turtacn/smartscanon/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/smartscanon/internal/infrastructure/monitoring/prometheus"
	engine "github.com/turtacn/smartscanon/internal/intelligence/canon"
	"github.com/turtacn/smartscanon/internal/intelligence/smarts"
	"github.com/turtacn/smartscanon/internal/intelligence/token"
	"github.com/turtacn/smartscanon/pkg/errors"
	dto "github.com/turtacn/smartscanon/pkg/types/canon"
)

// Service canonicalizes patterns and reactions.
type Service interface {
	CanonicalizePattern(ctx context.Context, req *dto.PatternRequest) (*dto.PatternResponse, error)
	CanonicalizeReaction(ctx context.Context, req *dto.ReactionRequest) (*dto.ReactionResponse, error)
	Compare(ctx context.Context, req *dto.CompareRequest) (*dto.CompareResponse, error)
	CanonicalizeBatch(ctx context.Context, req *dto.BatchRequest) (*dto.BatchResponse, error)
	RunJob(ctx context.Context, job *dto.Job) *dto.JobResult
	UpdateConfig(cfg config.CanonConfig) error
	Config() config.CanonConfig
}

// Deps are the optional collaborators of the service. A nil Cache disables
// caching; nil Metrics disables recording.
type Deps struct {
	Cache   redis.Cache
	Metrics *prometheus.CanonMetrics
	Logger  logging.Logger
}

type serviceImpl struct {
	cache   redis.Cache
	metrics *prometheus.CanonMetrics
	logger  logging.Logger

	mu         sync.RWMutex
	cfg        config.CanonConfig
	embeddings map[string]*token.Embedding
}

// NewService builds the service and loads the embedding files named in cfg.
func NewService(cfg config.CanonConfig, deps Deps) (Service, error) {
	if deps.Logger == nil {
		deps.Logger = logging.NewNopLogger()
	}
	s := &serviceImpl{
		cache:   deps.Cache,
		metrics: deps.Metrics,
		logger:  deps.Logger.Named("canonicalization"),
	}
	if err := s.UpdateConfig(cfg); err != nil {
		return nil, err
	}
	return s, nil
}

// UpdateConfig swaps in new engine settings. A file that fails to load keeps
// the previous settings in place.
func (s *serviceImpl) UpdateConfig(cfg config.CanonConfig) error {
	files := make(map[string]*token.Embedding, len(cfg.EmbeddingFiles))
	for _, f := range cfg.EmbeddingFiles {
		emb, err := token.LoadEmbeddingFile(f)
		if err != nil {
			return err
		}
		files[emb.Name] = emb
	}
	if cfg.DefaultEmbedding == "" {
		cfg.DefaultEmbedding = token.DefaultEmbedding
	}
	if _, ok := files[cfg.DefaultEmbedding]; !ok {
		if _, err := token.LookupEmbedding(cfg.DefaultEmbedding); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.cfg = cfg
	s.embeddings = files
	s.mu.Unlock()
	s.logger.Info("canon settings applied",
		logging.String("default_embedding", cfg.DefaultEmbedding),
		logging.Int("embedding_files", len(files)),
		logging.Int("max_atoms", cfg.MaxAtoms))
	return nil
}

func (s *serviceImpl) Config() config.CanonConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// resolved is one call's effective settings.
type resolved struct {
	embedding string
	mapping   bool
	remap     bool
	maxAtoms  int
	cacheTTL  time.Duration
	opts      []engine.Option
}

func (s *serviceImpl) resolve(o dto.Options) resolved {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r := resolved{
		embedding: s.cfg.DefaultEmbedding,
		mapping:   s.cfg.Mapping,
		remap:     s.cfg.Remap,
		maxAtoms:  s.cfg.MaxAtoms,
		cacheTTL:  s.cfg.CacheTTL,
	}
	if o.Embedding != "" {
		r.embedding = o.Embedding
	}
	if o.Mapping != nil {
		r.mapping = *o.Mapping
	}
	if o.Remap != nil {
		r.remap = *o.Remap
	}
	if emb, ok := s.embeddings[r.embedding]; ok {
		r.opts = append(r.opts, engine.WithTokenEmbedding(emb))
	} else {
		r.opts = append(r.opts, engine.WithEmbedding(r.embedding))
	}
	r.opts = append(r.opts, engine.WithMapping(r.mapping), engine.WithRemap(r.remap))
	if s.cfg.Verbose {
		r.opts = append(r.opts, engine.WithVerbose(s.logger))
	}
	return r
}

// cacheKey hashes everything that affects the output.
func cacheKey(kind dto.Kind, text string, r resolved) string {
	h := sha256.New()
	_ = json.NewEncoder(h).Encode(struct {
		Kind      dto.Kind `json:"k"`
		Text      string   `json:"t"`
		Embedding string   `json:"e"`
		Mapping   bool     `json:"m"`
		Remap     bool     `json:"r"`
	}{kind, text, r.embedding, r.mapping, r.remap})
	return "canon:" + string(kind) + ":" + hex.EncodeToString(h.Sum(nil))
}

// cached runs compute through the cache when one is configured and reports
// whether the value came from the cache.
func (s *serviceImpl) cached(ctx context.Context, kind dto.Kind, key string, ttl time.Duration, dest interface{}, compute func() (interface{}, error)) (bool, error) {
	if s.cache == nil {
		v, err := compute()
		if err != nil {
			return false, err
		}
		return false, assign(v, dest)
	}
	// A hit is a value already stored; callers coalesced onto another
	// request's load inside GetOrSet still count as misses.
	if err := s.cache.Get(ctx, key, dest); err == nil {
		s.metrics.RecordCache(string(kind), true)
		return true, nil
	}
	s.metrics.RecordCache(string(kind), false)
	return false, s.cache.GetOrSet(ctx, key, dest, ttl, func(context.Context) (interface{}, error) {
		return compute()
	})
}

func assign(v interface{}, dest interface{}) error {
	switch d := dest.(type) {
	case *dto.PatternResponse:
		*d = *v.(*dto.PatternResponse)
	case *dto.ReactionResponse:
		*d = *v.(*dto.ReactionResponse)
	default:
		return errors.Internal("unsupported cache destination")
	}
	return nil
}

func (s *serviceImpl) CanonicalizePattern(ctx context.Context, req *dto.PatternRequest) (*dto.PatternResponse, error) {
	if req == nil {
		return nil, errors.InvalidParam("request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, errors.InvalidParam(err.Error())
	}
	start := time.Now()
	r := s.resolve(req.Options)

	var resp dto.PatternResponse
	hit, err := s.cached(ctx, dto.KindPattern, cacheKey(dto.KindPattern, req.Pattern, r), r.cacheTTL, &resp, func() (interface{}, error) {
		return s.pattern(req.Pattern, r)
	})
	s.metrics.RecordCanon(prometheus.KindPattern, err, time.Since(start))
	if err != nil {
		s.recordError(err)
		return nil, err
	}
	resp.Cached = hit
	return &resp, nil
}

func (s *serviceImpl) pattern(text string, r resolved) (*dto.PatternResponse, error) {
	atoms, err := countAtoms(text)
	if err != nil {
		return nil, err
	}
	if r.maxAtoms > 0 && atoms > r.maxAtoms {
		return nil, errors.Newf(errors.ErrCodePatternTooLarge, "pattern has %d atoms, limit is %d", atoms, r.maxAtoms)
	}
	res, err := engine.CanonicalizePattern(text, r.opts...)
	if err != nil {
		return nil, err
	}

	resp := &dto.PatternResponse{
		Input:     text,
		Canonical: res.Text,
		Unmapped:  res.Unmapped,
		Embedding: r.embedding,
	}
	expanded, ties := 0, 0
	for _, f := range res.Fragments {
		resp.Fragments = append(resp.Fragments, dto.FragmentInfo{
			Text:     f.Text,
			Score:    f.Score.String(),
			Expanded: f.Stats.Expanded,
			Ties:     f.Stats.Ties,
		})
		expanded += f.Stats.Expanded
		if f.Stats.Ties > ties {
			ties = f.Stats.Ties
		}
	}
	s.metrics.RecordSearch(prometheus.KindPattern, atoms, expanded, ties)
	return resp, nil
}

func (s *serviceImpl) CanonicalizeReaction(ctx context.Context, req *dto.ReactionRequest) (*dto.ReactionResponse, error) {
	if req == nil {
		return nil, errors.InvalidParam("request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, errors.InvalidParam(err.Error())
	}
	start := time.Now()
	r := s.resolve(req.Options)

	var resp dto.ReactionResponse
	hit, err := s.cached(ctx, dto.KindReaction, cacheKey(dto.KindReaction, req.Reaction, r), r.cacheTTL, &resp, func() (interface{}, error) {
		return s.reaction(req.Reaction, r)
	})
	s.metrics.RecordCanon(prometheus.KindReaction, err, time.Since(start))
	if err != nil {
		s.recordError(err)
		return nil, err
	}
	resp.Cached = hit
	return &resp, nil
}

func (s *serviceImpl) reaction(text string, r resolved) (*dto.ReactionResponse, error) {
	rxn, err := smarts.SplitReaction(text)
	if err != nil {
		return nil, err
	}
	atoms := 0
	for _, zone := range [][]smarts.Component{rxn.Reactants, rxn.Agents, rxn.Products} {
		for _, comp := range zone {
			for _, frag := range comp {
				n, err := countAtoms(frag)
				if err != nil {
					return nil, err
				}
				atoms += n
			}
		}
	}
	if r.maxAtoms > 0 && atoms > r.maxAtoms {
		return nil, errors.Newf(errors.ErrCodePatternTooLarge, "reaction has %d atoms, limit is %d", atoms, r.maxAtoms)
	}

	res, err := engine.CanonicalizeReactionDetail(text, r.opts...)
	if err != nil {
		return nil, err
	}
	expanded, ties := 0, 0
	for _, zone := range []engine.Zone{res.Reactants, res.Agents, res.Products} {
		for _, c := range zone {
			for _, f := range c.Fragments {
				expanded += f.Stats.Expanded
				if f.Stats.Ties > ties {
					ties = f.Stats.Ties
				}
			}
		}
	}
	s.metrics.RecordSearch(prometheus.KindReaction, atoms, expanded, ties)
	return &dto.ReactionResponse{
		Input:     text,
		Canonical: res.Text,
		Reactants: res.Reactants.Texts(),
		Agents:    res.Agents.Texts(),
		Products:  res.Products.Texts(),
		Embedding: r.embedding,
	}, nil
}

func (s *serviceImpl) Compare(ctx context.Context, req *dto.CompareRequest) (*dto.CompareResponse, error) {
	if req == nil {
		return nil, errors.InvalidParam("request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, errors.InvalidParam(err.Error())
	}
	start := time.Now()
	a, err := s.CanonicalizePattern(ctx, &dto.PatternRequest{Pattern: req.A, Options: req.Options})
	if err == nil {
		var b *dto.PatternResponse
		b, err = s.CanonicalizePattern(ctx, &dto.PatternRequest{Pattern: req.B, Options: req.Options})
		if err == nil {
			s.metrics.RecordCanon(prometheus.KindCompare, nil, time.Since(start))
			return &dto.CompareResponse{
				Equal:      a.Canonical == b.Canonical,
				CanonicalA: a.Canonical,
				CanonicalB: b.Canonical,
			}, nil
		}
	}
	s.metrics.RecordCanon(prometheus.KindCompare, err, time.Since(start))
	return nil, err
}

// CanonicalizeBatch canonicalizes every item on a bounded worker pool. Item
// failures are reported per item; only an invalid request or a cancelled
// context fails the whole batch.
func (s *serviceImpl) CanonicalizeBatch(ctx context.Context, req *dto.BatchRequest) (*dto.BatchResponse, error) {
	if req == nil {
		return nil, errors.InvalidParam("request is required")
	}
	cfg := s.Config()
	if err := req.Validate(cfg.BatchLimit); err != nil {
		return nil, errors.InvalidParam(err.Error())
	}
	start := time.Now()
	results, err := s.runItems(ctx, req.Items, req.Options, cfg.BatchWorkers)
	s.metrics.RecordCanon(prometheus.KindBatch, err, time.Since(start))
	if err != nil {
		return nil, err
	}
	resp := &dto.BatchResponse{Results: results}
	for _, r := range results {
		if r.Failed() {
			resp.Failed++
		} else {
			resp.Succeeded++
		}
	}
	return resp, nil
}

func (s *serviceImpl) runItems(ctx context.Context, items []dto.BatchItem, opts dto.Options, workers int) ([]dto.BatchResult, error) {
	if workers < 1 {
		workers = 1
	}
	results := make([]dto.BatchResult, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = s.runItem(gctx, item, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTimeout, "batch interrupted")
	}
	return results, nil
}

func (s *serviceImpl) runItem(ctx context.Context, item dto.BatchItem, opts dto.Options) dto.BatchResult {
	out := dto.BatchResult{ID: item.ID, Kind: item.Kind, Input: item.Text}
	var err error
	switch item.Kind {
	case dto.KindReaction:
		var res *dto.ReactionResponse
		if res, err = s.CanonicalizeReaction(ctx, &dto.ReactionRequest{Reaction: item.Text, Options: opts}); err == nil {
			out.Canonical = res.Canonical
		}
	default:
		var res *dto.PatternResponse
		if res, err = s.CanonicalizePattern(ctx, &dto.PatternRequest{Pattern: item.Text, Options: opts}); err == nil {
			out.Canonical = res.Canonical
		}
	}
	if err != nil {
		out.ErrorCode = string(errors.GetCode(err))
		out.Error = err.Error()
	}
	return out
}

// RunJob canonicalizes a queued job. Failures are carried in the result so
// the job is never retried for bad input.
func (s *serviceImpl) RunJob(ctx context.Context, job *dto.Job) *dto.JobResult {
	out := &dto.JobResult{JobID: job.JobID}
	results, err := s.runItems(ctx, job.Items, job.Options, s.Config().BatchWorkers)
	if err != nil {
		results = make([]dto.BatchResult, len(job.Items))
		for i, item := range job.Items {
			results[i] = dto.BatchResult{
				ID: item.ID, Kind: item.Kind, Input: item.Text,
				ErrorCode: string(errors.GetCode(err)), Error: err.Error(),
			}
		}
	}
	out.Results = results
	for _, r := range results {
		if r.Failed() {
			out.Failed++
		} else {
			out.Succeeded++
		}
	}
	out.FinishedAt = time.Now().UTC()
	s.logger.Info("job finished",
		logging.String("job_id", job.JobID.String()),
		logging.Int("succeeded", out.Succeeded),
		logging.Int("failed", out.Failed))
	return out
}

func (s *serviceImpl) recordError(err error) {
	s.metrics.RecordError("canonicalization", string(errors.GetCode(err)))
}

// countAtoms parses text and returns its atom count.
func countAtoms(text string) (int, error) {
	mol, err := smarts.Parse(text)
	if err != nil {
		return 0, err
	}
	return mol.NumAtoms(), nil
}

//Personal.AI order the ending
