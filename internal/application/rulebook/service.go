// Package rulebook manages libraries of SMARTS rules keyed by canonical form:
// importing rule files, finding duplicates and looking patterns up.
package rulebook

import (
	"context"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"

	"github.com/turtacn/smartscanon/internal/application/canonicalization"
	"github.com/turtacn/smartscanon/internal/domain/rule"
	"github.com/turtacn/smartscanon/internal/infrastructure/database/redis"
	"github.com/turtacn/smartscanon/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/smartscanon/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/smartscanon/pkg/errors"
	dto "github.com/turtacn/smartscanon/pkg/types/canon"
)

// ErrLibraryDisabled is returned by operations that need the rule store when
// no database is configured.
var ErrLibraryDisabled = errors.New(errors.ErrCodeFeatureDisabled, "rule library storage is not configured")

// LockFactory returns the lock guarding imports into library.
type LockFactory func(library string) redis.Locker

// Service defines the rule library operations.
type Service interface {
	Import(ctx context.Context, req *dto.ImportRequest) (*dto.ImportResponse, error)
	Duplicates(ctx context.Context, rules []dto.RuleInput, embedding string) (*Analysis, error)
	Lookup(ctx context.Context, pattern, embedding string) (*dto.LookupResponse, error)
	List(ctx context.Context, filter rule.ListFilter) ([]*rule.Rule, int64, error)
}

// Deps are the collaborators of the service. Repo and Locks may be nil; the
// first disables Import, Lookup and List, the second disables locking.
type Deps struct {
	Canon   canonicalization.Service
	Repo    rule.Repository
	Locks   LockFactory
	Metrics *prometheus.CanonMetrics
	Logger  logging.Logger
}

// Analysis is the in-memory result of canonicalizing a rule set.
type Analysis struct {
	Embedding  string
	Unique     []Canonical
	Duplicates []dto.DuplicateGroup
	Errors     []dto.RuleError
}

// Canonical is one rule with its canonical text.
type Canonical struct {
	Input     dto.RuleInput
	Canonical string
}

type serviceImpl struct {
	canon   canonicalization.Service
	repo    rule.Repository
	locks   LockFactory
	metrics *prometheus.CanonMetrics
	logger  logging.Logger
}

// NewService creates the rulebook service.
func NewService(deps Deps) Service {
	if deps.Logger == nil {
		deps.Logger = logging.NewNopLogger()
	}
	return &serviceImpl{
		canon:   deps.Canon,
		repo:    deps.Repo,
		locks:   deps.Locks,
		metrics: deps.Metrics,
		logger:  deps.Logger.Named("rulebook"),
	}
}

// Normalize folds compatibility characters (full-width letters, ideographic
// spaces and the like) and trims the text.
func Normalize(text string) string {
	return strings.TrimSpace(norm.NFKC.String(text))
}

func (s *serviceImpl) embedding(name string) string {
	if name != "" {
		return name
	}
	return s.canon.Config().DefaultEmbedding
}

// Duplicates canonicalizes rules and groups the ones sharing a canonical
// form. The first rule of each group is kept as unique.
func (s *serviceImpl) Duplicates(ctx context.Context, rules []dto.RuleInput, embedding string) (*Analysis, error) {
	emb := s.embedding(embedding)
	canon, err := s.canonicalizeAll(ctx, rules, emb)
	if err != nil {
		return nil, err
	}

	a := &Analysis{Embedding: emb}
	seen := make(map[string]bool)
	names := make(map[string][]string)
	for i, in := range rules {
		c := canon[i]
		if c.err != nil {
			a.Errors = append(a.Errors, dto.RuleError{
				Name:    in.Name,
				Pattern: in.Pattern,
				Code:    string(errors.GetCode(c.err)),
				Error:   c.err.Error(),
			})
			continue
		}
		names[c.text] = append(names[c.text], ruleName(in, i))
		if seen[c.text] {
			continue
		}
		seen[c.text] = true
		a.Unique = append(a.Unique, Canonical{Input: in, Canonical: c.text})
	}
	for _, u := range a.Unique {
		if n := names[u.Canonical]; len(n) > 1 {
			a.Duplicates = append(a.Duplicates, dto.DuplicateGroup{Canonical: u.Canonical, Names: n})
		}
	}
	return a, nil
}

func ruleName(in dto.RuleInput, i int) string {
	if in.Name != "" {
		return in.Name
	}
	return "#" + strconv.Itoa(i+1)
}

type canonResult struct {
	text string
	err  error
}

func (s *serviceImpl) canonicalizeAll(ctx context.Context, rules []dto.RuleInput, emb string) ([]canonResult, error) {
	out := make([]canonResult, len(rules))
	workers := s.canon.Config().BatchWorkers
	if workers < 1 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	opts := dto.Options{Embedding: emb}
	for i, in := range rules {
		i, text := i, Normalize(in.Pattern)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = s.canonicalize(gctx, text, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTimeout, "rule canonicalization interrupted")
	}
	return out, nil
}

func (s *serviceImpl) canonicalize(ctx context.Context, text string, opts dto.Options) canonResult {
	if rule.KindOf(text) == rule.KindReaction {
		res, err := s.canon.CanonicalizeReaction(ctx, &dto.ReactionRequest{Reaction: text, Options: opts})
		if err != nil {
			return canonResult{err: err}
		}
		return canonResult{text: res.Canonical}
	}
	res, err := s.canon.CanonicalizePattern(ctx, &dto.PatternRequest{Pattern: text, Options: opts})
	if err != nil {
		return canonResult{err: err}
	}
	return canonResult{text: res.Canonical}
}

// Import canonicalizes the rules of a library and stores the unique ones.
// Rules whose canonical form is already stored for the library are counted
// as existing. Imports into one library are serialized by a distributed lock.
func (s *serviceImpl) Import(ctx context.Context, req *dto.ImportRequest) (*dto.ImportResponse, error) {
	if s.repo == nil {
		return nil, ErrLibraryDisabled
	}
	if req == nil {
		return nil, errors.InvalidParam("request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, errors.InvalidParam(err.Error())
	}
	library := Normalize(req.Library)
	start := time.Now()

	if s.locks != nil {
		lock := s.locks(library)
		if err := lock.Lock(ctx); err != nil {
			return nil, err
		}
		defer func() {
			if err := lock.Unlock(context.Background()); err != nil {
				s.logger.Warn("failed to release import lock", logging.String("library", library), logging.Err(err))
			}
		}()
	}

	a, err := s.Duplicates(ctx, req.Rules, req.Embedding)
	if err != nil {
		return nil, err
	}

	rules := make([]*rule.Rule, 0, len(a.Unique))
	for _, u := range a.Unique {
		r, err := rule.NewRule(library, u.Input.Name, Normalize(u.Input.Pattern), u.Canonical, a.Embedding, u.Input.Tags)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}

	var imported int64
	if len(rules) > 0 {
		if imported, err = s.repo.BulkInsert(ctx, rules); err != nil {
			return nil, err
		}
	}

	dups := 0
	for _, g := range a.Duplicates {
		dups += len(g.Names) - 1
	}
	s.metrics.RecordImport(library, int(imported), dups)
	s.logger.Info("rules imported",
		logging.String("library", library),
		logging.Int("total", len(req.Rules)),
		logging.Int64("imported", imported),
		logging.Int("duplicates", dups),
		logging.Int("errors", len(a.Errors)),
		logging.Duration("elapsed", time.Since(start)))

	return &dto.ImportResponse{
		Library:    library,
		Total:      len(req.Rules),
		Imported:   imported,
		Duplicates: a.Duplicates,
		Existing:   int64(len(rules)) - imported,
		Errors:     a.Errors,
	}, nil
}

// Lookup canonicalizes pattern and returns the stored rules with the same
// canonical form under the same embedding.
func (s *serviceImpl) Lookup(ctx context.Context, pattern, embedding string) (*dto.LookupResponse, error) {
	if s.repo == nil {
		return nil, ErrLibraryDisabled
	}
	text := Normalize(pattern)
	if text == "" {
		return nil, errors.InvalidParam("pattern is required")
	}
	emb := s.embedding(embedding)
	c := s.canonicalize(ctx, text, dto.Options{Embedding: emb})
	if c.err != nil {
		return nil, c.err
	}
	found, err := s.repo.FindByCanonical(ctx, c.text)
	if err != nil {
		return nil, err
	}
	resp := &dto.LookupResponse{Pattern: text, Canonical: c.text, Rules: []dto.RuleView{}}
	for _, r := range found {
		if r.Embedding == emb {
			resp.Rules = append(resp.Rules, ToView(r))
		}
	}
	return resp, nil
}

func (s *serviceImpl) List(ctx context.Context, filter rule.ListFilter) ([]*rule.Rule, int64, error) {
	if s.repo == nil {
		return nil, 0, ErrLibraryDisabled
	}
	if filter.Kind != "" && !filter.Kind.Valid() {
		return nil, 0, errors.InvalidParam("unknown rule kind").WithDetail(string(filter.Kind))
	}
	filter.Library = Normalize(filter.Library)
	return s.repo.List(ctx, filter)
}

// ToView converts a stored rule to its API form.
func ToView(r *rule.Rule) dto.RuleView {
	return dto.RuleView{
		ID:        r.ID.String(),
		Library:   r.Library,
		Name:      r.Name,
		Pattern:   r.Pattern,
		Canonical: r.Canonical,
		Kind:      dto.Kind(r.Kind),
		Embedding: r.Embedding,
		Tags:      r.Tags,
		CreatedAt: r.CreatedAt,
	}
}

//Personal.AI order the ending
