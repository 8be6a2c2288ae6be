package compiler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"

	"github.com/roach88/cyfilter/internal/cache"
	"github.com/roach88/cyfilter/internal/canonical"
	"github.com/roach88/cyfilter/internal/cypher"
	"github.com/roach88/cyfilter/internal/naming"
	"github.com/roach88/cyfilter/internal/optimize"
	"github.com/roach88/cyfilter/internal/predicate"
	"github.com/roach88/cyfilter/internal/schema"
	"github.com/roach88/cyfilter/internal/store"
	"github.com/roach88/cyfilter/internal/translate"
)

// Compiled is one compiled filter.
type Compiled struct {
	RunID       string
	Entity      string
	Fingerprint string

	// Strategy is the translator that produced Statement: general or
	// optimized, never auto.
	Strategy Strategy

	Statement string
	Params    map[string]any

	// FallbackReason is set when the optimized translator was tried first
	// and the general translator produced the statement.
	FallbackReason string

	// Cached reports that Statement came from the cache.
	Cached bool
}

// Compiler compiles filters against one schema.
//
// Thread-safety: Compiler is safe for concurrent use. The cache is
// mutex-guarded and the store serializes writes through one connection.
type Compiler struct {
	schema     *schema.Schema
	strategy   Strategy
	builder    *predicate.Builder
	translator *translate.Translator
	optimizer  *optimize.Optimizer
	logger     *slog.Logger
	cache      *cache.Cache[*Compiled]
	store      *store.Store
	runIDs     RunIDGenerator
}

// Option configures a Compiler.
type Option func(*config)

type config struct {
	strategy  Strategy
	maxDepth  int
	features  predicate.Features
	logger    *slog.Logger
	cacheSize int
	store     *store.Store
	runIDs    RunIDGenerator
}

// WithStrategy sets the strategy. Default: StrategyAuto.
func WithStrategy(s Strategy) Option {
	return func(c *config) { c.strategy = s }
}

// WithMaxDepth sets the input nesting limit. Default: predicate.DefaultMaxDepth.
func WithMaxDepth(n int) Option {
	return func(c *config) { c.maxDepth = n }
}

// WithFeatures sets the optional operators. Default: predicate.DefaultFeatures().
func WithFeatures(f predicate.Features) Option {
	return func(c *config) { c.features = f }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithCache enables a compiled-statement cache holding up to size entries.
func WithCache(size int) Option {
	return func(c *config) { c.cacheSize = size }
}

// WithStore records every compilation in s.
func WithStore(s *store.Store) Option {
	return func(c *config) { c.store = s }
}

// WithRunIDs sets the run ID generator. Default: UUIDv7Generator.
func WithRunIDs(g RunIDGenerator) Option {
	return func(c *config) { c.runIDs = g }
}

// New returns a Compiler over s.
func New(s *schema.Schema, opts ...Option) *Compiler {
	cfg := config{
		strategy: StrategyAuto,
		maxDepth: predicate.DefaultMaxDepth,
		features: predicate.DefaultFeatures(),
		logger:   slog.Default(),
		runIDs:   UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	builder := predicate.NewBuilder(predicate.WithFeatures(cfg.features), predicate.WithMaxDepth(cfg.maxDepth))
	c := &Compiler{
		schema:     s,
		strategy:   cfg.strategy,
		builder:    builder,
		translator: translate.New(),
		optimizer:  optimize.New(builder),
		logger:     cfg.logger,
		store:      cfg.store,
		runIDs:     cfg.runIDs,
	}
	if cfg.cacheSize > 0 {
		c.cache = cache.New[*Compiled](cfg.cacheSize, 0)
	}
	return c
}

// Strategy returns the configured strategy.
func (c *Compiler) Strategy() Strategy { return c.strategy }

// CacheStats returns cache statistics. ok is false when caching is off.
func (c *Compiler) CacheStats() (stats cache.Stats, ok bool) {
	if c.cache == nil {
		return cache.Stats{}, false
	}
	return c.cache.Stats(), true
}

// Compile compiles raw as a filter on the entity named entityName into a
// read returning the matching root elements.
//
// Errors:
//   - *UnknownEntityError if entityName is not declared
//   - *InvalidRootError if entityName names relationship properties
//   - predicate input errors (UnknownFieldError, TooDeepError, ...)
//   - *optimize.FallbackRequired under StrategyOptimized only
//   - store errors when a store is configured
func (c *Compiler) Compile(ctx context.Context, entityName string, raw map[string]any) (*Compiled, error) {
	return c.run(ctx, entityName, raw, nil)
}

// Aggregate compiles raw like Compile, but the read returns one row: the
// number of matching root elements as CountColumn plus one column per
// selection. Selections on unknown or relation fields fail with
// *predicate.UnknownFieldError, methods the field type does not support
// with *predicate.AggregationTypeMismatch.
func (c *Compiler) Aggregate(ctx context.Context, entityName string, raw map[string]any, selections []Selection) (*Compiled, error) {
	if selections == nil {
		selections = []Selection{}
	}
	return c.run(ctx, entityName, raw, selections)
}

func (c *Compiler) run(ctx context.Context, entityName string, raw map[string]any, selections []Selection) (*Compiled, error) {
	entity, err := ResolveRoot(c.schema, entityName)
	if err != nil {
		return nil, err
	}

	fingerprint, err := canonical.Fingerprint(entityName, raw)
	if err != nil {
		return nil, fmt.Errorf("fingerprint filter: %w", err)
	}

	runID := c.runIDs.Generate()
	log := c.logger.With(
		slog.String("run_id", runID),
		slog.String("entity", entityName),
		slog.String("fingerprint", fingerprint),
	)

	ret, err := returning(entity, selections)
	if err != nil {
		if predicate.IsAggregationTypeMismatch(err) {
			log.Warn("aggregation type mismatch", slog.String("error", err.Error()))
		}
		return nil, err
	}

	key := cache.Key(fingerprint, entityName, string(c.strategy), (&cypher.Statement{}).Add(ret).Cypher())
	var out *Compiled
	if c.cache != nil {
		if hit, ok := c.cache.Get(key); ok {
			out = hit.reissue(runID, true)
			log.Debug("compilation cache hit", slog.String("strategy", string(out.Strategy)))
		}
	}

	if out == nil {
		out, err = c.compile(entity, raw, ret, log)
		if err != nil {
			if predicate.IsAggregationTypeMismatch(err) {
				log.Warn("aggregation type mismatch", slog.String("error", err.Error()))
			}
			return nil, err
		}
		out.RunID = runID
		out.Entity = entityName
		out.Fingerprint = fingerprint
		if c.cache != nil {
			c.cache.Put(key, out.reissue("", false))
		}
	}

	log.Debug("compiled filter", slog.String("strategy", string(out.Strategy)), slog.Bool("cached", out.Cached))

	if c.store != nil {
		_, err := c.store.Write(ctx, store.Record{
			RunID:          out.RunID,
			Fingerprint:    out.Fingerprint,
			Entity:         out.Entity,
			Strategy:       string(out.Strategy),
			Statement:      out.Statement,
			Params:         out.Params,
			FallbackReason: out.FallbackReason,
		})
		if err != nil {
			return nil, fmt.Errorf("record compilation %s: %w", out.RunID, err)
		}
	}
	return out, nil
}

func (c *Compiler) compile(entity schema.Entity, raw map[string]any, ret *cypher.Return, log *slog.Logger) (*Compiled, error) {
	switch c.strategy {
	case StrategyGeneral:
		log.Debug("strategy selected", slog.String("strategy", string(StrategyGeneral)))
		return c.general(entity, raw, ret)
	case StrategyOptimized:
		log.Debug("strategy selected", slog.String("strategy", string(StrategyOptimized)))
		return c.optimized(entity, raw, ret)
	case StrategyAuto:
		out, err := c.optimized(entity, raw, ret)
		var fb *optimize.FallbackRequired
		if !errors.As(err, &fb) {
			return out, err
		}
		log.Info("optimized translator fell back", slog.String("reason", fb.Reason))
		out, err = c.general(entity, raw, ret)
		if err != nil {
			return nil, err
		}
		out.FallbackReason = fb.Reason
		return out, nil
	}
	return nil, fmt.Errorf("unknown strategy %q", c.strategy)
}

func (c *Compiler) general(entity schema.Entity, raw map[string]any, ret *cypher.Return) (*Compiled, error) {
	tree, err := c.builder.Build(entity, raw)
	if err != nil {
		return nil, err
	}
	res, err := c.translator.Compile(tree, naming.Root, naming.NewScope(naming.Root))
	if err != nil {
		return nil, err
	}
	return &Compiled{
		Strategy:  StrategyGeneral,
		Statement: filterStatement(entity, res).Add(ret).Cypher(),
		Params:    res.Params.Map(),
	}, nil
}

func (c *Compiler) optimized(entity schema.Entity, raw map[string]any, ret *cypher.Return) (*Compiled, error) {
	plan, err := c.optimizer.Compile(entity, raw)
	if err != nil {
		return nil, err
	}
	stmt := plan.Statement().Add(ret)
	return &Compiled{
		Strategy:  StrategyOptimized,
		Statement: stmt.Cypher(),
		Params:    plan.Params.Map(),
	}, nil
}

// filterStatement wraps a general translation of a filter on entity into
// the clauses selecting the matching root elements. Interface and union
// roots match unlabeled and are restricted by a label predicate.
func filterStatement(entity schema.Entity, res *translate.Result) *cypher.Statement {
	stmt := &cypher.Statement{}
	cond := cypher.And(translate.LabelPredicate(naming.Root, entity), res.Condition)
	match := &cypher.Match{Pattern: translate.NodePattern(naming.Root, entity)}

	if len(res.Subqueries) == 0 {
		match.Where = cond
		stmt.Add(match)
	} else {
		stmt.Add(match)
		for _, sub := range res.Subqueries {
			stmt.Add(sub)
		}
		if cond != nil {
			stmt.Add(&cypher.With{Where: cond})
		}
	}
	return stmt
}

// reissue copies a compilation under a new run ID so callers never share
// a Params map with the cache.
func (c *Compiled) reissue(runID string, cached bool) *Compiled {
	out := *c
	out.RunID = runID
	out.Params = maps.Clone(c.Params)
	out.Cached = cached
	return &out
}
