// Package relation resolves the option lists of form fields that point at
// another module. Lists are fetched in parallel, shared between concurrent
// callers and cached per module until a write to that module invalidates
// them.
package relation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/artpar/bizadmin/adapters/metrics"
	"github.com/artpar/bizadmin/core/events"
	"github.com/artpar/bizadmin/core/formatter"
	"github.com/artpar/bizadmin/core/schema"
)

// DefaultTTL bounds how long a related list is reused without a write.
const DefaultTTL = 30 * time.Second

// Fetcher lists every record of an endpoint.
type Fetcher interface {
	FetchAll(ctx context.Context, endpoint string) ([]schema.Record, error)
}

// Modules resolves module keys to their configuration.
type Modules interface {
	Lookup(key string) (schema.ModuleConfig, error)
}

// Options configures a Loader.
type Options struct {
	TTL     time.Duration
	Bus     *events.Bus
	Logger  zerolog.Logger
	Metrics *metrics.Collector
}

// Loader fetches and caches related record lists.
type Loader struct {
	modules Modules
	client  Fetcher
	cache   *cache.Cache
	group   singleflight.Group
	logger  zerolog.Logger
	metrics *metrics.Collector

	// gens counts invalidations per module. A fetch only fills the cache
	// if no invalidation happened while it was in flight.
	mu   sync.Mutex
	gens map[string]uint64
}

// NewLoader creates a loader. When opts.Bus is set, every published write
// event drops the cached list of the module it names.
func NewLoader(modules Modules, client Fetcher, opts Options) *Loader {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	l := &Loader{
		modules: modules,
		client:  client,
		cache:   cache.New(ttl, 2*ttl),
		logger:  opts.Logger,
		metrics: opts.Metrics,
		gens:    make(map[string]uint64),
	}
	if opts.Bus != nil {
		opts.Bus.Subscribe("*", func(ctx context.Context, ev events.Event) error {
			if ev.Module != "" {
				l.Invalidate(ev.Module)
			}
			return nil
		})
	}
	return l
}

// Records returns the full record list of a module. Concurrent callers
// share one fetch; a caller whose ctx ends stops waiting without failing
// the others.
func (l *Loader) Records(ctx context.Context, module string) ([]schema.Record, error) {
	if v, ok := l.cache.Get(module); ok {
		l.count(module, "hit")
		return v.([]schema.Record), nil
	}
	l.count(module, "miss")

	mod, err := l.modules.Lookup(module)
	if err != nil {
		return nil, err
	}

	gen := l.generation(module)
	fetchCtx := context.WithoutCancel(ctx)
	ch := l.group.DoChan(fmt.Sprintf("%s#%d", module, gen), func() (any, error) {
		if v, ok := l.cache.Get(module); ok {
			return v, nil
		}
		records, err := l.client.FetchAll(fetchCtx, mod.Endpoint)
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		if l.gens[module] == gen {
			l.cache.SetDefault(module, records)
		}
		l.mu.Unlock()
		return records, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]schema.Record), nil
	}
}

// Invalidate drops the cached list of a module. A fetch already in flight
// still answers its callers but is not cached.
func (l *Loader) Invalidate(module string) {
	l.mu.Lock()
	l.gens[module]++
	l.cache.Delete(module)
	l.mu.Unlock()
	l.logger.Debug().Str("module", module).Msg("relation cache invalidated")
}

func (l *Loader) generation(module string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.gens[module]
}

// FieldOptions returns the choices of a related field: each record's id as
// value and its display attribute as label.
func (l *Loader) FieldOptions(ctx context.Context, rel schema.FieldRelation) ([]schema.Option, error) {
	records, err := l.Records(ctx, rel.Module)
	if err != nil {
		return nil, err
	}
	opts := make([]schema.Option, 0, len(records))
	for _, rec := range records {
		id, ok := rec.ID()
		if !ok {
			continue
		}
		label := formatter.Text(rec[rel.Value])
		if label == formatter.Placeholder {
			label = id
		}
		opts = append(opts, schema.Option{Value: rec["id"], Label: label})
	}
	return opts, nil
}

// Result holds the outcome of loading every related field of a form.
// A field appears in exactly one of the two maps.
type Result struct {
	Options map[string][]schema.Option
	Errors  map[string]error
}

// LoadFields fetches the options of all related fields in parallel and
// waits for every fetch to settle. One failing field never cancels the
// others; Wait reports the first failure for logging only.
func (l *Loader) LoadFields(ctx context.Context, fields []schema.FieldDef) Result {
	res := Result{
		Options: make(map[string][]schema.Option),
		Errors:  make(map[string]error),
	}
	var mu sync.Mutex
	var g errgroup.Group

	for _, f := range fields {
		if f.Relation == nil {
			continue
		}
		g.Go(func() error {
			opts, err := l.FieldOptions(ctx, *f.Relation)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				err = fmt.Errorf("load %s options: %w", f.Relation.Module, err)
				res.Errors[f.Key] = err
				return fmt.Errorf("field %s: %w", f.Key, err)
			}
			res.Options[f.Key] = opts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		l.logger.Warn().Err(err).Int("failed", len(res.Errors)).Msg("relation options unavailable")
	}
	return res
}

func (l *Loader) count(module, result string) {
	if l.metrics != nil {
		l.metrics.RelationLookups.WithLabelValues(module, result).Inc()
	}
}
