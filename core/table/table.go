// Package table interprets a module's column list as a data table over the
// module's endpoint. The last successfully fetched list is the only state
// used for rendering, sorting and filtering; every successful write
// re-fetches it from the backend.
package table

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/artpar/bizadmin/adapters/metrics"
	"github.com/artpar/bizadmin/core/events"
	"github.com/artpar/bizadmin/core/form"
	"github.com/artpar/bizadmin/core/formatter"
	"github.com/artpar/bizadmin/core/schema"
)

// Status of the cached list.
type Status uint8

const (
	// Idle means nothing has been fetched yet.
	Idle Status = iota
	Loading
	Failed
	Empty
	Ready
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Failed:
		return "failed"
	case Empty:
		return "empty"
	case Ready:
		return "ready"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

var (
	// ErrClosed is returned by operations on a closed table.
	ErrClosed = errors.New("table is closed")

	// ErrRecordNotFound is returned when an id is not in the cache.
	ErrRecordNotFound = errors.New("record not found")
)

// Row operations.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// MutationError wraps a failed write with the operation it belonged to.
type MutationError struct {
	Op  string
	Err error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("Failed to %s record: %v", e.Op, e.Err)
}

func (e *MutationError) Unwrap() error {
	return e.Err
}

// Client is the backend surface a table needs.
type Client interface {
	FetchAll(ctx context.Context, endpoint string) ([]schema.Record, error)
	Create(ctx context.Context, endpoint string, record schema.Record) (schema.Record, error)
	Update(ctx context.Context, endpoint, id string, record schema.Record) (schema.Record, error)
	Remove(ctx context.Context, endpoint, id string) error
}

// Deps are the collaborators of a table.
type Deps struct {
	Client    Client
	Bus       *events.Bus
	Relations form.OptionSource
	Logger    zerolog.Logger
	Metrics   *metrics.Collector

	// CurrencySymbol defaults to "$".
	CurrencySymbol string

	// PageSize defaults to DefaultPageSize.
	PageSize int

	// StaleAfter makes EnsureLoaded re-fetch a list older than this.
	// Zero keeps the list until the next explicit Load or write.
	StaleAfter time.Duration

	// Now defaults to time.Now.
	Now func() time.Time
}

// Table holds one module's cached list.
type Table struct {
	mod       schema.ModuleConfig
	client    Client
	bus       *events.Bus
	relations form.OptionSource
	logger    zerolog.Logger
	metrics   *metrics.Collector
	cells     formatter.Cells
	pageSize  int
	stale     time.Duration
	now       func() time.Time

	// life ends on Close; every backend call is tied to it.
	life   context.Context
	cancel context.CancelFunc

	mu       sync.RWMutex
	records  []schema.Record
	status   Status
	err      error
	loadedAt time.Time
}

// New creates a table for a module. Nothing is fetched until Load.
func New(mod schema.ModuleConfig, deps Deps) *Table {
	life, cancel := context.WithCancel(context.Background())
	pageSize := deps.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Table{
		mod:       mod,
		client:    deps.Client,
		bus:       deps.Bus,
		relations: deps.Relations,
		logger:    deps.Logger.With().Str("module", mod.Key).Logger(),
		metrics:   deps.Metrics,
		cells:     formatter.NewCells(deps.CurrencySymbol),
		pageSize:  pageSize,
		stale:     deps.StaleAfter,
		now:       now,
		life:      life,
		cancel:    cancel,
	}
}

// Module returns the module configuration.
func (t *Table) Module() schema.ModuleConfig {
	return t.mod
}

// Status returns the cache status and, when Failed, the load error.
func (t *Table) Status() (Status, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status, t.err
}

// LoadedAt returns when the cache was last replaced.
func (t *Table) LoadedAt() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.loadedAt
}

// Close cancels in-flight requests. Results that arrive afterwards are
// discarded and further calls return ErrClosed.
func (t *Table) Close() {
	t.cancel()
}

// Load fetches the endpoint and replaces the cache. If the table is closed
// or ctx ends before the response arrives, the response is discarded.
// Concurrent loads are not ordered: the last to finish wins.
func (t *Table) Load(ctx context.Context) error {
	ctx, done, err := t.scope(ctx)
	if err != nil {
		return err
	}
	defer done()

	t.mu.Lock()
	prev := t.status
	t.status = Loading
	t.mu.Unlock()

	records, err := t.client.FetchAll(ctx, t.mod.Endpoint)

	if cerr := t.discarded(ctx); cerr != nil {
		t.mu.Lock()
		if t.status == Loading {
			t.status = prev
		}
		t.mu.Unlock()
		t.logger.Debug().Err(cerr).Msg("discarding table load")
		return cerr
	}

	t.countLoad(err)
	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		t.status = Failed
		t.err = err
		t.logger.Warn().Err(err).Msg("table load failed")
		return err
	}
	t.records = records
	t.err = nil
	t.loadedAt = t.now()
	if len(records) == 0 {
		t.status = Empty
	} else {
		t.status = Ready
	}
	return nil
}

// EnsureLoaded loads the table unless the cache is usable. A failed load is
// retried, and a list older than StaleAfter is re-fetched.
func (t *Table) EnsureLoaded(ctx context.Context) error {
	st, _ := t.Status()
	switch st {
	case Idle, Failed:
		return t.Load(ctx)
	case Ready, Empty:
		if t.stale > 0 && t.now().Sub(t.LoadedAt()) >= t.stale {
			return t.Load(ctx)
		}
	}
	return nil
}

// Record returns the cached record with the given id.
func (t *Table) Record(id string) (schema.Record, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, rec := range t.records {
		if rid, ok := rec.ID(); ok && rid == id {
			return rec, true
		}
	}
	return nil, false
}

// Create posts a new record, then re-fetches the cache.
func (t *Table) Create(ctx context.Context, record schema.Record) (schema.Record, error) {
	return t.mutate(ctx, OpCreate, "", func(ctx context.Context) (schema.Record, error) {
		return t.client.Create(ctx, t.mod.Endpoint, record)
	})
}

// Update replaces a record, then re-fetches the cache.
func (t *Table) Update(ctx context.Context, id string, record schema.Record) (schema.Record, error) {
	return t.mutate(ctx, OpUpdate, id, func(ctx context.Context) (schema.Record, error) {
		return t.client.Update(ctx, t.mod.Endpoint, id, record)
	})
}

// Delete removes a record, then re-fetches the cache. Confirmation is the
// caller's job.
func (t *Table) Delete(ctx context.Context, id string) error {
	_, err := t.mutate(ctx, OpDelete, id, func(ctx context.Context) (schema.Record, error) {
		return nil, t.client.Remove(ctx, t.mod.Endpoint, id)
	})
	return err
}

// mutate runs a write. On failure the cache is untouched. On success an
// event is published and the cache is re-fetched; a failed re-fetch shows
// up in Status, not in the returned error, because the write itself
// succeeded.
func (t *Table) mutate(ctx context.Context, op, id string, call func(context.Context) (schema.Record, error)) (schema.Record, error) {
	sctx, done, err := t.scope(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	rec, err := call(sctx)
	if t.metrics != nil {
		t.metrics.TableMutations.WithLabelValues(t.mod.Key, op, metrics.Result(err)).Inc()
	}
	if err != nil {
		t.logger.Warn().Err(err).Str("op", op).Str("id", id).Msg("mutation failed")
		return nil, &MutationError{Op: op, Err: err}
	}

	if id == "" {
		id, _ = rec.ID()
	}
	t.logger.Info().Str("op", op).Str("id", id).Msg("record saved")
	if t.bus != nil {
		t.bus.Publish(sctx, events.NewEvent(t.mod.Key, eventAction(op), id, rec))
	}

	if err := t.Load(ctx); err != nil && !errors.Is(err, ErrClosed) {
		t.logger.Warn().Err(err).Str("op", op).Msg("reload after mutation failed")
	}
	return rec, nil
}

// NewForm returns an empty form for adding a record.
func (t *Table) NewForm() *form.Form {
	return form.New(t.mod.Fields(), nil, t.formOptions())
}

// EditForm returns a form pre-filled from the cached record. The cache is
// loaded first if it never was.
func (t *Table) EditForm(ctx context.Context, id string) (*form.Form, error) {
	if err := t.EnsureLoaded(ctx); err != nil {
		return nil, err
	}
	rec, ok := t.Record(id)
	if !ok {
		return nil, fmt.Errorf("%s %q: %w", t.mod.Key, id, ErrRecordNotFound)
	}
	return form.New(t.mod.Fields(), rec, t.formOptions()), nil
}

func (t *Table) formOptions() form.Options {
	return form.Options{Relations: t.relations, CurrencySymbol: t.cells.Symbol}
}

// scope derives a context that ends with either ctx or the table.
func (t *Table) scope(ctx context.Context) (context.Context, func(), error) {
	if t.life.Err() != nil {
		return nil, nil, ErrClosed
	}
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(t.life, cancel)
	return ctx, func() {
		stop()
		cancel()
	}, nil
}

// discarded reports why a response must be dropped, if it must.
func (t *Table) discarded(ctx context.Context) error {
	if t.life.Err() != nil {
		return ErrClosed
	}
	return ctx.Err()
}

func (t *Table) countLoad(err error) {
	if t.metrics != nil {
		t.metrics.TableLoads.WithLabelValues(t.mod.Key, metrics.Result(err)).Inc()
	}
}

func eventAction(op string) string {
	switch op {
	case OpCreate:
		return events.Created
	case OpUpdate:
		return events.Updated
	case OpDelete:
		return events.Deleted
	default:
		panic("table: unknown op " + op)
	}
}
