package web

import (
	"sync"

	"github.com/artpar/bizadmin/core/schema"
	"github.com/artpar/bizadmin/core/table"
)

// TableFactory creates the table of a module.
type TableFactory func(mod schema.ModuleConfig) *table.Table

// Tables keeps one long-lived table per module. A table is created the
// first time its module is opened and serves as that module's cache for
// the life of the process.
type Tables struct {
	catalog *schema.Catalog
	factory TableFactory

	mu     sync.Mutex
	tables map[string]*table.Table
}

// NewTables creates an empty table set.
func NewTables(catalog *schema.Catalog, factory TableFactory) *Tables {
	return &Tables{
		catalog: catalog,
		factory: factory,
		tables:  make(map[string]*table.Table),
	}
}

// Get returns the table of module key, creating it on first use.
func (s *Tables) Get(key string) (*table.Table, error) {
	mod, err := s.catalog.Lookup(key)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tables[key]; ok {
		return t, nil
	}
	t := s.factory(mod)
	s.tables[key] = t
	return t, nil
}

// Close closes every table. Later Get calls create fresh tables.
func (s *Tables) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, t := range s.tables {
		t.Close()
		delete(s.tables, key)
	}
}
