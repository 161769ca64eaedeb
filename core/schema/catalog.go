package schema

import (
	"fmt"
	"sort"
)

// ModuleNotFound is returned when a route or relation references a module
// key that is not configured.
type ModuleNotFound struct {
	Key string
}

func (e *ModuleNotFound) Error() string {
	return fmt.Sprintf("module %q not found", e.Key)
}

// Catalog is the immutable, validated view of a catalog document.
// It is built once at startup and shared by reference.
type Catalog struct {
	modules    map[string]ModuleConfig
	order      []string
	navigation []NavItem
	byPath     map[string]string
}

// NewCatalog builds a catalog from a validated document.
func NewCatalog(doc Document) *Catalog {
	c := &Catalog{
		modules:    make(map[string]ModuleConfig, len(doc.Modules)),
		navigation: append([]NavItem(nil), doc.App.Navigation.Items...),
		byPath:     make(map[string]string),
	}
	for key, mod := range doc.Modules {
		c.modules[key] = mod
	}

	// Navigation order first, then remaining modules by key.
	seen := make(map[string]bool)
	for _, item := range c.navigation {
		if _, ok := c.modules[item.Key]; ok && !seen[item.Key] {
			c.order = append(c.order, item.Key)
			seen[item.Key] = true
		}
		if _, ok := c.modules[item.Key]; ok {
			c.byPath[item.Path] = item.Key
		}
	}
	var rest []string
	for key := range c.modules {
		if !seen[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	c.order = append(c.order, rest...)

	return c
}

// LoadCatalog parses a catalog file and builds the catalog.
func LoadCatalog(path string) (*Catalog, error) {
	doc, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	return NewCatalog(doc), nil
}

// Lookup returns the module with the given key.
func (c *Catalog) Lookup(key string) (ModuleConfig, error) {
	mod, ok := c.modules[key]
	if !ok {
		return ModuleConfig{}, &ModuleNotFound{Key: key}
	}
	return mod, nil
}

// ModuleForPath returns the module key a navigation path opens.
func (c *Catalog) ModuleForPath(path string) (string, bool) {
	key, ok := c.byPath[path]
	return key, ok
}

// Modules returns all modules, navigation order first.
func (c *Catalog) Modules() []ModuleConfig {
	out := make([]ModuleConfig, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, c.modules[key])
	}
	return out
}

// Navigation returns a copy of the configured navigation items.
func (c *Catalog) Navigation() []NavItem {
	return append([]NavItem(nil), c.navigation...)
}

// Len returns the number of configured modules.
func (c *Catalog) Len() int {
	return len(c.modules)
}
