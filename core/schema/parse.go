package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/artpar/bizadmin/core/convention"
)

// Document is the static catalog document: navigation plus module schemas.
type Document struct {
	App     AppDef                  `json:"app" yaml:"app"`
	Modules map[string]ModuleConfig `json:"modules" yaml:"modules"`
}

// AppDef holds application-wide UI definitions.
type AppDef struct {
	Navigation NavigationDef `json:"navigation" yaml:"navigation"`
}

// NavigationDef lists the navigation entries in display order.
type NavigationDef struct {
	Items []NavItem `json:"items" yaml:"items"`
}

// NavItem is one navigation link. Key names the module the link opens,
// if any.
type NavItem struct {
	Path  string `json:"path" yaml:"path"`
	Key   string `json:"key" yaml:"key"`
	Label string `json:"label" yaml:"label"`
	Icon  string `json:"icon,omitempty" yaml:"icon,omitempty"`
}

// Format is the encoding of a catalog document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatForPath picks the document format from a file extension.
// Anything that is not .yaml/.yml is read as JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// ParseFile reads and validates a catalog document.
func ParseFile(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data, FormatForPath(path))
}

// Parse decodes a catalog document, applies defaults and validates it.
func Parse(data []byte, format Format) (Document, error) {
	var doc Document
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return Document{}, fmt.Errorf("parse yaml: %w", err)
		}
	case FormatJSON:
		if err := json.Unmarshal(data, &doc); err != nil {
			return Document{}, fmt.Errorf("parse json: %w", err)
		}
	default:
		return Document{}, fmt.Errorf("unsupported catalog format %q", format)
	}

	applyDefaults(&doc)

	if err := Validate(doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

func applyDefaults(doc *Document) {
	for key, mod := range doc.Modules {
		if mod.Key == "" {
			mod.Key = key
		}
		if mod.Title == "" {
			mod.Title = convention.Label(mod.Key)
		}
		for i := range mod.Table.Columns {
			c := &mod.Table.Columns[i]
			if c.Title == "" {
				c.Title = convention.Label(c.Key)
			}
		}
		for i := range mod.Form.Fields {
			f := &mod.Form.Fields[i]
			if f.Label == "" {
				f.Label = convention.Label(f.Key)
			}
		}
		doc.Modules[key] = mod
	}
	for i := range doc.App.Navigation.Items {
		item := &doc.App.Navigation.Items[i]
		if item.Label == "" {
			if mod, ok := doc.Modules[item.Key]; ok {
				item.Label = mod.Title
			} else {
				item.Label = convention.Label(item.Key)
			}
		}
	}
}

// Validate checks the catalog invariants: unique module keys, non-empty
// endpoints, flat attribute keys and resolvable relations.
func Validate(doc Document) error {
	var errs []string

	if len(doc.Modules) == 0 {
		errs = append(errs, "at least one module is required")
	}

	for key, mod := range doc.Modules {
		if !isValidKey(key) {
			errs = append(errs, fmt.Sprintf("module key %q is not a valid identifier", key))
		}
		if mod.Key != key {
			errs = append(errs, fmt.Sprintf("module %q declares mismatched key %q", key, mod.Key))
		}
		if strings.TrimSpace(mod.Endpoint) == "" {
			errs = append(errs, fmt.Sprintf("module %q: endpoint is required", key))
		}
		errs = append(errs, validateColumns(doc, key, mod.Table.Columns)...)
		errs = append(errs, validateFields(doc, key, mod.Form.Fields)...)
	}

	seenPaths := make(map[string]bool)
	for i, item := range doc.App.Navigation.Items {
		if item.Path == "" || !strings.HasPrefix(item.Path, "/") {
			errs = append(errs, fmt.Sprintf("navigation item %d: path %q must start with /", i, item.Path))
		}
		if seenPaths[item.Path] {
			errs = append(errs, fmt.Sprintf("navigation item %d: duplicate path %q", i, item.Path))
		}
		seenPaths[item.Path] = true
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func validateColumns(doc Document, module string, cols []ColumnDef) []string {
	var errs []string
	seen := make(map[string]bool)
	for _, c := range cols {
		if !isValidKey(c.Key) {
			errs = append(errs, fmt.Sprintf("module %q: column key %q must be a flat identifier", module, c.Key))
		}
		if seen[c.Key] {
			errs = append(errs, fmt.Sprintf("module %q: duplicate column %q", module, c.Key))
		}
		seen[c.Key] = true

		if c.Relation != nil {
			if _, ok := doc.Modules[c.Relation.Module]; !ok {
				errs = append(errs, fmt.Sprintf("module %q: column %q relates to unknown module %q", module, c.Key, c.Relation.Module))
			}
			if c.Relation.ValueField == "" {
				errs = append(errs, fmt.Sprintf("module %q: column %q relation requires valueField", module, c.Key))
			}
		}
		if c.Type == ColumnRelation && c.Relation == nil {
			errs = append(errs, fmt.Sprintf("module %q: relation column %q requires relation", module, c.Key))
		}
	}
	return errs
}

func validateFields(doc Document, module string, fields []FieldDef) []string {
	var errs []string
	seen := make(map[string]bool)
	for _, f := range fields {
		if !isValidKey(f.Key) {
			errs = append(errs, fmt.Sprintf("module %q: field key %q must be a flat identifier", module, f.Key))
		}
		if seen[f.Key] {
			errs = append(errs, fmt.Sprintf("module %q: duplicate field %q", module, f.Key))
		}
		seen[f.Key] = true

		if f.Relation != nil {
			if _, ok := doc.Modules[f.Relation.Module]; !ok {
				errs = append(errs, fmt.Sprintf("module %q: field %q relates to unknown module %q", module, f.Key, f.Relation.Module))
			}
			if f.Relation.Value == "" {
				errs = append(errs, fmt.Sprintf("module %q: field %q relation requires value", module, f.Key))
			}
		}
		if f.Type.HasOptions() && f.Relation == nil && len(f.Options) == 0 {
			errs = append(errs, fmt.Sprintf("module %q: %s field %q requires relation or options", module, f.Type, f.Key))
		}
		if f.Min != nil && f.Max != nil && *f.Min > *f.Max {
			errs = append(errs, fmt.Sprintf("module %q: field %q has min greater than max", module, f.Key))
		}
	}
	return errs
}

// isValidKey accepts letters, digits, '_' and '-'; dots are rejected so
// keys stay flat.
func isValidKey(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_':
		case (c >= '0' && c <= '9') || c == '-':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
