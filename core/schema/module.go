// Package schema defines the declarative module catalog that drives every
// table, form and navigation entry of the admin.
// A module describes one business entity managed through a REST endpoint.
package schema

import (
	"fmt"
	"strconv"
)

// ModuleConfig describes one manageable entity type.
type ModuleConfig struct {
	// Key is the unique, stable identifier of the module (e.g. "inventory").
	Key string `json:"key" yaml:"key"`

	// Title is the human-readable label.
	Title string `json:"title" yaml:"title"`

	// Endpoint is the URL path used for CRUD operations.
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	Table TableDef `json:"table" yaml:"table"`
	Form  FormDef  `json:"form" yaml:"form"`
}

// TableDef lists the displayed columns in order.
type TableDef struct {
	Columns []ColumnDef `json:"columns" yaml:"columns"`
}

// FormDef lists the form inputs in order.
type FormDef struct {
	Fields []FieldDef `json:"fields" yaml:"fields"`
}

// ColumnDef is one displayed, optionally sortable and searchable attribute.
type ColumnDef struct {
	Key      string     `json:"key" yaml:"key"`
	Title    string     `json:"title" yaml:"title"`
	Type     ColumnKind `json:"type" yaml:"type" swaggertype:"string"`
	Sorter   bool       `json:"sorter" yaml:"sorter"`
	Search   bool       `json:"search" yaml:"search"`
	Relation *ColumnRef `json:"relation,omitempty" yaml:"relation,omitempty"`
}

// ColumnRef points a column at another module. The raw value is an
// object (or list of objects) and ValueField names the attribute to show.
type ColumnRef struct {
	Module     string `json:"module" yaml:"module"`
	ValueField string `json:"valueField" yaml:"valueField"`
}

// FieldDef is one form input.
type FieldDef struct {
	Key         string         `json:"key" yaml:"key"`
	Label       string         `json:"label" yaml:"label"`
	Type        FieldKind      `json:"type" yaml:"type" swaggertype:"string"`
	Required    bool           `json:"required" yaml:"required"`
	Relation    *FieldRelation `json:"relation,omitempty" yaml:"relation,omitempty"`
	Options     []Option       `json:"options,omitempty" yaml:"options,omitempty"`
	Min         *float64       `json:"min,omitempty" yaml:"min,omitempty"`
	Max         *float64       `json:"max,omitempty" yaml:"max,omitempty"`
	Placeholder string         `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
}

// FieldRelation populates a field from the related module's full list.
// Value names the attribute used as option label; the record id is the option value.
type FieldRelation struct {
	Module string `json:"module" yaml:"module"`
	Value  string `json:"value" yaml:"value"`
}

// Option is a static choice of a select field.
type Option struct {
	Value any    `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// Column returns the column with the given key.
func (m ModuleConfig) Column(key string) (ColumnDef, bool) {
	for _, c := range m.Table.Columns {
		if c.Key == key {
			return c, true
		}
	}
	return ColumnDef{}, false
}

// Fields returns the form fields. A module without a form reuses its
// columns as text-like inputs.
func (m ModuleConfig) Fields() []FieldDef {
	if len(m.Form.Fields) > 0 {
		return m.Form.Fields
	}
	fields := make([]FieldDef, 0, len(m.Table.Columns))
	for _, c := range m.Table.Columns {
		f := FieldDef{
			Key:   c.Key,
			Label: c.Title,
			Type:  FieldKindFor(c.Type),
		}
		if c.Relation != nil {
			f.Relation = &FieldRelation{Module: c.Relation.Module, Value: c.Relation.ValueField}
		} else if f.Type.HasOptions() {
			// arrays without a relation have nothing to pick from
			f.Type = FieldText
		}
		fields = append(fields, f)
	}
	return fields
}

// Record is an opaque mapping of attribute keys to values as exchanged
// with the backend. The backend owns identity via "id".
type Record map[string]any

// ID returns the record identifier rendered as a string.
func (r Record) ID() (string, bool) {
	v, ok := r["id"]
	if !ok || v == nil {
		return "", false
	}
	s := FormatID(v)
	return s, s != ""
}

// FormatID renders an identifier value (string or JSON number) for use in
// URLs and option values.
func FormatID(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		if id == float64(int64(id)) {
			return strconv.FormatInt(int64(id), 10)
		}
		return strconv.FormatFloat(id, 'f', -1, 64)
	case int:
		return strconv.Itoa(id)
	case int64:
		return strconv.FormatInt(id, 10)
	case nil:
		return ""
	default:
		return fmt.Sprint(id)
	}
}
