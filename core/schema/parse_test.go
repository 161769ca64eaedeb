package schema

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const inventoryCatalog = `{
  "app": {
    "navigation": {
      "items": [
        {"path": "/inventory", "key": "inventory", "label": "Inventory", "icon": "box"},
        {"path": "/invoices", "key": "invoices"}
      ]
    }
  },
  "modules": {
    "inventory": {
      "title": "Inventory",
      "endpoint": "/api/inventory",
      "table": {
        "columns": [
          {"key": "name", "type": "text", "sorter": true, "search": true},
          {"key": "quantity", "type": "number", "sorter": true},
          {"key": "price", "type": "currency"}
        ]
      },
      "form": {
        "fields": [
          {"key": "name", "label": "Name", "type": "text", "required": true},
          {"key": "quantity", "type": "number", "required": true, "min": 0},
          {"key": "price", "type": "currency"}
        ]
      }
    },
    "invoices": {
      "endpoint": "/api/invoices",
      "table": {
        "columns": [
          {"key": "invoice_number", "sorter": true, "search": true},
          {"key": "items", "type": "array", "relation": {"module": "inventory", "valueField": "name"}},
          {"key": "created_at", "type": "date"}
        ]
      }
    }
  }
}`

func TestParse(t *testing.T) {
	doc, err := Parse([]byte(inventoryCatalog), FormatJSON)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	inv, ok := doc.Modules["inventory"]
	if !ok {
		t.Fatal("inventory module missing")
	}
	if inv.Key != "inventory" {
		t.Errorf("Key = %q, want inventory", inv.Key)
	}
	if len(inv.Table.Columns) != 3 {
		t.Fatalf("columns = %d, want 3", len(inv.Table.Columns))
	}
	if inv.Table.Columns[2].Type != ColumnCurrency {
		t.Errorf("price type = %v, want currency", inv.Table.Columns[2].Type)
	}
	if inv.Table.Columns[0].Title != "Name" {
		t.Errorf("derived title = %q, want Name", inv.Table.Columns[0].Title)
	}
	if inv.Form.Fields[1].Label != "Quantity" {
		t.Errorf("derived label = %q, want Quantity", inv.Form.Fields[1].Label)
	}
	if inv.Form.Fields[1].Min == nil || *inv.Form.Fields[1].Min != 0 {
		t.Error("quantity min should be 0")
	}

	invoices := doc.Modules["invoices"]
	if invoices.Title != "Invoices" {
		t.Errorf("derived module title = %q, want Invoices", invoices.Title)
	}
	if invoices.Table.Columns[0].Title != "Invoice Number" {
		t.Errorf("derived column title = %q", invoices.Table.Columns[0].Title)
	}
	if invoices.Table.Columns[0].Type != ColumnText {
		t.Errorf("missing column type should default to text, got %v", invoices.Table.Columns[0].Type)
	}

	if got := doc.App.Navigation.Items[1].Label; got != "Invoices" {
		t.Errorf("nav label = %q, want module title", got)
	}
}

func TestParseYAML(t *testing.T) {
	src := `
modules:
  customers:
    endpoint: /api/customers
    table:
      columns:
        - { key: name, sorter: true, search: true }
        - { key: gst_number }
    form:
      fields:
        - { key: name, required: true }
        - { key: tier, type: select, options: [{ value: 1, label: Gold }, { value: 2, label: Silver }] }
`
	doc, err := Parse([]byte(src), FormatYAML)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	mod := doc.Modules["customers"]
	if mod.Table.Columns[1].Title != "GST Number" {
		t.Errorf("title = %q, want GST Number", mod.Table.Columns[1].Title)
	}
	if mod.Form.Fields[1].Type != FieldSelect {
		t.Errorf("tier type = %v, want select", mod.Form.Fields[1].Type)
	}
	if len(mod.Form.Fields[1].Options) != 2 {
		t.Errorf("options = %d, want 2", len(mod.Form.Fields[1].Options))
	}
}

func TestParse_UnknownKind(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "column",
			src:  `{"modules":{"a":{"endpoint":"/a","table":{"columns":[{"key":"x","type":"money"}]}}}}`,
			want: "unknown column type",
		},
		{
			name: "field",
			src:  `{"modules":{"a":{"endpoint":"/a","form":{"fields":[{"key":"x","type":"checkbox"}]}}}}`,
			want: "unknown field type",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src), FormatJSON)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr string
	}{
		{
			name:    "no modules",
			src:     `{"modules":{}}`,
			wantErr: "at least one module",
		},
		{
			name:    "empty endpoint",
			src:     `{"modules":{"a":{"endpoint":" "}}}`,
			wantErr: "endpoint is required",
		},
		{
			name:    "mismatched key",
			src:     `{"modules":{"a":{"key":"b","endpoint":"/a"}}}`,
			wantErr: "mismatched key",
		},
		{
			name:    "dotted column",
			src:     `{"modules":{"a":{"endpoint":"/a","table":{"columns":[{"key":"customer.name"}]}}}}`,
			wantErr: "flat identifier",
		},
		{
			name:    "duplicate column",
			src:     `{"modules":{"a":{"endpoint":"/a","table":{"columns":[{"key":"x"},{"key":"x"}]}}}}`,
			wantErr: "duplicate column",
		},
		{
			name:    "unknown relation",
			src:     `{"modules":{"a":{"endpoint":"/a","form":{"fields":[{"key":"c","type":"select","relation":{"module":"ghost","value":"name"}}]}}}}`,
			wantErr: "unknown module",
		},
		{
			name:    "relation column without relation",
			src:     `{"modules":{"a":{"endpoint":"/a","table":{"columns":[{"key":"c","type":"relation"}]}}}}`,
			wantErr: "requires relation",
		},
		{
			name:    "select without source",
			src:     `{"modules":{"a":{"endpoint":"/a","form":{"fields":[{"key":"c","type":"select"}]}}}}`,
			wantErr: "requires relation or options",
		},
		{
			name:    "min above max",
			src:     `{"modules":{"a":{"endpoint":"/a","form":{"fields":[{"key":"q","type":"number","min":5,"max":1}]}}}}`,
			wantErr: "min greater than max",
		},
		{
			name:    "relative nav path",
			src:     `{"app":{"navigation":{"items":[{"path":"a","key":"a"}]}},"modules":{"a":{"endpoint":"/a"}}}`,
			wantErr: "must start with /",
		},
		{
			name:    "duplicate nav path",
			src:     `{"app":{"navigation":{"items":[{"path":"/a","key":"a"},{"path":"/a","key":"a"}]}},"modules":{"a":{"endpoint":"/a"}}}`,
			wantErr: "duplicate path",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src), FormatJSON)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestFormatForPath(t *testing.T) {
	tests := map[string]Format{
		"catalog.json": FormatJSON,
		"catalog.yaml": FormatYAML,
		"catalog.YML":  FormatYAML,
		"catalog":      FormatJSON,
	}
	for path, want := range tests {
		if got := FormatForPath(path); got != want {
			t.Errorf("FormatForPath(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	if err := os.WriteFile(path, []byte(inventoryCatalog), 0o644); err != nil {
		t.Fatal(err)
	}

	cat, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog failed: %v", err)
	}
	if cat.Len() != 2 {
		t.Errorf("Len = %d, want 2", cat.Len())
	}

	mods := cat.Modules()
	if mods[0].Key != "inventory" || mods[1].Key != "invoices" {
		t.Errorf("module order = %s,%s, want navigation order", mods[0].Key, mods[1].Key)
	}

	if key, ok := cat.ModuleForPath("/invoices"); !ok || key != "invoices" {
		t.Errorf("ModuleForPath = %q,%v", key, ok)
	}

	_, err = cat.Lookup("payroll")
	var notFound *ModuleNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("Lookup error = %v, want ModuleNotFound", err)
	}
	if notFound.Key != "payroll" {
		t.Errorf("Key = %q, want payroll", notFound.Key)
	}
}

func TestLoadCatalog_MissingFile(t *testing.T) {
	if _, err := LoadCatalog(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadCatalog_Shipped(t *testing.T) {
	c, err := LoadCatalog(filepath.Join("..", "..", "catalog.json"))
	if err != nil {
		t.Fatalf("shipped catalog: %v", err)
	}
	if c.Len() != 5 {
		t.Errorf("Len() = %d, want 5", c.Len())
	}
	if key, ok := c.ModuleForPath("/invoices"); !ok || key != "invoices" {
		t.Errorf("ModuleForPath(/invoices) = %q, %v", key, ok)
	}
	vendors, _ := c.Lookup("vendors")
	if got := vendors.Fields()[1].Label; got != "Contact Person" {
		t.Errorf("derived label = %q", got)
	}
}
