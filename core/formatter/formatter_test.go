package formatter

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/artpar/bizadmin/core/schema"
)

func inventoryModule() schema.ModuleConfig {
	return schema.ModuleConfig{
		Key:      "inventory",
		Title:    "Inventory",
		Endpoint: "/api/inventory",
		Table: schema.TableDef{Columns: []schema.ColumnDef{
			{Key: "name", Title: "Name", Sorter: true, Search: true},
			{Key: "quantity", Title: "Quantity", Type: schema.ColumnNumber},
			{Key: "price", Title: "Price", Type: schema.ColumnCurrency},
		}},
	}
}

func inventoryRecords() []schema.Record {
	return []schema.Record{
		{"id": float64(1), "name": "Widget", "quantity": float64(5), "price": 9.5},
		{"id": float64(2), "name": "Gadget", "quantity": float64(1200), "price": 1250.5},
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	if r.Default() != nil {
		t.Error("empty registry should have no default")
	}

	if err := r.Register(NewJSONFormatter()); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(NewJSONFormatter()); err == nil || !strings.Contains(err.Error(), "already registered") {
		t.Errorf("duplicate Register error = %v", err)
	}

	// table is the default name but not registered yet
	if f := r.Default(); f == nil || f.Name() != "json" {
		t.Errorf("fallback default = %v", f)
	}

	if err := r.SetDefault("xml"); err == nil {
		t.Error("SetDefault should reject unknown formatter")
	}
	r.Register(NewTableFormatter())
	if f := r.Default(); f.Name() != "table" {
		t.Errorf("Default = %q, want table", f.Name())
	}
	if got := r.List(); len(got) != 2 || got[0] != "json" || got[1] != "table" {
		t.Errorf("List = %v", got)
	}
}

func TestDefaultRegistry(t *testing.T) {
	for _, name := range []string{"table", "json", "yaml"} {
		if _, ok := Get(name); !ok {
			t.Errorf("%s formatter not registered", name)
		}
	}
	if Default().Name() != "table" {
		t.Errorf("Default = %q", Default().Name())
	}
}

func TestTableFormatter_FormatList(t *testing.T) {
	var buf bytes.Buffer
	f := NewTableFormatter()
	if err := f.FormatList(&buf, inventoryModule(), inventoryRecords(), FormatOptions{}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"ID", "NAME", "QUANTITY", "PRICE", "Widget", "$9.50", "1,200", "$1,250.50"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestTableFormatter_Options(t *testing.T) {
	var buf bytes.Buffer
	f := NewTableFormatter()
	opts := FormatOptions{NoHeader: true, Columns: []string{"name"}}
	if err := f.FormatList(&buf, inventoryModule(), inventoryRecords(), opts); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if strings.Contains(out, "NAME") {
		t.Error("header should be omitted")
	}
	if strings.Contains(out, "$9.50") {
		t.Error("price should be filtered out")
	}
	if strings.Count(out, "\n") != 2 {
		t.Errorf("expected 2 lines, got:\n%s", out)
	}
}

func TestTableFormatter_Empty(t *testing.T) {
	var buf bytes.Buffer
	NewTableFormatter().FormatList(&buf, inventoryModule(), nil, FormatOptions{})
	if !strings.Contains(buf.String(), "No records found.") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestTableFormatter_FormatRecord(t *testing.T) {
	var buf bytes.Buffer
	sym := NewCells("€")
	err := NewTableFormatter().FormatRecord(&buf, inventoryModule(), inventoryRecords()[0], FormatOptions{Cells: &sym})
	if err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "ID:") || !strings.Contains(out, "€9.50") {
		t.Errorf("output = %q", out)
	}
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := NewJSONFormatter().FormatList(&buf, inventoryModule(), inventoryRecords(), FormatOptions{Compact: true}); err != nil {
		t.Fatal(err)
	}
	var got struct {
		Module string           `json:"module"`
		Count  int              `json:"count"`
		Data   []map[string]any `json:"data"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid json: %v\n%s", err, buf.String())
	}
	if got.Module != "inventory" || got.Count != 2 {
		t.Errorf("envelope = %+v", got)
	}
	if got.Data[0]["price"] != 9.5 {
		t.Errorf("raw price = %v, want 9.5", got.Data[0]["price"])
	}

	buf.Reset()
	NewJSONFormatter().FormatList(&buf, inventoryModule(), nil, FormatOptions{})
	if !strings.Contains(buf.String(), `"data": []`) {
		t.Errorf("empty list should encode as []: %s", buf.String())
	}
}

func TestYAMLFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := NewYAMLFormatter().FormatRecord(&buf, inventoryModule(), inventoryRecords()[1], FormatOptions{Columns: []string{"id", "name"}}); err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid yaml: %v", err)
	}
	data, ok := got["data"].(map[string]any)
	if !ok {
		t.Fatalf("data = %T", got["data"])
	}
	if data["name"] != "Gadget" {
		t.Errorf("name = %v", data["name"])
	}
	if _, ok := data["price"]; ok {
		t.Error("price should be projected out")
	}
}

func TestFormatError(t *testing.T) {
	err := errors.New("backend down")
	for _, name := range []string{"table", "json", "yaml"} {
		f, _ := Get(name)
		var buf bytes.Buffer
		f.FormatError(&buf, err)
		if !strings.Contains(buf.String(), "backend down") {
			t.Errorf("%s: output = %q", name, buf.String())
		}
	}
}
