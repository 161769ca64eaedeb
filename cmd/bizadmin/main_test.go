package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/artpar/bizadmin/core/schema"
)

func TestFlagValue(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"absent", []string{"inventory", "list"}, "bizadmin.yaml"},
		{"long", []string{"--config", "x.yaml", "inventory", "list"}, "x.yaml"},
		{"long equals", []string{"inventory", "--config=y.yaml"}, "y.yaml"},
		{"short", []string{"-c", "z.yaml"}, "z.yaml"},
		{"after terminator", []string{"--", "--config", "x.yaml"}, "bizadmin.yaml"},
		{"missing value", []string{"--config"}, "bizadmin.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := flagValue(tt.args, "--config", "-c", defaultConfigPath); got != tt.want {
				t.Errorf("flagValue(%v) = %q, want %q", tt.args, got, tt.want)
			}
		})
	}

	if !hasFlag([]string{"serve", "-v"}, "--verbose", "-v") {
		t.Error("hasFlag should find -v")
	}
	if hasFlag([]string{"serve"}, "--verbose", "-v") {
		t.Error("hasFlag should not find --verbose")
	}
}

func TestReportRange(t *testing.T) {
	now := time.Date(2024, 3, 31, 15, 0, 0, 0, time.UTC)

	start, end, err := reportRange(now, "", "")
	if err != nil {
		t.Fatalf("default range: %v", err)
	}
	if got := start.Format("2006-01-02"); got != "2024-03-01" {
		t.Errorf("start = %s", got)
	}
	if got := end.Format("2006-01-02"); got != "2024-03-31" {
		t.Errorf("end = %s", got)
	}

	start, _, err = reportRange(now, "2024-01-15", "")
	if err != nil || start.Format("2006-01-02") != "2024-01-15" {
		t.Errorf("explicit start = %v, %v", start, err)
	}

	if _, _, err := reportRange(now, "15/01/2024", ""); err == nil || err.Error() != "start date must be YYYY-MM-DD" {
		t.Errorf("bad start error = %v", err)
	}
	if _, _, err := reportRange(now, "", "soon"); err == nil || err.Error() != "end date must be YYYY-MM-DD" {
		t.Errorf("bad end error = %v", err)
	}
}

func TestPrintModules(t *testing.T) {
	doc, err := schema.Parse([]byte(`{
	  "app": {"navigation": {"items": [{"path": "/customers", "key": "customers"}]}},
	  "modules": {
	    "inventory": {"endpoint": "/api/inventory", "table": {"columns": [{"key": "name"}, {"key": "price", "type": "currency"}]}},
	    "customers": {"endpoint": "/api/customers", "table": {"columns": [{"key": "name"}]}, "form": {"fields": [{"key": "name"}, {"key": "email"}]}}
	  }
	}`), schema.FormatJSON)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	catalog := schema.NewCatalog(doc)

	var buf bytes.Buffer
	if err := printModules(&buf, catalog, "table"); err != nil {
		t.Fatalf("table: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[1], "customers") || !strings.Contains(lines[1], "name,email") {
		t.Errorf("navigation order first, got %q", lines[1])
	}
	if !strings.Contains(lines[2], "name,price") {
		t.Errorf("columns double as fields, got %q", lines[2])
	}

	buf.Reset()
	if err := printModules(&buf, catalog, "json"); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !strings.Contains(buf.String(), `"endpoint": "/api/customers"`) {
		t.Errorf("json = %s", buf.String())
	}

	if err := printModules(&buf, catalog, "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}
