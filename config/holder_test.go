package config_test

import (
	"os"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/artpar/bizadmin/adapters/metrics"
	"github.com/artpar/bizadmin/config"
)

func validConfig() string {
	return `
backend:
  url: "http://localhost:3000"
logging:
  level: info
`
}

func TestHolder_Get(t *testing.T) {
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	got := h.Get()
	if got == nil {
		t.Fatal("Get returned nil")
	}
	if got.Backend.URL != "http://localhost:3000" {
		t.Errorf("Backend.URL = %s, want http://localhost:3000", got.Backend.URL)
	}
}

func TestHolder_ReloadAppliesLoggingOnly(t *testing.T) {
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	newContent := `
server:
  port: 9999
backend:
  url: "http://elsewhere:4000"
logging:
  level: debug
  format: console
`
	if err := os.WriteFile(path, []byte(newContent), 0644); err != nil {
		t.Fatalf("write new config: %v", err)
	}

	if err := h.Reload(); err != nil {
		t.Fatalf("Reload error: %v", err)
	}

	cfg := h.Get()
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %s, want debug", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "console" {
		t.Errorf("Logging.Format = %s, want console", cfg.Logging.Format)
	}
	if cfg.Backend.URL != "http://localhost:3000" {
		t.Errorf("Backend.URL = %s, want running value http://localhost:3000", cfg.Backend.URL)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want running value 8080", cfg.Server.Port)
	}
}

func TestHolder_ReloadInvalidKeepsOld(t *testing.T) {
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	m := metrics.New()
	h.SetMetrics(m)

	if err := os.WriteFile(path, []byte("logging:\n  level: loud\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := h.Reload(); err == nil {
		t.Fatal("expected reload error")
	}
	if h.Get().Logging.Level != "info" {
		t.Errorf("Logging.Level = %s, want info", h.Get().Logging.Level)
	}

	families, err := m.Gatherer().Gather()
	if err != nil {
		t.Fatalf("Gather error: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "bizadmin_config_reload_errors_total" {
			found = true
			if v := f.GetMetric()[0].GetCounter().GetValue(); v != 1 {
				t.Errorf("reload errors = %v, want 1", v)
			}
		}
	}
	if !found {
		t.Error("reload error counter not exported")
	}
}

func TestHolder_OnChange(t *testing.T) {
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	var mu sync.Mutex
	var levels []string
	h.OnChange(func(cfg *config.Config) {
		mu.Lock()
		levels = append(levels, cfg.Logging.Level)
		mu.Unlock()
	})

	if err := os.WriteFile(path, []byte("backend:\n  url: http://localhost:3000\nlogging:\n  level: warn\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := h.Reload(); err != nil {
		t.Fatalf("Reload error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(levels) != 1 || levels[0] != "warn" {
		t.Errorf("callback levels = %v, want [warn]", levels)
	}
}

func TestHolder_WatchFile(t *testing.T) {
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	changed := make(chan string, 4)
	h.OnChange(func(cfg *config.Config) {
		changed <- cfg.Logging.Level
	})

	if err := h.WatchFile(); err != nil {
		t.Fatalf("WatchFile error: %v", err)
	}

	if err := os.WriteFile(path, []byte("backend:\n  url: http://localhost:3000\nlogging:\n  level: error\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case level := <-changed:
			// editors may fire several events; a partial write can reload
			// the old level first
			if level == "error" {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for file watch reload")
		}
	}
}

func TestHolder_StopTwice(t *testing.T) {
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	h.Stop()
	h.Stop()
}

func TestReloadableFields(t *testing.T) {
	reloadable := config.ReloadableFields()
	for _, f := range config.NonReloadableFields() {
		for _, r := range reloadable {
			if f == r {
				t.Errorf("%s listed as both reloadable and non-reloadable", f)
			}
		}
	}
	if len(reloadable) == 0 {
		t.Error("ReloadableFields is empty")
	}
}
