package bootstrap

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/artpar/bizadmin/config"
)

// logOutput lets a reload switch between JSON and console output after
// loggers have been handed out by value.
type logOutput struct {
	mu  sync.Mutex
	out io.Writer
	w   io.Writer
}

func newLogOutput(out io.Writer, format string) *logOutput {
	o := &logOutput{out: out}
	o.setFormat(format)
	return o
}

func (o *logOutput) Write(p []byte) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.w.Write(p)
}

func (o *logOutput) setFormat(format string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if format == "console" {
		o.w = zerolog.ConsoleWriter{Out: o.out, TimeFormat: time.RFC3339}
		return
	}
	o.w = o.out
}

// setupLogger builds the root logger from the logging section.
func setupLogger(cfg config.LoggingConfig, out io.Writer) (zerolog.Logger, *logOutput) {
	if out == nil {
		out = os.Stdout
	}
	applyLevel(cfg.Level)
	output := newLogOutput(out, cfg.Format)
	return zerolog.New(output).With().Timestamp().Logger(), output
}

func applyLevel(levelStr string) {
	level, err := zerolog.ParseLevel(levelStr)
	if err != nil || levelStr == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}
