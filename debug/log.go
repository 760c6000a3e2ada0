package debug

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
)

var (
	file    *os.File
	logger  *log.Logger
	mu      sync.Mutex
	enabled bool
)

var discard = log.New(io.Discard)

// Path returns the debug log location (~/.config/future-arp/debug.log)
func Path() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "future-arp", "debug.log"), nil
}

// Enable starts debug logging to ~/.config/future-arp/debug.log
func Enable() error {
	logPath, err := Path()
	if err != nil {
		return err
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return err
	}

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	if enabled {
		f.Close()
		return nil
	}
	file = f
	start(f)
	return nil
}

// EnableWriter starts debug logging to w (tests, stderr)
func EnableWriter(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if enabled {
		return
	}
	start(w)
}

// start must be called with mu held
func start(w io.Writer) {
	logger = log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.000",
		Level:           log.DebugLevel,
	})
	enabled = true

	// Write directly (can't call Log - we hold the mutex)
	logger.WithPrefix(category("debug")).Info("=== Debug logging started ===")
	flush()
}

// Disable stops debug logging
func Disable() {
	mu.Lock()
	defer mu.Unlock()

	if file != nil {
		file.Close()
		file = nil
	}
	logger = nil
	enabled = false
}

// Enabled reports whether logging is on
func Enabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

// Log writes a message to the debug log
func Log(cat, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()

	if !enabled || logger == nil {
		return
	}

	logger.WithPrefix(category(cat)).Info(fmt.Sprintf(format, args...))
	flush() // flush immediately so we see logs even on crash
}

// With returns a structured logger for one category. While logging is
// disabled it returns a logger that discards everything.
func With(cat string) *log.Logger {
	mu.Lock()
	defer mu.Unlock()

	if !enabled || logger == nil {
		return discard
	}
	return logger.WithPrefix(category(cat))
}

// LogEvery logs only every N calls (use for high-frequency events)
var counters = make(map[string]int)

func LogEvery(n int, cat, format string, args ...any) {
	mu.Lock()
	key := cat + format
	counters[key]++
	count := counters[key]
	mu.Unlock()

	if count%n == 0 {
		Log(cat, format+" (every %d, count=%d)", append(args, n, count)...)
	}
}

func category(cat string) string {
	return fmt.Sprintf("%-10s", cat)
}

func flush() {
	if file != nil {
		file.Sync()
	}
}
