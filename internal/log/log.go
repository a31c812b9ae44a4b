// Package log provides structured, colored logging for segwallet.
//
// Secrets never reach these loggers. Fingerprints, derivation paths and
// addresses may.
package log

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Logger is the global logger instance.
var Logger zerolog.Logger

// Component loggers.
var (
	Wallet  zerolog.Logger
	Keys    zerolog.Logger
	Ledger  zerolog.Logger
	Storage zerolog.Logger
	RPC     zerolog.Logger
	Node    zerolog.Logger
)

var levels = map[string]zerolog.Level{
	"trace":    zerolog.TraceLevel,
	"debug":    zerolog.DebugLevel,
	"info":     zerolog.InfoLevel,
	"warn":     zerolog.WarnLevel,
	"error":    zerolog.ErrorLevel,
	"disabled": zerolog.Disabled,
}

const consoleTimeFormat = "15:04:05"

var (
	fileMu  sync.Mutex
	logFile *os.File
)

func init() {
	setLogger(NewConsoleLogger(os.Stdout, "info"))
}

// Init configures the global logger. Console output is colored unless
// jsonOutput is set. A non-empty file adds a JSON sink opened in append
// mode; a file from an earlier Init is closed.
func Init(level string, jsonOutput bool, file string) error {
	var console io.Writer = os.Stdout
	if !jsonOutput {
		console = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: consoleTimeFormat}
	}

	var f *os.File
	out := console
	if file != "" {
		var err error
		f, err = os.OpenFile(file, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err != nil {
			return err
		}
		out = zerolog.MultiLevelWriter(console, f)
	}

	swapFile(f)
	setLogger(newLogger(out, level))
	return nil
}

// Close releases the log file opened by Init, if any. Logging continues on
// the console.
func Close() error {
	fileMu.Lock()
	f := logFile
	logFile = nil
	fileMu.Unlock()
	if f == nil {
		return nil
	}
	setLogger(NewConsoleLogger(os.Stdout, Logger.GetLevel().String()))
	return f.Close()
}

func swapFile(f *os.File) {
	fileMu.Lock()
	old := logFile
	logFile = f
	fileMu.Unlock()
	if old != nil {
		old.Close()
	}
}

// SetOutput replaces the global logger with a JSON logger writing to w.
func SetOutput(w io.Writer, level string) {
	setLogger(NewJSONLogger(w, level))
}

// NewConsoleLogger creates a colored console logger.
func NewConsoleLogger(w io.Writer, level string) zerolog.Logger {
	return newLogger(zerolog.ConsoleWriter{Out: w, TimeFormat: consoleTimeFormat}, level)
}

// NewJSONLogger creates a structured JSON logger.
func NewJSONLogger(w io.Writer, level string) zerolog.Logger {
	return newLogger(w, level)
}

func newLogger(w io.Writer, level string) zerolog.Logger {
	return zerolog.New(w).Level(parseLevel(level)).With().Timestamp().Logger()
}

// ValidLevel reports whether level is a recognized log level name.
func ValidLevel(level string) bool {
	_, ok := levels[strings.ToLower(level)]
	return ok
}

// parseLevel maps a level name to zerolog. Unknown names select info.
func parseLevel(level string) zerolog.Level {
	if l, ok := levels[strings.ToLower(level)]; ok {
		return l
	}
	return zerolog.InfoLevel
}

func setLogger(l zerolog.Logger) {
	Logger = l
	Wallet = WithComponent("wallet")
	Keys = WithComponent("keys")
	Ledger = WithComponent("ledger")
	Storage = WithComponent("storage")
	RPC = WithComponent("rpc")
	Node = WithComponent("node")
}

// WithComponent returns a logger with a component field.
func WithComponent(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}
