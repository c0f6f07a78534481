// Package logging sets up the process-wide structured logger: a colorized
// stderr handler for interactive operation and a plain append-only error
// log file, grounded on sandrolain-events-bridge/src/main.go's
// `slog.SetDefault(slog.New(tint.NewHandler(...)))` setup, extended with the
// file-backed fatal path from original_source/src/sys/log.rs's
// LogApp::exit_err (open-append-write-close on every fatal error, plus a
// mirrored stderr print, then process exit).
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lmittmann/tint"
)

// Logger bundles the interactive slog.Logger with the fatal-to-file path.
type Logger struct {
	*slog.Logger
	pid    int
	errDir string
}

// New builds the default logger: tint-colorized text to stderr, level from
// levelName ("debug"/"info"/"warn"/"error", default "info").
func New(levelName, errDir string) *Logger {
	level := parseLevel(levelName)
	handler := tint.NewHandler(os.Stderr, &tint.Options{Level: level, TimeFormat: time.RFC3339Nano})
	l := slog.New(handler)
	slog.SetDefault(l)
	return &Logger{Logger: l, pid: os.Getpid(), errDir: errDir}
}

func parseLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Fatal writes a timestamped "ID:<pid> <time> <msg>" line to
// <errDir>/error.log (opened, appended, and closed on every call — no
// buffering, matching original_source's "one open/write/close per fatal
// error" behavior), mirrors it to stderr, and exits the process.
func (l *Logger) Fatal(msg string, args ...any) {
	line := formatFatalLine(l.pid, msg, args...)
	fmt.Fprint(os.Stderr, line)
	if l.errDir != "" {
		appendErrorLog(filepath.Join(l.errDir, "error.log"), line)
	}
	os.Exit(1)
}

func formatFatalLine(pid int, msg string, args ...any) string {
	ts := time.Now().Format("2006.01.02 15:04:05.000000000 -07:00")
	full := msg
	for i := 0; i+1 < len(args); i += 2 {
		full += fmt.Sprintf(" %v=%v", args[i], args[i+1])
	}
	return fmt.Sprintf("ID:%d %s %s\n", pid, ts, full)
}

func appendErrorLog(path, line string) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: can't open error log %s: %v\n", path, err)
		return
	}
	defer f.Close()
	if _, err := io.WriteString(f, line); err != nil {
		fmt.Fprintf(os.Stderr, "logging: can't write error log %s: %v\n", path, err)
	}
}
