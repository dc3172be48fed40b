// Copyright 2025 R5 Labs
// This file is part of the R5 Core library.
//
// This software is provided "as is", without warranty of any kind,
// express or implied, including but not limited to the warranties
// of merchantability, fitness for a particular purpose and
// noninfringement. In no event shall the authors or copyright
// holders be liable for any claim, damages, or other liability,
// whether in an action of contract, tort or otherwise, arising
// from, out of or in connection with the software or the use or
// other dealings in the software.

// Package log is a small structured, leveled logger in the teacher's
// idiom: Info/Debug/Warn/Error calls take a message followed by
// alternating key/value pairs. Output is terminal-color-aware and can be
// mirrored to a rotating file.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-stack/stack"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Level is a logging severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "?"
	}
}

var (
	mu          sync.Mutex
	out         io.Writer = colorable.NewColorableStdout()
	colorOn               = isatty.IsTerminal(os.Stdout.Fd())
	minLevel              = LevelInfo
	fileWriter  *lumberjack.Logger
)

// SetLevel sets the process-wide minimum level that gets printed.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	minLevel = l
}

// SetRotatingFile mirrors all log output to a size-rotated file, in
// addition to stdout. Passing an empty path disables file mirroring.
func SetRotatingFile(path string, maxSizeMB, maxBackups, maxAgeDays int) {
	mu.Lock()
	defer mu.Unlock()
	if path == "" {
		fileWriter = nil
		return
	}
	fileWriter = &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
	}
}

var levelColor = map[Level]int{
	LevelDebug: 90, // bright black
	LevelInfo:  32, // green
	LevelWarn:  33, // yellow
	LevelError: 31, // red
}

func format(l Level, msg string, ctx []interface{}) string {
	var b strings.Builder
	ts := time.Now().Format("2006-01-02T15:04:05.000")
	lvl := l.String()
	if colorOn {
		fmt.Fprintf(&b, "\x1b[90m%s\x1b[0m \x1b[%dm%-5s\x1b[0m %s", ts, levelColor[l], lvl, msg)
	} else {
		fmt.Fprintf(&b, "%s %-5s %s", ts, lvl, msg)
	}
	for i := 0; i+1 < len(ctx); i += 2 {
		fmt.Fprintf(&b, " %v=%v", ctx[i], ctx[i+1])
	}
	if len(ctx)%2 == 1 {
		fmt.Fprintf(&b, " %v=%s", ctx[len(ctx)-1], "MISSING")
	}
	b.WriteByte('\n')
	return b.String()
}

func write(l Level, msg string, ctx []interface{}) {
	mu.Lock()
	defer mu.Unlock()
	if l < minLevel {
		return
	}
	line := format(l, msg, ctx)
	if l == LevelError {
		// Capture the caller for error-level records so operators can jump
		// straight to the faulting call site without re-running with -v.
		line = strings.TrimSuffix(line, "\n") + fmt.Sprintf(" caller=%v\n", stack.Caller(2))
	}
	io.WriteString(out, line)
	if fileWriter != nil {
		io.WriteString(fileWriter, line)
	}
}

// Debug logs a protocol-trace level message.
func Debug(msg string, ctx ...interface{}) { write(LevelDebug, msg, ctx) }

// Info logs a sync-progress level message.
func Info(msg string, ctx ...interface{}) { write(LevelInfo, msg, ctx) }

// Warn logs a recoverable-condition message.
func Warn(msg string, ctx ...interface{}) { write(LevelWarn, msg, ctx) }

// Error logs a protocol-violation or assertion-failure level message.
func Error(msg string, ctx ...interface{}) { write(LevelError, msg, ctx) }

// New returns a logger bound to a fixed context (e.g. a connection or peer
// id) that is appended to every subsequent call, mirroring the teacher's
// per-connection loggers (`p.Log()` in the handler).
func New(ctx ...interface{}) *Logger {
	return &Logger{ctx: ctx}
}

// Logger carries a fixed key/value prefix.
type Logger struct {
	ctx []interface{}
}

func (lg *Logger) merge(kv []interface{}) []interface{} {
	if len(lg.ctx) == 0 {
		return kv
	}
	out := make([]interface{}, 0, len(lg.ctx)+len(kv))
	out = append(out, lg.ctx...)
	out = append(out, kv...)
	return out
}

func (lg *Logger) Debug(msg string, ctx ...interface{}) { write(LevelDebug, msg, lg.merge(ctx)) }
func (lg *Logger) Info(msg string, ctx ...interface{})  { write(LevelInfo, msg, lg.merge(ctx)) }
func (lg *Logger) Warn(msg string, ctx ...interface{})  { write(LevelWarn, msg, lg.merge(ctx)) }
func (lg *Logger) Error(msg string, ctx ...interface{}) { write(LevelError, msg, lg.merge(ctx)) }
