package imagepipeline

import (
	"os"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Logger is the structured logger type used throughout the pipeline,
// parameterised over stumpy's JSON event so callers don't need to import
// logiface or stumpy themselves just to supply a logger.
type Logger = *logiface.Logger[*stumpy.Event]

// NewLogger builds a default [Logger] writing newline-delimited JSON to w.
// Passing a nil w defaults to os.Stderr.
func NewLogger(w *os.File) Logger {
	if w == nil {
		w = os.Stderr
	}
	return stumpy.L.New(
		stumpy.L.WithStumpy(),
		stumpy.L.WithWriter(w),
	)
}

// logField is a single structured field attached to a pipeline log line.
type logField struct {
	key string
	val any
}

func f(key string, val any) logField { return logField{key: key, val: val} }

// logEvent writes one log line at the given level if logger is non-nil and
// enabled at that level; fields are applied via Any so arbitrary value
// types work without per-type plumbing here.
func logEvent(logger Logger, level logiface.Level, msg string, fields ...logField) {
	if logger == nil {
		return
	}
	b := logger.Build(level)
	if b == nil || !b.Enabled() {
		if b != nil {
			b.Release()
		}
		return
	}
	for _, fld := range fields {
		b = b.Any(fld.key, fld.val)
	}
	b.Log(msg)
}

func logDebug(logger Logger, msg string, fields ...logField) {
	logEvent(logger, logiface.LevelDebug, msg, fields...)
}

func logInfo(logger Logger, msg string, fields ...logField) {
	logEvent(logger, logiface.LevelInformational, msg, fields...)
}

func logWarn(logger Logger, msg string, fields ...logField) {
	logEvent(logger, logiface.LevelWarning, msg, fields...)
}

func logErr(logger Logger, msg string, err error, fields ...logField) {
	if logger == nil {
		return
	}
	b := logger.Build(logiface.LevelError)
	if b == nil || !b.Enabled() {
		if b != nil {
			b.Release()
		}
		return
	}
	if err != nil {
		b = b.Err(err)
	}
	for _, fld := range fields {
		b = b.Any(fld.key, fld.val)
	}
	b.Log(msg)
}
