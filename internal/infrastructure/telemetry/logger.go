package telemetry

import (
	"context"
	"log/slog"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// levelRule describes how one LogLevel reaches slog and the active span.
// markSpan sets the span status to error; spanEvent adds the message as an
// event instead.
type levelRule struct {
	slogLevel    slog.Level
	minVerbosity int32
	markSpan     bool
	spanEvent    bool
}

var levelRules = map[LogLevel]levelRule{
	LevelError: {slogLevel: slog.LevelError, minVerbosity: 0, markSpan: true},
	LevelWarn:  {slogLevel: slog.LevelWarn, minVerbosity: 1, spanEvent: true},
	LevelInfo:  {slogLevel: slog.LevelInfo, minVerbosity: 2, spanEvent: true},
	LevelDebug: {slogLevel: slog.LevelDebug, minVerbosity: 2},
}

var logVerbosity atomic.Int32

// SetLogVerbosity sets the process-wide verbosity gate used by Log
func SetLogVerbosity(verbosity int) {
	logVerbosity.Store(int32(verbosity))
}

func GetLogVerbosity() int {
	return int(logVerbosity.Load())
}

func ruleFor(level LogLevel) levelRule {
	if rule, ok := levelRules[level]; ok {
		return rule
	}
	return levelRules[LevelInfo]
}

// shouldLogMessage reports whether a message at level passes the verbosity gate.
// Errors always pass; warnings need 1; info and debug need 2.
func shouldLogMessage(level LogLevel) bool {
	return logVerbosity.Load() >= ruleFor(level).minVerbosity
}

// Log writes msg through slog and mirrors it onto the span in ctx. Errors
// mark the span failed and record err; warnings and info become span
// events. The span is annotated even when the verbosity gate drops the log
// line.
func Log(ctx context.Context, level LogLevel, msg string, err error, attrs ...attribute.KeyValue) {
	rule := ruleFor(level)

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		switch {
		case rule.markSpan:
			span.SetStatus(codes.Error, msg)
			if err != nil {
				span.RecordError(err, trace.WithAttributes(attrs...))
			}
		case rule.spanEvent:
			span.AddEvent(msg, trace.WithAttributes(attrs...))
		}
	}

	if !shouldLogMessage(level) {
		return
	}

	args := attrsToLogAttrs(attrs)
	// error text is attached to warn and error lines only
	if err != nil && rule.slogLevel >= slog.LevelWarn {
		args = append(args, slog.String("error", err.Error()))
	}
	slog.Log(ctx, rule.slogLevel, msg, args...)
}

// attrsToLogAttrs converts OTel attributes to slog attributes
func attrsToLogAttrs(attrs []attribute.KeyValue) []any {
	out := make([]any, 0, len(attrs)+1)
	for _, kv := range attrs {
		out = append(out, slog.Any(string(kv.Key), kv.Value.AsInterface()))
	}
	return out
}
