// Package logging provides the structured logger used across every mcvm
// component. The Output collaborator that components report
// human-facing progress and errors through lives in package mcoutput.
package logging

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
)

// Field is a single structured logging field.
type Field struct {
	Key   string
	Value interface{}
}

// F is a short constructor for Field, used at call sites.
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Logger is the structured logging contract implemented by every
// component. It mirrors the shape of a conventional logrus wrapper:
// leveled methods plus fluent WithFields/WithError/WithComponent.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...Field)
	Info(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)
	WithFields(fields ...Field) Logger
	WithError(err error) Logger
	WithComponent(component string) Logger
}

type structuredLogger struct {
	logger     *logrus.Logger
	baseFields logrus.Fields
	component  string
}

// New creates a Logger backed by logrus, writing JSON to stderr by
// default so embedders can redirect it without parsing human text.
func New(component string) Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.JSONFormatter{})
	return &structuredLogger{logger: l, baseFields: logrus.Fields{}, component: component}
}

func (s *structuredLogger) entry() *logrus.Entry {
	fields := make(logrus.Fields, len(s.baseFields)+1)
	for k, v := range s.baseFields {
		fields[k] = v
	}
	if s.component != "" {
		fields["component"] = s.component
	}
	return s.logger.WithFields(fields)
}

func withFields(e *logrus.Entry, fields []Field) *logrus.Entry {
	if len(fields) == 0 {
		return e
	}
	lf := make(logrus.Fields, len(fields))
	for _, f := range fields {
		lf[f.Key] = f.Value
	}
	return e.WithFields(lf)
}

// withTrace tags the entry with the active span's trace/span IDs, if ctx
// was threaded through an OpenTelemetry span. Most call sites run outside
// any span, so this is a no-op for them.
func withTrace(ctx context.Context, e *logrus.Entry) *logrus.Entry {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return e
	}
	return e.WithFields(logrus.Fields{
		"trace_id": span.SpanContext().TraceID().String(),
		"span_id":  span.SpanContext().SpanID().String(),
	})
}

func (s *structuredLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	withTrace(ctx, withFields(s.entry(), fields)).Debug(msg)
}

func (s *structuredLogger) Info(ctx context.Context, msg string, fields ...Field) {
	withTrace(ctx, withFields(s.entry(), fields)).Info(msg)
}

func (s *structuredLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	withTrace(ctx, withFields(s.entry(), fields)).Warn(msg)
}

func (s *structuredLogger) Error(ctx context.Context, msg string, fields ...Field) {
	withTrace(ctx, withFields(s.entry(), fields)).Error(msg)
}

func (s *structuredLogger) WithFields(fields ...Field) Logger {
	next := make(logrus.Fields, len(s.baseFields)+len(fields))
	for k, v := range s.baseFields {
		next[k] = v
	}
	for _, f := range fields {
		next[f.Key] = f.Value
	}
	return &structuredLogger{logger: s.logger, baseFields: next, component: s.component}
}

func (s *structuredLogger) WithError(err error) Logger {
	return s.WithFields(Field{Key: "error", Value: fmt.Sprint(err)})
}

func (s *structuredLogger) WithComponent(component string) Logger {
	return &structuredLogger{logger: s.logger, baseFields: s.baseFields, component: component}
}
