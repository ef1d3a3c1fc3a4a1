package logging

import (
	"time"
)

// OperationLogger adds acquisition-scoped fields to a Logger and times the
// stages of a single operation.
type OperationLogger struct {
	base   *Logger
	fields map[string]interface{}
}

// NewOperationLogger creates an operation logger on top of base.
func NewOperationLogger(base *Logger) *OperationLogger {
	if base == nil {
		base = GetLogger()
	}
	return &OperationLogger{
		base:   base,
		fields: make(map[string]interface{}),
	}
}

// WithField returns a copy of the logger carrying key=value.
func (ol *OperationLogger) WithField(key string, value interface{}) *OperationLogger {
	fields := ol.copyFields()
	fields[key] = value
	return &OperationLogger{base: ol.base, fields: fields}
}

// WithCommand tags every line with the chat command being processed.
func (ol *OperationLogger) WithCommand(command string) *OperationLogger {
	return ol.WithField("command", command)
}

// TimeOperation runs fn and logs its outcome and duration.
func (ol *OperationLogger) TimeOperation(operation string, fn func() error) error {
	start := time.Now()
	ol.Debug("starting operation", "operation", operation)

	err := fn()
	duration := time.Since(start)

	if err != nil {
		ol.Error("operation failed", "operation", operation, "duration", duration, "error", err)
	} else {
		ol.Debug("operation completed", "operation", operation, "duration", duration)
	}

	return err
}

// LogHTTPRequest records the outcome of a remote fetch.
func (ol *OperationLogger) LogHTTPRequest(method, url string, statusCode int, duration time.Duration, err error) {
	l := ol.WithField("http_method", method).
		WithField("http_url", url).
		WithField("http_status", statusCode).
		WithField("http_duration", duration)

	switch {
	case err != nil:
		l.Error("HTTP request failed", "error", err)
	case statusCode >= 400:
		l.Warn("HTTP request completed with error status")
	default:
		l.Debug("HTTP request completed")
	}
}

// LogCommandExecution records the outcome of an external tool invocation.
func (ol *OperationLogger) LogCommandExecution(command string, exitCode int, duration time.Duration, err error) {
	l := ol.WithField("tool", command).
		WithField("exit_code", exitCode).
		WithField("exec_duration", duration)

	switch {
	case err != nil:
		l.Error("command execution failed", "error", err)
	case exitCode != 0:
		l.Warn("command execution completed with non-zero exit code")
	default:
		l.Debug("command execution completed")
	}
}

func (ol *OperationLogger) Debug(msg string, args ...interface{}) {
	ol.base.Debug(msg, ol.withFields(args)...)
}

func (ol *OperationLogger) Info(msg string, args ...interface{}) {
	ol.base.Info(msg, ol.withFields(args)...)
}

func (ol *OperationLogger) Warn(msg string, args ...interface{}) {
	ol.base.Warn(msg, ol.withFields(args)...)
}

func (ol *OperationLogger) Error(msg string, args ...interface{}) {
	ol.base.Error(msg, ol.withFields(args)...)
}

func (ol *OperationLogger) withFields(args []interface{}) []interface{} {
	all := make([]interface{}, 0, len(ol.fields)*2+len(args))
	for k, v := range ol.fields {
		all = append(all, k, v)
	}
	return append(all, args...)
}

func (ol *OperationLogger) copyFields() map[string]interface{} {
	fields := make(map[string]interface{}, len(ol.fields))
	for k, v := range ol.fields {
		fields[k] = v
	}
	return fields
}
