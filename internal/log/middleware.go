// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"log/slog"
	"time"
)

// Operation describes a named unit of work for logging purposes, such
// as a CLI command or a history store call.
type Operation struct {
	// Name identifies the operation (e.g., "run", "history.save").
	Name string

	// RunID is the run this operation belongs to, if any.
	RunID string

	// FlowID is the flow this operation belongs to, if any.
	FlowID string

	// Metadata contains additional operation metadata.
	Metadata map[string]interface{}
}

// Outcome records how an operation finished.
type Outcome struct {
	// Success indicates whether the operation succeeded.
	Success bool

	// Error is the error message if the operation failed.
	Error string

	// DurationMs is the duration of the operation in milliseconds.
	DurationMs int64

	// Metadata contains additional outcome metadata.
	Metadata map[string]interface{}
}

// LogOperationStart logs the start of an operation.
func LogOperationStart(logger *slog.Logger, op *Operation) {
	attrs := []any{
		"event", "operation_start",
		"operation", op.Name,
	}

	if op.RunID != "" {
		attrs = append(attrs, RunIDKey, op.RunID)
	}

	if op.FlowID != "" {
		attrs = append(attrs, FlowIDKey, op.FlowID)
	}

	for k, v := range op.Metadata {
		attrs = append(attrs, k, v)
	}

	logger.Debug("operation started", attrs...)
}

// LogOperationEnd logs the outcome of an operation. Failures log at
// error level.
func LogOperationEnd(logger *slog.Logger, op *Operation, out *Outcome) {
	attrs := []any{
		"event", "operation_end",
		"operation", op.Name,
		"success", out.Success,
		DurationKey, out.DurationMs,
	}

	if op.RunID != "" {
		attrs = append(attrs, RunIDKey, op.RunID)
	}

	if op.FlowID != "" {
		attrs = append(attrs, FlowIDKey, op.FlowID)
	}

	if out.Error != "" {
		attrs = append(attrs, "error", out.Error)
	}

	for k, v := range out.Metadata {
		attrs = append(attrs, k, v)
	}

	level := slog.LevelDebug
	message := "operation completed"

	if !out.Success {
		level = slog.LevelError
		message = "operation failed"
	}

	logger.Log(nil, level, message, attrs...)
}

// Middleware wraps units of work with start/end logging.
type Middleware struct {
	logger *slog.Logger
}

// NewMiddleware creates a new operation logging middleware.
func NewMiddleware(logger *slog.Logger) *Middleware {
	return &Middleware{
		logger: logger,
	}
}

// Handler runs the function and logs the operation around it.
func (m *Middleware) Handler(op *Operation, handler func() error) error {
	start := time.Now()

	LogOperationStart(m.logger, op)

	err := handler()

	duration := time.Since(start).Milliseconds()

	out := &Outcome{
		Success:    err == nil,
		DurationMs: duration,
	}

	if err != nil {
		out.Error = err.Error()
	}

	LogOperationEnd(m.logger, op, out)

	return err
}

// HandlerWithMetadata runs the function and logs the operation with the
// metadata the function returns.
func (m *Middleware) HandlerWithMetadata(op *Operation, handler func() (map[string]interface{}, error)) (map[string]interface{}, error) {
	start := time.Now()

	LogOperationStart(m.logger, op)

	metadata, err := handler()

	duration := time.Since(start).Milliseconds()

	out := &Outcome{
		Success:    err == nil,
		DurationMs: duration,
		Metadata:   metadata,
	}

	if err != nil {
		out.Error = err.Error()
	}

	LogOperationEnd(m.logger, op, out)

	return metadata, err
}
