package logger

import (
	"go.uber.org/zap"
)

// Standard field names for consistent structured logging across annogen.
// Use these constants instead of raw strings to ensure consistency.
const (
	// Components
	FieldComponent = "component"

	// Source positions
	FieldFile   = "file"
	FieldLine   = "line"
	FieldColumn = "column"

	// Generation
	FieldEntity   = "entity"
	FieldKind     = "kind"
	FieldRule     = "rule"
	FieldProperty = "property"
	FieldPass     = "pass"
	FieldTask     = "task"
	FieldArtifact = "artifact"

	// Timing
	FieldDurationMS = "duration_ms"

	// Errors
	FieldError     = "error"
	FieldErrorType = "error_type"

	// Counts
	FieldCount      = "count"
	FieldTotalCount = "total_count"
	FieldWorkers    = "workers"

	// Status
	FieldStatus = "status"
)

// ComponentLogger returns a named child of parent, or of the global logger
// when parent is nil. This is the preferred way to get a logger for
// dependency injection.
//
// Example:
//
//	type Manager struct {
//	    logger *zap.SugaredLogger
//	}
//
//	func NewManager(log *zap.SugaredLogger) *Manager {
//	    return &Manager{
//	        logger: logger.ComponentLogger(log, "manager"),
//	    }
//	}
func ComponentLogger(parent *zap.SugaredLogger, name string) *zap.SugaredLogger {
	if parent == nil {
		parent = Logger
	}
	return OrNop(parent).Named(name)
}

// ChildLogger creates a child logger with additional context.
// Use for sub-operations that need extra context fields.
//
// Example:
//
//	fileLogger := logger.ChildLogger(baseLogger, logger.FieldFile, path)
func ChildLogger(parent *zap.SugaredLogger, keysAndValues ...interface{}) *zap.SugaredLogger {
	return OrNop(parent).With(keysAndValues...)
}
