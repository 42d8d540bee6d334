package logging

import (
	"context"
	"strings"

	"github.com/colliery-io/metis/pkg/metis"
)

const (
	rootModule       = "metis"
	documentModule   = "metis.document"
	workspaceModule  = "metis.workspace"
	syncModule       = "metis.sync"
	transportModule  = "metis.transport"
	projectionModule = "metis.projection"
)

const (
	fieldFilePath   = "filepath"
	fieldShortCode  = "short_code"
	fieldOperation  = "operation"
)

// ModuleLogger returns a module-scoped logger, defaulting to a no-op
// implementation when no provider is supplied. The returned logger attaches
// the module identifier as structured context so downstream entries can be
// filtered predictably.
func ModuleLogger(provider metis.LoggerProvider, module string) metis.Logger {
	if module == "" {
		module = rootModule
	}

	logger := NoOp()
	if provider != nil {
		if provided := provider.GetLogger(module); provided != nil {
			logger = provided
		}
	}

	if fieldsLogger, ok := logger.(metis.FieldsLogger); ok {
		return fieldsLogger.WithFields(map[string]any{
			"module": module,
		})
	}

	return WithFields(logger, map[string]any{
		"module": module,
	})
}

// DocumentLogger returns the logger namespace reserved for the document engine.
func DocumentLogger(provider metis.LoggerProvider) metis.Logger {
	return ModuleLogger(provider, documentModule)
}

// WorkspaceLogger returns the logger namespace reserved for workspace services.
func WorkspaceLogger(provider metis.LoggerProvider) metis.Logger {
	return ModuleLogger(provider, workspaceModule)
}

// SyncLogger returns the logger namespace reserved for the sync engine.
func SyncLogger(provider metis.LoggerProvider) metis.Logger {
	return ModuleLogger(provider, syncModule)
}

// TransportLogger returns the logger namespace reserved for the multi-workspace transport.
func TransportLogger(provider metis.LoggerProvider) metis.Logger {
	return ModuleLogger(provider, transportModule)
}

// ProjectionLogger returns the logger namespace reserved for the projection cache.
func ProjectionLogger(provider metis.LoggerProvider) metis.Logger {
	return ModuleLogger(provider, projectionModule)
}

// WithOperationContext enriches the provided logger with common operation
// fields such as filepath, short code, and operation name. Empty values are
// ignored.
func WithOperationContext(logger metis.Logger, filePath, shortCode, operation string) metis.Logger {
	fields := map[string]any{}
	if trimmed := strings.TrimSpace(filePath); trimmed != "" {
		fields[fieldFilePath] = trimmed
	}
	if trimmed := strings.TrimSpace(shortCode); trimmed != "" {
		fields[fieldShortCode] = trimmed
	}
	if trimmed := strings.TrimSpace(operation); trimmed != "" {
		fields[fieldOperation] = trimmed
	}
	return WithFields(logger, fields)
}

// NoOp returns a logger that drops every log entry. It satisfies the Logger
// contract so services can safely operate when logging is disabled.
func NoOp() metis.Logger {
	return noopLogger{}
}

type noopLogger struct{}

var _ metis.Logger = noopLogger{}

func (noopLogger) Trace(string, ...any) {}
func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
func (noopLogger) Fatal(string, ...any) {}

func (n noopLogger) WithFields(map[string]any) metis.Logger {
	return n
}

func (n noopLogger) WithContext(context.Context) metis.Logger {
	return n
}
