package report

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type contextKey struct{}

type contextValue struct {
	executionID uuid.UUID
	logger      *zap.Logger
}

// LoggerFromContext returns the logger of the execution that ctx belongs to.
//
// Scripts run by a Reporter receive a context carrying a logger annotated with the execution ID.
// A no-op logger is returned for contexts not created by a Reporter.
func LoggerFromContext(ctx context.Context) *zap.Logger {
	if value, ok := ctx.Value(contextKey{}).(contextValue); ok && value.logger != nil {
		return value.logger
	}
	return zap.NewNop()
}

// ExecutionIDFromContext returns the ID of the execution that ctx belongs to.
func ExecutionIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	value, ok := ctx.Value(contextKey{}).(contextValue)
	return value.executionID, ok
}

func withExecution(ctx context.Context, id uuid.UUID, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, contextValue{executionID: id, logger: logger})
}
