package logging

import "context"

type runIDKeyType struct{}

var runIDKey runIDKeyType

// WithRunID tags a context with the identifier of the search run it belongs
// to. Log entries produced under that context carry the identifier.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// GetRunID extracts the search run identifier from a context.
func GetRunID(ctx context.Context) (string, bool) {
	runID, ok := ctx.Value(runIDKey).(string)
	return runID, ok
}
