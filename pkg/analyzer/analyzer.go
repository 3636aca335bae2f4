// Package analyzer holds what every history analyzer shares.
package analyzer

import "context"

// SourceAnalyzer is the interface history analyzers implement. Each path
// names a source to read, typically a repository working directory.
type SourceAnalyzer[T any] interface {
	// Analyze reads every source and returns the combined result.
	// The context can be used for cancellation.
	Analyze(ctx context.Context, paths []string) (T, error)
}
