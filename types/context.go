package types

import "context"

// contextKey is unexported so engine values cannot collide with keys from
// other packages.
type contextKey string

const (
	runIDKey    contextKey = "run_id"
	crewNameKey contextKey = "crew_name"
	taskIDKey   contextKey = "task_id"
)

// WithRunID returns a context carrying the run identifier.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// RunID extracts the run identifier.
func RunID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(runIDKey).(string)
	return v, ok
}

// WithCrewName returns a context carrying the crew name.
func WithCrewName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, crewNameKey, name)
}

// CrewName extracts the crew name.
func CrewName(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(crewNameKey).(string)
	return v, ok
}

// WithTaskID returns a context carrying the executing task's identifier.
func WithTaskID(ctx context.Context, taskID string) context.Context {
	return context.WithValue(ctx, taskIDKey, taskID)
}

// TaskID extracts the executing task's identifier.
func TaskID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(taskIDKey).(string)
	return v, ok
}
