package lifecycle

import "context"

// Component is implemented by everything the manager supervises: the API
// server, the corpus watcher, the tracing provider.
type Component interface {
	// Start initializes and starts the component. The context can carry
	// a startup deadline.
	Start(ctx context.Context) error

	// Stop gracefully stops the component, letting in-flight work finish
	// within the context deadline.
	Stop(ctx context.Context) error

	// Name identifies the component in logs. Must be non-empty.
	Name() string
}
