package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Chandanbam/openstack-rca-system/internal/logging"
)

const (
	defaultShutdownTimeout = 30 * time.Second
	rollbackStopTimeout    = 5 * time.Second
)

// Manager starts registered components in registration order and stops
// them in reverse. Registration order is the dependency order: register
// a component after everything it needs at runtime.
type Manager struct {
	mu              sync.Mutex
	components      []Component
	started         []Component
	shutdownTimeout time.Duration
	logger          *logging.Logger
}

// NewManager creates a manager with a 30-second per-component shutdown
// grace period.
func NewManager() *Manager {
	return &Manager{
		shutdownTimeout: defaultShutdownTimeout,
		logger:          logging.GetLogger("lifecycle"),
	}
}

// Register adds a component to the managed set.
func (m *Manager) Register(c Component) error {
	if c == nil {
		return errors.New("cannot register nil component")
	}
	if c.Name() == "" {
		return errors.New("component must have a non-empty name")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.components {
		if existing == c {
			return fmt.Errorf("component %s is already registered", c.Name())
		}
	}
	m.components = append(m.components, c)
	return nil
}

// Start starts all components in registration order. When one fails, the
// components started so far are stopped in reverse before returning.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.components {
		m.logger.Info("Starting %s", c.Name())
		begin := time.Now()

		if err := c.Start(ctx); err != nil {
			m.logger.Error("Failed to start %s: %v", c.Name(), err)
			m.rollbackLocked()
			return fmt.Errorf("starting %s: %w", c.Name(), err)
		}

		m.started = append(m.started, c)
		m.logger.Info("%s started (took %dms)", c.Name(), time.Since(begin).Milliseconds())
	}

	return nil
}

// rollbackLocked stops already-started components after a failed start.
// Callers hold m.mu.
func (m *Manager) rollbackLocked() {
	for i := len(m.started) - 1; i >= 0; i-- {
		c := m.started[i]
		ctx, cancel := context.WithTimeout(context.Background(), rollbackStopTimeout)
		if err := c.Stop(ctx); err != nil {
			m.logger.Warn("Error stopping %s during rollback: %v", c.Name(), err)
		}
		cancel()
	}
	m.started = nil
}

// Stop stops all started components in reverse order. Each component gets
// its own grace period. Stop errors are logged, not returned, so one slow
// component cannot keep the rest from stopping.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := len(m.started) - 1; i >= 0; i-- {
		c := m.started[i]
		m.logger.Info("Stopping %s", c.Name())
		begin := time.Now()

		stopCtx, cancel := context.WithTimeout(ctx, m.shutdownTimeout)
		err := c.Stop(stopCtx)
		cancel()

		switch {
		case errors.Is(err, context.DeadlineExceeded):
			m.logger.Warn("%s exceeded the %s shutdown grace period", c.Name(), m.shutdownTimeout)
		case err != nil:
			m.logger.Error("Error stopping %s: %v", c.Name(), err)
		default:
			m.logger.Info("%s stopped (took %dms)", c.Name(), time.Since(begin).Milliseconds())
		}
	}

	m.started = nil
	return nil
}

// SetShutdownTimeout overrides the per-component stop grace period.
func (m *Manager) SetShutdownTimeout(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdownTimeout = d
}
