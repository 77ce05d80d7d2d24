package analysis

import (
	"sync"

	"github.com/Chandanbam/openstack-rca-system/internal/models"
)

// ModeController is the per-request analysis mode state machine. It starts in
// the caller-selected mode and supports exactly one transition: hybrid to
// fast, taken when the semantic signal becomes unavailable. Fast is terminal
// for the request; there is no upgrade path.
type ModeController struct {
	mu        sync.Mutex
	requested models.AnalysisMode
	current   models.AnalysisMode
	degraded  bool
	reason    string
}

// NewModeController creates a controller in the requested mode. Anything
// other than an explicit fast request starts hybrid.
func NewModeController(requested models.AnalysisMode) *ModeController {
	if requested != models.ModeFast {
		requested = models.ModeHybrid
	}
	return &ModeController{requested: requested, current: requested}
}

// Current returns the active mode.
func (m *ModeController) Current() models.AnalysisMode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Downgrade transitions hybrid to fast and records the reason. It reports
// whether the transition fired; calling it in fast mode is a no-op and the
// first recorded reason wins.
func (m *ModeController) Downgrade(reason string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != models.ModeHybrid {
		return false
	}
	m.current = models.ModeFast
	m.degraded = true
	m.reason = reason
	return true
}

// Degraded reports whether a downgrade transition fired for this request.
func (m *ModeController) Degraded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.degraded
}

// Reason returns the recorded downgrade reason, empty when no downgrade
// happened.
func (m *ModeController) Reason() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reason
}

// ModeUsed returns the report label for the signals that actually ran. A
// downgraded request reports "fast (degraded)" so callers can tell it apart
// from fast mode they asked for.
func (m *ModeController) ModeUsed() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.current == models.ModeHybrid:
		return models.ModeUsedHybrid
	case m.degraded:
		return models.ModeUsedFastDegraded
	default:
		return models.ModeUsedFast
	}
}
