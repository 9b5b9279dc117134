package health

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Status represents the health status of a component.
type Status string

const (
	StatusOK       Status = "ok"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
)

// DefaultCheckTimeout bounds each individual check.
const DefaultCheckTimeout = 5 * time.Second

// Check represents a health check result.
type Check struct {
	Name        string                 `json:"name"`
	Status      Status                 `json:"status"`
	Message     string                 `json:"message,omitempty"`
	Optional    bool                   `json:"optional,omitempty"`
	LastChecked time.Time              `json:"last_checked"`
	Duration    time.Duration          `json:"-"`
	DurationMS  float64                `json:"duration_ms"`
	Details     map[string]interface{} `json:"details,omitempty"`
}

// Checker is the interface that health checkers must implement.
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

// Detailer is implemented by checkers that expose extra information about
// their last successful check.
type Detailer interface {
	Details() map[string]interface{}
}

type registration struct {
	checker  Checker
	optional bool
}

// Manager manages health checks. A failing required checker marks the
// service down; a failing optional checker only degrades it.
type Manager struct {
	checkers []registration
	results  map[string]*Check
	timeout  time.Duration
	mu       sync.RWMutex
	logger   *logrus.Logger
}

// NewManager creates a new health check manager.
func NewManager(logger *logrus.Logger) *Manager {
	return &Manager{
		checkers: make([]registration, 0),
		results:  make(map[string]*Check),
		timeout:  DefaultCheckTimeout,
		logger:   logger,
	}
}

// SetCheckTimeout overrides the per-check timeout.
func (m *Manager) SetCheckTimeout(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d > 0 {
		m.timeout = d
	}
}

// Register adds a required health checker.
func (m *Manager) Register(checker Checker) {
	m.register(checker, false)
}

// RegisterOptional adds a checker whose failure degrades but does not take
// down the service, such as the result cache backend.
func (m *Manager) RegisterOptional(checker Checker) {
	m.register(checker, true)
}

func (m *Manager) register(checker Checker, optional bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkers = append(m.checkers, registration{checker: checker, optional: optional})
	m.logger.WithFields(logrus.Fields{
		"checker":  checker.Name(),
		"optional": optional,
	}).Debug("Registered health checker")
}

// RunChecks executes all registered health checks concurrently.
func (m *Manager) RunChecks(ctx context.Context) map[string]*Check {
	m.mu.RLock()
	regs := append([]registration(nil), m.checkers...)
	timeout := m.timeout
	m.mu.RUnlock()

	var wg sync.WaitGroup
	results := make(map[string]*Check, len(regs))
	resultsChan := make(chan *Check, len(regs))

	for _, reg := range regs {
		wg.Add(1)
		go func(reg registration) {
			defer wg.Done()
			resultsChan <- m.runOne(ctx, reg, timeout)
		}(reg)
	}

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	for check := range resultsChan {
		results[check.Name] = check
		m.mu.Lock()
		m.results[check.Name] = check
		m.mu.Unlock()
	}

	return results
}

func (m *Manager) runOne(ctx context.Context, reg registration, timeout time.Duration) *Check {
	c := reg.checker
	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := c.Check(checkCtx)
	duration := time.Since(start)

	check := &Check{
		Name:        c.Name(),
		Optional:    reg.optional,
		LastChecked: time.Now(),
		Duration:    duration,
		DurationMS:  float64(duration.Milliseconds()),
	}

	if err == nil {
		check.Status = StatusOK
		if d, ok := c.(Detailer); ok {
			check.Details = d.Details()
		}
		m.logger.WithFields(logrus.Fields{
			"checker":  c.Name(),
			"duration": duration,
		}).Debug("Health check passed")
		return check
	}

	check.Status = StatusDown
	if reg.optional {
		check.Status = StatusDegraded
	}
	check.Message = err.Error()
	if errors.Is(err, context.DeadlineExceeded) {
		check.Message = "Health check timed out"
	}

	entry := m.logger.WithFields(logrus.Fields{
		"checker":  c.Name(),
		"duration": duration,
		"error":    err,
	})
	if reg.optional {
		entry.Warn("Optional health check failed")
	} else {
		entry.Error("Health check failed")
	}
	return check
}

// GetResults returns the latest health check results.
func (m *Manager) GetResults() map[string]*Check {
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make(map[string]*Check, len(m.results))
	for k, v := range m.results {
		checkCopy := *v
		results[k] = &checkCopy
	}
	return results
}

// GetOverallStatus returns the overall system health status.
func (m *Manager) GetOverallStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.results) == 0 {
		return StatusDown
	}

	hasDown := false
	hasDegraded := false

	for _, check := range m.results {
		switch check.Status {
		case StatusDown:
			hasDown = true
		case StatusDegraded:
			hasDegraded = true
		}
	}

	if hasDown {
		return StatusDown
	}
	if hasDegraded {
		return StatusDegraded
	}
	return StatusOK
}

// StartPeriodicChecks runs health checks every interval until ctx is done.
func (m *Manager) StartPeriodicChecks(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.RunChecks(ctx)

	for {
		select {
		case <-ticker.C:
			m.RunChecks(ctx)
		case <-ctx.Done():
			m.logger.Info("Stopping periodic health checks")
			return
		}
	}
}
