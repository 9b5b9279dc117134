package health

import (
	"context"
	"fmt"
	"sync"
)

// VersionReporter reports the version of an external binary.
// *probe.Runner satisfies it.
type VersionReporter interface {
	Version(ctx context.Context) (string, error)
}

// ProbeChecker verifies that ffprobe is installed and answers -version.
type ProbeChecker struct {
	probe VersionReporter

	mu      sync.RWMutex
	version string
}

// NewProbeChecker creates a checker around probe.
func NewProbeChecker(probe VersionReporter) *ProbeChecker {
	return &ProbeChecker{probe: probe}
}

// Name returns the name of the checker.
func (p *ProbeChecker) Name() string {
	return "ffprobe"
}

// Check runs ffprobe -version.
func (p *ProbeChecker) Check(ctx context.Context) error {
	v, err := p.probe.Version(ctx)
	if err != nil {
		return fmt.Errorf("ffprobe check failed: %w", err)
	}

	p.mu.Lock()
	p.version = v
	p.mu.Unlock()
	return nil
}

// Details returns the last reported version.
func (p *ProbeChecker) Details() map[string]interface{} {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return map[string]interface{}{"version": p.version}
}
