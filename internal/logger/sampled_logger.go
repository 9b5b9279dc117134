package logger

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// SampledLogger rate-limits repetitive log categories such as per-line
// parse warnings. Categories without a sampler are never dropped.
type SampledLogger struct {
	base     Logger
	mu       sync.RWMutex
	samplers map[string]*logSampler
}

type logSampler struct {
	limiter *rate.Limiter
	total   atomic.Int64
	logged  atomic.Int64
}

// SamplerStats holds statistics for one category.
type SamplerStats struct {
	Name    string `json:"name"`
	Total   int64  `json:"total"`
	Logged  int64  `json:"logged"`
	Dropped int64  `json:"dropped"`
}

// Probe and parser log categories.
const (
	CategoryFrameParse  = "frame_parse"
	CategoryMetricParse = "metric_parse"
	CategoryProbeStderr = "probe_stderr"
)

// NewSampledLogger creates a sampled logger with no samplers configured.
func NewSampledLogger(base Logger) *SampledLogger {
	return &SampledLogger{
		base:     base,
		samplers: make(map[string]*logSampler),
	}
}

// NewProbeLogger returns a sampled logger tuned for ffprobe output parsing.
func NewProbeLogger(base Logger) *SampledLogger {
	return NewSampledLogger(base).
		WithSampler(CategoryFrameParse, 100*time.Millisecond, 5).
		WithSampler(CategoryMetricParse, 100*time.Millisecond, 5).
		WithSampler(CategoryProbeStderr, time.Second, 3)
}

// WithSampler allows burst messages in category, then one per interval.
func (s *SampledLogger) WithSampler(category string, interval time.Duration, burst int) *SampledLogger {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samplers[category] = &logSampler{limiter: rate.NewLimiter(rate.Every(interval), burst)}
	return s
}

func (s *SampledLogger) shouldLog(category string) bool {
	s.mu.RLock()
	sampler, ok := s.samplers[category]
	s.mu.RUnlock()
	if !ok {
		return true
	}

	sampler.total.Add(1)
	if !sampler.limiter.Allow() {
		return false
	}
	sampler.logged.Add(1)
	return true
}

func (s *SampledLogger) logCategory(level logrus.Level, category, msg string, fields map[string]interface{}) {
	if !s.shouldLog(category) {
		return
	}
	out := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out["category"] = category
	s.base.WithFields(out).Log(level, msg)
}

// WarnWithCategory logs a sampled warning.
func (s *SampledLogger) WarnWithCategory(category, msg string, fields map[string]interface{}) {
	s.logCategory(logrus.WarnLevel, category, msg, fields)
}

// Stats returns per-category counters.
func (s *SampledLogger) Stats() map[string]SamplerStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]SamplerStats, len(s.samplers))
	for name, sampler := range s.samplers {
		total, logged := sampler.total.Load(), sampler.logged.Load()
		stats[name] = SamplerStats{Name: name, Total: total, Logged: logged, Dropped: total - logged}
	}
	return stats
}
