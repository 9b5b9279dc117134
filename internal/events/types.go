package events

import "time"

// Event type constants for kelindar/event.
const (
	TypeAnalysisCompleted uint32 = iota + 1
	TypeAnalysisFailed
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// AnalysisCompleted is published after an operation returns a result,
// whether computed or served from the cache.
type AnalysisCompleted struct {
	Operation string        `json:"operation"`
	RequestID string        `json:"request_id,omitempty"`
	Duration  time.Duration `json:"duration"`
	// InputRecords counts the frames or samples in the request.
	InputRecords int `json:"input_records"`
	// Verdict is set by the transcode comparison only.
	Verdict       string `json:"verdict,omitempty"`
	LowConfidence bool   `json:"low_confidence"`
	CacheHit      bool   `json:"cache_hit"`
}

// Type returns the event type identifier for AnalysisCompleted.
func (e AnalysisCompleted) Type() uint32 { return TypeAnalysisCompleted }

// AnalysisFailed is published when an operation returns an error.
type AnalysisFailed struct {
	Operation string        `json:"operation"`
	RequestID string        `json:"request_id,omitempty"`
	Duration  time.Duration `json:"duration"`
	ErrorType string        `json:"error_type"`
	Message   string        `json:"message"`
}

// Type returns the event type identifier for AnalysisFailed.
func (e AnalysisFailed) Type() uint32 { return TypeAnalysisFailed }
