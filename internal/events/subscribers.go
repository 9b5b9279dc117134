package events

import (
	"github.com/sirupsen/logrus"

	apperrors "github.com/zsiec/vidqa/internal/errors"
	"github.com/zsiec/vidqa/internal/logger"
	"github.com/zsiec/vidqa/internal/metrics"
)

// Recorder receives analysis outcomes for instrumentation.
type Recorder interface {
	RecordAnalysis(operation, status string, seconds float64)
	ObserveInputRecords(operation string, n int)
	RecordVerdict(verdict string)
	RecordLowConfidence(operation string)
}

// PrometheusRecorder forwards outcomes to the metrics package.
type PrometheusRecorder struct{}

func (PrometheusRecorder) RecordAnalysis(operation, status string, seconds float64) {
	metrics.RecordAnalysis(operation, status, seconds)
}

func (PrometheusRecorder) ObserveInputRecords(operation string, n int) {
	metrics.ObserveInputRecords(operation, n)
}

func (PrometheusRecorder) RecordVerdict(verdict string) {
	metrics.RecordVerdict(verdict)
}

func (PrometheusRecorder) RecordLowConfidence(operation string) {
	metrics.RecordLowConfidence(operation)
}

// SubscribeMetrics feeds every analysis event into rec. The returned
// function unsubscribes.
func SubscribeMetrics(bus *Bus, rec Recorder) func() {
	unsubCompleted := bus.OnCompleted(func(e AnalysisCompleted) {
		rec.RecordAnalysis(e.Operation, metrics.StatusSuccess, e.Duration.Seconds())
		if !e.CacheHit {
			rec.ObserveInputRecords(e.Operation, e.InputRecords)
		}
		if e.Verdict != "" {
			rec.RecordVerdict(e.Verdict)
		}
		if e.LowConfidence {
			rec.RecordLowConfidence(e.Operation)
		}
	})
	unsubFailed := bus.OnFailed(func(e AnalysisFailed) {
		rec.RecordAnalysis(e.Operation, FailureStatus(e.ErrorType), e.Duration.Seconds())
	})

	return func() {
		unsubCompleted()
		unsubFailed()
	}
}

// FailureStatus maps an error type onto a metrics status label.
func FailureStatus(errorType string) string {
	switch apperrors.ErrorType(errorType) {
	case apperrors.ErrorTypeMalformedInput, apperrors.ErrorTypeValidation:
		return metrics.StatusMalformedInput
	case apperrors.ErrorTypeInsufficientSignal:
		return metrics.StatusInsufficientSignal
	default:
		return metrics.StatusError
	}
}

// SubscribeLogging logs every analysis event. Completions log at debug,
// input failures at info and everything else at error.
func SubscribeLogging(bus *Bus, base *logrus.Logger) func() {
	log := logger.WithComponent(base, "events")

	unsubCompleted := bus.OnCompleted(func(e AnalysisCompleted) {
		fields := logrus.Fields{
			"operation":      e.Operation,
			"duration_ms":    e.Duration.Milliseconds(),
			"input_records":  e.InputRecords,
			"cache_hit":      e.CacheHit,
			"low_confidence": e.LowConfidence,
		}
		if e.RequestID != "" {
			fields["request_id"] = e.RequestID
		}
		if e.Verdict != "" {
			fields["verdict"] = e.Verdict
		}
		log.WithFields(fields).Debug("Analysis completed")
	})

	unsubFailed := bus.OnFailed(func(e AnalysisFailed) {
		entry := log.WithFields(logrus.Fields{
			"operation":   e.Operation,
			"duration_ms": e.Duration.Milliseconds(),
			"error_type":  e.ErrorType,
			"error":       e.Message,
		})
		if e.RequestID != "" {
			entry = entry.WithField("request_id", e.RequestID)
		}
		if FailureStatus(e.ErrorType) == metrics.StatusError {
			entry.Error("Analysis failed")
			return
		}
		entry.Info("Analysis rejected input")
	})

	return func() {
		unsubCompleted()
		unsubFailed()
	}
}
