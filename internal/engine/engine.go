// Package engine runs the analysis operations with input limits, result
// caching, structured logging and outcome events around the pure analysis
// packages.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/zsiec/vidqa/internal/analysis/artifacts"
	"github.com/zsiec/vidqa/internal/analysis/gop"
	"github.com/zsiec/vidqa/internal/analysis/metadata"
	"github.com/zsiec/vidqa/internal/analysis/quality"
	"github.com/zsiec/vidqa/internal/analysis/report"
	"github.com/zsiec/vidqa/internal/analysis/types"
	"github.com/zsiec/vidqa/internal/cache"
	apperrors "github.com/zsiec/vidqa/internal/errors"
	"github.com/zsiec/vidqa/internal/events"
	"github.com/zsiec/vidqa/internal/logger"
	"github.com/zsiec/vidqa/internal/metrics"
)

// Engine runs analysis operations. It is safe for concurrent use.
type Engine struct {
	cfg    Config
	cache  cache.Cache
	bus    *events.Bus
	logger *logrus.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithCache memoizes results in c.
func WithCache(c cache.Cache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithEvents publishes an event after every operation.
func WithEvents(bus *events.Bus) Option {
	return func(e *Engine) { e.bus = bus }
}

// WithLogger sets the logger.
func WithLogger(l *logrus.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an engine. Without options it neither caches nor publishes.
func New(cfg Config, opts ...Option) *Engine {
	e := &Engine{cfg: cfg}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logrus.New()
		e.logger.SetLevel(logrus.WarnLevel)
	}
	if e.cfg.MaxFrames <= 0 {
		e.cfg.MaxFrames = DefaultMaxFrames
	}
	if e.cfg.MaxSamples <= 0 {
		e.cfg.MaxSamples = DefaultMaxSamples
	}
	return e
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// AnalyzeMetadata normalizes one raw stream description.
func (e *Engine) AnalyzeMetadata(ctx context.Context, req MetadataRequest) (types.VideoMetadata, error) {
	return execute(ctx, e, OpVideoMetadata, req, 1, func() (types.VideoMetadata, outcome, error) {
		if err := req.Validate(); err != nil {
			return types.VideoMetadata{}, outcome{}, err
		}
		md, err := metadata.Normalize(req.Metadata)
		return md, outcome{}, err
	})
}

// AnalyzeGOP computes frame structure statistics for one listing.
func (e *Engine) AnalyzeGOP(ctx context.Context, req GOPRequest) (gop.Stats, error) {
	return execute(ctx, e, OpGOPStructure, req, len(req.Frames), func() (gop.Stats, outcome, error) {
		if err := req.Validate(); err != nil {
			return gop.Stats{}, outcome{}, err
		}
		stats, err := e.analyzeFrames("frames", req.Frames)
		return stats, outcome{lowConfidence: stats.InsufficientSignal}, err
	})
}

// CompareQuality summarizes full-reference metric samples and, when a
// reference encode is given, the per-metric deltas against it.
func (e *Engine) CompareQuality(ctx context.Context, req QualityRequest) (QualityComparison, error) {
	return execute(ctx, e, OpQualityMetrics, req, req.records(), func() (QualityComparison, outcome, error) {
		if err := req.Validate(); err != nil {
			return QualityComparison{}, outcome{}, err
		}
		if n := req.records(); n > e.cfg.MaxSamples {
			return QualityComparison{}, outcome{}, tooMany("samples", n, e.cfg.MaxSamples)
		}

		distorted, err := quality.Aggregate(req.Distorted)
		if err != nil {
			return QualityComparison{}, outcome{}, fmt.Errorf("distorted: %w", err)
		}
		out := QualityComparison{Distorted: distorted}
		if len(req.Reference) == 0 {
			return out, outcome{}, nil
		}

		reference, err := quality.Aggregate(req.Reference)
		if err != nil {
			return QualityComparison{}, outcome{}, fmt.Errorf("reference: %w", err)
		}
		out.Reference = &reference
		out.Deltas = quality.Compare(reference.Summaries, distorted.Summaries)
		return out, outcome{}, nil
	})
}

// AnalyzeArtifacts scores artifacts for one stream, or as deltas against a
// reference when one is given.
func (e *Engine) AnalyzeArtifacts(ctx context.Context, req ArtifactsRequest) (artifacts.Analysis, error) {
	return execute(ctx, e, OpArtifacts, req, req.records(), func() (artifacts.Analysis, outcome, error) {
		if err := req.Validate(); err != nil {
			return artifacts.Analysis{}, outcome{}, err
		}
		if n := req.records(); n > e.cfg.MaxSamples {
			return artifacts.Analysis{}, outcome{}, tooMany("signal samples", n, e.cfg.MaxSamples)
		}

		var (
			analysis artifacts.Analysis
			err      error
		)
		if req.Reference != nil {
			analysis, err = artifacts.Compare(req.Target, req.Reference, e.cfg.Artifacts)
		} else {
			analysis, err = artifacts.Analyze(req.Target, e.cfg.Artifacts)
		}
		return analysis, outcome{lowConfidence: analysis.LowConfidence()}, err
	})
}

// SummarizeTranscode synthesizes a transcode report. Raw inputs in req are
// analyzed first wherever the matching derived input is absent.
func (e *Engine) SummarizeTranscode(ctx context.Context, req SummaryRequest) (report.TranscodeReport, error) {
	return execute(ctx, e, OpTranscodeSummary, req, req.records(), func() (report.TranscodeReport, outcome, error) {
		in, skipped, err := e.summaryInput(req)
		if err != nil {
			return report.TranscodeReport{}, outcome{}, err
		}
		rep, err := report.Synthesize(in, e.cfg.Report)
		if err != nil {
			return report.TranscodeReport{}, outcome{}, err
		}
		rep.Notes = append(rep.Notes, skipped...)
		return rep, outcome{verdict: rep.Verdict.String(), lowConfidence: rep.LowConfidence}, nil
	})
}

// summaryInput derives the report input. A raw category without usable
// signal is left out and described in the returned notes; malformed input
// still fails the call.
func (e *Engine) summaryInput(req SummaryRequest) (report.Input, []string, error) {
	in := req.Input
	var skipped []string
	skip := func(field string, err error) error {
		if !apperrors.IsInsufficientSignal(err) {
			return fmt.Errorf("%s: %w", field, err)
		}
		e.logger.WithError(err).WithField("field", field).Debug("Summary input skipped")
		skipped = append(skipped, fmt.Sprintf("%s skipped: %s", field, message(err)))
		return nil
	}

	if n := countSamples(req.QualitySamples) + countSignals(req.SourceSignals) + countSignals(req.TranscodedSignals); n > e.cfg.MaxSamples {
		return in, nil, tooMany("samples", n, e.cfg.MaxSamples)
	}

	if in.SourceMetadata == nil && req.Source != nil {
		md, err := metadata.Normalize(req.Source)
		if err != nil {
			return in, nil, fmt.Errorf("source: %w", err)
		}
		in.SourceMetadata = &md
	}
	if in.TranscodedMetadata == nil && req.Transcoded != nil {
		md, err := metadata.Normalize(req.Transcoded)
		if err != nil {
			return in, nil, fmt.Errorf("transcoded: %w", err)
		}
		in.TranscodedMetadata = &md
	}

	if in.SourceGOP == nil && len(req.SourceFrames) > 0 {
		stats, err := e.analyzeFrames("source_frames", req.SourceFrames)
		if err != nil {
			return in, nil, err
		}
		in.SourceGOP = &stats
	}
	if in.TranscodedGOP == nil && len(req.TranscodedFrames) > 0 {
		stats, err := e.analyzeFrames("transcoded_frames", req.TranscodedFrames)
		if err != nil {
			return in, nil, err
		}
		in.TranscodedGOP = &stats
	}

	if len(in.TranscodedMetrics) == 0 && len(req.QualitySamples) > 0 {
		res, err := quality.Aggregate(req.QualitySamples)
		if err != nil {
			if err := skip("quality_samples", err); err != nil {
				return in, nil, err
			}
		} else {
			in.TranscodedMetrics = res.Summaries
			skipped = append(skipped, res.Warnings...)
		}
	}

	if in.Artifacts == nil && len(req.TranscodedSignals) > 0 {
		var (
			analysis artifacts.Analysis
			err      error
		)
		if len(req.SourceSignals) > 0 {
			analysis, err = artifacts.Compare(req.TranscodedSignals, req.SourceSignals, e.cfg.Artifacts)
		} else {
			analysis, err = artifacts.Analyze(req.TranscodedSignals, e.cfg.Artifacts)
		}
		if err != nil {
			if err := skip("transcoded_signals", err); err != nil {
				return in, nil, err
			}
		} else {
			in.Artifacts = &analysis
		}
	}

	return in, skipped, nil
}

func message(err error) string {
	if appErr, ok := apperrors.GetAppError(err); ok {
		return appErr.Message
	}
	return err.Error()
}

func (e *Engine) analyzeFrames(field string, frames []types.FrameRecord) (gop.Stats, error) {
	if len(frames) > e.cfg.MaxFrames {
		return gop.Stats{}, tooMany(field, len(frames), e.cfg.MaxFrames)
	}
	stats, err := gop.Analyze(frames, e.cfg.GOP)
	if err != nil {
		return gop.Stats{}, fmt.Errorf("%s: %w", field, err)
	}
	return stats, nil
}

func tooMany(what string, n, limit int) error {
	return apperrors.NewMalformedInputError(what, fmt.Sprintf("%d %s exceeds the limit of %d", n, what, limit))
}

// outcome carries the per-operation facts reported in events.
type outcome struct {
	verdict       string
	lowConfidence bool
}

// cacheEntry is what the cache stores per request.
type cacheEntry[T any] struct {
	Result  T      `json:"result"`
	Verdict string `json:"verdict,omitempty"`
	Low     bool   `json:"low_confidence,omitempty"`
}

// execute runs compute for op with caching, logging and events. The cache
// key covers the engine configuration as well as the request.
func execute[Req, Res any](ctx context.Context, e *Engine, op string, req Req, records int, compute func() (Res, outcome, error)) (Res, error) {
	start := time.Now()
	log := logger.WithOperation(e.logger, op)
	if id := logger.GetRequestID(ctx); id != "" {
		log = log.WithField("request_id", id)
	}

	key := ""
	if e.cache != nil {
		k, err := e.cache.Key(op, struct {
			Config  Config `json:"config"`
			Request Req    `json:"request"`
		}{e.cfg, req})
		if err != nil {
			log.WithError(err).Warn("Failed to derive cache key")
		} else {
			key = k
			var entry cacheEntry[Res]
			hit, err := e.cache.Get(ctx, key, &entry)
			if err != nil {
				log.WithError(err).Warn("Cache lookup failed")
			}
			metrics.RecordCacheResult(op, hit)
			if hit {
				log.Debug("Serving cached result")
				e.completed(ctx, op, records, time.Since(start), outcome{verdict: entry.Verdict, lowConfidence: entry.Low}, true)
				return entry.Result, nil
			}
		}
	}

	log.WithField("input_records", records).Debug("Running analysis")
	res, out, err := compute()
	elapsed := time.Since(start)
	if err != nil {
		var zero Res
		err = classify(err)
		e.failed(ctx, op, elapsed, err)
		return zero, err
	}

	if key != "" {
		if err := e.cache.Set(ctx, key, cacheEntry[Res]{Result: res, Verdict: out.verdict, Low: out.lowConfidence}); err != nil {
			log.WithError(err).Warn("Failed to cache result")
		}
	}

	fields := logrus.Fields{
		"duration_ms":    elapsed.Milliseconds(),
		"low_confidence": out.lowConfidence,
	}
	if out.verdict != "" {
		fields["verdict"] = out.verdict
	}
	log.WithFields(fields).Info("Analysis completed")

	e.completed(ctx, op, records, elapsed, out, false)
	return res, nil
}

// classify makes sure every returned error carries an AppError.
func classify(err error) error {
	if apperrors.IsAppError(err) {
		return err
	}
	return apperrors.WrapInternalError(err, "analysis failed")
}

func (e *Engine) completed(ctx context.Context, op string, records int, d time.Duration, out outcome, cacheHit bool) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(events.AnalysisCompleted{
		Operation:     op,
		RequestID:     logger.GetRequestID(ctx),
		Duration:      d,
		InputRecords:  records,
		Verdict:       out.verdict,
		LowConfidence: out.lowConfidence,
		CacheHit:      cacheHit,
	})
}

func (e *Engine) failed(ctx context.Context, op string, d time.Duration, err error) {
	log := logger.WithOperation(e.logger, op).WithError(err)
	errType := string(apperrors.ErrorTypeInternal)
	if appErr, ok := apperrors.GetAppError(err); ok {
		errType = string(appErr.Type)
	}
	if errType == string(apperrors.ErrorTypeInternal) {
		log.Error("Analysis failed")
	} else {
		log.WithField("error_type", errType).Debug("Analysis rejected input")
	}

	if e.bus == nil {
		return
	}
	e.bus.Publish(events.AnalysisFailed{
		Operation: op,
		RequestID: logger.GetRequestID(ctx),
		Duration:  d,
		ErrorType: errType,
		Message:   err.Error(),
	})
}
