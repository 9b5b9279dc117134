package engine

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zsiec/vidqa/internal/analysis/artifacts"
	"github.com/zsiec/vidqa/internal/analysis/metadata"
	"github.com/zsiec/vidqa/internal/analysis/quality"
	"github.com/zsiec/vidqa/internal/analysis/types"
	"github.com/zsiec/vidqa/internal/cache"
	"github.com/zsiec/vidqa/internal/config"
	apperrors "github.com/zsiec/vidqa/internal/errors"
	"github.com/zsiec/vidqa/internal/events"
	"github.com/zsiec/vidqa/internal/logger"
)

type eventLog struct {
	mu        sync.Mutex
	completed []events.AnalysisCompleted
	failed    []events.AnalysisFailed
}

func (l *eventLog) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.completed) + len(l.failed)
}

func watch(t *testing.T, bus *events.Bus) *eventLog {
	t.Helper()
	l := &eventLog{}
	unsubCompleted := bus.OnCompleted(func(e events.AnalysisCompleted) {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.completed = append(l.completed, e)
	})
	unsubFailed := bus.OnFailed(func(e events.AnalysisFailed) {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.failed = append(l.failed, e)
	})
	t.Cleanup(func() {
		unsubCompleted()
		unsubFailed()
	})
	return l
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func frames(spec string, step float64) []types.FrameRecord {
	out := make([]types.FrameRecord, 0, len(spec))
	for i, c := range spec {
		out = append(out, types.FrameRecord{
			Timestamp: float64(i) * step,
			Type:      types.ParseFrameType(string(c)),
			Size:      1000,
		})
	}
	return out
}

func TestFromConfigMatchesDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), FromConfig(&cfg.Analysis))
}

func TestAnalyzeMetadata(t *testing.T) {
	e := New(DefaultConfig(), WithLogger(quietLogger()))

	md, err := e.AnalyzeMetadata(context.Background(), MetadataRequest{Metadata: metadata.RawDescription{
		"format_name":  "matroska,webm",
		"duration":     "12.5",
		"width":        1280,
		"height":       720,
		"r_frame_rate": "25/1",
		"pix_fmt":      "yuv420p10le",
	}})
	require.NoError(t, err)
	assert.Equal(t, "matroska", md.Container)
	assert.Equal(t, 10, md.BitDepth)
	assert.Equal(t, types.Unknown, md.Profile)

	_, err = e.AnalyzeMetadata(context.Background(), MetadataRequest{})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	assert.Contains(t, err.Error(), "missing required parameter: metadata")
}

func TestAnalyzeGOP(t *testing.T) {
	e := New(DefaultConfig(), WithLogger(quietLogger()))
	ctx := context.Background()

	t.Run("structure", func(t *testing.T) {
		stats, err := e.AnalyzeGOP(ctx, GOPRequest{Frames: frames("IBBPBBPIBBPBBPI", 0.04)})
		require.NoError(t, err)
		assert.Equal(t, 2, stats.GOPCount)
		assert.Equal(t, []int{7, 7}, stats.GOPLengths)
	})

	t.Run("empty listing is insufficient signal", func(t *testing.T) {
		stats, err := e.AnalyzeGOP(ctx, GOPRequest{Frames: []types.FrameRecord{}})
		require.NoError(t, err)
		assert.True(t, stats.InsufficientSignal)
	})

	t.Run("missing frames", func(t *testing.T) {
		_, err := e.AnalyzeGOP(ctx, GOPRequest{})
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	})

	t.Run("decreasing timestamps", func(t *testing.T) {
		f := frames("IPP", 0.04)
		f[2].Timestamp = 0.01
		_, err := e.AnalyzeGOP(ctx, GOPRequest{Frames: f})
		assert.True(t, apperrors.IsMalformedInput(err))
	})

	t.Run("frame cap", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.MaxFrames = 3
		capped := New(cfg, WithLogger(quietLogger()))
		_, err := capped.AnalyzeGOP(ctx, GOPRequest{Frames: frames("IPPP", 0.04)})
		require.Error(t, err)
		assert.True(t, apperrors.IsMalformedInput(err))
		assert.Contains(t, err.Error(), "exceeds the limit of 3")
	})
}

func TestCompareQuality(t *testing.T) {
	e := New(DefaultConfig(), WithLogger(quietLogger()))

	res, err := e.CompareQuality(context.Background(), QualityRequest{
		Distorted: []quality.Sample{
			{Name: quality.MetricVMAF, Values: []float64{90, 92, 94}},
			{Name: quality.MetricSSIM, Values: []float64{}},
		},
		Reference: []quality.Sample{
			{Name: quality.MetricVMAF, Values: []float64{95, 95, 95}},
		},
	})
	require.NoError(t, err)

	assert.InDelta(t, 92, res.Distorted.Summaries[quality.MetricVMAF].Mean, 1e-9)
	assert.Len(t, res.Distorted.Warnings, 1)
	require.NotNil(t, res.Reference)
	assert.InDelta(t, -3, res.Deltas[quality.MetricVMAF].Delta, 1e-9)

	_, err = e.CompareQuality(context.Background(), QualityRequest{Distorted: []quality.Sample{{Name: "vmaf"}}})
	assert.True(t, apperrors.IsInsufficientSignal(err))

	_, err = e.CompareQuality(context.Background(), QualityRequest{})
	assert.Contains(t, err.Error(), "missing required parameter: distorted")
}

func TestAnalyzeArtifacts(t *testing.T) {
	e := New(DefaultConfig(), WithLogger(quietLogger()))

	t.Run("single", func(t *testing.T) {
		a, err := e.AnalyzeArtifacts(context.Background(), ArtifactsRequest{
			Target: artifacts.Signals{types.ArtifactBlocking: {0.4, 0.45, 0.5}},
		})
		require.NoError(t, err)
		assert.Equal(t, artifacts.ModeSingle, a.Mode)
		require.Len(t, a.Scores, 1)
	})

	t.Run("compare", func(t *testing.T) {
		a, err := e.AnalyzeArtifacts(context.Background(), ArtifactsRequest{
			Target:    artifacts.Signals{types.ArtifactBlocking: {0.3, 0.3, 0.3}},
			Reference: artifacts.Signals{types.ArtifactBlocking: {0.05, 0.05, 0.05}},
		})
		require.NoError(t, err)
		assert.Equal(t, artifacts.ModeCompare, a.Mode)
		s, ok := a.Score(types.ArtifactBlocking)
		require.True(t, ok)
		assert.Equal(t, types.ImpactWorse, s.Impact)
	})

	t.Run("missing target", func(t *testing.T) {
		_, err := e.AnalyzeArtifacts(context.Background(), ArtifactsRequest{})
		assert.Contains(t, err.Error(), "missing required parameter: target")
	})
}

func TestSummarizeTranscodeFromRawInputs(t *testing.T) {
	e := New(DefaultConfig(), WithLogger(quietLogger()))

	rep, err := e.SummarizeTranscode(context.Background(), SummaryRequest{
		Source: metadata.RawDescription{
			"duration": 10, "width": 1920, "height": 1080, "bit_rate": 8_000_000, "codec_name": "h264",
		},
		Transcoded: metadata.RawDescription{
			"duration": 10, "width": 1920, "height": 1080, "bit_rate": 2_000_000, "codec_name": "hevc",
		},
		SourceFrames:     frames("IPPPIPPPI", 0.04),
		TranscodedFrames: frames("IPPPPPPPI", 0.04),
		QualitySamples:   []quality.Sample{{Name: quality.MetricVMAF, Values: []float64{88, 90, 92}}},
	})
	require.NoError(t, err)

	assert.Equal(t, types.VerdictRegressed, rep.Verdict)
	require.NotNil(t, rep.QualityChange)
	require.NotNil(t, rep.QualityChange.VMAFDelta)
	assert.InDelta(t, -10, *rep.QualityChange.VMAFDelta, 1e-9)
	require.NotNil(t, rep.QualityChange.BitrateSavingPercent)
	assert.InDelta(t, 75, *rep.QualityChange.BitrateSavingPercent, 1e-9)
	require.NotNil(t, rep.Metadata)
	assert.True(t, rep.Metadata.CodecChanged)
	require.NotNil(t, rep.Structure)
	assert.InDelta(t, 8, rep.Structure.TranscodedAvgGOP, 1e-9)
}

func TestSummarizeTranscodeSkipsCategoriesWithoutSignal(t *testing.T) {
	e := New(DefaultConfig(), WithLogger(quietLogger()))
	meta := func(bitrate int) metadata.RawDescription {
		return metadata.RawDescription{"duration": 10, "width": 1280, "height": 720, "bit_rate": bitrate, "codec_name": "h264"}
	}

	tests := []struct {
		name string
		req  SummaryRequest
		note string
	}{
		{
			name: "signals share no artifact type",
			req: SummaryRequest{
				Source:            meta(4_000_000),
				Transcoded:        meta(2_000_000),
				TranscodedSignals: artifacts.Signals{types.ArtifactBlur: {120, 130}},
				SourceSignals:     artifacts.Signals{types.ArtifactBlocking: {0.1, 0.2}},
			},
			note: "transcoded_signals skipped",
		},
		{
			name: "every quality sample empty",
			req: SummaryRequest{
				Source:         meta(4_000_000),
				Transcoded:     meta(2_000_000),
				QualitySamples: []quality.Sample{{Name: quality.MetricVMAF, Values: []float64{}}},
			},
			note: "quality_samples skipped",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep, err := e.SummarizeTranscode(context.Background(), tt.req)
			require.NoError(t, err)

			require.NotNil(t, rep.Metadata)
			require.NotNil(t, rep.QualityChange)
			require.NotNil(t, rep.QualityChange.BitrateSavingPercent)
			assert.InDelta(t, 50, *rep.QualityChange.BitrateSavingPercent, 1e-9)
			assert.Nil(t, rep.QualityChange.VMAFDelta)
			assert.Nil(t, rep.ArtifactRisk)

			found := false
			for _, n := range rep.Notes {
				if strings.HasPrefix(n, tt.note) {
					found = true
				}
			}
			assert.True(t, found, "notes %v should mention %q", rep.Notes, tt.note)
		})
	}
}

func TestSummarizeTranscodeMalformedCategoryFails(t *testing.T) {
	e := New(DefaultConfig(), WithLogger(quietLogger()))
	_, err := e.SummarizeTranscode(context.Background(), SummaryRequest{
		Transcoded:     metadata.RawDescription{"duration": 10, "width": 1280, "height": 720},
		QualitySamples: []quality.Sample{{Name: quality.MetricVMAF, Values: []float64{90}}, {Name: quality.MetricVMAF, Values: []float64{91}}},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsMalformedInput(err))
	assert.Contains(t, err.Error(), "quality_samples")
}

func TestSummarizeTranscodeEmpty(t *testing.T) {
	e := New(DefaultConfig(), WithLogger(quietLogger()))
	_, err := e.SummarizeTranscode(context.Background(), SummaryRequest{})
	assert.True(t, apperrors.IsInsufficientSignal(err))
}

func TestEventsAndCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	bus := events.New()
	t.Cleanup(func() { _ = bus.Close() })
	seen := watch(t, bus)

	c := cache.NewRedisCache(client, &config.CacheConfig{Enabled: true, TTL: time.Minute, Prefix: "test:"}, quietLogger())
	e := New(DefaultConfig(), WithLogger(quietLogger()), WithCache(c), WithEvents(bus))

	ctx := logger.WithRequestID(context.Background(), "req-42")
	req := SummaryRequest{QualitySamples: []quality.Sample{{Name: quality.MetricVMAF, Values: []float64{99, 99}}}}

	first, err := e.SummarizeTranscode(ctx, req)
	require.NoError(t, err)
	assert.Len(t, mr.Keys(), 1)

	second, err := e.SummarizeTranscode(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.Verdict, second.Verdict)
	assert.Equal(t, first.Summary, second.Summary)

	_, err = e.AnalyzeGOP(ctx, GOPRequest{})
	require.Error(t, err)

	assert.Eventually(t, func() bool { return seen.count() == 3 }, time.Second, 5*time.Millisecond)

	seen.mu.Lock()
	defer seen.mu.Unlock()
	require.Len(t, seen.completed, 2)
	assert.False(t, seen.completed[0].CacheHit)
	assert.True(t, seen.completed[1].CacheHit)
	for _, ev := range seen.completed {
		assert.Equal(t, OpTranscodeSummary, ev.Operation)
		assert.Equal(t, "equivalent", ev.Verdict)
		assert.Equal(t, "req-42", ev.RequestID)
	}
	require.Len(t, seen.failed, 1)
	assert.Equal(t, OpGOPStructure, seen.failed[0].Operation)
	assert.Equal(t, string(apperrors.ErrorTypeValidation), seen.failed[0].ErrorType)
}

func TestCacheKeyCoversConfig(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	c := cache.NewRedisCache(client, &config.CacheConfig{Enabled: true, TTL: time.Minute, Prefix: "test:"}, quietLogger())

	req := GOPRequest{Frames: frames("IPPI", 0.04)}

	a := New(DefaultConfig(), WithLogger(quietLogger()), WithCache(c))
	_, err := a.AnalyzeGOP(context.Background(), req)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.GOP.MaxKeyframeTimestamps = 1
	b := New(cfg, WithLogger(quietLogger()), WithCache(c))
	stats, err := b.AnalyzeGOP(context.Background(), req)
	require.NoError(t, err)

	assert.Len(t, mr.Keys(), 2)
	assert.True(t, stats.KeyframeTimestampsTruncated)
}
