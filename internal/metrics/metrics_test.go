package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func histogramCount(t *testing.T, obs prometheus.Observer) uint64 {
	t.Helper()
	m, ok := obs.(prometheus.Metric)
	require.True(t, ok)
	var out dto.Metric
	require.NoError(t, m.Write(&out))
	return out.GetHistogram().GetSampleCount()
}

func TestRecordAnalysis(t *testing.T) {
	op := "analyze_gop_structure"
	initialOK := testutil.ToFloat64(analysisTotal.WithLabelValues(op, StatusSuccess))
	initialBad := testutil.ToFloat64(analysisTotal.WithLabelValues(op, StatusMalformedInput))
	initialObs := histogramCount(t, analysisDuration.WithLabelValues(op))

	RecordAnalysis(op, StatusSuccess, 0.002)
	RecordAnalysis(op, StatusSuccess, 0.004)
	RecordAnalysis(op, StatusMalformedInput, 0.0001)

	assert.Equal(t, initialOK+2, testutil.ToFloat64(analysisTotal.WithLabelValues(op, StatusSuccess)))
	assert.Equal(t, initialBad+1, testutil.ToFloat64(analysisTotal.WithLabelValues(op, StatusMalformedInput)))
	assert.Equal(t, initialObs+3, histogramCount(t, analysisDuration.WithLabelValues(op)))
}

func TestObserveInputRecords(t *testing.T) {
	op := "compare_quality_metrics"
	initial := histogramCount(t, analysisInputRecords.WithLabelValues(op))
	ObserveInputRecords(op, 1500)
	assert.Equal(t, initial+1, histogramCount(t, analysisInputRecords.WithLabelValues(op)))
}

func TestRecordVerdictAndLowConfidence(t *testing.T) {
	initialVerdict := testutil.ToFloat64(verdictTotal.WithLabelValues("regressed"))
	initialLow := testutil.ToFloat64(lowConfidenceTotal.WithLabelValues("analyze_artifacts"))

	RecordVerdict("regressed")
	RecordLowConfidence("analyze_artifacts")
	RecordLowConfidence("analyze_artifacts")

	assert.Equal(t, initialVerdict+1, testutil.ToFloat64(verdictTotal.WithLabelValues("regressed")))
	assert.Equal(t, initialLow+2, testutil.ToFloat64(lowConfidenceTotal.WithLabelValues("analyze_artifacts")))
}

func TestRecordCacheResult(t *testing.T) {
	op := "analyze_artifacts"
	hits := testutil.ToFloat64(cacheHitsTotal.WithLabelValues(op))
	misses := testutil.ToFloat64(cacheMissesTotal.WithLabelValues(op))
	errs := testutil.ToFloat64(cacheErrorsTotal.WithLabelValues("get"))

	RecordCacheResult(op, true)
	RecordCacheResult(op, false)
	RecordCacheResult(op, false)
	IncrementCacheError("get")

	assert.Equal(t, hits+1, testutil.ToFloat64(cacheHitsTotal.WithLabelValues(op)))
	assert.Equal(t, misses+2, testutil.ToFloat64(cacheMissesTotal.WithLabelValues(op)))
	assert.Equal(t, errs+1, testutil.ToFloat64(cacheErrorsTotal.WithLabelValues("get")))
}

func TestRecordProbe(t *testing.T) {
	initialErrs := testutil.ToFloat64(probeErrorsTotal.WithLabelValues("frames"))
	initialObs := histogramCount(t, probeDuration.WithLabelValues("frames"))

	RecordProbe("frames", 1.5, false)
	RecordProbe("frames", 0.2, true)

	assert.Equal(t, initialErrs+1, testutil.ToFloat64(probeErrorsTotal.WithLabelValues("frames")))
	assert.Equal(t, initialObs+2, histogramCount(t, probeDuration.WithLabelValues("frames")))
}

func TestRecordHTTPRequest(t *testing.T) {
	route := "/api/v1/tools/{tool}"
	initial := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("POST", route, "200"))
	initialLimited := testutil.ToFloat64(rateLimitedTotal)

	RecordHTTPRequest("POST", route, "200", 0.01)
	IncrementRateLimited()

	assert.Equal(t, initial+1, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("POST", route, "200")))
	assert.Equal(t, initialLimited+1, testutil.ToFloat64(rateLimitedTotal))
}

func TestGaugeWrapper(t *testing.T) {
	g := newGauge("vidqa_test_gauge", "test gauge", map[string]string{"k": "v"})
	g.Set(3)
	g.Inc()
	g.Dec()
	g.Dec()
	assert.Equal(t, 2.0, testutil.ToFloat64(g.Collector()))

	// re-registering the same descriptor returns the existing collector
	again := newGauge("vidqa_test_gauge", "test gauge", map[string]string{"k": "v"})
	assert.Equal(t, 2.0, testutil.ToFloat64(again.Collector()))
}

func TestSetBuildInfo(t *testing.T) {
	g := SetBuildInfo("1.0.0", "abc", "go1.23")
	assert.Equal(t, 1.0, testutil.ToFloat64(g.Collector()))

	inFlight := NewInFlightGauge()
	inFlight.Inc()
	assert.GreaterOrEqual(t, testutil.ToFloat64(inFlight.Collector()), 1.0)
	inFlight.Dec()
}
