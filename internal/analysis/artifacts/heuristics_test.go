package artifacts

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zsiec/vidqa/internal/analysis/types"
	apperrors "github.com/zsiec/vidqa/internal/errors"
)

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func flatSignals() Signals {
	s := Signals{}
	for _, t := range types.ArtifactTypes {
		s[t] = repeat(0, 3)
	}
	return s
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		artifact types.ArtifactType
		raw      float64
		want     float64
	}{
		{types.ArtifactBlur, 0, 1},
		{types.ArtifactBlur, 250, 0.5},
		{types.ArtifactBlur, 5000, 0},
		{types.ArtifactBlocking, 0, 0},
		{types.ArtifactBlocking, 0.25, 0.5},
		{types.ArtifactBlocking, 0.9, 1},
		{types.ArtifactRinging, 25, 0.5},
		{types.ArtifactRinging, 100, 1},
		{types.ArtifactBanding, 0.05, 0.5},
		{types.ArtifactBanding, 0.5, 0},
		{types.ArtifactDarkDetailLoss, 50, 0.5},
		{types.ArtifactDarkDetailLoss, 150, 0},
	}
	for _, tt := range tests {
		t.Run(tt.artifact.String(), func(t *testing.T) {
			got, err := Normalize(tt.artifact, tt.raw)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}

	_, err := Normalize(types.ArtifactType(99), 1)
	assert.Error(t, err)
}

func TestNormalize_Monotonic(t *testing.T) {
	for _, a := range types.ArtifactTypes {
		t.Run(a.String(), func(t *testing.T) {
			first, _ := Normalize(a, 0)
			prev := first
			increasing := a == types.ArtifactBlocking || a == types.ArtifactRinging
			for raw := 0.0; raw < 1000; raw += 0.37 {
				got, err := Normalize(a, raw)
				require.NoError(t, err)
				assert.GreaterOrEqual(t, got, 0.0)
				assert.LessOrEqual(t, got, 1.0)
				if increasing {
					assert.GreaterOrEqual(t, got, prev)
				} else {
					assert.LessOrEqual(t, got, prev)
				}
				prev = got
			}
		})
	}
}

func TestAnalyze_Textured(t *testing.T) {
	res, err := Analyze(Signals{
		types.ArtifactBlur:     repeat(100, 3),
		types.ArtifactBlocking: repeat(0.05, 3),
	}, DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, ModeSingle, res.Mode)
	require.Len(t, res.Scores, 2)

	blur, ok := res.Score(types.ArtifactBlur)
	require.True(t, ok)
	assert.InDelta(t, 0.8, blur.Severity, 1e-12)
	assert.Equal(t, types.LevelHigh, blur.Level)
	assert.Equal(t, Describe(types.ArtifactBlur, types.LevelHigh), blur.Description)
	assert.Equal(t, 1.0, blur.Confidence)
	assert.False(t, blur.LowConfidence)
	assert.Nil(t, blur.Delta)

	blocking, _ := res.Score(types.ArtifactBlocking)
	assert.Equal(t, types.LevelLow, blocking.Level)

	assert.Equal(t, RiskMedium, res.Risk.OverallRisk)
	assert.Equal(t, []types.ArtifactType{types.ArtifactBlur}, res.Risk.DominantIssues)
	assert.Contains(t, res.Notes, "blur risk is high")

	_, hasRinging := res.Score(types.ArtifactRinging)
	assert.False(t, hasRinging)
}

func TestAnalyze_FlatInputIsLowConfidence(t *testing.T) {
	cfg := DefaultConfig()
	res, err := Analyze(flatSignals(), cfg)
	require.NoError(t, err)

	require.Len(t, res.Scores, len(types.ArtifactTypes))
	for _, s := range res.Scores {
		assert.True(t, s.LowConfidence, s.Type.String())
		assert.Equal(t, 0.0, s.Confidence)
		assert.LessOrEqual(t, s.Severity, cfg.LowConfidenceCeiling, s.Type.String())
	}
	assert.True(t, res.LowConfidence())
	assert.Equal(t, RiskLow, res.Risk.OverallRisk)
	assert.Empty(t, res.Risk.DominantIssues)
}

func TestCompare_FlatInputNeverWorsens(t *testing.T) {
	res, err := Compare(flatSignals(), flatSignals(), DefaultConfig())
	require.NoError(t, err)

	for _, s := range res.Scores {
		assert.True(t, s.LowConfidence, s.Type.String())
		require.NotNil(t, s.Delta)
		assert.Equal(t, 0.0, *s.Delta)
		assert.Equal(t, types.ImpactNeutral, s.Impact)
		assert.False(t, s.Worsened())
	}
	assert.Equal(t, RiskLow, res.Risk.OverallRisk)
	assert.Equal(t, []string{genericCause}, res.Risk.LikelyCauses)
}

func TestCompare_OneFlatStreamIsLowConfidence(t *testing.T) {
	target := Signals{types.ArtifactBlur: repeat(0, 3)}
	reference := Signals{types.ArtifactBlur: repeat(400, 3)}

	res, err := Compare(target, reference, DefaultConfig())
	require.NoError(t, err)

	blur, _ := res.Score(types.ArtifactBlur)
	assert.True(t, blur.LowConfidence)
	assert.Equal(t, types.ImpactWorse, blur.Impact)
	assert.Equal(t, RiskLow, res.Risk.OverallRisk, "low-confidence deltas do not raise risk")
}

func TestCompare_PartialAmbiguity(t *testing.T) {
	cfg := DefaultConfig()

	res, err := Analyze(Signals{types.ArtifactBlur: {0, 200, 200}}, cfg)
	require.NoError(t, err)
	blur, _ := res.Score(types.ArtifactBlur)
	assert.InDelta(t, 0.6, blur.Severity, 1e-12)
	assert.False(t, blur.LowConfidence)

	res, err = Analyze(Signals{types.ArtifactBlur: {0, 0, 200}}, cfg)
	require.NoError(t, err)
	blur, _ = res.Score(types.ArtifactBlur)
	assert.InDelta(t, 0.6, blur.Severity, 1e-12)
	assert.True(t, blur.LowConfidence)
}

func TestCompare_Antisymmetric(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	scale := map[types.ArtifactType]float64{
		types.ArtifactBlur:           800,
		types.ArtifactBlocking:       0.6,
		types.ArtifactRinging:        80,
		types.ArtifactBanding:        0.15,
		types.ArtifactDarkDetailLoss: 150,
	}
	random := func() Signals {
		s := Signals{}
		for _, a := range types.ArtifactTypes {
			n := 1 + rng.Intn(4)
			vals := make([]float64, n)
			for i := range vals {
				vals[i] = rng.Float64() * scale[a]
			}
			s[a] = vals
		}
		return s
	}

	cfg := DefaultConfig()
	for run := 0; run < 100; run++ {
		a, b := random(), random()
		ab, err := Compare(a, b, cfg)
		require.NoError(t, err)
		ba, err := Compare(b, a, cfg)
		require.NoError(t, err)

		require.Len(t, ba.Scores, len(ab.Scores))
		for i := range ab.Scores {
			assert.Equal(t, -*ab.Scores[i].Delta, *ba.Scores[i].Delta)
			assert.Equal(t, ab.Scores[i].LowConfidence, ba.Scores[i].LowConfidence)
			switch ab.Scores[i].Impact {
			case types.ImpactWorse:
				assert.Equal(t, types.ImpactBetter, ba.Scores[i].Impact)
			case types.ImpactBetter:
				assert.Equal(t, types.ImpactWorse, ba.Scores[i].Impact)
			default:
				assert.Equal(t, types.ImpactNeutral, ba.Scores[i].Impact)
			}
		}
	}
}

func TestCompare_HighRisk(t *testing.T) {
	target := Signals{
		types.ArtifactBlur:           repeat(50, 3),
		types.ArtifactBlocking:       repeat(0.4, 3),
		types.ArtifactRinging:        repeat(5, 3),
		types.ArtifactDarkDetailLoss: repeat(10, 3),
	}
	reference := Signals{
		types.ArtifactBlur:           repeat(400, 3),
		types.ArtifactBlocking:       repeat(0.1, 3),
		types.ArtifactRinging:        repeat(5, 3),
		types.ArtifactDarkDetailLoss: repeat(80, 3),
	}

	res, err := Compare(target, reference, DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, ModeCompare, res.Mode)
	assert.Equal(t, RiskHigh, res.Risk.OverallRisk)
	assert.Equal(t, []types.ArtifactType{
		types.ArtifactBlur,
		types.ArtifactDarkDetailLoss,
		types.ArtifactBlocking,
	}, res.Risk.DominantIssues)
	assert.Equal(t, []string{
		"encoder preset too aggressive",
		"VBV constraints too tight",
		"dark-region quantization misconfigured",
	}, res.Risk.LikelyCauses)

	ringing, _ := res.Score(types.ArtifactRinging)
	assert.Equal(t, types.ImpactNeutral, ringing.Impact)
	assert.Equal(t, 0.0, *ringing.Delta)

	require.NotEmpty(t, res.Notes)
	assert.Equal(t, "transcode quality dropped noticeably; re-evaluate encoding parameters", res.Notes[0])
}

func TestCompare_MissingSides(t *testing.T) {
	res, err := Compare(
		Signals{types.ArtifactBlur: repeat(100, 3), types.ArtifactBanding: repeat(0.2, 3)},
		Signals{types.ArtifactBlur: repeat(100, 3), types.ArtifactRinging: repeat(3, 3)},
		DefaultConfig(),
	)
	require.NoError(t, err)

	require.Len(t, res.Scores, 1)
	assert.Len(t, res.Warnings, 2)
}

func TestAnalyze_Errors(t *testing.T) {
	_, err := Analyze(Signals{}, DefaultConfig())
	assert.True(t, apperrors.IsInsufficientSignal(err))

	_, err = Analyze(Signals{types.ArtifactBlur: {}}, DefaultConfig())
	assert.True(t, apperrors.IsInsufficientSignal(err))

	_, err = Compare(Signals{types.ArtifactBlur: {1}}, Signals{types.ArtifactRinging: {1}}, DefaultConfig())
	assert.True(t, apperrors.IsInsufficientSignal(err))

	_, err = Analyze(Signals{types.ArtifactBlur: {-1}}, DefaultConfig())
	assert.True(t, apperrors.IsMalformedInput(err))

	_, err = Compare(Signals{types.ArtifactBlur: {1}}, Signals{types.ArtifactType(12): {1}}, DefaultConfig())
	assert.True(t, apperrors.IsMalformedInput(err))
}

func TestBands_Override(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AmbiguousBand.Blur = 150

	res, err := Analyze(Signals{types.ArtifactBlur: repeat(100, 3)}, cfg)
	require.NoError(t, err)
	blur, _ := res.Score(types.ArtifactBlur)
	assert.True(t, blur.LowConfidence)
	assert.Equal(t, cfg.LowConfidenceCeiling, blur.Severity)

	assert.Equal(t, 0.005, Bands{}.For(types.ArtifactBlocking))
}
