package probe

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zsiec/vidqa/internal/analysis/gop"
	"github.com/zsiec/vidqa/internal/analysis/metadata"
	"github.com/zsiec/vidqa/internal/analysis/quality"
	"github.com/zsiec/vidqa/internal/analysis/types"
	"github.com/zsiec/vidqa/internal/config"
	apperrors "github.com/zsiec/vidqa/internal/errors"
	"github.com/zsiec/vidqa/internal/logger"
)

const streamsJSON = `{
  "streams": [
    {"index": 0, "codec_type": "audio", "codec_name": "aac", "sample_rate": "48000"},
    {
      "index": 1, "codec_type": "video", "codec_name": "h264", "profile": "High",
      "width": 1920, "height": 1080, "pix_fmt": "yuv420p", "level": 40,
      "r_frame_rate": "30000/1001", "avg_frame_rate": "30000/1001",
      "duration": "9.976633", "bit_rate": "4800000"
    }
  ],
  "format": {
    "filename": "in.mp4", "format_name": "mov,mp4,m4a,3gp,3g2,mj2",
    "duration": "10.010000", "size": "6291456", "bit_rate": "5028135"
  }
}`

const framesJSON = `{
  "frames": [
    {"pict_type": "I", "best_effort_timestamp_time": "0.000000", "pkt_size": "52000"},
    {"pict_type": "B", "best_effort_timestamp_time": "0.033367", "pkt_size": "4100"},
    {"pict_type": "P", "pkt_pts_time": "0.066733", "pkt_size": "9000"},
    {"pict_type": "?", "best_effort_timestamp_time": "N/A", "pkt_size": "100"},
    {"pict_type": "I", "pts_time": "2.002000", "pkt_size": "51000"},
    {"pict_type": "P", "best_effort_timestamp_time": "2.035367", "pkt_size": "bogus"}
  ]
}`

func newTestRunner(run commandFunc) *Runner {
	r := NewRunner(&config.ProbeConfig{FFprobePath: "ffprobe", Timeout: time.Second}, logger.NewNullLogger())
	r.run = run
	return r
}

func TestParseStreams(t *testing.T) {
	raw, err := ParseStreams([]byte(streamsJSON))
	require.NoError(t, err)

	md, err := metadata.Normalize(raw)
	require.NoError(t, err)

	assert.Equal(t, "mov", md.Container)
	assert.Equal(t, "h264", md.Codec)
	assert.Equal(t, "High", md.Profile)
	assert.Equal(t, "40", md.Level)
	assert.Equal(t, 1920, md.Width)
	assert.Equal(t, 1080, md.Height)
	assert.InDelta(t, 10.01, md.Duration, 1e-9)
	assert.Equal(t, int64(6291456), md.Size)
	assert.Equal(t, int64(5028135), md.BitRate)
	assert.InDelta(t, 29.97, md.FPS, 0.001)
	assert.Equal(t, 8, md.BitDepth)
}

func TestParseStreamsErrors(t *testing.T) {
	t.Run("no video stream", func(t *testing.T) {
		_, err := ParseStreams([]byte(`{"streams":[{"codec_type":"audio"}],"format":{}}`))
		require.Error(t, err)
		assert.True(t, apperrors.IsMalformedInput(err))
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := ParseStreams([]byte(`{"streams":`))
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeProbe))
	})
}

func TestParseFrames(t *testing.T) {
	var skipped []int
	frames, err := parseFrames([]byte(framesJSON), func(i int, reason string) {
		skipped = append(skipped, i)
	})
	require.NoError(t, err)

	assert.Equal(t, []int{3, 5}, skipped)
	require.Len(t, frames, 4)
	assert.Equal(t, types.FrameRecord{Timestamp: 0, Type: types.FrameTypeI, Size: 52000}, frames[0])
	assert.Equal(t, types.FrameTypeB, frames[1].Type)
	assert.InDelta(t, 0.066733, frames[2].Timestamp, 1e-9)
	assert.InDelta(t, 2.002, frames[3].Timestamp, 1e-9)

	stats, err := gop.Analyze(frames, gop.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Counts.I)
	assert.Equal(t, 1, stats.GOPCount)
}

func TestParseFramesWithoutSkipFunc(t *testing.T) {
	frames, err := ParseFrames([]byte(framesJSON))
	require.NoError(t, err)
	assert.Len(t, frames, 4)
}

func TestRunnerStreams(t *testing.T) {
	var gotArgs []string
	r := newTestRunner(func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		gotArgs = append([]string{name}, args...)
		return []byte(streamsJSON), nil, nil
	})

	raw, err := r.Streams(context.Background(), "in.mp4")
	require.NoError(t, err)
	assert.Equal(t, "mov,mp4,m4a,3gp,3g2,mj2", raw["format_name"])
	assert.Equal(t, "ffprobe", gotArgs[0])
	assert.Contains(t, gotArgs, "-show_streams")
	assert.Equal(t, "in.mp4", gotArgs[len(gotArgs)-1])
}

func TestRunnerFrames(t *testing.T) {
	var gotArgs []string
	r := newTestRunner(func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		gotArgs = args
		return []byte(framesJSON), nil, nil
	})
	r.readIntervals = "%+30"

	frames, err := r.Frames(context.Background(), "in.mp4")
	require.NoError(t, err)
	assert.Len(t, frames, 4)
	assert.Contains(t, strings.Join(gotArgs, " "), "-select_streams v:0")
	assert.Contains(t, strings.Join(gotArgs, " "), "-read_intervals %+30")

	stats := r.SkipStats()[logger.CategoryFrameParse]
	assert.Equal(t, int64(2), stats.Total)
}

func TestRunnerErrors(t *testing.T) {
	t.Run("binary missing", func(t *testing.T) {
		r := newTestRunner(func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
			return nil, nil, &exec.Error{Name: name, Err: exec.ErrNotFound}
		})
		_, err := r.Streams(context.Background(), "in.mp4")
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeProbe))
		assert.Contains(t, err.Error(), "ffprobe not found")
	})

	t.Run("command failure keeps stderr", func(t *testing.T) {
		r := newTestRunner(func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
			return nil, []byte("in.mp4: No such file or directory\n"), errors.New("exit status 1")
		})
		_, err := r.Frames(context.Background(), "in.mp4")
		require.Error(t, err)

		appErr, ok := apperrors.GetAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.ErrorTypeProbe, appErr.Type)
		assert.Equal(t, "in.mp4: No such file or directory", appErr.Details["stderr"])
	})

	t.Run("timeout", func(t *testing.T) {
		r := newTestRunner(func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
			<-ctx.Done()
			return nil, nil, ctx.Err()
		})
		r.timeout = 10 * time.Millisecond
		_, err := r.Streams(context.Background(), "in.mp4")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "timed out")
	})
}

func TestRunnerVersion(t *testing.T) {
	r := newTestRunner(func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		return []byte("ffprobe version 6.1.1 Copyright (c) 2007-2023 the FFmpeg developers\nbuilt with gcc\n"), nil, nil
	})
	v, err := r.Version(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(v, "ffprobe version 6.1.1"))

	r.run = func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		return []byte("something else\n"), nil, nil
	}
	_, err = r.Version(context.Background())
	assert.Error(t, err)
}

func TestParsePSNRLog(t *testing.T) {
	log := `n:1 mse_avg:0.83 mse_y:1.02 mse_u:0.41 mse_v:0.44 psnr_avg:48.93 psnr_y:48.04 psnr_u:52.00 psnr_v:51.69
n:2 mse_avg:0.00 mse_y:0.00 mse_u:0.00 mse_v:0.00 psnr_avg:inf psnr_y:inf psnr_u:inf psnr_v:inf
n:3 garbage
n:4 mse_avg:1.20 mse_y:1.50 mse_u:0.60 mse_v:0.61 psnr_avg:47.34 psnr_y:46.37 psnr_u:50.35 psnr_v:50.28
`
	var skipped []int
	samples, err := ParsePSNRLog(strings.NewReader(log), func(i int, reason string) {
		skipped = append(skipped, i)
	})
	require.NoError(t, err)
	assert.Equal(t, []int{2}, skipped)

	require.Len(t, samples, 3)
	assert.Equal(t, quality.MetricPSNRY, samples[0].Name)
	assert.Equal(t, []float64{48.04, 100, 46.37}, samples[0].Values)
	assert.Equal(t, quality.MetricPSNRU, samples[1].Name)
	assert.Equal(t, []float64{52.00, 100, 50.35}, samples[1].Values)

	result, err := quality.Aggregate(samples)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Summaries[quality.MetricPSNRY].Count)
}

func TestParseSSIMLog(t *testing.T) {
	log := "n:1 Y:0.995 U:0.997 V:0.997 All:0.996 (23.77)\nn:2 Y:0.990 U:0.993 V:0.994 All:0.991 (20.46)\nn:3 All:1.7 (inf)\n"
	samples, err := ParseSSIMLog(strings.NewReader(log), nil)
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, quality.MetricSSIM, samples[0].Name)
	assert.Equal(t, []float64{0.996, 0.991}, samples[0].Values)
}

func TestParseVMAFLog(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		log := `{"version":"2.3.1","frames":[
  {"frameNum":0,"metrics":{"integer_adm2":0.98,"vmaf":94.5}},
  {"frameNum":1,"metrics":{"integer_adm2":0.97}},
  {"frameNum":2,"metrics":{"vmaf":91.25}}
],"pooled_metrics":{"vmaf":{"mean":92.9}}}`
		var skipped []int
		samples, err := ParseVMAFLog(strings.NewReader(log), func(i int, reason string) {
			skipped = append(skipped, i)
		})
		require.NoError(t, err)
		assert.Equal(t, []int{1}, skipped)
		assert.Equal(t, []quality.Sample{{Name: quality.MetricVMAF, Values: []float64{94.5, 91.25}}}, samples)
	})

	t.Run("plain lines", func(t *testing.T) {
		samples, err := ParseVMAFLog(strings.NewReader("0 95.0\n1 93.5\nbad\n"), nil)
		require.NoError(t, err)
		assert.Equal(t, []float64{95.0, 93.5}, samples[0].Values)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := ParseVMAFLog(strings.NewReader(`{"frames":[]}`), nil)
		require.Error(t, err)
		assert.True(t, apperrors.IsMalformedInput(err))
	})
}

func TestParseLogsRejectEmptyInput(t *testing.T) {
	_, err := ParsePSNRLog(strings.NewReader(""), nil)
	assert.True(t, apperrors.IsMalformedInput(err))

	_, err = ParseSSIMLog(strings.NewReader("\n\n"), nil)
	assert.True(t, apperrors.IsMalformedInput(err))
}
