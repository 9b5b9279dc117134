package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Probe    ProbeConfig    `mapstructure:"probe"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
}

type ServerConfig struct {
	HTTPPort        int           `mapstructure:"http_port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// MaxRequestBytes bounds tool request bodies.
	MaxRequestBytes int64           `mapstructure:"max_request_bytes"`
	CORS            CORSConfig      `mapstructure:"cors"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"` // per client IP
	Burst             int     `mapstructure:"burst"`
}

type RedisConfig struct {
	Addresses    []string      `mapstructure:"addresses"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	MaxRetries   int           `mapstructure:"max_retries"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

// CacheConfig controls memoization of identical analysis requests in Redis.
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
	Prefix  string        `mapstructure:"prefix"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`   // json or text
	Output     string `mapstructure:"output"`   // stdout, stderr, or file path
	MaxSize    int    `mapstructure:"max_size"` // MB
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
	Port    int    `mapstructure:"port"`
}

type ProbeConfig struct {
	FFprobePath string        `mapstructure:"ffprobe_path"`
	FFmpegPath  string        `mapstructure:"ffmpeg_path"`
	Timeout     time.Duration `mapstructure:"timeout"`
	// ReadIntervals limits frame probing, in ffprobe -read_intervals syntax.
	ReadIntervals string `mapstructure:"read_intervals"`
}

// AnalysisConfig carries every engine threshold. It is converted into the
// engine configuration once at startup.
type AnalysisConfig struct {
	MaxFrames  int                  `mapstructure:"max_frames"`
	MaxSamples int                  `mapstructure:"max_samples"`
	GOP        GOPAnalysisConfig    `mapstructure:"gop"`
	Artifacts  ArtifactsConfig      `mapstructure:"artifacts"`
	Report     ReportAnalysisConfig `mapstructure:"report"`
}

type GOPAnalysisConfig struct {
	MaxKeyframeTimestamps int `mapstructure:"max_keyframe_timestamps"`
}

type ArtifactsConfig struct {
	NoiseThreshold         float64             `mapstructure:"noise_threshold"`
	SignificantDelta       float64             `mapstructure:"significant_delta"`
	NotableDelta           float64             `mapstructure:"notable_delta"`
	MinSamples             int                 `mapstructure:"min_samples"`
	LowConfidenceThreshold float64             `mapstructure:"low_confidence_threshold"`
	LowConfidenceCeiling   float64             `mapstructure:"low_confidence_ceiling"`
	AmbiguousBand          AmbiguousBandConfig `mapstructure:"ambiguous_band"`
}

// AmbiguousBandConfig overrides the near-zero band per artifact; 0 keeps the
// calibrated default.
type AmbiguousBandConfig struct {
	Blur           float64 `mapstructure:"blur"`
	Blocking       float64 `mapstructure:"blocking"`
	Ringing        float64 `mapstructure:"ringing"`
	Banding        float64 `mapstructure:"banding"`
	DarkDetailLoss float64 `mapstructure:"dark_detail_loss"`
}

type ReportAnalysisConfig struct {
	VMAFRegressionThreshold  float64 `mapstructure:"vmaf_regression_threshold"`
	VMAFImprovementThreshold float64 `mapstructure:"vmaf_improvement_threshold"`
	PSNRThreshold            float64 `mapstructure:"psnr_threshold"`
	SSIMThreshold            float64 `mapstructure:"ssim_threshold"`
	NoiseThreshold           float64 `mapstructure:"noise_threshold"`
	LowBitrateRatio          float64 `mapstructure:"low_bitrate_ratio"`
	StrongIssueSeverity      float64 `mapstructure:"strong_issue_severity"`
	LongGOPFactor            float64 `mapstructure:"long_gop_factor"`
	MaxIssues                int     `mapstructure:"max_issues"`
	MaxRecommendations       int     `mapstructure:"max_recommendations"`
	LowVMAF                  float64 `mapstructure:"low_vmaf"`
	LowPSNR                  float64 `mapstructure:"low_psnr"`
}

// Load reads configuration from configPath, environment variables prefixed
// with VIDQA_ and built-in defaults. An empty configPath skips the file.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	// Environment variable override
	v.SetEnvPrefix("VIDQA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.max_request_bytes", 32<<20) // 32MB
	v.SetDefault("server.cors.allowed_origins", []string{"*"})
	v.SetDefault("server.rate_limit.enabled", true)
	v.SetDefault("server.rate_limit.requests_per_second", 20.0)
	v.SetDefault("server.rate_limit.burst", 40)

	// Redis defaults
	v.SetDefault("redis.addresses", []string{"localhost:6379"})
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("redis.write_timeout", "3s")
	v.SetDefault("redis.pool_size", 20)
	v.SetDefault("redis.min_idle_conns", 2)

	// Cache defaults
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.ttl", "1h")
	v.SetDefault("cache.prefix", "vidqa:result:")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age", 30)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.port", 9090)

	// Probe defaults
	v.SetDefault("probe.ffprobe_path", "ffprobe")
	v.SetDefault("probe.ffmpeg_path", "ffmpeg")
	v.SetDefault("probe.timeout", "2m")
	v.SetDefault("probe.read_intervals", "")

	// Analysis defaults
	v.SetDefault("analysis.max_frames", 1_000_000)
	v.SetDefault("analysis.max_samples", 1_000_000)
	v.SetDefault("analysis.gop.max_keyframe_timestamps", 100)

	v.SetDefault("analysis.artifacts.noise_threshold", 0.05)
	v.SetDefault("analysis.artifacts.significant_delta", 0.1)
	v.SetDefault("analysis.artifacts.notable_delta", 0.2)
	v.SetDefault("analysis.artifacts.min_samples", 3)
	v.SetDefault("analysis.artifacts.low_confidence_threshold", 0.5)
	v.SetDefault("analysis.artifacts.low_confidence_ceiling", 0.5)
	v.SetDefault("analysis.artifacts.ambiguous_band.blur", 0.0) // calibrated defaults
	v.SetDefault("analysis.artifacts.ambiguous_band.blocking", 0.0)
	v.SetDefault("analysis.artifacts.ambiguous_band.ringing", 0.0)
	v.SetDefault("analysis.artifacts.ambiguous_band.banding", 0.0)
	v.SetDefault("analysis.artifacts.ambiguous_band.dark_detail_loss", 0.0)

	v.SetDefault("analysis.report.vmaf_regression_threshold", 3.0)
	v.SetDefault("analysis.report.vmaf_improvement_threshold", 3.0)
	v.SetDefault("analysis.report.psnr_threshold", 0.5)
	v.SetDefault("analysis.report.ssim_threshold", 0.005)
	v.SetDefault("analysis.report.noise_threshold", 0.05)
	v.SetDefault("analysis.report.low_bitrate_ratio", 0.5)
	v.SetDefault("analysis.report.strong_issue_severity", 0.2)
	v.SetDefault("analysis.report.long_gop_factor", 2.0)
	v.SetDefault("analysis.report.max_issues", 5)
	v.SetDefault("analysis.report.max_recommendations", 5)
	v.SetDefault("analysis.report.low_vmaf", 80.0)
	v.SetDefault("analysis.report.low_psnr", 30.0)
}
