package config

import (
	"fmt"
	"time"
)

func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Redis.Validate(); err != nil {
		return fmt.Errorf("redis config: %w", err)
	}

	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics config: %w", err)
	}

	if err := c.Probe.Validate(); err != nil {
		return fmt.Errorf("probe config: %w", err)
	}

	if err := c.Analysis.Validate(); err != nil {
		return fmt.Errorf("analysis config: %w", err)
	}

	if c.Metrics.Enabled && c.Metrics.Port == c.Server.HTTPPort {
		return fmt.Errorf("metrics port %d collides with http_port", c.Metrics.Port)
	}

	return nil
}

func (s *ServerConfig) Validate() error {
	if s.HTTPPort < 1 || s.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", s.HTTPPort)
	}

	if s.ReadTimeout < 0 || s.WriteTimeout < 0 || s.ShutdownTimeout < 0 {
		return fmt.Errorf("timeouts cannot be negative")
	}

	if s.MaxRequestBytes <= 0 {
		return fmt.Errorf("max_request_bytes must be positive")
	}

	if s.RateLimit.Enabled {
		if s.RateLimit.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate_limit.requests_per_second must be positive")
		}
		if s.RateLimit.Burst <= 0 {
			return fmt.Errorf("rate_limit.burst must be positive")
		}
	}

	return nil
}

func (r *RedisConfig) Validate() error {
	if len(r.Addresses) == 0 {
		return fmt.Errorf("at least one Redis address is required")
	}

	if r.DB < 0 {
		return fmt.Errorf("invalid Redis database number: %d", r.DB)
	}

	if r.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative")
	}

	if r.PoolSize <= 0 {
		return fmt.Errorf("pool_size must be positive")
	}

	if r.MinIdleConns < 0 {
		return fmt.Errorf("min_idle_conns cannot be negative")
	}

	if r.MinIdleConns > r.PoolSize {
		return fmt.Errorf("min_idle_conns cannot be greater than pool_size")
	}

	return nil
}

func (c *CacheConfig) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.TTL < time.Second {
		return fmt.Errorf("ttl must be at least 1s, got %s", c.TTL)
	}

	if c.Prefix == "" {
		return fmt.Errorf("prefix cannot be empty")
	}

	return nil
}

func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"panic": true,
		"fatal": true,
		"error": true,
		"warn":  true,
		"info":  true,
		"debug": true,
		"trace": true,
	}

	if !validLevels[l.Level] {
		return fmt.Errorf("invalid log level: %s", l.Level)
	}

	if l.Format != "json" && l.Format != "text" {
		return fmt.Errorf("log format must be 'json' or 'text'")
	}

	if l.Output != "stdout" && l.Output != "stderr" {
		if l.MaxSize <= 0 {
			return fmt.Errorf("max_size must be positive for file output")
		}
		if l.MaxBackups < 0 {
			return fmt.Errorf("max_backups cannot be negative")
		}
		if l.MaxAge < 0 {
			return fmt.Errorf("max_age cannot be negative")
		}
	}

	return nil
}

func (m *MetricsConfig) Validate() error {
	if m.Enabled {
		if m.Port < 1 || m.Port > 65535 {
			return fmt.Errorf("invalid metrics port: %d", m.Port)
		}

		if m.Path == "" {
			return fmt.Errorf("metrics path cannot be empty")
		}
	}

	return nil
}

func (p *ProbeConfig) Validate() error {
	if p.FFprobePath == "" {
		return fmt.Errorf("ffprobe_path cannot be empty")
	}

	if p.FFmpegPath == "" {
		return fmt.Errorf("ffmpeg_path cannot be empty")
	}

	if p.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}

	return nil
}

func (a *AnalysisConfig) Validate() error {
	if a.MaxFrames <= 0 {
		return fmt.Errorf("max_frames must be positive")
	}

	if a.MaxSamples <= 0 {
		return fmt.Errorf("max_samples must be positive")
	}

	if a.GOP.MaxKeyframeTimestamps < 0 {
		return fmt.Errorf("gop.max_keyframe_timestamps cannot be negative")
	}

	if err := a.Artifacts.Validate(); err != nil {
		return fmt.Errorf("artifacts: %w", err)
	}

	if err := a.Report.Validate(); err != nil {
		return fmt.Errorf("report: %w", err)
	}

	return nil
}

func (a *ArtifactsConfig) Validate() error {
	if a.NoiseThreshold < 0 || a.NoiseThreshold >= 1 {
		return fmt.Errorf("noise_threshold must be in [0,1)")
	}

	if a.SignificantDelta < a.NoiseThreshold {
		return fmt.Errorf("significant_delta (%g) cannot be below noise_threshold (%g)", a.SignificantDelta, a.NoiseThreshold)
	}

	if a.MinSamples < 0 {
		return fmt.Errorf("min_samples cannot be negative")
	}

	if a.LowConfidenceThreshold < 0 || a.LowConfidenceThreshold > 1 {
		return fmt.Errorf("low_confidence_threshold must be in [0,1]")
	}

	if a.LowConfidenceCeiling < 0 || a.LowConfidenceCeiling > 1 {
		return fmt.Errorf("low_confidence_ceiling must be in [0,1]")
	}

	b := a.AmbiguousBand
	for name, v := range map[string]float64{
		"blur":             b.Blur,
		"blocking":         b.Blocking,
		"ringing":          b.Ringing,
		"banding":          b.Banding,
		"dark_detail_loss": b.DarkDetailLoss,
	} {
		if v < 0 {
			return fmt.Errorf("ambiguous_band.%s cannot be negative", name)
		}
	}

	return nil
}

func (r *ReportAnalysisConfig) Validate() error {
	if r.VMAFRegressionThreshold < 0 || r.VMAFImprovementThreshold < 0 {
		return fmt.Errorf("vmaf thresholds cannot be negative")
	}

	if r.PSNRThreshold < 0 || r.SSIMThreshold < 0 {
		return fmt.Errorf("psnr/ssim thresholds cannot be negative")
	}

	if r.MaxIssues < 0 {
		return fmt.Errorf("max_issues cannot be negative")
	}

	if r.MaxRecommendations < 0 {
		return fmt.Errorf("max_recommendations cannot be negative")
	}

	return nil
}
