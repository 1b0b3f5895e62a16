package config

import (
	"fmt"
	"log/slog"
)

var validLogLevels = map[string]bool{
	"debug":   true,
	"info":    true,
	"warn":    true,
	"warning": true,
	"error":   true,
}

// Validate checks the config for invalid values and returns all errors found.
// Dangerous zero-values that would break the capture loop are clamped to safe
// defaults. Other validation errors are logged as warnings but do not prevent
// startup.
func (c *Config) Validate() []error {
	var errs []error

	if c.OutputDir == "" {
		errs = append(errs, fmt.Errorf("output_dir is empty, using default"))
		c.OutputDir = defaultOutputDir()
	}

	// Clamp frame pacing parameters (frame interval is derived as 1/rate)
	if c.FrameRate < 1 {
		errs = append(errs, fmt.Errorf("frame_rate %d is below minimum 1, clamping", c.FrameRate))
		c.FrameRate = 1
	} else if c.FrameRate > 60 {
		errs = append(errs, fmt.Errorf("frame_rate %d exceeds maximum 60, clamping", c.FrameRate))
		c.FrameRate = 60
	}

	if c.FrameWidth < 16 || c.FrameWidth > 7680 {
		errs = append(errs, fmt.Errorf("frame_width %d outside 16..7680, resetting to 1920", c.FrameWidth))
		c.FrameWidth = 1920
	}
	if c.FrameHeight < 16 || c.FrameHeight > 4320 {
		errs = append(errs, fmt.Errorf("frame_height %d outside 16..4320, resetting to 1080", c.FrameHeight))
		c.FrameHeight = 1080
	}

	if c.JPEGQuality < 1 {
		errs = append(errs, fmt.Errorf("jpeg_quality %d is below minimum 1, clamping", c.JPEGQuality))
		c.JPEGQuality = 1
	} else if c.JPEGQuality > 100 {
		errs = append(errs, fmt.Errorf("jpeg_quality %d exceeds maximum 100, clamping", c.JPEGQuality))
		c.JPEGQuality = 100
	}

	if c.RollingWindowSeconds < 1 {
		errs = append(errs, fmt.Errorf("rolling_window_seconds %d is below minimum 1, clamping", c.RollingWindowSeconds))
		c.RollingWindowSeconds = 1
	} else if c.RollingWindowSeconds > 600 {
		errs = append(errs, fmt.Errorf("rolling_window_seconds %d exceeds maximum 600, clamping", c.RollingWindowSeconds))
		c.RollingWindowSeconds = 600
	}

	if c.JoinTimeoutSeconds < 1 {
		errs = append(errs, fmt.Errorf("join_timeout_seconds %d is below minimum 1, clamping", c.JoinTimeoutSeconds))
		c.JoinTimeoutSeconds = 1
	}

	if c.DrainDelayMillis < 0 {
		errs = append(errs, fmt.Errorf("drain_delay_millis %d is negative, resetting to 250", c.DrainDelayMillis))
		c.DrainDelayMillis = 250
	}

	switch c.SampleRate {
	case 8000, 16000, 22050, 44100, 48000:
	default:
		errs = append(errs, fmt.Errorf("sample_rate %d is not a supported rate, resetting to 44100", c.SampleRate))
		c.SampleRate = 44100
	}

	if c.MinFreeDiskMB < 0 {
		errs = append(errs, fmt.Errorf("min_free_disk_mb %d is negative, resetting to 0", c.MinFreeDiskMB))
		c.MinFreeDiskMB = 0
	}

	if c.FlagIntervalSeconds < 0 {
		errs = append(errs, fmt.Errorf("flag_interval_seconds %d is negative, disabling auto-flag", c.FlagIntervalSeconds))
		c.FlagIntervalSeconds = 0
	}

	if c.LogLevel != "" && !validLogLevels[c.LogLevel] {
		errs = append(errs, fmt.Errorf("log_level %q is not valid (use debug, info, warn, error)", c.LogLevel))
	}

	if c.LogFormat != "" && c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("log_format %q is not valid (use text or json)", c.LogFormat))
	}

	// Log validation errors as warnings
	for _, err := range errs {
		slog.Warn("config validation", "error", err)
	}

	return errs
}
