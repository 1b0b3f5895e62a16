package config

import "testing"

func TestValidateDefaultsAreClean(t *testing.T) {
	cfg := Default()
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Fatalf("default config should validate cleanly, got %v", errs)
	}
}

func TestValidateClampsFrameRate(t *testing.T) {
	tests := []struct {
		name string
		in   int
		want int
	}{
		{"zero", 0, 1},
		{"negative", -5, 1},
		{"too high", 144, 60},
		{"in range", 30, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.FrameRate = tt.in
			cfg.Validate()
			if cfg.FrameRate != tt.want {
				t.Fatalf("frame_rate = %d, want %d", cfg.FrameRate, tt.want)
			}
		})
	}
}

func TestValidateClampsJPEGQuality(t *testing.T) {
	cfg := Default()
	cfg.JPEGQuality = 0
	cfg.Validate()
	if cfg.JPEGQuality != 1 {
		t.Fatalf("jpeg_quality = %d, want 1", cfg.JPEGQuality)
	}

	cfg.JPEGQuality = 150
	cfg.Validate()
	if cfg.JPEGQuality != 100 {
		t.Fatalf("jpeg_quality = %d, want 100", cfg.JPEGQuality)
	}
}

func TestValidateResetsBadSampleRate(t *testing.T) {
	cfg := Default()
	cfg.SampleRate = 12345
	errs := cfg.Validate()
	if cfg.SampleRate != 44100 {
		t.Fatalf("sample_rate = %d, want 44100", cfg.SampleRate)
	}
	if len(errs) == 0 {
		t.Fatal("expected a validation error for bad sample rate")
	}
}

func TestValidateResetsBadResolution(t *testing.T) {
	cfg := Default()
	cfg.FrameWidth = 0
	cfg.FrameHeight = 100000
	cfg.Validate()
	if cfg.FrameWidth != 1920 || cfg.FrameHeight != 1080 {
		t.Fatalf("resolution = %dx%d, want 1920x1080", cfg.FrameWidth, cfg.FrameHeight)
	}
}

func TestValidateRejectsUnknownLogLevel(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "verbose"
	if errs := cfg.Validate(); len(errs) == 0 {
		t.Fatal("expected a validation error for unknown log level")
	}
}

func TestValidateFillsEmptyOutputDir(t *testing.T) {
	cfg := Default()
	cfg.OutputDir = ""
	cfg.Validate()
	if cfg.OutputDir == "" {
		t.Fatal("output_dir should be defaulted when empty")
	}
}
