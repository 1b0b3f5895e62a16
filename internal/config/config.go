package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"
)

type Config struct {
	OutputDir            string `mapstructure:"output_dir"`
	FrameRate            int    `mapstructure:"frame_rate"`
	FrameWidth           int    `mapstructure:"frame_width"`
	FrameHeight          int    `mapstructure:"frame_height"`
	JPEGQuality          int    `mapstructure:"jpeg_quality"`
	RollingWindowSeconds int    `mapstructure:"rolling_window_seconds"`
	JoinTimeoutSeconds   int    `mapstructure:"join_timeout_seconds"`
	DrainDelayMillis     int    `mapstructure:"drain_delay_millis"`
	SampleRate           int    `mapstructure:"sample_rate"`
	CaptureMic           bool   `mapstructure:"capture_mic"`
	MinFreeDiskMB        int    `mapstructure:"min_free_disk_mb"`
	FlagIntervalSeconds  int    `mapstructure:"flag_interval_seconds"`
	Synthetic            bool   `mapstructure:"synthetic"`
	LogLevel             string `mapstructure:"log_level"`
	LogFormat            string `mapstructure:"log_format"`
	LogFile              string `mapstructure:"log_file"`
	LogMaxSizeMB         int    `mapstructure:"log_max_size_mb"`
	LogMaxBackups        int    `mapstructure:"log_max_backups"`
}

func Default() *Config {
	return &Config{
		OutputDir:            defaultOutputDir(),
		FrameRate:            30,
		FrameWidth:           1920,
		FrameHeight:          1080,
		JPEGQuality:          80,
		RollingWindowSeconds: 10,
		JoinTimeoutSeconds:   15,
		DrainDelayMillis:     250,
		SampleRate:           44100,
		CaptureMic:           true,
		MinFreeDiskMB:        512,
		LogLevel:             "info",
		LogFormat:            "text",
		LogMaxSizeMB:         50,
		LogMaxBackups:        3,
	}
}

func Load(cfgFile string) (*Config, error) {
	cfg := Default()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("flightrec")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(configDir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("FLIGHTREC")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func Save(cfg *Config) error {
	return SaveTo(cfg, "")
}

func SaveTo(cfg *Config, cfgFile string) error {
	viper.Set("output_dir", cfg.OutputDir)
	viper.Set("frame_rate", cfg.FrameRate)
	viper.Set("frame_width", cfg.FrameWidth)
	viper.Set("frame_height", cfg.FrameHeight)
	viper.Set("jpeg_quality", cfg.JPEGQuality)
	viper.Set("rolling_window_seconds", cfg.RollingWindowSeconds)
	viper.Set("join_timeout_seconds", cfg.JoinTimeoutSeconds)
	viper.Set("drain_delay_millis", cfg.DrainDelayMillis)
	viper.Set("sample_rate", cfg.SampleRate)
	viper.Set("capture_mic", cfg.CaptureMic)
	viper.Set("min_free_disk_mb", cfg.MinFreeDiskMB)
	viper.Set("flag_interval_seconds", cfg.FlagIntervalSeconds)
	viper.Set("synthetic", cfg.Synthetic)
	viper.Set("log_level", cfg.LogLevel)
	viper.Set("log_format", cfg.LogFormat)
	viper.Set("log_file", cfg.LogFile)
	viper.Set("log_max_size_mb", cfg.LogMaxSizeMB)
	viper.Set("log_max_backups", cfg.LogMaxBackups)

	var cfgPath string
	if cfgFile != "" {
		cfgPath = cfgFile
		dir := filepath.Dir(cfgPath)
		if dir != "." {
			if err := os.MkdirAll(dir, 0700); err != nil {
				return err
			}
		}
	} else {
		cfgPath = filepath.Join(configDir(), "flightrec.yaml")
		if err := os.MkdirAll(configDir(), 0700); err != nil {
			return err
		}
	}

	return viper.WriteConfigAs(cfgPath)
}

func configDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("ProgramData"), "Flightrec")
	case "darwin":
		return "/Library/Application Support/Flightrec"
	default:
		return "/etc/flightrec"
	}
}

func defaultOutputDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "flightrec")
	}
	return filepath.Join(os.TempDir(), "flightrec")
}
