package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/spf13/cobra"

	"github.com/flightrec/agent/internal/capture"
	"github.com/flightrec/agent/internal/config"
	"github.com/flightrec/agent/internal/logging"
)

var (
	version = "0.1.0"
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "flightrec",
	Short: "FlightRec continuous capture engine",
	Long:  `FlightRec - continuous screen, system-audio and microphone recorder with segment flagging`,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start recording",
	Run: func(cmd *cobra.Command, args []string) {
		runRecorder()
	},
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove stale session files from the output directory",
	Run: func(cmd *cobra.Command, args []string) {
		runCleanup()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show output directory and disk headroom",
	Run: func(cmd *cobra.Command, args []string) {
		showStatus()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("FlightRec v%s\n", version)
	},
}

var cleanupMaxAgeHours int

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is the per-user flightrec.yaml)")
	cleanupCmd.Flags().IntVar(&cleanupMaxAgeHours, "max-age-hours", 72, "remove session files older than this")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() *config.Config {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	cfg.Validate()
	return cfg
}

// initLogging configures slog output. Returns the rotating file writer
// when log_file is set, nil otherwise.
func initLogging(cfg *config.Config) *logging.RotatingWriter {
	if cfg.LogFile == "" {
		logging.Init(cfg.LogFormat, cfg.LogLevel, os.Stderr)
		return nil
	}

	rw, err := logging.NewRotatingWriter(cfg.LogFile, cfg.LogMaxSizeMB, cfg.LogMaxBackups)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		logging.Init(cfg.LogFormat, cfg.LogLevel, os.Stderr)
		return nil
	}
	logging.Init(cfg.LogFormat, cfg.LogLevel, logging.TeeWriter(os.Stderr, rw))
	return rw
}

func runRecorder() {
	cfg := loadConfig()
	logFile := initLogging(cfg)
	if logFile != nil {
		defer logFile.Close()
	}

	log := logging.L("main")
	log.Info("starting recorder", "version", version, "output_dir", cfg.OutputDir)

	ctrl := capture.NewController(cfg)
	if err := ctrl.Start(); err != nil {
		log.Error("failed to start capture", "error", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	flagChan := flagSignals()

	hupChan := make(chan os.Signal, 1)
	signal.Notify(hupChan, syscall.SIGHUP)

	var autoFlag <-chan time.Time
	if cfg.FlagIntervalSeconds > 0 {
		t := time.NewTicker(time.Duration(cfg.FlagIntervalSeconds) * time.Second)
		defer t.Stop()
		autoFlag = t.C
	}

	for {
		select {
		case <-flagChan:
			flagSegment(ctrl, log, "signal")
		case <-autoFlag:
			flagSegment(ctrl, log, "interval")
		case <-hupChan:
			if logFile != nil {
				if err := logFile.Reopen(); err != nil {
					log.Error("log reopen failed", "error", err)
				} else {
					log.Info("log file reopened")
				}
			}
		case sig := <-sigChan:
			log.Info("shutting down", "signal", sig.String())
			files, err := ctrl.Shutdown()
			if err != nil {
				log.Error("shutdown error", "error", err)
				os.Exit(1)
			}
			log.Info("final segment closed", logging.KeySessionID, files.SessionID)
			return
		}
	}
}

func flagSegment(ctrl *capture.Controller, log *slog.Logger, reason string) {
	files, err := ctrl.FlagAndRestart()
	if err != nil {
		log.Error("flag failed", "reason", reason, "error", err)
		return
	}
	log.Info("segment flagged",
		"reason", reason,
		logging.KeySessionID, files.SessionID,
		"video", files.VideoPath != "")
}

func runCleanup() {
	cfg := loadConfig()
	logging.Init(cfg.LogFormat, cfg.LogLevel, os.Stderr)

	maxAge := time.Duration(cleanupMaxAgeHours) * time.Hour
	removed, err := capture.SweepStaleFiles(cfg.OutputDir, maxAge)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cleanup failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Removed %d stale session file(s) from %s\n", len(removed), cfg.OutputDir)
	for _, p := range removed {
		fmt.Println("  " + p)
	}
}

func showStatus() {
	cfg := loadConfig()

	fmt.Printf("FlightRec v%s\n", version)
	fmt.Printf("Output directory: %s\n", cfg.OutputDir)
	fmt.Printf("Frame rate:       %d fps @ %dx%d\n", cfg.FrameRate, cfg.FrameWidth, cfg.FrameHeight)
	fmt.Printf("Rolling window:   %ds\n", cfg.RollingWindowSeconds)

	if info, err := host.Info(); err == nil {
		fmt.Printf("Host:             %s (%s %s)\n", info.Hostname, info.Platform, info.PlatformVersion)
	}
	if usage, err := disk.Usage(cfg.OutputDir); err == nil {
		fmt.Printf("Disk free:        %d MB (floor %d MB)\n",
			usage.Free/(1024*1024), cfg.MinFreeDiskMB)
	}
}
