package capture

import (
	"fmt"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"gopkg.in/yaml.v3"
)

// Manifest is the per-session YAML sidecar written after a segment closes.
// It is diagnostic metadata only; recordings are usable without it.
type Manifest struct {
	SessionID string    `yaml:"session_id"`
	Started   time.Time `yaml:"started"`
	Ended     time.Time `yaml:"ended"`

	Hostname string `yaml:"hostname,omitempty"`
	OS       string `yaml:"os,omitempty"`
	Platform string `yaml:"platform,omitempty"`

	AudioPath string `yaml:"audio_path"`
	MicPath   string `yaml:"mic_path,omitempty"`
	VideoPath string `yaml:"video_path,omitempty"`

	FramesWritten uint64  `yaml:"frames_written"`
	FramesFailed  uint64  `yaml:"frames_failed"`
	JoinTimeouts  uint64  `yaml:"join_timeouts"`
	LastError     string  `yaml:"last_error,omitempty"`
	AvgFrameMs    float64 `yaml:"last_write_ms"`
}

func buildManifest(files CapturedFiles, snap MetricsSnapshot) Manifest {
	m := Manifest{
		SessionID:     files.SessionID,
		Started:       files.Started,
		Ended:         files.Ended,
		AudioPath:     files.AudioPath,
		MicPath:       files.MicPath,
		VideoPath:     files.VideoPath,
		FramesWritten: snap.FramesWritten,
		FramesFailed:  snap.FramesFailed,
		JoinTimeouts:  snap.JoinTimeouts,
		LastError:     snap.LastError,
		AvgFrameMs:    snap.WriteMs,
	}

	if info, err := host.Info(); err == nil {
		m.Hostname = info.Hostname
		m.OS = info.OS
		m.Platform = fmt.Sprintf("%s %s", info.Platform, info.PlatformVersion)
	}
	return m
}

// writeManifest marshals the manifest next to the session artifacts. Runs
// on the background pool; failure is logged by the caller, never fatal.
func writeManifest(path string, m Manifest) error {
	data, err := yaml.Marshal(&m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
