package capture

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Session names the output files for one recording segment. A fresh session
// is created on every start and on every flag-and-restart, so consecutive
// segments never share a file path.
type Session struct {
	ID      string
	Dir     string
	Started time.Time

	hasVideo bool
	hasMic   bool
	ended    time.Time
}

func newSession(outputDir string) *Session {
	now := time.Now()
	id := fmt.Sprintf("rec_%s_%s", now.Format("20060102_150405"), uuid.NewString()[:8])
	return &Session{
		ID:      id,
		Dir:     outputDir,
		Started: now,
	}
}

func (s *Session) AudioPath() string {
	return filepath.Join(s.Dir, s.ID+"_loopback.wav")
}

func (s *Session) MicPath() string {
	return filepath.Join(s.Dir, s.ID+"_mic.wav")
}

func (s *Session) VideoPath() string {
	return filepath.Join(s.Dir, s.ID+".avi")
}

func (s *Session) ManifestPath() string {
	return filepath.Join(s.Dir, s.ID+".yaml")
}

// finish stamps the session's end time. Called once during teardown;
// repeated calls keep the first stamp.
func (s *Session) finish() {
	if s.ended.IsZero() {
		s.ended = time.Now()
	}
}

// CapturedFiles reports the artifacts a session produced. Paths for streams
// that never opened are empty; Ended is zero while the session is live.
type CapturedFiles struct {
	SessionID string
	AudioPath string
	MicPath   string
	VideoPath string
	Started   time.Time
	Ended     time.Time
}

// Files summarizes the session's output artifacts.
func (s *Session) Files() CapturedFiles {
	f := CapturedFiles{
		SessionID: s.ID,
		AudioPath: s.AudioPath(),
		Started:   s.Started,
		Ended:     s.ended,
	}
	if s.hasMic {
		f.MicPath = s.MicPath()
	}
	if s.hasVideo {
		f.VideoPath = s.VideoPath()
	}
	return f
}
