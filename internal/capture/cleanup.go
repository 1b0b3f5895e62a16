package capture

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/disk"
)

// cleanupReport aggregates per-step teardown results. Teardown always runs
// every step; the report carries whatever failed along the way.
type cleanupReport struct {
	steps []cleanupStep
}

type cleanupStep struct {
	name string
	err  error
}

func (r *cleanupReport) record(name string, err error) {
	r.steps = append(r.steps, cleanupStep{name: name, err: err})
}

func (r *cleanupReport) failed() []cleanupStep {
	var out []cleanupStep
	for _, s := range r.steps {
		if s.err != nil {
			out = append(out, s)
		}
	}
	return out
}

// freeDiskBytes reports the available bytes on the volume holding path.
func freeDiskBytes(path string) (uint64, error) {
	usage, err := disk.Usage(path)
	if err != nil {
		return 0, err
	}
	return usage.Free, nil
}

// sessionFilePrefix marks files the engine owns inside the output
// directory. Only files with this prefix are ever swept.
const sessionFilePrefix = "rec_"

// SweepStaleFiles removes session artifacts in dir older than maxAge. Used
// by the cleanup command and by the controller's background sweep. Returns
// the paths removed; individual removal failures are skipped.
func SweepStaleFiles(dir string, maxAge time.Duration) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	cutoff := time.Now().Add(-maxAge)
	var removed []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), sessionFilePrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		p := filepath.Join(dir, e.Name())
		if err := os.Remove(p); err != nil {
			continue
		}
		removed = append(removed, p)
	}
	return removed, nil
}
