// Package dvr sweeps the DVR directory (component of C10's periodic
// upkeep): file:// outputs record locally, and any recording file no
// longer referenced by an enabled file output, past its retention TTL,
// is deleted.
package dvr

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ephyr-go/restreamer/internal/store"
	"go.uber.org/zap"
)

// Sweeper periodically reconciles the DVR directory's contents against
// the state document's file:// outputs.
type Sweeper struct {
	log   *zap.Logger
	store *store.Store
	dir   string
	ttl   time.Duration
}

// New constructs a Sweeper. ttl is how long an unreferenced file may
// remain before deletion.
func New(log *zap.Logger, st *store.Store, dir string, ttl time.Duration) *Sweeper {
	return &Sweeper{log: log.Named("dvr"), store: st, dir: dir, ttl: ttl}
}

// referencedFiles returns the absolute paths every enabled file:// output
// currently names, derived fresh from the snapshot every call.
func referencedFiles(st *store.State) map[string]bool {
	refs := make(map[string]bool)
	for _, r := range st.Restreams {
		for _, o := range r.Outputs {
			if !o.Enabled || !strings.HasPrefix(o.Dst, "file://") {
				continue
			}
			refs[strings.TrimPrefix(o.Dst, "file://")] = true
		}
	}
	return refs
}

// Sweep deletes every regular file directly under dir that isn't
// referenced by an enabled file output and is older than ttl. Errors
// listing or removing individual files are logged, never fatal: a
// transient filesystem hiccup shouldn't kill the sweep loop.
func (s *Sweeper) Sweep() {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("read dvr dir failed", zap.Error(err))
		}
		return
	}

	refs := referencedFiles(s.store.Snapshot().State)
	now := time.Now()

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		if refs[path] {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			s.log.Warn("stat dvr file failed", zap.String("path", path), zap.Error(err))
			continue
		}
		if now.Sub(info.ModTime()) < s.ttl {
			continue
		}
		if err := os.Remove(path); err != nil {
			s.log.Warn("remove dvr file failed", zap.String("path", path), zap.Error(err))
			continue
		}
		s.log.Info("removed expired dvr file", zap.String("path", path))
	}
}

// Run calls Sweep every interval until stop is closed.
func (s *Sweeper) Run(stop <-chan struct{}, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			s.Sweep()
		case <-stop:
			return
		}
	}
}

// List returns the DVR directory's current regular files and their
// reference state, for the dashboard's read-only accessor.
func (s *Sweeper) List() ([]Entry, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	refs := referencedFiles(s.store.Snapshot().State)

	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Entry{
			Name:       e.Name(),
			SizeBytes:  info.Size(),
			ModTime:    info.ModTime(),
			Referenced: refs[path],
		})
	}
	return out, nil
}

// Entry describes one file under the DVR directory.
type Entry struct {
	Name       string
	SizeBytes  int64
	ModTime    time.Time
	Referenced bool
}
