// Package sink writes rendered charts into the static directory.
package sink

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/user/datacharts-go/internal/logging"
	"github.com/user/datacharts-go/internal/models"
)

// Naming decides the file name a chart is written under.
type Naming string

const (
	// NamingFixed writes <purpose>.png; the last writer wins.
	NamingFixed Naming = "fixed"
	// NamingContent writes <purpose>-<hash>.png so different data never
	// shares a file.
	NamingContent Naming = "content"
)

const hashPrefixLen = 12

// DefaultRetention is how long a superseded content-named image is kept
// after its last write. Pages already sent to a browser still link to it.
const DefaultRetention = 10 * time.Minute

// Sink writes PNG files atomically: readers see either the previous file
// or the complete new one.
type Sink struct {
	dir    string
	naming Naming
	retain time.Duration
}

func New(dir string, naming Naming) *Sink {
	if naming == "" {
		naming = NamingContent
	}
	return &Sink{dir: dir, naming: naming, retain: DefaultRetention}
}

// WithRetention sets how long superseded content-named images are kept.
// Zero keeps them forever.
func (s *Sink) WithRetention(d time.Duration) *Sink {
	s.retain = d
	return s
}

// Dir is the static directory images are written to.
func (s *Sink) Dir() string { return s.dir }

// Filename returns the name data would be written under.
func (s *Sink) Filename(purpose string, data []byte) string {
	if s.naming == NamingFixed {
		return purpose + ".png"
	}
	sum := sha256.Sum256(data)
	return purpose + "-" + hex.EncodeToString(sum[:])[:hashPrefixLen] + ".png"
}

// Write stores data under the static directory, creating it if needed.
func (s *Sink) Write(purpose, title string, data []byte) (models.ChartArtifact, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return models.ChartArtifact{}, fmt.Errorf("failed to create static directory %s: %w", s.dir, err)
	}

	name := s.Filename(purpose, data)
	target := filepath.Join(s.dir, name)
	if err := writeAtomic(target, data); err != nil {
		return models.ChartArtifact{}, err
	}
	s.prune(purpose, name)

	abs, err := filepath.Abs(target)
	if err != nil {
		abs = target
	}
	return models.ChartArtifact{
		Purpose:  purpose,
		Title:    title,
		Filename: name,
		Path:     abs,
		Size:     int64(len(data)),
	}, nil
}

// prune removes content-named images for purpose, other than keep, that
// have not been written within the retention period. Failures are logged
// and otherwise ignored.
func (s *Sink) prune(purpose, keep string) {
	if s.naming != NamingContent || s.retain <= 0 {
		return
	}
	matches, err := filepath.Glob(filepath.Join(s.dir, purpose+"-*.png"))
	if err != nil {
		return
	}
	cutoff := time.Now().Add(-s.retain)
	for _, m := range matches {
		name := filepath.Base(m)
		if name == keep || len(name) != len(purpose)+1+hashPrefixLen+len(".png") {
			continue
		}
		st, err := os.Stat(m)
		if err != nil || st.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(m); err != nil && !errors.Is(err, fs.ErrNotExist) {
			logging.Warn().With(logging.Chart(purpose), logging.Path(m), logging.ErrorField(err)).Msg("failed to prune old chart")
			continue
		}
		logging.Debug().With(logging.Chart(purpose), logging.Path(m)).Msg("pruned old chart")
	}
}

// writeAtomic writes to a temp file in the target's directory and renames
// it into place. On failure the temp file is removed and the target is
// left untouched.
func writeAtomic(target string, data []byte) (err error) {
	dir := filepath.Dir(target)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", target, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp.Name(), err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync %s: %w", tmp.Name(), err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmp.Name(), err)
	}
	if err = os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", tmp.Name(), err)
	}
	if err = os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("failed to move chart into place at %s: %w", target, err)
	}
	return nil
}
