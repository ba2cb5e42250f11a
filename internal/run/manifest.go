// Package run persists a manifest describing one analysis run.
package run

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/crimelens-cli/internal/utils"
)

const manifestFileName = "run.json"

// Manifest records what a run read and what it produced.
type Manifest struct {
	ID         string     `json:"id"`
	Source     string     `json:"source"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
	Rows       int        `json:"rows"`
	Skipped    int        `json:"skipped"`
	FirstDate  *time.Time `json:"first_date,omitempty"`
	LastDate   *time.Time `json:"last_date,omitempty"`
	Artifacts  []string   `json:"artifacts"`
	Warnings   []string   `json:"warnings,omitempty"`

	// Not serialized: directory holding run.json
	dir string `json:"-"`
}

// New starts a manifest for source in dir. Call Save to persist.
func New(source, dir string) *Manifest {
	return &Manifest{
		ID:        uuid.NewString(),
		Source:    source,
		StartedAt: time.Now(),
		dir:       dir,
	}
}

// Load reads run.json from dir.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, manifestFileName)
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("no run manifest at %s: %w", path, err)
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	m.dir = dir
	return &m, nil
}

// SetRange records the first and last incident timestamps. Zero times are
// left unset.
func (m *Manifest) SetRange(first, last time.Time) {
	if first.IsZero() {
		return
	}
	m.FirstDate, m.LastDate = &first, &last
}

// AddArtifact records an output file, stored relative to the run directory.
func (m *Manifest) AddArtifact(path string) {
	if rel, err := filepath.Rel(m.dir, path); err == nil && !filepath.IsAbs(rel) {
		path = rel
	}
	m.Artifacts = append(m.Artifacts, filepath.ToSlash(path))
}

// Path returns where Save writes.
func (m *Manifest) Path() string { return filepath.Join(m.dir, manifestFileName) }

// Save stamps the finish time and writes run.json atomically.
func (m *Manifest) Save() error {
	if m.dir == "" {
		return errors.New("run directory not set")
	}
	if err := utils.EnsureDir(m.dir); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	m.FinishedAt = time.Now()
	data, err := utils.PrettyJSON(m)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(m.Path(), data)
}
