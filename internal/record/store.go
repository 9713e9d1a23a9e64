package record

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/sirupsen/logrus"

	"github.com/podev-tools/podev/internal/fsops"
)

// recordDir is the per-repository directory holding applied records.
const recordDir = ".cache/po_applied"

var unsafeSegment = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SafeSegment converts an arbitrary name into a filesystem-safe path segment.
func SafeSegment(name string) string {
	safe := unsafeSegment.ReplaceAllString(name, "_")
	if safe == "" {
		return "_"
	}
	return safe
}

// Store reads and writes applied records for one (board, project) pair.
// Records live inside each target repository under .cache/po_applied; the
// file's existence is the sole idempotency signal for "already applied".
type Store struct {
	fs      fsops.FS
	log     *logrus.Entry
	board   string
	project string
}

// NewStore creates a Store scoped to the given board and project.
func NewStore(fs fsops.FS, log *logrus.Entry, board, project string) *Store {
	return &Store{fs: fs, log: log, board: board, project: project}
}

// Path returns the record file path for a PO inside the given repository root.
func (s *Store) Path(repoRoot, po string) string {
	return filepath.Join(repoRoot, recordDir,
		SafeSegment(s.board), SafeSegment(s.project), SafeSegment(po)+".json")
}

// Exists reports whether a record exists for the PO in the repository.
func (s *Store) Exists(repoRoot, po string) bool {
	ok, err := s.fs.Exists(s.Path(repoRoot, po))
	return err == nil && ok
}

// Load reads the record for a PO. Missing or malformed files return nil:
// the record is advisory, so a broken one is treated as "not applied".
func (s *Store) Load(repoRoot, po string) *Record {
	path := s.Path(repoRoot, po)
	data, err := s.fs.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.WithFields(logrus.Fields{"path": path, "error": err}).
				Warn("failed to read applied record, treating as not applied")
		}
		return nil
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		s.log.WithFields(logrus.Fields{"path": path, "error": err}).
			Warn("malformed applied record, treating as not applied")
		return nil
	}
	return &rec
}

// Save persists the record atomically, creating parent directories first.
func (s *Store) Save(rec *Record) error {
	path := s.Path(rec.RepoPath, rec.PoName)
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode applied record: %w", err)
	}
	data = append(data, '\n')

	if err := s.fs.AtomicWrite(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write applied record %s: %w", path, err)
	}
	return nil
}

// Delete removes the record for a PO, restoring the "not applied" state.
// A missing record is not an error.
func (s *Store) Delete(repoRoot, po string) error {
	path := s.Path(repoRoot, po)
	if ok, err := s.fs.Exists(path); err != nil || !ok {
		return nil
	}
	if err := s.fs.Remove(path); err != nil {
		return fmt.Errorf("failed to delete applied record %s: %w", path, err)
	}
	return nil
}
