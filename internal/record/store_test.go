package record

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/podev-tools/podev/internal/fsops"
)

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

func TestSafeSegment(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"board-a", "board-a"},
		{"proj_1.2", "proj_1.2"},
		{"vendor/uboot", "vendor_uboot"},
		{"weird  name!!", "weird_name_"},
		{"", "_"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SafeSegment(tt.in), "SafeSegment(%q)", tt.in)
	}
}

func TestStorePath(t *testing.T) {
	s := NewStore(fsops.NewRealFS(), testLogger(), "board/a", "proj")
	got := s.Path("/work/kernel", "po1")
	want := filepath.Join("/work/kernel", ".cache", "po_applied", "board_a", "proj", "po1.json")
	assert.Equal(t, want, got)
}

func TestStoreRoundTrip(t *testing.T) {
	repo := t.TempDir()
	s := NewStore(fsops.NewRealFS(), testLogger(), "boardx", "projx")

	require.False(t, s.Exists(repo, "po1"))
	require.Nil(t, s.Load(repo, "po1"))

	rec := New("boardx", "projx", "po1", "root", repo)
	rec.AppliedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rec.Patches = append(rec.Patches, PatchEntry{
		PatchFile: "root.patch",
		Targets:   []string{"Makefile"},
		Status:    StatusApplied,
	})
	require.NoError(t, s.Save(rec))

	require.True(t, s.Exists(repo, "po1"))
	loaded := s.Load(repo, "po1")
	require.NotNil(t, loaded)
	assert.Equal(t, SchemaVersion, loaded.SchemaVersion)
	assert.Equal(t, "po1", loaded.PoName)
	assert.Equal(t, rec.AppliedAt, loaded.AppliedAt)
	require.Len(t, loaded.Patches, 1)
	assert.Equal(t, "root.patch", loaded.Patches[0].PatchFile)

	require.NoError(t, s.Delete(repo, "po1"))
	assert.False(t, s.Exists(repo, "po1"))
	assert.NoError(t, s.Delete(repo, "po1"), "deleting a missing record is not an error")
}

func TestStoreLoadMalformed(t *testing.T) {
	repo := t.TempDir()
	s := NewStore(fsops.NewRealFS(), testLogger(), "b", "p")

	path := s.Path(repo, "po1")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	assert.Nil(t, s.Load(repo, "po1"), "malformed record is treated as not applied")
}

func TestRecordEmpty(t *testing.T) {
	rec := New("b", "p", "po", "root", "/r")
	assert.True(t, rec.Empty())
	rec.Overrides = append(rec.Overrides, OverrideEntry{Operation: "copy", PathInRepo: "x"})
	assert.False(t, rec.Empty())
}
