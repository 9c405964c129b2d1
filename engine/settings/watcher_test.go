package settings

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherDetectsExternalEdit(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "settings.json")

	initial := DefaultSettings()
	require.NoError(t, Save(path, initial))

	w, err := NewWatcher(path)
	require.NoError(t, err)
	changes, errs, err := w.Watch()
	require.NoError(t, err)
	defer w.Stop()

	edited := initial
	edited.Display.Theme = "light"
	require.NoError(t, Save(path, edited))

	select {
	case change := <-changes:
		assert.Equal(t, "light", change.Settings.Display.Theme)
	case err := <-errs:
		t.Fatalf("unexpected watcher error: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("expected a change event after the external edit")
	}
}

func TestWatcherIgnoresRewriteWithIdenticalContent(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "settings.json")
	s := DefaultSettings()
	require.NoError(t, Save(path, s))

	w, err := NewWatcher(path)
	require.NoError(t, err)
	changes, _, err := w.Watch()
	require.NoError(t, err)
	defer w.Stop()

	// re-save the exact same content
	require.NoError(t, Save(path, s))

	select {
	case change := <-changes:
		t.Fatalf("expected no change event for an identical rewrite, got %+v", change)
	case <-time.After(300 * time.Millisecond):
		// expected: no event fired
	}
}

func TestWatcherIgnoresEventsForOtherFiles(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "settings.json")
	require.NoError(t, Save(path, DefaultSettings()))

	w, err := NewWatcher(path)
	require.NoError(t, err)
	changes, _, err := w.Watch()
	require.NoError(t, err)
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "unrelated.json"), []byte("{}"), 0o644))

	select {
	case change := <-changes:
		t.Fatalf("expected no change event for an unrelated file, got %+v", change)
	case <-time.After(300 * time.Millisecond):
		// expected: no event fired
	}
}

func TestWatchTwiceReturnsError(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "settings.json")
	require.NoError(t, Save(path, DefaultSettings()))

	w, err := NewWatcher(path)
	require.NoError(t, err)
	_, _, err = w.Watch()
	require.NoError(t, err)
	defer w.Stop()

	_, _, err = w.Watch()
	assert.Error(t, err)
}
