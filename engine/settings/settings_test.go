package settings

import (
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "settings.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(s, DefaultSettings()) {
		t.Fatalf("expected defaults, got %+v", s)
	}
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	s := DefaultSettings()
	s.Display.Theme = "light"
	s.AddRecentFile("/traces/a.db", 100)

	if err := Save(path, s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Display.Theme != "light" {
		t.Fatalf("expected light theme, got %q", got.Display.Theme)
	}
	if len(got.RecentFiles) != 1 || got.RecentFiles[0].Path != "/traces/a.db" {
		t.Fatalf("expected one recent file, got %+v", got.RecentFiles)
	}
}

func TestAddRecentFileDeduplicatesAndOrdersMostRecentFirst(t *testing.T) {
	var s Settings
	s.AddRecentFile("/a.db", 1)
	s.AddRecentFile("/b.db", 2)
	s.AddRecentFile("/a.db", 3)

	if len(s.RecentFiles) != 2 {
		t.Fatalf("expected de-duplication to 2 entries, got %d", len(s.RecentFiles))
	}
	if s.RecentFiles[0].Path != "/a.db" || s.RecentFiles[0].LastOpened != 3 {
		t.Fatalf("expected re-added file to move to front with updated timestamp, got %+v", s.RecentFiles[0])
	}
}

func TestAddRecentFileTrimsToMax(t *testing.T) {
	var s Settings
	for i := 0; i < maxRecentFiles+5; i++ {
		s.AddRecentFile(filepath.Join("/traces", string(rune('a'+i))), int64(i))
	}
	if len(s.RecentFiles) != maxRecentFiles {
		t.Fatalf("expected trim to %d entries, got %d", maxRecentFiles, len(s.RecentFiles))
	}
}

func TestConfigDirHonorsXDGConfigHome(t *testing.T) {
	if testing.Short() {
		t.Skip("environment-dependent path resolution")
	}
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	got, err := ConfigDir()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := filepath.Join(dir, "tracevis")
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}
