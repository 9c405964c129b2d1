package settings

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Change describes one externally-applied edit to the watched settings file.
type Change struct {
	Settings Settings
	Checksum string
}

// Watcher watches a settings file's containing directory for writes, and
// emits a Change only when the reloaded content's checksum actually differs
// from what was last seen — a rewrite with identical bytes (common with
// editors that save via a temp-file-then-rename) should not trigger a
// reload.
type Watcher struct {
	path       string
	fsWatcher  *fsnotify.Watcher
	mu         sync.Mutex
	lastSum    string
	watching   bool
}

// NewWatcher creates a Watcher for the settings file at path. The file need
// not exist yet; only its containing directory must.
func NewWatcher(path string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("settings: create watcher: %w", err)
	}
	return &Watcher{path: path, fsWatcher: fw}, nil
}

// Watch begins watching and returns a channel of Change events plus a
// channel of errors; both are closed when Stop is called. The caller owns
// draining both channels to avoid blocking the internal dispatch loop.
func (w *Watcher) Watch() (<-chan Change, <-chan error, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watching {
		return nil, nil, fmt.Errorf("settings: watcher already running")
	}

	dir := filepath.Dir(w.path)
	if err := w.fsWatcher.Add(dir); err != nil {
		return nil, nil, fmt.Errorf("settings: watch %s: %w", dir, err)
	}

	if current, err := Load(w.path); err == nil {
		if sum, err := checksum(current); err == nil {
			w.lastSum = sum
		}
	}

	changes := make(chan Change, 1)
	errs := make(chan error, 1)
	w.watching = true

	go w.loop(changes, errs)
	return changes, errs, nil
}

func (w *Watcher) loop(changes chan<- Change, errs chan<- error) {
	defer close(changes)
	defer close(errs)

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.handleReload(changes, errs)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			select {
			case errs <- err:
			default:
			}
		}
	}
}

func (w *Watcher) handleReload(changes chan<- Change, errs chan<- error) {
	reloaded, err := Load(w.path)
	if err != nil {
		select {
		case errs <- err:
		default:
		}
		return
	}
	sum, err := checksum(reloaded)
	if err != nil {
		select {
		case errs <- err:
		default:
		}
		return
	}

	w.mu.Lock()
	unchanged := sum == w.lastSum
	w.lastSum = sum
	w.mu.Unlock()
	if unchanged {
		return
	}

	select {
	case changes <- Change{Settings: reloaded, Checksum: sum}:
	default:
		// a reload is already queued; the consumer will pick up the latest
		// content on its next Load anyway, so dropping this one is safe.
	}
}

// Stop closes the underlying fsnotify watcher, which unblocks loop and
// closes both channels returned by Watch.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.watching {
		return nil
	}
	w.watching = false
	return w.fsWatcher.Close()
}
