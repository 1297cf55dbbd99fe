package config

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/giantswarm/bench/internal/apperr"
	"github.com/giantswarm/bench/pkg/logging"
)

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperr.Wrap(apperr.Internal, "mkdir", "could not create "+dir, err)
	}
	return nil
}

// ChangeEvent reports that a file under the watched config surface
// changed on disk.
type ChangeEvent struct {
	Path string
}

// debounceWindow collapses the burst of events a single editor save
// typically produces (a temp-file write plus a rename) into one.
const debounceWindow = 300 * time.Millisecond

// Watcher pushes ChangeEvent onto a channel whenever mcp.json, the
// workflows directory, or registry.json changes, so a running REPL can
// pick up edits without restarting.
type Watcher struct {
	fsw *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// Watch starts watching this Surface's mcp.json, workflows directory,
// and registry.json, forwarding debounced events onto out. out should
// be buffered or drained promptly; a full channel drops the event
// rather than blocking the watch loop.
func (s *Surface) Watch(out chan<- ChangeEvent) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "new_watcher", "could not start config file watcher", err)
	}

	for _, dir := range []string{filepath.Dir(s.mcpPath()), s.workflowsDir(), filepath.Dir(s.registryPath())} {
		if err := ensureDir(dir); err != nil {
			fsw.Close()
			return nil, err
		}
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, apperr.Wrap(apperr.Internal, "watch_dir", "could not watch "+dir, err)
		}
	}

	w := &Watcher{fsw: fsw, pending: make(map[string]*time.Timer)}
	go w.loop(out)
	return w, nil
}

func (w *Watcher) loop(out chan<- ChangeEvent) {
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.debounce(event.Name, out)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logging.Warn("config", "watcher error: %v", err)
		}
	}
}

func (w *Watcher) debounce(path string, out chan<- ChangeEvent) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(debounceWindow, func() {
		select {
		case out <- ChangeEvent{Path: path}:
		default:
		}
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
	})
}

// Close stops the underlying filesystem watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
