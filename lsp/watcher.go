package lsp

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dhamidi/tmlex/score/loader"
)

// LibraryWatcher polls a library root and calls onChange when a library
// file is added, modified or removed.
type LibraryWatcher struct {
	root         string
	onChange     func()
	stopCh       chan struct{}
	stopOnce     sync.Once
	pollInterval time.Duration
	modTimes     map[string]time.Time
}

func NewLibraryWatcher(root string, onChange func()) *LibraryWatcher {
	return &LibraryWatcher{
		root:         root,
		onChange:     onChange,
		stopCh:       make(chan struct{}),
		pollInterval: 1 * time.Second,
		modTimes:     make(map[string]time.Time),
	}
}

func (w *LibraryWatcher) Start() {
	w.scan()
	go w.run()
}

func (w *LibraryWatcher) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
}

func (w *LibraryWatcher) run() {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			if w.scan() {
				w.onChange()
			}
		}
	}
}

// scan records modification times and reports whether anything changed
// since the previous scan.
func (w *LibraryWatcher) scan() bool {
	changed := false
	currentFiles := make(map[string]bool)

	filepath.Walk(w.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if path != w.root && strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != loader.Extension {
			return nil
		}

		currentFiles[path] = true

		lastMod, known := w.modTimes[path]
		if !known || info.ModTime().After(lastMod) {
			w.modTimes[path] = info.ModTime()
			changed = true
		}
		return nil
	})

	for path := range w.modTimes {
		if !currentFiles[path] {
			delete(w.modTimes, path)
			changed = true
		}
	}
	if changed {
		log.Debugf("library change under %s", w.root)
	}
	return changed
}
