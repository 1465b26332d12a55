package main

import (
	"fmt"
	"path/filepath"
	"time"

	tui "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
)

type fileChangedMsg struct{ path string }

// watchErrMsg is a watcher failure. The watcher keeps running.
type watchErrMsg struct{ err error }

// fileWatcher reports writes to a set of files. Editors often replace a
// file instead of writing it, so the parent directories are watched.
type fileWatcher struct {
	w        *fsnotify.Watcher
	targets  map[string]bool
	debounce time.Duration
}

func newFileWatcher(paths ...string) (*fileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	fw := &fileWatcher{w: w, targets: make(map[string]bool), debounce: 150 * time.Millisecond}
	dirs := make(map[string]bool)
	for _, p := range paths {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			_ = w.Close()
			return nil, fmt.Errorf("watch %s: %w", p, err)
		}
		fw.targets[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			_ = w.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	return fw, nil
}

func (fw *fileWatcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
		return false
	}
	abs, err := filepath.Abs(ev.Name)
	if err != nil {
		return false
	}
	return fw.targets[abs]
}

// next blocks until a watched file changes. Bursts of events within the
// debounce window are folded into one message.
func (fw *fileWatcher) next() tui.Cmd {
	return func() tui.Msg {
		for {
			select {
			case ev, ok := <-fw.w.Events:
				if !ok {
					return nil
				}
				if !fw.relevant(ev) {
					continue
				}
				fw.drain()
				return fileChangedMsg{path: ev.Name}
			case err, ok := <-fw.w.Errors:
				if !ok {
					return nil
				}
				return watchErrMsg{fmt.Errorf("watch: %w", err)}
			}
		}
	}
}

func (fw *fileWatcher) drain() {
	timer := time.NewTimer(fw.debounce)
	defer timer.Stop()
	for {
		select {
		case _, ok := <-fw.w.Events:
			if !ok {
				return
			}
		case <-timer.C:
			return
		}
	}
}

func (fw *fileWatcher) Close() error { return fw.w.Close() }
