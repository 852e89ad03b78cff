package login

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounce coalesces the burst of events a single save produces.
const debounce = 50 * time.Millisecond

// storageWatcher signals whenever the storage file is written, so the login
// wait can re-check right away instead of sleeping out its interval.
type storageWatcher struct {
	watcher *fsnotify.Watcher
	target  string
	wake    chan struct{}

	stopOnce sync.Once
	stopCh   chan struct{}
}

// watchStorage watches the directory holding path. The directory must exist.
func watchStorage(path string) (*storageWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	w := &storageWatcher{
		watcher: watcher,
		target:  filepath.Clean(path),
		wake:    make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Wake receives after the storage file changed.
func (w *storageWatcher) Wake() <-chan struct{} {
	return w.wake
}

// Stop ends the watch. It is safe to call more than once.
func (w *storageWatcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		_ = w.watcher.Close()
	})
}

func (w *storageWatcher) loop() {
	timer := time.NewTimer(0)
	<-timer.C

	for {
		select {
		case <-w.stopCh:
			timer.Stop()
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.target {
				continue
			}
			// Rename covers helpers that write a temp file and move it into place
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(debounce)

		case <-timer.C:
			select {
			case w.wake <- struct{}{}:
			default:
			}

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}
