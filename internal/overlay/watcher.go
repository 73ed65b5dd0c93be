package overlay

import (
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"

	imagex "lapsecam/internal/image"
)

// reloadDebounce batches the burst of filesystem events the external
// stabilizer produces while writing a new output set.
const reloadDebounce = 300 * time.Millisecond

// OnGhostReload registers a callback fired after the watcher reloads
// the ghost reference. Called from the watcher goroutine.
func (o *Overlay) OnGhostReload(fn func()) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onGhostReload = fn
}

// WatchStabilized watches the stabilized-photos directory and reloads
// the ghost reference when the set changes (new stabilizer output,
// deletions). Only one watch may be active per overlay.
func (o *Overlay) WatchStabilized(dir string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.watcher != nil {
		return fmt.Errorf("stabilized watcher already running")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	o.watcher = watcher
	o.watcherDone = make(chan struct{})
	go o.watchLoop(watcher, o.watcherDone)

	o.logger.Debug("watching stabilized set", "dir", dir)
	return nil
}

func (o *Overlay) watchLoop(watcher *fsnotify.Watcher, done chan struct{}) {
	defer close(done)

	var timer *time.Timer
	var pending <-chan time.Time

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			// The stabilizer drops temp and sidecar files alongside
			// its outputs; only image files change the set.
			if !imagex.IsSupportedFormat(event.Name) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
			} else {
				timer.Reset(reloadDebounce)
			}
			pending = timer.C

		case <-pending:
			pending = nil
			if err := o.Reload(); err != nil {
				o.logger.Warn("ghost reload failed", "err", err)
				continue
			}
			o.mu.Lock()
			fn := o.onGhostReload
			o.mu.Unlock()
			if fn != nil {
				fn()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			o.logger.Warn("stabilized watcher error", "err", err)
		}
	}
}

func (o *Overlay) stopWatcher() {
	o.mu.Lock()
	watcher := o.watcher
	done := o.watcherDone
	o.watcher = nil
	o.watcherDone = nil
	o.mu.Unlock()

	if watcher != nil {
		watcher.Close()
		<-done
	}
}
