package assets

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reindexes a repository when its asset directory changes on disk,
// so renames and moves performed outside the tool are picked up without the
// assets losing their identities. Events are debounced: a burst of filesystem
// activity triggers one reindex after the directory settles.
type Watcher struct {
	fw      *fsnotify.Watcher
	reindex func(context.Context) error
	settle  time.Duration
	done    chan struct{}
	stopped chan struct{}
	onError func(error)
}

// WatchRoot starts watching root and calls reindex after changes settle.
// onError receives reindex and watch failures; pass nil to ignore them.
func WatchRoot(root string, reindex func(context.Context) error, onError func(error)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(root); err != nil {
		_ = fw.Close()
		return nil, err
	}
	if onError == nil {
		onError = func(error) {}
	}
	w := &Watcher{
		fw:      fw,
		reindex: reindex,
		settle:  200 * time.Millisecond,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		onError: onError,
	}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	defer close(w.stopped)
	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Rename|fsnotify.Remove|fsnotify.Write) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.settle)
			} else {
				timer.Reset(w.settle)
			}
			fire = timer.C
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.onError(err)
		case <-fire:
			fire = nil
			if err := w.reindex(context.Background()); err != nil {
				w.onError(err)
			}
		}
	}
}

// Close stops the watcher and waits for the event loop to exit.
func (w *Watcher) Close() error {
	close(w.done)
	err := w.fw.Close()
	<-w.stopped
	return err
}
