package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher reloads the settings file when it changes on disk and hands the
// fresh snapshot to every handler. The directory is watched so editors and
// Store's rename-on-save are both seen.
type Watcher struct {
	path     string
	debounce time.Duration
	log      zerolog.Logger

	mu       sync.RWMutex
	handlers []func(*Config)

	fw     *fsnotify.Watcher
	cancel context.CancelFunc
	done   chan struct{}
}

func NewWatcher(path string, debounce time.Duration, log zerolog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	return &Watcher{path: path, debounce: debounce, log: log}
}

// OnReload registers h. It is called from the watcher goroutine.
func (w *Watcher) OnReload(h func(*Config)) {
	w.mu.Lock()
	w.handlers = append(w.handlers, h)
	w.mu.Unlock()
}

func (w *Watcher) Start(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		fw.Close()
		return err
	}
	w.fw = fw
	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	w.log.Info().Str("path", w.path).Dur("debounce", w.debounce).Msg("config watcher started")
	go w.loop(ctx)
	return nil
}

func (w *Watcher) Stop() error {
	if w.fw == nil {
		return nil
	}
	w.cancel()
	err := w.fw.Close()
	<-w.done
	return err
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)
	var timer *time.Timer
	var timerC <-chan time.Time
	name := filepath.Clean(w.path)

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != name {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounce)
			timerC = timer.C
		case <-timerC:
			timerC = nil
			w.reload()
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("config watcher error")
		}
	}
}

func (w *Watcher) reload() {
	c, err := Strict(w.path)
	if err != nil {
		w.log.Warn().Err(err).Msg("config reload skipped")
		return
	}
	w.mu.RLock()
	hs := make([]func(*Config), len(w.handlers))
	copy(hs, w.handlers)
	w.mu.RUnlock()
	w.log.Info().Msg("config reloaded")
	for _, h := range hs {
		h(c)
	}
}
