package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchFunc is called after each reload triggered by a file change.
// err is non-nil when the reload failed; the previous tree stays live
// in that case.
type WatchFunc func(c *Config, err error)

// Watch reloads the config whenever one of its sources changes on
// disk, until ctx is canceled. Parent directories are watched rather
// than the files themselves, since most editors and deploy tools
// replace config files by rename. Bursts of events within the debounce
// window collapse into a single reload; debounce <= 0 means 100ms.
func (c *Config) Watch(ctx context.Context, debounce time.Duration, fn WatchFunc) error {
	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	seen := make(map[string]bool)
	add := func(dir string) error {
		if seen[dir] {
			return nil
		}
		seen[dir] = true
		return watcher.Add(dir)
	}
	for _, dir := range c.dirs {
		if err := add(dir); err != nil {
			watcher.Close()
			return err
		}
	}
	for _, file := range c.files {
		if err := add(filepath.Dir(file)); err != nil {
			watcher.Close()
			return err
		}
	}

	go c.watchLoop(ctx, watcher, debounce, fn)
	return nil
}

func (c *Config) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, debounce time.Duration, fn WatchFunc) {
	defer watcher.Close()

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !c.relevant(event) {
				continue
			}
			timer.Reset(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("config watcher error", "error", err)
		case <-timer.C:
			fn(c, c.reload())
		}
	}
}

// relevant filters out chmod noise and changes to files that are not
// config sources.
func (c *Config) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write | fsnotify.Create | fsnotify.Rename | fsnotify.Remove) {
		return false
	}
	for _, file := range c.files {
		if filepath.Clean(event.Name) == filepath.Clean(file) {
			return true
		}
	}
	for _, dir := range c.dirs {
		if filepath.Dir(filepath.Clean(event.Name)) == filepath.Clean(dir) && knownFormat(event.Name) {
			return true
		}
	}
	return false
}
