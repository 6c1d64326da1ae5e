package scenarios

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ErrWatch wraps errors reported by the file watcher.
var ErrWatch = errors.New("scenario watcher")

// watchDebounce groups the burst of events editors emit on save.
const watchDebounce = 100 * time.Millisecond

// Watch reloads the scenario at path whenever it changes and calls fn with
// the freshly loaded scenario, the load error or a watcher error. It blocks until ctx is
// canceled. The parent directory is watched so that editors replacing the
// file on save are followed.
func Watch(ctx context.Context, path string, fn func(*Scenario, error)) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	return watchLoop(ctx, abs, fw.Events, fw.Errors, fn)
}

// watchLoop debounces events for abs and reports watcher errors through fn.
func watchLoop(ctx context.Context, abs string, events <-chan fsnotify.Event, errs <-chan error, fn func(*Scenario, error)) error {
	var pending time.Time
	ticker := time.NewTicker(watchDebounce)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs && filepath.Base(event.Name) != filepath.Base(abs) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				pending = time.Now()
			}
		case <-ticker.C:
			if pending.IsZero() || time.Since(pending) < watchDebounce {
				continue
			}
			pending = time.Time{}
			fn(Load(abs))
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			fn(nil, fmt.Errorf("%w: %v", ErrWatch, err))
		}
	}
}
