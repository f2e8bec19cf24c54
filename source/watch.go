package source

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce coalesces the burst of events an editor save produces.
const DefaultDebounce = 250 * time.Millisecond

// Watch reloads the store whenever its file changes and calls onReload with the
// result of each reload. It blocks until ctx is done.
//
// The parent directory is watched rather than the file so that editors which
// save by renaming a temporary file are still picked up.
func (s *FileStore) Watch(ctx context.Context, debounce time.Duration, onReload func(error)) error {
	if s.path == "" {
		return errors.New("watch: store has no backing file")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer w.Close()

	target, err := filepath.Abs(s.path)
	if err != nil {
		return fmt.Errorf("watch %s: %w", s.path, err)
	}
	if err := w.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", s.path, err)
	}
	s.logger.Info("watching family file", zap.String("path", target))

	var timer *time.Timer
	fire := make(chan struct{}, 1)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			s.logger.Debug("family file changed",
				zap.String("file", event.Name),
				zap.String("operation", event.Op.String()),
			)
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})

		case <-fire:
			err := s.Reload()
			if err != nil {
				s.logger.Error("family file reload failed", zap.Error(err))
			}
			if onReload != nil {
				onReload(err)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("file watcher error", zap.Error(err))
		}
	}
}
