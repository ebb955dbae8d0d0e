package rules

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/tidy/internal/checksum"
)

const reloadDebounce = 200 * time.Millisecond

// Watch reloads the rules file when it is edited by something other than
// this store, until ctx is cancelled. The parent directory is watched so
// that editors which save by rename are seen too.
//
// Unlike Load, a reload that fails to parse keeps the current rules: a
// half-written file should not wipe a working list.
func (s *Store) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	abs, err := filepath.Abs(s.path)
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	s.logger.Info("rules: watching for edits", slog.String("path", abs))

	var timer *time.Timer
	var timerCh <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case <-timerCh:
			timerCh = nil
			s.reload()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
			} else {
				timer.Reset(reloadDebounce)
			}
			timerCh = timer.C

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("rules: watcher error", slog.String("error", watchErr.Error()))
		}
	}
}

func (s *Store) reload() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		s.logger.Warn("rules: reload read failed", slog.String("error", err.Error()))
		return
	}
	sum := checksum.Sum(data)

	s.mu.RLock()
	same := sum == s.lastSum
	s.mu.RUnlock()
	if same {
		return
	}

	list, err := decode(data)
	if err != nil {
		s.logger.Warn("rules: reload parse failed, keeping current rules", slog.String("error", err.Error()))
		return
	}

	s.mu.Lock()
	s.rules = list.rules
	s.lastSum = sum
	s.mu.Unlock()

	s.logger.Info("rules: reloaded after external edit", slog.Int("count", len(list.rules)))
	s.notify()
}
