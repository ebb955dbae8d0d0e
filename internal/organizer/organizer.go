// Package organizer runs the periodic pass that moves files out of a watch
// target into their destination folders.
package organizer

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/starford/tidy/internal/apperr"
	"github.com/starford/tidy/internal/classify"
	"github.com/starford/tidy/internal/models"
	"github.com/starford/tidy/internal/storage"
)

// LockFile is created in every watch target while it is being organized.
const LockFile = ".tidy.lock"

// DefaultInterval is the pause between two cycles.
const DefaultInterval = 10 * time.Second

// State of the organizer loop.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
)

// Status is a snapshot of the organizer for status surfaces.
type Status struct {
	State     State               `json:"state"`
	Target    string              `json:"target,omitempty"`
	StartedAt time.Time           `json:"started_at,omitzero"`
	Interval  time.Duration       `json:"interval"`
	LastCycle *models.CycleReport `json:"last_cycle,omitempty"`
	Message   string              `json:"message"`
}

// RuleSource supplies the current rule list. Implementations must return a
// copy.
type RuleSource interface {
	Rules() []models.Rule
}

// Organizer owns at most one background loop at a time.
type Organizer struct {
	rules      RuleSource
	classifier *classify.Classifier
	interval   time.Duration
	logger     *slog.Logger
	reporters  []Reporter
	exclude    map[string]struct{}

	mu        sync.Mutex
	state     State
	target    string
	startedAt time.Time
	last      *models.CycleReport
	message   string
	cancel    context.CancelFunc
	done      chan struct{}
	trigger   chan struct{}
}

// New creates an idle Organizer.
func New(rules RuleSource, classifier *classify.Classifier, opts ...Option) *Organizer {
	o := &Organizer{
		rules:      rules,
		classifier: classifier,
		interval:   DefaultInterval,
		logger:     slog.Default(),
		exclude:    make(map[string]struct{}),
		state:      StateIdle,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.message = classifier.Catalog().Waiting()
	return o
}

// Start launches the loop on target and returns immediately. The first
// cycle runs right away. The loop ends when Stop is called or ctx is done.
func (o *Organizer) Start(ctx context.Context, target string) error {
	target = strings.TrimSpace(target)
	if target == "" {
		return apperr.ErrNoTarget
	}

	o.mu.Lock()
	if o.state == StateRunning {
		o.mu.Unlock()
		return fmt.Errorf("organizer: %s: %w", o.target, apperr.ErrAlreadyRunning)
	}

	fs, lock, err := open(target)
	if err != nil {
		o.mu.Unlock()
		return err
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	trigger := make(chan struct{}, 1)

	o.state = StateRunning
	o.target = fs.Root()
	o.startedAt = time.Now()
	o.message = o.classifier.Catalog().Running()
	o.cancel = cancel
	o.done = done
	o.trigger = trigger
	st := o.statusLocked()
	o.mu.Unlock()

	o.logger.Info("organizer: started",
		slog.String("target", st.Target),
		slog.Duration("interval", o.interval))
	o.stateChanged(st)

	go o.loop(loopCtx, fs, lock, trigger, done)
	return nil
}

// Stop cancels the loop and waits for it to exit. A move already in
// progress completes first.
func (o *Organizer) Stop() error {
	o.mu.Lock()
	if o.state != StateRunning {
		o.mu.Unlock()
		return apperr.ErrNotRunning
	}
	cancel, done := o.cancel, o.done
	o.mu.Unlock()

	cancel()
	<-done
	return nil
}

// Trigger asks a running loop to start its next cycle now.
func (o *Organizer) Trigger() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateRunning {
		return apperr.ErrNotRunning
	}
	select {
	case o.trigger <- struct{}{}:
	default:
	}
	return nil
}

// Running reports whether the loop is active.
func (o *Organizer) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state == StateRunning
}

// Status returns a snapshot of the organizer.
func (o *Organizer) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.statusLocked()
}

func (o *Organizer) statusLocked() Status {
	st := Status{
		State:    o.state,
		Interval: o.interval,
		Message:  o.message,
	}
	if o.state == StateRunning {
		st.Target = o.target
		st.StartedAt = o.startedAt
	}
	if o.last != nil {
		last := *o.last
		st.LastCycle = &last
	}
	return st
}

// RunOnce runs a single cycle on target in the calling goroutine. It fails
// with apperr.ErrLocked when target is being organized by a loop, in this
// process or another one.
func (o *Organizer) RunOnce(ctx context.Context, target string) (models.CycleReport, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return models.CycleReport{}, apperr.ErrNoTarget
	}
	fs, lock, err := open(target)
	if err != nil {
		return models.CycleReport{}, err
	}
	defer unlock(lock, o.logger)

	report := o.cycle(ctx, fs)
	o.finish(report)
	return report, nil
}

func open(target string) (*storage.FS, *flock.Flock, error) {
	fs, err := storage.NewFS(target)
	if err != nil {
		return nil, nil, fmt.Errorf("organizer: %w", err)
	}
	lock := flock.New(filepath.Join(fs.Root(), LockFile))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, nil, fmt.Errorf("organizer: lock %s: %w", fs.Root(), err)
	}
	if !ok {
		return nil, nil, fmt.Errorf("organizer: %s: %w", fs.Root(), apperr.ErrLocked)
	}
	return fs, lock, nil
}

func unlock(lock *flock.Flock, logger *slog.Logger) {
	if err := lock.Unlock(); err != nil {
		logger.Warn("organizer: unlock failed",
			slog.String("path", lock.Path()),
			slog.String("error", err.Error()))
	}
}

func (o *Organizer) loop(ctx context.Context, fs *storage.FS, lock *flock.Flock, trigger <-chan struct{}, done chan struct{}) {
	defer close(done)
	defer func() {
		unlock(lock, o.logger)

		o.mu.Lock()
		o.state = StateIdle
		o.cancel = nil
		o.message = o.classifier.Catalog().Stopped()
		st := o.statusLocked()
		o.mu.Unlock()

		o.logger.Info("organizer: stopped", slog.String("target", fs.Root()))
		st.Target = fs.Root()
		o.stateChanged(st)
	}()

	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	for {
		report := o.cycle(ctx, fs)
		o.finish(report)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-trigger:
		}
	}
}

// cycle lists the target once and moves every entry. Failures are recorded
// in the report and never stop the pass.
func (o *Organizer) cycle(ctx context.Context, fs storage.Provider) models.CycleReport {
	report := models.CycleReport{
		ID:        uuid.NewString(),
		Target:    fs.Root(),
		StartedAt: time.Now(),
	}

	entries, err := fs.Entries()
	if err != nil {
		report.Err = fmt.Errorf("organizer: list %s: %w", fs.Root(), err)
		report.Error = report.Err.Error()
		report.FinishedAt = time.Now()
		o.logger.Error("organizer: cycle failed", slog.String("error", report.Error))
		return report
	}

	rules := o.rules.Rules()
	for _, e := range entries {
		if ctx.Err() != nil {
			break
		}
		if _, skip := o.exclude[filepath.Join(fs.Root(), e.Name)]; skip {
			continue
		}
		res, ok := o.place(fs, e, rules)
		if !ok {
			continue
		}
		if res.Err != nil {
			o.logger.Warn("organizer: move failed",
				slog.String("file", res.Name),
				slog.String("folder", res.Folder),
				slog.String("error", res.Error))
			report.Failed = append(report.Failed, res)
			continue
		}
		o.logger.Debug("organizer: moved",
			slog.String("file", res.Name),
			slog.String("to", res.To))
		report.Moved = append(report.Moved, res)
	}

	report.FinishedAt = time.Now()
	return report
}

// place classifies and moves one entry. ok is false when the file already
// sits in its destination.
func (o *Organizer) place(fs storage.Provider, e models.FileEntry, rules []models.Rule) (models.MoveResult, bool) {
	dest := o.classifier.Classify(e.Name, rules)
	res := models.MoveResult{
		Name:   e.Name,
		From:   filepath.Join(fs.Root(), e.Name),
		Folder: dest.Folder,
		Kind:   string(dest.Kind),
		Size:   e.Size,
	}

	dir, err := fs.Resolve(dest.Folder)
	if err == nil && dir == fs.Root() {
		return res, false
	}
	if err == nil {
		res.To, err = fs.Move(e.Name, dir)
	}
	if err != nil {
		res.Err = err
		res.Error = err.Error()
	}
	return res, true
}

// finish stores report as the last cycle, updates the status line and
// hands the report to every reporter.
func (o *Organizer) finish(report models.CycleReport) {
	cat := o.classifier.Catalog()

	o.mu.Lock()
	o.last = &report
	switch {
	case report.Err != nil:
		o.message = cat.Error(report.Err)
	case len(report.Failed) > 0:
		o.message = cat.Error(report.Failed[len(report.Failed)-1].Err)
	case len(report.Moved) > 0:
		m := report.Moved[len(report.Moved)-1]
		o.message = cat.Moved(m.Name, m.Folder)
	}
	o.mu.Unlock()

	for _, r := range o.reporters {
		r.CycleDone(report)
	}
}

func (o *Organizer) stateChanged(st Status) {
	for _, r := range o.reporters {
		r.StateChanged(st)
	}
}
