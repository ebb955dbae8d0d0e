package organizer

import (
	"log/slog"

	"github.com/starford/tidy/internal/models"
)

// Reporter receives the outcome of every cycle and every state change.
// Calls come from the organizer goroutine and must not block for long.
type Reporter interface {
	CycleDone(models.CycleReport)
	StateChanged(Status)
}

// CycleFunc adapts a function to a Reporter that ignores state changes.
type CycleFunc func(models.CycleReport)

func (f CycleFunc) CycleDone(r models.CycleReport) { f(r) }
func (CycleFunc) StateChanged(Status)              {}

// LogReporter writes a summary line per non-empty cycle.
type LogReporter struct {
	Logger *slog.Logger
}

func (l LogReporter) CycleDone(r models.CycleReport) {
	if r.Empty() {
		return
	}
	attrs := []any{
		slog.String("cycle", r.ID),
		slog.String("target", r.Target),
		slog.Int("moved", len(r.Moved)),
		slog.Int("failed", len(r.Failed)),
		slog.Duration("took", r.FinishedAt.Sub(r.StartedAt)),
	}
	if r.Err != nil {
		l.Logger.Error("organizer: cycle", append(attrs, slog.String("error", r.Error))...)
		return
	}
	l.Logger.Info("organizer: cycle", attrs...)
}

func (l LogReporter) StateChanged(st Status) {
	l.Logger.Debug("organizer: state", slog.String("state", string(st.State)), slog.String("target", st.Target))
}
