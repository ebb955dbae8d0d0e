package sse

import (
	"github.com/starford/tidy/internal/locale"
	"github.com/starford/tidy/internal/models"
	"github.com/starford/tidy/internal/organizer"
)

// Reporter turns organizer callbacks into broker events.
type Reporter struct {
	broker  *Broker
	catalog *locale.Catalog
}

// NewReporter creates a Reporter publishing to b with status lines from
// catalog.
func NewReporter(b *Broker, catalog *locale.Catalog) *Reporter {
	return &Reporter{broker: b, catalog: catalog}
}

var _ organizer.Reporter = (*Reporter)(nil)

// CycleDone publishes one event per move attempt and a cycle.failed event
// when the target could not be listed.
func (r *Reporter) CycleDone(report models.CycleReport) {
	if report.Err != nil {
		r.broker.Publish(Event{Type: TypeCycleFailed, Data: map[string]string{
			"target":  report.Target,
			"message": r.catalog.Error(report.Err),
			"error":   report.Error,
		}})
	}
	for _, m := range report.Moved {
		r.broker.PublishMove(MoveEvent{
			Name:    m.Name,
			Folder:  m.Folder,
			Message: r.catalog.Moved(m.Name, m.Folder),
		}, false)
	}
	for _, m := range report.Failed {
		r.broker.PublishMove(MoveEvent{
			Name:    m.Name,
			Folder:  m.Folder,
			Message: r.catalog.Error(m.Err),
			Error:   m.Error,
		}, true)
	}
}

// StateChanged publishes organizer.started or organizer.stopped.
func (r *Reporter) StateChanged(st organizer.Status) {
	typ := TypeOrganizerStopped
	if st.State == organizer.StateRunning {
		typ = TypeOrganizerStarted
	}
	r.broker.Publish(Event{Type: typ, Data: st})
}

// RulesChanged publishes rules.changed with the new rule list.
func (r *Reporter) RulesChanged(list []models.Rule) {
	r.broker.Publish(Event{Type: TypeRulesChanged, Data: list})
}
