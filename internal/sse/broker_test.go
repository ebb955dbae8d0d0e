package sse

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/text/language"

	"github.com/starford/tidy/internal/locale"
	"github.com/starford/tidy/internal/models"
	"github.com/starford/tidy/internal/organizer"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: TypeRulesChanged, Data: map[string]int{"count": 3}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: rules.changed") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"count":3`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishMove_ActivityThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// First move should trigger activity.updated.
	b.PublishMove(MoveEvent{Name: "a.pdf", Folder: "Documents"}, false)
	// Second move immediately should NOT trigger another one.
	b.PublishMove(MoveEvent{Name: "b.xyz", Folder: "XYZ Files", Error: "denied"}, true)

	time.Sleep(50 * time.Millisecond)
	activity, moved, failed := 0, 0, 0
loop:
	for {
		select {
		case msg := <-ch:
			s := string(msg)
			switch {
			case strings.Contains(s, "event: activity.updated"):
				activity++
			case strings.Contains(s, "event: file.moved"):
				moved++
			case strings.Contains(s, "event: file.failed"):
				failed++
				if !strings.Contains(s, `"error":"denied"`) {
					t.Errorf("failed event missing error: %q", s)
				}
			}
		default:
			break loop
		}
	}

	if moved != 1 || failed != 1 {
		t.Errorf("moved=%d failed=%d, want 1 and 1", moved, failed)
	}
	if activity != 1 {
		t.Errorf("activity events = %d, want 1 (throttled)", activity)
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	// Start handler in background.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	// Give handler time to subscribe.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.Publish(Event{Type: TypeOrganizerStarted, Data: map[string]string{"target": "/tmp/in"}})
	time.Sleep(50 * time.Millisecond)

	// Cancel context to disconnect.
	cancel()
	<-done

	body := w.Body.String()
	if !strings.HasPrefix(body, "event: hello") {
		t.Errorf("handler must greet first: %q", body)
	}
	if !strings.Contains(body, "event: organizer.started") {
		t.Errorf("handler output missing event: %q", body)
	}

	// Client should be cleaned up.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Fill buffer (capacity 64) and then one more should not block.
	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
	// If we reach here without deadlock, the test passes.
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	// Should be safe no-op after close.
	b.Publish(Event{Type: TypeOrganizerStopped, Data: map[string]string{}})
	b.PublishMove(MoveEvent{Name: "x.pdf"}, false)
}

func TestLateSubscriberGetsOrganizerState(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()

	b.Publish(Event{Type: TypeOrganizerStarted, Data: map[string]string{"target": "/tmp/in"}})
	b.Publish(Event{Type: TypeRulesChanged, Data: []string{}})
	b.Publish(Event{Type: TypeOrganizerStopped, Data: map[string]string{"target": "/tmp/in"}})
	// Round-trip through the loop so the publishes above are processed.
	_ = b.ClientCount()
	time.Sleep(20 * time.Millisecond)

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	select {
	case msg := <-ch:
		if !strings.HasPrefix(string(msg), "event: organizer.stopped") {
			t.Errorf("replayed %q, want the latest organizer state", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("no state replayed to new subscriber")
	}
	select {
	case msg := <-ch:
		t.Errorf("unexpected extra message %q", msg)
	default:
	}
}

func TestNoStateReplayBeforeOrganizerEvents(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()

	b.PublishMove(MoveEvent{Name: "a.pdf"}, false)
	_ = b.ClientCount()
	time.Sleep(20 * time.Millisecond)

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)
	select {
	case msg := <-ch:
		t.Errorf("unexpected replay %q", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestReporterEvents(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	r := NewReporter(b, locale.For(language.Italian))
	r.StateChanged(organizer.Status{State: organizer.StateRunning, Target: "/in"})
	r.CycleDone(models.CycleReport{
		Moved:  []models.MoveResult{{Name: "a.pdf", Folder: "Documenti"}},
		Failed: []models.MoveResult{{Name: "b.zip", Folder: "Archivi", Err: errors.New("denied"), Error: "denied"}},
	})
	r.RulesChanged([]models.Rule{{Keyword: "k", Folder: "F"}})

	want := []string{
		"event: organizer.started",
		"event: file.moved",
		"event: activity.updated",
		"event: file.failed",
		"event: rules.changed",
	}
	var got []string
	for len(got) < len(want) {
		select {
		case msg := <-ch:
			s := string(msg)
			got = append(got, s[:strings.Index(s, "\n")])
			if strings.HasPrefix(s, "event: file.moved") && !strings.Contains(s, "Spostato: a.pdf -> Documenti/") {
				t.Errorf("moved event not localized: %q", s)
			}
		case <-time.After(time.Second):
			t.Fatalf("timeout, got %v", got)
		}
	}
	for _, w := range want {
		found := false
		for _, g := range got {
			if g == w {
				found = true
			}
		}
		if !found {
			t.Errorf("missing %q in %v", w, got)
		}
	}
}
