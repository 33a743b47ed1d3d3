package careplan

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestReminderNotifier_FiresOncePerMinute(t *testing.T) {
	svc, repo := newTestService(t)
	seed(t, repo, "cp", "p1")
	svc.UpdateReminderTime(context.Background(), "p1", TimeMorning, "08:30")
	svc.UpdateReminderTime(context.Background(), "p1", TimeEvening, "08:30")

	sender := &recordingSender{}
	n := NewReminderNotifier(svc, sender, "p1", time.Second, zerolog.Nop())
	now := time.Date(2025, 9, 17, 8, 30, 5, 0, time.Local)
	n.now = func() time.Time { return now }

	// Evening has no medications so only morning fires.
	if got := n.Tick(context.Background()); got != 1 {
		t.Fatalf("expected 1 reminder, got %d", got)
	}
	if sender.sent[0]["medications"] != "Metformin, Aspirin" {
		t.Errorf("unexpected medications: %q", sender.sent[0]["medications"])
	}

	now = now.Add(30 * time.Second)
	if got := n.Tick(context.Background()); got != 0 {
		t.Errorf("expected no repeat within the minute, got %d", got)
	}

	now = now.Add(24 * time.Hour)
	if got := n.Tick(context.Background()); got != 1 {
		t.Errorf("expected reminder on the next day, got %d", got)
	}
}

func TestReminderNotifier_NoPlan(t *testing.T) {
	svc, _ := newTestService(t)
	sender := &recordingSender{}
	n := NewReminderNotifier(svc, sender, "p1", time.Second, zerolog.Nop())
	if got := n.Tick(context.Background()); got != 0 {
		t.Errorf("expected nothing sent, got %d", got)
	}
}

func TestReminderNotifier_RunStops(t *testing.T) {
	svc, _ := newTestService(t)
	n := NewReminderNotifier(svc, &recordingSender{}, "p1", 10*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		n.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("notifier did not stop after cancellation")
	}
}
