package doctor

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestService() *Service { return NewService(NewMemoryRepo()) }

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func specialty(s string) *string { return &s }

func TestCreate_NormalizesSlots(t *testing.T) {
	svc := newTestService()
	a := &Availability{
		DoctorID:  " d1 ",
		Name:      "Dr. Mehta",
		Specialty: specialty("Cardiology"),
		AvailableSlots: []time.Time{
			ts("2025-09-18T14:00:00Z"),
			ts("2025-09-17T10:30:00Z"),
			ts("2025-09-18T14:00:00Z"),
		},
	}
	if err := svc.Create(context.Background(), a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.ID == "" || a.CreatedAt.IsZero() {
		t.Error("expected id and created_at to be set")
	}
	if a.DoctorID != "d1" {
		t.Errorf("expected trimmed doctor id, got %q", a.DoctorID)
	}
	if len(a.AvailableSlots) != 2 {
		t.Fatalf("expected duplicates removed, got %d slots", len(a.AvailableSlots))
	}
	if !a.AvailableSlots[0].Equal(ts("2025-09-17T10:30:00Z")) {
		t.Errorf("expected slots sorted, got %v", a.AvailableSlots)
	}
}

func TestCreate_Validation(t *testing.T) {
	svc := newTestService()
	if err := svc.Create(context.Background(), &Availability{Name: "x"}); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid for missing doctor_id, got %v", err)
	}
	if err := svc.Create(context.Background(), &Availability{DoctorID: "d1"}); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid for missing doctor_name, got %v", err)
	}
}

func TestCreate_Duplicate(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	if err := svc.Create(ctx, &Availability{DoctorID: "d1", Name: "A"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.Create(ctx, &Availability{DoctorID: "d1", Name: "B"}); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestGet_NotFound(t *testing.T) {
	if _, err := newTestService().Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFindFreeSlot(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	svc.Create(ctx, &Availability{
		DoctorID: "d1", Name: "Dr. A", Specialty: specialty("Cardiology"),
		AvailableSlots: []time.Time{ts("2025-09-17T10:30:00Z")},
	})
	svc.Create(ctx, &Availability{
		DoctorID: "d2", Name: "Dr. B", Specialty: specialty("Pediatric Cardiology"),
		AvailableSlots: []time.Time{ts("2025-09-19T09:00:00Z")},
	})
	svc.Create(ctx, &Availability{
		DoctorID: "d3", Name: "Dr. C", Specialty: specialty("Dermatology"),
		AvailableSlots: []time.Time{ts("2025-09-16T09:00:00Z")},
	})

	d, slot, err := svc.FindFreeSlot(ctx, "cardiology", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.DoctorID != "d1" || !slot.Equal(ts("2025-09-17T10:30:00Z")) {
		t.Errorf("expected first cardiology slot of d1, got %s %v", d.DoctorID, slot)
	}

	d, slot, err = svc.FindFreeSlot(ctx, "Cardiology", []time.Time{ts("2025-09-17T10:30:00Z")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.DoctorID != "d2" || !slot.Equal(ts("2025-09-19T09:00:00Z")) {
		t.Errorf("expected fallback to d2, got %s %v", d.DoctorID, slot)
	}

	booked := []time.Time{ts("2025-09-17T10:30:00Z"), ts("2025-09-19T09:00:00Z")}
	if _, _, err := svc.FindFreeSlot(ctx, "cardiology", booked); !errors.Is(err, ErrNoAvailableSlot) {
		t.Errorf("expected ErrNoAvailableSlot, got %v", err)
	}
	if _, _, err := svc.FindFreeSlot(ctx, "Neurology", nil); !errors.Is(err, ErrNoAvailableSlot) {
		t.Errorf("expected ErrNoAvailableSlot for unknown specialty, got %v", err)
	}
	if _, _, err := svc.FindFreeSlot(ctx, "  ", nil); !errors.Is(err, ErrNoAvailableSlot) {
		t.Errorf("expected ErrNoAvailableSlot for blank specialty, got %v", err)
	}
}

func TestList_Paginates(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		svc.Create(ctx, &Availability{DoctorID: id, Name: id})
	}
	items, total, err := svc.List(ctx, 2, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 3 || len(items) != 2 || items[0].DoctorID != "b" {
		t.Errorf("unexpected page: total=%d items=%d", total, len(items))
	}
}
