package careplan

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type memoryRepo struct {
	mu    sync.RWMutex
	plans map[string]*CarePlan
	order []string
}

// NewMemoryRepo returns a Repository kept in process memory.
func NewMemoryRepo() Repository {
	return &memoryRepo{plans: make(map[string]*CarePlan)}
}

func (r *memoryRepo) Create(_ context.Context, cp *CarePlan) error {
	if cp.ID == "" {
		return fmt.Errorf("care plan id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.plans[cp.ID]; exists {
		return fmt.Errorf("care plan %s already exists", cp.ID)
	}
	r.plans[cp.ID] = cp.Clone()
	r.order = append(r.order, cp.ID)
	return nil
}

func (r *memoryRepo) GetByID(_ context.Context, id string) (*CarePlan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cp, ok := r.plans[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cp.Clone(), nil
}

func (r *memoryRepo) GetActiveByPatient(_ context.Context, patientID string) (*CarePlan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *CarePlan
	for _, id := range r.order {
		cp := r.plans[id]
		if cp.PatientID != patientID {
			continue
		}
		if latest == nil || !cp.CreatedAt.Before(latest.CreatedAt) {
			latest = cp
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	return latest.Clone(), nil
}

// mutate runs fn on the stored plan under the write lock.
func (r *memoryRepo) mutate(carePlanID string, fn func(cp *CarePlan) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp, ok := r.plans[carePlanID]
	if !ok {
		return ErrNotFound
	}
	return fn(cp)
}

func (r *memoryRepo) UpdateScheduleEntry(_ context.Context, carePlanID, medicationID, timeLabel string, taken bool) error {
	return r.mutate(carePlanID, func(cp *CarePlan) error {
		med := cp.Medication(medicationID)
		if med == nil {
			return ErrNotFound
		}
		entry := med.Entry(timeLabel)
		if entry == nil {
			return ErrNotFound
		}
		entry.Taken = boolPtr(taken)
		return nil
	})
}

func (r *memoryRepo) UpdateAppointmentStatus(_ context.Context, carePlanID, appointmentID, status string, slot *time.Time) error {
	return r.mutate(carePlanID, func(cp *CarePlan) error {
		appt := cp.Appointment(appointmentID)
		if appt == nil {
			return ErrNotFound
		}
		appt.Status = status
		if slot != nil {
			s := *slot
			appt.ProposedSlot = &s
		}
		return nil
	})
}

func (r *memoryRepo) SetProposedSlot(_ context.Context, carePlanID, appointmentID string, slot time.Time) error {
	return r.mutate(carePlanID, func(cp *CarePlan) error {
		appt := cp.Appointment(appointmentID)
		if appt == nil {
			return ErrNotFound
		}
		appt.ProposedSlot = &slot
		return nil
	})
}

func (r *memoryRepo) UpdateReminderTime(_ context.Context, carePlanID, label, hhmm string) error {
	return r.mutate(carePlanID, func(cp *CarePlan) error {
		cp.ReminderSlots[label] = ReminderSlot{Time: strPtr(hhmm)}
		return nil
	})
}

func (r *memoryRepo) ProposedSlots(_ context.Context) ([]time.Time, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []time.Time
	for _, cp := range r.plans {
		for _, a := range cp.Appointments {
			if a.ProposedSlot != nil {
				out = append(out, *a.ProposedSlot)
			}
		}
	}
	return out, nil
}
