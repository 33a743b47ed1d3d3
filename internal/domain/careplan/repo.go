package careplan

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when the care plan, or the nested element an update
// targets, does not exist.
var ErrNotFound = errors.New("not found")

// Repository stores care plans. Every nested update is a single atomic
// statement against one care plan; concurrent writes to the same field are
// last-write-wins.
type Repository interface {
	Create(ctx context.Context, cp *CarePlan) error
	GetByID(ctx context.Context, id string) (*CarePlan, error)
	// GetActiveByPatient returns the most recently created plan of a patient.
	GetActiveByPatient(ctx context.Context, patientID string) (*CarePlan, error)
	// UpdateScheduleEntry sets Taken on the entry matching both medicationID
	// and timeLabel.
	UpdateScheduleEntry(ctx context.Context, carePlanID, medicationID, timeLabel string, taken bool) error
	// UpdateAppointmentStatus sets the status, and the proposed slot when slot is non-nil.
	UpdateAppointmentStatus(ctx context.Context, carePlanID, appointmentID, status string, slot *time.Time) error
	SetProposedSlot(ctx context.Context, carePlanID, appointmentID string, slot time.Time) error
	UpdateReminderTime(ctx context.Context, carePlanID, label, hhmm string) error
	// ProposedSlots lists slots already proposed to any appointment, across plans.
	ProposedSlots(ctx context.Context) ([]time.Time, error)
}
