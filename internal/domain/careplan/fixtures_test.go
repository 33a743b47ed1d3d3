package careplan

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/AryanC19/Greeno-BE/internal/platform/notification"
)

func samplePlan(id, patientID string, created time.Time) *CarePlan {
	cp := &CarePlan{
		ID:        id,
		PatientID: patientID,
		Medications: []Medication{
			{ID: id + "-m1", Name: "Metformin", Dose: strPtr("500mg"), Schedule: []ScheduleEntry{{Time: TimeMorning}, {Time: TimeNight}}},
			{ID: id + "-m2", Name: "Aspirin", Schedule: []ScheduleEntry{{Time: TimeMorning}}},
			{ID: id + "-m3", Name: "Vitamin D"},
		},
		Appointments: []Appointment{
			{ID: id + "-a1", Type: "Cardiology follow-up", Status: StatusPending},
			{ID: id + "-a2", Type: "Blood test", Status: StatusConfirmed},
		},
		ReminderSlots: DefaultReminderSlots(),
		CreatedAt:     created,
	}
	cp.Normalize()
	return cp
}

type fakeExtractor struct {
	plan *CarePlan
	err  error
}

func (f *fakeExtractor) Extract(_ context.Context, _ []byte, patientID string) (*CarePlan, error) {
	if f.err != nil {
		return nil, f.err
	}
	cp := f.plan.Clone()
	cp.PatientID = patientID
	return cp, nil
}

type recordingSender struct {
	mu   sync.Mutex
	sent []map[string]string
	tpl  []string
	fail bool
}

func (r *recordingSender) SendFromTemplate(_ context.Context, templateID string, data map[string]string, recipient string) (*notification.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return nil, errors.New("delivery failed")
	}
	r.sent = append(r.sent, data)
	r.tpl = append(r.tpl, templateID)
	return &notification.Notification{Recipient: recipient, TemplateID: templateID}, nil
}

func (r *recordingSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}
