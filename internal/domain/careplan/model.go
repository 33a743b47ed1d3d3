package careplan

import (
	"time"
)

// Time-of-day labels a schedule entry or reminder slot can carry.
const (
	TimeMorning     = "morning"
	TimeAfternoon   = "afternoon"
	TimeEvening     = "evening"
	TimeNight       = "night"
	TimeUnspecified = "unspecified"
)

// ReminderLabels are the fixed reminder slots every care plan carries, in display order.
var ReminderLabels = []string{TimeMorning, TimeAfternoon, TimeEvening, TimeNight}

// IsTimeOfDay reports whether s is one of the four reminder labels.
func IsTimeOfDay(s string) bool {
	switch s {
	case TimeMorning, TimeAfternoon, TimeEvening, TimeNight:
		return true
	}
	return false
}

// Appointment statuses.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusDeclined  = "declined"
)

// ScheduleEntry is one time-of-day dose of a medication. Taken is nil until
// the patient marks it.
type ScheduleEntry struct {
	Time  string `json:"time" bson:"time"`
	Taken *bool  `json:"taken" bson:"taken"`
}

type Medication struct {
	ID       string          `json:"id" bson:"id"`
	Name     string          `json:"name" bson:"name"`
	Dose     *string         `json:"dose" bson:"dose"`
	Schedule []ScheduleEntry `json:"schedule" bson:"schedule"`
	Duration *string         `json:"duration" bson:"duration"`
}

// Entry returns the schedule entry for timeLabel, or nil.
func (m *Medication) Entry(timeLabel string) *ScheduleEntry {
	for i := range m.Schedule {
		if m.Schedule[i].Time == timeLabel {
			return &m.Schedule[i]
		}
	}
	return nil
}

type Appointment struct {
	ID           string     `json:"id" bson:"id"`
	Type         string     `json:"type" bson:"type"`
	Status       string     `json:"status" bson:"status"`
	ProposedSlot *time.Time `json:"proposed_slot" bson:"proposed_slot"`
}

// Label is how the appointment is referred to in conversation: its type, or
// its id when the type is blank.
func (a *Appointment) Label() string {
	if a.Type != "" {
		return a.Type
	}
	return a.ID
}

// ReminderSlot holds the HH:MM time a reminder fires at, nil when unset.
type ReminderSlot struct {
	Time *string `json:"time" bson:"time"`
}

type CarePlan struct {
	ID               string                  `json:"id" bson:"_id"`
	PatientID        string                  `json:"patient_id" bson:"patient_id"`
	Medications      []Medication            `json:"medications" bson:"medications"`
	Appointments     []Appointment           `json:"appointments" bson:"appointments"`
	ReminderSlots    map[string]ReminderSlot `json:"reminder_slots" bson:"reminder_slots"`
	MedicalHistory   *string                 `json:"medical_history" bson:"medical_history"`
	SourceDocumentID *string                 `json:"source_document_id,omitempty" bson:"source_document_id,omitempty"`
	CreatedAt        time.Time               `json:"created_at" bson:"created_at"`
}

// DefaultReminderSlots returns the four reminder slots with no time set.
func DefaultReminderSlots() map[string]ReminderSlot {
	slots := make(map[string]ReminderSlot, len(ReminderLabels))
	for _, label := range ReminderLabels {
		slots[label] = ReminderSlot{}
	}
	return slots
}

// Normalize fills the collections a stored care plan must always carry.
func (cp *CarePlan) Normalize() {
	if cp.Medications == nil {
		cp.Medications = []Medication{}
	}
	if cp.Appointments == nil {
		cp.Appointments = []Appointment{}
	}
	if cp.ReminderSlots == nil {
		cp.ReminderSlots = make(map[string]ReminderSlot, len(ReminderLabels))
	}
	for _, label := range ReminderLabels {
		if _, ok := cp.ReminderSlots[label]; !ok {
			cp.ReminderSlots[label] = ReminderSlot{}
		}
	}
	for i := range cp.Medications {
		if len(cp.Medications[i].Schedule) == 0 {
			cp.Medications[i].Schedule = []ScheduleEntry{{Time: TimeUnspecified}}
		}
	}
}

func (cp *CarePlan) Medication(id string) *Medication {
	for i := range cp.Medications {
		if cp.Medications[i].ID == id {
			return &cp.Medications[i]
		}
	}
	return nil
}

func (cp *CarePlan) Appointment(id string) *Appointment {
	for i := range cp.Appointments {
		if cp.Appointments[i].ID == id {
			return &cp.Appointments[i]
		}
	}
	return nil
}

// Clone returns a deep copy so callers can't mutate a stored plan.
func (cp *CarePlan) Clone() *CarePlan {
	out := *cp
	out.Medications = make([]Medication, len(cp.Medications))
	for i, m := range cp.Medications {
		m.Schedule = append([]ScheduleEntry(nil), m.Schedule...)
		for j := range m.Schedule {
			if t := m.Schedule[j].Taken; t != nil {
				v := *t
				m.Schedule[j].Taken = &v
			}
		}
		out.Medications[i] = m
	}
	out.Appointments = append([]Appointment(nil), cp.Appointments...)
	if out.Appointments == nil {
		out.Appointments = []Appointment{}
	}
	out.ReminderSlots = make(map[string]ReminderSlot, len(cp.ReminderSlots))
	for k, v := range cp.ReminderSlots {
		out.ReminderSlots[k] = v
	}
	return &out
}

// ReminderView is a reminder slot with the medications due in it. It is
// computed on read and never stored.
type ReminderView struct {
	Time        *string  `json:"time"`
	Medications []string `json:"medications"`
}

func boolPtr(b bool) *bool { return &b }

func strPtr(s string) *string { return &s }
