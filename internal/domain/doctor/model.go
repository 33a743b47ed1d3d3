package doctor

import (
	"time"
)

// Availability lists the open appointment slots of one doctor.
type Availability struct {
	ID             string      `json:"id" bson:"_id"`
	DoctorID       string      `json:"doctor_id" bson:"doctor_id"`
	Name           string      `json:"doctor_name" bson:"doctor_name"`
	Specialty      *string     `json:"specialty" bson:"specialty"`
	AvailableSlots []time.Time `json:"available_slots" bson:"available_slots"`
	CreatedAt      time.Time   `json:"created_at" bson:"created_at"`
}

// FirstFreeSlot returns the earliest listed slot not present in booked.
func (a *Availability) FirstFreeSlot(booked []time.Time) (time.Time, bool) {
	for _, slot := range a.AvailableSlots {
		free := true
		for _, b := range booked {
			if slot.Equal(b) {
				free = false
				break
			}
		}
		if free {
			return slot, true
		}
	}
	return time.Time{}, false
}
