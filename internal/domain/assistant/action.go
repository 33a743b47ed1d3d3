// Package assistant turns chat messages into care-plan changes: a classifier
// proposes an action, the resolver validates it against the active plan and
// the dispatcher applies it.
package assistant

import "time"

// Action kinds.
const (
	KindMarkMedication    = "mark_medication"
	KindUpdateAppointment = "update_appointment"
	KindNone              = "none"
)

// Reasons attached to a none action.
const (
	ReasonNoJSON               = "no_json"
	ReasonParseError           = "parse_error"
	ReasonNoMatch              = "no_match"
	ReasonMedicationNotFound   = "medication_not_found"
	ReasonInvalidTime          = "invalid_time"
	ReasonInvalidTakenFlag     = "invalid_taken_flag"
	ReasonMedicationMissingID  = "medication_missing_id"
	ReasonAppointmentNotFound  = "appointment_not_found"
	ReasonInvalidStatus        = "invalid_status"
	ReasonAppointmentMissingID = "appointment_missing_id"
)

// Action is a validated instruction. Only the fields of its Kind are set.
type Action struct {
	Kind string `json:"action"`

	MedicationID   string `json:"medication_id,omitempty"`
	MedicationName string `json:"medication_name,omitempty"`
	Time           string `json:"time,omitempty"`
	Taken          bool   `json:"taken"`

	AppointmentID    string     `json:"appointment_id,omitempty"`
	AppointmentLabel string     `json:"appointment_label,omitempty"`
	Status           string     `json:"status,omitempty"`
	ProposedSlot     *time.Time `json:"proposed_slot,omitempty"`

	Reason string `json:"reason,omitempty"`
}

func none(reason string) Action {
	return Action{Kind: KindNone, Reason: reason}
}
