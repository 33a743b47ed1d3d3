package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/AryanC19/Greeno-BE/internal/domain/careplan"
)

// Classifier maps a prompt to the model's raw reply.
type Classifier interface {
	Classify(ctx context.Context, system, user string) (string, error)
}

const systemPrompt = `You are an intent-to-JSON parser for a healthcare care plan assistant. ` +
	`You MUST output ONLY valid JSON (no code fences, no explanation). Supported intents:
1) Mark a medication as taken/not taken. Output: {"action":"mark_medication","medication_name":"<exact name from list>","time":"<morning|afternoon|evening|night>","taken":true|false}
2) Confirm or decline an appointment. Output: {"action":"update_appointment","appointment_label":"<exact label from list>","status":"confirmed|declined"}
Medication times allowed: morning, afternoon, evening, night (ONLY these).
Rules:
- For appointments: interpret verbs like 'confirm', 'accept' => confirmed; 'decline', 'cancel', 'reject' => declined.
- Use only labels from the provided lists; if nothing matches, return {"action":"none"}.
- Do NOT invent names.
- Output exactly one JSON object.`

// Resolver turns free text into a validated Action for one care plan.
type Resolver struct {
	classifier Classifier
	logger     zerolog.Logger
}

func NewResolver(classifier Classifier, logger zerolog.Logger) *Resolver {
	return &Resolver{classifier: classifier, logger: logger}
}

type index struct {
	medications  map[string]*careplan.Medication
	appointments map[string]*careplan.Appointment
}

func key(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func buildIndex(cp *careplan.CarePlan) index {
	idx := index{
		medications:  make(map[string]*careplan.Medication),
		appointments: make(map[string]*careplan.Appointment),
	}
	if cp == nil {
		return idx
	}
	for i := range cp.Medications {
		m := &cp.Medications[i]
		if k := key(m.Name); k != "" {
			if _, dup := idx.medications[k]; !dup {
				idx.medications[k] = m
			}
		}
	}
	for i := range cp.Appointments {
		a := &cp.Appointments[i]
		if k := key(a.Label()); k != "" {
			if _, dup := idx.appointments[k]; !dup {
				idx.appointments[k] = a
			}
		}
	}
	return idx
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func userPrompt(idx index, text string) string {
	meds, _ := json.Marshal(sortedKeys(idx.medications))
	appts, _ := json.Marshal(sortedKeys(idx.appointments))
	return fmt.Sprintf("Medication names: %s\nAppointment labels: %s\nUser query: %s\nReturn JSON now.", meds, appts, text)
}

// classifierReply is the shape the classifier is asked to produce. Taken is
// kept raw so a non-boolean value can be told apart from false.
type classifierReply struct {
	Action           string          `json:"action"`
	MedicationName   string          `json:"medication_name"`
	Time             string          `json:"time"`
	Taken            json.RawMessage `json:"taken"`
	AppointmentLabel string          `json:"appointment_label"`
	Status           string          `json:"status"`
}

// outermostObject returns the text between the first '{' and the last '}'.
func outermostObject(raw string) (string, bool) {
	first := strings.Index(raw, "{")
	last := strings.LastIndex(raw, "}")
	if first == -1 || last == -1 || last < first {
		return "", false
	}
	return raw[first : last+1], true
}

// Resolve never fails: every problem is reported as a none action with a
// reason.
func (r *Resolver) Resolve(ctx context.Context, text string, cp *careplan.CarePlan) (action Action) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error().Interface("panic", rec).Msg("classifier panicked")
			action = none(ReasonParseError)
		}
	}()

	idx := buildIndex(cp)
	raw, err := r.classifier.Classify(ctx, systemPrompt, userPrompt(idx, text))
	if err != nil {
		r.logger.Warn().Err(err).Msg("classifier call failed")
		return none(ReasonParseError)
	}

	obj, ok := outermostObject(raw)
	if !ok {
		r.logger.Debug().Str("reply", raw).Msg("no JSON object in classifier reply")
		return none(ReasonNoJSON)
	}
	var reply classifierReply
	if err := json.Unmarshal([]byte(obj), &reply); err != nil {
		r.logger.Debug().Err(err).Str("reply", raw).Msg("malformed classifier reply")
		return none(ReasonParseError)
	}

	switch key(reply.Action) {
	case KindMarkMedication:
		action = resolveMedication(idx, reply)
	case KindUpdateAppointment:
		action = resolveAppointment(idx, reply)
	default:
		action = none(ReasonNoMatch)
	}
	r.logger.Debug().Str("action", action.Kind).Str("reason", action.Reason).Msg("instruction resolved")
	return action
}

func resolveMedication(idx index, reply classifierReply) Action {
	med, ok := idx.medications[key(reply.MedicationName)]
	if !ok {
		a := none(ReasonMedicationNotFound)
		a.MedicationName = key(reply.MedicationName)
		return a
	}
	timeLabel := key(reply.Time)
	if !careplan.IsTimeOfDay(timeLabel) {
		a := none(ReasonInvalidTime)
		a.Time = timeLabel
		return a
	}
	var flag interface{}
	if err := json.Unmarshal(reply.Taken, &flag); err != nil {
		return none(ReasonInvalidTakenFlag)
	}
	taken, ok := flag.(bool)
	if !ok {
		return none(ReasonInvalidTakenFlag)
	}
	if med.ID == "" {
		return none(ReasonMedicationMissingID)
	}
	return Action{
		Kind:           KindMarkMedication,
		MedicationID:   med.ID,
		MedicationName: med.Name,
		Time:           timeLabel,
		Taken:          taken,
	}
}

func resolveAppointment(idx index, reply classifierReply) Action {
	appt, ok := idx.appointments[key(reply.AppointmentLabel)]
	if !ok {
		a := none(ReasonAppointmentNotFound)
		a.AppointmentLabel = key(reply.AppointmentLabel)
		return a
	}
	status := key(reply.Status)
	if status != careplan.StatusConfirmed && status != careplan.StatusDeclined {
		a := none(ReasonInvalidStatus)
		a.Status = status
		return a
	}
	if appt.ID == "" {
		return none(ReasonAppointmentMissingID)
	}
	return Action{
		Kind:             KindUpdateAppointment,
		AppointmentID:    appt.ID,
		AppointmentLabel: appt.Label(),
		Status:           status,
	}
}
