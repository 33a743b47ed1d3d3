package assistant

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/AryanC19/Greeno-BE/internal/domain/careplan"
)

const errUnsupportedAction = "unsupported_action"

// CarePlanUpdater applies the mutations an Action can request.
type CarePlanUpdater interface {
	MarkMedication(ctx context.Context, patientID, medicationID, timeLabel string, taken bool) (*careplan.CarePlan, error)
	SetAppointmentStatus(ctx context.Context, patientID, appointmentID, status string, slot *time.Time) (*careplan.CarePlan, error)
}

// DispatchResult reports the outcome of one dispatched action.
type DispatchResult struct {
	Success    bool   `json:"success"`
	StatusCode int    `json:"status_code,omitempty"`
	Error      string `json:"error,omitempty"`
}

type Dispatcher struct {
	plans  CarePlanUpdater
	logger zerolog.Logger
}

func NewDispatcher(plans CarePlanUpdater, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{plans: plans, logger: logger}
}

// Dispatch applies exactly one mutation for a. Unsupported kinds fail without
// touching the plan.
func (d *Dispatcher) Dispatch(ctx context.Context, patientID string, a Action) DispatchResult {
	var err error
	switch a.Kind {
	case KindMarkMedication:
		_, err = d.plans.MarkMedication(ctx, patientID, a.MedicationID, a.Time, a.Taken)
	case KindUpdateAppointment:
		_, err = d.plans.SetAppointmentStatus(ctx, patientID, a.AppointmentID, a.Status, a.ProposedSlot)
	default:
		return DispatchResult{Error: errUnsupportedAction}
	}

	if err != nil {
		code := statusFor(err)
		d.logger.Warn().Err(err).
			Str("action", a.Kind).
			Int("status_code", code).
			Msg("dispatch failed")
		return DispatchResult{StatusCode: code, Error: err.Error()}
	}
	return DispatchResult{Success: true, StatusCode: http.StatusOK}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, careplan.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, careplan.ErrInvalidStatus):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
