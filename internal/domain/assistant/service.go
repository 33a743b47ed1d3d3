package assistant

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/AryanC19/Greeno-BE/internal/domain/careplan"
)

// ErrEmptyQuestion is returned for a blank chat message.
var ErrEmptyQuestion = errors.New("question is required")

// Answerer produces a free-form reply when no action applies.
type Answerer interface {
	Answer(ctx context.Context, plan *careplan.CarePlan, question string) (string, error)
}

// PlanSource loads a patient's active plan.
type PlanSource interface {
	Active(ctx context.Context, patientID string) (*careplan.CarePlan, error)
}

type Service struct {
	plans      PlanSource
	resolver   *Resolver
	dispatcher *Dispatcher
	answerer   Answerer
	logger     zerolog.Logger
}

func NewService(plans PlanSource, resolver *Resolver, dispatcher *Dispatcher, answerer Answerer, logger zerolog.Logger) *Service {
	return &Service{
		plans:      plans,
		resolver:   resolver,
		dispatcher: dispatcher,
		answerer:   answerer,
		logger:     logger,
	}
}

// Chat resolves question against the patient's active plan, applies the
// resulting action if any and returns the reply text.
func (s *Service) Chat(ctx context.Context, patientID, question string) (string, error) {
	if question == "" {
		return "", ErrEmptyQuestion
	}

	plan, err := s.plans.Active(ctx, patientID)
	if errors.Is(err, careplan.ErrNotFound) {
		plan = nil
	} else if err != nil {
		return "", fmt.Errorf("load care plan: %w", err)
	}

	action := s.resolver.Resolve(ctx, question, plan)
	switch action.Kind {
	case KindMarkMedication:
		res := s.dispatcher.Dispatch(ctx, patientID, action)
		if !res.Success {
			return "Tried to update medication but failed. (status=" + res.detail() + ")", nil
		}
		state := "not taken"
		if action.Taken {
			state = "taken"
		}
		return fmt.Sprintf("Marked %s as %s for %s.", action.MedicationName, state, action.Time), nil

	case KindUpdateAppointment:
		res := s.dispatcher.Dispatch(ctx, patientID, action)
		if !res.Success {
			return "Tried to update appointment but failed. (status=" + res.detail() + ")", nil
		}
		return fmt.Sprintf("Appointment '%s' %s.", action.AppointmentLabel, action.Status), nil
	}

	answer, err := s.answerer.Answer(ctx, plan, question)
	if err != nil {
		return "", fmt.Errorf("answer question: %w", err)
	}
	return answer, nil
}

func (r DispatchResult) detail() string {
	if r.StatusCode != 0 {
		return fmt.Sprint(r.StatusCode)
	}
	return r.Error
}
