package careplan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/AryanC19/Greeno-BE/internal/domain/doctor"
	"github.com/AryanC19/Greeno-BE/internal/platform/blobstore"
	"github.com/AryanC19/Greeno-BE/internal/platform/notification"
)

var (
	ErrEmptyDocument   = errors.New("uploaded document is empty")
	ErrInvalidStatus   = errors.New("invalid appointment status")
	ErrInvalidSlot     = errors.New("invalid reminder slot")
	ErrInvalidTime     = errors.New("invalid reminder time, expected HH:MM")
	ErrNoAvailableSlot = doctor.ErrNoAvailableSlot
)

// Extractor turns an uploaded document into an unsaved care plan.
type Extractor interface {
	Extract(ctx context.Context, content []byte, patientID string) (*CarePlan, error)
}

// SlotFinder looks up a free doctor slot for a specialty.
type SlotFinder interface {
	FindFreeSlot(ctx context.Context, specialty string, booked []time.Time) (*doctor.Availability, time.Time, error)
}

// TemplateSender delivers a templated notification.
type TemplateSender interface {
	SendFromTemplate(ctx context.Context, templateID string, data map[string]string, recipient string) (*notification.Notification, error)
}

type Option func(*Service)

// WithBlobStore keeps every uploaded document in store.
func WithBlobStore(store blobstore.Store) Option {
	return func(s *Service) { s.blobs = store }
}

// WithSlotFinder enables slot assignment. With auto set, pending
// appointments of a fresh upload get a slot proposed straight away.
func WithSlotFinder(f SlotFinder, auto bool) Option {
	return func(s *Service) {
		s.slots = f
		s.autoAssign = auto
	}
}

func WithNotifier(n TemplateSender) Option {
	return func(s *Service) { s.notifier = n }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

type Service struct {
	repo       Repository
	extractor  Extractor
	blobs      blobstore.Store
	slots      SlotFinder
	notifier   TemplateSender
	autoAssign bool
	logger     zerolog.Logger
}

func NewService(repo Repository, extractor Extractor, opts ...Option) *Service {
	s := &Service{repo: repo, extractor: extractor, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Upload extracts a care plan from content and stores it as the patient's
// active plan. The source document is stored alongside when a blob store is
// configured.
func (s *Service) Upload(ctx context.Context, patientID, fileName, contentType string, content []byte) (*CarePlan, error) {
	if len(content) == 0 {
		return nil, ErrEmptyDocument
	}

	var (
		cp   *CarePlan
		meta *blobstore.Metadata
	)
	g, gctx := errgroup.WithContext(ctx)
	if s.blobs != nil {
		g.Go(func() error {
			m, err := s.blobs.Put(gctx, blobstore.Metadata{
				FileName:    fileName,
				ContentType: contentType,
				PatientID:   patientID,
			}, content)
			if err != nil {
				return fmt.Errorf("store document: %w", err)
			}
			meta = m
			return nil
		})
	}
	g.Go(func() error {
		plan, err := s.extractor.Extract(gctx, content, patientID)
		if err != nil {
			return fmt.Errorf("extract care plan: %w", err)
		}
		cp = plan
		return nil
	})
	if err := g.Wait(); err != nil {
		if meta != nil {
			_ = s.blobs.Delete(context.WithoutCancel(ctx), meta.ID)
		}
		return nil, err
	}

	if meta != nil {
		cp.SourceDocumentID = &meta.ID
	}
	cp.Normalize()
	if err := s.repo.Create(ctx, cp); err != nil {
		return nil, fmt.Errorf("save care plan: %w", err)
	}

	s.logger.Info().
		Str("care_plan_id", cp.ID).
		Str("patient_id", patientID).
		Int("medications", len(cp.Medications)).
		Int("appointments", len(cp.Appointments)).
		Msg("care plan uploaded")

	if s.autoAssign && s.slots != nil {
		s.assignPending(ctx, cp)
		return s.repo.GetByID(ctx, cp.ID)
	}
	return cp, nil
}

// assignPending proposes slots for every pending appointment of cp. Failures
// are logged and leave the appointment without a slot.
func (s *Service) assignPending(ctx context.Context, cp *CarePlan) {
	for _, a := range cp.Appointments {
		if a.Status != StatusPending || a.ProposedSlot != nil {
			continue
		}
		if _, err := s.assign(ctx, cp, &a); err != nil {
			s.logger.Debug().Err(err).
				Str("appointment_id", a.ID).
				Msg("no slot proposed on upload")
		}
	}
}

// Active returns the patient's most recent care plan.
func (s *Service) Active(ctx context.Context, patientID string) (*CarePlan, error) {
	return s.repo.GetActiveByPatient(ctx, patientID)
}

// MarkMedication sets the taken flag of one schedule entry and returns the
// updated plan.
func (s *Service) MarkMedication(ctx context.Context, patientID, medicationID, timeLabel string, taken bool) (*CarePlan, error) {
	cp, err := s.repo.GetActiveByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateScheduleEntry(ctx, cp.ID, medicationID, timeLabel, taken); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, cp.ID)
}

func validStatus(status string) bool {
	switch status {
	case StatusPending, StatusConfirmed, StatusDeclined:
		return true
	}
	return false
}

// SetAppointmentStatus moves an appointment to status. Setting the status an
// appointment already has succeeds. A non-nil slot replaces the proposed slot.
func (s *Service) SetAppointmentStatus(ctx context.Context, patientID, appointmentID, status string, slot *time.Time) (*CarePlan, error) {
	if !validStatus(status) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	cp, err := s.repo.GetActiveByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateAppointmentStatus(ctx, cp.ID, appointmentID, status, slot); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, cp.ID)
}

// SlotProposal is the result of assigning a doctor slot to an appointment.
type SlotProposal struct {
	AppointmentID string    `json:"appointment_id"`
	DoctorID      string    `json:"doctor_id"`
	DoctorName    string    `json:"doctor_name"`
	Slot          time.Time `json:"proposed_slot"`
}

// Specialty is the first word of an appointment type, used to match doctors.
func Specialty(appointmentType string) string {
	fields := strings.Fields(appointmentType)
	if len(fields) == 0 {
		return ""
	}
	return strings.Trim(fields[0], ".,:;-")
}

// AssignSlot proposes the first free slot of a doctor whose specialty matches
// the appointment. Slots already proposed to other appointments are skipped.
func (s *Service) AssignSlot(ctx context.Context, patientID, appointmentID string) (*SlotProposal, error) {
	if s.slots == nil {
		return nil, ErrNoAvailableSlot
	}
	cp, err := s.repo.GetActiveByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	appt := cp.Appointment(appointmentID)
	if appt == nil {
		return nil, ErrNotFound
	}
	return s.assign(ctx, cp, appt)
}

func (s *Service) assign(ctx context.Context, cp *CarePlan, appt *Appointment) (*SlotProposal, error) {
	booked, err := s.repo.ProposedSlots(ctx)
	if err != nil {
		return nil, fmt.Errorf("load proposed slots: %w", err)
	}
	if appt.ProposedSlot != nil {
		booked = withoutSlot(booked, *appt.ProposedSlot)
	}

	doc, slot, err := s.slots.FindFreeSlot(ctx, Specialty(appt.Type), booked)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetProposedSlot(ctx, cp.ID, appt.ID, slot); err != nil {
		return nil, err
	}

	p := &SlotProposal{AppointmentID: appt.ID, DoctorID: doc.DoctorID, DoctorName: doc.Name, Slot: slot}
	s.logger.Info().
		Str("appointment_id", appt.ID).
		Str("doctor_id", doc.DoctorID).
		Time("slot", slot).
		Msg("slot proposed")

	if s.notifier != nil {
		_, err := s.notifier.SendFromTemplate(ctx, notification.TemplateSlotProposed, map[string]string{
			"appointment": appt.Label(),
			"doctor":      doc.Name,
			"slot":        slot.Format(time.RFC1123),
		}, cp.PatientID)
		if err != nil {
			s.logger.Warn().Err(err).Str("appointment_id", appt.ID).Msg("slot notification failed")
		}
	}
	return p, nil
}

// withoutSlot removes one occurrence of slot from booked.
func withoutSlot(booked []time.Time, slot time.Time) []time.Time {
	out := make([]time.Time, 0, len(booked))
	removed := false
	for _, b := range booked {
		if !removed && b.Equal(slot) {
			removed = true
			continue
		}
		out = append(out, b)
	}
	return out
}

// Appointments lists the active plan's appointments with the given status.
// A patient without a plan has none.
func (s *Service) Appointments(ctx context.Context, patientID, status string) ([]Appointment, error) {
	if !validStatus(status) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	out := []Appointment{}
	cp, err := s.repo.GetActiveByPatient(ctx, patientID)
	if errors.Is(err, ErrNotFound) {
		return out, nil
	}
	if err != nil {
		return nil, err
	}
	for _, a := range cp.Appointments {
		if a.Status == status {
			out = append(out, a)
		}
	}
	return out, nil
}

// Reminders returns the four reminder slots, each with the names of the
// medications scheduled in it. A patient without a plan gets empty slots.
func (s *Service) Reminders(ctx context.Context, patientID string) (map[string]ReminderView, error) {
	cp, err := s.repo.GetActiveByPatient(ctx, patientID)
	if errors.Is(err, ErrNotFound) {
		cp = &CarePlan{}
		cp.Normalize()
	} else if err != nil {
		return nil, err
	}
	return BuildReminders(cp), nil
}

// BuildReminders computes the reminder view of cp. It is never persisted.
func BuildReminders(cp *CarePlan) map[string]ReminderView {
	views := make(map[string]ReminderView, len(ReminderLabels))
	for _, label := range ReminderLabels {
		views[label] = ReminderView{Time: cp.ReminderSlots[label].Time, Medications: []string{}}
	}
	for _, m := range cp.Medications {
		for _, e := range m.Schedule {
			v, ok := views[e.Time]
			if !ok || contains(v.Medications, m.Name) {
				continue
			}
			v.Medications = append(v.Medications, m.Name)
			views[e.Time] = v
		}
	}
	return views
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// ParseClock validates an HH:MM time and returns it zero-padded.
func ParseClock(hhmm string) (string, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(hhmm))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidTime, hhmm)
	}
	return t.Format("15:04"), nil
}

// UpdateReminderTime sets the time of one reminder slot on the active plan.
func (s *Service) UpdateReminderTime(ctx context.Context, patientID, slot, hhmm string) (string, error) {
	if !IsTimeOfDay(slot) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSlot, slot)
	}
	clock, err := ParseClock(hhmm)
	if err != nil {
		return "", err
	}
	cp, err := s.repo.GetActiveByPatient(ctx, patientID)
	if err != nil {
		return "", err
	}
	if err := s.repo.UpdateReminderTime(ctx, cp.ID, slot, clock); err != nil {
		return "", err
	}
	return clock, nil
}
