package doctor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNoAvailableSlot means no doctor of the requested specialty has a free slot.
	ErrNoAvailableSlot = errors.New("no available slot")
	ErrInvalid         = errors.New("invalid doctor availability")
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create validates and stores a doctor's availability. Slots are kept in
// chronological order without duplicates.
func (s *Service) Create(ctx context.Context, a *Availability) error {
	a.DoctorID = strings.TrimSpace(a.DoctorID)
	a.Name = strings.TrimSpace(a.Name)
	if a.DoctorID == "" {
		return fmt.Errorf("%w: doctor_id is required", ErrInvalid)
	}
	if a.Name == "" {
		return fmt.Errorf("%w: doctor_name is required", ErrInvalid)
	}
	if a.Specialty != nil {
		spec := strings.TrimSpace(*a.Specialty)
		if spec == "" {
			a.Specialty = nil
		} else {
			a.Specialty = &spec
		}
	}

	slots := make([]time.Time, 0, len(a.AvailableSlots))
	for _, t := range a.AvailableSlots {
		slots = append(slots, t.UTC())
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].Before(slots[j]) })
	deduped := slots[:0]
	for i, t := range slots {
		if i == 0 || !t.Equal(slots[i-1]) {
			deduped = append(deduped, t)
		}
	}
	a.AvailableSlots = deduped

	a.ID = uuid.NewString()
	a.CreatedAt = time.Now().UTC()
	return s.repo.Create(ctx, a)
}

func (s *Service) Get(ctx context.Context, doctorID string) (*Availability, error) {
	return s.repo.GetByDoctorID(ctx, doctorID)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Availability, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// FindFreeSlot walks doctors matching specialty in registration order and
// returns the first slot absent from booked.
func (s *Service) FindFreeSlot(ctx context.Context, specialty string, booked []time.Time) (*Availability, time.Time, error) {
	specialty = strings.TrimSpace(specialty)
	if specialty == "" {
		return nil, time.Time{}, ErrNoAvailableSlot
	}
	doctors, err := s.repo.FindBySpecialty(ctx, specialty)
	if err != nil {
		return nil, time.Time{}, err
	}
	for _, d := range doctors {
		if slot, ok := d.FirstFreeSlot(booked); ok {
			return d, slot, nil
		}
	}
	return nil, time.Time{}, ErrNoAvailableSlot
}
