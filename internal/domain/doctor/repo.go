package doctor

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/AryanC19/Greeno-BE/pkg/pagination"
)

var (
	ErrNotFound      = errors.New("doctor not found")
	ErrAlreadyExists = errors.New("doctor availability already exists")
)

type Repository interface {
	Create(ctx context.Context, a *Availability) error
	GetByDoctorID(ctx context.Context, doctorID string) (*Availability, error)
	List(ctx context.Context, limit, offset int) ([]*Availability, int, error)
	// FindBySpecialty returns doctors whose specialty contains specialty,
	// case-insensitively, oldest entry first.
	FindBySpecialty(ctx context.Context, specialty string) ([]*Availability, error)
}

type memoryRepo struct {
	mu      sync.RWMutex
	doctors []*Availability
}

func NewMemoryRepo() Repository {
	return &memoryRepo{}
}

func clone(a *Availability) *Availability {
	out := *a
	out.AvailableSlots = append(out.AvailableSlots[:0:0], a.AvailableSlots...)
	return &out
}

func (r *memoryRepo) Create(_ context.Context, a *Availability) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.doctors {
		if d.DoctorID == a.DoctorID {
			return ErrAlreadyExists
		}
	}
	r.doctors = append(r.doctors, clone(a))
	return nil
}

func (r *memoryRepo) GetByDoctorID(_ context.Context, doctorID string) (*Availability, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.doctors {
		if d.DoctorID == doctorID {
			return clone(d), nil
		}
	}
	return nil, ErrNotFound
}

func (r *memoryRepo) List(_ context.Context, limit, offset int) ([]*Availability, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total := len(r.doctors)
	start, end := pagination.Params{Limit: limit, Offset: offset}.Window(total)
	out := make([]*Availability, 0, end-start)
	for _, d := range r.doctors[start:end] {
		out = append(out, clone(d))
	}
	return out, total, nil
}

func (r *memoryRepo) FindBySpecialty(_ context.Context, specialty string) ([]*Availability, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	needle := strings.ToLower(specialty)
	var out []*Availability
	for _, d := range r.doctors {
		if d.Specialty != nil && strings.Contains(strings.ToLower(*d.Specialty), needle) {
			out = append(out, clone(d))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
