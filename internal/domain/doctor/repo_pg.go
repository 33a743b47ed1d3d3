package doctor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/AryanC19/Greeno-BE/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type pgRepo struct{ pool *pgxpool.Pool }

func NewPGRepo(pool *pgxpool.Pool) Repository {
	return &pgRepo{pool: pool}
}

func (r *pgRepo) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const availabilityCols = `id, doctor_id, doctor_name, specialty, available_slots, created_at`

func scanAvailability(row pgx.Row) (*Availability, error) {
	var a Availability
	err := row.Scan(&a.ID, &a.DoctorID, &a.Name, &a.Specialty, &a.AvailableSlots, &a.CreatedAt)
	return &a, err
}

func (r *pgRepo) Create(ctx context.Context, a *Availability) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO doctor_availability (`+availabilityCols+`)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.DoctorID, a.Name, a.Specialty, a.AvailableSlots, a.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert doctor availability: %w", err)
	}
	return nil
}

func (r *pgRepo) GetByDoctorID(ctx context.Context, doctorID string) (*Availability, error) {
	a, err := scanAvailability(r.conn(ctx).QueryRow(ctx,
		`SELECT `+availabilityCols+` FROM doctor_availability WHERE doctor_id = $1`, doctorID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get doctor availability: %w", err)
	}
	return a, nil
}

func (r *pgRepo) collect(rows pgx.Rows) ([]*Availability, error) {
	defer rows.Close()
	var out []*Availability
	for rows.Next() {
		a, err := scanAvailability(rows)
		if err != nil {
			return nil, fmt.Errorf("scan doctor availability: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *pgRepo) List(ctx context.Context, limit, offset int) ([]*Availability, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM doctor_availability`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count doctors: %w", err)
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+availabilityCols+` FROM doctor_availability
		ORDER BY created_at LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list doctors: %w", err)
	}
	items, err := r.collect(rows)
	return items, total, err
}

func (r *pgRepo) FindBySpecialty(ctx context.Context, specialty string) ([]*Availability, error) {
	pattern := "%" + strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(specialty) + "%"
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+availabilityCols+` FROM doctor_availability
		WHERE specialty ILIKE $1 ORDER BY created_at`, pattern)
	if err != nil {
		return nil, fmt.Errorf("find doctors by specialty: %w", err)
	}
	return r.collect(rows)
}
