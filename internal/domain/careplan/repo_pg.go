package careplan

import (
	"context"
	"errors"
	"fmt"
	"time"

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

// NewPGRepo returns a Repository backed by the normalized care_plan tables.
func NewPGRepo(pool *pgxpool.Pool) Repository {
	return &pgRepo{pool: pool}
}

func (r *pgRepo) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *pgRepo) Create(ctx context.Context, cp *CarePlan) error {
	return db.RunInTx(ctx, r.pool, func(ctx context.Context) error {
		q := r.conn(ctx)
		if _, err := q.Exec(ctx, `
			INSERT INTO care_plans (id, patient_id, medical_history, source_document_id, created_at)
			VALUES ($1, $2, $3, $4, $5)`,
			cp.ID, cp.PatientID, cp.MedicalHistory, cp.SourceDocumentID, cp.CreatedAt); err != nil {
			return fmt.Errorf("insert care plan: %w", err)
		}

		for i, m := range cp.Medications {
			if _, err := q.Exec(ctx, `
				INSERT INTO care_plan_medications (id, care_plan_id, position, name, dose, duration)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				m.ID, cp.ID, i, m.Name, m.Dose, m.Duration); err != nil {
				return fmt.Errorf("insert medication %s: %w", m.Name, err)
			}
			for j, e := range m.Schedule {
				if _, err := q.Exec(ctx, `
					INSERT INTO medication_schedule_entries (medication_id, position, time_label, taken)
					VALUES ($1, $2, $3, $4)`,
					m.ID, j, e.Time, e.Taken); err != nil {
					return fmt.Errorf("insert schedule entry %s/%s: %w", m.Name, e.Time, err)
				}
			}
		}

		for i, a := range cp.Appointments {
			if _, err := q.Exec(ctx, `
				INSERT INTO care_plan_appointments (id, care_plan_id, position, type, status, proposed_slot)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				a.ID, cp.ID, i, a.Type, a.Status, a.ProposedSlot); err != nil {
				return fmt.Errorf("insert appointment: %w", err)
			}
		}

		for _, label := range ReminderLabels {
			if _, err := q.Exec(ctx, `
				INSERT INTO care_plan_reminder_slots (care_plan_id, label, time)
				VALUES ($1, $2, $3)`,
				cp.ID, label, cp.ReminderSlots[label].Time); err != nil {
				return fmt.Errorf("insert reminder slot %s: %w", label, err)
			}
		}
		return nil
	})
}

func (r *pgRepo) GetByID(ctx context.Context, id string) (*CarePlan, error) {
	q := r.conn(ctx)

	cp := &CarePlan{}
	err := q.QueryRow(ctx, `
		SELECT id, patient_id, medical_history, source_document_id, created_at
		FROM care_plans WHERE id = $1`, id).
		Scan(&cp.ID, &cp.PatientID, &cp.MedicalHistory, &cp.SourceDocumentID, &cp.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get care plan: %w", err)
	}

	if err := r.loadMedications(ctx, q, cp); err != nil {
		return nil, err
	}
	if err := r.loadAppointments(ctx, q, cp); err != nil {
		return nil, err
	}
	if err := r.loadReminderSlots(ctx, q, cp); err != nil {
		return nil, err
	}
	cp.Normalize()
	return cp, nil
}

func (r *pgRepo) loadMedications(ctx context.Context, q queryable, cp *CarePlan) error {
	rows, err := q.Query(ctx, `
		SELECT m.id, m.name, m.dose, m.duration, e.time_label, e.taken
		FROM care_plan_medications m
		LEFT JOIN medication_schedule_entries e ON e.medication_id = m.id
		WHERE m.care_plan_id = $1
		ORDER BY m.position, e.position`, cp.ID)
	if err != nil {
		return fmt.Errorf("list medications: %w", err)
	}
	defer rows.Close()

	cp.Medications = []Medication{}
	for rows.Next() {
		var (
			m         Medication
			timeLabel *string
			taken     *bool
		)
		if err := rows.Scan(&m.ID, &m.Name, &m.Dose, &m.Duration, &timeLabel, &taken); err != nil {
			return fmt.Errorf("scan medication: %w", err)
		}
		n := len(cp.Medications)
		if n == 0 || cp.Medications[n-1].ID != m.ID {
			cp.Medications = append(cp.Medications, m)
			n++
		}
		if timeLabel != nil {
			cp.Medications[n-1].Schedule = append(cp.Medications[n-1].Schedule, ScheduleEntry{Time: *timeLabel, Taken: taken})
		}
	}
	return rows.Err()
}

func (r *pgRepo) loadAppointments(ctx context.Context, q queryable, cp *CarePlan) error {
	rows, err := q.Query(ctx, `
		SELECT id, type, status, proposed_slot
		FROM care_plan_appointments WHERE care_plan_id = $1
		ORDER BY position`, cp.ID)
	if err != nil {
		return fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	cp.Appointments = []Appointment{}
	for rows.Next() {
		var a Appointment
		if err := rows.Scan(&a.ID, &a.Type, &a.Status, &a.ProposedSlot); err != nil {
			return fmt.Errorf("scan appointment: %w", err)
		}
		cp.Appointments = append(cp.Appointments, a)
	}
	return rows.Err()
}

func (r *pgRepo) loadReminderSlots(ctx context.Context, q queryable, cp *CarePlan) error {
	rows, err := q.Query(ctx, `SELECT label, time FROM care_plan_reminder_slots WHERE care_plan_id = $1`, cp.ID)
	if err != nil {
		return fmt.Errorf("list reminder slots: %w", err)
	}
	defer rows.Close()

	cp.ReminderSlots = DefaultReminderSlots()
	for rows.Next() {
		var label string
		var slot ReminderSlot
		if err := rows.Scan(&label, &slot.Time); err != nil {
			return fmt.Errorf("scan reminder slot: %w", err)
		}
		cp.ReminderSlots[label] = slot
	}
	return rows.Err()
}

func (r *pgRepo) GetActiveByPatient(ctx context.Context, patientID string) (*CarePlan, error) {
	var id string
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id FROM care_plans WHERE patient_id = $1
		ORDER BY created_at DESC LIMIT 1`, patientID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find active care plan: %w", err)
	}
	return r.GetByID(ctx, id)
}

func affected(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgRepo) UpdateScheduleEntry(ctx context.Context, carePlanID, medicationID, timeLabel string, taken bool) error {
	return affected(r.conn(ctx).Exec(ctx, `
		UPDATE medication_schedule_entries e SET taken = $4
		FROM care_plan_medications m
		WHERE e.medication_id = m.id
		  AND m.care_plan_id = $1 AND m.id = $2 AND e.time_label = $3`,
		carePlanID, medicationID, timeLabel, taken))
}

func (r *pgRepo) UpdateAppointmentStatus(ctx context.Context, carePlanID, appointmentID, status string, slot *time.Time) error {
	return affected(r.conn(ctx).Exec(ctx, `
		UPDATE care_plan_appointments
		SET status = $3, proposed_slot = COALESCE($4, proposed_slot)
		WHERE care_plan_id = $1 AND id = $2`,
		carePlanID, appointmentID, status, slot))
}

func (r *pgRepo) SetProposedSlot(ctx context.Context, carePlanID, appointmentID string, slot time.Time) error {
	return affected(r.conn(ctx).Exec(ctx, `
		UPDATE care_plan_appointments SET proposed_slot = $3
		WHERE care_plan_id = $1 AND id = $2`,
		carePlanID, appointmentID, slot))
}

func (r *pgRepo) UpdateReminderTime(ctx context.Context, carePlanID, label, hhmm string) error {
	return affected(r.conn(ctx).Exec(ctx, `
		UPDATE care_plan_reminder_slots SET time = $3
		WHERE care_plan_id = $1 AND label = $2`,
		carePlanID, label, hhmm))
}

func (r *pgRepo) ProposedSlots(ctx context.Context) ([]time.Time, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT proposed_slot FROM care_plan_appointments WHERE proposed_slot IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("list proposed slots: %w", err)
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan proposed slot: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
