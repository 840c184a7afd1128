package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidaplus/hms/internal/platform/apperr"
	"github.com/vidaplus/hms/internal/platform/db"
)

// slotTakenMessage is shared by the booking pre-check and the unique-index
// fallback so callers cannot tell which one rejected them.
const slotTakenMessage = "this time slot is not available"

// =========== Weekly Schedule Repository ===========

type scheduleRepoPG struct{ pool *pgxpool.Pool }

func NewScheduleRepoPG(pool *pgxpool.Pool) ScheduleRepository { return &scheduleRepoPG{pool: pool} }

func (r *scheduleRepoPG) conn(ctx context.Context) db.Querier {
	return db.QuerierFromContext(ctx, r.pool)
}

const scheduleCols = `id, professional_id, weekday, start_time, end_time, slot_minutes, created_at`

func scanSchedule(row pgx.Row) (*WeeklySchedule, error) {
	var ws WeeklySchedule
	err := row.Scan(&ws.ID, &ws.ProfessionalID, &ws.Weekday, &ws.StartTime, &ws.EndTime,
		&ws.SlotMinutes, &ws.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("no schedule for this weekday")
		}
		return nil, err
	}
	return &ws, nil
}

func (r *scheduleRepoPG) Replace(ctx context.Context, professionalID uuid.UUID, rows []*WeeklySchedule) error {
	conn := r.conn(ctx)
	if _, err := conn.Exec(ctx,
		`DELETE FROM weekly_schedule WHERE professional_id = $1`, professionalID); err != nil {
		return err
	}
	for _, ws := range rows {
		ws.ID = uuid.New()
		ws.ProfessionalID = professionalID
		if _, err := conn.Exec(ctx, `
			INSERT INTO weekly_schedule (id, professional_id, weekday, start_time, end_time, slot_minutes)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			ws.ID, ws.ProfessionalID, ws.Weekday, ws.StartTime, ws.EndTime, ws.SlotMinutes); err != nil {
			return err
		}
	}
	return nil
}

func (r *scheduleRepoPG) GetForWeekday(ctx context.Context, professionalID uuid.UUID, weekday int) (*WeeklySchedule, error) {
	return scanSchedule(r.conn(ctx).QueryRow(ctx,
		`SELECT `+scheduleCols+` FROM weekly_schedule WHERE professional_id = $1 AND weekday = $2`,
		professionalID, weekday))
}

func (r *scheduleRepoPG) ListForProfessional(ctx context.Context, professionalID uuid.UUID) ([]*WeeklySchedule, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+scheduleCols+` FROM weekly_schedule WHERE professional_id = $1 ORDER BY weekday`,
		professionalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*WeeklySchedule
	for rows.Next() {
		ws, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, ws)
	}
	return items, rows.Err()
}

// =========== Unavailability Repository ===========

type unavailabilityRepoPG struct{ pool *pgxpool.Pool }

func NewUnavailabilityRepoPG(pool *pgxpool.Pool) UnavailabilityRepository {
	return &unavailabilityRepoPG{pool: pool}
}

func (r *unavailabilityRepoPG) conn(ctx context.Context) db.Querier {
	return db.QuerierFromContext(ctx, r.pool)
}

func (r *unavailabilityRepoPG) CreateBatch(ctx context.Context, windows []*UnavailabilityWindow) error {
	conn := r.conn(ctx)
	for _, w := range windows {
		w.ID = uuid.New()
		if _, err := conn.Exec(ctx, `
			INSERT INTO unavailability_window (id, professional_id, start_time, end_time, reason)
			VALUES ($1,$2,$3,$4,$5)`,
			w.ID, w.ProfessionalID, w.StartTime, w.EndTime, w.Reason); err != nil {
			return err
		}
	}
	return nil
}

func (r *unavailabilityRepoPG) ListOverlapping(ctx context.Context, professionalID uuid.UUID, from, to time.Time) ([]*UnavailabilityWindow, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, professional_id, start_time, end_time, reason, created_at
		FROM unavailability_window
		WHERE professional_id = $1 AND start_time < $3 AND end_time > $2
		ORDER BY start_time`,
		professionalID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*UnavailabilityWindow
	for rows.Next() {
		var w UnavailabilityWindow
		if err := rows.Scan(&w.ID, &w.ProfessionalID, &w.StartTime, &w.EndTime, &w.Reason, &w.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &w)
	}
	return items, rows.Err()
}

// =========== Appointment Repository ===========

type appointmentRepoPG struct{ pool *pgxpool.Pool }

func NewAppointmentRepoPG(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepoPG{pool: pool}
}

func (r *appointmentRepoPG) conn(ctx context.Context) db.Querier {
	return db.QuerierFromContext(ctx, r.pool)
}

const appointmentCols = `id, patient_id, professional_id, start_time, end_time, status, cancellation_reason, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.PatientID, &a.ProfessionalID, &a.StartTime, &a.EndTime,
		&a.Status, &a.CancellationReason, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("appointment not found")
		}
		return nil, err
	}
	return &a, nil
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO appointment (id, patient_id, professional_id, start_time, end_time, status)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		a.ID, a.PatientID, a.ProfessionalID, a.StartTime, a.EndTime, a.Status)
	if apperr.IsUniqueViolation(err, "appointment_professional_start_active") {
		return apperr.Wrap(apperr.KindConflict, err, slotTakenMessage)
	}
	return err
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return scanAppointment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+appointmentCols+` FROM appointment WHERE id = $1`, id))
}

func (r *appointmentRepoPG) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return scanAppointment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+appointmentCols+` FROM appointment WHERE id = $1 FOR UPDATE`, id))
}

func (r *appointmentRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string, reason *string) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointment SET status=$2, cancellation_reason=COALESCE($3, cancellation_reason), updated_at=NOW()
		WHERE id = $1`,
		id, status, reason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("appointment not found")
	}
	return nil
}

func (r *appointmentRepoPG) ListBookedInRange(ctx context.Context, professionalID uuid.UUID, from, to time.Time) ([]*BookedSlot, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT a.id, p.name, a.start_time
		FROM appointment a
		JOIN patient p ON p.id = a.patient_id
		WHERE a.professional_id = $1
		  AND a.start_time >= $2 AND a.start_time < $3
		  AND a.status IN ('SCHEDULED','DONE')
		ORDER BY a.start_time`,
		professionalID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*BookedSlot
	for rows.Next() {
		var b BookedSlot
		if err := rows.Scan(&b.AppointmentID, &b.PatientName, &b.StartTime); err != nil {
			return nil, err
		}
		items = append(items, &b)
	}
	return items, rows.Err()
}

func (r *appointmentRepoPG) list(ctx context.Context, where string, arg interface{}, limit, offset int) ([]*Appointment, int, error) {
	countQ := `SELECT COUNT(*) FROM appointment`
	listQ := `SELECT ` + appointmentCols + ` FROM appointment`
	args := []interface{}{}
	if where != "" {
		countQ += ` WHERE ` + where
		listQ += ` WHERE ` + where
		args = append(args, arg)
	}
	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := len(args)
	listQ += fmt.Sprintf(` ORDER BY start_time DESC LIMIT $%d OFFSET $%d`, n+1, n+2)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, listQ, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

func (r *appointmentRepoPG) List(ctx context.Context, limit, offset int) ([]*Appointment, int, error) {
	return r.list(ctx, "", nil, limit, offset)
}

func (r *appointmentRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return r.list(ctx, "patient_id = $1", patientID, limit, offset)
}

func (r *appointmentRepoPG) ListByProfessional(ctx context.Context, professionalID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return r.list(ctx, "professional_id = $1", professionalID, limit, offset)
}

// =========== Clinical Record Repository ===========

type recordRepoPG struct{ pool *pgxpool.Pool }

func NewRecordRepoPG(pool *pgxpool.Pool) RecordRepository { return &recordRepoPG{pool: pool} }

func (r *recordRepoPG) conn(ctx context.Context) db.Querier {
	return db.QuerierFromContext(ctx, r.pool)
}

func (r *recordRepoPG) GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*ClinicalRecord, error) {
	var rec ClinicalRecord
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, appointment_id, notes, diagnosis, prescription, created_at, updated_at
		FROM clinical_record WHERE appointment_id = $1`, appointmentID).
		Scan(&rec.ID, &rec.AppointmentID, &rec.Notes, &rec.Diagnosis, &rec.Prescription,
			&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("clinical record not found")
		}
		return nil, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, record_id, filename, doc_type, storage_path, created_at
		FROM attachment WHERE record_id = $1 ORDER BY filename`, rec.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var a Attachment
		if err := rows.Scan(&a.ID, &a.RecordID, &a.Filename, &a.DocType, &a.StoragePath, &a.CreatedAt); err != nil {
			return nil, err
		}
		rec.Attachments = append(rec.Attachments, a)
	}
	return &rec, rows.Err()
}

func (r *recordRepoPG) Upsert(ctx context.Context, rec *ClinicalRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO clinical_record (id, appointment_id, notes, diagnosis, prescription)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (appointment_id) DO UPDATE
		SET notes = EXCLUDED.notes,
		    diagnosis = EXCLUDED.diagnosis,
		    prescription = EXCLUDED.prescription,
		    updated_at = NOW()
		RETURNING id`,
		rec.ID, rec.AppointmentID, rec.Notes, rec.Diagnosis, rec.Prescription).
		Scan(&rec.ID)
}

func (r *recordRepoPG) ReplaceAttachments(ctx context.Context, recordID uuid.UUID, atts []Attachment) error {
	conn := r.conn(ctx)
	if _, err := conn.Exec(ctx, `DELETE FROM attachment WHERE record_id = $1`, recordID); err != nil {
		return err
	}
	for i := range atts {
		atts[i].ID = uuid.New()
		atts[i].RecordID = recordID
		if _, err := conn.Exec(ctx, `
			INSERT INTO attachment (id, record_id, filename, doc_type, storage_path)
			VALUES ($1,$2,$3,$4,$5)`,
			atts[i].ID, recordID, atts[i].Filename, atts[i].DocType, atts[i].StoragePath); err != nil {
			return err
		}
	}
	return nil
}
