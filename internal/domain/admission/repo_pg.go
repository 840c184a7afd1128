package admission

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidaplus/hms/internal/platform/apperr"
	"github.com/vidaplus/hms/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.QuerierFromContext(ctx, r.pool)
}

const admissionCols = `id, patient_id, bed_id, professional_id, admitted_at, expected_discharge, discharged_at, status, created_at, updated_at`

func scanAdmission(row pgx.Row) (*Admission, error) {
	var a Admission
	err := row.Scan(&a.ID, &a.PatientID, &a.BedID, &a.ProfessionalID, &a.AdmittedAt,
		&a.ExpectedDischarge, &a.DischargedAt, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("admission not found")
		}
		return nil, err
	}
	return &a, nil
}

func (r *repoPG) Create(ctx context.Context, a *Admission) error {
	a.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO admission (id, patient_id, bed_id, professional_id, admitted_at, expected_discharge, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		a.ID, a.PatientID, a.BedID, a.ProfessionalID, a.AdmittedAt, a.ExpectedDischarge, a.Status)
	if apperr.IsUniqueViolation(err, "admission_bed_active") {
		return apperr.Wrap(apperr.KindConflict, err, "bed is not free")
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Admission, error) {
	return scanAdmission(r.conn(ctx).QueryRow(ctx,
		`SELECT `+admissionCols+` FROM admission WHERE id = $1`, id))
}

func (r *repoPG) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Admission, error) {
	return scanAdmission(r.conn(ctx).QueryRow(ctx,
		`SELECT `+admissionCols+` FROM admission WHERE id = $1 FOR UPDATE`, id))
}

func (r *repoPG) Discharge(ctx context.Context, id uuid.UUID) (*Admission, error) {
	return scanAdmission(r.conn(ctx).QueryRow(ctx, `
		UPDATE admission SET status='DISCHARGED', discharged_at=NOW(), updated_at=NOW()
		WHERE id = $1
		RETURNING `+admissionCols, id))
}

func (r *repoPG) list(ctx context.Context, where string, arg interface{}, limit, offset int) ([]*Admission, int, error) {
	countQ := `SELECT COUNT(*) FROM admission`
	listQ := `SELECT ` + admissionCols + ` FROM admission`
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
	listQ += fmt.Sprintf(` ORDER BY admitted_at DESC LIMIT $%d OFFSET $%d`, n+1, n+2)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, listQ, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Admission
	for rows.Next() {
		a, err := scanAdmission(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Admission, int, error) {
	return r.list(ctx, "", nil, limit, offset)
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Admission, int, error) {
	return r.list(ctx, "patient_id = $1", patientID, limit, offset)
}

func (r *repoPG) AddRecord(ctx context.Context, rec *Record) error {
	rec.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO admission_record (id, admission_id, notes, author_id)
		VALUES ($1,$2,$3,$4)`,
		rec.ID, rec.AdmissionID, rec.Notes, rec.AuthorID)
	return err
}

func (r *repoPG) ListRecords(ctx context.Context, admissionID uuid.UUID) ([]*Record, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, admission_id, notes, author_id, created_at
		FROM admission_record WHERE admission_id = $1 ORDER BY created_at`, admissionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.AdmissionID, &rec.Notes, &rec.AuthorID, &rec.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &rec)
	}
	return items, rows.Err()
}
