package admission

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, a *Admission) error
	GetByID(ctx context.Context, id uuid.UUID) (*Admission, error)
	// GetByIDForUpdate locks the row within the enclosing transaction.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Admission, error)
	Discharge(ctx context.Context, id uuid.UUID) (*Admission, error)
	List(ctx context.Context, limit, offset int) ([]*Admission, int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Admission, int, error)

	AddRecord(ctx context.Context, r *Record) error
	ListRecords(ctx context.Context, admissionID uuid.UUID) ([]*Record, error)
}
