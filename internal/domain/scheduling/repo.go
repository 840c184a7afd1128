package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type ScheduleRepository interface {
	// Replace deletes the professional's whole grid and inserts the new set.
	// Callers run it inside a transaction.
	Replace(ctx context.Context, professionalID uuid.UUID, rows []*WeeklySchedule) error
	GetForWeekday(ctx context.Context, professionalID uuid.UUID, weekday int) (*WeeklySchedule, error)
	ListForProfessional(ctx context.Context, professionalID uuid.UUID) ([]*WeeklySchedule, error)
}

type UnavailabilityRepository interface {
	CreateBatch(ctx context.Context, windows []*UnavailabilityWindow) error
	// ListOverlapping returns windows intersecting [from, to).
	ListOverlapping(ctx context.Context, professionalID uuid.UUID, from, to time.Time) ([]*UnavailabilityWindow, error)
}

type AppointmentRepository interface {
	// Create inserts a SCHEDULED appointment. A unique-index collision on
	// (professional, start) is translated to Conflict by the implementation.
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	// GetByIDForUpdate locks the row within the enclosing transaction.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Appointment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, reason *string) error
	// ListBookedInRange returns active appointments with the patient name,
	// for agenda annotation.
	ListBookedInRange(ctx context.Context, professionalID uuid.UUID, from, to time.Time) ([]*BookedSlot, error)
	List(ctx context.Context, limit, offset int) ([]*Appointment, int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error)
	ListByProfessional(ctx context.Context, professionalID uuid.UUID, limit, offset int) ([]*Appointment, int, error)
}

type RecordRepository interface {
	GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*ClinicalRecord, error)
	// Upsert creates the record or overwrites its fields in place.
	Upsert(ctx context.Context, r *ClinicalRecord) error
	// ReplaceAttachments drops the record's attachments and inserts the set.
	ReplaceAttachments(ctx context.Context, recordID uuid.UUID, atts []Attachment) error
}
