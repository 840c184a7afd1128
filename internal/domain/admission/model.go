package admission

import (
	"time"

	"github.com/google/uuid"
)

// Admission statuses.
const (
	StatusActive     = "ACTIVE"
	StatusDischarged = "DISCHARGED"
)

// Admission records a patient occupying a bed under a responsible
// professional. Exactly one ACTIVE admission exists per occupied bed.
type Admission struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	PatientID         uuid.UUID  `db:"patient_id" json:"patient_id"`
	BedID             uuid.UUID  `db:"bed_id" json:"bed_id"`
	ProfessionalID    uuid.UUID  `db:"professional_id" json:"professional_id"`
	AdmittedAt        time.Time  `db:"admitted_at" json:"admitted_at"`
	ExpectedDischarge *time.Time `db:"expected_discharge" json:"expected_discharge,omitempty"`
	DischargedAt      *time.Time `db:"discharged_at" json:"discharged_at,omitempty"`
	Status            string     `db:"status" json:"status"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// Record is a free-text clinical note attached to an admission. Distinct
// from the appointment clinical record.
type Record struct {
	ID          uuid.UUID `db:"id" json:"id"`
	AdmissionID uuid.UUID `db:"admission_id" json:"admission_id"`
	Notes       string    `db:"notes" json:"notes"`
	AuthorID    uuid.UUID `db:"author_id" json:"author_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
