package scheduling

import (
	"time"

	"github.com/google/uuid"
)

// Appointment statuses. SCHEDULED and DONE count as active for conflict
// purposes; the cancelled states release the slot.
const (
	StatusScheduled               = "SCHEDULED"
	StatusDone                    = "DONE"
	StatusCancelledByPatient      = "CANCELLED_BY_PATIENT"
	StatusCancelledByProfessional = "CANCELLED_BY_PROFESSIONAL"
)

// DefaultSlotMinutes applies to grid rows created without an explicit slot
// duration.
const DefaultSlotMinutes = 30

// WeeklySchedule is one row of a professional's recurring working grid:
// wall-clock hours for a single weekday, anchored on the UTC calendar.
type WeeklySchedule struct {
	ID             uuid.UUID `db:"id" json:"id"`
	ProfessionalID uuid.UUID `db:"professional_id" json:"professional_id"`
	Weekday        int       `db:"weekday" json:"weekday"`
	StartTime      string    `db:"start_time" json:"start_time"`
	EndTime        string    `db:"end_time" json:"end_time"`
	SlotMinutes    int       `db:"slot_minutes" json:"slot_minutes"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// UnavailabilityWindow blocks every slot whose start falls inside
// [StartTime, EndTime), regardless of the weekly grid.
type UnavailabilityWindow struct {
	ID             uuid.UUID `db:"id" json:"id"`
	ProfessionalID uuid.UUID `db:"professional_id" json:"professional_id"`
	StartTime      time.Time `db:"start_time" json:"start_time"`
	EndTime        time.Time `db:"end_time" json:"end_time"`
	Reason         string    `db:"reason" json:"reason"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

type Appointment struct {
	ID                 uuid.UUID `db:"id" json:"id"`
	PatientID          uuid.UUID `db:"patient_id" json:"patient_id"`
	ProfessionalID     uuid.UUID `db:"professional_id" json:"professional_id"`
	StartTime          time.Time `db:"start_time" json:"start_time"`
	EndTime            time.Time `db:"end_time" json:"end_time"`
	Status             string    `db:"status" json:"status"`
	CancellationReason *string   `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

// Active reports whether the appointment still holds its slot.
func (a *Appointment) Active() bool {
	return a.Status == StatusScheduled || a.Status == StatusDone
}

// ClinicalRecord holds the professional's notes for one appointment. At most
// one record exists per appointment; saving again overwrites it.
type ClinicalRecord struct {
	ID            uuid.UUID    `db:"id" json:"id"`
	AppointmentID uuid.UUID    `db:"appointment_id" json:"appointment_id"`
	Notes         string       `db:"notes" json:"notes"`
	Diagnosis     string       `db:"diagnosis" json:"diagnosis"`
	Prescription  string       `db:"prescription" json:"prescription"`
	Attachments   []Attachment `json:"attachments"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time    `db:"updated_at" json:"updated_at"`
}

// Attachment is document metadata only. The storage path is generated when
// the record is saved; no binary content is held.
type Attachment struct {
	ID          uuid.UUID `db:"id" json:"id"`
	RecordID    uuid.UUID `db:"record_id" json:"record_id"`
	Filename    string    `db:"filename" json:"filename"`
	DocType     string    `db:"doc_type" json:"doc_type"`
	StoragePath string    `db:"storage_path" json:"storage_path"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// BookedSlot is the join of an active appointment with its patient's name,
// as shown on the professional's agenda.
type BookedSlot struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	PatientName   string    `json:"patient_name"`
	StartTime     time.Time `json:"start_time"`
}
