package admission

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vidaplus/hms/internal/domain/identity"
	"github.com/vidaplus/hms/internal/domain/ward"
	"github.com/vidaplus/hms/internal/platform/apperr"
)

// TxRunner runs fn inside a database transaction. Satisfied by db.TxManager.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// BedStore and RoomStore are the slices of the ward repositories the
// coordinator needs; the ward package's implementations satisfy them.
type BedStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*ward.Bed, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*ward.Bed, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}

type RoomStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*ward.Room, error)
}

type PatientDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*identity.Patient, error)
}

type ProfessionalDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*identity.Professional, error)
}

type Service struct {
	admissions    Repository
	beds          BedStore
	rooms         RoomStore
	patients      PatientDirectory
	professionals ProfessionalDirectory
	tx            TxRunner
	now           func() time.Time
}

func NewService(admissions Repository, beds BedStore, rooms RoomStore, patients PatientDirectory, professionals ProfessionalDirectory, tx TxRunner) *Service {
	return &Service{
		admissions:    admissions,
		beds:          beds,
		rooms:         rooms,
		patients:      patients,
		professionals: professionals,
		tx:            tx,
		now:           time.Now,
	}
}

type AdmitInput struct {
	PatientID         uuid.UUID  `json:"patient_id" validate:"required"`
	BedID             uuid.UUID  `json:"bed_id" validate:"required"`
	ProfessionalID    uuid.UUID  `json:"professional_id" validate:"required"`
	ExpectedDischarge *time.Time `json:"expected_discharge"`
}

// Admit places a patient into a bed. The bed-free check comes strictly
// before the compatibility check, so an occupied bed always reports "bed is
// not free" even when the patient would also be incompatible. The final
// state flip re-checks under a row lock, so two concurrent admissions into
// the same bed cannot both succeed.
func (s *Service) Admit(ctx context.Context, in AdmitInput) (*Admission, error) {
	bed, err := s.beds.GetByID(ctx, in.BedID)
	if err != nil {
		return nil, err
	}
	room, err := s.rooms.GetByID(ctx, bed.RoomID)
	if err != nil {
		return nil, err
	}
	patient, err := s.patients.GetByID(ctx, in.PatientID)
	if err != nil {
		return nil, err
	}

	if bed.Status != ward.BedFree {
		return nil, apperr.Conflict("bed is not free")
	}
	if err := checkCompatibility(room, patient, s.now()); err != nil {
		return nil, err
	}
	if _, err := s.professionals.GetByID(ctx, in.ProfessionalID); err != nil {
		return nil, err
	}

	var adm *Admission
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		locked, err := s.beds.GetByIDForUpdate(ctx, in.BedID)
		if err != nil {
			return err
		}
		if locked.Status != ward.BedFree {
			return apperr.Conflict("bed is not free")
		}
		if err := s.beds.UpdateStatus(ctx, in.BedID, ward.BedOccupied); err != nil {
			return err
		}
		adm = &Admission{
			PatientID:         in.PatientID,
			BedID:             in.BedID,
			ProfessionalID:    in.ProfessionalID,
			AdmittedAt:        s.now().UTC(),
			ExpectedDischarge: in.ExpectedDischarge,
			Status:            StatusActive,
		}
		return s.admissions.Create(ctx, adm)
	})
	if err != nil {
		return nil, err
	}
	return adm, nil
}

// checkCompatibility applies the room-category rules: gendered rooms demand
// an exact gender match, pediatric rooms take patients under 18, isolation
// and general ICU take anyone.
func checkCompatibility(room *ward.Room, patient *identity.Patient, at time.Time) error {
	switch room.Category {
	case ward.CategoryMale:
		if patient.Gender != identity.GenderMale {
			return apperr.Conflict("room %s only receives male patients", room.Number)
		}
	case ward.CategoryFemale:
		if patient.Gender != identity.GenderFemale {
			return apperr.Conflict("room %s only receives female patients", room.Number)
		}
	case ward.CategoryPediatric:
		if patient.Age(at) >= 18 {
			return apperr.Conflict("room %s only receives patients under 18", room.Number)
		}
	}
	return nil
}

// Discharge closes an ACTIVE admission and frees its bed atomically.
func (s *Service) Discharge(ctx context.Context, id uuid.UUID) (*Admission, error) {
	var adm *Admission
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		current, err := s.admissions.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.Status != StatusActive {
			return apperr.Conflict("admission is already discharged")
		}
		adm, err = s.admissions.Discharge(ctx, id)
		if err != nil {
			return err
		}
		return s.beds.UpdateStatus(ctx, current.BedID, ward.BedFree)
	})
	if err != nil {
		return nil, err
	}
	return adm, nil
}

type RecordInput struct {
	Notes string `json:"notes" validate:"required"`
}

// AddRecord appends a clinical note to an ACTIVE admission.
func (s *Service) AddRecord(ctx context.Context, admissionID, authorID uuid.UUID, in RecordInput) (*Record, error) {
	adm, err := s.admissions.GetByID(ctx, admissionID)
	if err != nil {
		return nil, err
	}
	if adm.Status != StatusActive {
		return nil, apperr.Conflict("cannot add records to a discharged admission")
	}
	rec := &Record{AdmissionID: admissionID, Notes: in.Notes, AuthorID: authorID}
	if err := s.admissions.AddRecord(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// AdmissionDetail bundles an admission with its clinical notes.
type AdmissionDetail struct {
	*Admission
	Records []*Record `json:"records"`
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*AdmissionDetail, error) {
	adm, err := s.admissions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	records, err := s.admissions.ListRecords(ctx, id)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []*Record{}
	}
	return &AdmissionDetail{Admission: adm, Records: records}, nil
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Admission, int, error) {
	return s.admissions.List(ctx, limit, offset)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Admission, int, error) {
	if _, err := s.patients.GetByID(ctx, patientID); err != nil {
		return nil, 0, err
	}
	return s.admissions.ListByPatient(ctx, patientID, limit, offset)
}
