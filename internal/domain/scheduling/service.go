package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vidaplus/hms/internal/domain/identity"
	"github.com/vidaplus/hms/internal/platform/apperr"
	"github.com/vidaplus/hms/internal/platform/auth"
)

// TxRunner runs fn inside a database transaction. Satisfied by db.TxManager.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// PatientDirectory and ProfessionalDirectory are the identity lookups the
// coordinator needs. The identity repositories satisfy them.
type PatientDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*identity.Patient, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*identity.Patient, error)
}

type ProfessionalDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*identity.Professional, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*identity.Professional, error)
}

type Service struct {
	schedules      ScheduleRepository
	unavailability UnavailabilityRepository
	appointments   AppointmentRepository
	records        RecordRepository
	patients       PatientDirectory
	professionals  ProfessionalDirectory
	tx             TxRunner

	// defaultSlotMinutes fills grid rows submitted without slot_minutes.
	defaultSlotMinutes int
}

func NewService(
	schedules ScheduleRepository,
	unavailability UnavailabilityRepository,
	appointments AppointmentRepository,
	records RecordRepository,
	patients PatientDirectory,
	professionals ProfessionalDirectory,
	tx TxRunner,
	defaultSlotMinutes int,
) *Service {
	if defaultSlotMinutes <= 0 {
		defaultSlotMinutes = DefaultSlotMinutes
	}
	return &Service{
		schedules:          schedules,
		unavailability:     unavailability,
		appointments:       appointments,
		records:            records,
		patients:           patients,
		professionals:      professionals,
		tx:                 tx,
		defaultSlotMinutes: defaultSlotMinutes,
	}
}

// -- Weekly schedule --

type ScheduleRowInput struct {
	Weekday     int    `json:"weekday" validate:"min=0,max=6"`
	StartTime   string `json:"start_time" validate:"required"`
	EndTime     string `json:"end_time" validate:"required"`
	SlotMinutes int    `json:"slot_minutes"`
}

// SetWeeklySchedule replaces the professional's whole grid with the given
// set, inside one transaction. Set semantics: rows absent from the input are
// gone afterwards.
func (s *Service) SetWeeklySchedule(ctx context.Context, professionalID uuid.UUID, rows []ScheduleRowInput) ([]*WeeklySchedule, error) {
	if _, err := s.professionals.GetByID(ctx, professionalID); err != nil {
		return nil, err
	}

	seen := map[int]bool{}
	grid := make([]*WeeklySchedule, 0, len(rows))
	for _, in := range rows {
		if in.Weekday < 0 || in.Weekday > 6 {
			return nil, apperr.Validation("weekday %d is out of range 0-6", in.Weekday)
		}
		if seen[in.Weekday] {
			return nil, apperr.Validation("weekday %d appears more than once", in.Weekday)
		}
		seen[in.Weekday] = true

		startMin, err := ParseClock(in.StartTime)
		if err != nil {
			return nil, apperr.Validation("%v", err)
		}
		endMin, err := ParseClock(in.EndTime)
		if err != nil {
			return nil, apperr.Validation("%v", err)
		}
		if startMin >= endMin {
			return nil, apperr.Validation("start %s must be before end %s", in.StartTime, in.EndTime)
		}

		slotMinutes := in.SlotMinutes
		if slotMinutes == 0 {
			slotMinutes = s.defaultSlotMinutes
		}
		if slotMinutes < 0 {
			return nil, apperr.Validation("slot_minutes must be positive")
		}
		grid = append(grid, &WeeklySchedule{
			ProfessionalID: professionalID,
			Weekday:        in.Weekday,
			StartTime:      in.StartTime,
			EndTime:        in.EndTime,
			SlotMinutes:    slotMinutes,
		})
	}

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		return s.schedules.Replace(ctx, professionalID, grid)
	})
	if err != nil {
		return nil, err
	}
	return grid, nil
}

func (s *Service) GetWeeklySchedule(ctx context.Context, professionalID uuid.UUID) ([]*WeeklySchedule, error) {
	return s.schedules.ListForProfessional(ctx, professionalID)
}

// -- Unavailability --

type WindowInput struct {
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required"`
	Reason    string    `json:"reason" validate:"required"`
}

func (s *Service) AddUnavailability(ctx context.Context, professionalID uuid.UUID, ins []WindowInput) ([]*UnavailabilityWindow, error) {
	if len(ins) == 0 {
		return nil, apperr.Validation("at least one window is required")
	}
	windows := make([]*UnavailabilityWindow, 0, len(ins))
	for _, in := range ins {
		if !in.StartTime.Before(in.EndTime) {
			return nil, apperr.Validation("window start must be before its end")
		}
		windows = append(windows, &UnavailabilityWindow{
			ProfessionalID: professionalID,
			StartTime:      in.StartTime.UTC(),
			EndTime:        in.EndTime.UTC(),
			Reason:         in.Reason,
		})
	}
	if err := s.unavailability.CreateBatch(ctx, windows); err != nil {
		return nil, err
	}
	return windows, nil
}

// -- Availability engine queries --

// FreeSlots computes the bookable start instants for one UTC calendar day.
// A day the professional does not work yields an empty list, not an error.
func (s *Service) FreeSlots(ctx context.Context, professionalID uuid.UUID, date time.Time) ([]time.Time, error) {
	if _, err := s.professionals.GetByID(ctx, professionalID); err != nil {
		return nil, err
	}

	day := date.UTC()
	grid, err := s.schedules.GetForWeekday(ctx, professionalID, int(day.Weekday()))
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return []time.Time{}, nil
		}
		return nil, err
	}

	slots, err := GenerateSlots(grid, day)
	if err != nil {
		return nil, err
	}

	from := dayAnchor(day)
	to := from.Add(24 * time.Hour)
	booked, err := s.appointments.ListBookedInRange(ctx, professionalID, from, to)
	if err != nil {
		return nil, err
	}
	windows, err := s.unavailability.ListOverlapping(ctx, professionalID, from, to)
	if err != nil {
		return nil, err
	}

	free := FilterFree(slots, booked, windows)
	if free == nil {
		free = []time.Time{}
	}
	return free, nil
}

// Agenda builds the annotated day-by-day schedule for [from, to]. Days
// without a grid row are omitted.
func (s *Service) Agenda(ctx context.Context, professionalID uuid.UUID, from, to time.Time) ([]DayAgenda, error) {
	if _, err := s.professionals.GetByID(ctx, professionalID); err != nil {
		return nil, err
	}

	first := dayAnchor(from)
	last := dayAnchor(to)
	if last.Before(first) {
		return nil, apperr.Validation("from must not be after to")
	}

	rangeEnd := last.Add(24 * time.Hour)
	booked, err := s.appointments.ListBookedInRange(ctx, professionalID, first, rangeEnd)
	if err != nil {
		return nil, err
	}
	windows, err := s.unavailability.ListOverlapping(ctx, professionalID, first, rangeEnd)
	if err != nil {
		return nil, err
	}

	agenda := []DayAgenda{}
	for day := first; !day.After(last); day = day.Add(24 * time.Hour) {
		grid, err := s.schedules.GetForWeekday(ctx, professionalID, int(day.Weekday()))
		if err != nil {
			if apperr.KindOf(err) == apperr.KindNotFound {
				continue
			}
			return nil, err
		}
		slots, err := GenerateSlots(grid, day)
		if err != nil {
			return nil, err
		}
		agenda = append(agenda, DayAgenda{
			Date:  day.Format("2006-01-02"),
			Slots: AnnotateSlots(slots, booked, windows),
		})
	}
	return agenda, nil
}

// -- Booking --

type BookInput struct {
	// PatientID is required when staff book on a patient's behalf; patients
	// booking for themselves leave it empty.
	PatientID      *uuid.UUID `json:"patient_id"`
	ProfessionalID uuid.UUID  `json:"professional_id" validate:"required"`
	StartTime      time.Time  `json:"start_time" validate:"required"`
}

// Book reserves a slot. The free-slot pre-check and the insert run inside
// one transaction; a concurrent booking that slips past the pre-check is
// caught by the unique index on (professional, start) for active
// appointments and surfaces as the same conflict.
func (s *Service) Book(ctx context.Context, actorUserID uuid.UUID, role string, in BookInput) (*Appointment, error) {
	patientID, err := s.resolvePatient(ctx, actorUserID, role, in.PatientID)
	if err != nil {
		return nil, err
	}
	if _, err := s.professionals.GetByID(ctx, in.ProfessionalID); err != nil {
		return nil, err
	}

	start := in.StartTime.UTC()
	var appt *Appointment
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		grid, err := s.schedules.GetForWeekday(ctx, in.ProfessionalID, int(start.Weekday()))
		if err != nil {
			if apperr.KindOf(err) == apperr.KindNotFound {
				return apperr.Conflict(slotTakenMessage)
			}
			return err
		}

		slots, err := GenerateSlots(grid, start)
		if err != nil {
			return err
		}
		from := dayAnchor(start)
		to := from.Add(24 * time.Hour)
		booked, err := s.appointments.ListBookedInRange(ctx, in.ProfessionalID, from, to)
		if err != nil {
			return err
		}
		windows, err := s.unavailability.ListOverlapping(ctx, in.ProfessionalID, from, to)
		if err != nil {
			return err
		}

		if !containsInstant(FilterFree(slots, booked, windows), start) {
			return apperr.Conflict(slotTakenMessage)
		}

		// Duration comes from the grid row the pre-check already located,
		// never re-derived from a second lookup.
		dur := time.Duration(grid.SlotMinutes) * time.Minute
		if grid.SlotMinutes <= 0 {
			dur = time.Duration(s.defaultSlotMinutes) * time.Minute
		}

		appt = &Appointment{
			PatientID:      patientID,
			ProfessionalID: in.ProfessionalID,
			StartTime:      start,
			EndTime:        start.Add(dur),
			Status:         StatusScheduled,
		}
		return s.appointments.Create(ctx, appt)
	})
	if err != nil {
		return nil, err
	}
	return appt, nil
}

func containsInstant(slots []time.Time, t time.Time) bool {
	for _, s := range slots {
		if s.Equal(t) {
			return true
		}
	}
	return false
}

func (s *Service) resolvePatient(ctx context.Context, actorUserID uuid.UUID, role string, explicit *uuid.UUID) (uuid.UUID, error) {
	if role == auth.RolePatient {
		p, err := s.patients.GetByUserID(ctx, actorUserID)
		if err != nil {
			return uuid.Nil, err
		}
		if explicit != nil && *explicit != p.ID {
			return uuid.Nil, apperr.Forbidden("patients may only book for themselves")
		}
		return p.ID, nil
	}
	if explicit == nil {
		return uuid.Nil, apperr.Validation("patient_id is required when booking on a patient's behalf")
	}
	p, err := s.patients.GetByID(ctx, *explicit)
	if err != nil {
		return uuid.Nil, err
	}
	return p.ID, nil
}

// -- Cancellation --

// Cancel flips a SCHEDULED appointment to the cancelled state matching the
// actor's side. Only the owning patient or professional (or an admin) may
// cancel.
func (s *Service) Cancel(ctx context.Context, appointmentID, actorUserID uuid.UUID, role, reason string) (*Appointment, error) {
	var appt *Appointment
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		appt, err = s.appointments.GetByIDForUpdate(ctx, appointmentID)
		if err != nil {
			return err
		}

		status := StatusCancelledByProfessional
		switch role {
		case auth.RolePatient:
			p, err := s.patients.GetByUserID(ctx, actorUserID)
			if err != nil || p.ID != appt.PatientID {
				return apperr.Forbidden("you may only cancel your own appointments")
			}
			status = StatusCancelledByPatient
		case auth.RoleProfessional:
			pr, err := s.professionals.GetByUserID(ctx, actorUserID)
			if err != nil || pr.ID != appt.ProfessionalID {
				return apperr.Forbidden("you may only cancel your own appointments")
			}
		case auth.RoleAdmin:
			// Admin cancellations are recorded on the professional side.
		default:
			return apperr.Forbidden("role %q cannot cancel appointments", role)
		}

		if appt.Status != StatusScheduled {
			return apperr.Conflict("cannot cancel an appointment in state %s", appt.Status)
		}

		var reasonPtr *string
		if reason != "" {
			reasonPtr = &reason
		}
		if err := s.appointments.UpdateStatus(ctx, appt.ID, status, reasonPtr); err != nil {
			return err
		}
		appt.Status = status
		appt.CancellationReason = reasonPtr
		return nil
	})
	if err != nil {
		return nil, err
	}
	return appt, nil
}

// -- Clinical record --

type AttachmentInput struct {
	Filename string `json:"filename" validate:"required"`
	DocType  string `json:"doc_type" validate:"required"`
}

type RecordInput struct {
	Notes        string            `json:"notes" validate:"required"`
	Diagnosis    string            `json:"diagnosis"`
	Prescription string            `json:"prescription"`
	Attachments  []AttachmentInput `json:"attachments" validate:"dive"`
}

// SaveClinicalRecord upserts the record for an appointment owned by the
// acting professional, replaces its attachments wholesale, and forces the
// appointment to DONE. An appointment that exists but belongs to another
// professional is reported as not found.
func (s *Service) SaveClinicalRecord(ctx context.Context, appointmentID, actorUserID uuid.UUID, in RecordInput) (*ClinicalRecord, error) {
	prof, err := s.professionals.GetByUserID(ctx, actorUserID)
	if err != nil {
		return nil, err
	}

	var rec *ClinicalRecord
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		appt, err := s.appointments.GetByIDForUpdate(ctx, appointmentID)
		if err != nil {
			return err
		}
		if appt.ProfessionalID != prof.ID {
			return apperr.NotFound("appointment not found")
		}
		if !appt.Active() {
			return apperr.Conflict("cannot record a consultation for an appointment in state %s", appt.Status)
		}

		rec = &ClinicalRecord{
			AppointmentID: appt.ID,
			Notes:         in.Notes,
			Diagnosis:     in.Diagnosis,
			Prescription:  in.Prescription,
		}
		if err := s.records.Upsert(ctx, rec); err != nil {
			return err
		}

		atts := make([]Attachment, 0, len(in.Attachments))
		for _, a := range in.Attachments {
			atts = append(atts, Attachment{
				Filename:    a.Filename,
				DocType:     a.DocType,
				StoragePath: fmt.Sprintf("/storage/records/%s_%s", uuid.New(), a.Filename),
			})
		}
		if err := s.records.ReplaceAttachments(ctx, rec.ID, atts); err != nil {
			return err
		}
		rec.Attachments = atts

		if appt.Status != StatusDone {
			if err := s.appointments.UpdateStatus(ctx, appt.ID, StatusDone, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// -- Queries --

// GetAppointment applies visibility rules: a patient or professional only
// sees their own appointments, and an invisible appointment is
// indistinguishable from an absent one.
func (s *Service) GetAppointment(ctx context.Context, id, actorUserID uuid.UUID, role string) (*Appointment, error) {
	appt, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch role {
	case auth.RoleAdmin:
	case auth.RolePatient:
		p, err := s.patients.GetByUserID(ctx, actorUserID)
		if err != nil || p.ID != appt.PatientID {
			return nil, apperr.NotFound("appointment not found")
		}
	case auth.RoleProfessional:
		pr, err := s.professionals.GetByUserID(ctx, actorUserID)
		if err != nil || pr.ID != appt.ProfessionalID {
			return nil, apperr.NotFound("appointment not found")
		}
	default:
		return nil, apperr.NotFound("appointment not found")
	}
	return appt, nil
}

func (s *Service) GetRecord(ctx context.Context, appointmentID, actorUserID uuid.UUID, role string) (*ClinicalRecord, error) {
	if _, err := s.GetAppointment(ctx, appointmentID, actorUserID, role); err != nil {
		return nil, err
	}
	return s.records.GetByAppointment(ctx, appointmentID)
}

// ListAppointments scopes the listing by role: admins see everything,
// patients and professionals their own.
func (s *Service) ListAppointments(ctx context.Context, actorUserID uuid.UUID, role string, limit, offset int) ([]*Appointment, int, error) {
	switch role {
	case auth.RoleAdmin:
		return s.appointments.List(ctx, limit, offset)
	case auth.RolePatient:
		p, err := s.patients.GetByUserID(ctx, actorUserID)
		if err != nil {
			return nil, 0, err
		}
		return s.appointments.ListByPatient(ctx, p.ID, limit, offset)
	case auth.RoleProfessional:
		pr, err := s.professionals.GetByUserID(ctx, actorUserID)
		if err != nil {
			return nil, 0, err
		}
		return s.appointments.ListByProfessional(ctx, pr.ID, limit, offset)
	}
	return nil, 0, apperr.Forbidden("role %q cannot list appointments", role)
}
