package identity

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vidaplus/hms/internal/platform/apperr"
	"github.com/vidaplus/hms/internal/platform/auth"
)

// TxRunner runs fn inside a database transaction. Satisfied by db.TxManager.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Service struct {
	users         UserRepository
	patients      PatientRepository
	professionals ProfessionalRepository
	tx            TxRunner
	jwtSecret     []byte
	jwtTTL        time.Duration
}

func NewService(users UserRepository, patients PatientRepository, professionals ProfessionalRepository, tx TxRunner, jwtSecret []byte, jwtTTL time.Duration) *Service {
	return &Service{
		users:         users,
		patients:      patients,
		professionals: professionals,
		tx:            tx,
		jwtSecret:     jwtSecret,
		jwtTTL:        jwtTTL,
	}
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResult struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// Login checks the credentials and issues a signed token. Both an unknown
// email and a wrong password produce the same message so the endpoint does
// not reveal which accounts exist.
func (s *Service) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	u, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, apperr.Unauthorized("invalid credentials")
		}
		return nil, err
	}
	if !auth.CheckPassword(in.Password, u.PasswordHash) {
		return nil, apperr.Unauthorized("invalid credentials")
	}

	token, err := auth.IssueToken(s.jwtSecret, u.ID.String(), u.Role, s.jwtTTL)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, User: u}, nil
}

type RegisterPatientInput struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	Name      string `json:"name" validate:"required"`
	CPF       string `json:"cpf" validate:"required"`
	BirthDate string `json:"birth_date" validate:"required"`
	Gender    string `json:"gender" validate:"required,oneof=MALE FEMALE"`
	Phone     string `json:"phone"`
}

// RegisterPatient creates the credential record and the patient profile in
// one transaction so a duplicate CPF cannot leave an orphaned user behind.
func (s *Service) RegisterPatient(ctx context.Context, in RegisterPatientInput) (*Patient, error) {
	birth, err := time.Parse("2006-01-02", in.BirthDate)
	if err != nil {
		return nil, apperr.Validation("birth_date must be in YYYY-MM-DD format")
	}
	if !birth.Before(time.Now().UTC()) {
		return nil, apperr.Validation("birth_date must be in the past")
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	var p *Patient
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		u := &User{Email: in.Email, PasswordHash: hash, Role: auth.RolePatient}
		if err := s.users.Create(ctx, u); err != nil {
			return err
		}
		p = &Patient{
			UserID:    &u.ID,
			Name:      in.Name,
			CPF:       in.CPF,
			BirthDate: birth,
			Gender:    in.Gender,
		}
		if in.Phone != "" {
			p.Phone = &in.Phone
		}
		return s.patients.Create(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

type CreatePatientInput struct {
	Name      string `json:"name" validate:"required"`
	CPF       string `json:"cpf" validate:"required"`
	BirthDate string `json:"birth_date" validate:"required"`
	Gender    string `json:"gender" validate:"required,oneof=MALE FEMALE"`
	Phone     string `json:"phone"`
}

// CreatePatient registers a patient without a login account. Used by staff
// for patients who never access the system themselves.
func (s *Service) CreatePatient(ctx context.Context, in CreatePatientInput) (*Patient, error) {
	birth, err := time.Parse("2006-01-02", in.BirthDate)
	if err != nil {
		return nil, apperr.Validation("birth_date must be in YYYY-MM-DD format")
	}
	if !birth.Before(time.Now().UTC()) {
		return nil, apperr.Validation("birth_date must be in the past")
	}

	p := &Patient{
		Name:      in.Name,
		CPF:       in.CPF,
		BirthDate: birth,
		Gender:    in.Gender,
	}
	if in.Phone != "" {
		p.Phone = &in.Phone
	}
	if err := s.patients.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, limit, offset)
}

type UpdatePatientInput struct {
	Name      string `json:"name" validate:"required"`
	CPF       string `json:"cpf" validate:"required"`
	BirthDate string `json:"birth_date" validate:"required"`
	Gender    string `json:"gender" validate:"required,oneof=MALE FEMALE"`
	Phone     string `json:"phone"`
}

func (s *Service) UpdatePatient(ctx context.Context, id uuid.UUID, in UpdatePatientInput) (*Patient, error) {
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	birth, err := time.Parse("2006-01-02", in.BirthDate)
	if err != nil {
		return nil, apperr.Validation("birth_date must be in YYYY-MM-DD format")
	}

	p.Name = in.Name
	p.CPF = in.CPF
	p.BirthDate = birth
	p.Gender = in.Gender
	p.Phone = nil
	if in.Phone != "" {
		p.Phone = &in.Phone
	}
	if err := s.patients.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) DeletePatient(ctx context.Context, id uuid.UUID) error {
	return s.patients.Delete(ctx, id)
}

type CreateProfessionalInput struct {
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=8"`
	Name         string `json:"name" validate:"required"`
	Specialty    string `json:"specialty" validate:"required"`
	Registration string `json:"registration" validate:"required"`
}

// CreateProfessional provisions the login account and the professional
// profile atomically. Only admins reach this operation.
func (s *Service) CreateProfessional(ctx context.Context, in CreateProfessionalInput) (*Professional, error) {
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	var p *Professional
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		u := &User{Email: in.Email, PasswordHash: hash, Role: auth.RoleProfessional}
		if err := s.users.Create(ctx, u); err != nil {
			return err
		}
		p = &Professional{
			UserID:       &u.ID,
			Name:         in.Name,
			Specialty:    in.Specialty,
			Registration: in.Registration,
		}
		return s.professionals.Create(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) GetProfessional(ctx context.Context, id uuid.UUID) (*Professional, error) {
	return s.professionals.GetByID(ctx, id)
}

func (s *Service) ListProfessionals(ctx context.Context, limit, offset int) ([]*Professional, int, error) {
	return s.professionals.List(ctx, limit, offset)
}

type UpdateProfessionalInput struct {
	Name         string `json:"name" validate:"required"`
	Specialty    string `json:"specialty" validate:"required"`
	Registration string `json:"registration" validate:"required"`
}

func (s *Service) UpdateProfessional(ctx context.Context, id uuid.UUID, in UpdateProfessionalInput) (*Professional, error) {
	p, err := s.professionals.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Name = in.Name
	p.Specialty = in.Specialty
	p.Registration = in.Registration
	if err := s.professionals.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) DeleteProfessional(ctx context.Context, id uuid.UUID) error {
	return s.professionals.Delete(ctx, id)
}

// PatientForUser resolves the patient profile linked to a user account.
// Patient-role callers use it to scope reads to their own data.
func (s *Service) PatientForUser(ctx context.Context, userID uuid.UUID) (*Patient, error) {
	return s.patients.GetByUserID(ctx, userID)
}

// ProfessionalForUser resolves the professional profile linked to a user
// account.
func (s *Service) ProfessionalForUser(ctx context.Context, userID uuid.UUID) (*Professional, error) {
	return s.professionals.GetByUserID(ctx, userID)
}
