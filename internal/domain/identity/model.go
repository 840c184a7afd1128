package identity

import (
	"time"

	"github.com/google/uuid"
)

// Patient genders.
const (
	GenderMale   = "MALE"
	GenderFemale = "FEMALE"
)

// User is a credential holder. Patients and professionals optionally link to
// one user account each.
type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

type Patient struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	UserID    *uuid.UUID `db:"user_id" json:"user_id,omitempty"`
	Name      string     `db:"name" json:"name"`
	CPF       string     `db:"cpf" json:"cpf"`
	BirthDate time.Time  `db:"birth_date" json:"birth_date"`
	Gender    string     `db:"gender" json:"gender"`
	Phone     *string    `db:"phone" json:"phone,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// Age returns the patient's age in whole years at the reference instant,
// comparing calendar year, month and day rather than dividing elapsed days.
func (p *Patient) Age(at time.Time) int {
	at = at.UTC()
	birth := p.BirthDate.UTC()

	years := at.Year() - birth.Year()
	if at.Month() < birth.Month() ||
		(at.Month() == birth.Month() && at.Day() < birth.Day()) {
		years--
	}
	return years
}

type Professional struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	UserID       *uuid.UUID `db:"user_id" json:"user_id,omitempty"`
	Name         string     `db:"name" json:"name"`
	Specialty    string     `db:"specialty" json:"specialty"`
	Registration string     `db:"registration" json:"registration"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}
