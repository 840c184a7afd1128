package ward

import (
	"time"

	"github.com/google/uuid"
)

// Room categories. Category decides which patients a bed can receive.
const (
	CategoryMale       = "MALE"
	CategoryFemale     = "FEMALE"
	CategoryPediatric  = "PEDIATRIC"
	CategoryIsolation  = "ISOLATION"
	CategoryICUGeneral = "ICU_GENERAL"
)

// Bed statuses.
const (
	BedFree        = "FREE"
	BedOccupied    = "OCCUPIED"
	BedMaintenance = "MAINTENANCE"
	BedCleaning    = "CLEANING"
)

type Room struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Number    string    `db:"number" json:"number"`
	Category  string    `db:"category" json:"category"`
	Capacity  int       `db:"capacity" json:"capacity"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

type Bed struct {
	ID        uuid.UUID `db:"id" json:"id"`
	RoomID    uuid.UUID `db:"room_id" json:"room_id"`
	Label     string    `db:"label" json:"label"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// BedOverviewItem is one row of the occupancy panorama: the bed, its room,
// and when occupied the active admission's patient and dates.
type BedOverviewItem struct {
	BedID             uuid.UUID  `json:"bed_id"`
	Label             string     `json:"label"`
	Status            string     `json:"status"`
	RoomNumber        string     `json:"room_number"`
	RoomCategory      string     `json:"room_category"`
	PatientName       *string    `json:"patient_name,omitempty"`
	AdmittedAt        *time.Time `json:"admitted_at,omitempty"`
	ExpectedDischarge *time.Time `json:"expected_discharge,omitempty"`
}

// ValidCategory reports whether c is one of the recognized room categories.
func ValidCategory(c string) bool {
	switch c {
	case CategoryMale, CategoryFemale, CategoryPediatric, CategoryIsolation, CategoryICUGeneral:
		return true
	}
	return false
}
