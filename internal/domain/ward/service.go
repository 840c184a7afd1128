package ward

import (
	"context"

	"github.com/google/uuid"

	"github.com/vidaplus/hms/internal/platform/apperr"
)

// TxRunner runs fn inside a database transaction. Satisfied by db.TxManager.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Service struct {
	rooms RoomRepository
	beds  BedRepository
	tx    TxRunner
}

func NewService(rooms RoomRepository, beds BedRepository, tx TxRunner) *Service {
	return &Service{rooms: rooms, beds: beds, tx: tx}
}

type RoomInput struct {
	Number   string `json:"number" validate:"required"`
	Category string `json:"category" validate:"required,oneof=MALE FEMALE PEDIATRIC ISOLATION ICU_GENERAL"`
	Capacity int    `json:"capacity" validate:"required,gt=0"`
}

func (s *Service) CreateRoom(ctx context.Context, in RoomInput) (*Room, error) {
	rm := &Room{Number: in.Number, Category: in.Category, Capacity: in.Capacity}
	if err := s.rooms.Create(ctx, rm); err != nil {
		return nil, err
	}
	return rm, nil
}

func (s *Service) GetRoom(ctx context.Context, id uuid.UUID) (*Room, error) {
	return s.rooms.GetByID(ctx, id)
}

func (s *Service) ListRooms(ctx context.Context, limit, offset int) ([]*Room, int, error) {
	return s.rooms.List(ctx, limit, offset)
}

// UpdateRoom rejects a capacity below the current bed count so the room
// never ends up over capacity retroactively. The room row is locked so a
// concurrent CreateBed cannot slip a bed in between the count and the write.
func (s *Service) UpdateRoom(ctx context.Context, id uuid.UUID, in RoomInput) (*Room, error) {
	var rm *Room
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		rm, err = s.rooms.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		n, err := s.beds.CountInRoom(ctx, id)
		if err != nil {
			return err
		}
		if in.Capacity < n {
			return apperr.Conflict("capacity %d is below the %d beds already in the room", in.Capacity, n)
		}
		rm.Number = in.Number
		rm.Category = in.Category
		rm.Capacity = in.Capacity
		return s.rooms.Update(ctx, rm)
	})
	if err != nil {
		return nil, err
	}
	return rm, nil
}

// DeleteRoom refuses while any bed remains in the room.
func (s *Service) DeleteRoom(ctx context.Context, id uuid.UUID) error {
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.rooms.GetByIDForUpdate(ctx, id); err != nil {
			return err
		}
		n, err := s.beds.CountInRoom(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return apperr.Conflict("room still has %d beds", n)
		}
		return s.rooms.Delete(ctx, id)
	})
}

type BedInput struct {
	RoomID uuid.UUID `json:"room_id" validate:"required"`
	Label  string    `json:"label" validate:"required"`
}

// CreateBed locks the room row and counts its beds inside the same
// transaction as the insert. The lock serializes concurrent creates for the
// same room; without it two transactions could both read the committed
// count and both insert past capacity.
func (s *Service) CreateBed(ctx context.Context, in BedInput) (*Bed, error) {
	var b *Bed
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		rm, err := s.rooms.GetByIDForUpdate(ctx, in.RoomID)
		if err != nil {
			return err
		}
		n, err := s.beds.CountInRoom(ctx, in.RoomID)
		if err != nil {
			return err
		}
		if n >= rm.Capacity {
			return apperr.Conflict("room %s is at capacity (%d beds)", rm.Number, rm.Capacity)
		}
		b = &Bed{RoomID: in.RoomID, Label: in.Label, Status: BedFree}
		return s.beds.Create(ctx, b)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Service) GetBed(ctx context.Context, id uuid.UUID) (*Bed, error) {
	return s.beds.GetByID(ctx, id)
}

func (s *Service) ListBedsByRoom(ctx context.Context, roomID uuid.UUID) ([]*Bed, error) {
	if _, err := s.rooms.GetByID(ctx, roomID); err != nil {
		return nil, err
	}
	return s.beds.ListByRoom(ctx, roomID)
}

type BedStatusInput struct {
	Status string `json:"status" validate:"required,oneof=FREE MAINTENANCE CLEANING"`
}

// UpdateBedStatus moves a bed between the non-occupied states. OCCUPIED is
// owned by the admission flow and cannot be entered or left here.
func (s *Service) UpdateBedStatus(ctx context.Context, id uuid.UUID, in BedStatusInput) (*Bed, error) {
	var b *Bed
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		b, err = s.beds.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if b.Status == BedOccupied {
			return apperr.Conflict("bed is occupied; discharge the admission first")
		}
		b.Status = in.Status
		return s.beds.UpdateStatus(ctx, id, in.Status)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Service) DeleteBed(ctx context.Context, id uuid.UUID) error {
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		b, err := s.beds.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if b.Status == BedOccupied {
			return apperr.Conflict("bed is occupied and cannot be removed")
		}
		return s.beds.Delete(ctx, id)
	})
}

// BedOverview returns the occupancy panorama, optionally filtered by room
// category.
func (s *Service) BedOverview(ctx context.Context, category string) ([]*BedOverviewItem, error) {
	if category != "" && !ValidCategory(category) {
		return nil, apperr.Validation("unknown room category %q", category)
	}
	return s.beds.Overview(ctx, category)
}
