package ward

import (
	"context"

	"github.com/google/uuid"
)

type RoomRepository interface {
	Create(ctx context.Context, r *Room) error
	GetByID(ctx context.Context, id uuid.UUID) (*Room, error)
	// GetByIDForUpdate locks the room row for the remainder of the enclosing
	// transaction. Callers must hold a transaction on ctx.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Room, error)
	Update(ctx context.Context, r *Room) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Room, int, error)
}

type BedRepository interface {
	Create(ctx context.Context, b *Bed) error
	GetByID(ctx context.Context, id uuid.UUID) (*Bed, error)
	// GetByIDForUpdate locks the bed row for the remainder of the enclosing
	// transaction. Callers must hold a transaction on ctx.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Bed, error)
	CountInRoom(ctx context.Context, roomID uuid.UUID) (int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByRoom(ctx context.Context, roomID uuid.UUID) ([]*Bed, error)
	Overview(ctx context.Context, category string) ([]*BedOverviewItem, error)
}
