package ward

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidaplus/hms/internal/platform/apperr"
	"github.com/vidaplus/hms/internal/platform/db"
)

// =========== Room Repository ===========

type roomRepoPG struct{ pool *pgxpool.Pool }

func NewRoomRepoPG(pool *pgxpool.Pool) RoomRepository { return &roomRepoPG{pool: pool} }

func (r *roomRepoPG) conn(ctx context.Context) db.Querier {
	return db.QuerierFromContext(ctx, r.pool)
}

const roomCols = `id, number, category, capacity, created_at, updated_at`

func scanRoom(row pgx.Row) (*Room, error) {
	var rm Room
	err := row.Scan(&rm.ID, &rm.Number, &rm.Category, &rm.Capacity, &rm.CreatedAt, &rm.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("room not found")
		}
		return nil, err
	}
	return &rm, nil
}

func (r *roomRepoPG) Create(ctx context.Context, rm *Room) error {
	rm.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO room (id, number, category, capacity)
		VALUES ($1,$2,$3,$4)`,
		rm.ID, rm.Number, rm.Category, rm.Capacity)
	if apperr.IsUniqueViolation(err, "") {
		return apperr.Wrap(apperr.KindConflict, err, "a room with this number already exists")
	}
	return err
}

func (r *roomRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Room, error) {
	return scanRoom(r.conn(ctx).QueryRow(ctx, `SELECT `+roomCols+` FROM room WHERE id = $1`, id))
}

func (r *roomRepoPG) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Room, error) {
	return scanRoom(r.conn(ctx).QueryRow(ctx, `SELECT `+roomCols+` FROM room WHERE id = $1 FOR UPDATE`, id))
}

func (r *roomRepoPG) Update(ctx context.Context, rm *Room) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE room SET number=$2, category=$3, capacity=$4, updated_at=NOW()
		WHERE id = $1`,
		rm.ID, rm.Number, rm.Category, rm.Capacity)
	if apperr.IsUniqueViolation(err, "") {
		return apperr.Wrap(apperr.KindConflict, err, "a room with this number already exists")
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("room not found")
	}
	return nil
}

func (r *roomRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM room WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("room not found")
	}
	return nil
}

func (r *roomRepoPG) List(ctx context.Context, limit, offset int) ([]*Room, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM room`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+roomCols+` FROM room ORDER BY number LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Room
	for rows.Next() {
		rm, err := scanRoom(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, rm)
	}
	return items, total, rows.Err()
}

// =========== Bed Repository ===========

type bedRepoPG struct{ pool *pgxpool.Pool }

func NewBedRepoPG(pool *pgxpool.Pool) BedRepository { return &bedRepoPG{pool: pool} }

func (r *bedRepoPG) conn(ctx context.Context) db.Querier {
	return db.QuerierFromContext(ctx, r.pool)
}

const bedCols = `id, room_id, label, status, created_at, updated_at`

func scanBed(row pgx.Row) (*Bed, error) {
	var b Bed
	err := row.Scan(&b.ID, &b.RoomID, &b.Label, &b.Status, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("bed not found")
		}
		return nil, err
	}
	return &b, nil
}

func (r *bedRepoPG) Create(ctx context.Context, b *Bed) error {
	b.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO bed (id, room_id, label, status)
		VALUES ($1,$2,$3,$4)`,
		b.ID, b.RoomID, b.Label, b.Status)
	if apperr.IsUniqueViolation(err, "") {
		return apperr.Wrap(apperr.KindConflict, err, "a bed with this label already exists in the room")
	}
	return err
}

func (r *bedRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Bed, error) {
	return scanBed(r.conn(ctx).QueryRow(ctx, `SELECT `+bedCols+` FROM bed WHERE id = $1`, id))
}

func (r *bedRepoPG) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Bed, error) {
	return scanBed(r.conn(ctx).QueryRow(ctx,
		`SELECT `+bedCols+` FROM bed WHERE id = $1 FOR UPDATE`, id))
}

func (r *bedRepoPG) CountInRoom(ctx context.Context, roomID uuid.UUID) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM bed WHERE room_id = $1`, roomID).Scan(&n)
	return n, err
}

func (r *bedRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE bed SET status=$2, updated_at=NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("bed not found")
	}
	return nil
}

func (r *bedRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM bed WHERE id = $1`, id)
	if apperr.IsForeignKeyViolation(err) {
		return apperr.Wrap(apperr.KindConflict, err, "bed has admission history and cannot be deleted")
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("bed not found")
	}
	return nil
}

func (r *bedRepoPG) ListByRoom(ctx context.Context, roomID uuid.UUID) ([]*Bed, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+bedCols+` FROM bed WHERE room_id = $1 ORDER BY label`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Bed
	for rows.Next() {
		b, err := scanBed(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, rows.Err()
}

func (r *bedRepoPG) Overview(ctx context.Context, category string) ([]*BedOverviewItem, error) {
	q := `
		SELECT b.id, b.label, b.status, rm.number, rm.category,
		       p.name, a.admitted_at, a.expected_discharge
		FROM bed b
		JOIN room rm ON rm.id = b.room_id
		LEFT JOIN admission a ON a.bed_id = b.id AND a.status = 'ACTIVE'
		LEFT JOIN patient p ON p.id = a.patient_id`
	args := []interface{}{}
	if category != "" {
		q += ` WHERE rm.category = $1`
		args = append(args, category)
	}
	q += ` ORDER BY rm.number, b.label`

	rows, err := r.conn(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*BedOverviewItem
	for rows.Next() {
		var it BedOverviewItem
		if err := rows.Scan(&it.BedID, &it.Label, &it.Status, &it.RoomNumber, &it.RoomCategory,
			&it.PatientName, &it.AdmittedAt, &it.ExpectedDischarge); err != nil {
			return nil, err
		}
		items = append(items, &it)
	}
	return items, rows.Err()
}
