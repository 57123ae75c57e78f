package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/tilawah-registration/internal/model"
)

// mysqlRowIsReferenced is the server error number MySQL raises when a
// delete would orphan rows behind a RESTRICT foreign key.
const mysqlRowIsReferenced = 1451

// SlotRepo is the MySQL-backed SlotStore. Slots are mutated only by
// administrative operations, outside the hot submission path.
type SlotRepo struct {
	db *sql.DB
}

// NewSlotRepo returns a SlotRepo bound to the given database.
func NewSlotRepo(db *sql.DB) *SlotRepo { return &SlotRepo{db: db} }

// Create inserts a slot and populates the generated ID and
// timestamps on the provided model.
func (r *SlotRepo) Create(ctx context.Context, slot *model.Slot) error {
	const q = `INSERT INTO slots (display_name, slot_order) VALUES (?, ?)`
	res, err := r.db.ExecContext(ctx, q, slot.DisplayName, slot.SlotOrder)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	slot.ID = uint64(id)
	const sel = `SELECT created_at, updated_at FROM slots WHERE id = ?`
	return r.db.QueryRowContext(ctx, sel, slot.ID).Scan(&slot.CreatedAt, &slot.UpdatedAt)
}

// Update persists display name and ordering changes. Returns
// ErrSlotNotFound when the slot does not exist.
func (r *SlotRepo) Update(ctx context.Context, slot *model.Slot) error {
	const q = `UPDATE slots SET display_name = ?, slot_order = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, slot.DisplayName, slot.SlotOrder, slot.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Distinguish "no such slot" from "no change": an update that
		// writes identical values also affects zero rows on MySQL.
		var exists uint64
		const sel = `SELECT id FROM slots WHERE id = ?`
		if err := r.db.QueryRowContext(ctx, sel, slot.ID).Scan(&exists); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrSlotNotFound
			}
			return err
		}
	}
	return nil
}

// Delete removes a slot. The registrations table references slots
// with ON DELETE RESTRICT, so a slot that still has registrants
// cannot be removed; that surfaces as ErrConflict.
func (r *SlotRepo) Delete(ctx context.Context, id uint64) error {
	const q = `DELETE FROM slots WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == mysqlRowIsReferenced {
			return ErrConflict
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSlotNotFound
	}
	return nil
}

// GetByID returns a single slot or ErrSlotNotFound.
func (r *SlotRepo) GetByID(ctx context.Context, id uint64) (*model.Slot, error) {
	const q = `SELECT id, display_name, slot_order, created_at, updated_at FROM slots WHERE id = ?`
	var slot model.Slot
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&slot.ID, &slot.DisplayName, &slot.SlotOrder, &slot.CreatedAt, &slot.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSlotNotFound
	}
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

// List returns all slots ordered by slot_order ascending.
func (r *SlotRepo) List(ctx context.Context) ([]model.Slot, error) {
	const q = `SELECT id, display_name, slot_order, created_at, updated_at FROM slots ORDER BY slot_order ASC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Slot, 0)
	for rows.Next() {
		var slot model.Slot
		if err := rows.Scan(&slot.ID, &slot.DisplayName, &slot.SlotOrder, &slot.CreatedAt, &slot.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, slot)
	}
	return out, rows.Err()
}
