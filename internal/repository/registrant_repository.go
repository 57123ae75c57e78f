package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/iliyamo/tilawah-registration/internal/model"
)

// mysqlDuplicateEntry is the server error number MySQL raises when an
// insert violates a unique index.
const mysqlDuplicateEntry = 1062

// RegistrantRepo is the MySQL-backed RegistrantStore. The admission
// decision lives entirely inside Admit's transaction: the unique
// index on registrations.identity_key rejects duplicate identities
// and a row lock on the slot serializes capacity checks per slot, so
// the database — not this process — decides the loser of every race.
type RegistrantRepo struct {
	db *sql.DB
	// defaultCapacity applies when the max_per_slot settings row has
	// never been written.
	defaultCapacity int
}

// NewRegistrantRepo returns a RegistrantRepo bound to the given
// database. defaultCapacity is used until an administrator sets
// max_per_slot explicitly.
func NewRegistrantRepo(db *sql.DB, defaultCapacity int) *RegistrantRepo {
	return &RegistrantRepo{db: db, defaultCapacity: defaultCapacity}
}

// DB exposes the underlying handle for callers that need to compose
// transactions across repositories.
func (r *RegistrantRepo) DB() *sql.DB { return r.db }

// Admit atomically admits a registrant. The transaction:
//
//  1. locks the slot row (SELECT ... FOR UPDATE) — concurrent
//     admissions to the same slot serialize here;
//  2. reads max_per_slot from the settings table, so a capacity
//     change is in effect for every admission that commits after it;
//  3. counts current occupancy and rejects with ErrSlotFull when the
//     ceiling is reached;
//  4. inserts the registrant — the unique index on identity_key
//     rejects duplicates across all slots with ErrDuplicateIdentity.
//
// Any failure other than a constraint rejection is reported as
// ErrUnavailable: the caller cannot tell how far the attempt got, and
// the path is safe to re-run because a retry that already succeeded
// surfaces as ErrDuplicateIdentity rather than a second admission.
func (r *RegistrantRepo) Admit(ctx context.Context, reg *model.Registrant) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", ErrUnavailable, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// Lock the slot row. FOR UPDATE blocks other admissions to the
	// same slot until this transaction commits or rolls back.
	var slotID uint64
	const lockQ = `SELECT id FROM slots WHERE id = ? FOR UPDATE`
	if err := tx.QueryRowContext(ctx, lockQ, reg.SlotID).Scan(&slotID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrSlotNotFound
		}
		return fmt.Errorf("%w: lock slot: %v", ErrUnavailable, err)
	}

	capacity, err := capacityTx(ctx, tx, r.defaultCapacity)
	if err != nil {
		return fmt.Errorf("%w: read capacity: %v", ErrUnavailable, err)
	}

	var occupied int
	const countQ = `SELECT COUNT(*) FROM registrations WHERE slot_id = ?`
	if err := tx.QueryRowContext(ctx, countQ, reg.SlotID).Scan(&occupied); err != nil {
		return fmt.Errorf("%w: count slot: %v", ErrUnavailable, err)
	}
	if occupied >= capacity {
		return ErrSlotFull
	}

	if reg.ID == "" {
		reg.ID = uuid.NewString()
	}
	reg.CreatedAt = time.Now().UTC()
	const insQ = `INSERT INTO registrations
	              (id, identity_key, slot_id, name, fathers_name, email, date_of_birth, tajweed_level, created_at)
	              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, insQ,
		reg.ID, reg.IdentityKey, reg.SlotID, reg.Name, reg.FathersName,
		reg.Email, reg.DateOfBirth, reg.TajweedLevel, reg.CreatedAt,
	)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
			return ErrDuplicateIdentity
		}
		return fmt.Errorf("%w: insert: %v", ErrUnavailable, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrUnavailable, err)
	}
	committed = true
	return nil
}

// capacityTx reads max_per_slot inside the given transaction, falling
// back to def when the row has never been written.
func capacityTx(ctx context.Context, tx *sql.Tx, def int) (int, error) {
	var raw string
	const q = `SELECT v FROM settings WHERE k = ?`
	err := tx.QueryRowContext(ctx, q, SettingMaxPerSlot).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return def, nil
	}
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def, nil
	}
	return n, nil
}

// FindByIdentity returns the registrant holding the given identity
// key, or ErrRegistrantNotFound.
func (r *RegistrantRepo) FindByIdentity(ctx context.Context, identityKey string) (*model.Registrant, error) {
	const q = `SELECT id, identity_key, slot_id, name, fathers_name, email, date_of_birth, tajweed_level, created_at
	           FROM registrations WHERE identity_key = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, q, identityKey))
}

// CountBySlot returns occupancy per slot for every slot that has at
// least one registrant.
func (r *RegistrantRepo) CountBySlot(ctx context.Context) (map[uint64]int, error) {
	const q = `SELECT slot_id, COUNT(*) FROM registrations GROUP BY slot_id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[uint64]int)
	for rows.Next() {
		var slotID uint64
		var n int
		if err := rows.Scan(&slotID, &n); err != nil {
			return nil, err
		}
		counts[slotID] = n
	}
	return counts, rows.Err()
}

// List returns all registrants ordered by admission time ascending.
func (r *RegistrantRepo) List(ctx context.Context) ([]model.Registrant, error) {
	const q = `SELECT id, identity_key, slot_id, name, fathers_name, email, date_of_birth, tajweed_level, created_at
	           FROM registrations ORDER BY created_at ASC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Registrant, 0)
	for rows.Next() {
		var reg model.Registrant
		var fathers sql.NullString
		if err := rows.Scan(&reg.ID, &reg.IdentityKey, &reg.SlotID, &reg.Name,
			&fathers, &reg.Email, &reg.DateOfBirth, &reg.TajweedLevel, &reg.CreatedAt); err != nil {
			return nil, err
		}
		reg.FathersName = fathers.String
		out = append(out, reg)
	}
	return out, rows.Err()
}

// Delete removes a registrant by ID. Returns ErrRegistrantNotFound
// when no row matched.
func (r *RegistrantRepo) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM registrations WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRegistrantNotFound
	}
	return nil
}

func (r *RegistrantRepo) scanOne(row *sql.Row) (*model.Registrant, error) {
	var reg model.Registrant
	var fathers sql.NullString
	err := row.Scan(&reg.ID, &reg.IdentityKey, &reg.SlotID, &reg.Name,
		&fathers, &reg.Email, &reg.DateOfBirth, &reg.TajweedLevel, &reg.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRegistrantNotFound
	}
	if err != nil {
		return nil, err
	}
	reg.FathersName = fathers.String
	return &reg, nil
}
