package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"parkspace-backend/internal/domain"
	"parkspace-backend/internal/logger"
	"parkspace-backend/internal/repository"
)

type ledgerRepository struct {
	db *sql.DB
}

func NewLedgerRepository(db *sql.DB) repository.LedgerRepository {
	return &ledgerRepository{db: db}
}

// Reserve claims the key before touching the counter, so a key still held
// reports ErrDuplicateReservation even on a full lot. The conditional
// decrement serializes reservers on the lot row; only those that still see
// available_spaces > 0 succeed.
func (r *ledgerRepository) Reserve(ctx context.Context, lotID int64, key string) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		claim := `INSERT INTO space_reservations (reservation_key, parking_lot_id, reserved_at)
		          VALUES ($1, $2, NOW())
		          ON CONFLICT (reservation_key) DO UPDATE
		          SET parking_lot_id = EXCLUDED.parking_lot_id, reserved_at = NOW(), released_at = NULL
		          WHERE space_reservations.released_at IS NOT NULL`
		logger.DatabaseCall("reserve_space", claim, "lot_id", lotID, "reservation_key", key)
		res, err := tx.ExecContext(ctx, claim, key, lotID)
		if pqCode(err) == "foreign_key_violation" {
			return fmt.Errorf("LedgerRepository.Reserve: %w: parking lot %d", domain.ErrNotFound, lotID)
		}
		if err != nil {
			return wrap("LedgerRepository.Reserve", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return wrap("LedgerRepository.Reserve", err)
		}
		if n == 0 {
			return fmt.Errorf("LedgerRepository.Reserve: %w: %s", domain.ErrDuplicateReservation, key)
		}

		decrement := `UPDATE parking_lots SET available_spaces = available_spaces - 1, updated_at = NOW()
		              WHERE id = $1 AND is_active = TRUE AND available_spaces > 0`
		res, err = tx.ExecContext(ctx, decrement, lotID)
		if err != nil {
			return wrap("LedgerRepository.Reserve", err)
		}
		if n, err = res.RowsAffected(); err != nil {
			return wrap("LedgerRepository.Reserve", err)
		}
		logger.DatabaseResult("reserve_space", n, nil, "lot_id", lotID)
		if n == 0 {
			return r.reserveFailure(ctx, tx, lotID)
		}
		return nil
	})
}

func (r *ledgerRepository) reserveFailure(ctx context.Context, tx *sql.Tx, lotID int64) error {
	var active bool
	err := tx.QueryRowContext(ctx, `SELECT is_active FROM parking_lots WHERE id = $1`, lotID).Scan(&active)
	if err != nil {
		return wrap("LedgerRepository.Reserve", err)
	}
	if !active {
		return fmt.Errorf("LedgerRepository.Reserve: %w: parking lot %d is inactive", domain.ErrNotFound, lotID)
	}
	return fmt.Errorf("LedgerRepository.Reserve: %w", domain.ErrCapacityExceeded)
}

func (r *ledgerRepository) Release(ctx context.Context, lotID int64, key string) (bool, error) {
	released := false
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		mark := `UPDATE space_reservations SET released_at = NOW()
		         WHERE reservation_key = $1 AND parking_lot_id = $2 AND released_at IS NULL`
		logger.DatabaseCall("release_space", mark, "lot_id", lotID, "reservation_key", key)
		res, err := tx.ExecContext(ctx, mark, key, lotID)
		if err != nil {
			return wrap("LedgerRepository.Release", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return wrap("LedgerRepository.Release", err)
		}
		if n == 0 {
			var releasedAt sql.NullTime
			err := tx.QueryRowContext(ctx,
				`SELECT released_at FROM space_reservations WHERE reservation_key = $1 AND parking_lot_id = $2`,
				key, lotID).Scan(&releasedAt)
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("LedgerRepository.Release: %w: reservation %s", domain.ErrNotFound, key)
			}
			return wrap("LedgerRepository.Release", err)
		}

		increment := `UPDATE parking_lots SET available_spaces = LEAST(available_spaces + 1, total_spaces), updated_at = NOW()
		              WHERE id = $1`
		if _, err := tx.ExecContext(ctx, increment, lotID); err != nil {
			return wrap("LedgerRepository.Release", err)
		}
		released = true
		return nil
	})
	logger.DatabaseResult("release_space", 0, err, "lot_id", lotID, "released", released)
	return released, err
}

func (r *ledgerRepository) ListStranded(ctx context.Context, olderThan time.Time, limit int) ([]domain.SpaceReservation, error) {
	query := `SELECT sr.reservation_key, sr.parking_lot_id, sr.reserved_at
	          FROM space_reservations sr
	          WHERE sr.released_at IS NULL AND sr.reserved_at < $1
	            AND NOT EXISTS (SELECT 1 FROM bookings b
	                          WHERE b.reservation_key = sr.reservation_key AND b.status = 'confirmed')
	          ORDER BY sr.reserved_at ASC LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, olderThan, limit)
	if err != nil {
		return nil, wrap("LedgerRepository.ListStranded", err)
	}
	defer rows.Close()

	out := []domain.SpaceReservation{}
	for rows.Next() {
		var sr domain.SpaceReservation
		if err := rows.Scan(&sr.Key, &sr.ParkingLotID, &sr.ReservedAt); err != nil {
			return nil, wrap("LedgerRepository.ListStranded", err)
		}
		out = append(out, sr)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("LedgerRepository.ListStranded", err)
	}
	return out, nil
}
