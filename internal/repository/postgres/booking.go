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

const bookingColumns = `id, user_id, user_email, parking_lot_id, start_time, end_time, vehicle_info, contact_number,
	special_requests, duration_type, payment_method, total_cost, status, payment_status, transaction_id,
	reservation_key, idempotency_key, cancellation_reason, cancelled_at, created_at, updated_at`

type bookingRepository struct {
	db *sql.DB
}

func NewBookingRepository(db *sql.DB) repository.BookingRepository {
	return &bookingRepository{db: db}
}

func scanBooking(row rowScanner) (*domain.Booking, error) {
	b := &domain.Booking{}
	var idem sql.NullString
	var cancelledAt sql.NullTime
	err := row.Scan(&b.ID, &b.UserID, &b.UserEmail, &b.ParkingLotID, &b.StartTime, &b.EndTime, &b.VehicleInfo,
		&b.ContactNumber, &b.SpecialRequests, &b.DurationType, &b.PaymentMethod, &b.TotalCost, &b.Status,
		&b.PaymentStatus, &b.TransactionID, &b.ReservationKey, &idem, &b.CancellationReason, &cancelledAt,
		&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if idem.Valid {
		b.IdempotencyKey = &idem.String
	}
	if cancelledAt.Valid {
		b.CancelledAt = &cancelledAt.Time
	}
	return b, nil
}

func (r *bookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	query := `INSERT INTO bookings (user_id, user_email, parking_lot_id, start_time, end_time, vehicle_info, contact_number,
	          special_requests, duration_type, payment_method, total_cost, status, payment_status, transaction_id,
	          reservation_key, idempotency_key)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16) RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, b.UserID, b.UserEmail, b.ParkingLotID, b.StartTime, b.EndTime, b.VehicleInfo,
		b.ContactNumber, b.SpecialRequests, b.DurationType, b.PaymentMethod, b.TotalCost, b.Status, b.PaymentStatus,
		b.TransactionID, b.ReservationKey, b.IdempotencyKey).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if pqCode(err) == "unique_violation" {
		return fmt.Errorf("BookingRepository.Create: %w", domain.ErrDuplicateReservation)
	}
	return wrap("BookingRepository.Create", err)
}

func (r *bookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	b, err := scanBooking(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, wrap("BookingRepository.GetByID", err)
	}
	return b, nil
}

func (r *bookingRepository) GetByIdempotencyKey(ctx context.Context, userID int64, key string) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE user_id = $1 AND idempotency_key = $2`
	b, err := scanBooking(r.db.QueryRowContext(ctx, query, userID, key))
	if err != nil {
		return nil, wrap("BookingRepository.GetByIdempotencyKey", err)
	}
	return b, nil
}

func (r *bookingRepository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Booking, int, error) {
	return r.listBy(ctx, "BookingRepository.ListByUser", "user_id", userID, limit, offset)
}

func (r *bookingRepository) ListByLot(ctx context.Context, lotID int64, limit, offset int) ([]domain.Booking, int, error) {
	return r.listBy(ctx, "BookingRepository.ListByLot", "parking_lot_id", lotID, limit, offset)
}

func (r *bookingRepository) listBy(ctx context.Context, op, column string, id int64, limit, offset int) ([]domain.Booking, int, error) {
	var total int
	countQuery := fmt.Sprintf(`SELECT count(*) FROM bookings WHERE %s = $1`, column)
	if err := r.db.QueryRowContext(ctx, countQuery, id).Scan(&total); err != nil {
		return nil, 0, wrap(op, err)
	}

	query := fmt.Sprintf(`SELECT %s FROM bookings WHERE %s = $1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`,
		bookingColumns, column)
	// LIMIT NULL is no limit
	rows, err := r.db.QueryContext(ctx, query, id, sql.NullInt64{Int64: int64(limit), Valid: limit > 0}, offset)
	if err != nil {
		return nil, 0, wrap(op, err)
	}
	defer rows.Close()

	bookings, err := collectBookings(rows, op)
	if err != nil {
		return nil, 0, err
	}
	return bookings, total, nil
}

func collectBookings(rows *sql.Rows, op string) ([]domain.Booking, error) {
	bookings := []domain.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, wrap(op, err)
		}
		bookings = append(bookings, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(op, err)
	}
	return bookings, nil
}

func (r *bookingRepository) Cancel(ctx context.Context, id int64, reason string, at time.Time) (*domain.Booking, error) {
	query := `UPDATE bookings
	          SET status = 'cancelled',
	              payment_status = CASE WHEN payment_status = 'paid' THEN 'refunded' ELSE payment_status END,
	              cancellation_reason = $2, cancelled_at = $3, updated_at = NOW()
	          WHERE id = $1 AND status = 'confirmed'
	          RETURNING ` + bookingColumns
	b, err := scanBooking(r.db.QueryRowContext(ctx, query, id, reason, at))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, r.transitionError(ctx, "BookingRepository.Cancel", id)
	}
	if err != nil {
		return nil, wrap("BookingRepository.Cancel", err)
	}
	return b, nil
}

func (r *bookingRepository) Complete(ctx context.Context, id int64) error {
	query := `UPDATE bookings SET status = 'completed', updated_at = NOW() WHERE id = $1 AND status = 'confirmed'`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return wrap("BookingRepository.Complete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrap("BookingRepository.Complete", err)
	}
	if n == 0 {
		return r.transitionError(ctx, "BookingRepository.Complete", id)
	}
	return nil
}

// transitionError distinguishes a missing booking from one that has already
// left the confirmed state.
func (r *bookingRepository) transitionError(ctx context.Context, op string, id int64) error {
	var status string
	err := r.db.QueryRowContext(ctx, `SELECT status FROM bookings WHERE id = $1`, id).Scan(&status)
	if err != nil {
		return wrap(op, err)
	}
	return fmt.Errorf("%s: %w: booking is %s", op, domain.ErrInvalidTransition, status)
}

func (r *bookingRepository) ListElapsed(ctx context.Context, now time.Time, limit int) ([]domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
	          WHERE status = 'confirmed' AND end_time <= $1 ORDER BY end_time ASC, id ASC LIMIT $2`
	logger.DatabaseCall("list_elapsed_bookings", query, "now", now)
	rows, err := r.db.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, wrap("BookingRepository.ListElapsed", err)
	}
	defer rows.Close()
	return collectBookings(rows, "BookingRepository.ListElapsed")
}

func (r *bookingRepository) CountActiveByLot(ctx context.Context, lotID int64, now time.Time) (int, error) {
	var n int
	query := `SELECT count(*) FROM bookings WHERE parking_lot_id = $1 AND status = 'confirmed' AND end_time >= $2`
	if err := r.db.QueryRowContext(ctx, query, lotID, now).Scan(&n); err != nil {
		return 0, wrap("BookingRepository.CountActiveByLot", err)
	}
	return n, nil
}

func (r *bookingRepository) CountByLot(ctx context.Context, lotID int64) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM bookings WHERE parking_lot_id = $1`, lotID).Scan(&n); err != nil {
		return 0, wrap("BookingRepository.CountByLot", err)
	}
	return n, nil
}

func (r *bookingRepository) CountsByLot(ctx context.Context, lotID int64, since time.Time) (*domain.BookingCounts, error) {
	query := `SELECT count(*),
	                 count(*) FILTER (WHERE status = 'confirmed'),
	                 count(*) FILTER (WHERE status = 'completed'),
	                 count(*) FILTER (WHERE status = 'cancelled'),
	                 count(*) FILTER (WHERE created_at >= $2),
	                 COALESCE(SUM(total_cost) FILTER (WHERE status = 'completed'), 0)
	          FROM bookings WHERE parking_lot_id = $1`
	c := &domain.BookingCounts{}
	err := r.db.QueryRowContext(ctx, query, lotID, since).Scan(&c.Total, &c.Active, &c.Completed, &c.Cancelled, &c.Recent, &c.Revenue)
	if err != nil {
		return nil, wrap("BookingRepository.CountsByLot", err)
	}
	return c, nil
}
