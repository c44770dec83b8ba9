package postgres

import (
	"context"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkspace-backend/internal/domain"
)

var bookingRowColumns = []string{"id", "user_id", "user_email", "parking_lot_id", "start_time", "end_time", "vehicle_info",
	"contact_number", "special_requests", "duration_type", "payment_method", "total_cost", "status", "payment_status",
	"transaction_id", "reservation_key", "idempotency_key", "cancellation_reason", "cancelled_at", "created_at", "updated_at"}

func bookingRow(id int64, status domain.BookingStatus, payment domain.PaymentStatus, start time.Time) []driver.Value {
	return []driver.Value{id, int64(3), "driver@example.com", int64(1), start, start.Add(3 * time.Hour), "ABC-1234", "+263771234567",
		"", "hourly", "card", 9.49, string(status), string(payment), "TXN_1", "res-1", nil, "", nil, start, start}
}

func TestBookingRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewBookingRepository(db)
	ctx := context.Background()
	start := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	key := "idem-1"

	b := &domain.Booking{
		UserID:         3,
		UserEmail:      "driver@example.com",
		ParkingLotID:   1,
		StartTime:      start,
		EndTime:        start.Add(3 * time.Hour),
		VehicleInfo:    "ABC-1234",
		ContactNumber:  "+263771234567",
		DurationType:   domain.DurationHourly,
		PaymentMethod:  domain.PaymentMethodCard,
		TotalCost:      9.49,
		Status:         domain.BookingStatusConfirmed,
		PaymentStatus:  domain.PaymentStatusPaid,
		TransactionID:  "TXN_1",
		ReservationKey: "res-1",
		IdempotencyKey: &key,
	}

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO bookings").
			WithArgs(int64(3), "driver@example.com", int64(1), start, start.Add(3*time.Hour), "ABC-1234", "+263771234567", "",
				"hourly", "card", 9.49, "confirmed", "paid", "TXN_1", "res-1", "idem-1").
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(42), start, start))

		require.NoError(t, repo.Create(ctx, b))
		assert.Equal(t, int64(42), b.ID)
	})

	t.Run("Duplicate idempotency key", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO bookings").
			WillReturnError(&pq.Error{Code: "23505", Constraint: "bookings_user_idempotency_key"})

		err := repo.Create(ctx, b)
		assert.ErrorIs(t, err, domain.ErrDuplicateReservation)
	})

	t.Run("Driver failure is a persistence error", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO bookings").WillReturnError(assert.AnError)

		err := repo.Create(ctx, b)
		assert.ErrorIs(t, err, domain.ErrPersistence)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepository_Cancel(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewBookingRepository(db)
	ctx := context.Background()
	start := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	at := start.Add(-2 * time.Hour)
	cancelSQL := regexp.QuoteMeta("UPDATE bookings") + "(.+)" + regexp.QuoteMeta("WHERE id = $1 AND status = 'confirmed'")

	t.Run("Success", func(t *testing.T) {
		row := bookingRow(5, domain.BookingStatusCancelled, domain.PaymentStatusRefunded, start)
		row[17] = "plans changed"
		row[18] = at
		mock.ExpectQuery(cancelSQL).WithArgs(int64(5), "plans changed", at).
			WillReturnRows(sqlmock.NewRows(bookingRowColumns).AddRow(row...))

		b, err := repo.Cancel(ctx, 5, "plans changed", at)
		require.NoError(t, err)
		assert.Equal(t, domain.BookingStatusCancelled, b.Status)
		assert.Equal(t, domain.PaymentStatusRefunded, b.PaymentStatus)
		require.NotNil(t, b.CancelledAt)
		assert.Equal(t, at, *b.CancelledAt)
	})

	t.Run("Already cancelled", func(t *testing.T) {
		mock.ExpectQuery(cancelSQL).WithArgs(int64(6), "", at).
			WillReturnRows(sqlmock.NewRows(bookingRowColumns))
		mock.ExpectQuery("SELECT status FROM bookings").WithArgs(int64(6)).
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("cancelled"))

		_, err := repo.Cancel(ctx, 6, "", at)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})

	t.Run("Missing booking", func(t *testing.T) {
		mock.ExpectQuery(cancelSQL).WithArgs(int64(7), "", at).
			WillReturnRows(sqlmock.NewRows(bookingRowColumns))
		mock.ExpectQuery("SELECT status FROM bookings").WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"status"}))

		_, err := repo.Cancel(ctx, 7, "", at)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepository_ListElapsed(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewBookingRepository(db)
	start := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	now := start.Add(4 * time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE status = 'confirmed' AND end_time <= $1")).WithArgs(now, 50).
		WillReturnRows(sqlmock.NewRows(bookingRowColumns).
			AddRow(bookingRow(1, domain.BookingStatusConfirmed, domain.PaymentStatusPaid, start)...).
			AddRow(bookingRow(2, domain.BookingStatusConfirmed, domain.PaymentStatusPaid, start)...))

	out, err := repo.ListElapsed(context.Background(), now, 50)
	require.NoError(t, err)
	assert.Len(t, out, 2)
	assert.Equal(t, "res-1", out[0].ReservationKey)
	assert.Nil(t, out[0].IdempotencyKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepository_CountsByLot(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewBookingRepository(db)
	since := time.Date(2026, 2, 12, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("count(*) FILTER (WHERE status = 'confirmed')")).WithArgs(int64(1), since).
		WillReturnRows(sqlmock.NewRows([]string{"total", "active", "completed", "cancelled", "recent", "revenue"}).
			AddRow(10, 2, 6, 2, 4, 57.25))

	c, err := repo.CountsByLot(context.Background(), 1, since)
	require.NoError(t, err)
	assert.Equal(t, &domain.BookingCounts{Total: 10, Active: 2, Completed: 6, Cancelled: 2, Recent: 4, Revenue: 57.25}, c)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepository_ListByUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewBookingRepository(db)
	ctx := context.Background()
	start := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	listSQL := regexp.QuoteMeta("WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3")

	t.Run("Page", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM bookings WHERE user_id = $1")).WithArgs(int64(3)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))
		mock.ExpectQuery(listSQL).WithArgs(int64(3), int64(1), 2).
			WillReturnRows(sqlmock.NewRows(bookingRowColumns).
				AddRow(bookingRow(9, domain.BookingStatusConfirmed, domain.PaymentStatusPaid, start)...))

		list, total, err := repo.ListByUser(ctx, 3, 1, 2)
		require.NoError(t, err)
		assert.Equal(t, 4, total)
		require.Len(t, list, 1)
		assert.Equal(t, int64(9), list[0].ID)
	})

	t.Run("Zero limit lists everything", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM bookings WHERE user_id = $1")).WithArgs(int64(3)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
		mock.ExpectQuery(listSQL).WithArgs(int64(3), nil, 0).
			WillReturnRows(sqlmock.NewRows(bookingRowColumns).
				AddRow(bookingRow(1, domain.BookingStatusConfirmed, domain.PaymentStatusPaid, start)...).
				AddRow(bookingRow(2, domain.BookingStatusCompleted, domain.PaymentStatusPaid, start)...))

		list, total, err := repo.ListByUser(ctx, 3, 0, 0)
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		assert.Len(t, list, 2)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
