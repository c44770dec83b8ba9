package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"parkspace-backend/internal/cache"
	"parkspace-backend/internal/domain"
	"parkspace-backend/internal/events"
	"parkspace-backend/internal/logger"
	"parkspace-backend/internal/payment"
	"parkspace-backend/internal/repository"
	"parkspace-backend/internal/utils"
)

const (
	sweepBatchSize = 100
	// compensationTimeout bounds releases and refunds that must run even
	// after the request context is gone.
	compensationTimeout = 5 * time.Second
)

type BookingOptions struct {
	Currency       string
	PaymentTimeout time.Duration
	ReservationTTL time.Duration
	Clock          func() time.Time
}

type bookingService struct {
	lotRepo     repository.LotRepository
	bookingRepo repository.BookingRepository
	ledgerRepo  repository.LedgerRepository
	processor   payment.Processor
	emailSvc    EmailService
	publisher   events.Publisher
	lotCache    cache.LotCache
	opts        BookingOptions
}

func NewBookingService(
	repos repository.Repositories,
	processor payment.Processor,
	emailSvc EmailService,
	publisher events.Publisher,
	lotCache cache.LotCache,
	opts BookingOptions,
) BookingService {
	if emailSvc == nil {
		emailSvc = NewNopEmailService()
	}
	if publisher == nil {
		publisher = events.NewNopPublisher()
	}
	if lotCache == nil {
		lotCache = cache.NewNopLotCache()
	}
	if opts.Currency == "" {
		opts.Currency = "USD"
	}
	if opts.PaymentTimeout <= 0 {
		opts.PaymentTimeout = 10 * time.Second
	}
	if opts.ReservationTTL <= 0 {
		opts.ReservationTTL = 15 * time.Minute
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &bookingService{
		lotRepo:     repos.Lots,
		bookingRepo: repos.Bookings,
		ledgerRepo:  repos.Ledger,
		processor:   processor,
		emailSvc:    emailSvc,
		publisher:   publisher,
		lotCache:    lotCache,
		opts:        opts,
	}
}

func (s *bookingService) now() time.Time {
	return s.opts.Clock()
}

func (s *bookingService) activeLot(ctx context.Context, id int64) (*domain.ParkingLot, error) {
	lot, err := s.lotRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !lot.IsActive {
		return nil, fmt.Errorf("parking lot %d: %w", id, domain.ErrNotFound)
	}
	return lot, nil
}

func (s *bookingService) QuoteBooking(ctx context.Context, lotID int64, start, end time.Time, durationType domain.DurationType) (*domain.PriceQuote, error) {
	if !durationType.Valid() {
		return nil, domain.Validationf("unknown duration type %q", durationType)
	}
	lot, err := s.activeLot(ctx, lotID)
	if err != nil {
		return nil, err
	}
	q, err := utils.Quote(lot.PricePerHour, start, end, durationType)
	if err != nil {
		return nil, err
	}
	rounded := q.Rounded()
	return &rounded, nil
}

// reject ends the attempt and reports it together with the cause.
func (s *bookingService) reject(ctx context.Context, a *domain.BookingAttempt, cause error) (*domain.BookingResult, error) {
	if err := a.Reject(cause.Error()); err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "Booking rejected",
		"user_id", a.Booking.UserID, "lot_id", a.Booking.ParkingLotID, "reason", a.Reason)
	return &domain.BookingResult{State: a.State, Reason: a.Reason}, cause
}

// CreateBooking runs one attempt through reserve, charge and persist. A
// rejected attempt returns its result alongside the error that caused it.
func (s *bookingService) CreateBooking(ctx context.Context, p domain.Principal, in domain.CreateBookingInput) (*domain.BookingResult, error) {
	if err := Authorize(p, ActionCreateBooking); err != nil {
		return nil, err
	}

	b := &domain.Booking{
		UserID:          p.ID,
		UserEmail:       p.Email,
		ParkingLotID:    in.ParkingLotID,
		StartTime:       in.StartTime,
		EndTime:         in.EndTime,
		VehicleInfo:     in.VehicleInfo,
		ContactNumber:   in.ContactNumber,
		SpecialRequests: in.SpecialRequests,
		DurationType:    in.DurationType,
		PaymentMethod:   in.PaymentMethod,
		Status:          domain.BookingStatusPending,
		PaymentStatus:   domain.PaymentStatusUnpaid,
	}
	attempt := domain.NewBookingAttempt(b)

	if err := in.Validate(s.now()); err != nil {
		return s.reject(ctx, attempt, err)
	}

	if in.IdempotencyKey != "" {
		if res, err := s.replay(ctx, p.ID, in.IdempotencyKey); res != nil || err != nil {
			return res, err
		}
		key := in.IdempotencyKey
		b.IdempotencyKey = &key
	}

	lot, err := s.activeLot(ctx, in.ParkingLotID)
	if err != nil {
		return nil, err
	}

	q, err := utils.Quote(lot.PricePerHour, in.StartTime, in.EndTime, in.DurationType)
	if err != nil {
		return s.reject(ctx, attempt, err)
	}
	quote := q.Rounded()
	b.TotalCost = quote.Total

	b.ReservationKey = reservationKey(p.ID, in.IdempotencyKey)
	if err := s.ledgerRepo.Reserve(ctx, lot.ID, b.ReservationKey); err != nil {
		switch {
		case errors.Is(err, domain.ErrCapacityExceeded):
			return s.reject(ctx, attempt, domain.ErrCapacityExceeded)
		case errors.Is(err, domain.ErrDuplicateReservation):
			// another attempt with this key holds the unit
			if res, rerr := s.replay(ctx, p.ID, in.IdempotencyKey); res != nil || rerr != nil {
				return res, rerr
			}
			return s.reject(ctx, attempt, domain.ErrDuplicateReservation)
		}
		return nil, err
	}
	if in.IdempotencyKey != "" {
		// a finished attempt may have released the key before this one re-armed it
		if res, err := s.replay(ctx, p.ID, in.IdempotencyKey); res != nil || err != nil {
			s.release(ctx, lot.ID, b.ReservationKey)
			return res, err
		}
	}
	if err := attempt.Transition(domain.StatePendingPayment); err != nil {
		s.release(ctx, lot.ID, b.ReservationKey)
		return nil, err
	}

	charge, err := s.charge(ctx, b, in.PaymentDetails)
	if err != nil {
		s.release(ctx, lot.ID, b.ReservationKey)
		return s.reject(ctx, attempt, err)
	}

	b.TransactionID = charge.TransactionID
	b.Status = domain.BookingStatusConfirmed
	b.PaymentStatus = domain.PaymentStatusPaid
	if err := s.bookingRepo.Create(ctx, b); err != nil {
		s.release(ctx, lot.ID, b.ReservationKey)
		s.refund(ctx, b)
		logger.ErrorContext(ctx, "Booking could not be saved after payment",
			"user_id", p.ID, "lot_id", lot.ID, "transaction_id", b.TransactionID, "error", err)
		if errors.Is(err, domain.ErrDuplicateReservation) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: booking could not be saved", domain.ErrPersistence)
	}
	if err := attempt.Transition(domain.StateConfirmed); err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "Booking confirmed",
		"booking_id", b.ID, "user_id", p.ID, "lot_id", lot.ID, "total", b.TotalCost, "transaction_id", b.TransactionID)

	s.lotCache.Invalidate(ctx)
	s.publish(ctx, events.BookingConfirmed, b, lot.Name)
	if err := s.emailSvc.SendBookingConfirmation(ctx, b.UserEmail, lot.Name, b, s.opts.Currency); err != nil {
		logger.WarnContext(ctx, "Booking confirmation email failed", "booking_id", b.ID, "error", err)
	}

	return &domain.BookingResult{State: attempt.State, Booking: b, Quote: &quote}, nil
}

// reservationKey ties the ledger entry to the caller's idempotency key so
// that concurrent retries collide in Reserve before any charge.
func reservationKey(userID int64, idempotencyKey string) string {
	if idempotencyKey == "" {
		return uuid.NewString()
	}
	return fmt.Sprintf("idem:%d:%s", userID, idempotencyKey)
}

// replay returns the stored result for a key already used by the caller,
// or nil when the key is unused.
func (s *bookingService) replay(ctx context.Context, userID int64, key string) (*domain.BookingResult, error) {
	existing, err := s.bookingRepo.GetByIdempotencyKey(ctx, userID, key)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "Booking request replayed", "booking_id", existing.ID, "user_id", userID)
	return &domain.BookingResult{State: domain.BookingState(existing.Status), Booking: existing, Replay: true}, nil
}

// charge calls the processor under the payment timeout. Declines and
// timeouts both come back as ErrPaymentFailed.
func (s *bookingService) charge(ctx context.Context, b *domain.Booking, details domain.PaymentDetails) (payment.ChargeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.PaymentTimeout)
	defer cancel()

	res, err := s.processor.Charge(ctx, payment.ChargeRequest{
		Reference: b.ReservationKey,
		Amount:    b.TotalCost,
		Currency:  s.opts.Currency,
		Method:    b.PaymentMethod,
		Details:   details,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return res, fmt.Errorf("%w: payment timed out", domain.ErrPaymentFailed)
		}
		return res, fmt.Errorf("%w: %v", domain.ErrPaymentFailed, err)
	}
	if !res.Success {
		return res, fmt.Errorf("%w: %s", domain.ErrPaymentFailed, res.ErrorReason)
	}
	return res, nil
}

// release returns a reserved unit. It runs detached from ctx's cancellation
// so a dropped client cannot strand capacity; failures are left to the
// reconcile job.
func (s *bookingService) release(ctx context.Context, lotID int64, key string) bool {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	released, err := s.ledgerRepo.Release(ctx, lotID, key)
	if err != nil {
		logger.ErrorContext(ctx, "Reservation release failed", "lot_id", lotID, "reservation_key", key, "error", err)
		return false
	}
	if released {
		s.lotCache.Invalidate(ctx)
	}
	return released
}

func (s *bookingService) refund(ctx context.Context, b *domain.Booking) {
	if b.TransactionID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	if err := s.processor.Refund(ctx, b.TransactionID, b.TotalCost); err != nil {
		logger.ErrorContext(ctx, "Refund failed", "booking_id", b.ID, "transaction_id", b.TransactionID, "error", err)
	}
}

func (s *bookingService) publish(ctx context.Context, eventType string, b *domain.Booking, lotName string) {
	ev := events.NewBookingEvent(eventType, b, lotName, s.opts.Currency, s.now())
	if err := s.publisher.Publish(ctx, ev); err != nil {
		logger.WarnContext(ctx, "Booking event not published", "type", eventType, "booking_id", b.ID, "error", err)
	}
}

// complete moves an elapsed booking to completed and returns its unit to
// the pool, since a space re-enters the pool at end_time and the counter
// must equal the units held by confirmed bookings. It reports false when
// another caller got there first.
func (s *bookingService) complete(ctx context.Context, b *domain.Booking) (bool, error) {
	if err := s.bookingRepo.Complete(ctx, b.ID); err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			return false, nil
		}
		return false, err
	}
	b.Status = domain.BookingStatusCompleted
	s.release(ctx, b.ParkingLotID, b.ReservationKey)

	var lotName string
	if lot, err := s.lotRepo.GetByID(ctx, b.ParkingLotID); err == nil {
		lotName = lot.Name
	}
	s.publish(ctx, events.BookingCompleted, b, lotName)
	return true, nil
}

// completeIfElapsed applies complete-on-read.
func (s *bookingService) completeIfElapsed(ctx context.Context, b *domain.Booking) {
	if !b.Elapsed(s.now()) {
		return
	}
	if _, err := s.complete(ctx, b); err != nil {
		logger.WarnContext(ctx, "Complete on read failed", "booking_id", b.ID, "error", err)
		return
	}
	// a concurrent completion also leaves the booking completed
	b.Status = domain.BookingStatusCompleted
}

func (s *bookingService) lotOwner(ctx context.Context, lotID int64) int64 {
	lot, err := s.lotRepo.GetByID(ctx, lotID)
	if err != nil {
		return 0
	}
	return lot.OwnerID
}

func (s *bookingService) GetBooking(ctx context.Context, p domain.Principal, id int64) (*domain.Booking, error) {
	if p.ID == 0 {
		return nil, domain.ErrUnauthenticated
	}
	b, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := Authorize(p, ActionViewBooking, b.UserID, s.lotOwner(ctx, b.ParkingLotID)); err != nil {
		return nil, err
	}
	s.completeIfElapsed(ctx, b)
	return b, nil
}

func (s *bookingService) ListMyBookings(ctx context.Context, p domain.Principal, limit, offset int) ([]domain.Booking, int, error) {
	if p.ID == 0 {
		return nil, 0, domain.ErrUnauthenticated
	}
	if limit < 0 || offset < 0 {
		return nil, 0, fmt.Errorf("%w: limit and offset must not be negative", domain.ErrInvalidArgument)
	}
	list, total, err := s.bookingRepo.ListByUser(ctx, p.ID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	for i := range list {
		s.completeIfElapsed(ctx, &list[i])
	}
	return list, total, nil
}

func (s *bookingService) ListLotBookings(ctx context.Context, p domain.Principal, lotID int64, limit, offset int) ([]domain.Booking, int, error) {
	if limit < 0 || offset < 0 {
		return nil, 0, fmt.Errorf("%w: limit and offset must not be negative", domain.ErrInvalidArgument)
	}
	lot, err := s.lotRepo.GetByID(ctx, lotID)
	if err != nil {
		return nil, 0, err
	}
	if err := Authorize(p, ActionManageLot, lot.OwnerID); err != nil {
		return nil, 0, err
	}
	list, total, err := s.bookingRepo.ListByLot(ctx, lotID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	for i := range list {
		s.completeIfElapsed(ctx, &list[i])
	}
	return list, total, nil
}

func (s *bookingService) CancelBooking(ctx context.Context, p domain.Principal, id int64, reason string) (*domain.Booking, error) {
	if p.ID == 0 {
		return nil, domain.ErrUnauthenticated
	}
	b, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	lot, err := s.lotRepo.GetByID(ctx, b.ParkingLotID)
	if err != nil {
		return nil, err
	}
	if err := Authorize(p, ActionCancelBooking, b.UserID, lot.OwnerID); err != nil {
		return nil, err
	}

	now := s.now()
	if b.Status != domain.BookingStatusConfirmed {
		return nil, fmt.Errorf("%w: booking is %s", domain.ErrInvalidTransition, b.Status)
	}
	if !b.Cancellable(now) {
		return nil, fmt.Errorf("%w: booking has already started", domain.ErrInvalidTransition)
	}

	cancelled, err := s.bookingRepo.Cancel(ctx, id, reason, now)
	if err != nil {
		return nil, err
	}
	s.release(ctx, lot.ID, cancelled.ReservationKey)
	if cancelled.PaymentStatus == domain.PaymentStatusRefunded {
		s.refund(ctx, cancelled)
	}

	logger.InfoContext(ctx, "Booking cancelled", "booking_id", id, "actor_id", p.ID, "lot_id", lot.ID)

	s.publish(ctx, events.BookingCancelled, cancelled, lot.Name)
	if err := s.emailSvc.SendBookingCancellation(ctx, cancelled.UserEmail, lot.Name, cancelled, s.opts.Currency); err != nil {
		logger.WarnContext(ctx, "Booking cancellation email failed", "booking_id", id, "error", err)
	}
	return cancelled, nil
}

func (s *bookingService) CompleteElapsedBookings(ctx context.Context, now time.Time) (int, error) {
	completed := 0
	for {
		batch, err := s.bookingRepo.ListElapsed(ctx, now, sweepBatchSize)
		if err != nil {
			return completed, err
		}

		progressed := 0
		for i := range batch {
			ok, err := s.complete(ctx, &batch[i])
			if err != nil {
				logger.ErrorContext(ctx, "Failed to complete booking", "booking_id", batch[i].ID, "error", err)
				continue
			}
			progressed++
			if ok {
				completed++
			}
		}

		if len(batch) < sweepBatchSize || progressed == 0 {
			return completed, nil
		}
	}
}

func (s *bookingService) ReconcileStrandedReservations(ctx context.Context, now time.Time) (int, error) {
	stranded, err := s.ledgerRepo.ListStranded(ctx, now.Add(-s.opts.ReservationTTL), sweepBatchSize)
	if err != nil {
		return 0, err
	}

	released := 0
	for _, r := range stranded {
		if s.release(ctx, r.ParkingLotID, r.Key) {
			logger.WarnContext(ctx, "Released stranded reservation",
				"lot_id", r.ParkingLotID, "reservation_key", r.Key, "reserved_at", r.ReservedAt)
			released++
		}
	}
	return released, nil
}
