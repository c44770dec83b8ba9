package jobs

import "context"

// CompleteElapsedBookings moves confirmed bookings past their end time to
// completed and frees their spaces.
func (jr *JobRunner) CompleteElapsedBookings() {
	jr.runWithRecovery("CompleteElapsedBookings", func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		n, err := jr.services.Booking.CompleteElapsedBookings(ctx, jr.now())
		if err != nil {
			jr.log.Error("Failed to complete elapsed bookings", "error", err, "completed", n)
			return
		}
		jr.log.Info("Completed elapsed bookings", "count", n)
	})
}

// ReconcileReservations releases space reservations that no confirmed
// booking holds once they are older than the reservation TTL.
func (jr *JobRunner) ReconcileReservations() {
	jr.runWithRecovery("ReconcileReservations", func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		n, err := jr.services.Booking.ReconcileStrandedReservations(ctx, jr.now())
		if err != nil {
			jr.log.Error("Failed to reconcile reservations", "error", err, "released", n)
			return
		}
		if n > 0 {
			jr.log.Warn("Released stranded reservations", "count", n)
			return
		}
		jr.log.Info("No stranded reservations")
	})
}
