// Package lifecycle validates and applies booking status and payment-status
// changes. Every function works on a copy of the booking: the input record is
// never mutated, so a failed persist leaves the caller's record untouched.
package lifecycle

import (
	"strings"
	"time"

	bookingserrors "gotour/internal/bookings/errors"
	"gotour/pkg/model"
)

const DefaultCancellationReason = "user cancelled"

var (
	validStatuses = map[string]bool{
		model.StatusPending:   true,
		model.StatusConfirmed: true,
		model.StatusCancelled: true,
		model.StatusCompleted: true,
	}

	validPaymentStatuses = map[string]bool{
		model.PaymentPending:  true,
		model.PaymentPaid:     true,
		model.PaymentRefunded: true,
		model.PaymentFailed:   true,
	}
)

func IsValidStatus(s string) bool {
	return validStatuses[s]
}

func IsValidPaymentStatus(s string) bool {
	return validPaymentStatuses[s]
}

// TransitionStatus moves b to the requested status on behalf of actor.
// Completed bookings are terminal for any request, valid or not.
func TransitionStatus(b *model.Booking, requested string, actor model.Actor, now time.Time) (*model.Booking, error) {
	if b.Status == model.StatusCompleted {
		return nil, bookingserrors.ErrTerminalState
	}
	if !IsValidStatus(requested) {
		return nil, bookingserrors.ErrInvalidStatus
	}
	if !actor.CanAccess(b) {
		return nil, bookingserrors.ErrForbidden
	}

	next := b.Clone()
	next.Status = requested
	next.UpdatedAt = now
	return next, nil
}

// Cancel applies the user-facing cancellation. Completed and already cancelled
// bookings are rejected regardless of who asks.
func Cancel(b *model.Booking, actor model.Actor, reason string, now time.Time) (*model.Booking, error) {
	if b.Status == model.StatusCompleted || b.Status == model.StatusCancelled {
		return nil, bookingserrors.ErrNotCancellable
	}
	if !actor.CanAccess(b) {
		return nil, bookingserrors.ErrForbidden
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = DefaultCancellationReason
	}

	next := b.Clone()
	next.Status = model.StatusCancelled
	next.CancellationReason = reason
	next.UpdatedAt = now
	return next, nil
}

// TransitionPaymentStatus sets the payment status. Any valid value may follow
// any other; payment state is independent of the booking status.
func TransitionPaymentStatus(b *model.Booking, requested string, now time.Time) (*model.Booking, error) {
	if !IsValidPaymentStatus(requested) {
		return nil, bookingserrors.ErrInvalidPaymentStatus
	}

	next := b.Clone()
	next.PaymentStatus = requested
	next.UpdatedAt = now
	return next, nil
}
