package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// Raffle lifecycle
	ErrRaffleNotFound    = errors.New("raffle not found")
	ErrRaffleNotActive   = errors.New("raffle is not active")
	ErrEndDateInPast     = errors.New("raffle end date is in the past")
	ErrTooFewNumbers     = errors.New("raffle has too few numbers")
	ErrNoTicketsSold     = errors.New("raffle has no tickets sold")
	ErrDrawNotDue        = errors.New("raffle draw is not due yet")
	ErrNotDrawn          = errors.New("raffle has not been drawn")
	ErrCancelNotAllowed  = errors.New("raffle cannot be cancelled")
	ErrDeleteNotAllowed  = errors.New("raffle cannot be deleted")
	ErrRaffleNotEditable = errors.New("only draft raffles can be edited")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidRaffle     = errors.New("invalid raffle")
	ErrInvalidFilter     = errors.New("invalid raffle filter")

	// Number ledger and reservations
	ErrNumbersUnavailable   = errors.New("numbers unavailable")
	ErrTooManyNumbers       = errors.New("too many numbers requested")
	ErrNumberOutOfRange     = errors.New("number out of range")
	ErrDuplicateNumbers     = errors.New("duplicate numbers requested")
	ErrNoNumbers            = errors.New("no numbers requested")
	ErrReservationNotFound  = errors.New("reservation not found")
	ErrReservationNotOwned  = errors.New("reservation belongs to another user")
	ErrAlreadyExpired       = errors.New("reservation already expired")
	ErrAlreadyConfirmed     = errors.New("reservation already confirmed")
	ErrReservationCancelled = errors.New("reservation cancelled")

	// Payments
	ErrPaymentNotFound  = errors.New("payment not found")
	ErrUnknownReference = errors.New("unknown payment reference")
	ErrNotApproved      = errors.New("payment is not approved")
	ErrInvalidSignature = errors.New("invalid webhook signature")

	// Storage
	ErrStorageConflict = errors.New("storage conflict")
)

// NumbersUnavailableError names the numbers that could not be claimed.
// It matches ErrNumbersUnavailable with errors.Is.
type NumbersUnavailableError struct {
	Numbers []int64
}

func (e *NumbersUnavailableError) Error() string {
	if len(e.Numbers) == 0 {
		return ErrNumbersUnavailable.Error()
	}
	parts := make([]string, len(e.Numbers))
	for i, n := range e.Numbers {
		parts[i] = strconv.FormatInt(n, 10)
	}
	return fmt.Sprintf("%s: %s", ErrNumbersUnavailable, strings.Join(parts, ", "))
}

func (e *NumbersUnavailableError) Is(target error) bool {
	return target == ErrNumbersUnavailable
}

// UnavailableNumbers extracts the lost numbers from err, if any
func UnavailableNumbers(err error) []int64 {
	var unavailable *NumbersUnavailableError
	if errors.As(err, &unavailable) {
		return unavailable.Numbers
	}
	return nil
}
