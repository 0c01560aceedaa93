package lock

import (
	"context"
	"errors"
)

var ErrLockNotAcquired = errors.New("doctor lock not acquired")

// DoctorLocker serializes the check-then-commit section of a booking for a
// single doctor. Bookings for different doctors never contend.
type DoctorLocker interface {
	WithDoctorLock(ctx context.Context, doctorID int64, fn func(ctx context.Context) error) error
}
