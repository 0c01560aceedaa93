package lock

import (
	"context"
	"sync"
)

type localDoctorLocker struct {
	mu      sync.Mutex
	doctors map[int64]*sync.Mutex
}

// NewLocalDoctorLocker creates an in-process per-doctor mutex. Only safe when
// a single instance of the engine owns the appointment store.
func NewLocalDoctorLocker() DoctorLocker {
	return &localDoctorLocker{
		doctors: make(map[int64]*sync.Mutex),
	}
}

func (l *localDoctorLocker) WithDoctorLock(ctx context.Context, doctorID int64, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return ErrLockNotAcquired
	}

	dm := l.doctorMutex(doctorID)
	dm.Lock()
	defer dm.Unlock()

	return fn(ctx)
}

func (l *localDoctorLocker) doctorMutex(doctorID int64) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	dm, ok := l.doctors[doctorID]
	if !ok {
		dm = &sync.Mutex{}
		l.doctors[doctorID] = dm
	}
	return dm
}
