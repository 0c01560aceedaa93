package lock

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalDoctorLockerSerializesOneDoctor(t *testing.T) {
	locker := NewLocalDoctorLocker()

	const workers = 50
	inSection := 0
	maxInSection := 0
	var mu sync.Mutex

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := locker.WithDoctorLock(context.Background(), 7, func(ctx context.Context) error {
				mu.Lock()
				inSection++
				if inSection > maxInSection {
					maxInSection = inSection
				}
				mu.Unlock()

				mu.Lock()
				inSection--
				mu.Unlock()
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxInSection, "critical section must admit one booking at a time")
}

func TestLocalDoctorLockerIndependentDoctors(t *testing.T) {
	locker := NewLocalDoctorLocker()

	// Hold doctor 1's lock, then take doctor 2's lock from the same
	// goroutine; contention across doctors would deadlock here.
	err := locker.WithDoctorLock(context.Background(), 1, func(ctx context.Context) error {
		return locker.WithDoctorLock(ctx, 2, func(ctx context.Context) error {
			return nil
		})
	})
	require.NoError(t, err)
}

func TestLocalDoctorLockerCancelledContext(t *testing.T) {
	locker := NewLocalDoctorLocker()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := locker.WithDoctorLock(ctx, 3, func(ctx context.Context) error {
		t.Fatal("critical section must not run after cancellation")
		return nil
	})
	assert.ErrorIs(t, err, ErrLockNotAcquired)
}
