package update

import (
	log "github.com/sirupsen/logrus"
)

// WakeLocker keeps the device awake while a background operation runs.
// Acquire returns the function that releases the lock.
type WakeLocker interface {
	Acquire(tag string) (release func(), err error)
}

// WakeLockerFunc adapts a function to WakeLocker.
type WakeLockerFunc func(tag string) (func(), error)

// Acquire calls f(tag).
func (f WakeLockerFunc) Acquire(tag string) (func(), error) { return f(tag) }

type noopWakeLocker struct{}

func (noopWakeLocker) Acquire(tag string) (func(), error) {
	log.Tracef("wake lock %s acquired", tag)
	return func() {
		log.Tracef("wake lock %s released", tag)
	}, nil
}

// withWakeLock runs fn while holding a wake lock. The lock is released on
// every exit path, including panics.
func withWakeLock(locker WakeLocker, tag string, fn func() error) error {
	release, err := locker.Acquire(tag)
	if err != nil {
		return err
	}
	defer release()

	return fn()
}
