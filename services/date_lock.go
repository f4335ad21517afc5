package services

import (
	"sort"
	"sync"
)

// DateLocker serializes work on a (lawyer, date) pair within the process.
// Combined with immediate SQLite transactions it keeps the capacity check and
// the insert that depends on it in one critical section.
type DateLocker struct {
	mu    sync.Mutex
	locks map[string]*dateLock
}

type dateLock struct {
	mu   sync.Mutex
	refs int
}

func NewDateLocker() *DateLocker {
	return &DateLocker{locks: make(map[string]*dateLock)}
}

// Lock blocks until the (lawyerID, date) pair is free and returns its unlock function
func (l *DateLocker) Lock(lawyerID, date string) func() {
	key := lawyerID + "|" + date

	l.mu.Lock()
	lock, ok := l.locks[key]
	if !ok {
		lock = &dateLock{}
		l.locks[key] = lock
	}
	lock.refs++
	l.mu.Unlock()

	lock.mu.Lock()

	return func() {
		lock.mu.Unlock()

		l.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}

// LockMany locks several dates of one lawyer in sorted order so concurrent range operations cannot deadlock
func (l *DateLocker) LockMany(lawyerID string, dates []string) func() {
	sorted := append([]string(nil), dates...)
	sort.Strings(sorted)

	unlocks := make([]func(), 0, len(sorted))
	for i, date := range sorted {
		if i > 0 && sorted[i-1] == date {
			continue
		}
		unlocks = append(unlocks, l.Lock(lawyerID, date))
	}

	return func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
}
