// Package locker provides DayLocker implementations for the scheduling
// engine: an in-process keyed mutex for single-instance deployments and a
// Redis lock for fleets. Both bound their wait and surface BusyError so a
// stuck day never blocks a request indefinitely.
package locker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/md-rashed-zaman/apptsched/internal/scheduling"
)

const defaultWait = 2 * time.Second

// Local serializes bookings per (subject, day) within one process. Entries
// are reference-counted and dropped once the last holder or waiter leaves,
// so the map does not grow with the number of days ever booked.
type Local struct {
	wait  time.Duration
	mu    sync.Mutex
	locks map[string]*localEntry
}

type localEntry struct {
	sem  chan struct{} // capacity 1: the lock token
	refs int
}

func NewLocal(wait time.Duration) *Local {
	if wait <= 0 {
		wait = defaultWait
	}
	return &Local{wait: wait, locks: make(map[string]*localEntry)}
}

func (l *Local) Acquire(ctx context.Context, subjectID int64, day string) (func(), error) {
	key := dayKey(subjectID, day)

	l.mu.Lock()
	entry, ok := l.locks[key]
	if !ok {
		entry = &localEntry{sem: make(chan struct{}, 1)}
		l.locks[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	timer := time.NewTimer(l.wait)
	defer timer.Stop()

	select {
	case entry.sem <- struct{}{}:
		var once sync.Once
		release := func() {
			once.Do(func() {
				<-entry.sem
				l.unref(key, entry)
			})
		}
		return release, nil
	case <-timer.C:
		l.unref(key, entry)
		return nil, &scheduling.BusyError{SubjectID: subjectID, Day: day}
	case <-ctx.Done():
		l.unref(key, entry)
		return nil, ctx.Err()
	}
}

func (l *Local) unref(key string, entry *localEntry) {
	l.mu.Lock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, key)
	}
	l.mu.Unlock()
}

func dayKey(subjectID int64, day string) string {
	return fmt.Sprintf("%d:%s", subjectID, day)
}
