package service

import "sync"

// jobLocks serializes job mutation per job id inside this process. Stores add
// their own cross-process atomicity (Redis WATCH, Postgres row locks); this
// keeps concurrent Record calls for different platforms of the same job from
// interleaving their read-modify-write cycles.
type jobLocks struct {
	mu    sync.Mutex
	locks map[string]*jobLock
}

type jobLock struct {
	mu   sync.Mutex
	refs int
}

func newJobLocks() *jobLocks {
	return &jobLocks{locks: make(map[string]*jobLock)}
}

// Lock acquires the lock for jobID and returns its release function. Lock
// entries are reference counted and removed when the last holder releases.
func (l *jobLocks) Lock(jobID string) func() {
	l.mu.Lock()
	entry, ok := l.locks[jobID]
	if !ok {
		entry = &jobLock{}
		l.locks[jobID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, jobID)
		}
		l.mu.Unlock()
	}
}
