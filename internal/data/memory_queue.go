package data

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/crosspost-labs/publisher-go/internal/core"
	"github.com/crosspost-labs/publisher-go/internal/domain/model"
)

// queueEntry is one queued schedule plus an insertion sequence for stable
// ordering among equal (time, priority) pairs.
type queueEntry struct {
	item core.QueuedSchedule
	seq  uint64
}

// MemoryScheduleQueue is an in-memory ScheduleQueue for tests and single-node
// development. The mutex makes DequeueDue an atomic pop: no entry is ever
// handed to two concurrent consumers.
type MemoryScheduleQueue struct {
	mu      sync.Mutex
	entries []queueEntry
	nextSeq uint64
}

// NewMemoryScheduleQueue creates an empty in-memory queue.
func NewMemoryScheduleQueue() *MemoryScheduleQueue {
	return &MemoryScheduleQueue{}
}

var _ core.ScheduleQueue = (*MemoryScheduleQueue)(nil)

// Enqueue inserts a schedule entry keyed by its scheduled time.
func (q *MemoryScheduleQueue) Enqueue(_ context.Context, jobID string, sched model.PostingSchedule) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.entries = append(q.entries, queueEntry{
		item: core.QueuedSchedule{JobID: jobID, Schedule: sched},
		seq:  q.nextSeq,
	})
	q.nextSeq++
	return nil
}

// DequeueDue atomically removes and returns up to limit due entries ordered by
// scheduled time asc, priority desc, insertion order asc.
func (q *MemoryScheduleQueue) DequeueDue(_ context.Context, now time.Time, limit int) ([]core.QueuedSchedule, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var due, rest []queueEntry
	for _, e := range q.entries {
		if !e.item.Schedule.ScheduledAt.After(now) {
			due = append(due, e)
		} else {
			rest = append(rest, e)
		}
	}
	sort.SliceStable(due, func(i, j int) bool {
		a, b := due[i], due[j]
		if !a.item.Schedule.ScheduledAt.Equal(b.item.Schedule.ScheduledAt) {
			return a.item.Schedule.ScheduledAt.Before(b.item.Schedule.ScheduledAt)
		}
		if a.item.Schedule.Priority != b.item.Schedule.Priority {
			return a.item.Schedule.Priority > b.item.Schedule.Priority
		}
		return a.seq < b.seq
	})

	if limit > 0 && len(due) > limit {
		rest = append(rest, due[limit:]...)
		due = due[:limit]
	}
	q.entries = rest

	out := make([]core.QueuedSchedule, 0, len(due))
	for _, e := range due {
		out = append(out, e.item)
	}
	return out, nil
}

// Remove deletes pending entries for the job, optionally narrowed to one platform.
func (q *MemoryScheduleQueue) Remove(_ context.Context, jobID string, platform model.Platform) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.entries[:0]
	for _, e := range q.entries {
		if e.item.JobID == jobID && (platform == "" || e.item.Schedule.Platform == platform) {
			continue
		}
		kept = append(kept, e)
	}
	q.entries = kept
	return nil
}

// Depth returns the number of pending entries.
func (q *MemoryScheduleQueue) Depth(_ context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries), nil
}
