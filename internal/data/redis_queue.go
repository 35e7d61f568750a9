package data

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/crosspost-labs/publisher-go/internal/core"
	"github.com/crosspost-labs/publisher-go/internal/domain/model"
)

const scheduleQueueKey = "publisher:schedule_queue"

// priorityBand packs priority into the ZSET score below millisecond
// resolution: score = dueMillis*priorityBand + (priorityBand-1-priority).
// Higher priority yields a lower score among equal timestamps, so it pops
// first. Priorities are clamped to [0, priorityBand-1].
const priorityBand = 128

// popDueScript atomically reads and removes due members in one EVAL, so two
// concurrent dispatcher loops can never drain the same entry.
var popDueScript = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, ARGV[2])
if #due > 0 then
  redis.call('ZREM', KEYS[1], unpack(due))
end
return due
`)

// RedisScheduleQueue implements the ScheduleQueue port on a Redis sorted set.
type RedisScheduleQueue struct {
	client redis.UniversalClient
}

// NewRedisScheduleQueue creates a RedisScheduleQueue with the given client.
func NewRedisScheduleQueue(client redis.UniversalClient) *RedisScheduleQueue {
	return &RedisScheduleQueue{client: client}
}

var _ core.ScheduleQueue = (*RedisScheduleQueue)(nil)

// Enqueue adds the schedule entry scored by scheduled time and priority.
func (q *RedisScheduleQueue) Enqueue(ctx context.Context, jobID string, sched model.PostingSchedule) error {
	member, err := json.Marshal(core.QueuedSchedule{JobID: jobID, Schedule: sched})
	if err != nil {
		return fmt.Errorf("marshal schedule: %w", err)
	}

	z := redis.Z{
		Score:  scheduleScore(sched.ScheduledAt, sched.Priority),
		Member: member,
	}
	if err := q.client.ZAdd(ctx, scheduleQueueKey, z).Err(); err != nil {
		return fmt.Errorf("redis zadd schedule: %w", err)
	}
	return nil
}

// DequeueDue pops up to limit due entries atomically via a Lua script.
func (q *RedisScheduleQueue) DequeueDue(ctx context.Context, now time.Time, limit int) ([]core.QueuedSchedule, error) {
	if limit <= 0 {
		limit = 100
	}
	maxScore := scheduleScore(now, 0) + float64(priorityBand-1)

	raw, err := popDueScript.Run(ctx, q.client, []string{scheduleQueueKey},
		fmt.Sprintf("%.0f", maxScore), limit).StringSlice()
	if err != nil {
		return nil, fmt.Errorf("redis pop due schedules: %w", err)
	}

	out := make([]core.QueuedSchedule, 0, len(raw))
	for _, m := range raw {
		var entry core.QueuedSchedule
		if err := json.Unmarshal([]byte(m), &entry); err != nil {
			return nil, fmt.Errorf("unmarshal schedule member: %w", err)
		}
		out = append(out, entry)
	}
	return out, nil
}

// Remove deletes pending entries for the job, optionally narrowed to one
// platform. Members are scanned because the member encoding is opaque JSON.
func (q *RedisScheduleQueue) Remove(ctx context.Context, jobID string, platform model.Platform) error {
	members, err := q.client.ZRange(ctx, scheduleQueueKey, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("redis zrange schedules: %w", err)
	}

	var doomed []any
	for _, m := range members {
		var entry core.QueuedSchedule
		if err := json.Unmarshal([]byte(m), &entry); err != nil {
			continue
		}
		if entry.JobID == jobID && (platform == "" || entry.Schedule.Platform == platform) {
			doomed = append(doomed, m)
		}
	}
	if len(doomed) == 0 {
		return nil
	}
	if err := q.client.ZRem(ctx, scheduleQueueKey, doomed...).Err(); err != nil {
		return fmt.Errorf("redis zrem schedules: %w", err)
	}
	return nil
}

// Depth returns the number of pending entries.
func (q *RedisScheduleQueue) Depth(ctx context.Context) (int, error) {
	n, err := q.client.ZCard(ctx, scheduleQueueKey).Result()
	if err != nil {
		return 0, fmt.Errorf("redis zcard schedules: %w", err)
	}
	return int(n), nil
}

func scheduleScore(due time.Time, priority int) float64 {
	if priority < 0 {
		priority = 0
	}
	if priority > priorityBand-1 {
		priority = priorityBand - 1
	}
	return float64(due.UnixMilli())*priorityBand + float64(priorityBand-1-priority)
}
