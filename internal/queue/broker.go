// Package queue implements the Queue Broker (spec §4.2): four priority
// FIFOs plus a time-indexed scheduled set, backed by Redis the way the
// rest of this stack's payment workers use go-redis for their work queues.
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/innovategy/innosystem/internal/data"
)

// ErrEmpty is returned by Pop when the timeout elapses with nothing to pop.
var ErrEmpty = errors.New("queue: no job available before timeout")

const keyPrefix = "jobqueue"

// priorityOrder lists the four FIFOs from highest to lowest priority; Pop
// probes them in this order so a non-empty higher-priority FIFO always wins
// (spec §4.2/§5: "strict priority, no starvation protection").
var priorityOrder = []data.Priority{
	data.PriorityCritical, data.PriorityHigh, data.PriorityMedium, data.PriorityLow,
}

func fifoKey(p data.Priority) string {
	return fmt.Sprintf("%s:fifo:%s", keyPrefix, p.String())
}

func scheduledKey() string {
	return fmt.Sprintf("%s:scheduled", keyPrefix)
}

// Broker is the Redis-backed implementation of the Queue Broker. It holds no
// in-memory state; every operation is a direct Redis round trip so that
// multiple worker processes across the fleet (spec §5) share one queue.
type Broker struct {
	client *redis.Client
}

func NewBroker(client *redis.Client) *Broker {
	return &Broker{client: client}
}

// Push appends jobID to the tail of the FIFO for priority (spec §4.2).
func (b *Broker) Push(ctx context.Context, jobID string, priority data.Priority) error {
	if !priority.Valid() {
		return fmt.Errorf("invalid priority: %d", priority)
	}
	if err := b.client.RPush(ctx, fifoKey(priority), jobID).Err(); err != nil {
		return fmt.Errorf("pushing job %s at priority %s: %w", jobID, priority, err)
	}
	return nil
}

// Pop blocks up to timeout for the head of the highest-priority non-empty
// FIFO. A single call observes and removes one head atomically: each probe
// is a blocking LPOP-equivalent (BLPOP) against exactly one key, so no two
// Pop callers can ever observe the same head (spec §4.2, §5 at-most-once
// delivery per job id once removed).
func (b *Broker) Pop(ctx context.Context, timeout time.Duration) (string, error) {
	deadline := time.Now().Add(timeout)

	for {
		for _, p := range priorityOrder {
			result, err := b.client.LPop(ctx, fifoKey(p)).Result()
			if err == nil {
				return result, nil
			}
			if !errors.Is(err, redis.Nil) {
				return "", fmt.Errorf("popping priority %s: %w", p, err)
			}
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return "", ErrEmpty
		}

		// Block on the lowest-priority FIFO with a short wait so a push to any
		// higher-priority FIFO is noticed on the next loop iteration rather than
		// after the whole remaining timeout elapses.
		waitFor := 250 * time.Millisecond
		if remaining < waitFor {
			waitFor = remaining
		}
		keys := make([]string, 0, len(priorityOrder))
		for _, p := range priorityOrder {
			keys = append(keys, fifoKey(p))
		}
		res, err := b.client.BLPop(ctx, waitFor, keys...).Result()
		if err == nil && len(res) == 2 {
			return res[1], nil
		}
		if err != nil && !errors.Is(err, redis.Nil) {
			return "", fmt.Errorf("blocking pop: %w", err)
		}
	}
}

// PeekNext observes, without removing, the head of the highest-priority
// non-empty FIFO.
func (b *Broker) PeekNext(ctx context.Context) (string, data.Priority, bool, error) {
	for _, p := range priorityOrder {
		result, err := b.client.LIndex(ctx, fifoKey(p), 0).Result()
		if err == nil {
			return result, p, true, nil
		}
		if !errors.Is(err, redis.Nil) {
			return "", 0, false, fmt.Errorf("peeking priority %s: %w", p, err)
		}
	}
	return "", 0, false, nil
}

// Length returns the total depth across all four FIFOs.
func (b *Broker) Length(ctx context.Context) (int64, error) {
	var total int64
	for _, p := range priorityOrder {
		n, err := b.LengthByPriority(ctx, p)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

func (b *Broker) LengthByPriority(ctx context.Context, priority data.Priority) (int64, error) {
	n, err := b.client.LLen(ctx, fifoKey(priority)).Result()
	if err != nil {
		return 0, fmt.Errorf("measuring length of priority %s: %w", priority, err)
	}
	return n, nil
}

// Schedule places jobID in the scheduled set with dueTime as its score (ms
// epoch), per spec §4.2/§6's wire format.
func (b *Broker) Schedule(ctx context.Context, jobID string, dueTime time.Time) error {
	score := float64(dueTime.UnixMilli())
	if err := b.client.ZAdd(ctx, scheduledKey(), redis.Z{Score: score, Member: jobID}).Err(); err != nil {
		return fmt.Errorf("scheduling job %s: %w", jobID, err)
	}
	return nil
}

// DrainDue atomically returns and removes every scheduled entry whose score
// is <= now, satisfying P6 (idempotent after the first call at time t): a
// second call at the same or earlier instant returns nothing because the
// entries were already removed.
func (b *Broker) DrainDue(ctx context.Context, now time.Time) ([]string, error) {
	max := fmt.Sprintf("%d", now.UnixMilli())

	var due []string
	pipe := b.client.TxPipeline()
	rangeCmd := pipe.ZRangeByScore(ctx, scheduledKey(), &redis.ZRangeBy{Min: "-inf", Max: max})
	pipe.ZRemRangeByScore(ctx, scheduledKey(), "-inf", max)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("draining due jobs: %w", err)
	}

	due, err := rangeCmd.Result()
	if err != nil {
		return nil, fmt.Errorf("reading drained job ids: %w", err)
	}
	return due, nil
}
