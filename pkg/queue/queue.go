package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// QueueForwardFailures is the Redis list key holding records that could not be
// forwarded. Nothing consumes it automatically; operators replay it by hand.
const QueueForwardFailures = "bridge:forward_failures"

// FailedRecord is one record that did not reach the spreadsheet.
type FailedRecord struct {
	ID        string            `json:"id"`
	Reference string            `json:"reference,omitempty"`
	Flow      string            `json:"flow"`
	Email     string            `json:"email,omitempty"`
	Record    map[string]string `json:"record"`
	Error     string            `json:"error"`
	Replays   int               `json:"replays"`
	FailedAt  time.Time         `json:"failed_at"`
}

// Queue stores failed records in a Redis list.
type Queue struct {
	client *redis.Client
	key    string
	logger *zap.Logger
}

// NewQueue creates a Redis-backed failure queue.
func NewQueue(client *redis.Client, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{client: client, key: QueueForwardFailures, logger: logger}
}

// Push appends a failed record. ID and FailedAt are filled in when empty.
func (q *Queue) Push(ctx context.Context, rec FailedRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.FailedAt.IsZero() {
		rec.FailedAt = time.Now().UTC()
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal failed record: %w", err)
	}
	if err := q.client.RPush(ctx, q.key, raw).Err(); err != nil {
		return fmt.Errorf("rpush: %w", err)
	}
	q.logger.Debug("failed record queued", zap.String("id", rec.ID), zap.String("reference", rec.Reference))
	return nil
}

// ErrCorruptRecord is returned by Pop for an entry that does not decode. The
// entry has been moved to the corrupt list, so the next Pop moves on.
var ErrCorruptRecord = errors.New("corrupt failed record")

// Pop removes and returns the oldest failed record, or nil when the list is
// empty. The entry is decoded before it leaves the list.
func (q *Queue) Pop(ctx context.Context) (*FailedRecord, error) {
	for {
		raw, err := q.client.LIndex(ctx, q.key, 0).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return nil, nil
			}
			return nil, fmt.Errorf("lindex: %w", err)
		}

		var rec FailedRecord
		if derr := json.Unmarshal([]byte(raw), &rec); derr != nil {
			if err := q.park(ctx, raw); err != nil {
				return nil, err
			}
			q.logger.Warn("corrupt failed record parked", zap.String("raw", raw), zap.String("corrupt_key", q.CorruptKey()), zap.Error(derr))
			return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, derr)
		}

		n, err := q.client.LRem(ctx, q.key, 1, raw).Result()
		if err != nil {
			return nil, fmt.Errorf("lrem: %w", err)
		}
		if n == 0 {
			// Taken by a concurrent replay.
			continue
		}
		return &rec, nil
	}
}

// CorruptKey is the list holding entries Pop could not decode.
func (q *Queue) CorruptKey() string {
	return q.key + ":corrupt"
}

// CorruptLen returns the number of parked corrupt entries.
func (q *Queue) CorruptLen(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.CorruptKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("llen: %w", err)
	}
	return n, nil
}

func (q *Queue) park(ctx context.Context, raw string) error {
	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, q.CorruptKey(), raw)
		pipe.LRem(ctx, q.key, 1, raw)
		return nil
	})
	if err != nil {
		return fmt.Errorf("park corrupt record: %w", err)
	}
	return nil
}

// List returns up to n records without removing them, oldest first.
func (q *Queue) List(ctx context.Context, n int64) ([]FailedRecord, error) {
	if n <= 0 {
		return nil, nil
	}
	raws, err := q.client.LRange(ctx, q.key, 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange: %w", err)
	}
	list := make([]FailedRecord, 0, len(raws))
	for _, raw := range raws {
		var rec FailedRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			q.logger.Warn("invalid failed record", zap.String("raw", raw), zap.Error(err))
			continue
		}
		list = append(list, rec)
	}
	return list, nil
}

// Len returns the number of queued failures.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("llen: %w", err)
	}
	return n, nil
}
