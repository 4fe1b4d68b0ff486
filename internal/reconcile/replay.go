// Package reconcile re-forwards records parked in the failure sink on operator command.
package reconcile

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/vestige-studio/payments-bridge/internal/models"
	"github.com/vestige-studio/payments-bridge/internal/sheets"
	"github.com/vestige-studio/payments-bridge/pkg/queue"
)

// Store is the failure sink as seen by an operator.
type Store interface {
	Push(ctx context.Context, rec queue.FailedRecord) error
	Pop(ctx context.Context) (*queue.FailedRecord, error)
}

// Forwarder delivers a record to the spreadsheet.
type Forwarder interface {
	Forward(ctx context.Context, rec models.Record) (sheets.Result, error)
}

// Report summarizes one replay run.
type Report struct {
	Attempted int
	Forwarded int
	Requeued  int
	Corrupt   int
}

// Replay pops up to n records and forwards each once. A record that fails
// again goes back to the end of the list with its replay count bumped; the
// run stops when it meets a record it already requeued.
func Replay(ctx context.Context, store Store, fwd Forwarder, n int, logger *zap.Logger) (Report, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var rep Report
	requeued := make(map[string]bool)
	for rep.Attempted < n {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		failed, err := store.Pop(ctx)
		if errors.Is(err, queue.ErrCorruptRecord) {
			rep.Corrupt++
			logger.Warn("skipped corrupt failed record", zap.Error(err))
			continue
		}
		if err != nil {
			return rep, fmt.Errorf("pop failed record: %w", err)
		}
		if failed == nil {
			break
		}
		if requeued[failed.ID] {
			if err := store.Push(context.WithoutCancel(ctx), *failed); err != nil {
				return rep, fmt.Errorf("requeue %s: %w", failed.ID, err)
			}
			break
		}
		rep.Attempted++

		log := logger.With(zap.String("id", failed.ID), zap.String("reference", failed.Reference))
		res, err := fwd.Forward(ctx, models.Record(failed.Record))
		if err == nil {
			rep.Forwarded++
			log.Info("failed record replayed", zap.Int("status", res.Status))
			continue
		}

		failed.Replays++
		failed.Error = err.Error()
		if perr := store.Push(context.WithoutCancel(ctx), *failed); perr != nil {
			// The record is now only in this log line.
			log.Error("requeue failed record", zap.Error(perr), zap.Any("record", failed.Record))
			return rep, fmt.Errorf("requeue %s: %w", failed.ID, perr)
		}
		requeued[failed.ID] = true
		rep.Requeued++
		log.Warn("replay failed, record requeued", zap.Error(err), zap.Int("replays", failed.Replays))
	}
	return rep, nil
}
