package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"

	"github.com/agenciaspace/clinione-sub001/internal/appers"
	"github.com/agenciaspace/clinione-sub001/internal/application/entity"
)

const (
	sweepPending = "pending"
	sweepRetries = "retries"

	defaultWorkers      = 4
	defaultRetryBatch   = 10
	defaultPendingBatch = 50
	defaultLease        = 5 * time.Minute
)

type sweepCounters struct {
	processed, delivered, failed atomic.Int32
}

func (c *sweepCounters) result() entity.SweepResult {
	return entity.SweepResult{
		Processed: int(c.processed.Load()),
		Delivered: int(c.delivered.Load()),
		Failed:    int(c.failed.Load()),
	}
}

// ProcessPendingEvents claims a batch of pending events (and in_progress ones whose
// claim outlived the lease) and dispatches each of them on a worker pool.
func (s *ServiceImpl) ProcessPendingEvents(ctx context.Context) (entity.SweepResult, error) {
	started := time.Now()
	now := s.now()

	events, err := s.transactions.ClaimPendingEvents(ctx, s.pendingBatch(), now.Add(-s.lease()), now)
	if err != nil {
		return entity.SweepResult{}, fmt.Errorf("claim pending events: %w", err)
	}
	s.logger.Infof("process-pending: %d events claimed", len(events))

	var c sweepCounters
	pool := pond.NewPool(s.workers(), pond.WithContext(ctx))
	for _, evt := range events {
		pool.Submit(func() {
			defer s.recoverItem(sweepPending, evt.ID.String(), &c)
			c.processed.Add(1)

			res, err := s.dispatch(ctx, &evt, nil)
			if err != nil {
				s.logger.Errorf("[event: %s] process-pending: %v", evt.ID, err)
				c.failed.Add(1)
				return
			}
			if res.Delivered {
				c.delivered.Add(1)
				return
			}
			c.failed.Add(1)
		})
	}
	pool.StopAndWait()

	result := c.result()
	s.observeSweep(sweepPending, result, started)
	return result, nil
}

// ProcessRetries claims due retries, oldest first, and resubmits each one. A retry row
// is completed whatever the outcome, the outcome itself lives on the event and its log.
func (s *ServiceImpl) ProcessRetries(ctx context.Context) (entity.SweepResult, error) {
	started := time.Now()

	retries, err := s.transactions.ClaimDueRetries(ctx, s.retryBatch(), s.now())
	if err != nil {
		return entity.SweepResult{}, fmt.Errorf("claim due retries: %w", err)
	}
	s.logger.Infof("process-retries: %d retries claimed", len(retries))

	var c sweepCounters
	pool := pond.NewPool(s.workers(), pond.WithContext(ctx))
	for _, rt := range retries {
		pool.Submit(func() {
			defer s.recoverItem(sweepRetries, rt.EventID.String(), &c)
			defer s.completeRetry(ctx, rt)
			c.processed.Add(1)

			delivered, err := s.retryOne(ctx, rt)
			if err != nil {
				s.logger.Errorf("[event: %s retry: %d] process-retries: %v", rt.EventID, rt.ID, err)
				c.failed.Add(1)
				return
			}
			if delivered {
				c.delivered.Add(1)
				return
			}
			c.failed.Add(1)
		})
	}
	pool.StopAndWait()

	result := c.result()
	s.observeSweep(sweepRetries, result, started)
	return result, nil
}

func (s *ServiceImpl) retryOne(ctx context.Context, rt entity.Retry) (bool, error) {
	evt, err := s.repo.GetEvent(ctx, rt.EventID)
	if err != nil {
		return false, err
	}
	if evt.ClinicID != rt.ClinicID {
		return false, fmt.Errorf("retry clinic %s does not own event: %w", rt.ClinicID, appers.ErrEventNotFound)
	}

	dead, err := s.repo.IsDeadLettered(ctx, evt.ID)
	if err != nil {
		return false, err
	}
	if dead {
		return false, appers.ErrEventDeadLettered
	}

	if rt.EndpointID != nil {
		res, err := s.dispatch(ctx, evt, rt.EndpointID)
		return res.Delivered, err
	}

	// legacy url retry, stays on the legacy url
	legacy, err := s.repo.GetLegacyWebhook(ctx, evt.ClinicID)
	if err != nil {
		return false, err
	}
	if !legacy.Configured() {
		s.failUnconfigured(ctx, evt)
		return false, nil
	}
	return s.Deliver(ctx, evt, entity.TargetFromLegacy(legacy)).Delivered, nil
}

func (s *ServiceImpl) completeRetry(ctx context.Context, rt entity.Retry) {
	if err := s.repo.CompleteRetry(context.WithoutCancel(ctx), rt.ID); err != nil {
		s.logger.Errorf("[event: %s retry: %d] complete retry failed: %v", rt.EventID, rt.ID, err)
	}
}

func (s *ServiceImpl) recoverItem(sweep, id string, c *sweepCounters) {
	if r := recover(); r != nil {
		s.logger.Errorf("[%s: %s] panic while processing: %v", sweep, id, r)
		c.failed.Add(1)
	}
}

func (s *ServiceImpl) observeSweep(sweep string, r entity.SweepResult, started time.Time) {
	s.logger.Infof("process-%s done: processed=%d delivered=%d failed=%d in %s",
		sweep, r.Processed, r.Delivered, r.Failed, time.Since(started))
	if s.m == nil {
		return
	}
	s.m.Sweep.ItemsTotal.WithLabelValues(sweep, "delivered").Add(float64(r.Delivered))
	s.m.Sweep.ItemsTotal.WithLabelValues(sweep, "failed").Add(float64(r.Failed))
	s.m.Sweep.DurationSeconds.WithLabelValues(sweep).Observe(time.Since(started).Seconds())
}

func (s *ServiceImpl) workers() int {
	if s.cfg.Sweeper.Workers > 0 {
		return s.cfg.Sweeper.Workers
	}
	return defaultWorkers
}

func (s *ServiceImpl) retryBatch() int {
	if s.cfg.Sweeper.BatchSize > 0 {
		return s.cfg.Sweeper.BatchSize
	}
	return defaultRetryBatch
}

func (s *ServiceImpl) pendingBatch() int {
	if s.cfg.Sweeper.PendingBatchSize > 0 {
		return s.cfg.Sweeper.PendingBatchSize
	}
	return defaultPendingBatch
}

func (s *ServiceImpl) lease() time.Duration {
	if s.cfg.Sweeper.Lease > 0 {
		return s.cfg.Sweeper.Lease
	}
	return defaultLease
}
