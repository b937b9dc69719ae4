package orchestrator

import (
	"context"
	"fmt"
	"time"

	"motionlab/internal/domain"
)

const sweepBatchSize = 50

// ProcessThrottledOrders admits queued orders into the capacity freed since
// the last sweep, oldest first. Each admitted order starts on the scheduler so
// a slow submission never blocks the sweep.
func (o *Orchestrator) ProcessThrottledOrders(ctx context.Context) {
	count, err := o.orders.CountByStatus(ctx, domain.OrderStatusProcessing)
	if err != nil {
		o.logger.Error().Err(err).Msg("throttle sweep: count processing failed")
		return
	}
	free := o.cfg.ConcurrencyCeiling - count
	if free <= 0 {
		return
	}

	queued, err := o.orders.ListByStatus(ctx, domain.OrderStatusThrottled, free)
	if err != nil {
		o.logger.Error().Err(err).Msg("throttle sweep: list throttled failed")
		return
	}
	for i := range queued {
		id := queued[i].ID
		o.sched.After(0, "admit:"+id, func(ctx context.Context) {
			if err := o.resumeThrottled(ctx, id); err != nil {
				o.logger.Error().Err(err).Str("order_id", id).Msg("resume throttled order failed")
			}
		})
	}
}

// resumeThrottled re-reads the order before starting it so an order that was
// cancelled or picked up elsewhere between the sweep and the task is skipped.
func (o *Orchestrator) resumeThrottled(ctx context.Context, orderID string) error {
	order, err := o.orders.GetByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("load throttled order %s: %w", orderID, err)
	}
	if order.Status != domain.OrderStatusThrottled {
		return nil
	}
	return o.start(ctx, order)
}

// ProcessNewOrders picks up pending orders the entry point never reached,
// typically after a restart, and runs them through normal admission.
func (o *Orchestrator) ProcessNewOrders(ctx context.Context) {
	pending, err := o.orders.ListByStatus(ctx, domain.OrderStatusPending, sweepBatchSize)
	if err != nil {
		o.logger.Error().Err(err).Msg("intake sweep: list pending failed")
		return
	}
	for i := range pending {
		if err := o.ProcessOrder(ctx, pending[i].ID); err != nil {
			o.logger.Error().Err(err).Str("order_id", pending[i].ID).Msg("intake sweep: process failed")
		}
	}
}

// ProcessStaleOrders fails processing orders that lost their monitor, usually
// after a crash, once they exceed the staleness window. The failure path
// refunds credit-funded orders since the debit happens at submission.
func (o *Orchestrator) ProcessStaleOrders(ctx context.Context) {
	if o.cfg.StaleAfter <= 0 {
		return
	}
	cutoff := time.Now().Add(-o.cfg.StaleAfter)
	stale, err := o.orders.ListStale(ctx, cutoff, sweepBatchSize)
	if err != nil {
		o.logger.Error().Err(err).Msg("stale sweep: list failed")
		return
	}
	for i := range stale {
		order := stale[i]
		creditFunded, err := o.isCreditFunded(ctx, order.ID)
		if err != nil {
			o.logger.Error().Err(err).Str("order_id", order.ID).Msg("stale sweep: payment lookup failed")
			continue
		}
		in := stageInput{creditFunded: creditFunded, debited: creditFunded}
		o.failOrder(ctx, &order, in, domain.ErrorKindProviderTimeout, "")
	}
}
