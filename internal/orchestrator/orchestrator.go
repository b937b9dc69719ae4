// Package orchestrator is the order processing engine: admission control,
// provider fan-out, the polling monitor loop, aggregation, and compensating
// credit refunds.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"motionlab/internal/domain"
	"motionlab/internal/metrics"
	"motionlab/internal/providers"
	"motionlab/internal/sched"
)

// Config carries the orchestration knobs. The concurrency ceiling bounds
// orders in processing; a non-positive ceiling degenerates to always-queue.
type Config struct {
	ConcurrencyCeiling int
	PollInterval       time.Duration
	MaxPollAttempts    int
	StaleAfter         time.Duration
	CreditCost         int
}

// SessionPurger drops an owner's conversation state once their order reached
// a terminal status. Optional; a nil purger disables the cleanup.
type SessionPurger interface {
	Delete(ctx context.Context, ownerID string) error
}

// Deps wires the engine to its collaborators.
type Deps struct {
	Orders   domain.OrderRepository
	Jobs     domain.JobRepository
	Ledger   domain.CreditLedger
	Notifier domain.Notifier
	Sessions SessionPurger
	// Video holds the image-to-video adapters in submission order.
	Video []providers.Adapter
	// Combiner is the stage-one adapter for combine_and_animate orders.
	Combiner  providers.Adapter
	Scheduler *sched.Scheduler
	Logger    zerolog.Logger
}

// Orchestrator drives orders from admission to a terminal status.
type Orchestrator struct {
	orders   domain.OrderRepository
	jobs     domain.JobRepository
	ledger   domain.CreditLedger
	notifier domain.Notifier
	sessions SessionPurger
	video    []providers.Adapter
	combiner providers.Adapter
	byKind   map[domain.ProviderKind]providers.Adapter
	sched    *sched.Scheduler
	cfg      Config
	logger   zerolog.Logger
}

// New creates the orchestrator. Poll handles are routed by the provider kind
// tag each job carries, so every adapter registers under its kind.
func New(deps Deps, cfg Config) *Orchestrator {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.MaxPollAttempts <= 0 {
		cfg.MaxPollAttempts = 60
	}
	if cfg.CreditCost <= 0 {
		cfg.CreditCost = 1
	}

	byKind := make(map[domain.ProviderKind]providers.Adapter, len(deps.Video)+1)
	for _, a := range deps.Video {
		byKind[a.Kind()] = a
	}
	if deps.Combiner != nil {
		byKind[deps.Combiner.Kind()] = deps.Combiner
	}

	return &Orchestrator{
		orders:   deps.Orders,
		jobs:     deps.Jobs,
		ledger:   deps.Ledger,
		notifier: deps.Notifier,
		sessions: deps.Sessions,
		video:    deps.Video,
		combiner: deps.Combiner,
		byKind:   byKind,
		sched:    deps.Scheduler,
		cfg:      cfg,
		logger:   deps.Logger,
	}
}

// ProcessOrder is the entry point invoked once payment or credit is
// confirmed. It either starts the order or queues it under admission control.
// Re-invoking it for an order that already left the startable statuses is a
// no-op.
func (o *Orchestrator) ProcessOrder(ctx context.Context, orderID string) error {
	order, err := o.orders.GetByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("load order %s: %w", orderID, err)
	}
	switch order.Status {
	case domain.OrderStatusPending, domain.OrderStatusPaymentRequired:
	default:
		o.logger.Info().Str("order_id", orderID).Str("status", string(order.Status)).Msg("order not startable, skipping")
		return nil
	}

	admitted, err := o.admit(ctx)
	if err != nil {
		return fmt.Errorf("admission check for %s: %w", orderID, err)
	}
	if !admitted {
		if err := o.orders.UpdateStatus(ctx, order.ID, domain.OrderStatusThrottled); err != nil {
			return fmt.Errorf("throttle order %s: %w", orderID, err)
		}
		metrics.OrdersThrottled.Inc()
		o.logger.Info().Str("order_id", orderID).Msg("order throttled")
		if _, err := o.notifier.Send(ctx, order.OwnerID, msgQueued); err != nil {
			o.logger.Warn().Err(err).Str("order_id", orderID).Msg("queued notification failed")
		}
		return nil
	}

	return o.start(ctx, order)
}

// admit re-queries the durable store for the processing count so the decision
// survives restarts and never trusts an in-memory counter.
func (o *Orchestrator) admit(ctx context.Context) (bool, error) {
	count, err := o.orders.CountByStatus(ctx, domain.OrderStatusProcessing)
	if err != nil {
		return false, err
	}
	return count < o.cfg.ConcurrencyCeiling, nil
}

// start transitions the order into processing and submits its work.
func (o *Orchestrator) start(ctx context.Context, order *domain.Order) error {
	if err := o.orders.UpdateStatus(ctx, order.ID, domain.OrderStatusProcessing); err != nil {
		return fmt.Errorf("mark order %s processing: %w", order.ID, err)
	}
	order.Status = domain.OrderStatusProcessing

	creditFunded, err := o.isCreditFunded(ctx, order.ID)
	if err != nil {
		return err
	}

	if order.Kind == domain.OrderKindCombineAnimate {
		return o.startPipeline(ctx, order, creditFunded)
	}
	return o.startVideoStage(ctx, order, stageInput{
		photoRef:       order.PhotoRef,
		secondPhotoRef: order.SecondPhotoRef,
		creditFunded:   creditFunded,
	})
}

func (o *Orchestrator) isCreditFunded(ctx context.Context, orderID string) (bool, error) {
	hasPayment, err := o.orders.HasAssociatedPayment(ctx, orderID)
	if err != nil {
		return false, fmt.Errorf("payment lookup for %s: %w", orderID, err)
	}
	return !hasPayment, nil
}

// stageInput bundles what a submission stage needs beyond the order itself.
type stageInput struct {
	photoRef       string
	secondPhotoRef string
	creditFunded   bool
	debited        bool
	// msgRef carries the status message across pipeline stages so the second
	// stage keeps editing the same message instead of posting a new one.
	msgRef string
}

// startVideoStage fans the submission out to every video adapter, debits the
// credit once at least one backend accepted, and begins monitoring.
func (o *Orchestrator) startVideoStage(ctx context.Context, order *domain.Order, in stageInput) error {
	req := providers.SubmitRequest{
		OrderID:        order.ID,
		PhotoRef:       in.photoRef,
		SecondPhotoRef: in.secondPhotoRef,
		Prompt:         order.Prompt,
	}

	var (
		jobs     []domain.Job
		firstErr error
	)
	for _, adapter := range o.video {
		accepted, err := adapter.Submit(ctx, req)
		if err != nil {
			o.logger.Warn().Err(err).Str("order_id", order.ID).Str("provider", string(adapter.Kind())).Msg("submission rejected")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		for _, j := range accepted {
			metrics.ProviderSubmissions.WithLabelValues(string(j.Provider)).Inc()
		}
		jobs = append(jobs, accepted...)
	}

	if len(jobs) == 0 {
		kind, raw := o.translateSubmitError(firstErr)
		o.failOrder(ctx, order, in, kind, raw)
		return nil
	}
	o.persistJobs(ctx, jobs)

	if !in.debited {
		if err := o.debitIfCreditFunded(ctx, order, &in); err != nil {
			o.failOrder(ctx, order, in, domain.ErrorKindUnknown, "")
			return err
		}
	}

	msgRef := in.msgRef
	if msgRef == "" {
		var err error
		msgRef, err = o.notifier.Send(ctx, order.OwnerID, msgStarted)
		if err != nil {
			o.logger.Warn().Err(err).Str("order_id", order.ID).Msg("start notification failed")
		}
	}

	o.beginSession(ctx, order, jobs, msgRef, in, nil)
	return nil
}

// debitIfCreditFunded takes exactly one credit for credit-funded orders. The
// matching refund happens on the failed terminal transition, so a fully
// failed order never ends up costing a credit.
func (o *Orchestrator) debitIfCreditFunded(ctx context.Context, order *domain.Order, in *stageInput) error {
	if !in.creditFunded {
		return nil
	}
	if err := o.ledger.Debit(ctx, order.OwnerID, o.cfg.CreditCost); err != nil {
		if errors.Is(err, domain.ErrInsufficientCredit) {
			o.logger.Warn().Str("order_id", order.ID).Msg("credit exhausted at submission")
			return err
		}
		return fmt.Errorf("debit for %s: %w", order.ID, err)
	}
	in.debited = true
	metrics.CreditMovements.WithLabelValues("debit").Inc()
	return nil
}

func (o *Orchestrator) translateSubmitError(err error) (domain.ErrorKind, string) {
	if err == nil {
		return domain.ErrorKindUnknown, ""
	}
	raw := err.Error()
	return providers.TranslateText(raw), raw
}

func (o *Orchestrator) persistJobs(ctx context.Context, jobs []domain.Job) {
	for i := range jobs {
		if err := o.jobs.Create(ctx, &jobs[i]); err != nil {
			o.logger.Error().Err(err).Str("job_id", jobs[i].ID).Msg("persist job failed")
		}
	}
}

// failOrder drives the order to failed exactly once, issues the compensating
// refund for credit-funded orders that were debited, and notifies the owner
// with the most specific reason available.
func (o *Orchestrator) failOrder(ctx context.Context, order *domain.Order, in stageInput, kind domain.ErrorKind, raw string) {
	changed, err := o.orders.Fail(ctx, order.ID, string(kind))
	if err != nil {
		o.logger.Error().Err(err).Str("order_id", order.ID).Msg("fail transition failed")
		return
	}
	if !changed {
		o.logger.Info().Str("order_id", order.ID).Msg("order already terminal, skipping failure handling")
		return
	}
	metrics.OrdersFinished.WithLabelValues(string(domain.OrderStatusFailed)).Inc()

	text := kind.UserMessage(raw)
	if in.creditFunded && in.debited {
		if err := o.ledger.Credit(ctx, order.OwnerID, o.cfg.CreditCost); err != nil {
			o.logger.Error().Err(err).Str("order_id", order.ID).Msg("refund failed")
		} else {
			metrics.CreditMovements.WithLabelValues("refund").Inc()
			if balance, err := o.ledger.Balance(ctx, order.OwnerID); err == nil {
				text += "\n" + msgRefunded(balance)
			}
		}
	}
	if _, err := o.notifier.Send(ctx, order.OwnerID, text); err != nil {
		o.logger.Warn().Err(err).Str("order_id", order.ID).Msg("failure notification failed")
	}
	o.clearSession(ctx, order.OwnerID)
}

func (o *Orchestrator) clearSession(ctx context.Context, ownerID string) {
	if o.sessions == nil {
		return
	}
	if err := o.sessions.Delete(ctx, ownerID); err != nil {
		o.logger.Debug().Err(err).Str("owner_id", ownerID).Msg("session cleanup failed")
	}
}
