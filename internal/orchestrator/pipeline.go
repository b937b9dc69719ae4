package orchestrator

import (
	"context"

	"motionlab/internal/domain"
	"motionlab/internal/metrics"
	"motionlab/internal/providers"
)

// startPipeline runs a combine_and_animate order: stage one merges the two
// photos into a single frame, stage two animates that frame. A stage-one
// failure short-circuits the whole order; the credit taken at submission is
// refunded by the shared failure path.
func (o *Orchestrator) startPipeline(ctx context.Context, order *domain.Order, creditFunded bool) error {
	in := stageInput{
		photoRef:       order.PhotoRef,
		secondPhotoRef: order.SecondPhotoRef,
		creditFunded:   creditFunded,
	}

	if o.combiner == nil {
		o.failOrder(ctx, order, in, domain.ErrorKindUnknown, "")
		return nil
	}

	jobs, err := o.combiner.Submit(ctx, providers.SubmitRequest{
		OrderID:        order.ID,
		PhotoRef:       in.photoRef,
		SecondPhotoRef: in.secondPhotoRef,
		Prompt:         order.Prompt,
	})
	if err != nil {
		kind := o.combiner.TranslateError(err.Error())
		o.failOrder(ctx, order, in, kind, err.Error())
		return nil
	}
	for _, j := range jobs {
		metrics.ProviderSubmissions.WithLabelValues(string(j.Provider)).Inc()
	}
	o.persistJobs(ctx, jobs)

	if err := o.debitIfCreditFunded(ctx, order, &in); err != nil {
		o.failOrder(ctx, order, in, domain.ErrorKindUnknown, "")
		return err
	}

	msgRef, err := o.notifier.Send(ctx, order.OwnerID, msgStarted)
	if err != nil {
		o.logger.Warn().Err(err).Str("order_id", order.ID).Msg("start notification failed")
	}
	in.msgRef = msgRef

	next := func(ctx context.Context, combinedRef string) {
		stage2 := in
		stage2.photoRef = combinedRef
		stage2.secondPhotoRef = ""
		if err := o.startVideoStage(ctx, order, stage2); err != nil {
			o.logger.Error().Err(err).Str("order_id", order.ID).Msg("animate stage failed to start")
		}
	}

	o.beginSession(ctx, order, jobs, msgRef, in, next)
	return nil
}
