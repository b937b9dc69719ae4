package orchestrator

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"motionlab/internal/domain"
	"motionlab/internal/metrics"
)

// sessionState is the monitoring lifecycle: polling, results aggregated,
// owner notified. Transitions are one-way.
type sessionState int

const (
	sessionRunning sessionState = iota
	sessionAggregated
	sessionNotified
)

// monitorSession tracks one order's jobs until aggregation. One session owns
// its jobs exclusively; the mutex only guards the native progress map touched
// by concurrent poll goroutines.
type monitorSession struct {
	o     *Orchestrator
	order *domain.Order
	in    stageInput

	jobs    []domain.Job
	msgRef  string
	attempt int
	lastPct int
	state   sessionState

	mu     sync.Mutex
	native map[string]float64

	// next, when set, receives the stage's result instead of the owner. Used
	// to chain the combine stage into the animate stage.
	next func(ctx context.Context, resultRef string)
}

func jobKey(j *domain.Job) string {
	return string(j.Provider) + "/" + j.ID
}

// beginSession starts monitoring the given jobs. Jobs that came back already
// terminal (synchronous backends) aggregate without a single poll.
func (o *Orchestrator) beginSession(ctx context.Context, order *domain.Order, jobs []domain.Job, msgRef string, in stageInput, next func(context.Context, string)) {
	s := &monitorSession{
		o:      o,
		order:  order,
		in:     in,
		jobs:   jobs,
		msgRef: msgRef,
		native: make(map[string]float64),
		next:   next,
	}
	metrics.ActiveSessions.Inc()

	if s.allTerminal() {
		s.aggregate(ctx)
		return
	}
	o.sched.After(o.cfg.PollInterval, "monitor:"+order.ID, s.tick)
}

func (s *monitorSession) allTerminal() bool {
	for i := range s.jobs {
		if !s.jobs[i].Terminal() {
			return false
		}
	}
	return true
}

// tick polls every non-terminal job concurrently, applies the observations,
// and either aggregates or reschedules. A poll error leaves the job as-is for
// the next attempt; only provider verdicts move a job to a terminal state.
func (s *monitorSession) tick(ctx context.Context) {
	if s.state != sessionRunning {
		return
	}
	s.attempt++

	g, gctx := errgroup.WithContext(ctx)
	for i := range s.jobs {
		if s.jobs[i].Terminal() {
			continue
		}
		job := &s.jobs[i]
		g.Go(func() error {
			s.pollJob(gctx, job)
			return nil
		})
	}
	_ = g.Wait()

	if s.allTerminal() || s.attempt >= s.o.cfg.MaxPollAttempts {
		s.aggregate(ctx)
		return
	}

	s.notifyProgress(ctx)
	s.o.sched.After(s.o.cfg.PollInterval, "monitor:"+s.order.ID, s.tick)
}

func (s *monitorSession) pollJob(ctx context.Context, job *domain.Job) {
	adapter, ok := s.o.byKind[job.Provider]
	if !ok {
		s.o.logger.Error().Str("provider", string(job.Provider)).Msg("no adapter registered for job provider")
		return
	}
	res, err := adapter.Poll(ctx, *job)
	if err != nil {
		metrics.ProviderPolls.WithLabelValues(string(job.Provider), "error").Inc()
		s.o.logger.Warn().Err(err).Str("order_id", job.OrderID).Str("job_id", job.ID).Msg("poll failed, will retry")
		return
	}
	metrics.ProviderPolls.WithLabelValues(string(job.Provider), "ok").Inc()

	if res.Progress >= 0 {
		s.mu.Lock()
		s.native[jobKey(job)] = res.Progress
		s.mu.Unlock()
	}

	switch res.Status {
	case domain.JobStatusCompleted:
		job.Status = domain.JobStatusCompleted
		job.ResultRef = res.ResultRef
	case domain.JobStatusFailed:
		job.Status = domain.JobStatusFailed
		job.ErrorKind = adapter.TranslateError(res.ErrorRaw)
		job.ErrorDetail = res.ErrorRaw
	default:
		return
	}
	if err := s.o.jobs.Update(ctx, job); err != nil {
		s.o.logger.Error().Err(err).Str("job_id", job.ID).Msg("persist job state failed")
	}
}

// aggregate closes the session exactly once. Jobs still in flight at the
// attempt ceiling are recorded as timed out; a late provider success for one
// of them is never delivered.
func (s *monitorSession) aggregate(ctx context.Context) {
	if s.state != sessionRunning {
		return
	}
	s.state = sessionAggregated
	defer func() {
		s.state = sessionNotified
		metrics.ActiveSessions.Dec()
	}()

	s.timeOutStragglers(ctx)

	var succeeded []domain.Job
	for i := range s.jobs {
		if s.jobs[i].Status == domain.JobStatusCompleted {
			succeeded = append(succeeded, s.jobs[i])
		}
	}

	if len(succeeded) == 0 {
		kind, raw := s.failureReason()
		s.o.failOrder(ctx, s.order, s.in, kind, raw)
		return
	}

	if s.next != nil {
		s.next(ctx, succeeded[0].ResultRef)
		return
	}

	refs := make([]string, 0, len(succeeded))
	for _, j := range succeeded {
		refs = append(refs, j.ResultRef)
	}
	changed, err := s.o.orders.Complete(ctx, s.order.ID, refs)
	if err != nil {
		s.o.logger.Error().Err(err).Str("order_id", s.order.ID).Msg("complete transition failed")
		return
	}
	if !changed {
		s.o.logger.Info().Str("order_id", s.order.ID).Msg("order already terminal, skipping delivery")
		return
	}
	metrics.OrdersFinished.WithLabelValues(string(domain.OrderStatusCompleted)).Inc()

	if _, err := s.o.notifier.Send(ctx, s.order.OwnerID, msgResults(succeeded)); err != nil {
		s.o.logger.Warn().Err(err).Str("order_id", s.order.ID).Msg("result delivery failed")
	}
	s.o.clearSession(ctx, s.order.OwnerID)
}

func (s *monitorSession) timeOutStragglers(ctx context.Context) {
	for i := range s.jobs {
		if s.jobs[i].Terminal() {
			continue
		}
		s.jobs[i].Status = domain.JobStatusFailed
		s.jobs[i].ErrorKind = domain.ErrorKindProviderTimeout
		s.jobs[i].ErrorDetail = "generation did not finish before the polling deadline"
		if err := s.o.jobs.Update(ctx, &s.jobs[i]); err != nil {
			s.o.logger.Error().Err(err).Str("job_id", s.jobs[i].ID).Msg("persist timeout failed")
		}
	}
}

// failureReason picks the most specific error kind across the failed jobs and
// the raw detail of the job that carried it.
func (s *monitorSession) failureReason() (domain.ErrorKind, string) {
	var kinds []domain.ErrorKind
	for i := range s.jobs {
		if s.jobs[i].Status == domain.JobStatusFailed {
			kinds = append(kinds, s.jobs[i].ErrorKind)
		}
	}
	if len(kinds) == 0 {
		return domain.ErrorKindProviderTimeout, ""
	}
	kind := domain.MostSpecificError(kinds)
	for i := range s.jobs {
		if s.jobs[i].Status == domain.JobStatusFailed && s.jobs[i].ErrorKind == kind {
			return kind, s.jobs[i].ErrorDetail
		}
	}
	return kind, ""
}
