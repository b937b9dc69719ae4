package orchestrator

import "context"

// estimateProgress blends native provider progress with an attempt-derived
// estimate for backends that report none. Terminal jobs count as done. The
// result is a whole percentage capped at 99 so the counter never shows 100%
// before delivery.
func estimateProgress(s *monitorSession) int {
	if len(s.jobs) == 0 {
		return 0
	}
	elapsed := float64(s.attempt) / float64(s.o.cfg.MaxPollAttempts+1)
	if elapsed > 0.95 {
		elapsed = 0.95
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var sum float64
	for i := range s.jobs {
		j := &s.jobs[i]
		switch {
		case j.Terminal():
			sum += 1
		default:
			if p, ok := s.native[jobKey(j)]; ok {
				sum += p
			} else {
				sum += elapsed
			}
		}
	}
	pct := int(sum / float64(len(s.jobs)) * 100)
	if pct < 0 {
		pct = 0
	}
	if pct > 99 {
		pct = 99
	}
	return pct
}

// notifyProgress edits the status message in place. The percentage is
// monotonic across ticks and an edit only goes out when it actually moved.
func (s *monitorSession) notifyProgress(ctx context.Context) {
	if s.msgRef == "" {
		return
	}
	pct := estimateProgress(s)
	if pct < s.lastPct {
		pct = s.lastPct
	}
	if pct == s.lastPct {
		return
	}
	s.lastPct = pct
	if err := s.o.notifier.EditProgress(ctx, s.order.OwnerID, s.msgRef, msgProgress(pct)); err != nil {
		s.o.logger.Debug().Err(err).Str("order_id", s.order.ID).Msg("progress edit failed")
	}
}
