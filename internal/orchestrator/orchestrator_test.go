package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"motionlab/internal/domain"
	"motionlab/internal/providers"
	"motionlab/internal/sched"
)

type memOrders struct {
	mu       sync.Mutex
	orders   map[string]*domain.Order
	payments map[string]bool
}

func newMemOrders() *memOrders {
	return &memOrders{orders: map[string]*domain.Order{}, payments: map[string]bool{}}
}

func (m *memOrders) add(o domain.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := o
	m.orders[o.ID] = &cp
}

func (m *memOrders) status(id string) domain.OrderStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orders[id].Status
}

func (m *memOrders) resultRefs(id string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.orders[id].ResultRefs...)
}

func (m *memOrders) GetByID(_ context.Context, id string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memOrders) UpdateStatus(_ context.Context, id string, status domain.OrderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return domain.ErrNotFound
	}
	if !domain.CanTransition(o.Status, status) {
		return domain.ErrInvalidTransition
	}
	o.Status = status
	o.UpdatedAt = time.Now()
	return nil
}

func (m *memOrders) Complete(_ context.Context, id string, refs []string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.Status != domain.OrderStatusProcessing {
		return false, nil
	}
	o.Status = domain.OrderStatusCompleted
	o.ResultRefs = append([]string(nil), refs...)
	o.UpdatedAt = time.Now()
	return true, nil
}

func (m *memOrders) Fail(_ context.Context, id string, _ string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.Status.Terminal() {
		return false, nil
	}
	o.Status = domain.OrderStatusFailed
	o.UpdatedAt = time.Now()
	return true, nil
}

func (m *memOrders) CountByStatus(_ context.Context, status domain.OrderStatus) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, o := range m.orders {
		if o.Status == status {
			n++
		}
	}
	return n, nil
}

func (m *memOrders) ListByStatus(_ context.Context, status domain.OrderStatus, limit int) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Order
	for _, o := range m.orders {
		if o.Status == status {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memOrders) ListStale(_ context.Context, cutoff time.Time, limit int) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Order
	for _, o := range m.orders {
		if o.Status == domain.OrderStatusProcessing && o.UpdatedAt.Before(cutoff) {
			out = append(out, *o)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memOrders) HasAssociatedPayment(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.payments[id], nil
}

type memJobs struct {
	mu   sync.Mutex
	jobs map[string]*domain.Job
}

func newMemJobs() *memJobs { return &memJobs{jobs: map[string]*domain.Job{}} }

func (m *memJobs) key(j *domain.Job) string { return string(j.Provider) + "/" + j.ID }

func (m *memJobs) Create(_ context.Context, j *domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *j
	m.jobs[m.key(j)] = &cp
	return nil
}

func (m *memJobs) Update(_ context.Context, j *domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *j
	m.jobs[m.key(j)] = &cp
	return nil
}

func (m *memJobs) ListByOrderID(_ context.Context, orderID string) ([]domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Job
	for _, j := range m.jobs {
		if j.OrderID == orderID {
			out = append(out, *j)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].ID < out[k].ID })
	return out, nil
}

type memLedger struct {
	mu       sync.Mutex
	balances map[string]int
}

func newMemLedger() *memLedger { return &memLedger{balances: map[string]int{}} }

func (m *memLedger) balance(owner string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[owner]
}

func (m *memLedger) Balance(_ context.Context, owner string) (int, error) {
	return m.balance(owner), nil
}

func (m *memLedger) Debit(_ context.Context, owner string, amount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.balances[owner] < amount {
		return domain.ErrInsufficientCredit
	}
	m.balances[owner] -= amount
	return nil
}

func (m *memLedger) Credit(_ context.Context, owner string, amount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[owner] += amount
	return nil
}

type memNotifier struct {
	mu    sync.Mutex
	sends []string
	edits []string
	seq   int
}

func (m *memNotifier) Send(_ context.Context, _, text string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sends = append(m.sends, text)
	m.seq++
	return fmt.Sprintf("msg-%d", m.seq), nil
}

func (m *memNotifier) EditProgress(_ context.Context, _, _, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edits = append(m.edits, text)
	return nil
}

func (m *memNotifier) sent() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sends...)
}

func (m *memNotifier) lastSent() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sends) == 0 {
		return ""
	}
	return m.sends[len(m.sends)-1]
}

type fakeAdapter struct {
	kind domain.ProviderKind

	mu         sync.Mutex
	submitJobs []domain.Job
	submitErr  error
	results    map[string][]providers.PollResult
	submits    []providers.SubmitRequest
}

func (f *fakeAdapter) Kind() domain.ProviderKind { return f.kind }

func (f *fakeAdapter) Submit(_ context.Context, req providers.SubmitRequest) ([]domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits = append(f.submits, req)
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	out := make([]domain.Job, len(f.submitJobs))
	for i, j := range f.submitJobs {
		j.OrderID = req.OrderID
		j.Provider = f.kind
		if j.Status == "" {
			j.Status = domain.JobStatusProcessing
		}
		out[i] = j
	}
	return out, nil
}

func (f *fakeAdapter) Poll(_ context.Context, job domain.Job) (providers.PollResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	queue := f.results[job.ID]
	if len(queue) == 0 {
		return providers.PollResult{Status: domain.JobStatusProcessing, Progress: -1}, nil
	}
	res := queue[0]
	if len(queue) > 1 {
		f.results[job.ID] = queue[1:]
	}
	return res, nil
}

func (f *fakeAdapter) TranslateError(raw string) domain.ErrorKind {
	return providers.TranslateText(raw)
}

func (f *fakeAdapter) submitted() []providers.SubmitRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]providers.SubmitRequest(nil), f.submits...)
}

type fixture struct {
	orders   *memOrders
	jobs     *memJobs
	ledger   *memLedger
	notifier *memNotifier
	orch     *Orchestrator
}

func newFixture(t *testing.T, video []providers.Adapter, combiner providers.Adapter, cfg Config) *fixture {
	t.Helper()
	f := &fixture{
		orders:   newMemOrders(),
		jobs:     newMemJobs(),
		ledger:   newMemLedger(),
		notifier: &memNotifier{},
	}
	scheduler := sched.New(context.Background(), zerolog.Nop())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = scheduler.Shutdown(ctx)
	})
	f.orch = New(Deps{
		Orders:    f.orders,
		Jobs:      f.jobs,
		Ledger:    f.ledger,
		Notifier:  f.notifier,
		Video:     video,
		Combiner:  combiner,
		Scheduler: scheduler,
		Logger:    zerolog.Nop(),
	}, cfg)
	return f
}

func testConfig() Config {
	return Config{
		ConcurrencyCeiling: 2,
		PollInterval:       5 * time.Millisecond,
		MaxPollAttempts:    20,
		CreditCost:         1,
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func pendingOrder(id, owner string) domain.Order {
	return domain.Order{
		ID:        id,
		OwnerID:   owner,
		Status:    domain.OrderStatusPending,
		Kind:      domain.OrderKindSingle,
		PhotoRef:  "photos/in.jpg",
		Prompt:    "make it move",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func TestOrderThrottledAtCeiling(t *testing.T) {
	adapter := &fakeAdapter{kind: domain.ProviderKindGemini}
	f := newFixture(t, []providers.Adapter{adapter}, nil, Config{
		ConcurrencyCeiling: 1,
		PollInterval:       5 * time.Millisecond,
		MaxPollAttempts:    20,
		CreditCost:         1,
	})

	busy := pendingOrder("busy", "owner-a")
	busy.Status = domain.OrderStatusProcessing
	f.orders.add(busy)
	f.orders.add(pendingOrder("queued", "owner-b"))

	if err := f.orch.ProcessOrder(context.Background(), "queued"); err != nil {
		t.Fatalf("ProcessOrder error: %v", err)
	}
	if got := f.orders.status("queued"); got != domain.OrderStatusThrottled {
		t.Fatalf("expected throttled, got %s", got)
	}
	if len(adapter.submitted()) != 0 {
		t.Fatal("throttled order must not reach providers")
	}
	if !strings.Contains(f.notifier.lastSent(), "queued") {
		t.Fatalf("expected queue notification, got %q", f.notifier.lastSent())
	}
}

func TestOrderCompletesAndDebitsOnce(t *testing.T) {
	adapter := &fakeAdapter{
		kind:       domain.ProviderKindGemini,
		submitJobs: []domain.Job{{ID: "op-1", Model: "veo-3.0-generate-001"}},
		results: map[string][]providers.PollResult{
			"op-1": {
				{Status: domain.JobStatusProcessing, Progress: 0.4},
				{Status: domain.JobStatusCompleted, ResultRef: "videos/out.mp4", Progress: 1},
			},
		},
	}
	f := newFixture(t, []providers.Adapter{adapter}, nil, testConfig())
	f.ledger.balances["owner-a"] = 3
	f.orders.add(pendingOrder("o1", "owner-a"))

	if err := f.orch.ProcessOrder(context.Background(), "o1"); err != nil {
		t.Fatalf("ProcessOrder error: %v", err)
	}
	waitFor(t, func() bool { return f.orders.status("o1").Terminal() })

	if got := f.orders.status("o1"); got != domain.OrderStatusCompleted {
		t.Fatalf("expected completed, got %s", got)
	}
	if refs := f.orders.resultRefs("o1"); len(refs) != 1 || refs[0] != "videos/out.mp4" {
		t.Fatalf("unexpected result refs %v", refs)
	}
	if got := f.ledger.balance("owner-a"); got != 2 {
		t.Fatalf("expected exactly one credit debited, balance %d", got)
	}
	if !strings.Contains(f.notifier.lastSent(), "videos/out.mp4") {
		t.Fatalf("expected delivery message, got %q", f.notifier.lastSent())
	}
}

func TestFailedOrderRefundsCredit(t *testing.T) {
	adapter := &fakeAdapter{
		kind:       domain.ProviderKindGemini,
		submitJobs: []domain.Job{{ID: "op-1"}},
		results: map[string][]providers.PollResult{
			"op-1": {{Status: domain.JobStatusFailed, Progress: -1, ErrorRaw: "blocked by content moderation policy"}},
		},
	}
	f := newFixture(t, []providers.Adapter{adapter}, nil, testConfig())
	f.ledger.balances["owner-a"] = 3
	f.orders.add(pendingOrder("o1", "owner-a"))

	if err := f.orch.ProcessOrder(context.Background(), "o1"); err != nil {
		t.Fatalf("ProcessOrder error: %v", err)
	}
	waitFor(t, func() bool { return f.orders.status("o1").Terminal() })

	if got := f.orders.status("o1"); got != domain.OrderStatusFailed {
		t.Fatalf("expected failed, got %s", got)
	}
	if got := f.ledger.balance("owner-a"); got != 3 {
		t.Fatalf("failed order must leave balance unchanged, got %d", got)
	}
	last := f.notifier.lastSent()
	if !strings.Contains(last, "content policy") {
		t.Fatalf("expected moderation message, got %q", last)
	}
	if !strings.Contains(last, "credit has been returned") {
		t.Fatalf("expected refund note, got %q", last)
	}
}

func TestAllSubmissionsRejected(t *testing.T) {
	adapter := &fakeAdapter{
		kind:      domain.ProviderKindGemini,
		submitErr: fmt.Errorf("image resolution below minimum"),
	}
	f := newFixture(t, []providers.Adapter{adapter}, nil, testConfig())
	f.ledger.balances["owner-a"] = 3
	f.orders.add(pendingOrder("o1", "owner-a"))

	if err := f.orch.ProcessOrder(context.Background(), "o1"); err != nil {
		t.Fatalf("ProcessOrder error: %v", err)
	}
	waitFor(t, func() bool { return f.orders.status("o1").Terminal() })

	if got := f.orders.status("o1"); got != domain.OrderStatusFailed {
		t.Fatalf("expected failed, got %s", got)
	}
	if got := f.ledger.balance("owner-a"); got != 3 {
		t.Fatalf("no debit should happen before a provider accepts, balance %d", got)
	}
	if strings.Contains(f.notifier.lastSent(), "credit has been returned") {
		t.Fatal("no refund note expected when nothing was debited")
	}
}

func TestPartialSuccessDeliversAvailableResults(t *testing.T) {
	adapter := &fakeAdapter{
		kind: domain.ProviderKindGemini,
		submitJobs: []domain.Job{
			{ID: "op-fast", Model: "veo-3.0-generate-001"},
			{ID: "op-slow", Model: "veo-2.0-generate-001"},
		},
		results: map[string][]providers.PollResult{
			"op-fast": {{Status: domain.JobStatusCompleted, ResultRef: "videos/fast.mp4", Progress: 1}},
			// op-slow never finishes.
		},
	}
	cfg := testConfig()
	cfg.MaxPollAttempts = 3
	f := newFixture(t, []providers.Adapter{adapter}, nil, cfg)
	f.ledger.balances["owner-a"] = 1
	f.orders.add(pendingOrder("o1", "owner-a"))

	if err := f.orch.ProcessOrder(context.Background(), "o1"); err != nil {
		t.Fatalf("ProcessOrder error: %v", err)
	}
	waitFor(t, func() bool { return f.orders.status("o1").Terminal() })

	if got := f.orders.status("o1"); got != domain.OrderStatusCompleted {
		t.Fatalf("partial success must complete the order, got %s", got)
	}
	if refs := f.orders.resultRefs("o1"); len(refs) != 1 || refs[0] != "videos/fast.mp4" {
		t.Fatalf("unexpected result refs %v", refs)
	}
	if got := f.ledger.balance("owner-a"); got != 0 {
		t.Fatalf("completed order keeps the debit, balance %d", got)
	}

	jobs, _ := f.jobs.ListByOrderID(context.Background(), "o1")
	for _, j := range jobs {
		if j.ID == "op-slow" {
			if j.Status != domain.JobStatusFailed || j.ErrorKind != domain.ErrorKindProviderTimeout {
				t.Fatalf("straggler should be recorded as timed out, got %+v", j)
			}
		}
	}
}

func TestPaymentFundedOrderSkipsLedger(t *testing.T) {
	adapter := &fakeAdapter{
		kind:       domain.ProviderKindGemini,
		submitJobs: []domain.Job{{ID: "op-1"}},
		results: map[string][]providers.PollResult{
			"op-1": {{Status: domain.JobStatusCompleted, ResultRef: "videos/out.mp4", Progress: 1}},
		},
	}
	f := newFixture(t, []providers.Adapter{adapter}, nil, testConfig())
	f.ledger.balances["owner-a"] = 3
	f.orders.add(pendingOrder("o1", "owner-a"))
	f.orders.payments["o1"] = true

	if err := f.orch.ProcessOrder(context.Background(), "o1"); err != nil {
		t.Fatalf("ProcessOrder error: %v", err)
	}
	waitFor(t, func() bool { return f.orders.status("o1").Terminal() })

	if got := f.ledger.balance("owner-a"); got != 3 {
		t.Fatalf("payment-funded order must not touch credits, balance %d", got)
	}
}

func TestReprocessingTerminalOrderIsNoop(t *testing.T) {
	adapter := &fakeAdapter{kind: domain.ProviderKindGemini}
	f := newFixture(t, []providers.Adapter{adapter}, nil, testConfig())
	done := pendingOrder("o1", "owner-a")
	done.Status = domain.OrderStatusCompleted
	f.orders.add(done)

	if err := f.orch.ProcessOrder(context.Background(), "o1"); err != nil {
		t.Fatalf("ProcessOrder error: %v", err)
	}
	if len(adapter.submitted()) != 0 {
		t.Fatal("terminal order must not be resubmitted")
	}
}

func TestPipelineFeedsCombinedFrameToVideoStage(t *testing.T) {
	combiner := &fakeAdapter{
		kind: domain.ProviderKindImagen,
		submitJobs: []domain.Job{{
			ID:        "combine-1",
			Status:    domain.JobStatusCompleted,
			ResultRef: "images/combined.png",
		}},
	}
	video := &fakeAdapter{
		kind:       domain.ProviderKindGemini,
		submitJobs: []domain.Job{{ID: "op-1"}},
		results: map[string][]providers.PollResult{
			"op-1": {{Status: domain.JobStatusCompleted, ResultRef: "videos/final.mp4", Progress: 1}},
		},
	}
	f := newFixture(t, []providers.Adapter{video}, combiner, testConfig())
	f.ledger.balances["owner-a"] = 2

	order := pendingOrder("o1", "owner-a")
	order.Kind = domain.OrderKindCombineAnimate
	order.SecondPhotoRef = "photos/second.jpg"
	f.orders.add(order)

	if err := f.orch.ProcessOrder(context.Background(), "o1"); err != nil {
		t.Fatalf("ProcessOrder error: %v", err)
	}
	waitFor(t, func() bool { return f.orders.status("o1").Terminal() })

	if got := f.orders.status("o1"); got != domain.OrderStatusCompleted {
		t.Fatalf("expected completed, got %s", got)
	}
	submits := video.submitted()
	if len(submits) != 1 {
		t.Fatalf("expected one video submission, got %d", len(submits))
	}
	if submits[0].PhotoRef != "images/combined.png" {
		t.Fatalf("animate stage must use the combined frame, got %q", submits[0].PhotoRef)
	}
	if submits[0].SecondPhotoRef != "" {
		t.Fatal("second photo must not leak into the animate stage")
	}
	if got := f.ledger.balance("owner-a"); got != 1 {
		t.Fatalf("pipeline must debit exactly once, balance %d", got)
	}
}

func TestPipelineCombineFailureRefunds(t *testing.T) {
	combiner := &fakeAdapter{
		kind: domain.ProviderKindImagen,
		submitJobs: []domain.Job{{
			ID:          "combine-1",
			Status:      domain.JobStatusFailed,
			ErrorKind:   domain.ErrorKindContentModeration,
			ErrorDetail: "blocked by content moderation policy",
		}},
	}
	video := &fakeAdapter{kind: domain.ProviderKindGemini}
	f := newFixture(t, []providers.Adapter{video}, combiner, testConfig())
	f.ledger.balances["owner-a"] = 2

	order := pendingOrder("o1", "owner-a")
	order.Kind = domain.OrderKindCombineAnimate
	order.SecondPhotoRef = "photos/second.jpg"
	f.orders.add(order)

	if err := f.orch.ProcessOrder(context.Background(), "o1"); err != nil {
		t.Fatalf("ProcessOrder error: %v", err)
	}
	waitFor(t, func() bool { return f.orders.status("o1").Terminal() })

	if got := f.orders.status("o1"); got != domain.OrderStatusFailed {
		t.Fatalf("expected failed, got %s", got)
	}
	if len(video.submitted()) != 0 {
		t.Fatal("animate stage must not run after a combine failure")
	}
	if got := f.ledger.balance("owner-a"); got != 2 {
		t.Fatalf("combine failure must refund the credit, balance %d", got)
	}
}

func TestThrottledSweepAdmitsOldestFirst(t *testing.T) {
	adapter := &fakeAdapter{
		kind:       domain.ProviderKindGemini,
		submitJobs: []domain.Job{{ID: "op-1"}},
	}
	f := newFixture(t, []providers.Adapter{adapter}, nil, Config{
		ConcurrencyCeiling: 1,
		PollInterval:       5 * time.Millisecond,
		MaxPollAttempts:    20,
		CreditCost:         1,
	})
	f.ledger.balances["owner-a"] = 5

	older := pendingOrder("older", "owner-a")
	older.Status = domain.OrderStatusThrottled
	older.CreatedAt = time.Now().Add(-time.Hour)
	newer := pendingOrder("newer", "owner-a")
	newer.Status = domain.OrderStatusThrottled
	f.orders.add(older)
	f.orders.add(newer)

	f.orch.ProcessThrottledOrders(context.Background())
	waitFor(t, func() bool { return f.orders.status("older") != domain.OrderStatusThrottled })

	if got := f.orders.status("newer"); got != domain.OrderStatusThrottled {
		t.Fatalf("only one slot was free, newer order should stay queued, got %s", got)
	}
}

func TestStaleSweepFailsAndRefunds(t *testing.T) {
	adapter := &fakeAdapter{kind: domain.ProviderKindGemini}
	cfg := testConfig()
	cfg.StaleAfter = time.Minute
	f := newFixture(t, []providers.Adapter{adapter}, nil, cfg)
	f.ledger.balances["owner-a"] = 4

	stuck := pendingOrder("stuck", "owner-a")
	stuck.Status = domain.OrderStatusProcessing
	stuck.UpdatedAt = time.Now().Add(-time.Hour)
	f.orders.add(stuck)

	f.orch.ProcessStaleOrders(context.Background())

	if got := f.orders.status("stuck"); got != domain.OrderStatusFailed {
		t.Fatalf("expected failed, got %s", got)
	}
	if got := f.ledger.balance("owner-a"); got != 5 {
		t.Fatalf("stale order refund missing, balance %d", got)
	}
}

func TestIntakeSweepProcessesPending(t *testing.T) {
	adapter := &fakeAdapter{
		kind:       domain.ProviderKindGemini,
		submitJobs: []domain.Job{{ID: "op-1"}},
		results: map[string][]providers.PollResult{
			"op-1": {{Status: domain.JobStatusCompleted, ResultRef: "videos/out.mp4", Progress: 1}},
		},
	}
	f := newFixture(t, []providers.Adapter{adapter}, nil, testConfig())
	f.ledger.balances["owner-a"] = 2
	f.orders.add(pendingOrder("o1", "owner-a"))

	f.orch.ProcessNewOrders(context.Background())
	waitFor(t, func() bool { return f.orders.status("o1").Terminal() })

	if got := f.orders.status("o1"); got != domain.OrderStatusCompleted {
		t.Fatalf("expected completed, got %s", got)
	}
}

func TestInsufficientCreditFailsOrder(t *testing.T) {
	adapter := &fakeAdapter{
		kind:       domain.ProviderKindGemini,
		submitJobs: []domain.Job{{ID: "op-1"}},
	}
	f := newFixture(t, []providers.Adapter{adapter}, nil, testConfig())
	f.orders.add(pendingOrder("o1", "owner-a"))

	err := f.orch.ProcessOrder(context.Background(), "o1")
	if err == nil {
		t.Fatal("expected insufficient credit error")
	}
	if got := f.orders.status("o1"); got != domain.OrderStatusFailed {
		t.Fatalf("expected failed, got %s", got)
	}
	if got := f.ledger.balance("owner-a"); got != 0 {
		t.Fatalf("balance must stay zero, got %d", got)
	}
}

func TestMultiResultDelivery(t *testing.T) {
	jobs := []domain.Job{
		{Model: "veo-3.0-generate-001", ResultRef: "videos/a.mp4"},
		{Model: "veo-2.0-generate-001", ResultRef: "videos/b.mp4"},
	}
	msg := msgResults(jobs)
	if !strings.Contains(msg, "1. Veo 3.0 Generate 001") {
		t.Fatalf("missing first label: %q", msg)
	}
	if !strings.Contains(msg, "videos/b.mp4") {
		t.Fatalf("missing second ref: %q", msg)
	}

	single := msgResults(jobs[:1])
	if strings.Contains(single, "1.") {
		t.Fatalf("single result should not be enumerated: %q", single)
	}
}
