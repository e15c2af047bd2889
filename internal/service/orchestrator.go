package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"go-pos-terminal/internal/model"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// CatalogSyncer and OutboxFlusher are the two steps of a sync cycle
type CatalogSyncer interface {
	SyncCatalog(ctx context.Context, tenantID string) ([]model.CatalogItem, error)
}

type OutboxFlusher interface {
	FlushPending(ctx context.Context, tenantID string) (*model.FlushReport, error)
}

type OrchestratorOptions struct {
	// Interval between timer triggers
	Interval time.Duration
	// CycleTimeout bounds one catalog refresh plus flush
	CycleTimeout time.Duration
	// BackoffInitial and BackoffMax shape the delay of timer triggers after a
	// cycle that did not complete cleanly
	BackoffInitial time.Duration
	BackoffMax     time.Duration
}

func (o *OrchestratorOptions) withDefaults() OrchestratorOptions {
	out := *o
	if out.Interval <= 0 {
		out.Interval = 30 * time.Second
	}
	if out.CycleTimeout <= 0 {
		out.CycleTimeout = 2 * time.Minute
	}
	if out.BackoffInitial <= 0 {
		out.BackoffInitial = out.Interval
	}
	if out.BackoffMax <= 0 {
		out.BackoffMax = 10 * out.Interval
	}
	return out
}

// Orchestrator drives sync cycles per tenant. Each tenant has one worker, so
// cycles of a tenant never overlap; a trigger that arrives while a cycle runs
// queues at most one follow-up cycle, further ones are coalesced into it.
type Orchestrator struct {
	catalog CatalogSyncer
	outbox  OutboxFlusher
	log     *zap.Logger
	opts    OrchestratorOptions
	now     func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	stopped   bool
	sessions  map[string]*session
	observers []func(model.CycleReport)
}

type session struct {
	tenantID string
	triggers chan model.Trigger

	// held for the whole cycle
	cycleMu sync.Mutex

	mu        sync.Mutex
	state     model.SyncState
	last      *model.CycleReport
	backoff   *backoff.ExponentialBackOff
	notBefore time.Time
}

func NewOrchestrator(catalog CatalogSyncer, outbox OutboxFlusher, opts OrchestratorOptions, log *zap.Logger) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		catalog:  catalog,
		outbox:   outbox,
		log:      log.Named("orchestrator"),
		opts:     opts.withDefaults(),
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*session),
	}
}

// OnCycle registers fn to be called after every finished cycle, on the
// tenant's worker goroutine.
func (o *Orchestrator) OnCycle(fn func(model.CycleReport)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.observers = append(o.observers, fn)
}

// Register makes the tenant part of the timer schedule
func (o *Orchestrator) Register(tenantID string) {
	o.session(tenantID)
}

// Tenants lists registered tenants in name order
func (o *Orchestrator) Tenants() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, 0, len(o.sessions))
	for id := range o.sessions {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Trigger asks for a sync cycle. It reports whether a cycle was queued;
// false means the trigger was coalesced into an already pending cycle,
// skipped because the tenant is backing off (timer triggers only), or the
// orchestrator is stopped.
func (o *Orchestrator) Trigger(tenantID string, trigger model.Trigger) bool {
	s := o.session(tenantID)
	if s == nil {
		return false
	}

	if trigger == model.TriggerTimer {
		s.mu.Lock()
		wait := s.notBefore.After(o.now())
		s.mu.Unlock()
		if wait {
			o.log.Debug("timer trigger skipped, backing off", zap.String("tenant_id", tenantID))
			return false
		}
	}

	select {
	case s.triggers <- trigger:
		return true
	default:
		o.log.Debug("trigger coalesced", zap.String("tenant_id", tenantID), zap.String("trigger", string(trigger)))
		return false
	}
}

// RunCycle runs one cycle for the tenant on the calling goroutine, waiting
// for any cycle of the same tenant that is already in flight.
func (o *Orchestrator) RunCycle(ctx context.Context, tenantID string, trigger model.Trigger) model.CycleReport {
	s := o.session(tenantID)
	if s == nil {
		s = newSession(tenantID, o.opts)
	}
	return o.runCycle(ctx, s, trigger)
}

// State returns the tenant's session state. Unknown tenants are idle.
func (o *Orchestrator) State(tenantID string) model.SyncState {
	o.mu.Lock()
	s, ok := o.sessions[tenantID]
	o.mu.Unlock()
	if !ok {
		return model.StateIdle
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastReport returns the most recent finished cycle of the tenant
func (o *Orchestrator) LastReport(tenantID string) (model.CycleReport, bool) {
	o.mu.Lock()
	s, ok := o.sessions[tenantID]
	o.mu.Unlock()
	if !ok {
		return model.CycleReport{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return model.CycleReport{}, false
	}
	return *s.last, true
}

// Run fires a timer trigger for every registered tenant right away and then
// on each interval, until ctx is cancelled. It stops the workers before
// returning.
func (o *Orchestrator) Run(ctx context.Context) error {
	defer o.Stop()

	ticker := time.NewTicker(o.opts.Interval)
	defer ticker.Stop()

	o.tick()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-o.ctx.Done():
			return nil
		case <-ticker.C:
			o.tick()
		}
	}
}

func (o *Orchestrator) tick() {
	for _, tenantID := range o.Tenants() {
		o.Trigger(tenantID, model.TriggerTimer)
	}
}

// Stop cancels in-flight cycles and waits for the workers to exit
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	o.stopped = true
	o.mu.Unlock()

	o.cancel()
	o.wg.Wait()
}

func newSession(tenantID string, opts OrchestratorOptions) *session {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = opts.BackoffInitial
	b.MaxInterval = opts.BackoffMax
	b.Reset()

	return &session{
		tenantID: tenantID,
		triggers: make(chan model.Trigger, 1),
		state:    model.StateIdle,
		backoff:  b,
	}
}

// session returns the tenant's session, starting its worker on first use.
// It returns nil once the orchestrator is stopped, even for known tenants:
// their workers are gone and nothing would read a queued trigger.
func (o *Orchestrator) session(tenantID string) *session {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.stopped {
		return nil
	}
	if s, ok := o.sessions[tenantID]; ok {
		return s
	}

	s := newSession(tenantID, o.opts)
	o.sessions[tenantID] = s
	o.wg.Add(1)
	go o.work(s)
	return s
}

func (o *Orchestrator) work(s *session) {
	defer o.wg.Done()
	for {
		select {
		case <-o.ctx.Done():
			return
		case trigger := <-s.triggers:
			o.runCycle(o.ctx, s, trigger)
		}
	}
}

// runCycle refreshes the catalog and then flushes the outbox. Both steps run
// whatever the outcome of the other; the session always ends idle.
func (o *Orchestrator) runCycle(ctx context.Context, s *session, trigger model.Trigger) model.CycleReport {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	s.setState(model.StateSyncing)
	defer s.setState(model.StateIdle)

	cctx, cancel := context.WithTimeout(ctx, o.opts.CycleTimeout)
	defer cancel()

	report := model.CycleReport{
		TenantID:  s.tenantID,
		Trigger:   trigger,
		StartedAt: o.now(),
	}

	items, err := o.catalog.SyncCatalog(cctx, s.tenantID)
	if err != nil {
		report.CatalogError = err.Error()
		report.CatalogKind = model.KindOf(err)
	} else {
		report.CatalogItems = len(items)
	}

	flush, err := o.outbox.FlushPending(cctx, s.tenantID)
	report.Flush = flush
	if err != nil {
		report.FlushError = err.Error()
		report.FlushKind = model.KindOf(err)
	}
	report.FinishedAt = o.now()

	o.finishCycle(s, report)
	return report
}

func (o *Orchestrator) finishCycle(s *session, report model.CycleReport) {
	s.mu.Lock()
	s.last = &report
	if report.Clean() {
		s.backoff.Reset()
		s.notBefore = time.Time{}
	} else {
		s.notBefore = report.FinishedAt.Add(s.backoff.NextBackOff())
	}
	notBefore := s.notBefore
	s.mu.Unlock()

	fields := []zap.Field{
		zap.String("tenant_id", report.TenantID),
		zap.String("trigger", string(report.Trigger)),
		zap.Duration("took", report.FinishedAt.Sub(report.StartedAt)),
		zap.Int("catalog_items", report.CatalogItems),
	}
	if report.Flush != nil {
		fields = append(fields, zap.Int("delivered", report.Flush.Delivered), zap.Int("failed", report.Flush.Failed))
	}
	switch {
	case report.StoreFailure():
		o.log.Error("sync cycle hit a local store failure", append(fields,
			zap.String("catalog_error", report.CatalogError),
			zap.String("flush_error", report.FlushError))...)
	case report.Clean():
		o.log.Info("sync cycle finished", fields...)
	default:
		o.log.Warn("sync cycle finished with failures", append(fields,
			zap.String("catalog_error", report.CatalogError),
			zap.Time("next_timer_attempt", notBefore))...)
	}

	o.mu.Lock()
	observers := append([]func(model.CycleReport){}, o.observers...)
	o.mu.Unlock()
	for _, fn := range observers {
		fn(report)
	}
}

func (s *session) setState(state model.SyncState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}
