// Package aggregator coalesces concurrent single-request Translate calls
// into grouped TranslateBatch calls on a cadence, trading a small bounded
// latency for throughput. Each pending request gets its own response
// channel; the flush worker fills many channels from one model call.
package aggregator

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/orneryd/scanlate/pkg/engine"
)

// Load tiers: the dynamic per-flush maximum batch size scales with
// available accelerator headroom, bounded above by the engine's static
// maximum.
const (
	LowLoadMaxBatch  = 32
	MidLoadMaxBatch  = 16
	HighLoadMaxBatch = 8

	// MaxWait is the longest an entry waits for its group to fill before
	// the flush worker dispatches whatever it has.
	MaxWait = 30 * time.Millisecond

	// PendingTimeout is the hard per-entry ceiling from enqueue to
	// completion.
	PendingTimeout = 10 * time.Second
)

// LoadTier reports the current dynamic batch ceiling; the tier function
// passed to New tells the aggregator which tier applies.
type LoadTier int

const (
	LoadLow LoadTier = iota
	LoadMid
	LoadHigh
)

func (t LoadTier) maxBatch(staticMax int) int {
	var tier int
	switch t {
	case LoadMid:
		tier = MidLoadMaxBatch
	case LoadHigh:
		tier = HighLoadMaxBatch
	default:
		tier = LowLoadMaxBatch
	}
	if tier > staticMax {
		return staticMax
	}
	return tier
}

// Translator is the narrow subset of engine.TranslationEngine the
// aggregator drives.
type Translator interface {
	TranslateBatch(ctx context.Context, reqs []engine.TranslateRequest) ([]engine.TranslateResult, error)
	Translate(ctx context.Context, req engine.TranslateRequest) (engine.TranslateResult, error)
}

type pendingEntry struct {
	req      engine.TranslateRequest
	ctx      context.Context
	resultCh chan engine.TranslateResult
	errCh    chan error
	enqueued time.Time
}

// Aggregator batches concurrent Translate calls by (source, target)
// language pair.
type Aggregator struct {
	tr        Translator
	staticMax int
	tier      func() LoadTier

	mu      sync.Mutex
	pending []*pendingEntry

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

// New constructs an Aggregator. staticMax is the engine's declared hard
// ceiling; tier, if non-nil, reports the current load tier for dynamic
// sizing — a nil tier always behaves as LoadLow.
func New(tr Translator, staticMax int, tier func() LoadTier) *Aggregator {
	if tier == nil {
		tier = func() LoadTier { return LoadLow }
	}
	a := &Aggregator{
		tr:        tr,
		staticMax: staticMax,
		tier:      tier,
		wake:      make(chan struct{}, 1),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go a.run()
	return a
}

// Submit enqueues a request and blocks until it is translated, the
// request's context is cancelled, or PendingTimeout elapses — whichever
// comes first.
func (a *Aggregator) Submit(ctx context.Context, req engine.TranslateRequest) (engine.TranslateResult, error) {
	e := &pendingEntry{
		req:      req,
		ctx:      ctx,
		resultCh: make(chan engine.TranslateResult, 1),
		errCh:    make(chan error, 1),
		enqueued: time.Now(),
	}

	a.mu.Lock()
	a.pending = append(a.pending, e)
	a.mu.Unlock()
	select {
	case a.wake <- struct{}{}:
	default:
	}

	timeout := time.NewTimer(PendingTimeout)
	defer timeout.Stop()

	select {
	case res := <-e.resultCh:
		return res, nil
	case err := <-e.errCh:
		return engine.TranslateResult{}, err
	case <-ctx.Done():
		// Dropped if not yet dispatched; if dispatch already claimed this
		// entry the flush goroutine still completes it normally and the
		// result is discarded here.
		return engine.TranslateResult{}, ctx.Err()
	case <-timeout.C:
		return engine.TranslateResult{}, engine.NewError(engine.KindCancelled, "aggregator pending timeout exceeded")
	}
}

func (a *Aggregator) run() {
	defer close(a.done)
	ticker := time.NewTicker(MaxWait)
	defer ticker.Stop()

	for {
		select {
		case <-a.stop:
			return
		case <-a.wake:
			a.maybeFlush(false)
		case <-ticker.C:
			a.maybeFlush(true)
		}
	}
}

// maybeFlush dispatches up to the dynamic max batch size of pending
// entries, oldest first, when the pending set has grown to that size, the
// oldest entry has waited MaxWait, or force is set (the periodic tick,
// guaranteeing MaxWait bounds latency for a lone entry). Entries beyond
// the maximum stay pending for the next flush.
func (a *Aggregator) maybeFlush(force bool) {
	a.mu.Lock()
	if len(a.pending) == 0 {
		a.mu.Unlock()
		return
	}
	maxBatch := a.tier().maxBatch(a.staticMax)
	oldest := a.pending[0].enqueued
	waited := time.Since(oldest) >= MaxWait
	if !force && len(a.pending) < maxBatch && !waited {
		a.mu.Unlock()
		return
	}
	n := len(a.pending)
	if n > maxBatch {
		n = maxBatch
	}
	batch := a.pending[:n:n]
	a.pending = append([]*pendingEntry(nil), a.pending[n:]...)
	remaining := len(a.pending) > 0
	a.mu.Unlock()
	if remaining {
		select {
		case a.wake <- struct{}{}:
		default:
		}
	}

	a.dispatch(batch)
}

// dispatch groups the batch by (source, target) language pair and issues
// one TranslateBatch call per group, preserving each group's original
// relative order.
func (a *Aggregator) dispatch(batch []*pendingEntry) {
	live := make([]*pendingEntry, 0, len(batch))
	for _, e := range batch {
		select {
		case <-e.ctx.Done():
			continue // cancelled before flush: silently dropped
		default:
			live = append(live, e)
		}
	}
	if len(live) == 0 {
		return
	}

	groups := make(map[string][]*pendingEntry)
	var order []string
	for _, e := range live {
		key := e.req.SourceLang + "\x00" + e.req.TargetLang
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], e)
	}
	sort.Strings(order)

	for _, key := range order {
		group := groups[key]
		reqs := make([]engine.TranslateRequest, len(group))
		for i, e := range group {
			reqs[i] = e.req
		}
		results, err := a.tr.TranslateBatch(group[0].ctx, reqs)
		if err != nil {
			a.fallbackIndividually(group)
			continue
		}
		for i, e := range group {
			if i >= len(results) {
				a.fallbackIndividually([]*pendingEntry{e})
				continue
			}
			e.resultCh <- results[i]
		}
	}
}

// fallbackIndividually is used when the grouped call itself fails (e.g.
// the engine is mid-reload) — each entry falls back to a direct,
// un-batched Translate call rather than failing outright.
func (a *Aggregator) fallbackIndividually(group []*pendingEntry) {
	for _, e := range group {
		res, err := a.tr.Translate(e.ctx, e.req)
		if err != nil {
			e.errCh <- err
			continue
		}
		e.resultCh <- res
	}
}

// Close stops the flush worker. Pending entries still block on their own
// PendingTimeout; Close does not cancel them.
func (a *Aggregator) Close() {
	close(a.stop)
	<-a.done
}
