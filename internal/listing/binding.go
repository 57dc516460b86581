package listing

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"kasirinaja/backoffice/internal/debounce"
	"kasirinaja/backoffice/internal/domain"
	"kasirinaja/backoffice/internal/metrics"
	"kasirinaja/backoffice/internal/query"
	"kasirinaja/backoffice/internal/source"
	"kasirinaja/backoffice/internal/xid"
)

const DefaultSearchDebounce = 300 * time.Millisecond

// StoreContext is the read side of the current-store context. The binding
// observes it and never switches stores itself.
type StoreContext interface {
	Current() *domain.StoreID
	Subscribe(fn func(*domain.StoreID)) func()
}

// State is what a list screen renders. IsLoading means no page has arrived
// yet; IsFetching means a request is in flight.
type State struct {
	Data       *domain.Page
	IsLoading  bool
	IsFetching bool
	Err        error
	Params     query.Params
	RequestID  string
}

type BindingOptions struct {
	// Debounce delays search-only changes. Zero means DefaultSearchDebounce,
	// a negative value applies search immediately.
	Debounce time.Duration
	Now      func() time.Time
	Stores   StoreContext
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
}

type Binding struct {
	ctrl      *Controller
	src       source.Source
	stores    StoreContext
	now       func() time.Time
	log       *slog.Logger
	metrics   *metrics.Metrics
	debouncer *debounce.Debouncer

	mu       sync.Mutex
	base     context.Context
	state    State
	lastKey  string
	seq      uint64
	cancel   context.CancelFunc
	inflight int
	// searchPending covers the debounce delay of a search change.
	searchPending bool
	idle          chan struct{}
	started       bool
	closed        bool
	nextSub       int
	subs          map[int]func(State)
	unsubs        []func()
	// version orders snapshots; deliver drops any older than published.
	version uint64

	pubMu     sync.Mutex
	published uint64
}

func NewBinding(ctrl *Controller, src source.Source, opts BindingOptions) *Binding {
	b := &Binding{
		ctrl:    ctrl,
		src:     src,
		stores:  opts.Stores,
		now:     opts.Now,
		log:     opts.Logger,
		metrics: opts.Metrics,
		subs:    make(map[int]func(State)),
	}
	if b.now == nil {
		b.now = time.Now
	}
	if b.log == nil {
		b.log = slog.New(slog.DiscardHandler)
	}
	b.log = b.log.With(slog.String("component", "list-binding"), slog.String("screen", ctrl.Screen().Name))

	delay := opts.Debounce
	if delay == 0 {
		delay = DefaultSearchDebounce
	}
	b.debouncer = debounce.New(delay, b.applySearch)
	return b
}

func (b *Binding) Controller() *Controller {
	return b.ctrl
}

// Start follows the controller and the store context and issues the first
// request. Requests run under ctx until Close.
func (b *Binding) Start(ctx context.Context) {
	b.mu.Lock()
	if b.started || b.closed {
		b.mu.Unlock()
		return
	}
	b.started = true
	b.base = ctx
	b.mu.Unlock()

	if b.stores != nil {
		if current := b.stores.Current(); !sameStoreID(current, b.ctrl.Filters().CurrentStoreID()) {
			b.ctrl.OnStoreContextChanged(current)
		}
		b.addUnsub(b.stores.Subscribe(b.ctrl.OnStoreContextChanged))
	}
	b.addUnsub(b.ctrl.Subscribe(b.onChange))
	b.sync()
}

func (b *Binding) addUnsub(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.unsubs = append(b.unsubs, fn)
}

func (b *Binding) onChange(change Change) {
	if change == ChangeSearch {
		b.mu.Lock()
		b.searchPending = true
		b.markBusyLocked()
		b.mu.Unlock()
		b.debouncer.Trigger()
		return
	}
	// Anything else applies now and takes a pending search along with it.
	if !b.debouncer.Flush() {
		b.sync()
	}
}

// Subscribe registers fn for every state change. Snapshots arrive in order
// and fn must not call Refresh or Close. The returned func removes the
// subscription.
func (b *Binding) Subscribe(fn func(State)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextSub
	b.nextSub++
	b.subs[id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

func (b *Binding) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshotLocked()
}

func (b *Binding) snapshotLocked() State {
	s := b.state
	s.Params = s.Params.Clone()
	return s
}

// Refresh re-issues the current parameters even when they did not change.
func (b *Binding) Refresh() {
	dropped := b.debouncer.Cancel()
	b.issue(true)
	if dropped {
		b.mu.Lock()
		b.searchPending = false
		b.settleLocked()
		b.mu.Unlock()
	}
}

func (b *Binding) sync() {
	b.issue(false)
}

func (b *Binding) applySearch() {
	b.issue(false)
	b.mu.Lock()
	b.searchPending = false
	b.settleLocked()
	b.mu.Unlock()
}

func (b *Binding) markBusyLocked() {
	if b.idle == nil {
		b.idle = make(chan struct{})
	}
}

// settleLocked wakes WaitIdle callers once nothing is pending.
func (b *Binding) settleLocked() {
	if b.searchPending || b.inflight > 0 || b.idle == nil {
		return
	}
	close(b.idle)
	b.idle = nil
}

func (b *Binding) issue(force bool) {
	params := b.ctrl.Params(b.now())
	key := params.Encode()

	b.mu.Lock()
	if !b.started || b.closed || (!force && key == b.lastKey) {
		b.mu.Unlock()
		return
	}
	b.lastKey = key
	b.seq++
	seq := b.seq
	if b.cancel != nil {
		b.cancel()
	}
	ctx, cancel := context.WithCancel(b.base)
	b.cancel = cancel
	reqID := xid.New("req")
	ctx = xid.WithRequestID(ctx, reqID)

	b.inflight++
	b.markBusyLocked()
	b.state.IsFetching = true
	b.state.IsLoading = b.state.Data == nil
	b.state.Params = params
	b.state.RequestID = reqID
	ver, snap, subs := b.stampLocked()
	b.mu.Unlock()

	b.deliver(ver, snap, subs)
	go b.fetch(ctx, cancel, seq, params, reqID)
}

func (b *Binding) fetch(ctx context.Context, cancel context.CancelFunc, seq uint64, params query.Params, reqID string) {
	defer cancel()
	defer b.finish()
	screen := b.ctrl.Screen()
	started := time.Now()
	page, err := b.src.List(ctx, screen, params)
	b.metrics.ObserveRequest(screen.Name, outcome(err), time.Since(started))

	b.mu.Lock()
	if seq != b.seq || b.closed {
		closed := b.closed
		b.mu.Unlock()
		if !closed {
			b.metrics.StaleDiscarded(screen.Name)
			b.log.Debug("stale list response discarded", slog.String("request_id", reqID))
		}
		return
	}
	b.state.IsFetching = false
	b.state.IsLoading = false
	if err != nil {
		b.state.Err = err
	} else {
		if page == nil {
			page = &domain.Page{Items: []domain.Record{}}
		}
		b.state.Data = page
		b.state.Err = nil
		b.ctrl.ApplyTotals(page.Pagination)
	}
	ver, snap, subs := b.stampLocked()
	b.mu.Unlock()

	b.deliver(ver, snap, subs)
}

func (b *Binding) finish() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inflight--
	b.settleLocked()
}

// WaitIdle blocks until no request is in flight and no search is waiting on
// the debounce delay.
func (b *Binding) WaitIdle(ctx context.Context) error {
	for {
		b.mu.Lock()
		idle := b.idle
		b.mu.Unlock()
		if idle == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-idle:
		}
	}
}

// Close cancels the in-flight request and stops following changes. Later
// responses are dropped.
func (b *Binding) Close() {
	b.debouncer.Stop()
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.seq++
	b.searchPending = false
	b.settleLocked()
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
	unsubs := b.unsubs
	b.unsubs = nil
	b.mu.Unlock()
	for _, fn := range unsubs {
		fn()
	}
}

func (b *Binding) subscribersLocked() []func(State) {
	out := make([]func(State), 0, len(b.subs))
	for _, fn := range b.subs {
		out = append(out, fn)
	}
	return out
}

func (b *Binding) stampLocked() (uint64, State, []func(State)) {
	b.version++
	return b.version, b.snapshotLocked(), b.subscribersLocked()
}

// deliver publishes snapshot ver unless a newer one already went out.
func (b *Binding) deliver(ver uint64, s State, subs []func(State)) {
	b.pubMu.Lock()
	defer b.pubMu.Unlock()
	if ver <= b.published {
		return
	}
	b.published = ver
	for _, fn := range subs {
		fn(s)
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, context.Canceled):
		return metrics.OutcomeCanceled
	default:
		return metrics.OutcomeError
	}
}

func sameStoreID(a *domain.StoreID, b *domain.StoreID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
