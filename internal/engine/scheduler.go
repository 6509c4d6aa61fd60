package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/dm/fleetmon-go/internal/client"
	"github.com/dm/fleetmon-go/internal/model"
)

var (
	// ErrStopped is returned by Start once the scheduler has been stopped.
	ErrStopped = errors.New("scheduler stopped")
	// ErrAlreadyStarted is returned by a second call to Start.
	ErrAlreadyStarted = errors.New("scheduler already started")
)

// State is the scheduler's lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "idle"
	}
}

// Trigger names what started a cycle.
type Trigger string

const (
	TriggerStart  Trigger = "start"
	TriggerTick   Trigger = "tick"
	TriggerManual Trigger = "manual"
)

// CycleFunc runs one refresh cycle against the previous snapshot.
type CycleFunc func(ctx context.Context, prev *model.Snapshot) CycleResult

// MergeCycleFunc binds MergeCycle to a client and options.
func MergeCycleFunc(c client.FleetClient, opts MergeOptions) CycleFunc {
	return func(ctx context.Context, prev *model.Snapshot) CycleResult {
		return MergeCycle(ctx, c, prev, opts)
	}
}

// SchedulerConfig configures a Scheduler.
type SchedulerConfig struct {
	Interval time.Duration
	Cycle    CycleFunc
	// Clock defaults to the real clock.
	Clock  Clock
	Logger zerolog.Logger
	// CycleTimeout bounds a whole cycle. Zero means no bound beyond the
	// client's per-request timeout.
	CycleTimeout time.Duration
	// OnSkip is called when a trigger arrives while a cycle is in flight.
	OnSkip func(Trigger)
}

// Update is delivered to subscribers once per completed cycle, whether or not
// anything changed.
type Update struct {
	Snapshot  *model.Snapshot
	Aggregate model.Aggregate
	// Err is non-nil when the cycle was skipped because the registry fetch
	// failed. Snapshot is then the previous one.
	Err       error
	Trigger   Trigger
	Completed time.Time
}

type view struct {
	snap *model.Snapshot
	agg  model.Aggregate
}

// Scheduler runs refresh cycles: one immediately on Start, then one per
// Interval. At most one cycle is in flight; triggers that arrive while a cycle
// runs are dropped, not queued. After Stop no cycle result is applied.
type Scheduler struct {
	cfg   SchedulerConfig
	clock Clock
	log   zerolog.Logger

	current atomic.Pointer[view]
	running atomic.Bool
	skipped atomic.Uint64

	mu      sync.Mutex
	state   State
	started bool
	subs    map[uint64]func(Update)
	nextSub uint64

	manual   chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewScheduler validates cfg and returns an idle scheduler holding the empty
// snapshot.
func NewScheduler(cfg SchedulerConfig) (*Scheduler, error) {
	if cfg.Interval <= 0 {
		return nil, errors.New("scheduler interval must be positive")
	}
	if cfg.Cycle == nil {
		return nil, errors.New("scheduler requires a cycle function")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = realClock{}
	}
	s := &Scheduler{
		cfg:    cfg,
		clock:  clock,
		log:    cfg.Logger.With().Str("component", "scheduler").Logger(),
		subs:   make(map[uint64]func(Update)),
		manual: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	empty := model.EmptySnapshot()
	s.current.Store(&view{snap: empty, agg: CalcAggregate(empty)})
	return s, nil
}

// Start runs the first cycle and then blocks, launching a cycle on every
// tick or TriggerNow, until Stop is called or ctx is done. Cancelling ctx
// stops the scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	switch {
	case s.state == StateStopped:
		s.mu.Unlock()
		return ErrStopped
	case s.started:
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	s.mu.Unlock()

	ticker := s.clock.Ticker(s.cfg.Interval)
	defer ticker.Stop()

	s.log.Info().Dur("interval", s.cfg.Interval).Msg("Starting scheduler")

	s.launch(ctx, TriggerStart)

	for {
		select {
		case <-ctx.Done():
			s.Stop()
			return ctx.Err()
		case <-s.done:
			return nil
		case <-ticker.Chan():
			s.launch(ctx, TriggerTick)
		case <-s.manual:
			s.launch(ctx, TriggerManual)
		}
	}
}

// Stop moves the scheduler to StateStopped. Pending timers are released and
// any in-flight cycle finishes without its result being applied. Stop is
// idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.state = StateStopped
	s.mu.Unlock()
	s.stopOnce.Do(func() {
		close(s.done)
		s.log.Info().Msg("Scheduler stopped")
	})
}

// Wait blocks until every launched cycle has returned.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// TriggerNow requests an immediate cycle. The request is dropped if one is
// already pending; it is subject to the same in-flight guard as ticks.
func (s *Scheduler) TriggerNow() {
	select {
	case s.manual <- struct{}{}:
	default:
	}
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot returns the current snapshot. It is never nil and must not be
// modified.
func (s *Scheduler) Snapshot() *model.Snapshot {
	return s.current.Load().snap
}

// Aggregate returns the aggregate computed from the current snapshot.
func (s *Scheduler) Aggregate() model.Aggregate {
	return s.current.Load().agg
}

// Interval returns the configured tick interval.
func (s *Scheduler) Interval() time.Duration {
	return s.cfg.Interval
}

// SkippedTriggers returns how many triggers were dropped because a cycle was
// still running.
func (s *Scheduler) SkippedTriggers() uint64 {
	return s.skipped.Load()
}

// Subscribe registers fn to be called after every completed cycle. fn runs
// on the cycle's goroutine and must not block. The returned func removes the
// subscription.
func (s *Scheduler) Subscribe(fn func(Update)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

func (s *Scheduler) launch(ctx context.Context, trigger Trigger) {
	if !s.running.CompareAndSwap(false, true) {
		s.skipped.Add(1)
		s.log.Debug().Str("trigger", string(trigger)).Msg("Cycle still running; trigger skipped")
		if s.cfg.OnSkip != nil {
			s.cfg.OnSkip(trigger)
		}
		return
	}

	s.mu.Lock()
	if s.state == StateStopped {
		s.mu.Unlock()
		s.running.Store(false)
		return
	}
	s.state = StateRunning
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		s.run(ctx, trigger)
	}()
}

func (s *Scheduler) run(ctx context.Context, trigger Trigger) {
	// In-flight requests are never aborted by Stop; only the client's own
	// timeouts bound them.
	cctx := context.WithoutCancel(ctx)
	if s.cfg.CycleTimeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(cctx, s.cfg.CycleTimeout)
		defer cancel()
	}

	prev := s.Snapshot()
	res := s.cfg.Cycle(cctx, prev)
	if res.Snapshot == nil {
		res.Snapshot = prev
	}

	s.mu.Lock()
	if s.state == StateStopped {
		s.running.Store(false)
		s.mu.Unlock()
		s.log.Debug().Str("trigger", string(trigger)).Msg("Discarding cycle result after stop")
		return
	}
	if res.Snapshot != prev {
		s.current.Store(&view{snap: res.Snapshot, agg: CalcAggregate(res.Snapshot)})
	}
	v := s.current.Load()
	subs := make([]func(Update), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	upd := Update{
		Snapshot:  v.snap,
		Aggregate: v.agg,
		Err:       res.Err,
		Trigger:   trigger,
		Completed: s.clock.Now(),
	}
	if res.Err == nil {
		st := v.snap.Stats
		s.log.Info().
			Uint64("cycle", v.snap.Cycle).
			Str("trigger", string(trigger)).
			Int("devices", st.Devices).
			Int("updated", st.Updated).
			Int("absent", st.Absent).
			Int("failed", st.Failed).
			Int("online", v.agg.OnlineCount).
			Dur("duration", st.Duration).
			Msg("Cycle completed")
	}

	for _, fn := range subs {
		fn(upd)
	}

	s.mu.Lock()
	s.running.Store(false)
	if s.state == StateRunning {
		s.state = StateIdle
	}
	s.mu.Unlock()
}
