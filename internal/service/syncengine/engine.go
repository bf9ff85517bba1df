// Package syncengine keeps a client-side mirror of the record store fresh by
// polling it, and applies operator intents optimistically before confirming
// them against the store.
package syncengine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mamadbah2/barberdash/internal/domain/models"
	"github.com/mamadbah2/barberdash/internal/metrics"
	"github.com/mamadbah2/barberdash/internal/repository/store"
)

// Options tunes an Engine.
type Options struct {
	SurchargeAmount float64
	Location        *time.Location
	WriteTimeout    time.Duration
}

// Engine owns the mirror and every mutation of it.
type Engine struct {
	store  store.Store
	logger *zap.Logger
	now    func() time.Time

	surcharge    float64
	loc          *time.Location
	writeTimeout time.Duration

	mu          sync.RWMutex
	state       State
	selectedDay time.Time
	lastRefresh time.Time
	appliedSeq  uint64
	closed      bool

	// queue holds accepted mutations in acceptance order; guarded by mu.
	queue  []job
	queued *sync.Cond

	refreshSeq atomic.Uint64
	inflight   sync.WaitGroup
}

// NewEngine wires an engine over the given store. The mirror starts empty
// apart from the default catalog; call Refresh to load it.
func NewEngine(st store.Store, opts Options, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}

	e := &Engine{
		store:        st,
		logger:       logger,
		now:          time.Now,
		surcharge:    opts.SurchargeAmount,
		loc:          opts.Location,
		writeTimeout: opts.WriteTimeout,
		state:        newState(),
	}
	e.queued = sync.NewCond(&e.mu)
	e.selectedDay = models.DayStart(e.now(), e.loc)
	go e.writeLoop()
	return e
}

// Location is the shop time zone used for day boundaries.
func (e *Engine) Location() *time.Location {
	return e.loc
}

// SurchargeAmount is the flat add-on applied to surcharged sales.
func (e *Engine) SurchargeAmount() float64 {
	return e.surcharge
}

// Snapshot returns a deep copy of the mirror.
func (e *Engine) Snapshot() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.clone()
}

// LastRefresh is when the mirror was last replaced by store truth.
func (e *Engine) LastRefresh() time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastRefresh
}

// Refresh reloads every collection and rebuilds the mirror. Overlapping calls
// are allowed: each takes a ticket when it starts and a result is dropped if a
// later-started refresh has already been applied. On failure the previous
// mirror is kept.
func (e *Engine) Refresh(ctx context.Context) error {
	ticket := e.refreshSeq.Add(1)
	started := time.Now()
	defer func() { metrics.RefreshDuration.Observe(time.Since(started).Seconds()) }()

	var barberRows, historyRows, configRows, serviceRows, appointmentRows []store.Row

	g, gctx := errgroup.WithContext(ctx)
	fetch := func(collection, sortBy string, dst *[]store.Row) {
		g.Go(func() error {
			rows, err := e.store.List(gctx, collection, store.ListOptions{SortBy: sortBy})
			if err != nil {
				return fmt.Errorf("fetch %s: %w", collection, err)
			}
			*dst = rows
			return nil
		})
	}
	fetch(store.CollectionBarbers, "", &barberRows)
	fetch(store.CollectionHistory, "", &historyRows)
	fetch(store.CollectionConfigs, "", &configRows)
	fetch(store.CollectionServices, fieldDisplayOrder, &serviceRows)
	fetch(store.CollectionAppointments, "", &appointmentRows)

	if err := g.Wait(); err != nil {
		metrics.RefreshTotal.WithLabelValues("failed").Inc()
		return err
	}

	next := e.decodeState(barberRows, historyRows, configRows, serviceRows, appointmentRows)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		metrics.RefreshTotal.WithLabelValues("discarded").Inc()
		return ErrEngineClosed
	}
	if ticket < e.appliedSeq {
		metrics.RefreshTotal.WithLabelValues("stale").Inc()
		e.logger.Debug("dropping stale refresh", zap.Uint64("ticket", ticket), zap.Uint64("applied", e.appliedSeq))
		return nil
	}

	e.state = next
	e.appliedSeq = ticket
	e.lastRefresh = e.now()
	metrics.RefreshTotal.WithLabelValues("applied").Inc()
	return nil
}

func (e *Engine) decodeState(barberRows, historyRows, configRows, serviceRows, appointmentRows []store.Row) State {
	next := State{}

	for _, row := range barberRows {
		b, err := decodeBarber(row)
		if err != nil {
			e.logger.Debug("skip barber row", zap.Any("row", row), zap.Error(err))
			continue
		}
		next.Barbers = append(next.Barbers, b)
	}

	for _, row := range historyRows {
		h, err := decodeHistory(row)
		if err != nil {
			e.logger.Debug("skip history row", zap.Any("row", row), zap.Error(err))
			continue
		}
		next.History = append(next.History, h)
	}

	for _, row := range serviceRows {
		svc, err := decodeService(row)
		if err != nil {
			e.logger.Debug("skip service row", zap.Any("row", row), zap.Error(err))
			continue
		}
		next.Catalog = append(next.Catalog, svc)
	}
	if len(next.Catalog) == 0 {
		next.Catalog = models.DefaultCatalog()
		next.catalogDefaulted = true
	}

	for _, row := range appointmentRows {
		a, err := decodeAppointment(row)
		if err != nil {
			e.logger.Debug("skip appointment row", zap.Any("row", row), zap.Error(err))
			continue
		}
		next.Appointments = append(next.Appointments, a)
	}

	configs := make([]models.ServiceConfig, 0, len(configRows))
	for _, row := range configRows {
		cfg, err := decodeConfig(row)
		if err != nil {
			e.logger.Debug("skip config row", zap.Any("row", row), zap.Error(err))
			continue
		}
		configs = append(configs, cfg)
	}
	next.Configs = reconstruct(next.Barbers, next.Catalog, configs)

	return next
}

// Close stops accepting mutations, discards refreshes that land afterwards
// and waits for queued writes until ctx is done.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	e.closed = true
	e.queued.Broadcast()
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for in-flight writes: %w", ctx.Err())
	}
}

// SelectedDay is the day the dashboard is looking at.
func (e *Engine) SelectedDay() time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.selectedDay
}

// SelectDay moves the dashboard to the local day containing t.
func (e *Engine) SelectDay(t time.Time) time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.selectedDay = models.DayStart(t, e.loc)
	return e.selectedDay
}

// IsToday reports whether the selected day is the current day.
func (e *Engine) IsToday() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return models.SameDay(e.now(), e.selectedDay, e.loc)
}

// NextDay moves the selection one day forward.
func (e *Engine) NextDay() time.Time {
	return e.shiftDay(1)
}

// PrevDay moves the selection one day back.
func (e *Engine) PrevDay() time.Time {
	return e.shiftDay(-1)
}

// Today moves the selection back to the current day.
func (e *Engine) Today() time.Time {
	return e.SelectDay(e.now())
}

func (e *Engine) shiftDay(days int) time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.selectedDay = models.DayStart(e.selectedDay.AddDate(0, 0, days), e.loc)
	return e.selectedDay
}

// step is one remote write of a mutation. rollback undoes the matching
// optimistic change on the mirror and runs under the engine lock.
type step struct {
	name     string
	write    func(ctx context.Context) error
	rollback func(s *State)
}

// job is an accepted mutation waiting for its remote writes.
type job struct {
	op    string
	steps []step
	res   *Result
}

// dispatch queues the steps of a mutation behind every mutation accepted
// before it. The caller must hold mu, so the queue follows the order in which
// optimistic changes were applied to the mirror.
func (e *Engine) dispatch(op string, steps ...step) *Result {
	res := newResult(op)
	e.inflight.Add(1)
	e.queue = append(e.queue, job{op: op, steps: steps, res: res})
	e.queued.Signal()
	return res
}

// writeLoop is the single writer of an engine. Jobs run one at a time in
// queue order. The loop exits once the engine is closed and the queue is
// empty.
func (e *Engine) writeLoop() {
	for {
		e.mu.Lock()
		for len(e.queue) == 0 && !e.closed {
			e.queued.Wait()
		}
		if len(e.queue) == 0 {
			e.mu.Unlock()
			return
		}
		j := e.queue[0]
		e.queue[0] = job{}
		e.queue = e.queue[1:]
		e.mu.Unlock()

		e.run(j)
	}
}

// run executes the steps of a job. The first failing step stops the
// sequence; it and every step after it are rolled back locally. A refresh
// always follows so the mirror converges on store truth, and the Result
// resolves after it.
func (e *Engine) run(j job) {
	defer e.inflight.Done()

	err := e.runSteps(j.op, j.steps)

	if rerr := e.Refresh(context.Background()); rerr != nil && !errors.Is(rerr, ErrEngineClosed) {
		e.logger.Warn("refresh after write failed", zap.String("operation", j.op), zap.Error(rerr))
	}
	j.res.finish(err)
}

func (e *Engine) runSteps(op string, steps []step) error {
	for i, st := range steps {
		ctx, cancel := context.WithTimeout(context.Background(), e.writeTimeout)
		err := st.write(ctx)
		cancel()
		if err == nil {
			continue
		}

		metrics.WriteFailures.WithLabelValues(op).Inc()
		e.logger.Error("remote write failed",
			zap.String("operation", op),
			zap.String("step", st.name),
			zap.Error(err))

		e.mu.Lock()
		for j := len(steps) - 1; j >= i; j-- {
			if steps[j].rollback != nil {
				steps[j].rollback(&e.state)
			}
		}
		e.mu.Unlock()
		metrics.Rollbacks.WithLabelValues(op).Inc()

		return fmt.Errorf("%s: %s: %w", op, st.name, err)
	}
	return nil
}

// lockForMutation takes the write lock unless the engine is closed or ctx
// is already done. On success the caller must unlock.
func (e *Engine) lockForMutation(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrEngineClosed
	}
	return nil
}
