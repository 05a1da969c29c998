// Package runner coordinates analysis runs: cache lookups, collapsing of
// concurrent identical requests onto one execution, and progress streaming.
package runner

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/finreport-cli/internal/model"
	"github.com/sells-group/finreport-cli/internal/pipeline"
	"github.com/sells-group/finreport-cli/internal/source"
	"github.com/sells-group/finreport-cli/internal/store"
)

// Handle references one run: either a live execution or a cached result.
// Handles returned for the same in-flight key share the same underlying run.
type Handle struct {
	Key    model.AnalysisKey
	RunID  string
	Cached bool

	run    *activeRun
	cached *model.Ledger
}

// activeRun is a single in-flight execution shared by every collapsed caller.
type activeRun struct {
	runID string
	bcast *broadcaster
	done  chan struct{}

	mu       sync.Mutex
	snapshot model.Ledger
	err      error
}

func (r *activeRun) updateSnapshot(led *model.Ledger) {
	r.mu.Lock()
	r.snapshot = led.Snapshot()
	r.mu.Unlock()
}

// Orchestrator owns the active-run registry and the result cache.
type Orchestrator struct {
	store   store.Store
	pipe    *pipeline.Pipeline
	docs    source.Provider
	backlog int

	// mu guards the active map only. Document loads and stage execution
	// happen outside it, so runs for different keys never serialize here.
	mu     sync.Mutex
	active map[string]*activeRun

	sem chan struct{}
}

// New creates an Orchestrator. maxConcurrent bounds simultaneous executions;
// collapsed requests do not count extra. subscriberBacklog sizes each
// subscriber's event buffer; zero uses the default.
func New(st store.Store, pipe *pipeline.Pipeline, docs source.Provider, maxConcurrent, subscriberBacklog int) *Orchestrator {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Orchestrator{
		store:   st,
		pipe:    pipe,
		docs:    docs,
		backlog: subscriberBacklog,
		active:  map[string]*activeRun{},
		sem:     make(chan struct{}, maxConcurrent),
	}
}

// Start begins or joins the run for a key. A cached result returns a cached
// handle immediately; an in-flight run for the same key returns a handle onto
// that run; otherwise the document is loaded, a new run is registered, and
// execution proceeds asynchronously. Document resolution errors surface here,
// before any ledger exists.
func (o *Orchestrator) Start(ctx context.Context, key model.AnalysisKey) (*Handle, error) {
	cached, err := o.store.Check(ctx, key)
	if err == nil {
		return &Handle{Key: key, RunID: cached.RunID, Cached: true, cached: cached}, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, eris.Wrap(err, "runner: cache check")
	}

	o.mu.Lock()
	if run, ok := o.active[key.Encode()]; ok {
		o.mu.Unlock()
		return &Handle{Key: key, RunID: run.runID, run: run}, nil
	}
	o.mu.Unlock()

	// Resolve the document outside the registry lock; a missing statement
	// must fail the request without registering anything.
	doc, err := o.docs.Load(ctx, key.Symbol)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	// A concurrent Start may have won the registration race while the
	// document loaded.
	if run, ok := o.active[key.Encode()]; ok {
		return &Handle{Key: key, RunID: run.runID, run: run}, nil
	}

	led := model.NewLedger(uuid.New().String(), key)
	run := &activeRun{
		runID: led.RunID,
		bcast: newBroadcaster(o.backlog),
		done:  make(chan struct{}),
	}
	run.snapshot = led.Snapshot()
	o.active[key.Encode()] = run

	go o.execute(led, run, doc)

	return &Handle{Key: key, RunID: led.RunID, run: run}, nil
}

// execute runs the pipeline for one registered run and settles it: cache
// write on success, terminal event either way, deregistration last.
func (o *Orchestrator) execute(led *model.Ledger, run *activeRun, doc *source.Document) {
	o.sem <- struct{}{}
	defer func() { <-o.sem }()

	// The run owns its lifetime; callers abandoning their request must not
	// cancel a shared execution.
	ctx := context.Background()

	runErr := o.pipe.Run(ctx, led, doc, func(r model.StageResult) {
		run.updateSnapshot(led)
		run.bcast.publish(Event{
			Type:      EventState,
			Stage:     r.Stage,
			Progress:  r.Stage.Progress(),
			Result:    &r,
			Timestamp: time.Now().UTC(),
		})
	})

	run.updateSnapshot(led)
	run.mu.Lock()
	run.err = runErr
	run.mu.Unlock()

	if runErr == nil {
		if putErr := o.store.Put(ctx, led); putErr != nil {
			if errors.Is(putErr, store.ErrCacheConflict) {
				zap.L().Debug("runner: result already cached",
					zap.String("run_id", led.RunID),
					zap.String("key", led.Key.Encode()))
			} else {
				zap.L().Error("runner: cache write failed",
					zap.String("run_id", led.RunID),
					zap.Error(putErr))
			}
		}
		run.bcast.publish(Event{
			Type:      EventComplete,
			Progress:  100,
			Timestamp: time.Now().UTC(),
		})
	} else {
		run.bcast.publish(Event{
			Type:      EventFailed,
			ErrorKind: model.KindOf(runErr),
			Error:     runErr.Error(),
			Timestamp: time.Now().UTC(),
		})
	}
	run.bcast.closeOut()

	o.mu.Lock()
	delete(o.active, led.Key.Encode())
	o.mu.Unlock()

	close(run.done)
}

// Subscribe returns the handle's ordered event stream and a cancel function.
// For a cached handle the stream is the recorded history replayed and closed.
// Cancelling never affects the run.
func (o *Orchestrator) Subscribe(h *Handle) (<-chan Event, func()) {
	if h.Cached {
		events := replayEvents(h.cached)
		ch := make(chan Event, len(events))
		for _, e := range events {
			ch <- e
		}
		close(ch)
		return ch, func() {}
	}
	return h.run.bcast.subscribe()
}

// State returns a point-in-time snapshot of the run's ledger.
func (o *Orchestrator) State(h *Handle) model.Ledger {
	if h.Cached {
		return h.cached.Snapshot()
	}
	h.run.mu.Lock()
	defer h.run.mu.Unlock()
	return h.run.snapshot.Snapshot()
}

// Wait blocks until the run settles or the context expires, returning the
// final ledger. The run's own failure is returned as its stage error.
func (o *Orchestrator) Wait(ctx context.Context, h *Handle) (model.Ledger, error) {
	if h.Cached {
		return h.cached.Snapshot(), nil
	}
	select {
	case <-h.run.done:
	case <-ctx.Done():
		return model.Ledger{}, eris.Wrap(ctx.Err(), "runner: wait")
	}
	h.run.mu.Lock()
	defer h.run.mu.Unlock()
	return h.run.snapshot.Snapshot(), h.run.err
}

// replayEvents reconstructs the event sequence a live subscriber would have
// seen, from a completed ledger.
func replayEvents(led *model.Ledger) []Event {
	events := make([]Event, 0, len(led.Stages)+1)
	for i := range led.Stages {
		r := led.Stages[i]
		events = append(events, Event{
			Type:      EventState,
			Stage:     r.Stage,
			Progress:  r.Stage.Progress(),
			Result:    &r,
			Timestamp: r.FinishedAt,
		})
	}
	switch led.Status {
	case model.RunStatusComplete:
		events = append(events, Event{Type: EventComplete, Progress: 100, Timestamp: led.UpdatedAt})
	case model.RunStatusFailed:
		terminal := Event{Type: EventFailed, Timestamp: led.UpdatedAt}
		if n := len(led.Stages); n > 0 && led.Stages[n-1].Failed() {
			terminal.ErrorKind = led.Stages[n-1].ErrorKind
			terminal.Error = led.Stages[n-1].Error
		}
		events = append(events, terminal)
	}
	return events
}
