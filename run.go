package polytlai

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Outcome is the settled state of a run.
type Outcome struct {
	RunID     string
	Entries   []ResultEntry // Every entry in display order, analysis last
	Successes []ResultEntry // Successful provider entries in selection order
	Analysis  *ResultEntry  // Nil when fewer than two providers succeeded
	Canceled  bool          // Superseded by a later run or cancelled by the caller
	Elapsed   time.Duration
}

// Succeeded returns the number of successful provider entries.
func (o *Outcome) Succeeded() int {
	return len(o.Successes)
}

// Failed returns the number of failed provider entries.
func (o *Outcome) Failed() int {
	n := 0
	for _, e := range o.Entries {
		if !e.Analysis && e.IsFailure() {
			n++
		}
	}
	return n
}

// Run is one in-flight or settled translation run. Every entry written to
// the sink is also sent on Updates; the channel is buffered for the whole
// run and closed once the run settles.
type Run struct {
	ID        string
	Request   TranslationRequest
	StartedAt time.Time

	sink    *ResultSink
	updates chan ResultEntry
	done    chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc

	mu      sync.RWMutex
	state   State
	outcome *Outcome
}

func newRun(ctx context.Context, req TranslationRequest) *Run {
	runCtx, cancel := context.WithCancel(ctx)
	return &Run{
		ID:        uuid.NewString(),
		Request:   req,
		StartedAt: time.Now(),
		sink:      NewResultSink(),
		// pending + final per provider, pending + final for the analysis
		updates: make(chan ResultEntry, 2*len(req.Providers)+2),
		done:    make(chan struct{}),
		ctx:     runCtx,
		cancel:  cancel,
		state:   StateValidating,
	}
}

// Updates streams entries as they are written.
func (r *Run) Updates() <-chan ResultEntry {
	return r.updates
}

// Done is closed once the run has settled.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the run settles or ctx is done.
func (r *Run) Wait(ctx context.Context) (*Outcome, error) {
	select {
	case <-r.done:
		r.mu.RLock()
		defer r.mu.RUnlock()
		return r.outcome, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// State returns the current stage.
func (r *Run) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// Sink exposes the run's result collection.
func (r *Run) Sink() *ResultSink {
	return r.sink
}

// Cancel aborts outstanding calls. They settle as canceled failures.
func (r *Run) Cancel() {
	r.cancel()
}

func (r *Run) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

// publish writes e to the sink and the update stream. The buffer holds every
// entry a run can produce so the send never blocks.
func (r *Run) publish(e ResultEntry) {
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = time.Now()
	}
	r.sink.Upsert(e)
	r.updates <- e
}

func (r *Run) finish() *Outcome {
	out := &Outcome{
		RunID:     r.ID,
		Entries:   r.sink.Entries(),
		Successes: r.sink.Successes(),
		Canceled:  r.ctx.Err() != nil,
		Elapsed:   time.Since(r.StartedAt),
	}
	if a, ok := r.sink.Analysis(); ok {
		out.Analysis = &a
	}

	r.mu.Lock()
	r.state = StateSettled
	r.outcome = out
	r.mu.Unlock()

	r.cancel()
	close(r.updates)
	close(r.done)
	return out
}
