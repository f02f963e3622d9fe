package scoring

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rickgao/peerlink/internal/buffer"
	"github.com/rickgao/peerlink/internal/model"
	"github.com/rickgao/peerlink/internal/store"
)

// Config holds recorder configuration.
type Config struct {
	WinPoints  int           // Points awarded per win
	BufferSize int           // Initial outcome buffer capacity
	Timeout    time.Duration // Store deadline per outcome
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		WinPoints:  10,
		BufferSize: 256,
		Timeout:    5 * time.Second,
	}
}

// Stats counts processed outcomes.
type Stats struct {
	Recorded int64 // Outcomes with points awarded
	Skipped  int64 // Outcomes whose winner could not be resolved
	Errors   int64 // Store failures
}

// Recorder consumes outcomes and writes them to the store.
type Recorder struct {
	cfg    Config
	store  store.Store
	logger *slog.Logger

	input *buffer.GrowableBuffer[model.Outcome]

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	recorded atomic.Int64
	skipped  atomic.Int64
	failures atomic.Int64
}

// NewRecorder creates a Recorder writing to st.
func NewRecorder(cfg Config, st store.Store, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		cfg:    cfg,
		store:  st,
		logger: logger,
		input:  buffer.NewGrowableBuffer[model.Outcome](cfg.BufferSize),
	}
}

// Record queues an outcome. It never blocks; outcomes arriving after
// Stop are dropped.
func (r *Recorder) Record(o model.Outcome) {
	if !r.input.Send(o) {
		r.logger.Warn("outcome dropped, recorder stopped", "task", o.Task, "winner", o.Winner)
	}
}

// Start begins consuming outcomes.
func (r *Recorder) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go r.consumeLoop()

	r.logger.Info("score recorder started", "win_points", r.cfg.WinPoints)
	return nil
}

// Stop stops accepting outcomes and waits for the queued ones to be
// written. Outcomes still queued when ctx expires are abandoned.
func (r *Recorder) Stop(ctx context.Context) error {
	r.input.Close()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
		r.logger.Info("score recorder stopped", "recorded", r.recorded.Load())
	case <-ctx.Done():
		r.logger.Warn("score recorder stop timed out", "pending", r.input.Len())
		err = ctx.Err()
	}

	if r.cancel != nil {
		r.cancel()
	}
	return err
}

// Stats returns current counters.
func (r *Recorder) Stats() Stats {
	return Stats{
		Recorded: r.recorded.Load(),
		Skipped:  r.skipped.Load(),
		Errors:   r.failures.Load(),
	}
}

// Pending returns the number of queued outcomes.
func (r *Recorder) Pending() int {
	return r.input.Len()
}

func (r *Recorder) consumeLoop() {
	defer r.wg.Done()

	for {
		o, ok := r.input.ReceiveContext(r.ctx)
		if !ok {
			return
		}
		r.handle(o)
	}
}

// handle awards the winner and, when both users resolve, appends the
// task result.
func (r *Recorder) handle(o model.Outcome) {
	ctx, cancel := context.WithTimeout(r.ctx, r.cfg.Timeout)
	defer cancel()

	winner, err := r.store.UserByConn(ctx, o.Winner)
	if err != nil {
		r.skip(o, "winner", err)
		return
	}

	if _, err := r.store.AddPoints(ctx, winner.UUID, r.cfg.WinPoints); err != nil {
		r.failures.Add(1)
		r.logger.Error("award points failed", "user", winner.UUID, "error", err)
		return
	}
	r.recorded.Add(1)

	loser, err := r.store.UserByConn(ctx, o.Loser)
	if err != nil {
		r.logger.Debug("loser not resolved, result not appended", "conn_id", o.Loser, "error", err)
		return
	}

	err = r.store.AppendResult(ctx, o.Task, model.Result{winner.UUID, loser.UUID})
	switch {
	case errors.Is(err, store.ErrNotFound):
		r.logger.Debug("task not stored, result not appended", "task", o.Task)
	case err != nil:
		r.failures.Add(1)
		r.logger.Error("append result failed", "task", o.Task, "error", err)
	default:
		r.logger.Debug("outcome recorded", "task", o.Task, "winner", winner.UUID, "loser", loser.UUID)
	}
}

func (r *Recorder) skip(o model.Outcome, role string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		r.skipped.Add(1)
		r.logger.Warn("outcome skipped, user not resolved", "role", role, "task", o.Task, "winner", o.Winner)
		return
	}
	r.failures.Add(1)
	r.logger.Error("resolve user failed", "role", role, "error", err)
}
