package paced

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	pferrors "github.com/vnykmshr/pacer/pkg/common/errors"
	"github.com/vnykmshr/pacer/pkg/common/validation"
)

// Operation is a unit of deferred work. The context is canceled when the
// submitter's context is canceled or the limiter stops; honoring it is up to
// the operation.
type Operation func(ctx context.Context) (any, error)

// State is the lifecycle state of a Limiter.
type State int32

const (
	// StateInactive is the state of a constructed limiter before Start.
	StateInactive State = iota
	// StateActive means workers are running and Submit accepts work.
	StateActive
	// StateStopped means Stop has been called. It is terminal.
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateInactive:
		return "inactive"
	case StateActive:
		return "active"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Result describes one executed work item. It is passed to OnExecuteComplete.
type Result struct {
	// ItemID is the id of the work item, equal to its Future's ID.
	ItemID string

	// Value and Err are the outcome delivered to the submitter.
	Value any
	Err   error

	// QueueWait is how long the item waited before a worker claimed it.
	QueueWait time.Duration

	// Duration is how long the operation took to execute.
	Duration time.Duration

	// WorkerID identifies which worker executed the item.
	WorkerID int
}

// Limiter paces execution of submitted operations across a fixed set of
// workers. Each worker waits Delay after finishing an operation before it
// claims the next one, so at most Workers operations run at any moment.
type Limiter interface {
	// Start spawns the workers. It returns ErrAlreadyStarted if the limiter
	// has been started or stopped before.
	Start() error

	// Stop stops the workers and cancels every item still waiting in the
	// queue with ErrCancelled. Operations already claimed by a worker are
	// not interrupted; their context is canceled and they finish delivering
	// their outcome. Stop never blocks. The returned channel closes once all
	// workers have exited. Calling Stop again is a no-op that returns the
	// same channel.
	Stop() <-chan struct{}

	// Submit queues op and returns a Future for its outcome.
	// It never blocks and fails with ErrNotActive unless the limiter is active.
	Submit(op Operation) (*Future, error)

	// SubmitWithContext is Submit with a context bound to the work item.
	// If ctx is done before a worker claims the item, the operation is
	// skipped and the Future resolves with ctx.Err().
	SubmitWithContext(ctx context.Context, op Operation) (*Future, error)

	// Workers returns the configured number of workers.
	Workers() int

	// Delay returns the pacing delay observed by each worker.
	Delay() time.Duration

	// State returns the current lifecycle state.
	State() State

	// QueueSize returns the number of items waiting for a worker.
	QueueSize() int

	// ActiveWorkers returns the number of workers currently executing.
	ActiveWorkers() int

	// TotalSubmitted returns the number of items accepted by Submit.
	TotalSubmitted() int64

	// TotalCompleted returns the number of items executed by a worker,
	// whether the operation succeeded or failed.
	TotalCompleted() int64

	// TotalCancelled returns the number of items resolved without being
	// executed.
	TotalCancelled() int64
}

// Config holds configuration options for creating a Limiter.
type Config struct {
	// Workers is the number of concurrent workers. Must be greater than 0.
	Workers int

	// Delay is the pause each worker takes between finishing one operation
	// and claiming the next. Zero disables pacing. Must not be negative.
	Delay time.Duration

	// Name identifies the limiter in logs and metrics.
	Name string

	// Clock drives pacing. Defaults to the system clock.
	Clock Clock

	// Logger receives lifecycle and panic records. Defaults to a logger
	// that discards everything.
	Logger *slog.Logger

	// OnWorkerStart is called when a worker starts.
	OnWorkerStart func(workerID int)

	// OnWorkerStop is called when a worker stops.
	OnWorkerStop func(workerID int)

	// OnExecuteStart is called before an operation begins execution.
	OnExecuteStart func(workerID int, itemID string)

	// OnExecuteComplete is called after an operation completes (success or
	// failure), before the outcome is delivered to the submitter.
	OnExecuteComplete func(workerID int, result Result)

	// OnCancel is called for every item resolved without being executed,
	// with the error delivered to its submitter.
	OnCancel func(itemID string, err error)
}

// pacedLimiter implements the Limiter interface.
type pacedLimiter struct {
	config Config
	clock  Clock
	logger *slog.Logger
	queue  *queue

	// Lifecycle; ctx is canceled by Stop and is the workers' stop signal.
	mu       sync.RWMutex
	state    State
	ctx      context.Context
	cancel   context.CancelFunc
	workers  []*worker
	workerWg sync.WaitGroup
	stopOnce sync.Once
	done     chan struct{}

	// State tracking
	activeWorkers  atomic.Int32
	totalSubmitted atomic.Int64
	totalCompleted atomic.Int64
	totalCancelled atomic.Int64
}

// worker is one pacing loop draining the shared queue.
type worker struct {
	id      int
	limiter *pacedLimiter
}

// New creates an inactive limiter with the given worker count and pacing delay.
func New(workers int, delay time.Duration) (Limiter, error) {
	return NewWithConfig(Config{
		Workers: workers,
		Delay:   delay,
	})
}

// NewWithConfig creates an inactive limiter from config.
func NewWithConfig(config Config) (Limiter, error) {
	if err := validation.ValidatePositive("paced", "workers", config.Workers); err != nil {
		return nil, err
	}
	if err := validation.ValidateNonNegativeDuration("paced", "delay", config.Delay); err != nil {
		return nil, err
	}

	if config.Name == "" {
		config.Name = "default"
	}

	clock := config.Clock
	if clock == nil {
		clock = realClock{}
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &pacedLimiter{
		config: config,
		clock:  clock,
		logger: logger.With("limiter", config.Name),
		queue:  newQueue(),
		state:  StateInactive,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}, nil
}

// MustNew is New that panics on invalid arguments.
func MustNew(workers int, delay time.Duration) Limiter {
	l, err := New(workers, delay)
	if err != nil {
		panic(pferrors.NewOperationError("paced", "New", err))
	}
	return l
}
