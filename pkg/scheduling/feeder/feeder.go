package feeder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	pferrors "github.com/vnykmshr/pacer/pkg/common/errors"
	"github.com/vnykmshr/pacer/pkg/common/validation"
	"github.com/vnykmshr/pacer/pkg/metrics"
	"github.com/vnykmshr/pacer/pkg/ratelimit/paced"
)

var (
	// ErrEntryExists is returned when adding an entry under a name already in use.
	ErrEntryExists = errors.New("feeder: entry already exists")

	// ErrEntryNotFound is returned for operations on an unknown entry name.
	ErrEntryNotFound = errors.New("feeder: entry not found")
)

// Result is the outcome of one tick of an entry.
type Result struct {
	// Entry is the name of the entry that ticked.
	Entry string

	// ItemID is the id of the submitted work item. Empty if Submit failed.
	ItemID string

	// Value and Err are the outcome delivered by the limiter, or the
	// submission error when the limiter rejected the work.
	Value any
	Err   error

	// Tick is when the entry fired.
	Tick time.Time
}

// Handler receives the Result of every tick.
type Handler func(Result)

// Options configures a single entry.
type Options struct {
	// Handler is called with the outcome of each tick. Nil discards outcomes.
	Handler Handler

	// MaxRuns removes the entry after that many ticks (0 = unlimited).
	MaxRuns int
}

// Config holds configuration for a Feeder.
type Config struct {
	// Name identifies the feeder in logs and metrics.
	Name string

	// Location is the time zone used to evaluate cron expressions.
	// Defaults to time.Local.
	Location *time.Location

	// Metrics, if set, receives tick and rejection counts.
	Metrics *metrics.Registry

	// Logger receives scheduling records. Defaults to a discarding logger.
	Logger *slog.Logger
}

// Entry describes a scheduled entry.
type Entry struct {
	Name string
	Spec string
	Next time.Time
	Prev time.Time
	Runs int
}

// Feeder submits operations into a limiter on cron schedules. Each tick is a
// plain Submit, so ticks that arrive faster than the limiter drains are
// queued and paced like any other work.
type Feeder struct {
	limiter paced.Limiter
	config  Config
	logger  *slog.Logger
	parser  cron.Parser
	cron    *cron.Cron

	// ctx is bound to every submitted item and canceled by Stop
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	entries map[string]*entry
	stopped bool
	pending sync.WaitGroup
}

type entry struct {
	name string
	spec string
	id   cron.EntryID
	op   paced.Operation
	opts Options
	runs int
}

// New creates a feeder that submits into limiter. The limiter's lifecycle
// stays with the caller.
func New(limiter paced.Limiter, config Config) *Feeder {
	if config.Name == "" {
		config.Name = "default"
	}
	if config.Location == nil {
		config.Location = time.Local
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger = logger.With("feeder", config.Name)

	// Seconds are optional so both "*/5 * * * *" and "*/10 * * * * *" parse
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	cronLogger := slogLogger{logger: logger}

	ctx, cancel := context.WithCancel(context.Background())

	return &Feeder{
		limiter: limiter,
		config:  config,
		logger:  logger,
		parser:  parser,
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithLocation(config.Location),
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger)),
		),
		ctx:     ctx,
		cancel:  cancel,
		entries: make(map[string]*entry),
	}
}

// Add schedules op under name using a cron expression.
// Examples:
//
//	"*/5 * * * *"     - every 5 minutes
//	"*/10 * * * * *"  - every 10 seconds
//	"@every 1m30s"    - every 90 seconds
//	"@hourly"         - every hour
func (f *Feeder) Add(name, spec string, op paced.Operation, handler Handler) error {
	return f.AddWithOptions(name, spec, op, Options{Handler: handler})
}

// AddWithOptions schedules op under name with per-entry options.
func (f *Feeder) AddWithOptions(name, spec string, op paced.Operation, opts Options) error {
	if err := validation.ValidateNotEmpty("feeder", "name", name); err != nil {
		return err
	}
	if err := validation.ValidateNotEmpty("feeder", "spec", spec); err != nil {
		return err
	}
	if op == nil {
		return pferrors.NewValidationError("feeder", "operation", nil, "cannot be nil").
			WithHint("provide a valid operation")
	}
	if opts.MaxRuns < 0 {
		return pferrors.NewValidationError("feeder", "max_runs", opts.MaxRuns, "cannot be negative").
			WithHint("use 0 for unlimited runs")
	}

	schedule, err := f.parser.Parse(spec)
	if err != nil {
		return pferrors.NewValidationError("feeder", "spec", spec, err.Error()).
			WithHint("use a 5 or 6 field cron expression or a descriptor like @every 1m")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.stopped {
		return fmt.Errorf("cannot add entry %q: %w", name, pferrors.ErrNotActive)
	}
	if _, exists := f.entries[name]; exists {
		return fmt.Errorf("%w: %s", ErrEntryExists, name)
	}

	e := &entry{name: name, spec: spec, op: op, opts: opts}
	e.id = f.cron.Schedule(schedule, cron.FuncJob(func() { _ = f.tick(e) }))
	f.entries[name] = e

	f.logger.Debug("entry added", "entry", name, "spec", spec)
	return nil
}

// Remove unschedules the named entry. Work already submitted is unaffected.
func (f *Feeder) Remove(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	e, exists := f.entries[name]
	if !exists {
		return fmt.Errorf("%w: %s", ErrEntryNotFound, name)
	}
	f.removeLocked(e)
	return nil
}

// Trigger fires the named entry immediately, outside its schedule.
func (f *Feeder) Trigger(name string) error {
	f.mu.Lock()
	e, exists := f.entries[name]
	f.mu.Unlock()

	if !exists {
		return fmt.Errorf("%w: %s", ErrEntryNotFound, name)
	}
	return f.tick(e)
}

// Entries returns the scheduled entries sorted by name.
func (f *Feeder) Entries() []Entry {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries := make([]Entry, 0, len(f.entries))
	for _, e := range f.entries {
		ce := f.cron.Entry(e.id)
		entries = append(entries, Entry{
			Name: e.name,
			Spec: e.spec,
			Next: ce.Next,
			Prev: ce.Prev,
			Runs: e.runs,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
	return entries
}

// Start begins firing entries on their schedules.
func (f *Feeder) Start() {
	f.cron.Start()
	f.logger.Debug("feeder started")
}

// Stop halts the schedules and cancels the context bound to submitted items,
// so items still queued in the limiter are skipped. The returned context is
// done once every handler for already submitted work has been called.
func (f *Feeder) Stop() context.Context {
	f.mu.Lock()
	f.stopped = true
	f.mu.Unlock()

	cronDone := f.cron.Stop()
	f.cancel()

	ctx, done := context.WithCancel(context.Background())
	go func() {
		<-cronDone.Done()
		f.pending.Wait()
		done()
		f.logger.Debug("feeder stopped")
	}()
	return ctx
}

// tick submits one run of e. It fails if the feeder is stopped or e is no
// longer scheduled, which includes having used up its MaxRuns.
func (f *Feeder) tick(e *entry) error {
	f.mu.Lock()
	if f.stopped {
		f.mu.Unlock()
		return fmt.Errorf("cannot run entry %q: %w", e.name, pferrors.ErrNotActive)
	}
	// e may have been removed, or have reached MaxRuns, since the caller
	// looked it up
	if f.entries[e.name] != e || (e.opts.MaxRuns > 0 && e.runs >= e.opts.MaxRuns) {
		f.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrEntryNotFound, e.name)
	}
	e.runs++
	if e.opts.MaxRuns > 0 && e.runs >= e.opts.MaxRuns {
		f.removeLocked(e)
	}
	f.pending.Add(1)
	f.mu.Unlock()

	now := time.Now().In(f.config.Location)
	future, err := f.limiter.SubmitWithContext(f.ctx, e.op)
	if err != nil {
		defer f.pending.Done()

		if f.config.Metrics != nil {
			f.config.Metrics.FeederRejected.WithLabelValues(f.config.Name, e.name).Inc()
		}
		f.logger.Warn("submission rejected", "entry", e.name, "error", err)
		f.deliver(e, Result{Entry: e.name, Err: err, Tick: now})
		return nil
	}

	if f.config.Metrics != nil {
		f.config.Metrics.FeederTicks.WithLabelValues(f.config.Name, e.name).Inc()
	}

	go func() {
		defer f.pending.Done()

		// The item is bound to f.ctx, so this resolves once the item runs,
		// is skipped, or is drained by the limiter's Stop.
		value, err := future.Await(context.Background())
		f.deliver(e, Result{
			Entry:  e.name,
			ItemID: future.ID(),
			Value:  value,
			Err:    err,
			Tick:   now,
		})
	}()
	return nil
}

func (f *Feeder) deliver(e *entry, result Result) {
	if e.opts.Handler != nil {
		e.opts.Handler(result)
	}
}

// removeLocked drops e from the schedule. Must be called with f.mu held.
func (f *Feeder) removeLocked(e *entry) {
	f.cron.Remove(e.id)
	delete(f.entries, e.name)
	f.logger.Debug("entry removed", "entry", e.name, "runs", e.runs)
}

// slogLogger adapts slog to cron.Logger.
type slogLogger struct {
	logger *slog.Logger
}

func (l slogLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l slogLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
