package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	errs "github.com/vnykmshr/taskflow/pkg/common/errors"
	"github.com/vnykmshr/taskflow/pkg/metrics"
	"github.com/vnykmshr/taskflow/pkg/scheduling/dispatch"
)

// Entry describes a scheduled submission.
type Entry struct {
	ID       string
	RunAt    time.Time
	Interval time.Duration // Zero for one-time entries
	Cron     string        // Empty for non-cron entries
	Created  time.Time
}

// Scheduler submits task descriptors to a dispatcher at chosen times:
// once at a fixed time, after a delay, on a fixed interval, or on a cron
// expression.
type Scheduler interface {
	// Basic scheduling
	Schedule(id string, desc dispatch.Descriptor, runAt time.Time) error
	ScheduleAfter(id string, desc dispatch.Descriptor, delay time.Duration) error
	ScheduleRepeating(id string, desc dispatch.Descriptor, interval time.Duration) error

	// Cron scheduling
	ScheduleCron(id string, cronExpr string, desc dispatch.Descriptor) error

	// Entry management
	Cancel(id string) bool
	CancelAll()
	List() []Entry

	// Lifecycle
	Start() error
	Stop() <-chan struct{}
}

// BackoffFunc wraps a callable with exponential-backoff retries. The
// wrapped callable still counts as one dispatcher task per trigger; the
// retries happen inside it. Terminal failures (cancellation, closed
// resources) are not retried.
type BackoffFunc struct {
	Func         dispatch.Func
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// Callable returns the retrying form, usable as a Descriptor's Func.
func (bf BackoffFunc) Callable() dispatch.Func {
	return func(ctx context.Context, args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
		var (
			res     interface{}
			lastErr error
		)
		delay := bf.InitialDelay

		for attempt := 0; attempt <= bf.MaxRetries; attempt++ {
			if attempt > 0 {
				select {
				case <-time.After(delay):
				case <-ctx.Done():
					return nil, ctx.Err()
				}
				delay *= 2
				if delay > bf.MaxDelay {
					delay = bf.MaxDelay
				}
			}

			res, lastErr = bf.Func(ctx, args, kwargs)
			if lastErr == nil {
				return res, nil
			}
			if errs.IsTerminalFailure(lastErr) {
				return nil, lastErr
			}
		}

		return nil, lastErr
	}
}

// Config holds scheduler configuration.
type Config struct {
	// Dispatcher executes triggered entries. If nil, the scheduler owns
	// a private dispatcher and manages its lifecycle.
	Dispatcher *dispatch.Dispatcher

	// Location resolves cron expressions. Defaults to time.Local.
	Location *time.Location

	// TickInterval is how often due entries are checked. Defaults to
	// 50ms.
	TickInterval time.Duration

	// MaxEntries caps the number of scheduled entries. Defaults to
	// 10000.
	MaxEntries int

	// Name labels the scheduler in logs and metrics. Defaults to
	// "scheduler".
	Name string

	// Logger receives structured logs. Defaults to slog.Default().
	Logger *slog.Logger

	// Metrics, if set, counts scheduled submissions. Nil disables
	// instrumentation.
	Metrics *metrics.Registry
}

type entry struct {
	id           string
	desc         dispatch.Descriptor
	runAt        time.Time
	interval     time.Duration
	cronExpr     string
	cronSchedule cron.Schedule
	created      time.Time
}

type scheduler struct {
	config        Config
	ownDispatcher bool
	cronParser    cron.Parser

	mu      sync.RWMutex
	entries map[string]*entry
	ticker  *time.Ticker
	done    chan struct{}
	running bool
}

// New creates a scheduler with default configuration.
func New() Scheduler {
	return NewWithConfig(Config{})
}

// NewWithConfig creates a scheduler with custom configuration.
func NewWithConfig(config Config) Scheduler {
	ownDispatcher := false
	if config.Dispatcher == nil {
		config.Dispatcher = dispatch.New(dispatch.Config{MaxWorkers: 4})
		ownDispatcher = true
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	if config.TickInterval <= 0 {
		config.TickInterval = 50 * time.Millisecond
	}
	if config.MaxEntries <= 0 {
		config.MaxEntries = 10000
	}
	if config.Name == "" {
		config.Name = "scheduler"
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &scheduler{
		config:        config,
		ownDispatcher: ownDispatcher,
		cronParser:    cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
		entries:       make(map[string]*entry),
		done:          make(chan struct{}),
	}
}

func validateID(id string) error {
	if id == "" {
		return fmt.Errorf("entry ID cannot be empty")
	}
	if len(id) > 255 {
		return fmt.Errorf("entry ID too long (max 255 characters)")
	}
	return nil
}

func (s *scheduler) add(e *entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[e.id]; exists {
		return fmt.Errorf("entry with ID %q already exists, use a different ID or cancel the existing entry first", e.id)
	}
	if len(s.entries) >= s.config.MaxEntries {
		return fmt.Errorf("cannot schedule entry: maximum number of entries (%d) reached", s.config.MaxEntries)
	}

	s.entries[e.id] = e
	return nil
}

func (s *scheduler) Schedule(id string, desc dispatch.Descriptor, runAt time.Time) error {
	if err := validateID(id); err != nil {
		return err
	}
	if desc.Func == nil {
		return fmt.Errorf("entry callable cannot be nil")
	}
	if runAt.IsZero() {
		return fmt.Errorf("entry run time cannot be zero")
	}

	return s.add(&entry{
		id:      id,
		desc:    desc,
		runAt:   runAt,
		created: time.Now(),
	})
}

func (s *scheduler) ScheduleAfter(id string, desc dispatch.Descriptor, delay time.Duration) error {
	return s.Schedule(id, desc, time.Now().Add(delay))
}

func (s *scheduler) ScheduleRepeating(id string, desc dispatch.Descriptor, interval time.Duration) error {
	if err := validateID(id); err != nil {
		return err
	}
	if desc.Func == nil {
		return fmt.Errorf("entry callable cannot be nil")
	}
	if interval <= 0 {
		return fmt.Errorf("interval must be positive, got %v", interval)
	}

	return s.add(&entry{
		id:       id,
		desc:     desc,
		runAt:    time.Now(),
		interval: interval,
		created:  time.Now(),
	})
}

func (s *scheduler) ScheduleCron(id string, cronExpr string, desc dispatch.Descriptor) error {
	if err := validateID(id); err != nil {
		return err
	}
	if desc.Func == nil {
		return fmt.Errorf("entry callable cannot be nil")
	}
	if cronExpr == "" {
		return fmt.Errorf("cron expression cannot be empty")
	}

	schedule, err := s.cronParser.Parse(cronExpr)
	if err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}

	now := time.Now().In(s.config.Location)
	return s.add(&entry{
		id:           id,
		desc:         desc,
		runAt:        schedule.Next(now),
		cronExpr:     cronExpr,
		cronSchedule: schedule,
		created:      time.Now(),
	})
}

func (s *scheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[id]; exists {
		delete(s.entries, id)
		return true
	}
	return false
}

func (s *scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]*entry)
}

func (s *scheduler) List() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, Entry{
			ID:       e.id,
			RunAt:    e.runAt,
			Interval: e.interval,
			Cron:     e.cronExpr,
			Created:  e.created,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].RunAt.Before(entries[j].RunAt)
	})

	return entries
}

func (s *scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running, call Stop() first")
	}

	if s.ownDispatcher {
		if err := s.config.Dispatcher.Start(); err != nil {
			return fmt.Errorf("start dispatcher: %w", err)
		}
	}

	s.running = true
	s.ticker = time.NewTicker(s.config.TickInterval)

	go s.run()
	return nil
}

func (s *scheduler) Stop() <-chan struct{} {
	s.mu.Lock()
	if s.running {
		s.running = false
		close(s.done)
		if s.ticker != nil {
			s.ticker.Stop()
		}
	}
	s.mu.Unlock()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		if s.ownDispatcher && s.config.Dispatcher.IsRunning() {
			if err := s.config.Dispatcher.Stop(); err != nil {
				s.config.Logger.Warn("dispatcher shutdown",
					slog.String("scheduler", s.config.Name),
					slog.String("error", err.Error()),
				)
			}
		}
	}()

	return stopped
}

func (s *scheduler) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.ticker.C:
			s.dispatchDue()
		}
	}
}

// dispatchDue submits every due entry and reschedules the repeating
// ones. Submission is unbounded: a tick must never block behind the
// dispatcher's permit gate.
func (s *scheduler) dispatchDue() {
	// A dispatcher stopping mid-tick makes Submit panic; the tick loop
	// must survive that race.
	defer func() {
		if r := recover(); r != nil {
			s.config.Logger.Warn("tick recovered",
				slog.String("scheduler", s.config.Name),
				slog.String("panic", fmt.Sprint(r)),
			)
		}
	}()

	now := time.Now()

	s.mu.Lock()
	if len(s.entries) == 0 {
		s.mu.Unlock()
		return
	}

	due := make([]*entry, 0, len(s.entries))
	for id, e := range s.entries {
		if now.Before(e.runAt) {
			continue
		}
		due = append(due, e)

		switch {
		case e.interval > 0:
			e.runAt = now.Add(e.interval)
		case e.cronSchedule != nil:
			e.runAt = e.cronSchedule.Next(now.In(s.config.Location))
		default:
			delete(s.entries, id)
		}
	}
	s.mu.Unlock()

	for _, e := range due {
		if !s.config.Dispatcher.IsRunning() {
			s.config.Logger.Warn("dispatcher not running, dropping trigger",
				slog.String("scheduler", s.config.Name),
				slog.String("entry", e.id),
			)
			continue
		}

		if _, err := s.config.Dispatcher.Submit(dispatch.MakeTask(e.desc), dispatch.Unbounded); err != nil {
			s.config.Logger.Warn("submit failed",
				slog.String("scheduler", s.config.Name),
				slog.String("entry", e.id),
				slog.String("error", err.Error()),
			)
			continue
		}

		if m := s.config.Metrics; m != nil {
			m.TasksScheduled.WithLabelValues(s.config.Name).Inc()
		}
	}
}
