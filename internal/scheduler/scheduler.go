// Package scheduler fires actions at wall-clock instants.
// It uses robfig/cron/v3 as the timer loop: one goroutine sleeps until the
// nearest due entry and every firing runs on its own goroutine, so a slow
// action never delays another task. Daily tasks re-arm for the next day after
// each firing; Once tasks are dropped after they fire.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/aatumaykin/iliassync/internal/logger"
	"github.com/aatumaykin/iliassync/internal/metrics"
	"github.com/aatumaykin/iliassync/internal/trigger"
)

// Action is the work bound to a trigger. A returned error or a panic is
// logged by the scheduler and never disables the task.
type Action func(ctx context.Context) error

// Task pairs a trigger with an action.
type Task struct {
	ID      string       // Unique task identifier, generated when empty
	Name    string       // Human readable label used in logs
	Trigger trigger.Spec // When the action fires
	Action  Action       // What runs
}

// TaskInfo is a read-only view of a registered task.
type TaskInfo struct {
	ID      string
	Name    string
	Trigger trigger.Spec
	Next    time.Time // Next fire instant
	LastRun time.Time // Zero until the task fired once
	Runs    int
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLocation sets the zone daily triggers are evaluated in (default time.Local).
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithMetrics records firings and action outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

type entry struct {
	task     Task
	entryID  cron.EntryID
	schedule cron.Schedule
	lastRun  time.Time
	runs     int
}

// Scheduler manages task registration and the cron run loop.
type Scheduler struct {
	cron     *cron.Cron
	logger   *logger.Logger
	metrics  *metrics.Metrics
	location *time.Location
	ctx      context.Context
	cancel   context.CancelFunc
	drained  context.Context // done once in-flight actions finish after Stop
	started  bool
	nextID   int
	mu       sync.RWMutex

	tasks map[string]*entry
}

// New creates a scheduler. Tasks may be added before or after Start.
func New(log *logger.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		logger:   log,
		location: time.Local,
		tasks:    make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	cronLog := logger.NewCronLogger(log)
	s.cron = cron.New(
		cron.WithLocation(s.location),
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog)),
	)
	return s
}

// Location returns the zone daily triggers are evaluated in.
func (s *Scheduler) Location() *time.Location {
	return s.location
}

// Start launches the timer loop and returns immediately. The scheduler
// stops by itself when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("scheduler already started")
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.started = true
	s.drained = nil

	s.cron.Start()
	s.logger.Info("scheduler started",
		logger.Field{Key: "tasks", Value: len(s.tasks)},
		logger.Field{Key: "location", Value: s.location.String()})

	go func(runCtx context.Context) {
		<-runCtx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.started && s.ctx == runCtx {
			s.stopLocked()
		}
	}(s.ctx)

	return nil
}

// Stop cancels every pending firing. Actions that are already running are
// not interrupted; use Wait to block until they return.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return fmt.Errorf("scheduler not started")
	}
	s.stopLocked()
	return nil
}

func (s *Scheduler) stopLocked() {
	s.drained = s.cron.Stop()
	s.started = false
	s.cancel()
	s.logger.Info("scheduler stopped")
}

// Wait blocks until actions that were running when Stop was called have
// finished, or ctx is done.
func (s *Scheduler) Wait(ctx context.Context) error {
	s.mu.RLock()
	drained := s.drained
	s.mu.RUnlock()

	if drained == nil {
		return nil
	}
	select {
	case <-drained.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsStarted reports whether the timer loop is running.
func (s *Scheduler) IsStarted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// Add registers a task and returns its ID.
func (s *Scheduler) Add(task Task) (string, error) {
	if task.Action == nil {
		return "", errors.New("task action is required")
	}
	if err := task.Trigger.Validate(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if task.ID == "" {
		task.ID = s.generateTaskID(task.Trigger.Kind)
	}
	if _, exists := s.tasks[task.ID]; exists {
		return "", fmt.Errorf("task already registered: %s", task.ID)
	}
	if task.Name == "" {
		task.Name = task.Trigger.String()
	}

	e := &entry{task: task, schedule: newSchedule(task.Trigger)}
	id := task.ID
	// The wrapper takes s.mu, so a firing cannot observe the entry before
	// its cron ID is stored below.
	e.entryID = s.cron.Schedule(e.schedule, cron.FuncJob(func() { s.fire(id) }))
	s.tasks[id] = e

	s.logger.Info("task added",
		logger.Field{Key: "task_id", Value: id},
		logger.Field{Key: "name", Value: task.Name},
		logger.Field{Key: "trigger", Value: task.Trigger.String()})

	return id, nil
}

// Remove unregisters a task. A firing already in progress completes.
func (s *Scheduler) Remove(taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.tasks[taskID]
	if !exists {
		return fmt.Errorf("task not found: %s", taskID)
	}
	s.cron.Remove(e.entryID)
	delete(s.tasks, taskID)

	s.logger.Info("task removed", logger.Field{Key: "task_id", Value: taskID})
	return nil
}

// Tasks returns the registered tasks ordered by next fire instant.
func (s *Scheduler) Tasks() []TaskInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now().In(s.location)
	infos := make([]TaskInfo, 0, len(s.tasks))
	for id, e := range s.tasks {
		infos = append(infos, TaskInfo{
			ID:      id,
			Name:    e.task.Name,
			Trigger: e.task.Trigger,
			Next:    s.nextFor(e, now),
			LastRun: e.lastRun,
			Runs:    e.runs,
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Next.Equal(infos[j].Next) {
			return infos[i].ID < infos[j].ID
		}
		return infos[i].Next.Before(infos[j].Next)
	})
	return infos
}

func (s *Scheduler) nextFor(e *entry, now time.Time) time.Time {
	if s.started {
		if next := s.cron.Entry(e.entryID).Next; !next.IsZero() {
			return next
		}
	}
	if once, ok := e.schedule.(*onceSchedule); ok {
		return once.due(now)
	}
	return trigger.Next(e.task.Trigger, now)
}

func (s *Scheduler) generateTaskID(kind trigger.Kind) string {
	s.nextID++
	return fmt.Sprintf("%s_%d", kind, s.nextID)
}
