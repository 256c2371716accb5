package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/aatumaykin/iliassync/internal/logger"
	"github.com/aatumaykin/iliassync/internal/metrics"
	"github.com/aatumaykin/iliassync/internal/trigger"
)

// fire is called by the cron run loop on a fresh goroutine.
func (s *Scheduler) fire(taskID string) {
	s.mu.Lock()
	e, ok := s.tasks[taskID]
	if !ok {
		s.mu.Unlock()
		return
	}
	firedAt := time.Now().In(s.location)
	e.runs++
	e.lastRun = firedAt
	task := e.task

	// Once tasks leave the registry before their action runs.
	if task.Trigger.Kind == trigger.KindOnce {
		s.cron.Remove(e.entryID)
		delete(s.tasks, taskID)
	}

	// Stop must not cancel a running action.
	ctx := context.Background()
	if s.ctx != nil {
		ctx = context.WithoutCancel(s.ctx)
	}
	s.mu.Unlock()

	s.metrics.RecordTrigger(string(task.Trigger.Kind))
	s.execute(ctx, task, firedAt)
}

// execute runs the action and contains any failure at this boundary.
func (s *Scheduler) execute(ctx context.Context, task Task, firedAt time.Time) {
	kind := string(task.Trigger.Kind)
	fields := []logger.Field{
		{Key: "task_id", Value: task.ID},
		{Key: "name", Value: task.Name},
		{Key: "trigger", Value: task.Trigger.String()},
	}
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduled action panic recovered", fmt.Errorf("panic: %v", r), fields...)
			s.metrics.RecordAction(kind, metrics.StatusPanic, time.Since(start))
		}
	}()

	s.logger.Info("trigger fired", append(fields, logger.Field{Key: "fired_at", Value: firedAt.Format(time.RFC3339)})...)

	// The action reports its own failure; this line only ties it to the task.
	if err := task.Action(ctx); err != nil {
		s.logger.Warn("scheduled action returned error",
			append(fields,
				logger.Field{Key: "error", Value: err.Error()},
				logger.Field{Key: "duration_ms", Value: time.Since(start).Milliseconds()})...)
		s.metrics.RecordAction(kind, metrics.StatusFailed, time.Since(start))
		return
	}

	s.logger.Info("scheduled action completed",
		append(fields, logger.Field{Key: "duration_ms", Value: time.Since(start).Milliseconds()})...)
	s.metrics.RecordAction(kind, metrics.StatusOK, time.Since(start))
}
