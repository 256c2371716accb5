package scheduler

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/aatumaykin/iliassync/internal/trigger"
)

// newSchedule maps a trigger spec onto a cron.Schedule for the run loop.
func newSchedule(spec trigger.Spec) cron.Schedule {
	if spec.Kind == trigger.KindOnce {
		return &onceSchedule{spec: spec}
	}
	return dailySchedule{spec: spec}
}

// dailySchedule recomputes the civil time on every call, using the zone
// rules in force for the instant the cron loop hands in.
type dailySchedule struct {
	spec trigger.Spec
}

func (d dailySchedule) Next(t time.Time) time.Time {
	return trigger.Next(d.spec, t)
}

// onceSchedule resolves its instant the first time the run loop arms it.
// An instant that already passed is armed for "now", so it fires right away.
// After that it reports the zero time, which cron treats as "never again".
type onceSchedule struct {
	spec trigger.Spec

	mu    sync.Mutex
	armed bool
	at    time.Time
}

func (o *onceSchedule) Next(t time.Time) time.Time {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.armed {
		o.armed = true
		o.at = trigger.Next(o.spec, t)
		if o.at.IsZero() {
			o.at = t
		}
		return o.at
	}
	if o.at.After(t) {
		return o.at
	}
	return time.Time{}
}

// due reports the instant the schedule will fire at, for listings.
func (o *onceSchedule) due(now time.Time) time.Time {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.armed {
		return o.at
	}
	if next := trigger.Next(o.spec, now); !next.IsZero() {
		return next
	}
	return now
}
