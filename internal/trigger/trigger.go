// Package trigger describes when a scheduled action fires.
//
// A Spec is either Daily (a local wall-clock time repeated every day) or
// Once (a single absolute instant). Next is a pure function over the variant;
// it never looks at the system clock or the process timezone on its own.
package trigger

import (
	"fmt"
	"time"
)

// Kind identifies the Spec variant.
type Kind string

const (
	// KindDaily fires every day at the same local wall-clock time.
	KindDaily Kind = "daily"
	// KindOnce fires a single time at an absolute instant.
	KindOnce Kind = "once"
)

// Spec is a tagged trigger value. Only the fields of its Kind are meaningful.
type Spec struct {
	Kind Kind

	// Daily
	Hour   int
	Minute int
	Second int

	// Once
	At time.Time
}

// Daily returns a Daily spec after checking the field ranges.
func Daily(hour, minute, second int) (Spec, error) {
	s := Spec{Kind: KindDaily, Hour: hour, Minute: minute, Second: second}
	if err := s.Validate(); err != nil {
		return Spec{}, err
	}
	return s, nil
}

// Once returns a Once spec firing at at.
func Once(at time.Time) Spec {
	return Spec{Kind: KindOnce, At: at}
}

// Validate checks the invariants of the variant.
func (s Spec) Validate() error {
	switch s.Kind {
	case KindDaily:
		if s.Hour < 0 || s.Hour > 23 {
			return &ConfigurationError{Value: s.String(), Reason: fmt.Sprintf("hour %d out of range [0,23]", s.Hour)}
		}
		if s.Minute < 0 || s.Minute > 59 {
			return &ConfigurationError{Value: s.String(), Reason: fmt.Sprintf("minute %d out of range [0,59]", s.Minute)}
		}
		if s.Second < 0 || s.Second > 59 {
			return &ConfigurationError{Value: s.String(), Reason: fmt.Sprintf("second %d out of range [0,59]", s.Second)}
		}
		return nil
	case KindOnce:
		if s.At.IsZero() {
			return &ConfigurationError{Value: s.String(), Reason: "instant is not set"}
		}
		return nil
	default:
		return &ConfigurationError{Value: string(s.Kind), Reason: "unknown trigger kind"}
	}
}

// Next returns the next fire instant strictly after now.
//
// Daily occurrences are computed as civil times in now's location, so a DST
// transition moves the UTC instant while the wall-clock time stays the same.
// Once returns At while it lies after now and the zero time afterwards.
func Next(s Spec, now time.Time) time.Time {
	switch s.Kind {
	case KindDaily:
		return nextDaily(s, now)
	case KindOnce:
		if s.At.After(now) {
			return s.At
		}
		return time.Time{}
	default:
		return time.Time{}
	}
}

func nextDaily(s Spec, now time.Time) time.Time {
	loc := now.Location()
	year, month, day := now.Date()

	next := time.Date(year, month, day, s.Hour, s.Minute, s.Second, 0, loc)
	// Roll forward by calendar day, not by 24h, so the civil time is kept.
	for i := 1; !next.After(now); i++ {
		next = time.Date(year, month, day+i, s.Hour, s.Minute, s.Second, 0, loc)
	}
	return next
}

// String renders the spec the way it is written in configuration.
func (s Spec) String() string {
	switch s.Kind {
	case KindDaily:
		return fmt.Sprintf("daily@%02d:%02d:%02d", s.Hour, s.Minute, s.Second)
	case KindOnce:
		return "once@" + s.At.Format(time.RFC3339)
	default:
		return string(s.Kind)
	}
}
