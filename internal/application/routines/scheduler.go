package routines

import (
	"context"
	"sort"
	"time"

	"github.com/andrescamacho/artifacts-go/internal/application/common"
	"github.com/andrescamacho/artifacts-go/internal/domain/shared"
)

// RunRecorder observes routine dispatches (metrics, action log). Optional.
type RunRecorder interface {
	RecordRoutineRun(charName, routine string)
	RecordRoutineError(charName, routine string, err error)
}

// Scheduler drives one character: each tick it collects runnable routines,
// sorts them by priority (registration order breaks ties), applies the
// preemption rules, and dispatches Execute. Routine execution within a
// character is strictly sequential.
type Scheduler struct {
	cc       *common.CharContext
	routines []Routine // registration order
	clock    shared.Clock
	idle     time.Duration
	errBack  time.Duration
	recorder RunRecorder
}

// NewScheduler creates a scheduler for one character
func NewScheduler(cc *common.CharContext, clock shared.Clock, idle time.Duration) *Scheduler {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	if idle <= 0 {
		idle = 3 * time.Second
	}
	return &Scheduler{
		cc:      cc,
		clock:   clock,
		idle:    idle,
		errBack: 5 * time.Second,
	}
}

// Register appends a routine; registration order is the priority tie-break
func (s *Scheduler) Register(r Routine) {
	s.routines = append(s.routines, r)
}

// Routines returns the registered routines in registration order
func (s *Scheduler) Routines() []Routine {
	return append([]Routine(nil), s.routines...)
}

// SetRecorder installs a dispatch observer
func (s *Scheduler) SetRecorder(rec RunRecorder) {
	s.recorder = rec
}

// CharContext returns the scheduled character handle
func (s *Scheduler) CharContext() *common.CharContext {
	return s.cc
}

// candidates returns runnable routines sorted by priority descending,
// stable on registration order.
func (s *Scheduler) candidates(ctx context.Context) []Routine {
	var out []Routine
	for _, r := range s.routines {
		if r.CanRun(ctx, s.cc) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority() > out[j].Priority()
	})
	return out
}

// ShouldPreempt decides whether a suspended loop routine gives way: any
// strictly-higher-priority candidate wins when it is urgent or the current
// routine consents.
func (s *Scheduler) ShouldPreempt(ctx context.Context, current Routine, cands []Routine) bool {
	for _, c := range cands {
		if c == current {
			continue
		}
		if c.Priority() <= current.Priority() {
			break // sorted descending; nothing further can preempt
		}
		if c.Urgent() || current.CanBePreempted(ctx, s.cc) {
			return true
		}
	}
	return false
}

// Pick chooses the routine for the next slice given the suspended current
// one (nil when idle). Returns nil when nothing is runnable.
func (s *Scheduler) Pick(ctx context.Context, current Routine) Routine {
	cands := s.candidates(ctx)
	if current != nil {
		if s.ShouldPreempt(ctx, current, cands) {
			current = nil
		} else {
			return current
		}
	}
	if len(cands) == 0 {
		return nil
	}
	return cands[0]
}

// Run drives the character until the context is canceled
func (s *Scheduler) Run(ctx context.Context) error {
	logger := common.LoggerFromContext(ctx)
	if err := s.cc.Refresh(ctx); err != nil {
		logger.Log("warn", "initial refresh failed", map[string]interface{}{
			"char": s.cc.Name(), "error": err.Error(),
		})
	}
	var current Routine
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		next := s.Pick(ctx, current)
		if next == nil {
			current = nil
			s.clock.Sleep(s.idle)
			continue
		}
		if next != current {
			logger.Log("debug", "dispatching routine", map[string]interface{}{
				"char": s.cc.Name(), "routine": next.Name(),
			})
		}
		if s.recorder != nil {
			s.recorder.RecordRoutineRun(s.cc.Name(), next.Name())
		}
		again, err := next.Execute(ctx, s.cc)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Log("warn", "routine failed", map[string]interface{}{
				"char": s.cc.Name(), "routine": next.Name(), "error": err.Error(),
			})
			if s.recorder != nil {
				s.recorder.RecordRoutineError(s.cc.Name(), next.Name(), err)
			}
			current = nil
			s.clock.Sleep(s.errBack)
			continue
		}
		if next.Loop() && again {
			current = next
		} else {
			current = nil
		}
	}
}
