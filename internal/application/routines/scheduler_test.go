package routines_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/artifacts-go/internal/application/common"
	"github.com/andrescamacho/artifacts-go/internal/application/routines"
	"github.com/andrescamacho/artifacts-go/internal/domain/character"
	"github.com/andrescamacho/artifacts-go/internal/domain/shared"
	"github.com/andrescamacho/artifacts-go/internal/infrastructure/config"
	"github.com/andrescamacho/artifacts-go/test/helpers"
)

// stubRoutine is a scriptable routine for scheduler tests
type stubRoutine struct {
	name       string
	priority   int
	loop       bool
	urgent     bool
	runnable   bool
	preemptsOK bool
	executed   int
	execFn     func() (bool, error)
}

func (s *stubRoutine) Name() string   { return s.name }
func (s *stubRoutine) Priority() int  { return s.priority }
func (s *stubRoutine) Loop() bool     { return s.loop }
func (s *stubRoutine) Urgent() bool   { return s.urgent }
func (s *stubRoutine) CanRun(ctx context.Context, cc *common.CharContext) bool { return s.runnable }
func (s *stubRoutine) CanBePreempted(ctx context.Context, cc *common.CharContext) bool {
	return s.preemptsOK
}
func (s *stubRoutine) Execute(ctx context.Context, cc *common.CharContext) (bool, error) {
	s.executed++
	if s.execFn != nil {
		return s.execFn()
	}
	return s.loop, nil
}
func (s *stubRoutine) UpdateConfig(cfg *config.CharacterConfig) {}

func newTestScheduler(t *testing.T) *routines.Scheduler {
	t.Helper()
	clock := shared.NewMockClock(time.Unix(1_700_000_000, 0))
	cc := common.NewCharContext("tester", nil, clock)
	return routines.NewScheduler(cc, clock, time.Second)
}

func TestPick_HighestPriorityRunnableWins(t *testing.T) {
	sched := newTestScheduler(t)
	low := &stubRoutine{name: "low", priority: 5, runnable: true}
	high := &stubRoutine{name: "high", priority: 100, runnable: true}
	idleOnly := &stubRoutine{name: "idle", priority: 50, runnable: false}
	sched.Register(low)
	sched.Register(high)
	sched.Register(idleOnly)

	picked := sched.Pick(context.Background(), nil)

	require.NotNil(t, picked)
	assert.Equal(t, "high", picked.Name())
}

func TestPick_NothingRunnable(t *testing.T) {
	sched := newTestScheduler(t)
	sched.Register(&stubRoutine{name: "r", priority: 5})

	assert.Nil(t, sched.Pick(context.Background(), nil))
}

func TestPick_RegistrationOrderBreaksTies(t *testing.T) {
	sched := newTestScheduler(t)
	first := &stubRoutine{name: "first", priority: 10, runnable: true}
	second := &stubRoutine{name: "second", priority: 10, runnable: true}
	sched.Register(first)
	sched.Register(second)

	picked := sched.Pick(context.Background(), nil)
	assert.Equal(t, "first", picked.Name())
}

func TestShouldPreempt_UrgentHigherPriorityWins(t *testing.T) {
	sched := newTestScheduler(t)
	current := &stubRoutine{name: "rotation", priority: 5, loop: true, runnable: true}
	urgent := &stubRoutine{name: "event", priority: 90, urgent: true, runnable: true}
	sched.Register(current)
	sched.Register(urgent)

	picked := sched.Pick(context.Background(), current)

	assert.Equal(t, "event", picked.Name())
}

func TestShouldPreempt_NonUrgentNeedsConsent(t *testing.T) {
	sched := newTestScheduler(t)
	current := &stubRoutine{name: "rotation", priority: 5, loop: true, runnable: true}
	higher := &stubRoutine{name: "deposit", priority: 50, runnable: true}
	sched.Register(current)
	sched.Register(higher)

	// Current refuses preemption: it keeps the slice.
	picked := sched.Pick(context.Background(), current)
	assert.Equal(t, "rotation", picked.Name())

	// Current consents: the higher-priority routine takes over.
	current.preemptsOK = true
	picked = sched.Pick(context.Background(), current)
	assert.Equal(t, "deposit", picked.Name())
}

func TestShouldPreempt_EqualOrLowerPriorityNever(t *testing.T) {
	sched := newTestScheduler(t)
	current := &stubRoutine{name: "a", priority: 50, loop: true, runnable: true, preemptsOK: true}
	equal := &stubRoutine{name: "b", priority: 50, urgent: true, runnable: true}
	lower := &stubRoutine{name: "c", priority: 10, urgent: true, runnable: true}
	sched.Register(current)
	sched.Register(equal)
	sched.Register(lower)

	picked := sched.Pick(context.Background(), current)
	assert.Equal(t, "a", picked.Name())
}

func TestPick_CurrentNoLongerRunnableStillKept(t *testing.T) {
	// A suspended loop routine stays current even when CanRun flips false;
	// only preemption or its own Execute return ends the run.
	sched := newTestScheduler(t)
	current := &stubRoutine{name: "rotation", priority: 5, loop: true}
	sched.Register(current)

	picked := sched.Pick(context.Background(), current)
	assert.Equal(t, "rotation", picked.Name())
}

type recordingRecorder struct {
	runs   []string
	errors []string
}

func (r *recordingRecorder) RecordRoutineRun(charName, routine string) {
	r.runs = append(r.runs, routine)
}

func (r *recordingRecorder) RecordRoutineError(charName, routine string, err error) {
	r.errors = append(r.errors, routine)
}

func TestRun_DispatchesUntilCanceled(t *testing.T) {
	clock := shared.NewMockClock(time.Unix(1_700_000_000, 0))
	fake := helpers.NewFakeAPI(&character.Record{Name: "tester"})
	cc := common.NewCharContext("tester", fake, clock)
	sched := routines.NewScheduler(cc, clock, time.Second)
	rec := &recordingRecorder{}
	sched.SetRecorder(rec)

	logs := &helpers.RecordingLogger{}
	ctx, cancel := context.WithCancel(common.WithLogger(context.Background(), logs))
	defer cancel()

	r := &stubRoutine{name: "work", priority: 10, runnable: true}
	r.execFn = func() (bool, error) {
		if r.executed >= 3 {
			cancel()
		}
		return false, nil
	}
	sched.Register(r)

	err := sched.Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, r.executed)
	assert.Equal(t, []string{"work", "work", "work"}, rec.runs)
	assert.Len(t, logs.Messages("debug"), 3)
}

func TestRun_RecordsErrorsAndBacksOff(t *testing.T) {
	clock := shared.NewMockClock(time.Unix(1_700_000_000, 0))
	fake := helpers.NewFakeAPI(&character.Record{Name: "tester"})
	cc := common.NewCharContext("tester", fake, clock)
	sched := routines.NewScheduler(cc, clock, time.Second)
	rec := &recordingRecorder{}
	sched.SetRecorder(rec)

	logs := &helpers.RecordingLogger{}
	ctx, cancel := context.WithCancel(common.WithLogger(context.Background(), logs))
	defer cancel()

	start := clock.Now()
	r := &stubRoutine{name: "flaky", priority: 10, runnable: true}
	r.execFn = func() (bool, error) {
		if r.executed == 1 {
			return false, shared.NewDomainError("boom")
		}
		cancel()
		return false, nil
	}
	sched.Register(r)

	err := sched.Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"flaky"}, rec.errors)
	assert.Contains(t, logs.Messages("warn"), "routine failed")
	// The error backoff advanced the clock before the retry.
	assert.True(t, clock.Now().Sub(start) >= 5*time.Second)
}

func TestHints_ApplyOverrides(t *testing.T) {
	h := routines.NewHints(5, true, false)

	p := 42
	urgent := true
	h.ApplyOverrides(&config.RoutineOptions{Priority: &p, Urgent: &urgent})

	assert.Equal(t, 42, h.Priority())
	assert.True(t, h.Loop())
	assert.True(t, h.Urgent())

	h.ApplyOverrides(nil)
	assert.Equal(t, 42, h.Priority())
}
