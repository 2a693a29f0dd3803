package routines

import (
	"context"

	"github.com/andrescamacho/artifacts-go/internal/application/common"
	"github.com/andrescamacho/artifacts-go/internal/infrastructure/config"
)

// Routine is one prioritized behavior in a character's rotation. CanRun and
// CanBePreempted must be cheap synchronous reads of the last known state;
// Execute issues API calls. Loop routines return true from Execute to
// request another immediate iteration, subject to preemption.
type Routine interface {
	Name() string
	Priority() int
	Loop() bool
	Urgent() bool
	CanRun(ctx context.Context, cc *common.CharContext) bool
	CanBePreempted(ctx context.Context, cc *common.CharContext) bool
	Execute(ctx context.Context, cc *common.CharContext) (bool, error)
	UpdateConfig(cfg *config.CharacterConfig)
}

// Hints are the scheduler attributes every routine carries, overridable from
// the character config.
type Hints struct {
	priority int
	loop     bool
	urgent   bool
}

// NewHints builds scheduler hints with routine defaults
func NewHints(priority int, loop, urgent bool) Hints {
	return Hints{priority: priority, loop: loop, urgent: urgent}
}

func (h *Hints) Priority() int { return h.priority }
func (h *Hints) Loop() bool    { return h.loop }
func (h *Hints) Urgent() bool  { return h.urgent }

// ApplyOverrides folds config overrides into the hints
func (h *Hints) ApplyOverrides(opts *config.RoutineOptions) {
	if opts == nil {
		return
	}
	if opts.Priority != nil {
		h.priority = *opts.Priority
	}
	if opts.Loop != nil {
		h.loop = *opts.Loop
	}
	if opts.Urgent != nil {
		h.urgent = *opts.Urgent
	}
}
