package routines

import (
	"context"

	"github.com/andrescamacho/artifacts-go/internal/application/common"
	"github.com/andrescamacho/artifacts-go/internal/domain/game"
	"github.com/andrescamacho/artifacts-go/internal/infrastructure/config"
)

// CompleteTaskRoutine turns in a finished task at the task master
type CompleteTaskRoutine struct {
	Hints
	catalog *game.Catalog
}

// NewCompleteTaskRoutine creates the routine at its baseline priority
func NewCompleteTaskRoutine(catalog *game.Catalog, opts *config.RoutineOptions) *CompleteTaskRoutine {
	r := &CompleteTaskRoutine{
		Hints:   NewHints(45, false, false),
		catalog: catalog,
	}
	r.ApplyOverrides(opts)
	return r
}

func (r *CompleteTaskRoutine) Name() string { return "complete_task" }

func (r *CompleteTaskRoutine) CanRun(ctx context.Context, cc *common.CharContext) bool {
	return cc.Record().TaskComplete()
}

func (r *CompleteTaskRoutine) CanBePreempted(ctx context.Context, cc *common.CharContext) bool {
	return true
}

func (r *CompleteTaskRoutine) Execute(ctx context.Context, cc *common.CharContext) (bool, error) {
	rec := cc.Record()
	loc, err := r.catalog.TaskMasterLocation(rec.TaskType, rec.X, rec.Y)
	if err != nil {
		return false, err
	}
	if err := cc.MoveTo(ctx, loc.X, loc.Y); err != nil {
		return false, err
	}
	res, err := cc.API().CompleteTask(ctx, cc.Name())
	if err != nil {
		return false, err
	}
	return false, cc.Apply(ctx, res)
}

func (r *CompleteTaskRoutine) UpdateConfig(cfg *config.CharacterConfig) {
	r.ApplyOverrides(cfg.Routine(config.RoutineCompleteTask))
}
