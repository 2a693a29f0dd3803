package routines

import (
	"context"

	"github.com/andrescamacho/artifacts-go/internal/application/common"
	"github.com/andrescamacho/artifacts-go/internal/domain/character"
	"github.com/andrescamacho/artifacts-go/internal/domain/game"
	"github.com/andrescamacho/artifacts-go/internal/infrastructure/config"
)

const defaultRestTriggerPct = 60

// RestRoutine tops the character's HP back up, preferring carried food over
// the slower rest action.
type RestRoutine struct {
	Hints
	catalog    *game.Catalog
	triggerPct int
}

// NewRestRoutine creates the rest routine at its baseline priority
func NewRestRoutine(catalog *game.Catalog, opts *config.RoutineOptions) *RestRoutine {
	r := &RestRoutine{
		Hints:      NewHints(100, false, false),
		catalog:    catalog,
		triggerPct: defaultRestTriggerPct,
	}
	r.applyOptions(opts)
	return r
}

func (r *RestRoutine) applyOptions(opts *config.RoutineOptions) {
	r.ApplyOverrides(opts)
	if opts != nil && opts.TriggerPct > 0 {
		r.triggerPct = opts.TriggerPct
	}
}

func (r *RestRoutine) Name() string { return "rest" }

func (r *RestRoutine) CanRun(ctx context.Context, cc *common.CharContext) bool {
	rec := cc.Record()
	return rec.MaxHP > 0 && rec.HPPercent() < r.triggerPct
}

func (r *RestRoutine) CanBePreempted(ctx context.Context, cc *common.CharContext) bool {
	return false
}

// Execute heals one step: eat carried food when it covers missing HP
// efficiently, otherwise rest. The scheduler re-dispatches while the trigger
// still holds.
func (r *RestRoutine) Execute(ctx context.Context, cc *common.CharContext) (bool, error) {
	rec := cc.Record()
	missing := rec.MaxHP - rec.HP
	if missing <= 0 {
		return false, nil
	}
	if code, heal := r.bestFood(rec.Inventory); code != "" && heal > 0 {
		qty := missing / heal
		if qty < 1 {
			qty = 1
		}
		if carried := rec.ItemCount(code); qty > carried {
			qty = carried
		}
		res, err := cc.API().UseItem(ctx, cc.Name(), code, qty)
		if err != nil {
			return false, err
		}
		return false, cc.Apply(ctx, res)
	}
	res, err := cc.API().Rest(ctx, cc.Name())
	if err != nil {
		return false, err
	}
	return false, cc.Apply(ctx, res)
}

// bestFood returns the carried food item with the largest heal effect
func (r *RestRoutine) bestFood(inventory []character.InventorySlot) (string, int) {
	best, bestHeal := "", 0
	for _, line := range inventory {
		if line.Quantity <= 0 {
			continue
		}
		item := r.catalog.Item(line.Code)
		if item == nil || item.Subtype != "food" {
			continue
		}
		if heal := item.EffectValue("heal"); heal > bestHeal {
			best, bestHeal = line.Code, heal
		}
	}
	return best, bestHeal
}

func (r *RestRoutine) UpdateConfig(cfg *config.CharacterConfig) {
	r.applyOptions(cfg.Routine(config.RoutineRest))
}
