package routines

import (
	"context"

	"github.com/andrescamacho/artifacts-go/internal/application/bank"
	"github.com/andrescamacho/artifacts-go/internal/application/common"
	"github.com/andrescamacho/artifacts-go/internal/application/orderboard"
	"github.com/andrescamacho/artifacts-go/internal/domain/character"
	"github.com/andrescamacho/artifacts-go/internal/domain/game"
	"github.com/andrescamacho/artifacts-go/internal/infrastructure/config"
)

const defaultDepositThreshold = 0.8

// KeepProvider tells the deposit routine which carried items are claimed by
// the gear planner and must stay on the character, and which codes any
// character on the account still wants.
type KeepProvider interface {
	OwnedKeepByCodeForInventory(cc *common.CharContext) map[string]int
	IsClaimedByAnyCharacter(code string) bool
}

// DepositRecorder credits a deposit against outstanding orders
type DepositRecorder interface {
	RecordDeposits(charName string, items map[string]int) []orderboard.DepositDelta
}

// DepositBankRoutine empties the character's inventory into the bank once it
// fills up, protecting gear-planner claims, and credits the deposit to the
// order board.
type DepositBankRoutine struct {
	Hints
	ops      *bank.Ops
	catalog  *game.Catalog
	keep     KeepProvider
	recorder DepositRecorder

	threshold        float64
	depositGold      bool
	sellOnGE         bool
	recycleEquipment bool
}

// NewDepositBankRoutine creates the deposit routine at its baseline priority
func NewDepositBankRoutine(ops *bank.Ops, catalog *game.Catalog, keep KeepProvider, recorder DepositRecorder, opts *config.RoutineOptions) *DepositBankRoutine {
	r := &DepositBankRoutine{
		Hints:     NewHints(50, false, false),
		ops:       ops,
		catalog:   catalog,
		keep:      keep,
		recorder:  recorder,
		threshold: defaultDepositThreshold,
	}
	r.applyOptions(opts)
	return r
}

func (r *DepositBankRoutine) applyOptions(opts *config.RoutineOptions) {
	r.ApplyOverrides(opts)
	if opts != nil {
		if opts.Threshold != nil {
			r.threshold = *opts.Threshold
		}
		r.depositGold = opts.DepositGold
		r.sellOnGE = opts.SellOnGE
		r.recycleEquipment = opts.RecycleEquipment
	}
}

func (r *DepositBankRoutine) Name() string { return "deposit_bank" }

// depositable returns the inventory lines free to leave the character:
// carried quantities minus gear-planner keeps.
func (r *DepositBankRoutine) depositable(cc *common.CharContext) []character.InventorySlot {
	keep := map[string]int{}
	if r.keep != nil {
		keep = r.keep.OwnedKeepByCodeForInventory(cc)
	}
	var out []character.InventorySlot
	for _, line := range cc.Record().Inventory {
		if line.Quantity <= 0 {
			continue
		}
		qty := line.Quantity
		if kept := keep[line.Code]; kept > 0 {
			qty -= kept
		}
		if qty > 0 {
			out = append(out, character.InventorySlot{Code: line.Code, Quantity: qty})
		}
	}
	return out
}

func (r *DepositBankRoutine) CanRun(ctx context.Context, cc *common.CharContext) bool {
	rec := cc.Record()
	cap := rec.InventoryCapacity()
	if cap <= 0 {
		return false
	}
	total := 0
	for _, line := range r.depositable(cc) {
		total += line.Quantity
	}
	if total == 0 {
		return false
	}
	if r.threshold <= 0 {
		return true
	}
	return float64(total)/float64(cap) >= r.threshold
}

func (r *DepositBankRoutine) CanBePreempted(ctx context.Context, cc *common.CharContext) bool {
	return true
}

// surplusEquipment reports whether the carried item is a gear piece nobody on
// the account claims.
func (r *DepositBankRoutine) surplusEquipment(code string) *game.Item {
	if r.catalog == nil {
		return nil
	}
	it := r.catalog.Item(code)
	if it == nil || !it.IsEquipment() || it.IsTool() {
		return nil
	}
	if r.keep != nil && r.keep.IsClaimedByAnyCharacter(code) {
		return nil
	}
	return it
}

// liquidate turns one surplus equipment line into materials or gold instead
// of banking it: recycling at the item's workshop when the character has the
// craft skill, otherwise a sell order at the grand exchange. One action per
// tick; the remaining lines go to the bank on later passes.
func (r *DepositBankRoutine) liquidate(ctx context.Context, cc *common.CharContext, lines []character.InventorySlot) (bool, error) {
	rec := cc.Record()
	for _, line := range lines {
		it := r.surplusEquipment(line.Code)
		if it == nil {
			continue
		}
		if r.recycleEquipment && it.IsCraftable() && rec.SkillLevel(it.Craft.Skill) >= it.Craft.Level {
			loc, err := r.catalog.WorkshopLocation(it.Craft.Skill, rec.X, rec.Y)
			if err != nil {
				continue
			}
			if err := cc.MoveTo(ctx, loc.X, loc.Y); err != nil {
				return false, err
			}
			res, err := cc.API().Recycle(ctx, cc.Name(), line.Code, line.Quantity)
			if err != nil {
				return false, err
			}
			return true, cc.Apply(ctx, res)
		}
		if r.sellOnGE {
			loc, err := r.catalog.LocationOf("grand_exchange", "", rec.X, rec.Y)
			if err != nil {
				continue
			}
			if err := cc.MoveTo(ctx, loc.X, loc.Y); err != nil {
				return false, err
			}
			res, err := cc.API().GeCreateSellOrder(ctx, cc.Name(), line.Code, line.Quantity, geListPrice(it))
			if err != nil {
				return false, err
			}
			return true, cc.Apply(ctx, res)
		}
	}
	return false, nil
}

// geListPrice is the level-derived floor price for a sell order
func geListPrice(it *game.Item) int {
	if it.Level < 1 {
		return 1
	}
	return it.Level
}

func (r *DepositBankRoutine) Execute(ctx context.Context, cc *common.CharContext) (bool, error) {
	lines := r.depositable(cc)
	if len(lines) == 0 {
		return false, nil
	}
	if r.recycleEquipment || r.sellOnGE {
		if done, err := r.liquidate(ctx, cc, lines); done || err != nil {
			return done, err
		}
		lines = r.depositable(cc)
		if len(lines) == 0 {
			return false, nil
		}
	}
	if err := r.ops.Deposit(ctx, cc, lines); err != nil {
		return false, err
	}
	if r.recorder != nil {
		deposited := make(map[string]int, len(lines))
		for _, line := range lines {
			deposited[line.Code] += line.Quantity
		}
		r.recorder.RecordDeposits(cc.Name(), deposited)
	}
	if r.depositGold {
		if gold := cc.Record().Gold; gold > 0 {
			if err := r.ops.DepositGold(ctx, cc, gold); err != nil {
				return false, err
			}
		}
	}
	return false, nil
}

func (r *DepositBankRoutine) UpdateConfig(cfg *config.CharacterConfig) {
	r.applyOptions(cfg.Routine(config.RoutineDepositBank))
}
