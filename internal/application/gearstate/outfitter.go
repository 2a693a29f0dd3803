package gearstate

import (
	"context"
	"sort"

	"github.com/andrescamacho/artifacts-go/internal/application/bank"
	"github.com/andrescamacho/artifacts-go/internal/application/common"
	"github.com/andrescamacho/artifacts-go/internal/domain/character"
	"github.com/andrescamacho/artifacts-go/internal/domain/game"
	"github.com/andrescamacho/artifacts-go/internal/domain/shared"
	"github.com/andrescamacho/artifacts-go/internal/infrastructure/config"
)

// poisonBiasDefault is added to an antipoison potion's score when the target
// monster poisons, so the refill prefers it over raw heal potions.
const poisonBiasDefault = 500

// Outfitter turns planner verdicts into equip actions: it swaps a character
// into the optimizer's loadout for a monster and refills utility potions.
type Outfitter struct {
	catalog   *game.Catalog
	ops       *bank.Ops
	optimizer Optimizer
	settings  func(charName string) config.CombatPotionSettings
}

// NewOutfitter creates an outfitter; settings may be nil to disable potions
func NewOutfitter(catalog *game.Catalog, ops *bank.Ops, optimizer Optimizer, settings func(string) config.CombatPotionSettings) *Outfitter {
	return &Outfitter{catalog: catalog, ops: ops, optimizer: optimizer, settings: settings}
}

// EquipForMonster swaps the character into the best loadout the account can
// field against the monster. Missing pieces are withdrawn from the bank;
// pieces the bank cannot supply keep the current slot contents.
func (o *Outfitter) EquipForMonster(ctx context.Context, cc *common.CharContext, monsterCode string) error {
	result, err := o.optimizer.Optimize(cc.Record(), monsterCode)
	if err != nil {
		return err
	}
	for _, slot := range character.CarrySlotPriority {
		want := result.Loadout[slot]
		if want == "" || cc.Record().Equipment[slot] == want {
			continue
		}
		if err := o.swapSlot(ctx, cc, slot, want); err != nil {
			return err
		}
	}
	return nil
}

// swapSlot puts the wanted item into the slot, sourcing it from inventory or
// bank. A sourcing miss leaves the slot untouched.
func (o *Outfitter) swapSlot(ctx context.Context, cc *common.CharContext, slot character.Slot, want string) error {
	rec := cc.Record()
	if rec.ItemCount(want) == 0 {
		if !o.ops.Inventory().Has(want, 1) {
			return nil
		}
		if err := o.ops.Withdraw(ctx, cc, map[string]int{want: 1}); err != nil {
			return nil
		}
	}
	if rec.Equipment[slot] != "" {
		res, err := cc.API().Unequip(ctx, cc.Name(), slot, 1)
		if err != nil {
			return err
		}
		if err := cc.Apply(ctx, res); err != nil {
			return err
		}
	}
	return o.equipSlot(ctx, cc, want, slot, 1)
}

// equipSlot equips the item, falling back to an explicit unequip-then-equip
// when the server refuses to add onto the occupied slot.
func (o *Outfitter) equipSlot(ctx context.Context, cc *common.CharContext, code string, slot character.Slot, qty int) error {
	res, err := cc.API().Equip(ctx, cc.Name(), code, slot, qty)
	if shared.IsAPIError(err, shared.CodeEquipSlotOccupied) || shared.IsAPIError(err, shared.CodeEquipNotStackable) {
		held := cc.Record().UtilityQuantities[slot]
		if held <= 0 {
			held = 1
		}
		unres, unerr := cc.API().Unequip(ctx, cc.Name(), slot, held)
		if unerr != nil {
			return unerr
		}
		if aerr := cc.Apply(ctx, unres); aerr != nil {
			return aerr
		}
		res, err = cc.API().Equip(ctx, cc.Name(), code, slot, qty)
	}
	if err != nil {
		return err
	}
	return cc.Apply(ctx, res)
}

// potionScore ranks a utility potion for a fight against the monster
func potionScore(it *game.Item, monster *game.Monster, bias int) int {
	score := it.EffectValue("restore") + it.EffectValue("heal")
	if monster != nil && monster.EffectValue("poison") > 0 && it.EffectValue("antipoison") > 0 {
		score += bias
	}
	return score
}

// PreparePotions refills the utility slots before a fight when the stack has
// dropped below the configured refill threshold.
func (o *Outfitter) PreparePotions(ctx context.Context, cc *common.CharContext, monsterCode string) error {
	if o.settings == nil {
		return nil
	}
	settings := o.settings(cc.Name())
	if !settings.Enabled {
		return nil
	}
	bias := settings.PoisonBias
	if bias == 0 {
		bias = poisonBiasDefault
	}
	target := settings.TargetQuantity
	if target <= 0 {
		return nil
	}
	monster := o.catalog.Monster(monsterCode)
	for _, slot := range []character.Slot{character.SlotUtility1, character.SlotUtility2} {
		rec := cc.Record()
		current := rec.Equipment[slot]
		quantity := rec.UtilityQuantities[slot]
		if current != "" {
			if quantity >= settings.RefillBelow {
				continue
			}
			it := o.catalog.Item(current)
			if settings.RespectNonPotionUtility && (it == nil || it.Subtype != "potion") {
				continue
			}
		}
		best := o.bestPotion(cc, monster, bias)
		if best == "" {
			continue
		}
		refill := target - quantity
		if current != "" && current != best {
			refill = target
		}
		if refill <= 0 {
			continue
		}
		if err := o.stockPotion(ctx, cc, best, refill); err != nil {
			return err
		}
		if carried := cc.Record().ItemCount(best); carried < refill {
			refill = carried
		}
		if refill <= 0 {
			continue
		}
		if current != "" && current != best {
			res, err := cc.API().Unequip(ctx, cc.Name(), slot, quantity)
			if err != nil {
				return err
			}
			if err := cc.Apply(ctx, res); err != nil {
				return err
			}
		}
		if err := o.equipSlot(ctx, cc, best, slot, refill); err != nil {
			return err
		}
	}
	return nil
}

// bestPotion picks the strongest usable potion reachable from inventory or
// bank, biased toward antipoison against poisoning monsters.
func (o *Outfitter) bestPotion(cc *common.CharContext, monster *game.Monster, bias int) string {
	rec := cc.Record()
	seen := make(map[string]bool)
	var candidates []*game.Item
	consider := func(code string) {
		if code == "" || seen[code] {
			return
		}
		seen[code] = true
		it := o.catalog.Item(code)
		if it == nil || it.Type != "utility" || it.Level > rec.Level {
			return
		}
		candidates = append(candidates, it)
	}
	for _, line := range rec.Inventory {
		consider(line.Code)
	}
	for code := range o.ops.Inventory().Snapshot().Items {
		consider(code)
	}
	if len(candidates) == 0 {
		return ""
	}
	sort.Slice(candidates, func(i, j int) bool {
		s1 := potionScore(candidates[i], monster, bias)
		s2 := potionScore(candidates[j], monster, bias)
		if s1 != s2 {
			return s1 > s2
		}
		return candidates[i].Code < candidates[j].Code
	})
	return candidates[0].Code
}

// stockPotion tops the carried stack up to qty from the bank
func (o *Outfitter) stockPotion(ctx context.Context, cc *common.CharContext, code string, qty int) error {
	carried := cc.Record().ItemCount(code)
	if carried >= qty {
		return nil
	}
	missing := qty - carried
	avail := o.ops.Inventory().AvailableCount(code)
	if avail < missing {
		missing = avail
	}
	if missing <= 0 {
		return nil
	}
	if err := o.ops.Withdraw(ctx, cc, map[string]int{code: missing}); err != nil {
		return nil
	}
	return nil
}
