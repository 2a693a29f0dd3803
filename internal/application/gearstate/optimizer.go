package gearstate

import (
	"sort"

	"github.com/andrescamacho/artifacts-go/internal/application/bank"
	"github.com/andrescamacho/artifacts-go/internal/domain/character"
	"github.com/andrescamacho/artifacts-go/internal/domain/combat"
	"github.com/andrescamacho/artifacts-go/internal/domain/game"
	"github.com/andrescamacho/artifacts-go/internal/domain/gear"
	"github.com/andrescamacho/artifacts-go/internal/domain/shared"
)

// Optimizer produces the best loadout a character could field against a
// monster, drawing on the whole account pool.
type Optimizer interface {
	Optimize(rec *character.Record, monsterCode string) (*gear.OptimizeResult, error)
}

// slotItemType maps a gear slot to the catalog item type it accepts
var slotItemType = map[character.Slot]string{
	character.SlotWeapon:    "weapon",
	character.SlotShield:    "shield",
	character.SlotHelmet:    "helmet",
	character.SlotBodyArmor: "body_armor",
	character.SlotLegArmor:  "leg_armor",
	character.SlotBoots:     "boots",
	character.SlotBag:       "bag",
	character.SlotAmulet:    "amulet",
	character.SlotRing1:     "ring",
	character.SlotRing2:     "ring",
}

// PoolOptimizer fills each gear slot with the strongest item reachable from
// the account pool (equipped + carried + bank) and scores the loadout with
// the combat simulator. Per-slot greedy: slots are independent enough in
// this game's stat model that exhaustive search buys little.
type PoolOptimizer struct {
	catalog *game.Catalog
	inv     *bank.Inventory
}

// NewPoolOptimizer creates an optimizer over the account pool
func NewPoolOptimizer(catalog *game.Catalog, inv *bank.Inventory) *PoolOptimizer {
	return &PoolOptimizer{catalog: catalog, inv: inv}
}

// pool returns the account-wide item counts reachable by this character
func (o *PoolOptimizer) pool(rec *character.Record) map[string]int {
	counts := make(map[string]int)
	for code, qty := range o.inv.Snapshot().Items {
		counts[code] += qty
	}
	for _, line := range rec.Inventory {
		counts[line.Code] += line.Quantity
	}
	for _, code := range rec.Equipment {
		if code != "" {
			counts[code]++
		}
	}
	return counts
}

// itemScore ranks candidates within a slot before simulation
func itemScore(it *game.Item) int {
	score := 0
	for _, code := range []string{
		"attack_fire", "attack_earth", "attack_water", "attack_air",
		"dmg_fire", "dmg_earth", "dmg_water", "dmg_air", "dmg",
		"res_fire", "res_earth", "res_water", "res_air",
		"critical_strike", "hp", "boost_hp",
	} {
		score += it.EffectValue(code)
	}
	return score
}

// Optimize builds the greedy best loadout for the monster and simulates it
func (o *PoolOptimizer) Optimize(rec *character.Record, monsterCode string) (*gear.OptimizeResult, error) {
	monster := o.catalog.Monster(monsterCode)
	if monster == nil {
		return nil, shared.NewDomainError("unknown monster " + monsterCode)
	}
	pool := o.pool(rec)
	used := make(map[string]int)
	loadout := make(gear.Loadout)
	for _, slot := range character.CarrySlotPriority {
		itemType := slotItemType[slot]
		var candidates []*game.Item
		for code, qty := range pool {
			if qty-used[code] <= 0 {
				continue
			}
			it := o.catalog.Item(code)
			if it == nil || it.Type != itemType || it.Level > rec.Level {
				continue
			}
			candidates = append(candidates, it)
		}
		if len(candidates) == 0 {
			continue
		}
		sort.Slice(candidates, func(i, j int) bool {
			a, b := candidates[i], candidates[j]
			if s1, s2 := itemScore(a), itemScore(b); s1 != s2 {
				return s1 > s2
			}
			if a.Level != b.Level {
				return a.Level > b.Level
			}
			return a.Code < b.Code
		})
		loadout[slot] = candidates[0].Code
		used[candidates[0].Code]++
	}
	fighter := o.fighterFor(rec, loadout)
	sim := combat.Simulate(fighter, combat.FromMonster(monster), combat.Options{})
	return &gear.OptimizeResult{
		MonsterCode:  monsterCode,
		MonsterLevel: monster.Level,
		Loadout:      loadout,
		Sim:          sim,
	}, nil
}

// fighterFor adjusts the live combat attributes from the currently equipped
// gear to the candidate loadout: subtract what is worn, add what would be.
func (o *PoolOptimizer) fighterFor(rec *character.Record, loadout gear.Loadout) combat.Fighter {
	f := combat.FromCharacter(rec)
	for _, slot := range character.CarrySlotPriority {
		if worn := rec.Equipment[slot]; worn != "" {
			if it := o.catalog.Item(worn); it != nil {
				applyItem(&f, it, -1)
			}
		}
		if code := loadout[slot]; code != "" {
			if it := o.catalog.Item(code); it != nil {
				applyItem(&f, it, 1)
			}
		}
	}
	if f.MaxHP < 1 {
		f.MaxHP = 1
	}
	f.HP = f.MaxHP
	return f
}

func applyItem(f *combat.Fighter, it *game.Item, sign int) {
	f.Attack.Fire += sign * it.EffectValue("attack_fire")
	f.Attack.Earth += sign * it.EffectValue("attack_earth")
	f.Attack.Water += sign * it.EffectValue("attack_water")
	f.Attack.Air += sign * it.EffectValue("attack_air")
	f.DmgPct.Fire += sign * it.EffectValue("dmg_fire")
	f.DmgPct.Earth += sign * it.EffectValue("dmg_earth")
	f.DmgPct.Water += sign * it.EffectValue("dmg_water")
	f.DmgPct.Air += sign * it.EffectValue("dmg_air")
	f.Dmg += sign * it.EffectValue("dmg")
	f.Res.Fire += sign * it.EffectValue("res_fire")
	f.Res.Earth += sign * it.EffectValue("res_earth")
	f.Res.Water += sign * it.EffectValue("res_water")
	f.Res.Air += sign * it.EffectValue("res_air")
	f.CriticalStrike += sign * it.EffectValue("critical_strike")
	f.Initiative += sign * it.EffectValue("initiative")
	f.MaxHP += sign * (it.EffectValue("hp") + it.EffectValue("boost_hp"))
}
