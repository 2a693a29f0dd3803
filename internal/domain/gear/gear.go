package gear

import (
	"sort"

	"github.com/andrescamacho/artifacts-go/internal/domain/character"
	"github.com/andrescamacho/artifacts-go/internal/domain/combat"
)

// Loadout maps equipment slots to item codes. Utility slots carry the item
// code only; stack sizes are handled by the potion manager.
type Loadout map[character.Slot]string

// OptimizeResult is the outcome of the gear optimizer for one monster: the
// best loadout found and its simulated fight.
type OptimizeResult struct {
	MonsterCode  string
	MonsterLevel int
	Loadout      Loadout
	Sim          combat.Result
}

// Counts returns the loadout as an item-code multiset: one count per occupied
// gear slot, utility slots counting once regardless of stack size.
func (r *OptimizeResult) Counts() map[string]int {
	counts := make(map[string]int)
	for _, code := range r.Loadout {
		if code != "" {
			counts[code]++
		}
	}
	return counts
}

// Viable applies the standard viability threshold to the simulated fight
func (r *OptimizeResult) Viable() bool {
	return r.Sim.IsViableWin()
}

// RankResults sorts optimizer records best-first: monster level descending,
// then fewer turns, then more remaining HP, then code for determinism.
func RankResults(records []*OptimizeResult) {
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.MonsterLevel != b.MonsterLevel {
			return a.MonsterLevel > b.MonsterLevel
		}
		if a.Sim.Turns != b.Sim.Turns {
			return a.Sim.Turns < b.Sim.Turns
		}
		if a.Sim.RemainingHP != b.Sim.RemainingHP {
			return a.Sim.RemainingHP > b.Sim.RemainingHP
		}
		return a.MonsterCode < b.MonsterCode
	})
}

// Dominates reports whether the owned multiset covers every count in the
// record's loadout.
func Dominates(owned map[string]int, record *OptimizeResult) bool {
	for code, need := range record.Counts() {
		if owned[code] < need {
			return false
		}
	}
	return true
}
