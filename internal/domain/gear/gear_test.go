package gear_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/andrescamacho/artifacts-go/internal/domain/character"
	"github.com/andrescamacho/artifacts-go/internal/domain/combat"
	"github.com/andrescamacho/artifacts-go/internal/domain/gear"
)

func TestCounts_UtilityStacksCountOnce(t *testing.T) {
	r := &gear.OptimizeResult{Loadout: gear.Loadout{
		character.SlotWeapon:   "iron_sword",
		character.SlotRing1:    "iron_ring",
		character.SlotRing2:    "iron_ring",
		character.SlotUtility1: "small_health_potion",
		character.SlotShield:   "",
	}}

	counts := r.Counts()

	assert.Equal(t, 1, counts["iron_sword"])
	assert.Equal(t, 2, counts["iron_ring"])
	assert.Equal(t, 1, counts["small_health_potion"])
	assert.NotContains(t, counts, "")
}

func TestRankResults(t *testing.T) {
	records := []*gear.OptimizeResult{
		{MonsterCode: "wolf", MonsterLevel: 15, Sim: combat.Result{Win: true, Turns: 8}},
		{MonsterCode: "ogre", MonsterLevel: 20, Sim: combat.Result{Win: true, Turns: 12}},
		{MonsterCode: "bandit", MonsterLevel: 20, Sim: combat.Result{Win: true, Turns: 9, RemainingHP: 40}},
		{MonsterCode: "skeleton", MonsterLevel: 20, Sim: combat.Result{Win: true, Turns: 9, RemainingHP: 70}},
	}

	gear.RankResults(records)

	got := make([]string, len(records))
	for i, r := range records {
		got[i] = r.MonsterCode
	}
	// Level desc, then fewer turns, then more HP left.
	assert.Equal(t, []string{"skeleton", "bandit", "ogre", "wolf"}, got)
}

func TestDominates(t *testing.T) {
	record := &gear.OptimizeResult{Loadout: gear.Loadout{
		character.SlotRing1: "iron_ring",
		character.SlotRing2: "iron_ring",
	}}

	assert.True(t, gear.Dominates(map[string]int{"iron_ring": 2}, record))
	assert.False(t, gear.Dominates(map[string]int{"iron_ring": 1}, record))
	assert.True(t, gear.Dominates(map[string]int{"iron_ring": 5, "extra": 1}, record))
}
