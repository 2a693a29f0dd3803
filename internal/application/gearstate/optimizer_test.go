package gearstate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/artifacts-go/internal/application/bank"
	"github.com/andrescamacho/artifacts-go/internal/application/gearstate"
	"github.com/andrescamacho/artifacts-go/internal/domain/character"
	"github.com/andrescamacho/artifacts-go/internal/domain/game"
)

func optimizerCatalog() *game.Catalog {
	items := []*game.Item{
		{Code: "copper_sword", Type: "weapon", Level: 1, Effects: []game.Effect{{Code: "attack_fire", Value: 10}}},
		{Code: "iron_sword", Type: "weapon", Level: 5, Effects: []game.Effect{{Code: "attack_fire", Value: 20}}},
		{Code: "steel_sword", Type: "weapon", Level: 10, Effects: []game.Effect{{Code: "attack_fire", Value: 35}}},
		{Code: "wooden_shield", Type: "shield", Level: 1, Effects: []game.Effect{{Code: "res_fire", Value: 5}}},
		{Code: "iron_ring", Type: "ring", Level: 2, Effects: []game.Effect{{Code: "attack_fire", Value: 4}}},
	}
	monsters := []*game.Monster{
		{Code: "chicken", Level: 1, HP: 60, AttackEarth: 5},
	}
	return game.NewCatalog(items, monsters, nil, nil, nil)
}

func TestOptimize_PicksStrongestReachableGear(t *testing.T) {
	inv := bank.NewInventory()
	inv.Update(0, map[string]int{"iron_sword": 1, "wooden_shield": 1, "iron_ring": 1})
	opt := gearstate.NewPoolOptimizer(optimizerCatalog(), inv)
	rec := &character.Record{
		Name:  "alice",
		Level: 5,
		MaxHP: 100,
		Inventory: []character.InventorySlot{
			{Code: "copper_sword", Quantity: 1},
		},
	}

	res, err := opt.Optimize(rec, "chicken")

	require.NoError(t, err)
	assert.Equal(t, "iron_sword", res.Loadout[character.SlotWeapon])
	assert.Equal(t, "wooden_shield", res.Loadout[character.SlotShield])
	assert.Equal(t, "iron_ring", res.Loadout[character.SlotRing1])
	// Only one ring in the pool, so the second ring slot stays empty.
	assert.Empty(t, res.Loadout[character.SlotRing2])
	assert.Equal(t, 1, res.MonsterLevel)
	assert.True(t, res.Sim.Win)
}

func TestOptimize_RespectsLevelGate(t *testing.T) {
	inv := bank.NewInventory()
	inv.Update(0, map[string]int{"steel_sword": 1, "copper_sword": 1})
	opt := gearstate.NewPoolOptimizer(optimizerCatalog(), inv)
	rec := &character.Record{Name: "alice", Level: 5, MaxHP: 100}

	res, err := opt.Optimize(rec, "chicken")

	require.NoError(t, err)
	// steel_sword outclasses copper but needs level 10.
	assert.Equal(t, "copper_sword", res.Loadout[character.SlotWeapon])
}

func TestOptimize_FillsBothRingSlots(t *testing.T) {
	inv := bank.NewInventory()
	inv.Update(0, map[string]int{"iron_ring": 2})
	opt := gearstate.NewPoolOptimizer(optimizerCatalog(), inv)
	rec := &character.Record{Name: "alice", Level: 5, MaxHP: 100}

	res, err := opt.Optimize(rec, "chicken")

	require.NoError(t, err)
	assert.Equal(t, "iron_ring", res.Loadout[character.SlotRing1])
	assert.Equal(t, "iron_ring", res.Loadout[character.SlotRing2])
}

func TestOptimize_UnknownMonster(t *testing.T) {
	opt := gearstate.NewPoolOptimizer(optimizerCatalog(), bank.NewInventory())
	rec := &character.Record{Name: "alice", Level: 5, MaxHP: 100}

	_, err := opt.Optimize(rec, "dragon")

	assert.Error(t, err)
}
