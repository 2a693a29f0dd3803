package game_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/artifacts-go/internal/domain/game"
)

func chainCatalog() *game.Catalog {
	items := []*game.Item{
		{Code: "copper_ore", Type: "resource"},
		{Code: "feather", Type: "resource"},
		{Code: "jasper_crystal", Type: "resource"}, // task reward: no drop source
		{
			Code: "copper", Type: "resource",
			Craft: &game.Craft{
				Skill: game.SkillMining, Level: 1, Quantity: 1,
				Items: []game.Ingredient{{Code: "copper_ore", Quantity: 10}},
			},
		},
		{
			Code: "copper_dagger", Type: "weapon",
			Craft: &game.Craft{
				Skill: game.SkillWeaponcrafting, Level: 1, Quantity: 1,
				Items: []game.Ingredient{
					{Code: "copper", Quantity: 6},
					{Code: "feather", Quantity: 2},
					{Code: "jasper_crystal", Quantity: 1},
				},
			},
		},
	}
	resources := []*game.Resource{
		{Code: "copper_rocks", Skill: game.SkillMining, Level: 1,
			Drops: []game.Drop{{Code: "copper_ore", Rate: 1}}},
	}
	monsters := []*game.Monster{
		{Code: "chicken", Level: 1, Drops: []game.Drop{{Code: "feather", Rate: 4}}},
	}
	return game.NewCatalog(items, monsters, resources, nil, nil)
}

func TestResolveChain_ExpandsDependenciesFirst(t *testing.T) {
	catalog := chainCatalog()

	steps, err := catalog.ResolveChain("copper_dagger")
	require.NoError(t, err)
	require.Len(t, steps, 5)

	// copper needs 6 units -> 6 crafts of 10 ore each.
	assert.Equal(t, game.StepGather, steps[0].Type)
	assert.Equal(t, "copper_ore", steps[0].ItemCode)
	assert.Equal(t, 60, steps[0].Quantity)
	assert.Equal(t, "copper_rocks", steps[0].Resource.Code)

	assert.Equal(t, game.StepCraft, steps[1].Type)
	assert.Equal(t, "copper", steps[1].ItemCode)
	assert.Equal(t, 6, steps[1].Quantity)

	assert.Equal(t, game.StepFight, steps[2].Type)
	assert.Equal(t, "feather", steps[2].ItemCode)
	assert.Equal(t, "chicken", steps[2].Monster.Code)

	// No drop source: the crystal must already be banked.
	assert.Equal(t, game.StepBank, steps[3].Type)
	assert.Equal(t, "jasper_crystal", steps[3].ItemCode)

	assert.Equal(t, game.StepCraft, steps[4].Type)
	assert.Equal(t, "copper_dagger", steps[4].ItemCode)
}

func TestResolveChain_RejectsNonCraftable(t *testing.T) {
	catalog := chainCatalog()

	_, err := catalog.ResolveChain("copper_ore")
	assert.Error(t, err)

	_, err = catalog.ResolveChain("no_such_item")
	assert.Error(t, err)
}

func TestResolveChain_RejectsCycles(t *testing.T) {
	items := []*game.Item{
		{Code: "a", Craft: &game.Craft{Skill: game.SkillAlchemy, Quantity: 1,
			Items: []game.Ingredient{{Code: "b", Quantity: 1}}}},
		{Code: "b", Craft: &game.Craft{Skill: game.SkillAlchemy, Quantity: 1,
			Items: []game.Ingredient{{Code: "a", Quantity: 1}}}},
	}
	catalog := game.NewCatalog(items, nil, nil, nil, nil)

	_, err := catalog.ResolveChain("a")
	assert.Error(t, err)
}

func TestResolveChain_BatchQuantityRoundsUpCrafts(t *testing.T) {
	// A recipe producing 2 per craft asked for 3 units needs 2 crafts.
	items := []*game.Item{
		{Code: "gudgeon", Type: "resource"},
		{Code: "cooked_gudgeon", Type: "consumable",
			Craft: &game.Craft{Skill: game.SkillCooking, Quantity: 2,
				Items: []game.Ingredient{{Code: "gudgeon", Quantity: 1}}}},
		{Code: "fish_platter", Type: "consumable",
			Craft: &game.Craft{Skill: game.SkillCooking, Quantity: 1,
				Items: []game.Ingredient{{Code: "cooked_gudgeon", Quantity: 3}}}},
	}
	resources := []*game.Resource{
		{Code: "gudgeon_spot", Skill: game.SkillFishing, Level: 1,
			Drops: []game.Drop{{Code: "gudgeon", Rate: 1}}},
	}
	catalog := game.NewCatalog(items, nil, resources, nil, nil)

	steps, err := catalog.ResolveChain("fish_platter")
	require.NoError(t, err)
	require.Len(t, steps, 3)
	assert.Equal(t, 2, steps[0].Quantity) // 2 crafts x 1 gudgeon
	assert.Equal(t, 3, steps[1].Quantity) // cooked_gudgeon units needed
}
