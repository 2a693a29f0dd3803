package routines_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/artifacts-go/internal/application/bank"
	"github.com/andrescamacho/artifacts-go/internal/application/common"
	"github.com/andrescamacho/artifacts-go/internal/application/routines"
	"github.com/andrescamacho/artifacts-go/internal/domain/character"
	"github.com/andrescamacho/artifacts-go/internal/domain/game"
	"github.com/andrescamacho/artifacts-go/internal/domain/shared"
	"github.com/andrescamacho/artifacts-go/internal/infrastructure/config"
	"github.com/andrescamacho/artifacts-go/test/helpers"
)

type stubKeep struct {
	keep    map[string]int
	claimed map[string]bool
}

func (s *stubKeep) OwnedKeepByCodeForInventory(cc *common.CharContext) map[string]int {
	return s.keep
}

func (s *stubKeep) IsClaimedByAnyCharacter(code string) bool {
	return s.claimed[code]
}

func depositCatalog() *game.Catalog {
	return game.NewCatalog(
		[]*game.Item{
			{Code: "iron_sword", Type: "weapon", Level: 5, Craft: &game.Craft{
				Skill: game.SkillWeaponcrafting,
				Level: 5,
				Items: []game.Ingredient{{Code: "iron", Quantity: 3}},
			}},
			{Code: "skeleton_helmet", Type: "helmet", Level: 8},
			{Code: "copper_ore", Type: "resource"},
		},
		nil, nil, nil,
		[]game.Location{
			{X: 4, Y: 1, ContentType: "bank"},
			{X: 2, Y: 2, ContentType: "workshop", ContentCode: "weaponcrafting"},
			{X: 5, Y: 1, ContentType: "grand_exchange"},
		},
	)
}

type depositFixture struct {
	routine *routines.DepositBankRoutine
	cc      *common.CharContext
	fake    *helpers.FakeAPI
}

func newDepositFixture(t *testing.T, char *character.Record, keep *stubKeep, opts *config.RoutineOptions) *depositFixture {
	t.Helper()
	fake := helpers.NewFakeAPI(char)
	clock := shared.NewMockClock(time.Unix(1_700_000_000, 0))
	cc := common.NewCharContext(char.Name, fake, clock)
	require.NoError(t, cc.Refresh(context.Background()))
	catalog := depositCatalog()
	ops := bank.NewOps(bank.NewInventory(), catalog)
	require.NoError(t, ops.Refresh(context.Background(), cc))
	return &depositFixture{
		routine: routines.NewDepositBankRoutine(ops, catalog, keep, nil, opts),
		cc:      cc,
		fake:    fake,
	}
}

func TestDepositBank_RecyclesCraftableEquipment(t *testing.T) {
	char := &character.Record{
		Name:              "alice",
		InventoryMaxItems: 100,
		Skills:            map[game.Skill]int{game.SkillWeaponcrafting: 5},
		Inventory: []character.InventorySlot{
			{Code: "iron_sword", Quantity: 2},
			{Code: "copper_ore", Quantity: 5},
		},
	}
	fx := newDepositFixture(t, char, &stubKeep{}, &config.RoutineOptions{RecycleEquipment: true})

	more, err := fx.routine.Execute(context.Background(), fx.cc)

	require.NoError(t, err)
	assert.True(t, more)
	assert.Equal(t, 1, fx.fake.CallCount("Recycle"))
	assert.Equal(t, 0, fx.fake.CallCount("DepositBank"))
	// Recycling happens at the weaponcrafting workshop.
	assert.Equal(t, 2, fx.cc.Record().X)
	assert.Equal(t, 2, fx.cc.Record().Y)
	assert.Equal(t, 0, fx.cc.Record().ItemCount("iron_sword"))

	// With the surplus gone the next pass banks the rest.
	more, err = fx.routine.Execute(context.Background(), fx.cc)
	require.NoError(t, err)
	assert.False(t, more)
	assert.Equal(t, 1, fx.fake.CallCount("DepositBank"))
	assert.Equal(t, 5, fx.fake.BankItems["copper_ore"])
}

func TestDepositBank_SellsUncraftableGearOnGE(t *testing.T) {
	char := &character.Record{
		Name:              "alice",
		InventoryMaxItems: 100,
		Inventory: []character.InventorySlot{
			{Code: "skeleton_helmet", Quantity: 1},
		},
	}
	fx := newDepositFixture(t, char, &stubKeep{}, &config.RoutineOptions{RecycleEquipment: true, SellOnGE: true})

	more, err := fx.routine.Execute(context.Background(), fx.cc)

	require.NoError(t, err)
	assert.True(t, more)
	// No recipe to recycle against: the helmet goes to the grand exchange.
	assert.Equal(t, 0, fx.fake.CallCount("Recycle"))
	assert.Equal(t, 1, fx.fake.CallCount("GeCreateSellOrder"))
	assert.Equal(t, 5, fx.cc.Record().X)
	assert.Equal(t, 1, fx.cc.Record().Y)
	assert.Equal(t, 0, fx.cc.Record().ItemCount("skeleton_helmet"))
}

func TestDepositBank_ClaimedGearIsBankedNotLiquidated(t *testing.T) {
	char := &character.Record{
		Name:              "alice",
		InventoryMaxItems: 100,
		Skills:            map[game.Skill]int{game.SkillWeaponcrafting: 5},
		Inventory: []character.InventorySlot{
			{Code: "iron_sword", Quantity: 1},
		},
	}
	keep := &stubKeep{claimed: map[string]bool{"iron_sword": true}}
	fx := newDepositFixture(t, char, keep, &config.RoutineOptions{RecycleEquipment: true, SellOnGE: true})

	_, err := fx.routine.Execute(context.Background(), fx.cc)

	require.NoError(t, err)
	assert.Equal(t, 0, fx.fake.CallCount("Recycle"))
	assert.Equal(t, 0, fx.fake.CallCount("GeCreateSellOrder"))
	assert.Equal(t, 1, fx.fake.CallCount("DepositBank"))
	assert.Equal(t, 1, fx.fake.BankItems["iron_sword"])
}

func TestDepositBank_RecycleRequiresCraftSkill(t *testing.T) {
	char := &character.Record{
		Name:              "alice",
		InventoryMaxItems: 100,
		Skills:            map[game.Skill]int{game.SkillWeaponcrafting: 1},
		Inventory: []character.InventorySlot{
			{Code: "iron_sword", Quantity: 1},
		},
	}
	fx := newDepositFixture(t, char, &stubKeep{}, &config.RoutineOptions{RecycleEquipment: true})

	_, err := fx.routine.Execute(context.Background(), fx.cc)

	require.NoError(t, err)
	// Level 1 weaponcrafting cannot recycle a level 5 recipe.
	assert.Equal(t, 0, fx.fake.CallCount("Recycle"))
	assert.Equal(t, 1, fx.fake.CallCount("DepositBank"))
	assert.Equal(t, 1, fx.fake.BankItems["iron_sword"])
}

func TestDepositBank_KeepsClaimedQuantitiesOnCharacter(t *testing.T) {
	char := &character.Record{
		Name:              "alice",
		InventoryMaxItems: 100,
		Inventory: []character.InventorySlot{
			{Code: "copper_ore", Quantity: 5},
		},
	}
	keep := &stubKeep{keep: map[string]int{"copper_ore": 3}}
	fx := newDepositFixture(t, char, keep, nil)

	_, err := fx.routine.Execute(context.Background(), fx.cc)

	require.NoError(t, err)
	assert.Equal(t, 2, fx.fake.BankItems["copper_ore"])
	assert.Equal(t, 3, fx.cc.Record().ItemCount("copper_ore"))
}
