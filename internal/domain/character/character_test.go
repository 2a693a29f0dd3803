package character_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/andrescamacho/artifacts-go/internal/domain/character"
	"github.com/andrescamacho/artifacts-go/internal/domain/game"
)

func TestRecord_InventoryAccounting(t *testing.T) {
	r := &character.Record{
		Inventory: []character.InventorySlot{
			{Code: "copper_ore", Quantity: 30},
			{Code: "feather", Quantity: 5},
			{Code: "", Quantity: 0},
			{Code: "", Quantity: 0},
		},
		InventoryMaxItems: 100,
	}

	assert.Equal(t, 35, r.InventoryCount())
	assert.Equal(t, 100, r.InventoryCapacity())
	assert.False(t, r.InventoryFull())
	assert.Equal(t, 2, r.InventoryFreeSlots())
	assert.Equal(t, 30, r.ItemCount("copper_ore"))
	assert.Equal(t, 0, r.ItemCount("iron_ore"))

	r.Inventory[0].Quantity = 95
	assert.True(t, r.InventoryFull())
}

func TestRecord_EquippedCount(t *testing.T) {
	r := &character.Record{
		Equipment: map[character.Slot]string{
			character.SlotRing1:    "iron_ring",
			character.SlotRing2:    "iron_ring",
			character.SlotWeapon:   "iron_sword",
			character.SlotUtility1: "small_health_potion",
		},
		UtilityQuantities: map[character.Slot]int{
			character.SlotUtility1: 25,
		},
	}

	assert.Equal(t, 2, r.EquippedCount("iron_ring"))
	assert.Equal(t, 1, r.EquippedCount("iron_sword"))
	// Utility slots count their stack size.
	assert.Equal(t, 25, r.EquippedCount("small_health_potion"))
	assert.Equal(t, 0, r.EquippedCount("unknown"))
}

func TestRecord_TaskState(t *testing.T) {
	r := &character.Record{}
	assert.False(t, r.HasTask())
	assert.False(t, r.TaskComplete())

	r.TaskCode = "chicken"
	r.TaskType = "monsters"
	r.TaskTotal = 50
	r.TaskProgress = 49
	assert.True(t, r.HasTask())
	assert.False(t, r.TaskComplete())

	r.TaskProgress = 50
	assert.True(t, r.TaskComplete())
}

func TestRecord_HPPercent(t *testing.T) {
	r := &character.Record{HP: 45, MaxHP: 90}
	assert.Equal(t, 50, r.HPPercent())

	r.MaxHP = 0
	assert.Equal(t, 0, r.HPPercent())
}

func TestRecord_CloneIsDeep(t *testing.T) {
	r := &character.Record{
		Skills:            map[game.Skill]int{game.SkillMining: 10},
		Equipment:         map[character.Slot]string{character.SlotWeapon: "iron_sword"},
		UtilityQuantities: map[character.Slot]int{character.SlotUtility1: 3},
		Inventory:         []character.InventorySlot{{Code: "copper_ore", Quantity: 5}},
	}

	cp := r.Clone()
	cp.Skills[game.SkillMining] = 99
	cp.Equipment[character.SlotWeapon] = "other"
	cp.Inventory[0].Quantity = 99

	assert.Equal(t, 10, r.SkillLevel(game.SkillMining))
	assert.Equal(t, "iron_sword", r.Equipment[character.SlotWeapon])
	assert.Equal(t, 5, r.ItemCount("copper_ore"))
}
