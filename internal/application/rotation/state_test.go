package rotation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/andrescamacho/artifacts-go/internal/domain/character"
	"github.com/andrescamacho/artifacts-go/internal/domain/game"
)

func TestInventoryReserve(t *testing.T) {
	// 10% of capacity, clamped to [8, 20].
	assert.Equal(t, 8, inventoryReserve(20))
	assert.Equal(t, 8, inventoryReserve(80))
	assert.Equal(t, 9, inventoryReserve(90))
	assert.Equal(t, 10, inventoryReserve(95)) // ceil(9.5)
	assert.Equal(t, 15, inventoryReserve(150))
	assert.Equal(t, 20, inventoryReserve(200))
	assert.Equal(t, 20, inventoryReserve(500))
}

func TestGoalStateRemaining(t *testing.T) {
	var nilGoal *goalState
	assert.Equal(t, 0, nilGoal.remaining())
	assert.True(t, nilGoal.complete())

	g := &goalState{target: 20, progress: 5}
	assert.Equal(t, 15, g.remaining())
	assert.False(t, g.complete())

	g.progress = 25 // overshoot never goes negative
	assert.Equal(t, 0, g.remaining())
	assert.True(t, g.complete())
}

func TestBatchSize(t *testing.T) {
	e := &Engine{}
	goal := &goalState{
		target: 100,
		recipe: &game.Item{
			Code:  "cooked_gudgeon",
			Craft: &game.Craft{Items: []game.Ingredient{{Code: "gudgeon", Quantity: 3}}},
		},
	}
	rec := &character.Record{InventoryMaxItems: 20}

	// usable = 20 - 0 - reserve(8) = 12; 12 / 3 materials = 4 crafts.
	assert.Equal(t, 4, e.batchSize(rec, goal))

	// The goal remainder caps the batch.
	goal.progress = 98
	assert.Equal(t, 2, e.batchSize(rec, goal))

	// A full inventory yields no batch.
	goal.progress = 0
	rec.Inventory = []character.InventorySlot{{Code: "gudgeon", Quantity: 20}}
	assert.Equal(t, 0, e.batchSize(rec, goal))
}

func TestBlockedRecipes(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	blocked := make(blockedRecipes)

	assert.False(t, blocked.isBlocked("cooking", "cooked_gudgeon", now))

	blocked.block("cooking", "cooked_gudgeon", now.Add(time.Minute))
	assert.True(t, blocked.isBlocked("cooking", "cooked_gudgeon", now))
	assert.False(t, blocked.isBlocked("cooking", "cooked_shrimp", now))
	assert.False(t, blocked.isBlocked("mining", "cooked_gudgeon", now))

	// Lapsed entries are evicted on read.
	later := now.Add(2 * time.Minute)
	assert.False(t, blocked.isBlocked("cooking", "cooked_gudgeon", later))
	assert.Empty(t, blocked["cooking"])
}
