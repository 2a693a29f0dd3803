package bank_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/artifacts-go/internal/application/bank"
)

func TestInventory_UpdateBumpsRevision(t *testing.T) {
	inv := bank.NewInventory()
	assert.Equal(t, int64(0), inv.Revision())

	inv.Update(100, map[string]int{"copper_ore": 5})

	assert.Equal(t, int64(1), inv.Revision())
	assert.Equal(t, 100, inv.Gold())
	assert.Equal(t, 5, inv.Count("copper_ore"))
	assert.Equal(t, 0, inv.Count("iron_ore"))
}

func TestInventory_ApplyDepositAndWithdraw(t *testing.T) {
	inv := bank.NewInventory()
	inv.Update(50, map[string]int{"copper_ore": 5})

	inv.ApplyDeposit(map[string]int{"copper_ore": 3, "ash_wood": 2}, 10)
	assert.Equal(t, 8, inv.Count("copper_ore"))
	assert.Equal(t, 2, inv.Count("ash_wood"))
	assert.Equal(t, 60, inv.Gold())

	inv.ApplyWithdraw(map[string]int{"ash_wood": 2}, 100)
	assert.Equal(t, 0, inv.Count("ash_wood"))
	// Gold never goes negative even on a stale cache.
	assert.Equal(t, 0, inv.Gold())
	assert.Equal(t, int64(3), inv.Revision())
}

func TestInventory_ReservationsShrinkAvailability(t *testing.T) {
	inv := bank.NewInventory()
	inv.Update(0, map[string]int{"copper_ore": 10})

	require.NoError(t, inv.Reserve("alice", map[string]int{"copper_ore": 6}))

	assert.Equal(t, 10, inv.Count("copper_ore"))
	assert.Equal(t, 4, inv.AvailableCount("copper_ore"))
	assert.True(t, inv.Has("copper_ore", 4))
	assert.False(t, inv.Has("copper_ore", 5))

	// A second character cannot over-promise the remainder.
	err := inv.Reserve("bob", map[string]int{"copper_ore": 5})
	assert.Error(t, err)

	require.NoError(t, inv.Reserve("bob", map[string]int{"copper_ore": 4}))
	assert.Equal(t, 0, inv.AvailableCount("copper_ore"))

	inv.Release("alice")
	assert.Equal(t, 6, inv.AvailableCount("copper_ore"))
}

func TestInventory_ReserveReplacesOwnReservation(t *testing.T) {
	inv := bank.NewInventory()
	inv.Update(0, map[string]int{"copper_ore": 10})

	require.NoError(t, inv.Reserve("alice", map[string]int{"copper_ore": 8}))
	// Re-reserving does not stack with the character's own prior hold.
	require.NoError(t, inv.Reserve("alice", map[string]int{"copper_ore": 10}))
	assert.Equal(t, 0, inv.AvailableCount("copper_ore"))
}

func TestInventory_FailedReserveKeepsPriorReservation(t *testing.T) {
	inv := bank.NewInventory()
	inv.Update(0, map[string]int{"copper_ore": 10})

	require.NoError(t, inv.Reserve("alice", map[string]int{"copper_ore": 6}))
	err := inv.Reserve("alice", map[string]int{"copper_ore": 6, "ash_wood": 1})
	require.Error(t, err)

	// The old hold survives the failed replacement.
	assert.Equal(t, 4, inv.AvailableCount("copper_ore"))
}

func TestInventory_SnapshotIsDeepCopy(t *testing.T) {
	inv := bank.NewInventory()
	inv.Update(25, map[string]int{"copper_ore": 5})
	require.NoError(t, inv.Reserve("alice", map[string]int{"copper_ore": 2}))

	snap := inv.Snapshot()
	snap.Items["copper_ore"] = 999
	snap.Reservations["alice"]["copper_ore"] = 999

	assert.Equal(t, 5, inv.Count("copper_ore"))
	assert.Equal(t, 3, inv.AvailableCount("copper_ore"))
}
