package bank_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/artifacts-go/internal/application/bank"
	"github.com/andrescamacho/artifacts-go/internal/application/common"
	"github.com/andrescamacho/artifacts-go/internal/domain/character"
	"github.com/andrescamacho/artifacts-go/internal/domain/game"
	"github.com/andrescamacho/artifacts-go/internal/domain/shared"
	"github.com/andrescamacho/artifacts-go/test/helpers"
)

func opsCatalog() *game.Catalog {
	return game.NewCatalog(nil, nil, nil, nil, []game.Location{
		{X: 4, Y: 1, ContentType: "bank"},
	})
}

func newOpsFixture(t *testing.T) (*bank.Ops, *common.CharContext, *helpers.FakeAPI) {
	t.Helper()
	fake := helpers.NewFakeAPI(&character.Record{
		Name:              "alice",
		InventoryMaxItems: 100,
		Inventory: []character.InventorySlot{
			{}, {}, {}, {}, {},
		},
	})
	clock := shared.NewMockClock(time.Unix(1_700_000_000, 0))
	cc := common.NewCharContext("alice", fake, clock)
	require.NoError(t, cc.Refresh(context.Background()))
	return bank.NewOps(bank.NewInventory(), opsCatalog()), cc, fake
}

func TestWithdraw_RefreshesStaleCache(t *testing.T) {
	ops, cc, fake := newOpsFixture(t)
	fake.BankItems["copper_ore"] = 10

	// The cache starts empty, so the reserve fails and forces a refresh.
	err := ops.Withdraw(context.Background(), cc, map[string]int{"copper_ore": 5})

	require.NoError(t, err)
	assert.Equal(t, 5, cc.Record().ItemCount("copper_ore"))
	assert.Equal(t, 5, ops.Inventory().Count("copper_ore"))
	assert.Equal(t, 5, fake.BankItems["copper_ore"])
	// Moved to the bank tile first.
	assert.True(t, cc.Record().IsAt(4, 1))
}

func TestWithdraw_FallsBackToPerItemOnBatchFailure(t *testing.T) {
	ops, cc, fake := newOpsFixture(t)
	fake.BankItems["copper_ore"] = 10
	require.NoError(t, ops.Refresh(context.Background(), cc))

	fake.Errors["WithdrawBank"] = shared.NewGameAPIError(500, "internal error")

	err := ops.Withdraw(context.Background(), cc, map[string]int{"copper_ore": 5})

	require.NoError(t, err)
	assert.Equal(t, 5, cc.Record().ItemCount("copper_ore"))
	// Batch attempt plus the per-item retry.
	assert.Equal(t, 2, fake.CallCount("WithdrawBank"))
}

func TestWithdraw_RetriesBatchAfterWrongTileRejection(t *testing.T) {
	ops, cc, fake := newOpsFixture(t)
	fake.BankItems["copper_ore"] = 10
	fake.BankItems["ash_wood"] = 4
	require.NoError(t, ops.Refresh(context.Background(), cc))

	fake.Errors["WithdrawBank"] = shared.NewGameAPIError(598, "wrong map tile")

	err := ops.Withdraw(context.Background(), cc, map[string]int{"copper_ore": 5, "ash_wood": 2})

	require.NoError(t, err)
	// One rejected batch plus one successful retry, not per-item degradation.
	assert.Equal(t, 2, fake.CallCount("WithdrawBank"))
	assert.Equal(t, 5, cc.Record().ItemCount("copper_ore"))
	assert.Equal(t, 2, cc.Record().ItemCount("ash_wood"))
	assert.True(t, cc.Record().IsAt(4, 1))
}

func TestDeposit_RetriesAfterWrongTileRejection(t *testing.T) {
	ops, cc, fake := newOpsFixture(t)
	fake.GiveItem("copper_ore", 8)
	require.NoError(t, cc.Refresh(context.Background()))

	fake.Errors["DepositBank"] = shared.NewGameAPIError(598, "wrong map tile")

	err := ops.Deposit(context.Background(), cc, []character.InventorySlot{{Code: "copper_ore", Quantity: 8}})

	require.NoError(t, err)
	assert.Equal(t, 2, fake.CallCount("DepositBank"))
	assert.Equal(t, 8, fake.BankItems["copper_ore"])
	assert.Equal(t, 0, cc.Record().ItemCount("copper_ore"))
	// The record was re-synced and the character walked back to the bank.
	assert.True(t, cc.Record().IsAt(4, 1))
}

func TestWithdraw_ReleasesReservation(t *testing.T) {
	ops, cc, fake := newOpsFixture(t)
	fake.BankItems["copper_ore"] = 10
	require.NoError(t, ops.Refresh(context.Background(), cc))

	require.NoError(t, ops.Withdraw(context.Background(), cc, map[string]int{"copper_ore": 4}))

	// Nothing remains pinned after the withdraw completes.
	assert.Equal(t, 6, ops.Inventory().AvailableCount("copper_ore"))
}

func TestDeposit_SyncsCache(t *testing.T) {
	ops, cc, fake := newOpsFixture(t)
	fake.GiveItem("copper_ore", 8)
	require.NoError(t, cc.Refresh(context.Background()))

	err := ops.Deposit(context.Background(), cc, []character.InventorySlot{{Code: "copper_ore", Quantity: 8}})

	require.NoError(t, err)
	assert.Equal(t, 0, cc.Record().ItemCount("copper_ore"))
	assert.Equal(t, 8, ops.Inventory().Count("copper_ore"))
	assert.Equal(t, 8, fake.BankItems["copper_ore"])
}

func TestGoldTransfers(t *testing.T) {
	ops, cc, fake := newOpsFixture(t)
	fake.BankGold = 500
	require.NoError(t, ops.Refresh(context.Background(), cc))

	require.NoError(t, ops.WithdrawGold(context.Background(), cc, 200))
	assert.Equal(t, 200, cc.Record().Gold)
	assert.Equal(t, 300, ops.Inventory().Gold())

	require.NoError(t, ops.DepositGold(context.Background(), cc, 150))
	assert.Equal(t, 50, cc.Record().Gold)
	assert.Equal(t, 450, ops.Inventory().Gold())
}
