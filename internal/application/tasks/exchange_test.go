package tasks_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/artifacts-go/internal/application/bank"
	"github.com/andrescamacho/artifacts-go/internal/application/common"
	"github.com/andrescamacho/artifacts-go/internal/application/tasks"
	"github.com/andrescamacho/artifacts-go/internal/domain/character"
	"github.com/andrescamacho/artifacts-go/internal/domain/game"
	"github.com/andrescamacho/artifacts-go/internal/domain/shared"
	"github.com/andrescamacho/artifacts-go/test/helpers"
)

func exchangeCatalog() *game.Catalog {
	return game.NewCatalog(nil, nil, nil, nil, []game.Location{
		{X: 4, Y: 1, ContentType: "bank"},
		{X: 1, Y: 2, ContentType: "tasks_master", ContentCode: "monsters"},
	})
}

type exchangeFixture struct {
	exchanger *tasks.Exchanger
	ops       *bank.Ops
	cc        *common.CharContext
	fake      *helpers.FakeAPI
	clock     *shared.MockClock
}

func newExchangeFixture(t *testing.T) *exchangeFixture {
	t.Helper()
	fake := helpers.NewFakeAPI(&character.Record{
		Name:              "alice",
		InventoryMaxItems: 100,
		Inventory: []character.InventorySlot{
			{}, {}, {}, {}, {}, {},
		},
	})
	clock := shared.NewMockClock(time.Unix(1_700_000_000, 0))
	cc := common.NewCharContext("alice", fake, clock)
	require.NoError(t, cc.Refresh(context.Background()))
	ops := bank.NewOps(bank.NewInventory(), exchangeCatalog())
	return &exchangeFixture{
		exchanger: tasks.NewExchanger(exchangeCatalog(), ops, clock),
		ops:       ops,
		cc:        cc,
		fake:      fake,
		clock:     clock,
	}
}

func TestEnsureTargets_AlreadyMet(t *testing.T) {
	fx := newExchangeFixture(t)
	fx.fake.BankItems["jasper_crystal"] = 2
	require.NoError(t, fx.ops.Refresh(context.Background(), fx.cc))

	met, err := fx.exchanger.EnsureTargets(context.Background(), fx.cc, map[string]int{"jasper_crystal": 1})

	require.NoError(t, err)
	assert.True(t, met)
	assert.Equal(t, 0, fx.fake.CallCount("TaskExchange"))
}

func TestEnsureTargets_ExchangesUntilCovered(t *testing.T) {
	fx := newExchangeFixture(t)
	fx.fake.GiveItem(game.TaskCoinCode, 12)
	require.NoError(t, fx.cc.Refresh(context.Background()))
	fx.fake.ExchangeRewards = [][]character.InventorySlot{
		{{Code: "feather", Quantity: 3}}, // miss
		{{Code: "jasper_crystal", Quantity: 1}},
	}

	met, err := fx.exchanger.EnsureTargets(context.Background(), fx.cc, map[string]int{"jasper_crystal": 1})

	require.NoError(t, err)
	assert.True(t, met)
	assert.Equal(t, 2, fx.fake.CallCount("TaskExchange"))
	// The matching reward was banked so the coverage check sees it.
	assert.Equal(t, 1, fx.fake.BankItems["jasper_crystal"])
	assert.Equal(t, 0, fx.cc.Record().ItemCount(game.TaskCoinCode))
	// Lock released on return.
	assert.Equal(t, "", fx.exchanger.LockHolder())
}

func TestEnsureTargets_NoCoinsBlocks(t *testing.T) {
	fx := newExchangeFixture(t)

	met, err := fx.exchanger.EnsureTargets(context.Background(), fx.cc, map[string]int{"jasper_crystal": 1})

	require.NoError(t, err)
	assert.False(t, met)
	assert.Equal(t, 0, fx.fake.CallCount("TaskExchange"))
	assert.Equal(t, "", fx.exchanger.LockHolder())
}

func TestEnsureTargets_TopsUpCoinsFromBank(t *testing.T) {
	fx := newExchangeFixture(t)
	fx.fake.GiveItem(game.TaskCoinCode, 2)
	fx.fake.BankItems[game.TaskCoinCode] = 10
	require.NoError(t, fx.cc.Refresh(context.Background()))
	require.NoError(t, fx.ops.Refresh(context.Background(), fx.cc))
	fx.fake.ExchangeRewards = [][]character.InventorySlot{
		{{Code: "jasper_crystal", Quantity: 1}},
	}

	met, err := fx.exchanger.EnsureTargets(context.Background(), fx.cc, map[string]int{"jasper_crystal": 1})

	require.NoError(t, err)
	assert.True(t, met)
	// Withdrew the 4 missing coins before exchanging.
	assert.Equal(t, 1, fx.fake.CallCount("WithdrawBank"))
	assert.Equal(t, 6, fx.fake.BankItems[game.TaskCoinCode])
}

func TestExchangeOnce(t *testing.T) {
	fx := newExchangeFixture(t)

	// No coins: nothing happens.
	done, err := fx.exchanger.ExchangeOnce(context.Background(), fx.cc)
	require.NoError(t, err)
	assert.False(t, done)

	fx.fake.GiveItem(game.TaskCoinCode, 6)
	require.NoError(t, fx.cc.Refresh(context.Background()))

	done, err = fx.exchanger.ExchangeOnce(context.Background(), fx.cc)
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, 1, fx.fake.CallCount("TaskExchange"))
	assert.Equal(t, "", fx.exchanger.LockHolder())
}

func TestTryProactive_BacksOffAfterFailure(t *testing.T) {
	fx := newExchangeFixture(t)
	targets := map[string]int{"jasper_crystal": 1}

	// No coins anywhere: the attempt does not resolve and arms the backoff.
	met, err := fx.exchanger.TryProactive(context.Background(), fx.cc, targets)
	require.NoError(t, err)
	assert.False(t, met)

	// Coins appear, but the backoff suppresses the retry.
	fx.fake.GiveItem(game.TaskCoinCode, 6)
	require.NoError(t, fx.cc.Refresh(context.Background()))
	fx.fake.ExchangeRewards = [][]character.InventorySlot{
		{{Code: "jasper_crystal", Quantity: 1}},
	}

	met, err = fx.exchanger.TryProactive(context.Background(), fx.cc, targets)
	require.NoError(t, err)
	assert.False(t, met)
	assert.Equal(t, 0, fx.fake.CallCount("TaskExchange"))

	// Past the backoff the exchange goes through.
	fx.clock.Advance(61 * time.Second)
	met, err = fx.exchanger.TryProactive(context.Background(), fx.cc, targets)
	require.NoError(t, err)
	assert.True(t, met)
	assert.Equal(t, 1, fx.fake.CallCount("TaskExchange"))
}
