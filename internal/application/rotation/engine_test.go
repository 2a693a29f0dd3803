package rotation

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/artifacts-go/internal/application/common"
	"github.com/andrescamacho/artifacts-go/internal/application/orderboard"
	"github.com/andrescamacho/artifacts-go/internal/domain/orders"
	"github.com/andrescamacho/artifacts-go/internal/domain/shared"
)

func TestExecute_ReleasesClaimAfterMidClaimRotate(t *testing.T) {
	// A claim-holding step can fail structurally (workshop tile gone, order
	// dropped from the board, monster location unresolvable) and rotate the
	// goal away while the claim is still live. The next Execute must hand the
	// order back instead of crashing.
	clock := shared.NewMockClock(time.Unix(1_700_000_000, 0))
	board := orderboard.New(filepath.Join(t.TempDir(), "order-board.json"), clock)
	require.NoError(t, board.Initialize())
	t.Cleanup(board.Close)

	order, err := board.CreateOrMerge(orderboard.CreateRequest{
		SourceType:    orders.SourceFight,
		SourceCode:    "chicken",
		ItemCode:      "feather",
		SourceLevel:   1,
		RequesterName: "bob",
		Quantity:      10,
	})
	require.NoError(t, err)
	claimed := board.Claim(order.ID, orderboard.ClaimRequest{CharName: "alice", LeaseMs: 60_000})
	require.NotNil(t, claimed)

	e := &Engine{
		board:   board,
		blocked: make(blockedRecipes),
	}
	e.claim = &claimState{
		orderID:    claimed.ID,
		itemCode:   claimed.ItemCode,
		sourceType: claimed.SourceType,
		quantity:   claimed.RemainingQty,
	}
	e.rotate()
	require.Nil(t, e.goal)
	require.NotNil(t, e.claim)

	cc := common.NewCharContext("alice", nil, clock)
	more, err := e.Execute(context.Background(), cc)

	require.NoError(t, err)
	assert.False(t, more)
	assert.Nil(t, e.claim)

	// The order went back to open and another character can claim it.
	reopened := board.Get(order.ID)
	require.NotNil(t, reopened)
	assert.Nil(t, reopened.Claim)
	assert.Equal(t, orders.StatusOpen, reopened.Status)
	assert.NotNil(t, board.Claim(order.ID, orderboard.ClaimRequest{CharName: "bob", LeaseMs: 60_000}))
}
