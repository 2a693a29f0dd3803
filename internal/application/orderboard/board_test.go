package orderboard_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/artifacts-go/internal/application/orderboard"
	"github.com/andrescamacho/artifacts-go/internal/domain/game"
	"github.com/andrescamacho/artifacts-go/internal/domain/orders"
	"github.com/andrescamacho/artifacts-go/internal/domain/shared"
)

func newTestBoard(t *testing.T) (*orderboard.Board, *shared.MockClock) {
	t.Helper()
	clock := shared.NewMockClock(time.Unix(1_700_000_000, 0))
	board := orderboard.New(filepath.Join(t.TempDir(), "orders.json"), clock)
	require.NoError(t, board.Initialize())
	t.Cleanup(board.Close)
	return board, clock
}

func gatherRequest(requester string, qty int) orderboard.CreateRequest {
	return orderboard.CreateRequest{
		SourceType:    orders.SourceGather,
		SourceCode:    "copper_rocks",
		ItemCode:      "copper_ore",
		GatherSkill:   "mining",
		SourceLevel:   1,
		RequesterName: requester,
		RecipeCode:    "copper",
		Quantity:      qty,
	}
}

func TestCreateOrMerge_Validation(t *testing.T) {
	board, _ := newTestBoard(t)

	_, err := board.CreateOrMerge(orderboard.CreateRequest{
		SourceType: "steal", SourceCode: "x", ItemCode: "y", RequesterName: "alice", Quantity: 1,
	})
	assert.Error(t, err)

	req := gatherRequest("alice", 0)
	_, err = board.CreateOrMerge(req)
	assert.Error(t, err)
}

func TestCreateOrMerge_RepeatRequestIsIdempotent(t *testing.T) {
	board, _ := newTestBoard(t)

	first, err := board.CreateOrMerge(gatherRequest("alice", 10))
	require.NoError(t, err)

	again, err := board.CreateOrMerge(gatherRequest("alice", 10))
	require.NoError(t, err)

	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, 10, again.RequestedQty)
	assert.Equal(t, 10, again.RemainingQty)
}

func TestCreateOrMerge_LargerRequestAddsDeltaOnly(t *testing.T) {
	board, _ := newTestBoard(t)

	_, err := board.CreateOrMerge(gatherRequest("alice", 10))
	require.NoError(t, err)

	// Bumping from 10 to 15 adds 5, not 15.
	o, err := board.CreateOrMerge(gatherRequest("alice", 15))
	require.NoError(t, err)
	assert.Equal(t, 15, o.RequestedQty)

	// A smaller repeat never shrinks.
	o, err = board.CreateOrMerge(gatherRequest("alice", 5))
	require.NoError(t, err)
	assert.Equal(t, 15, o.RequestedQty)
}

func TestCreateOrMerge_SecondRequesterMergesIntoSameOrder(t *testing.T) {
	board, _ := newTestBoard(t)

	first, err := board.CreateOrMerge(gatherRequest("alice", 10))
	require.NoError(t, err)

	second, err := board.CreateOrMerge(gatherRequest("bob", 4))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 14, second.RequestedQty)
	assert.ElementsMatch(t, []string{"alice", "bob"}, second.Requesters)
}

func TestClaim_Lifecycle(t *testing.T) {
	board, clock := newTestBoard(t)
	o, err := board.CreateOrMerge(gatherRequest("alice", 10))
	require.NoError(t, err)

	claimed := board.Claim(o.ID, orderboard.ClaimRequest{CharName: "bob"})
	require.NotNil(t, claimed)
	assert.Equal(t, orders.StatusClaimed, claimed.Status)
	assert.Equal(t, "bob", claimed.Claim.CharName)

	// A second character cannot steal an active claim.
	assert.Nil(t, board.Claim(o.ID, orderboard.ClaimRequest{CharName: "carol"}))

	// The holder can re-claim; the original claimedAt is preserved.
	clock.Advance(10 * time.Second)
	renewed := board.Claim(o.ID, orderboard.ClaimRequest{CharName: "bob"})
	require.NotNil(t, renewed)
	assert.Equal(t, claimed.Claim.ClaimedAtMs, renewed.Claim.ClaimedAtMs)
	assert.Greater(t, renewed.Claim.ExpiresAtMs, claimed.Claim.ExpiresAtMs)
}

func TestClaim_ExpiredLeaseIsStealable(t *testing.T) {
	board, clock := newTestBoard(t)
	o, err := board.CreateOrMerge(gatherRequest("alice", 10))
	require.NoError(t, err)

	require.NotNil(t, board.Claim(o.ID, orderboard.ClaimRequest{CharName: "bob", LeaseMs: 5_000}))
	clock.Advance(6 * time.Second)

	stolen := board.Claim(o.ID, orderboard.ClaimRequest{CharName: "carol"})
	require.NotNil(t, stolen)
	assert.Equal(t, "carol", stolen.Claim.CharName)
}

func TestRenewClaim_OnlyForActiveHolder(t *testing.T) {
	board, clock := newTestBoard(t)
	o, err := board.CreateOrMerge(gatherRequest("alice", 10))
	require.NoError(t, err)

	require.NotNil(t, board.Claim(o.ID, orderboard.ClaimRequest{CharName: "bob", LeaseMs: 5_000}))

	assert.Nil(t, board.RenewClaim(o.ID, orderboard.ClaimRequest{CharName: "carol"}))

	clock.Advance(6 * time.Second)
	// Expired claims cannot be renewed, only re-claimed.
	assert.Nil(t, board.RenewClaim(o.ID, orderboard.ClaimRequest{CharName: "bob"}))
}

func TestReleaseClaim(t *testing.T) {
	board, _ := newTestBoard(t)
	o, err := board.CreateOrMerge(gatherRequest("alice", 10))
	require.NoError(t, err)

	require.NotNil(t, board.Claim(o.ID, orderboard.ClaimRequest{CharName: "bob"}))

	// Wrong owner: no-op.
	board.ReleaseClaim(o.ID, "carol", "test")
	assert.Equal(t, orders.StatusClaimed, board.Get(o.ID).Status)

	board.ReleaseClaim(o.ID, "bob", "test")
	assert.Equal(t, orders.StatusOpen, board.Get(o.ID).Status)
}

func TestMarkCharBlocked_HidesOrderAndClearsClaim(t *testing.T) {
	board, clock := newTestBoard(t)
	o, err := board.CreateOrMerge(gatherRequest("alice", 10))
	require.NoError(t, err)
	require.NotNil(t, board.Claim(o.ID, orderboard.ClaimRequest{CharName: "bob"}))

	board.MarkCharBlocked(o.ID, "bob", 60_000)

	got := board.Get(o.ID)
	assert.Nil(t, got.Claim)
	assert.Empty(t, board.ListClaimable(orderboard.ListFilter{CharName: "bob"}))
	assert.Len(t, board.ListClaimable(orderboard.ListFilter{CharName: "carol"}), 1)
	assert.Nil(t, board.Claim(o.ID, orderboard.ClaimRequest{CharName: "bob"}))

	// Block expires.
	clock.Advance(61 * time.Second)
	assert.Len(t, board.ListClaimable(orderboard.ListFilter{CharName: "bob"}), 1)
}

func TestRecordDeposits_ClaimedFirstThenOpportunistic(t *testing.T) {
	board, _ := newTestBoard(t)

	claimedOrder, err := board.CreateOrMerge(gatherRequest("alice", 5))
	require.NoError(t, err)

	other := gatherRequest("alice", 5)
	other.SourceType = orders.SourceFight
	other.SourceCode = "chicken"
	other.ItemCode = "copper_ore" // same item from another source
	openOrder, err := board.CreateOrMerge(other)
	require.NoError(t, err)

	require.NotNil(t, board.Claim(claimedOrder.ID, orderboard.ClaimRequest{CharName: "bob"}))

	deltas := board.RecordDeposits("bob", map[string]int{"copper_ore": 7})

	require.Len(t, deltas, 2)
	assert.Equal(t, claimedOrder.ID, deltas[0].OrderID)
	assert.Equal(t, 5, deltas[0].Quantity)
	assert.False(t, deltas[0].Opportunistic)
	assert.Equal(t, orders.StatusFulfilled, deltas[0].Status)

	assert.Equal(t, openOrder.ID, deltas[1].OrderID)
	assert.Equal(t, 2, deltas[1].Quantity)
	assert.True(t, deltas[1].Opportunistic)

	assert.Equal(t, 3, board.Get(openOrder.ID).RemainingQty)
}

func TestRecordDeposits_NeverAppliesMoreThanDeposited(t *testing.T) {
	board, _ := newTestBoard(t)
	o, err := board.CreateOrMerge(gatherRequest("alice", 10))
	require.NoError(t, err)

	deltas := board.RecordDeposits("bob", map[string]int{"copper_ore": 4})
	require.Len(t, deltas, 1)
	assert.Equal(t, 4, deltas[0].Quantity)
	assert.Equal(t, 6, board.Get(o.ID).RemainingQty)
}

func TestFulfilledOrderNeverReopens(t *testing.T) {
	board, _ := newTestBoard(t)
	o, err := board.CreateOrMerge(gatherRequest("alice", 3))
	require.NoError(t, err)

	board.RecordDeposits("bob", map[string]int{"copper_ore": 3})
	require.Equal(t, orders.StatusFulfilled, board.Get(o.ID).Status)

	// A new request for the same merge key starts a fresh order.
	fresh, err := board.CreateOrMerge(gatherRequest("alice", 2))
	require.NoError(t, err)
	assert.NotEqual(t, o.ID, fresh.ID)
	assert.Equal(t, 2, fresh.RequestedQty)
	assert.Equal(t, orders.StatusFulfilled, board.Get(o.ID).Status)
}

func TestPersistenceRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "orders.json")
	clock := shared.NewMockClock(time.Unix(1_700_000_000, 0))

	board := orderboard.New(path, clock)
	require.NoError(t, board.Initialize())
	o, err := board.CreateOrMerge(gatherRequest("alice", 10))
	require.NoError(t, err)
	require.NotNil(t, board.Claim(o.ID, orderboard.ClaimRequest{CharName: "bob", LeaseMs: 5_000}))
	board.Close()

	// Reload within the lease: the claim survives.
	reloaded := orderboard.New(path, clock)
	require.NoError(t, reloaded.Initialize())
	got := reloaded.Get(o.ID)
	require.NotNil(t, got)
	assert.Equal(t, orders.StatusClaimed, got.Status)
	assert.Equal(t, 10, got.RemainingQty)
	reloaded.Close()

	// Reload past the lease: the claim is dropped and the order reopens.
	clock.Advance(time.Minute)
	stale := orderboard.New(path, clock)
	require.NoError(t, stale.Initialize())
	got = stale.Get(o.ID)
	require.NotNil(t, got)
	assert.Equal(t, orders.StatusOpen, got.Status)
	assert.Nil(t, got.Claim)
	stale.Close()
}

func TestSortForClaim_BucketsToolsFirst(t *testing.T) {
	catalog := game.NewCatalog([]*game.Item{
		{Code: "iron_pickaxe", Type: "weapon", Subtype: "tool"},
		{Code: "copper_ore", Type: "resource"},
		{Code: "iron_sword", Type: "weapon"},
		{Code: "iron_helm", Type: "helmet"},
	}, nil, nil, nil, nil)

	list := []*orders.Order{
		{ID: "a", ItemCode: "iron_helm", CreatedAtMs: 1},
		{ID: "b", ItemCode: "iron_sword", CreatedAtMs: 2},
		{ID: "c", ItemCode: "copper_ore", CreatedAtMs: 3},
		{ID: "d", ItemCode: "iron_pickaxe", CreatedAtMs: 4},
	}

	orderboard.SortForClaim(catalog, list)

	got := []string{list[0].ItemCode, list[1].ItemCode, list[2].ItemCode, list[3].ItemCode}
	assert.Equal(t, []string{"iron_pickaxe", "copper_ore", "iron_sword", "iron_helm"}, got)
}
