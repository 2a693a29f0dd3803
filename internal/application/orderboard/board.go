package orderboard

import (
	"errors"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/andrescamacho/artifacts-go/internal/adapters/persistence"
	"github.com/andrescamacho/artifacts-go/internal/domain/orders"
	"github.com/andrescamacho/artifacts-go/internal/domain/shared"
)

const (
	// DefaultLeaseMs is the claim lease TTL when the claimer gives none
	DefaultLeaseMs = 120_000
	// DefaultBlockedRetryMs is the per-character block duration
	DefaultBlockedRetryMs = 600_000
	// MinLeaseMs / MinBlockedMs floor the configurable durations
	MinLeaseMs   = 1_000
	MinBlockedMs = 1_000

	persistVersion = 1
	debounceDelay  = 250 * time.Millisecond
)

// CreateRequest is the input of CreateOrMerge
type CreateRequest struct {
	SourceType    orders.SourceType
	SourceCode    string
	ItemCode      string
	GatherSkill   string
	CraftSkill    string
	SourceLevel   int
	RequesterName string
	RecipeCode    string
	Quantity      int
}

// ClaimRequest identifies the claiming character and its lease
type ClaimRequest struct {
	CharName string
	LeaseMs  int64
}

// ListFilter narrows ListClaimable. CharName is mandatory: blocked orders
// are filtered per character.
type ListFilter struct {
	SourceType  orders.SourceType
	GatherSkill string
	CraftSkill  string
	CharName    string
}

// DepositDelta is one row of RecordDeposits output
type DepositDelta struct {
	OrderID       string
	ItemCode      string
	Quantity      int
	Opportunistic bool
	Status        orders.Status
}

// Event notifies subscribers of any board mutation
type Event struct {
	Type    string
	OrderID string
}

// Snapshot is a consistent deep copy of the whole board
type Snapshot struct {
	UpdatedAtMs int64           `json:"updatedAtMs"`
	Orders      []*orders.Order `json:"orders"`
}

type persistedBoard struct {
	Version     int             `json:"version"`
	UpdatedAtMs int64           `json:"updatedAtMs"`
	Orders      []*orders.Order `json:"orders"`
}

// Board is the process-wide registry of cooperative work items. All
// mutations serialize through its lock; persistence is debounced to a JSON
// file written atomically.
type Board struct {
	mu        sync.Mutex
	clock     shared.Clock
	path      string
	list      []*orders.Order // creation order
	byID      map[string]*orders.Order
	listeners []func(Event)
	debouncer *persistence.Debouncer
	init      bool
}

// New creates an order board persisting to path. Call Initialize to load
// prior state before use.
func New(path string, clock shared.Clock) *Board {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	b := &Board{
		clock: clock,
		path:  path,
		byID:  make(map[string]*orders.Order),
	}
	b.debouncer = persistence.NewDebouncer(debounceDelay, b.persist)
	return b
}

// Initialize loads the persisted board if present. Claims whose lease has
// already run out are cleared and their orders reopened; past block-list
// entries are pruned.
func (b *Board) Initialize() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.init {
		return nil
	}
	b.init = true

	var stored persistedBoard
	if err := persistence.ReadJSON(b.path, &stored); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	now := shared.NowMs(b.clock)
	for _, o := range stored.Orders {
		if o == nil || o.ID == "" {
			continue
		}
		if o.Contributions == nil {
			o.Contributions = make(map[string]int)
		}
		if o.BlockedByChar == nil {
			o.BlockedByChar = make(map[string]int64)
		}
		o.EvictExpiredBlocks(now)
		if o.Claim != nil && o.Claim.Expired(now) {
			o.Claim = nil
		}
		o.RecomputeStatus(now)
		b.list = append(b.list, o)
		b.byID[o.ID] = o
	}
	orders.SortOrders(b.list)
	return nil
}

// Subscribe registers a synchronous listener fanned out on any mutation
func (b *Board) Subscribe(listener func(Event)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, listener)
}

func (b *Board) notifyLocked(ev Event) {
	for _, l := range b.listeners {
		l(ev)
	}
}

func (b *Board) changedLocked(ev Event) {
	b.debouncer.Trigger()
	b.notifyLocked(ev)
}

// CreateOrMerge registers a work request. When a non-fulfilled order with the
// same merge key exists, the request merges into it: a repeat request from
// the same requester+recipe is idempotent, a larger one adds the delta only.
func (b *Board) CreateOrMerge(req CreateRequest) (*orders.Order, error) {
	if !orders.ValidSourceType(req.SourceType) {
		return nil, shared.NewValidationError("sourceType", "must be gather, fight or craft")
	}
	if req.SourceCode == "" {
		return nil, shared.NewValidationError("sourceCode", "is required")
	}
	if req.ItemCode == "" {
		return nil, shared.NewValidationError("itemCode", "is required")
	}
	if req.RequesterName == "" {
		return nil, shared.NewValidationError("requesterName", "is required")
	}
	if req.Quantity <= 0 {
		return nil, shared.NewValidationError("quantity", "must be positive")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	now := shared.NowMs(b.clock)
	key := orders.MergeKeyFor(req.SourceType, req.SourceCode, req.ItemCode)

	var target *orders.Order
	for _, o := range b.list {
		if o.MergeKey == key && !o.Fulfilled() {
			target = o
			break
		}
	}
	if target == nil {
		target = &orders.Order{
			ID:            uuid.NewString(),
			MergeKey:      key,
			ItemCode:      req.ItemCode,
			SourceType:    req.SourceType,
			SourceCode:    req.SourceCode,
			GatherSkill:   req.GatherSkill,
			CraftSkill:    req.CraftSkill,
			SourceLevel:   req.SourceLevel,
			Status:        orders.StatusOpen,
			Contributions: make(map[string]int),
			BlockedByChar: make(map[string]int64),
			CreatedAtMs:   now,
			UpdatedAtMs:   now,
		}
		b.list = append(b.list, target)
		b.byID[target.ID] = target
	}
	target.ApplyContribution(req.RequesterName, req.RecipeCode, req.Quantity, now)
	b.changedLocked(Event{Type: "order_upserted", OrderID: target.ID})
	return target.Clone(), nil
}

// ListClaimable returns deep copies of open orders matching the filter and
// not blocked for the filter's character.
func (b *Board) ListClaimable(filter ListFilter) []*orders.Order {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := shared.NowMs(b.clock)
	var out []*orders.Order
	for _, o := range b.list {
		o.EvictExpiredBlocks(now)
		o.RecomputeStatus(now)
		if o.Status != orders.StatusOpen {
			continue
		}
		if filter.SourceType != "" && o.SourceType != filter.SourceType {
			continue
		}
		if filter.GatherSkill != "" && o.GatherSkill != filter.GatherSkill {
			continue
		}
		if filter.CraftSkill != "" && o.CraftSkill != filter.CraftSkill {
			continue
		}
		if filter.CharName != "" && o.IsBlockedFor(filter.CharName, now) {
			continue
		}
		out = append(out, o.Clone())
	}
	return out
}

// Claim leases an order to a character. Succeeds only when the order exists,
// is not fulfilled, is not blocked for the character, and either carries no
// claim, an expired one, or one already owned by the same character (which
// keeps its original claimedAt). Returns nil when the claim is refused.
func (b *Board) Claim(id string, req ClaimRequest) *orders.Order {
	lease := req.LeaseMs
	if lease <= 0 {
		lease = DefaultLeaseMs
	}
	if lease < MinLeaseMs {
		lease = MinLeaseMs
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	o := b.byID[id]
	if o == nil || o.Fulfilled() {
		return nil
	}
	now := shared.NowMs(b.clock)
	o.EvictExpiredBlocks(now)
	if o.IsBlockedFor(req.CharName, now) {
		return nil
	}
	if o.ClaimActive(now) && o.Claim.CharName != req.CharName {
		return nil
	}
	claimedAt := now
	if o.ClaimActive(now) && o.Claim.CharName == req.CharName {
		claimedAt = o.Claim.ClaimedAtMs
	}
	o.Claim = &orders.Claim{
		CharName:    req.CharName,
		ClaimedAtMs: claimedAt,
		LeaseMs:     lease,
		ExpiresAtMs: now + lease,
	}
	o.UpdatedAtMs = now
	o.RecomputeStatus(now)
	b.changedLocked(Event{Type: "order_claimed", OrderID: o.ID})
	return o.Clone()
}

// RenewClaim extends an unexpired claim owned by the character
func (b *Board) RenewClaim(id string, req ClaimRequest) *orders.Order {
	lease := req.LeaseMs
	if lease <= 0 {
		lease = DefaultLeaseMs
	}
	if lease < MinLeaseMs {
		lease = MinLeaseMs
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	o := b.byID[id]
	if o == nil {
		return nil
	}
	now := shared.NowMs(b.clock)
	if !o.ClaimedBy(req.CharName, now) {
		return nil
	}
	o.Claim.LeaseMs = lease
	o.Claim.ExpiresAtMs = now + lease
	o.UpdatedAtMs = now
	b.changedLocked(Event{Type: "claim_renewed", OrderID: o.ID})
	return o.Clone()
}

// ReleaseClaim clears the claim when owned by charName; with an empty
// charName the claim is cleared unconditionally. A release of a claim not
// owned by the caller is a no-op.
func (b *Board) ReleaseClaim(id, charName, reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o := b.byID[id]
	if o == nil || o.Claim == nil {
		return
	}
	if charName != "" && o.Claim.CharName != charName {
		return
	}
	now := shared.NowMs(b.clock)
	o.Claim = nil
	o.UpdatedAtMs = now
	o.RecomputeStatus(now)
	b.changedLocked(Event{Type: "claim_released", OrderID: o.ID})
}

// ReleaseClaimsForChars releases every claim held by the named characters.
// Used on shutdown.
func (b *Board) ReleaseClaimsForChars(names []string, reason string) {
	held := make(map[string]bool, len(names))
	for _, n := range names {
		held[n] = true
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	now := shared.NowMs(b.clock)
	changed := false
	for _, o := range b.list {
		if o.Claim != nil && held[o.Claim.CharName] {
			o.Claim = nil
			o.UpdatedAtMs = now
			o.RecomputeStatus(now)
			changed = true
		}
	}
	if changed {
		b.changedLocked(Event{Type: "claims_released"})
	}
}

// MarkCharBlocked puts the character on the order's block list for the given
// duration. If the character holds the claim, it is cleared.
func (b *Board) MarkCharBlocked(id, charName string, blockedRetryMs int64) {
	if blockedRetryMs <= 0 {
		blockedRetryMs = DefaultBlockedRetryMs
	}
	if blockedRetryMs < MinBlockedMs {
		blockedRetryMs = MinBlockedMs
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	o := b.byID[id]
	if o == nil {
		return
	}
	now := shared.NowMs(b.clock)
	o.BlockedByChar[charName] = now + blockedRetryMs
	if o.Claim != nil && o.Claim.CharName == charName {
		o.Claim = nil
	}
	o.UpdatedAtMs = now
	o.RecomputeStatus(now)
	b.changedLocked(Event{Type: "char_blocked", OrderID: o.ID})
}

// RecordDeposits applies a character's bank deposit to matching orders. The
// claimer's own orders are served first (non-opportunistic); leftover
// quantities then serve open orders opportunistically, in creation order.
// Never applies more than was deposited.
func (b *Board) RecordDeposits(charName string, items map[string]int) []DepositDelta {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := shared.NowMs(b.clock)
	remaining := make(map[string]int, len(items))
	for code, qty := range items {
		if qty > 0 {
			remaining[code] = qty
		}
	}
	var deltas []DepositDelta
	apply := func(o *orders.Order, opportunistic bool) {
		avail := remaining[o.ItemCode]
		if avail <= 0 {
			return
		}
		applied := o.ApplyDeposit(avail, now)
		if applied <= 0 {
			return
		}
		remaining[o.ItemCode] -= applied
		deltas = append(deltas, DepositDelta{
			OrderID:       o.ID,
			ItemCode:      o.ItemCode,
			Quantity:      applied,
			Opportunistic: opportunistic,
			Status:        o.Status,
		})
	}
	// First pass: orders the depositor currently claims.
	for _, o := range b.list {
		if o.ClaimedBy(charName, now) {
			apply(o, false)
		}
	}
	// Second pass: open orders, opportunistically.
	for _, o := range b.list {
		o.RecomputeStatus(now)
		if o.Status == orders.StatusOpen {
			apply(o, true)
		}
	}
	if len(deltas) > 0 {
		b.changedLocked(Event{Type: "deposits_recorded"})
	}
	return deltas
}

// Get returns a deep copy of one order, or nil
func (b *Board) Get(id string) *orders.Order {
	b.mu.Lock()
	defer b.mu.Unlock()
	o := b.byID[id]
	if o == nil {
		return nil
	}
	return o.Clone()
}

// GetSnapshot returns deep copies of all orders sorted by creation time
// then id.
func (b *Board) GetSnapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshotLocked()
}

func (b *Board) snapshotLocked() Snapshot {
	out := make([]*orders.Order, 0, len(b.list))
	for _, o := range b.list {
		out = append(out, o.Clone())
	}
	orders.SortOrders(out)
	return Snapshot{UpdatedAtMs: shared.NowMs(b.clock), Orders: out}
}

// Clear wipes all orders
func (b *Board) Clear(reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.list = nil
	b.byID = make(map[string]*orders.Order)
	b.changedLocked(Event{Type: "board_cleared"})
}

// Flush writes the board synchronously, bypassing the debounce
func (b *Board) Flush() {
	b.debouncer.Flush()
}

// Close stops the debouncer after a final synchronous write
func (b *Board) Close() {
	b.debouncer.Flush()
	b.debouncer.Stop()
}

func (b *Board) persist() {
	b.mu.Lock()
	snap := b.snapshotLocked()
	path := b.path
	b.mu.Unlock()
	if path == "" {
		return
	}
	stored := persistedBoard{
		Version:     persistVersion,
		UpdatedAtMs: snap.UpdatedAtMs,
		Orders:      snap.Orders,
	}
	// Persistence failures must not crash routine goroutines; the next
	// mutation retries the write.
	_ = persistence.WriteJSONAtomic(path, &stored)
}
