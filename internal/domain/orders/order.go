package orders

import (
	"fmt"
	"sort"
)

// SourceType says how an order is fulfilled
type SourceType string

const (
	SourceGather SourceType = "gather"
	SourceFight  SourceType = "fight"
	SourceCraft  SourceType = "craft"
)

// ValidSourceType reports whether s is one of the three fulfillment kinds
func ValidSourceType(s SourceType) bool {
	return s == SourceGather || s == SourceFight || s == SourceCraft
}

// Status is the derived lifecycle state of an order
type Status string

const (
	StatusOpen      Status = "open"
	StatusClaimed   Status = "claimed"
	StatusFulfilled Status = "fulfilled"
)

// Claim is a time-leased pairing granting one character preferential
// fulfillment rights to an order.
type Claim struct {
	CharName    string `json:"charName"`
	ClaimedAtMs int64  `json:"claimedAtMs"`
	LeaseMs     int64  `json:"leaseMs"`
	ExpiresAtMs int64  `json:"expiresAtMs"`
}

// Expired reports whether the lease has run out at the given wall-clock ms
func (c *Claim) Expired(nowMs int64) bool {
	return c.ExpiresAtMs <= nowMs
}

// Order is a cooperative work item on the order board. Field names are the
// on-disk JSON representation and must not change.
type Order struct {
	ID            string           `json:"id"`
	MergeKey      string           `json:"mergeKey"`
	ItemCode      string           `json:"itemCode"`
	SourceType    SourceType       `json:"sourceType"`
	SourceCode    string           `json:"sourceCode"`
	GatherSkill   string           `json:"gatherSkill,omitempty"`
	CraftSkill    string           `json:"craftSkill,omitempty"`
	SourceLevel   int              `json:"sourceLevel"`
	RequestedQty  int              `json:"requestedQty"`
	RemainingQty  int              `json:"remainingQty"`
	Status        Status           `json:"status"`
	Requesters    []string         `json:"requesters"`
	Recipes       []string         `json:"recipes"`
	Contributions map[string]int   `json:"contributions"`
	Claim         *Claim           `json:"claim"`
	BlockedByChar map[string]int64 `json:"blockedByChar"`
	CreatedAtMs   int64            `json:"createdAtMs"`
	UpdatedAtMs   int64            `json:"updatedAtMs"`
	FulfilledAtMs *int64           `json:"fulfilledAtMs"`
}

// MergeKeyFor builds the natural merge identity of an order
func MergeKeyFor(sourceType SourceType, sourceCode, itemCode string) string {
	return fmt.Sprintf("%s:%s:%s", sourceType, sourceCode, itemCode)
}

// ContributionKey accounts a requester+recipe pair
func ContributionKey(requester, recipe string) string {
	return requester + "::" + recipe
}

// Clone returns a deep copy of the order
func (o *Order) Clone() *Order {
	cp := *o
	cp.Requesters = append([]string(nil), o.Requesters...)
	cp.Recipes = append([]string(nil), o.Recipes...)
	cp.Contributions = make(map[string]int, len(o.Contributions))
	for k, v := range o.Contributions {
		cp.Contributions[k] = v
	}
	cp.BlockedByChar = make(map[string]int64, len(o.BlockedByChar))
	for k, v := range o.BlockedByChar {
		cp.BlockedByChar[k] = v
	}
	if o.Claim != nil {
		claim := *o.Claim
		cp.Claim = &claim
	}
	if o.FulfilledAtMs != nil {
		ts := *o.FulfilledAtMs
		cp.FulfilledAtMs = &ts
	}
	return &cp
}

// Fulfilled reports whether the order reached zero remaining. Fulfillment is
// sticky: once set it never reopens.
func (o *Order) Fulfilled() bool {
	return o.Status == StatusFulfilled
}

// ClaimActive reports whether the order carries an unexpired claim
func (o *Order) ClaimActive(nowMs int64) bool {
	return o.Claim != nil && !o.Claim.Expired(nowMs)
}

// ClaimedBy reports whether the order is actively claimed by the character
func (o *Order) ClaimedBy(charName string, nowMs int64) bool {
	return o.ClaimActive(nowMs) && o.Claim.CharName == charName
}

// IsBlockedFor reports whether the character is on the order's block list
func (o *Order) IsBlockedFor(charName string, nowMs int64) bool {
	exp, ok := o.BlockedByChar[charName]
	return ok && exp > nowMs
}

// EvictExpiredBlocks drops block-list entries whose expiry has passed.
// Called on every inspection of the order.
func (o *Order) EvictExpiredBlocks(nowMs int64) {
	for name, exp := range o.BlockedByChar {
		if exp <= nowMs {
			delete(o.BlockedByChar, name)
		}
	}
}

// RecomputeStatus derives the status from remaining quantity and the claim.
// A fulfilled order never reopens.
func (o *Order) RecomputeStatus(nowMs int64) {
	if o.Status == StatusFulfilled {
		return
	}
	if o.RemainingQty <= 0 {
		o.Status = StatusFulfilled
		if o.FulfilledAtMs == nil {
			ts := nowMs
			o.FulfilledAtMs = &ts
		}
		o.Claim = nil
		return
	}
	if o.ClaimActive(nowMs) {
		o.Status = StatusClaimed
	} else {
		o.Status = StatusOpen
	}
}

// ApplyContribution merges a request from (requester, recipe) into the
// order's accounting. Quantities never shrink: a repeat request with the same
// or a lower quantity is a no-op; a larger one adds only the delta.
func (o *Order) ApplyContribution(requester, recipe string, quantity int, nowMs int64) {
	key := ContributionKey(requester, recipe)
	prev := o.Contributions[key]
	delta := 0
	if prev == 0 {
		delta = quantity
	} else if quantity > prev {
		delta = quantity - prev
	}
	if delta == 0 {
		return
	}
	o.Contributions[key] = prev + delta
	o.RequestedQty += delta
	o.RemainingQty += delta
	if !containsString(o.Requesters, requester) {
		o.Requesters = append(o.Requesters, requester)
	}
	if recipe != "" && !containsString(o.Recipes, recipe) {
		o.Recipes = append(o.Recipes, recipe)
	}
	o.UpdatedAtMs = nowMs
	o.RecomputeStatus(nowMs)
}

// ApplyDeposit decrements the outstanding quantity by up to available and
// returns the amount actually applied.
func (o *Order) ApplyDeposit(available int, nowMs int64) int {
	if o.Fulfilled() || available <= 0 || o.RemainingQty <= 0 {
		return 0
	}
	applied := available
	if applied > o.RemainingQty {
		applied = o.RemainingQty
	}
	o.RemainingQty -= applied
	o.UpdatedAtMs = nowMs
	o.RecomputeStatus(nowMs)
	return applied
}

// SortOrders orders a slice by creation time then id, the canonical snapshot
// ordering.
func SortOrders(list []*Order) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAtMs != list[j].CreatedAtMs {
			return list[i].CreatedAtMs < list[j].CreatedAtMs
		}
		return list[i].ID < list[j].ID
	})
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
