package bank

import (
	"sync"

	"github.com/andrescamacho/artifacts-go/internal/domain/shared"
)

// Snapshot is a consistent read of the account bank keyed by revision
type Snapshot struct {
	Gold         int
	Items        map[string]int
	Reservations map[string]map[string]int
	Revision     int64
}

// Inventory caches the account-wide bank contents. Every update bumps a
// monotonic revision so consumers (gear planner, rotation) can cache derived
// state keyed by it. Reservations pin intended withdraws per character so
// concurrent planning does not double-promise the same items.
type Inventory struct {
	mu            sync.Mutex
	gold          int
	items         map[string]int
	reservations  map[string]map[string]int // char -> code -> qty
	revision      int64
	expansionCost int
}

// NewInventory creates an empty bank cache at revision 0
func NewInventory() *Inventory {
	return &Inventory{
		items:        make(map[string]int),
		reservations: make(map[string]map[string]int),
	}
}

// Update replaces the cached bank contents and bumps the revision
func (inv *Inventory) Update(gold int, items map[string]int) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	inv.gold = gold
	inv.items = make(map[string]int, len(items))
	for code, qty := range items {
		inv.items[code] = qty
	}
	inv.revision++
}

// ApplyDeposit folds a deposit into the cache without a full refresh
func (inv *Inventory) ApplyDeposit(items map[string]int, gold int) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	for code, qty := range items {
		inv.items[code] += qty
	}
	inv.gold += gold
	inv.revision++
}

// ApplyWithdraw folds a withdraw into the cache without a full refresh
func (inv *Inventory) ApplyWithdraw(items map[string]int, gold int) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	for code, qty := range items {
		inv.items[code] -= qty
		if inv.items[code] <= 0 {
			delete(inv.items, code)
		}
	}
	inv.gold -= gold
	if inv.gold < 0 {
		inv.gold = 0
	}
	inv.revision++
}

// SetNextExpansionCost caches the cost of the next bank expansion
func (inv *Inventory) SetNextExpansionCost(cost int) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	inv.expansionCost = cost
}

// NextExpansionCost returns the cached next expansion cost, 0 when unknown
func (inv *Inventory) NextExpansionCost() int {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.expansionCost
}

// Revision returns the current bank revision
func (inv *Inventory) Revision() int64 {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.revision
}

// Gold returns the cached bank gold
func (inv *Inventory) Gold() int {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.gold
}

// Count returns the cached quantity of an item, ignoring reservations
func (inv *Inventory) Count(code string) int {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.items[code]
}

// AvailableCount returns the cached quantity minus all outstanding
// reservations for the item.
func (inv *Inventory) AvailableCount(code string) int {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.availableLocked(code)
}

func (inv *Inventory) availableLocked(code string) int {
	avail := inv.items[code]
	for _, res := range inv.reservations {
		avail -= res[code]
	}
	if avail < 0 {
		avail = 0
	}
	return avail
}

// Has reports whether the bank holds at least qty of the item after
// reservations.
func (inv *Inventory) Has(code string, qty int) bool {
	return inv.AvailableCount(code) >= qty
}

// Snapshot returns a deep copy of the cached state
func (inv *Inventory) Snapshot() Snapshot {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	snap := Snapshot{
		Gold:         inv.gold,
		Items:        make(map[string]int, len(inv.items)),
		Reservations: make(map[string]map[string]int, len(inv.reservations)),
		Revision:     inv.revision,
	}
	for code, qty := range inv.items {
		snap.Items[code] = qty
	}
	for name, res := range inv.reservations {
		cp := make(map[string]int, len(res))
		for code, qty := range res {
			cp[code] = qty
		}
		snap.Reservations[name] = cp
	}
	return snap
}

// Reserve pins intended withdraws for a character against the last snapshot.
// Fails fast without reserving anything when any line cannot be covered.
func (inv *Inventory) Reserve(charName string, items map[string]int) error {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	// A character's new reservation replaces its previous one.
	prev := inv.reservations[charName]
	delete(inv.reservations, charName)
	for code, qty := range items {
		if inv.availableLocked(code) < qty {
			if prev != nil {
				inv.reservations[charName] = prev
			}
			return shared.NewDomainError("insufficient bank stock for " + code)
		}
	}
	res := make(map[string]int, len(items))
	for code, qty := range items {
		res[code] = qty
	}
	inv.reservations[charName] = res
	return nil
}

// Release drops the character's outstanding reservation
func (inv *Inventory) Release(charName string) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	delete(inv.reservations, charName)
}
