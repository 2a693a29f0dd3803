package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/andrescamacho/artifacts-go/internal/application/bank"
	"github.com/andrescamacho/artifacts-go/internal/application/common"
	"github.com/andrescamacho/artifacts-go/internal/domain/character"
	"github.com/andrescamacho/artifacts-go/internal/domain/game"
	"github.com/andrescamacho/artifacts-go/internal/domain/shared"
)

const (
	// ExchangeBatch is the coin denomination the task master accepts
	ExchangeBatch = 6

	// minFreeSlots keeps room for exchange rewards
	minFreeSlots = 2

	// proactiveBackoff throttles speculative exchanges per character after a
	// non-resolving attempt.
	proactiveBackoff = 60 * time.Second
)

// Exchanger trades task coins for random rewards until a target set of items
// is covered by bank plus inventory. One process-wide instance; the exchange
// lock keeps two characters from racing the same coin pool.
type Exchanger struct {
	mu            sync.Mutex
	holder        string
	catalog       *game.Catalog
	ops           *bank.Ops
	clock         shared.Clock
	nextProactive map[string]time.Time
}

// NewExchanger creates the process-wide exchanger
func NewExchanger(catalog *game.Catalog, ops *bank.Ops, clock shared.Clock) *Exchanger {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &Exchanger{
		catalog:       catalog,
		ops:           ops,
		clock:         clock,
		nextProactive: make(map[string]time.Time),
	}
}

// tryLock takes the exchange lock, re-entrant for the holder
func (e *Exchanger) tryLock(charName string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.holder != "" && e.holder != charName {
		return false
	}
	e.holder = charName
	return true
}

func (e *Exchanger) unlock(charName string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.holder == charName {
		e.holder = ""
	}
}

// LockHolder returns the character holding the exchange lock, "" when free
func (e *Exchanger) LockHolder() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.holder
}

// targetsMet reports whether bank plus inventory covers every target line
func (e *Exchanger) targetsMet(cc *common.CharContext, targets map[string]int) bool {
	rec := cc.Record()
	for code, qty := range targets {
		if e.ops.Inventory().Count(code)+rec.ItemCount(code) < qty {
			return false
		}
	}
	return true
}

// EnsureTargets exchanges coins until the targets are covered or the
// procedure blocks (no coins, no space, lock contention, or API failure).
// Returns true when every target is met.
func (e *Exchanger) EnsureTargets(ctx context.Context, cc *common.CharContext, targets map[string]int) (bool, error) {
	if len(targets) == 0 || e.targetsMet(cc, targets) {
		return true, nil
	}
	if !e.tryLock(cc.Name()) {
		return false, nil
	}
	defer e.unlock(cc.Name())

	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		if e.targetsMet(cc, targets) {
			return true, nil
		}
		if !e.ensureCoins(ctx, cc) {
			return false, nil
		}
		if cc.Record().InventoryFreeSlots() < minFreeSlots {
			return false, nil
		}
		loc, err := e.catalog.TaskMasterLocation(cc.Record().TaskType, cc.Record().X, cc.Record().Y)
		if err != nil {
			return false, err
		}
		if err := cc.MoveTo(ctx, loc.X, loc.Y); err != nil {
			return false, err
		}
		res, err := cc.API().TaskExchange(ctx, cc.Name())
		if err != nil {
			return false, nil
		}
		rewards := res.Rewards
		if err := cc.Apply(ctx, res); err != nil {
			return false, err
		}
		if err := e.depositMatching(ctx, cc, rewards, targets); err != nil {
			return false, err
		}
		if err := e.ops.Refresh(ctx, cc); err != nil {
			return false, err
		}
	}
}

// ExchangeOnce performs a single opportunistic exchange when a coin batch
// and inventory space are at hand, without target tracking. Returns true
// when an exchange happened.
func (e *Exchanger) ExchangeOnce(ctx context.Context, cc *common.CharContext) (bool, error) {
	if !e.tryLock(cc.Name()) {
		return false, nil
	}
	defer e.unlock(cc.Name())
	if !e.ensureCoins(ctx, cc) {
		return false, nil
	}
	if cc.Record().InventoryFreeSlots() < minFreeSlots {
		return false, nil
	}
	loc, err := e.catalog.TaskMasterLocation(cc.Record().TaskType, cc.Record().X, cc.Record().Y)
	if err != nil {
		return false, err
	}
	if err := cc.MoveTo(ctx, loc.X, loc.Y); err != nil {
		return false, err
	}
	res, err := cc.API().TaskExchange(ctx, cc.Name())
	if err != nil {
		return false, nil
	}
	return true, cc.Apply(ctx, res)
}

// TryProactive runs EnsureTargets behind a per-character backoff. The skill
// rotation calls this when a bank dependency is a task reward.
func (e *Exchanger) TryProactive(ctx context.Context, cc *common.CharContext, targets map[string]int) (bool, error) {
	e.mu.Lock()
	if e.clock.Now().Before(e.nextProactive[cc.Name()]) {
		e.mu.Unlock()
		return false, nil
	}
	e.mu.Unlock()

	met, err := e.EnsureTargets(ctx, cc, targets)
	if err != nil {
		return false, err
	}
	if !met {
		e.mu.Lock()
		e.nextProactive[cc.Name()] = e.clock.Now().Add(proactiveBackoff)
		e.mu.Unlock()
	}
	return met, nil
}

// ensureCoins gets at least one exchange batch of coins into the inventory,
// topping up from the bank when carrying too few.
func (e *Exchanger) ensureCoins(ctx context.Context, cc *common.CharContext) bool {
	carried := cc.Record().ItemCount(game.TaskCoinCode)
	if carried >= ExchangeBatch {
		return true
	}
	missing := ExchangeBatch - carried
	if e.ops.Inventory().AvailableCount(game.TaskCoinCode) < missing {
		return false
	}
	if err := e.ops.Withdraw(ctx, cc, map[string]int{game.TaskCoinCode: missing}); err != nil {
		return false
	}
	return cc.Record().ItemCount(game.TaskCoinCode) >= ExchangeBatch
}

// depositMatching banks any reward lines that count toward a target, so the
// coverage check sees them without waiting for a deposit trip.
func (e *Exchanger) depositMatching(ctx context.Context, cc *common.CharContext, rewards []character.InventorySlot, targets map[string]int) error {
	var lines []character.InventorySlot
	for _, reward := range rewards {
		if reward.Code == game.TaskCoinCode {
			continue
		}
		if _, wanted := targets[reward.Code]; !wanted {
			continue
		}
		if carried := cc.Record().ItemCount(reward.Code); carried > 0 {
			qty := reward.Quantity
			if qty > carried {
				qty = carried
			}
			lines = append(lines, character.InventorySlot{Code: reward.Code, Quantity: qty})
		}
	}
	if len(lines) == 0 {
		return nil
	}
	return e.ops.Deposit(ctx, cc, lines)
}
