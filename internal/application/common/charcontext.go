package common

import (
	"context"
	"fmt"
	"sync"

	"github.com/andrescamacho/artifacts-go/internal/domain/character"
	"github.com/andrescamacho/artifacts-go/internal/domain/shared"
)

// CharContext is the per-character handle routines act through. Routine
// execution is sequential within a character, so the live record is accessed
// directly; cross-character readers (gear planner, reports) use Snapshot.
type CharContext struct {
	mu     sync.Mutex
	name   string
	api    APIClient
	clock  shared.Clock
	record *character.Record
	losses map[string]int
}

// NewCharContext creates a character handle. The record may be nil until the
// first Refresh.
func NewCharContext(name string, api APIClient, clock shared.Clock) *CharContext {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &CharContext{
		name:   name,
		api:    api,
		clock:  clock,
		record: &character.Record{Name: name},
		losses: make(map[string]int),
	}
}

// Name returns the character name
func (c *CharContext) Name() string { return c.name }

// API returns the game client
func (c *CharContext) API() APIClient { return c.api }

// Record returns the live character record. Callers on the character's own
// scheduler goroutine may read it directly between actions.
func (c *CharContext) Record() *character.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.record
}

// Snapshot returns a deep copy of the record for cross-character readers
func (c *CharContext) Snapshot() *character.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.record.Clone()
}

// Refresh re-fetches the character from the server
func (c *CharContext) Refresh(ctx context.Context) error {
	rec, err := c.api.GetCharacter(ctx, c.name)
	if err != nil {
		return fmt.Errorf("failed to refresh %s: %w", c.name, err)
	}
	c.mu.Lock()
	c.record = rec
	c.mu.Unlock()
	return nil
}

// Apply folds an action result into local state and waits out the action's
// cooldown. This is the suspension point between scheduler decisions.
func (c *CharContext) Apply(ctx context.Context, res *ActionResult) error {
	if res == nil {
		return nil
	}
	c.mu.Lock()
	if res.Character != nil {
		c.record = res.Character
	}
	c.mu.Unlock()
	return c.WaitCooldown(ctx, res)
}

// WaitCooldown sleeps until the action's cooldown expires, aborting early on
// context cancellation.
func (c *CharContext) WaitCooldown(ctx context.Context, res *ActionResult) error {
	if res == nil {
		return nil
	}
	wait := res.Cooldown
	if wait <= 0 && !res.CooldownExpiration.IsZero() {
		wait = res.CooldownExpiration.Sub(c.clock.Now())
	}
	if wait <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	c.clock.Sleep(wait)
	return ctx.Err()
}

// MoveTo moves the character to the tile unless it already stands there
func (c *CharContext) MoveTo(ctx context.Context, x, y int) error {
	if c.Record().IsAt(x, y) {
		return nil
	}
	res, err := c.api.Move(ctx, c.name, x, y)
	if err != nil {
		return err
	}
	return c.Apply(ctx, res)
}

// RecordLoss increments the consecutive-loss counter for a monster
func (c *CharContext) RecordLoss(monsterCode string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.losses[monsterCode]++
}

// ConsecutiveLosses returns the current loss streak against a monster
func (c *CharContext) ConsecutiveLosses(monsterCode string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.losses[monsterCode]
}

// ClearLosses resets the loss streak against a monster
func (c *CharContext) ClearLosses(monsterCode string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.losses, monsterCode)
}
