package rotation

import (
	"context"

	"github.com/andrescamacho/artifacts-go/internal/application/common"
	"github.com/andrescamacho/artifacts-go/internal/application/orderboard"
	"github.com/andrescamacho/artifacts-go/internal/domain/character"
	"github.com/andrescamacho/artifacts-go/internal/domain/game"
	"github.com/andrescamacho/artifacts-go/internal/domain/orders"
)

// ensureOrderClaim acquires a claim on the best matching open order. Returns
// nil when fulfillment is disabled or nothing is claimable.
func (e *Engine) ensureOrderClaim(ctx context.Context, cc *common.CharContext, sourceType orders.SourceType, craftSkill game.Skill) *claimState {
	if e.claim != nil {
		return e.claim
	}
	if !e.boardOpts.Enabled || !e.boardOpts.FulfillOrders || e.board == nil {
		return nil
	}
	filter := orderboard.ListFilter{
		SourceType: sourceType,
		CharName:   cc.Name(),
	}
	if sourceType == orders.SourceCraft && craftSkill != "" {
		filter.CraftSkill = string(craftSkill)
	}
	if sourceType == orders.SourceGather {
		// Any gather skill this character has is eligible; filtered in the
		// precheck below.
		filter.GatherSkill = ""
	}
	candidates := e.board.ListClaimable(filter)
	orderboard.SortForClaim(e.catalog, candidates)
	for _, o := range candidates {
		var reason string
		switch sourceType {
		case orders.SourceGather:
			reason = e.precheckGatherOrder(cc, o)
		case orders.SourceCraft:
			reason = e.canClaimCraftOrderNow(ctx, cc, o, craftSkill)
		case orders.SourceFight:
			if !e.canBeat(cc, o.SourceCode) {
				reason = reasonCombatNotViable + ":" + o.SourceCode
			}
		}
		if reason != "" {
			e.board.MarkCharBlocked(o.ID, cc.Name(), e.boardOpts.BlockedRetryMs)
			continue
		}
		claimed := e.board.Claim(o.ID, orderboard.ClaimRequest{
			CharName: cc.Name(),
			LeaseMs:  e.boardOpts.LeaseMs,
		})
		if claimed == nil {
			continue
		}
		e.claim = &claimState{
			orderID:    claimed.ID,
			itemCode:   claimed.ItemCode,
			sourceType: claimed.SourceType,
			quantity:   claimed.RemainingQty,
		}
		return e.claim
	}
	return nil
}

// precheckGatherOrder verifies the character can work a gather order
func (e *Engine) precheckGatherOrder(cc *common.CharContext, o *orders.Order) string {
	resource := e.catalog.ResourceDropping(o.ItemCode)
	if resource == nil {
		return reasonUnresolvableChain
	}
	if cc.Record().SkillLevel(resource.Skill) < resource.Level {
		return reasonInsufficientGather
	}
	return ""
}

// canClaimCraftOrderNow runs the full craft-order precheck. The returned
// reason is "" when the order is workable, otherwise one of the typed block
// reasons, possibly suffixed with the deficient code.
func (e *Engine) canClaimCraftOrderNow(ctx context.Context, cc *common.CharContext, o *orders.Order, craftSkill game.Skill) string {
	item := e.catalog.Item(o.ItemCode)
	if item == nil || !item.IsCraftable() {
		return reasonUnresolvableChain
	}
	if craftSkill != "" && item.Craft.Skill != craftSkill {
		return reasonWrongCraftSkill
	}
	rec := cc.Record()
	if rec.SkillLevel(item.Craft.Skill) < item.Craft.Level {
		return reasonInsufficientCraft
	}
	plan, err := e.catalog.ResolveChain(o.ItemCode)
	if err != nil {
		return reasonUnresolvableChain
	}
	ok, reason, detail := e.chainViable(cc, plan)
	if ok {
		return ""
	}
	// A missing bank dependency that is a task reward may be purchasable
	// with coins right now.
	if reason == reasonMissingBankDep && e.isTaskReward(detail) && e.exchanger != nil {
		need := 0
		for _, step := range plan {
			if step.Type == game.StepBank && step.ItemCode == detail {
				need = step.Quantity
			}
		}
		met, _ := e.exchanger.TryProactive(ctx, cc, map[string]int{detail: need})
		if met {
			if ok, _, _ := e.chainViable(cc, plan); ok {
				return ""
			}
		}
	}
	if detail != "" {
		return reason + ":" + detail
	}
	return reason
}

// isTaskReward reports whether an item only enters the economy through the
// task-coin exchange: not craftable, not dropped by any resource or monster.
func (e *Engine) isTaskReward(code string) bool {
	item := e.catalog.Item(code)
	if item == nil || item.IsCraftable() {
		return false
	}
	return e.catalog.ResourceDropping(code) == nil && e.catalog.MonsterDropping(code) == nil
}

// blockAndReleaseClaim marks the claimed order blocked for this character
// and drops the claim. The reason travels in the release event for the
// report layer.
func (e *Engine) blockAndReleaseClaim(cc *common.CharContext, reason string) {
	if e.claim == nil {
		return
	}
	e.board.MarkCharBlocked(e.claim.orderID, cc.Name(), e.boardOpts.BlockedRetryMs)
	e.board.ReleaseClaim(e.claim.orderID, cc.Name(), reason)
	e.claim = nil
	e.rotate()
}

// releaseClaim drops the claim without blocking the order
func (e *Engine) releaseClaim(cc *common.CharContext, reason string) {
	if e.claim == nil {
		return
	}
	e.board.ReleaseClaim(e.claim.orderID, cc.Name(), reason)
	e.claim = nil
}

// renewClaim extends the lease mid-work; an expired lease clears the claim
func (e *Engine) renewClaim(cc *common.CharContext) bool {
	if e.claim == nil {
		return false
	}
	renewed := e.board.RenewClaim(e.claim.orderID, orderboard.ClaimRequest{
		CharName: cc.Name(),
		LeaseMs:  e.boardOpts.LeaseMs,
	})
	if renewed == nil {
		e.claim = nil
		return false
	}
	e.claim.quantity = renewed.RemainingQty
	return true
}

// depositClaimed banks the claimed item and credits it against the order.
// Returns true when the order reached fulfilled.
func (e *Engine) depositClaimed(ctx context.Context, cc *common.CharContext) (bool, error) {
	if e.claim == nil {
		return false, nil
	}
	carried := cc.Record().ItemCount(e.claim.itemCode)
	if carried == 0 {
		return false, nil
	}
	if err := e.ops.Deposit(ctx, cc, []character.InventorySlot{{Code: e.claim.itemCode, Quantity: carried}}); err != nil {
		return false, err
	}
	deltas := e.board.RecordDeposits(cc.Name(), map[string]int{e.claim.itemCode: carried})
	for _, delta := range deltas {
		if delta.OrderID == e.claim.orderID && delta.Status == orders.StatusFulfilled {
			e.claim = nil
			e.rotate()
			return true, nil
		}
	}
	return false, nil
}
