package rotation

import (
	"context"

	"github.com/andrescamacho/artifacts-go/internal/application/common"
	"github.com/andrescamacho/artifacts-go/internal/application/orderboard"
	"github.com/andrescamacho/artifacts-go/internal/domain/character"
	"github.com/andrescamacho/artifacts-go/internal/domain/game"
	"github.com/andrescamacho/artifacts-go/internal/domain/orders"
	"github.com/andrescamacho/artifacts-go/internal/domain/shared"
)

// recordProgress advances the goal unless a claim owns the work
func (e *Engine) recordProgress(n int) bool {
	if e.claim != nil {
		return false
	}
	if e.goal != nil {
		e.goal.progress += n
	}
	return true
}

// executeGathering works one gather tick: claim redirection, opportunistic
// smelting, tool equip, then a single gather action.
func (e *Engine) executeGathering(ctx context.Context, cc *common.CharContext, skill game.Skill) (bool, error) {
	resource := e.goal.resource
	if claim := e.ensureOrderClaim(ctx, cc, orders.SourceGather, ""); claim != nil {
		if r := e.catalog.ResourceDropping(claim.itemCode); r != nil {
			resource = r
		}
	}
	if resource == nil {
		e.rotate()
		return false, nil
	}
	rec := cc.Record()
	if rec.SkillLevel(resource.Skill) < resource.Level {
		if e.claim != nil {
			e.blockAndReleaseClaim(cc, blockedInsufficient)
		} else {
			e.rotate()
		}
		return false, nil
	}
	if e.claim == nil {
		if done, err := e.trySmelting(ctx, cc, skill); done || err != nil {
			return err == nil, err
		}
	}
	if err := e.equipTool(ctx, cc, resource.Skill); err != nil {
		return false, err
	}
	loc, err := e.catalog.LocationOf("resource", resource.Code, rec.X, rec.Y)
	if err != nil {
		if e.claim != nil {
			e.blockAndReleaseClaim(cc, reasonUnresolvableChain)
		} else {
			e.rotate()
		}
		return false, nil
	}
	if err := cc.MoveTo(ctx, loc.X, loc.Y); err != nil {
		return false, err
	}
	res, err := cc.API().Gather(ctx, cc.Name())
	if err != nil {
		if shared.IsAPIError(err, shared.CodeInventoryFull) {
			if e.claim != nil {
				_, derr := e.depositClaimed(ctx, cc)
				return derr == nil, derr
			}
			return false, nil
		}
		return false, err
	}
	if err := cc.Apply(ctx, res); err != nil {
		return false, err
	}
	if e.claim != nil {
		if !e.renewClaim(cc) {
			return false, nil
		}
		carried := cc.Record().ItemCount(e.claim.itemCode)
		if carried >= e.claim.quantity || cc.Record().InventoryFull() {
			_, derr := e.depositClaimed(ctx, cc)
			return derr == nil, derr
		}
		return true, nil
	}
	e.recordProgress(1)
	return !e.goal.complete(), nil
}

// trySmelting processes raw materials already in the inventory at the
// skill's workshop, freeing space before more gathering. Returns true when a
// craft happened.
func (e *Engine) trySmelting(ctx context.Context, cc *common.CharContext, skill game.Skill) (bool, error) {
	rec := cc.Record()
	craftSkill := smeltingSkillFor(skill)
	if craftSkill == "" {
		return false, nil
	}
	for _, item := range e.catalog.ItemsCraftableWith(craftSkill, rec.SkillLevel(craftSkill)) {
		crafts := craftsCoveredByInventory(rec, item)
		if crafts == 0 {
			continue
		}
		loc, err := e.catalog.WorkshopLocation(craftSkill, rec.X, rec.Y)
		if err != nil {
			return false, nil
		}
		if err := cc.MoveTo(ctx, loc.X, loc.Y); err != nil {
			return false, err
		}
		res, err := cc.API().Craft(ctx, cc.Name(), item.Code, crafts)
		if err != nil {
			return false, nil
		}
		return true, cc.Apply(ctx, res)
	}
	return false, nil
}

// smeltingSkillFor maps a gather skill to the crafting skill that processes
// its raw output at a workshop.
func smeltingSkillFor(skill game.Skill) game.Skill {
	switch skill {
	case game.SkillMining:
		return game.SkillMining
	case game.SkillWoodcutting:
		return game.SkillWoodcutting
	case game.SkillFishing:
		return game.SkillCooking
	case game.SkillAlchemy:
		return game.SkillAlchemy
	}
	return ""
}

// craftsCoveredByInventory returns how many crafts of the item the carried
// materials fully cover.
func craftsCoveredByInventory(rec *character.Record, item *game.Item) int {
	if item.Craft == nil || len(item.Craft.Items) == 0 {
		return 0
	}
	crafts := -1
	for _, ing := range item.Craft.Items {
		carried := rec.ItemCount(ing.Code)
		possible := carried / ing.Quantity
		if crafts < 0 || possible < crafts {
			crafts = possible
		}
	}
	if crafts < 0 {
		crafts = 0
	}
	return crafts
}

// executeCrafting advances a production plan one step per tick
func (e *Engine) executeCrafting(ctx context.Context, cc *common.CharContext, skill game.Skill) (bool, error) {
	if claim := e.ensureOrderClaim(ctx, cc, orders.SourceCraft, skill); claim != nil {
		if e.goal == nil || e.goal.recipe == nil || e.goal.recipe.Code != claim.itemCode {
			item := e.catalog.Item(claim.itemCode)
			plan, err := e.catalog.ResolveChain(claim.itemCode)
			if err != nil || item == nil {
				e.blockAndReleaseClaim(cc, reasonUnresolvableChain)
				return false, nil
			}
			e.goal = &goalState{
				mode:   string(skill),
				target: claim.quantity,
				recipe: item,
				plan:   plan,
			}
		}
	}
	goal := e.goal
	if goal == nil || goal.recipe == nil {
		e.rotate()
		return false, nil
	}
	rec := cc.Record()

	if !goal.bankChecked {
		goal.batchSize = e.batchSize(rec, goal)
		if goal.batchSize <= 0 {
			if e.claim != nil {
				e.blockAndReleaseClaim(cc, reasonMissingBankDep)
			} else {
				e.rotate()
			}
			return false, nil
		}
		if err := e.withdrawMaterials(ctx, cc, goal); err != nil {
			return false, err
		}
		goal.bankChecked = true
	}

	for _, step := range goal.plan {
		needed := step.Quantity * goal.batchSize
		switch step.Type {
		case game.StepBank:
			if rec.ItemCount(step.ItemCode) >= needed {
				continue
			}
			if e.claim != nil {
				e.blockAndReleaseClaim(cc, reasonMissingBankDep+":"+step.ItemCode)
			} else {
				e.blocked.block(string(skill), goal.recipe.Code, e.clock.Now().Add(defaultRecipeBlock))
				e.rotate()
			}
			return false, nil
		case game.StepGather:
			if rec.ItemCount(step.ItemCode) >= needed {
				continue
			}
			return e.gatherStep(ctx, cc, step)
		case game.StepFight:
			if rec.ItemCount(step.ItemCode) >= needed {
				continue
			}
			return e.fightStep(ctx, cc, step.Monster.Code)
		case game.StepCraft:
			isRoot := step.ItemCode == goal.recipe.Code
			qty := goal.batchSize
			if !isRoot {
				if rec.ItemCount(step.ItemCode) >= needed {
					continue
				}
				qty = needed
			}
			done, err := e.craftStep(ctx, cc, step.Recipe, qty)
			if err != nil || !done || !isRoot {
				return err == nil, err
			}
			// Root craft landed: close the batch.
			goal.bankChecked = false
			if e.claim != nil {
				_, derr := e.depositClaimed(ctx, cc)
				return derr == nil, derr
			}
			e.recordProgress(qty * maxInt(goal.recipe.Craft.Quantity, 1))
			return !goal.complete(), nil
		}
	}
	return false, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// batchSize bounds one crafting batch by goal remainder and usable inventory
// space.
func (e *Engine) batchSize(rec *character.Record, goal *goalState) int {
	materials := 0
	for _, ing := range goal.recipe.Craft.Items {
		materials += ing.Quantity
	}
	if materials == 0 {
		return 0
	}
	capacity := rec.InventoryCapacity()
	usable := capacity - rec.InventoryCount() - inventoryReserve(capacity)
	if usable < 0 {
		usable = 0
	}
	batch := usable / materials
	if remaining := goal.remaining(); batch > remaining {
		batch = remaining
	}
	return batch
}

// withdrawMaterials pulls the plan's bank-covered materials for one batch
func (e *Engine) withdrawMaterials(ctx context.Context, cc *common.CharContext, goal *goalState) error {
	want := make(map[string]int)
	for _, step := range goal.plan {
		if step.Type == game.StepCraft {
			continue
		}
		needed := step.Quantity * goal.batchSize
		carried := cc.Record().ItemCount(step.ItemCode)
		missing := needed - carried
		if missing <= 0 {
			continue
		}
		if avail := e.ops.Inventory().AvailableCount(step.ItemCode); avail < missing {
			missing = avail
		}
		if missing > 0 {
			want[step.ItemCode] = missing
		}
	}
	if len(want) == 0 {
		return nil
	}
	return e.ops.Withdraw(ctx, cc, want)
}

// gatherStep gathers one tick toward a plan dependency
func (e *Engine) gatherStep(ctx context.Context, cc *common.CharContext, step game.PlanStep) (bool, error) {
	rec := cc.Record()
	if rec.SkillLevel(step.Resource.Skill) < step.Resource.Level {
		if e.claim != nil {
			e.blockAndReleaseClaim(cc, reasonInsufficientGather)
		} else {
			e.rotate()
		}
		return false, nil
	}
	if err := e.equipTool(ctx, cc, step.Resource.Skill); err != nil {
		return false, err
	}
	loc, err := e.catalog.LocationOf("resource", step.Resource.Code, rec.X, rec.Y)
	if err != nil {
		e.rotate()
		return false, nil
	}
	if err := cc.MoveTo(ctx, loc.X, loc.Y); err != nil {
		return false, err
	}
	res, err := cc.API().Gather(ctx, cc.Name())
	if err != nil {
		if shared.IsAPIError(err, shared.CodeInventoryFull) {
			return false, nil
		}
		return false, err
	}
	return true, cc.Apply(ctx, res)
}

// fightStep fights the plan's monster once; viability was pre-simulated
func (e *Engine) fightStep(ctx context.Context, cc *common.CharContext, monsterCode string) (bool, error) {
	if !e.canBeat(cc, monsterCode) {
		if e.claim != nil {
			e.blockAndReleaseClaim(cc, reasonCombatNotViable+":"+monsterCode)
		} else {
			e.rotate()
		}
		return false, nil
	}
	return e.fightOnce(ctx, cc, monsterCode)
}

// craftStep moves to the right workshop and crafts. done is true when the
// craft call landed.
func (e *Engine) craftStep(ctx context.Context, cc *common.CharContext, recipe *game.Item, qty int) (bool, error) {
	rec := cc.Record()
	loc, err := e.catalog.WorkshopLocation(recipe.Craft.Skill, rec.X, rec.Y)
	if err != nil {
		e.rotate()
		return false, nil
	}
	if err := cc.MoveTo(ctx, loc.X, loc.Y); err != nil {
		return false, err
	}
	res, err := cc.API().Craft(ctx, cc.Name(), recipe.Code, qty)
	if err != nil {
		if shared.IsAPIError(err, shared.CodeMissingTradeItems) || shared.IsAPIError(err, shared.CodeSkillTooLow) {
			if e.claim != nil {
				e.blockAndReleaseClaim(cc, reasonMissingBankDep)
			} else {
				e.rotate()
			}
			return false, nil
		}
		return false, err
	}
	return true, cc.Apply(ctx, res)
}

// executeCombat grinds the planner's best target one fight per tick
func (e *Engine) executeCombat(ctx context.Context, cc *common.CharContext) (bool, error) {
	goal := e.goal
	if claim := e.ensureOrderClaim(ctx, cc, orders.SourceFight, ""); claim != nil {
		goal.monsterCode = claimMonster(e, claim)
	}
	if goal.monsterCode == "" {
		e.rotate()
		return false, nil
	}
	if goal.losses >= defaultMaxLosses {
		if e.claim != nil {
			e.blockAndReleaseClaim(cc, reasonCombatNotViable+":"+goal.monsterCode)
		} else {
			e.rotate()
		}
		return false, nil
	}
	if !goal.foodWithdrawn {
		if e.outfitter != nil {
			if err := e.outfitter.EquipForMonster(ctx, cc, goal.monsterCode); err != nil {
				return false, err
			}
			if err := e.outfitter.PreparePotions(ctx, cc, goal.monsterCode); err != nil {
				return false, err
			}
		}
		if err := e.withdrawFood(ctx, cc, goal.remaining()); err != nil {
			return false, err
		}
		goal.foodWithdrawn = true
	}
	done, err := e.fightOnce(ctx, cc, goal.monsterCode)
	if err != nil {
		return false, err
	}
	if !done {
		goal.losses++
		return true, nil
	}
	if e.claim != nil {
		if !e.renewClaim(cc) {
			return false, nil
		}
		carried := cc.Record().ItemCount(e.claim.itemCode)
		if carried >= e.claim.quantity || cc.Record().InventoryFull() {
			_, derr := e.depositClaimed(ctx, cc)
			return derr == nil, derr
		}
		return true, nil
	}
	e.recordProgress(1)
	return !goal.complete(), nil
}

func claimMonster(e *Engine, claim *claimState) string {
	if o := e.board.Get(claim.orderID); o != nil {
		return o.SourceCode
	}
	return ""
}

// fightOnce moves to the monster, tops up HP, and fights one pull. Returns
// true on a win.
func (e *Engine) fightOnce(ctx context.Context, cc *common.CharContext, monsterCode string) (bool, error) {
	rec := cc.Record()
	loc, err := e.catalog.LocationOf("monster", monsterCode, rec.X, rec.Y)
	if err != nil {
		e.rotate()
		return false, nil
	}
	if err := cc.MoveTo(ctx, loc.X, loc.Y); err != nil {
		return false, err
	}
	if cc.Record().HPPercent() < 100 {
		if res, err := cc.API().Rest(ctx, cc.Name()); err == nil {
			if err := cc.Apply(ctx, res); err != nil {
				return false, err
			}
		}
	}
	res, err := cc.API().Fight(ctx, cc.Name())
	if err != nil {
		return false, err
	}
	if err := cc.Apply(ctx, res); err != nil {
		return false, err
	}
	if res.Fight != nil && res.Fight.Result != "win" {
		cc.RecordLoss(monsterCode)
		return false, nil
	}
	cc.ClearLosses(monsterCode)
	return true, nil
}

// withdrawFood stocks healing food for the remaining fights of the goal
func (e *Engine) withdrawFood(ctx context.Context, cc *common.CharContext, fights int) error {
	if fights <= 0 {
		return nil
	}
	best := ""
	bestHeal := 0
	for code := range e.ops.Inventory().Snapshot().Items {
		it := e.catalog.Item(code)
		if it == nil || it.Subtype != "food" {
			continue
		}
		if heal := it.EffectValue("heal"); heal > bestHeal {
			best, bestHeal = code, heal
		}
	}
	if best == "" {
		return nil
	}
	qty := fights
	if avail := e.ops.Inventory().AvailableCount(best); qty > avail {
		qty = avail
	}
	if free := cc.Record().InventoryFreeSlots(); qty > 0 && free < 1 {
		return nil
	}
	if qty <= 0 {
		return nil
	}
	if err := e.ops.Withdraw(ctx, cc, map[string]int{best: qty}); err != nil {
		return nil
	}
	return nil
}

// equipTool swaps in the best tool the character can source for the skill
func (e *Engine) equipTool(ctx context.Context, cc *common.CharContext, skill game.Skill) error {
	tool := e.catalog.BestToolFor(skill)
	if tool == nil {
		return nil
	}
	rec := cc.Record()
	if rec.Equipment[character.SlotWeapon] == tool.Code {
		return nil
	}
	if rec.ItemCount(tool.Code) == 0 {
		if !e.ops.Inventory().Has(tool.Code, 1) {
			return nil
		}
		if err := e.ops.Withdraw(ctx, cc, map[string]int{tool.Code: 1}); err != nil {
			return nil
		}
	}
	if rec.Equipment[character.SlotWeapon] != "" {
		res, err := cc.API().Unequip(ctx, cc.Name(), character.SlotWeapon, 1)
		if err != nil {
			return err
		}
		if err := cc.Apply(ctx, res); err != nil {
			return err
		}
	}
	res, err := cc.API().Equip(ctx, cc.Name(), tool.Code, character.SlotWeapon, 1)
	if err != nil {
		return err
	}
	return cc.Apply(ctx, res)
}

// executeNpcTask works the monsters task cycle: accept, fight, complete,
// exchange coins opportunistically.
func (e *Engine) executeNpcTask(ctx context.Context, cc *common.CharContext) (bool, error) {
	rec := cc.Record()
	if !rec.HasTask() {
		return e.acceptTask(ctx, cc, "monsters")
	}
	if rec.TaskComplete() {
		if err := e.completeTask(ctx, cc); err != nil {
			return false, err
		}
		if e.exchanger != nil {
			_, _ = e.exchanger.ExchangeOnce(ctx, cc)
		}
		e.recordProgress(1)
		return false, nil
	}
	if rec.TaskType != "monsters" {
		e.rotate()
		return false, nil
	}
	if !e.canBeat(cc, rec.TaskCode) {
		return e.cancelTask(ctx, cc)
	}
	if e.outfitter != nil && !e.goal.foodWithdrawn {
		if err := e.outfitter.EquipForMonster(ctx, cc, rec.TaskCode); err != nil {
			return false, err
		}
		if err := e.outfitter.PreparePotions(ctx, cc, rec.TaskCode); err != nil {
			return false, err
		}
		e.goal.foodWithdrawn = true
	}
	done, err := e.fightOnce(ctx, cc, rec.TaskCode)
	if err != nil {
		return false, err
	}
	if !done {
		e.goal.losses++
		if e.goal.losses >= defaultMaxLosses {
			return e.cancelTask(ctx, cc)
		}
	}
	return true, nil
}

// executeItemTask works the items task cycle: trade from stock, otherwise
// produce the item, otherwise order it and cancel.
func (e *Engine) executeItemTask(ctx context.Context, cc *common.CharContext) (bool, error) {
	rec := cc.Record()
	if !rec.HasTask() {
		return e.acceptTask(ctx, cc, "items")
	}
	if rec.TaskComplete() {
		if err := e.completeTask(ctx, cc); err != nil {
			return false, err
		}
		e.recordProgress(1)
		return false, nil
	}
	if rec.TaskType != "items" {
		e.rotate()
		return false, nil
	}
	needed := rec.TaskTotal - rec.TaskProgress
	carried := rec.ItemCount(rec.TaskCode)
	if carried > 0 {
		qty := carried
		if qty > needed {
			qty = needed
		}
		loc, err := e.catalog.TaskMasterLocation(rec.TaskType, rec.X, rec.Y)
		if err != nil {
			return false, err
		}
		if err := cc.MoveTo(ctx, loc.X, loc.Y); err != nil {
			return false, err
		}
		res, err := cc.API().TaskTrade(ctx, cc.Name(), rec.TaskCode, qty)
		if err != nil {
			return false, err
		}
		return true, cc.Apply(ctx, res)
	}
	if avail := e.ops.Inventory().AvailableCount(rec.TaskCode); avail > 0 {
		qty := avail
		if qty > needed {
			qty = needed
		}
		if rec.InventoryFreeSlots() == 0 {
			return false, nil
		}
		if err := e.ops.Withdraw(ctx, cc, map[string]int{rec.TaskCode: qty}); err != nil {
			return false, nil
		}
		return true, nil
	}
	if resource := e.catalog.ResourceDropping(rec.TaskCode); resource != nil && rec.SkillLevel(resource.Skill) >= resource.Level {
		return e.gatherStep(ctx, cc, game.PlanStep{Type: game.StepGather, ItemCode: rec.TaskCode, Quantity: needed, Resource: resource})
	}
	if item := e.catalog.Item(rec.TaskCode); item != nil && item.IsCraftable() && rec.SkillLevel(item.Craft.Skill) >= item.Craft.Level {
		e.goal = &goalState{
			mode:   string(item.Craft.Skill),
			target: needed,
			recipe: item,
		}
		if plan, err := e.catalog.ResolveChain(item.Code); err == nil {
			e.goal.plan = plan
			return true, nil
		}
	}
	// Not obtainable by this character: order it and eat the coin cost.
	if e.boardOpts.Enabled && e.boardOpts.CreateOrders && e.board != nil {
		if item := e.catalog.Item(rec.TaskCode); item != nil && item.IsCraftable() {
			_, _ = e.board.CreateOrMerge(orderboard.CreateRequest{
				SourceType:    orders.SourceCraft,
				SourceCode:    rec.TaskCode,
				ItemCode:      rec.TaskCode,
				CraftSkill:    string(item.Craft.Skill),
				SourceLevel:   item.Craft.Level,
				RequesterName: cc.Name(),
				RecipeCode:    rec.TaskCode,
				Quantity:      needed,
			})
		}
	}
	return e.cancelTask(ctx, cc)
}

func (e *Engine) acceptTask(ctx context.Context, cc *common.CharContext, taskType string) (bool, error) {
	rec := cc.Record()
	loc, err := e.catalog.TaskMasterLocation(taskType, rec.X, rec.Y)
	if err != nil {
		return false, err
	}
	if err := cc.MoveTo(ctx, loc.X, loc.Y); err != nil {
		return false, err
	}
	res, err := cc.API().AcceptTask(ctx, cc.Name())
	if err != nil {
		return false, err
	}
	return true, cc.Apply(ctx, res)
}

func (e *Engine) completeTask(ctx context.Context, cc *common.CharContext) error {
	rec := cc.Record()
	loc, err := e.catalog.TaskMasterLocation(rec.TaskType, rec.X, rec.Y)
	if err != nil {
		return err
	}
	if err := cc.MoveTo(ctx, loc.X, loc.Y); err != nil {
		return err
	}
	res, err := cc.API().CompleteTask(ctx, cc.Name())
	if err != nil {
		return err
	}
	return cc.Apply(ctx, res)
}

func (e *Engine) cancelTask(ctx context.Context, cc *common.CharContext) (bool, error) {
	rec := cc.Record()
	if e.ops.Inventory().Count(game.TaskCoinCode)+rec.ItemCount(game.TaskCoinCode) < 1 {
		e.rotate()
		return false, nil
	}
	if rec.ItemCount(game.TaskCoinCode) < 1 {
		if err := e.ops.Withdraw(ctx, cc, map[string]int{game.TaskCoinCode: 1}); err != nil {
			e.rotate()
			return false, nil
		}
	}
	loc, err := e.catalog.TaskMasterLocation(rec.TaskType, rec.X, rec.Y)
	if err != nil {
		return false, err
	}
	if err := cc.MoveTo(ctx, loc.X, loc.Y); err != nil {
		return false, err
	}
	res, err := cc.API().CancelTask(ctx, cc.Name())
	if err != nil {
		return false, err
	}
	if err := cc.Apply(ctx, res); err != nil {
		return false, err
	}
	e.rotate()
	return false, nil
}
