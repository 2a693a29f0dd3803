package rotation

import (
	"context"
	"math/rand"
	"sort"

	"github.com/andrescamacho/artifacts-go/internal/application/bank"
	"github.com/andrescamacho/artifacts-go/internal/application/common"
	"github.com/andrescamacho/artifacts-go/internal/application/orderboard"
	"github.com/andrescamacho/artifacts-go/internal/application/routines"
	"github.com/andrescamacho/artifacts-go/internal/application/tasks"
	"github.com/andrescamacho/artifacts-go/internal/domain/combat"
	"github.com/andrescamacho/artifacts-go/internal/domain/game"
	"github.com/andrescamacho/artifacts-go/internal/domain/orders"
	"github.com/andrescamacho/artifacts-go/internal/domain/shared"
	"github.com/andrescamacho/artifacts-go/internal/infrastructure/config"
)

// GearAdvisor supplies the rotation's combat decisions from the gear planner
type GearAdvisor interface {
	BestTarget(charName string) string
	OwnedDeficitRequests(cc *common.CharContext) map[string]int
}

// Engine is the skill-rotation routine: the lowest-priority, always-runnable
// behavior that levels skills, fulfills order-board claims, and works tasks.
type Engine struct {
	routines.Hints
	catalog   *game.Catalog
	ops       *bank.Ops
	board     *orderboard.Board
	outfitter routines.CombatOutfitter
	advisor   GearAdvisor
	exchanger *tasks.Exchanger
	clock     shared.Clock
	rng       *rand.Rand

	weights         map[string]float64
	craftCollection bool
	boardOpts       config.OrderBoardOptions

	goal    *goalState
	claim   *claimState
	blocked blockedRecipes
	simMemo map[string]bool
}

// NewEngine creates the rotation at its baseline priority. rng may be nil
// for a clock-seeded source.
func NewEngine(catalog *game.Catalog, ops *bank.Ops, board *orderboard.Board, outfitter routines.CombatOutfitter, advisor GearAdvisor, exchanger *tasks.Exchanger, clock shared.Clock, rng *rand.Rand, opts *config.RoutineOptions) *Engine {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(shared.NowMs(clock)))
	}
	e := &Engine{
		Hints:     routines.NewHints(5, true, false),
		catalog:   catalog,
		ops:       ops,
		board:     board,
		outfitter: outfitter,
		advisor:   advisor,
		exchanger: exchanger,
		clock:     clock,
		rng:       rng,
		weights:   map[string]float64{},
		blocked:   make(blockedRecipes),
	}
	e.applyOptions(opts)
	return e
}

func (e *Engine) applyOptions(opts *config.RoutineOptions) {
	e.ApplyOverrides(opts)
	if opts == nil {
		return
	}
	if len(opts.Weights) > 0 {
		e.weights = opts.Weights
	}
	e.craftCollection = opts.CraftCollection
	e.boardOpts = opts.OrderBoard
}

func (e *Engine) Name() string { return "skill_rotation" }

func (e *Engine) CanRun(ctx context.Context, cc *common.CharContext) bool {
	return len(e.weights) > 0 || e.goal != nil
}

func (e *Engine) CanBePreempted(ctx context.Context, cc *common.CharContext) bool {
	return true
}

func (e *Engine) UpdateConfig(cfg *config.CharacterConfig) {
	e.applyOptions(cfg.Routine(config.RoutineSkillRotation))
}

// Execute advances the current goal one action, picking a new goal when none
// is active. Returns true while there is more to do.
func (e *Engine) Execute(ctx context.Context, cc *common.CharContext) (bool, error) {
	if e.goal == nil && e.claim != nil {
		// A mid-claim rotate abandoned the goal. Hand the order back so
		// another character can work it.
		e.releaseClaim(cc, reasonGoalAbandoned)
	}
	if e.goal.complete() && e.claim == nil {
		e.goal = e.pickNext(cc)
		if e.goal == nil {
			return false, nil
		}
	}
	switch e.goal.mode {
	case ModeCombat:
		return e.executeCombat(ctx, cc)
	case ModeNpcTask:
		return e.executeNpcTask(ctx, cc)
	case ModeItemTask:
		return e.executeItemTask(ctx, cc)
	default:
		skill := game.Skill(e.goal.mode)
		if e.goal.recipe != nil {
			return e.executeCrafting(ctx, cc, skill)
		}
		if isGatheringSkill(skill) {
			return e.executeGathering(ctx, cc, skill)
		}
		return e.executeCrafting(ctx, cc, skill)
	}
}

func isGatheringSkill(skill game.Skill) bool {
	for _, s := range game.GatheringSkills {
		if s == skill {
			return true
		}
	}
	return false
}

func isCraftingSkill(skill game.Skill) bool {
	for _, s := range game.CraftingSkills {
		if s == skill {
			return true
		}
	}
	return false
}

// sampleMode draws a weighted mode. Deterministic given the rng state.
func (e *Engine) sampleMode() string {
	keys := make([]string, 0, len(e.weights))
	total := 0.0
	for key, w := range e.weights {
		if w > 0 {
			keys = append(keys, key)
			total += w
		}
	}
	if total == 0 {
		return ""
	}
	sort.Strings(keys)
	roll := e.rng.Float64() * total
	for _, key := range keys {
		roll -= e.weights[key]
		if roll < 0 {
			return key
		}
	}
	return keys[len(keys)-1]
}

// pickNext selects the next goal from the weighted modes
func (e *Engine) pickNext(cc *common.CharContext) *goalState {
	mode := e.sampleMode()
	if mode == "" {
		return nil
	}
	switch mode {
	case ModeCombat:
		target := ""
		if e.advisor != nil {
			target = e.advisor.BestTarget(cc.Name())
		}
		if target == "" || !e.canBeat(cc, target) {
			return nil
		}
		return &goalState{mode: ModeCombat, target: defaultGoalSize, monsterCode: target}
	case ModeNpcTask:
		return &goalState{mode: ModeNpcTask, target: 1}
	case ModeItemTask:
		return &goalState{mode: ModeItemTask, target: 1}
	}

	skill := game.Skill(mode)
	if isCraftingSkill(skill) {
		if goal := e.pickRecipe(cc, skill); goal != nil {
			return goal
		}
		// Alchemy falls back to gathering its own herbs; other crafting
		// skills idle this tick when nothing is viable.
		if !isGatheringSkill(skill) {
			return nil
		}
	}
	if isGatheringSkill(skill) {
		resource := e.catalog.BestResourceFor(skill, cc.Record().SkillLevel(skill))
		if resource == nil {
			return nil
		}
		return &goalState{mode: mode, target: defaultGoalSize, resource: resource}
	}
	return nil
}

// pickRecipe enumerates viable recipes for the skill. Bank-only chains win;
// otherwise the highest-level viable recipe does. Non-viable candidates emit
// orders for their deficient dependencies.
func (e *Engine) pickRecipe(cc *common.CharContext, skill game.Skill) *goalState {
	rec := cc.Record()
	level := rec.SkillLevel(skill)
	now := e.clock.Now()

	type candidate struct {
		item     *game.Item
		plan     []game.PlanStep
		bankOnly bool
	}
	var viable []candidate
	for _, item := range e.catalog.ItemsCraftableWith(skill, level) {
		if e.blocked.isBlocked(string(skill), item.Code, now) {
			continue
		}
		plan, err := e.catalog.ResolveChain(item.Code)
		if err != nil {
			continue
		}
		ok, reason, detail := e.chainViable(cc, plan)
		if !ok {
			e.emitDeficiencyOrder(cc, item, plan, reason, detail)
			continue
		}
		bankOnly := true
		for _, step := range plan {
			if step.Type == game.StepGather || step.Type == game.StepFight {
				bankOnly = false
				break
			}
		}
		viable = append(viable, candidate{item: item, plan: plan, bankOnly: bankOnly})
	}
	if len(viable) == 0 {
		return nil
	}
	sort.Slice(viable, func(i, j int) bool {
		if viable[i].bankOnly != viable[j].bankOnly {
			return viable[i].bankOnly
		}
		if viable[i].item.Craft.Level != viable[j].item.Craft.Level {
			return viable[i].item.Craft.Level > viable[j].item.Craft.Level
		}
		return viable[i].item.Code < viable[j].item.Code
	})
	chosen := viable[0]
	return &goalState{
		mode:   string(skill),
		target: defaultGoalSize,
		recipe: chosen.item,
		plan:   chosen.plan,
	}
}

// stockFor is the character's reachable quantity: bank plus carried
func (e *Engine) stockFor(cc *common.CharContext, code string) int {
	return e.ops.Inventory().Count(code) + cc.Record().ItemCount(code)
}

// chainViable applies the bank-aware viability rule to a resolved chain
func (e *Engine) chainViable(cc *common.CharContext, plan []game.PlanStep) (bool, string, string) {
	rec := cc.Record()
	for _, step := range plan {
		switch step.Type {
		case game.StepGather:
			if rec.SkillLevel(step.Resource.Skill) >= step.Resource.Level {
				continue
			}
			if e.stockFor(cc, step.ItemCode) >= step.Quantity {
				continue
			}
			return false, reasonInsufficientGather, step.ItemCode
		case game.StepFight:
			if e.stockFor(cc, step.ItemCode) >= step.Quantity {
				continue
			}
			if e.canBeat(cc, step.Monster.Code) {
				continue
			}
			return false, reasonCombatNotViable, step.Monster.Code
		case game.StepBank:
			if e.stockFor(cc, step.ItemCode) < step.Quantity {
				return false, reasonMissingBankDep, step.ItemCode
			}
		}
	}
	return true, "", ""
}

// canBeat memoizes combat viability per monster for one planning pass
func (e *Engine) canBeat(cc *common.CharContext, monsterCode string) bool {
	if e.simMemo == nil {
		e.simMemo = make(map[string]bool)
	}
	if viable, ok := e.simMemo[monsterCode]; ok {
		return viable
	}
	monster := e.catalog.Monster(monsterCode)
	viable := false
	if monster != nil {
		sim := combat.Simulate(combat.FromCharacter(cc.Record()), combat.FromMonster(monster), combat.Options{})
		viable = sim.IsViableWin()
	}
	e.simMemo[monsterCode] = viable
	return viable
}

// emitDeficiencyOrder publishes cooperative work for a recipe this character
// cannot complete alone.
func (e *Engine) emitDeficiencyOrder(cc *common.CharContext, item *game.Item, plan []game.PlanStep, reason, detail string) {
	if !e.boardOpts.Enabled || !e.boardOpts.CreateOrders || e.board == nil {
		return
	}
	for _, step := range plan {
		switch {
		case reason == reasonInsufficientGather && step.Type == game.StepGather && step.ItemCode == detail:
			_, _ = e.board.CreateOrMerge(orderboard.CreateRequest{
				SourceType:    orders.SourceGather,
				SourceCode:    step.Resource.Code,
				ItemCode:      step.ItemCode,
				GatherSkill:   string(step.Resource.Skill),
				SourceLevel:   step.Resource.Level,
				RequesterName: cc.Name(),
				RecipeCode:    item.Code,
				Quantity:      step.Quantity,
			})
		case reason == reasonCombatNotViable && step.Type == game.StepFight && step.Monster.Code == detail:
			_, _ = e.board.CreateOrMerge(orderboard.CreateRequest{
				SourceType:    orders.SourceFight,
				SourceCode:    step.Monster.Code,
				ItemCode:      step.ItemCode,
				SourceLevel:   step.Monster.Level,
				RequesterName: cc.Name(),
				RecipeCode:    item.Code,
				Quantity:      step.Quantity,
			})
		}
	}
}

// rotate abandons the current goal; the next Execute picks a fresh one
func (e *Engine) rotate() {
	e.goal = nil
	e.simMemo = nil
}
