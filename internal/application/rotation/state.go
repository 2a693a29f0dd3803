package rotation

import (
	"time"

	"github.com/andrescamacho/artifacts-go/internal/domain/game"
	"github.com/andrescamacho/artifacts-go/internal/domain/orders"
)

// Mode keys the rotation's dispatch. Gathering and crafting modes share the
// skill name; combat and the two task modes are synthetic.
const (
	ModeCombat   = "combat"
	ModeNpcTask  = "npc_task"
	ModeItemTask = "item_task"
)

const (
	defaultGoalSize     = 20
	defaultMaxLosses    = 3
	defaultRecipeBlock  = 60 * time.Second
	inventoryReserveMin = 8
	inventoryReserveMax = 20

	blockedInsufficient      = "insufficient_skill"
	reasonCombatNotViable    = "combat_not_viable"
	reasonMissingBankDep     = "missing_bank_dependency"
	reasonInsufficientGather = "insufficient_gather_skill"
	reasonInsufficientCraft  = "insufficient_craft_level"
	reasonWrongCraftSkill    = "wrong_craft_skill"
	reasonUnresolvableChain  = "unresolvable_recipe_chain"
	reasonGoalAbandoned      = "goal_abandoned"
)

// goalState is the rotation's current objective. Exactly one of the mode
// sections is populated.
type goalState struct {
	mode     string
	target   int
	progress int

	// crafting
	recipe      *game.Item
	plan        []game.PlanStep
	bankChecked bool
	batchSize   int

	// gathering
	resource *game.Resource

	// combat
	monsterCode   string
	losses        int
	foodWithdrawn bool
}

func (g *goalState) remaining() int {
	if g == nil {
		return 0
	}
	r := g.target - g.progress
	if r < 0 {
		return 0
	}
	return r
}

func (g *goalState) complete() bool {
	return g == nil || g.remaining() == 0
}

// claimState tracks an active order-board claim. While set, normal goal
// progress is suppressed: the work belongs to the order, not the goal.
type claimState struct {
	orderID    string
	itemCode   string
	sourceType orders.SourceType
	quantity   int
}

// blockedRecipes maps skill -> itemCode -> expiry. Entries keep a recipe out
// of pickNext until they lapse.
type blockedRecipes map[string]map[string]time.Time

func (b blockedRecipes) block(skill, itemCode string, until time.Time) {
	if b[skill] == nil {
		b[skill] = make(map[string]time.Time)
	}
	b[skill][itemCode] = until
}

func (b blockedRecipes) isBlocked(skill, itemCode string, now time.Time) bool {
	until, ok := b[skill][itemCode]
	if !ok {
		return false
	}
	if now.After(until) {
		delete(b[skill], itemCode)
		return false
	}
	return true
}

// inventoryReserve is the slack kept free while batching crafts
func inventoryReserve(capacity int) int {
	reserve := (capacity*10 + 99) / 100 // ceil(capacity * 0.10)
	if reserve < inventoryReserveMin {
		reserve = inventoryReserveMin
	}
	if reserve > inventoryReserveMax {
		reserve = inventoryReserveMax
	}
	return reserve
}
