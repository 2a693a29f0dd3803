package game

import "github.com/andrescamacho/artifacts-go/internal/domain/shared"

// PlanStepType tags the kind of work a production plan step requires
type PlanStepType string

const (
	StepBank   PlanStepType = "bank"
	StepGather PlanStepType = "gather"
	StepFight  PlanStepType = "fight"
	StepCraft  PlanStepType = "craft"
)

// PlanStep is one dependency of a production plan. Exactly one of Resource,
// Monster and Recipe is set, matching Type.
type PlanStep struct {
	Type     PlanStepType
	ItemCode string
	Quantity int // units needed per single craft of the plan's root item
	Resource *Resource
	Monster  *Monster
	Recipe   *Item
}

const maxChainDepth = 8

// ResolveChain expands the recipe of itemCode into a finite ordered list of
// plan steps: dependencies first, the root craft step last. Raw materials
// resolve to a gather step when a resource drops them, a fight step when only
// a monster does, and a bank step otherwise (task rewards, NPC goods).
// Returns an error for non-craftable roots and for cyclic or over-deep chains.
func (c *Catalog) ResolveChain(itemCode string) ([]PlanStep, error) {
	root := c.Item(itemCode)
	if root == nil {
		return nil, shared.NewDomainError("unknown item " + itemCode)
	}
	if root.Craft == nil {
		return nil, shared.NewDomainError("item " + itemCode + " is not craftable")
	}
	var steps []PlanStep
	visiting := make(map[string]bool)
	if err := c.expandChain(root, 1, 0, visiting, &steps); err != nil {
		return nil, err
	}
	return steps, nil
}

func (c *Catalog) expandChain(item *Item, quantity, depth int, visiting map[string]bool, steps *[]PlanStep) error {
	if depth > maxChainDepth {
		return shared.NewDomainError("recipe chain too deep at " + item.Code)
	}
	if visiting[item.Code] {
		return shared.NewDomainError("recipe cycle at " + item.Code)
	}
	visiting[item.Code] = true
	defer delete(visiting, item.Code)

	perCraft := item.Craft.Quantity
	if perCraft <= 0 {
		perCraft = 1
	}
	crafts := (quantity + perCraft - 1) / perCraft

	for _, ing := range item.Craft.Items {
		need := ing.Quantity * crafts
		dep := c.Item(ing.Code)
		switch {
		case dep != nil && dep.Craft != nil:
			if err := c.expandChain(dep, need, depth+1, visiting, steps); err != nil {
				return err
			}
		default:
			if res := c.ResourceDropping(ing.Code); res != nil {
				*steps = append(*steps, PlanStep{Type: StepGather, ItemCode: ing.Code, Quantity: need, Resource: res})
			} else if mon := c.MonsterDropping(ing.Code); mon != nil {
				*steps = append(*steps, PlanStep{Type: StepFight, ItemCode: ing.Code, Quantity: need, Monster: mon})
			} else {
				*steps = append(*steps, PlanStep{Type: StepBank, ItemCode: ing.Code, Quantity: need})
			}
		}
	}
	*steps = append(*steps, PlanStep{Type: StepCraft, ItemCode: item.Code, Quantity: quantity, Recipe: item})
	return nil
}
