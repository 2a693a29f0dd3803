package game

// Skill identifies a character skill trained by gathering, crafting or combat
type Skill string

const (
	SkillMining          Skill = "mining"
	SkillWoodcutting     Skill = "woodcutting"
	SkillFishing         Skill = "fishing"
	SkillCooking         Skill = "cooking"
	SkillAlchemy         Skill = "alchemy"
	SkillWeaponcrafting  Skill = "weaponcrafting"
	SkillGearcrafting    Skill = "gearcrafting"
	SkillJewelrycrafting Skill = "jewelrycrafting"
)

// GatheringSkills are the skills fulfilled at resource nodes. Alchemy appears
// here and in CraftingSkills: it is the one dual-mode skill.
var GatheringSkills = []Skill{SkillMining, SkillWoodcutting, SkillFishing, SkillAlchemy}

// CraftingSkills are the skills fulfilled at workshops
var CraftingSkills = []Skill{SkillCooking, SkillAlchemy, SkillWeaponcrafting, SkillGearcrafting, SkillJewelrycrafting}

// TaskCoinCode is the currency handed out by task masters
const TaskCoinCode = "tasks_coin"

// Ingredient is one input line of a craft recipe
type Ingredient struct {
	Code     string
	Quantity int
}

// Craft describes how an item is produced at a workshop
type Craft struct {
	Skill    Skill
	Level    int
	Items    []Ingredient
	Quantity int // units produced per craft action
}

// Effect is a named numeric modifier on an item or monster
type Effect struct {
	Code  string
	Value int
}

// Item is a catalog entry. Craft is nil for non-craftable items.
type Item struct {
	Code    string
	Name    string
	Level   int
	Type    string // weapon, helmet, ring, consumable, resource, ...
	Subtype string // tool, food, potion, mob, ...
	Craft   *Craft
	Effects []Effect
}

// IsTool reports whether the item is a gathering tool
func (i *Item) IsTool() bool {
	return i.Subtype == "tool"
}

// IsCraftable reports whether the item has a recipe
func (i *Item) IsCraftable() bool {
	return i.Craft != nil
}

var equipmentTypes = map[string]bool{
	"weapon":     true,
	"shield":     true,
	"helmet":     true,
	"body_armor": true,
	"leg_armor":  true,
	"boots":      true,
	"ring":       true,
	"amulet":     true,
}

// IsEquipment reports whether the item occupies a gear slot
func (i *Item) IsEquipment() bool {
	return equipmentTypes[i.Type]
}

// EffectValue returns the value of the named effect, or 0 when absent
func (i *Item) EffectValue(code string) int {
	for _, e := range i.Effects {
		if e.Code == code {
			return e.Value
		}
	}
	return 0
}

// Drop is a possible loot line from a monster or resource
type Drop struct {
	Code     string
	Rate     int // 1-in-Rate chance
	MinQty   int
	MaxQty   int
}

// Monster is a catalog entry with full combat stats
type Monster struct {
	Code           string
	Name           string
	Level          int
	Type           string // normal, elite, boss
	HP             int
	AttackFire     int
	AttackEarth    int
	AttackWater    int
	AttackAir      int
	ResFire        int
	ResEarth       int
	ResWater       int
	ResAir         int
	CriticalStrike int
	Initiative     int
	Effects        []Effect
	Drops          []Drop
}

// EffectValue returns the value of the named monster effect, or 0 when absent
func (m *Monster) EffectValue(code string) int {
	for _, e := range m.Effects {
		if e.Code == code {
			return e.Value
		}
	}
	return 0
}

// DropsItem reports whether the monster can drop the given item
func (m *Monster) DropsItem(code string) bool {
	for _, d := range m.Drops {
		if d.Code == code {
			return true
		}
	}
	return false
}

// Resource is a gatherable node
type Resource struct {
	Code  string
	Name  string
	Skill Skill
	Level int
	Drops []Drop
}

// DropsItem reports whether the resource can drop the given item
func (r *Resource) DropsItem(code string) bool {
	for _, d := range r.Drops {
		if d.Code == code {
			return true
		}
	}
	return false
}

// Location is a map tile holding some content (resource node, monster spawn,
// workshop, bank, task master, NPC)
type Location struct {
	X           int
	Y           int
	ContentType string // resource, monster, workshop, bank, tasks_master, npc
	ContentCode string
}

// NPCItem is one line of an NPC's stock
type NPCItem struct {
	Code      string
	BuyPrice  int // gold the character pays; 0 when not sold
	SellPrice int
}

// NPC is a merchant catalog entry
type NPC struct {
	Code  string
	Name  string
	Items []NPCItem
}

// Sells returns the buy price for an item, or 0 when the NPC does not sell it
func (n *NPC) Sells(code string) int {
	for _, it := range n.Items {
		if it.Code == code && it.BuyPrice > 0 {
			return it.BuyPrice
		}
	}
	return 0
}
