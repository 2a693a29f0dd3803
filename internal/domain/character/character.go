package character

import (
	"time"

	"github.com/andrescamacho/artifacts-go/internal/domain/game"
)

// Slot identifies an equipment slot
type Slot string

const (
	SlotWeapon    Slot = "weapon"
	SlotShield    Slot = "shield"
	SlotHelmet    Slot = "helmet"
	SlotBodyArmor Slot = "body_armor"
	SlotLegArmor  Slot = "leg_armor"
	SlotBoots     Slot = "boots"
	SlotBag       Slot = "bag"
	SlotAmulet    Slot = "amulet"
	SlotRing1     Slot = "ring1"
	SlotRing2     Slot = "ring2"
	SlotUtility1  Slot = "utility1"
	SlotUtility2  Slot = "utility2"
	SlotRune      Slot = "rune"
)

// CarrySlotPriority is the order in which the gear planner trims loadouts
// that exceed the carry budget.
var CarrySlotPriority = []Slot{
	SlotWeapon, SlotShield, SlotHelmet, SlotBodyArmor, SlotLegArmor,
	SlotBoots, SlotBag, SlotAmulet, SlotRing1, SlotRing2,
}

// EquipmentSlots are all gear slots the optimizer can fill
var EquipmentSlots = []Slot{
	SlotWeapon, SlotShield, SlotHelmet, SlotBodyArmor, SlotLegArmor,
	SlotBoots, SlotBag, SlotAmulet, SlotRing1, SlotRing2,
	SlotUtility1, SlotUtility2, SlotRune,
}

// InventorySlot is one line of a character's inventory, in server order
type InventorySlot struct {
	Code     string
	Quantity int
}

// CombatAttributes are the character-side inputs of the combat simulator
type CombatAttributes struct {
	AttackFire     int
	AttackEarth    int
	AttackWater    int
	AttackAir      int
	DmgFire        int
	DmgEarth       int
	DmgWater       int
	DmgAir         int
	Dmg            int
	ResFire        int
	ResEarth       int
	ResWater       int
	ResAir         int
	CriticalStrike int
	Initiative     int
}

// Record is the live character state as last fetched from the server
type Record struct {
	Name              string
	Level             int
	HP                int
	MaxHP             int
	Gold              int
	X                 int
	Y                 int
	Skills            map[game.Skill]int
	Equipment         map[Slot]string
	UtilityQuantities map[Slot]int
	Inventory         []InventorySlot
	InventoryMaxItems int
	Combat            CombatAttributes

	TaskCode     string
	TaskType     string // monsters or items
	TaskProgress int
	TaskTotal    int
	TaskCoins    int

	CooldownExpiration time.Time
}

// HPPercent returns current HP as a percentage of max HP
func (r *Record) HPPercent() int {
	if r.MaxHP <= 0 {
		return 0
	}
	return r.HP * 100 / r.MaxHP
}

// IsAt reports whether the character stands on the given tile
func (r *Record) IsAt(x, y int) bool {
	return r.X == x && r.Y == y
}

// InventoryCount returns the total number of carried items
func (r *Record) InventoryCount() int {
	total := 0
	for _, s := range r.Inventory {
		total += s.Quantity
	}
	return total
}

// InventoryCapacity returns the maximum number of carriable items
func (r *Record) InventoryCapacity() int {
	return r.InventoryMaxItems
}

// InventoryFull reports whether no more items fit
func (r *Record) InventoryFull() bool {
	return r.InventoryCount() >= r.InventoryMaxItems
}

// InventoryFreeSlots returns the number of empty inventory lines
func (r *Record) InventoryFreeSlots() int {
	used := 0
	for _, s := range r.Inventory {
		if s.Quantity > 0 {
			used++
		}
	}
	return len(r.Inventory) - used
}

// ItemCount returns how many of the item the character carries (inventory
// only, not equipped)
func (r *Record) ItemCount(code string) int {
	total := 0
	for _, s := range r.Inventory {
		if s.Code == code {
			total += s.Quantity
		}
	}
	return total
}

// EquippedCount returns how many of the item are equipped across all slots,
// counting utility stack sizes.
func (r *Record) EquippedCount(code string) int {
	total := 0
	for slot, equipped := range r.Equipment {
		if equipped != code {
			continue
		}
		if qty, ok := r.UtilityQuantities[slot]; ok && qty > 0 {
			total += qty
		} else {
			total++
		}
	}
	return total
}

// SkillLevel returns the character's level in the given skill
func (r *Record) SkillLevel(skill game.Skill) int {
	return r.Skills[skill]
}

// HasTask reports whether the character holds an active task
func (r *Record) HasTask() bool {
	return r.TaskCode != ""
}

// TaskComplete reports whether the active task reached its target
func (r *Record) TaskComplete() bool {
	return r.HasTask() && r.TaskProgress >= r.TaskTotal
}

// Clone returns a deep copy of the record
func (r *Record) Clone() *Record {
	cp := *r
	cp.Skills = make(map[game.Skill]int, len(r.Skills))
	for k, v := range r.Skills {
		cp.Skills[k] = v
	}
	cp.Equipment = make(map[Slot]string, len(r.Equipment))
	for k, v := range r.Equipment {
		cp.Equipment[k] = v
	}
	cp.UtilityQuantities = make(map[Slot]int, len(r.UtilityQuantities))
	for k, v := range r.UtilityQuantities {
		cp.UtilityQuantities[k] = v
	}
	cp.Inventory = make([]InventorySlot, len(r.Inventory))
	copy(cp.Inventory, r.Inventory)
	return &cp
}
