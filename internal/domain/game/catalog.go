package game

import (
	"sort"

	"github.com/andrescamacho/artifacts-go/internal/domain/shared"
)

// Catalog is the read-only game-data reference. It is loaded once at startup
// and never mutated afterwards, so lookups need no locking.
type Catalog struct {
	items     map[string]*Item
	monsters  map[string]*Monster
	resources map[string]*Resource
	npcs      map[string]*NPC
	locations []Location
}

// NewCatalog builds a catalog from loaded game data
func NewCatalog(items []*Item, monsters []*Monster, resources []*Resource, npcs []*NPC, locations []Location) *Catalog {
	c := &Catalog{
		items:     make(map[string]*Item, len(items)),
		monsters:  make(map[string]*Monster, len(monsters)),
		resources: make(map[string]*Resource, len(resources)),
		npcs:      make(map[string]*NPC, len(npcs)),
		locations: locations,
	}
	for _, it := range items {
		c.items[it.Code] = it
	}
	for _, m := range monsters {
		c.monsters[m.Code] = m
	}
	for _, r := range resources {
		c.resources[r.Code] = r
	}
	for _, n := range npcs {
		c.npcs[n.Code] = n
	}
	return c
}

// Item returns the item with the given code, or nil
func (c *Catalog) Item(code string) *Item {
	return c.items[code]
}

// Monster returns the monster with the given code, or nil
func (c *Catalog) Monster(code string) *Monster {
	return c.monsters[code]
}

// Resource returns the resource with the given code, or nil
func (c *Catalog) Resource(code string) *Resource {
	return c.resources[code]
}

// NPC returns the NPC with the given code, or nil
func (c *Catalog) NPC(code string) *NPC {
	return c.npcs[code]
}

// MonstersUpTo returns all monsters with level <= maxLevel, sorted by level
// ascending then code for deterministic iteration.
func (c *Catalog) MonstersUpTo(maxLevel int) []*Monster {
	var out []*Monster
	for _, m := range c.monsters {
		if m.Level <= maxLevel {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Level != out[j].Level {
			return out[i].Level < out[j].Level
		}
		return out[i].Code < out[j].Code
	})
	return out
}

// ItemsCraftableWith returns items whose recipe uses the given skill at or
// below maxLevel, sorted by craft level ascending then code.
func (c *Catalog) ItemsCraftableWith(skill Skill, maxLevel int) []*Item {
	var out []*Item
	for _, it := range c.items {
		if it.Craft != nil && it.Craft.Skill == skill && it.Craft.Level <= maxLevel {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Craft.Level != out[j].Craft.Level {
			return out[i].Craft.Level < out[j].Craft.Level
		}
		return out[i].Code < out[j].Code
	})
	return out
}

// BestResourceFor returns the highest-level resource for the skill gatherable
// at the given skill level, or nil when none qualifies.
func (c *Catalog) BestResourceFor(skill Skill, skillLevel int) *Resource {
	var best *Resource
	for _, r := range c.resources {
		if r.Skill != skill || r.Level > skillLevel {
			continue
		}
		if best == nil || r.Level > best.Level || (r.Level == best.Level && r.Code < best.Code) {
			best = r
		}
	}
	return best
}

// ResourceDropping returns a resource that drops the item and is gatherable
// at the given skill level, preferring the lowest-level node.
func (c *Catalog) ResourceDropping(itemCode string) *Resource {
	var best *Resource
	for _, r := range c.resources {
		if !r.DropsItem(itemCode) {
			continue
		}
		if best == nil || r.Level < best.Level || (r.Level == best.Level && r.Code < best.Code) {
			best = r
		}
	}
	return best
}

// MonsterDropping returns the lowest-level monster that drops the item, or nil
func (c *Catalog) MonsterDropping(itemCode string) *Monster {
	var best *Monster
	for _, m := range c.monsters {
		if !m.DropsItem(itemCode) {
			continue
		}
		if best == nil || m.Level < best.Level || (m.Level == best.Level && m.Code < best.Code) {
			best = m
		}
	}
	return best
}

// LocationOf returns the map tile closest to (x, y) holding the given content,
// or an error when the content exists nowhere on the map.
func (c *Catalog) LocationOf(contentType, contentCode string, x, y int) (Location, error) {
	var best Location
	bestDist := -1
	for _, loc := range c.locations {
		if loc.ContentType != contentType {
			continue
		}
		if contentCode != "" && loc.ContentCode != contentCode {
			continue
		}
		dist := abs(loc.X-x) + abs(loc.Y-y)
		if bestDist < 0 || dist < bestDist {
			best = loc
			bestDist = dist
		}
	}
	if bestDist < 0 {
		return Location{}, shared.NewDomainError("no map location for " + contentType + ":" + contentCode)
	}
	return best, nil
}

// WorkshopLocation returns the closest workshop tile for the skill
func (c *Catalog) WorkshopLocation(skill Skill, x, y int) (Location, error) {
	return c.LocationOf("workshop", string(skill), x, y)
}

// BankLocation returns the closest bank tile
func (c *Catalog) BankLocation(x, y int) (Location, error) {
	return c.LocationOf("bank", "", x, y)
}

// TaskMasterLocation returns the closest task master tile of the given type
// (monsters or items)
func (c *Catalog) TaskMasterLocation(taskType string, x, y int) (Location, error) {
	return c.LocationOf("tasks_master", taskType, x, y)
}

// BestToolFor returns the tool item with the strongest effect for the skill
// (most negative cooldown reduction wins), or nil when no tool exists.
func (c *Catalog) BestToolFor(skill Skill) *Item {
	var best *Item
	bestVal := 0
	for _, it := range c.items {
		if !it.IsTool() {
			continue
		}
		v := it.EffectValue(string(skill))
		if v == 0 {
			continue
		}
		if best == nil || v < bestVal || (v == bestVal && it.Code < best.Code) {
			best = it
			bestVal = v
		}
	}
	return best
}

// ContentTypeOf resolves the content type for an event spawn payload that
// omitted it: monster, resource or npc codes are looked up in that order.
func (c *Catalog) ContentTypeOf(code string) string {
	if _, ok := c.monsters[code]; ok {
		return "monster"
	}
	if _, ok := c.resources[code]; ok {
		return "resource"
	}
	if _, ok := c.npcs[code]; ok {
		return "npc"
	}
	return ""
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
