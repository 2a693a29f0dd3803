package routines

import (
	"context"
	"sort"
	"time"

	"github.com/andrescamacho/artifacts-go/internal/application/bank"
	"github.com/andrescamacho/artifacts-go/internal/application/common"
	"github.com/andrescamacho/artifacts-go/internal/application/events"
	"github.com/andrescamacho/artifacts-go/internal/application/orderboard"
	"github.com/andrescamacho/artifacts-go/internal/domain/character"
	"github.com/andrescamacho/artifacts-go/internal/domain/combat"
	"github.com/andrescamacho/artifacts-go/internal/domain/game"
	"github.com/andrescamacho/artifacts-go/internal/domain/orders"
	"github.com/andrescamacho/artifacts-go/internal/domain/shared"
	"github.com/andrescamacho/artifacts-go/internal/infrastructure/config"
)

const (
	defaultEventCooldown = 60 * time.Second
	eventTickBackoff     = 30 * time.Second
	npcBuyActionCap      = 100
	eliteScoreBonus      = 20
)

// CombatOutfitter prepares a character for a specific fight: equips the
// planned combat loadout and refills utility potions. The event routine
// tolerates a nil outfitter and fights with whatever is equipped.
type CombatOutfitter interface {
	EquipForMonster(ctx context.Context, cc *common.CharContext, monsterCode string) error
	PreparePotions(ctx context.Context, cc *common.CharContext, monsterCode string) error
}

// EventRoutine chases live world events: event monsters, event resource
// nodes, and traveling merchant NPCs. Urgent and looping; the target is
// sticky across ticks so a deposit trip resumes the same event.
type EventRoutine struct {
	Hints
	manager   *events.Manager
	lock      *events.NPCLock
	catalog   *game.Catalog
	ops       *bank.Ops
	board     *orderboard.Board
	outfitter CombatOutfitter
	buyList   func(npcCode string) []config.NPCBuyEntry
	clock     shared.Clock

	enabled         bool
	monsterEvents   bool
	resourceEvents  bool
	npcEvents       bool
	minRemaining    time.Duration
	maxMonsterType  string
	cooldown        time.Duration
	minWinrate      int
	gatherResources []string

	target        *events.Entry
	prepared      bool
	cooldownUntil map[string]time.Time
	backoffUntil  time.Time
	npcSkip       map[string]map[string]bool // npcCode -> itemCode with error 441
}

// NewEventRoutine creates the event routine at its baseline priority
func NewEventRoutine(manager *events.Manager, lock *events.NPCLock, catalog *game.Catalog, ops *bank.Ops, board *orderboard.Board, outfitter CombatOutfitter, buyList func(string) []config.NPCBuyEntry, clock shared.Clock, opts *config.RoutineOptions) *EventRoutine {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	r := &EventRoutine{
		Hints:          NewHints(90, true, true),
		manager:        manager,
		lock:           lock,
		catalog:        catalog,
		ops:            ops,
		board:          board,
		outfitter:      outfitter,
		buyList:        buyList,
		clock:          clock,
		monsterEvents:  true,
		resourceEvents: true,
		npcEvents:      true,
		cooldown:       defaultEventCooldown,
		cooldownUntil:  make(map[string]time.Time),
		npcSkip:        make(map[string]map[string]bool),
	}
	r.applyOptions(opts)
	return r
}

func (r *EventRoutine) applyOptions(opts *config.RoutineOptions) {
	r.ApplyOverrides(opts)
	if opts == nil {
		return
	}
	r.enabled = opts.Enabled
	r.monsterEvents = opts.MonsterEvents
	r.resourceEvents = opts.ResourceEvents
	r.npcEvents = opts.NPCEvents
	if opts.MinTimeRemainingMs > 0 {
		r.minRemaining = time.Duration(opts.MinTimeRemainingMs) * time.Millisecond
	}
	r.maxMonsterType = opts.MaxMonsterType
	if opts.CooldownMs > 0 {
		r.cooldown = time.Duration(opts.CooldownMs) * time.Millisecond
	}
	r.minWinrate = opts.MinWinrate
	r.gatherResources = opts.GatherResources
}

func (r *EventRoutine) Name() string { return "event" }

func (r *EventRoutine) onCooldown(code string) bool {
	until, ok := r.cooldownUntil[code]
	return ok && r.clock.Now().Before(until)
}

func (r *EventRoutine) setCooldown(code string, d time.Duration) {
	r.cooldownUntil[code] = r.clock.Now().Add(d)
}

func (r *EventRoutine) eligible(e *events.Entry) bool {
	if r.onCooldown(e.Code) {
		return false
	}
	if r.minRemaining > 0 && r.manager.GetTimeRemaining(e.Code) < r.minRemaining {
		return false
	}
	return true
}

func (r *EventRoutine) scoreMonster(e *events.Entry) (int, bool) {
	m := r.catalog.Monster(e.ContentCode)
	if m == nil || m.Type == "boss" {
		return 0, false
	}
	if r.maxMonsterType == "normal" && m.Type == "elite" {
		return 0, false
	}
	score := m.Level
	if m.Type == "elite" {
		score += eliteScoreBonus
	}
	return score, true
}

// resourceAllowed applies the configured whitelist; empty means every event
// resource qualifies.
func (r *EventRoutine) resourceAllowed(code string) bool {
	if len(r.gatherResources) == 0 {
		return true
	}
	for _, c := range r.gatherResources {
		if c == code {
			return true
		}
	}
	return false
}

func (r *EventRoutine) scoreResource(e *events.Entry, rec *character.Record) (int, bool) {
	if !r.resourceAllowed(e.ContentCode) {
		return 0, false
	}
	res := r.catalog.Resource(e.ContentCode)
	if res == nil {
		return 0, false
	}
	if res.Level > rec.SkillLevel(game.Skill(res.Skill)) {
		return 0, false
	}
	return res.Level, true
}

// meetsWinrate applies the configured floor: the simulated fight must keep at
// least minWinrate percent of max HP.
func (r *EventRoutine) meetsWinrate(sim combat.Result) bool {
	return r.minWinrate <= 0 || 100-sim.HPLostPercent >= r.minWinrate
}

// findBestEvent picks a target, sticky on the current one while it remains
// active and off cooldown. NPC events only win when no monster or resource
// event does.
func (r *EventRoutine) findBestEvent(cc *common.CharContext) *events.Entry {
	if r.target != nil {
		if r.manager.IsEventActive(r.target.Code) && !r.onCooldown(r.target.Code) {
			return r.target
		}
		r.clearTarget(cc)
	}
	rec := cc.Record()
	var best *events.Entry
	bestScore := 0
	if r.monsterEvents {
		for _, e := range r.manager.GetActiveMonsterEvents() {
			if !r.eligible(e) {
				continue
			}
			if score, ok := r.scoreMonster(e); ok && score > bestScore {
				best, bestScore = e, score
			}
		}
	}
	if r.resourceEvents {
		for _, e := range r.manager.GetActiveResourceEvents() {
			if !r.eligible(e) {
				continue
			}
			if score, ok := r.scoreResource(e, rec); ok && score > bestScore {
				best, bestScore = e, score
			}
		}
	}
	if best == nil && r.npcEvents {
		for _, e := range r.manager.GetActiveNpcEvents() {
			if !r.eligible(e) {
				continue
			}
			holder := r.lock.Holder(e.Code)
			if holder != "" && holder != cc.Name() {
				continue
			}
			if len(r.shoppingList(cc, e)) == 0 {
				continue
			}
			best = e
			break
		}
	}
	return best
}

func (r *EventRoutine) clearTarget(cc *common.CharContext) {
	if r.target != nil && r.target.ContentType == "npc" {
		r.lock.Release(r.target.Code, cc.Name())
	}
	r.target = nil
	r.prepared = false
}

func (r *EventRoutine) CanRun(ctx context.Context, cc *common.CharContext) bool {
	if !r.enabled || r.clock.Now().Before(r.backoffUntil) {
		return false
	}
	if cc.Record().InventoryFull() {
		return false
	}
	// A held NPC event that vanished must free the lock even when no new
	// target is available this tick.
	if r.target != nil && !r.manager.IsEventActive(r.target.Code) {
		r.clearTarget(cc)
	}
	found := r.findBestEvent(cc)
	if found != nil {
		r.target = found
	}
	return found != nil
}

func (r *EventRoutine) CanBePreempted(ctx context.Context, cc *common.CharContext) bool {
	return true
}

func (r *EventRoutine) Execute(ctx context.Context, cc *common.CharContext) (bool, error) {
	target := r.target
	if target == nil || !r.manager.IsEventActive(target.Code) {
		r.clearTarget(cc)
		return false, nil
	}
	switch target.ContentType {
	case "monster":
		return r.fightEvent(ctx, cc, target)
	case "resource":
		return r.gatherEvent(ctx, cc, target)
	case "npc":
		return r.shopEvent(ctx, cc, target)
	}
	r.clearTarget(cc)
	return false, nil
}

func (r *EventRoutine) fightEvent(ctx context.Context, cc *common.CharContext, target *events.Entry) (bool, error) {
	monster := r.catalog.Monster(target.ContentCode)
	if monster == nil {
		r.clearTarget(cc)
		return false, nil
	}
	sim := combat.Simulate(combat.FromCharacter(cc.Record()), combat.FromMonster(monster), combat.Options{})
	if !sim.IsViableWin() || !r.meetsWinrate(sim) {
		// Expected loss: stand down until the event expires.
		d := r.manager.GetTimeRemaining(target.Code)
		if d < defaultEventCooldown {
			d = defaultEventCooldown
		}
		r.setCooldown(target.Code, d)
		r.clearTarget(cc)
		return false, nil
	}
	if !r.prepared && r.outfitter != nil {
		if err := r.outfitter.EquipForMonster(ctx, cc, monster.Code); err != nil {
			r.setCooldown(target.Code, r.cooldown)
			r.clearTarget(cc)
			return false, nil
		}
		if err := r.outfitter.PreparePotions(ctx, cc, monster.Code); err != nil {
			return false, err
		}
		r.prepared = true
	}
	if err := cc.MoveTo(ctx, target.X, target.Y); err != nil {
		r.setCooldown(target.Code, r.cooldown)
		r.clearTarget(cc)
		return false, err
	}
	// Top up before the pull when possible; fight regardless.
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
		cc.RecordLoss(monster.Code)
		r.setCooldown(target.Code, r.cooldown)
		r.clearTarget(cc)
		return false, nil
	}
	cc.ClearLosses(monster.Code)
	return r.manager.IsEventActive(target.Code), nil
}

func (r *EventRoutine) gatherEvent(ctx context.Context, cc *common.CharContext, target *events.Entry) (bool, error) {
	res := r.catalog.Resource(target.ContentCode)
	if res == nil {
		r.clearTarget(cc)
		return false, nil
	}
	if !r.prepared {
		if err := r.equipTool(ctx, cc, game.Skill(res.Skill)); err != nil {
			return false, err
		}
		r.prepared = true
	}
	if err := cc.MoveTo(ctx, target.X, target.Y); err != nil {
		r.setCooldown(target.Code, r.cooldown)
		r.clearTarget(cc)
		return false, err
	}
	out, err := cc.API().Gather(ctx, cc.Name())
	if err != nil {
		if shared.IsAPIError(err, shared.CodeInventoryFull) {
			// Yield for a deposit; target and preparation survive.
			return false, nil
		}
		return false, err
	}
	if err := cc.Apply(ctx, out); err != nil {
		return false, err
	}
	if cc.Record().InventoryFull() {
		return false, nil
	}
	return r.manager.IsEventActive(target.Code), nil
}

// buyLine is one computed purchase at an event NPC
type buyLine struct {
	code     string
	quantity int
	price    int
}

// shoppingList merges the configured NPC buy list with open gather/craft
// orders for items this NPC sells, skipping items the NPC refused before.
func (r *EventRoutine) shoppingList(cc *common.CharContext, target *events.Entry) []buyLine {
	npc := r.catalog.NPC(target.ContentCode)
	if npc == nil {
		return nil
	}
	skip := r.npcSkip[npc.Code]
	wanted := make(map[string]int)
	if r.buyList != nil {
		for _, entry := range r.buyList(npc.Code) {
			if entry.Quantity > 0 {
				wanted[entry.Code] += entry.Quantity
			}
		}
	}
	if r.board != nil {
		for _, o := range r.board.GetSnapshot().Orders {
			if o.Status == orders.StatusFulfilled || o.RemainingQty <= 0 {
				continue
			}
			wanted[o.ItemCode] += o.RemainingQty
		}
	}
	var list []buyLine
	for code, qty := range wanted {
		if skip[code] {
			continue
		}
		price := npc.Sells(code)
		if price <= 0 {
			continue
		}
		list = append(list, buyLine{code: code, quantity: qty, price: price})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].code < list[j].code })
	return list
}

func (r *EventRoutine) shopEvent(ctx context.Context, cc *common.CharContext, target *events.Entry) (bool, error) {
	if !r.lock.TryAcquire(target.Code, cc.Name()) {
		r.clearTarget(cc)
		return false, nil
	}
	list := r.shoppingList(cc, target)
	if len(list) == 0 {
		r.clearTarget(cc)
		r.backoffUntil = r.clock.Now().Add(eventTickBackoff)
		return false, nil
	}
	line := list[0]
	rec := cc.Record()
	qty := line.quantity
	if qty > npcBuyActionCap {
		qty = npcBuyActionCap
	}
	if free := rec.InventoryCapacity() - rec.InventoryCount(); qty > free {
		qty = free
	}
	needed := qty * line.price
	if short := needed - rec.Gold; short > 0 {
		if r.ops.Inventory().Gold() >= short {
			if err := r.ops.WithdrawGold(ctx, cc, short); err != nil {
				return false, err
			}
		} else if afford := rec.Gold / line.price; afford < qty {
			qty = afford
		}
	}
	if qty <= 0 {
		r.clearTarget(cc)
		r.backoffUntil = r.clock.Now().Add(eventTickBackoff)
		return false, nil
	}
	if err := cc.MoveTo(ctx, target.X, target.Y); err != nil {
		r.setCooldown(target.Code, r.cooldown)
		r.clearTarget(cc)
		return false, err
	}
	res, err := cc.API().NpcBuy(ctx, cc.Name(), line.code, qty)
	if err != nil {
		if shared.IsAPIError(err, shared.CodeItemNotSoldByNPC) {
			if r.npcSkip[target.ContentCode] == nil {
				r.npcSkip[target.ContentCode] = make(map[string]bool)
			}
			r.npcSkip[target.ContentCode][line.code] = true
			return r.manager.IsEventActive(target.Code), nil
		}
		return false, err
	}
	if err := cc.Apply(ctx, res); err != nil {
		return false, err
	}
	return r.manager.IsEventActive(target.Code), nil
}

// equipTool swaps in the best carried or banked tool for the skill
func (r *EventRoutine) equipTool(ctx context.Context, cc *common.CharContext, skill game.Skill) error {
	tool := r.catalog.BestToolFor(skill)
	if tool == nil {
		return nil
	}
	rec := cc.Record()
	if rec.Equipment[character.SlotWeapon] == tool.Code {
		return nil
	}
	if rec.ItemCount(tool.Code) == 0 {
		if !r.ops.Inventory().Has(tool.Code, 1) {
			return nil
		}
		if err := r.ops.Withdraw(ctx, cc, map[string]int{tool.Code: 1}); err != nil {
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

func (r *EventRoutine) UpdateConfig(cfg *config.CharacterConfig) {
	r.applyOptions(cfg.Routine(config.RoutineEvent))
}
