package gearstate

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/andrescamacho/artifacts-go/internal/adapters/persistence"
	"github.com/andrescamacho/artifacts-go/internal/application/bank"
	"github.com/andrescamacho/artifacts-go/internal/application/common"
	"github.com/andrescamacho/artifacts-go/internal/application/orderboard"
	"github.com/andrescamacho/artifacts-go/internal/domain/character"
	"github.com/andrescamacho/artifacts-go/internal/domain/game"
	"github.com/andrescamacho/artifacts-go/internal/domain/gear"
	"github.com/andrescamacho/artifacts-go/internal/domain/orders"
	"github.com/andrescamacho/artifacts-go/internal/domain/shared"
)

const (
	persistVersion = 2
	debounceDelay  = 250 * time.Millisecond

	// carrySlack is the inventory headroom excluded from the gear carry
	// budget so a full loadout never starves gathering space.
	carrySlack = 10
)

// RosterEntry is one tracked character in configured order
type RosterEntry struct {
	Name          string
	CreateOrders  bool
	PotionTargets map[string]int
}

// CharPlan is the planner's verdict for one character. Owned is the
// first-dibs claim set protected from deposit; Available the stock-backed
// mirror of it at recompute time; Assigned the identical-code slice backed by
// account stock; Desired what remains unmet. The snapshot fields record the
// inputs the plan was computed against.
type CharPlan struct {
	Available            map[string]int `json:"available"`
	Assigned             map[string]int `json:"assigned"`
	Owned                map[string]int `json:"owned"`
	Desired              map[string]int `json:"desired"`
	Required             map[string]int `json:"required"`
	SelectedMonsters     []string       `json:"selectedMonsters"`
	BestTarget           string         `json:"bestTarget"`
	LevelSnapshot        int            `json:"levelSnapshot"`
	BankRevisionSnapshot int64          `json:"bankRevisionSnapshot"`
	UpdatedAtMs          int64          `json:"updatedAtMs"`
}

type persistedState struct {
	Version              int                  `json:"version"`
	UpdatedAtMs          int64                `json:"updatedAtMs"`
	BankRevisionSnapshot int64                `json:"bankRevisionSnapshot"`
	Levels               map[string]int       `json:"levels"`
	Characters           map[string]*CharPlan `json:"characters"`
}

// Planner decides which gear each character should own, desire, and protect
// from deposit. One instance serves the whole account; recomputes are driven
// by bank-revision or level changes.
type Planner struct {
	mu        sync.Mutex
	clock     shared.Clock
	path      string
	catalog   *game.Catalog
	inv       *bank.Inventory
	board     *orderboard.Board
	optimizer Optimizer
	roster    []RosterEntry
	debouncer *persistence.Debouncer

	chars        map[string]*CharPlan
	levels       map[string]int
	bankRevision int64
	init         bool
}

// NewPlanner creates a planner persisting to path
func NewPlanner(path string, catalog *game.Catalog, inv *bank.Inventory, board *orderboard.Board, optimizer Optimizer, roster []RosterEntry, clock shared.Clock) *Planner {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	p := &Planner{
		clock:     clock,
		path:      path,
		catalog:   catalog,
		inv:       inv,
		board:     board,
		optimizer: optimizer,
		roster:    roster,
		chars:     make(map[string]*CharPlan),
		levels:    make(map[string]int),
	}
	p.debouncer = persistence.NewDebouncer(debounceDelay, p.persist)
	return p
}

// Initialize loads the prior state file and normalizes it
func (p *Planner) Initialize() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var state persistedState
	if err := persistence.ReadJSON(p.path, &state); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load gear state: %w", err)
		}
	} else {
		p.bankRevision = state.BankRevisionSnapshot
		if state.Levels != nil {
			p.levels = state.Levels
		}
		for name, plan := range state.Characters {
			p.chars[name] = normalizePlan(plan)
		}
	}
	p.init = true
	return nil
}

func normalizePlan(plan *CharPlan) *CharPlan {
	if plan == nil {
		plan = &CharPlan{}
	}
	plan.Available = clampCounts(plan.Available)
	plan.Owned = clampCounts(plan.Owned)
	plan.Assigned = clampCounts(plan.Assigned)
	plan.Desired = clampCounts(plan.Desired)
	plan.Required = clampCounts(plan.Required)
	// Files written before the owned key existed carried the claim set
	// under available only.
	if len(plan.Owned) == 0 && len(plan.Available) > 0 {
		plan.Owned = clampCounts(plan.Available)
	}
	return plan
}

func clampCounts(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for code, qty := range m {
		if qty > 0 {
			out[code] = qty
		}
	}
	return out
}

// MaybeRecompute recomputes when the bank revision moved or any tracked
// character's level changed since the last pass.
func (p *Planner) MaybeRecompute(records map[string]*character.Record) error {
	p.mu.Lock()
	changed := p.inv.Revision() != p.bankRevision
	if !changed {
		for name, rec := range records {
			if p.levels[name] != rec.Level {
				changed = true
				break
			}
		}
	}
	p.mu.Unlock()
	if !changed {
		return nil
	}
	return p.Recompute(records)
}

// Recompute runs the full planning pass: per-character requirements,
// account-wide assignment, fallback claims, and desired-order publishing.
func (p *Planner) Recompute(records map[string]*character.Record) error {
	type charResult struct {
		entry    RosterEntry
		rec      *character.Record
		plan     *CharPlan
		selected map[string]int
	}
	var results []charResult
	for _, entry := range p.roster {
		rec := records[entry.Name]
		if rec == nil {
			continue
		}
		plan, selected, err := p.computeChar(entry, rec)
		if err != nil {
			return err
		}
		results = append(results, charResult{entry: entry, rec: rec, plan: plan, selected: selected})
	}

	availability := p.globalCounts(records)
	for _, res := range results {
		for _, code := range sortedCodes(res.selected) {
			need := res.selected[code]
			take := need
			if avail := availability[code]; take > avail {
				take = avail
			}
			if take > 0 {
				res.plan.Assigned[code] = take
				res.plan.Owned[code] += take
				availability[code] -= take
			}
			if rest := need - take; rest > 0 {
				res.plan.Desired[code] = rest
			}
		}
	}
	for _, res := range results {
		p.fillFallbacks(res.rec, res.plan, availability)
	}

	p.mu.Lock()
	now := shared.NowMs(p.clock)
	revision := p.inv.Revision()
	p.chars = make(map[string]*CharPlan, len(results))
	p.levels = make(map[string]int, len(results))
	for _, res := range results {
		res.plan.Available = clampCounts(res.plan.Owned)
		res.plan.LevelSnapshot = res.rec.Level
		res.plan.BankRevisionSnapshot = revision
		res.plan.UpdatedAtMs = now
		p.chars[res.entry.Name] = res.plan
		p.levels[res.entry.Name] = res.rec.Level
	}
	p.bankRevision = revision
	p.mu.Unlock()
	p.debouncer.Trigger()

	for _, res := range results {
		if res.entry.CreateOrders {
			p.publishDesired(res.entry.Name, res.plan)
		}
	}
	return nil
}

// computeChar runs the per-character requirement computation
func (p *Planner) computeChar(entry RosterEntry, rec *character.Record) (*CharPlan, map[string]int, error) {
	var winnable []*gear.OptimizeResult
	for _, monster := range p.catalog.MonstersUpTo(rec.Level) {
		result, err := p.optimizer.Optimize(rec, monster.Code)
		if err != nil {
			return nil, nil, err
		}
		if result.Viable() {
			winnable = append(winnable, result)
		}
	}
	gear.RankResults(winnable)

	required := make(map[string]int)
	for _, record := range winnable {
		for code, n := range record.Counts() {
			if n > required[code] {
				required[code] = n
			}
		}
	}
	for code, qty := range entry.PotionTargets {
		if qty > required[code] {
			required[code] = qty
		}
	}
	for _, tool := range p.toolsFor(rec) {
		if required[tool] < 1 {
			required[tool] = 1
		}
	}

	carryBudget := rec.InventoryCapacity() - carrySlack
	if carryBudget < 0 {
		carryBudget = 0
	}
	selected := make(map[string]int)
	total := 0
	if len(winnable) > 0 {
		best := winnable[0]
		for _, slot := range character.CarrySlotPriority {
			code := best.Loadout[slot]
			if code == "" {
				continue
			}
			if total >= carryBudget {
				break
			}
			selected[code]++
			total++
		}
		total = p.greedyCoverage(winnable, selected, total, carryBudget)
	}
	// Potion targets fill the remaining budget, largest stacks first.
	for _, code := range potionOrder(entry.PotionTargets) {
		qty := entry.PotionTargets[code]
		if room := carryBudget - total; qty > room {
			qty = room
		}
		if qty > 0 {
			selected[code] += qty
			total += qty
		}
	}
	// Tools are always carried, budget or not.
	for _, tool := range p.toolsFor(rec) {
		if selected[tool] < 1 {
			selected[tool] = 1
			total++
		}
	}

	plan := &CharPlan{
		Owned:    make(map[string]int),
		Assigned: make(map[string]int),
		Desired:  make(map[string]int),
		Required: required,
	}
	for _, record := range winnable {
		if gear.Dominates(selected, record) {
			plan.SelectedMonsters = append(plan.SelectedMonsters, record.MonsterCode)
		}
	}
	if len(winnable) > 0 {
		plan.BestTarget = winnable[0].MonsterCode
	}
	return plan, selected, nil
}

// greedyCoverage adds the cheapest extra loadouts that cover still-uncovered
// winnable monsters until the budget runs out.
func (p *Planner) greedyCoverage(winnable []*gear.OptimizeResult, selected map[string]int, total, budget int) int {
	for {
		var bestRecord *gear.OptimizeResult
		bestCost := 0
		for _, record := range winnable {
			if gear.Dominates(selected, record) {
				continue
			}
			cost := 0
			for code, need := range record.Counts() {
				if extra := need - selected[code]; extra > 0 {
					cost += extra
				}
			}
			if total+cost > budget {
				continue
			}
			if bestRecord == nil || cost < bestCost {
				bestRecord, bestCost = record, cost
			}
		}
		if bestRecord == nil {
			return total
		}
		for code, need := range bestRecord.Counts() {
			if extra := need - selected[code]; extra > 0 {
				selected[code] += extra
				total += extra
			}
		}
	}
}

// toolsFor returns the best tool code per gathering skill the character has
// leveled.
func (p *Planner) toolsFor(rec *character.Record) []string {
	var tools []string
	for _, skill := range game.GatheringSkills {
		if rec.SkillLevel(skill) <= 0 {
			continue
		}
		if tool := p.catalog.BestToolFor(skill); tool != nil && tool.Level <= rec.SkillLevel(skill) {
			tools = append(tools, tool.Code)
		}
	}
	sort.Strings(tools)
	return tools
}

// globalCounts sums bank stock plus every tracked character's carried and
// equipped items.
func (p *Planner) globalCounts(records map[string]*character.Record) map[string]int {
	counts := make(map[string]int)
	for code, qty := range p.inv.Snapshot().Items {
		counts[code] += qty
	}
	for _, entry := range p.roster {
		rec := records[entry.Name]
		if rec == nil {
			continue
		}
		for _, line := range rec.Inventory {
			counts[line.Code] += line.Quantity
		}
		for _, code := range rec.Equipment {
			if code != "" {
				counts[code]++
			}
		}
	}
	return counts
}

// fallbackPriority orders substitution sources: gear the character can wear
// right now beats carried gear, and non-tools beat tools.
func fallbackPriority(equipped, tool bool) int {
	switch {
	case equipped && !tool:
		return 0
	case !equipped && !tool:
		return 1
	case equipped && tool:
		return 2
	default:
		return 3
	}
}

// fillFallbacks substitutes same-category items for desired codes with no
// identical stock, consuming the shared availability counter.
func (p *Planner) fillFallbacks(rec *character.Record, plan *CharPlan, availability map[string]int) {
	for _, code := range sortedCodes(plan.Desired) {
		want := p.catalog.Item(code)
		if want == nil {
			continue
		}
		remaining := plan.Desired[code]
		type candidate struct {
			code     string
			priority int
		}
		var candidates []candidate
		seen := make(map[string]bool)
		consider := func(itemCode string, equipped bool) {
			if itemCode == "" || itemCode == code || seen[itemCode] {
				return
			}
			seen[itemCode] = true
			it := p.catalog.Item(itemCode)
			if it == nil || it.Type != want.Type || it.Level > rec.Level {
				return
			}
			if availability[itemCode] <= 0 {
				return
			}
			candidates = append(candidates, candidate{code: itemCode, priority: fallbackPriority(equipped, it.IsTool())})
		}
		for _, itemCode := range rec.Equipment {
			consider(itemCode, true)
		}
		for _, line := range rec.Inventory {
			consider(line.Code, false)
		}
		for owned := range plan.Owned {
			consider(owned, false)
		}
		sort.Slice(candidates, func(i, j int) bool {
			if candidates[i].priority != candidates[j].priority {
				return candidates[i].priority < candidates[j].priority
			}
			return candidates[i].code < candidates[j].code
		})
		for _, cand := range candidates {
			if remaining <= 0 {
				break
			}
			take := availability[cand.code]
			if take > remaining {
				take = remaining
			}
			plan.Owned[cand.code] += take
			availability[cand.code] -= take
			remaining -= take
		}
	}
}

// publishDesired enqueues craft orders for the character's unmet gear
func (p *Planner) publishDesired(charName string, plan *CharPlan) {
	if p.board == nil {
		return
	}
	for _, code := range sortedCodes(plan.Desired) {
		it := p.catalog.Item(code)
		if it == nil || !it.IsCraftable() || it.IsTool() {
			continue
		}
		_, _ = p.board.CreateOrMerge(orderboard.CreateRequest{
			SourceType:    orders.SourceCraft,
			SourceCode:    code,
			ItemCode:      code,
			CraftSkill:    string(it.Craft.Skill),
			SourceLevel:   it.Craft.Level,
			RequesterName: charName,
			RecipeCode:    fmt.Sprintf("gear_state:%s:%s", charName, code),
			Quantity:      plan.Desired[code],
		})
	}
}

// OwnedMap returns a copy of the character's first-dibs claims
func (p *Planner) OwnedMap(name string) map[string]int {
	return p.copyOf(name, func(plan *CharPlan) map[string]int { return plan.Owned })
}

// AssignedMap returns a copy of the character's stock-backed assignments
func (p *Planner) AssignedMap(name string) map[string]int {
	return p.copyOf(name, func(plan *CharPlan) map[string]int { return plan.Assigned })
}

// DesiredMap returns a copy of the character's unmet wants
func (p *Planner) DesiredMap(name string) map[string]int {
	return p.copyOf(name, func(plan *CharPlan) map[string]int { return plan.Desired })
}

func (p *Planner) copyOf(name string, pick func(*CharPlan) map[string]int) map[string]int {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]int)
	if plan, ok := p.chars[name]; ok {
		for code, qty := range pick(plan) {
			out[code] = qty
		}
	}
	return out
}

// BestTarget returns the character's top-ranked monster, "" when unknown
func (p *Planner) BestTarget(name string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if plan, ok := p.chars[name]; ok {
		return plan.BestTarget
	}
	return ""
}

// SelectedMonsters returns the monsters the character's selected gear covers
func (p *Planner) SelectedMonsters(name string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if plan, ok := p.chars[name]; ok {
		return append([]string(nil), plan.SelectedMonsters...)
	}
	return nil
}

// OwnedKeepByCodeForInventory returns, per owned code, the count to keep in
// the character's inventory: the claim minus what is already equipped. Used
// by the deposit routine to protect claimed items.
func (p *Planner) OwnedKeepByCodeForInventory(cc *common.CharContext) map[string]int {
	rec := cc.Record()
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]int)
	plan, ok := p.chars[cc.Name()]
	if !ok {
		return out
	}
	for code, qty := range plan.Owned {
		if keep := qty - rec.EquippedCount(code); keep > 0 {
			out[code] = keep
		}
	}
	return out
}

// OwnedDeficitRequests returns the owned items the character does not carry
// yet, driving withdraw-on-demand.
func (p *Planner) OwnedDeficitRequests(cc *common.CharContext) map[string]int {
	rec := cc.Record()
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]int)
	plan, ok := p.chars[cc.Name()]
	if !ok {
		return out
	}
	for code, qty := range plan.Owned {
		have := rec.EquippedCount(code) + rec.ItemCount(code)
		if deficit := qty - have; deficit > 0 {
			out[code] = deficit
		}
	}
	return out
}

// ClaimedTotal returns the account-wide claims on an item code
func (p *Planner) ClaimedTotal(code string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	total := 0
	for _, plan := range p.chars {
		total += plan.Owned[code]
	}
	return total
}

// ClaimedTotalsMap returns account-wide claims for every item code
func (p *Planner) ClaimedTotalsMap() map[string]int {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]int)
	for _, plan := range p.chars {
		for code, qty := range plan.Owned {
			out[code] += qty
		}
	}
	return out
}

// IsClaimedByAnyCharacter reports whether any character claims the item
func (p *Planner) IsClaimedByAnyCharacter(code string) bool {
	return p.ClaimedTotal(code) > 0
}

// Flush persists synchronously
func (p *Planner) Flush() {
	p.debouncer.Flush()
}

// Close flushes and stops the persistence debouncer
func (p *Planner) Close() {
	p.debouncer.Flush()
	p.debouncer.Stop()
}

func (p *Planner) persist() {
	p.mu.Lock()
	state := persistedState{
		Version:              persistVersion,
		UpdatedAtMs:          shared.NowMs(p.clock),
		BankRevisionSnapshot: p.bankRevision,
		Levels:               make(map[string]int, len(p.levels)),
		Characters:           make(map[string]*CharPlan, len(p.chars)),
	}
	for name, level := range p.levels {
		state.Levels[name] = level
	}
	for name, plan := range p.chars {
		cp := &CharPlan{
			Available:            clampCounts(plan.Available),
			Owned:                clampCounts(plan.Owned),
			Assigned:             clampCounts(plan.Assigned),
			Desired:              clampCounts(plan.Desired),
			Required:             clampCounts(plan.Required),
			SelectedMonsters:     append([]string(nil), plan.SelectedMonsters...),
			BestTarget:           plan.BestTarget,
			LevelSnapshot:        plan.LevelSnapshot,
			BankRevisionSnapshot: plan.BankRevisionSnapshot,
			UpdatedAtMs:          plan.UpdatedAtMs,
		}
		state.Characters[name] = cp
	}
	p.mu.Unlock()
	_ = persistence.WriteJSONAtomic(p.path, state)
}

func sortedCodes(m map[string]int) []string {
	codes := make([]string, 0, len(m))
	for code := range m {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

func potionOrder(targets map[string]int) []string {
	codes := make([]string, 0, len(targets))
	for code := range targets {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool {
		if targets[codes[i]] != targets[codes[j]] {
			return targets[codes[i]] > targets[codes[j]]
		}
		return codes[i] < codes[j]
	})
	return codes
}
