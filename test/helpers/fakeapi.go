// Package helpers provides test doubles shared across package tests.
package helpers

import (
	"context"
	"sync"

	"github.com/andrescamacho/artifacts-go/internal/application/common"
	"github.com/andrescamacho/artifacts-go/internal/domain/character"
	"github.com/andrescamacho/artifacts-go/internal/domain/game"
	"github.com/andrescamacho/artifacts-go/internal/domain/shared"
)

// FakeAPI is an in-memory game server. It keeps one character record and a
// bank, applies actions to them, and returns results with zero cooldown so
// tests run instantly. Scripted errors and reward queues cover the failure
// and exchange paths.
type FakeAPI struct {
	mu   sync.Mutex
	Char *character.Record

	BankItems     map[string]int
	BankGold      int
	ExpansionCost int

	// ExchangeRewards is popped front-first by TaskExchange
	ExchangeRewards [][]character.InventorySlot

	// Errors maps a method name to a scripted error returned once
	Errors map[string]error

	// Calls records method names in invocation order
	Calls []string
}

// NewFakeAPI creates a fake server around the given character record
func NewFakeAPI(char *character.Record) *FakeAPI {
	if char.Skills == nil {
		char.Skills = make(map[game.Skill]int)
	}
	if char.Equipment == nil {
		char.Equipment = make(map[character.Slot]string)
	}
	if char.UtilityQuantities == nil {
		char.UtilityQuantities = make(map[character.Slot]int)
	}
	return &FakeAPI{
		Char:      char,
		BankItems: make(map[string]int),
		Errors:    make(map[string]error),
	}
}

// GiveItem puts items straight into the character's inventory
func (f *FakeAPI) GiveItem(code string, qty int) {
	f.addItem(code, qty)
}

// CallCount returns how many times the method was invoked
func (f *FakeAPI) CallCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Calls {
		if c == method {
			n++
		}
	}
	return n
}

func (f *FakeAPI) begin(method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, method)
	if err, ok := f.Errors[method]; ok {
		delete(f.Errors, method)
		return err
	}
	return nil
}

func (f *FakeAPI) result() *common.ActionResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &common.ActionResult{Character: f.Char.Clone()}
}

func (f *FakeAPI) addItem(code string, qty int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.Char.Inventory {
		if f.Char.Inventory[i].Code == code {
			f.Char.Inventory[i].Quantity += qty
			return
		}
	}
	f.Char.Inventory = append(f.Char.Inventory, character.InventorySlot{Code: code, Quantity: qty})
}

func (f *FakeAPI) removeItem(code string, qty int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.Char.Inventory {
		if f.Char.Inventory[i].Code == code && f.Char.Inventory[i].Quantity >= qty {
			f.Char.Inventory[i].Quantity -= qty
			if f.Char.Inventory[i].Quantity == 0 {
				f.Char.Inventory = append(f.Char.Inventory[:i], f.Char.Inventory[i+1:]...)
			}
			return true
		}
	}
	return false
}

func (f *FakeAPI) GetCharacter(ctx context.Context, name string) (*character.Record, error) {
	if err := f.begin("GetCharacter"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Char.Clone(), nil
}

func (f *FakeAPI) Move(ctx context.Context, name string, x, y int) (*common.ActionResult, error) {
	if err := f.begin("Move"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.Char.X, f.Char.Y = x, y
	f.mu.Unlock()
	return f.result(), nil
}

func (f *FakeAPI) Rest(ctx context.Context, name string) (*common.ActionResult, error) {
	if err := f.begin("Rest"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.Char.HP = f.Char.MaxHP
	f.mu.Unlock()
	return f.result(), nil
}

func (f *FakeAPI) Fight(ctx context.Context, name string) (*common.ActionResult, error) {
	if err := f.begin("Fight"); err != nil {
		return nil, err
	}
	res := f.result()
	res.Fight = &common.FightOutcome{Result: "win"}
	return res, nil
}

func (f *FakeAPI) Gather(ctx context.Context, name string) (*common.ActionResult, error) {
	if err := f.begin("Gather"); err != nil {
		return nil, err
	}
	return f.result(), nil
}

func (f *FakeAPI) Craft(ctx context.Context, name, itemCode string, quantity int) (*common.ActionResult, error) {
	if err := f.begin("Craft"); err != nil {
		return nil, err
	}
	return f.result(), nil
}

func (f *FakeAPI) UseItem(ctx context.Context, name, itemCode string, quantity int) (*common.ActionResult, error) {
	if err := f.begin("UseItem"); err != nil {
		return nil, err
	}
	return f.result(), nil
}

func (f *FakeAPI) Equip(ctx context.Context, name, itemCode string, slot character.Slot, quantity int) (*common.ActionResult, error) {
	if err := f.begin("Equip"); err != nil {
		return nil, err
	}
	if !f.removeItem(itemCode, quantity) {
		return nil, shared.NewDomainError("item not in inventory: " + itemCode)
	}
	f.mu.Lock()
	f.Char.Equipment[slot] = itemCode
	if quantity > 1 {
		f.Char.UtilityQuantities[slot] = quantity
	}
	f.mu.Unlock()
	return f.result(), nil
}

func (f *FakeAPI) Unequip(ctx context.Context, name string, slot character.Slot, quantity int) (*common.ActionResult, error) {
	if err := f.begin("Unequip"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	code := f.Char.Equipment[slot]
	delete(f.Char.Equipment, slot)
	delete(f.Char.UtilityQuantities, slot)
	f.mu.Unlock()
	if code != "" {
		f.addItem(code, quantity)
	}
	return f.result(), nil
}

func (f *FakeAPI) WithdrawBank(ctx context.Context, name string, items []character.InventorySlot) (*common.ActionResult, error) {
	if err := f.begin("WithdrawBank"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	for _, line := range items {
		if f.BankItems[line.Code] < line.Quantity {
			f.mu.Unlock()
			return nil, shared.NewGameAPIError(404, "item not found in bank: "+line.Code)
		}
	}
	for _, line := range items {
		f.BankItems[line.Code] -= line.Quantity
		if f.BankItems[line.Code] == 0 {
			delete(f.BankItems, line.Code)
		}
	}
	f.mu.Unlock()
	for _, line := range items {
		f.addItem(line.Code, line.Quantity)
	}
	return f.result(), nil
}

func (f *FakeAPI) DepositBank(ctx context.Context, name string, items []character.InventorySlot) (*common.ActionResult, error) {
	if err := f.begin("DepositBank"); err != nil {
		return nil, err
	}
	for _, line := range items {
		if !f.removeItem(line.Code, line.Quantity) {
			return nil, shared.NewGameAPIError(478, "missing item: "+line.Code)
		}
		f.mu.Lock()
		f.BankItems[line.Code] += line.Quantity
		f.mu.Unlock()
	}
	return f.result(), nil
}

func (f *FakeAPI) WithdrawGold(ctx context.Context, name string, quantity int) (*common.ActionResult, error) {
	if err := f.begin("WithdrawGold"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	if f.BankGold < quantity {
		f.mu.Unlock()
		return nil, shared.NewGameAPIError(460, "insufficient bank gold")
	}
	f.BankGold -= quantity
	f.Char.Gold += quantity
	f.mu.Unlock()
	return f.result(), nil
}

func (f *FakeAPI) DepositGold(ctx context.Context, name string, quantity int) (*common.ActionResult, error) {
	if err := f.begin("DepositGold"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.Char.Gold -= quantity
	f.BankGold += quantity
	f.mu.Unlock()
	return f.result(), nil
}

func (f *FakeAPI) BuyBankExpansion(ctx context.Context, name string) (*common.ActionResult, error) {
	if err := f.begin("BuyBankExpansion"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.Char.Gold -= f.ExpansionCost
	f.mu.Unlock()
	return f.result(), nil
}

func (f *FakeAPI) GetBankDetails(ctx context.Context) (*common.BankState, error) {
	if err := f.begin("GetBankDetails"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return &common.BankState{Gold: f.BankGold, NextExpansionCost: f.ExpansionCost}, nil
}

func (f *FakeAPI) GetBankItems(ctx context.Context) (map[string]int, error) {
	if err := f.begin("GetBankItems"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]int, len(f.BankItems))
	for code, qty := range f.BankItems {
		out[code] = qty
	}
	return out, nil
}

func (f *FakeAPI) NpcBuy(ctx context.Context, name, itemCode string, quantity int) (*common.ActionResult, error) {
	if err := f.begin("NpcBuy"); err != nil {
		return nil, err
	}
	f.addItem(itemCode, quantity)
	return f.result(), nil
}

func (f *FakeAPI) Recycle(ctx context.Context, name, itemCode string, quantity int) (*common.ActionResult, error) {
	if err := f.begin("Recycle"); err != nil {
		return nil, err
	}
	if !f.removeItem(itemCode, quantity) {
		return nil, shared.NewGameAPIError(478, "missing item: "+itemCode)
	}
	return f.result(), nil
}

func (f *FakeAPI) GeCreateSellOrder(ctx context.Context, name, itemCode string, quantity, price int) (*common.ActionResult, error) {
	if err := f.begin("GeCreateSellOrder"); err != nil {
		return nil, err
	}
	if !f.removeItem(itemCode, quantity) {
		return nil, shared.NewGameAPIError(478, "missing item: "+itemCode)
	}
	return f.result(), nil
}

func (f *FakeAPI) AcceptTask(ctx context.Context, name string) (*common.ActionResult, error) {
	if err := f.begin("AcceptTask"); err != nil {
		return nil, err
	}
	return f.result(), nil
}

func (f *FakeAPI) CompleteTask(ctx context.Context, name string) (*common.ActionResult, error) {
	if err := f.begin("CompleteTask"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.Char.TaskCode = ""
	f.Char.TaskType = ""
	f.Char.TaskProgress = 0
	f.Char.TaskTotal = 0
	f.mu.Unlock()
	return f.result(), nil
}

func (f *FakeAPI) CancelTask(ctx context.Context, name string) (*common.ActionResult, error) {
	if err := f.begin("CancelTask"); err != nil {
		return nil, err
	}
	f.removeItem(game.TaskCoinCode, 1)
	f.mu.Lock()
	f.Char.TaskCode = ""
	f.Char.TaskType = ""
	f.Char.TaskProgress = 0
	f.Char.TaskTotal = 0
	f.mu.Unlock()
	return f.result(), nil
}

func (f *FakeAPI) TaskTrade(ctx context.Context, name, itemCode string, quantity int) (*common.ActionResult, error) {
	if err := f.begin("TaskTrade"); err != nil {
		return nil, err
	}
	if !f.removeItem(itemCode, quantity) {
		return nil, shared.NewGameAPIError(478, "missing trade items")
	}
	f.mu.Lock()
	f.Char.TaskProgress += quantity
	f.mu.Unlock()
	return f.result(), nil
}

func (f *FakeAPI) TaskExchange(ctx context.Context, name string) (*common.ActionResult, error) {
	if err := f.begin("TaskExchange"); err != nil {
		return nil, err
	}
	if !f.removeItem(game.TaskCoinCode, 6) {
		return nil, shared.NewGameAPIError(478, "missing task coins")
	}
	f.mu.Lock()
	var rewards []character.InventorySlot
	if len(f.ExchangeRewards) > 0 {
		rewards = f.ExchangeRewards[0]
		f.ExchangeRewards = f.ExchangeRewards[1:]
	}
	f.mu.Unlock()
	for _, line := range rewards {
		f.addItem(line.Code, line.Quantity)
	}
	res := f.result()
	res.Rewards = rewards
	return res, nil
}

var _ common.APIClient = (*FakeAPI)(nil)
