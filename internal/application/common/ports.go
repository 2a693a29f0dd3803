package common

import (
	"context"
	"time"

	"github.com/andrescamacho/artifacts-go/internal/domain/character"
)

// FightOutcome is the combat payload of a fight action
type FightOutcome struct {
	Result string // win or loss
	XP     int
	Gold   int
	Drops  []character.InventorySlot
}

// GatherOutcome is the payload of a gather action
type GatherOutcome struct {
	XP    int
	Items []character.InventorySlot
}

// BankState is the bank payload returned by bank actions
type BankState struct {
	Gold              int
	NextExpansionCost int
	Slots             int
}

// ActionResult folds an API action response into local state: the updated
// character record, the imposed cooldown, and any action payload.
type ActionResult struct {
	Character          *character.Record
	CooldownExpiration time.Time
	Cooldown           time.Duration
	Fight              *FightOutcome
	Gather             *GatherOutcome
	Bank               *BankState
	BankItems          map[string]int
	Rewards            []character.InventorySlot
}

// APIClient is the game server port. Every call is a suspension point: the
// adapter handles transport, auth, rate limiting and retries; cooldown
// waiting is the caller's job via CharContext.Apply.
type APIClient interface {
	GetCharacter(ctx context.Context, name string) (*character.Record, error)

	Move(ctx context.Context, name string, x, y int) (*ActionResult, error)
	Rest(ctx context.Context, name string) (*ActionResult, error)
	Fight(ctx context.Context, name string) (*ActionResult, error)
	Gather(ctx context.Context, name string) (*ActionResult, error)
	Craft(ctx context.Context, name, itemCode string, quantity int) (*ActionResult, error)
	UseItem(ctx context.Context, name, itemCode string, quantity int) (*ActionResult, error)
	Equip(ctx context.Context, name, itemCode string, slot character.Slot, quantity int) (*ActionResult, error)
	Unequip(ctx context.Context, name string, slot character.Slot, quantity int) (*ActionResult, error)

	WithdrawBank(ctx context.Context, name string, items []character.InventorySlot) (*ActionResult, error)
	DepositBank(ctx context.Context, name string, items []character.InventorySlot) (*ActionResult, error)
	WithdrawGold(ctx context.Context, name string, quantity int) (*ActionResult, error)
	DepositGold(ctx context.Context, name string, quantity int) (*ActionResult, error)
	BuyBankExpansion(ctx context.Context, name string) (*ActionResult, error)
	GetBankDetails(ctx context.Context) (*BankState, error)
	GetBankItems(ctx context.Context) (map[string]int, error)

	NpcBuy(ctx context.Context, name, itemCode string, quantity int) (*ActionResult, error)
	Recycle(ctx context.Context, name, itemCode string, quantity int) (*ActionResult, error)
	GeCreateSellOrder(ctx context.Context, name, itemCode string, quantity, price int) (*ActionResult, error)

	AcceptTask(ctx context.Context, name string) (*ActionResult, error)
	CompleteTask(ctx context.Context, name string) (*ActionResult, error)
	CancelTask(ctx context.Context, name string) (*ActionResult, error)
	TaskTrade(ctx context.Context, name, itemCode string, quantity int) (*ActionResult, error)
	TaskExchange(ctx context.Context, name string) (*ActionResult, error)
}
