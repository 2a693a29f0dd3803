package bank

import (
	"context"
	"fmt"

	"github.com/andrescamacho/artifacts-go/internal/application/common"
	"github.com/andrescamacho/artifacts-go/internal/domain/character"
	"github.com/andrescamacho/artifacts-go/internal/domain/game"
	"github.com/andrescamacho/artifacts-go/internal/domain/shared"
)

// Ops performs bank transfers for a character: batched withdraws with a
// reserve / fail / refresh / per-item fallback, and deposits that sync the
// shared inventory cache.
type Ops struct {
	inv     *Inventory
	catalog *game.Catalog
}

// NewOps creates a bank operations helper over the shared inventory cache
func NewOps(inv *Inventory, catalog *game.Catalog) *Ops {
	return &Ops{inv: inv, catalog: catalog}
}

// Inventory exposes the shared cache
func (o *Ops) Inventory() *Inventory { return o.inv }

// EnsureAtBank moves the character to the closest bank tile
func (o *Ops) EnsureAtBank(ctx context.Context, cc *common.CharContext) error {
	rec := cc.Record()
	loc, err := o.catalog.BankLocation(rec.X, rec.Y)
	if err != nil {
		return err
	}
	return cc.MoveTo(ctx, loc.X, loc.Y)
}

// retryAtBank runs a bank call, and on a wrong-tile rejection re-syncs the
// possibly stale character record, walks back to the bank and retries once.
func (o *Ops) retryAtBank(ctx context.Context, cc *common.CharContext, call func() (*common.ActionResult, error)) (*common.ActionResult, error) {
	res, err := call()
	if !shared.IsAPIError(err, shared.CodeWrongMapTile) {
		return res, err
	}
	if err := cc.Refresh(ctx); err != nil {
		return nil, err
	}
	if err := o.EnsureAtBank(ctx, cc); err != nil {
		return nil, err
	}
	return call()
}

// Refresh re-fetches bank gold and items into the shared cache
func (o *Ops) Refresh(ctx context.Context, cc *common.CharContext) error {
	details, err := cc.API().GetBankDetails(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch bank details: %w", err)
	}
	items, err := cc.API().GetBankItems(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch bank items: %w", err)
	}
	o.inv.Update(details.Gold, items)
	o.inv.SetNextExpansionCost(details.NextExpansionCost)
	return nil
}

// Withdraw pulls the requested items from the bank. The whole batch is
// reserved against the cached snapshot first; on a stale cache the bank is
// force-refreshed and the withdraw retried, then degraded to per-item calls
// so one missing line does not sink the rest.
func (o *Ops) Withdraw(ctx context.Context, cc *common.CharContext, items map[string]int) error {
	if len(items) == 0 {
		return nil
	}
	if err := o.EnsureAtBank(ctx, cc); err != nil {
		return err
	}
	if err := o.inv.Reserve(cc.Name(), items); err != nil {
		if err := o.Refresh(ctx, cc); err != nil {
			return err
		}
		if err := o.inv.Reserve(cc.Name(), items); err != nil {
			return o.withdrawPerItem(ctx, cc, items)
		}
	}
	defer o.inv.Release(cc.Name())

	lines := make([]character.InventorySlot, 0, len(items))
	for code, qty := range items {
		if qty > 0 {
			lines = append(lines, character.InventorySlot{Code: code, Quantity: qty})
		}
	}
	res, err := o.retryAtBank(ctx, cc, func() (*common.ActionResult, error) {
		return cc.API().WithdrawBank(ctx, cc.Name(), lines)
	})
	if err != nil {
		return o.withdrawPerItem(ctx, cc, items)
	}
	o.inv.ApplyWithdraw(items, 0)
	return cc.Apply(ctx, res)
}

// withdrawPerItem is the degraded path: one API call per line, skipping
// lines the bank no longer covers.
func (o *Ops) withdrawPerItem(ctx context.Context, cc *common.CharContext, items map[string]int) error {
	var lastErr error
	for code, qty := range items {
		if qty <= 0 {
			continue
		}
		have := o.inv.Count(code)
		if have <= 0 {
			continue
		}
		if qty > have {
			qty = have
		}
		res, err := cc.API().WithdrawBank(ctx, cc.Name(), []character.InventorySlot{{Code: code, Quantity: qty}})
		if err != nil {
			lastErr = err
			continue
		}
		o.inv.ApplyWithdraw(map[string]int{code: qty}, 0)
		if err := cc.Apply(ctx, res); err != nil {
			return err
		}
	}
	return lastErr
}

// Deposit pushes the given inventory lines into the bank and syncs the cache
func (o *Ops) Deposit(ctx context.Context, cc *common.CharContext, items []character.InventorySlot) error {
	if len(items) == 0 {
		return nil
	}
	if err := o.EnsureAtBank(ctx, cc); err != nil {
		return err
	}
	res, err := o.retryAtBank(ctx, cc, func() (*common.ActionResult, error) {
		return cc.API().DepositBank(ctx, cc.Name(), items)
	})
	if err != nil {
		return fmt.Errorf("failed to deposit: %w", err)
	}
	deposited := make(map[string]int, len(items))
	for _, line := range items {
		deposited[line.Code] += line.Quantity
	}
	o.inv.ApplyDeposit(deposited, 0)
	return cc.Apply(ctx, res)
}

// DepositGold pushes gold into the bank
func (o *Ops) DepositGold(ctx context.Context, cc *common.CharContext, qty int) error {
	if qty <= 0 {
		return nil
	}
	if err := o.EnsureAtBank(ctx, cc); err != nil {
		return err
	}
	res, err := o.retryAtBank(ctx, cc, func() (*common.ActionResult, error) {
		return cc.API().DepositGold(ctx, cc.Name(), qty)
	})
	if err != nil {
		return err
	}
	o.inv.ApplyDeposit(nil, qty)
	return cc.Apply(ctx, res)
}

// WithdrawGold pulls gold from the bank
func (o *Ops) WithdrawGold(ctx context.Context, cc *common.CharContext, qty int) error {
	if qty <= 0 {
		return nil
	}
	if err := o.EnsureAtBank(ctx, cc); err != nil {
		return err
	}
	res, err := o.retryAtBank(ctx, cc, func() (*common.ActionResult, error) {
		return cc.API().WithdrawGold(ctx, cc.Name(), qty)
	})
	if err != nil {
		return err
	}
	o.inv.ApplyWithdraw(nil, qty)
	return cc.Apply(ctx, res)
}
