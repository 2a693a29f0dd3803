package routines

import (
	"context"
	"time"

	"github.com/andrescamacho/artifacts-go/internal/application/bank"
	"github.com/andrescamacho/artifacts-go/internal/application/common"
	"github.com/andrescamacho/artifacts-go/internal/domain/shared"
	"github.com/andrescamacho/artifacts-go/internal/infrastructure/config"
)

const (
	defaultMaxGoldPct    = 0.7
	defaultGoldBuffer    = 1000
	defaultCheckInterval = 10 * time.Minute
)

// BankExpansionRoutine buys the next bank expansion when the account can
// afford it without draining its reserves.
type BankExpansionRoutine struct {
	Hints
	ops        *bank.Ops
	clock      shared.Clock
	maxGoldPct float64
	goldBuffer int
	interval   time.Duration
	lastCheck  time.Time
}

// NewBankExpansionRoutine creates the expansion routine at its baseline
// priority
func NewBankExpansionRoutine(ops *bank.Ops, clock shared.Clock, opts *config.RoutineOptions) *BankExpansionRoutine {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	r := &BankExpansionRoutine{
		Hints:      NewHints(55, false, false),
		ops:        ops,
		clock:      clock,
		maxGoldPct: defaultMaxGoldPct,
		goldBuffer: defaultGoldBuffer,
		interval:   defaultCheckInterval,
	}
	r.applyOptions(opts)
	return r
}

func (r *BankExpansionRoutine) applyOptions(opts *config.RoutineOptions) {
	r.ApplyOverrides(opts)
	if opts == nil {
		return
	}
	if opts.MaxGoldPct > 0 {
		r.maxGoldPct = opts.MaxGoldPct
	}
	if opts.GoldBuffer > 0 {
		r.goldBuffer = opts.GoldBuffer
	}
	if opts.CheckIntervalMs > 0 {
		r.interval = time.Duration(opts.CheckIntervalMs) * time.Millisecond
	}
}

func (r *BankExpansionRoutine) Name() string { return "bank_expansion" }

// affordable applies the purchase policy to the last known gold totals
func (r *BankExpansionRoutine) affordable(cc *common.CharContext) (int, bool) {
	cost := r.ops.Inventory().NextExpansionCost()
	if cost <= 0 {
		return 0, false
	}
	total := cc.Record().Gold + r.ops.Inventory().Gold()
	if float64(cost) > float64(total)*r.maxGoldPct {
		return 0, false
	}
	if total-cost < r.goldBuffer {
		return 0, false
	}
	return cost, true
}

func (r *BankExpansionRoutine) CanRun(ctx context.Context, cc *common.CharContext) bool {
	if !r.lastCheck.IsZero() && r.clock.Now().Sub(r.lastCheck) < r.interval {
		return false
	}
	_, ok := r.affordable(cc)
	return ok
}

func (r *BankExpansionRoutine) CanBePreempted(ctx context.Context, cc *common.CharContext) bool {
	return true
}

func (r *BankExpansionRoutine) Execute(ctx context.Context, cc *common.CharContext) (bool, error) {
	r.lastCheck = r.clock.Now()
	// Re-verify against a fresh bank snapshot before spending.
	if err := r.ops.Refresh(ctx, cc); err != nil {
		return false, err
	}
	cost, ok := r.affordable(cc)
	if !ok {
		return false, nil
	}
	if short := cost - cc.Record().Gold; short > 0 {
		if err := r.ops.WithdrawGold(ctx, cc, short); err != nil {
			return false, err
		}
	}
	if err := r.ops.EnsureAtBank(ctx, cc); err != nil {
		return false, err
	}
	res, err := cc.API().BuyBankExpansion(ctx, cc.Name())
	if err != nil {
		if shared.IsAPIError(err, shared.CodeInsufficientGold) {
			// Stale totals; the next refresh corrects them.
			return false, r.ops.Refresh(ctx, cc)
		}
		return false, err
	}
	if res.Bank != nil {
		r.ops.Inventory().SetNextExpansionCost(res.Bank.NextExpansionCost)
	}
	return false, cc.Apply(ctx, res)
}

func (r *BankExpansionRoutine) UpdateConfig(cfg *config.CharacterConfig) {
	r.applyOptions(cfg.Routine(config.RoutineBankExpansion))
}
