package runtime

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/andrescamacho/artifacts-go/internal/application/bank"
	"github.com/andrescamacho/artifacts-go/internal/application/common"
	"github.com/andrescamacho/artifacts-go/internal/application/events"
	"github.com/andrescamacho/artifacts-go/internal/application/gearstate"
	"github.com/andrescamacho/artifacts-go/internal/application/orderboard"
	"github.com/andrescamacho/artifacts-go/internal/application/rotation"
	"github.com/andrescamacho/artifacts-go/internal/application/routines"
	"github.com/andrescamacho/artifacts-go/internal/application/tasks"
	"github.com/andrescamacho/artifacts-go/internal/domain/character"
	"github.com/andrescamacho/artifacts-go/internal/domain/game"
	"github.com/andrescamacho/artifacts-go/internal/domain/shared"
	"github.com/andrescamacho/artifacts-go/internal/infrastructure/config"
)

// State is the runtime lifecycle state
type State string

const (
	StateStopped  State = "stopped"
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateStopping State = "stopping"
	StateError    State = "error"
)

// rolloutMarker gates the one-time hard clear of a pre-upgrade order board
const rolloutMarker = ".order-board-v2-rollout"

// Operation describes the lifecycle procedure in flight
type Operation struct {
	Name        string `json:"name"`
	StartedAtMs int64  `json:"startedAtMs"`
}

// RuntimeInfo reports whether the scheduler loops are live
type RuntimeInfo struct {
	Active bool `json:"active"`
}

// Status is the observable runtime snapshot
type Status struct {
	State       State       `json:"state"`
	Runtime     RuntimeInfo `json:"runtime"`
	Operation   *Operation  `json:"operation,omitempty"`
	Characters  []string    `json:"characters"`
	UpdatedAtMs int64       `json:"updatedAtMs"`
}

// Deps are the adapter-side collaborators the manager cannot build itself
type Deps struct {
	Catalog   *game.Catalog
	API       common.APIClient
	Clock     shared.Clock
	Recorder  routines.RunRecorder
	BoardHook func(*orderboard.Board)
	Logger    common.Logger
}

/// Manager owns the process lifecycle: it wires the singletons, spawns one
// scheduler per character, and serializes start/stop/reload/restart behind
// an operation lock.
type Manager struct {
	mu        sync.Mutex
	cfg       *config.Config
	deps      Deps
	state     State
	operation *Operation
	updatedAt int64

	chars      *config.CharactersConfig
	board      *orderboard.Board
	inv        *bank.Inventory
	ops        *bank.Ops
	planner    *gearstate.Planner
	eventMgr   *events.Manager
	npcLock    *events.NPCLock
	exchanger  *tasks.Exchanger
	contexts   map[string]*common.CharContext
	schedulers map[string]*routines.Scheduler

	cancel context.CancelFunc
	group  *errgroup.Group
}

// NewManager creates a stopped manager
func NewManager(cfg *config.Config, deps Deps) *Manager {
	if deps.Clock == nil {
		deps.Clock = shared.NewRealClock()
	}
	if deps.Logger == nil {
		deps.Logger = common.NewStdLogger("runtime")
	}
	return &Manager{
		cfg:   cfg,
		deps:  deps,
		state: StateStopped,
	}
}

// beginOperation takes the operation lock or rejects with a typed conflict
func (m *Manager) beginOperation(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.operation != nil {
		return shared.NewOperationConflictError(name, m.operation.Name)
	}
	m.operation = &Operation{Name: name, StartedAtMs: shared.NowMs(m.deps.Clock)}
	return nil
}

func (m *Manager) endOperation() {
	m.mu.Lock()
	m.operation = nil
	m.updatedAt = shared.NowMs(m.deps.Clock)
	m.mu.Unlock()
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.updatedAt = shared.NowMs(m.deps.Clock)
	m.mu.Unlock()
}

// GetStatus returns the observable runtime snapshot
func (m *Manager) GetStatus() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	status := Status{
		State:       m.state,
		Runtime:     RuntimeInfo{Active: m.state == StateRunning},
		UpdatedAtMs: m.updatedAt,
	}
	if m.operation != nil {
		op := *m.operation
		status.Operation = &op
	}
	for name := range m.schedulers {
		status.Characters = append(status.Characters, name)
	}
	return status
}

// EventManager exposes the live event manager for stream adapters
func (m *Manager) EventManager() *events.Manager {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.eventMgr
}

// Board exposes the order board for the control surface
func (m *Manager) Board() *orderboard.Board {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.board
}

// Start brings the runtime up: singletons, planners, one scheduler per
// configured character.
func (m *Manager) Start(ctx context.Context) error {
	if err := m.beginOperation("start"); err != nil {
		return err
	}
	defer m.endOperation()
	m.mu.Lock()
	running := m.state == StateRunning
	m.mu.Unlock()
	if running {
		return nil
	}
	m.setState(StateStarting)
	if err := m.start(ctx); err != nil {
		m.setState(StateError)
		return err
	}
	m.setState(StateRunning)
	return nil
}

func (m *Manager) start(ctx context.Context) error {
	chars, err := config.LoadCharacters(m.cfg.Characters)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(m.cfg.Report.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create report dir: %w", err)
	}

	board := orderboard.New(filepath.Join(m.cfg.Report.Dir, "order-board.json"), m.deps.Clock)
	if err := board.Initialize(); err != nil {
		return err
	}
	// First run after the board upgrade clears stale pre-upgrade orders.
	marker := filepath.Join(m.cfg.Report.Dir, rolloutMarker)
	if _, statErr := os.Stat(marker); os.IsNotExist(statErr) {
		board.Clear("rollout")
		if writeErr := os.WriteFile(marker, []byte(time.Now().UTC().Format(time.RFC3339)+"\n"), 0o644); writeErr != nil {
			return fmt.Errorf("failed to write rollout marker: %w", writeErr)
		}
	}
	if m.deps.BoardHook != nil {
		m.deps.BoardHook(board)
	}

	inv := bank.NewInventory()
	ops := bank.NewOps(inv, m.deps.Catalog)
	optimizer := gearstate.NewPoolOptimizer(m.deps.Catalog, inv)

	roster := make([]gearstate.RosterEntry, 0, len(chars.Characters))
	for _, cc := range chars.Characters {
		entry := gearstate.RosterEntry{Name: cc.Name}
		if opts := cc.Routine(config.RoutineSkillRotation); opts != nil {
			entry.CreateOrders = opts.OrderBoard.Enabled && opts.OrderBoard.CreateOrders
		}
		roster = append(roster, entry)
	}
	planner := gearstate.NewPlanner(filepath.Join(m.cfg.Report.Dir, "gear-state.json"), m.deps.Catalog, inv, board, optimizer, roster, m.deps.Clock)
	if err := planner.Initialize(); err != nil {
		return err
	}

	eventMgr := events.NewManager(m.deps.Catalog, m.deps.Clock)
	npcLock := events.NewNPCLock(m.deps.Clock)
	exchanger := tasks.NewExchanger(m.deps.Catalog, ops, m.deps.Clock)
	settingsFor := func(name string) config.CombatPotionSettings {
		for _, cc := range chars.Characters {
			if cc.Name == name {
				return cc.Settings.Potions.Combat
			}
		}
		return config.CombatPotionSettings{}
	}
	outfitter := gearstate.NewOutfitter(m.deps.Catalog, ops, optimizer, settingsFor)

	runCtx, cancel := context.WithCancel(common.WithLogger(context.Background(), m.deps.Logger))
	group, runCtx := errgroup.WithContext(runCtx)

	contexts := make(map[string]*common.CharContext, len(chars.Characters))
	schedulers := make(map[string]*routines.Scheduler, len(chars.Characters))
	for _, charCfg := range chars.Characters {
		cc := common.NewCharContext(charCfg.Name, m.deps.API, m.deps.Clock)
		sched := routines.NewScheduler(cc, m.deps.Clock, m.cfg.Daemon.IdleInterval)
		if m.deps.Recorder != nil {
			sched.SetRecorder(m.deps.Recorder)
		}
		m.registerRoutines(sched, charCfg, chars, board, ops, planner, eventMgr, npcLock, exchanger, outfitter)
		contexts[charCfg.Name] = cc
		schedulers[charCfg.Name] = sched
	}

	for _, sched := range schedulers {
		s := sched
		group.Go(func() error { return s.Run(runCtx) })
	}
	group.Go(func() error { return m.recomputeLoop(runCtx, planner, contexts) })

	m.mu.Lock()
	m.chars = chars
	m.board = board
	m.inv = inv
	m.ops = ops
	m.planner = planner
	m.eventMgr = eventMgr
	m.npcLock = npcLock
	m.exchanger = exchanger
	m.contexts = contexts
	m.schedulers = schedulers
	m.cancel = cancel
	m.group = group
	m.mu.Unlock()
	return nil
}

// registerRoutines wires the configured routines for one character in fixed
// registration order; registration order is the scheduler's tie-break.
func (m *Manager) registerRoutines(sched *routines.Scheduler, charCfg config.CharacterConfig, chars *config.CharactersConfig, board *orderboard.Board, ops *bank.Ops, planner *gearstate.Planner, eventMgr *events.Manager, npcLock *events.NPCLock, exchanger *tasks.Exchanger, outfitter *gearstate.Outfitter) {
	if opts := charCfg.Routine(config.RoutineRest); opts != nil {
		sched.Register(routines.NewRestRoutine(m.deps.Catalog, opts))
	}
	if opts := charCfg.Routine(config.RoutineEvent); opts != nil {
		sched.Register(routines.NewEventRoutine(eventMgr, npcLock, m.deps.Catalog, ops, board, outfitter, chars.BuyListFor, m.deps.Clock, opts))
	}
	if opts := charCfg.Routine(config.RoutineBankExpansion); opts != nil {
		sched.Register(routines.NewBankExpansionRoutine(ops, m.deps.Clock, opts))
	}
	if opts := charCfg.Routine(config.RoutineDepositBank); opts != nil {
		sched.Register(routines.NewDepositBankRoutine(ops, m.deps.Catalog, planner, board, opts))
	}
	if opts := charCfg.Routine(config.RoutineCompleteTask); opts != nil {
		sched.Register(routines.NewCompleteTaskRoutine(m.deps.Catalog, opts))
	}
	if opts := charCfg.Routine(config.RoutineSkillRotation); opts != nil {
		sched.Register(rotation.NewEngine(m.deps.Catalog, ops, board, outfitter, planner, exchanger, m.deps.Clock, nil, opts))
	}
}

// recomputeLoop keeps the gear planner current with bank and level changes
func (m *Manager) recomputeLoop(ctx context.Context, planner *gearstate.Planner, contexts map[string]*common.CharContext) error {
	interval := m.cfg.Daemon.IdleInterval
	if interval <= 0 {
		interval = 3 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			records := make(map[string]*character.Record, len(contexts))
			for name, cc := range contexts {
				records[name] = cc.Snapshot()
			}
			if err := planner.MaybeRecompute(records); err != nil {
				m.deps.Logger.Log("warn", "gear recompute failed", map[string]interface{}{"error": err.Error()})
			}
		}
	}
}

// Stop shuts the runtime down, waiting up to graceful for the schedulers
func (m *Manager) Stop(ctx context.Context, graceful time.Duration) error {
	if err := m.beginOperation("stop"); err != nil {
		return err
	}
	defer m.endOperation()
	return m.stop(graceful)
}

func (m *Manager) stop(graceful time.Duration) error {
	m.mu.Lock()
	if m.state != StateRunning && m.state != StateError {
		m.mu.Unlock()
		return nil
	}
	cancel := m.cancel
	group := m.group
	board := m.board
	planner := m.planner
	var names []string
	for name := range m.schedulers {
		names = append(names, name)
	}
	m.mu.Unlock()

	m.setState(StateStopping)
	if cancel != nil {
		cancel()
	}
	if group != nil {
		done := make(chan struct{})
		go func() {
			_ = group.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(graceful):
			m.deps.Logger.Log("warn", "graceful stop timed out", map[string]interface{}{
				"timeout": graceful.String(),
			})
		}
	}
	if board != nil {
		board.ReleaseClaimsForChars(names, "shutdown")
		board.Close()
	}
	if planner != nil {
		planner.Close()
	}
	m.setState(StateStopped)
	return nil
}

// ReloadConfig re-reads the characters file and pushes the new options into
// every registered routine without restarting the schedulers.
func (m *Manager) ReloadConfig(ctx context.Context) error {
	if err := m.beginOperation("reloadConfig"); err != nil {
		return err
	}
	defer m.endOperation()

	chars, err := config.LoadCharacters(m.cfg.Characters)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chars = chars
	for _, charCfg := range chars.Characters {
		sched, ok := m.schedulers[charCfg.Name]
		if !ok {
			continue
		}
		cfg := charCfg
		for _, r := range sched.Routines() {
			r.UpdateConfig(&cfg)
		}
	}
	return nil
}

// Restart stops then starts the runtime under a single operation
func (m *Manager) Restart(ctx context.Context, graceful time.Duration) error {
	if err := m.beginOperation("restart"); err != nil {
		return err
	}
	defer m.endOperation()
	if err := m.stop(graceful); err != nil {
		return err
	}
	m.setState(StateStarting)
	if err := m.start(ctx); err != nil {
		m.setState(StateError)
		return err
	}
	m.setState(StateRunning)
	return nil
}

// ClearOrderBoard hard-clears the board, for the control surface
func (m *Manager) ClearOrderBoard(reason string) error {
	m.mu.Lock()
	board := m.board
	m.mu.Unlock()
	if board == nil {
		return shared.NewNotInitializedError("order board")
	}
	board.Clear(reason)
	return nil
}

// ClearGearState forces a fresh planning pass from live records
func (m *Manager) ClearGearState() error {
	m.mu.Lock()
	planner := m.planner
	contexts := m.contexts
	m.mu.Unlock()
	if planner == nil {
		return shared.NewNotInitializedError("gear planner")
	}
	records := make(map[string]*character.Record, len(contexts))
	for name, cc := range contexts {
		records[name] = cc.Snapshot()
	}
	return planner.Recompute(records)
}
