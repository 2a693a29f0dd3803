package routines_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/artifacts-go/internal/application/bank"
	"github.com/andrescamacho/artifacts-go/internal/application/common"
	"github.com/andrescamacho/artifacts-go/internal/application/events"
	"github.com/andrescamacho/artifacts-go/internal/application/routines"
	"github.com/andrescamacho/artifacts-go/internal/domain/character"
	"github.com/andrescamacho/artifacts-go/internal/domain/game"
	"github.com/andrescamacho/artifacts-go/internal/domain/shared"
	"github.com/andrescamacho/artifacts-go/internal/infrastructure/config"
	"github.com/andrescamacho/artifacts-go/test/helpers"
)

func eventCatalog() *game.Catalog {
	return game.NewCatalog(
		nil,
		[]*game.Monster{
			{Code: "demon", Level: 8, Type: "normal", HP: 60, AttackEarth: 10},
		},
		[]*game.Resource{
			{Code: "strange_rocks", Skill: game.SkillMining, Level: 1},
			{Code: "magic_tree", Skill: game.SkillWoodcutting, Level: 1},
		},
		nil,
		[]game.Location{
			{X: 4, Y: 1, ContentType: "bank"},
		},
	)
}

type eventFixture struct {
	routine *routines.EventRoutine
	manager *events.Manager
	cc      *common.CharContext
	fake    *helpers.FakeAPI
	clock   *shared.MockClock
}

func newEventFixture(t *testing.T, opts *config.RoutineOptions) *eventFixture {
	t.Helper()
	fake := helpers.NewFakeAPI(&character.Record{
		Name:              "alice",
		Level:             10,
		HP:                100,
		MaxHP:             100,
		InventoryMaxItems: 100,
		Skills: map[game.Skill]int{
			game.SkillMining:      5,
			game.SkillWoodcutting: 5,
		},
		Combat: character.CombatAttributes{AttackEarth: 20},
	})
	clock := shared.NewMockClock(time.Unix(1_700_000_000, 0))
	cc := common.NewCharContext("alice", fake, clock)
	require.NoError(t, cc.Refresh(context.Background()))
	catalog := eventCatalog()
	manager := events.NewManager(catalog, clock)
	lock := events.NewNPCLock(clock)
	ops := bank.NewOps(bank.NewInventory(), catalog)
	require.NoError(t, ops.Refresh(context.Background(), cc))
	routine := routines.NewEventRoutine(manager, lock, catalog, ops, nil, nil, nil, clock, opts)
	return &eventFixture{routine: routine, manager: manager, cc: cc, fake: fake, clock: clock}
}

func spawnEvent(fx *eventFixture, contentType, code string, x, y int) {
	fx.manager.HandleSpawn(&events.SpawnPayload{
		Map: &events.SpawnMap{
			X:       x,
			Y:       y,
			Content: &events.SpawnContent{Type: contentType, Code: code},
		},
		Expiration: fx.clock.Now().Add(time.Hour),
	})
}

func TestEvent_GatherWhitelistFiltersResources(t *testing.T) {
	fx := newEventFixture(t, &config.RoutineOptions{
		Enabled:         true,
		ResourceEvents:  true,
		GatherResources: []string{"magic_tree"},
	})
	spawnEvent(fx, "resource", "strange_rocks", 7, 8)

	// The only active event resource is off the whitelist.
	assert.False(t, fx.routine.CanRun(context.Background(), fx.cc))

	spawnEvent(fx, "resource", "magic_tree", 9, 9)
	require.True(t, fx.routine.CanRun(context.Background(), fx.cc))
	more, err := fx.routine.Execute(context.Background(), fx.cc)
	require.NoError(t, err)
	assert.True(t, more)
	assert.Equal(t, 1, fx.fake.CallCount("Gather"))
	// The whitelisted node is the one worked.
	assert.Equal(t, 9, fx.cc.Record().X)
	assert.Equal(t, 9, fx.cc.Record().Y)
}

func TestEvent_EmptyWhitelistGathersAnyResource(t *testing.T) {
	fx := newEventFixture(t, &config.RoutineOptions{
		Enabled:        true,
		ResourceEvents: true,
	})
	spawnEvent(fx, "resource", "strange_rocks", 7, 8)

	require.True(t, fx.routine.CanRun(context.Background(), fx.cc))
	_, err := fx.routine.Execute(context.Background(), fx.cc)
	require.NoError(t, err)
	assert.Equal(t, 1, fx.fake.CallCount("Gather"))
}

func TestEvent_MinWinrateStandsDownFromCostlyFight(t *testing.T) {
	// The demon is beatable but costs 20% of max HP, an 80 winrate.
	fx := newEventFixture(t, &config.RoutineOptions{
		Enabled:       true,
		MonsterEvents: true,
		MinWinrate:    90,
	})
	spawnEvent(fx, "monster", "demon", 3, 3)

	require.True(t, fx.routine.CanRun(context.Background(), fx.cc))
	more, err := fx.routine.Execute(context.Background(), fx.cc)

	require.NoError(t, err)
	assert.False(t, more)
	assert.Equal(t, 0, fx.fake.CallCount("Fight"))
}

func TestEvent_MinWinrateMetFights(t *testing.T) {
	fx := newEventFixture(t, &config.RoutineOptions{
		Enabled:       true,
		MonsterEvents: true,
		MinWinrate:    80,
	})
	spawnEvent(fx, "monster", "demon", 3, 3)

	require.True(t, fx.routine.CanRun(context.Background(), fx.cc))
	_, err := fx.routine.Execute(context.Background(), fx.cc)

	require.NoError(t, err)
	assert.Equal(t, 1, fx.fake.CallCount("Fight"))
}
