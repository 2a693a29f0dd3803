package events_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/artifacts-go/internal/application/events"
	"github.com/andrescamacho/artifacts-go/internal/domain/game"
	"github.com/andrescamacho/artifacts-go/internal/domain/shared"
)

func testCatalog() *game.Catalog {
	return game.NewCatalog(
		nil,
		[]*game.Monster{{Code: "demon", Level: 30}},
		[]*game.Resource{{Code: "magic_tree", Skill: game.SkillWoodcutting, Level: 20}},
		[]*game.NPC{{Code: "nomadic_merchant"}},
		nil,
	)
}

func newTestManager() (*events.Manager, *shared.MockClock) {
	clock := shared.NewMockClock(time.Unix(1_700_000_000, 0))
	return events.NewManager(testCatalog(), clock), clock
}

func TestHandleSpawn_FullMapShape(t *testing.T) {
	m, clock := newTestManager()

	m.HandleSpawn(&events.SpawnPayload{
		Code: "demon_portal",
		Map: &events.SpawnMap{
			X: 3, Y: 4,
			Content: &events.SpawnContent{Type: "monster", Code: "demon"},
		},
		Expiration: clock.Now().Add(time.Hour),
	})

	monsters := m.GetActiveMonsterEvents()
	require.Len(t, monsters, 1)
	assert.Equal(t, "demon_portal", monsters[0].Code)
	assert.Equal(t, "demon", monsters[0].ContentCode)
	assert.Equal(t, 3, monsters[0].X)
	assert.Equal(t, 4, monsters[0].Y)
	assert.True(t, m.IsEventActive("demon_portal"))
}

func TestHandleSpawn_ContentOnlyShape(t *testing.T) {
	m, clock := newTestManager()

	m.HandleSpawn(&events.SpawnPayload{
		Content:    &events.SpawnContent{Type: "resource", Code: "magic_tree"},
		Expiration: clock.Now().Add(time.Hour),
	})

	resources := m.GetActiveResourceEvents()
	require.Len(t, resources, 1)
	// Without a top-level code the content code doubles as the event code.
	assert.Equal(t, "magic_tree", resources[0].Code)
}

func TestHandleSpawn_BareCodeResolvesTypeFromCatalog(t *testing.T) {
	m, clock := newTestManager()

	m.HandleSpawn(&events.SpawnPayload{
		Code:       "nomadic_merchant",
		Expiration: clock.Now().Add(time.Hour),
	})

	npcs := m.GetActiveNpcEvents()
	require.Len(t, npcs, 1)
	assert.Equal(t, "npc", npcs[0].ContentType)
}

func TestHandleSpawn_NameOnlyShape(t *testing.T) {
	m, clock := newTestManager()

	m.HandleSpawn(&events.SpawnPayload{
		Name:       "demon",
		Expiration: clock.Now().Add(time.Hour),
	})

	require.Len(t, m.GetActiveMonsterEvents(), 1)
}

func TestHandleSpawn_EmptyPayloadIgnored(t *testing.T) {
	m, _ := newTestManager()
	m.HandleSpawn(&events.SpawnPayload{})
	assert.Equal(t, 0, m.Count())
}

func TestHandleRemoved(t *testing.T) {
	m, clock := newTestManager()
	m.HandleSpawn(&events.SpawnPayload{Code: "demon", Expiration: clock.Now().Add(time.Hour)})
	require.Equal(t, 1, m.Count())

	m.HandleRemoved(&events.SpawnPayload{Code: "demon"})
	assert.Equal(t, 0, m.Count())
}

func TestExpiryGraceWindow(t *testing.T) {
	m, clock := newTestManager()
	m.HandleSpawn(&events.SpawnPayload{
		Code:       "demon",
		Expiration: clock.Now().Add(2 * time.Minute),
	})

	assert.True(t, m.IsEventActive("demon"))

	// Inside the grace window the event is no longer worth travelling to.
	clock.Advance(2*time.Minute - 20*time.Second)
	assert.False(t, m.IsEventActive("demon"))
	assert.Empty(t, m.GetActiveMonsterEvents())
}

func TestGetTimeRemaining(t *testing.T) {
	m, clock := newTestManager()
	m.HandleSpawn(&events.SpawnPayload{
		Code:       "demon",
		Expiration: clock.Now().Add(10 * time.Minute),
	})

	assert.Equal(t, 10*time.Minute, m.GetTimeRemaining("demon"))

	clock.Advance(11 * time.Minute)
	assert.Equal(t, time.Duration(0), m.GetTimeRemaining("demon"))
	assert.Equal(t, time.Duration(0), m.GetTimeRemaining("unknown"))
}

func TestNPCLock_ExclusiveAndReentrant(t *testing.T) {
	clock := shared.NewMockClock(time.Unix(1_700_000_000, 0))
	lock := events.NewNPCLock(clock)

	require.True(t, lock.TryAcquire("merchant_event", "alice"))
	assert.True(t, lock.TryAcquire("merchant_event", "alice"))
	assert.False(t, lock.TryAcquire("merchant_event", "bob"))
	assert.Equal(t, "alice", lock.Holder("merchant_event"))

	lock.Release("merchant_event", "bob") // not the holder: no-op
	assert.Equal(t, "alice", lock.Holder("merchant_event"))

	lock.Release("merchant_event", "alice")
	assert.Equal(t, "", lock.Holder("merchant_event"))
	assert.True(t, lock.TryAcquire("merchant_event", "bob"))
}

func TestNPCLock_TTLExpiry(t *testing.T) {
	clock := shared.NewMockClock(time.Unix(1_700_000_000, 0))
	lock := events.NewNPCLock(clock)
	lock.SetTTL(time.Minute)

	require.True(t, lock.TryAcquire("merchant_event", "alice"))
	clock.Advance(61 * time.Second)

	assert.Equal(t, "", lock.Holder("merchant_event"))
	assert.True(t, lock.TryAcquire("merchant_event", "bob"))
	assert.Equal(t, "bob", lock.Holder("merchant_event"))
}

func TestNPCLock_ReleaseAllFor(t *testing.T) {
	clock := shared.NewMockClock(time.Unix(1_700_000_000, 0))
	lock := events.NewNPCLock(clock)

	require.True(t, lock.TryAcquire("event_a", "alice"))
	require.True(t, lock.TryAcquire("event_b", "alice"))
	require.True(t, lock.TryAcquire("event_c", "bob"))

	lock.ReleaseAllFor("alice")

	assert.Equal(t, "", lock.Holder("event_a"))
	assert.Equal(t, "", lock.Holder("event_b"))
	assert.Equal(t, "bob", lock.Holder("event_c"))
}
