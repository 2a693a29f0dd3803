package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// RoutineType names the routines a character can enable
type RoutineType string

const (
	RoutineRest          RoutineType = "rest"
	RoutineDepositBank   RoutineType = "depositBank"
	RoutineBankExpansion RoutineType = "bankExpansion"
	RoutineEvent         RoutineType = "event"
	RoutineCompleteTask  RoutineType = "completeTask"
	RoutineSkillRotation RoutineType = "skillRotation"
)

// OrderBoardOptions controls a character's order-board participation
type OrderBoardOptions struct {
	Enabled        bool  `json:"enabled"`
	CreateOrders   bool  `json:"createOrders"`
	FulfillOrders  bool  `json:"fulfillOrders"`
	LeaseMs        int64 `json:"leaseMs"`
	BlockedRetryMs int64 `json:"blockedRetryMs"`
}

// RoutineOptions configures one routine entry. Priority/Loop/Urgent override
// the scheduler hints when set.
type RoutineOptions struct {
	Type     RoutineType `json:"type"`
	Priority *int        `json:"priority,omitempty"`
	Loop     *bool       `json:"loop,omitempty"`
	Urgent   *bool       `json:"urgent,omitempty"`

	// rest
	TriggerPct int `json:"triggerPct,omitempty"`

	// depositBank
	Threshold        *float64 `json:"threshold,omitempty"`
	SellOnGE         bool     `json:"sellOnGE,omitempty"`
	RecycleEquipment bool     `json:"recycleEquipment,omitempty"`
	DepositGold      bool     `json:"depositGold,omitempty"`

	// bankExpansion
	MaxGoldPct      float64 `json:"maxGoldPct,omitempty"`
	GoldBuffer      int     `json:"goldBuffer,omitempty"`
	CheckIntervalMs int64   `json:"checkIntervalMs,omitempty"`

	// event
	Enabled            bool     `json:"enabled,omitempty"`
	MonsterEvents      bool     `json:"monsterEvents,omitempty"`
	ResourceEvents     bool     `json:"resourceEvents,omitempty"`
	NPCEvents          bool     `json:"npcEvents,omitempty"`
	MinTimeRemainingMs int64    `json:"minTimeRemainingMs,omitempty"`
	MaxMonsterType     string   `json:"maxMonsterType,omitempty"`
	CooldownMs         int64    `json:"cooldownMs,omitempty"`
	MinWinrate         int      `json:"minWinrate,omitempty"`
	GatherResources    []string `json:"gatherResources,omitempty"`

	// skillRotation
	Weights         map[string]float64 `json:"weights,omitempty"`
	CraftCollection bool               `json:"craftCollection,omitempty"`
	OrderBoard      OrderBoardOptions  `json:"orderBoard,omitempty"`
}

// CombatPotionSettings drives the potion manager's combat refills
type CombatPotionSettings struct {
	Enabled                 bool `json:"enabled"`
	RefillBelow             int  `json:"refillBelow"`
	TargetQuantity          int  `json:"targetQuantity"`
	PoisonBias              int  `json:"poisonBias"`
	RespectNonPotionUtility bool `json:"respectNonPotionUtility"`
}

// PotionSettings groups utility-slot management
type PotionSettings struct {
	Enabled bool                 `json:"enabled"`
	Combat  CombatPotionSettings `json:"combat"`
}

// CharacterSettings are non-routine character knobs
type CharacterSettings struct {
	Potions PotionSettings `json:"potions"`
}

// CharacterConfig is one character's roster entry
type CharacterConfig struct {
	Name     string            `json:"name"`
	Routines []RoutineOptions  `json:"routines"`
	Settings CharacterSettings `json:"settings"`
}

// Routine returns the options for a routine type, or nil when not enabled
func (c *CharacterConfig) Routine(t RoutineType) *RoutineOptions {
	for i := range c.Routines {
		if c.Routines[i].Type == t {
			return &c.Routines[i]
		}
	}
	return nil
}

// NPCBuyEntry is one line of the account NPC shopping list
type NPCBuyEntry struct {
	Code     string `json:"code"`
	Quantity int    `json:"quantity"`
}

// CharactersConfig is the characters JSON file: the roster in scheduling
// order plus account-level options. The npcBuyList "_any" key applies to any
// NPC.
type CharactersConfig struct {
	Characters []CharacterConfig        `json:"characters"`
	NPCBuyList map[string][]NPCBuyEntry `json:"npcBuyList,omitempty"`
}

// NPCBuyAnyKey applies a shopping list entry to every NPC
const NPCBuyAnyKey = "_any"

// LoadCharacters reads and validates the characters file
func LoadCharacters(path string) (*CharactersConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read characters file: %w", err)
	}
	var cfg CharactersConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse characters file: %w", err)
	}
	if len(cfg.Characters) == 0 {
		return nil, fmt.Errorf("characters file %s lists no characters", path)
	}
	seen := make(map[string]bool)
	for _, ch := range cfg.Characters {
		if ch.Name == "" {
			return nil, fmt.Errorf("character with empty name in %s", path)
		}
		if seen[ch.Name] {
			return nil, fmt.Errorf("duplicate character %s in %s", ch.Name, path)
		}
		seen[ch.Name] = true
	}
	return &cfg, nil
}

// BuyListFor merges the NPC-specific and _any shopping lists for an NPC
func (c *CharactersConfig) BuyListFor(npcCode string) []NPCBuyEntry {
	var out []NPCBuyEntry
	out = append(out, c.NPCBuyList[npcCode]...)
	out = append(out, c.NPCBuyList[NPCBuyAnyKey]...)
	return out
}
