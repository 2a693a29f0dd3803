package gamedata

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/andrescamacho/artifacts-go/internal/domain/game"
)

// The dump file mirrors the server's wire naming so a fresh export drops in
// without conversion.

type craftDTO struct {
	Skill    string `json:"skill"`
	Level    int    `json:"level"`
	Items    []struct {
		Code     string `json:"code"`
		Quantity int    `json:"quantity"`
	} `json:"items"`
	Quantity int `json:"quantity"`
}

type effectDTO struct {
	Code  string `json:"code"`
	Value int    `json:"value"`
}

type itemDTO struct {
	Code    string      `json:"code"`
	Name    string      `json:"name"`
	Level   int         `json:"level"`
	Type    string      `json:"type"`
	Subtype string      `json:"subtype"`
	Craft   *craftDTO   `json:"craft"`
	Effects []effectDTO `json:"effects"`
}

type dropDTO struct {
	Code string `json:"code"`
	Rate int    `json:"rate"`
}

type monsterDTO struct {
	Code           string      `json:"code"`
	Name           string      `json:"name"`
	Level          int         `json:"level"`
	Type           string      `json:"type"`
	HP             int         `json:"hp"`
	AttackFire     int         `json:"attack_fire"`
	AttackEarth    int         `json:"attack_earth"`
	AttackWater    int         `json:"attack_water"`
	AttackAir      int         `json:"attack_air"`
	ResFire        int         `json:"res_fire"`
	ResEarth       int         `json:"res_earth"`
	ResWater       int         `json:"res_water"`
	ResAir         int         `json:"res_air"`
	CriticalStrike int         `json:"critical_strike"`
	Initiative     int         `json:"initiative"`
	Effects        []effectDTO `json:"effects"`
	Drops          []dropDTO   `json:"drops"`
}

type resourceDTO struct {
	Code  string    `json:"code"`
	Name  string    `json:"name"`
	Skill string    `json:"skill"`
	Level int       `json:"level"`
	Drops []dropDTO `json:"drops"`
}

type npcItemDTO struct {
	Code      string `json:"code"`
	BuyPrice  int    `json:"buy_price"`
	SellPrice int    `json:"sell_price"`
}

type npcDTO struct {
	Code  string       `json:"code"`
	Name  string       `json:"name"`
	Items []npcItemDTO `json:"items"`
}

type mapDTO struct {
	X       int `json:"x"`
	Y       int `json:"y"`
	Content *struct {
		Type string `json:"type"`
		Code string `json:"code"`
	} `json:"content"`
}

type dumpDTO struct {
	Items     []itemDTO     `json:"items"`
	Monsters  []monsterDTO  `json:"monsters"`
	Resources []resourceDTO `json:"resources"`
	NPCs      []npcDTO      `json:"npcs"`
	Maps      []mapDTO      `json:"maps"`
}

// Load reads a game-data dump and builds the immutable catalog
func Load(path string) (*game.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read game data: %w", err)
	}
	var dump dumpDTO
	if err := json.Unmarshal(data, &dump); err != nil {
		return nil, fmt.Errorf("failed to parse game data: %w", err)
	}

	items := make([]*game.Item, 0, len(dump.Items))
	for _, dto := range dump.Items {
		item := &game.Item{
			Code:    dto.Code,
			Name:    dto.Name,
			Level:   dto.Level,
			Type:    dto.Type,
			Subtype: dto.Subtype,
			Effects: effects(dto.Effects),
		}
		if dto.Craft != nil {
			craft := &game.Craft{
				Skill:    game.Skill(dto.Craft.Skill),
				Level:    dto.Craft.Level,
				Quantity: dto.Craft.Quantity,
			}
			for _, ing := range dto.Craft.Items {
				craft.Items = append(craft.Items, game.Ingredient{Code: ing.Code, Quantity: ing.Quantity})
			}
			item.Craft = craft
		}
		items = append(items, item)
	}

	monsters := make([]*game.Monster, 0, len(dump.Monsters))
	for _, dto := range dump.Monsters {
		monsters = append(monsters, &game.Monster{
			Code:           dto.Code,
			Name:           dto.Name,
			Level:          dto.Level,
			Type:           dto.Type,
			HP:             dto.HP,
			AttackFire:     dto.AttackFire,
			AttackEarth:    dto.AttackEarth,
			AttackWater:    dto.AttackWater,
			AttackAir:      dto.AttackAir,
			ResFire:        dto.ResFire,
			ResEarth:       dto.ResEarth,
			ResWater:       dto.ResWater,
			ResAir:         dto.ResAir,
			CriticalStrike: dto.CriticalStrike,
			Initiative:     dto.Initiative,
			Effects:        effects(dto.Effects),
			Drops:          drops(dto.Drops),
		})
	}

	resources := make([]*game.Resource, 0, len(dump.Resources))
	for _, dto := range dump.Resources {
		resources = append(resources, &game.Resource{
			Code:  dto.Code,
			Name:  dto.Name,
			Skill: game.Skill(dto.Skill),
			Level: dto.Level,
			Drops: drops(dto.Drops),
		})
	}

	npcs := make([]*game.NPC, 0, len(dump.NPCs))
	for _, dto := range dump.NPCs {
		npc := &game.NPC{Code: dto.Code, Name: dto.Name}
		for _, it := range dto.Items {
			npc.Items = append(npc.Items, game.NPCItem{Code: it.Code, BuyPrice: it.BuyPrice, SellPrice: it.SellPrice})
		}
		npcs = append(npcs, npc)
	}

	locations := make([]game.Location, 0, len(dump.Maps))
	for _, dto := range dump.Maps {
		loc := game.Location{X: dto.X, Y: dto.Y}
		if dto.Content != nil {
			loc.ContentType = dto.Content.Type
			loc.ContentCode = dto.Content.Code
		}
		locations = append(locations, loc)
	}

	return game.NewCatalog(items, monsters, resources, npcs, locations), nil
}

func effects(dtos []effectDTO) []game.Effect {
	out := make([]game.Effect, 0, len(dtos))
	for _, dto := range dtos {
		out = append(out, game.Effect{Code: dto.Code, Value: dto.Value})
	}
	return out
}

func drops(dtos []dropDTO) []game.Drop {
	out := make([]game.Drop, 0, len(dtos))
	for _, dto := range dtos {
		out = append(out, game.Drop{Code: dto.Code, Rate: dto.Rate})
	}
	return out
}
