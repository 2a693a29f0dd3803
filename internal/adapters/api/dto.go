package api

import (
	"time"

	"github.com/andrescamacho/artifacts-go/internal/application/common"
	"github.com/andrescamacho/artifacts-go/internal/domain/character"
	"github.com/andrescamacho/artifacts-go/internal/domain/game"
)

// characterDTO mirrors the server's character schema
type characterDTO struct {
	Name              string `json:"name"`
	Level             int    `json:"level"`
	HP                int    `json:"hp"`
	MaxHP             int    `json:"max_hp"`
	Gold              int    `json:"gold"`
	X                 int    `json:"x"`
	Y                 int    `json:"y"`
	InventoryMaxItems int    `json:"inventory_max_items"`

	MiningLevel        int `json:"mining_level"`
	WoodcuttingLevel   int `json:"woodcutting_level"`
	FishingLevel       int `json:"fishing_level"`
	CookingLevel       int `json:"cooking_level"`
	AlchemyLevel       int `json:"alchemy_level"`
	WeaponcraftLevel   int `json:"weaponcrafting_level"`
	GearcraftLevel     int `json:"gearcrafting_level"`
	JewelrycraftLevel  int `json:"jewelrycrafting_level"`

	AttackFire     int `json:"attack_fire"`
	AttackEarth    int `json:"attack_earth"`
	AttackWater    int `json:"attack_water"`
	AttackAir      int `json:"attack_air"`
	DmgFire        int `json:"dmg_fire"`
	DmgEarth       int `json:"dmg_earth"`
	DmgWater       int `json:"dmg_water"`
	DmgAir         int `json:"dmg_air"`
	Dmg            int `json:"dmg"`
	ResFire        int `json:"res_fire"`
	ResEarth       int `json:"res_earth"`
	ResWater       int `json:"res_water"`
	ResAir         int `json:"res_air"`
	CriticalStrike int `json:"critical_strike"`
	Initiative     int `json:"initiative"`

	WeaponSlot    string `json:"weapon_slot"`
	ShieldSlot    string `json:"shield_slot"`
	HelmetSlot    string `json:"helmet_slot"`
	BodyArmorSlot string `json:"body_armor_slot"`
	LegArmorSlot  string `json:"leg_armor_slot"`
	BootsSlot     string `json:"boots_slot"`
	BagSlot       string `json:"bag_slot"`
	AmuletSlot    string `json:"amulet_slot"`
	Ring1Slot     string `json:"ring1_slot"`
	Ring2Slot     string `json:"ring2_slot"`
	Utility1Slot  string `json:"utility1_slot"`
	Utility2Slot  string `json:"utility2_slot"`
	RuneSlot      string `json:"rune_slot"`

	Utility1Quantity int `json:"utility1_slot_quantity"`
	Utility2Quantity int `json:"utility2_slot_quantity"`

	Inventory []struct {
		Slot     int    `json:"slot"`
		Code     string `json:"code"`
		Quantity int    `json:"quantity"`
	} `json:"inventory"`

	Task         string `json:"task"`
	TaskType     string `json:"task_type"`
	TaskProgress int    `json:"task_progress"`
	TaskTotal    int    `json:"task_total"`

	CooldownExpiration time.Time `json:"cooldown_expiration"`
}

func (dto *characterDTO) toRecord() *character.Record {
	rec := &character.Record{
		Name:              dto.Name,
		Level:             dto.Level,
		HP:                dto.HP,
		MaxHP:             dto.MaxHP,
		Gold:              dto.Gold,
		X:                 dto.X,
		Y:                 dto.Y,
		InventoryMaxItems: dto.InventoryMaxItems,
		Skills: map[game.Skill]int{
			game.SkillMining:         dto.MiningLevel,
			game.SkillWoodcutting:    dto.WoodcuttingLevel,
			game.SkillFishing:        dto.FishingLevel,
			game.SkillCooking:        dto.CookingLevel,
			game.SkillAlchemy:        dto.AlchemyLevel,
			game.SkillWeaponcrafting: dto.WeaponcraftLevel,
			game.SkillGearcrafting:   dto.GearcraftLevel,
			game.SkillJewelrycrafting: dto.JewelrycraftLevel,
		},
		Equipment: map[character.Slot]string{
			character.SlotWeapon:    dto.WeaponSlot,
			character.SlotShield:    dto.ShieldSlot,
			character.SlotHelmet:    dto.HelmetSlot,
			character.SlotBodyArmor: dto.BodyArmorSlot,
			character.SlotLegArmor:  dto.LegArmorSlot,
			character.SlotBoots:     dto.BootsSlot,
			character.SlotBag:       dto.BagSlot,
			character.SlotAmulet:    dto.AmuletSlot,
			character.SlotRing1:     dto.Ring1Slot,
			character.SlotRing2:     dto.Ring2Slot,
			character.SlotUtility1:  dto.Utility1Slot,
			character.SlotUtility2:  dto.Utility2Slot,
			character.SlotRune:      dto.RuneSlot,
		},
		UtilityQuantities: map[character.Slot]int{
			character.SlotUtility1: dto.Utility1Quantity,
			character.SlotUtility2: dto.Utility2Quantity,
		},
		Combat: character.CombatAttributes{
			AttackFire:     dto.AttackFire,
			AttackEarth:    dto.AttackEarth,
			AttackWater:    dto.AttackWater,
			AttackAir:      dto.AttackAir,
			DmgFire:        dto.DmgFire,
			DmgEarth:       dto.DmgEarth,
			DmgWater:       dto.DmgWater,
			DmgAir:         dto.DmgAir,
			Dmg:            dto.Dmg,
			ResFire:        dto.ResFire,
			ResEarth:       dto.ResEarth,
			ResWater:       dto.ResWater,
			ResAir:         dto.ResAir,
			CriticalStrike: dto.CriticalStrike,
			Initiative:     dto.Initiative,
		},
		TaskCode:           dto.Task,
		TaskType:           dto.TaskType,
		TaskProgress:       dto.TaskProgress,
		TaskTotal:          dto.TaskTotal,
		CooldownExpiration: dto.CooldownExpiration,
	}
	for _, line := range dto.Inventory {
		if line.Code != "" && line.Quantity > 0 {
			rec.Inventory = append(rec.Inventory, character.InventorySlot{Code: line.Code, Quantity: line.Quantity})
		}
	}
	return rec
}

type cooldownDTO struct {
	TotalSeconds int       `json:"total_seconds"`
	Expiration   time.Time `json:"expiration"`
}

type fightDTO struct {
	Result string `json:"result"`
	XP     int    `json:"xp"`
	Gold   int    `json:"gold"`
	Drops  []struct {
		Code     string `json:"code"`
		Quantity int    `json:"quantity"`
	} `json:"drops"`
}

type detailsDTO struct {
	XP    int `json:"xp"`
	Items []struct {
		Code     string `json:"code"`
		Quantity int    `json:"quantity"`
	} `json:"items"`
}

type bankDTO struct {
	Gold              int `json:"gold"`
	NextExpansionCost int `json:"next_expansion_cost"`
	Slots             int `json:"slots"`
}

type rewardsDTO struct {
	Items []struct {
		Code     string `json:"code"`
		Quantity int    `json:"quantity"`
	} `json:"items"`
	Gold int `json:"gold"`
}

// actionDTO is the common action response envelope payload
type actionDTO struct {
	Cooldown  *cooldownDTO  `json:"cooldown"`
	Character *characterDTO `json:"character"`
	Fight     *fightDTO     `json:"fight"`
	Details   *detailsDTO   `json:"details"`
	Bank      *bankDTO      `json:"bank"`
	Rewards   *rewardsDTO   `json:"rewards"`
}

func (dto *actionDTO) toResult() *common.ActionResult {
	res := &common.ActionResult{}
	if dto.Character != nil {
		res.Character = dto.Character.toRecord()
	}
	if dto.Cooldown != nil {
		res.CooldownExpiration = dto.Cooldown.Expiration
		res.Cooldown = time.Duration(dto.Cooldown.TotalSeconds) * time.Second
	}
	if dto.Fight != nil {
		fight := &common.FightOutcome{
			Result: dto.Fight.Result,
			XP:     dto.Fight.XP,
			Gold:   dto.Fight.Gold,
		}
		for _, d := range dto.Fight.Drops {
			fight.Drops = append(fight.Drops, character.InventorySlot{Code: d.Code, Quantity: d.Quantity})
		}
		res.Fight = fight
	}
	if dto.Details != nil {
		gather := &common.GatherOutcome{XP: dto.Details.XP}
		for _, it := range dto.Details.Items {
			gather.Items = append(gather.Items, character.InventorySlot{Code: it.Code, Quantity: it.Quantity})
		}
		res.Gather = gather
	}
	if dto.Bank != nil {
		res.Bank = &common.BankState{
			Gold:              dto.Bank.Gold,
			NextExpansionCost: dto.Bank.NextExpansionCost,
			Slots:             dto.Bank.Slots,
		}
	}
	if dto.Rewards != nil {
		for _, it := range dto.Rewards.Items {
			res.Rewards = append(res.Rewards, character.InventorySlot{Code: it.Code, Quantity: it.Quantity})
		}
	}
	return res
}
