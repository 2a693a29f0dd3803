package combat

import (
	"github.com/andrescamacho/artifacts-go/internal/domain/character"
	"github.com/andrescamacho/artifacts-go/internal/domain/game"
)

// FromCharacter builds the character-side fighter from a live record
func FromCharacter(rec *character.Record) Fighter {
	a := rec.Combat
	return Fighter{
		MaxHP: rec.MaxHP,
		HP:    rec.MaxHP,
		Attack: Elements{
			Fire:  a.AttackFire,
			Earth: a.AttackEarth,
			Water: a.AttackWater,
			Air:   a.AttackAir,
		},
		DmgPct: Elements{
			Fire:  a.DmgFire,
			Earth: a.DmgEarth,
			Water: a.DmgWater,
			Air:   a.DmgAir,
		},
		Dmg: a.Dmg,
		Res: Elements{
			Fire:  a.ResFire,
			Earth: a.ResEarth,
			Water: a.ResWater,
			Air:   a.ResAir,
		},
		CriticalStrike: a.CriticalStrike,
		Initiative:     a.Initiative,
	}
}

// FromMonster builds the monster-side fighter from a catalog entry
func FromMonster(m *game.Monster) Fighter {
	f := Fighter{
		MaxHP: m.HP,
		HP:    m.HP,
		Attack: Elements{
			Fire:  m.AttackFire,
			Earth: m.AttackEarth,
			Water: m.AttackWater,
			Air:   m.AttackAir,
		},
		Res: Elements{
			Fire:  m.ResFire,
			Earth: m.ResEarth,
			Water: m.ResWater,
			Air:   m.ResAir,
		},
		CriticalStrike: m.CriticalStrike,
		Initiative:     m.Initiative,
	}
	if len(m.Effects) > 0 {
		f.Effects = make(map[string]int, len(m.Effects))
		for _, e := range m.Effects {
			f.Effects[e.Code] = e.Value
		}
	}
	return f
}
