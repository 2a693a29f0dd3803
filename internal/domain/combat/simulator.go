package combat

import "math"

// MaxTurns caps every simulated fight; hitting the cap counts as a loss.
const MaxTurns = 100

// WinHPLossThreshold is the standard viability threshold: a simulated win
// only counts when the character keeps at least 10% of max HP.
const WinHPLossThreshold = 90

// Elements holds one value per damage element
type Elements struct {
	Fire  int
	Earth int
	Water int
	Air   int
}

// Fighter is one side of a simulated fight. Effects holds the named combat
// effects (poison, burn, barrier, healing, reconstitution, void_drain,
// bubble, corrupted, berserker_rage, frenzy, lifesteal) keyed by code.
type Fighter struct {
	MaxHP          int
	HP             int // starting HP; 0 means start at MaxHP
	Attack         Elements
	DmgPct         Elements // per-element damage percent bonus
	Dmg            int      // global damage percent bonus
	Res            Elements
	CriticalStrike int // percent
	Initiative     int
	Effects        map[string]int
}

// Utility is an equipped consumable that participates in the fight
type Utility struct {
	Code       string
	Quantity   int
	Restore    int // one-shot heal below 50% HP
	Antipoison int // flat reduction against poison damage
}

// Rune is the character's equipped rune contribution
type Rune struct {
	Burn      int
	Heal      int
	Frenzy    int
	Lifesteal int
}

// Options carries the character-side extras of a simulation
type Options struct {
	Utilities []Utility
	Rune      *Rune
}

// Result is the deterministic outcome of a simulated fight
type Result struct {
	Win           bool
	Turns         int
	RemainingHP   int
	HPLostPercent int
}

func round(v float64) int {
	return int(math.Round(v))
}

// expectedHit computes one side's expected damage against the other.
// frenzyAvg and bonusDmg are flat additions to the damage percent;
// resReduction lowers the defender's effective resistances.
func expectedHit(att, def *Fighter, frenzyAvg float64, bonusDmg int, resReduction int, defResPenalty int) int {
	total := 0
	bases := [4]int{att.Attack.Fire, att.Attack.Earth, att.Attack.Water, att.Attack.Air}
	pcts := [4]int{att.DmgPct.Fire, att.DmgPct.Earth, att.DmgPct.Water, att.DmgPct.Air}
	ress := [4]int{def.Res.Fire, def.Res.Earth, def.Res.Water, def.Res.Air}
	for i := 0; i < 4; i++ {
		base := bases[i]
		if base == 0 {
			continue
		}
		dmgPct := float64(pcts[i]+att.Dmg+bonusDmg) + frenzyAvg
		boosted := base + round(float64(base)*dmgPct/100)
		resEff := ress[i] - resReduction - defResPenalty
		reduction := round(float64(boosted) * float64(resEff) / 100)
		hit := boosted - reduction
		if hit < 0 {
			hit = 0
		}
		total += hit
	}
	critChance := math.Min(float64(att.CriticalStrike)/100, 1)
	return round(float64(total) * (1 + critChance*0.5))
}

func critChance(f *Fighter) float64 {
	return math.Min(float64(f.CriticalStrike)/100, 1)
}

func hasEffects(f *Fighter) bool {
	for _, v := range f.Effects {
		if v != 0 {
			return true
		}
	}
	return false
}

// Simulate runs a deterministic expected-value fight between a character and
// a monster. The character attacks first on higher initiative; on a tie the
// character leads when its max HP is at least the monster's HP.
func Simulate(char, monster Fighter, opts Options) Result {
	charHP := char.HP
	if charHP <= 0 {
		charHP = char.MaxHP
	}
	monHP := monster.HP
	if monHP <= 0 {
		monHP = monster.MaxHP
	}
	monMaxHP := monHP

	charFirst := char.Initiative > monster.Initiative ||
		(char.Initiative == monster.Initiative && char.MaxHP >= monHP)

	rn := opts.Rune
	if rn == nil {
		rn = &Rune{}
	}

	charCrit := critChance(&char)
	monCrit := critChance(&monster)

	// Frenzy is a crit-triggered next-turn boost, modeled as its expected
	// average contribution to the damage percent.
	charFrenzy := charCrit * float64(rn.Frenzy+char.Effects["frenzy"])
	monFrenzy := monCrit * float64(monster.Effects["frenzy"])

	// Protective bubble averages out to +bubble/4 percent on all monster
	// resistances.
	bubblePenalty := -monster.Effects["bubble"] / 4

	antipoison := 0
	restores := make([]int, 0, len(opts.Utilities))
	for _, u := range opts.Utilities {
		if u.Quantity <= 0 {
			continue
		}
		if u.Antipoison > antipoison {
			antipoison = u.Antipoison
		}
		if u.Restore > 0 {
			restores = append(restores, u.Restore)
		}
	}

	fast := !hasEffects(&char) && !hasEffects(&monster) &&
		*rn == (Rune{}) && antipoison == 0 && len(restores) == 0

	var fastCharHit, fastMonHit int
	if fast {
		fastCharHit = expectedHit(&char, &monster, 0, 0, 0, 0)
		fastMonHit = expectedHit(&monster, &char, 0, 0, 0, 0)
	}

	var charBurn, monBurn float64 // burn damage pending on each side
	var monBarrier int
	var corruption int // stacking res penalty on the character
	charTurns, monTurns := 0, 0
	restoreUsed := 0

	for turn := 1; turn <= MaxTurns; turn++ {
		for half := 0; half < 2; half++ {
			charActs := (half == 0) == charFirst
			if charActs {
				charTurns++
				if fast {
					monHP -= fastCharHit
					if monHP <= 0 {
						return makeResult(true, turn, charHP, char.MaxHP)
					}
					continue
				}
				// Pending burn ticks on the acting side, then decays.
				if charBurn >= 1 {
					charHP -= round(charBurn)
					charBurn *= 0.9
					if charHP <= 0 {
						return makeResult(false, turn, 0, char.MaxHP)
					}
				}
				// Poison ticks against the character each of its turns.
				if p := monster.Effects["poison"]; p > 0 {
					tick := p - antipoison
					if tick > 0 {
						charHP -= tick
						if charHP <= 0 {
							return makeResult(false, turn, 0, char.MaxHP)
						}
					}
				}
				if rn.Heal > 0 {
					charHP += rn.Heal
					if charHP > char.MaxHP {
						charHP = char.MaxHP
					}
				}
				if restoreUsed < len(restores) && charHP*2 < char.MaxHP {
					charHP += restores[restoreUsed]
					restoreUsed++
					if charHP > char.MaxHP {
						charHP = char.MaxHP
					}
				}
				hit := expectedHit(&char, &monster, charFrenzy, 0, 0, bubblePenalty)
				// Each character attack stacks corruption against it.
				if cv := monster.Effects["corrupted"]; cv > 0 {
					corruption += cv
				}
				if monBarrier > 0 {
					absorbed := hit
					if absorbed > monBarrier {
						absorbed = monBarrier
					}
					monBarrier -= absorbed
					hit -= absorbed
				}
				monHP -= hit
				if ls := rn.Lifesteal + char.Effects["lifesteal"]; ls > 0 {
					charHP += round(charCrit * float64(hit) * float64(ls) / 100)
					if charHP > char.MaxHP {
						charHP = char.MaxHP
					}
				}
				if b := rn.Burn + char.Effects["burn"]; b > 0 && monBurn < 1 {
					monBurn = float64(hit) * float64(b) / 100
				}
				if monHP <= 0 {
					return makeResult(true, turn, charHP, char.MaxHP)
				}
			} else {
				monTurns++
				if fast {
					charHP -= fastMonHit
					if charHP <= 0 {
						return makeResult(false, turn, 0, char.MaxHP)
					}
					continue
				}
				if monBurn >= 1 {
					monHP -= round(monBurn)
					monBurn *= 0.9
					if monHP <= 0 {
						return makeResult(true, turn, charHP, char.MaxHP)
					}
				}
				if bv := monster.Effects["barrier"]; bv > 0 && monTurns%5 == 1 {
					monBarrier = bv
				}
				if hv := monster.Effects["healing"]; hv > 0 && monTurns%3 == 0 {
					monHP += hv
					if monHP > monMaxHP {
						monHP = monMaxHP
					}
				}
				if rt := monster.Effects["reconstitution"]; rt > 0 && monTurns == rt {
					monHP = monMaxHP
				}
				if dv := monster.Effects["void_drain"]; dv > 0 && monTurns%4 == 0 {
					charHP -= dv
					monHP += dv
					if monHP > monMaxHP {
						monHP = monMaxHP
					}
					if charHP <= 0 {
						return makeResult(false, turn, 0, char.MaxHP)
					}
				}
				rageBonus := 0
				if rv := monster.Effects["berserker_rage"]; rv > 0 && monHP*4 < monMaxHP {
					rageBonus = rv
				}
				hit := expectedHit(&monster, &char, monFrenzy, rageBonus, corruption, 0)
				charHP -= hit
				if ls := monster.Effects["lifesteal"]; ls > 0 {
					monHP += round(monCrit * float64(hit) * float64(ls) / 100)
					if monHP > monMaxHP {
						monHP = monMaxHP
					}
				}
				if b := monster.Effects["burn"]; b > 0 && charBurn < 1 {
					charBurn = float64(hit) * float64(b) / 100
				}
				if charHP <= 0 {
					return makeResult(false, turn, 0, char.MaxHP)
				}
			}
		}
	}
	return makeResult(false, MaxTurns, charHP, char.MaxHP)
}

func makeResult(win bool, turns, remainingHP, maxHP int) Result {
	if remainingHP < 0 {
		remainingHP = 0
	}
	lost := 0
	if maxHP > 0 {
		lost = (maxHP - remainingHP) * 100 / maxHP
	}
	return Result{Win: win, Turns: turns, RemainingHP: remainingHP, HPLostPercent: lost}
}

// IsViableWin applies the standard viability threshold: a win that keeps at
// least 10% of max HP.
func (r Result) IsViableWin() bool {
	return r.Win && r.HPLostPercent <= WinHPLossThreshold
}

/// HPNeededForFight returns the HP required to take the fight safely: the
// simulated damage taken plus a 10% crit buffer. Returns ok=false when the
// fight is unwinnable even at full HP.
func HPNeededForFight(char, monster Fighter, opts Options) (int, bool) {
	char.HP = 0 // full HP
	res := Simulate(char, monster, opts)
	if !res.Win {
		return 0, false
	}
	taken := char.MaxHP - res.RemainingHP
	return taken + int(math.Ceil(float64(char.MaxHP)*0.10)), true
}
