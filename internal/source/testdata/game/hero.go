package game

import "example.com/game/gear"

type Meters float64

type Vitals struct {
	Health    float32 `stat:"category=Vitals"`
	MaxHealth float32 `stat:"display=Max HP;category=Vitals"`
}

type Hero struct {
	Vitals
	Speed  Meters `stat:"category=Movement;description=Meters per second"`
	Level  int    `stat:"category=Progression;hidden"`
	Name   string `stat:"category=Identity"`
	secret int    `stat:""`
	Ignore int    `stat:"-"`
	Plain  int
	Gear   gear.Loadout
}

type hidden struct {
	Power float32 `stat:"category=Vitals"`
}

func (h hidden) power() float32 { return h.Power }
