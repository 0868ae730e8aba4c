package questgen

import (
	"fmt"
	"strings"
)

// Mode is how much the caller constrained the request
type Mode string

const (
	ModeQuick  Mode = "quick"
	ModeCustom Mode = "custom"
)

// Tier is a lower-case difficulty as used by the generator
type Tier string

const (
	TierEasy   Tier = "easy"
	TierMedium Tier = "medium"
	TierHard   Tier = "hard"
	TierEpic   Tier = "epic"
)

// Category is a generator category
type Category string

const (
	CategoryFitness  Category = "fitness"
	CategoryLearning Category = "learning"
)

// Tiers lists the tiers in ascending order
var Tiers = []Tier{TierEasy, TierMedium, TierHard, TierEpic}

// Categories lists the generator categories
var Categories = []Category{CategoryFitness, CategoryLearning}

// AllowedXP is the closed set of XP values a generated quest may carry
var AllowedXP = []int{50, 100, 150, 250}

// Opposite returns the other generator category
func (c Category) Opposite() Category {
	if c == CategoryFitness {
		return CategoryLearning
	}
	return CategoryFitness
}

// DisplayName is the stored category name ("fitness" -> "Fitness")
func (c Category) DisplayName() string {
	s := string(c)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// ParseTier accepts any casing of a tier name
func ParseTier(s string) (Tier, error) {
	t := Tier(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case TierEasy, TierMedium, TierHard, TierEpic:
		return t, nil
	}
	return "", fmt.Errorf("unknown difficulty %q", s)
}

// ParseCategory accepts any casing of a category name. Empty input yields "".
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case "", CategoryFitness, CategoryLearning:
		return c, nil
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// ParseMode defaults to quick
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case "":
		return ModeQuick, nil
	case ModeQuick, ModeCustom:
		return m, nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

// MinuteRange is an inclusive duration window
type MinuteRange struct {
	Min     int `json:"min"`
	Max     int `json:"max"`
	Default int `json:"default"`
}

// Contains reports whether m falls inside the window
func (r MinuteRange) Contains(m int) bool {
	return m >= r.Min && m <= r.Max
}

// FitnessParams scales the fitness templates
type FitnessParams struct {
	Minutes MinuteRange `json:"minutes"`
	RunKm   int         `json:"run_km"`
	WalkKm  int         `json:"walk_km"`
	Rounds  int         `json:"rounds"`
	Reps    int         `json:"reps"`
}

// LearningParams scales the learning templates
type LearningParams struct {
	Minutes MinuteRange `json:"minutes"`
	Lessons int         `json:"lessons"`
}

// TierParams is one row of the difficulty table
type TierParams struct {
	Tier     Tier           `json:"tier"`
	XP       int            `json:"xp"`
	Fitness  FitnessParams  `json:"fitness"`
	Learning LearningParams `json:"learning"`
}

// Minutes returns the duration window for a category
func (p TierParams) Minutes(c Category) MinuteRange {
	if c == CategoryLearning {
		return p.Learning.Minutes
	}
	return p.Fitness.Minutes
}

var difficultyTable = map[Tier]TierParams{
	TierEasy: {
		Tier:     TierEasy,
		XP:       50,
		Fitness:  FitnessParams{Minutes: MinuteRange{10, 20, 15}, RunKm: 1, WalkKm: 2, Rounds: 2, Reps: 10},
		Learning: LearningParams{Minutes: MinuteRange{10, 15, 10}, Lessons: 1},
	},
	TierMedium: {
		Tier:     TierMedium,
		XP:       100,
		Fitness:  FitnessParams{Minutes: MinuteRange{20, 35, 30}, RunKm: 3, WalkKm: 4, Rounds: 3, Reps: 15},
		Learning: LearningParams{Minutes: MinuteRange{20, 30, 25}, Lessons: 2},
	},
	TierHard: {
		Tier:     TierHard,
		XP:       150,
		Fitness:  FitnessParams{Minutes: MinuteRange{35, 50, 45}, RunKm: 5, WalkKm: 6, Rounds: 4, Reps: 20},
		Learning: LearningParams{Minutes: MinuteRange{40, 60, 45}, Lessons: 3},
	},
	TierEpic: {
		Tier:     TierEpic,
		XP:       250,
		Fitness:  FitnessParams{Minutes: MinuteRange{50, 90, 60}, RunKm: 10, WalkKm: 10, Rounds: 5, Reps: 25},
		Learning: LearningParams{Minutes: MinuteRange{60, 120, 90}, Lessons: 5},
	},
}

// ParamsFor returns the table row for a tier
func ParamsFor(t Tier) (TierParams, bool) {
	p, ok := difficultyTable[t]
	return p, ok
}

// IsAllowedXP reports whether xp is one of the fixed tier values
func IsAllowedXP(xp int) bool {
	for _, v := range AllowedXP {
		if v == xp {
			return true
		}
	}
	return false
}
