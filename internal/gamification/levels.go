// Package gamification holds the pure XP, level, streak and badge rules.
package gamification

import (
	"time"

	"sidequest/internal/models"
)

// LevelThresholds is the cumulative XP needed for each level, index 0 = level 1
var LevelThresholds = []int64{
	0, 100, 250, 450, 700, 1000, 1400, 1900, 2500, 3200,
	4000, 5000, 6200, 7600, 9200, 11000, 13000, 15500, 18500, 22000,
}

// MaxLevel is the highest reachable level
var MaxLevel = len(LevelThresholds)

// LevelForXP returns the highest level whose threshold is at most xp
func LevelForXP(xp int64) int {
	level := 1
	for i, threshold := range LevelThresholds {
		if xp >= threshold {
			level = i + 1
		}
	}
	return level
}

// LevelInfo describes progress inside the current level
type LevelInfo struct {
	Level         int     `json:"level"`
	XP            int64   `json:"xp"`
	CurrentFloor  int64   `json:"current_level_xp"`
	NextThreshold *int64  `json:"next_level_xp,omitempty"`
	XPToNext      int64   `json:"xp_to_next_level"`
	Progress      float64 `json:"progress"`
	IsMaxLevel    bool    `json:"is_max_level"`
}

// DescribeLevel computes level progress for a total XP
func DescribeLevel(xp int64) LevelInfo {
	level := LevelForXP(xp)
	info := LevelInfo{
		Level:        level,
		XP:           xp,
		CurrentFloor: LevelThresholds[level-1],
	}
	if level >= MaxLevel {
		info.IsMaxLevel = true
		info.Progress = 1
		return info
	}

	next := LevelThresholds[level]
	info.NextThreshold = &next
	info.XPToNext = next - xp
	span := next - info.CurrentFloor
	info.Progress = float64(xp-info.CurrentFloor) / float64(span)
	return info
}

// LevelTableEntry is one row of the public level table
type LevelTableEntry struct {
	Level int   `json:"level"`
	XP    int64 `json:"xp"`
}

// LevelTable returns the thresholds as rows
func LevelTable() []LevelTableEntry {
	out := make([]LevelTableEntry, len(LevelThresholds))
	for i, xp := range LevelThresholds {
		out[i] = LevelTableEntry{Level: i + 1, XP: xp}
	}
	return out
}

// XPAward is the result of adding XP to a user
type XPAward struct {
	Amount        int   `json:"amount"`
	PreviousXP    int64 `json:"previous_xp"`
	NewXP         int64 `json:"new_xp"`
	PreviousLevel int   `json:"previous_level"`
	NewLevel      int   `json:"new_level"`
	LeveledUp     bool  `json:"leveled_up"`
}

// ApplyXP computes the new totals for an award
func ApplyXP(currentXP int64, amount int) XPAward {
	newXP := currentXP + int64(amount)
	if newXP < 0 {
		newXP = 0
	}
	prev := LevelForXP(currentXP)
	next := LevelForXP(newXP)
	return XPAward{
		Amount:        amount,
		PreviousXP:    currentXP,
		NewXP:         newXP,
		PreviousLevel: prev,
		NewLevel:      next,
		LeveledUp:     next > prev,
	}
}

// ===============================
// STREAKS
// ===============================

// NextStreak returns the streak after activity at now. Days are UTC calendar
// days: same day keeps the streak, the following day extends it, any longer
// gap restarts it at 1.
func NextStreak(current int, lastActivity *time.Time, now time.Time) int {
	if lastActivity == nil || current <= 0 {
		return 1
	}
	last := truncateDay(lastActivity.UTC())
	today := truncateDay(now.UTC())

	switch days := int(today.Sub(last).Hours() / 24); {
	case days <= 0:
		return current
	case days == 1:
		return current + 1
	default:
		return 1
	}
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ApplyStreak updates the user's streak counters in place
func ApplyStreak(u *models.User, now time.Time) {
	u.CurrentStreak = NextStreak(u.CurrentStreak, u.LastActivityAt, now)
	if u.CurrentStreak > u.LongestStreak {
		u.LongestStreak = u.CurrentStreak
	}
	t := now
	u.LastActivityAt = &t
}
