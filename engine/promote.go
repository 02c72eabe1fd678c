package engine

import (
	"context"
	"time"

	"gimmefy/core"
)

// promotion carries the optional inputs to one promote call.
type promotion struct {
	// expAdded is accumulated onto the total.
	expAdded float64
	// expAbsolute raises the total to this floor; it never regresses it.
	expAbsolute float64
	// hasAndroid latches the one-way android flag when true.
	hasAndroid bool
	// totalHosts overwrites the host count when nonzero.
	totalHosts int
}

// promoteLocked applies experience deltas, re-resolves the level and item
// tracks, updates the daily streak, and persists the user. The caller must
// hold the user's lock. Levels only ever move up; a missing rule means "no
// change".
func (s *Service) promoteLocked(ctx context.Context, u *core.User, p promotion) error {
	if p.expAdded != 0 {
		u.TotalExp += p.expAdded
	}
	if p.expAbsolute != 0 && p.expAbsolute > u.TotalExp {
		u.TotalExp = p.expAbsolute
	}

	levelRules, err := s.storage.ListLevelRules(ctx)
	if err != nil {
		return err
	}
	prevLevel := u.Level
	if rule, ok := ResolveLevelRule(levelRules, u.TotalExp); ok && rule.Level >= u.Level {
		u.Level = rule.Level
	}
	label := core.LabelForLevel(u.Level)
	u.LevelName = label.Name
	u.Year = label.Year
	if next, ok := LevelRuleAt(levelRules, u.Level+1); ok {
		u.UntilNextLevel = next.ExpGTE - u.TotalExp
	} else {
		// max level reached
		u.UntilNextLevel = 0
	}

	itemRules, err := s.storage.ListItemRules(ctx)
	if err != nil {
		return err
	}
	prevItem := u.ItemLevel
	var unlocked core.RuleItem
	if rule, ok := ResolveItemRule(itemRules, u.TotalExp); ok && rule.Level >= u.ItemLevel {
		u.ItemLevel = rule.Level
		unlocked = rule
	}
	if next, ok := ItemRuleAt(itemRules, u.ItemLevel+1); ok {
		u.UntilNextItem = next.ExpGTE - u.TotalExp
		u.NextItem = next.Item
	} else {
		u.UntilNextItem = 0
		u.NextItem = ""
	}

	now := s.now()
	s.advanceStreak(u, now)

	if p.hasAndroid {
		u.HasAndroid = true
	}
	if p.totalHosts != 0 {
		u.TotalHosts = p.totalHosts
	}
	u.LastOnline = now

	if err := s.storage.UpdateUser(ctx, u); err != nil {
		return err
	}
	if u.Level > prevLevel {
		s.bus.Publish(ctx, core.NewLevelUp(u.Username, u.Level))
	}
	if u.ItemLevel > prevItem {
		s.bus.Publish(ctx, core.NewItemUnlocked(u.Username, u.ItemLevel, unlocked.Item))
	}
	return nil
}

// advanceStreak compares the UTC calendar dates of the previous LastOnline and
// now. A gap over one day resets the streak; any day change counts one more
// consecutive day. Same-day repeats leave the streak untouched.
func (s *Service) advanceStreak(u *core.User, now time.Time) {
	deltaDays := calendarDaysBetween(u.LastOnline, now)
	if deltaDays <= 0 {
		return
	}
	if deltaDays > 1 {
		u.CurrentStreak = 0
	}
	u.CurrentStreak++
	if u.CurrentStreak > u.MaxStreak {
		u.MaxStreak = u.CurrentStreak
	}
}

// calendarDaysBetween counts whole UTC calendar days from a to b.
func calendarDaysBetween(a, b time.Time) int {
	return int(midnightUTC(b).Sub(midnightUTC(a)).Hours() / 24)
}

func midnightUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
