package core

import (
	"testing"
	"time"
)

func TestScoreBounds(t *testing.T) {
	p := DefaultScoreParams()
	reg := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := reg.AddDate(0, 6, 0)

	// With no raw score the result is bounded by base*(cpus+1).
	s := p.Score(0, 0, 0, reg, now)
	if s <= 0 || s >= p.BasePerCPU {
		t.Fatalf("score out of bounds: %v", s)
	}

	// Older hosts score higher, all else equal.
	older := p.Score(0, 0, 0, reg.AddDate(-2, 0, 0), now)
	if older <= s {
		t.Fatalf("age should raise the score: %v <= %v", older, s)
	}

	// More workers raise the ceiling.
	if p.Score(0, 0, 4, reg, now) <= s {
		t.Fatal("cpus should raise the score")
	}

	// The raw total contributes linearly.
	withTotal := p.Score(10000, 0, 0, reg, now)
	if withTotal != s+p.TotalWeight*10000 {
		t.Fatalf("total addend wrong: %v vs %v", withTotal, s+p.TotalWeight*10000)
	}
}

func TestStreakBucket(t *testing.T) {
	cases := map[int]int{0: 1, 1: 1, 6: 1, 7: 7, 13: 7, 14: 14, 100: 14}
	for in, want := range cases {
		if got := StreakBucket(in); got != want {
			t.Fatalf("StreakBucket(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestAvatarKey(t *testing.T) {
	u := &User{
		Gender: GenderFemale, Theme: ThemeDark,
		HasAndroid: true, TotalHosts: 3,
		MaxStreak: 8, Level: 5, ItemLevel: 2,
	}
	if got := AvatarKey(u); got != "female_dark_1_1_7_5_2" {
		t.Fatalf("unexpected key: %s", got)
	}
	u.TotalHosts = 1
	u.HasAndroid = false
	if got := AvatarKey(u); got != "female_dark_0_0_7_5_2" {
		t.Fatalf("unexpected key: %s", got)
	}
}

func TestRenderedAvatarPath(t *testing.T) {
	u := &User{Gender: GenderMale, Theme: ThemeLight, ItemLevel: 3}
	if got := RenderedAvatarPath(u); got != "light/adv_man/adv_man_2.png" {
		t.Fatalf("unexpected path: %s", got)
	}
	// Tier never drops below 1.
	u.ItemLevel = 1
	if got := RenderedAvatarPath(u); got != "light/adv_man/adv_man_1.png" {
		t.Fatalf("unexpected path: %s", got)
	}
	u.Gender = GenderFemale
	u.Theme = ThemeDark
	u.ItemLevel = 5
	if got := RenderedAvatarPath(u); got != "dark/adv_woman/adv_woman_4.png" {
		t.Fatalf("unexpected path: %s", got)
	}
}
