package engine

import (
	"testing"

	"gimmefy/core"
)

func TestResolveLevelRuleStrictlyBelow(t *testing.T) {
	rules := []core.RuleLevel{
		{Level: 2, ExpGTE: 50},
		{Level: 3, ExpGTE: 150},
	}
	if _, ok := ResolveLevelRule(rules, 49); ok {
		t.Fatal("49 clears nothing")
	}
	// thresholds are strict: exactly 50 does not clear the level-2 rule
	if _, ok := ResolveLevelRule(rules, 50); ok {
		t.Fatal("50 does not clear the strict threshold")
	}
	r, ok := ResolveLevelRule(rules, 51)
	if !ok || r.Level != 2 {
		t.Fatalf("want level 2, got %+v ok=%v", r, ok)
	}
	r, ok = ResolveLevelRule(rules, 1000)
	if !ok || r.Level != 3 {
		t.Fatalf("want level 3, got %+v ok=%v", r, ok)
	}
}

func TestResolveLevelRuleTieBreak(t *testing.T) {
	rules := []core.RuleLevel{
		{Level: 4, ExpGTE: 100},
		{Level: 5, ExpGTE: 100},
	}
	r, ok := ResolveLevelRule(rules, 200)
	if !ok || r.Level != 5 {
		t.Fatalf("ties break to the higher level, got %+v", r)
	}
}

func TestLevelRuleAt(t *testing.T) {
	rules := []core.RuleLevel{{Level: 2, ExpGTE: 50}}
	if r, ok := LevelRuleAt(rules, 2); !ok || r.ExpGTE != 50 {
		t.Fatalf("got %+v ok=%v", r, ok)
	}
	if _, ok := LevelRuleAt(rules, 3); ok {
		t.Fatal("level 3 has no rule")
	}
}

func TestResolveItemRule(t *testing.T) {
	rules := []core.RuleItem{
		{Item: "chest_1", Level: 2, ExpGTE: 100},
		{Item: "chest_2", Level: 3, ExpGTE: 300},
	}
	if _, ok := ResolveItemRule(rules, 100); ok {
		t.Fatal("exact threshold does not clear")
	}
	r, ok := ResolveItemRule(rules, 301)
	if !ok || r.Item != "chest_2" || r.Level != 3 {
		t.Fatalf("got %+v ok=%v", r, ok)
	}
	if next, ok := ItemRuleAt(rules, 3); !ok || next.Item != "chest_2" {
		t.Fatalf("got %+v ok=%v", next, ok)
	}
}
