package engine

import "gimmefy/core"

// The rule tables are small (tens of entries), so greatest-lower-bound
// resolution happens here over the listed table rather than in each storage
// adapter. This keeps the tie-break deterministic in exactly one place.

// ResolveLevelRule returns the level rule with the greatest threshold strictly
// below exp. Ties on the threshold break toward the higher level. The second
// return is false when exp clears no threshold at all; callers treat that as
// "no change".
func ResolveLevelRule(rules []core.RuleLevel, exp float64) (core.RuleLevel, bool) {
	var best core.RuleLevel
	found := false
	for _, r := range rules {
		if r.ExpGTE >= exp {
			continue
		}
		if !found || r.ExpGTE > best.ExpGTE || (r.ExpGTE == best.ExpGTE && r.Level > best.Level) {
			best = r
			found = true
		}
	}
	return best, found
}

// LevelRuleAt is the exact-match lookup by level number.
func LevelRuleAt(rules []core.RuleLevel, level int) (core.RuleLevel, bool) {
	for _, r := range rules {
		if r.Level == level {
			return r, true
		}
	}
	return core.RuleLevel{}, false
}

// ResolveItemRule mirrors ResolveLevelRule for the item-tier track.
func ResolveItemRule(rules []core.RuleItem, exp float64) (core.RuleItem, bool) {
	var best core.RuleItem
	found := false
	for _, r := range rules {
		if r.ExpGTE >= exp {
			continue
		}
		if !found || r.ExpGTE > best.ExpGTE || (r.ExpGTE == best.ExpGTE && r.Level > best.Level) {
			best = r
			found = true
		}
	}
	return best, found
}

// ItemRuleAt is the exact-match lookup by item tier level.
func ItemRuleAt(rules []core.RuleItem, level int) (core.RuleItem, bool) {
	for _, r := range rules {
		if r.Level == level {
			return r, true
		}
	}
	return core.RuleItem{}, false
}
