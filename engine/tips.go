package engine

import (
	"context"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"gimmefy/core"
)

// TipCategory buckets the seed phrase pools.
type TipCategory string

const (
	// TipGreeting: first visit of a calendar day.
	TipGreeting TipCategory = "greeting"
	// TipBusy: the activity signal shows ongoing work; short, affirming.
	TipBusy TipCategory = "busy"
	// TipIdle: nothing much happening; longer, reflective.
	TipIdle TipCategory = "idle"
)

// busyThreshold on the smoothed activity score separates busy from idle.
const busyThreshold = 0.5

var tipPools = map[TipCategory][]string{
	TipGreeting: {
		"Hello there!",
		"Good to see you again.",
		"Great weather for science today.",
	},
	TipBusy: {
		"Keep it up.",
		"The experiment is humming along.",
		"Nice pace today.",
	},
	TipIdle: {
		"It has been a while since we ran anything interesting.",
		"I would love to prove a theorem one of these days.",
		"Maybe we could breed a new kind of carnivorous plant.",
		"Such a good day to solve a little puzzle.",
	},
}

// CategoryFor picks the tip bucket from the pre-promotion last-online date and
// the smoothed activity score.
func CategoryFor(lastOnline, now time.Time, expavgScore float64) TipCategory {
	if !sameCalendarDay(lastOnline, now) {
		return TipGreeting
	}
	if expavgScore > busyThreshold {
		return TipBusy
	}
	return TipIdle
}

func sameCalendarDay(a, b time.Time) bool {
	return midnightUTC(a).Equal(midnightUTC(b))
}

// Tip runs score computation and promotion for the telemetry signal, then
// produces a tip: a seed phrase from the category pool is handed to the text
// generator, the output is sanitized, and generation is retried a bounded
// number of times while the result is unusable. On exhaustion or generator
// failure the seed phrase itself is the tip, so the endpoint never fails on
// upstream trouble alone.
func (s *Service) Tip(ctx context.Context, username core.Username, t Telemetry, hasAndroid bool) (core.Tip, error) {
	username, err := core.NormalizeUsername(username)
	if err != nil {
		return core.Tip{}, err
	}
	unlock := s.locks.lock(username)
	defer unlock()

	u, err := s.getOrCreateLocked(ctx, username)
	if err != nil {
		return core.Tip{}, err
	}
	// the category depends on the pre-promotion last-online date
	lastOnline := u.LastOnline
	score := s.cfg.Score.Score(t.TotalScore, t.ExpavgScore, t.CPUs, t.RegistrationTime, s.now())
	p := promotion{expAbsolute: score, hasAndroid: hasAndroid, totalHosts: t.CPUs}
	if err := s.promoteLocked(ctx, u, p); err != nil {
		return core.Tip{}, err
	}

	category := CategoryFor(lastOnline, s.now(), t.ExpavgScore)
	seed := pickPhrase(tipPools[category])
	return core.Tip{Text: s.generateTip(ctx, seed)}, nil
}

func (s *Service) generateTip(ctx context.Context, seed string) string {
	if s.gen == nil {
		return SanitizeTip(seed)
	}
	for attempt := 0; attempt < s.cfg.TipRetries; attempt++ {
		raw, err := s.gen.Generate(ctx, seed)
		if err != nil {
			break
		}
		tip := SanitizeTip(raw)
		if UsableTip(tip) {
			return tip
		}
	}
	return SanitizeTip(seed)
}

func pickPhrase(pool []string) string {
	return pool[rand.Intn(len(pool))]
}

var (
	wordRe  = regexp.MustCompile(`\pL`)
	digitRe = regexp.MustCompile(`[0-9]`)
)

// UsableTip rejects output without word characters and output containing
// digits; the generator tends to hallucinate numbers.
func UsableTip(s string) bool {
	return wordRe.MatchString(s) && !digitRe.MatchString(s)
}

// SanitizeTip normalizes raw generator output: trims whitespace, drops the
// trailing line of multi-line output, drops a trailing truncated clause when
// more than two complete sentences precede it, and guarantees terminal
// punctuation (trimming a dangling comma-clause first).
func SanitizeTip(s string) string {
	s = strings.TrimSpace(s)

	if lines := strings.Split(s, "\n"); len(lines) > 1 {
		s = strings.TrimSpace(strings.Join(lines[:len(lines)-1], "\n"))
	}

	if parts := splitSentences(s); len(parts) > 2 && !endsTerminal(parts[len(parts)-1]) {
		s = strings.TrimSpace(strings.Join(parts[:len(parts)-1], ""))
	}

	if !endsTerminal(s) {
		if idx := strings.LastIndex(s, ","); idx > 0 {
			s = strings.TrimSpace(s[:idx])
		}
		if s != "" {
			s += "."
		}
	}
	return s
}

// splitSentences cuts after each sentence terminator, keeping the terminator
// with its clause. A non-empty trailing element is an unterminated fragment.
func splitSentences(s string) []string {
	var parts []string
	start := 0
	for i, r := range s {
		if r == '.' || r == '!' || r == '?' {
			parts = append(parts, s[start:i+1])
			start = i + 1
		}
	}
	if strings.TrimSpace(s[start:]) != "" {
		parts = append(parts, s[start:])
	}
	return parts
}

func endsTerminal(s string) bool {
	return strings.HasSuffix(s, ".") || strings.HasSuffix(s, "!") || strings.HasSuffix(s, "?")
}
