package social

import "strings"

type Tone string

const (
	ToneFriendly Tone = "friendly"
	ToneHostile  Tone = "hostile"
	ToneNeutral  Tone = "neutral"
)

var hostileKeywords = []string{
	"betray", "enemy", "attack", "destroy", "fool", "liar", "hate",
	"stupid", "useless", "weak", "threat", "demand", "or else",
	"crush", "disaster", "hoard", "greed", "suffering", "oppress",
}

var friendlyKeywords = []string{
	"friend", "help", "support", "thanks", "thank you", "appreciate",
	"good", "great", "ally", "together", "cooperate", "peace", "love",
	"please", "kind",
}

// ClassifyTone is total and deterministic. Hostile signals win over friendly
// ones: an accusation wrapped in a thank-you is still hostile.
func ClassifyTone(text string) Tone {
	if text == "" {
		return ToneNeutral
	}

	// Shouting: more than half the characters upper-case.
	if len(text) > 5 {
		upper := 0
		for _, c := range text {
			if c >= 'A' && c <= 'Z' {
				upper++
			}
		}
		if upper*2 > len(text) {
			return ToneHostile
		}
	}

	lower := strings.ToLower(text)
	for _, w := range hostileKeywords {
		if strings.Contains(lower, w) {
			return ToneHostile
		}
	}
	for _, w := range friendlyKeywords {
		if strings.Contains(lower, w) {
			return ToneFriendly
		}
	}
	return ToneNeutral
}
