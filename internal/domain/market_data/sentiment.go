package market_data

import (
	"strings"
	"unicode"
)

var (
	positiveWords = map[string]struct{}{
		"up": {}, "rise": {}, "gain": {}, "profit": {}, "growth": {}, "positive": {}, "bullish": {}, "strong": {},
	}
	negativeWords = map[string]struct{}{
		"down": {}, "fall": {}, "loss": {}, "decline": {}, "negative": {}, "bearish": {}, "weak": {}, "drop": {},
	}
)

// ClassifySentiment labels text by counting positive and negative keyword tokens.
// Ties, including no hits at all, are neutral.
func ClassifySentiment(text string) SentimentLabel {
	var pos, neg int
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	}) {
		if _, ok := positiveWords[w]; ok {
			pos++
		}
		if _, ok := negativeWords[w]; ok {
			neg++
		}
	}
	switch {
	case pos > neg:
		return SentimentPositive
	case neg > pos:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}
