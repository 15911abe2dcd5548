package sentiment

import (
	"strings"

	"stockwatch/internal/domain/market_data"
)

var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`the a an and or but in on at to for of with by
		is was are were be been being have has had do does did
		will would could should may might must can that this these those`) {
		stopWords[w] = struct{}{}
	}
}

// KeyTopics returns the most frequent title words longer than three characters.
// Ties keep first-seen order.
func KeyTopics(articles []market_data.Article, limit int) []string {
	counts := make(map[string]int)
	var order []string
	for _, art := range articles {
		for _, raw := range strings.Fields(strings.ToLower(art.Title)) {
			w := strings.Trim(raw, ".,!?:;\"'()")
			if len(w) <= 3 {
				continue
			}
			if _, stop := stopWords[w]; stop {
				continue
			}
			if counts[w] == 0 {
				order = append(order, w)
			}
			counts[w]++
		}
	}

	topics := make([]string, 0, limit)
	used := make(map[string]bool, limit)
	for len(topics) < limit {
		best := ""
		for _, w := range order {
			if !used[w] && (best == "" || counts[w] > counts[best]) {
				best = w
			}
		}
		if best == "" {
			break
		}
		used[best] = true
		topics = append(topics, strings.ToUpper(best[:1])+best[1:])
	}
	return topics
}
