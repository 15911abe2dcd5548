package market_data

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifySentiment(t *testing.T) {
	tests := []struct {
		text string
		want SentimentLabel
	}{
		{"Shares rise on strong profit growth", SentimentPositive},
		{"Stock falls as losses mount; outlook weak, shares drop", SentimentNegative},
		{"Company holds annual meeting", SentimentNeutral},
		{"Shares up on profit, but decline expected", SentimentPositive},
		{"Rise and fall", SentimentNeutral},
		{"", SentimentNeutral},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifySentiment(tt.text))
		})
	}
}
