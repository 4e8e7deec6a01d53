package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMake(t *testing.T) {
	cases := []struct {
		title string
		want  string
	}{
		{"Two Sum", "two-sum"},
		{"Add Two Numbers", "add-two-numbers"},
		{"Pow(x, n)", "powx-n"},
		{"3Sum", "3sum"},
		{"  Valid   Parentheses ", "valid-parentheses"},
		{"Best Time to Buy and Sell Stock II", "best-time-to-buy-and-sell-stock-ii"},
		{"Café Order", "cafe-order"},
		{"Two-Sum -- II", "two-sum-ii"},
		{"", ""},
	}
	for _, tc := range cases {
		t.Run(tc.title, func(t *testing.T) {
			assert.Equal(t, tc.want, Make(tc.title))
		})
	}
}
