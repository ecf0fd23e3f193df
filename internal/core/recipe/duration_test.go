package recipe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		expr string
		want int
	}{
		{"PT1H30M", 90},
		{"PT45M", 45},
		{"PT2H", 120},
		{"45 minutes", 45},
		{"1 hour", 60},
		{"2 hrs", 120},
		{"20min", 20},
		{"About 15 Minutes", 15},
		{"garbage", 0},
		{"PT", 0},
		{"about PT then PT20M", 20},
		{"1.5 hours", 90},
		{"0.75 hr", 45},
		{"2.5 min", 3},
		{"1 hour 30 minutes", 60},
		{"", 0},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseDuration(tt.expr))
		})
	}
}
