package listener

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestJitter(t *testing.T) {
	tests := []struct {
		name string
		base time.Duration
		min  time.Duration
		max  time.Duration
	}{
		{"configured base", 4 * time.Second, 2 * time.Second, 6 * time.Second},
		{"zero falls back to a second", 0, 500 * time.Millisecond, 1500 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 100; i++ {
				d := jitter(tt.base)
				assert.GreaterOrEqual(t, d, tt.min)
				assert.LessOrEqual(t, d, tt.max)
			}
		})
	}
}

func TestDue(t *testing.T) {
	now := time.Now()
	assert.True(t, due(time.Time{}, now))
	assert.False(t, due(now.Add(-50*time.Millisecond), now))
	assert.True(t, due(now.Add(-debounce), now))
}
