package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterBlocksOverLimit(t *testing.T) {
	rl := NewSignalRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("alice"), "attempt %d", i)
	}
	assert.False(t, rl.Allow("alice"))

	// Other users have their own window.
	assert.True(t, rl.Allow("bob"))
}

func TestRateLimiterForget(t *testing.T) {
	rl := NewSignalRateLimiter(1, time.Minute)
	assert.True(t, rl.Allow("alice"))
	assert.False(t, rl.Allow("alice"))

	rl.Forget("alice")
	assert.True(t, rl.Allow("alice"))
}

func TestRateLimiterWindowExpires(t *testing.T) {
	rl := NewSignalRateLimiter(1, 10*time.Millisecond)
	assert.True(t, rl.Allow("alice"))
	assert.False(t, rl.Allow("alice"))

	time.Sleep(20 * time.Millisecond)
	assert.True(t, rl.Allow("alice"))
}
