package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowWithinBurst(t *testing.T) {
	p := NewPerKey(60) // burst 20
	for i := 0; i < 20; i++ {
		assert.True(t, p.Allow("abc123"), "request %d should pass", i)
	}
}

func TestAllowRejectsBeyondBurst(t *testing.T) {
	p := NewPerKey(3) // burst 1
	assert.True(t, p.Allow("abc123"))
	assert.False(t, p.Allow("abc123"))
}

func TestKeysAreIndependent(t *testing.T) {
	p := NewPerKey(3)
	assert.True(t, p.Allow("chan-a"))
	assert.False(t, p.Allow("chan-a"))
	assert.True(t, p.Allow("chan-b"))
}

func TestZeroRateDisablesLimiting(t *testing.T) {
	p := NewPerKey(0)
	for i := 0; i < 1000; i++ {
		assert.True(t, p.Allow("abc123"))
	}
}
