package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_BurstThenRefill(t *testing.T) {
	now := time.Unix(1700000000, 0)
	rl := NewRateLimiter(1, 2, time.Minute)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("10.0.0.1:5000"))
	assert.True(t, rl.Allow("10.0.0.1:5001"))
	assert.False(t, rl.Allow("10.0.0.1:5002"), "same host shares a bucket")
	assert.True(t, rl.Allow("10.0.0.2:5000"), "other host has its own bucket")

	now = now.Add(time.Second)
	assert.True(t, rl.Allow("10.0.0.1:5003"))
}

func TestRateLimiter_SweepsIdleClients(t *testing.T) {
	now := time.Unix(1700000000, 0)
	rl := NewRateLimiter(1, 1, time.Minute)
	rl.now = func() time.Time { return now }

	rl.Allow("10.0.0.1:1")
	rl.Allow("10.0.0.2:1")
	assert.Len(t, rl.clients, 2)

	now = now.Add(2 * time.Minute)
	rl.Allow("10.0.0.3:1")
	assert.Len(t, rl.clients, 1)
}

func TestRateLimiter_Nil(t *testing.T) {
	var rl *RateLimiter
	assert.True(t, rl.Allow("anything"))
}

func TestClientKey(t *testing.T) {
	assert.Equal(t, "10.0.0.1", clientKey("10.0.0.1:443"))
	assert.Equal(t, "::1", clientKey("[::1]:80"))
	assert.Equal(t, "no-port", clientKey("no-port"))
}
