package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemorySetGet(t *testing.T) {
	c := NewMemory()
	c.Set("k", 42, 0)

	v, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, 42, v)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestMemoryTTL(t *testing.T) {
	c := NewMemory()
	c.Set("short", "v", time.Nanosecond)
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get("short")
	assert.False(t, ok)
}

func TestMemoryExpire(t *testing.T) {
	c := NewMemory()
	c.Set("k", "v", 0)
	c.Expire("k")

	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestNoopNeverStores(t *testing.T) {
	var c Noop
	c.Set("k", "v", time.Hour)
	_, ok := c.Get("k")
	assert.False(t, ok)
}
