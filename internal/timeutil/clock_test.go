package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRealClock(t *testing.T) {
	var c Clock = RealClock{}
	start := c.Now()
	assert.GreaterOrEqual(t, c.Since(start), time.Duration(0))

	ticker := c.NewTicker(time.Millisecond)
	defer ticker.Stop()
	select {
	case <-ticker.C():
	case <-time.After(time.Second):
		t.Fatal("real ticker did not fire")
	}
}

func TestMockClock_NowAndSince(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMockClock(base)

	assert.Equal(t, base, c.Now())
	c.Advance(350 * time.Millisecond)
	assert.Equal(t, 350*time.Millisecond, c.Since(base))

	c.Set(base)
	assert.Equal(t, base, c.Now())
}

func TestMockTicker(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMockClock(base)
	ticker := c.NewTicker(100 * time.Millisecond)

	c.Advance(50 * time.Millisecond)
	select {
	case <-ticker.C():
		t.Fatal("ticker fired before its deadline")
	default:
	}

	c.Advance(50 * time.Millisecond)
	select {
	case got := <-ticker.C():
		assert.Equal(t, base.Add(100*time.Millisecond), got)
	default:
		t.Fatal("ticker did not fire at its deadline")
	}

	ticker.Stop()
	c.Advance(time.Second)
	select {
	case <-ticker.C():
		t.Fatal("stopped ticker fired")
	default:
	}
}
