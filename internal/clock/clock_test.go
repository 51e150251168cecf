package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMock(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	m := NewMock(start)
	assert.Equal(t, start, m.Now())

	m.Advance(90 * time.Second)
	assert.Equal(t, start.Add(90*time.Second), m.Now())

	later := start.Add(24 * time.Hour)
	m.Set(later)
	assert.Equal(t, later, m.Now())
}

func TestNewMockZeroUsesNow(t *testing.T) {
	before := time.Now()
	m := NewMock(time.Time{})
	assert.False(t, m.Now().Before(before))
}

func TestOrReal(t *testing.T) {
	assert.IsType(t, Real{}, OrReal(nil))

	m := NewMock(time.Unix(100, 0))
	assert.Same(t, m, OrReal(m))
}
