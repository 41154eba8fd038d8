package channel

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rgbkbdd/corectl/internal/device"
)

func TestSelectorDefaultsToZero(t *testing.T) {
	s := NewSelector()
	assert.Equal(t, 0, s.Current())
}

func TestSelectorTryConsume(t *testing.T) {
	s := NewSelector()

	assert.False(t, s.TryConsume("rgb"))
	assert.Equal(t, 0, s.Current())

	assert.True(t, s.TryConsume("@3"))
	assert.Equal(t, 3, s.Current())

	// Out of range: consumed, but ignored (channel unchanged).
	assert.True(t, s.TryConsume("@99"))
	assert.Equal(t, 3, s.Current())

	// Not a valid @N at all: not consumed.
	assert.False(t, s.TryConsume("@x"))
}

func TestSelectorReset(t *testing.T) {
	s := NewSelector()
	s.TryConsume("@2")
	s.Reset()
	assert.Equal(t, 0, s.Current())
}

func TestTableChannelZeroPermanent(t *testing.T) {
	tbl := NewTable()
	assert.True(t, tbl.IsOpen(0))
	tbl.Destroy(0)
	assert.True(t, tbl.IsOpen(0))
}

func TestTableCreateDestroy(t *testing.T) {
	tbl := NewTable()
	tbl.Create(3)
	assert.True(t, tbl.IsOpen(3))

	tbl.Destroy(3)
	assert.False(t, tbl.IsOpen(3))
}

func TestTableCreateOutOfRangeIsNoop(t *testing.T) {
	tbl := NewTable()
	tbl.Create(device.OutfifoMax)
	tbl.Create(-1)
	assert.False(t, tbl.IsOpen(device.OutfifoMax))
	assert.False(t, tbl.IsOpen(-1))
}
