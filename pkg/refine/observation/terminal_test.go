package observation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTerminalIndexLaterDepartureWins(t *testing.T) {
	idx := NewTerminalIndex()
	key := NewTerminalKey("v1", "b1", 42)

	idx.RecordDeparture(key, 100)
	idx.RecordDeparture(key, 999)

	got, ok := idx.Lookup(key)
	assert.True(t, ok)
	assert.Equal(t, 999, got)
	assert.Equal(t, 1, idx.Len())
}

func TestTerminalIndexLookupMiss(t *testing.T) {
	idx := NewTerminalIndex()
	_, ok := idx.Lookup(NewTerminalKey("v1", "b1", 1))
	assert.False(t, ok)
	assert.Equal(t, 0, idx.Len())
}

func TestTerminalIndexKeyedByFullTuple(t *testing.T) {
	idx := NewTerminalIndex()
	idx.RecordDeparture(NewTerminalKey("v1", "b1", 1), 100)
	idx.RecordDeparture(NewTerminalKey("v1", "b1", 2), 200)
	idx.RecordDeparture(NewTerminalKey("v2", "b1", 1), 300)

	assert.Equal(t, 3, idx.Len())

	got, ok := idx.Lookup(NewTerminalKey("v1", "b1", 2))
	assert.True(t, ok)
	assert.Equal(t, 200, got)
}
