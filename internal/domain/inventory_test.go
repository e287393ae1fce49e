package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInventoryRecordAvailable(t *testing.T) {
	rec := &InventoryRecord{Quantity: 10, Reserved: 3}

	assert.Equal(t, 7, rec.Available())
	assert.True(t, rec.HasAvailable(7))
	assert.False(t, rec.HasAvailable(8))
}

func TestInventoryRecordNeedsReorder(t *testing.T) {
	rec := &InventoryRecord{Quantity: 10, Reserved: 4, ReorderLevel: 5}
	assert.False(t, rec.NeedsReorder())

	rec.Reserved = 5
	assert.True(t, rec.NeedsReorder())

	rec.Reserved = 8
	assert.True(t, rec.NeedsReorder())
}
