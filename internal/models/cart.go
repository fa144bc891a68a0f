package models

import (
	"sync"

	"github.com/shopspring/decimal"
)

// Cart is a multiset of lesson IDs, one entry per booked seat.
// It is safe for concurrent use.
type Cart struct {
	mu      sync.RWMutex
	entries []string
}

// CartItem is one aggregated line of the cart
type CartItem struct {
	Lesson   Lesson          `json:"lesson"`
	Quantity int             `json:"quantity"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// LessonQuantity is a distinct lesson ID with its requested seat count
type LessonQuantity struct {
	LessonID string
	Quantity int
}

// NewCart creates an empty cart, optionally seeded with entries
func NewCart(ids ...string) *Cart {
	c := &Cart{}
	c.entries = append(c.entries, ids...)
	return c
}

// Add appends one occurrence of id. Capacity is not checked here.
func (c *Cart) Add(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, id)
}

// RemoveOne removes a single occurrence of id and reports whether one was present
func (c *Cart) RemoveOne(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, entry := range c.entries {
		if entry == id {
			c.entries = append(c.entries[:i], c.entries[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveAll removes every occurrence of id and returns how many were removed
func (c *Cart) RemoveAll(id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.entries[:0]
	removed := 0
	for _, entry := range c.entries {
		if entry == id {
			removed++
			continue
		}
		kept = append(kept, entry)
	}
	c.entries = kept
	return removed
}

// Clear empties the cart
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = nil
}

// CountOf returns the number of occurrences of id
func (c *Cart) CountOf(id string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	count := 0
	for _, entry := range c.entries {
		if entry == id {
			count++
		}
	}
	return count
}

// IsEmpty reports whether the cart holds no entries
func (c *Cart) IsEmpty() bool {
	return c.Len() == 0
}

// Len returns the total number of entries (seats) in the cart
func (c *Cart) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Entries returns a copy of the raw entry sequence
func (c *Cart) Entries() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]string, len(c.entries))
	copy(out, c.entries)
	return out
}

// Quantities groups the cart by lesson ID, in order of first appearance
func (c *Cart) Quantities() []LessonQuantity {
	c.mu.RLock()
	defer c.mu.RUnlock()

	index := make(map[string]int)
	var out []LessonQuantity
	for _, entry := range c.entries {
		if i, ok := index[entry]; ok {
			out[i].Quantity++
			continue
		}
		index[entry] = len(out)
		out = append(out, LessonQuantity{LessonID: entry, Quantity: 1})
	}
	return out
}
