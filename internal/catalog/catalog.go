package catalog

import (
	"bytes"
	"fmt"
)

// Catalog is a fixed array of Capacity slots plus a cached live count. Slots
// are never compacted or reordered, so a record's slot index is stable for its
// lifetime. The catalog itself is not synchronized; the workflow layer owns it
// and serializes access.
type Catalog struct {
	slots [Capacity]Record
	count int
}

// New returns an empty catalog with all slots free.
func New() *Catalog {
	return &Catalog{}
}

// Count returns the number of live records. Maintained incrementally, never
// recomputed.
func (c *Catalog) Count() int {
	return c.count
}

// Find returns the slot index of the live record with the given id. The scan
// is linear over all slots: comparison is gated on Live, then length equality,
// then bytes. Returns ErrNotFound if no live slot matches.
func (c *Catalog) Find(id []byte) (int, error) {
	for i := range c.slots {
		r := &c.slots[i]
		if !r.Live {
			continue
		}
		if len(r.ID) == len(id) && bytes.Equal(r.ID, id) {
			return i, nil
		}
	}
	return -1, ErrNotFound
}

// Insert claims the first free slot (lowest index) for a new record. Returns
// ErrFull at capacity, ErrDuplicate if the id is already live, and
// ErrInvalidID/ErrInvalidName on out-of-bound fields.
func (c *Catalog) Insert(id []byte, name string) (int, error) {
	if !validID(id) {
		return -1, fmt.Errorf("%w: %d bytes", ErrInvalidID, len(id))
	}
	if !validName(name) {
		return -1, ErrInvalidName
	}
	if c.count == Capacity {
		return -1, ErrFull
	}
	if _, err := c.Find(id); err == nil {
		return -1, ErrDuplicate
	}
	for i := range c.slots {
		if c.slots[i].Live {
			continue
		}
		c.slots[i] = Record{
			ID:   append([]byte(nil), id...),
			Name: name,
			Live: true,
		}
		c.count++
		return i, nil
	}
	// Unreachable while count tracks live slots correctly.
	return -1, ErrFull
}

// Rename overwrites the name of the record in the given slot. The id and the
// slot index are unchanged.
func (c *Catalog) Rename(slot int, name string) error {
	if slot < 0 || slot >= Capacity || !c.slots[slot].Live {
		return ErrNotFound
	}
	if !validName(name) {
		return ErrInvalidName
	}
	c.slots[slot].Name = name
	return nil
}

// Remove marks the slot free and decrements the count. The stale bytes are
// left in place; consumers always gate on Live.
func (c *Catalog) Remove(slot int) error {
	if slot < 0 || slot >= Capacity || !c.slots[slot].Live {
		return ErrNotFound
	}
	c.slots[slot].Live = false
	c.count--
	return nil
}

// Item is one entry of a List snapshot.
type Item struct {
	Name string
	ID   []byte
}

// List returns the live records in ascending slot order. The ordering is an
// observable contract of the listing interfaces.
func (c *Catalog) List() []Item {
	items := make([]Item, 0, c.count)
	for i := range c.slots {
		if !c.slots[i].Live {
			continue
		}
		items = append(items, Item{
			Name: c.slots[i].Name,
			ID:   append([]byte(nil), c.slots[i].ID...),
		})
	}
	return items
}

// Slot returns a copy of the record at the given index, live or not. Used by
// the persistence codec, which serializes all slots verbatim.
func (c *Catalog) Slot(i int) Record {
	r := c.slots[i]
	r.ID = append([]byte(nil), r.ID...)
	return r
}

// Restore overwrites the catalog in place from decoded slots and count. Only
// the persistence layer calls this, at load time.
func (c *Catalog) Restore(slots [Capacity]Record, count int) {
	c.slots = slots
	c.count = count
}
