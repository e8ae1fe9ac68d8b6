// Package flash persists the catalog to a single block-erase flash sector.
package flash

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/JonasSouza871/rfid-catalog/internal/catalog"
)

const (
	// Magic marks a sector that holds a valid catalog image.
	Magic uint32 = 0x52464944

	// PageSize is the program granularity of the medium; every Program call
	// must be a whole number of pages. SectorSize is the erase granularity.
	PageSize   = 256
	SectorSize = 4096

	// Erased is the value every byte holds after an erase. The encoded block
	// is padded with it so padding is indistinguishable from never-written
	// flash.
	Erased byte = 0xFF

	slotIDSize   = catalog.MaxIDLen
	slotNameSize = catalog.MaxNameLen + 1 // NUL terminator reserved
	slotSize     = slotIDSize + 1 + slotNameSize + 1

	rawSize = 4 + catalog.Capacity*slotSize + 4
)

// BlockSize is rawSize rounded up to the next program page.
const BlockSize = (rawSize + PageSize - 1) / PageSize * PageSize

// ErrCorrupt reports a block whose magic field does not match. Uninitialized
// flash, a power loss between erase and program, and bit rot all look the
// same; the loader recovers by starting empty.
var ErrCorrupt = errors.New("flash block corrupt")

// Encode serializes the catalog into a BlockSize byte image:
// [magic:4][slots: Capacity x (id:10, id_len:1, name:32, live:1)][count:4],
// little-endian, padded with the erased-state fill value.
func Encode(cat *catalog.Catalog) []byte {
	block := bytes.Repeat([]byte{Erased}, BlockSize)
	binary.LittleEndian.PutUint32(block[0:4], Magic)

	off := 4
	for i := 0; i < catalog.Capacity; i++ {
		r := cat.Slot(i)
		slot := block[off : off+slotSize]
		for j := range slot {
			slot[j] = 0
		}
		copy(slot[:slotIDSize], r.ID)
		slot[slotIDSize] = byte(len(r.ID))
		copy(slot[slotIDSize+1:slotIDSize+1+slotNameSize], r.Name)
		if r.Live {
			slot[slotSize-1] = 1
		}
		off += slotSize
	}
	binary.LittleEndian.PutUint32(block[off:off+4], uint32(cat.Count()))
	return block
}

// Decode reconstructs a catalog from a sector image. A short block, a magic
// mismatch, or a count word disagreeing with the live flags yields ErrCorrupt.
func Decode(block []byte) (*catalog.Catalog, error) {
	if len(block) < rawSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrCorrupt, len(block))
	}
	if binary.LittleEndian.Uint32(block[0:4]) != Magic {
		return nil, ErrCorrupt
	}

	var slots [catalog.Capacity]catalog.Record
	off := 4
	for i := 0; i < catalog.Capacity; i++ {
		slot := block[off : off+slotSize]
		idLen := int(slot[slotIDSize])
		if idLen > slotIDSize {
			return nil, fmt.Errorf("%w: slot %d id length %d", ErrCorrupt, i, idLen)
		}
		name := slot[slotIDSize+1 : slotIDSize+1+slotNameSize]
		if n := bytes.IndexByte(name, 0); n >= 0 {
			name = name[:n]
		}
		slots[i] = catalog.Record{
			ID:   append([]byte(nil), slot[:idLen]...),
			Name: string(name),
			Live: slot[slotSize-1] != 0,
		}
		off += slotSize
	}
	count := int(binary.LittleEndian.Uint32(block[off : off+4]))
	live := 0
	for i := range slots {
		if slots[i].Live {
			live++
		}
	}
	// The count word is redundant with the live flags; a disagreement means
	// the block rotted after it was written.
	if count != live {
		return nil, fmt.Errorf("%w: count %d, live slots %d", ErrCorrupt, count, live)
	}

	cat := catalog.New()
	cat.Restore(slots, count)
	return cat, nil
}
