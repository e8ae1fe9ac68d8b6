package flash

import (
	"fmt"
	"sync"
)

// Device is the raw storage medium boundary: one fixed erase-unit of NOR-style
// flash. Program calls must be page-aligned and may only happen after an
// erase; programming can clear bits but never set them.
type Device interface {
	// Read returns the whole sector. It always returns data, valid or not;
	// validity is judged by Decode.
	Read() ([]byte, error)
	// Erase fills the sector with the erased-state value.
	Erase() error
	// Program writes data at the given sector offset. Offset and length must
	// be multiples of PageSize.
	Program(offset int, data []byte) error
}

// checkProgramBounds validates the alignment contract shared by devices.
func checkProgramBounds(offset int, data []byte) error {
	if offset%PageSize != 0 || len(data)%PageSize != 0 {
		return fmt.Errorf("program not page-aligned: offset %d, len %d", offset, len(data))
	}
	if offset+len(data) > SectorSize {
		return fmt.Errorf("program past sector end: offset %d, len %d", offset, len(data))
	}
	return nil
}

// MemDevice is an in-memory sector used by tests. It emulates NOR programming
// semantics (bits only go 1 -> 0) so that a missing erase is observable.
type MemDevice struct {
	mu     sync.Mutex
	sector [SectorSize]byte
}

// NewMemDevice returns a MemDevice in the erased state.
func NewMemDevice() *MemDevice {
	d := &MemDevice{}
	for i := range d.sector {
		d.sector[i] = Erased
	}
	return d
}

func (d *MemDevice) Read() ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]byte(nil), d.sector[:]...), nil
}

func (d *MemDevice) Erase() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.sector {
		d.sector[i] = Erased
	}
	return nil
}

func (d *MemDevice) Program(offset int, data []byte) error {
	if err := checkProgramBounds(offset, data); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, b := range data {
		d.sector[offset+i] &= b
	}
	return nil
}

// Corrupt flips the first magic byte in place, simulating bit rot or a
// partial write. Test helper.
func (d *MemDevice) Corrupt() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sector[0] ^= 0xFF
}

// Blank reports whether the sector is fully erased.
func (d *MemDevice) Blank() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, b := range d.sector {
		if b != Erased {
			return false
		}
	}
	return true
}
