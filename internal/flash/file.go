package flash

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
)

// FileDevice backs the flash sector with a SectorSize file on disk, so the
// catalog survives restarts the way the on-device sector survives power
// cycles. A missing file reads as a fully erased sector.
type FileDevice struct {
	path string
}

// NewFileDevice creates the parent directory if needed and returns a device
// over the given path.
func NewFileDevice(path string) (*FileDevice, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("flash dir: %w", err)
	}
	return &FileDevice{path: path}, nil
}

func (d *FileDevice) Read() ([]byte, error) {
	data, err := os.ReadFile(d.path)
	if os.IsNotExist(err) {
		return bytes.Repeat([]byte{Erased}, SectorSize), nil
	}
	if err != nil {
		return nil, fmt.Errorf("flash read %s: %w", d.path, err)
	}
	if len(data) < SectorSize {
		// Short file: treat the tail as erased.
		data = append(data, bytes.Repeat([]byte{Erased}, SectorSize-len(data))...)
	}
	return data[:SectorSize], nil
}

func (d *FileDevice) Erase() error {
	if err := os.WriteFile(d.path, bytes.Repeat([]byte{Erased}, SectorSize), 0o644); err != nil {
		return fmt.Errorf("flash erase %s: %w", d.path, err)
	}
	return nil
}

func (d *FileDevice) Program(offset int, data []byte) error {
	if err := checkProgramBounds(offset, data); err != nil {
		return err
	}
	f, err := os.OpenFile(d.path, os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("flash program %s: %w", d.path, err)
	}
	defer f.Close()
	if _, err := f.WriteAt(data, int64(offset)); err != nil {
		return fmt.Errorf("flash program %s: %w", d.path, err)
	}
	return f.Sync()
}
