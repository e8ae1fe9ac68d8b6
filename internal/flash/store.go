package flash

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JonasSouza871/rfid-catalog/internal/catalog"
)

// ErrPersistFailed reports a failed erase or program cycle. The in-memory
// catalog is already mutated when this surfaces; the next successful save
// reconverges the sector.
var ErrPersistFailed = errors.New("persist failed")

// Store performs the erase-then-program write cycle against a Device and the
// corrupt-tolerant load on boot.
type Store struct {
	dev    Device
	logger *zap.Logger
}

// NewStore wraps a device.
func NewStore(dev Device, logger *zap.Logger) *Store {
	return &Store{dev: dev, logger: logger}
}

// Save encodes the catalog and writes it with an erase-then-program cycle.
// The write is not atomic against power loss: a loss between erase and
// program leaves the sector erased, which Load treats as a first boot. Single
// sector, no mirrored copy.
func (s *Store) Save(cat *catalog.Catalog) error {
	block := Encode(cat)
	if err := s.dev.Erase(); err != nil {
		return fmt.Errorf("%w: erase: %v", ErrPersistFailed, err)
	}
	if err := s.dev.Program(0, block); err != nil {
		return fmt.Errorf("%w: program: %v", ErrPersistFailed, err)
	}
	s.logger.Debug("catalog persisted", zap.Int("count", cat.Count()))
	return nil
}

// Load reads the sector and decodes it. A corrupt or never-written sector is
// not an error: it yields an empty catalog, and the magic is stamped by the
// first Save.
func (s *Store) Load() (*catalog.Catalog, error) {
	block, err := s.dev.Read()
	if err != nil {
		return nil, fmt.Errorf("flash read: %w", err)
	}
	cat, err := Decode(block)
	if errors.Is(err, ErrCorrupt) {
		s.logger.Info("no valid catalog in flash, starting empty", zap.Error(err))
		return catalog.New(), nil
	}
	if err != nil {
		return nil, err
	}
	s.logger.Info("catalog loaded from flash", zap.Int("count", cat.Count()))
	return cat, nil
}
