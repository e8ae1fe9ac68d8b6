package reader

import (
	"errors"
	"sync"
)

// ErrNoCard is returned by ReadSerial when no card is in the field.
var ErrNoCard = errors.New("no card present")

// Sim is a software reader used in tests and in sim mode, where taps are
// injected through the API instead of a physical MFRC522.
type Sim struct {
	mu   sync.Mutex
	card []byte
}

// NewSim returns a reader with an empty field.
func NewSim() *Sim {
	return &Sim{}
}

// Tap places a card in the field until the next StopSession.
func (s *Sim) Tap(id []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.card = append([]byte(nil), id...)
}

func (s *Sim) CardPresent() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.card != nil
}

func (s *Sim) ReadSerial() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.card == nil {
		return nil, ErrNoCard
	}
	return append([]byte(nil), s.card...), nil
}

func (s *Sim) StopSession() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.card = nil
}
