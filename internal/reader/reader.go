// Package reader defines the RFID reader driver boundary.
package reader

// Reader is the card reader collaborator. At most one caller drives the
// card-wait step at a time; the workflow layer enforces that with a lock.
type Reader interface {
	// CardPresent reports whether a new card is in the field.
	CardPresent() bool
	// ReadSerial reads the present card's identifier bytes.
	ReadSerial() ([]byte, error)
	// StopSession ends the session with the current card so the next
	// CardPresent call sees a fresh presentation.
	StopSession()
}
