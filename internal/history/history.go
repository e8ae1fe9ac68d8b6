// Package history provides the Pebble-backed scan event log.
package history

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Kind labels what a completed operation did to the catalog.
type Kind string

const (
	KindRegistered Kind = "registered"
	KindIdentified Kind = "identified"
	KindRenamed    Kind = "renamed"
	KindDeleted    Kind = "deleted"
)

// Event is one completed catalog operation.
type Event struct {
	ID    string `json:"id"`
	Kind  Kind   `json:"kind"`
	TagID string `json:"tag_id"`
	Name  string `json:"name,omitempty"`
	At    int64  `json:"at"`
}

// Log is an append-only event log in a Pebble store. Keys are the event
// timestamp (big-endian nanoseconds) plus the event UUID, so iteration order
// is chronological.
type Log struct {
	db     *pebble.DB
	path   string
	logger *zap.Logger
}

// NewLog creates a Log instance (not yet opened).
func NewLog(dbPath string, logger *zap.Logger) *Log {
	return &Log{path: dbPath, logger: logger}
}

// Init opens the Pebble database.
func (l *Log) Init() error {
	opts := &pebble.Options{
		Logger: &pebbleLogger{l.logger},
	}
	db, err := pebble.Open(l.path, opts)
	if err != nil {
		return fmt.Errorf("pebble open %s: %w", l.path, err)
	}
	l.db = db
	l.logger.Info("history log opened", zap.String("path", l.path))
	return nil
}

// Close flushes and closes the database.
func (l *Log) Close() error {
	if l.db != nil {
		return l.db.Close()
	}
	return nil
}

// Append records an event. The ID and timestamp are assigned here.
func (l *Log) Append(kind Kind, tagID, name string) error {
	ev := Event{
		ID:    uuid.NewString(),
		Kind:  kind,
		TagID: tagID,
		Name:  name,
		At:    time.Now().Unix(),
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	key := make([]byte, 8, 8+len(ev.ID))
	binary.BigEndian.PutUint64(key, uint64(time.Now().UnixNano()))
	key = append(key, ev.ID...)

	if err := l.db.Set(key, data, pebble.Sync); err != nil {
		return fmt.Errorf("pebble set: %w", err)
	}
	return nil
}

// Recent returns up to limit events, newest first.
func (l *Log) Recent(limit int) ([]Event, error) {
	iter, err := l.db.NewIter(nil)
	if err != nil {
		return nil, fmt.Errorf("pebble iter: %w", err)
	}
	defer iter.Close()

	events := make([]Event, 0, limit)
	for ok := iter.Last(); ok && len(events) < limit; ok = iter.Prev() {
		var ev Event
		if err := json.Unmarshal(iter.Value(), &ev); err != nil {
			l.logger.Warn("skipping undecodable history entry", zap.Error(err))
			continue
		}
		events = append(events, ev)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	return events, nil
}

// pebbleLogger adapts zap.Logger to the pebble.Logger interface.
type pebbleLogger struct {
	z *zap.Logger
}

func (l *pebbleLogger) Infof(format string, args ...any) {
	l.z.Sugar().Infof(format, args...)
}

func (l *pebbleLogger) Fatalf(format string, args ...any) {
	l.z.Sugar().Fatalf(format, args...)
}
