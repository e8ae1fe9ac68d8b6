package workflow

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JonasSouza871/rfid-catalog/internal/catalog"
	"github.com/JonasSouza871/rfid-catalog/internal/flash"
	"github.com/JonasSouza871/rfid-catalog/internal/history"
	"github.com/JonasSouza871/rfid-catalog/internal/reader"
)

// ErrCardTimeout reports that no card appeared within a synchronous wait.
// Nothing was mutated and nothing was persisted.
var ErrCardTimeout = errors.New("no card detected before timeout")

// NotCataloged is the identify result reported for an unknown tag.
const NotCataloged = "not cataloged"

// Service owns the catalog and the pending operation and is the only layer
// that touches either. mu serializes catalog mutation and persistence; cardMu
// serializes the reader, so the console's blocking wait and the poll step
// never run the card-wait concurrently.
type Service struct {
	mu      sync.Mutex
	cardMu  sync.Mutex
	cat     *catalog.Catalog
	store   *flash.Store
	rdr     reader.Reader
	pending pendingOp
	hist    *history.Log
	// interval between card checks during a synchronous wait
	interval time.Duration
	logger   *zap.Logger
}

// NewService wires the catalog, the persistence store, the reader driver and
// the optional history log. interval is the card-poll spacing used by the
// synchronous console waits.
func NewService(cat *catalog.Catalog, store *flash.Store, rdr reader.Reader,
	hist *history.Log, interval time.Duration, logger *zap.Logger) *Service {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &Service{
		cat:      cat,
		store:    store,
		rdr:      rdr,
		hist:     hist,
		interval: interval,
		logger:   logger,
	}
}

// --- Network-driven (asynchronous) path ---

// BeginRegister arms registration for the next card. An empty or oversized
// name is rejected at the boundary with no state change. Overwrites any
// pending operation.
func (s *Service) BeginRegister(name string) error {
	if name == "" || len(name) > catalog.MaxNameLen {
		return catalog.ErrInvalidName
	}
	s.pending.set(ModeRegister, name)
	s.logger.Info("register armed", zap.String("name", name))
	return nil
}

// BeginIdentify arms identification for the next card and clears the last
// identify result.
func (s *Service) BeginIdentify() {
	s.pending.set(ModeIdentify, "")
	s.logger.Info("identify armed")
}

// BeginRename arms renaming for the next card.
func (s *Service) BeginRename(name string) error {
	if name == "" || len(name) > catalog.MaxNameLen {
		return catalog.ErrInvalidName
	}
	s.pending.set(ModeRename, name)
	s.logger.Info("rename armed", zap.String("name", name))
	return nil
}

// Poll performs one card check for the pending operation, if any. It is
// called from the station's poll ticker and never blocks beyond a single
// reader attempt. If the console currently owns the reader the check is
// skipped; the operation stays pending.
func (s *Service) Poll(ctx context.Context) {
	mode, name, seq := s.pending.get()
	if mode == ModeIdle {
		return
	}
	if !s.cardMu.TryLock() {
		return
	}
	defer s.cardMu.Unlock()

	if !s.rdr.CardPresent() {
		return
	}
	id, err := s.rdr.ReadSerial()
	if err != nil {
		// Card left the field mid-read; the consumption failed, the
		// pending operation is done either way.
		s.logger.Warn("card read failed", zap.Error(err))
		s.rdr.StopSession()
		s.pending.finish(seq)
		return
	}
	s.rdr.StopSession()
	s.dispatch(mode, name, seq, id)
}

// dispatch applies a consumed card to the armed operation and returns the
// pending cell to idle. seq guards against wiping an operation armed while
// the dispatch was in flight: only the arming that was consumed is finished.
func (s *Service) dispatch(mode Mode, name string, seq uint64, id []byte) {
	idHex := catalog.FormatID(id)
	switch mode {
	case ModeRegister:
		if err := s.register(id, name); err != nil {
			// Duplicate means the card is already cataloged; the
			// armed registration is simply spent.
			s.logger.Info("pending register not applied",
				zap.String("id", idHex), zap.Error(err))
		}
		s.pending.finish(seq)
	case ModeIdentify:
		found, err := s.identify(id)
		if err != nil {
			s.pending.finishWithResult(seq, NotCataloged)
			return
		}
		s.pending.finishWithResult(seq, found)
	case ModeRename:
		if err := s.rename(id, name); err != nil {
			s.logger.Info("pending rename not applied",
				zap.String("id", idHex), zap.Error(err))
		}
		s.pending.finish(seq)
	}
}

// --- Console-driven (synchronous) path ---

// RegisterTag registers a captured card under name and returns the tag id in
// colon-hex form.
func (s *Service) RegisterTag(id []byte, name string) (string, error) {
	if name == "" || len(name) > catalog.MaxNameLen {
		return "", catalog.ErrInvalidName
	}
	return catalog.FormatID(id), s.register(id, name)
}

// IdentifyTag looks up a captured card. Returns the stored name and the tag
// id; ErrNotFound for an unknown tag.
func (s *Service) IdentifyTag(id []byte) (string, string, error) {
	name, err := s.identify(id)
	return name, catalog.FormatID(id), err
}

// RenameTag renames the record matching a captured card.
func (s *Service) RenameTag(id []byte, name string) (string, error) {
	if name == "" || len(name) > catalog.MaxNameLen {
		return "", catalog.ErrInvalidName
	}
	return catalog.FormatID(id), s.rename(id, name)
}

// AwaitCard blocks until a card is read, the timeout elapses (ErrCardTimeout)
// or ctx is cancelled. It owns the reader for the whole bounded wait,
// excluding the poll step for its duration. The console captures a card with
// this, then commits it with one of the Tag operations above.
func (s *Service) AwaitCard(ctx context.Context, timeout time.Duration) ([]byte, error) {
	s.cardMu.Lock()
	defer s.cardMu.Unlock()

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if s.rdr.CardPresent() {
			id, err := s.rdr.ReadSerial()
			s.rdr.StopSession()
			if err == nil {
				return id, nil
			}
			s.logger.Warn("card read failed, retrying", zap.Error(err))
		}
		if time.Now().After(deadline) {
			return nil, ErrCardTimeout
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// --- Shared catalog operations ---

func (s *Service) register(id []byte, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, err := s.cat.Insert(id, name)
	if err != nil {
		return err
	}
	if err := s.store.Save(s.cat); err != nil {
		s.logger.Error("persist after register failed", zap.Error(err))
		return err
	}
	idHex := catalog.FormatID(id)
	s.logger.Info("tag registered",
		zap.String("id", idHex), zap.String("name", name), zap.Int("slot", slot))
	s.record(history.KindRegistered, idHex, name)
	return nil
}

func (s *Service) identify(id []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, err := s.cat.Find(id)
	if err != nil {
		return "", err
	}
	name := s.cat.Slot(slot).Name
	idHex := catalog.FormatID(id)
	s.logger.Info("tag identified", zap.String("id", idHex), zap.String("name", name))
	s.record(history.KindIdentified, idHex, name)
	return name, nil
}

func (s *Service) rename(id []byte, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, err := s.cat.Find(id)
	if err != nil {
		return err
	}
	if err := s.cat.Rename(slot, name); err != nil {
		return err
	}
	if err := s.store.Save(s.cat); err != nil {
		s.logger.Error("persist after rename failed", zap.Error(err))
		return err
	}
	idHex := catalog.FormatID(id)
	s.logger.Info("tag renamed", zap.String("id", idHex), zap.String("name", name))
	s.record(history.KindRenamed, idHex, name)
	return nil
}

// DeleteByHex removes the record whose id matches the colon-hex text exactly,
// then persists.
func (s *Service) DeleteByHex(idText string) error {
	id, err := catalog.ParseID(idText)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, err := s.cat.Find(id)
	if err != nil {
		return err
	}
	name := s.cat.Slot(slot).Name
	if err := s.cat.Remove(slot); err != nil {
		return err
	}
	if err := s.store.Save(s.cat); err != nil {
		s.logger.Error("persist after delete failed", zap.Error(err))
		return err
	}
	idHex := catalog.FormatID(id)
	s.logger.Info("tag deleted", zap.String("id", idHex), zap.String("name", name))
	s.record(history.KindDeleted, idHex, name)
	return nil
}

// record appends a history event; history failures never fail the operation.
func (s *Service) record(kind history.Kind, idHex, name string) {
	if s.hist == nil {
		return
	}
	if err := s.hist.Append(kind, idHex, name); err != nil {
		s.logger.Warn("history append failed", zap.Error(err))
	}
}

// --- Snapshots ---

// Item is one catalog entry in wire form.
type Item struct {
	Name  string `json:"name"`
	IDHex string `json:"id_hex"`
}

// Items returns the live records in ascending slot order.
func (s *Service) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.cat.List()
	items := make([]Item, len(list))
	for i, it := range list {
		items[i] = Item{Name: it.Name, IDHex: catalog.FormatID(it.ID)}
	}
	return items
}

// Status is the pending-operation snapshot served by /api/status.
type Status struct {
	Status       string `json:"status"`
	TotalItems   int    `json:"total_items"`
	RegisterMode bool   `json:"register_mode"`
	IdentifyMode bool   `json:"identify_mode"`
	RenameMode   bool   `json:"rename_mode"`
	LastItem     string `json:"last_item"`
}

// Status reports the pending mode and the catalog count.
func (s *Service) Status() Status {
	mode, lastResult := s.pending.snapshot()
	s.mu.Lock()
	count := s.cat.Count()
	s.mu.Unlock()
	return Status{
		Status:       mode.String(),
		TotalItems:   count,
		RegisterMode: mode == ModeRegister,
		IdentifyMode: mode == ModeIdentify,
		RenameMode:   mode == ModeRename,
		LastItem:     lastResult,
	}
}

// Count returns the live record count.
func (s *Service) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cat.Count()
}
