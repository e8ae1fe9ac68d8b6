// Package workflow orchestrates catalog operations across the console and the
// network handlers.
package workflow

import "sync"

// Mode is the pending-operation state shared between the API handlers, which
// set it, and the poll step, which consumes it.
type Mode int

const (
	ModeIdle Mode = iota
	ModeRegister
	ModeIdentify
	ModeRename
)

func (m Mode) String() string {
	switch m {
	case ModeRegister:
		return "register"
	case ModeIdentify:
		return "identify"
	case ModeRename:
		return "rename"
	default:
		return "idle"
	}
}

// pendingOp is the singleton cross-context handoff cell. Setting a mode while
// another is pending overwrites it: last write wins, by contract (single
// operator). The mutex replaces the unsynchronized globals of the original
// single-threaded firmware.
type pendingOp struct {
	mu         sync.Mutex
	mode       Mode
	name       string
	seq        uint64
	lastResult string
}

// set arms a pending operation, overwriting any prior one. Each arming bumps
// seq so a finish for an older arming cannot clear this one.
func (p *pendingOp) set(mode Mode, name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mode = mode
	p.name = name
	p.seq++
	if mode == ModeIdentify {
		p.lastResult = ""
	}
}

// get returns the armed mode, its pending name, and the arming sequence the
// consumer must present back to finish.
func (p *pendingOp) get() (Mode, string, uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mode, p.name, p.seq
}

// finish returns to idle, regardless of how the consumed card was handled.
// If a newer operation was armed after seq was observed, that operation stays
// pending and the finish is a no-op.
func (p *pendingOp) finish(seq uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.seq != seq {
		return
	}
	p.mode = ModeIdle
	p.name = ""
}

// finishWithResult is finish plus recording an identify outcome for the
// status endpoint. A superseded finish records nothing: the newer arming
// already cleared the result it wants to observe.
func (p *pendingOp) finishWithResult(seq uint64, result string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.seq != seq {
		return
	}
	p.mode = ModeIdle
	p.name = ""
	p.lastResult = result
}

// snapshot returns the mode and last identify result.
func (p *pendingOp) snapshot() (Mode, string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mode, p.lastResult
}
