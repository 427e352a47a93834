// Package txrx drives bytes across the boundary between a port's ring
// buffers and its device FIFOs: the TX controller refills THR from
// the TX ring under a self-clocking interrupt gate, the RX controller
// drains RBR into the RX ring whenever the device reports data ready.
package txrx

import (
	"sync"

	"github.com/MasterMochi/drv-ns16550/internal/uart"
)

// State is the TX controller's self-clocking gate.
type State int

const (
	// Stopped means the THR-empty interrupt source is disabled because
	// the TX ring was last observed empty.
	Stopped State = iota
	// Started means THR-empty is enabled and the controller is
	// actively draining the ring on each interrupt.
	Started
)

func (s State) String() string {
	if s == Started {
		return "STARTED"
	}
	return "STOPPED"
}

// TxController pops bytes from a port's TX ring into its THR,
// stopping the THR-empty interrupt source once the ring runs dry and
// restarting it on the next write. mu is the port lock, shared with
// the RX controller and the state machine over the same port.
type TxController struct {
	mu   *sync.Mutex
	ring *uart.Ring
	regs *uart.RegisterBank

	state State

	// onReadyWrite is called after releasing mu, once per Drive, to let
	// the file manager recompute and possibly announce WRITE readiness.
	onReadyWrite func()
}

// NewTxController constructs a TX controller over the given port lock,
// ring, and register bank. The controller starts STOPPED, matching a
// freshly initialized port with THR interrupts disabled.
func NewTxController(mu *sync.Mutex, ring *uart.Ring, regs *uart.RegisterBank, onReadyWrite func()) *TxController {
	return &TxController{mu: mu, ring: ring, regs: regs, state: Stopped, onReadyWrite: onReadyWrite}
}

// State reports the controller's current gate state, for tests and
// invariant checks; it does not take the port lock, callers needing a
// consistent snapshot with ring state must hold it themselves.
func (t *TxController) State() State { return t.state }

// Drive pops up to uart.TxFIFODepth bytes into THR in one batch. If
// the ring is empty once the batch is popped (including when there was
// nothing to pop), it disables THR interrupts and stops; otherwise it
// leaves (or makes) the gate STARTED. Called on THR-empty interrupt
// and right after each write nudges the controller awake.
func (t *TxController) Drive() {
	t.mu.Lock()
	buf := make([]byte, uart.TxFIFODepth)
	n := t.ring.ReadBatch(buf)
	if n > 0 {
		t.regs.WriteTHR(buf[:n])
	}
	if !t.ring.Empty() {
		t.state = Started
	} else {
		t.regs.SetIER(uart.IERTxEmpty, 0)
		t.state = Stopped
	}
	t.mu.Unlock()

	if t.onReadyWrite != nil {
		t.onReadyWrite()
	}
}

// Request is called after a VFS write pushes bytes into the TX ring.
// If the controller was STOPPED it re-enables THR interrupts and
// transitions to STARTED; a controller that is already STARTED is
// already self-clocking and needs no nudge.
func (t *TxController) Request() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == Stopped {
		t.regs.SetIER(uart.IERTxEmpty, uart.IERTxEmpty)
		t.state = Started
	}
}

// RxController drains RBR into a port's RX ring whenever the device
// reports data ready, using the overwrite-on-full policy.
type RxController struct {
	mu   *sync.Mutex
	ring *uart.Ring
	regs *uart.RegisterBank

	onReadyRead func()
}

// NewRxController constructs an RX controller over the given port
// lock, ring, and register bank.
func NewRxController(mu *sync.Mutex, ring *uart.Ring, regs *uart.RegisterBank, onReadyRead func()) *RxController {
	return &RxController{mu: mu, ring: ring, regs: regs, onReadyRead: onReadyRead}
}

// Drive reads LSR/RBR in a loop, push-overwriting every byte the
// device has ready, until LSR.DR clears.
func (r *RxController) Drive() {
	r.mu.Lock()
	for r.regs.ReadLSR()&uart.LSRDataReady != 0 {
		r.ring.PushOverwrite(r.regs.ReadRBR())
	}
	r.mu.Unlock()

	if r.onReadyRead != nil {
		r.onReadyRead()
	}
}
