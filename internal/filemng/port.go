// Package filemng owns the per-port records the rest of the driver
// shares: path and global-descriptor resolution, the readiness-edge
// cache, and VFS reply marshaling. It is the seam where the register
// bank, the ring pair, the TX/RX controllers, and the state machine
// all come together under one lock per port.
package filemng

import (
	"sync"

	"github.com/MasterMochi/drv-ns16550/internal/portfsm"
	"github.com/MasterMochi/drv-ns16550/internal/txrx"
	"github.com/MasterMochi/drv-ns16550/internal/uart"
	"github.com/MasterMochi/drv-ns16550/internal/vfsproto"
)

// Port is one serial port's complete record: identity, ring pair,
// TX/RX controllers, open/closed state, and the readiness cache that
// decides when a Ready notice is owed to the broker. It implements
// portfsm.Context, so the state machine can drive it directly.
type Port struct {
	com  uart.Com
	path string

	mu sync.Mutex // the port lock: guards rx, tx, gfd/pid, lastReady
	rx *uart.Ring
	tx *uart.Ring

	gfd uint32
	pid uint32

	state     portfsm.State
	lastReady byte

	txc *txrx.TxController
	rxc *txrx.RxController

	broker vfsproto.Broker
}

// NewPort constructs a port record over an already-initialized
// register bank. It wires its own TX and RX controllers internally so
// that the self-clocking gate and the drain loop share exactly this
// port's lock, ring pair, and readiness cache.
func NewPort(com uart.Com, path string, regs *uart.RegisterBank, broker vfsproto.Broker) *Port {
	p := &Port{
		com:    com,
		path:   path,
		rx:     uart.NewRing(uart.RXRingCapacity),
		tx:     uart.NewRing(uart.TXRingCapacity),
		broker: broker,
	}
	p.txc = txrx.NewTxController(&p.mu, p.tx, regs, func() { p.updateReady() })
	p.rxc = txrx.NewRxController(&p.mu, p.rx, regs, func() { p.updateReady() })
	return p
}

// Com reports which port this record belongs to.
func (p *Port) Com() uart.Com { return p.com }

// Path reports the VFS mount path this port answers to.
func (p *Port) Path() string { return p.path }

// State reports the current open/closed lifecycle state, read only
// from the single-threaded dispatch context.
func (p *Port) State() portfsm.State { return p.state }

// SetState is called by the manager after a successful transition.
func (p *Port) SetState(s portfsm.State) { p.state = s }

// GFD returns the currently recorded global file descriptor, or 0 if
// the port is closed.
func (p *Port) GFD() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gfd
}

// TxDrive and RxDrive expose the controllers' interrupt-driven actions
// to the interrupt thread, which only needs to trigger them, not know
// their internals.
func (p *Port) TxDrive() { p.txc.Drive() }
func (p *Port) RxDrive() { p.rxc.Drive() }

// SetOwner implements portfsm.Context.
func (p *Port) SetOwner(gfd, pid uint32) {
	p.mu.Lock()
	p.gfd = gfd
	p.pid = pid
	p.rx.Clear()
	p.mu.Unlock()
}

// ClearOwner implements portfsm.Context.
func (p *Port) ClearOwner() {
	p.mu.Lock()
	p.gfd = 0
	p.pid = 0
	p.lastReady = 0
	p.mu.Unlock()
}

// ReadRX implements portfsm.Context.
func (p *Port) ReadRX(buf []byte) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rx.ReadBatch(buf)
}

// WriteTX implements portfsm.Context: it pushes under the port lock,
// reject-on-full per the TX ring's policy, then nudges the TX
// controller outside the lock (Request and Drive take it again
// internally): Request re-arms the THR-empty gate and Drive hands the
// first batch to the device.
func (p *Port) WriteTX(data []byte) int {
	p.mu.Lock()
	n := p.tx.WriteBatch(data, uart.Reject)
	p.mu.Unlock()
	p.txc.Request()
	p.txc.Drive()
	return n
}

// Readiness implements portfsm.Context: it recomputes the mask,
// updates the edge cache, fires a Ready notice if a bit just
// transitioned 0→1, and returns the freshly computed mask for the
// caller's own reply.
func (p *Port) Readiness() byte { return p.updateReady() }

// ResetReady implements portfsm.Context: it zeroes the readiness-edge
// cache without recomputing the live mask or notifying the broker, so
// a close reports a plain reset rather than treating its own ring
// state as a spurious 0→1 edge.
func (p *Port) ResetReady() byte {
	p.mu.Lock()
	p.lastReady = 0
	p.mu.Unlock()
	return 0
}

func (p *Port) computeReadyLocked() byte {
	var m byte
	if !p.rx.Empty() {
		m |= vfsproto.ReadyRead
	}
	if !p.tx.Full() {
		m |= vfsproto.ReadyWrite
	}
	return m
}

func (p *Port) updateReady() byte {
	p.mu.Lock()
	mask := p.computeReadyLocked()
	edge := mask &^ p.lastReady
	p.lastReady = mask
	p.mu.Unlock()

	if edge != 0 && p.broker != nil {
		p.broker.NotifyReady(vfsproto.ReadyNotice{Path: p.path, Readiness: mask})
	}
	return mask
}
