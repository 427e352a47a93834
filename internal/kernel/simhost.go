package kernel

import "sync"

// simReg mirrors the byte-addressable register file of one simulated
// NS16550, just enough for SimHost to answer InByte/OutByte the way
// the real device would for the handful of offsets the driver reads.
type simReg struct {
	ier byte
	lcr byte
	mcr byte
	lsr byte
	msr byte
	dll byte
	dlm byte

	rx []byte // bytes waiting to be read via RBR, oldest first
	tx []byte // bytes written via THR, append-only, for test inspection
}

// SimHost is an in-memory stand-in for the microkernel's I/O-port and
// interrupt primitives, used by the driver's hardware-facing tests and as the
// daemon's default backend when no privileged host access is
// available. It plays the role ne2000_test.go's MockInterruptRaiser
// plays for a network device: a fake collaborator a test can both
// drive (inject RX bytes, raise an IRQ) and inspect (read back
// transmitted bytes).
type SimHost struct {
	mu   sync.Mutex
	regs map[uint16]*simReg // keyed by I/O base address

	monitored map[uint8]bool
	enabled   map[uint8]bool
	pending   uint32

	wake chan struct{}
}

// NewSimHost constructs a simulated host with one register file per
// given I/O base, each idle (LSR.THRE set, nothing pending).
func NewSimHost(ioBases ...uint16) *SimHost {
	h := &SimHost{
		regs:      make(map[uint16]*simReg),
		monitored: make(map[uint8]bool),
		enabled:   make(map[uint8]bool),
		wake:      make(chan struct{}, 1),
	}
	for _, base := range ioBases {
		h.regs[base] = &simReg{lsr: 0x60} // THRE | TEMT
	}
	return h
}

func (h *SimHost) regFor(port uint16) (*simReg, uint16) {
	base := port &^ 0x7
	off := port & 0x7
	r, ok := h.regs[base]
	if !ok {
		r = &simReg{lsr: 0x60}
		h.regs[base] = r
	}
	return r, off
}

// InByte implements uart.PortIO.
func (h *SimHost) InByte(port uint16) byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, off := h.regFor(port)

	switch off {
	case 0x00: // RBR (DLAB=0 assumed; the driver never reads RBR with DLAB set)
		if len(r.rx) == 0 {
			return 0
		}
		b := r.rx[0]
		r.rx = r.rx[1:]
		if len(r.rx) == 0 {
			r.lsr &^= 0x01 // clear DR
		}
		return b
	case 0x02: // IIR
		return h.iirFor(r)
	case 0x03:
		return r.lcr
	case 0x04:
		return r.mcr
	case 0x05:
		lsr := r.lsr
		return lsr
	case 0x06:
		return r.msr
	default:
		return 0
	}
}

// iirFor computes the cause code the real device would present,
// highest priority first: line errors, RX data, THR empty. The sim
// never reports a modem-status cause.
func (h *SimHost) iirFor(r *simReg) byte {
	switch {
	case r.lsr&0x1E != 0: // overrun/parity/framing/break
		return 0x06 | 0x00
	case r.lsr&0x01 != 0 && r.ier&0x01 != 0:
		return 0x04
	case r.lsr&0x20 != 0 && r.ier&0x02 != 0:
		return 0x02
	default:
		return 0x01 // no interrupt pending
	}
}

// OutByte implements uart.PortIO.
func (h *SimHost) OutByte(port uint16, value byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, off := h.regFor(port)
	h.writeLocked(r, off, value)
}

// OutBytes implements uart.PortIO.
func (h *SimHost) OutBytes(port uint16, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, off := h.regFor(port)
	for _, b := range data {
		h.writeLocked(r, off, b)
	}
}

func (h *SimHost) writeLocked(r *simReg, off uint16, value byte) {
	switch off {
	case 0x00: // THR, or DLL while LCR.DLAB is set
		if r.lcr&0x80 != 0 {
			r.dll = value
			return
		}
		r.tx = append(r.tx, value)
		r.lsr |= 0x60 // stays idle, a real FIFO would clear THRE until drained
	case 0x01: // IER, or DLM while LCR.DLAB is set
		if r.lcr&0x80 != 0 {
			r.dlm = value
			return
		}
		r.ier = value
	case 0x02:
		// FCR: write-only, nothing observable for the sim to model.
	case 0x03:
		r.lcr = value
	case 0x04:
		r.mcr = value
	case 0x07:
		// SCR, ignored.
	}
}

// InjectRX appends bytes to a port's receive side, as if the device
// had just clocked them in over the wire, and raises that port's IRQ
// line if RX-data interrupts are enabled.
func (h *SimHost) InjectRX(ioBase uint16, data []byte, irq uint8) {
	h.mu.Lock()
	r, _ := h.regFor(ioBase)
	r.rx = append(r.rx, data...)
	r.lsr |= 0x01
	fireRxData := r.ier&0x01 != 0
	h.mu.Unlock()

	if fireRxData {
		h.raise(irq)
	}
}

// InjectLineError sets one or more LSR error bits (overrun, parity,
// framing, break) on a port and raises its IRQ line if line-status
// interrupts are enabled.
func (h *SimHost) InjectLineError(ioBase uint16, bits byte, irq uint8) {
	h.mu.Lock()
	r, _ := h.regFor(ioBase)
	r.lsr |= bits & 0x1E
	fire := r.ier&0x04 != 0
	h.mu.Unlock()

	if fire {
		h.raise(irq)
	}
}

// TakeTX drains and returns every byte written to a port's THR since
// the last call, for test assertions.
func (h *SimHost) TakeTX(ioBase uint16) []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, _ := h.regFor(ioBase)
	out := r.tx
	r.tx = nil
	return out
}

// RaiseTHREmpty simulates the device's level-triggered "transmitter
// idle" condition firing an interrupt, used by tests that want to
// drive the TX controller without going through a real write.
func (h *SimHost) RaiseTHREmpty(ioBase uint16, irq uint8) {
	h.mu.Lock()
	r, _ := h.regFor(ioBase)
	r.lsr |= 0x20
	fire := r.ier&0x02 != 0
	h.mu.Unlock()

	if fire {
		h.raise(irq)
	}
}

func (h *SimHost) raise(irq uint8) {
	h.mu.Lock()
	if !h.enabled[irq] {
		h.mu.Unlock()
		return
	}
	h.pending |= IRQBit(irq)
	h.mu.Unlock()

	select {
	case h.wake <- struct{}{}:
	default:
	}
}

// MonitorStart implements IRQLine.
func (h *SimHost) MonitorStart(irq uint8) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.monitored[irq] = true
	return nil
}

// Enable implements IRQLine.
func (h *SimHost) Enable(irq uint8) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.enabled[irq] = true
	return nil
}

// Wait implements IRQLine. It blocks until at least one enabled line
// has a pending interrupt, then returns the full pending bitset.
func (h *SimHost) Wait() (uint32, error) {
	for {
		h.mu.Lock()
		if h.pending != 0 {
			bits := h.pending
			h.mu.Unlock()
			return bits, nil
		}
		h.mu.Unlock()
		<-h.wake
	}
}

// Complete implements IRQLine, clearing the given line's pending bit.
func (h *SimHost) Complete(irq uint8) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pending &^= IRQBit(irq)
	return nil
}
