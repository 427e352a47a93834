package uart

import "sync"

// PortIO is the I/O-port byte in/out primitive the microkernel exposes
// to user-space drivers. It is implemented by internal/kernel's
// simulated and host backends; this package only consumes it.
type PortIO interface {
	InByte(port uint16) byte
	OutByte(port uint16, value byte)
	OutBytes(port uint16, data []byte)
}

// shadow is the cached copy of the write-only/mixed registers, so
// bit-field setters can read-modify-write without round-tripping the
// device.
type shadow struct {
	ier      byte
	fcr      byte
	lcr      byte
	mcr      byte
	divisor  uint16
}

// RegisterBank gives typed access to one port's NS16550 registers. Its
// shadow is guarded by an internal mutex rather than the caller's port
// lock: IER in particular is written from both the TX controller and
// the interrupt-initialization path, and the spec's open question on
// that race is resolved here by making the shadow its own critical
// section instead of extending the port lock's coverage.
type RegisterBank struct {
	io     PortIO
	ioBase uint16

	mu sync.Mutex
	sh shadow
}

// NewRegisterBank constructs a register bank for the given port over
// the supplied I/O-port primitive.
func NewRegisterBank(io PortIO, com Com) *RegisterBank {
	return &RegisterBank{io: io, ioBase: IOBase[com]}
}

// ReadIIR returns the raw Interrupt Identification Register.
func (b *RegisterBank) ReadIIR() byte { return b.io.InByte(b.ioBase + RegIIR) }

// ReadLSR returns the raw Line Status Register.
func (b *RegisterBank) ReadLSR() byte { return b.io.InByte(b.ioBase + RegLSR) }

// ReadMSR returns the raw Modem Status Register.
func (b *RegisterBank) ReadMSR() byte { return b.io.InByte(b.ioBase + RegMSR) }

// ReadRBR returns one byte from the Receiver Buffer Register.
func (b *RegisterBank) ReadRBR() byte { return b.io.InByte(b.ioBase + RegRBR) }

// WriteTHR writes up to len(data) bytes to the Transmit Holding
// Register in one batch. The device FIFO accepts at most
// TxFIFODepth before filling; callers are expected to respect that.
func (b *RegisterBank) WriteTHR(data []byte) {
	if len(data) == 0 {
		return
	}
	b.io.OutBytes(b.ioBase+RegTHR, data)
}

// SetIER performs shadow ← (shadow &^ mask) | (value & mask) and
// writes the full resulting shadow to the device.
func (b *RegisterBank) SetIER(mask, value byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sh.ier = (b.sh.ier &^ mask) | (value & mask)
	b.io.OutByte(b.ioBase+RegIER, b.sh.ier)
}

// IER returns the last value written to the Interrupt Enable Register.
func (b *RegisterBank) IER() byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sh.ier
}

// SetFCR performs the same read-modify-write as SetIER over FCR.
// FCR is write-only on real hardware, so the shadow is the only
// readable copy.
func (b *RegisterBank) SetFCR(mask, value byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sh.fcr = (b.sh.fcr &^ mask) | (value & mask)
	b.io.OutByte(b.ioBase+RegFCR, b.sh.fcr)
}

// SetLCR performs the same read-modify-write as SetIER over LCR.
func (b *RegisterBank) SetLCR(mask, value byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sh.lcr = (b.sh.lcr &^ mask) | (value & mask)
	b.io.OutByte(b.ioBase+RegLCR, b.sh.lcr)
}

// SetMCR performs the same read-modify-write as SetIER over MCR.
func (b *RegisterBank) SetMCR(mask, value byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sh.mcr = (b.sh.mcr &^ mask) | (value & mask)
	b.io.OutByte(b.ioBase+RegMCR, b.sh.mcr)
}

// SetDivisor sets the baud-rate divisor. It must only be called during
// initialization: it toggles DLAB while writing DLL/DLM, and any
// traffic arriving while DLAB is set is misinterpreted by the device.
func (b *RegisterBank) SetDivisor(div uint16) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.sh.divisor = div
	b.sh.lcr |= LCRDLAB
	b.io.OutByte(b.ioBase+RegLCR, b.sh.lcr)

	b.io.OutByte(b.ioBase+RegDLL, byte(div&0xFF))
	b.io.OutByte(b.ioBase+RegDLM, byte(div>>8))

	b.sh.lcr &^= LCRDLAB
	b.io.OutByte(b.ioBase+RegLCR, b.sh.lcr)
}

// Init programs the power-on configuration described in §4.1: all
// interrupt sources disabled, 8N1 framing with DLAB off, OUT1/OUT2 low
// with RTS/DTR asserted and loopback off, the default divisor, and the
// FIFO enabled with both halves reset and a 14-byte RX trigger level.
func (b *RegisterBank) Init() {
	b.SetIER(IERAll, 0)
	b.SetLCR(LCRAll, Line8N1)
	b.SetMCR(MCRAll, MCRDTR|MCRRTS)
	b.SetDivisor(DefaultDivisor)
	b.SetFCR(FCRAll, FCREnable|FCRRxReset|FCRTxReset|FCRTrigger14)
}
