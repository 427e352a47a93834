// Package irq runs the single interrupt-thread that owns both ports'
// IRQ lines: it blocks on the kernel's interrupt-wait primitive,
// dispatches by IIR cause to the TX or RX controller, and completes
// each interrupt in the order the hardware requires.
package irq

import (
	"log"

	"github.com/MasterMochi/drv-ns16550/internal/kernel"
	"github.com/MasterMochi/drv-ns16550/internal/uart"
)

// Drivable is satisfied by a TX or RX controller: the interrupt
// dispatcher only ever needs to trigger a drive, never its internals.
type Drivable interface{ Drive() }

// PortHandle bundles what the dispatcher needs for one port: its IRQ
// line, its register bank for reading IIR/LSR/MSR, and its TX/RX
// controllers.
type PortHandle struct {
	Com  uart.Com
	IRQ  uint8
	Regs *uart.RegisterBank
	Tx   Drivable
	Rx   Drivable
}

// Loop is the interrupt thread: one goroutine, started once, that
// blocks in the kernel's wait primitive for the process lifetime.
// There is no graceful shutdown, matching §5's "cancellation and
// timeouts: none in the core" — the one blocking point here is never
// meant to be interrupted short of process exit.
type Loop struct {
	host  kernel.IRQLine
	ports map[uint8]PortHandle // keyed by IRQ line
	debug bool
}

// NewLoop constructs the interrupt thread over the given IRQ line
// primitive and port handles.
func NewLoop(host kernel.IRQLine, debug bool, handles ...PortHandle) *Loop {
	ports := make(map[uint8]PortHandle, len(handles))
	for _, h := range handles {
		ports[h.IRQ] = h
	}
	return &Loop{host: host, ports: ports, debug: debug}
}

// Start performs the startup sequence from §4.3 step 1 for every
// registered port — monitor-start, enable, then program the device to
// raise all four interrupt sources with OUT2 driven high — and
// launches the dispatch goroutine. Any syscall failure here is fatal,
// matching the source's abort-on-init-failure policy; initialization
// failures are not recoverable mid-flight.
func (l *Loop) Start() error {
	for irq, h := range l.ports {
		if err := l.host.MonitorStart(irq); err != nil {
			return err
		}
		if err := l.host.Enable(irq); err != nil {
			return err
		}
		h.Regs.SetIER(uart.IERAll, uart.IERAll)
		h.Regs.SetMCR(uart.MCROut2, uart.MCROut2)
	}
	go l.run()
	return nil
}

func (l *Loop) run() {
	for {
		bits, err := l.host.Wait()
		if err != nil {
			log.Printf("irq: wait: %v", err)
			continue
		}
		for irq, h := range l.ports {
			if bits&kernel.IRQBit(irq) != 0 {
				l.dispatch(h)
			}
		}
	}
}

// dispatch implements §4.3's cause table, preserving the exact
// completion ordering the original implementation relies on: THR
// completes before the refill so a level-triggered empty condition
// cannot re-fire and be lost, while RX and line-error causes complete
// only after draining so a readiness notice always reflects the
// drained ring.
func (l *Loop) dispatch(h PortHandle) {
	iir := h.Regs.ReadIIR()
	if iir&uart.IIRPendingMask == uart.IIRPendingNone {
		return // nothing pending on this line after all
	}

	switch iir & uart.IIRCauseMask {
	case uart.IIRCauseModem:
		h.Regs.ReadMSR() // drains the latch
		l.host.Complete(h.IRQ)

	case uart.IIRCauseTxEmpty:
		l.host.Complete(h.IRQ)
		h.Tx.Drive()

	case uart.IIRCauseRxData, uart.IIRCauseRxTimeout, uart.IIRCauseLineErr:
		h.Rx.Drive()
		l.host.Complete(h.IRQ)

	default:
		if l.debug {
			log.Printf("irq: port %v: unknown IIR cause %#x", h.Com, iir)
		}
		l.host.Complete(h.IRQ)
	}
}
