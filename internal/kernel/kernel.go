// Package kernel models the microkernel primitives this driver runs
// against: I/O-port byte access and per-IRQ-line interrupt delivery.
// Everything else the spec's original environment offered — thread
// creation, inter-task messaging — is represented directly as Go
// concurrency (goroutines, channels) in the packages that need it,
// rather than re-modeled here as syscalls.
package kernel

import "github.com/MasterMochi/drv-ns16550/internal/uart"

// IRQ line numbers, matching the PC IRQ3/IRQ4 convention uart.IRQFor
// already encodes.
const (
	IRQ3 uint8 = uart.IRQCOM2
	IRQ4 uint8 = uart.IRQCOM1
)

// IRQBit returns the bit an IRQLine.Wait result sets for the given
// line number.
func IRQBit(irq uint8) uint32 { return 1 << uint32(irq) }

// IRQLine is the interrupt half of the microkernel boundary: a driver
// registers interest in a line, then blocks waiting for any registered
// line to fire.
type IRQLine interface {
	// MonitorStart begins monitoring the given IRQ line. It is called
	// once per line at driver startup.
	MonitorStart(irq uint8) error
	// Enable unmasks a monitored line.
	Enable(irq uint8) error
	// Wait blocks until at least one enabled line has fired, returning
	// the bitset of fired lines (see IRQBit).
	Wait() (uint32, error)
	// Complete acknowledges an interrupt on the given line, letting the
	// line fire again.
	Complete(irq uint8) error
}

// Host bundles the I/O-port and interrupt primitives a RegisterBank
// and an interrupt Loop need. uart.PortIO is satisfied structurally by
// any Host, so internal/uart never imports this package.
type Host interface {
	uart.PortIO
	IRQLine
}
