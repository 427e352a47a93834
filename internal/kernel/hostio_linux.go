//go:build linux

package kernel

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// HostIO talks to real NS16550 hardware through /dev/port, the Linux
// analogue of the microkernel's I/O-port syscalls. IRQ delivery has no
// such direct analogue from user space, so it is approximated with a
// polling goroutine over LSR/IIR rather than a real interrupt line —
// good enough to exercise the daemon against real hardware without
// requiring a kernel-mode component.
type HostIO struct {
	f *os.File

	mu        sync.Mutex
	monitored map[uint8]bool
	enabled   map[uint8]bool

	wake chan struct{}
}

// NewHostIO opens /dev/port for direct register access. It requires
// CAP_SYS_RAWIO (or root) the same way the original kernel-mode driver
// required ring-0 I/O-port privilege.
func NewHostIO() (*HostIO, error) {
	f, err := os.OpenFile("/dev/port", os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("kernel: open /dev/port: %w", err)
	}
	return &HostIO{
		f:         f,
		monitored: make(map[uint8]bool),
		enabled:   make(map[uint8]bool),
		wake:      make(chan struct{}, 1),
	}, nil
}

// Close releases the underlying file descriptor.
func (h *HostIO) Close() error { return h.f.Close() }

// InByte implements uart.PortIO.
func (h *HostIO) InByte(port uint16) byte {
	buf := make([]byte, 1)
	if _, err := h.f.ReadAt(buf, int64(port)); err != nil {
		return 0
	}
	return buf[0]
}

// OutByte implements uart.PortIO.
func (h *HostIO) OutByte(port uint16, value byte) {
	h.f.WriteAt([]byte{value}, int64(port))
}

// OutBytes implements uart.PortIO.
func (h *HostIO) OutBytes(port uint16, data []byte) {
	h.f.WriteAt(data, int64(port))
}

// MonitorStart implements IRQLine. On this backend there is no
// separate monitor-registration syscall to issue; it just records
// that the line is under management so Enable/Wait can account for it.
func (h *HostIO) MonitorStart(irq uint8) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.monitored[irq] = true
	return nil
}

// Enable implements IRQLine and starts the polling goroutine for this
// line the first time any line is enabled.
func (h *HostIO) Enable(irq uint8) error {
	h.mu.Lock()
	first := len(h.enabled) == 0
	h.enabled[irq] = true
	h.mu.Unlock()

	if first {
		go h.poll()
	}
	return nil
}

func (h *HostIO) poll() {
	// Real interrupt delivery is out of reach from an unprivileged
	// user-space process on Linux; this backend is a best-effort
	// stand-in so the daemon can run against physical hardware, not a
	// faithful reimplementation of kernel interrupt routing.
	for {
		unix.Nanosleep(&unix.Timespec{Nsec: 2_000_000}, nil)
		h.mu.Lock()
		if len(h.enabled) == 0 {
			h.mu.Unlock()
			return
		}
		h.mu.Unlock()

		select {
		case h.wake <- struct{}{}:
		default:
		}
	}
}

// Wait implements IRQLine by waking on the next poll tick; callers
// re-read IIR per port themselves to find out what, if anything,
// actually needs servicing.
func (h *HostIO) Wait() (uint32, error) {
	<-h.wake
	h.mu.Lock()
	defer h.mu.Unlock()
	var bits uint32
	for irq := range h.enabled {
		bits |= IRQBit(irq)
	}
	return bits, nil
}

// Complete implements IRQLine. There is no real completion semantics
// to drive on this backend; it exists to satisfy the interface.
func (h *HostIO) Complete(irq uint8) error { return nil }
