package filemng

import (
	"log"

	"github.com/MasterMochi/drv-ns16550/internal/portfsm"
	"github.com/MasterMochi/drv-ns16550/internal/uart"
	"github.com/MasterMochi/drv-ns16550/internal/vfsproto"
)

// Manager resolves VFS paths and global descriptors to port records,
// drives each port's state machine, and marshals the result into a
// reply on the broker. A linear scan over the two ports is plenty;
// the comment in the original design about switching to a hash table
// applies only if this ever grows past a handful of ports.
type Manager struct {
	ports  []*Port
	broker vfsproto.Broker
	debug  bool
}

// NewManager constructs a file manager over the given port records.
func NewManager(broker vfsproto.Broker, debug bool, ports ...*Port) *Manager {
	return &Manager{ports: ports, broker: broker, debug: debug}
}

// Ports exposes the underlying port records, for the interrupt
// dispatcher and top-level wiring to reach TxDrive/RxDrive/registers.
func (m *Manager) Ports() []*Port { return m.ports }

func (m *Manager) resolvePath(path string) *Port {
	for _, p := range m.ports {
		if p.Path() == path {
			return p
		}
	}
	return nil
}

func (m *Manager) resolveGFD(gfd uint32) *Port {
	for _, p := range m.ports {
		if p.GFD() == gfd {
			return p
		}
	}
	return nil
}

func (m *Manager) logf(format string, args ...any) {
	if m.debug {
		log.Printf(format, args...)
	}
}

// OnOpen implements sched.Handler.
func (m *Manager) OnOpen(pid, gfd uint32, path string) {
	port := m.resolvePath(path)
	if port == nil {
		m.logf("filemng: open %q: %v", path, ErrUnknownPath)
		m.broker.ReplyOpen(vfsproto.Reply{GFD: gfd, Result: vfsproto.Failure})
		return
	}
	if port.State() == portfsm.Opened {
		m.logf("filemng: open %q: %v", path, ErrAlreadyOpen)
	}
	reply, next := portfsm.Transition(port, port.State(), portfsm.Open, portfsm.Request{GFD: gfd, PID: pid})
	port.SetState(next)
	m.broker.ReplyOpen(toVFSReply(gfd, reply))
}

// OnRead implements sched.Handler. offset is accepted and ignored.
func (m *Manager) OnRead(gfd uint32, offset int64, size int) {
	port := m.resolveGFD(gfd)
	if port == nil {
		m.logf("filemng: read gfd=%d: %v", gfd, ErrUnknownFD)
		m.broker.ReplyRead(vfsproto.Reply{GFD: gfd, Result: vfsproto.Failure})
		return
	}
	if port.State() != portfsm.Opened {
		m.logf("filemng: read gfd=%d: %v", gfd, ErrNotOpen)
	}
	reply, next := portfsm.Transition(port, port.State(), portfsm.Read, portfsm.Request{Size: size})
	port.SetState(next)
	m.broker.ReplyRead(toVFSReply(gfd, reply))
}

// OnWrite implements sched.Handler. offset is accepted and ignored.
func (m *Manager) OnWrite(gfd uint32, offset int64, data []byte) {
	port := m.resolveGFD(gfd)
	if port == nil {
		m.logf("filemng: write gfd=%d: %v", gfd, ErrUnknownFD)
		m.broker.ReplyWrite(vfsproto.Reply{GFD: gfd, Result: vfsproto.Failure})
		return
	}
	if port.State() != portfsm.Opened {
		m.logf("filemng: write gfd=%d: %v", gfd, ErrNotOpen)
	}
	reply, next := portfsm.Transition(port, port.State(), portfsm.Write, portfsm.Request{Payload: data})
	port.SetState(next)
	m.broker.ReplyWrite(toVFSReply(gfd, reply))
}

// OnClose implements sched.Handler.
func (m *Manager) OnClose(gfd uint32) {
	port := m.resolveGFD(gfd)
	if port == nil {
		m.logf("filemng: close gfd=%d: %v", gfd, ErrUnknownFD)
		m.broker.ReplyClose(vfsproto.Reply{GFD: gfd, Result: vfsproto.Failure})
		return
	}
	if port.State() != portfsm.Opened {
		m.logf("filemng: close gfd=%d: %v", gfd, ErrNotOpen)
	}
	reply, next := portfsm.Transition(port, port.State(), portfsm.Close, portfsm.Request{})
	port.SetState(next)
	m.broker.ReplyClose(toVFSReply(gfd, reply))
}

func toVFSReply(gfd uint32, r portfsm.Reply) vfsproto.Reply {
	result := vfsproto.Success
	if r.Result == portfsm.Failure {
		result = vfsproto.Failure
	}
	return vfsproto.Reply{
		GFD:       gfd,
		Result:    result,
		Readiness: r.Readiness,
		Payload:   r.Payload,
		Size:      r.Size,
	}
}

// PortByCom returns the port record for com, for wiring by the
// interrupt dispatcher which already knows which IRQ maps to which
// port.
func (m *Manager) PortByCom(com uart.Com) *Port {
	for _, p := range m.ports {
		if p.Com() == com {
			return p
		}
	}
	return nil
}
