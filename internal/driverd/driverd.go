// Package driverd wires the register bank, ring pair, TX/RX
// controllers, interrupt thread, file manager, and scheduler shim
// into one running driver instance.
package driverd

import (
	"fmt"

	"github.com/MasterMochi/drv-ns16550/internal/filemng"
	"github.com/MasterMochi/drv-ns16550/internal/irq"
	"github.com/MasterMochi/drv-ns16550/internal/kernel"
	"github.com/MasterMochi/drv-ns16550/internal/sched"
	"github.com/MasterMochi/drv-ns16550/internal/uart"
	"github.com/MasterMochi/drv-ns16550/internal/vfsproto"
)

// Config holds the daemon's compile-time configuration: per §6 there
// are no CLI arguments, so this is always built from DefaultConfig() or a
// caller-supplied literal, never parsed flags.
type Config struct {
	// Paths maps each port to its VFS mount point.
	Paths [uart.ComCount]string
	// Debug gates the file manager's protocol-violation log lines and
	// the interrupt thread's unknown-IIR-cause log line; with it off,
	// only interrupt-wait errors are logged.
	Debug bool
	// BrokerQueueDepth sizes the loopback broker's channels.
	BrokerQueueDepth int
}

// DefaultConfig returns the standard two-port configuration.
func DefaultConfig() Config {
	return Config{
		Paths:            [uart.ComCount]string{uart.COM1: "/serial1", uart.COM2: "/serial2"},
		Debug:            false,
		BrokerQueueDepth: 32,
	}
}

// Driver aggregates one running instance: both ports' register banks
// and ring pairs, the shared interrupt thread, the file manager, and
// the scheduler shim's dispatch loop.
type Driver struct {
	cfg     Config
	host    kernel.Host
	broker  *vfsproto.LoopbackBroker
	manager *filemng.Manager
	loop    *irq.Loop
	disp    *sched.Dispatcher
}

// New constructs a driver over the given host (a SimHost in tests and
// by default, a HostIO on a privileged Linux host) and configuration.
// It performs the full register and interrupt-thread initialization
// sequence; a failure here is fatal per §7's policy on kernel syscall
// failures during startup.
func New(host kernel.Host, cfg Config) (*Driver, error) {
	broker := vfsproto.NewLoopbackBroker(cfg.BrokerQueueDepth)

	regs := [uart.ComCount]*uart.RegisterBank{}
	ports := make([]*filemng.Port, 0, uart.ComCount)
	for com := uart.Com(0); com < uart.ComCount; com++ {
		rb := uart.NewRegisterBank(host, com)
		rb.Init()
		regs[com] = rb
		ports = append(ports, filemng.NewPort(com, cfg.Paths[com], rb, broker))
	}

	manager := filemng.NewManager(broker, cfg.Debug, ports...)

	handles := make([]irq.PortHandle, 0, uart.ComCount)
	for _, p := range ports {
		handles = append(handles, irq.PortHandle{
			Com:  p.Com(),
			IRQ:  uart.IRQFor[p.Com()],
			Regs: regs[p.Com()],
			Tx:   txDriver{p},
			Rx:   rxDriver{p},
		})
	}
	loop := irq.NewLoop(host, cfg.Debug, handles...)
	if err := loop.Start(); err != nil {
		return nil, fmt.Errorf("driverd: interrupt thread start: %w", err)
	}

	disp := sched.NewDispatcher(broker, manager, nil)

	return &Driver{cfg: cfg, host: host, broker: broker, manager: manager, loop: loop, disp: disp}, nil
}

// Broker exposes the loopback broker a local test client submits
// requests to and reads replies from.
func (d *Driver) Broker() *vfsproto.LoopbackBroker { return d.broker }

// Run enters the scheduler shim's blocking dispatch loop. It does not
// return in normal operation.
func (d *Driver) Run() { d.disp.Run() }

// txDriver and rxDriver adapt a *filemng.Port to irq.Drivable without
// exposing the port's TxController/RxController fields directly.
type txDriver struct{ p *filemng.Port }

func (t txDriver) Drive() { t.p.TxDrive() }

type rxDriver struct{ p *filemng.Port }

func (r rxDriver) Drive() { r.p.RxDrive() }
