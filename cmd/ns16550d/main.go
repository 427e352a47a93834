// Command ns16550d is the daemon entrypoint: it builds the default
// configuration, constructs a host backend, wires a driver instance,
// and runs its dispatch loop to completion. It takes no arguments —
// per §6, configuration is compile-time.
package main

import (
	"log"

	"github.com/MasterMochi/drv-ns16550/internal/driverd"
	"github.com/MasterMochi/drv-ns16550/internal/kernel"
	"github.com/MasterMochi/drv-ns16550/internal/uart"
)

func newHost() kernel.Host {
	if h, err := kernel.NewHostIO(); err == nil {
		return h
	}
	log.Printf("ns16550d: no privileged I/O-port backend available, running against a simulated host")
	return kernel.NewSimHost(uart.IOBaseCOM1, uart.IOBaseCOM2)
}

func main() {
	cfg := driverd.DefaultConfig()

	d, err := driverd.New(newHost(), cfg)
	if err != nil {
		log.Fatalf("ns16550d: %v", err)
	}

	d.Run()
}
