package txrx_test

import (
	"sync"
	"testing"

	"github.com/MasterMochi/drv-ns16550/internal/kernel"
	"github.com/MasterMochi/drv-ns16550/internal/txrx"
	"github.com/MasterMochi/drv-ns16550/internal/uart"
)

func TestTxControllerSelfClock(t *testing.T) {
	host := kernel.NewSimHost(uart.IOBaseCOM1)
	regs := uart.NewRegisterBank(host, uart.COM1)
	regs.Init()

	ring := uart.NewRing(uart.TXRingCapacity)
	var mu sync.Mutex
	readyCount := 0
	tx := txrx.NewTxController(&mu, ring, regs, func() { readyCount++ })

	seq := make([]byte, 100)
	for i := range seq {
		seq[i] = byte(i)
	}
	mu.Lock()
	n := ring.WriteBatch(seq, uart.Reject)
	mu.Unlock()
	if n != 100 {
		t.Fatalf("WriteBatch: got %d, want 100", n)
	}

	tx.Request()
	if tx.State() != txrx.Started {
		t.Fatalf("after Request on nonempty ring: state = %v, want STARTED", tx.State())
	}
	if regs.IER()&uart.IERTxEmpty == 0 {
		t.Fatalf("IER.THR should be enabled after Request")
	}

	tx.Drive() // first drain: 16 bytes, ring now has 84
	if got := host.TakeTX(uart.IOBaseCOM1); len(got) != uart.TxFIFODepth {
		t.Fatalf("first Drive wrote %d bytes, want %d", len(got), uart.TxFIFODepth)
	}

	drains := 1
	for ring.Len() > 0 {
		tx.Drive()
		drains++
	}
	if drains != 7 {
		t.Fatalf("expected 7 total drains for 100 bytes at 16/drain, got %d", drains)
	}
	if tx.State() != txrx.Stopped {
		t.Fatalf("after ring empties: state = %v, want STOPPED", tx.State())
	}
	if regs.IER()&uart.IERTxEmpty != 0 {
		t.Fatalf("IER.THR should be disabled once STOPPED")
	}
	if readyCount != drains {
		t.Fatalf("onReadyWrite called %d times, want %d", readyCount, drains)
	}
}

func TestRxControllerDrainsUntilLSRClear(t *testing.T) {
	host := kernel.NewSimHost(uart.IOBaseCOM2)
	regs := uart.NewRegisterBank(host, uart.COM2)
	regs.Init()

	host.InjectRX(uart.IOBaseCOM2, []byte{0x41, 0x42, 0x43}, uart.IRQCOM2)

	ring := uart.NewRing(4)
	var mu sync.Mutex
	readyCalled := false
	rx := txrx.NewRxController(&mu, ring, regs, func() { readyCalled = true })

	rx.Drive()

	out := make([]byte, 4)
	n := ring.ReadBatch(out)
	if n != 3 || string(out[:3]) != "ABC" {
		t.Fatalf("ring after Drive: got %q (%d), want %q", out[:n], n, "ABC")
	}
	if !readyCalled {
		t.Fatalf("onReadyRead should be called after Drive")
	}
}

func TestRxControllerOverwritesOnFull(t *testing.T) {
	host := kernel.NewSimHost(uart.IOBaseCOM1)
	regs := uart.NewRegisterBank(host, uart.COM1)
	regs.Init()

	host.InjectRX(uart.IOBaseCOM1, []byte{1, 2, 3, 4, 5, 6}, uart.IRQCOM1)

	ring := uart.NewRing(4)
	var mu sync.Mutex
	rx := txrx.NewRxController(&mu, ring, regs, nil)
	rx.Drive()

	out := make([]byte, 4)
	n := ring.ReadBatch(out)
	want := []byte{3, 4, 5, 6}
	if n != len(want) {
		t.Fatalf("ReadBatch: got %d, want %d", n, len(want))
	}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("byte %d: got %x, want %x", i, out[i], want[i])
		}
	}
}
