package kernel_test

import (
	"testing"
	"time"

	"github.com/MasterMochi/drv-ns16550/internal/kernel"
)

func TestSimHostInjectRXRaisesWhenEnabled(t *testing.T) {
	h := kernel.NewSimHost(0x3F8)
	h.MonitorStart(kernel.IRQ4)
	h.Enable(kernel.IRQ4)
	h.OutByte(0x3F8+1, 0x01) // IER.RxData

	h.InjectRX(0x3F8, []byte{'a', 'b'}, kernel.IRQ4)

	done := make(chan uint32, 1)
	go func() {
		bits, _ := h.Wait()
		done <- bits
	}()

	select {
	case bits := <-done:
		if bits&kernel.IRQBit(kernel.IRQ4) == 0 {
			t.Fatalf("expected IRQ4 bit set, got %#x", bits)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after InjectRX")
	}

	if got := h.InByte(0x3F8); got != 'a' {
		t.Fatalf("InByte: got %q, want 'a'", got)
	}
	if got := h.InByte(0x3F8); got != 'b' {
		t.Fatalf("InByte: got %q, want 'b'", got)
	}
}

func TestSimHostTakeTX(t *testing.T) {
	h := kernel.NewSimHost(0x3F8)
	h.OutBytes(0x3F8, []byte("hi"))
	got := h.TakeTX(0x3F8)
	if string(got) != "hi" {
		t.Fatalf("TakeTX: got %q, want %q", got, "hi")
	}
	if got := h.TakeTX(0x3F8); len(got) != 0 {
		t.Fatalf("TakeTX should drain: got %q", got)
	}
}

func TestSimHostNoRaiseWhenDisabled(t *testing.T) {
	h := kernel.NewSimHost(0x2F8)
	h.MonitorStart(kernel.IRQ3)
	// Never call Enable.
	h.InjectRX(0x2F8, []byte{'z'}, kernel.IRQ3)

	select {
	case <-time.After(50 * time.Millisecond):
		// expected: nothing woke Wait
	}

	done := make(chan uint32, 1)
	go func() {
		bits, _ := h.Wait()
		done <- bits
	}()
	select {
	case <-done:
		t.Fatal("Wait returned despite IRQ never being enabled")
	case <-time.After(50 * time.Millisecond):
	}
}
