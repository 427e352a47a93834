package portfsm_test

import (
	"testing"

	"github.com/MasterMochi/drv-ns16550/internal/portfsm"
)

// fakeCtx is a minimal in-memory Context for exercising the state
// machine's transition table in isolation from the file manager.
type fakeCtx struct {
	owner   uint32
	rx      []byte
	tx      []byte
	txCap   int
	nudged  int
}

func (c *fakeCtx) SetOwner(gfd, pid uint32) { c.owner = pid; c.rx = nil }
func (c *fakeCtx) ClearOwner()              { c.owner = 0; c.rx = nil; c.tx = nil }

func (c *fakeCtx) ReadRX(buf []byte) int {
	n := copy(buf, c.rx)
	c.rx = c.rx[n:]
	return n
}

func (c *fakeCtx) WriteTX(data []byte) int {
	room := c.txCap - len(c.tx)
	if room < 0 {
		room = 0
	}
	n := len(data)
	if n > room {
		n = room
	}
	c.tx = append(c.tx, data[:n]...)
	c.nudged++
	return n
}

func (c *fakeCtx) Readiness() byte {
	var m byte
	if len(c.rx) > 0 {
		m |= 0x01
	}
	if len(c.tx) < c.txCap {
		m |= 0x02
	}
	return m
}

func (c *fakeCtx) ResetReady() byte { return 0 }

func TestOpenFromClosedSucceeds(t *testing.T) {
	ctx := &fakeCtx{txCap: 16}
	reply, next := portfsm.Transition(ctx, portfsm.Closed, portfsm.Open, portfsm.Request{GFD: 1, PID: 7})
	if reply.Result != portfsm.Success || next != portfsm.Opened {
		t.Fatalf("got (%v, %v), want (Success, Opened)", reply.Result, next)
	}
	if ctx.owner != 7 {
		t.Fatalf("owner = %d, want 7", ctx.owner)
	}
}

func TestDoubleOpenFails(t *testing.T) {
	ctx := &fakeCtx{txCap: 16}
	reply, next := portfsm.Transition(ctx, portfsm.Opened, portfsm.Open, portfsm.Request{PID: 9})
	if reply.Result != portfsm.Failure || next != portfsm.Opened {
		t.Fatalf("got (%v, %v), want (Failure, Opened)", reply.Result, next)
	}
}

func TestShortRead(t *testing.T) {
	ctx := &fakeCtx{txCap: 16, rx: []byte{0x41, 0x42}}
	reply, next := portfsm.Transition(ctx, portfsm.Opened, portfsm.Read, portfsm.Request{Size: 8})
	if reply.Result != portfsm.Success || reply.Size != 2 || string(reply.Payload) != "AB" {
		t.Fatalf("got %+v, want size=2 payload=AB", reply)
	}
	if reply.Readiness&0x01 != 0 {
		t.Fatalf("readiness READ bit should clear once ring drains, got %#x", reply.Readiness)
	}
	if next != portfsm.Opened {
		t.Fatalf("next state = %v, want Opened", next)
	}
}

func TestWritePushesAndNudges(t *testing.T) {
	ctx := &fakeCtx{txCap: 16}
	reply, _ := portfsm.Transition(ctx, portfsm.Opened, portfsm.Write, portfsm.Request{Payload: []byte("hi\n")})
	if reply.Result != portfsm.Success || reply.Size != 3 {
		t.Fatalf("got %+v, want size=3", reply)
	}
	if ctx.nudged != 1 {
		t.Fatalf("WriteTX should be invoked exactly once")
	}
}

func TestCloseResetsToClosed(t *testing.T) {
	ctx := &fakeCtx{txCap: 16, owner: 3}
	reply, next := portfsm.Transition(ctx, portfsm.Opened, portfsm.Close, portfsm.Request{})
	if reply.Result != portfsm.Success || next != portfsm.Closed {
		t.Fatalf("got (%v, %v), want (Success, Closed)", reply.Result, next)
	}
	if ctx.owner != 0 {
		t.Fatalf("owner should be cleared on close, got %d", ctx.owner)
	}
	if reply.Readiness != 0 {
		t.Fatalf("close should report a reset readiness mask, got %#x", reply.Readiness)
	}
}
