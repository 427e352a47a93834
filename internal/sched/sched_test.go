package sched_test

import (
	"testing"
	"time"

	"github.com/MasterMochi/drv-ns16550/internal/sched"
	"github.com/MasterMochi/drv-ns16550/internal/vfsproto"
)

type recordingHandler struct {
	opens  []string
	closes []uint32
}

func (h *recordingHandler) OnOpen(pid, gfd uint32, path string) { h.opens = append(h.opens, path) }
func (h *recordingHandler) OnRead(gfd uint32, offset int64, size int) {}
func (h *recordingHandler) OnWrite(gfd uint32, offset int64, data []byte) {}
func (h *recordingHandler) OnClose(gfd uint32) { h.closes = append(h.closes, gfd) }

func TestDispatcherRoutesByOpcode(t *testing.T) {
	broker := vfsproto.NewLoopbackBroker(4)
	h := &recordingHandler{}
	d := sched.NewDispatcher(broker, h, nil)
	go d.Run()

	broker.Submit(vfsproto.Request{Op: vfsproto.OpOpen, PID: 1, GFD: 7, Path: "/serial1"})
	broker.Submit(vfsproto.Request{Op: vfsproto.OpClose, GFD: 7})

	deadline := time.After(time.Second)
	for len(h.closes) == 0 {
		select {
		case <-deadline:
			t.Fatal("dispatcher never routed the close request")
		case <-time.After(time.Millisecond):
		}
	}
	if len(h.opens) != 1 || h.opens[0] != "/serial1" {
		t.Fatalf("opens = %v, want [/serial1]", h.opens)
	}
	if h.closes[0] != 7 {
		t.Fatalf("closes = %v, want [7]", h.closes)
	}
}

func TestDispatcherRoutesOtherMessages(t *testing.T) {
	broker := vfsproto.NewLoopbackBroker(4)
	h := &recordingHandler{}
	seen := make(chan any, 1)
	d := sched.NewDispatcher(broker, h, func(msg any) { seen <- msg })
	go d.Run()

	broker.SubmitOther("ping")

	select {
	case msg := <-seen:
		if msg != "ping" {
			t.Fatalf("got %v, want ping", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("onOther was never invoked")
	}
}
