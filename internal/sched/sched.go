// Package sched is the scheduler shim: it registers request handlers
// against the broker and runs the cooperative, single-threaded
// dispatch loop that receives messages and invokes them one at a
// time. Callbacks run to completion; nothing inside a callback
// suspends.
package sched

import "github.com/MasterMochi/drv-ns16550/internal/vfsproto"

// Handler is the set of request methods the dispatch loop invokes,
// implemented by the file manager. offset arguments are accepted from
// the broker but ignored — serial ports are not seekable.
type Handler interface {
	OnOpen(pid, gfd uint32, path string)
	OnRead(gfd uint32, offset int64, size int)
	OnWrite(gfd uint32, offset int64, data []byte)
	OnClose(gfd uint32)
}

// Dispatcher runs the broker's blocking receive loop, routing each
// request to the matching Handler method by opcode.
type Dispatcher struct {
	broker  *vfsproto.LoopbackBroker
	handler Handler
	onOther func(any)
}

// NewDispatcher constructs a dispatcher over the given broker and
// handler. onOther may be nil; it is invoked for messages the broker
// delivers that are not one of the four file opcodes.
func NewDispatcher(broker *vfsproto.LoopbackBroker, handler Handler, onOther func(any)) *Dispatcher {
	return &Dispatcher{broker: broker, handler: handler, onOther: onOther}
}

// Run receives messages and dispatches them to the handler, one at a
// time, until the broker's request channel is closed. In normal
// operation this never returns — it is the dispatch context's sole
// blocking point alongside the interrupt thread's irq_wait.
func (d *Dispatcher) Run() {
	reqs := d.broker.Requests()
	other := d.broker.Other()
	for {
		select {
		case req, ok := <-reqs:
			if !ok {
				return
			}
			d.route(req)
		case msg, ok := <-other:
			if !ok {
				return
			}
			if d.onOther != nil {
				d.onOther(msg)
			}
		}
	}
}

func (d *Dispatcher) route(req vfsproto.Request) {
	switch req.Op {
	case vfsproto.OpOpen:
		d.handler.OnOpen(req.PID, req.GFD, req.Path)
	case vfsproto.OpRead:
		d.handler.OnRead(req.GFD, req.Offset, req.Size)
	case vfsproto.OpWrite:
		d.handler.OnWrite(req.GFD, req.Offset, req.Data)
	case vfsproto.OpClose:
		d.handler.OnClose(req.GFD)
	}
}
