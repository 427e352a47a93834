// Package portfsm implements the two-state per-port state machine
// that validates VFS requests against a file's open/closed state and
// drives the action associated with each transition. With only two
// states and four events, it is a direct match on (state, event)
// rather than a generic table-driven state-machine library.
package portfsm

// State is a port's open/closed lifecycle state.
type State int

const (
	// Closed is the initial state: no client holds the port open.
	Closed State = iota
	// Opened means one client currently owns the port.
	Opened
)

func (s State) String() string {
	if s == Opened {
		return "OPENED"
	}
	return "CLOSED"
}

// Event names one of the four VFS opcodes the state machine reacts to.
type Event int

const (
	Open Event = iota
	Read
	Write
	Close
)

// Result is the outcome code carried in every VFS reply.
type Result int

const (
	Success Result = iota
	Failure
)

// Request carries the parameters of one VFS event: GFD and PID for
// Open, size for Read, payload for Write. Close uses no fields.
type Request struct {
	GFD     uint32
	PID     uint32
	Size    int
	Payload []byte
}

// Reply carries the outcome of one transition's action, ready for the
// caller to marshal into a VFS reply primitive.
type Reply struct {
	Result    Result
	Readiness byte
	Payload   []byte // populated for a successful Read
	Size      int    // bytes read or written
}

// Context is the per-port state the state machine's actions read and
// mutate. It is implemented by the file manager's port record; this
// package only consumes it, so there is no import cycle back to the
// package that owns ports.
type Context interface {
	// SetOwner records the opening client's gfd and pid and clears the
	// RX ring.
	SetOwner(gfd, pid uint32)
	// ClearOwner forgets the opening client and resets readiness.
	ClearOwner()
	// ReadRX drains up to len(buf) bytes from the RX ring into buf,
	// returning the count actually popped.
	ReadRX(buf []byte) int
	// WriteTX pushes data into the TX ring (reject-on-full), returning
	// the count actually pushed, and nudges the TX controller awake.
	WriteTX(data []byte) int
	// Readiness recomputes and returns the current READ|WRITE mask
	// from live ring state.
	Readiness() byte
	// ResetReady zeroes the readiness-edge cache without recomputing or
	// announcing anything, so the next Open starts from a clean 0→mask
	// edge instead of a spurious one fired by the close itself.
	ResetReady() byte
}

// Transition applies event ev, carrying req, to a port currently in
// state cur, invoking the action against ctx and returning the reply
// to send plus the port's next state. It implements §4.6's table
// verbatim: a gfd mismatch is expected to be checked by the caller
// before Transition is invoked at all, since that failure never
// reaches the state machine.
func Transition(ctx Context, cur State, ev Event, req Request) (Reply, State) {
	switch {
	case cur == Closed && ev == Open:
		ctx.SetOwner(req.GFD, req.PID)
		return Reply{Result: Success, Readiness: ctx.Readiness()}, Opened

	case cur == Opened && ev == Open:
		return Reply{Result: Failure, Readiness: ctx.Readiness()}, Opened

	case cur == Opened && ev == Read:
		buf := make([]byte, req.Size)
		n := ctx.ReadRX(buf)
		return Reply{Result: Success, Payload: buf[:n], Size: n, Readiness: ctx.Readiness()}, Opened

	case cur == Opened && ev == Write:
		n := ctx.WriteTX(req.Payload)
		return Reply{Result: Success, Size: n, Readiness: ctx.Readiness()}, Opened

	case cur == Opened && ev == Close:
		ctx.ClearOwner()
		return Reply{Result: Success, Readiness: ctx.ResetReady()}, Closed

	default:
		// Closed+Read, Closed+Write, Closed+Close: the file manager's gfd
		// lookup only lands here for a request carrying gfd 0, which
		// matches a closed port's cleared descriptor. Handled with a
		// FAILURE reply rather than a panic. The port has no owner here, so reset rather than
		// recompute/announce readiness.
		return Reply{Result: Failure, Readiness: ctx.ResetReady()}, cur
	}
}
