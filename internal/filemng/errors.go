package filemng

// Error pairs a short message with an optional wrapped cause, the
// same shape goserial's error.go uses so callers can errors.Is/As
// against the sentinels below.
type Error struct {
	msg string
	err error
}

func (e Error) Error() string {
	if e.msg != "" {
		if e.err != nil {
			return e.msg + ": " + e.err.Error()
		}
		return e.msg
	}
	if e.err != nil {
		return e.err.Error()
	}
	return ""
}

func (e Error) Unwrap() error { return e.err }

var (
	// ErrAlreadyOpen names the protocol-violation (§7.1) where a client
	// opens a port another client already holds open.
	ErrAlreadyOpen = Error{msg: "port already open"}
	// ErrNotOpen names requests against a port with no recorded owner.
	ErrNotOpen = Error{msg: "port not open"}
	// ErrUnknownPath names an open request naming a path that matches
	// neither configured port.
	ErrUnknownPath = Error{msg: "unknown path"}
	// ErrUnknownFD names a request whose global file descriptor matches
	// no currently open port.
	ErrUnknownFD = Error{msg: "unknown file descriptor"}
)
