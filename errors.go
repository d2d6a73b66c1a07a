package muduo

import "errors"

// Sentinel errors for contract misuse and setup failures.
//
// Transient I/O conditions (EAGAIN, EINTR) are never turned into one of
// these; they are handled inline where they occur (see connection.go,
// poller.go) and never surfaced to user code.
var (
	// ErrInvalidParam covers nil/negative arguments rejected at the API
	// boundary: a nil *EventLoop handed to NewConnector/NewAcceptor, or a
	// negative timeout passed to Connector.Connect.
	ErrInvalidParam = errors.New("muduo: invalid parameter")

	// ErrTimeoutOutOfRange is returned by TimeWheel.Add when d is outside [1, W).
	ErrTimeoutOutOfRange = errors.New("muduo: timer timeout out of wheel range")

	// ErrDuplicateTimerID is returned when a timer id is scheduled twice without being canceled.
	ErrDuplicateTimerID = errors.New("muduo: timer id already scheduled")

	// ErrLoopClosed is returned by RunInLoop/Send once the owning EventLoop has stopped.
	ErrLoopClosed = errors.New("muduo: event loop closed")

	// ErrAddrInvalid is returned by NewAcceptor/Connector.Connect for a malformed address.
	ErrAddrInvalid = errors.New("muduo: address is invalid, want host:port")
)
