package dgram

import (
	"errors"
	"fmt"
	"net"
)

var (
	ErrEmptyPayload = errors.New("payload is empty")
	ErrShortWrite   = errors.New("datagram was not sent whole")
	ErrInvalidState = errors.New("operation not allowed in current state")
	ErrBufferSize   = errors.New("reply buffer size must be positive")
)

// BindError is returned when the local endpoint cannot be allocated.
type BindError struct {
	Addr string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("bind %q: %v", e.Addr, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// SendError is returned when the payload could not be handed to the OS.
type SendError struct {
	Dest string
	Err  error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send to %q: %v", e.Dest, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

type ReceiveError struct {
	Err error
}

func (e *ReceiveError) Error() string {
	return fmt.Sprintf("receive: %v", e.Err)
}

func (e *ReceiveError) Unwrap() error { return e.Err }

// DecodeError means a reply did arrive, but its bytes are not valid UTF-8.
type DecodeError struct {
	Amt    int
	Sender *net.UDPAddr
	Offset int
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode: received %d bytes from %s but could not decode as text (invalid utf-8 at byte %d)",
		e.Amt, e.Sender, e.Offset)
}
