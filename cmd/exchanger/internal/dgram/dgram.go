// Package dgram sends a single datagram to a remote endpoint and waits for
// a single reply.
//
// An Exchanger moves through Open, Sent and Received strictly once, in that
// order, and ends in Closed. There are no retries and no timeout unless the
// caller puts one on the context passed to Receive.
package dgram

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const name = "dgram/exchanger"

const (
	DefaultBind   = "0.0.0.0:0"
	DefaultRemote = "127.0.0.1:1234"
	Payload       = "hello"
	BufferSize    = 10
)

var (
	tracer = otel.Tracer(name)
	logger = otelslog.NewLogger(name)
)

type State int

const (
	StateClosed State = iota
	StateOpen
	StateSent
	StateReceived
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateSent:
		return "sent"
	case StateReceived:
		return "received"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Reply describes the datagram accepted by Receive. Only the first Amt bytes
// of the buffer passed to Receive are valid.
type Reply struct {
	Amt    int
	Sender *net.UDPAddr

	// Truncated is set when the platform reported that the datagram did not
	// fit in the buffer and the excess was discarded.
	Truncated bool
}

type Exchanger struct {
	conn  *net.UDPConn
	state State
}

// Open binds a UDP socket to bindAddr. Port 0 lets the OS choose an
// ephemeral port.
func Open(ctx context.Context, bindAddr string) (*Exchanger, error) {
	_, span := tracer.Start(ctx, "open", trace.WithAttributes(attribute.String("bind-address", bindAddr)))
	defer span.End()

	laddr, err := net.ResolveUDPAddr("udp", bindAddr)
	if err != nil {
		return nil, fail(span, &BindError{Addr: bindAddr, Err: err})
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, fail(span, &BindError{Addr: bindAddr, Err: err})
	}

	span.SetAttributes(attribute.String("local-address", conn.LocalAddr().String()))
	logger.DebugContext(ctx, "Socket bound", "local-address", conn.LocalAddr().String())

	return &Exchanger{conn: conn, state: StateOpen}, nil
}

func (e *Exchanger) LocalAddr() *net.UDPAddr {
	if e.conn == nil {
		return nil
	}
	return e.conn.LocalAddr().(*net.UDPAddr)
}

func (e *Exchanger) State() State {
	return e.state
}

// Send emits payload as one datagram to dest. Delivery is not guaranteed:
// a missing receiver is not an error.
func (e *Exchanger) Send(ctx context.Context, payload []byte, dest string) error {
	ctx, span := tracer.Start(ctx, "send",
		trace.WithAttributes(attribute.String("destination", dest)),
		trace.WithAttributes(attribute.Int("payload-length", len(payload))),
	)
	defer span.End()

	if e.state != StateOpen {
		return fail(span, &SendError{Dest: dest, Err: fmt.Errorf("%w: %s", ErrInvalidState, e.state)})
	}
	if len(payload) == 0 {
		return fail(span, &SendError{Dest: dest, Err: ErrEmptyPayload})
	}

	raddr, err := net.ResolveUDPAddr("udp", dest)
	if err != nil {
		return fail(span, &SendError{Dest: dest, Err: err})
	}
	n, err := e.conn.WriteToUDP(payload, raddr)
	if err != nil {
		return fail(span, &SendError{Dest: dest, Err: err})
	}
	if n != len(payload) {
		return fail(span, &SendError{Dest: dest, Err: fmt.Errorf("%w: wrote %d of %d bytes", ErrShortWrite, n, len(payload))})
	}

	e.state = StateSent
	logger.DebugContext(ctx, "Datagram sent", "destination", raddr.String(), "bytes", n)
	return nil
}

// Receive blocks until one datagram arrives and copies it into buf.
// A datagram larger than buf is truncated to len(buf) bytes, never an error.
// Cancelling ctx is the only way to stop the wait.
func (e *Exchanger) Receive(ctx context.Context, buf []byte) (Reply, error) {
	ctx, span := tracer.Start(ctx, "receive", trace.WithAttributes(attribute.Int("buffer-capacity", len(buf))))
	defer span.End()

	if e.state != StateSent {
		return Reply{}, fail(span, &ReceiveError{Err: fmt.Errorf("%w: %s", ErrInvalidState, e.state)})
	}

	stop := context.AfterFunc(ctx, func() {
		// unblocks the pending read
		_ = e.conn.SetReadDeadline(time.Unix(1, 0))
	})
	defer stop()

	n, _, flags, sender, err := e.conn.ReadMsgUDP(buf, nil)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return Reply{}, fail(span, &ReceiveError{Err: err})
	}

	reply := Reply{Amt: n, Sender: sender, Truncated: truncated(flags)}
	e.state = StateReceived

	span.SetAttributes(
		attribute.Int("amount", n),
		attribute.String("sender", sender.String()),
		attribute.Bool("truncated", reply.Truncated),
	)
	if reply.Truncated {
		logger.WarnContext(ctx, "Reply truncated to buffer capacity", "capacity", len(buf), "sender", sender.String())
	}
	return reply, nil
}

// Close releases the socket. Calling it more than once is a no-op.
func (e *Exchanger) Close() error {
	if e.conn == nil {
		return nil
	}
	err := e.conn.Close()
	e.conn = nil
	e.state = StateClosed
	return err
}

// Decode returns buf[:reply.Amt] as text. Bytes past Amt are never looked at.
func Decode(buf []byte, reply Reply) (string, error) {
	if reply.Amt < 0 || reply.Amt > len(buf) {
		return "", fmt.Errorf("reply length %d out of range for buffer of %d bytes", reply.Amt, len(buf))
	}
	valid := buf[:reply.Amt]
	if !utf8.Valid(valid) {
		return "", &DecodeError{Amt: reply.Amt, Sender: reply.Sender, Offset: invalidOffset(valid)}
	}
	return string(valid), nil
}

// Report decodes the reply and writes `[sender] "text"` as one line to w.
func Report(w io.Writer, buf []byte, reply Reply) error {
	text, err := Decode(buf, reply)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "[%s] %q\n", reply.Sender, text)
	return err
}

func invalidOffset(b []byte) int {
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size <= 1 {
			return i
		}
		i += size
	}
	return len(b)
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
