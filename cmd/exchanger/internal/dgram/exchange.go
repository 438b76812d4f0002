package dgram

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Config struct {
	Bind       string
	Remote     string
	Payload    []byte
	BufferSize int
}

// Validate reports configuration that would fail before any socket is opened.
func (c Config) Validate() error {
	if c.BufferSize <= 0 {
		return fmt.Errorf("%w: %d", ErrBufferSize, c.BufferSize)
	}
	return nil
}

func DefaultConfig() Config {
	return Config{
		Bind:       DefaultBind,
		Remote:     DefaultRemote,
		Payload:    []byte(Payload),
		BufferSize: BufferSize,
	}
}

// Exchange runs open, send, receive and report once, in order. The first
// failing step ends the sequence; the socket is closed on every path.
func Exchange(ctx context.Context, cfg Config, w io.Writer) (err error) {
	ctx, span := tracer.Start(ctx, "exchange",
		trace.WithAttributes(attribute.String("remote-address", cfg.Remote)),
	)
	defer span.End()

	if err := cfg.Validate(); err != nil {
		return fail(span, err)
	}

	ex, err := Open(ctx, cfg.Bind)
	if err != nil {
		return fail(span, err)
	}
	defer func() {
		err = errors.Join(err, ex.Close())
	}()

	if err := ex.Send(ctx, cfg.Payload, cfg.Remote); err != nil {
		return fail(span, err)
	}

	buf := make([]byte, cfg.BufferSize)
	reply, err := ex.Receive(ctx, buf)
	if err != nil {
		return fail(span, err)
	}

	logger.InfoContext(ctx, "Reply received", "sender", reply.Sender.String(), "bytes", reply.Amt)

	if err := Report(w, buf, reply); err != nil {
		return fail(span, err)
	}
	return nil
}
