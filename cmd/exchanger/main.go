package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"time"

	"dgram/cmd/exchanger/internal/dgram"
)

var (
	bindAddr   = flag.String("bind", dgram.DefaultBind, "Local address to bind, port 0 picks an ephemeral port")
	remoteAddr = flag.String("remote", dgram.DefaultRemote, "Address the payload is sent to")
	payload    = flag.String("payload", dgram.Payload, "Payload of the outbound datagram")
	bufferSize = flag.Int("buffer", dgram.BufferSize, "Capacity of the reply buffer in bytes")
	timeout    = flag.Duration("timeout", 0, "Give up waiting for a reply after this long, 0 waits forever")
	traceOut   = flag.Bool("trace", false, "Write spans and logs to stderr")
	otlp       = flag.Bool("otlp", false, "Export spans over OTLP HTTP instead of stderr, implies -trace")
)

func main() {
	flag.Parse()

	cfg := dgram.Config{
		Bind:       *bindAddr,
		Remote:     *remoteAddr,
		Payload:    []byte(*payload),
		BufferSize: *bufferSize,
	}

	opts := options{
		timeout: *timeout,
		tracing: *traceOut || *otlp,
		otlp:    *otlp,
		traceTo: os.Stderr,
	}
	if err := run(cfg, opts, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

type options struct {
	timeout time.Duration
	tracing bool
	otlp    bool
	traceTo io.Writer
}

func run(cfg dgram.Config, opts options, w io.Writer) (err error) {
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if opts.tracing {
		shutdown, serr := setupOtelSDK(ctx, opts.traceTo, opts.otlp)
		if serr != nil {
			return fmt.Errorf("setup tracing: %w", serr)
		}
		defer func() {
			err = errors.Join(err, shutdown(context.Background()))
		}()
	}

	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	return dgram.Exchange(ctx, cfg, w)
}
