package pserver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
)

const maxDatagram = 65535

// UDPHandlerFunc is called once per datagram. A nil reply sends nothing back.
type UDPHandlerFunc func(ctx context.Context, msg []byte, from *net.UDPAddr) []byte

type UDPMiddleware func(next UDPHandlerFunc) UDPHandlerFunc

// ListenUDP binds a UDP socket on the given address, ":0" picks a free port
func ListenUDP(addr string) (*net.UDPConn, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %q, %w", addr, err)
	}
	ln, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to bind to %q, %w", addr, err)
	}
	return ln, nil
}

// ListenServeUDP is responsible for binding to addr and serving until ctx is done
func ListenServeUDP(ctx context.Context, handler UDPHandlerFunc, addr string) error {
	ln, err := ListenUDP(addr)
	if err != nil {
		return err
	}
	return ServeUDP(ctx, ln, handler)
}

// ServeUDP reads datagrams from ln and writes back whatever handler returns to
// the sender. It closes ln when ctx is done and then returns nil.
func ServeUDP(ctx context.Context, ln *net.UDPConn, handler UDPHandlerFunc) error {
	stop := context.AfterFunc(ctx, func() {
		ln.Close()
	})
	defer stop()
	defer ln.Close()

	log.Printf("server started successfully, running at: %s\n", ln.LocalAddr())
	buffer := make([]byte, maxDatagram)
	for {
		n, remoteAddr, err := ln.ReadFromUDP(buffer)
		if err != nil {
			if ctx.Err() != nil && errors.Is(err, net.ErrClosed) {
				log.Println("server stopped")
				return nil
			}
			return fmt.Errorf("read datagram: %w", err)
		}
		msg := make([]byte, n)
		copy(msg, buffer[:n])

		response := handler(ctx, msg, remoteAddr)
		if response == nil {
			continue
		}
		if _, err := ln.WriteToUDP(response, remoteAddr); err != nil {
			log.Printf("error writing reply to %s: %v\n", remoteAddr, err)
		}
	}
}

func WithUDPMiddleware(handler UDPHandlerFunc, ms ...UDPMiddleware) UDPHandlerFunc {
	for i := len(ms) - 1; i >= 0; i-- {
		handler = ms[i](handler)
	}
	return handler
}

func LoggingUDPMiddleware(next UDPHandlerFunc) UDPHandlerFunc {
	return func(ctx context.Context, msg []byte, from *net.UDPAddr) []byte {
		log.Printf("got message from %s: %q\n", from, msg)
		response := next(ctx, msg, from)
		if response != nil {
			log.Printf("send message to %s: %q\n", from, response)
		}
		return response
	}
}
