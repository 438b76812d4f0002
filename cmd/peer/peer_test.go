package main

import (
	"context"
	"net"
	"testing"
	"time"

	"dgram/pkg/pserver"
)

func TestPeerRepliesToSender(t *testing.T) {
	ln, err := pserver.ListenUDP("127.0.0.1:0")
	if err != nil {
		t.Fatalf("could not bind peer: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := NewPeer([]byte("world"))
	go pserver.ServeUDP(ctx, ln, p.handleDatagram)

	conn, err := net.DialUDP("udp", nil, ln.LocalAddr().(*net.UDPAddr))
	if err != nil {
		t.Fatalf("could not dial peer: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("hello")); err != nil {
		t.Fatalf("could not write to peer: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 16)
	n, err := conn.Read(buf)
	if err != nil {
		t.Fatalf("could not read reply: %v", err)
	}
	if got := string(buf[:n]); got != "world" {
		t.Errorf("got %q, want %q", got, "world")
	}

	senders := p.Senders()
	if len(senders) != 1 {
		t.Fatalf("got %d senders, want 1", len(senders))
	}
	if senders[0].Addr != conn.LocalAddr().String() {
		t.Errorf("got sender %s, want %s", senders[0].Addr, conn.LocalAddr())
	}
}

func TestPeerSendersOrdered(t *testing.T) {
	p := NewPeer([]byte("world"))
	addrs := []*net.UDPAddr{
		{IP: net.IPv4(127, 0, 0, 3), Port: 9},
		{IP: net.IPv4(127, 0, 0, 1), Port: 9},
		{IP: net.IPv4(127, 0, 0, 3), Port: 9},
		{IP: net.IPv4(127, 0, 0, 2), Port: 9},
	}
	for _, a := range addrs {
		if got := p.handleDatagram(context.Background(), []byte("x"), a); string(got) != "world" {
			t.Fatalf("got reply %q, want %q", got, "world")
		}
	}

	want := []SenderCount{
		{"127.0.0.1:9", 1},
		{"127.0.0.2:9", 1},
		{"127.0.0.3:9", 2},
	}
	got := p.Senders()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got %v, want %v", got[i], want[i])
		}
	}
}
