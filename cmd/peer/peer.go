package main

import (
	"context"
	"flag"
	"log"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"dgram/pkg/pserver"

	"github.com/huandu/skiplist"
)

var (
	listenAddr = flag.String("addr", "127.0.0.1:1234", "Address the peer listens on")
	replyText  = flag.String("reply", "world", "Text sent back to every sender")
)

func main() {
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := NewPeer([]byte(*replyText))
	handler := pserver.WithUDPMiddleware(
		p.handleDatagram,
		pserver.LoggingUDPMiddleware,
	)

	err := pserver.ListenServeUDP(ctx, handler, *listenAddr)
	for _, s := range p.Senders() {
		log.Printf("sender %s: %d datagrams\n", s.Addr, s.Count)
	}
	if err != nil {
		log.Fatal(err)
	}
}

type SenderCount struct {
	Addr  string
	Count int
}

// Peer answers every datagram with a fixed reply and remembers who asked.
type Peer struct {
	reply []byte

	mu      sync.Mutex
	senders *skiplist.SkipList
}

func NewPeer(reply []byte) *Peer {
	return &Peer{
		reply:   reply,
		senders: skiplist.New(skiplist.String),
	}
}

func (p *Peer) handleDatagram(ctx context.Context, msg []byte, from *net.UDPAddr) []byte {
	p.record(from.String())
	return p.reply
}

func (p *Peer) record(addr string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	count := 0
	if elem := p.senders.Get(addr); elem != nil {
		count = elem.Value.(int)
	}
	p.senders.Set(addr, count+1)
}

// Senders returns every observed sender ordered by address.
func (p *Peer) Senders() []SenderCount {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]SenderCount, 0, p.senders.Len())
	for elem := p.senders.Front(); elem != nil; elem = elem.Next() {
		out = append(out, SenderCount{Addr: elem.Key().(string), Count: elem.Value.(int)})
	}
	return out
}
