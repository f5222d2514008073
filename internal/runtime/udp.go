package runtime

import (
	"encoding/json"
	"fmt"
	"log"
	"net"

	"github.com/tutu-network/groupmember/internal/domain"
)

const maxDatagramSize = 8192

// inbound is one decoded message lifted off the wire, paired with the
// sender's observed UDP address so the addrBook can learn it even before
// the engine itself marks that sender added.
type inbound struct {
	from domain.ProcessId
	addr *net.UDPAddr
	msg  any
}

// udpTransport is a bare best-effort UDP socket: send is a connectionless
// WriteTo, receive is a single goroutine decoding datagrams onto a channel.
// Grounded on the donor's sendMessage/receiveLoop split, trimmed of the
// donor's own retry/suspicion bookkeeping — that now lives entirely in the
// engine, which the transport never references.
type udpTransport struct {
	self   domain.ProcessId
	conn   *net.UDPConn
	addrs  *addrBook
	logger *log.Logger
	in     chan inbound
}

// newUDPTransport binds listenAddr and starts the receive loop. Returns
// domain.ErrBindFailed wrapped with the underlying cause on failure.
func newUDPTransport(self domain.ProcessId, listenAddr string, logger *log.Logger) (*udpTransport, error) {
	addr, err := net.ResolveUDPAddr("udp", listenAddr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBindFailed, err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBindFailed, err)
	}

	t := &udpTransport{
		self:   self,
		conn:   conn,
		addrs:  newAddrBook(),
		logger: logger,
		in:     make(chan inbound, 256),
	}
	go t.receiveLoop()
	return t, nil
}

func (t *udpTransport) localAddr() net.Addr { return t.conn.LocalAddr() }

// seed registers the known address of a bootstrap peer before we've ever
// heard from it, so Join's first pings have somewhere to go.
func (t *udpTransport) seed(id domain.ProcessId, addr string) error {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return err
	}
	t.addrs.set(id, udpAddr)
	return nil
}

// send best-effort delivers msg to dest. Silently drops if dest's address
// is unknown (spec §7: the network may drop messages; an unreachable
// destination is indistinguishable from a dropped datagram).
func (t *udpTransport) send(msg any, dest domain.ProcessId) {
	addr, ok := t.addrs.lookup(dest)
	if !ok {
		return
	}
	env, ok := encodeEnvelope(t.self, msg)
	if !ok {
		return
	}
	payload, err := json.Marshal(env)
	if err != nil {
		t.logger.Printf("gossip: encode %T for %s: %v", msg, dest, err)
		return
	}
	if _, err := t.conn.WriteToUDP(payload, addr); err != nil {
		t.logger.Printf("gossip: send to %s (%s): %v", dest, addr, err)
	}
}

func (t *udpTransport) receiveLoop() {
	buf := make([]byte, maxDatagramSize)
	for {
		n, addr, err := t.conn.ReadFromUDP(buf)
		if err != nil {
			// Closed socket ends the loop; the host is shutting down.
			return
		}

		var env envelope
		if err := json.Unmarshal(buf[:n], &env); err != nil {
			continue
		}
		from, msg, ok := env.decode()
		if !ok {
			continue
		}
		t.addrs.set(from, addr)
		t.in <- inbound{from: from, addr: addr, msg: msg}
	}
}

func (t *udpTransport) close() error {
	return t.conn.Close()
}
