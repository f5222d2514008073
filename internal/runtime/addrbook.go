package runtime

import (
	"net"
	"sync"

	"github.com/tutu-network/groupmember/internal/domain"
)

// addrBook maps ProcessId to the last UDP address we saw traffic from (or
// were told to use for a bootstrap seed). The membership protocol proper
// never sees addresses — they exist only so this package's transport can
// resolve Runtime.Send's logical destination to a socket.
type addrBook struct {
	mu   sync.RWMutex
	addr map[domain.ProcessId]*net.UDPAddr
}

func newAddrBook() *addrBook {
	return &addrBook{addr: make(map[domain.ProcessId]*net.UDPAddr)}
}

func (b *addrBook) set(id domain.ProcessId, addr *net.UDPAddr) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.addr[id] = addr
}

func (b *addrBook) lookup(id domain.ProcessId) (*net.UDPAddr, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	a, ok := b.addr[id]
	return a, ok
}
