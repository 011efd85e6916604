package proxy

import (
	"errors"
	"fmt"
	"net"
	"sync/atomic"
)

// ErrAlreadyBound is returned when a Binding is bound twice.
var ErrAlreadyBound = errors.New("proxy port already bound")

// Binding holds the proxy's listening port. It is written once and read-only
// afterwards.
type Binding struct {
	port atomic.Int32
}

// Port returns the bound port, or 0 before Listen succeeds.
func (b *Binding) Port() int {
	return int(b.port.Load())
}

// Bound reports whether a port has been assigned.
func (b *Binding) Bound() bool {
	return b.Port() != 0
}

// Listen opens a listener on an OS-assigned port of host and records it.
func (b *Binding) Listen(host string) (net.Listener, error) {
	if b.Bound() {
		return nil, ErrAlreadyBound
	}

	ln, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		return nil, fmt.Errorf("failed to bind proxy listener: %w", err)
	}

	if err := b.set(ln.Addr().(*net.TCPAddr).Port); err != nil {
		ln.Close()
		return nil, err
	}
	return ln, nil
}

func (b *Binding) set(port int) error {
	if !b.port.CompareAndSwap(0, int32(port)) {
		return ErrAlreadyBound
	}
	return nil
}
