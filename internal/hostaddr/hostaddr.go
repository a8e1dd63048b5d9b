// Package hostaddr determines the address a responder can use to reach
// this machine when dialing back.
package hostaddr

import (
	"context"
	"net"
	"os"
	"strings"
	"time"
)

const (
	lookupTimeout   = 2 * time.Second
	fallbackAddress = "localhost"

	// The dial never sends a packet; it only selects the egress interface.
	egressProbeAddr = "8.8.8.8:80"
)

// Resolver finds the best reachable address for the local machine.
// The zero value uses the system resolver and real hostname.
type Resolver struct {
	hostname func() (string, error)
	lookup   func(ctx context.Context, host string) ([]string, error)
	dial     func(network, address string) (net.Conn, error)
}

func NewResolver() *Resolver {
	var r net.Resolver
	return &Resolver{
		hostname: os.Hostname,
		lookup:   r.LookupHost,
		dial:     net.Dial,
	}
}

// Resolve returns, in order of preference: the machine hostname if it
// resolves, its .local mDNS variant if that resolves, the IP of the default
// egress interface, or a fallback literal.
func (r *Resolver) Resolve(ctx context.Context) string {
	if host, err := r.hostname(); err == nil && host != "" {
		if r.resolvable(ctx, host) {
			return host
		}
		if !strings.HasSuffix(host, ".local") {
			local := host + ".local"
			if r.resolvable(ctx, local) {
				return local
			}
		}
	}

	if ip := r.egressIP(); ip != "" {
		return ip
	}

	return fallbackAddress
}

func (r *Resolver) resolvable(ctx context.Context, host string) bool {
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()
	addrs, err := r.lookup(ctx, host)
	return err == nil && len(addrs) > 0
}

func (r *Resolver) egressIP() string {
	conn, err := r.dial("udp", egressProbeAddr)
	if err != nil {
		return ""
	}
	defer conn.Close()
	if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok && addr.IP != nil {
		return addr.IP.String()
	}
	return ""
}
