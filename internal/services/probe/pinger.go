// Package probe checks host reachability with ICMP echo requests.
package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"
	"sync/atomic"
	"time"

	"github.com/fgeck/gowol-homelab/internal/models"
	"github.com/rs/zerolog"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

// DefaultTimeout bounds a single echo exchange.
const DefaultTimeout = time.Second

var errNoReply = errors.New("no echo reply")

// Pinger sends a single echo request and waits for the matching reply.
type Pinger interface {
	Ping(ctx context.Context, ip netip.Addr) (time.Duration, error)
}

// ICMPPinger implements Pinger with golang.org/x/net/icmp.
type ICMPPinger struct {
	privileged bool
	timeout    time.Duration
	id         int
	seq        atomic.Uint32
	logger     zerolog.Logger
}

// NewICMPPinger creates a pinger for cfg. Unprivileged pingers use datagram
// ICMP sockets and need net.ipv4.ping_group_range to include the caller.
func NewICMPPinger(logger zerolog.Logger, cfg models.ProbeSettings) *ICMPPinger {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ICMPPinger{
		privileged: cfg.Privileged,
		timeout:    timeout,
		id:         os.Getpid() & 0xffff,
		logger:     logger,
	}
}

type family struct {
	network  string
	listen   string
	request  icmp.Type
	reply    icmp.Type
	protocol int
}

func (p *ICMPPinger) family(ip netip.Addr) family {
	if ip.Is4() {
		f := family{network: "udp4", listen: "0.0.0.0", request: ipv4.ICMPTypeEcho, reply: ipv4.ICMPTypeEchoReply, protocol: 1}
		if p.privileged {
			f.network = "ip4:icmp"
		}
		return f
	}
	f := family{network: "udp6", listen: "::", request: ipv6.ICMPTypeEchoRequest, reply: ipv6.ICMPTypeEchoReply, protocol: 58}
	if p.privileged {
		f.network = "ip6:ipv6-icmp"
	}
	return f
}

// Ping sends one echo request to ip and returns the round-trip time.
func (p *ICMPPinger) Ping(ctx context.Context, ip netip.Addr) (time.Duration, error) {
	ip = ip.Unmap()
	f := p.family(ip)

	conn, err := icmp.ListenPacket(f.network, f.listen)
	if err != nil {
		return 0, fmt.Errorf("failed to open ICMP socket: %w", err)
	}
	defer func() { _ = conn.Close() }()

	deadline := time.Now().Add(p.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return 0, fmt.Errorf("failed to set deadline: %w", err)
	}

	seq := int(p.seq.Add(1) & 0xffff)
	msg := icmp.Message{
		Type: f.request,
		Body: &icmp.Echo{
			ID:   p.id,
			Seq:  seq,
			Data: []byte("gowol-homelab"),
		},
	}
	wb, err := msg.Marshal(nil)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal echo request: %w", err)
	}

	start := time.Now()
	if _, err := conn.WriteTo(wb, p.dst(ip)); err != nil {
		return 0, fmt.Errorf("failed to send echo request: %w", err)
	}

	rb := make([]byte, 1500)
	for {
		n, peer, err := conn.ReadFrom(rb)
		if err != nil {
			return 0, fmt.Errorf("%w from %s: %w", errNoReply, ip, err)
		}
		rtt := time.Since(start)

		rm, err := icmp.ParseMessage(f.protocol, rb[:n])
		if err != nil || rm.Type != f.reply {
			continue
		}
		echo, ok := rm.Body.(*icmp.Echo)
		if !ok || echo.Seq != seq || !samePeer(peer, ip) {
			continue
		}
		// The kernel rewrites the ID of unprivileged echo sockets.
		if p.privileged && echo.ID != p.id {
			continue
		}

		p.logger.Debug().
			Str("ip", ip.String()).
			Int("seq", seq).
			Dur("rtt", rtt).
			Msg("echo reply")
		return rtt, nil
	}
}

func (p *ICMPPinger) dst(ip netip.Addr) net.Addr {
	if p.privileged {
		return &net.IPAddr{IP: ip.AsSlice(), Zone: ip.Zone()}
	}
	return &net.UDPAddr{IP: ip.AsSlice(), Zone: ip.Zone()}
}

func samePeer(peer net.Addr, ip netip.Addr) bool {
	var raw net.IP
	switch a := peer.(type) {
	case *net.IPAddr:
		raw = a.IP
	case *net.UDPAddr:
		raw = a.IP
	default:
		return false
	}
	got, ok := netip.AddrFromSlice(raw)
	return ok && got.Unmap() == ip.WithZone("").Unmap()
}
