package wol

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/fgeck/gowol-homelab/internal/models"
	"github.com/rs/zerolog"
)

// Defaults for the magic packet destination.
const (
	DefaultBroadcastIP = "255.255.255.255"
	DefaultPort        = 9
)

// Broadcaster transmits a payload once to the broadcast address.
type Broadcaster interface {
	Send(ctx context.Context, payload []byte) (int, error)
}

// Dialer opens connections; *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// UDPBroadcaster sends payloads as single UDP datagrams.
type UDPBroadcaster struct {
	dialer Dialer
	addr   string
	logger zerolog.Logger
}

// NewUDPBroadcaster creates a broadcaster for cfg, applying defaults.
func NewUDPBroadcaster(logger zerolog.Logger, cfg models.WOLConfig) *UDPBroadcaster {
	return NewUDPBroadcasterWithDialer(logger, cfg, &net.Dialer{})
}

// NewUDPBroadcasterWithDialer creates a broadcaster with a custom dialer (for testing).
func NewUDPBroadcasterWithDialer(logger zerolog.Logger, cfg models.WOLConfig, dialer Dialer) *UDPBroadcaster {
	ip := cfg.BroadcastIP
	if ip == "" {
		ip = DefaultBroadcastIP
	}
	port := cfg.Port
	if port == 0 {
		port = DefaultPort
	}
	return &UDPBroadcaster{
		dialer: dialer,
		addr:   net.JoinHostPort(ip, strconv.Itoa(port)),
		logger: logger,
	}
}

// Addr returns the destination address.
func (b *UDPBroadcaster) Addr() string {
	return b.addr
}

// Send writes payload once. The socket is closed before returning.
func (b *UDPBroadcaster) Send(ctx context.Context, payload []byte) (int, error) {
	conn, err := b.dialer.DialContext(ctx, "udp", b.addr)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to open socket for %s: %w", models.ErrTransmit, b.addr, err)
	}
	defer func() { _ = conn.Close() }()

	n, err := conn.Write(payload)
	if err != nil {
		return n, fmt.Errorf("%w: failed to send to %s: %w", models.ErrTransmit, b.addr, err)
	}

	b.logger.Debug().
		Str("addr", b.addr).
		Int("bytes", n).
		Msg("magic packet sent")

	return n, nil
}
