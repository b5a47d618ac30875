// Package address classifies user-supplied addresses and resolves them to MAC
// or IP addresses through the neighbor table.
package address

import (
	"context"
	"fmt"
	"net/netip"

	"github.com/fgeck/gowol-homelab/internal/models"
	"github.com/fgeck/gowol-homelab/internal/services/neighbor"
	"github.com/rs/zerolog"
)

// Accepted input length, from "1.2.3.4" up to "AA-BB-CC-DD-EE-FF".
const (
	MinLength = 7
	MaxLength = 17
)

// Kind is the detected type of an address string.
type Kind int

// Address kinds.
const (
	KindInvalid Kind = iota
	KindIP
	KindMAC
)

func (k Kind) String() string {
	switch k {
	case KindIP:
		return "ip"
	case KindMAC:
		return "mac"
	default:
		return "invalid"
	}
}

// Parsed is the result of classifying an address string.
type Parsed struct {
	Kind Kind
	IP   netip.Addr
	MAC  models.MAC
}

// Parse tries the address as an IP literal, then as a MAC literal.
func Parse(addr string) Parsed {
	if len(addr) < MinLength || len(addr) > MaxLength {
		return Parsed{Kind: KindInvalid}
	}
	if ip, err := netip.ParseAddr(addr); err == nil {
		return Parsed{Kind: KindIP, IP: ip}
	}
	if mac, err := models.ParseMAC(addr); err == nil {
		return Parsed{Kind: KindMAC, MAC: mac}
	}
	return Parsed{Kind: KindInvalid}
}

// Service defines the interface for address resolution.
type Service interface {
	Resolve(ctx context.Context, addr string) (models.MAC, error)
	ResolveHost(ctx context.Context, addr string) (netip.Addr, error)
}

// Impl implements the address Service interface.
type Impl struct {
	table  neighbor.Table
	logger zerolog.Logger
}

// New creates a new address resolver over table.
func New(logger zerolog.Logger, table neighbor.Table) *Impl {
	return &Impl{
		table:  table,
		logger: logger,
	}
}

// Resolve returns the MAC address of addr. IP addresses are looked up in the
// neighbor table; MAC addresses are returned without a lookup.
func (s *Impl) Resolve(ctx context.Context, addr string) (models.MAC, error) {
	var mac models.MAC

	parsed := Parse(addr)
	s.logger.Debug().Str("address", addr).Stringer("kind", parsed.Kind).Msg("classified address")

	switch parsed.Kind {
	case KindIP:
		entry, err := s.table.LookupIP(ctx, parsed.IP)
		if err != nil {
			return mac, fmt.Errorf("%w: %s: %w", models.ErrAddressNotInNeighborTable, parsed.IP, err)
		}
		if entry.MAC.IsZero() {
			return mac, fmt.Errorf("%w: %s has no link-layer address", models.ErrAddressNotInNeighborTable, parsed.IP)
		}
		mac = entry.MAC
		s.logger.Debug().
			Str("ip", parsed.IP.String()).
			Str("mac", mac.String()).
			Str("state", entry.State).
			Msg("resolved MAC from neighbor table")
	case KindMAC:
		mac = parsed.MAC
	default:
		return mac, fmt.Errorf("%w: %q is neither an IP nor a MAC address", models.ErrInvalidAddressFormat, addr)
	}

	if mac.IsZero() {
		return mac, fmt.Errorf("%w: %q", models.ErrMACAddressUnresolved, addr)
	}

	return mac, nil
}

// ResolveHost returns the IP address of addr. MAC addresses are looked up in
// the neighbor table.
func (s *Impl) ResolveHost(ctx context.Context, addr string) (netip.Addr, error) {
	parsed := Parse(addr)

	switch parsed.Kind {
	case KindIP:
		return parsed.IP, nil
	case KindMAC:
		entries, err := s.table.LookupMAC(ctx, parsed.MAC)
		if err != nil {
			return netip.Addr{}, fmt.Errorf("%w: %s: %w", models.ErrAddressNotInNeighborTable, parsed.MAC, err)
		}
		if len(entries) == 0 {
			return netip.Addr{}, fmt.Errorf("%w: %s", models.ErrAddressNotInNeighborTable, parsed.MAC)
		}
		return entries[0].IP, nil
	default:
		return netip.Addr{}, fmt.Errorf("%w: %q is neither an IP nor a MAC address", models.ErrInvalidAddressFormat, addr)
	}
}
