package models

import (
	"fmt"
	"net"
	"net/netip"
	"strings"
	"time"
)

// WOLConfig holds Wake-on-LAN transmit configuration.
type WOLConfig struct {
	BroadcastIP string
	Port        int
}

// MAC is a 6-byte Ethernet hardware address.
type MAC [6]byte

// ParseMAC parses six hex pairs delimited by ':' or '-', case-insensitively.
func ParseMAC(s string) (MAC, error) {
	var mac MAC
	if !strings.ContainsAny(s, ":-") {
		return mac, fmt.Errorf("invalid MAC address %q", s)
	}
	hw, err := net.ParseMAC(s)
	if err != nil {
		return mac, err
	}
	if len(hw) != len(mac) {
		return mac, fmt.Errorf("invalid MAC address %q: want 6 bytes, got %d", s, len(hw))
	}
	copy(mac[:], hw)
	return mac, nil
}

// String returns the canonical upper-case, colon-delimited form.
func (m MAC) String() string {
	return strings.ToUpper(net.HardwareAddr(m[:]).String())
}

// HardwareAddr returns a copy of m as a net.HardwareAddr.
func (m MAC) HardwareAddr() net.HardwareAddr {
	hw := make(net.HardwareAddr, len(m))
	copy(hw, m[:])
	return hw
}

// IsZero reports whether every byte of m is zero.
func (m MAC) IsZero() bool {
	return m == MAC{}
}

// Neighbor entry states as reported by the kernel.
const (
	NeighborStateIncomplete = "INCOMPLETE"
	NeighborStateReachable  = "REACHABLE"
	NeighborStateStale      = "STALE"
	NeighborStateDelay      = "DELAY"
	NeighborStateProbe      = "PROBE"
	NeighborStateFailed     = "FAILED"
	NeighborStatePermanent  = "PERMANENT"
)

// NeighborEntry is a read-only row of the OS address-resolution table.
type NeighborEntry struct {
	IP     netip.Addr
	MAC    MAC
	State  string
	Device string
}

// Resolved reports whether the entry maps a valid IP to a known MAC.
func (e NeighborEntry) Resolved() bool {
	if !e.IP.IsValid() || e.MAC.IsZero() {
		return false
	}
	switch e.State {
	case NeighborStateIncomplete, NeighborStateFailed:
		return false
	}
	return true
}

// WakeResult holds the outcome of a confirmed wake.
type WakeResult struct {
	Address     string // input as given by the caller
	MAC         MAC
	IP          netip.Addr // confirmed reachable
	PacketBytes int
	ResolveWait time.Duration
	ReachWait   time.Duration
	Duration    time.Duration
}
