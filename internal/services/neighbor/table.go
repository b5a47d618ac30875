// Package neighbor reads the OS neighbor (ARP/NDP) table.
package neighbor

import (
	"context"
	"errors"
	"net/netip"
	"os/exec"
	"strings"

	"github.com/fgeck/gowol-homelab/internal/models"
)

// ErrNotFound is returned when no resolved entry matches the query.
var ErrNotFound = errors.New("no neighbor entry")

// Table is a read-only view of the neighbor table.
type Table interface {
	LookupIP(ctx context.Context, ip netip.Addr) (models.NeighborEntry, error)
	LookupMAC(ctx context.Context, mac models.MAC) ([]models.NeighborEntry, error)
}

// CommandExecutor allows mocking exec.Command in tests.
type CommandExecutor interface {
	Execute(ctx context.Context, name string, args ...string) ([]byte, error)
}

// DefaultExecutor is the default command executor using os/exec.
type DefaultExecutor struct{}

// Execute runs a command and returns its standard output.
func (e *DefaultExecutor) Execute(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.Output()
}

// lookupIP returns the first resolved entry for ip.
func lookupIP(entries []models.NeighborEntry, ip netip.Addr) (models.NeighborEntry, error) {
	want := ip.Unmap().WithZone("")
	for _, e := range entries {
		if e.IP.Unmap().WithZone("") == want && e.Resolved() {
			return e, nil
		}
	}
	return models.NeighborEntry{}, ErrNotFound
}

// lookupMAC returns all resolved entries for mac, IPv4 first.
func lookupMAC(entries []models.NeighborEntry, mac models.MAC) []models.NeighborEntry {
	var v4, v6 []models.NeighborEntry
	for _, e := range entries {
		if e.MAC != mac || !e.Resolved() {
			continue
		}
		if e.IP.Unmap().Is4() {
			v4 = append(v4, e)
		} else {
			v6 = append(v6, e)
		}
	}
	return append(v4, v6...)
}

// newEntry builds an entry, scoping IPv6 link-local addresses to their device.
func newEntry(ip netip.Addr, mac models.MAC, state, dev string) models.NeighborEntry {
	if ip.Is6() && ip.IsLinkLocalUnicast() && dev != "" && ip.Zone() == "" {
		ip = ip.WithZone(dev)
	}
	return models.NeighborEntry{
		IP:     ip,
		MAC:    mac,
		State:  strings.ToUpper(state),
		Device: dev,
	}
}
