package neighbor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/netip"

	"github.com/fgeck/gowol-homelab/internal/models"
	"github.com/rs/zerolog"
)

// neighJSON is the JSON structure returned by ip -json neigh show.
type neighJSON struct {
	Dst    string   `json:"dst"`
	Dev    string   `json:"dev"`
	LLAddr string   `json:"lladdr"`
	State  []string `json:"state"`
}

// IPRouteTable reads neighbors through iproute2.
type IPRouteTable struct {
	executor CommandExecutor
	logger   zerolog.Logger
}

// NewIPRouteTable creates a table backed by the ip command.
func NewIPRouteTable(logger zerolog.Logger) *IPRouteTable {
	return &IPRouteTable{
		executor: &DefaultExecutor{},
		logger:   logger,
	}
}

// NewIPRouteTableWithExecutor creates a table with a custom executor (for testing).
func NewIPRouteTableWithExecutor(logger zerolog.Logger, executor CommandExecutor) *IPRouteTable {
	return &IPRouteTable{
		executor: executor,
		logger:   logger,
	}
}

// LookupIP returns the resolved entry for ip.
func (t *IPRouteTable) LookupIP(ctx context.Context, ip netip.Addr) (models.NeighborEntry, error) {
	entries, err := t.list(ctx, "to", ip.WithZone("").String())
	if err != nil {
		return models.NeighborEntry{}, err
	}
	return lookupIP(entries, ip)
}

// LookupMAC returns every resolved entry for mac.
func (t *IPRouteTable) LookupMAC(ctx context.Context, mac models.MAC) ([]models.NeighborEntry, error) {
	entries, err := t.list(ctx)
	if err != nil {
		return nil, err
	}
	matches := lookupMAC(entries, mac)
	if len(matches) == 0 {
		return nil, ErrNotFound
	}
	return matches, nil
}

func (t *IPRouteTable) list(ctx context.Context, filter ...string) ([]models.NeighborEntry, error) {
	args := append([]string{"-json", "neigh", "show"}, filter...)
	output, err := t.executor.Execute(ctx, "ip", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list neighbors: %w", err)
	}
	return t.parse(output)
}

func (t *IPRouteTable) parse(output []byte) ([]models.NeighborEntry, error) {
	if len(bytes.TrimSpace(output)) == 0 {
		return nil, nil
	}

	var raw []neighJSON
	if err := json.Unmarshal(output, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse neighbor output: %w", err)
	}

	entries := make([]models.NeighborEntry, 0, len(raw))
	for _, n := range raw {
		ip, err := netip.ParseAddr(n.Dst)
		if err != nil {
			t.logger.Debug().Str("dst", n.Dst).Msg("skipping neighbor with invalid address")
			continue
		}
		if n.LLAddr == "" {
			continue
		}
		mac, err := models.ParseMAC(n.LLAddr)
		if err != nil {
			t.logger.Debug().Str("lladdr", n.LLAddr).Msg("skipping neighbor with invalid link-layer address")
			continue
		}
		state := ""
		if len(n.State) > 0 {
			state = n.State[0]
		}
		entries = append(entries, newEntry(ip, mac, state, n.Dev))
	}
	return entries, nil
}
