package neighbor

import (
	"bufio"
	"context"
	"fmt"
	"net/netip"
	"strconv"
	"strings"

	"github.com/fgeck/gowol-homelab/internal/models"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// DefaultProcPath is the kernel's IPv4 ARP table.
const DefaultProcPath = "/proc/net/arp"

// ARP flags from /proc/net/arp.
const (
	atfCom  = 0x02 // completed entry
	atfPerm = 0x04 // permanent entry
)

// ProcTable reads IPv4 neighbors from /proc/net/arp.
type ProcTable struct {
	fs     afero.Fs
	path   string
	logger zerolog.Logger
}

// NewProcTable creates a table backed by the host filesystem.
func NewProcTable(logger zerolog.Logger, path string) *ProcTable {
	return NewProcTableWithFs(logger, afero.NewOsFs(), path)
}

// NewProcTableWithFs creates a table reading from fs (for testing).
func NewProcTableWithFs(logger zerolog.Logger, fs afero.Fs, path string) *ProcTable {
	if path == "" {
		path = DefaultProcPath
	}
	return &ProcTable{
		fs:     fs,
		path:   path,
		logger: logger,
	}
}

// LookupIP returns the resolved entry for ip.
func (t *ProcTable) LookupIP(_ context.Context, ip netip.Addr) (models.NeighborEntry, error) {
	entries, err := t.read()
	if err != nil {
		return models.NeighborEntry{}, err
	}
	return lookupIP(entries, ip)
}

// LookupMAC returns every resolved entry for mac.
func (t *ProcTable) LookupMAC(_ context.Context, mac models.MAC) ([]models.NeighborEntry, error) {
	entries, err := t.read()
	if err != nil {
		return nil, err
	}
	matches := lookupMAC(entries, mac)
	if len(matches) == 0 {
		return nil, ErrNotFound
	}
	return matches, nil
}

func (t *ProcTable) read() ([]models.NeighborEntry, error) {
	f, err := t.fs.Open(t.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", t.path, err)
	}
	defer func() { _ = f.Close() }()

	var entries []models.NeighborEntry
	scanner := bufio.NewScanner(f)
	// IP address       HW type     Flags       HW address            Mask     Device
	scanner.Scan()
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 6 {
			continue
		}
		ip, err := netip.ParseAddr(fields[0])
		if err != nil {
			continue
		}
		mac, err := models.ParseMAC(fields[3])
		if err != nil {
			t.logger.Debug().Str("hw_address", fields[3]).Msg("skipping ARP entry with invalid hardware address")
			continue
		}
		entries = append(entries, newEntry(ip, mac, procState(fields[2]), fields[5]))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", t.path, err)
	}
	return entries, nil
}

func procState(flags string) string {
	v, err := strconv.ParseUint(strings.TrimPrefix(flags, "0x"), 16, 32)
	if err != nil {
		return ""
	}
	switch {
	case v&atfPerm != 0:
		return models.NeighborStatePermanent
	case v&atfCom != 0:
		return models.NeighborStateReachable
	default:
		return models.NeighborStateIncomplete
	}
}
