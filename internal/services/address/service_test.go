package address

import (
	"context"
	"errors"
	"io"
	"net/netip"
	"strings"
	"testing"

	"github.com/fgeck/gowol-homelab/internal/models"
	"github.com/fgeck/gowol-homelab/internal/services/neighbor"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockTable struct {
	lookupIPFunc  func(ctx context.Context, ip netip.Addr) (models.NeighborEntry, error)
	lookupMACFunc func(ctx context.Context, mac models.MAC) ([]models.NeighborEntry, error)
	calls         int
}

func (m *mockTable) LookupIP(ctx context.Context, ip netip.Addr) (models.NeighborEntry, error) {
	m.calls++
	if m.lookupIPFunc != nil {
		return m.lookupIPFunc(ctx, ip)
	}
	return models.NeighborEntry{}, neighbor.ErrNotFound
}

func (m *mockTable) LookupMAC(ctx context.Context, mac models.MAC) ([]models.NeighborEntry, error) {
	m.calls++
	if m.lookupMACFunc != nil {
		return m.lookupMACFunc(ctx, mac)
	}
	return nil, neighbor.ErrNotFound
}

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func mustMAC(t *testing.T, s string) models.MAC {
	t.Helper()
	mac, err := models.ParseMAC(s)
	require.NoError(t, err)
	return mac
}

func TestParse(t *testing.T) {
	tests := []struct {
		addr string
		want Kind
	}{
		{"192.168.1.1", KindIP},
		{"1.2.3.4", KindIP},
		{"fe80::1:2", KindIP},
		{"00-50-56-C0-00-01", KindMAC},
		{"aa:bb:cc:dd:ee:ff", KindMAC},
		{"aa:bb-cc:dd:ee:ff", KindInvalid},
		{"0050.56c0.0001", KindInvalid},
		{"not-an-address", KindInvalid},
		{"999.1.1.1", KindInvalid},
		{"", KindInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.addr).Kind)
		})
	}
}

func TestParse_LengthBounds(t *testing.T) {
	// Valid literals outside 7..17 characters are rejected before parsing.
	assert.Equal(t, KindInvalid, Parse("::ffff").Kind)                   // 6
	assert.Equal(t, KindInvalid, Parse("AA-BB-CC-DD-EE-FF0").Kind)       // 18
	assert.Equal(t, KindInvalid, Parse("2001:db8::1234:5678").Kind)      // 19
	assert.Equal(t, KindIP, Parse("::ffff:1").Kind)                      // 8
	assert.Equal(t, KindMAC, Parse(strings.Repeat("ab:", 5)+"ab").Kind) // 17
}

func TestResolve_MACLiteral_NoTableQuery(t *testing.T) {
	table := &mockTable{}
	svc := New(testLogger(), table)

	mac, err := svc.Resolve(context.Background(), "00-50-56-C0-00-01")

	require.NoError(t, err)
	assert.Equal(t, "00:50:56:C0:00:01", mac.String())
	assert.Zero(t, table.calls)
}

func TestResolve_IPInNeighborTable(t *testing.T) {
	var capturedIP netip.Addr
	table := &mockTable{
		lookupIPFunc: func(ctx context.Context, ip netip.Addr) (models.NeighborEntry, error) {
			capturedIP = ip
			return models.NeighborEntry{
				IP:    ip,
				MAC:   mustMAC(t, "AA-BB-CC-DD-EE-FF"),
				State: models.NeighborStateReachable,
			}, nil
		},
	}
	svc := New(testLogger(), table)

	mac, err := svc.Resolve(context.Background(), "192.168.1.1")

	require.NoError(t, err)
	assert.Equal(t, mustMAC(t, "AA:BB:CC:DD:EE:FF"), mac)
	assert.Equal(t, netip.MustParseAddr("192.168.1.1"), capturedIP)
	assert.Equal(t, 1, table.calls)
}

func TestResolve_IPNotInNeighborTable(t *testing.T) {
	svc := New(testLogger(), &mockTable{})

	_, err := svc.Resolve(context.Background(), "192.168.1.1")

	assert.ErrorIs(t, err, models.ErrAddressNotInNeighborTable)
}

func TestResolve_TableErrorIsNotInNeighborTable(t *testing.T) {
	table := &mockTable{
		lookupIPFunc: func(ctx context.Context, ip netip.Addr) (models.NeighborEntry, error) {
			return models.NeighborEntry{}, errors.New("failed to list neighbors")
		},
	}
	svc := New(testLogger(), table)

	_, err := svc.Resolve(context.Background(), "10.0.0.5")

	assert.ErrorIs(t, err, models.ErrAddressNotInNeighborTable)
}

func TestResolve_EntryWithoutMAC(t *testing.T) {
	table := &mockTable{
		lookupIPFunc: func(ctx context.Context, ip netip.Addr) (models.NeighborEntry, error) {
			return models.NeighborEntry{IP: ip}, nil
		},
	}
	svc := New(testLogger(), table)

	_, err := svc.Resolve(context.Background(), "10.0.0.5")

	assert.ErrorIs(t, err, models.ErrAddressNotInNeighborTable)
}

func TestResolve_InvalidFormat(t *testing.T) {
	inputs := []string{
		"hello-world",
		"192.168.1",
		"GG:HH:II:JJ:KK:LL",
		"12345",                // too short
		"AA-BB-CC-DD-EE-FF-00", // too long
		"AA-BB-CC-DD-EE-F",
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			table := &mockTable{}
			svc := New(testLogger(), table)

			_, err := svc.Resolve(context.Background(), in)

			assert.ErrorIs(t, err, models.ErrInvalidAddressFormat)
			assert.Zero(t, table.calls)
		})
	}
}

func TestResolve_ZeroMAC(t *testing.T) {
	svc := New(testLogger(), &mockTable{})

	_, err := svc.Resolve(context.Background(), "00:00:00:00:00:00")

	assert.ErrorIs(t, err, models.ErrMACAddressUnresolved)
}

func TestResolveHost_IP(t *testing.T) {
	table := &mockTable{}
	svc := New(testLogger(), table)

	ip, err := svc.ResolveHost(context.Background(), "10.0.0.5")

	require.NoError(t, err)
	assert.Equal(t, netip.MustParseAddr("10.0.0.5"), ip)
	assert.Zero(t, table.calls)
}

func TestResolveHost_MAC(t *testing.T) {
	table := &mockTable{
		lookupMACFunc: func(ctx context.Context, mac models.MAC) ([]models.NeighborEntry, error) {
			return []models.NeighborEntry{{IP: netip.MustParseAddr("10.0.0.5"), MAC: mac}}, nil
		},
	}
	svc := New(testLogger(), table)

	ip, err := svc.ResolveHost(context.Background(), "00:50:56:c0:00:01")

	require.NoError(t, err)
	assert.Equal(t, netip.MustParseAddr("10.0.0.5"), ip)
}

func TestResolveHost_MACNotInNeighborTable(t *testing.T) {
	svc := New(testLogger(), &mockTable{})

	_, err := svc.ResolveHost(context.Background(), "00:50:56:c0:00:01")

	assert.ErrorIs(t, err, models.ErrAddressNotInNeighborTable)
}
