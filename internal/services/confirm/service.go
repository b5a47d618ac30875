// Package confirm waits for a woken host to appear in the neighbor table and
// then to answer echo requests.
package confirm

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"time"

	"github.com/fgeck/gowol-homelab/internal/models"
	"github.com/fgeck/gowol-homelab/internal/services/neighbor"
	"github.com/fgeck/gowol-homelab/internal/services/probe"
	"github.com/rs/zerolog"
)

// Defaults for both polling phases.
const (
	DefaultTimeout      = 60 * time.Second
	DefaultPollInterval = time.Second
)

var errDeadline = errors.New("deadline exceeded")

// Service defines the interface for wake confirmation.
type Service interface {
	AwaitResolution(ctx context.Context, mac models.MAC, deadline time.Duration) (netip.Addr, error)
	AwaitReachable(ctx context.Context, ip netip.Addr, deadline time.Duration) error
}

// Impl implements the confirm Service interface.
type Impl struct {
	table    neighbor.Table
	pinger   probe.Pinger
	interval time.Duration
	logger   zerolog.Logger
}

// New creates a new confirmer polling every interval.
func New(logger zerolog.Logger, table neighbor.Table, pinger probe.Pinger, interval time.Duration) *Impl {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Impl{
		table:    table,
		pinger:   pinger,
		interval: interval,
		logger:   logger,
	}
}

// AwaitResolution polls the neighbor table until mac maps to an IP address.
func (s *Impl) AwaitResolution(ctx context.Context, mac models.MAC, deadline time.Duration) (netip.Addr, error) {
	var ip netip.Addr

	s.logger.Info().
		Str("mac", mac.String()).
		Dur("timeout", deadline).
		Msg("waiting for address resolution")

	err := s.poll(ctx, "resolution", deadline, func(ctx context.Context) (bool, error) {
		entries, err := s.table.LookupMAC(ctx, mac)
		if err != nil {
			return false, err
		}
		for _, e := range entries {
			if e.Resolved() {
				ip = e.IP
				return true, nil
			}
		}
		return false, neighbor.ErrNotFound
	})
	if errors.Is(err, errDeadline) {
		return netip.Addr{}, fmt.Errorf("%w: no neighbor entry for %s after %s", models.ErrResolutionTimeout, mac, deadline)
	}
	if err != nil {
		return netip.Addr{}, err
	}

	s.logger.Info().
		Str("mac", mac.String()).
		Str("ip", ip.String()).
		Msg("address resolved")

	return ip, nil
}

// AwaitReachable polls ip with echo requests until one is answered.
func (s *Impl) AwaitReachable(ctx context.Context, ip netip.Addr, deadline time.Duration) error {
	s.logger.Info().
		Str("ip", ip.String()).
		Dur("timeout", deadline).
		Msg("waiting for host to become reachable")

	err := s.poll(ctx, "reachability", deadline, func(ctx context.Context) (bool, error) {
		rtt, err := s.pinger.Ping(ctx, ip)
		if err != nil {
			return false, err
		}
		s.logger.Info().
			Str("ip", ip.String()).
			Dur("rtt", rtt).
			Msg("host is reachable")
		return true, nil
	})
	if errors.Is(err, errDeadline) {
		return fmt.Errorf("%w: %s did not answer after %s", models.ErrReachabilityTimeout, ip, deadline)
	}
	return err
}

// poll calls check until it succeeds or deadline has elapsed. It never gives
// up before deadline, and each check is bounded by the time remaining.
func (s *Impl) poll(ctx context.Context, phase string, deadline time.Duration, check func(ctx context.Context) (bool, error)) error {
	start := time.Now()

	for attempt := 1; ; attempt++ {
		elapsed := time.Since(start)
		if elapsed >= deadline {
			return errDeadline
		}

		probeCtx, cancel := context.WithTimeout(ctx, deadline-elapsed)
		ok, err := check(probeCtx)
		cancel()
		if ok {
			return nil
		}

		elapsed = time.Since(start)
		remaining := deadline - elapsed
		s.logger.Debug().
			Err(err).
			Str("phase", phase).
			Int("attempt", attempt).
			Dur("elapsed", elapsed).
			Dur("remaining", remaining).
			Float64("progress", min(float64(elapsed)/float64(deadline), 1)).
			Msg("not ready yet")

		wait := min(s.interval, max(remaining, 0))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}
