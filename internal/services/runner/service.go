// Package runner orchestrates the wake and shutdown workflows.
package runner

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/netip"
	"os"
	"time"

	"github.com/fgeck/gowol-homelab/internal/models"
	"github.com/fgeck/gowol-homelab/internal/services/address"
	"github.com/fgeck/gowol-homelab/internal/services/confirm"
	"github.com/fgeck/gowol-homelab/internal/services/neighbor"
	"github.com/fgeck/gowol-homelab/internal/services/probe"
	"github.com/fgeck/gowol-homelab/internal/services/ssh"
	"github.com/fgeck/gowol-homelab/internal/services/telegram"
	"github.com/fgeck/gowol-homelab/internal/services/wol"
	"github.com/rs/zerolog"
)

// Workflow steps, reported in notifications.
const (
	StepResolve      = "resolve"
	StepSend         = "send"
	StepResolution   = "resolution"
	StepReachability = "reachability"
)

// Service defines the interface for the wake runner.
type Service interface {
	Wake(ctx context.Context, addr string) (*models.WakeResult, error)
	Shutdown(ctx context.Context, addr string, checkOnly bool) error
}

// Impl implements the runner Service interface.
type Impl struct {
	cfg         models.Config
	resolver    address.Service
	broadcaster wol.Broadcaster
	confirmer   confirm.Service
	sshSvc      ssh.Service
	telegramSvc telegram.Service
	logger      zerolog.Logger
}

// NewTable returns the neighbor table selected by cfg.
func NewTable(logger zerolog.Logger, cfg models.NeighborSettings) neighbor.Table {
	if cfg.Source == models.NeighborSourceProc {
		return neighbor.NewProcTable(logger, cfg.ProcPath)
	}
	return neighbor.NewIPRouteTable(logger)
}

// New creates a new runner service.
func New(logger zerolog.Logger, cfg models.Config) *Impl {
	table := NewTable(logger, cfg.Neighbor)
	pinger := probe.NewICMPPinger(logger, cfg.Probe)

	return &Impl{
		cfg:         cfg,
		resolver:    address.New(logger, table),
		broadcaster: wol.NewUDPBroadcaster(logger, cfg.WOL),
		confirmer:   confirm.New(logger, table, pinger, cfg.Confirm.PollInterval),
		sshSvc:      ssh.New(logger),
		telegramSvc: telegram.New(logger),
		logger:      logger,
	}
}

// NewWithServices creates a new runner service with custom services (for testing).
func NewWithServices(
	logger zerolog.Logger,
	cfg models.Config,
	resolver address.Service,
	broadcaster wol.Broadcaster,
	confirmer confirm.Service,
	sshSvc ssh.Service,
	telegramSvc telegram.Service,
) *Impl {
	return &Impl{
		cfg:         cfg,
		resolver:    resolver,
		broadcaster: broadcaster,
		confirmer:   confirmer,
		sshSvc:      sshSvc,
		telegramSvc: telegramSvc,
		logger:      logger,
	}
}

// Wake resolves addr to a MAC address, broadcasts a magic packet and waits
// until the target is both resolvable and reachable. It returns either a
// confirmed result or the error of the first failing step, never both.
func (s *Impl) Wake(ctx context.Context, addr string) (*models.WakeResult, error) {
	startTime := time.Now()
	result := &models.WakeResult{Address: addr}
	var failedStep string
	var runErr error

	defer func() {
		if s.cfg.Telegram != nil {
			s.sendNotification(ctx, result, startTime, failedStep, runErr)
		}
	}()

	// Step 1: Resolve MAC address
	failedStep = StepResolve
	mac, err := s.resolver.Resolve(ctx, addr)
	if err != nil {
		runErr = err
		return nil, err
	}
	result.MAC = mac

	// Step 2: Build and send magic packet
	failedStep = StepSend
	packet := wol.Build(mac)
	if e := s.logger.Debug(); e.Enabled() {
		e.Str("mac", mac.String()).Msg("magic packet:\n" + hex.Dump(packet))
	}

	s.logger.Info().
		Str("address", addr).
		Str("mac", mac.String()).
		Msg("sending Wake-on-LAN packet")

	n, err := s.broadcaster.Send(ctx, packet)
	if err != nil {
		runErr = err
		return nil, err
	}
	result.PacketBytes = n

	// Step 3: Wait for the neighbor table to learn the target
	failedStep = StepResolution
	phaseStart := time.Now()
	ip, err := s.confirmer.AwaitResolution(ctx, mac, s.cfg.Confirm.ResolveTimeout)
	if err != nil {
		runErr = err
		return nil, err
	}
	result.ResolveWait = time.Since(phaseStart)

	// Step 4: Wait for the target to answer echo requests
	failedStep = StepReachability
	phaseStart = time.Now()
	if err := s.confirmer.AwaitReachable(ctx, ip, s.cfg.Confirm.ReachTimeout); err != nil {
		runErr = err
		return nil, err
	}
	result.ReachWait = time.Since(phaseStart)
	result.IP = ip

	// Success - clear failedStep
	failedStep = ""
	result.Duration = time.Since(startTime)

	s.logger.Info().
		Str("mac", mac.String()).
		Str("ip", ip.String()).
		Int("packet_bytes", result.PacketBytes).
		Dur("resolve_wait", result.ResolveWait).
		Dur("reach_wait", result.ReachWait).
		Msg("target is awake")

	return result, nil
}

// Shutdown resolves addr to a host IP and shuts it down over SSH. With
// checkOnly set it only verifies the SSH connection.
func (s *Impl) Shutdown(ctx context.Context, addr string, checkOnly bool) error {
	if s.cfg.SSHShutdown == nil {
		return fmt.Errorf("ssh_shutdown is not configured")
	}

	ip, err := s.resolver.ResolveHost(ctx, addr)
	if err != nil {
		return err
	}

	cfg := *s.cfg.SSHShutdown
	cfg.Host = ip.String()

	// Load private key if needed
	if cfg.PrivateKey == nil && cfg.KeyPath != "" {
		key, err := os.ReadFile(cfg.KeyPath)
		if err != nil {
			return fmt.Errorf("failed to read SSH key: %w", err)
		}
		cfg.PrivateKey = key
	}

	if checkOnly {
		result, err := s.sshSvc.TestConnection(ctx, cfg)
		if err != nil {
			return fmt.Errorf("SSH check failed: %w", err)
		}
		if result.Error != nil {
			return fmt.Errorf("SSH check failed: %w", result.Error)
		}
		s.logger.Info().Str("host", cfg.Host).Msg("SSH connection OK")
		return nil
	}

	result, err := s.sshSvc.Shutdown(ctx, cfg)
	if err != nil {
		return fmt.Errorf("SSH shutdown failed: %w", err)
	}
	if result.Error != nil {
		// The connection may drop once the command is running.
		if !result.CommandRun {
			return fmt.Errorf("SSH shutdown failed: %w", result.Error)
		}
		s.logger.Warn().
			Err(result.Error).
			Str("output", result.Output).
			Msg("shutdown command returned error (may be expected)")
	}

	s.logger.Info().
		Str("address", addr).
		Str("host", cfg.Host).
		Bool("command_run", result.CommandRun).
		Msg("SSH shutdown command sent")

	return nil
}

func (s *Impl) sendNotification(
	ctx context.Context,
	result *models.WakeResult,
	startTime time.Time,
	failedStep string,
	runErr error,
) {
	msg := models.TelegramMessage{
		Success:   runErr == nil,
		Address:   result.Address,
		StartTime: startTime,
		Duration:  time.Since(startTime),
	}

	if runErr != nil {
		msg.FailedStep = failedStep
		msg.ErrorMessage = runErr.Error()
	} else {
		msg.MAC = result.MAC.String()
		msg.IP = ipString(result.IP)
		msg.ResolveWait = result.ResolveWait
		msg.ReachWait = result.ReachWait
	}

	sent, err := s.telegramSvc.SendNotification(ctx, *s.cfg.Telegram, msg)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to send Telegram notification")
		return
	}
	if sent.Error != nil {
		s.logger.Error().Err(sent.Error).Msg("failed to send Telegram notification")
		return
	}

	s.logger.Info().Msg("Telegram notification sent")
}

func ipString(ip netip.Addr) string {
	if !ip.IsValid() {
		return ""
	}
	return ip.String()
}
