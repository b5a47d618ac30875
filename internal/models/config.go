// Package models contains the data structures used throughout gowol-homelab.
package models

import "time"

// Neighbor table sources.
const (
	NeighborSourceIP   = "ip"   // `ip -json neigh show`
	NeighborSourceProc = "proc" // /proc/net/arp
)

// Config holds the complete configuration for a wake or shutdown run.
type Config struct {
	WOL         WOLConfig
	Confirm     ConfirmSettings
	Neighbor    NeighborSettings
	Probe       ProbeSettings
	SSHShutdown *SSHShutdownConfig // nil if not configured
	Telegram    *TelegramConfig    // nil if not configured
}

// ConfirmSettings bounds the two polling phases after the packet is sent.
type ConfirmSettings struct {
	ResolveTimeout time.Duration // max wait for the neighbor table to learn the target
	ReachTimeout   time.Duration // max wait for the target to answer echo requests
	PollInterval   time.Duration
}

// NeighborSettings selects where neighbor entries are read from.
type NeighborSettings struct {
	Source   string // "ip" (default) or "proc"
	ProcPath string // used when Source is "proc"
}

// ProbeSettings configures the ICMP echo probe.
type ProbeSettings struct {
	Privileged bool          // raw ICMP sockets instead of unprivileged datagram sockets
	Timeout    time.Duration // per-probe reply timeout
}
