// Package config provides configuration file parsing.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fgeck/gowol-homelab/internal/models"
	"github.com/spf13/viper"
)

// Defaults applied when a key is not set.
const (
	DefaultBroadcastIP    = "255.255.255.255"
	DefaultPort           = 9
	DefaultResolveTimeout = 60 * time.Second
	DefaultReachTimeout   = 60 * time.Second
	DefaultPollInterval   = time.Second
	DefaultProbeTimeout   = time.Second
	DefaultProcPath       = "/proc/net/arp"
)

// Parser handles configuration file parsing.
type Parser struct {
	v *viper.Viper
}

// NewParser creates a new configuration parser.
func NewParser() *Parser {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetDefault("wol.broadcast_ip", DefaultBroadcastIP)
	v.SetDefault("wol.port", DefaultPort)
	v.SetDefault("confirm.resolve_timeout", DefaultResolveTimeout)
	v.SetDefault("confirm.reach_timeout", DefaultReachTimeout)
	v.SetDefault("confirm.poll_interval", DefaultPollInterval)
	v.SetDefault("neighbor.source", models.NeighborSourceIP)
	v.SetDefault("neighbor.proc_path", DefaultProcPath)
	v.SetDefault("probe.privileged", false)
	v.SetDefault("probe.timeout", DefaultProbeTimeout)
	return &Parser{v: v}
}

// Viper exposes the underlying viper instance so flags can be bound to keys.
func (p *Parser) Viper() *viper.Viper {
	return p.v
}

// LoadDefaults builds a configuration from defaults and bound flags only.
func (p *Parser) LoadDefaults() (*models.Config, error) {
	return p.parse()
}

// LoadFile loads configuration from a file path.
func (p *Parser) LoadFile(path string) (*models.Config, error) {
	p.v.SetConfigFile(path)

	if err := p.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return p.parse()
}

// LoadReader loads configuration from a reader (useful for testing).
func (p *Parser) LoadReader(content string) (*models.Config, error) {
	if err := p.v.ReadConfig(strings.NewReader(content)); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return p.parse()
}

//nolint:gocognit // parsing config requires checking many fields
func (p *Parser) parse() (*models.Config, error) {
	cfg := &models.Config{
		WOL: models.WOLConfig{
			BroadcastIP: p.v.GetString("wol.broadcast_ip"),
			Port:        p.v.GetInt("wol.port"),
		},
		Confirm: models.ConfirmSettings{
			ResolveTimeout: p.v.GetDuration("confirm.resolve_timeout"),
			ReachTimeout:   p.v.GetDuration("confirm.reach_timeout"),
			PollInterval:   p.v.GetDuration("confirm.poll_interval"),
		},
		Neighbor: models.NeighborSettings{
			Source:   strings.ToLower(p.v.GetString("neighbor.source")),
			ProcPath: p.v.GetString("neighbor.proc_path"),
		},
		Probe: models.ProbeSettings{
			Privileged: p.v.GetBool("probe.privileged"),
			Timeout:    p.v.GetDuration("probe.timeout"),
		},
	}

	// Parse optional SSH shutdown config.
	if p.v.IsSet("ssh_shutdown") { //nolint:nestif // config parsing with defaults
		cfg.SSHShutdown = &models.SSHShutdownConfig{
			Port:          p.v.GetInt("ssh_shutdown.port"),
			Username:      p.v.GetString("ssh_shutdown.username"),
			KeyPath:       p.expandEnv(p.v.GetString("ssh_shutdown.key_path")),
			ShutdownDelay: p.v.GetInt("ssh_shutdown.shutdown_delay"),
			OS:            p.v.GetString("ssh_shutdown.os"),
		}

		if cfg.SSHShutdown.Port == 0 {
			cfg.SSHShutdown.Port = 22
		}
		if cfg.SSHShutdown.Username == "" {
			cfg.SSHShutdown.Username = "root"
		}
		if cfg.SSHShutdown.KeyPath == "" {
			return nil, fmt.Errorf("ssh_shutdown.key_path is required when ssh_shutdown is configured")
		}
		if cfg.SSHShutdown.ShutdownDelay == 0 {
			cfg.SSHShutdown.ShutdownDelay = 1
		}
		if cfg.SSHShutdown.OS == "" {
			cfg.SSHShutdown.OS = "linux"
		}
		validOS := map[string]bool{"linux": true, "windows": true}
		if !validOS[cfg.SSHShutdown.OS] {
			return nil, fmt.Errorf("ssh_shutdown.os must be one of: linux, windows")
		}
	}

	// Parse optional Telegram config.
	if p.v.IsSet("telegram") {
		cfg.Telegram = &models.TelegramConfig{
			BotToken: p.expandEnv(p.v.GetString("telegram.bot_token")),
			ChatID:   p.expandEnv(p.v.GetString("telegram.chat_id")),
		}

		if cfg.Telegram.BotToken == "" {
			return nil, fmt.Errorf("telegram.bot_token is required when telegram is configured")
		}
		if cfg.Telegram.ChatID == "" {
			return nil, fmt.Errorf("telegram.chat_id is required when telegram is configured")
		}
	}

	return cfg, nil
}

// expandEnv expands environment variables in the format ${VAR} or $VAR.
func (p *Parser) expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Validate performs validation on the loaded configuration.
func Validate(cfg *models.Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	if cfg.WOL.BroadcastIP == "" {
		return fmt.Errorf("wol.broadcast_ip is required")
	}
	if cfg.WOL.Port < 1 || cfg.WOL.Port > 65535 {
		return fmt.Errorf("wol.port must be between 1 and 65535")
	}

	if cfg.Confirm.ResolveTimeout <= 0 {
		return fmt.Errorf("confirm.resolve_timeout must be positive")
	}
	if cfg.Confirm.ReachTimeout <= 0 {
		return fmt.Errorf("confirm.reach_timeout must be positive")
	}
	if cfg.Confirm.PollInterval <= 0 {
		return fmt.Errorf("confirm.poll_interval must be positive")
	}

	switch cfg.Neighbor.Source {
	case models.NeighborSourceIP:
	case models.NeighborSourceProc:
		if cfg.Neighbor.ProcPath == "" {
			return fmt.Errorf("neighbor.proc_path is required when neighbor.source is proc")
		}
	default:
		return fmt.Errorf("neighbor.source must be one of: ip, proc")
	}

	if cfg.Probe.Timeout <= 0 {
		return fmt.Errorf("probe.timeout must be positive")
	}

	return nil
}
