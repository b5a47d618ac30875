package main

import (
	"fmt"
	"os"

	"github.com/fgeck/gowol-homelab/internal/config"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long:  `Validate the configuration without sending any packets.`,
	RunE:  validateConfig,
}

func validateConfig(cmd *cobra.Command, args []string) error {
	// Check if file exists
	if configFile != "" {
		if _, err := os.Stat(configFile); os.IsNotExist(err) {
			log.Error().Str("file", configFile).Msg("config file not found")
			return fmt.Errorf("config file not found: %s", configFile)
		}
	}

	cfg, err := loadConfig(config.NewParser())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	// Print configuration summary
	fmt.Fprintln(out, "Configuration is valid!")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Wake-on-LAN:")
	fmt.Fprintf(out, "  Broadcast: %s:%d\n", cfg.WOL.BroadcastIP, cfg.WOL.Port)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Confirmation:")
	fmt.Fprintf(out, "  Resolve timeout: %s\n", cfg.Confirm.ResolveTimeout)
	fmt.Fprintf(out, "  Reach timeout: %s\n", cfg.Confirm.ReachTimeout)
	fmt.Fprintf(out, "  Poll interval: %s\n", cfg.Confirm.PollInterval)
	fmt.Fprintf(out, "  Neighbor source: %s\n", cfg.Neighbor.Source)
	fmt.Fprintf(out, "  Privileged ICMP: %v\n", cfg.Probe.Privileged)
	fmt.Fprintf(out, "  Probe timeout: %s\n", cfg.Probe.Timeout)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Optional Features:")
	fmt.Fprintf(out, "  SSH Shutdown: %v\n", cfg.SSHShutdown != nil)
	fmt.Fprintf(out, "  Telegram: %v\n", cfg.Telegram != nil)

	if cfg.SSHShutdown != nil {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "SSH Shutdown Configuration:")
		fmt.Fprintf(out, "  Port: %d\n", cfg.SSHShutdown.Port)
		fmt.Fprintf(out, "  Username: %s\n", cfg.SSHShutdown.Username)
		fmt.Fprintf(out, "  OS: %s\n", cfg.SSHShutdown.OS)
		fmt.Fprintf(out, "  Shutdown Delay: %d minute(s)\n", cfg.SSHShutdown.ShutdownDelay)
	}

	if cfg.Telegram != nil {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Telegram Configuration:")
		fmt.Fprintf(out, "  Chat ID: %s\n", cfg.Telegram.ChatID)
		fmt.Fprintf(out, "  Bot Token: (configured)\n")
	}

	return nil
}
