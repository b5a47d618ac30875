package main

import (
	"fmt"
	"time"

	"github.com/fgeck/gowol-homelab/internal/config"
	"github.com/fgeck/gowol-homelab/internal/services/runner"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var wakeCmd = &cobra.Command{
	Use:   "wake <address>",
	Short: "Wake a machine and wait until it is reachable",
	Long: `Wake a machine identified by an IPv4/IPv6 address or a MAC address:
1. Resolve the MAC address (IP addresses are looked up in the neighbor table)
2. Broadcast the magic packet
3. Wait until the neighbor table maps the MAC to an IP
4. Wait until the IP answers ICMP echo requests
5. Send Telegram notification (if configured)

On success the confirmed IP address is printed to stdout.`,
	Example: `  gowol-homelab wake 00-50-56-C0-00-01
  gowol-homelab wake 192.168.1.20 --reach-timeout 2m`,
	Args: cobra.ExactArgs(1),
	RunE: runWake,
}

func init() {
	wakeCmd.Flags().Duration("resolve-timeout", config.DefaultResolveTimeout, "max wait for the neighbor table to learn the target")
	wakeCmd.Flags().Duration("reach-timeout", config.DefaultReachTimeout, "max wait for the target to answer echo requests")
	wakeCmd.Flags().Duration("poll-interval", config.DefaultPollInterval, "delay between confirmation attempts")
}

func runWake(cmd *cobra.Command, args []string) error {
	parser := config.NewParser()
	v := parser.Viper()
	for key, flag := range map[string]string{
		"confirm.resolve_timeout": "resolve-timeout",
		"confirm.reach_timeout":   "reach-timeout",
		"confirm.poll_interval":   "poll-interval",
	} {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return err
		}
	}

	cfg, err := loadConfig(parser)
	if err != nil {
		return err
	}

	log.Debug().
		Str("broadcast", cfg.WOL.BroadcastIP).
		Int("port", cfg.WOL.Port).
		Str("neighbor_source", cfg.Neighbor.Source).
		Dur("resolve_timeout", cfg.Confirm.ResolveTimeout).
		Dur("reach_timeout", cfg.Confirm.ReachTimeout).
		Msg("configuration loaded")

	ctx, cancel := signalContext()
	defer cancel()

	runnerSvc := runner.New(log.Logger, *cfg)
	result, err := runnerSvc.Wake(ctx, args[0])
	if err != nil {
		log.Error().Err(err).Str("address", args[0]).Msg("wake failed")
		return err
	}

	log.Info().
		Str("ip", result.IP.String()).
		Str("duration", result.Duration.Round(time.Millisecond).String()).
		Msg("wake completed successfully")

	fmt.Fprintln(cmd.OutOrStdout(), result.IP)
	return nil
}
