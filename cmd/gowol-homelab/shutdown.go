package main

import (
	"github.com/fgeck/gowol-homelab/internal/config"
	"github.com/fgeck/gowol-homelab/internal/services/runner"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var checkOnly bool

var shutdownCmd = &cobra.Command{
	Use:   "shutdown <address>",
	Short: "Shut a machine down over SSH",
	Long: `Shut down a machine identified by an IP or MAC address. MAC addresses are
looked up in the neighbor table. Requires the ssh_shutdown config section.`,
	Args: cobra.ExactArgs(1),
	RunE: runShutdown,
}

func init() {
	shutdownCmd.Flags().BoolVar(&checkOnly, "check", false, "only verify the SSH connection")
}

func runShutdown(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(config.NewParser())
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	runnerSvc := runner.New(log.Logger, *cfg)
	if err := runnerSvc.Shutdown(ctx, args[0], checkOnly); err != nil {
		log.Error().Err(err).Str("address", args[0]).Msg("shutdown failed")
		return err
	}

	return nil
}
