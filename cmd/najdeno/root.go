package main

import (
	"github.com/spf13/cobra"

	"github.com/erazemk/najdeno/internal/config"
)

var (
	flagConfigDir string

	// cfg is loaded by PersistentPreRunE for every subcommand.
	cfg      *config.Config
	closeLog = func() {}
)

var rootCmd = &cobra.Command{
	Use:           "najdeno",
	Short:         "Campus lost and found service",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(flagConfigDir, cmd.Flags())
		if err != nil {
			return err
		}
		closeLog, err = setupLogger(cfg.Log)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		closeLog()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfigDir, "config-dir", "c", ".", "directory holding najdeno.yaml")
	config.RegisterFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(versionCmd)
}
