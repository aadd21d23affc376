package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string

	rootCmd := &cobra.Command{
		Use:           "wai",
		Short:         "Web auto-import daemon for Sonarr",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newRunCommand(&configFlag))
	rootCmd.AddCommand(newConfigCommand(&configFlag))
	rootCmd.AddCommand(newQueueCommand(&configFlag))
	rootCmd.AddCommand(newDepsCommand())
	rootCmd.AddCommand(newLogsCommand(&configFlag))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}
