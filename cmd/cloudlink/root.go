package main

import (
	"flag"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "cloudlink",
		Short:         "Device cloud session tools",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return parseGoFlags()
		},
	}
	cmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)

	cmd.AddCommand(newDeviceCmd())
	cmd.AddCommand(newCloudCmd())
	cmd.AddCommand(newKeygenCmd())
	return cmd
}
