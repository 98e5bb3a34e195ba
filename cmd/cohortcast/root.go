package main

import (
	"cohortcast/pkg/config"

	"github.com/spf13/cobra"
)

var BuildVersion = "dev"

const defaultConfigPath = "configs/config.yaml"

type rootOptions struct {
	configPath string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:          "cohortcast",
		Short:        "Credential and recording service for 100ms live rooms",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", defaultConfigPath,
		"Path to the YAML config file. Environment variables override file values.")

	rootCmd.AddCommand(
		newServeCommand(opts),
		newTokenCommand(opts),
		newRolesCommand(),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version number",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				cmd.Printf("%s\n", BuildVersion)
			},
		},
	)
	return rootCmd
}

func (o *rootOptions) load() (*config.Config, error) {
	return config.Load(o.configPath)
}
