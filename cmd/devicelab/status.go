package main

import (
	"fmt"

	"github.com/nickpending/devicelab/internal/api"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check that the master server is up",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, closer, err := setup(cmd)
		if err != nil {
			return err
		}
		defer closer.Close()

		text, err := api.NewClient(cfg).Status(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", cfg.Server.URL, text)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
