package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"onchainlotto/internal/config"
)

const flagOverwrite = "overwrite"

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default node config to <home>/config/config.yaml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			home, err := cmd.Flags().GetString(flagHome)
			if err != nil {
				return err
			}
			overwrite, err := cmd.Flags().GetBool(flagOverwrite)
			if err != nil {
				return err
			}
			path, err := config.WriteDefault(home, overwrite)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return err
		},
	}
	cmd.Flags().Bool(flagOverwrite, false, "replace an existing config file")
	return cmd
}
