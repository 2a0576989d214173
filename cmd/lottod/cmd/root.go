package cmd

import (
	"os"
	"path/filepath"

	"cosmossdk.io/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"onchainlotto/internal/config"
)

const (
	BinaryName = "lottod"

	flagHome = "home"
)

// DefaultNodeHome is $HOME/.lottod, or .lottod when no user home is known.
var DefaultNodeHome = func() string {
	dir, err := os.UserHomeDir()
	if err != nil {
		return "." + BinaryName
	}
	return filepath.Join(dir, "."+BinaryName)
}()

// NewRootCmd creates the lottod root command. It is called once in main.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           BinaryName,
		Short:         "Commit-reveal lottery ABCI application",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			// set the default command outputs
			cmd.SetOut(cmd.OutOrStdout())
			cmd.SetErr(cmd.ErrOrStderr())
		},
	}
	rootCmd.PersistentFlags().String(flagHome, DefaultNodeHome, "node home directory")

	rootCmd.AddCommand(
		newInitCmd(),
		newStartCmd(),
		newHistoryCmd(),
	)
	return rootCmd
}

// loadConfig binds the command's flags to a fresh viper instance and loads
// the node config for --home.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	home, err := cmd.Flags().GetString(flagHome)
	if err != nil {
		return nil, err
	}
	v := viper.New()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}
	return config.Load(v, home)
}

func newLogger(cmd *cobra.Command, cfg *config.Config) (log.Logger, error) {
	lvl, err := cfg.LogLevel()
	if err != nil {
		return nil, err
	}
	opts := []log.Option{log.LevelOption(lvl)}
	if cfg.Log.Format == "json" {
		opts = append(opts, log.OutputJSONOption())
	}
	return log.NewLogger(cmd.ErrOrStderr(), opts...).With("module", "lottod"), nil
}
