package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"cosmossdk.io/log"
	"github.com/spf13/cobra"

	"onchainlotto/internal/recorder"
)

const flagPool = "pool"

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the recorded rounds of a pool",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			poolID, err := cmd.Flags().GetUint64(flagPool)
			if err != nil {
				return err
			}
			path := cfg.SQLitePath()
			if path == "" {
				return fmt.Errorf("round history is disabled (recorder.sqlite_path is empty)")
			}
			rec, err := recorder.NewSQLiteRecorder(path, log.NewNopLogger())
			if err != nil {
				return err
			}
			defer rec.Close()

			rounds, err := rec.Rounds(poolID)
			if err != nil {
				return err
			}
			paid, err := rec.TotalPaid(poolID)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ROUND\tHEIGHT\tTIME\tPLAYERS\tSEED\tINDEX\tWINNER")
			for _, r := range rounds {
				winner := r.Winner
				if winner == "" {
					winner = "-"
				}
				fmt.Fprintf(w, "%d\t%d\t%s\t%d\t%d\t%d\t%s\n",
					r.Round, r.Height, time.Unix(r.BlockTime, 0).UTC().Format(time.RFC3339),
					r.NPlayers, r.Seed, r.WinnerIndex, winner)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "total paid out: %d\n", paid)
			return err
		},
	}
	cmd.Flags().Uint64(flagPool, 1, "pool id")
	return cmd
}
