package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/nickpending/devicelab/internal/db"
	"github.com/spf13/cobra"
)

var (
	historyClear bool
	historyLimit int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show or clear the local upload history",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, closer, err := setup(cmd)
		if err != nil {
			return err
		}
		defer closer.Close()
		defer db.CloseDB()

		out := cmd.OutOrStdout()
		if historyClear {
			n, err := db.ClearUploads()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Cleared %d upload(s)\n", n)
			return nil
		}

		uploads, err := db.RecentUploads(historyLimit)
		if err != nil {
			return err
		}
		if len(uploads) == 0 {
			fmt.Fprintln(out, "No uploads recorded yet")
			return nil
		}
		for _, u := range uploads {
			if u.Succeeded() {
				fmt.Fprintf(out, "%-14s %-24s %-10s %8s  %s\n",
					humanize.Time(u.UploadedAt), u.FileName, u.Directory, humanize.Bytes(uint64(max(u.Size, 0))), u.URL)
				continue
			}
			fmt.Fprintf(out, "%-14s %-24s %-10s   FAILED  %s\n",
				humanize.Time(u.UploadedAt), u.FileName, u.Directory, u.Error)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().BoolVar(&historyClear, "clear", false, "delete every recorded upload")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of uploads to show")
	rootCmd.AddCommand(historyCmd)
}
