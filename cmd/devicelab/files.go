package main

import (
	"fmt"
	"sort"

	"github.com/nickpending/devicelab/internal/api"
	"github.com/spf13/cobra"
)

var filesAll bool

var filesCmd = &cobra.Command{
	Use:   "files [dir]",
	Short: "List uploaded files",
	Long:  "List the files stored in one upload directory, or in every configured directory with --all.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, closer, err := setup(cmd)
		if err != nil {
			return err
		}
		defer closer.Close()

		client := api.NewClient(cfg)
		out := cmd.OutOrStdout()

		if filesAll {
			listing, err := client.ListAllFiles(cmd.Context(), cfg.Upload.Directories)
			if err != nil {
				return err
			}
			dirs := make([]string, 0, len(listing))
			for d := range listing {
				dirs = append(dirs, d)
			}
			sort.Strings(dirs)
			for _, d := range dirs {
				fmt.Fprintf(out, "%s/\n", d)
				for _, f := range listing[d] {
					fmt.Fprintf(out, "  %s\n", f)
				}
			}
			return nil
		}

		dir := cfg.Upload.Directories[0]
		if len(args) == 1 {
			dir = args[0]
		}
		files, err := client.ListFiles(cmd.Context(), dir)
		if err != nil {
			return err
		}
		for _, f := range files {
			fmt.Fprintln(out, f)
		}
		return nil
	},
}

func init() {
	filesCmd.Flags().BoolVar(&filesAll, "all", false, "list every configured directory")
	rootCmd.AddCommand(filesCmd)
}
