package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/nickpending/devicelab/internal/api"
	"github.com/nickpending/devicelab/internal/db"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var uploadTo string

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a build to the master server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, closer, err := setup(cmd)
		if err != nil {
			return err
		}
		defer closer.Close()
		defer db.CloseDB()

		dir := uploadTo
		if dir == "" {
			dir = cfg.Upload.Directories[0]
		}
		path := args[0]
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("cannot upload %s: %w", path, err)
		}

		url, uerr := api.NewClient(cfg).Upload(cmd.Context(), path, dir)
		record := db.Upload{
			Directory: dir,
			FileName:  filepath.Base(path),
			Size:      info.Size(),
			URL:       url,
		}
		if uerr != nil {
			record.Error = uerr.Error()
		}
		if _, err := db.RecordUpload(record); err != nil {
			logrus.WithError(err).Warn("failed to record upload")
		}
		if uerr != nil {
			return uerr
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s (%s) to %s\n%s\n",
			record.FileName, humanize.Bytes(uint64(record.Size)), dir, url)
		return nil
	},
}

func init() {
	uploadCmd.Flags().StringVar(&uploadTo, "dir", "", "target directory (default first configured directory)")
	rootCmd.AddCommand(uploadCmd)
}
