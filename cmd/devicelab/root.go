package main

import (
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/nickpending/devicelab/internal/api"
	"github.com/nickpending/devicelab/internal/config"
	"github.com/nickpending/devicelab/internal/db"
	"github.com/nickpending/devicelab/internal/logging"
	"github.com/nickpending/devicelab/internal/ui"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// flags shared by every command
var (
	configPath string
	serverURL  string
	refreshSec int
	uploadDir  string
	debug      bool
	logFile    string
	dbPath     string
)

var rootCmd = &cobra.Command{
	Use:   "devicelab",
	Short: "Terminal console for the device-lab master server",
	Long: `devicelab - browse the devices connected to a device-lab master server,
upload builds to it and list what has been uploaded.

Run without arguments to open the console.`,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
	RunE:         runConsole,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "config file (default $XDG_CONFIG_HOME/devicelab/config.toml)")
	pf.StringVar(&serverURL, "server", "", "master server URL, overrides [server] url")
	pf.StringVar(&logFile, "log-file", "", "log file, overrides [log] file")
	pf.BoolVar(&debug, "debug", false, "log at debug level")
	pf.StringVar(&dbPath, "db", "", "upload history database")

	rootCmd.Flags().IntVar(&refreshSec, "refresh", 0, "device refresh interval in seconds, 0 disables")
	rootCmd.Flags().StringVar(&uploadDir, "dir", "", "upload directory selected at start")
}

// loadConfig reads the config file and applies command line overrides
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFrom(configPath)
	} else {
		cfg, err = config.LoadConfig()
	}
	if err != nil {
		return nil, err
	}

	if serverURL != "" {
		cfg.Server.URL = serverURL
	}
	if logFile != "" {
		cfg.Log.File = logFile
	}
	if f := cmd.Flags().Lookup("refresh"); f != nil && f.Changed {
		cfg.TUI.RefreshInterval = refreshSec
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setup loads the config, starts file logging and opens the history
// store. The returned closer stops logging.
func setup(cmd *cobra.Command) (*config.Config, io.Closer, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	path, err := cfg.LogFile()
	if err != nil {
		return nil, nil, err
	}
	closer, err := logging.Setup(path, cfg.Log.Level, debug)
	if err != nil {
		return nil, nil, err
	}

	if dbPath != "" {
		if err := db.UseDBPath(dbPath); err != nil {
			closer.Close()
			return nil, nil, err
		}
	}

	logrus.WithFields(logrus.Fields{
		"command": cmd.Name(),
		"server":  cfg.Server.URL,
	}).Info("starting")
	return cfg, closer, nil
}

func runConsole(cmd *cobra.Command, _ []string) error {
	cfg, closer, err := setup(cmd)
	if err != nil {
		return err
	}
	defer closer.Close()
	defer db.CloseDB()

	model := ui.NewModel(cfg, api.NewClient(cfg))
	if uploadDir != "" {
		model.SelectDirectory(uploadDir)
	}

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	if _, err := p.Run(); err != nil {
		logrus.WithError(err).Error("console exited")
		return fmt.Errorf("console: %w", err)
	}
	return nil
}
