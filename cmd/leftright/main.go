package main

import (
	"fmt"
	"os"
	"path/filepath"

	"leftright/internal/config"
	"leftright/internal/models"

	"github.com/spf13/cobra"
)

const (
	AppName    = "LeftRight"
	AppID      = "com.leftright.sorter"
	AppVersion = "1.0.0"
)

type options struct {
	dir        string
	categories string
	configPath string
	logLevel   string
	noWatch    bool
	workers    int
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "leftright",
		Short: "Sort images into folders with the arrow keys",
		Long: `LeftRight sorts the images in a directory into up to four categories.
Each category becomes a subfolder and is bound to an arrow key.
Ctrl+Z undoes the last move.`,
		Args:          cobra.NoArgs,
		Version:       AppVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			application, err := NewApplication(cfg)
			if err != nil {
				return err
			}
			return application.Run()
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.dir, "dir", "d", ".", "directory to sort")
	flags.StringVarP(&opts.categories, "categories", "c", "", "comma separated categories, skips the setup screen")
	flags.StringVar(&opts.configPath, "config", "", "config file (default <dir>/"+config.DefaultFileName+")")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.BoolVar(&opts.noWatch, "no-watch", false, "do not watch the directory for new images")
	flags.IntVar(&opts.workers, "workers", 0, "number of thumbnail decode workers")

	return cmd
}

// loadConfig layers the config file, the environment and explicitly set
// flags, then validates the result.
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	path := opts.configPath
	if path == "" {
		path = filepath.Join(opts.dir, config.DefaultFileName)
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("dir") || cfg.Dir == "" {
		cfg.Dir = opts.dir
	} else if !filepath.IsAbs(cfg.Dir) {
		cfg.Dir = filepath.Join(opts.dir, cfg.Dir)
	}
	if flags.Changed("categories") {
		names, err := models.ParseCategories(opts.categories)
		if err != nil {
			return nil, fmt.Errorf("invalid --categories: %w", err)
		}
		cfg.Categories = names
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	if flags.Changed("no-watch") {
		cfg.Watch = !opts.noWatch
	}
	if flags.Changed("workers") {
		cfg.Workers = opts.workers
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
