package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/kverel/tonewheel/internal/catalog"
	"github.com/kverel/tonewheel/internal/logging"
	"github.com/kverel/tonewheel/internal/tui"
)

type options struct {
	dir         string
	pluginsDir  string
	noAltScreen bool
	noMouse     bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:          "tonewheel",
		Short:        "Interactive circle diagrams for tuning systems",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(opts)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.dir, "dir", envOr("TONEWHEEL_DIR", catalog.Dir), "project directory (catalog, logs, plugins)")
	cmd.PersistentFlags().StringVar(&opts.pluginsDir, "plugins", "", "plugin directory (default: <dir>/plugins)")
	cmd.Flags().BoolVar(&opts.noAltScreen, "no-alt-screen", false, "render inline instead of the alternate screen")
	cmd.Flags().BoolVar(&opts.noMouse, "no-mouse", false, "disable mouse drag and click")

	cmd.AddCommand(newCatalogCmd(opts))
	return cmd
}

// newCatalogCmd prints the merged catalog, built-in defaults plus the
// project's catalog.yaml, as it will be loaded at startup.
func newCatalogCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "Print the effective module catalog as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cat := catalog.Load(opts.dir, nil)
			data, err := cat.Encode()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func runTUI(opts *options) error {
	tui.ConfigureColorProfile()

	// Project dir problems are not fatal; the app degrades without logs
	// or a user catalog.
	var log *logging.Logger
	if err := catalog.InitDir(opts.dir); err != nil {
		fmt.Fprintf(os.Stderr, "tonewheel: %v\n", err)
	} else {
		log, _ = logging.New(catalog.LogsDir(opts.dir))
	}
	defer log.Close()

	appOpts := []tui.Option{tui.WithLogger(log)}
	if opts.pluginsDir != "" {
		appOpts = append(appOpts, tui.WithPluginsDir(opts.pluginsDir))
	}
	app := tui.NewApp(opts.dir, appOpts...)

	var teaOpts []tea.ProgramOption
	if !opts.noAltScreen {
		teaOpts = append(teaOpts, tea.WithAltScreen())
	}
	if !opts.noMouse {
		teaOpts = append(teaOpts, tea.WithMouseCellMotion())
	}
	_, err := tea.NewProgram(app, teaOpts...).Run()
	return err
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
