package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"sort"
	"syscall"
	"text/tabwriter"

	"github.com/dshills/emoted/internal/app"
	"github.com/dshills/emoted/internal/config"
	"github.com/dshills/emoted/internal/logging"
	"github.com/dshills/emoted/internal/plugin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// cli holds state shared by the commands once the config is loaded.
type cli struct {
	configFile string
	scripts    []string

	cfg    *config.Config
	logger zerolog.Logger
	closer io.Closer
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	cmd := &cobra.Command{
		Use:   "emoted [file]",
		Short: "A terminal text editor that turns :-) into \U0001F60A",
		Long: `emoted is a small terminal text editor extended by plugins.

The emoji plugin replaces every ":-)" with a smiling face as you type.
Lua scripts from the script directories can register their own buttons,
function keys and text handlers.

Keys: Ctrl-S saves, Ctrl-O opens a file, Ctrl-P loads a plugin or script,
Ctrl-Q quits, Alt-1..Alt-9 press toolbar buttons,
F1..F12 run the bound plugin commands.`,
		Args:               cobra.MaximumNArgs(1),
		SilenceUsage:       true,
		PersistentPreRunE:  c.setup,
		PersistentPostRunE: c.teardown,
		RunE:               c.runEdit,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&c.configFile, "config", "c", "", "config file (default: user and project config)")
	pf.String("log-level", "", "log level (debug, info, warn, error)")
	pf.String("log-file", "", "log file")
	pf.String("locale", "", "UI locale such as de-DE (default: from the environment)")

	f := cmd.Flags()
	f.BoolP("readonly", "R", false, "open the file read-only")
	f.StringP("encoding", "e", "", "file encoding such as UTF-16 (default UTF-8)")
	f.StringSlice("plugins", config.DefaultPlugins, "compiled-in plugins to start")
	f.Bool("watch", false, "reload scripts when their files change")
	f.StringArrayVarP(&c.scripts, "script", "s", nil, "load a Lua script in addition to the script directories (repeatable)")

	cmd.AddCommand(newVersionCmd(), newScriptsCmd(c), newPluginsCmd(c), newKeymapCmd(c))
	return cmd
}

func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(config.Options{File: c.configFile, Flags: cmd.Flags()})
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	c.cfg = cfg
	c.logger, c.closer = logging.Setup(cfg.Log)
	c.logger.Debug().Strs("files", cfg.Files).Str("command", cmd.Name()).Msg("configuration loaded")
	return nil
}

func (c *cli) teardown(*cobra.Command, []string) error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}

func (c *cli) runEdit(cmd *cobra.Command, args []string) error {
	var file string
	if len(args) == 1 {
		file = args[0]
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(app.Options{
		Config:  c.cfg,
		File:    file,
		Scripts: c.scripts,
		Logger:  c.logger,
	})
	if err != nil {
		return err
	}
	return a.Run(ctx)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// No config is needed to print the version.
		PersistentPreRunE:  func(*cobra.Command, []string) error { return nil },
		PersistentPostRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "emoted %s\n", version)
			fmt.Fprintf(out, "Commit: %s\n", commit)
			fmt.Fprintf(out, "Built: %s\n", date)
		},
	}
}

func newScriptsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "scripts",
		Short: "List the Lua scripts found in the script directories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			paths := c.cfg.Scripts.Paths
			if len(paths) == 0 {
				paths = plugin.DefaultScriptPaths()
			}
			loader := plugin.NewLoader(plugin.WithPaths(paths...))
			scripts, err := loader.Discover()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(scripts) == 0 {
				fmt.Fprintln(out, "No scripts found in:")
				for _, p := range paths {
					fmt.Fprintf(out, "  %s\n", p)
				}
			}
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			for _, s := range scripts {
				fmt.Fprintf(w, "%s\t%s\n", s.Name, s.Path)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			errs := loader.Errors()
			failed := make([]string, 0, len(errs))
			for path := range errs {
				failed = append(failed, path)
			}
			sort.Strings(failed)
			for _, path := range failed {
				fmt.Fprintf(cmd.ErrOrStderr(), "skipped %s: %v\n", path, errs[path])
			}
			return nil
		},
	}
}

func newPluginsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Short: "List the compiled-in plugins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			builtins := app.Builtins(c.logger)
			names := make([]string, 0, len(builtins))
			for name := range builtins {
				names = append(names, name)
			}
			sort.Strings(names)

			locale := c.cfg.LocaleTag()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, name := range names {
				status := "disabled"
				if slices.Contains(c.cfg.Plugins, name) {
					status = "enabled"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", name, builtins[name]().Name(locale), status)
			}
			return w.Flush()
		},
	}
}

func newKeymapCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "keymap",
		Short: "List the configured key bindings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			km, err := c.cfg.ParseKeymap()
			out := cmd.OutOrStdout()
			if km.Len() == 0 {
				fmt.Fprintln(out, "No key bindings configured")
			}
			for _, b := range km.Bindings() {
				fmt.Fprintln(out, b)
			}
			// Invalid entries are reported but do not fail the listing.
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
			}
			return nil
		},
	}
}
