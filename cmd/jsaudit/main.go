// Command jsaudit finds the JavaScript assets a page loads and asks a
// language model to review each one for security issues.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fwojciec/jsaudit/config"
	"github.com/spf13/cobra"
)

// Set at build time via -ldflags.
var (
	version = "dev"
	commit  = "none"
)

// env carries the process streams into commands.
type env struct {
	stdin  *os.File
	stdout io.Writer
	stderr io.Writer
}

// globalFlags are shared by every command.
type globalFlags struct {
	configPath string
	verbose    bool
}

type scanFlags struct {
	all    bool
	outDir string
	noHTML bool
	source bool
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	e := env{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
	if err := newRootCmd(e).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd(e env) *cobra.Command {
	var g globalFlags

	root := &cobra.Command{
		Use:   "jsaudit",
		Short: "Security review of a page's JavaScript with a language model",
		Long: `jsaudit discovers the scripts a web page loads, lets you pick which to
review, and sends each one to a language model for a security analysis.
Large scripts are split into chunks that are analyzed separately and then
merged into one report.

Configuration is read from a TOML or YAML file (--config), a .env file in
the working directory, and the GEMINI_API_KEY, OPENAI_API_KEY,
JSAUDIT_MODEL and JSAUDIT_PROXY environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(e.stdout)
	root.SetErr(e.stderr)
	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "jsaudit.toml", "config file (.toml, .yaml or .yml)")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newScanCmd(e, &g),
		newAnalyzeCmd(e, &g),
		newHistoryCmd(e, &g),
		newVersionCmd(),
	)
	return root
}

func newScanCmd(e env, g *globalFlags) *cobra.Command {
	var f scanFlags

	cmd := &cobra.Command{
		Use:   "scan <url>",
		Short: "Analyze the scripts referenced by a web page",
		Long: `Fetch a page, list the scripts it references and analyze the selected ones.

Each report is printed as soon as it is ready. When the run finishes an HTML
report is written to the output directory and every result is appended to
the history file.

Examples:
  jsaudit scan https://example.com
  jsaudit scan https://example.com --all --out reports
  jsaudit scan https://example.com --no-html`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(g.configPath, true)
			if err != nil {
				return err
			}
			if f.outDir != "" {
				cfg.Output.Dir = f.outDir
			}
			if f.noHTML {
				cfg.Output.HTML = false
			}

			logger := newLogger(e.stderr, g.verbose)
			app, err := newScanApp(cmd.Context(), cfg, f, cmd.OutOrStdout(), e.stderr, e.stdin, logger)
			if err != nil {
				return err
			}
			return app.Scan(cmd.Context(), args[0])
		},
	}

	cmd.Flags().BoolVarP(&f.all, "all", "a", false, "analyze every script without the selection menu")
	cmd.Flags().StringVarP(&f.outDir, "out", "o", "", "directory for the HTML report (default from config)")
	cmd.Flags().BoolVar(&f.noHTML, "no-html", false, "skip the HTML report")
	cmd.Flags().BoolVar(&f.source, "source", true, "include highlighted script source in the HTML report")
	return cmd
}

func newAnalyzeCmd(e env, g *globalFlags) *cobra.Command {
	var view bool

	cmd := &cobra.Command{
		Use:   "analyze <file|->",
		Short: "Analyze a local JavaScript file",
		Long: `Analyze one JavaScript file, or standard input when the argument is "-".

Examples:
  jsaudit analyze bundle.js
  curl -s https://example.com/app.js | jsaudit analyze -
  jsaudit analyze bundle.js --view`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(g.configPath, true)
			if err != nil {
				return err
			}
			logger := newLogger(e.stderr, g.verbose)
			app, err := newAnalyzeApp(cmd.Context(), cfg, view, cmd.OutOrStdout(), logger)
			if err != nil {
				return err
			}
			return app.Analyze(cmd.Context(), args[0], cmd.InOrStdin())
		},
	}

	cmd.Flags().BoolVar(&view, "view", false, "open the report in a scrollable viewer")
	return cmd
}

func newHistoryCmd(e env, g *globalFlags) *cobra.Command {
	var (
		limit int
		runID string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past analyses",
		Long: `List analyses recorded by earlier scan and analyze runs, oldest first.

Examples:
  jsaudit history
  jsaudit history --limit 5
  jsaudit history --run 1b9d6bcd`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(g.configPath, false)
			if err != nil {
				return err
			}
			history, path := newHistory(cfg)
			app := &App{
				Output:      cmd.OutOrStdout(),
				Logger:      newLogger(e.stderr, g.verbose),
				History:     history,
				HistoryPath: path,
			}
			return app.ShowHistory(limit, runID)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of records to show (0 for all)")
	cmd.Flags().StringVar(&runID, "run", "", "only show records from this run id")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "jsaudit %s (%s)\n", version, commit)
		},
	}
}

// loadConfig reads configuration and, when validate is set, checks that it
// is usable for analysis.
func loadConfig(path string, validate bool) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if validate {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
