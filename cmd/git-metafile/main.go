package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"git-metafile/internal/app"
	"git-metafile/internal/config"
	"git-metafile/internal/metafile"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "0.1.0"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", app.ProgramName, err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies the command-line overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, map[string]string, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.Load(defaults["config_path"], defaults["base_dir"])
	if err != nil {
		return nil, nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("file") {
		file, _ := flags.GetString("file")
		// A path given on the command line is relative to the working directory.
		if cfg.File, err = filepath.Abs(file); err != nil {
			return nil, nil, fmt.Errorf("resolving metafile path: %w", err)
		}
	}
	if flags.Changed("strict") {
		cfg.Strict, _ = flags.GetBool("strict")
	}
	if flags.Changed("quiet") {
		cfg.Quiet, _ = flags.GetBool("quiet")
	}
	if flags.Changed("workers") {
		cfg.Workers, _ = flags.GetInt("workers")
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, defaults, nil
}

// newApp reads the config and creates a MetafileApp. The caller must defer app.Close().
func newApp(cmd *cobra.Command, noRepo bool) (*app.MetafileApp, error) {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	return app.NewMetafileApp(cfg, app.Params{
		Verbose: verbose,
		NoRepo:  noRepo,
		Stdout:  cmd.OutOrStdout(),
		Stderr:  cmd.ErrOrStderr(),
	})
}

var rootCmd = &cobra.Command{
	Use:           "git-metafile",
	Short:         "Store and restore file metadata (mode, owner and group) in a git repository",
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.Usage()
		return errors.New("missing command")
	},
}

var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Record the metadata of all tracked files in the metafile",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, false)
		if err != nil {
			return err
		}
		defer a.Close()

		_, err = a.Save()
		return err
	},
}

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Restore the metadata recorded in the metafile",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		return runApply(cmd, dryRun)
	},
}

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Show the changes apply would make",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApply(cmd, true)
	},
}

func runApply(cmd *cobra.Command, dryRun bool) error {
	a, err := newApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()

	_, err = a.Apply(dryRun)
	return err
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View recorded save and apply runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd, true)
		if err != nil {
			return err
		}
		defer a.Close()

		runs, err := a.GetHistory(limit)
		if err != nil {
			return err
		}

		p := a.Printer()
		if len(runs) == 0 {
			p.Printf("No runs recorded.\n")
			return nil
		}

		for _, r := range runs {
			duration := ""
			if r.FinishedAt.Valid {
				duration = r.FinishedAt.Time.Sub(r.StartedAt).Truncate(time.Millisecond).String()
			}
			p.Printf("%s  %-5s  %s  %-8s  %4d entries  %4d changes  %4d failures  %-8s  %s\n",
				r.ID,
				r.Operation,
				r.StartedAt.Local().Format("2006-01-02 15:04:05"),
				r.Status,
				r.Entries,
				r.Changes,
				r.Failures,
				duration,
				r.RepoRoot,
			)
		}
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show RUN_ID",
	Short: "List the changes attempted by a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, true)
		if err != nil {
			return err
		}
		defer a.Close()

		run, changes, err := a.GetRun(args[0])
		if err != nil {
			return err
		}

		p := a.Printer()
		p.Printf("Run:       %s\n", run.ID)
		p.Printf("Operation: %s\n", run.Operation)
		p.Printf("Status:    %s\n", run.Status)
		p.Printf("Started:   %s\n", run.StartedAt.Local().Format("2006-01-02 15:04:05"))
		p.Printf("Repo:      %s\n", run.RepoRoot)
		p.Printf("Metafile:  %s\n", run.Metafile)
		if len(changes) == 0 {
			p.Printf("\nNo changes.\n")
			return nil
		}

		p.Printf("\n")
		for _, c := range changes {
			switch {
			case c.Attribute == metafile.AttrStat:
				p.Printf("%q: %s\n", c.Path, c.Error)
			case c.Attribute == metafile.AttrMode:
				p.Printf("%q: mode %o -> %o%s\n", c.Path, c.OldValue, c.NewValue, failureSuffix(c.Error))
			default:
				p.Printf("%q: %s %d -> %d%s\n", c.Path, c.Attribute, c.OldValue, c.NewValue, failureSuffix(c.Error))
			}
		}
		return nil
	},
}

func failureSuffix(msg string) string {
	if msg == "" {
		return ""
	}
	return "  [failed: " + msg + "]"
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Configuration initialized at %s\n", defaults["config_path"])
		fmt.Fprintf(cmd.OutOrStdout(), "Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, defaults, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "# Configuration from %s\n", defaults["config_path"])
		m := &config.Manager{}
		return m.Write(out, cfg)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringP("file", "f", config.DefaultMetafile, `path of the metafile (default is ".metafile" in git's top-level directory)`)
	pf.BoolP("strict", "s", false, "stop at the first malformed metafile line")
	pf.BoolP("quiet", "q", false, "do not print informational messages")
	pf.BoolP("verbose", "v", false, "mirror the log to stderr")
	pf.IntP("workers", "j", config.DefaultWorkers, "number of paths processed concurrently")
	rootCmd.Flags().BoolP("version", "V", false, "show version")
	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// history subcommands
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.Flags().IntP("limit", "n", 20, "maximum number of runs to show")

	// root commands
	rootCmd.AddCommand(saveCmd)
	rootCmd.AddCommand(applyCmd)
	applyCmd.Flags().BoolP("dry-run", "n", false, "show the changes without making them")
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
}
