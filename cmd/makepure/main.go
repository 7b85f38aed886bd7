// Package main is the entry point for makepure.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/donaldgifford/makepure/internal/logging"
	"github.com/donaldgifford/makepure/internal/output"
	"github.com/donaldgifford/makepure/internal/runner"
)

// Build-time variables set via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// globalFlags are shared by every command.
type globalFlags struct {
	format     output.Format
	color      output.ColorMode
	configPath string
	jobs       int
	verbose    bool
	cache      bool
}

// pipelineFlags are set per command.
type pipelineFlags struct {
	fix    bool
	dryRun bool
	report bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := execute(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

// execute runs the command line and returns the process exit code.
func execute(ctx context.Context, args []string) int {
	code := runner.ExitOK
	root := newRootCmd(&code)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		return runner.ExitError
	}
	return code
}

func newRootCmd(code *int) *cobra.Command {
	g := &globalFlags{format: output.FormatPretty, color: output.ColorAuto}

	root := &cobra.Command{
		Use:   "makepure",
		Short: "Purify and lint Makefiles",
		Long: `makepure rewrites Makefiles so they build deterministically and can be
run repeatedly, and lints Makefiles and shell scripts.`,
		Version:      version + " (" + commit + ") " + date,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.Var(&g.format, "format", "output format (pretty|json)")
	pf.Var(&g.color, "color", "colorize output (auto|always|never)")
	pf.StringVar(&g.configPath, "config", "", "path to config file")
	pf.IntVarP(&g.jobs, "jobs", "j", 0, "files processed in parallel (0 = GOMAXPROCS)")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "log progress to stderr")
	pf.BoolVar(&g.cache, "cache", false, "cache lint results on disk")

	makeCmd := &cobra.Command{
		Use:   "make",
		Short: "Parse, purify or lint Makefiles",
	}
	makeCmd.AddCommand(
		newPipelineCmd(g, code, output.ModeParse, false),
		newPipelineCmd(g, code, output.ModePurify, false),
		newPipelineCmd(g, code, output.ModeLint, false),
	)

	lint := newPipelineCmd(g, code, output.ModeLint, true)
	lint.Short = "Lint Makefiles and shell scripts, chosen by file name"

	root.AddCommand(makeCmd, lint, newVersionCmd())
	return root
}

var shortHelp = map[output.Mode]string{
	output.ModeParse:  "Print the structure of Makefiles",
	output.ModePurify: "Rewrite Makefiles to be deterministic and idempotent",
	output.ModeLint:   "Lint Makefiles",
}

// newPipelineCmd builds a command running one runner mode. With no file
// arguments the input is read from stdin.
func newPipelineCmd(g *globalFlags, code *int, mode output.Mode, detect bool) *cobra.Command {
	p := &pipelineFlags{}
	cmd := &cobra.Command{
		Use:   string(mode) + " [flags] [files...]",
		Short: shortHelp[mode],
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.New(cmd.ErrOrStderr(), g.verbose)
			*code = runner.Run(cmd.Context(), &runner.Options{
				Mode:       mode,
				Files:      args,
				DetectKind: detect,
				Fix:        p.fix,
				DryRun:     p.dryRun,
				Report:     p.report,
				ConfigPath: g.configPath,
				Jobs:       g.jobs,
				Cache:      g.cache,
				Format:     g.format,
				Color:      g.color.Enabled(cmd.OutOrStdout()),
				Logger:     &log,
				Stdin:      cmd.InOrStdin(),
				Stdout:     cmd.OutOrStdout(),
				Stderr:     cmd.ErrOrStderr(),
			})
			return nil
		},
	}

	if mode == output.ModeParse {
		return cmd
	}
	f := cmd.Flags()
	f.BoolVar(&p.fix, "fix", false, "rewrite files in place, keeping a .bak backup")
	f.BoolVar(&p.dryRun, "dry-run", false, "print the diff --fix would apply")
	if mode == output.ModePurify {
		f.BoolVar(&p.report, "report", false, "print the transformation report")
	}
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "makepure %s (%s) %s\n", version, commit, date)
		},
	}
}
