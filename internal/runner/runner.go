// Package runner orchestrates the parse, purify and lint pipelines over a
// set of files and turns their outcome into an exit code.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/donaldgifford/makepure/internal/ast"
	"github.com/donaldgifford/makepure/internal/cache"
	"github.com/donaldgifford/makepure/internal/config"
	"github.com/donaldgifford/makepure/internal/generator"
	"github.com/donaldgifford/makepure/internal/linter"
	"github.com/donaldgifford/makepure/internal/logging"
	"github.com/donaldgifford/makepure/internal/output"
	"github.com/donaldgifford/makepure/internal/parser"
	"github.com/donaldgifford/makepure/internal/rules"
	"github.com/donaldgifford/makepure/internal/source"
	"github.com/donaldgifford/makepure/pkg/diff"
)

// Exit codes.
const (
	ExitOK       = 0
	ExitWarnings = 1
	ExitError    = 2
)

// StdinName is the file name reported for standard input.
const StdinName = "<stdin>"

// Options configures the runner behavior.
type Options struct {
	Mode  output.Mode
	Files []string
	// DetectKind lints files named *.sh or *.bash as shell scripts. When
	// unset every file is a Makefile.
	DetectKind bool
	// Fix writes purified or fixed files in place after a .bak backup.
	Fix bool
	// DryRun prints the diff Fix would write instead of writing it.
	DryRun bool
	// Report prints the purify transformation report.
	Report     bool
	ConfigPath string
	// Jobs bounds the files processed at once; zero uses GOMAXPROCS.
	Jobs int
	// Cache enables the lint cache even when the config does not.
	Cache  bool
	Format output.Format
	Color  bool
	Logger *zerolog.Logger
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// runner holds what every file of one run shares.
type runner struct {
	opts  *Options
	cfg   *config.Config
	log   zerolog.Logger
	cache *cache.Cache
	rules []linter.Rule
}

// Run executes the selected pipeline and returns an exit code.
func Run(ctx context.Context, opts *Options) int {
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Format == "" {
		opts.Format = output.FormatPretty
	}
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		writeErr(opts.Stderr, "makepure: %v\n", err)
		return ExitError
	}

	r := &runner{
		opts:  opts,
		cfg:   cfg,
		log:   logging.Component(log, "runner"),
		rules: rules.Rules(),
	}
	if opts.Mode == output.ModeLint && (opts.Cache || cfg.Cache.Enabled) {
		c, err := cache.Open(cfg.Cache.Dir)
		if err != nil {
			r.log.Warn().Err(err).Msg("lint cache disabled")
		} else {
			r.cache = c
			r.log.Debug().Str("dir", c.Dir()).Msg("lint cache enabled")
		}
	}

	files := opts.Files
	if len(files) == 0 {
		files = []string{StdinName}
	}
	files = r.filter(files)

	reports, err := r.process(ctx, files)
	if err != nil {
		writeErr(opts.Stderr, "makepure: %v\n", err)
		return ExitError
	}

	p := &output.Printer{W: opts.Stdout, Format: opts.Format, Color: opts.Color}
	if err := p.Print(reports); err != nil {
		writeErr(opts.Stderr, "makepure: writing output: %v\n", err)
		return ExitError
	}
	return exitCode(reports)
}

// filter drops lint files matching a lint.exclude pattern.
func (r *runner) filter(files []string) []string {
	if r.opts.Mode != output.ModeLint || len(r.cfg.Lint.Exclude) == 0 {
		return files
	}
	kept := files[:0:0]
	for _, path := range files {
		if excluded(r.cfg.Lint.Exclude, path) {
			r.log.Debug().Str("file", path).Msg("excluded")
			continue
		}
		kept = append(kept, path)
	}
	return kept
}

func excluded(patterns []string, path string) bool {
	slashed := filepath.ToSlash(filepath.Clean(path))
	for _, pat := range patterns {
		if ok, err := doublestar.Match(pat, slashed); err == nil && ok {
			return true
		}
	}
	return false
}

// process runs the pipeline on every file with at most Jobs files in
// flight. Reports keep the order of files.
func (r *runner) process(ctx context.Context, files []string) ([]output.Report, error) {
	jobs := r.opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	reports := make([]output.Report, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(min(jobs, len(files)), 1))
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			reports[i] = r.file(path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

// file runs the pipeline on one file. Failures are recorded in the report.
func (r *runner) file(path string) output.Report {
	rep := output.Report{File: path, Mode: r.opts.Mode}
	content, err := r.read(path)
	if err != nil {
		rep.Err = err
		return rep
	}
	r.log.Debug().Str("file", path).Str("mode", string(r.opts.Mode)).Msg("processing")

	switch r.opts.Mode {
	case output.ModeParse:
		rep.Tree, err = r.parse(path, content)
	case output.ModePurify:
		err = r.purify(&rep, content)
	case output.ModeLint:
		err = r.lint(&rep, content)
	default:
		err = fmt.Errorf("unknown mode %q", r.opts.Mode)
	}

	var perr *parser.ParseError
	switch {
	case errors.As(err, &perr):
		rep.ParseErr = perr
	case err != nil:
		rep.Err = err
	}
	return rep
}

func (r *runner) read(path string) (string, error) {
	if path == StdinName {
		data, err := io.ReadAll(r.opts.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (r *runner) parse(path, content string) (*ast.Ast, error) {
	return parser.Options{File: path, MaxLineLength: r.cfg.Parser.MaxLineLength}.ParseString(content)
}

func (r *runner) purify(rep *output.Report, content string) error {
	tree, err := r.parse(rep.File, content)
	if err != nil {
		return err
	}
	res := r.cfg.PurifyOptions().Purify(tree)
	purified := generator.Generate(res.Ast)
	rep.Purify = &res
	rep.ShowReport = r.opts.Report
	r.log.Debug().Str("file", rep.File).
		Int("rounds", res.Rounds).
		Int("applied", len(res.Applied())).
		Int("recommended", len(res.Recommended())).
		Msg("purified")

	return r.emit(rep, content, purified, "purified")
}

func (r *runner) lint(rep *output.Report, content string) error {
	kind := source.KindMakefile
	if r.opts.DetectKind {
		kind = source.DetectKind(rep.File)
	}
	lcfg := r.cfg.LinterConfig()

	if r.opts.Fix || r.opts.DryRun {
		fixed, err := linter.FixSource(rep.File, content, kind, r.rules, lcfg)
		if err != nil {
			return err
		}
		rep.Lint = &fixed.Result
		rep.Applied = fixed.Applied
		r.log.Debug().Str("file", rep.File).
			Int("iterations", fixed.Iterations).
			Int("applied", fixed.Applied).
			Int("remaining", len(fixed.Result.Diagnostics)).
			Msg("fixed")
		if !fixed.Changed() {
			return nil
		}
		return r.emit(rep, content, fixed.Content, "fixed")
	}

	file := source.NewFile(rep.File, content)
	key := cache.NewKey(kind, r.rules, lcfg, content)
	res, hit, err := r.cache.Get(key, file)
	if err != nil {
		r.log.Warn().Err(err).Str("file", rep.File).Msg("ignoring cache entry")
	}
	if hit {
		r.log.Debug().Str("file", rep.File).Msg("cache hit")
		rep.Lint, rep.Cached = &res, true
		return nil
	}

	res, err = linter.Run(file, kind, r.rules, lcfg)
	if err != nil {
		return err
	}
	rep.Lint = &res
	if err := r.cache.Put(key, res); err != nil {
		r.log.Warn().Err(err).Str("file", rep.File).Msg("cache write failed")
	}
	return nil
}

// emit delivers rewritten content: as a diff for --dry-run, in place with
// a backup for --fix, and on stdout otherwise.
func (r *runner) emit(rep *output.Report, content, updated, label string) error {
	switch {
	case r.opts.DryRun:
		rep.Diff = diff.Unified(rep.File, rep.File+" ("+label+")", content, updated)
	case r.opts.Fix && rep.File != StdinName:
		if updated == content {
			return nil
		}
		backup, err := WriteWithBackup(rep.File, content, updated)
		if err != nil {
			return err
		}
		rep.Written, rep.Backup = true, backup
		st := diff.Stats(content, updated)
		r.log.Info().Str("file", rep.File).Str("backup", backup).
			Int("added", st.Added).Int("removed", st.Removed).Msg("written")
	default:
		rep.Content = updated
	}
	return nil
}

// exitCode is the highest code of all reports: 2 for failures and lint
// errors, 1 for lint warnings.
func exitCode(reports []output.Report) int {
	code := ExitOK
	for _, rep := range reports {
		c := ExitOK
		switch {
		case rep.Err != nil || rep.ParseErr != nil:
			c = ExitError
		case rep.Lint != nil:
			c = rep.Lint.ExitCode()
		}
		code = max(code, c)
	}
	return code
}

// writeErr formats and writes to stderr.
func writeErr(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format, args...)
}
