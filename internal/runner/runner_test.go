package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/donaldgifford/makepure/internal/output"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

// emptyConfig writes an empty config so tests never pick up a config file
// from the working directory.
func emptyConfig(t *testing.T, dir string) string {
	t.Helper()
	return writeFile(t, dir, "makepure.yml", "")
}

func run(t *testing.T, opts *Options) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	opts.Stdout = &out
	opts.Stderr = &errOut
	if opts.ConfigPath == "" {
		opts.ConfigPath = emptyConfig(t, t.TempDir())
	}
	code = Run(context.Background(), opts)
	return code, out.String(), errOut.String()
}

func TestRunParse(t *testing.T) {
	path := writeFile(t, t.TempDir(), "Makefile", "CC := gcc\nall: main.o\n\t$(CC) -o app main.o\n")

	code, stdout, _ := run(t, &Options{Mode: output.ModeParse, Files: []string{path}})
	if code != ExitOK {
		t.Errorf("exit code: got %d, want %d", code, ExitOK)
	}
	if !strings.Contains(stdout, "variable CC := gcc") || !strings.Contains(stdout, "target all: main.o") {
		t.Errorf("unexpected outline:\n%s", stdout)
	}
}

func TestRunParseError(t *testing.T) {
	path := writeFile(t, t.TempDir(), "Makefile", "ifdef DEBUG\nX = 1\n")

	code, stdout, _ := run(t, &Options{Mode: output.ModeParse, Files: []string{path}})
	if code != ExitError {
		t.Errorf("exit code: got %d, want %d", code, ExitError)
	}
	if !strings.Contains(stdout, "= help:") {
		t.Errorf("parse error not rendered:\n%s", stdout)
	}
}

func TestRunPurifyToStdout(t *testing.T) {
	src := "SRCS = $(wildcard *.c)\n"
	path := writeFile(t, t.TempDir(), "Makefile", src)

	code, stdout, _ := run(t, &Options{Mode: output.ModePurify, Files: []string{path}})
	if code != ExitOK {
		t.Errorf("exit code: got %d, want %d", code, ExitOK)
	}
	if stdout != "SRCS = $(sort $(wildcard *.c))\n" {
		t.Errorf("stdout: got %q", stdout)
	}
	if got := readFile(t, path); got != src {
		t.Errorf("file modified without --fix: %q", got)
	}
}

func TestRunPurifyFix(t *testing.T) {
	src := "build:\n\tmkdir build\n"
	path := writeFile(t, t.TempDir(), "Makefile", src)

	code, stdout, _ := run(t, &Options{Mode: output.ModePurify, Files: []string{path}, Fix: true, Report: true})
	if code != ExitOK {
		t.Errorf("exit code: got %d, want %d", code, ExitOK)
	}
	if got := readFile(t, path); got != "build:\n\tmkdir -p build\n" {
		t.Errorf("purified file: got %q", got)
	}
	if got := readFile(t, path+".bak"); got != src {
		t.Errorf("backup: got %q, want %q", got, src)
	}
	for _, want := range []string{"Purify " + path, "Applied:", "backup " + path + ".bak"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("missing %q in:\n%s", want, stdout)
		}
	}
}

func TestRunPurifyDryRun(t *testing.T) {
	src := "clean:\n\trm *.o\n"
	path := writeFile(t, t.TempDir(), "Makefile", src)

	code, stdout, _ := run(t, &Options{Mode: output.ModePurify, Files: []string{path}, Fix: true, DryRun: true})
	if code != ExitOK {
		t.Errorf("exit code: got %d, want %d", code, ExitOK)
	}
	for _, want := range []string{"--- " + path + "\n", "+++ " + path + " (purified)\n", "-\trm *.o\n", "+\trm -f *.o\n"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("missing %q in:\n%s", want, stdout)
		}
	}
	if got := readFile(t, path); got != src {
		t.Errorf("dry run modified the file: %q", got)
	}
	if _, err := os.Stat(path + ".bak"); !os.IsNotExist(err) {
		t.Errorf("dry run wrote a backup: %v", err)
	}
}

func TestRunLintExitCodes(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
	}{
		{"clean", "CC := gcc\n", ExitOK},
		{"warning", "TMP := /tmp/x.$$\n", ExitWarnings},
		{"error", "all:\n    echo hi\n", ExitError},
		{"parse error", "ifeq ($(X),1)\n", ExitError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "Makefile", tt.content)
			code, stdout, _ := run(t, &Options{Mode: output.ModeLint, Files: []string{path}})
			if code != tt.want {
				t.Errorf("exit code: got %d, want %d\n%s", code, tt.want, stdout)
			}
		})
	}
}

func TestRunMissingFile(t *testing.T) {
	code, stdout, _ := run(t, &Options{Mode: output.ModeLint, Files: []string{filepath.Join(t.TempDir(), "nope.mk")}})
	if code != ExitError {
		t.Errorf("exit code: got %d, want %d", code, ExitError)
	}
	if !strings.Contains(stdout, "error:") {
		t.Errorf("missing error in:\n%s", stdout)
	}
}

func TestRunLintFix(t *testing.T) {
	src := "TMP := /tmp/x.$$\n"
	path := writeFile(t, t.TempDir(), "Makefile", src)

	code, stdout, _ := run(t, &Options{Mode: output.ModeLint, Files: []string{path}, Fix: true})
	if code != ExitOK {
		t.Errorf("exit code: got %d, want %d\n%s", code, ExitOK, stdout)
	}
	if got := readFile(t, path); got != "TMP := /tmp/x\n" {
		t.Errorf("fixed file: got %q", got)
	}
	if got := readFile(t, path+".bak"); got != src {
		t.Errorf("backup: got %q", got)
	}
	if !strings.Contains(stdout, "applied 1 fix(es)") {
		t.Errorf("missing fix summary in:\n%s", stdout)
	}
}

func TestRunLintDetectKind(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "deploy.sh", "#!/bin/sh\ncd /srv; ./start\n")

	code, stdout, _ := run(t, &Options{Mode: output.ModeLint, Files: []string{path}, DetectKind: true})
	if code != ExitWarnings {
		t.Errorf("exit code: got %d, want %d", code, ExitWarnings)
	}
	if !strings.Contains(stdout, "SC2164") {
		t.Errorf("shell rule did not run:\n%s", stdout)
	}
}

func TestRunLintStdinFix(t *testing.T) {
	code, stdout, _ := run(t, &Options{
		Mode:  output.ModeLint,
		Fix:   true,
		Stdin: strings.NewReader("clean:\n\trm -f app\n"),
	})
	if code != ExitOK {
		t.Errorf("exit code: got %d, want %d", code, ExitOK)
	}
	if !strings.HasPrefix(stdout, ".PHONY: clean\nclean:\n\trm -f app\n") {
		t.Errorf("fixed stdin not printed:\n%s", stdout)
	}
}

func TestRunExclude(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	cfg := writeFile(t, dir, "makepure.yml", "lint:\n  exclude: [\"vendor/**\"]\n")
	writeFile(t, dir, "Makefile", "TMP := /tmp/x.$$\n")
	writeFile(t, dir, "vendor/lib/Makefile", "TMP := /tmp/y.$$\n")

	_, stdout, _ := run(t, &Options{
		Mode:       output.ModeLint,
		Files:      []string{"Makefile", "vendor/lib/Makefile"},
		ConfigPath: cfg,
		Format:     output.FormatJSON,
	})

	var reports []struct {
		File string `json:"file"`
	}
	if err := json.Unmarshal([]byte(stdout), &reports); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, stdout)
	}
	if len(reports) != 1 || reports[0].File != "Makefile" {
		t.Errorf("want only Makefile, got %+v", reports)
	}
}

func TestRunLintCache(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "makepure.yml", "cache:\n  dir: "+filepath.Join(dir, "cache")+"\n")
	path := writeFile(t, dir, "Makefile", "TMP := /tmp/x.$$\n")

	cached := func() (bool, int) {
		code, stdout, _ := run(t, &Options{
			Mode:       output.ModeLint,
			Files:      []string{path},
			ConfigPath: cfg,
			Cache:      true,
			Format:     output.FormatJSON,
		})
		var reports []struct {
			Cached bool `json:"cached"`
		}
		if err := json.Unmarshal([]byte(stdout), &reports); err != nil || len(reports) != 1 {
			t.Fatalf("invalid JSON: %v\n%s", err, stdout)
		}
		return reports[0].Cached, code
	}

	if hit, code := cached(); hit || code != ExitWarnings {
		t.Errorf("first run: cached=%v code=%d", hit, code)
	}
	if hit, code := cached(); !hit || code != ExitWarnings {
		t.Errorf("second run: cached=%v code=%d", hit, code)
	}
}

func TestRunLintCacheSameContent(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "makepure.yml", "cache:\n  dir: "+filepath.Join(dir, "cache")+"\n")
	first := writeFile(t, dir, "a/Makefile", "TMP := /tmp/x.$$\n")
	second := writeFile(t, dir, "b/Makefile", "TMP := /tmp/x.$$\n")

	lint := func(path string) (bool, []string) {
		_, stdout, _ := run(t, &Options{
			Mode:       output.ModeLint,
			Files:      []string{path},
			ConfigPath: cfg,
			Cache:      true,
			Format:     output.FormatJSON,
		})
		var reports []struct {
			Cached bool `json:"cached"`
			Lint   struct {
				Diagnostics []struct {
					Location struct {
						File string `json:"file"`
					} `json:"location"`
				} `json:"diagnostics"`
			} `json:"lint"`
		}
		if err := json.Unmarshal([]byte(stdout), &reports); err != nil || len(reports) != 1 {
			t.Fatalf("invalid JSON: %v\n%s", err, stdout)
		}
		var files []string
		for _, d := range reports[0].Lint.Diagnostics {
			files = append(files, d.Location.File)
		}
		return reports[0].Cached, files
	}

	lint(first)
	hit, files := lint(second)
	if !hit {
		t.Error("identical content should hit the cache")
	}
	if len(files) == 0 {
		t.Fatal("no diagnostics")
	}
	for _, f := range files {
		if f != second {
			t.Errorf("diagnostic names %q, want %q", f, second)
		}
	}
}

func TestRunManyFilesKeepsOrder(t *testing.T) {
	dir := t.TempDir()
	var files []string
	for _, name := range []string{"a.mk", "b.mk", "c.mk", "d.mk", "e.mk"} {
		files = append(files, writeFile(t, dir, name, "X := "+name+"\n"))
	}

	_, stdout, _ := run(t, &Options{Mode: output.ModeLint, Files: files, Jobs: 3, Format: output.FormatJSON})

	var reports []struct {
		File string `json:"file"`
	}
	if err := json.Unmarshal([]byte(stdout), &reports); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, stdout)
	}
	if len(reports) != len(files) {
		t.Fatalf("want %d reports, got %d", len(files), len(reports))
	}
	for i, r := range reports {
		if r.File != files[i] {
			t.Errorf("report %d: got %s, want %s", i, r.File, files[i])
		}
	}
}

func TestRunInvalidConfig(t *testing.T) {
	cfg := writeFile(t, t.TempDir(), "makepure.yml", "purify:\n  disabled_passes: [speed]\n")

	code, _, stderr := run(t, &Options{Mode: output.ModeLint, ConfigPath: cfg, Stdin: strings.NewReader("")})
	if code != ExitError {
		t.Errorf("exit code: got %d, want %d", code, ExitError)
	}
	if !strings.HasPrefix(stderr, "makepure: ") {
		t.Errorf("stderr: got %q", stderr)
	}
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out, errOut bytes.Buffer
	code := Run(ctx, &Options{
		Mode:       output.ModeLint,
		Stdin:      strings.NewReader("X := 1\n"),
		ConfigPath: emptyConfig(t, t.TempDir()),
		Stdout:     &out,
		Stderr:     &errOut,
	})
	if code != ExitError || !strings.Contains(errOut.String(), "context canceled") {
		t.Errorf("got code %d, stderr %q", code, errOut.String())
	}
}

func TestWriteWithBackup(t *testing.T) {
	path := writeFile(t, t.TempDir(), "build.sh", "old\n")
	if err := os.Chmod(path, 0o755); err != nil {
		t.Fatal(err)
	}

	backup, err := WriteWithBackup(path, "old\n", "new\n")
	if err != nil {
		t.Fatal(err)
	}
	if backup != path+".bak" || readFile(t, backup) != "old\n" || readFile(t, path) != "new\n" {
		t.Errorf("unexpected files: backup %q", backup)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o755 {
		t.Errorf("mode: got %v, want 0755", info.Mode().Perm())
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("temporary files left behind: %v", entries)
	}
}

func TestExcluded(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"vendor/x/Makefile", true},
		{"./vendor/Makefile", true},
		{"src/Makefile", false},
		{"build/gen.mk", true},
	}
	patterns := []string{"vendor/**", "build/*.mk"}
	for _, tt := range tests {
		if got := excluded(patterns, tt.path); got != tt.want {
			t.Errorf("excluded(%q): got %v, want %v", tt.path, got, tt.want)
		}
	}
}
