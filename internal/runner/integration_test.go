package runner_test

import (
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// binaryPath builds the makepure binary and returns its path.
func binaryPath(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	bin := filepath.Join(dir, "makepure")
	if runtime.GOOS == "windows" {
		bin += ".exe"
	}

	cmd := exec.CommandContext(t.Context(), "go", "build", "-o", bin, "../../cmd/makepure")
	cmd.Dir = filepath.Join(projectRoot(t), "internal", "runner")
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("failed to build binary: %v\n%s", err, out)
	}
	return bin
}

func projectRoot(t *testing.T) string {
	t.Helper()
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "..", "..")
}

// makepure runs the binary in dir and returns its stdout and exit code.
func makepure(t *testing.T, bin, dir string, args ...string) (string, int) {
	t.Helper()
	cmd := exec.CommandContext(t.Context(), bin, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "XDG_CACHE_HOME="+filepath.Join(dir, ".cache"))
	out, err := cmd.Output()
	var exitErr *exec.ExitError
	switch {
	case errors.As(err, &exitErr):
		return string(out), exitErr.ExitCode()
	case err != nil:
		t.Fatalf("running makepure %v: %v", args, err)
	}
	return string(out), 0
}

type lintReport struct {
	File string `json:"file"`
	Lint struct {
		Diagnostics []struct {
			Code string `json:"code"`
		} `json:"diagnostics"`
	} `json:"lint"`
}

func lintCodes(t *testing.T, out string) []string {
	t.Helper()
	var reports []lintReport
	if err := json.Unmarshal([]byte(out), &reports); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	var codes []string
	for _, r := range reports {
		for _, d := range r.Lint.Diagnostics {
			codes = append(codes, d.Code)
		}
	}
	return codes
}

// A process id in a variable and non-idempotent recipe commands: lint
// reports them, purify removes them, and a second lint finds no
// determinism or idempotence problem.
func TestIntegrationLintPurifyRelint(t *testing.T) {
	bin := binaryPath(t)
	dir := t.TempDir()
	src := "TMP=/tmp/x.$$\nbuild:\n\tmkdir $TMP\nclean:\n\trm $TMP\n"
	if err := os.WriteFile(filepath.Join(dir, "Makefile"), []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	out, code := makepure(t, bin, dir, "--format", "json", "make", "lint", "Makefile")
	if code != 1 {
		t.Errorf("first lint: exit code %d, want 1", code)
	}
	first := strings.Join(lintCodes(t, out), " ")
	for _, want := range []string{"DET003", "IDEM001", "IDEM002"} {
		if !strings.Contains(first, want) {
			t.Errorf("first lint: missing %s in %s", want, first)
		}
	}

	if out, code := makepure(t, bin, dir, "make", "purify", "--fix", "Makefile"); code != 0 {
		t.Fatalf("purify: exit code %d\n%s", code, out)
	}
	backup, err := os.ReadFile(filepath.Join(dir, "Makefile.bak"))
	if err != nil || string(backup) != src {
		t.Errorf("backup: %q, %v", backup, err)
	}

	out, _ = makepure(t, bin, dir, "--format", "json", "make", "lint", "Makefile")
	for _, c := range lintCodes(t, out) {
		if strings.HasPrefix(c, "DET") || strings.HasPrefix(c, "IDEM") {
			t.Errorf("second lint: %s remains", c)
		}
	}
}

func TestIntegrationLintFixDryRun(t *testing.T) {
	bin := binaryPath(t)
	dir := t.TempDir()
	src := "#!/bin/sh\nrm $DIR/out\n"
	path := filepath.Join(dir, "clean.sh")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	out, code := makepure(t, bin, dir, "lint", "--fix", "--dry-run", "--color", "never", "clean.sh")
	if code != 0 {
		t.Errorf("exit code %d, want 0\n%s", code, out)
	}
	if !strings.Contains(out, `+rm -f "$DIR"/out`) {
		t.Errorf("diff missing fixed line:\n%s", out)
	}
	if data, _ := os.ReadFile(path); string(data) != src {
		t.Errorf("dry run modified the file: %q", data)
	}
}

func TestIntegrationVersion(t *testing.T) {
	bin := binaryPath(t)

	out, code := makepure(t, bin, t.TempDir(), "version")
	if code != 0 || !strings.HasPrefix(out, "makepure ") {
		t.Errorf("version: code %d, output %q", code, out)
	}
}

func TestIntegrationMissingFile(t *testing.T) {
	bin := binaryPath(t)

	if _, code := makepure(t, bin, t.TempDir(), "make", "lint", "/nonexistent/file.mk"); code != 2 {
		t.Errorf("missing file: exit code %d, want 2", code)
	}
}

func TestIntegrationParseError(t *testing.T) {
	bin := binaryPath(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "Makefile"), []byte("define X\nfoo\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, code := makepure(t, bin, dir, "make", "parse", "Makefile")
	if code != 2 {
		t.Errorf("exit code %d, want 2", code)
	}
	if !strings.Contains(out, "= note:") {
		t.Errorf("parse error not rendered:\n%s", out)
	}
}
