package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// noEnv keeps the developer's SYSYC_* variables out of the tests
func noEnv(t *testing.T) {
	t.Helper()
	saved := getenvFn
	getenvFn = func(string) string { return "" }
	t.Cleanup(func() { getenvFn = saved })
}

func writeSource(t *testing.T, src string) (dir, input string) {
	t.Helper()
	dir = t.TempDir()
	input = filepath.Join(dir, "main.c")
	if err := os.WriteFile(input, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir, input
}

func TestRunCompiles(t *testing.T) {
	noEnv(t)
	tests := []struct {
		mode string
		want string
	}{
		{"-koopa", "fun @main(): i32 {"},
		{"-riscv", "\t.globl main\n"},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			dir, input := writeSource(t, "int main() { return 42; }\n")
			output := filepath.Join(dir, "out")

			var stdout, stderr bytes.Buffer
			if code := run([]string{tt.mode, input, "-o", output}, &stdout, &stderr); code != 0 {
				t.Fatalf("exit %d, stderr: %s", code, stderr.String())
			}
			if stdout.Len() != 0 || stderr.Len() != 0 {
				t.Errorf("a successful run should be silent, got %q / %q", stdout.String(), stderr.String())
			}
			data, err := os.ReadFile(output)
			if err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(string(data), tt.want) {
				t.Errorf("output missing %q:\n%s", tt.want, data)
			}
		})
	}
}

func TestRunCompileErrorWritesNothing(t *testing.T) {
	noEnv(t)
	dir, input := writeSource(t, "int main() { return x; }\n")
	output := filepath.Join(dir, "out.S")

	var stdout, stderr bytes.Buffer
	if code := run([]string{"-riscv", input, "-o", output}, &stdout, &stderr); code != 1 {
		t.Errorf("exit %d, want 1", code)
	}
	if got := stderr.String(); got != "error: SymbolUndeclared: x at 1:21\n" {
		t.Errorf("stderr = %q", got)
	}
	if _, err := os.Stat(output); !os.IsNotExist(err) {
		t.Error("no output file should be created on failure")
	}
}

func TestRunUsageErrors(t *testing.T) {
	noEnv(t)
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no args", nil, "usage: sysyc MODE INPUT -o OUTPUT"},
		{"missing -o", []string{"-koopa", "a.c", "b.koopa", "c"}, "usage:"},
		{"bad mode", []string{"-perf", "a.c", "-o", "b"}, `unknown mode "-perf"`},
		{"missing input", []string{"-koopa", "does-not-exist.c", "-o", "out"}, "does-not-exist.c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if code := run(tt.args, &stdout, &stderr); code != 1 {
				t.Errorf("exit %d, want 1", code)
			}
			if !strings.HasPrefix(stderr.String(), "error: ") {
				t.Errorf("stderr should start with error:, got %q", stderr.String())
			}
			if !strings.Contains(stderr.String(), tt.want) {
				t.Errorf("stderr %q does not contain %q", stderr.String(), tt.want)
			}
		})
	}
}

func TestRunVersionAndHelp(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"-version"}, &stdout, &stderr); code != 0 {
		t.Errorf("-version exit %d", code)
	}
	if !strings.Contains(stdout.String(), "sysyc version "+version) {
		t.Errorf("version output %q", stdout.String())
	}

	stdout.Reset()
	if code := run([]string{"-help"}, &stdout, &stderr); code != 0 {
		t.Errorf("-help exit %d", code)
	}
	if !strings.Contains(stdout.String(), "-riscv <input.c> -o <output.S>") {
		t.Errorf("help output %q", stdout.String())
	}
}

func TestRunLogsToFileWhenAsked(t *testing.T) {
	dir, input := writeSource(t, "int main() { return 0; }\n")
	logFile := filepath.Join(dir, "sysyc.log")
	saved := getenvFn
	getenvFn = func(key string) string {
		switch key {
		case "SYSYC_LOG_LEVEL":
			return "debug"
		case "SYSYC_LOG_FILE":
			return logFile
		}
		return ""
	}
	t.Cleanup(func() { getenvFn = saved })

	var stdout, stderr bytes.Buffer
	if code := run([]string{"-koopa", input, "-o", filepath.Join(dir, "out")}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit %d: %s", code, stderr.String())
	}
	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "irgen") {
		t.Errorf("log file should record pipeline phases:\n%s", data)
	}
}

func TestMainUsesExitCode(t *testing.T) {
	noEnv(t)
	var code int
	savedExit, savedArgs := exitFn, os.Args
	exitFn = func(c int) { code = c }
	os.Args = []string{"sysyc", "-version"}
	t.Cleanup(func() { exitFn, os.Args = savedExit, savedArgs })

	// Redirect stdout so the version line does not clutter test output.
	devnull, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	if err == nil {
		savedStdout := os.Stdout
		os.Stdout = devnull
		defer func() { os.Stdout = savedStdout; devnull.Close() }()
	}

	main()
	if code != 0 {
		t.Errorf("exit code %d, want 0", code)
	}
}
