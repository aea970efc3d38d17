package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const scenarioRequest = `
stock_length: 6100
kerf: 3.5
strategy: FFD
pieces:
  - id: frame
    profile_type: AL-50x30
    length: 2000
    quantity: 3
`

func writeRequest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "job.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write request: %v", err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("BARCUT_LOG_LEVEL", "error")
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	if !strings.Contains(out, "barcut dev") || !strings.Contains(out, "commit: none") {
		t.Errorf("unexpected version output: %s", out)
	}
}

func TestVersionCmdWithCustomValues(t *testing.T) {
	origVersion, origCommit, origDate := Version, Commit, Date
	Version, Commit, Date = "1.2.0", "abc123", "2026-01-01"
	defer func() { Version, Commit, Date = origVersion, origCommit, origDate }()

	out, err := run(t, "version")
	if err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	if !strings.Contains(out, "barcut 1.2.0 (commit: abc123, built: 2026-01-01)") {
		t.Errorf("unexpected version output: %s", out)
	}
}

func TestRootCmdHasSubcommands(t *testing.T) {
	cmd := newRootCmd()
	want := map[string]bool{"version": false, "solve": false, "compare": false}
	for _, sub := range cmd.Commands() {
		if _, ok := want[sub.Name()]; ok {
			want[sub.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("missing subcommand %s", name)
		}
	}
}

func TestSolveCmd(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "result.json")
	cutList := filepath.Join(dir, "cuts.csv")
	metricsOut := filepath.Join(dir, "barcut.prom")

	out, err := run(t, "solve", writeRequest(t, scenarioRequest),
		"--output", output, "--cutlist", cutList, "--metrics-out", metricsOut)
	if err != nil {
		t.Fatalf("solve failed: %v\n%s", err, out)
	}

	if !strings.Contains(out, "Bars used:  1 x 6100mm") {
		t.Errorf("missing bar summary in:\n%s", out)
	}
	if !strings.Contains(out, "2000 2000 2000") {
		t.Errorf("missing segment list in:\n%s", out)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var resp map[string]any
	if err := json.Unmarshal(data, &resp); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if resp["success"] != true {
		t.Errorf("expected success in %s", data)
	}

	if _, err := os.Stat(cutList); err != nil {
		t.Errorf("cut list not written: %v", err)
	}
	prom, err := os.ReadFile(metricsOut)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	if !strings.Contains(string(prom), `barcut_solve_total{outcome="success",strategy="FFD"} 1`) {
		t.Errorf("missing solve counter in:\n%s", prom)
	}
}

func TestSolveCmdStrategyOverride(t *testing.T) {
	out, err := run(t, "solve", writeRequest(t, scenarioRequest), "--strategy", "BRANCH_AND_BOUND")
	if err != nil {
		t.Fatalf("solve failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Strategy:   BRANCH_AND_BOUND") || !strings.Contains(out, "Optimal:    true") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestSolveCmdStrategyOverrideIgnoresCase(t *testing.T) {
	out, err := run(t, "solve", writeRequest(t, scenarioRequest), "--strategy", "bfd")
	if err != nil {
		t.Fatalf("solve failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Strategy:   BFD") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestSolveCmdZeroBudget(t *testing.T) {
	out, err := run(t, "solve", writeRequest(t, scenarioRequest), "--strategy", "GENETIC", "--time-budget-ms", "0")
	if err != nil {
		t.Fatalf("solve failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Time budget reached") {
		t.Errorf("expected timeout notice in:\n%s", out)
	}
}

func TestSolveCmdInfeasible(t *testing.T) {
	path := writeRequest(t, "pieces:\n  - {id: long, length: 7000, quantity: 1}\n")
	output := filepath.Join(t.TempDir(), "result.json")

	_, err := run(t, "solve", path, "--output", output)
	if err == nil || !strings.Contains(err.Error(), "INFEASIBLE") {
		t.Fatalf("expected infeasible error, got %v", err)
	}
	if _, statErr := os.Stat(output); statErr != nil {
		t.Errorf("failed responses are still written: %v", statErr)
	}
}

func TestSolveCmdMissingArg(t *testing.T) {
	if _, err := run(t, "solve"); err == nil {
		t.Error("expected error without request path")
	}
}

func TestSolveCmdBadEnvironment(t *testing.T) {
	t.Setenv("BARCUT_STRATEGY", "GREEDY")
	cmd := newRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"solve", writeRequest(t, scenarioRequest)})

	if err := cmd.Execute(); err == nil || !strings.Contains(err.Error(), "unknown strategy") {
		t.Errorf("expected config error, got %v", err)
	}
}

func TestCompareCmd(t *testing.T) {
	out, err := run(t, "compare", writeRequest(t, scenarioRequest))
	if err != nil {
		t.Fatalf("compare failed: %v\n%s", err, out)
	}
	for _, name := range []string{"Current Settings", "BFD", "GENETIC", "BRANCH_AND_BOUND", "Kerf 1.75mm (half)"} {
		if !strings.Contains(out, name) {
			t.Errorf("missing scenario %q in:\n%s", name, out)
		}
	}
	if strings.Count(out, "*") != 1 {
		t.Errorf("expected exactly one best marker in:\n%s", out)
	}
}
