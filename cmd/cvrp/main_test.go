package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeInstance(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "tiny.txt")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "solver.yaml")
	require.NoError(t, os.WriteFile(path, []byte("solver:\n  iterations: 30\n  tspIterations: 30\n  seed: 4\n"), 0o644))
	return path
}

const tiny = `6 2 10
0 0 0
3 1 5
4 -2 3
2 6 1
5 -4 -4
4 3 -6
`

func TestRunWritesSolutionFiles(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "results")
	var stdout, stderr bytes.Buffer
	code := run([]string{"-config", writeConfig(t, dir), "-out", out, "-report", writeInstance(t, dir, tiny)}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	best, err := os.ReadFile(filepath.Join(out, "tiny.sol"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(best)), "\n")
	require.Len(t, lines, 3, "header plus one line per vehicle")
	head := strings.Fields(lines[0])
	require.Len(t, head, 2)
	require.Equal(t, "0", head[1])
	cost, err := strconv.ParseFloat(head[0], 64)
	require.NoError(t, err)
	require.Greater(t, cost, 0.0)

	seen := map[string]bool{}
	for _, l := range lines[1:] {
		f := strings.Fields(l)
		require.Equal(t, "0", f[0])
		require.Equal(t, "0", f[len(f)-1])
		for _, c := range f[1 : len(f)-1] {
			require.False(t, seen[c], "customer %s twice", c)
			seen[c] = true
		}
	}
	require.Len(t, seen, 5)

	_, err = os.Stat(filepath.Join(out, "tiny_initial.sol"))
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(out, "tiny.json"))
	require.NoError(t, err)
	var rep map[string]any
	require.NoError(t, json.Unmarshal(raw, &rep))
	require.Equal(t, cost, rep["bestCost"])
	require.NotNil(t, rep["system"])
	require.Contains(t, stdout.String(), "best")
}

func TestRunJSONFormat(t *testing.T) {
	dir := t.TempDir()
	var stdout, stderr bytes.Buffer
	code := run([]string{"-config", writeConfig(t, dir), "-out", dir, "-format", "json", writeInstance(t, dir, tiny)}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	var rep report
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &rep))
	require.Equal(t, 5, rep.Customers)
	require.Len(t, rep.Routes, 2)
	require.Equal(t, int64(4), rep.Metrics.Seed)
	require.Nil(t, rep.System)
}

func TestRunExitCodes(t *testing.T) {
	dir := t.TempDir()
	var stdout, stderr bytes.Buffer
	require.Equal(t, 2, run(nil, &stdout, &stderr))
	require.Equal(t, 2, run([]string{"-format", "xml", "x"}, &stdout, &stderr))
	require.Equal(t, 1, run([]string{filepath.Join(dir, "missing.txt")}, &stdout, &stderr))

	infeasible := writeInstance(t, dir, "2 1 5\n0 0 0\n6 1 1\n")
	require.Equal(t, 3, run([]string{"-config", writeConfig(t, dir), "-out", dir, infeasible}, &stdout, &stderr))
	require.Contains(t, stderr.String(), "infeasible")

	stdout.Reset()
	require.Equal(t, 0, run([]string{"-version"}, &stdout, &stderr))
	require.Contains(t, stdout.String(), "cvrp dev")
}
