package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdejongh/diffnorris/pkg/output"
)

// isolate points HOME at a temp dir so no user configuration is picked up
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func writeCorpus(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	globalFlags = GlobalFlags{}
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func exitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if err != nil {
		return -1
	}
	return 0
}

// ============== Compare Command Tests ==============

func TestCompareAllEqual(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	old, new := filepath.Join(dir, "old"), filepath.Join(dir, "new")
	writeCorpus(t, old, map[string]string{
		"a.json":     `{"Id": 1, "Name": "x"}`,
		"sub/b.yaml": "id: 2\ntags: [a, b]\n",
	})
	writeCorpus(t, new, map[string]string{
		"a.json":     `{ "Id": 1,  "Name": "x" }`,
		"sub/b.yaml": "id: 2\ntags: [a, b]\n",
	})

	out, err := execute(t, "compare", "--old", old, "--new", new)
	require.NoError(t, err)
	assert.Contains(t, out, "Comparing 2 document pairs")
	assert.Contains(t, out, "Equal:          2")
}

func TestCompareDifferencesAndReport(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	old, new := filepath.Join(dir, "old"), filepath.Join(dir, "new")
	writeCorpus(t, old, map[string]string{
		"order.json": `{"Id": 1, "Amount": 10, "UpdatedAt": "2024-01-01"}`,
		"skip.tmp":   `ignored`,
	})
	writeCorpus(t, new, map[string]string{
		"order.json": `{"Id": 1, "Amount": 12, "UpdatedAt": "2024-02-01"}`,
		"skip.tmp":   `also ignored`,
	})
	report := filepath.Join(dir, "diffs.json")

	out, err := execute(t, "compare", "--old", old, "--new", new,
		"--ignore", "UpdatedAt", "-o", "json", "--diff-report", report, "--diff-format", "json")
	assert.Equal(t, 1, exitCode(err))

	var data output.JSONReportData
	require.NoError(t, json.Unmarshal([]byte(out), &data))
	assert.Equal(t, 1, data.TotalPairs)
	require.Len(t, data.Pairs, 1)
	require.Len(t, data.Pairs[0].Differences, 1)
	assert.Equal(t, "Amount", data.Pairs[0].Differences[0].PropertyPath)

	raw, err := os.ReadFile(report)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"path": "Amount"`)
}

func TestCompareMalformedDocument(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	old, new := filepath.Join(dir, "old"), filepath.Join(dir, "new")
	writeCorpus(t, old, map[string]string{"a.json": `{"Id": 1}`, "b.json": `{"Id": 2}`})
	writeCorpus(t, new, map[string]string{"a.json": `{"Id": 1}`, "b.json": `{"Id":`})

	out, err := execute(t, "compare", "--old", old, "--new", new, "--quiet")
	assert.Equal(t, 2, exitCode(err))
	assert.Empty(t, out)
}

func TestCompareRejectsNestedLocations(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	_, err := execute(t, "compare", "--old", dir, "--new", filepath.Join(dir, "sub"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inside")
	assert.Equal(t, -1, exitCode(err))
}

func TestCompareRejectsBadBandwidth(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	_, err := execute(t, "compare", "--old", filepath.Join(dir, "a"), "--new", filepath.Join(dir, "b"), "--bandwidth", "fast")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bandwidth")
}

func TestCompareRequiresLocations(t *testing.T) {
	isolate(t)
	_, err := execute(t, "compare", "--old", "x")
	assert.Error(t, err)
}

// ============== Config / Fingerprint Command Tests ==============

func TestConfigInitAndShow(t *testing.T) {
	home := isolate(t)

	out, err := execute(t, "config", "init")
	require.NoError(t, err)
	path := filepath.Join(home, ".config", "diffnorris", "config.yaml")
	assert.Contains(t, out, path)
	assert.FileExists(t, path)

	_, err = execute(t, "config", "init")
	assert.Error(t, err, "existing file needs --force")

	_, err = execute(t, "config", "init", "--force")
	assert.NoError(t, err)

	out, err = execute(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Max Differences: 1000")

	out, err = execute(t, "config", "show", "--yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "max_differences: 1000")
}

func TestFingerprintCommand(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("comparison:\n  max_differences: 5\n"), 0644))

	first, err := execute(t, "fingerprint", "--config", path)
	require.NoError(t, err)
	second, err := execute(t, "fingerprint", "--config", path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, strings.TrimSpace(first), 16)

	def, err := execute(t, "fingerprint")
	require.NoError(t, err)
	assert.NotEqual(t, first, def)

	out, err := execute(t, "fingerprint", "--config", path, "--canonical")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "\n"))
}

func TestExpandCommand(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeCorpus(t, dir, map[string]string{
		"old.json": `{"Lines": [{"Sku": "A"}]}`,
		"new.json": `{"Lines": [{"Sku": "A"}, {"Sku": "B"}]}`,
	})
	old, new := filepath.Join(dir, "old.json"), filepath.Join(dir, "new.json")

	out, err := execute(t, "expand", "Lines[*].Sku", old, new)
	require.NoError(t, err)
	assert.Equal(t, "Lines[0].Sku\nLines[1].Sku\n", out)

	_, err = execute(t, "expand", "Lines[", old, new)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid pattern")

	_, err = execute(t, "expand", "Lines", old, filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, Version+"\n", out)
}

// ============== Helpers Tests ==============

func TestParseBandwidth(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"1024", 1024, false},
		{"512K", 512000, false},
		{"512KiB", 512 << 10, false},
		{"10MB", 10000000, false},
		{"10MiB", 10 << 20, false},
		{"1 GiB", 1 << 30, false},
		{"1.5k", 1500, false},
		{"fast", 0, true},
		{"-1M", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseBandwidth(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
