package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitRepository(t *testing.T) {
	owner, repo, err := splitRepository("acme/web-app")
	require.NoError(t, err)
	assert.Equal(t, "acme", owner)
	assert.Equal(t, "web-app", repo)

	for _, bad := range []string{"acme", "/repo", "acme/", "a/b/c", ""} {
		_, _, err := splitRepository(bad)
		assert.Error(t, err, bad)
	}
}

func TestParsePositive(t *testing.T) {
	n, err := parsePositive("42", "pr")
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)

	for _, bad := range []string{"0", "-1", "abc", ""} {
		_, err := parsePositive(bad, "pr")
		assert.Error(t, err, bad)
	}
}

const pushPayload = `{
  "ref": "refs/heads/main",
  "after": "0d1a26e67d8f5eaf1f6ba5c57fc3c7d91ac0fd1c",
  "repository": {"name": "api", "owner": {"login": "acme", "name": "acme"}},
  "commits": [
    {"added": ["a.py"], "modified": [], "removed": []},
    {"added": [], "modified": ["b.go"], "removed": ["a.py"]}
  ]
}`

func TestReadPushEvent(t *testing.T) {
	ev, err := readPushEvent(strings.NewReader(pushPayload), "-")
	require.NoError(t, err)
	assert.Equal(t, "refs/heads/main", ev.GetRef())
	assert.Len(t, ev.Commits, 2)

	path := filepath.Join(t.TempDir(), "event.json")
	require.NoError(t, os.WriteFile(path, []byte(pushPayload), 0o600))
	ev, err = readPushEvent(nil, path)
	require.NoError(t, err)
	assert.Equal(t, "api", ev.GetRepo().GetName())

	_, err = readPushEvent(strings.NewReader("{"), "-")
	assert.Error(t, err)
	_, err = readPushEvent(nil, filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestPushIgnoresFeatureBranches(t *testing.T) {
	payload := strings.Replace(pushPayload, "refs/heads/main", "refs/heads/feature/x", 1)

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetIn(strings.NewReader(payload))
	root.SetArgs([]string{"push", "--env-file", filepath.Join(t.TempDir(), "none.env")})

	require.NoError(t, root.Execute())

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, true, got["skipped"])
	assert.Equal(t, "refs/heads/feature/x", got["ref"])
}

func TestVersionCommand(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "Version: dev")
	assert.Contains(t, out.String(), "SQLite Driver:")
}

func TestCommandArgs(t *testing.T) {
	tests := [][]string{
		{"index"},
		{"review", "acme/api"},
		{"fix", "acme/api", "7"},
		{"search", "acme/api"},
	}
	for _, args := range tests {
		root := newRootCmd()
		root.SetOut(&bytes.Buffer{})
		root.SetErr(&bytes.Buffer{})
		root.SetArgs(args)
		assert.Error(t, root.Execute(), strings.Join(args, " "))
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, map[string]int{"files_indexed": 3}))
	assert.Equal(t, "{\n  \"files_indexed\": 3\n}\n", buf.String())
}
