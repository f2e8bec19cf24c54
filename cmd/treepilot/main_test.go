package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"treepilot/source"
)

var familyFile = filepath.Join("..", "..", "source", "testdata", "family.json")

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestPeopleCommand(t *testing.T) {
	out, err := run(t, "people", "-d", familyFile)
	require.NoError(t, err)
	assert.Contains(t, out, "Jane Doe")
	assert.Contains(t, out, "13 people")

	out, err = run(t, "people", "--youngest", "-d", familyFile)
	require.NoError(t, err)
	assert.Contains(t, out, "4 people")
	assert.NotContains(t, out, "Jane Doe")
}

func TestRenderCommand(t *testing.T) {
	out, err := run(t, "render", "I1", "-d", familyFile, "--ancestors", "1", "--descendants", "2")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "<svg"))
	assert.Equal(t, 9, strings.Count(out, "<circle"))

	path := filepath.Join(t.TempDir(), "jane.dot")
	_, err = run(t, "render", "I1", "-d", familyFile, "-o", path)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "digraph family")

	_, err = run(t, "render", "I404", "-d", familyFile)
	assert.Error(t, err)
	_, err = run(t, "render", "I1", "-d", familyFile, "--format", "bmp")
	assert.Error(t, err)
}

func TestDepthCommand(t *testing.T) {
	out, err := run(t, "depth", "I1", "-d", familyFile)
	require.NoError(t, err)
	assert.Contains(t, out, "Jane Doe")
	assert.Contains(t, out, "ancestors")
	assert.Contains(t, out, "descendants")
}

func TestFormatsCommand(t *testing.T) {
	out, err := run(t, "formats")
	require.NoError(t, err)
	for _, f := range []string{"svg", "html", "json", "png", "mermaid", "dot"} {
		assert.Contains(t, out, f)
	}
	assert.Contains(t, out, "CONVERT FROM")
	assert.Contains(t, out, ".yaml .yml")
}

func TestConvertCommand(t *testing.T) {
	out, err := run(t, "convert", familyFile, "--to", "yaml")
	require.NoError(t, err)

	var doc source.Document
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	assert.Len(t, doc.Individuals, 13)

	bad := filepath.Join(t.TempDir(), "loop.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"individuals":[
		{"id":"@A@","parents":["@B@"]},
		{"id":"@B@","parents":["@A@"]}]}`), 0644))
	_, err = run(t, "convert", bad)
	assert.Error(t, err)
}

func TestInvalidLogLevel(t *testing.T) {
	_, err := run(t, "people", "-d", familyFile, "--log-level", "loud")
	assert.Error(t, err)
}

func TestConvertRenderedMermaid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jane.mmd")
	_, err := run(t, "render", "I1", "-d", familyFile, "--ancestors", "1", "--descendants", "2", "-o", path)
	require.NoError(t, err)

	out, err := run(t, "convert", path)
	require.NoError(t, err)
	doc, err := source.ParseDocument([]byte(out), "json")
	require.NoError(t, err)
	assert.Len(t, doc.Individuals, 9)

	_, err = run(t, "convert", path, "--from", "gedcom")
	assert.Error(t, err)
}
