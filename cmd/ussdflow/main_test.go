package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--config", filepath.Join(t.TempDir(), "missing.yaml")))
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestTemplateRender(t *testing.T) {
	out := execute(t, "template", "render", "--type", "cash_out", "--phone", "+233 24 412 3456", "--amount", "100")
	assert.Equal(t, "*171*2*1*0244123456*0244123456*100#\n", out)
}

func TestTemplateDetect(t *testing.T) {
	out := execute(t, "template", "detect", "020 123 4567")
	assert.Equal(t, "0201234567\tVodafone/Telecel\tvalid=true\n", out)
}

func TestVersion(t *testing.T) {
	assert.Contains(t, execute(t, "version"), "ussdflow version")
}

func TestGraph(t *testing.T) {
	out := execute(t, "graph", "--type", "balance")
	assert.Contains(t, out, "graph TD")
	assert.Contains(t, out, "sub_menu --> processing")
}
