package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"pilotjobs/internal/config"
	"pilotjobs/internal/model"
	"pilotjobs/internal/render"
	"pilotjobs/internal/store"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() { outputDir = "" })

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestSitesCommand_PrintsDefaultTable(t *testing.T) {
	t.Setenv("PILOTJOBS_SITES_FILE", "")

	out, err := execute(t, "sites")
	require.NoError(t, err)

	var sf config.SitesFile
	require.NoError(t, yaml.Unmarshal([]byte(out), &sf))
	assert.Equal(t, config.DefaultSites(), sf.Sites)
	assert.Equal(t, config.DefaultRedFlags(), sf.RedFlags)
}

func TestRenderCommand_RebuildsIndex(t *testing.T) {
	dir := t.TempDir()
	doc := model.NewDocument()
	doc.UpdatedAt = time.Date(2026, 10, 19, 13, 0, 0, 0, time.UTC)
	doc.Today = []model.Job{{Title: "PC-12 Captain", Company: "Boutique Air", Tags: []string{"PC-12"}}}
	require.NoError(t, store.New(dir, 30).Save(doc, doc.UpdatedAt))

	out, err := execute(t, "render", "--output", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "rendered 1 job(s)")

	page, err := os.ReadFile(filepath.Join(dir, render.IndexFile))
	require.NoError(t, err)
	assert.Contains(t, string(page), "PC-12 Captain")
}

func TestRenderCommand_MalformedDocument(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, store.DocumentFile), []byte("[oops"), 0o644))

	_, err := execute(t, "render", "--output", dir)
	assert.Error(t, err)
}

func TestConfigErrorFailsCommand(t *testing.T) {
	t.Setenv("PILOTJOBS_HISTORY_DAYS", "-3")

	_, err := execute(t, "render", "--output", t.TempDir())
	assert.ErrorContains(t, err, "PILOTJOBS_HISTORY_DAYS")
}
