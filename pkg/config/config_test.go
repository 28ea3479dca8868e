package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsMatchLoaderDefaults(t *testing.T) {
	d := Defaults()
	assert.Equal(t, 30.0, d.TimeoutSeconds)
	assert.False(t, d.StopOnFailure)
	assert.Equal(t, "sh", d.ShellPath)
	assert.Equal(t, "reports/", d.ReportPath)
	assert.Equal(t, 0, d.ExpectedFailures)
}

func TestLoadFallsBackToDefaultsWhenConfigMissing(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer func() { _ = os.Chdir(cwd) }()

	s, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), s)
}

func TestWriteThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer func() { _ = os.Chdir(cwd) }()

	want := Settings{
		TimeoutSeconds:   15,
		StopOnFailure:    true,
		ShellPath:        "bash",
		ReportPath:       "out/",
		ExpectedFailures: 2,
		OpenAPIRef:       "openapi.yaml",
	}
	require.NoError(t, Write(want))
	assert.FileExists(t, filepath.Join(FolderName, "config.yaml"))

	got, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestToLoaderSettingsCarriesAllFields(t *testing.T) {
	s := Settings{
		TimeoutSeconds:   5,
		StopOnFailure:    true,
		ShellPath:        "zsh",
		ReportPath:       "r/",
		ExpectedFailures: 1,
		OpenAPIRef:       "spec.yaml",
	}
	ls := s.ToLoaderSettings()
	assert.Equal(t, s.TimeoutSeconds, ls.TimeoutSeconds)
	assert.Equal(t, s.StopOnFailure, ls.StopOnFailure)
	assert.Equal(t, s.ShellPath, ls.ShellPath)
	assert.Equal(t, s.ReportPath, ls.ReportPath)
	assert.Equal(t, s.ExpectedFailures, ls.ExpectedFailures)
	assert.Equal(t, s.OpenAPIRef, ls.OpenAPIRef)
}
