package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chorbdd/chor/pkg/config"
	"github.com/chorbdd/chor/pkg/loader"
)

func TestRootCommandHasExpectedSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"init", "validate", "lint", "run", "convert", "update", "version"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}
}

func TestMergeSettingsOverlaysOnlyDefaultedFields(t *testing.T) {
	s := loader.DefaultSettings()
	s.TimeoutSeconds = 5 // explicitly set by the file, must survive the merge

	cfg := config.Settings{
		TimeoutSeconds:   99,
		StopOnFailure:    true,
		ShellPath:        "zsh",
		ReportPath:       "custom/",
		ExpectedFailures: 2,
		OpenAPIRef:       "openapi.yaml",
	}

	merged := mergeSettings(s, cfg)
	assert.Equal(t, 5.0, merged.TimeoutSeconds, "file-set value must win over config")
	assert.True(t, merged.StopOnFailure)
	assert.Equal(t, "zsh", merged.ShellPath)
	assert.Equal(t, "custom/", merged.ReportPath)
	assert.Equal(t, 2, merged.ExpectedFailures)
	assert.Equal(t, "openapi.yaml", merged.OpenAPIRef)
}
