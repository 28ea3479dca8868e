package wizard

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chorbdd/chor/pkg/parser"
)

func TestRenderFeatureSingleActorParsesCleanly(t *testing.T) {
	r := &Result{FeatureName: "orders", Actors: []string{"Web"}, ShellPath: "sh", TimeoutSecs: 30}
	src := renderFeature(r)

	_, err := parser.Parse(src)
	require.NoError(t, err)
	assert.Contains(t, src, `feature "orders"`)
	assert.Contains(t, src, "actor Web")
}

func TestRenderFeatureMultiActorParsesCleanly(t *testing.T) {
	r := &Result{FeatureName: "api", Actors: []string{"Web", "System"}, ShellPath: "sh", TimeoutSecs: 30}
	src := renderFeature(r)

	_, err := parser.Parse(src)
	require.NoError(t, err)
	assert.Contains(t, src, "actors {")
}

func TestRenderFeatureNoActorsDefaultsToSystem(t *testing.T) {
	r := &Result{FeatureName: "bare", TimeoutSecs: 30}
	src := renderFeature(r)

	_, err := parser.Parse(src)
	require.NoError(t, err)
	assert.Contains(t, src, "actor System")
}

func TestWriteFeatureFileRefusesToOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "orders.chor")
	require.NoError(t, os.WriteFile(path, []byte("existing"), 0o644))

	err := WriteFeatureFile(path, &Result{FeatureName: "orders", TimeoutSecs: 30})
	assert.Error(t, err)
}

func TestWriteFeatureFileWritesSkeleton(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "orders.chor")

	require.NoError(t, WriteFeatureFile(path, &Result{FeatureName: "orders", Actors: []string{"Web"}, TimeoutSecs: 30}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `feature "orders"`)
}
