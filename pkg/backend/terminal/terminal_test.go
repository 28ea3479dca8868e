package terminal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	b, err := New("sh", 5*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestRunSuccessReturnsExitCodeZero(t *testing.T) {
	b := newTestBackend(t)
	out, err := b.Run("true")
	require.NoError(t, err)
	assert.True(t, out.Exited)
	assert.Equal(t, 0, out.ExitCode)
}

func TestRunFailureReturnsNonZeroExitCode(t *testing.T) {
	b := newTestBackend(t)
	out, err := b.Run("false")
	require.NoError(t, err)
	assert.Equal(t, 1, out.ExitCode)
}

func TestRunCombinedDoesNotLeakEchoedInputOrMarker(t *testing.T) {
	b := newTestBackend(t)
	out, err := b.Run("echo hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", out.Combined)
	assert.NotContains(t, out.Combined, "__chor_")
	assert.NotContains(t, out.Combined, "echo hello")
}

func TestRunCapturesStderrAndAppendsItToCombined(t *testing.T) {
	b := newTestBackend(t)
	out, err := b.Run("echo out; echo oops 1>&2")
	require.NoError(t, err)
	assert.Contains(t, out.Stderr, "oops")
	assert.Contains(t, out.Combined, "out")
	assert.Contains(t, out.Combined, "oops")
}

func TestRunTracksShellStateAcrossCommands(t *testing.T) {
	b := newTestBackend(t)
	_, err := b.Run("cd /tmp")
	require.NoError(t, err)
	out, err := b.Run("pwd")
	require.NoError(t, err)
	assert.Contains(t, out.Combined, "/tmp")
}
