// Package terminal owns the single PTY child a scenario's Terminal actor
// runs commands against (spec.md §4.6: "owns one PTY child ... the combined
// stream persists so assertions like output_contains can reference the most
// recent command's output").
package terminal

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/creack/pty"
	"golang.org/x/term"

	"github.com/chorbdd/chor/pkg/world"
)

// Backend spawns shellPath once and keeps it alive for the life of a
// scenario, so state a command leaves behind (cd, exported variables)
// is visible to the next `run`.
type Backend struct {
	mu      sync.Mutex
	buf     bytes.Buffer
	file    *os.File
	cmd     *exec.Cmd
	timeout time.Duration
	counter uint64
}

// New starts shellPath under a pseudo-terminal and begins draining its
// output in the background. The pty is put in raw mode so the line
// discipline doesn't echo what we write back into the same stream we scan
// for the completion marker.
func New(shellPath string, timeout time.Duration) (*Backend, error) {
	cmd := exec.Command(shellPath)
	f, err := pty.Start(cmd)
	if err != nil {
		return nil, fmt.Errorf("terminal: failed to start %q: %w", shellPath, err)
	}
	if _, err := term.MakeRaw(int(f.Fd())); err != nil {
		_ = f.Close()
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		return nil, fmt.Errorf("terminal: failed to set raw mode: %w", err)
	}
	b := &Backend{file: f, cmd: cmd, timeout: timeout}
	go b.drain()
	return b, nil
}

func (b *Backend) drain() {
	chunk := make([]byte, 4096)
	for {
		n, err := b.file.Read(chunk)
		if n > 0 {
			b.mu.Lock()
			b.buf.Write(chunk[:n])
			b.mu.Unlock()
		}
		if err != nil {
			return
		}
	}
}

// Run submits command to the shell, waits for it to exit (bounded by the
// backend's timeout), and returns the combined stream plus exit code.
// stderr is additionally diverted to a scratch file so it can be exposed
// on its own (world.TerminalOutcome.Stderr), but the command immediately
// cats that file back before the marker line, so the pty's "combined"
// transcript still carries stdout and stderr both (spec.md §4.6: "the
// combined stream persists"), just with stderr appended after stdout
// rather than interleaved line-by-line. A begin marker echoed ahead of the
// command bounds the start of the output, so a shell prompt printed before
// it is not part of the combined stream.
func (b *Backend) Run(command string) (world.TerminalOutcome, error) {
	marker := fmt.Sprintf("__chor_%d_%d__", os.Getpid(), atomic.AddUint64(&b.counter, 1))

	stderrFile, err := os.CreateTemp("", "chor-stderr-*")
	if err != nil {
		return world.TerminalOutcome{}, fmt.Errorf("terminal: cannot create stderr capture file: %w", err)
	}
	stderrPath := stderrFile.Name()
	_ = stderrFile.Close()
	defer os.Remove(stderrPath)

	b.mu.Lock()
	b.buf.Reset()
	b.mu.Unlock()

	begin := marker + "_begin"
	line := fmt.Sprintf("echo %s; { %s; } 2>%s; ec=$?; cat %s; echo %s:$ec\n", begin, command, stderrPath, stderrPath, marker)
	if _, err := b.file.Write([]byte(line)); err != nil {
		return world.TerminalOutcome{}, fmt.Errorf("terminal: write failed: %w", err)
	}

	deadline := time.Now().Add(b.timeout)
	for {
		b.mu.Lock()
		snapshot := b.buf.String()
		b.mu.Unlock()

		if idx := strings.Index(snapshot, marker+":"); idx >= 0 {
			rest := snapshot[idx+len(marker)+1:]
			code := rest
			if end := strings.IndexAny(rest, "\r\n"); end >= 0 {
				code = rest[:end]
			}
			exitCode, _ := strconv.Atoi(strings.TrimSpace(code))
			combined := snapshot[:idx]
			if s := strings.Index(combined, begin); s >= 0 {
				combined = strings.TrimPrefix(strings.TrimPrefix(combined[s+len(begin):], "\r"), "\n")
			}
			combined = strings.TrimRight(combined, "\r\n")
			stderrBytes, _ := os.ReadFile(stderrPath)
			return world.TerminalOutcome{
				Present:  true,
				Exited:   true,
				Combined: combined,
				Stdout:   combined,
				Stderr:   string(stderrBytes),
				ExitCode: exitCode,
			}, nil
		}

		if time.Now().After(deadline) {
			return world.TerminalOutcome{}, fmt.Errorf("terminal: command timed out after %s", b.timeout)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

// Close kills the shell and releases the PTY; called once at scenario end
// regardless of outcome (spec.md §4.5 "Drop backends").
func (b *Backend) Close() error {
	_ = b.file.Close()
	if b.cmd.Process != nil {
		_ = b.cmd.Process.Kill()
	}
	return b.cmd.Wait()
}
