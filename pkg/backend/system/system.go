// Package system backs the System actor: pause/log/uuid/timestamp actions,
// and the port/service probes pkg/condition calls through the
// condition.PortProbe/ServiceProbe interfaces (spec.md §4.2, §4.3).
package system

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/coreos/go-systemd/v22/dbus"
	"github.com/google/uuid"
)

// Backend groups the System actor's actions. Log writes to stderr in the
// teacher's plain-stderr diagnostic style; nothing here depends on the
// scenario's World.
type Backend struct{}

func New() *Backend { return &Backend{} }

func (b *Backend) Pause(durationArg string) error {
	d, err := time.ParseDuration(durationArg)
	if err != nil {
		if n, numErr := strconv.ParseFloat(durationArg, 64); numErr == nil {
			d = time.Duration(n * float64(time.Second))
		} else {
			return fmt.Errorf("system: invalid pause duration %q: %w", durationArg, err)
		}
	}
	time.Sleep(d)
	return nil
}

func (b *Backend) Log(message string) {
	fmt.Fprintln(os.Stderr, message)
}

func (b *Backend) UUID() string {
	return uuid.NewString()
}

func (b *Backend) Timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// PortProbe dials the port on localhost with a short timeout.
type PortProbe struct{}

func (PortProbe) IsListening(port int) bool {
	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(port))
	conn, err := net.DialTimeout("tcp", addr, 500*time.Millisecond)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// ServiceProbe queries systemd over D-Bus for unit state, grounded on the
// teacher's use of coreos/go-systemd/v22 for unit inspection.
type ServiceProbe struct{}

func unitName(name string) string {
	if len(name) > 8 && name[len(name)-8:] == ".service" {
		return name
	}
	return name + ".service"
}

func (ServiceProbe) IsRunning(name string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	conn, err := dbus.NewSystemConnectionContext(ctx)
	if err != nil {
		return false, fmt.Errorf("system: cannot connect to systemd: %w", err)
	}
	defer conn.Close()

	unit := unitName(name)
	props, err := conn.GetUnitPropertiesContext(ctx, unit)
	if err != nil {
		return false, fmt.Errorf("system: cannot query unit %q: %w", unit, err)
	}
	state, _ := props["ActiveState"].(string)
	return state == "active", nil
}

func (ServiceProbe) IsInstalled(name string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	conn, err := dbus.NewSystemConnectionContext(ctx)
	if err != nil {
		return false, fmt.Errorf("system: cannot connect to systemd: %w", err)
	}
	defer conn.Close()

	unit := unitName(name)
	props, err := conn.GetUnitPropertiesContext(ctx, unit)
	if err != nil {
		return false, fmt.Errorf("system: cannot query unit %q: %w", unit, err)
	}
	loadState, _ := props["LoadState"].(string)
	return loadState != "not-found", nil
}
