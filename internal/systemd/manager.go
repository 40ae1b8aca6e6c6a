// Package systemd controls the media server service and reads its journal.
package systemd

import (
	"context"
	"fmt"
	"strings"

	"github.com/coreos/go-systemd/v22/dbus"

	"github.com/scsiexpress/rcsm/internal/probe"
)

// ServiceManager abstracts systemd unit control so the supervisor can be
// tested without a D-Bus connection.
type ServiceManager interface {
	StartService(ctx context.Context, serviceName string) error
	StopService(ctx context.Context, serviceName string) error
	IsActive(ctx context.Context, serviceName string) (bool, error)
	RecentLogs(ctx context.Context, serviceName string) string
	Close()
}

// Manager handles systemd service lifecycle operations via D-Bus on the
// system bus. Journal access shells out to journalctl.
type Manager struct {
	conn   *dbus.Conn
	runner probe.Runner
}

// NewManager connects to the system D-Bus instance. The media server unit is
// a system service, so a user connection will not see it.
func NewManager(ctx context.Context, runner probe.Runner) (*Manager, error) {
	conn, err := dbus.NewSystemConnectionContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to system bus: %w", err)
	}
	return &Manager{conn: conn, runner: runner}, nil
}

// StartService starts a systemd service using the replace mode.
func (m *Manager) StartService(ctx context.Context, serviceName string) error {
	_, err := m.conn.StartUnitContext(ctx, serviceName, "replace", nil)
	return err
}

// StopService stops a systemd service using the replace mode.
func (m *Manager) StopService(ctx context.Context, serviceName string) error {
	_, err := m.conn.StopUnitContext(ctx, serviceName, "replace", nil)
	return err
}

// ActiveState retrieves the ActiveState property of a systemd service.
func (m *Manager) ActiveState(ctx context.Context, serviceName string) (string, error) {
	prop, err := m.conn.GetUnitPropertyContext(ctx, serviceName, "ActiveState")
	if err != nil {
		return "", err
	}
	// Property values render as quoted D-Bus variants ("active").
	return strings.Trim(prop.Value.String(), `"`), nil
}

// IsActive reports whether the unit's ActiveState is "active".
func (m *Manager) IsActive(ctx context.Context, serviceName string) (bool, error) {
	state, err := m.ActiveState(ctx, serviceName)
	if err != nil {
		return false, err
	}
	return state == "active", nil
}

// RecentLogs returns the last journal entries for the unit, for inclusion in
// failure diagnostics. Errors degrade to an empty string.
func (m *Manager) RecentLogs(ctx context.Context, serviceName string) string {
	unit := strings.TrimSuffix(serviceName, ".service")
	output, err := m.runner.Run(ctx, "journalctl", "-u", unit, "-n", "20", "--no-pager")
	if err != nil {
		return ""
	}
	return output
}

// Close cleanly closes the D-Bus connection.
func (m *Manager) Close() {
	if m.conn != nil {
		m.conn.Close()
	}
}
