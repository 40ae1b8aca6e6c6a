package session

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/scsiexpress/rcsm/internal/config"
	"github.com/scsiexpress/rcsm/internal/logging"
	"github.com/scsiexpress/rcsm/internal/probe"
)

// RecoveryLoader restores the persisted stream on boot. It runs once in the
// background and must never take the daemon down, whatever it finds on disk.
type RecoveryLoader struct {
	store   *config.Store
	session *Session
	logger  *slog.Logger

	settle time.Duration
	sleep  func(time.Duration)
	stat   func(path string) error
}

// NewRecoveryLoader creates a loader with the standard 10 second boot
// settle.
func NewRecoveryLoader(store *config.Store, session *Session) *RecoveryLoader {
	return &RecoveryLoader{
		store:   store,
		session: session,
		logger:  logging.GetLogger("recovery"),
		settle:  10 * time.Second,
		sleep:   time.Sleep,
		stat: func(path string) error {
			_, err := os.Stat(path)
			return err
		},
	}
}

// Run checks the persisted config and starts the stream when auto-start is
// enabled and the saved device still exists. Every failure is logged and
// swallowed.
func (r *RecoveryLoader) Run(ctx context.Context) {
	defer func() {
		if v := recover(); v != nil {
			r.logger.Error("panic during auto-start recovery", "panic", v)
		}
	}()

	intent, err := r.store.Load()
	if err != nil {
		if os.IsNotExist(err) {
			r.logger.Info("no saved configuration found, skipping auto-start")
		} else {
			r.logger.Error("cannot read saved configuration", "error", err)
		}
		return
	}

	if !intent.AutoStart {
		r.logger.Info("auto-start is disabled")
		return
	}

	r.logger.Info("auto-start is enabled, checking configuration")
	if err := intent.Validate(); err != nil {
		r.logger.Warn("auto-start skipped: incomplete configuration", "error", err)
		return
	}

	// Camera subsystem URIs have no device node to check.
	if !strings.HasPrefix(intent.Device, probe.LibcameraPrefix) {
		if err := r.stat(intent.Device); err != nil {
			r.logger.Warn("auto-start skipped: saved device not found", "device", intent.Device)
			return
		}
	}

	r.logger.Info("waiting for system to be ready before auto-start", "settle", r.settle)
	r.sleep(r.settle)

	r.logger.Info("auto-starting stream", "device", intent.Device, "stream", intent.StreamName)
	command, err := r.session.Start(ctx, intent)
	if err != nil {
		r.logger.Error("auto-start failed", "error", err)
		return
	}
	r.logger.Info("auto-start completed", "command", command)
}
