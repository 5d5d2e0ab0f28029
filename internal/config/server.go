package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/nyxbridge/steamdsu/control"
	"github.com/nyxbridge/steamdsu/dsu"
	"github.com/nyxbridge/steamdsu/internal/configpaths"
	steamdsulog "github.com/nyxbridge/steamdsu/internal/log"
	"github.com/nyxbridge/steamdsu/transport/hidraw"
)

const keyFileName = "steamdsud.key.txt"

// ServerCmd runs the DSU UDP server, the local control API, and (on
// Linux) the hidraw-backed Steam Controller/Deck input pipeline.
type ServerCmd struct {
	Addr string `default:"0.0.0.0" help:"UDP bind address" env:"STEAMDSU_ADDR"`
	Port uint16 `default:"26760" help:"UDP bind port (Cemuhook's conventional default)" env:"STEAMDSU_PORT"`

	ClientTimeout time.Duration `default:"5s" help:"How long a client subscription is honored without renewal" env:"STEAMDSU_CLIENT_TIMEOUT"`

	HIDDevice string `help:"hidraw device node to read (auto-detected by USB vendor/product ID if unset)" env:"STEAMDSU_HID_DEVICE"`

	Control control.ServerConfig `embed:"" prefix:"control."`
}

// Run is invoked by Kong when the server command is selected.
func (s *ServerCmd) Run(logger *slog.Logger, rawLogger steamdsulog.RawLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return s.startServer(ctx, logger, rawLogger)
}

func (s *ServerCmd) startServer(ctx context.Context, logger *slog.Logger, rawLogger steamdsulog.RawLogger) error {
	if err := s.resolveControlKey(logger); err != nil {
		return err
	}

	dsuSrv := dsu.New(
		dsu.WithLogger(logger),
		dsu.WithRawLogger(rawLogger),
		dsu.WithClientTimeout(s.ClientTimeout),
	)
	if err := dsuSrv.Start(s.Addr, s.Port); err != nil {
		return fmt.Errorf("start dsu server: %w", err)
	}
	defer func() { _ = dsuSrv.Stop() }()

	_, closeCtrl := s.attachController(dsuSrv, logger)
	defer closeCtrl()

	controlSrv, err := control.New(dsuSrv, s.Control, logger)
	if err != nil {
		return fmt.Errorf("build control server: %w", err)
	}
	if err := controlSrv.Start(); err != nil {
		return fmt.Errorf("start control server: %w", err)
	}
	defer controlSrv.Close()

	logger.Info("steamdsud running", "dsu_addr", dsuSrv.Addr(), "control_addr", s.Control.Addr)

	dsuErrs := dsuSrv.Errors()
	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return nil
		case err, ok := <-dsuErrs:
			if !ok {
				return nil
			}
			logger.Warn("dsu server error", "error", err)
		}
	}
}

// attachController opens the configured (or auto-detected) hidraw device
// and installs it as controller slot 0. Failure to find a device is
// logged, not fatal: the DSU server still runs and simply reports zero
// occupied slots until a controller shows up.
func (s *ServerCmd) attachController(dsuSrv *dsu.Server, logger *slog.Logger) (*hidraw.Controller, func()) {
	path := s.HIDDevice
	if path == "" {
		var err error
		path, err = hidraw.FindDevice(hidraw.ValveVendorID, hidraw.SteamDeckProductID)
		if err != nil {
			path, err = hidraw.FindDevice(hidraw.ValveVendorID, hidraw.SteamControllerPID)
		}
		if err != nil {
			logger.Warn("no Steam Controller/Deck hidraw device found; running without a local controller", "error", err)
			return nil, func() {}
		}
	}

	dev, err := hidraw.Open(path)
	if err != nil {
		logger.Warn("failed to open hidraw device", "path", path, "error", err)
		return nil, func() {}
	}

	meta := dsu.Meta{
		State:          dsu.PadConnected,
		Model:          dsu.ModelFull,
		ConnectionType: dsu.ConnUSB,
		IsActive:       true,
	}
	ctrl := hidraw.New(dev, meta)
	if assigned, idx := dsuSrv.AddController(ctrl); assigned {
		logger.Info("attached local controller", "device", path, "slot", idx)
	} else {
		logger.Warn("no free controller slot for local device", "device", path)
		ctrl.Close()
		return nil, func() {}
	}
	return ctrl, ctrl.Close
}

// resolveControlKey loads a persisted control API key, or generates and
// persists a new one, unless the caller already provided one explicitly.
func (s *ServerCmd) resolveControlKey(logger *slog.Logger) error {
	if s.Control.Key != "" {
		return nil
	}

	dir, err := configpaths.DefaultConfigDir()
	if err != nil {
		return fmt.Errorf("resolve key file directory: %w", err)
	}
	keyPath := filepath.Join(dir, keyFileName)

	if data, err := os.ReadFile(keyPath); err == nil {
		s.Control.Key = strings.TrimSpace(string(data))
		return nil
	}

	key, err := control.GenerateKey()
	if err != nil {
		return fmt.Errorf("generate control api key: %w", err)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(keyPath, []byte(key), 0o600); err != nil {
		return fmt.Errorf("write control api key: %w", err)
	}
	s.Control.Key = key
	logger.Info("generated control api key", "path", keyPath)
	return nil
}
