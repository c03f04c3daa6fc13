package dashboard

import (
	"context"
	"errors"
	"time"

	"driver-companion/internal/api"
	"driver-companion/internal/control"
	dashsvc "driver-companion/internal/dashboard"
	"driver-companion/internal/general/config"
	"driver-companion/internal/general/logger"
	"driver-companion/internal/push"
	"driver-companion/internal/session"

	"github.com/joho/godotenv"
)

// Run wires the dashboard and blocks until ctx is cancelled.
func Run(ctx context.Context, cfgPath string, pollSeconds, capacity int) error {
	// .env first so ${VAR} config scalars resolve
	_ = godotenv.Load()

	lg := logger.New("dashboard")
	ctx = lg.WithRequestID(ctx, "startup-001")

	cfg, err := config.LoadFromFile(cfgPath)
	if err != nil {
		lg.Error(ctx, "config_load_failed", "Failed to load configuration", err, nil)
		return err
	}

	// flag overrides beat config file values
	if pollSeconds > 0 {
		cfg.Log.PollIntervalSeconds = pollSeconds
	}
	if capacity > 0 {
		cfg.Log.Capacity = capacity
	}

	store := session.NewStore(cfg.Storage.StateDir)
	state, err := store.Load()
	if err != nil {
		if errors.Is(err, session.ErrNoSession) {
			lg.Error(ctx, "not_logged_in", "No stored session; run --mode=login first", err, nil)
			return errors.New("not logged in: run --mode=login first")
		}
		lg.Error(ctx, "session_load_failed", "Failed to load stored session", err, nil)
		return err
	}

	client := api.NewClient(cfg.Server.BaseURL, time.Duration(cfg.Server.TimeoutSeconds)*time.Second, lg)
	client.SetSessionCookie(state.SessionCookie)

	listener, err := push.NewListener(cfg, state, lg)
	if err != nil {
		lg.Error(ctx, "push_setup_failed", "Failed to build push listener", err, nil)
		return err
	}

	svc, err := dashsvc.New(cfg, lg, client, listener, state, store)
	if err != nil {
		lg.Error(ctx, "session_invalid", "Stored session is unusable; run --mode=login again", err, nil)
		return err
	}

	// control API serves the dashboard state and the deep-link route
	ctl := control.New(cfg.Control.Addr, svc, lg)
	ctlErr := make(chan error, 1)
	go func() {
		ctlErr <- ctl.ListenAndServe(ctx)
	}()

	runErr := svc.Run(ctx)

	// the control server stops with ctx; surface whichever failed first
	if err := <-ctlErr; err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}
