package logout

import (
	"context"
	"errors"
	"time"

	"driver-companion/internal/api"
	"driver-companion/internal/general/config"
	"driver-companion/internal/general/logger"
	"driver-companion/internal/session"

	"github.com/joho/godotenv"
)

// Run unregisters the device (best effort) and wipes the stored session.
func Run(ctx context.Context, cfgPath string) error {
	_ = godotenv.Load()

	lg := logger.New("logout")
	ctx = lg.WithRequestID(ctx, "logout-001")

	cfg, err := config.LoadFromFile(cfgPath)
	if err != nil {
		lg.Error(ctx, "config_load_failed", "Failed to load configuration", err, nil)
		return err
	}

	store := session.NewStore(cfg.Storage.StateDir)
	state, err := store.Load()
	if err != nil {
		if errors.Is(err, session.ErrNoSession) {
			lg.Info(ctx, "already_logged_out", "No stored session; nothing to do", nil)
			return nil
		}
		lg.Error(ctx, "session_load_failed", "Failed to load stored session", err, nil)
		return err
	}

	// unregister is best effort: a dead server must not block logout
	client := api.NewClient(cfg.Server.BaseURL, time.Duration(cfg.Server.TimeoutSeconds)*time.Second, lg)
	client.SetSessionCookie(state.SessionCookie)
	if err := client.UnregisterPushToken(ctx); err != nil {
		lg.Error(ctx, "push_token_unregister_failed", "Could not unregister push token; clearing session anyway", err, nil)
	}

	if err := store.Clear(); err != nil {
		lg.Error(ctx, "session_clear_failed", "Failed to clear stored session", err, nil)
		return err
	}

	lg.Info(ctx, "logged_out", "Session cleared",
		map[string]any{"driver_id": state.DriverID})
	return nil
}
