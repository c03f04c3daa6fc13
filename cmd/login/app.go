package login

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"driver-companion/internal/api"
	"driver-companion/internal/general/config"
	"driver-companion/internal/general/logger"
	"driver-companion/internal/session"

	"github.com/joho/godotenv"
)

// Run performs the login flow: credentials in, session cookie stored.
func Run(ctx context.Context, cfgPath, username, password string) error {
	// .env first so ${VAR} config scalars resolve
	_ = godotenv.Load()

	lg := logger.New("login")
	ctx = lg.WithRequestID(ctx, "login-001")

	cfg, err := config.LoadFromFile(cfgPath)
	if err != nil {
		lg.Error(ctx, "config_load_failed", "Failed to load configuration", err, nil)
		return err
	}

	username = strings.TrimSpace(username)
	if username == "" {
		username, err = prompt("Username: ")
		if err != nil {
			return err
		}
	}
	if password == "" {
		password, err = prompt("Password: ")
		if err != nil {
			return err
		}
	}
	if username == "" || password == "" {
		return errors.New("username and password are required")
	}

	store := session.NewStore(cfg.Storage.StateDir)
	deviceID, err := store.DeviceID()
	if err != nil {
		lg.Error(ctx, "device_id_failed", "Failed to load device id", err, nil)
		return err
	}

	client := api.NewClient(cfg.Server.BaseURL, time.Duration(cfg.Server.TimeoutSeconds)*time.Second, lg)

	res, err := client.Login(ctx, username, password)
	if err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			lg.Error(ctx, "login_rejected", "Invalid username or password", err, nil)
			return errors.New("login failed: invalid username or password")
		}
		lg.Error(ctx, "login_failed", "Login request failed", err, nil)
		return err
	}

	st := &session.State{
		SessionCookie: res.Cookie,
		DriverID:      res.DriverID,
		DriverName:    res.Name,
		DeviceID:      deviceID,
	}
	if err := store.Save(st); err != nil {
		lg.Error(ctx, "session_save_failed", "Failed to persist session", err, nil)
		return err
	}

	lg.Info(ctx, "session_saved", "Session stored; run the dashboard to go available",
		map[string]any{"driver_id": res.DriverID, "state_dir": cfg.Storage.StateDir})
	return nil
}

// prompt reads one line from stdin.
func prompt(label string) (string, error) {
	fmt.Fprint(os.Stderr, label)
	sc := bufio.NewScanner(os.Stdin)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", err
		}
		return "", errors.New("no input")
	}
	return strings.TrimSpace(sc.Text()), nil
}
