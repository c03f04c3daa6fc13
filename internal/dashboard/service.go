package dashboard

import (
	"context"
	"sync"
	"time"

	"driver-companion/internal/api"
	"driver-companion/internal/domain/driver"
	"driver-companion/internal/domain/notification"
	"driver-companion/internal/general/config"
	"driver-companion/internal/general/contracts"
	"driver-companion/internal/general/logger"
	"driver-companion/internal/notifylog"
	"driver-companion/internal/push"
	"driver-companion/internal/session"

	"github.com/google/uuid"
)

// Snapshot is the dashboard state served by the control API.
type Snapshot struct {
	DriverID   string        `json:"driver_id"`
	DriverName string        `json:"driver_name,omitempty"`
	Status     driver.Status `json:"status"`
	Transport  string        `json:"transport"`
	LogSize    int           `json:"log_size"`
}

// Service is the dashboard: it registers the push token, consumes incoming
// ride-request notifications into the rolling log, and keeps the log
// reconciled against the server's pending set.
type Service struct {
	cfg      *config.Config
	logger   *logger.Logger
	api      *api.Client
	listener push.Listener
	log      *notifylog.Log
	state    *session.State
	store    *session.Store

	mu  sync.RWMutex // guards drv.Status and state.PushToken
	drv *driver.Driver
}

// New wires a dashboard service. The session state must be logged in; a
// state without a driver id is unusable.
func New(
	cfg *config.Config,
	lg *logger.Logger,
	apiClient *api.Client,
	listener push.Listener,
	state *session.State,
	store *session.Store,
) (*Service, error) {
	drv, err := driver.New(state.DriverID, state.DriverName)
	if err != nil {
		return nil, err
	}
	return &Service{
		cfg:      cfg,
		logger:   lg,
		api:      apiClient,
		listener: listener,
		log:      notifylog.New(cfg.Log.Capacity),
		state:    state,
		store:    store,
		drv:      drv,
	}, nil
}

// Run registers the push token, starts the listener and the status poller,
// and consumes notifications until ctx is cancelled. Registration failure
// is an alert, not a crash: the dashboard stays up so availability can be
// retoggled through the control API.
func (s *Service) Run(ctx context.Context) error {
	if err := s.SetAvailable(ctx, true); err != nil {
		s.logger.Error(ctx, "availability_failed", "Could not register push token; staying UNAVAILABLE", err, nil)
	}

	// best-effort unregister on shutdown; fresh context because ctx is done
	defer func() {
		offCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.SetAvailable(offCtx, false); err != nil {
			s.logger.Error(offCtx, "availability_failed", "Could not unregister push token on shutdown", err, nil)
		}
	}()

	go func() {
		if err := s.listener.Run(ctx); err != nil {
			s.logger.Error(ctx, "push_listener_failed", "Push listener stopped", err, nil)
		}
	}()

	ticker := time.NewTicker(time.Duration(s.cfg.Log.PollIntervalSeconds) * time.Second)
	defer ticker.Stop()

	s.logger.Info(ctx, "dashboard_started", "Dashboard running",
		map[string]any{"driver_id": s.state.DriverID, "transport": s.cfg.Push.Transport})

	for {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "dashboard_stopped", "Dashboard shutting down", nil)
			return nil

		case msg := <-s.listener.Messages():
			s.handlePush(ctx, msg)

		case <-ticker.C:
			s.refreshPending(ctx)
		}
	}
}

// handlePush decodes one push message into the log.
func (s *Service) handlePush(ctx context.Context, msg contracts.PushMessage) {
	nctx := s.logger.WithNotificationID(ctx, msg.ID)

	n, err := notification.FromPush(msg, time.Now())
	if err != nil {
		// malformed push: alert and return to idle, per the app's contract
		s.logger.Error(nctx, "notification_malformed", "Dropping malformed ride request notification", err,
			map[string]any{"body": msg.Body})
		return
	}

	if !s.log.Append(n) {
		s.logger.Debug(nctx, "notification_duplicate", "Duplicate notification id ignored", nil)
		return
	}

	s.logger.Info(nctx, "notification_received", "Ride request logged",
		map[string]any{
			"passenger": n.Passenger,
			"pickup":    n.Pickup,
			"dropoff":   n.Dropoff,
			"log_size":  s.log.Len(),
		})
}

// refreshPending reconciles the log with the server's pending set. Poll
// failures only log; the previous flags stand until the next poll.
func (s *Service) refreshPending(ctx context.Context) {
	reqCtx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.Server.TimeoutSeconds)*time.Second)
	defer cancel()

	ids, err := s.api.RequestStatus(reqCtx)
	if err != nil {
		s.logger.Error(ctx, "request_status_failed", "Could not refresh pending set", err, nil)
		return
	}

	s.log.ApplyPending(ids)
	s.logger.Debug(ctx, "pending_refreshed", "Pending set reconciled",
		map[string]any{"pending": len(ids)})
}

// SetAvailable toggles availability by registering or unregistering the
// push token.
func (s *Service) SetAvailable(ctx context.Context, available bool) error {
	if available {
		token, err := s.pushToken()
		if err != nil {
			return err
		}
		err = s.api.RegisterPushToken(ctx, contracts.PushTokenRequest{
			Token:    token,
			Platform: s.cfg.Push.Transport,
			DeviceID: s.state.DeviceID,
		})
		if err != nil {
			return err
		}
		s.setStatus(driver.StatusAvailable)
		return nil
	}

	if err := s.api.UnregisterPushToken(ctx); err != nil {
		return err
	}
	s.setStatus(driver.StatusUnavailable)
	return nil
}

// Snapshot returns the current dashboard state.
func (s *Service) Snapshot() Snapshot {
	s.mu.RLock()
	status := s.drv.Status
	s.mu.RUnlock()

	return Snapshot{
		DriverID:   s.drv.ID,
		DriverName: s.drv.Name,
		Status:     status,
		Transport:  s.cfg.Push.Transport,
		LogSize:    s.log.Len(),
	}
}

// Entries returns the notification log, optionally filtered to the pending
// view the original dashboard showed.
func (s *Service) Entries(pendingOnly bool) []notification.Notification {
	if pendingOnly {
		return s.log.Pending()
	}
	return s.log.Entries()
}

// Acknowledge handles a notification-tap deep link against the log.
func (s *Service) Acknowledge(ctx context.Context, id string) (notification.Notification, bool) {
	n, ok := s.log.Acknowledge(id)
	if ok {
		s.logger.Info(s.logger.WithNotificationID(ctx, id), "notification_opened", "Notification acknowledged via deep link", nil)
	}
	return n, ok
}

// pushToken returns the device push token, minting and persisting one on
// first use. The lock covers check, mint, and save: SetAvailable is reachable
// from both the run loop and the control API, and two callers must not mint
// two tokens.
func (s *Service) pushToken() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.PushToken != "" {
		return s.state.PushToken, nil
	}

	s.state.PushToken = uuid.NewString()
	if err := s.store.Save(s.state); err != nil {
		s.state.PushToken = ""
		return "", err
	}
	return s.state.PushToken, nil
}

func (s *Service) setStatus(st driver.Status) {
	s.mu.Lock()
	s.drv.Status = st
	s.mu.Unlock()
}
