package push

import (
	"context"
	"fmt"
	"time"

	"driver-companion/internal/general/config"
	"driver-companion/internal/general/contracts"
	"driver-companion/internal/general/logger"
	"driver-companion/internal/session"
)

// Listener is a long-lived push transport. Run blocks, reconnecting with
// backoff on failures, until ctx is cancelled; it only returns an error for
// conditions reconnecting cannot fix. Messages delivers decoded envelopes.
type Listener interface {
	Run(ctx context.Context) error
	Messages() <-chan contracts.PushMessage
}

// NewListener builds the transport selected in config.
func NewListener(cfg *config.Config, st *session.State, lg *logger.Logger) (Listener, error) {
	switch cfg.Push.Transport {
	case contracts.TransportWebSocket:
		return NewWSListener(cfg.Push.GatewayURL, st.SessionCookie, st.DeviceID, lg), nil

	case contracts.TransportAMQP:
		url := fmt.Sprintf("amqp://%s:%s@%s:%d/",
			cfg.Push.AMQPUser, cfg.Push.AMQPPassword, cfg.Push.AMQPHost, cfg.Push.AMQPPort)
		return NewAMQPListener(url, st.DriverID, cfg.Push.Prefetch, lg), nil

	default:
		return nil, fmt.Errorf("unknown push transport %q", cfg.Push.Transport)
	}
}

// nextBackoff doubles the delay up to a 30s cap.
func nextBackoff(cur time.Duration) time.Duration {
	if cur >= 30*time.Second {
		return 30 * time.Second
	}
	cur *= 2
	if cur > 30*time.Second {
		cur = 30 * time.Second
	}
	return cur
}

// sleepCtx waits for d or until ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
