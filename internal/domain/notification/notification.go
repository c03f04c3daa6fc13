package notification

import (
	"errors"
	"strings"
	"time"

	"driver-companion/internal/general/contracts"
)

// BodyDelimiter separates the fields of a ride-request notification body.
const BodyDelimiter = "|"

var (
	ErrEmptyBody = errors.New("notification body is empty")
	ErrNoID      = errors.New("notification id is required")
)

// Notification is one entry of the dashboard's rolling log: a ride request
// decoded from a push notification body.
type Notification struct {
	ID           string    `json:"id"`
	Passenger    string    `json:"passenger"`
	Pickup       string    `json:"pickup"`
	Dropoff      string    `json:"dropoff"`
	ReceivedAt   time.Time `json:"received_at"`
	Pending      bool      `json:"pending"`
	Acknowledged bool      `json:"acknowledged"`
}

// ParseBody splits a "passenger|pickup|dropoff" body. Missing fields come
// back empty, extra fields are ignored; only a blank body is an error.
func ParseBody(body string) (passenger, pickup, dropoff string, err error) {
	if strings.TrimSpace(body) == "" {
		return "", "", "", ErrEmptyBody
	}

	parts := strings.Split(body, BodyDelimiter)
	if len(parts) > 0 {
		passenger = strings.TrimSpace(parts[0])
	}
	if len(parts) > 1 {
		pickup = strings.TrimSpace(parts[1])
	}
	if len(parts) > 2 {
		dropoff = strings.TrimSpace(parts[2])
	}
	return passenger, pickup, dropoff, nil
}

// FromPush decodes a push message into a log entry. New entries start out
// pending; the request-status poll may flip them later.
func FromPush(msg contracts.PushMessage, receivedAt time.Time) (Notification, error) {
	if strings.TrimSpace(msg.ID) == "" {
		return Notification{}, ErrNoID
	}

	passenger, pickup, dropoff, err := ParseBody(msg.Body)
	if err != nil {
		return Notification{}, err
	}

	return Notification{
		ID:         msg.ID,
		Passenger:  passenger,
		Pickup:     pickup,
		Dropoff:    dropoff,
		ReceivedAt: receivedAt.UTC(),
		Pending:    true,
	}, nil
}
