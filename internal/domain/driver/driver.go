package driver

import (
	"errors"
	"strings"
)

// Driver is the logged-in driver identity as returned by the login endpoint.
type Driver struct {
	ID     string
	Name   string
	Status Status
}

var ErrDriverIDRequired = errors.New("driver id is required")

// New creates a Driver entity, UNAVAILABLE until a push token is registered.
func New(id, name string) (*Driver, error) {
	if id = strings.TrimSpace(id); id == "" {
		return nil, ErrDriverIDRequired
	}
	return &Driver{
		ID:     id,
		Name:   strings.TrimSpace(name),
		Status: StatusUnavailable,
	}, nil
}
