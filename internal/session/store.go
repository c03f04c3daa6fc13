package session

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	stateFile  = "session.state"
	secretFile = "machine.key"
	deviceFile = "device_id"
)

// ErrNoSession means there is no usable stored session: the driver is
// logged out. Corrupt or tampered state files read the same way.
var ErrNoSession = errors.New("no stored session")

// State is everything the client persists between runs. The session cookie
// is opaque: stored and replayed, never interpreted.
type State struct {
	SessionCookie string    `json:"session_cookie"`
	DriverID      string    `json:"driver_id"`
	DriverName    string    `json:"driver_name,omitempty"`
	PushToken     string    `json:"push_token,omitempty"`
	DeviceID      string    `json:"device_id"`
	SavedAt       time.Time `json:"saved_at"`
}

// Store reads and writes the sealed state file under a directory.
type Store struct {
	dir string
}

// NewStore creates a Store rooted at dir. The directory is created lazily
// on first Save.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// DeviceID returns the stable installation id, creating and persisting one
// on first use. It survives logout so re-logins keep the same identity.
func (s *Store) DeviceID() (string, error) {
	path := filepath.Join(s.dir, deviceFile)

	b, err := os.ReadFile(path)
	if err == nil {
		if id := strings.TrimSpace(string(b)); id != "" {
			return id, nil
		}
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("read device id: %w", err)
	}

	id := uuid.NewString()
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return "", fmt.Errorf("create state dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(id+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("write device id: %w", err)
	}
	return id, nil
}

// Load reads and unseals the stored state. Any failure short of an I/O
// error on an existing readable file means "logged out" (ErrNoSession).
func (s *Store) Load() (*State, error) {
	sealed, err := os.ReadFile(filepath.Join(s.dir, stateFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}

	deviceID, err := s.DeviceID()
	if err != nil {
		return nil, err
	}

	secret, err := s.machineSecret()
	if err != nil {
		return nil, err
	}

	plaintext, err := open(secret, deviceID, sealed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSession, err)
	}

	var st State
	if err := json.Unmarshal(plaintext, &st); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSession, err)
	}
	if strings.TrimSpace(st.SessionCookie) == "" {
		return nil, ErrNoSession
	}

	return &st, nil
}

// Save seals and writes the state file.
func (s *Store) Save(st *State) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	if st.DeviceID == "" {
		id, err := s.DeviceID()
		if err != nil {
			return err
		}
		st.DeviceID = id
	}
	st.SavedAt = time.Now().UTC()

	plaintext, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	secret, err := s.machineSecret()
	if err != nil {
		return err
	}

	sealed, err := seal(secret, st.DeviceID, plaintext)
	if err != nil {
		return err
	}

	// write-then-rename so a crash mid-write cannot leave a half state file
	tmp := filepath.Join(s.dir, stateFile+".tmp")
	if err := os.WriteFile(tmp, sealed, 0o600); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(s.dir, stateFile)); err != nil {
		return fmt.Errorf("commit state file: %w", err)
	}
	return nil
}

// Clear removes the stored session, returning the client to logged out.
// The device id and machine secret stay.
func (s *Store) Clear() error {
	err := os.Remove(filepath.Join(s.dir, stateFile))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove state file: %w", err)
	}
	return nil
}

// machineSecret loads the random 32-byte machine secret, creating it on
// first use.
func (s *Store) machineSecret() ([]byte, error) {
	path := filepath.Join(s.dir, secretFile)

	b, err := os.ReadFile(path)
	if err == nil && len(b) == 32 {
		return b, nil
	}
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read machine secret: %w", err)
	}

	secret := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, secret); err != nil {
		return nil, fmt.Errorf("generate machine secret: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	if err := os.WriteFile(path, secret, 0o600); err != nil {
		return nil, fmt.Errorf("write machine secret: %w", err)
	}
	return secret, nil
}
