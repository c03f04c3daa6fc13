package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"driver-companion/internal/general/contracts"
	"driver-companion/internal/general/logger"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 2*time.Second, logger.New("test")), srv
}

func TestLoginStoresCookie(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/mobile-login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req contracts.LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode login body: %v", err)
		}
		if req.Username != "driver42" || req.Password != "hunter2" {
			t.Errorf("credentials = %+v", req)
		}
		http.SetCookie(w, &http.Cookie{Name: "sid", Value: "abc123"})
		_ = json.NewEncoder(w).Encode(contracts.LoginResponse{DriverID: "drv-1", Name: "Alice"})
	})

	c, _ := newTestClient(t, mux)

	res, err := c.Login(context.Background(), "driver42", "hunter2")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.Cookie != "sid=abc123" {
		t.Errorf("cookie = %q, want sid=abc123", res.Cookie)
	}
	if res.DriverID != "drv-1" || res.Name != "Alice" {
		t.Errorf("result = %+v", res)
	}
	if c.SessionCookie() != "sid=abc123" {
		t.Errorf("client cookie = %q", c.SessionCookie())
	}
}

func TestLoginRejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/mobile-login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	})

	c, _ := newTestClient(t, mux)

	_, err := c.Login(context.Background(), "driver42", "wrong")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

func TestLoginWithoutCookieFails(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/mobile-login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		_ = json.NewEncoder(w).Encode(contracts.LoginResponse{DriverID: "drv-1"})
	})

	c, _ := newTestClient(t, mux)

	if _, err := c.Login(context.Background(), "driver42", "hunter2"); err == nil {
		t.Fatal("expected error when server sets no cookie")
	}
}

func TestPushTokenReplaysCookie(t *testing.T) {
	var gotCookie string
	var gotReq contracts.PushTokenRequest

	mux := http.NewServeMux()
	mux.HandleFunc("/api/push-token", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		gotCookie = r.Header.Get("Cookie")
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		w.WriteHeader(http.StatusOK)
	})

	c, _ := newTestClient(t, mux)
	c.SetSessionCookie("sid=abc123")

	err := c.RegisterPushToken(context.Background(), contracts.PushTokenRequest{
		Token:    "tok-1",
		Platform: "websocket",
		DeviceID: "dev-1",
	})
	if err != nil {
		t.Fatalf("RegisterPushToken: %v", err)
	}
	if gotCookie != "sid=abc123" {
		t.Errorf("cookie header = %q", gotCookie)
	}
	if gotReq.Token != "tok-1" || gotReq.Platform != "websocket" || gotReq.DeviceID != "dev-1" {
		t.Errorf("request = %+v", gotReq)
	}
}

func TestAuthenticatedCallWithoutCookie(t *testing.T) {
	c, _ := newTestClient(t, http.NewServeMux())

	if err := c.RegisterPushToken(context.Background(), contracts.PushTokenRequest{Token: "t"}); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("register: err = %v, want ErrUnauthorized", err)
	}
	if _, err := c.RequestStatus(context.Background()); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("request-status: err = %v, want ErrUnauthorized", err)
	}
}

func TestUnregisterPushToken(t *testing.T) {
	var gotMethod string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/push-token", func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		w.WriteHeader(http.StatusOK)
	})

	c, _ := newTestClient(t, mux)
	c.SetSessionCookie("sid=abc123")

	if err := c.UnregisterPushToken(context.Background()); err != nil {
		t.Fatalf("UnregisterPushToken: %v", err)
	}
	if gotMethod != http.MethodDelete {
		t.Errorf("method = %q, want DELETE", gotMethod)
	}
}

func TestRequestStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/request-status", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		_ = json.NewEncoder(w).Encode(contracts.RequestStatusResponse{Pending: []string{"n1", "n3"}})
	})

	c, _ := newTestClient(t, mux)
	c.SetSessionCookie("sid=abc123")

	ids, err := c.RequestStatus(context.Background())
	if err != nil {
		t.Fatalf("RequestStatus: %v", err)
	}
	if len(ids) != 2 || ids[0] != "n1" || ids[1] != "n3" {
		t.Errorf("ids = %v", ids)
	}
}

func TestRequestStatusSessionExpired(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/request-status", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	})

	c, _ := newTestClient(t, mux)
	c.SetSessionCookie("sid=stale")

	if _, err := c.RequestStatus(context.Background()); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

func TestServerErrorMessageSurfaced(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/push-token", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(contracts.ErrorResponse{Error: "token already registered"})
	})

	c, _ := newTestClient(t, mux)
	c.SetSessionCookie("sid=abc123")

	err := c.RegisterPushToken(context.Background(), contracts.PushTokenRequest{Token: "t"})
	if err == nil {
		t.Fatal("expected error on 409")
	}
	if want := "token already registered"; !strings.Contains(err.Error(), want) {
		t.Errorf("err = %v, want substring %q", err, want)
	}
}
