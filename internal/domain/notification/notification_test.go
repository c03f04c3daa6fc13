package notification

import (
	"errors"
	"testing"
	"time"

	"driver-companion/internal/general/contracts"
)

func TestParseBody(t *testing.T) {
	cases := []struct {
		name      string
		body      string
		passenger string
		pickup    string
		dropoff   string
		err       error
	}{
		{
			name:      "full body",
			body:      "Alice|12 Main St|Airport",
			passenger: "Alice", pickup: "12 Main St", dropoff: "Airport",
		},
		{
			name:      "missing dropoff",
			body:      "Bob|Central Station",
			passenger: "Bob", pickup: "Central Station",
		},
		{
			name:      "passenger only",
			body:      "Carol",
			passenger: "Carol",
		},
		{
			name:      "extra fields ignored",
			body:      "Dave|Pier 4|Old Town|XL|tip",
			passenger: "Dave", pickup: "Pier 4", dropoff: "Old Town",
		},
		{
			name:      "fields trimmed",
			body:      " Eve | North Gate | South Gate ",
			passenger: "Eve", pickup: "North Gate", dropoff: "South Gate",
		},
		{
			name:   "leading delimiter leaves passenger empty",
			body:   "|Somewhere|Elsewhere",
			pickup: "Somewhere", dropoff: "Elsewhere",
		},
		{
			name: "empty body",
			body: "",
			err:  ErrEmptyBody,
		},
		{
			name: "whitespace body",
			body: "   ",
			err:  ErrEmptyBody,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			passenger, pickup, dropoff, err := ParseBody(tc.body)
			if tc.err != nil {
				if !errors.Is(err, tc.err) {
					t.Fatalf("err = %v, want %v", err, tc.err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseBody(%q): %v", tc.body, err)
			}
			if passenger != tc.passenger || pickup != tc.pickup || dropoff != tc.dropoff {
				t.Errorf("got (%q, %q, %q), want (%q, %q, %q)",
					passenger, pickup, dropoff, tc.passenger, tc.pickup, tc.dropoff)
			}
		})
	}
}

func TestFromPush(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	n, err := FromPush(contracts.PushMessage{ID: "req-1", Body: "Alice|A|B"}, now)
	if err != nil {
		t.Fatalf("FromPush: %v", err)
	}
	if n.ID != "req-1" || n.Passenger != "Alice" || n.Pickup != "A" || n.Dropoff != "B" {
		t.Errorf("entry = %+v", n)
	}
	if !n.Pending {
		t.Error("new entries must start pending")
	}
	if n.Acknowledged {
		t.Error("new entries must not be acknowledged")
	}
	if !n.ReceivedAt.Equal(now) {
		t.Errorf("ReceivedAt = %v, want %v", n.ReceivedAt, now)
	}
}

func TestFromPushRejectsBad(t *testing.T) {
	if _, err := FromPush(contracts.PushMessage{ID: "", Body: "x|y|z"}, time.Now()); !errors.Is(err, ErrNoID) {
		t.Errorf("missing id: err = %v, want ErrNoID", err)
	}
	if _, err := FromPush(contracts.PushMessage{ID: "req-2", Body: ""}, time.Now()); !errors.Is(err, ErrEmptyBody) {
		t.Errorf("empty body: err = %v, want ErrEmptyBody", err)
	}
}
