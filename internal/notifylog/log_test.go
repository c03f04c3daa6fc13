package notifylog

import (
	"fmt"
	"testing"
	"time"

	"driver-companion/internal/domain/notification"
)

func entry(id string) notification.Notification {
	return notification.Notification{
		ID:         id,
		Passenger:  "P-" + id,
		Pickup:     "from",
		Dropoff:    "to",
		ReceivedAt: time.Now().UTC(),
		Pending:    true,
	}
}

func TestAppendNewestFirst(t *testing.T) {
	l := New(10)

	for i := 1; i <= 3; i++ {
		if !l.Append(entry(fmt.Sprintf("n%d", i))) {
			t.Fatalf("append n%d rejected", i)
		}
	}

	got := l.Entries()
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].ID != "n3" || got[1].ID != "n2" || got[2].ID != "n1" {
		t.Errorf("order = %s,%s,%s; want n3,n2,n1", got[0].ID, got[1].ID, got[2].ID)
	}
}

func TestAppendDropsDuplicates(t *testing.T) {
	l := New(10)

	if !l.Append(entry("dup")) {
		t.Fatal("first append rejected")
	}
	if l.Append(entry("dup")) {
		t.Error("duplicate id accepted")
	}
	if l.Len() != 1 {
		t.Errorf("len = %d, want 1", l.Len())
	}
}

func TestCapacityEvictsOldest(t *testing.T) {
	l := New(3)

	for i := 1; i <= 5; i++ {
		l.Append(entry(fmt.Sprintf("n%d", i)))
	}

	got := l.Entries()
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].ID != "n5" || got[2].ID != "n3" {
		t.Errorf("kept %s..%s, want n5..n3", got[0].ID, got[2].ID)
	}

	// evicted ids may come back in
	if !l.Append(entry("n1")) {
		t.Error("evicted id rejected as duplicate")
	}
}

func TestApplyPending(t *testing.T) {
	l := New(10)
	l.Append(entry("a"))
	l.Append(entry("b"))
	l.Append(entry("c"))

	l.ApplyPending([]string{"b"})

	for _, e := range l.Entries() {
		want := e.ID == "b"
		if e.Pending != want {
			t.Errorf("entry %s pending = %v, want %v", e.ID, e.Pending, want)
		}
	}

	pending := l.Pending()
	if len(pending) != 1 || pending[0].ID != "b" {
		t.Errorf("Pending() = %+v, want only b", pending)
	}

	// a later poll can revive an expired entry
	l.ApplyPending([]string{"a", "b", "c"})
	if len(l.Pending()) != 3 {
		t.Errorf("pending after revive = %d, want 3", len(l.Pending()))
	}
}

func TestAcknowledge(t *testing.T) {
	l := New(10)
	l.Append(entry("a"))

	n, ok := l.Acknowledge("a")
	if !ok {
		t.Fatal("Acknowledge(a) = false")
	}
	if !n.Acknowledged {
		t.Error("returned entry not acknowledged")
	}
	if got := l.Entries()[0]; !got.Acknowledged {
		t.Error("stored entry not acknowledged")
	}

	if _, ok := l.Acknowledge("ghost"); ok {
		t.Error("Acknowledge(ghost) = true, want false")
	}
}
