package store

import (
	"testing"
	"time"
)

func TestRateLimitAllowWithinWindow(t *testing.T) {
	db, _ := setupTestDB(t)
	rs := NewRateLimitStore(db)

	now := time.Date(2026, 1, 9, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		ok, err := rs.Allow("open:1.2.3.4", 5, time.Minute, now.Add(time.Duration(i)*time.Second))
		if err != nil {
			t.Fatalf("allow %d: %v", i, err)
		}
		if !ok {
			t.Fatalf("request %d denied under the limit", i+1)
		}
	}

	ok, err := rs.Allow("open:1.2.3.4", 5, time.Minute, now.Add(6*time.Second))
	if err != nil {
		t.Fatalf("allow over limit: %v", err)
	}
	if ok {
		t.Error("sixth request in window allowed past limit of 5")
	}
}

func TestRateLimitWindowReset(t *testing.T) {
	db, _ := setupTestDB(t)
	rs := NewRateLimitStore(db)

	now := time.Date(2026, 1, 9, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		rs.Allow("k", 2, time.Minute, now)
	}

	// The next window starts fresh.
	ok, err := rs.Allow("k", 2, time.Minute, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("allow after window: %v", err)
	}
	if !ok {
		t.Error("request in a new window denied")
	}
}

func TestRateLimitKeysIndependent(t *testing.T) {
	db, _ := setupTestDB(t)
	rs := NewRateLimitStore(db)

	now := time.Date(2026, 1, 9, 12, 0, 0, 0, time.UTC)
	rs.Allow("a", 1, time.Minute, now)
	if ok, _ := rs.Allow("a", 1, time.Minute, now); ok {
		t.Error("key a over limit but allowed")
	}
	if ok, _ := rs.Allow("b", 1, time.Minute, now); !ok {
		t.Error("fresh key b denied because of key a")
	}
}

func TestRateLimitCleanup(t *testing.T) {
	db, _ := setupTestDB(t)
	rs := NewRateLimitStore(db)

	now := time.Date(2026, 1, 9, 12, 0, 0, 0, time.UTC)
	rs.Allow("old", 5, time.Minute, now.Add(-2*time.Hour))
	rs.Allow("fresh", 5, time.Minute, now)

	n, err := rs.Cleanup(now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if n != 1 {
		t.Errorf("cleanup removed %d rows, want 1", n)
	}
}
