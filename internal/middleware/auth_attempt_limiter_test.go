package middleware

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestAuthAttemptLimiterBlocksAfterFailures(t *testing.T) {
	l := NewAuthAttemptLimiter(3, time.Minute, time.Minute)

	for i := 0; i < 3; i++ {
		if !l.allow("client-a") {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
		l.registerFailure("client-a")
	}

	if l.allow("client-a") {
		t.Error("client should be blocked after reaching the failure cap")
	}
	if !l.allow("client-b") {
		t.Error("other clients must not be affected")
	}
}

func TestAuthAttemptLimiterSuccessResets(t *testing.T) {
	l := NewAuthAttemptLimiter(3, time.Minute, time.Minute)

	l.registerFailure("client-a")
	l.registerFailure("client-a")
	l.registerSuccess("client-a")

	for i := 0; i < 3; i++ {
		if !l.allow("client-a") {
			t.Fatalf("attempt %d after reset should be allowed", i+1)
		}
		l.registerFailure("client-a")
	}
	if l.allow("client-a") {
		t.Error("client should be blocked again after new failures")
	}
}

func TestAuthAttemptLimiterBlockExpires(t *testing.T) {
	l := NewAuthAttemptLimiter(1, 50*time.Millisecond, 50*time.Millisecond)

	l.registerFailure("client-a")
	if l.allow("client-a") {
		t.Fatal("client should be blocked")
	}

	time.Sleep(60 * time.Millisecond)
	if !l.allow("client-a") {
		t.Error("block should expire after the block duration")
	}
}

func TestClientIPKey(t *testing.T) {
	req := httptest.NewRequest("GET", "/users/", nil)
	req.RemoteAddr = "10.1.2.3:51000"

	got := clientIPKey(req, "api_key")
	want := "api_key:10.1.2.3"
	if got != want {
		t.Errorf("clientIPKey = %q, want %q", got, want)
	}
}
