package smtpnotify

import (
	"net/smtp"
	"testing"
	"time"
)

func testNotifier(t *testing.T) (*Notifier, *int) {
	t.Helper()
	n := New(Config{User: "alerts@example.com", Password: "secret", Recipient: "ops@example.com"})
	calls := 0
	n.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		calls++
		return nil
	}
	return n, &calls
}

func TestNotifyDisabledWithoutCredentials(t *testing.T) {
	n := New(Config{})
	calls := 0
	n.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		calls++
		return nil
	}
	n.Notify("EmergencyStarted", "detail")
	time.Sleep(10 * time.Millisecond)
	if calls != 0 {
		t.Fatalf("expected no send attempt without credentials, got %d", calls)
	}
}

func TestNotifySendsOnce(t *testing.T) {
	n, calls := testNotifier(t)
	n.Notify("EmergencyStarted", "101C")
	time.Sleep(20 * time.Millisecond)
	if *calls != 1 {
		t.Fatalf("expected exactly one send, got %d", *calls)
	}
}

func TestNotifyRateLimited(t *testing.T) {
	n, calls := testNotifier(t)
	n.Notify("EmergencyStarted", "101C")
	n.Notify("EmergencyStarted", "102C")
	time.Sleep(20 * time.Millisecond)
	if *calls != 1 {
		t.Fatalf("expected the second notify within the rate-limit window to be suppressed, got %d calls", *calls)
	}
}

func TestNotifyDistinctKindsIndependentlyRateLimited(t *testing.T) {
	n, calls := testNotifier(t)
	n.Notify("EmergencyStarted", "101C")
	n.Notify("ShutdownNow", "still 101C")
	time.Sleep(20 * time.Millisecond)
	if *calls != 2 {
		t.Fatalf("expected both distinct kinds to send, got %d", *calls)
	}
}
