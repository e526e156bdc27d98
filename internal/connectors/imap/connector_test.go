package imap

import (
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-imap"

	"procure/internal/config"
)

func TestNewConnectorRequiresCredentials(t *testing.T) {
	cfg, _ := config.Load()
	cfg.IMAPHost = "imap.test"
	cfg.IMAPUser = "buyer@test"
	cfg.IMAPPassword = ""

	if _, err := NewConnector(cfg); err == nil {
		t.Fatal("expected an error for the missing password")
	} else if !strings.Contains(err.Error(), "IMAP_PASSWORD") {
		t.Fatalf("error should name the missing variable, got %v", err)
	}

	cfg.IMAPPassword = "secret"
	if _, err := NewConnector(cfg); err != nil {
		t.Fatal(err)
	}
}

func TestSenderLine(t *testing.T) {
	addrs := []*imap.Address{
		{PersonalName: "Jane Buyer", MailboxName: "jane", HostName: "corp.test"},
		nil,
		{MailboxName: "ops", HostName: "corp.test"},
	}
	got := senderLine(addrs)
	want := "Jane Buyer <jane@corp.test>, ops@corp.test"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if senderLine(nil) != "" {
		t.Fatal("no addresses should format as empty")
	}
}

func TestReceivedAt(t *testing.T) {
	stamp := time.Date(2025, 3, 14, 9, 30, 0, 0, time.FixedZone("CET", 3600))
	if got := receivedAt(stamp); got != "2025-03-14T08:30:00Z" {
		t.Fatalf("got %q", got)
	}
	if got := receivedAt(time.Time{}); got == "" {
		t.Fatal("zero internal date should still produce a timestamp")
	}
}
