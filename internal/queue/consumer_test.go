package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// chdir switches to dir for the duration of the test, restoring the
// previous working directory on cleanup (t.Chdir needs Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatalf("restore wd: %v", err)
		}
	})
}

func TestHandleMessageWritesNotification(t *testing.T) {
	chdir(t, t.TempDir())

	ev := ListingModeratedEvent{
		ListingID:   42,
		OwnerID:     7,
		OwnerEmail:  "owner@example.com",
		Title:       "Penthouse downtown",
		Decision:    "reject",
		NewStatus:   "rejected",
		Commission:  600,
		ModeratedAt: "2026-09-01 12:00:00",
	}
	body, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := handleMessage(body); err != nil {
		t.Fatalf("handleMessage: %v", err)
	}

	data, err := os.ReadFile(filepath.Join("logs", "notifications.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	line := string(data)
	for _, want := range []string{"template=listing-rejected", "to=owner@example.com", "listing_id=42", "decision=reject"} {
		if !strings.Contains(line, want) {
			t.Errorf("log line missing %q: %s", want, line)
		}
	}
}

func TestHandleMessageRejectsBadPayload(t *testing.T) {
	chdir(t, t.TempDir())
	if err := handleMessage([]byte("not json")); err == nil {
		t.Fatal("want error for malformed payload")
	}
}
