package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/huangang/basewatch/internal/models"
)

func TestSplitMessage(t *testing.T) {
	tests := []struct {
		name   string
		msg    string
		maxLen int
		parts  int
	}{
		{"short message", "hello", 10, 1},
		{"exact length", "0123456789", 10, 1},
		{"hard cut", strings.Repeat("a", 25), 10, 3},
		{"break on newline", "aaaaaaa\nbbbbbbb\ncc", 10, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parts := splitMessage(tt.msg, tt.maxLen)
			if len(parts) != tt.parts {
				t.Errorf("got %d parts %q, expected %d", len(parts), parts, tt.parts)
			}
			if strings.Join(parts, "") != tt.msg {
				t.Error("parts do not reassemble the message")
			}
			for _, p := range parts {
				if len(p) > tt.maxLen {
					t.Errorf("part %q longer than %d", p, tt.maxLen)
				}
			}
		})
	}

	if parts := splitMessage("aaaaaaa\nbbbbbbb\ncc", 10); parts[0] != "aaaaaaa\n" {
		t.Errorf("first part = %q, expected a newline break", parts[0])
	}
}

func TestDigestNotification_Text(t *testing.T) {
	n := &DigestNotification{
		Date: "2024-01-02", TotalUnits: 2, TotalReports: 3, AvgSatisfaction: "7.5",
		LowSupply: []string{"Alpha: carburant 2 j"},
		Summary:   "RAS",
	}
	text := n.Text()
	for _, want := range []string{"2024-01-02", "Satisfaction moyenne : 7.5", "- Alpha: carburant 2 j", "RAS"} {
		if !strings.Contains(text, want) {
			t.Errorf("text missing %q:\n%s", want, text)
		}
	}
}

type capturedRequest struct {
	path string
	body map[string]interface{}
}

func captureServer(t *testing.T, failPath string) (*httptest.Server, *[]capturedRequest, *sync.Mutex) {
	t.Helper()
	var mu sync.Mutex
	var got []capturedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]interface{}
		_ = json.Unmarshal(raw, &body)
		mu.Lock()
		got = append(got, capturedRequest{path: r.URL.Path, body: body})
		mu.Unlock()
		if r.URL.Path == failPath {
			http.Error(w, "nope", http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv, &got, &mu
}

func TestBroadcast_AttemptsEveryBot(t *testing.T) {
	srv, got, mu := captureServer(t, "/discord")

	bots := []models.NotificationBot{
		{Name: "ops-slack", Type: models.BotTypeSlack, Webhook: srv.URL + "/slack"},
		{Name: "ops-discord", Type: models.BotTypeDiscord, Webhook: srv.URL + "/discord"},
		{Name: "hook", Type: models.BotTypeGeneric, Webhook: srv.URL + "/generic"},
	}
	n := &DigestNotification{Date: "2024-01-02", TotalUnits: 1, TotalReports: 1, AvgSatisfaction: "8.0", Summary: "RAS"}

	delivered, err := Broadcast(context.Background(), bots, n)
	if err == nil || !strings.Contains(err.Error(), "ops-discord") {
		t.Fatalf("err = %v, expected the discord failure", err)
	}
	if delivered != 2 {
		t.Errorf("delivered = %d, expected 2", delivered)
	}

	mu.Lock()
	defer mu.Unlock()
	byPath := make(map[string]map[string]interface{})
	for _, r := range *got {
		byPath[r.path] = r.body
	}
	if len(byPath) != 3 {
		t.Fatalf("reached %d endpoints, expected 3", len(byPath))
	}
	if _, ok := byPath["/slack"]["blocks"]; !ok {
		t.Error("slack payload should carry blocks")
	}
	if content, _ := byPath["/discord"]["content"].(string); !strings.Contains(content, "RAS") {
		t.Errorf("discord content = %q", content)
	}
	if byPath["/generic"]["type"] != "fleet_digest" {
		t.Errorf("generic payload = %v", byPath["/generic"])
	}
}

func TestBroadcast_NoBots(t *testing.T) {
	if delivered, err := Broadcast(context.Background(), nil, &DigestNotification{}); err != nil || delivered != 0 {
		t.Errorf("Broadcast = %d, %v, expected 0, nil", delivered, err)
	}
}

func TestNotificationBotService(t *testing.T) {
	svc := NewNotificationBotService(openTestDB(t))
	off := false

	a, err := svc.Create(&CreateNotificationBotRequest{Name: "a", Type: "slack", Webhook: "https://hooks.example/a"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Create(&CreateNotificationBotRequest{Name: "b", Type: "generic", Webhook: "https://hooks.example/b", DigestEnabled: &off}); err != nil {
		t.Fatal(err)
	}

	recipients, err := svc.DigestRecipients()
	if err != nil || len(recipients) != 1 || recipients[0].ID != a.ID {
		t.Errorf("recipients = %+v, %v", recipients, err)
	}

	if err := svc.Delete(a.ID); err != nil {
		t.Fatal(err)
	}
	if err := svc.Delete(a.ID); !errors.Is(err, ErrNotificationBotNotFound) {
		t.Errorf("second delete = %v", err)
	}
	bots, _ := svc.List()
	if len(bots) != 1 {
		t.Errorf("List = %d bots, expected 1", len(bots))
	}
}
