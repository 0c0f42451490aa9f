package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/huangang/basewatch/internal/models"
	"github.com/huangang/basewatch/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// DigestNotification is what a bot receives for one fleet digest.
type DigestNotification struct {
	Date            string   `json:"date"`
	TotalUnits      int      `json:"total_units"`
	TotalReports    int      `json:"total_reports"`
	AvgSatisfaction string   `json:"avg_satisfaction"`
	LowSupply       []string `json:"low_supply"`
	Summary         string   `json:"summary"`
}

// Header renders the fixed first lines of every message.
func (n *DigestNotification) Header() string {
	return fmt.Sprintf("Synthèse flotte du %s\nUnités : %d | Rapports : %d | Satisfaction moyenne : %s",
		n.Date, n.TotalUnits, n.TotalReports, n.AvgSatisfaction)
}

func (n *DigestNotification) Text() string {
	var b strings.Builder
	b.WriteString(n.Header())
	if len(n.LowSupply) > 0 {
		b.WriteString("\n\nRavitaillement critique :\n- ")
		b.WriteString(strings.Join(n.LowSupply, "\n- "))
	}
	if n.Summary != "" {
		b.WriteString("\n\n")
		b.WriteString(n.Summary)
	}
	return b.String()
}

// NotificationAdapter formats and posts a digest for one chat platform.
type NotificationAdapter interface {
	Send(ctx context.Context, webhook string, n *DigestNotification) error
}

func getAdapter(botType string) NotificationAdapter {
	switch botType {
	case models.BotTypeSlack:
		return &slackAdapter{}
	case models.BotTypeDiscord:
		return &discordAdapter{}
	default:
		return &genericAdapter{}
	}
}

var notificationHTTPClient = &http.Client{Timeout: 10 * time.Second}

func postJSON(ctx context.Context, webhookURL string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := notificationHTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, string(respBody))
	}
	logger.Debug().Int("status", resp.StatusCode).Int("bytes", len(body)).Msg("[Notification] webhook delivered")
	return nil
}

// splitMessage cuts msg into chunks of at most maxLen bytes, preferring a
// newline in the second half of each chunk.
func splitMessage(msg string, maxLen int) []string {
	if len(msg) <= maxLen {
		return []string{msg}
	}

	var parts []string
	remaining := msg
	for len(remaining) > 0 {
		if len(remaining) <= maxLen {
			parts = append(parts, remaining)
			break
		}

		breakPoint := maxLen
		for i := maxLen - 1; i > maxLen/2; i-- {
			if remaining[i] == '\n' {
				breakPoint = i + 1
				break
			}
		}
		parts = append(parts, remaining[:breakPoint])
		remaining = remaining[breakPoint:]
	}
	return parts
}

type slackAdapter struct{}

func (a *slackAdapter) Send(ctx context.Context, webhook string, n *DigestNotification) error {
	const maxLen = 3000
	header := "*" + strings.Replace(n.Header(), "\n", "*\n", 1)

	body := n.Text()[len(n.Header()):]
	body = strings.TrimLeft(body, "\n")
	if body == "" {
		return postJSON(ctx, webhook, map[string]interface{}{"text": header})
	}

	parts := splitMessage(body, maxLen)
	for i, part := range parts {
		title := header
		if len(parts) > 1 {
			title = fmt.Sprintf("%s\n_(%d/%d)_", header, i+1, len(parts))
		}
		payload := map[string]interface{}{
			"text": title,
			"blocks": []map[string]interface{}{
				{"type": "section", "text": map[string]string{"type": "mrkdwn", "text": title}},
				{"type": "section", "text": map[string]string{"type": "mrkdwn", "text": part}},
			},
		}
		if err := postJSON(ctx, webhook, payload); err != nil {
			return err
		}
	}
	return nil
}

type discordAdapter struct{}

// Discord rejects content over 2000 characters.
func (a *discordAdapter) Send(ctx context.Context, webhook string, n *DigestNotification) error {
	for _, part := range splitMessage(n.Text(), 1900) {
		if err := postJSON(ctx, webhook, map[string]interface{}{"content": part}); err != nil {
			return err
		}
	}
	return nil
}

type genericAdapter struct{}

func (a *genericAdapter) Send(ctx context.Context, webhook string, n *DigestNotification) error {
	return postJSON(ctx, webhook, map[string]interface{}{
		"type":   "fleet_digest",
		"digest": n,
	})
}

// Broadcast sends n to every bot concurrently and reports how many accepted it.
// All bots are attempted; the returned error joins every failure.
func Broadcast(ctx context.Context, bots []models.NotificationBot, n *DigestNotification) (int, error) {
	errs := make([]error, len(bots))
	var g errgroup.Group
	g.SetLimit(8)
	for i, bot := range bots {
		g.Go(func() error {
			if err := getAdapter(bot.Type).Send(ctx, bot.Webhook, n); err != nil {
				logger.Warnf("[Notification] Bot %s (%s) failed: %v", bot.Name, bot.Type, err)
				errs[i] = fmt.Errorf("%s: %w", bot.Name, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	delivered := 0
	for _, err := range errs {
		if err == nil {
			delivered++
		}
	}
	return delivered, errors.Join(errs...)
}
