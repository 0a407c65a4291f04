package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/interastral-2026/novanew/internal/httputil"
	"github.com/interastral-2026/novanew/internal/models"
)

const DefaultBotName = "NovaTrader"

type Sender struct {
	webhookURL string
	botName    string
	httpClient *http.Client
	retry      httputil.RetryConfig
}

func NewSender(webhookURL, botName string) *Sender {
	if botName == "" {
		botName = DefaultBotName
	}
	return &Sender{
		webhookURL: webhookURL,
		botName:    botName,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retry: httputil.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   1 * time.Second,
			MaxDelay:    5 * time.Second,
		},
	}
}

// Send echoes msg to stdout and, when a webhook is configured, posts it.
// Delivery failures are logged, never returned.
func (s *Sender) Send(ctx context.Context, msg string) {
	s.post(ctx, msg, "")
}

// SendEvent posts an event log entry, styled by its kind.
func (s *Sender) SendEvent(ctx context.Context, ev models.LogEvent) {
	s.post(ctx, fmt.Sprintf("%s: %s", ev.Kind, ev.Message), ev.Kind)
}

func (s *Sender) post(ctx context.Context, msg string, kind models.EventKind) {
	formatted := fmt.Sprintf("[%s] %s", s.botName, msg)
	fmt.Printf("[%s] %s\n", time.Now().UTC().Format(time.RFC3339), formatted)

	if s.webhookURL == "" {
		return
	}

	body, err := json.Marshal(s.formatPayload(formatted, kind))
	if err != nil {
		fmt.Printf("[CHAT ERROR] marshal: %v\n", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	resp, err := httputil.Do(ctx, s.httpClient, s.retry, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		fmt.Printf("[CHAT ERROR] Failed to send notification after retries: %v\n", err)
		return
	}
	resp.Body.Close()
}

// Discord embed colors per event kind.
var kindColors = map[models.EventKind]int{
	models.EventInfo:     0x3498DB,
	models.EventDecision: 0x9B59B6,
	models.EventWarning:  0xF1C40F,
	models.EventError:    0xE74C3C,
}

var kindIcons = map[models.EventKind]string{
	models.EventInfo:     ":information_source:",
	models.EventDecision: ":robot_face:",
	models.EventWarning:  ":warning:",
	models.EventError:    ":rotating_light:",
}

func (s *Sender) formatPayload(msg string, kind models.EventKind) map[string]any {
	if strings.Contains(s.webhookURL, "discord") {
		if kind == "" {
			return map[string]any{
				"content":  msg,
				"username": s.botName,
			}
		}
		return map[string]any{
			"username": s.botName,
			"embeds": []map[string]any{{
				"title":       string(kind),
				"description": msg,
				"color":       kindColors[kind],
			}},
		}
	}

	text := fmt.Sprintf("`%s`", msg)
	if icon, ok := kindIcons[kind]; ok {
		text = icon + " " + text
	}
	return map[string]any{
		"text":     text,
		"username": s.botName,
	}
}

func (s *Sender) Enabled() bool {
	return s.webhookURL != ""
}
