package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"liyu1981.xyz/envctl-daemon/pkg/common"
	"liyu1981.xyz/envctl-daemon/pkg/config"
)

// Notifier delivers one alert on one channel. Credentials come from the alert
// document current at send time, so a notifier holds no configuration itself.
type Notifier interface {
	Name() string
	Enabled(cfg *config.AlertConfig) bool
	Notify(ctx context.Context, cfg *config.AlertConfig, alert Alert) error
}

const defaultTelegramAPI = "https://api.telegram.org"

// TelegramNotifier posts to a chat through the Telegram Bot API.
type TelegramNotifier struct {
	client *http.Client
}

func NewTelegramNotifier() *TelegramNotifier {
	return &TelegramNotifier{
		client: &http.Client{
			Timeout: common.AlertHTTPTimeout,
		},
	}
}

func (n *TelegramNotifier) Name() string {
	return "telegram"
}

func (n *TelegramNotifier) Enabled(cfg *config.AlertConfig) bool {
	return cfg.Telegram.Enabled && cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != ""
}

func (n *TelegramNotifier) Notify(ctx context.Context, cfg *config.AlertConfig, alert Alert) error {
	base := cfg.Telegram.APIBase
	if base == "" {
		base = defaultTelegramAPI
	}

	payload := map[string]any{
		"chat_id": cfg.Telegram.ChatID,
		"text":    alert.Title + "\n\n" + alert.Body,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	url := strings.TrimRight(base, "/") + "/bot" + cfg.Telegram.BotToken + "/sendMessage"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}
	return nil
}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailNotifier sends a plain text mail over SMTP.
type EmailNotifier struct {
	sendMail sendMailFunc
	timeout  time.Duration
}

func NewEmailNotifier() *EmailNotifier {
	return &EmailNotifier{sendMail: smtp.SendMail, timeout: common.AlertHTTPTimeout}
}

func (n *EmailNotifier) Name() string {
	return "email"
}

func (n *EmailNotifier) Enabled(cfg *config.AlertConfig) bool {
	e := cfg.Email
	return e.Enabled && e.SMTPHost != "" && e.From != "" && len(e.To) > 0
}

func (n *EmailNotifier) Notify(ctx context.Context, cfg *config.AlertConfig, alert Alert) error {
	e := cfg.Email
	port := e.SMTPPort
	if port == 0 {
		port = 587
	}
	addr := net.JoinHostPort(e.SMTPHost, strconv.Itoa(port))

	var auth smtp.Auth
	if e.Username != "" {
		auth = smtp.PlainAuth("", e.Username, e.Password, e.SMTPHost)
	}

	msg := buildMail(e.From, e.To, alert, time.Now())

	// net/smtp has no context support, bound the call from outside
	done := make(chan error, 1)
	go func() {
		done <- n.sendMail(addr, auth, e.From, e.To, msg)
	}()

	timer := time.NewTimer(n.timeout)
	defer timer.Stop()
	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("smtp %s timed out after %s", addr, n.timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func buildMail(from string, to []string, alert Alert, at time.Time) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + strings.Join(to, ", ") + "\r\n")
	b.WriteString("Subject: " + alert.Title + "\r\n")
	b.WriteString("Date: " + at.Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(alert.Body + "\r\n")
	return []byte(b.String())
}
