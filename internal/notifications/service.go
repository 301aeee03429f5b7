package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cratewatch/internal/config"
)

const userAgent = "cratewatch/0.1.0"

// Service defines the notification surface exposed to the daemon and CLI.
type Service interface {
	NotifyBuildFailed(ctx context.Context, name, version string, err error) error
	NotifyDrainCompleted(ctx context.Context, built, failed int, duration time.Duration) error
	NotifySyncFailed(ctx context.Context, err error) error
	NotifySyncRecovered(ctx context.Context, queued int) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether svc delivers anything.
func Enabled(svc Service) bool {
	if svc == nil {
		return false
	}
	_, noop := svc.(noopService)
	return !noop
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyBuildFailed(ctx context.Context, name, version string, err error) error {
	message := fmt.Sprintf("Build failed: %s %s", strings.TrimSpace(name), strings.TrimSpace(version))
	if err != nil {
		message += "\n" + strings.TrimSpace(err.Error())
	}
	return n.send(ctx, payload{
		title:    "cratewatch - Build Failed",
		message:  message,
		tags:     []string{"cratewatch", "build", "failed"},
		priority: "high",
	})
}

func (n *ntfyService) NotifyDrainCompleted(ctx context.Context, built, failed int, duration time.Duration) error {
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}

	title := "cratewatch - Queue Drained"
	message := fmt.Sprintf("Built %d release(s) in %s", built, duration)
	if failed > 0 {
		title = "cratewatch - Queue Drained (with errors)"
		message = fmt.Sprintf("Built %d release(s), %d failed, in %s", built, failed, duration)
	}
	return n.send(ctx, payload{
		title:   title,
		message: message,
		tags:    []string{"cratewatch", "queue", "completed"},
	})
}

func (n *ntfyService) NotifySyncFailed(ctx context.Context, err error) error {
	reason := "unknown"
	if err != nil {
		reason = strings.TrimSpace(err.Error())
	}
	return n.send(ctx, payload{
		title:    "cratewatch - Sync Failing",
		message:  "Index sync failed: " + reason,
		tags:     []string{"cratewatch", "sync", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) NotifySyncRecovered(ctx context.Context, queued int) error {
	return n.send(ctx, payload{
		title:   "cratewatch - Sync Recovered",
		message: fmt.Sprintf("Index sync succeeded again (%d release(s) queued)", queued),
		tags:    []string{"cratewatch", "sync", "recovered"},
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "cratewatch - Test",
		message:  "Notification system test",
		tags:     []string{"cratewatch", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyBuildFailed(context.Context, string, string, error) error      { return nil }
func (noopService) NotifyDrainCompleted(context.Context, int, int, time.Duration) error { return nil }
func (noopService) NotifySyncFailed(context.Context, error) error                       { return nil }
func (noopService) NotifySyncRecovered(context.Context, int) error                      { return nil }
func (noopService) TestNotification(context.Context) error                              { return nil }
