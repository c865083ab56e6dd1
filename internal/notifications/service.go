package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"coldrig/internal/config"
)

const userAgent = "coldrig/0.1.0"

// Service is the alert surface exposed to the daemon loops.
type Service interface {
	NotifyDaemonStarted(ctx context.Context, slotCount int) error
	NotifyDaemonStopped(ctx context.Context) error
	NotifyRigStarted(ctx context.Context) error
	NotifyRigStopped(ctx context.Context) error
	NotifyWatchdog(ctx context.Context, temperatureC float64, biasedSlots []string) error
	NotifyAmbiguousControl(ctx context.Context, detail string) error
	NotifySweepFailed(ctx context.Context, slot string, err error) error
	NotifyError(ctx context.Context, err error, contextLabel string) error
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

func (n *ntfyService) NotifyDaemonStarted(ctx context.Context, slotCount int) error {
	data := payload{
		title:   "Coldrig - Daemon Started",
		message: fmt.Sprintf("Reconciliation daemon up, managing %d slots", slotCount),
		tags:    []string{"coldrig", "daemon", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyDaemonStopped(ctx context.Context) error {
	data := payload{
		title:   "Coldrig - Daemon Stopped",
		message: "Reconciliation daemon shut down",
		tags:    []string{"coldrig", "daemon", "stopped"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRigStarted(ctx context.Context) error {
	data := payload{
		title:   "Coldrig - Ready To Operate",
		message: "Start sequence complete: chamber cold and holding",
		tags:    []string{"coldrig", "rig", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRigStopped(ctx context.Context) error {
	data := payload{
		title:   "Coldrig - Rig Stopped",
		message: "Stop sequence complete: slots unbiased, chamber warm and off",
		tags:    []string{"coldrig", "rig", "stopped"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyWatchdog(ctx context.Context, temperatureC float64, biasedSlots []string) error {
	data := payload{
		title: "Coldrig - UNSAFE CONDITION",
		message: fmt.Sprintf("Detectors biased while chamber is warm: %.1f C with %s under bias",
			temperatureC, strings.Join(biasedSlots, ", ")),
		tags:     []string{"coldrig", "watchdog", "alert"},
		priority: "urgent",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyAmbiguousControl(ctx context.Context, detail string) error {
	data := payload{
		title:    "Coldrig - Ambiguous Control Intent",
		message:  detail,
		tags:     []string{"coldrig", "control", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifySweepFailed(ctx context.Context, slot string, err error) error {
	message := fmt.Sprintf("IV sweep failed on %s", slot)
	if err != nil {
		message = fmt.Sprintf("%s: %s", message, strings.TrimSpace(err.Error()))
	}
	data := payload{
		title:   "Coldrig - Sweep Failed",
		message: message,
		tags:    []string{"coldrig", "sweep", "failed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" in ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Coldrig - Error",
		message:  builder.String(),
		tags:     []string{"coldrig", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Coldrig - Test",
		message:  "Notification system test",
		tags:     []string{"coldrig", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
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

func (noopService) NotifyDaemonStarted(context.Context, int) error                 { return nil }
func (noopService) NotifyDaemonStopped(context.Context) error                      { return nil }
func (noopService) NotifyRigStarted(context.Context) error                         { return nil }
func (noopService) NotifyRigStopped(context.Context) error                         { return nil }
func (noopService) NotifyWatchdog(context.Context, float64, []string) error        { return nil }
func (noopService) NotifyAmbiguousControl(context.Context, string) error           { return nil }
func (noopService) NotifySweepFailed(context.Context, string, error) error         { return nil }
func (noopService) NotifyError(context.Context, error, string) error               { return nil }
func (noopService) TestNotification(context.Context) error                         { return nil }
