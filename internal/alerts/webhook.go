package alerts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/obsidianstack/rangeshift/internal/config"
)

// bodies maps a webhook type to the JSON document posted for an alert.
var bodies = map[string]func(*Alert) any{
	"slack": slackBody,
	"teams": teamsBody,
	"http":  httpBody,
}

// deliver posts a to every configured target with a URL. Delivery errors
// are logged; alert state is unaffected.
func (e *Engine) deliver(hooks []config.WebhookConfig, a *Alert) {
	for _, wh := range hooks {
		url := wh.URL()
		if url == "" {
			continue
		}
		build, ok := bodies[wh.Type]
		if !ok {
			slog.Warn("alerts: unknown webhook type, skipping", "type", wh.Type)
			continue
		}
		body, err := json.Marshal(build(a))
		if err == nil {
			err = e.post(url, body)
		}
		if err != nil {
			slog.Error("alerts: webhook delivery failed",
				"type", wh.Type, "rule", a.RuleName, "job", a.JobID, "err", err)
			continue
		}
		slog.Debug("alerts: webhook delivered",
			"type", wh.Type, "rule", a.RuleName, "job", a.JobID, "state", a.State)
	}
}

func slackBody(a *Alert) any {
	return map[string]any{
		"text": fmt.Sprintf("*%s* %s", label(a), a.Message),
		"attachments": []map[string]any{{
			"color": "#" + color(a),
			"fields": []map[string]any{
				{"title": "Job", "value": a.JobID, "short": true},
				{"title": "Rule", "value": a.RuleName, "short": true},
				{"title": "Value", "value": formatValue(a.Value), "short": true},
			},
		}},
	}
}

func teamsBody(a *Alert) any {
	return map[string]any{
		"@type":      "MessageCard",
		"@context":   "http://schema.org/extensions",
		"themeColor": color(a),
		"summary":    a.RuleName + " on " + a.JobID,
		"title":      fmt.Sprintf("%s rangeshift job %s", label(a), a.JobID),
		"text":       a.Message,
		"sections": []map[string]any{{
			"facts": []map[string]string{
				{"name": "Rule", "value": a.RuleName},
				{"name": "Severity", "value": a.Severity},
				{"name": "Value", "value": formatValue(a.Value)},
			},
		}},
	}
}

func httpBody(a *Alert) any {
	return map[string]any{"source": "rangeshift", "alert": a}
}

func (e *Engine) post(url string, body []byte) error {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", req.URL.Host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// label is the bracketed prefix of a notification: the severity while
// firing, RESOLVED afterwards.
func label(a *Alert) string {
	if a.State == "resolved" {
		return "[RESOLVED]"
	}
	switch a.Severity {
	case "critical":
		return "[CRITICAL]"
	case "warning":
		return "[WARNING]"
	default:
		return "[INFO]"
	}
}

func color(a *Alert) string {
	if a.State == "resolved" {
		return "2EB67D"
	}
	switch a.Severity {
	case "critical":
		return "FF4F6A"
	case "warning":
		return "FFAB40"
	default:
		return "00D4FF"
	}
}

// formatValue prints interval starts and counts without an exponent.
func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
