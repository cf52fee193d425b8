package alerts

import (
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/obsidianstack/rangeshift/internal/compute"
	"github.com/obsidianstack/rangeshift/internal/config"
)

const (
	defaultCooldown = 15 * time.Minute
	maxHistoryLen   = 200
	recentWindow    = time.Hour
)

// Alert is one alert event.
type Alert struct {
	ID         string     `json:"id"`
	RuleName   string     `json:"rule_name"`
	JobID      string     `json:"job_id"`
	Severity   string     `json:"severity"`
	Message    string     `json:"message"`
	Value      float64    `json:"value"`
	FiredAt    time.Time  `json:"fired_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	State      string     `json:"state"` // firing | resolved
}

// Engine evaluates rules against results and delivers webhooks when an
// alert fires or resolves. Engine is safe for concurrent use.
type Engine struct {
	client *http.Client
	now    func() time.Time // injectable for deterministic tests
	wg     sync.WaitGroup   // in-flight deliveries

	mu       sync.Mutex
	rules    []config.AlertRule
	webhooks []config.WebhookConfig
	active   map[string]*Alert    // key: rule name + job ID
	lastFire map[string]time.Time // for cooldown
	history  []*Alert             // resolved, oldest first
}

// New creates an Engine. An Engine without rules is valid; Evaluate is
// then a no-op.
func New(cfg config.AlertsConfig) *Engine {
	return &Engine{
		client:   &http.Client{Timeout: 10 * time.Second},
		now:      time.Now,
		rules:    cfg.Rules,
		webhooks: cfg.Webhooks,
		active:   make(map[string]*Alert),
		lastFire: make(map[string]time.Time),
	}
}

// Update swaps rules and webhooks. Firing alerts of removed rules are
// dropped without a resolve notification.
func (e *Engine) Update(cfg config.AlertsConfig) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = cfg.Rules
	e.webhooks = cfg.Webhooks
	for key, a := range e.active {
		if !slices.ContainsFunc(e.rules, func(r config.AlertRule) bool { return r.Name == a.RuleName }) {
			delete(e.active, key)
			delete(e.lastFire, key)
		}
	}
}

// Evaluate tests every rule that applies to res.JobID. Newly firing and
// newly resolved alerts are delivered asynchronously.
func (e *Engine) Evaluate(res *compute.Result) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	for _, rule := range e.rules {
		if len(rule.Jobs) > 0 && !slices.Contains(rule.Jobs, res.JobID) {
			continue
		}
		key := rule.Name + "\x00" + res.JobID
		fires, value := evalCondition(rule.Condition, res)

		if fires {
			if _, firing := e.active[key]; firing {
				continue
			}
			cooldown := rule.Cooldown
			if cooldown <= 0 {
				cooldown = defaultCooldown
			}
			if last, ok := e.lastFire[key]; ok && now.Sub(last) < cooldown {
				continue
			}
			sev := rule.Severity
			if sev == "" {
				sev = "warning"
			}
			a := &Alert{
				ID:       uuid.NewString(),
				RuleName: rule.Name,
				JobID:    res.JobID,
				Severity: sev,
				Value:    value,
				Message:  message(sev, rule, res, value),
				FiredAt:  now,
				State:    "firing",
			}
			e.active[key] = a
			e.lastFire[key] = now
			slog.Warn("alerts: fired", "rule", rule.Name, "job", res.JobID, "value", value, "severity", sev)
			e.dispatch(*a)
			continue
		}

		if a, ok := e.active[key]; ok {
			resolved := now
			a.State = "resolved"
			a.ResolvedAt = &resolved
			delete(e.active, key)
			e.history = append(e.history, a)
			if len(e.history) > maxHistoryLen {
				e.history = e.history[len(e.history)-maxHistoryLen:]
			}
			slog.Info("alerts: resolved", "rule", rule.Name, "job", res.JobID)
			e.dispatch(*a)
		}
	}
}

// Active returns copies of all firing alerts plus those resolved within
// the last hour, newest first.
func (e *Engine) Active() []Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := e.now().Add(-recentWindow)
	out := make([]Alert, 0, len(e.active))
	for _, a := range e.active {
		out = append(out, *a)
	}
	for _, a := range e.history {
		if a.ResolvedAt != nil && a.ResolvedAt.After(cutoff) {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FiredAt.After(out[j].FiredAt) })
	return out
}

// Wait blocks until every pending webhook delivery has finished.
func (e *Engine) Wait() { e.wg.Wait() }

// dispatch delivers a in the background. Callers hold e.mu.
func (e *Engine) dispatch(a Alert) {
	if len(e.webhooks) == 0 {
		return
	}
	hooks := append([]config.WebhookConfig(nil), e.webhooks...)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.deliver(hooks, &a)
	}()
}

func message(sev string, rule config.AlertRule, res *compute.Result, value float64) string {
	if !res.OK() {
		return fmt.Sprintf("[%s] %s fired on %s: %s (%s)", sev, rule.Name, res.JobID, rule.Condition, res.Err)
	}
	return fmt.Sprintf("[%s] %s fired on %s: %s, value %g", sev, rule.Name, res.JobID, rule.Condition, value)
}
