package alerts

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/obsidianstack/rangeshift/internal/compute"
	"github.com/obsidianstack/rangeshift/internal/config"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func okResult(job string, minimum int64) *compute.Result {
	return &compute.Result{
		JobID:        job,
		MinimumStart: minimum,
		Seeds:        2,
		Intervals:    9,
		TotalLength:  27,
		Duration:     300 * time.Millisecond,
	}
}

func failedResult(job string) *compute.Result {
	return &compute.Result{JobID: job, Err: "almanac: syntax error"}
}

// clock is a settable now func.
type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newEngine(c *clock, rules ...config.AlertRule) *Engine {
	e := New(config.AlertsConfig{Rules: rules})
	e.now = c.now
	return e
}

// --- evalCondition ----------------------------------------------------------

func TestEvalCondition(t *testing.T) {
	ok := okResult("j", 46)
	bad := failedResult("j")
	tests := []struct {
		cond  string
		res   *compute.Result
		fires bool
		value float64
	}{
		{"state == failed", bad, true, 0},
		{"state == failed", ok, false, 0},
		{"state != ok", bad, true, 0},
		{"state == ok", ok, true, 0},
		{"minimum_start < 100", ok, true, 46},
		{"minimum_start >= 47", ok, false, 46},
		{"minimum_start == 46", ok, true, 46},
		{"minimum_start != 46", ok, false, 46},
		{"output_intervals > 5", ok, true, 9},
		{"input_intervals <= 2", ok, true, 2},
		{"total_length < 1", ok, false, 27},
		{"duration_ms > 250", ok, true, 300},
		{"minimum_start < 100", bad, false, 0},
		{"unknown_field > 1", ok, false, 0},
		{"minimum_start ~ 1", ok, false, 46},
		{"minimum_start < abc", ok, false, 0},
		{"state ~ failed", bad, false, 0},
		{"malformed", ok, false, 0},
	}
	for _, tc := range tests {
		fires, value := evalCondition(tc.cond, tc.res)
		if fires != tc.fires || (fires && value != tc.value) {
			t.Errorf("%q on %s: got (%v, %v), want (%v, %v)", tc.cond, tc.res.Err, fires, value, tc.fires, tc.value)
		}
	}
}

// --- Evaluate ---------------------------------------------------------------

func TestEvaluate_FireAndResolve(t *testing.T) {
	c := &clock{t: baseTime}
	e := newEngine(c, config.AlertRule{Name: "failed", Condition: "state == failed", Severity: "critical"})

	e.Evaluate(failedResult("j"))
	active := e.Active()
	if len(active) != 1 {
		t.Fatalf("active: got %d, want 1", len(active))
	}
	a := active[0]
	if a.State != "firing" || a.Severity != "critical" || a.JobID != "j" || a.ID == "" {
		t.Errorf("alert: %+v", a)
	}
	if !strings.Contains(a.Message, "almanac: syntax error") {
		t.Errorf("message %q lacks the job error", a.Message)
	}

	// Still failing: no duplicate.
	e.Evaluate(failedResult("j"))
	if n := len(e.Active()); n != 1 {
		t.Errorf("active after repeat: got %d, want 1", n)
	}

	c.advance(time.Minute)
	e.Evaluate(okResult("j", 46))
	active = e.Active()
	if len(active) != 1 || active[0].State != "resolved" || active[0].ResolvedAt == nil {
		t.Fatalf("after recovery: %+v", active)
	}

	// Resolved alerts drop out after the recent window.
	c.advance(2 * time.Hour)
	if n := len(e.Active()); n != 0 {
		t.Errorf("active after window: got %d, want 0", n)
	}
}

func TestEvaluate_Cooldown(t *testing.T) {
	c := &clock{t: baseTime}
	e := newEngine(c, config.AlertRule{Name: "low", Condition: "minimum_start < 10", Cooldown: 10 * time.Minute})

	e.Evaluate(okResult("j", 5))  // fires
	e.Evaluate(okResult("j", 50)) // resolves
	c.advance(time.Minute)
	e.Evaluate(okResult("j", 5)) // within cooldown
	for _, a := range e.Active() {
		if a.State == "firing" {
			t.Fatalf("refired within cooldown: %+v", a)
		}
	}

	c.advance(10 * time.Minute)
	e.Evaluate(okResult("j", 5))
	firing := 0
	for _, a := range e.Active() {
		if a.State == "firing" {
			firing++
		}
	}
	if firing != 1 {
		t.Errorf("firing after cooldown: got %d, want 1", firing)
	}
}

func TestEvaluate_JobFilterAndDefaults(t *testing.T) {
	c := &clock{t: baseTime}
	e := newEngine(c, config.AlertRule{Name: "only-a", Condition: "state == failed", Jobs: []string{"a"}})

	e.Evaluate(failedResult("b"))
	if n := len(e.Active()); n != 0 {
		t.Fatalf("rule fired for a filtered job: %d", n)
	}
	e.Evaluate(failedResult("a"))
	active := e.Active()
	if len(active) != 1 || active[0].Severity != "warning" {
		t.Errorf("active: %+v, want one warning", active)
	}
}

func TestEvaluate_PerJobKeys(t *testing.T) {
	c := &clock{t: baseTime}
	e := newEngine(c, config.AlertRule{Name: "failed", Condition: "state == failed"})
	e.Evaluate(failedResult("a"))
	e.Evaluate(failedResult("b"))
	if n := len(e.Active()); n != 2 {
		t.Errorf("active: got %d, want 2", n)
	}
}

func TestUpdate_DropsRemovedRules(t *testing.T) {
	c := &clock{t: baseTime}
	e := newEngine(c, config.AlertRule{Name: "failed", Condition: "state == failed"})
	e.Evaluate(failedResult("a"))

	e.Update(config.AlertsConfig{})
	if n := len(e.Active()); n != 0 {
		t.Errorf("active after update: got %d, want 0", n)
	}
	e.Evaluate(failedResult("a"))
	if n := len(e.Active()); n != 0 {
		t.Errorf("no rules left, got %d active", n)
	}
}

// --- webhooks ---------------------------------------------------------------

type recorder struct {
	mu     sync.Mutex
	bodies []map[string]any
}

func (r *recorder) handler(status int) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		data, _ := io.ReadAll(req.Body)
		var m map[string]any
		json.Unmarshal(data, &m) //nolint:errcheck
		r.mu.Lock()
		r.bodies = append(r.bodies, m)
		r.mu.Unlock()
		w.WriteHeader(status)
	}
}

func TestWebhook_DeliversFireAndResolve(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(rec.handler(http.StatusOK))
	defer srv.Close()

	t.Setenv("RS_ALERT_HTTP", srv.URL)
	t.Setenv("RS_ALERT_SLACK", srv.URL)
	t.Setenv("RS_ALERT_TEAMS", srv.URL)

	e := New(config.AlertsConfig{
		Rules: []config.AlertRule{{Name: "failed", Condition: "state == failed", Severity: "critical"}},
		Webhooks: []config.WebhookConfig{
			{Type: "http", URLEnv: "RS_ALERT_HTTP"},
			{Type: "slack", URLEnv: "RS_ALERT_SLACK"},
			{Type: "teams", URLEnv: "RS_ALERT_TEAMS"},
			{Type: "http"}, // no URL: skipped
		},
	})

	e.Evaluate(failedResult("j"))
	e.Wait()
	e.Evaluate(okResult("j", 1))
	e.Wait()

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.bodies) != 6 {
		t.Fatalf("deliveries: got %d, want 6", len(rec.bodies))
	}
	alert, ok := rec.bodies[0]["alert"].(map[string]any)
	if !ok || alert["state"] != "firing" || alert["job_id"] != "j" || rec.bodies[0]["source"] != "rangeshift" {
		t.Errorf("http payload: %+v", rec.bodies[0])
	}
	if text, _ := rec.bodies[1]["text"].(string); !strings.HasPrefix(text, "*[CRITICAL]*") {
		t.Errorf("slack text: %q", text)
	}
	if rec.bodies[2]["@type"] != "MessageCard" {
		t.Errorf("teams payload: %+v", rec.bodies[2])
	}
	if text, _ := rec.bodies[4]["text"].(string); !strings.HasPrefix(text, "*[RESOLVED]*") {
		t.Errorf("slack resolve text: %q", text)
	}
}

func TestWebhookBodies_CarryJob(t *testing.T) {
	a := &Alert{RuleName: "low-start", JobID: "prod", Severity: "warning", Value: 1234567, State: "firing"}

	slack := slackBody(a).(map[string]any)
	att := slack["attachments"].([]map[string]any)[0]
	if att["color"] != "#FFAB40" {
		t.Errorf("slack color: got %v, want #FFAB40", att["color"])
	}
	fields := att["fields"].([]map[string]any)
	if fields[0]["value"] != "prod" || fields[2]["value"] != "1234567" {
		t.Errorf("slack fields: %+v", fields)
	}

	a.State = "resolved"
	teams := teamsBody(a).(map[string]any)
	if teams["themeColor"] != "2EB67D" || teams["title"] != "[RESOLVED] rangeshift job prod" {
		t.Errorf("teams resolved: color %v, title %v", teams["themeColor"], teams["title"])
	}
	facts := teams["sections"].([]map[string]any)[0]["facts"].([]map[string]string)
	if facts[0]["value"] != "low-start" {
		t.Errorf("teams facts: %+v", facts)
	}
}

func TestWebhook_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer((&recorder{}).handler(http.StatusInternalServerError))
	defer srv.Close()

	e := New(config.AlertsConfig{})
	if err := e.post(srv.URL, []byte(`{}`)); err == nil || !strings.Contains(err.Error(), "500") {
		t.Errorf("post: got %v, want HTTP 500 error", err)
	}
}
