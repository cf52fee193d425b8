package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/obsidianstack/rangeshift/internal/store"
)

const example = `seeds: 79 14 55 13

seed-to-soil map:
50 98 2
52 50 48

soil-to-fertilizer map:
0 15 37
37 52 2
39 0 15

fertilizer-to-water map:
49 53 8
0 11 42
42 0 7
57 7 4

water-to-light map:
88 18 7
18 25 70

light-to-temperature map:
45 77 23
81 45 19
68 64 13

temperature-to-humidity map:
0 69 1
1 0 69

humidity-to-location map:
60 56 37
56 93 4
`

func writeExample(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "almanac.txt")
	if err := os.WriteFile(p, []byte(example), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

// --- solve ------------------------------------------------------------------

func TestSolve_Modes(t *testing.T) {
	path := writeExample(t)
	for mode, want := range map[string]string{"ranges": "Result: 46\n", "values": "Result: 35\n"} {
		var buf bytes.Buffer
		if err := (&SolveCmd{File: path, Mode: mode}).Run(&buf); err != nil {
			t.Fatalf("%s: Run: %v", mode, err)
		}
		if buf.String() != want {
			t.Errorf("%s: output %q, want %q", mode, buf.String(), want)
		}
	}
}

func TestSolve_StagesTable(t *testing.T) {
	var buf bytes.Buffer
	if err := (&SolveCmd{File: writeExample(t), Mode: "ranges", Stages: true}).Run(&buf); err != nil {
		t.Fatalf("Run: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"STAGE", "seed-to-soil", "humidity-to-location", "2 seed intervals", "Result: 46"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestSolve_StrictOverlap(t *testing.T) {
	p := filepath.Join(t.TempDir(), "overlap.txt")
	os.WriteFile(p, []byte("seeds: 0 10\nx map:\n100 0 5\n200 3 5\n"), 0o600) //nolint:errcheck

	if err := (&SolveCmd{File: p, Mode: "ranges", Strict: true}).Run(&bytes.Buffer{}); err == nil {
		t.Error("strict: expected an overlap error")
	}
	if err := (&SolveCmd{File: p, Mode: "ranges"}).Run(&bytes.Buffer{}); err != nil {
		t.Errorf("lenient: %v", err)
	}
}

func TestSolve_MissingFile(t *testing.T) {
	err := (&SolveCmd{File: filepath.Join(t.TempDir(), "nope"), Mode: "ranges"}).Run(&bytes.Buffer{})
	if err == nil {
		t.Error("expected an error for a missing file")
	}
}

// --- lookup / version -------------------------------------------------------

func TestLookup(t *testing.T) {
	var buf bytes.Buffer
	if err := (&LookupCmd{File: writeExample(t), Values: []int64{79, 14, 55, 13}}).Run(&buf); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := "79 -> 82\n14 -> 43\n55 -> 86\n13 -> 35\n"
	if buf.String() != want {
		t.Errorf("output %q, want %q", buf.String(), want)
	}
}

func TestVersion(t *testing.T) {
	var buf bytes.Buffer
	(&VersionCmd{}).Run(&buf) //nolint:errcheck
	if !strings.HasPrefix(buf.String(), "rangeshift ") {
		t.Errorf("output %q", buf.String())
	}
}

// --- serve ------------------------------------------------------------------

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestServe_StopsWorkersBeforeClosingHistory(t *testing.T) {
	input := writeExample(t)
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "history.db")
	port := freePort(t)
	cfgPath := filepath.Join(dir, "config.yaml")
	body := fmt.Sprintf(`log:
  level: error
server:
  http_port: %d
engine:
  rescan_interval: 10ms
storage:
  backend: sqlite
  path: %s
jobs:
  - id: ex
    path: %s
`, port, dbPath, input)
	if err := os.WriteFile(cfgPath, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	defer slog.SetDefault(slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errc := make(chan error, 1)
	go func() { errc <- (&ServeCmd{Config: cfgPath}).serve(ctx, &Globals{}) }()

	healthURL := fmt.Sprintf("http://127.0.0.1:%d/api/v1/health", port)
	deadline := time.Now().Add(5 * time.Second)
	for {
		if healthState(healthURL) == "ok" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("health not ok within 5s")
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return within 5s")
	}

	hist, err := store.OpenHistory(dbPath)
	if err != nil {
		t.Fatalf("OpenHistory: %v", err)
	}
	defer hist.Close()
	runs, err := hist.Recent(context.Background(), "ex", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 1 || runs[0].MinimumStart != 46 {
		t.Errorf("history: got %d runs %+v, want one with minimum 46", len(runs), runs)
	}
}

func healthState(url string) string {
	resp, err := http.Get(url)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()
	var body struct {
		State string `json:"state"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return ""
	}
	return body.State
}

// --- globals ----------------------------------------------------------------

func TestGlobals_Validate(t *testing.T) {
	good := []Globals{{}, {LogLevel: "debug", LogFormat: "json"}, {LogLevel: "error", LogFormat: "text"}}
	for _, g := range good {
		if err := g.validate(); err != nil {
			t.Errorf("%+v: %v", g, err)
		}
	}
	bad := []Globals{{LogLevel: "loud"}, {LogFormat: "xml"}}
	for _, g := range bad {
		if err := g.validate(); err == nil {
			t.Errorf("%+v: expected error", g)
		}
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, "warn", "json")
	if l.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("warn logger enabled at info")
	}
	l.Warn("solve: slow", "ms", 5)
	if !strings.HasPrefix(buf.String(), "{") {
		t.Errorf("json handler output %q", buf.String())
	}

	buf.Reset()
	newLogger(&buf, "", "").Info("x")
	if !strings.Contains(buf.String(), "level=INFO") {
		t.Errorf("text handler output %q", buf.String())
	}
}

func TestPick(t *testing.T) {
	if pick("", "info") != "info" || pick("debug", "info") != "debug" {
		t.Error("pick does not prefer the flag")
	}
}
