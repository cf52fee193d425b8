package daemon

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/obsidianstack/rangeshift/internal/compute"
	"github.com/obsidianstack/rangeshift/internal/config"
	"github.com/obsidianstack/rangeshift/internal/store"
)

// Notifier is told when fresh results are in the store.
type Notifier interface {
	Notify()
}

// Evaluator checks a result against alert rules.
type Evaluator interface {
	Evaluate(res *compute.Result)
}

// Deps are the collaborators a Daemon publishes to. Store is required.
type Deps struct {
	Store    *store.Store
	History  *store.History // nil disables history
	Notifier Notifier       // nil disables push notifications
	Alerts   Evaluator      // nil disables alerting
}

// Daemon runs configured jobs and publishes their results.
type Daemon struct {
	deps   Deps
	engine *compute.Engine
	reload chan struct{}
	now    func() time.Time // injectable for deterministic tests

	mu  sync.Mutex
	cfg *config.Config
}

// New creates a Daemon for cfg.
func New(cfg *config.Config, deps Deps) *Daemon {
	return &Daemon{
		deps:   deps,
		engine: compute.NewEngine(cfg.Engine.Strict),
		reload: make(chan struct{}, 1),
		now:    time.Now,
		cfg:    cfg,
	}
}

// SetConfig replaces the active configuration. Jobs no longer present are
// forgotten by the engine and dropped from the store.
// A running Run picks the change up and reprocesses every job.
func (d *Daemon) SetConfig(cfg *config.Config) {
	d.mu.Lock()
	old := d.cfg
	d.cfg = cfg
	d.mu.Unlock()

	for _, j := range old.Jobs {
		if !slices.ContainsFunc(cfg.Jobs, func(n config.Job) bool { return n.ID == j.ID }) {
			d.engine.Forget(j.ID)
			d.deps.Store.Delete(j.ID)
			slog.Info("daemon: job removed", "job", j.ID)
		}
	}
	d.engine.SetStrict(cfg.Engine.Strict)

	select {
	case d.reload <- struct{}{}:
	default:
	}
}

// Config returns the active configuration.
func (d *Daemon) Config() *config.Config {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg
}

// RunOnce processes every job and returns the results in job order.
func (d *Daemon) RunOnce(ctx context.Context) []*compute.Result {
	return d.process(ctx, d.Config().Jobs)
}

// RunPath processes the jobs reading path.
func (d *Daemon) RunPath(ctx context.Context, path string) []*compute.Result {
	var jobs []config.Job
	for _, j := range d.Config().Jobs {
		if j.Path == path {
			jobs = append(jobs, j)
		}
	}
	return d.process(ctx, jobs)
}

// Prune deletes history older than the configured retention. It is a
// no-op without history.
func (d *Daemon) Prune(ctx context.Context) {
	if d.deps.History == nil {
		return
	}
	retention := d.Config().Storage.Retention
	n, err := d.deps.History.Prune(ctx, d.now().Add(-retention))
	if err != nil {
		slog.Warn("daemon: prune history", "err", err)
		return
	}
	if n > 0 {
		slog.Info("daemon: pruned history", "rows", n, "retention", retention)
	}
}

// Run processes jobs until ctx is cancelled: once at start, on every rescan
// tick, after every config change and whenever an input file is written.
func (d *Daemon) Run(ctx context.Context) error {
	cfg := d.Config()
	ticker := time.NewTicker(cfg.Engine.RescanInterval)
	defer ticker.Stop()

	changes := make(chan string, 16)
	stopWatch := d.watch(ctx, cfg.InputPaths(), changes)
	defer func() { stopWatch() }()

	d.RunOnce(ctx)
	d.Prune(ctx)
	slog.Info("daemon: running", "jobs", len(cfg.Jobs), "rescan_interval", cfg.Engine.RescanInterval)

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-ticker.C:
			d.RunOnce(ctx)
			d.Prune(ctx)

		case path := <-changes:
			slog.Debug("daemon: input changed", "path", path)
			d.RunPath(ctx, path)

		case <-d.reload:
			cfg = d.Config()
			stopWatch()
			stopWatch = d.watch(ctx, cfg.InputPaths(), changes)
			ticker.Reset(cfg.Engine.RescanInterval)
			d.RunOnce(ctx)
		}
	}
}

// --- internal ---------------------------------------------------------------

func (d *Daemon) process(ctx context.Context, jobs []config.Job) []*compute.Result {
	out := make([]*compute.Result, 0, len(jobs))
	fresh := false
	for _, j := range jobs {
		if ctx.Err() != nil {
			break
		}
		res := d.engine.Process(j, d.now())
		d.deps.Store.Put(res)
		if !res.Cached {
			fresh = true
			if d.deps.History != nil {
				if err := d.deps.History.Record(ctx, res); err != nil {
					slog.Warn("daemon: record history", "job", j.ID, "err", err)
				}
			}
		}
		if d.deps.Alerts != nil {
			d.deps.Alerts.Evaluate(res)
		}
		out = append(out, res)
	}
	if fresh && d.deps.Notifier != nil {
		d.deps.Notifier.Notify()
	}
	return out
}

// watch starts a file watcher over paths that forwards written paths to
// changes. The returned func stops it and waits for it to exit.
func (d *Daemon) watch(ctx context.Context, paths []string, changes chan<- string) (stop func()) {
	if len(paths) == 0 {
		return func() {}
	}
	wctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		err := config.WatchFiles(wctx, paths, func(p string) {
			select {
			case changes <- p:
			case <-wctx.Done():
			}
		})
		if err != nil {
			slog.Error("daemon: input watcher stopped", "err", err)
		}
	}()
	return func() {
		cancel()
		<-done
	}
}
