package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"agentcore/pkg/agent"
	llmmetrics "agentcore/pkg/agent/middleware/metrics"
	"agentcore/pkg/config"
	"agentcore/pkg/eventlog"
	"agentcore/pkg/logx"
	"agentcore/pkg/metrics"
	"agentcore/pkg/orchestrator"
	"agentcore/pkg/registry"
	"agentcore/pkg/scheduler"
	"agentcore/pkg/tools"
	"agentcore/pkg/version"
	"agentcore/pkg/worker"
)

type options struct {
	configPath    string
	goal          string
	model         string
	projectDir    string
	poolSize      int
	readOnly      bool
	summary       bool
	prometheusURL string
	eventLogDir   string
	debug         bool
}

func main() {
	var (
		opts        options
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.StringVar(&opts.configPath, "config", "", "Path to YAML configuration file (optional)")
	flag.StringVar(&opts.goal, "goal", "", "Developer goal for the orchestrator")
	flag.StringVar(&opts.model, "model", "", "Engine model (overrides engine.model; provider is inferred from the name)")
	flag.StringVar(&opts.projectDir, "projectdir", ".", "Project directory the agents work in")
	flag.IntVar(&opts.poolSize, "pool", 0, "Concurrent workers (overrides scheduler.pool_size)")
	flag.BoolVar(&opts.readOnly, "readonly", false, "Disable mutating tools")
	flag.BoolVar(&opts.summary, "summary", false, "Print agent and token usage summary after the run")
	flag.StringVar(&opts.prometheusURL, "prometheus-url", "", "Prometheus server to query for historical token usage (optional)")
	flag.StringVar(&opts.eventLogDir, "eventlog", "", "Directory for the JSONL agent journal (overrides event_log.dir)")
	flag.BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	exitCode := run(&opts, os.Stdout)
	os.Exit(exitCode)
}

// loadConfig reads the config file when given and applies command-line overrides.
func loadConfig(opts *options) (*config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if opts.model != "" && opts.model != cfg.Engine.Model {
		cfg.Engine.Model = opts.model
		cfg.Engine.Provider = ""
		cfg.Engine.APIKey = ""
		cfg.ApplyDefaults()
	}
	if opts.poolSize > 0 {
		cfg.Scheduler.PoolSize = opts.poolSize
	}
	if opts.readOnly {
		cfg.Tools.ReadOnly = true
	}
	if opts.eventLogDir != "" {
		cfg.EventLog.Dir = opts.eventLogDir
	}
	if opts.projectDir != "" && opts.projectDir != "." {
		cfg.Tools.WorkspaceRoot = opts.projectDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newToolExecutor builds the shared workspace tools. spawn_agent is never among them.
func newToolExecutor(cfg *config.ToolsConfig) (*tools.Executor, error) {
	root, err := filepath.Abs(cfg.WorkspaceRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace root: %w", err)
	}
	allowed := cfg.Enabled
	if len(allowed) == 0 {
		allowed = tools.WorkspaceTools
	}
	return tools.NewProvider(tools.AgentContext{
		Workspace: tools.Workspace{Root: root, MaxReadBytes: cfg.MaxReadBytes},
		ReadOnly:  cfg.ReadOnly,
	}, allowed)
}

//nolint:cyclop // linear startup sequence
func run(opts *options, out io.Writer) int {
	if opts.goal == "" {
		fmt.Fprintln(os.Stderr, "❌ -goal is required")
		return 2
	}
	if opts.debug {
		logx.SetDebug(true)
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Config error: %v\n", err)
		return 1
	}
	if err := cfg.RequireAPIKey(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	promReg := prometheus.NewRegistry()
	recorder := metrics.NewPrometheus(promReg)
	usage := llmmetrics.NewUsageRecorder()

	client, err := agent.NewClient(&cfg.Engine, llmmetrics.Tee(llmmetrics.NewPrometheusRecorder(promReg), usage))
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to create engine client: %v\n", err)
		return 1
	}

	exec, err := newToolExecutor(&cfg.Tools)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to create tools: %v\n", err)
		return 1
	}

	if cfg.Metrics.Enabled {
		stop := serveMetrics(ctx, cfg.Metrics.ListenAddr, promReg)
		defer stop()
	}

	reg := registry.New(registry.WithObserver(recorder))
	sched := scheduler.New(reg, &worker.Runner{
		Client:   client,
		Tools:    exec,
		Registry: reg,
		Config: worker.Config{
			Persona:       cfg.Worker.Persona,
			MaxIterations: cfg.Worker.MaxIterations,
			MaxTokens:     cfg.Engine.MaxTokens,
			Temperature:   cfg.Engine.Temperature,
		},
	},
		scheduler.WithPoolSize(cfg.Scheduler.PoolSize),
		scheduler.WithObserver(recorder),
		scheduler.WithBaseContext(ctx),
	)
	orch := orchestrator.New(client, exec, reg, sched, orchestrator.Config{
		Persona:       cfg.Orchestrator.Persona,
		MaxIterations: cfg.Orchestrator.MaxIterations,
		MaxTokens:     cfg.Engine.MaxTokens,
		Temperature:   cfg.Engine.Temperature,
		WaitTimeout:   cfg.Orchestrator.WaitTimeout,
		PollInterval:  cfg.Orchestrator.PollInterval,
	}, orchestrator.WithRecorder(recorder))

	fmt.Fprintf(out, "🚀 Running %s with %d worker slot(s)\n", client.GetModelName(), cfg.Scheduler.PoolSize)
	res := orch.Execute(ctx, opts.goal, cfg.Tools.WorkspaceRoot)

	// Agents still queued after the wait are abandoned.
	if n := sched.CancelQueued(); n > 0 {
		fmt.Fprintf(out, "⚠️  %d queued agent(s) cancelled\n", n)
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	//nolint:contextcheck // the run context may already be cancelled
	if err := sched.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "⚠️  Workers still running at exit: %v\n", err)
	}

	if cfg.EventLog.Dir != "" {
		if err := journalRun(cfg.EventLog.Dir, res, reg.List()); err != nil {
			fmt.Fprintf(os.Stderr, "⚠️  Event log not written: %v\n", err)
		}
	}

	if err := writeJSON(out, res); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to write result: %v\n", err)
		return 1
	}

	if opts.summary {
		printSummary(out, reg.Summary(), usage.All())
	}
	if opts.prometheusURL != "" {
		printHistoricalUsage(ctx, out, opts.prometheusURL, res)
	}

	if !res.Success {
		return 1
	}
	return 0
}

// journalRun appends the run and every agent's lifecycle to the event log.
func journalRun(dir string, res *orchestrator.Result, records []*registry.Record) error {
	w, err := eventlog.NewWriter(dir)
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Write(&eventlog.Event{
		Kind:  eventlog.KindRunStarted,
		RunID: res.RunID,
		Data:  map[string]any{"spawnedAgents": len(res.SpawnedAgents)},
	}); err != nil {
		return err
	}
	for _, rec := range records {
		if err := w.WriteRecord(res.RunID, rec); err != nil {
			return err
		}
	}
	return w.Write(&eventlog.Event{
		Kind:  eventlog.KindRunFinished,
		RunID: res.RunID,
		Error: res.Error,
		Data:  map[string]any{"state": res.State, "iterations": res.Iterations},
	})
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func printSummary(w io.Writer, s registry.Summary, usage []llmmetrics.AgentUsage) {
	fmt.Fprintln(w, "\n📊 Agents")
	fmt.Fprintf(w, "   total: %d, tool calls: %d, average execution: %s\n",
		s.Total, s.TotalToolCalls, s.AverageExecutionTime.Round(time.Millisecond))
	for _, st := range registry.Statuses {
		fmt.Fprintf(w, "   %-12s %d\n", st, s.ByStatus[st])
	}
	if len(usage) == 0 {
		return
	}
	fmt.Fprintln(w, "\n🔢 Token usage")
	for i := range usage {
		u := &usage[i]
		fmt.Fprintf(w, "   %-14s prompt=%d completion=%d requests=%d failed=%d\n",
			u.AgentID, u.PromptTokens, u.CompletionTokens, u.RequestCount, u.FailedCount)
	}
}

// printHistoricalUsage reports what Prometheus has recorded for each agent of this run.
func printHistoricalUsage(ctx context.Context, w io.Writer, url string, res *orchestrator.Result) {
	qs, err := metrics.NewQueryService(url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "⚠️  Prometheus query unavailable: %v\n", err)
		return
	}
	ids := []string{"orchestrator"}
	for _, s := range res.SpawnedAgents {
		ids = append(ids, s.AgentID)
	}
	fmt.Fprintf(w, "\n📈 Prometheus usage (%s)\n", url)
	for _, id := range ids {
		t, err := qs.AgentUsage(ctx, id)
		if err != nil {
			fmt.Fprintf(os.Stderr, "⚠️  %s: %v\n", id, err)
			continue
		}
		fmt.Fprintf(w, "   %-14s total=%d requests=%d\n", id, t.TotalTokens, t.Requests)
	}
}

// serveMetrics exposes the registry on /metrics until ctx ends or stop is called.
func serveMetrics(ctx context.Context, addr string, gatherer prometheus.Gatherer) (stop func()) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger := logx.NewLogger("metrics")
	go func() {
		logger.Info("Serving metrics on %s/metrics", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server error: %v", err)
		}
	}()

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		//nolint:contextcheck // parent context may be cancelled
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Metrics server shutdown failed: %v", err)
		}
	}()
	return func() { close(done) }
}
