// Package commands implements CLI command handlers for codefang.
package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/codefang/pkg/config"
	"github.com/Sumatoshi-tech/codefang/pkg/execcore"
	"github.com/Sumatoshi-tech/codefang/pkg/execcore/analyzers"
	"github.com/Sumatoshi-tech/codefang/pkg/framework"
	"github.com/Sumatoshi-tech/codefang/pkg/observability"
	"github.com/Sumatoshi-tech/codefang/pkg/version"
)

type observabilityInitFunc func(cfg observability.Config) (observability.Providers, error)

// ExecCoreCommand holds the flags and dependencies for the execcore command.
type ExecCoreCommand struct {
	path         string
	configPath   string
	workers      int
	noCache      bool
	executorKind string
	cacheMaxSize string
	cpuProfile   string
	memProfile   string
	gcPercent    int
	ballastSize  string

	observabilityInit observabilityInitFunc
}

// NewExecCoreCommand builds the "execcore" cobra command: it loads the
// files under --path into a FileDict and runs the FileCount/TokenHistogram
// analyzer pair through the execution core, printing the collected results
// as one table after the run completes.
func NewExecCoreCommand() *cobra.Command {
	return newExecCoreCommandWithDeps(observability.Init)
}

func newExecCoreCommandWithDeps(initFn observabilityInitFunc) *cobra.Command {
	ec := &ExecCoreCommand{observabilityInit: initFn}

	cmd := &cobra.Command{
		Use:   "execcore",
		Short: "Run the dependency-graph execution core over a file tree",
		RunE:  ec.run,
	}

	cmd.Flags().StringVarP(&ec.path, "path", "p", ".", "Folder to analyze")
	cmd.Flags().StringVar(&ec.configPath, "config", "", "Path to a codefang config file (falls back to ./config.yaml, ./config/config.yaml, /etc/codefang)")
	cmd.Flags().IntVar(&ec.workers, "workers", 0, "Number of parallel workers (0 = use CPU count; overrides config)")
	cmd.Flags().BoolVar(&ec.noCache, "no-cache", false, "Disable the task result cache (overrides config)")
	cmd.Flags().StringVar(&ec.executorKind, "executor", "parallel", "Executor kind: parallel or serial (overrides config)")
	cmd.Flags().StringVar(&ec.cacheMaxSize, "cache-max-size", "", "Informational cache size budget (e.g. '256MB')")
	cmd.Flags().StringVar(&ec.cpuProfile, "cpuprofile", "", "Write a CPU profile to this file for the duration of the run")
	cmd.Flags().StringVar(&ec.memProfile, "memprofile", "", "Write a heap profile to this file after the run completes")
	cmd.Flags().IntVar(&ec.gcPercent, "gc-percent", 100, "GOGC percent for the Go garbage collector")
	cmd.Flags().StringVar(&ec.ballastSize, "ballast-size", "", "Memory ballast to raise the GC trigger heap size (e.g. '1GiB')")

	return cmd
}

func (ec *ExecCoreCommand) run(cmd *cobra.Command, _ []string) error {
	providers, err := ec.initObservability()
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	defer func() {
		if shutdownErr := providers.Shutdown(ctx); shutdownErr != nil && providers.Logger != nil {
			providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
		}
	}()

	stopCPUProfile, err := framework.MaybeStartCPUProfile(ec.cpuProfile)
	if err != nil {
		return fmt.Errorf("start cpu profile: %w", err)
	}
	defer stopCPUProfile()

	defer framework.MaybeWriteHeapProfile(ec.memProfile)

	ballast, err := ec.applyRuntimeTuning()
	if err != nil {
		return fmt.Errorf("apply runtime tuning: %w", err)
	}
	defer runtime.KeepAlive(ballast)

	files, err := loadFileDict(ec.path)
	if err != nil {
		return fmt.Errorf("load files: %w", err)
	}

	params, err := ec.runParams(cmd)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	executor, cache, err := execcore.BuildRunConfig(params)
	if err != nil {
		return fmt.Errorf("build run config: %w", err)
	}

	var metrics *observability.ExecCoreMetrics

	var analysisMetrics *observability.AnalysisMetrics

	if providers.Meter != nil {
		metrics, err = observability.NewExecCoreMetrics(providers.Meter)
		if err != nil {
			return fmt.Errorf("init execcore metrics: %w", err)
		}

		analysisMetrics, err = observability.NewAnalysisMetrics(providers.Meter)
		if err != nil {
			return fmt.Errorf("init analysis metrics: %w", err)
		}

		if _, err = observability.NewSchedulerMetrics(providers.Meter); err != nil {
			return fmt.Errorf("init scheduler metrics: %w", err)
		}
	}

	section := &execcore.Section{Name: ec.path}
	seeds := []execcore.Analyzer{
		analyzers.NewFileCount(section, files),
		analyzers.NewTokenHistogram(section, files),
	}

	results, err := execcore.Run(ctx, analyzers.NewRegistry(), seeds, nil, execcore.RunOptions{
		Cache:           cache,
		Executor:        executor,
		Workers:         params.Workers,
		Logger:          providers.Logger,
		Tracer:          providers.Tracer,
		Metrics:         metrics,
		AnalysisMetrics: analysisMetrics,
	})
	if err != nil {
		return fmt.Errorf("execcore run: %w", err)
	}

	printResults(cmd.OutOrStdout(), results)

	return nil
}

// applyRuntimeTuning builds a framework.RunConfig from the --gc-percent and
// --ballast-size flags, applies GOGC via debug.SetGCPercent, and allocates
// the ballast. The returned slice must be kept alive for the run's
// duration: a ballast that gets collected immediately raises the GC's
// trigger heap size for nothing.
func (ec *ExecCoreCommand) applyRuntimeTuning() ([]byte, error) {
	tuning, err := framework.BuildConfigFromParams(framework.ConfigParams{
		GCPercent:   ec.gcPercent,
		BallastSize: ec.ballastSize,
	})
	if err != nil {
		return nil, err
	}

	debug.SetGCPercent(tuning.GCPercent)

	if tuning.BallastSize <= 0 {
		return nil, nil
	}

	return make([]byte, tuning.BallastSize), nil
}

// runParams loads pkg/config's ExecCoreConfig section (file + CODEFANG_*
// env vars, viper defaults otherwise) and layers any explicitly-passed CLI
// flag on top, flag winning over config on a per-field basis.
func (ec *ExecCoreCommand) runParams(cmd *cobra.Command) (execcore.RunParams, error) {
	cfg, err := config.LoadConfig(ec.configPath)
	if err != nil {
		return execcore.RunParams{}, err
	}

	params := execcore.RunParams{
		Workers:      cfg.ExecCore.Workers,
		ExecutorKind: cfg.ExecCore.ExecutorKind,
		CacheEnabled: cfg.ExecCore.CacheEnabled,
		CacheMaxSize: ec.cacheMaxSize,
	}

	if cmd.Flags().Changed("workers") {
		params.Workers = ec.workers
	}

	if cmd.Flags().Changed("executor") {
		params.ExecutorKind = ec.executorKind
	}

	if cmd.Flags().Changed("no-cache") {
		params.CacheEnabled = !ec.noCache
	}

	return params, nil
}

func (ec *ExecCoreCommand) initObservability() (observability.Providers, error) {
	cfg := observability.DefaultConfig()
	cfg.ServiceVersion = version.Version
	cfg.OTLPEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	cfg.OTLPHeaders = observability.ParseOTLPHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"))
	cfg.OTLPInsecure = os.Getenv("OTEL_EXPORTER_OTLP_INSECURE") == "true"
	cfg.Mode = observability.ModeCLI

	return ec.observabilityInit(cfg)
}

// loadFileDict reads every regular file under root into an in-memory
// FileDict. This is the CLI's analogue of coala's file-collection step: the
// execution core itself never touches the filesystem, so something outside
// pkg/execcore must turn a path into file contents.
func loadFileDict(root string) (*execcore.FileDict, error) {
	fileDict := &execcore.FileDict{Files: make(map[string]string)}

	walkErr := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			return nil
		}

		content, readErr := os.ReadFile(path)
		if readErr != nil {
			return readErr
		}

		fileDict.Files[path] = string(content)

		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	return fileDict, nil
}

// printResults renders the execution core's flat result list as a single
// table: DOMAIN-6's thin rendering bridge, not a carried-over reporter.
func printResults(w io.Writer, results []execcore.Result) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Kind", "Path", "Detail"})

	for _, r := range results {
		switch v := r.(type) {
		case analyzers.FileCountResult:
			t.AppendRow(table.Row{"file_count", v.Path, fmt.Sprintf("%d bytes", v.Bytes)})
		case analyzers.TokenHistogramResult:
			t.AppendRow(table.Row{"token_histogram", v.Path, fmt.Sprintf("%d node kinds", len(v.Counts))})
		default:
			t.AppendRow(table.Row{"unknown", "", fmt.Sprintf("%v", v)})
		}
	}

	t.Render()
}
