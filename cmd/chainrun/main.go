// Package main implements the chainrun entry point. Chainrun loads a
// chain configuration, assembles the named pipeline, executes it once
// for the supplied attributes and prints the memoizable result.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/openscripts/carrot2/chain"
	"github.com/openscripts/carrot2/component"
	"github.com/openscripts/carrot2/config"
	"github.com/openscripts/carrot2/controller"
	"github.com/openscripts/carrot2/metric"
	"github.com/openscripts/carrot2/pipeline"
)

// Build information constants
const (
	Version = "0.1.0"
	appName = "chainrun"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	cliCfg, shouldExit, err := parseFlags()
	if shouldExit || err != nil {
		return err
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	cfg, err := config.Load(cliCfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if cliCfg.Validate {
		logger.Info("Configuration is valid",
			"path", cliCfg.ConfigPath,
			"chains", len(cfg.Chains))
		return nil
	}

	chainCfg, ok := cfg.Chain(cliCfg.Chain)
	if !ok {
		return fmt.Errorf("chain %q not found in %s", cliCfg.Chain, cliCfg.ConfigPath)
	}

	registry := component.NewRegistry()
	if err := pipeline.Register(registry); err != nil {
		return fmt.Errorf("registering component factories: %w", err)
	}

	assembled, err := chain.AssembleFromConfig(registry, chainCfg)
	if err != nil {
		return fmt.Errorf("assembling chain %q: %w", chainCfg.Name, err)
	}
	logger.Info("Chain assembled",
		"chain", assembled.Name(),
		"chain_id", assembled.ID(),
		"components", assembled.Len())

	metricsRegistry := metric.NewRegistry()
	ctrl, err := controller.New(logger,
		controller.WithConfig(cfg.Controller),
		controller.WithMetrics(metricsRegistry, appName))
	if err != nil {
		return fmt.Errorf("creating controller: %w", err)
	}
	defer func() {
		if cerr := ctrl.Close(); cerr != nil {
			logger.Warn("Controller shutdown reported errors", "error", cerr)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	attrs := map[string]any{pipeline.KeyQuery: cliCfg.Query}
	if cliCfg.Results > 0 {
		attrs[pipeline.KeyRequestedResults] = cliCfg.Results
	}

	result, err := ctrl.Process(ctx, attrs, assembled)
	if err != nil {
		return fmt.Errorf("processing chain %q: %w", assembled.Name(), err)
	}
	logger.Info("Chain processed",
		"chain", assembled.Name(),
		"elapsed", result.Elapsed(),
		"items", result.Items())

	return printResult(result)
}

// printResult writes the execution outputs to stdout as indented JSON.
func printResult(result *controller.Result) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(map[string]any{
		"outputs":    result.Outputs(),
		"items":      result.Items(),
		"elapsed_ms": result.Elapsed().Milliseconds(),
	})
}
