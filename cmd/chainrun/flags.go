package main

import (
	"flag"
	"fmt"
	"os"
)

// cliConfig holds the parsed command-line options.
type cliConfig struct {
	ConfigPath  string
	Chain       string
	Query       string
	Results     int
	LogLevel    string
	LogFormat   string
	Validate    bool
	ShowVersion bool
}

// parseFlags parses the command line. The second return value is true
// when the process should exit immediately (version printout).
func parseFlags() (cliConfig, bool, error) {
	var cfg cliConfig

	flag.StringVar(&cfg.ConfigPath, "config",
		"config.yaml", "Path to the chain configuration file")
	flag.StringVar(&cfg.ConfigPath, "c",
		"config.yaml", "Path to the chain configuration file (shorthand)")
	flag.StringVar(&cfg.Chain, "chain",
		"", "Name of the chain to execute")
	flag.StringVar(&cfg.Query, "query",
		"", "Query attribute passed to the chain")
	flag.IntVar(&cfg.Results, "results",
		0, "Requested result count (0 uses the chain default)")
	flag.StringVar(&cfg.LogLevel, "log-level",
		"info", "Log level (debug, info, warn, error)")
	flag.StringVar(&cfg.LogFormat, "log-format",
		"text", "Log format (json or text)")
	flag.BoolVar(&cfg.Validate, "validate",
		false, "Validate the configuration and exit")
	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	flag.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	flag.Parse()

	if cfg.ShowVersion {
		fmt.Printf("%s %s\n", appName, Version)
		return cfg, true, nil
	}

	if cfg.ConfigPath == "" {
		return cfg, false, fmt.Errorf("a configuration path is required")
	}
	if _, err := os.Stat(cfg.ConfigPath); err != nil {
		return cfg, false, fmt.Errorf("configuration file %q: %w", cfg.ConfigPath, err)
	}
	if !cfg.Validate && cfg.Chain == "" {
		return cfg, false, fmt.Errorf("a chain name is required (use -chain)")
	}

	return cfg, false, nil
}
