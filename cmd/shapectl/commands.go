package main

import (
	"fmt"
	"io"
	"log/slog"
	"runtime"

	"github.com/dlclark/regexp2"
	"github.com/spf13/cobra"

	"shapegraph/pkg/config"
)

var (
	configPath string
	logLevel   string
	dumpShapes bool
	filterExpr string
	jobs       int

	rootCmd = &cobra.Command{
		Use:           "shapectl",
		Short:         "Replay shape mutation scripts against a shape engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	runCmd = &cobra.Command{
		Use:   "run [script.yaml...]",
		Short: "Run scripts, one engine per file",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runScripts,
	}

	statsCmd = &cobra.Command{
		Use:   "stats [script.yaml...]",
		Short: "Run scripts and print the shapegraph metrics they produced",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runStats,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "engine configuration file (YAML)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().IntVarP(&jobs, "jobs", "j", runtime.GOMAXPROCS(0), "scripts run in parallel")

	runCmd.Flags().BoolVar(&dumpShapes, "dump", false, "print the final shape of every object")
	runCmd.Flags().StringVar(&filterExpr, "filter", "", "only dump members whose name matches this ECMAScript regex")

	rootCmd.AddCommand(runCmd, statsCmd)
}

// loadConfig resolves the engine configuration: file, then environment,
// then command line.
func loadConfig() (config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return cfg, err
		}
	}
	cfg = config.FromEnv(cfg)
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	return cfg, cfg.Validate()
}

func newLogger(w io.Writer, cfg config.Config) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

// memberFilter compiles --filter; nil keeps every member.
func memberFilter(expr string) (func(string) bool, error) {
	if expr == "" {
		return nil, nil
	}
	re, err := regexp2.Compile(expr, regexp2.ECMAScript)
	if err != nil {
		return nil, fmt.Errorf("invalid --filter: %w", err)
	}
	return func(name string) bool {
		ok, err := re.MatchString(name)
		return err == nil && ok
	}, nil
}
