// ============================================================================
// Arbiter CLI - Command Line Interface
// ============================================================================
//
// Package: internal/cli
// File: cli.go
// Purpose: Provides user-friendly command line interface based on Cobra framework
//
// Command Structure:
//   arbiter                        # Root command
//   ├── solve <problem>            # Decide a single problem
//   │   └── --type, --no-fallback
//   ├── batch                      # Decide problems from a JSON file
//   │   └── --file, -f
//   ├── classify <problem>         # Heuristic analysis only
//   ├── procedures                 # List registered procedures
//   ├── run                        # Serve the Prometheus endpoint
//   ├── --config, -c               # Config file (persistent)
//   ├── --version                  # Display version information
//   └── --help                     # Display help information
//
// Configuration Management:
//   Uses YAML format config file (default: configs/default.yaml)
//   Configuration items include:
//   - validator: input size / nesting / repetition limits
//   - sandbox: solve timeout and memory ceiling
//   - batch: concurrency and per-item timeout
//   - metrics: Prometheus monitoring configuration
//
// batch Command:
//   Decide problems from a JSON file
//   JSON format:
//   [
//     "x = 42",
//     "3x + 6y = 9"
//   ]
//
//   Examples:
//     ./arbiter batch -f problems.json
//
// run Command:
//   Starts the metrics HTTP endpoint and waits for SIGINT/SIGTERM.
//   Useful when driving the engine from scripts while scraping metrics.
//
// Error Handling:
//   - Config load failed: return detailed error information
//   - Invalid input: the engine's validation response is printed, the
//     process exits zero (the rejection is data, not a CLI failure)
//
// ============================================================================

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arbiterlabs/arbiter/internal/engine"
	"github.com/arbiterlabs/arbiter/internal/metrics"
	"github.com/arbiterlabs/arbiter/internal/validator"
	"github.com/arbiterlabs/arbiter/pkg/procedure"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Config represents the complete system configuration structure
// Maps config file fields through YAML tags
type Config struct {
	Validator struct {
		MaxInputSize        int `yaml:"max_input_size"`
		MaxNestingDepth     int `yaml:"max_nesting_depth"`
		RepetitionThreshold int `yaml:"repetition_threshold"`
	} `yaml:"validator"`

	Sandbox struct {
		Timeout     time.Duration `yaml:"timeout"`
		MaxMemoryMB int           `yaml:"max_memory_mb"`
	} `yaml:"sandbox"`

	Batch struct {
		Concurrency int           `yaml:"concurrency"`
		ItemTimeout time.Duration `yaml:"item_timeout"`
	} `yaml:"batch"`

	Metrics struct {
		Enabled bool `yaml:"enabled"`
		Port    int  `yaml:"port"`
	} `yaml:"metrics"`
}

var configFile string

func BuildCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "arbiter",
		Short: "Arbiter: a decision-procedure orchestration engine",
		Long: `Arbiter dispatches satisfiability problems across pluggable
decision procedures with:
- Priority/fallback dispatch
- Heuristic problem classification
- Sandboxed execution with hard timeouts
- Bounded-concurrency batch processing`,
		Version: engine.Version,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "configs/default.yaml", "config file path")

	rootCmd.AddCommand(buildSolveCommand())
	rootCmd.AddCommand(buildBatchCommand())
	rootCmd.AddCommand(buildClassifyCommand())
	rootCmd.AddCommand(buildProceduresCommand())
	rootCmd.AddCommand(buildRunCommand())

	return rootCmd
}

func buildSolveCommand() *cobra.Command {
	var typeHint string
	var noFallback bool
	var skipValidation bool

	cmd := &cobra.Command{
		Use:   "solve <problem>",
		Short: "Decide the satisfiability of a single problem",
		Long:  "Run one problem through validation, classification, and dispatch, printing the JSON response",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return solveProblem(args[0], typeHint, noFallback, skipValidation)
		},
	}

	cmd.Flags().StringVar(&typeHint, "type", "", "Problem type hint (presburger, diophantine, ...)")
	cmd.Flags().BoolVar(&noFallback, "no-fallback", false, "Stop after the first capable procedure")
	cmd.Flags().BoolVar(&skipValidation, "skip-validation", false, "Bypass input validation")

	return cmd
}

func solveProblem(problem, typeHint string, noFallback, skipValidation bool) error {
	eng, err := buildEngine()
	if err != nil {
		return err
	}

	resp := eng.Solve(context.Background(), problem, engine.SolveOptions{
		TypeHint:       procedure.ProblemType(typeHint),
		NoFallback:     noFallback,
		SkipValidation: skipValidation,
	})

	return printJSON(resp)
}

func buildBatchCommand() *cobra.Command {
	var problemFile string

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Decide problems from a JSON file",
		Long:  "Read a JSON array of problem strings and solve them concurrently",
		RunE: func(cmd *cobra.Command, args []string) error {
			return solveBatch(problemFile)
		},
	}

	cmd.Flags().StringVarP(&problemFile, "file", "f", "", "JSON file containing an array of problem strings")
	cmd.MarkFlagRequired("file")

	return cmd
}

func solveBatch(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read problem file: %w", err)
	}

	var problems []string
	if err := json.Unmarshal(data, &problems); err != nil {
		return fmt.Errorf("failed to parse problem file: %w", err)
	}

	eng, err := buildEngine()
	if err != nil {
		return err
	}

	res, err := eng.SolveBatch(context.Background(), problems, engine.SolveOptions{})
	if err != nil {
		return fmt.Errorf("batch failed: %w", err)
	}

	log.Printf("Batch finished: %d/%d successful in %s\n", res.Successful, res.Total, res.Duration)
	return printJSON(res)
}

func buildClassifyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify <problem>",
		Short: "Heuristically classify a problem without solving it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := buildEngine()
			if err != nil {
				return err
			}
			return printJSON(eng.Classify(args[0]))
		},
	}
	return cmd
}

func buildProceduresCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "procedures",
		Short: "List registered decision procedures",
		Long:  "Display the registered procedures in dispatch (priority) order",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := buildEngine()
			if err != nil {
				return err
			}

			info := eng.GetInfo()
			fmt.Printf("Arbiter %s\n\n", info.Version)
			for _, p := range eng.ListProcedures() {
				fmt.Printf("  %-14s priority %4d  types %v\n", p.Name, p.Priority, p.SupportedTypes)
			}
			return nil
		},
	}
	return cmd
}

func buildRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the metrics endpoint and wait for shutdown",
		Long:  "Serve Prometheus metrics at /metrics until SIGINT or SIGTERM",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
	return cmd
}

func runServer() error {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if !cfg.Metrics.Enabled {
		return fmt.Errorf("metrics are disabled in %s; nothing to serve", configFile)
	}

	collector := metrics.NewCollector()
	if _, err := buildEngineWith(cfg, collector); err != nil {
		return err
	}

	go func() {
		log.Printf("Starting metrics server on :%d\n", cfg.Metrics.Port)
		if err := metrics.StartServer(cfg.Metrics.Port); err != nil {
			log.Printf("Metrics server error: %v\n", err)
		}
	}()

	log.Println("System started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("\nReceived shutdown signal, stopping gracefully...")
	return nil
}

// buildEngine assembles an engine from the configured limits, falling
// back to defaults when the config file is absent.
func buildEngine() (*engine.Engine, error) {
	cfg, err := loadConfig(configFile)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		cfg = &Config{}
	}
	return buildEngineWith(cfg, nil)
}

func buildEngineWith(cfg *Config, collector *metrics.Collector) (*engine.Engine, error) {
	var vopts []validator.Option
	if cfg.Validator.MaxInputSize > 0 {
		vopts = append(vopts, validator.WithMaxInputSize(cfg.Validator.MaxInputSize))
	}
	if cfg.Validator.MaxNestingDepth > 0 {
		vopts = append(vopts, validator.WithMaxNestingDepth(cfg.Validator.MaxNestingDepth))
	}
	if cfg.Validator.RepetitionThreshold > 0 {
		vopts = append(vopts, validator.WithRepetitionThreshold(cfg.Validator.RepetitionThreshold))
	}

	engCfg := engine.Config{
		SolveTimeout:     cfg.Sandbox.Timeout,
		MaxMemoryMB:      cfg.Sandbox.MaxMemoryMB,
		BatchConcurrency: cfg.Batch.Concurrency,
		BatchItemTimeout: cfg.Batch.ItemTimeout,
		Validator:        validator.New(vopts...),
	}
	if collector != nil {
		engCfg.Metrics = collector
	}

	eng := engine.New(engCfg)
	if err := eng.RegisterDefaults(); err != nil {
		return nil, fmt.Errorf("failed to register procedures: %w", err)
	}
	return eng, nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	return &cfg, nil
}
