// ============================================================================
// Arbiter Engine - Orchestration Core
// ============================================================================
//
// Package: internal/engine
// File: engine.go
// Purpose: Compose Validator -> Classifier -> Sandbox(Registry) into the
// single-problem request/response cycle, and expose the registry and batch
// processor for multi-problem use.
//
// Request Flow:
//   1. Validate (optional): reject immediately on invalid input, the
//      registry is never reached
//   2. Classify (optional): adopt the classifier's type as the dispatch
//      hint only when the caller supplied none and it is not Unknown
//   3. Sandbox(Registry.Solve): faults become unknown results, never
//      crashes
//   4. Assemble the boundary Response
//
// Fault Policy:
//   A single procedure's failure or a sandbox fault is contained and
//   reified into the response. Only configuration faults (duplicate or
//   missing procedure names, empty batch) surface as hard errors to the
//   immediate caller. Nothing here terminates the process.
//
// ============================================================================

package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/arbiterlabs/arbiter/internal/batch"
	"github.com/arbiterlabs/arbiter/internal/classifier"
	"github.com/arbiterlabs/arbiter/internal/monitor"
	"github.com/arbiterlabs/arbiter/internal/procedures"
	"github.com/arbiterlabs/arbiter/internal/registry"
	"github.com/arbiterlabs/arbiter/internal/sandbox"
	"github.com/arbiterlabs/arbiter/internal/validator"
	"github.com/arbiterlabs/arbiter/pkg/procedure"
)

var log = slog.Default()

// Version is reported by Info.
const Version = "2.0.0"

// Config assembles an engine.
type Config struct {
	// SolveTimeout bounds one sandboxed solve; sandbox.DefaultTimeout
	// when zero.
	SolveTimeout time.Duration
	// MaxMemoryMB is the sandbox's best-effort heap ceiling; zero
	// disables it.
	MaxMemoryMB int
	// BatchConcurrency bounds simultaneous batch items;
	// batch.DefaultConcurrency when zero.
	BatchConcurrency int
	// BatchItemTimeout bounds one batch item; defaults to SolveTimeout.
	BatchItemTimeout time.Duration
	// Validator overrides the default validator limits when non-nil.
	Validator *validator.Validator
	// Metrics receives solve outcomes when non-nil.
	Metrics MetricsRecorder
}

// MetricsRecorder receives pipeline outcomes. Satisfied by
// *metrics.Collector.
type MetricsRecorder interface {
	RecordSolve(verdict string, seconds float64)
	RecordValidationRejection()
	RecordBatchItem(success bool)
	SetRegisteredProcedures(n int)
}

// Engine is the orchestration entry point. Safe for concurrent use.
type Engine struct {
	cfg        Config
	registry   *registry.Registry
	validator  *validator.Validator
	classifier *classifier.Classifier
	sandbox    *sandbox.Sandbox
	perf       *monitor.PerformanceMonitor
	tracer     *monitor.Tracer
	metrics    MetricsRecorder
}

// New assembles an engine around an empty registry. Register built-in
// procedures with RegisterDefaults or individual ones with Register.
func New(cfg Config) *Engine {
	v := cfg.Validator
	if v == nil {
		v = validator.New()
	}

	return &Engine{
		cfg:        cfg,
		registry:   registry.New(),
		validator:  v,
		classifier: classifier.New(),
		sandbox: sandbox.New(sandbox.Config{
			Timeout:     cfg.SolveTimeout,
			MaxMemoryMB: cfg.MaxMemoryMB,
		}),
		perf:    monitor.NewPerformanceMonitor(),
		tracer:  monitor.NewTracer(0),
		metrics: cfg.Metrics,
	}
}

// RegisterDefaults registers the built-in procedures. The external
// fallback joins only when its backend is installed.
func (e *Engine) RegisterDefaults() error {
	if err := e.Register(procedures.NewPresburger()); err != nil {
		return err
	}
	if err := e.Register(procedures.NewDiophantine()); err != nil {
		return err
	}
	ext := procedures.NewExternal()
	if ext.Available() {
		if err := e.Register(ext); err != nil {
			return err
		}
	} else {
		log.Info("External solver backend not installed; fallback disabled")
	}
	return nil
}

// Register adds a procedure to the engine's registry.
func (e *Engine) Register(p procedure.Procedure) error {
	if err := e.registry.Register(p); err != nil {
		return err
	}
	log.Info("Procedure registered", "name", p.Name(), "priority", p.Priority())
	if e.metrics != nil {
		e.metrics.SetRegisteredProcedures(len(e.registry.List()))
	}
	return nil
}

// Unregister removes a procedure from the engine's registry.
func (e *Engine) Unregister(name string) error {
	if err := e.registry.Unregister(name); err != nil {
		return err
	}
	log.Info("Procedure unregistered", "name", name)
	if e.metrics != nil {
		e.metrics.SetRegisteredProcedures(len(e.registry.List()))
	}
	return nil
}

// Registry exposes the engine's registry for direct dispatch.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// Monitor exposes the engine's performance monitor.
func (e *Engine) Monitor() *monitor.PerformanceMonitor {
	return e.perf
}

// Tracer exposes the engine's tracer.
func (e *Engine) Tracer() *monitor.Tracer {
	return e.tracer
}

// SolveOptions tunes one solve request.
type SolveOptions struct {
	// TypeHint pins the dispatch hint; TypeUnknown lets the classifier
	// supply one.
	TypeHint procedure.ProblemType
	// Timeout bounds the registry dispatch inside the sandbox; the
	// engine's SolveTimeout when zero.
	Timeout time.Duration
	// SkipValidation bypasses the validator.
	SkipValidation bool
	// SkipClassification bypasses the classifier.
	SkipClassification bool
	// NoFallback stops dispatch after the first capable procedure.
	NoFallback bool
}

// Solve runs the full pipeline for one problem and always returns a
// response; faults are reified, never propagated.
func (e *Engine) Solve(ctx context.Context, problem string, opts SolveOptions) *Response {
	start := time.Now()
	finish := e.perf.Measure("solve")

	trace := e.tracer.StartTrace("solve")
	defer trace.Finish()

	text := problem

	// Step 1: validation gate.
	if !opts.SkipValidation {
		span := e.tracer.StartSpan(trace, "validate")
		vres := e.validator.Validate(problem)
		span.Finish()

		if !vres.IsValid {
			log.Warn("Input rejected by validation",
				"errors", len(vres.Errors),
				"trace", trace.TraceID)
			if e.metrics != nil {
				e.metrics.RecordValidationRejection()
			}
			finish(false)
			return invalidResponse(vres, time.Since(start))
		}
		text = vres.SanitizedInput
		trace.SetTag("sanitized", "true")
		// Warnings ride along on the success response.
		return e.solveValidated(ctx, text, opts, vres.Warnings, trace, start, finish)
	}

	return e.solveValidated(ctx, text, opts, nil, trace, start, finish)
}

// solveValidated runs classification and dispatch on already-validated
// text.
func (e *Engine) solveValidated(ctx context.Context, text string, opts SolveOptions, warnings []string, trace *monitor.Span, start time.Time, finish func(bool)) *Response {
	// Step 2: classification supplies the hint only when the caller
	// did not.
	hint := opts.TypeHint
	var analysis *classifier.Result
	if !opts.SkipClassification {
		span := e.tracer.StartSpan(trace, "classify")
		res := e.classifier.Analyze(text)
		span.SetTag("problem_type", string(res.ProblemType))
		span.Finish()
		analysis = &res

		if hint == procedure.TypeUnknown && res.ProblemType != procedure.TypeUnknown {
			hint = res.ProblemType
		}
	}

	// Step 3: sandboxed dispatch.
	span := e.tracer.StartSpan(trace, "dispatch")
	result, err := sandbox.Run(ctx, e.sandbox, func(ctx context.Context) procedure.SolverResult {
		return e.registry.Solve(ctx, text, registry.SolveOptions{
			Hint:       hint,
			Timeout:    opts.Timeout,
			NoFallback: opts.NoFallback,
		})
	})
	span.Finish()

	if err != nil {
		// Sandbox faults become inconclusive results.
		result = faultResult(err)
		log.Warn("Sandboxed solve faulted", "error", err, "trace", trace.TraceID)
	}

	total := time.Since(start)
	finish(result.Definitive())
	if e.metrics != nil {
		e.metrics.RecordSolve(verdictLabel(result.Satisfiable), total.Seconds())
	}

	log.Debug("Solve completed",
		"solver", result.SolverName,
		"satisfiable", result.Satisfiable.String(),
		"duration", total)

	return successResponse(result, analysis, warnings, total)
}

// SolveBatch runs every problem through the full pipeline under the
// engine's concurrency bound. An empty problem list fails with
// batch.ErrEmptyBatch before any work.
func (e *Engine) SolveBatch(ctx context.Context, problems []string, opts SolveOptions) (*batch.Result[*Response], error) {
	finish := e.perf.Measure("batch")

	itemTimeout := e.cfg.BatchItemTimeout
	if itemTimeout <= 0 {
		itemTimeout = e.cfg.SolveTimeout
	}

	res, err := batch.Process(ctx, problems, func(ctx context.Context, problem string) (*Response, error) {
		resp := e.Solve(ctx, problem, opts)
		if e.metrics != nil {
			e.metrics.RecordBatchItem(resp.Error == "")
		}
		if resp.Error != "" {
			return resp, errors.New(resp.Error)
		}
		return resp, nil
	}, batch.Config{
		Concurrency: e.cfg.BatchConcurrency,
		ItemTimeout: itemTimeout,
	})

	finish(err == nil)
	if err != nil {
		return nil, err
	}

	log.Info("Batch completed",
		"total", res.Total,
		"successful", res.Successful,
		"failed", res.Failed,
		"duration", res.Duration)
	return res, nil
}

// Classify exposes the classifier for callers that want analysis without
// a solve.
func (e *Engine) Classify(problem string) classifier.Result {
	return e.classifier.Analyze(problem)
}

// ProcedureInfo describes one registered procedure.
type ProcedureInfo struct {
	Name           string                  `json:"name"`
	Priority       int                     `json:"priority"`
	SupportedTypes []procedure.ProblemType `json:"supported_types"`
}

// ListProcedures returns the registered procedures in dispatch order.
func (e *Engine) ListProcedures() []ProcedureInfo {
	names := e.registry.List()
	out := make([]ProcedureInfo, 0, len(names))
	for _, name := range names {
		p, err := e.registry.Get(name)
		if err != nil {
			continue
		}
		out = append(out, ProcedureInfo{
			Name:           p.Name(),
			Priority:       p.Priority(),
			SupportedTypes: p.SupportedTypes(),
		})
	}
	return out
}

// Info summarizes the engine's build and capabilities.
type Info struct {
	Version    string   `json:"version"`
	Procedures []string `json:"procedures"`
	Features   []string `json:"features"`
}

// GetInfo reports the engine version, registered procedures, and enabled
// features.
func (e *Engine) GetInfo() Info {
	return Info{
		Version:    Version,
		Procedures: e.registry.List(),
		Features: []string{
			"validation",
			"classification",
			"sandboxed_execution",
			"batch_processing",
			"tracing",
		},
	}
}
