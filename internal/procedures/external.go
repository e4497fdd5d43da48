// ============================================================================
// Arbiter Procedures - External Solver Fallback
// ============================================================================
//
// Package: internal/procedures
// File: external.go
// Purpose: Lowest-priority fallback backed by an external SMT solver
// binary (z3 by default).
//
// The backend availability flag is fixed at construction: the procedure
// registers only when the binary is found on PATH (or availability is
// forced for tests). Constraint translation to the backend's input format
// is not implemented yet, so Decide always reports unknown.
//
// ============================================================================

package procedures

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/arbiterlabs/arbiter/pkg/procedure"
)

// DefaultBackend is the solver binary probed on PATH.
const DefaultBackend = "z3"

// External is the general fallback procedure delegating to an external
// solver backend.
type External struct {
	backend   string
	available bool
}

// ExternalOption configures the External procedure.
type ExternalOption func(*External)

// WithBackend overrides the backend binary name probed on PATH.
func WithBackend(name string) ExternalOption {
	return func(e *External) { e.backend = name }
}

// WithAvailability forces the availability flag, bypassing the PATH probe.
// Intended for tests.
func WithAvailability(available bool) ExternalOption {
	return func(e *External) { e.available = available }
}

// NewExternal probes for the backend binary and fixes the availability
// flag for the lifetime of the procedure.
func NewExternal(opts ...ExternalOption) *External {
	e := &External{backend: DefaultBackend}
	for _, opt := range opts {
		opt(e)
	}
	if !e.available {
		_, err := exec.LookPath(e.backend)
		e.available = err == nil
	}
	return e
}

// Name implements procedure.Procedure.
func (e *External) Name() string { return "external" }

// SupportedTypes implements procedure.Procedure.
func (e *External) SupportedTypes() []procedure.ProblemType {
	return []procedure.ProblemType{
		procedure.TypeLinearArithmetic,
		procedure.TypeNonlinearArithmetic,
		procedure.TypeBooleanLogic,
		procedure.TypeQuantifierFree,
		procedure.TypeGeneral,
	}
}

// CanHandle is true for any content whenever the backend is available.
func (e *External) CanHandle(problem string, hint procedure.ProblemType) bool {
	return e.available
}

// Decide reports unknown: the backend is probed but constraint
// translation to its input format is pending.
func (e *External) Decide(ctx context.Context, problem string) procedure.SolverResult {
	start := time.Now()

	if !e.available {
		return procedure.SolverResult{
			Satisfiable:   procedure.Unknown,
			Explanation:   fmt.Sprintf("external solver %q is not available on PATH", e.backend),
			SolverName:    e.Name(),
			ExecutionTime: time.Since(start),
			Metadata:      map[string]string{"error": "backend_not_installed"},
		}
	}

	return procedure.SolverResult{
		Satisfiable:   procedure.Unknown,
		Explanation:   fmt.Sprintf("external backend %q requires constraint translation (not implemented)", e.backend),
		SolverName:    e.Name(),
		ExecutionTime: time.Since(start),
		Metadata: map[string]string{
			"backend": e.backend,
			"reason":  "translation_not_implemented",
		},
	}
}

// Explain implements procedure.Procedure.
func (e *External) Explain(res procedure.SolverResult) string {
	switch res.Satisfiable {
	case procedure.Sat:
		if len(res.Model) > 0 {
			return fmt.Sprintf("the external solver found the formula satisfiable with model: %s", formatModel(res.Model))
		}
		return "the external solver determined the formula is satisfiable"
	case procedure.Unsat:
		return "the external solver proved the formula unsatisfiable"
	default:
		if res.Explanation != "" {
			return res.Explanation
		}
		return "the external solver could not determine satisfiability"
	}
}

// Priority implements procedure.Procedure. The fallback runs last.
func (e *External) Priority() int { return -10 }

// Available reports the backend availability fixed at construction.
func (e *External) Available() bool { return e.available }
