// ============================================================================
// Arbiter Procedures - Presburger Arithmetic
// ============================================================================
//
// Package: internal/procedures
// File: presburger.go
// Purpose: Decision procedure for Presburger arithmetic (linear integer
// arithmetic without multiplication of variables).
//
// The procedure is intentionally partial: it decides only the pattern
// `variable = integer` and reports unknown for every other linear formula.
// A complete implementation would parse the formula and run quantifier
// elimination (Cooper's algorithm or the Omega test).
//
// ============================================================================

package procedures

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/arbiterlabs/arbiter/pkg/procedure"
)

var (
	rePresArith    = regexp.MustCompile(`[+\-=<>]`)
	rePresVariable = regexp.MustCompile(`\b[a-z]\b`)
	rePresVarMult  = regexp.MustCompile(`[a-z]\s*\*\s*[a-z]`)
	rePresPower    = regexp.MustCompile(`(?i)\^|\*\*|pow`)
	rePresAssign   = regexp.MustCompile(`^\s*([a-zA-Z_]\w*)\s*=\s*(\d+)\s*$`)
)

// Presburger decides linear integer arithmetic without variable
// multiplication.
type Presburger struct{}

// NewPresburger returns the built-in Presburger procedure.
func NewPresburger() *Presburger {
	return &Presburger{}
}

// Name implements procedure.Procedure.
func (p *Presburger) Name() string { return "presburger" }

// SupportedTypes implements procedure.Procedure.
func (p *Presburger) SupportedTypes() []procedure.ProblemType {
	return []procedure.ProblemType{
		procedure.TypePresburger,
		procedure.TypeLinearArithmetic,
	}
}

// CanHandle accepts text with arithmetic or comparison, at least one
// single-letter variable, and neither variable-variable multiplication nor
// a power operator.
func (p *Presburger) CanHandle(problem string, hint procedure.ProblemType) bool {
	if hint == procedure.TypePresburger {
		return true
	}
	lower := strings.ToLower(problem)
	return rePresArith.MatchString(problem) &&
		rePresVariable.MatchString(lower) &&
		!rePresVarMult.MatchString(lower) &&
		!rePresPower.MatchString(lower)
}

// Decide solves the `variable = integer` pattern and reports unknown for
// everything else.
func (p *Presburger) Decide(ctx context.Context, problem string) procedure.SolverResult {
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return procedure.SolverResult{
			Satisfiable:   procedure.Unknown,
			Explanation:   fmt.Sprintf("aborted before solving: %v", err),
			SolverName:    p.Name(),
			ExecutionTime: time.Since(start),
			Metadata:      map[string]string{"error": err.Error()},
		}
	}

	if m := rePresAssign.FindStringSubmatch(problem); m != nil {
		value, err := strconv.ParseInt(m[2], 10, 64)
		if err == nil {
			return procedure.SolverResult{
				Satisfiable:   procedure.Sat,
				Model:         map[string]int64{m[1]: value},
				Explanation:   fmt.Sprintf("found solution: %s = %d", m[1], value),
				SolverName:    p.Name(),
				ExecutionTime: time.Since(start),
			}
		}
	}

	return procedure.SolverResult{
		Satisfiable:   procedure.Unknown,
		Explanation:   "problem requires full Presburger quantifier elimination (not implemented)",
		SolverName:    p.Name(),
		ExecutionTime: time.Since(start),
		Metadata:      map[string]string{"reason": "partial_implementation"},
	}
}

// Explain implements procedure.Procedure.
func (p *Presburger) Explain(res procedure.SolverResult) string {
	switch res.Satisfiable {
	case procedure.Sat:
		if len(res.Model) > 0 {
			return fmt.Sprintf("the formula is satisfiable with: %s", formatModel(res.Model))
		}
		return "the formula is satisfiable"
	case procedure.Unsat:
		return "the formula is unsatisfiable (no solution exists)"
	default:
		if res.Explanation != "" {
			return res.Explanation
		}
		return "unable to determine satisfiability"
	}
}

// Priority implements procedure.Procedure. Presburger runs first for
// linear problems.
func (p *Presburger) Priority() int { return 10 }
