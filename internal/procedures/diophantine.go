// ============================================================================
// Arbiter Procedures - Diophantine Equations
// ============================================================================
//
// Package: internal/procedures
// File: diophantine.go
// Purpose: Decision procedure for integer polynomial equations.
//
// The procedure recognizes only the linear form a*x + b*y = c with integer
// coefficients and answers via the gcd divisibility criterion: the
// equation has integer solutions iff gcd(a,b) divides c. This is an
// existence argument, so a SAT answer carries no constructed witness.
// Other equation shapes report unknown.
//
// ============================================================================

package procedures

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/arbiterlabs/arbiter/pkg/procedure"
)

var (
	reDioSquared = regexp.MustCompile(`\^2|\*\*2|x\*x|y\*y`)
	reDioLinear  = regexp.MustCompile(`^\s*(\d+)\s*\*?\s*([a-zA-Z]\w*)\s*\+\s*(\d+)\s*\*?\s*([a-zA-Z]\w*)\s*=\s*(\d+)\s*$`)
)

// Diophantine decides integer polynomial equations.
type Diophantine struct{}

// NewDiophantine returns the built-in Diophantine procedure.
func NewDiophantine() *Diophantine {
	return &Diophantine{}
}

// Name implements procedure.Procedure.
func (d *Diophantine) Name() string { return "diophantine" }

// SupportedTypes implements procedure.Procedure.
func (d *Diophantine) SupportedTypes() []procedure.ProblemType {
	return []procedure.ProblemType{
		procedure.TypeDiophantine,
		procedure.TypeNonlinearArithmetic,
	}
}

// CanHandle accepts text containing a squared term and an equals sign.
func (d *Diophantine) CanHandle(problem string, hint procedure.ProblemType) bool {
	if hint == procedure.TypeDiophantine {
		return true
	}
	return reDioSquared.MatchString(problem) && strings.Contains(problem, "=")
}

// Decide solves the linear form a*x + b*y = c via the gcd criterion and
// reports unknown for other shapes.
func (d *Diophantine) Decide(ctx context.Context, problem string) procedure.SolverResult {
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return procedure.SolverResult{
			Satisfiable:   procedure.Unknown,
			Explanation:   fmt.Sprintf("aborted before solving: %v", err),
			SolverName:    d.Name(),
			ExecutionTime: time.Since(start),
			Metadata:      map[string]string{"error": err.Error()},
		}
	}

	if m := reDioLinear.FindStringSubmatch(problem); m != nil {
		a, errA := strconv.ParseInt(m[1], 10, 64)
		b, errB := strconv.ParseInt(m[3], 10, 64)
		c, errC := strconv.ParseInt(m[5], 10, 64)
		if errA == nil && errB == nil && errC == nil {
			g := gcd(a, b)
			if g != 0 && c%g == 0 {
				return procedure.SolverResult{
					Satisfiable: procedure.Sat,
					Explanation: fmt.Sprintf("linear Diophantine %d*%s + %d*%s = %d has integer solutions",
						a, m[2], b, m[4], c),
					SolverName:    d.Name(),
					ExecutionTime: time.Since(start),
					Metadata: map[string]string{
						"type": "linear_diophantine",
						"gcd":  strconv.FormatInt(g, 10),
					},
				}
			}
			return procedure.SolverResult{
				Satisfiable: procedure.Unsat,
				Explanation: fmt.Sprintf("no integer solutions (gcd(%d,%d)=%d does not divide %d)",
					a, b, g, c),
				SolverName:    d.Name(),
				ExecutionTime: time.Since(start),
			}
		}
	}

	return procedure.SolverResult{
		Satisfiable:   procedure.Unknown,
		Explanation:   "complex Diophantine equation requires an advanced solver",
		SolverName:    d.Name(),
		ExecutionTime: time.Since(start),
		Metadata:      map[string]string{"reason": "partial_implementation"},
	}
}

// Explain implements procedure.Procedure.
func (d *Diophantine) Explain(res procedure.SolverResult) string {
	switch res.Satisfiable {
	case procedure.Sat:
		return fmt.Sprintf("the Diophantine equation has integer solutions. %s", res.Explanation)
	case procedure.Unsat:
		return fmt.Sprintf("the Diophantine equation has no integer solutions. %s", res.Explanation)
	default:
		if res.Explanation != "" {
			return res.Explanation
		}
		return "unable to determine if integer solutions exist"
	}
}

// Priority implements procedure.Procedure.
func (d *Diophantine) Priority() int { return 5 }

func gcd(a, b int64) int64 {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// formatModel renders a model deterministically for explanations.
func formatModel(model map[string]int64) string {
	keys := make([]string, 0, len(model))
	for k := range model {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, model[k]))
	}
	return strings.Join(parts, ", ")
}
