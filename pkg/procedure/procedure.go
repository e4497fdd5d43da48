// Package procedure defines the plugin contract for decision procedures.
//
// A decision procedure is a solver for a restricted class of
// logical/arithmetic problems. Third-party procedures implement the
// Procedure interface and register with a registry, where they take part
// in the same priority/fallback dispatch as the built-in procedures.
package procedure

import (
	"context"
	"encoding/json"
	"time"
)

// ProblemType classifies the theory a problem belongs to.
type ProblemType string

const (
	TypePresburger          ProblemType = "presburger"
	TypeDiophantine         ProblemType = "diophantine"
	TypeLinearArithmetic    ProblemType = "linear_arithmetic"
	TypeNonlinearArithmetic ProblemType = "nonlinear_arithmetic"
	TypeBooleanLogic        ProblemType = "boolean_logic"
	TypeQuantifierFree      ProblemType = "quantifier_free"
	TypeGeneral             ProblemType = "general"
	TypeUnknown             ProblemType = "unknown"
)

// Satisfiability is the tri-state outcome of a decision procedure.
// The zero value is Unknown, so an empty SolverResult is indeterminate
// rather than accidentally SAT.
type Satisfiability int

const (
	Unsat   Satisfiability = -1
	Unknown Satisfiability = 0
	Sat     Satisfiability = 1
)

func (s Satisfiability) String() string {
	switch s {
	case Sat:
		return "sat"
	case Unsat:
		return "unsat"
	default:
		return "unknown"
	}
}

// MarshalJSON renders the tri-state as true/false/null so callers on the
// wire boundary see a nullable boolean.
func (s Satisfiability) MarshalJSON() ([]byte, error) {
	switch s {
	case Sat:
		return []byte("true"), nil
	case Unsat:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts true/false/null.
func (s *Satisfiability) UnmarshalJSON(data []byte) error {
	var v *bool
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch {
	case v == nil:
		*s = Unknown
	case *v:
		*s = Sat
	default:
		*s = Unsat
	}
	return nil
}

// SolverResult is the outcome of a single decide attempt.
//
// Invariant: Model is non-empty only when Satisfiable == Sat, and only when
// the procedure actually constructed a witness (a SAT answer may come
// without one, e.g. from a pure existence argument).
type SolverResult struct {
	Satisfiable   Satisfiability    `json:"satisfiable"`
	Model         map[string]int64  `json:"model,omitempty"`
	Explanation   string            `json:"explanation,omitempty"`
	SolverName    string            `json:"solver_name"`
	ExecutionTime time.Duration     `json:"-"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Definitive reports whether the result is SAT or UNSAT (not Unknown).
func (r SolverResult) Definitive() bool {
	return r.Satisfiable != Unknown
}

// Procedure is the contract every decision procedure implements.
//
// Procedures are stateless with respect to problem content; any internal
// state (such as an external backend availability flag) is fixed at
// construction.
type Procedure interface {
	// Name returns the unique key this procedure registers under.
	Name() string

	// SupportedTypes returns the problem types this procedure targets.
	SupportedTypes() []ProblemType

	// CanHandle is a cheap, side-effect-free capability check. It must not
	// panic on malformed input; it returns false instead. hint may be
	// TypeUnknown when the caller has no classification.
	CanHandle(problem string, hint ProblemType) bool

	// Decide attempts to solve the problem. It must return rather than
	// hang: when the procedure cannot complete (unsupported shape, ctx
	// deadline, internal failure) it reports Unknown with an explanatory
	// message. ctx carries the soft time budget.
	Decide(ctx context.Context, problem string) SolverResult

	// Explain renders a human-readable account of a result. Pure function
	// of its input.
	Explain(res SolverResult) string

	// Priority ranks procedures for dispatch; higher is tried first.
	Priority() int
}
