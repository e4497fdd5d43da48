// ============================================================================
// Arbiter Classifier - Heuristic Problem Analysis
// ============================================================================
//
// Package: internal/classifier
// File: classifier.go
// Purpose: Label a problem's type, confidence, and complexity, and
// recommend a procedure for it.
//
// Classification is purely heuristic: deterministic regexp checks over the
// raw text, no external calls, no side effects. The categories overlap, so
// detection order matters; see Analyze for the precedence.
//
// The complexity score and transformation suggestions are advisory only
// and never change the solve path.
//
// ============================================================================

package classifier

import (
	"regexp"
	"strings"

	"github.com/arbiterlabs/arbiter/pkg/procedure"
)

// Result of a single analysis call. Produced fresh per call, never mutated
// afterward.
type Result struct {
	ProblemType              procedure.ProblemType `json:"problem_type"`
	Confidence               float64               `json:"confidence"`
	ComplexityScore          int                   `json:"complexity_score"`
	RecommendedProcedure     string                `json:"recommended_procedure,omitempty"`
	SuggestedTransformations []string              `json:"suggested_transformations,omitempty"`
	Reasoning                string                `json:"reasoning"`
}

var (
	reArithmetic = regexp.MustCompile(`[+\-]`)
	reAnyArith   = regexp.MustCompile(`[+\-*/]`)
	reComparison = regexp.MustCompile(`[<>=!]=?`)
	rePower      = regexp.MustCompile(`(?i)\^|\*\*|pow`)
	reVarMult    = regexp.MustCompile(`[a-z]\s*\*\s*[a-z]`)
	reSquared    = regexp.MustCompile(`\^2|\*\*2|x\*x|y\*y`)
	reVariable   = regexp.MustCompile(`\b[a-z]\b`)
)

var booleanKeywords = []string{"and", "or", "not", "true", "false", "implies"}

// Classifier analyzes problem text. Stateless; the zero value is usable
// but New is preferred for symmetry with the other components.
type Classifier struct{}

// New returns a Classifier.
func New() *Classifier {
	return &Classifier{}
}

// Analyze classifies the problem and scores its complexity.
//
// The checks are mutually biased and evaluated in this precedence, first
// match wins:
//  1. Diophantine: squared term (or an explicit integer hint) and "="
//  2. Presburger: +/- arithmetic, no variable*variable, no power operator
//  3. Nonlinear: power operator or variable*variable
//  4. Linear: +/- arithmetic and a comparison operator
//  5. Boolean: boolean keywords and no arithmetic operators
//  6. Unknown otherwise
func (c *Classifier) Analyze(problem string) Result {
	lower := strings.ToLower(problem)

	var res Result
	switch {
	case c.isDiophantine(problem, lower):
		res = Result{
			ProblemType:          procedure.TypeDiophantine,
			Confidence:           0.75,
			RecommendedProcedure: "diophantine",
			Reasoning:            "detected polynomial equation with integer constraints",
		}
	case c.isPresburger(problem, lower):
		res = Result{
			ProblemType:          procedure.TypePresburger,
			Confidence:           0.8,
			RecommendedProcedure: "presburger",
			Reasoning:            "detected linear integer arithmetic without multiplication",
		}
	case c.isNonlinear(lower):
		res = Result{
			ProblemType:          procedure.TypeNonlinearArithmetic,
			Confidence:           0.7,
			RecommendedProcedure: "external",
			Reasoning:            "detected nonlinear arithmetic, recommend general solver",
		}
	case c.isLinear(problem):
		res = Result{
			ProblemType:          procedure.TypeLinearArithmetic,
			Confidence:           0.85,
			RecommendedProcedure: "presburger",
			Reasoning:            "detected linear arithmetic",
		}
	case c.isBoolean(problem, lower):
		res = Result{
			ProblemType:          procedure.TypeBooleanLogic,
			Confidence:           0.9,
			RecommendedProcedure: "external",
			Reasoning:            "detected boolean/propositional logic",
		}
	default:
		res = Result{
			ProblemType:          procedure.TypeUnknown,
			Confidence:           0.5,
			RecommendedProcedure: "external",
			Reasoning:            "unknown problem type, recommend general solver",
		}
	}

	res.ComplexityScore = complexity(problem, lower)
	res.SuggestedTransformations = suggestTransformations(problem, res.ProblemType)
	return res
}

func (c *Classifier) isDiophantine(problem, lower string) bool {
	if !strings.Contains(problem, "=") {
		return false
	}
	if reSquared.MatchString(problem) {
		return true
	}
	// An explicit integer hint also marks the problem Diophantine.
	return strings.Contains(lower, "int")
}

func (c *Classifier) isPresburger(problem, lower string) bool {
	return reArithmetic.MatchString(problem) &&
		!reVarMult.MatchString(lower) &&
		!rePower.MatchString(lower)
}

func (c *Classifier) isNonlinear(lower string) bool {
	return rePower.MatchString(lower) || reVarMult.MatchString(lower)
}

func (c *Classifier) isLinear(problem string) bool {
	return reArithmetic.MatchString(problem) && reComparison.MatchString(problem)
}

func (c *Classifier) isBoolean(problem, lower string) bool {
	hasKeyword := false
	for _, kw := range booleanKeywords {
		if strings.Contains(lower, kw) {
			hasKeyword = true
			break
		}
	}
	return hasKeyword && !reAnyArith.MatchString(problem)
}

// complexity scores the problem on a 1-10 scale from length, distinct
// single-letter variables, bracket nesting depth, and nonlinear operators.
func complexity(problem, lower string) int {
	score := 1

	switch {
	case len(problem) > 100:
		score += 2
	case len(problem) > 50:
		score++
	}

	vars := make(map[string]struct{})
	for _, v := range reVariable.FindAllString(lower, -1) {
		vars[v] = struct{}{}
	}
	score += min(len(vars), 3)

	score += min(maxNesting(problem)/2, 2)

	if rePower.MatchString(lower) {
		score += 2
	}

	return min(score, 10)
}

func maxNesting(problem string) int {
	depth, maxDepth := 0, 0
	for _, r := range problem {
		switch r {
		case '(', '[', '{':
			depth++
			if depth > maxDepth {
				maxDepth = depth
			}
		case ')', ']', '}':
			depth--
		}
	}
	return maxDepth
}

func suggestTransformations(problem string, pt procedure.ProblemType) []string {
	var suggestions []string
	if len(problem) > 100 {
		suggestions = append(suggestions, "consider breaking into smaller sub-problems")
	}
	switch pt {
	case procedure.TypeNonlinearArithmetic:
		suggestions = append(suggestions,
			"try linearization if applicable",
			"consider bounds on variables to simplify search")
	case procedure.TypeDiophantine:
		suggestions = append(suggestions, "check if problem can be reduced modulo small primes")
	}
	return suggestions
}
