// ============================================================================
// Arbiter Engine - Boundary Response
// ============================================================================
//
// Package: internal/engine
// File: response.go
// Purpose: The structured response handed across the engine boundary,
// combining the solver result, optional analysis, and validation output.
//
// ============================================================================

package engine

import (
	"fmt"
	"time"

	"github.com/arbiterlabs/arbiter/internal/classifier"
	"github.com/arbiterlabs/arbiter/internal/validator"
	"github.com/arbiterlabs/arbiter/pkg/procedure"
)

// Analysis is the classifier block of a response.
type Analysis struct {
	ProblemType     procedure.ProblemType `json:"problem_type"`
	Confidence      float64               `json:"confidence"`
	ComplexityScore int                   `json:"complexity_score"`
	Reasoning       string                `json:"reasoning"`
	Recommendations []string              `json:"recommendations,omitempty"`
}

// Response is the engine's boundary output for one solve request.
//
// Success means the solver reached a definitive answer; an inconclusive
// dispatch is a well-formed response with Success false and Satisfiable
// null on the wire.
type Response struct {
	Success     bool                     `json:"success"`
	Satisfiable procedure.Satisfiability `json:"satisfiable"`
	SolverName  string                   `json:"solver_name,omitempty"`
	Explanation string                   `json:"explanation,omitempty"`
	Model       map[string]int64         `json:"model,omitempty"`

	ExecutionTimeMs int64 `json:"execution_time_ms"`
	TotalTimeMs     int64 `json:"total_time_ms"`

	AIAnalysis *Analysis         `json:"ai_analysis,omitempty"`
	Warnings   []string          `json:"warnings,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`

	Error            string   `json:"error,omitempty"`
	ValidationErrors []string `json:"validation_errors,omitempty"`
}

// successResponse assembles the response for a dispatch that ran (the
// result itself may still be inconclusive).
func successResponse(result procedure.SolverResult, analysis *classifier.Result, warnings []string, total time.Duration) *Response {
	resp := &Response{
		Success:         result.Definitive(),
		Satisfiable:     result.Satisfiable,
		SolverName:      result.SolverName,
		Explanation:     result.Explanation,
		Model:           result.Model,
		ExecutionTimeMs: result.ExecutionTime.Milliseconds(),
		TotalTimeMs:     total.Milliseconds(),
		Warnings:        warnings,
		Metadata:        result.Metadata,
	}

	if analysis != nil {
		resp.AIAnalysis = &Analysis{
			ProblemType:     analysis.ProblemType,
			Confidence:      analysis.Confidence,
			ComplexityScore: analysis.ComplexityScore,
			Reasoning:       analysis.Reasoning,
			Recommendations: analysis.SuggestedTransformations,
		}
	}
	return resp
}

// invalidResponse assembles the rejection response for input that failed
// validation. The registry is never consulted.
func invalidResponse(vres validator.Result, total time.Duration) *Response {
	return &Response{
		Success:          false,
		Satisfiable:      procedure.Unknown,
		Error:            "input validation failed",
		ValidationErrors: vres.Errors,
		Warnings:         vres.Warnings,
		TotalTimeMs:      total.Milliseconds(),
	}
}

// faultResult reifies a sandbox fault into an inconclusive solver result.
func faultResult(err error) procedure.SolverResult {
	return procedure.SolverResult{
		Satisfiable: procedure.Unknown,
		Explanation: fmt.Sprintf("execution aborted: %v", err),
		SolverName:  "sandbox",
		Metadata:    map[string]string{"fault": err.Error()},
	}
}

// verdictLabel maps a satisfiability to its metrics label.
func verdictLabel(s procedure.Satisfiability) string {
	switch s {
	case procedure.Sat:
		return "sat"
	case procedure.Unsat:
		return "unsat"
	default:
		return "unknown"
	}
}
