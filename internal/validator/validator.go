// ============================================================================
// Arbiter Validator - Input Validation and Sanitization
// ============================================================================
//
// Package: internal/validator
// File: validator.go
// Purpose: Reject or sanitize raw problem text before any other component
// touches it.
//
// Checks (all collected, not short-circuited):
//   1. Size limit (default 10,000 characters)
//   2. No embedded null characters
//   3. Bracket nesting depth limit (default 50)
//   4. Deny-list of dangerous substrings/patterns
//   5. Excessive single-character repetition (warning only)
//
// A valid input additionally gets a sanitized copy: control characters
// stripped (whitespace kept) and whitespace runs collapsed to single
// spaces. Sanitization is idempotent and never mutates the input.
//
// ============================================================================

package validator

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// Default limits.
const (
	DefaultMaxInputSize        = 10000
	DefaultMaxNestingDepth     = 50
	DefaultRepetitionThreshold = 1000
)

// dangerousPatterns is the fixed deny-list: code-execution primitives,
// filesystem/process operations, path-traversal sequences, and
// script-injection markers.
var dangerousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)__import__`),
	regexp.MustCompile(`(?i)eval\s*\(`),
	regexp.MustCompile(`(?i)exec\s*\(`),
	regexp.MustCompile(`(?i)compile\s*\(`),
	regexp.MustCompile(`(?i)open\s*\(`),
	regexp.MustCompile(`(?i)system\s*\(`),
	regexp.MustCompile(`(?i)subprocess`),
	regexp.MustCompile(`\.\./`),
	regexp.MustCompile(`(?i)<script`),
}

// Result reports the outcome of a validation pass. Errors is ordered with
// the primary error first; SanitizedInput is set only when IsValid.
type Result struct {
	IsValid        bool     `json:"is_valid"`
	Errors         []string `json:"errors,omitempty"`
	Warnings       []string `json:"warnings,omitempty"`
	SanitizedInput string   `json:"sanitized_input,omitempty"`
}

// Validator checks problem text against configurable limits and a fixed
// deny-list. The zero value is not usable; construct with New.
type Validator struct {
	maxInputSize        int
	maxNestingDepth     int
	repetitionThreshold int
}

// Option configures a Validator.
type Option func(*Validator)

// WithMaxInputSize overrides the maximum accepted input length.
func WithMaxInputSize(n int) Option {
	return func(v *Validator) { v.maxInputSize = n }
}

// WithMaxNestingDepth overrides the maximum bracket nesting depth.
func WithMaxNestingDepth(n int) Option {
	return func(v *Validator) { v.maxNestingDepth = n }
}

// WithRepetitionThreshold overrides the single-character repetition limit.
func WithRepetitionThreshold(n int) Option {
	return func(v *Validator) { v.repetitionThreshold = n }
}

// New creates a Validator with default limits, adjusted by opts.
func New(opts ...Option) *Validator {
	v := &Validator{
		maxInputSize:        DefaultMaxInputSize,
		maxNestingDepth:     DefaultMaxNestingDepth,
		repetitionThreshold: DefaultRepetitionThreshold,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate runs every check against input and returns the collected
// errors and warnings. The input itself is never modified; when valid, a
// sanitized copy is returned in Result.SanitizedInput.
func (v *Validator) Validate(input string) Result {
	var errs []string
	var warnings []string

	if len(input) > v.maxInputSize {
		errs = append(errs, fmt.Sprintf("input exceeds maximum size of %d characters", v.maxInputSize))
	}

	if strings.ContainsRune(input, '\x00') {
		errs = append(errs, "input contains null bytes")
	}

	if depth := nestingDepth(input); depth > v.maxNestingDepth {
		errs = append(errs, fmt.Sprintf("nesting depth %d exceeds maximum of %d", depth, v.maxNestingDepth))
	}

	for _, pattern := range dangerousPatterns {
		if pattern.MatchString(input) {
			errs = append(errs, fmt.Sprintf("dangerous pattern detected: %s", pattern.String()))
		}
	}

	if v.hasExcessiveRepetition(input) {
		warnings = append(warnings, "input contains excessive repetition (potential DoS)")
	}

	res := Result{
		IsValid:  len(errs) == 0,
		Errors:   errs,
		Warnings: warnings,
	}
	if res.IsValid {
		res.SanitizedInput = Sanitize(input)
	}
	return res
}

// nestingDepth scans for the maximum bracket/paren nesting depth. The
// running depth never goes below zero, so stray closers cannot mask a
// deep prefix.
func nestingDepth(input string) int {
	depth, maxDepth := 0, 0
	for _, r := range input {
		switch r {
		case '(', '[', '{':
			depth++
			if depth > maxDepth {
				maxDepth = depth
			}
		case ')', ']', '}':
			if depth > 0 {
				depth--
			}
		}
	}
	return maxDepth
}

// hasExcessiveRepetition reports whether any single character appears more
// than the threshold in inputs at least that long.
func (v *Validator) hasExcessiveRepetition(input string) bool {
	if len(input) < v.repetitionThreshold {
		return false
	}
	counts := make(map[rune]int)
	for _, r := range input {
		counts[r]++
		if counts[r] > v.repetitionThreshold {
			return true
		}
	}
	return false
}

// Sanitize strips non-printable control characters (whitespace kept) and
// collapses whitespace runs to single spaces. Idempotent: sanitizing an
// already-sanitized string returns it unchanged.
func Sanitize(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
