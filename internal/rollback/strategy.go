package rollback

import (
	"fmt"
	"strings"
)

// Strategy names one of the four rollback behaviors. The set is closed:
// every strategy has exactly one step plan in the engine.
type Strategy string

const (
	// Immediate restores files, dependencies, environment, and source
	// control in one required sequence.
	Immediate Strategy = "immediate"
	// Graceful takes a safety checkpoint first, restores with service
	// hooks, and verifies the result.
	Graceful Strategy = "graceful"
	// Partial restores only the core file set, leaving dependencies and
	// environment untouched.
	Partial Strategy = "partial"
	// Manual mutates nothing and writes a human-readable recovery guide.
	Manual Strategy = "manual"
)

func (s Strategy) String() string { return string(s) }

// Valid reports whether s is one of the four known strategies.
func (s Strategy) Valid() bool {
	switch s {
	case Immediate, Graceful, Partial, Manual:
		return true
	}
	return false
}

// ParseStrategy converts a label into a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	st := Strategy(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("rollback: unknown strategy %q", s)
	}
	return st, nil
}

// ErrorKind classifies the failure that triggered a rollback.
type ErrorKind string

const (
	KindBuildFailure       ErrorKind = "build_failure"
	KindDependencyConflict ErrorKind = "dependency_conflict"
	KindTestFailure        ErrorKind = "test_failure"
	KindLintWarning        ErrorKind = "lint_warning"
	KindDeploymentFailure  ErrorKind = "deployment_failure"
	KindUnknown            ErrorKind = "unknown"
)

// Severity grades how bad the triggering failure is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// SelectionContext carries caller hints consumed by SelectStrategy.
type SelectionContext struct {
	ManualInterventionRequired bool
}

// SelectStrategy maps an (error kind, severity, context) triple to a
// strategy. Pure function; rules are evaluated in order, first match wins.
func SelectStrategy(kind ErrorKind, severity Severity, sctx SelectionContext) Strategy {
	switch {
	case severity == SeverityCritical:
		return Immediate
	case kind == KindBuildFailure || kind == KindDependencyConflict:
		return Graceful
	case kind == KindTestFailure || kind == KindLintWarning:
		return Partial
	case sctx.ManualInterventionRequired:
		return Manual
	default:
		return Graceful
	}
}

// classificationTable maps known failure markers to error kinds. The table
// is the single place such markers may live; first match wins.
var classificationTable = []struct {
	marker string
	kind   ErrorKind
}{
	{"build failed", KindBuildFailure},
	{"compilation failed", KindBuildFailure},
	{"syntax error", KindBuildFailure},
	{"type error", KindBuildFailure},
	{"dependency conflict", KindDependencyConflict},
	{"module not found", KindDependencyConflict},
	{"import error", KindDependencyConflict},
	{"test failed", KindTestFailure},
	{"assertion failed", KindTestFailure},
	{"lint warning", KindLintWarning},
}

// ClassifyError maps a free-text failure message to an ErrorKind using the
// classification table. Unrecognized messages classify as KindUnknown.
func ClassifyError(msg string) ErrorKind {
	lowered := strings.ToLower(msg)
	for _, entry := range classificationTable {
		if strings.Contains(lowered, entry.marker) {
			return entry.kind
		}
	}
	return KindUnknown
}

// ShouldAutoRollback reports whether a failure of the given kind warrants an
// automatic rollback without operator confirmation.
func ShouldAutoRollback(kind ErrorKind) bool {
	switch kind {
	case KindBuildFailure, KindDependencyConflict, KindDeploymentFailure:
		return true
	}
	return false
}
