// Package optimizererrors defines the typed error taxonomy used for the
// optimizer's classified failures (search, configuration, simulator), so
// callers can branch on the error kind at the edges (CLI, HTTP handlers).
// Lower-level packages such as curve, events and kernel return plain
// fmt.Errorf errors.
package optimizererrors

import "errors"

// Kind classifies an optimizer error.
type Kind int

const (
	KindUnknown Kind = iota
	KindNoCandidateStations
	KindExhaustedSearch
	KindIncumbentDominates
	KindMalformedBaseline
	KindInvalidConfig
	KindSimulatorFailure
)

func (k Kind) String() string {
	switch k {
	case KindNoCandidateStations:
		return "no_candidate_stations"
	case KindExhaustedSearch:
		return "exhausted_search"
	case KindIncumbentDominates:
		return "incumbent_dominates"
	case KindMalformedBaseline:
		return "malformed_baseline"
	case KindInvalidConfig:
		return "invalid_config"
	case KindSimulatorFailure:
		return "simulator_failure"
	default:
		return "unknown"
	}
}

// Error wraps a Kind with context and an optional underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Kind.String() + ": " + e.Message + ": " + e.Cause.Error()
	}
	return e.Kind.String() + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Is reports whether the first *Error in err's chain (err itself or an
// error it wraps) has the given kind, so callers can match a kind without
// holding the same *Error value or message.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// Sentinel values for the common no-message comparisons.
var (
	NoCandidateStations = New(KindNoCandidateStations, "no candidate station remains for this group")
	ExhaustedSearch     = New(KindExhaustedSearch, "search space exhausted without a feasible station set")
	IncumbentDominates  = New(KindIncumbentDominates, "current incumbent already dominates this candidate")
)
