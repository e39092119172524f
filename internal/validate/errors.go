// Package validate implements the §4.7 validation rules shared by the
// load-from-store startup path and the bind-request path.
package validate

import "fmt"

// Kind is one of the semantic error kinds spec §7 enumerates. None of
// them are fatal to the process — every caller either rejects one HTTP
// request or skips one blueprint at startup.
type Kind string

const (
	KindLimit           Kind = "LimitError"
	KindPolicy          Kind = "PolicyError"
	KindSpecialCharacter Kind = "SpecialCharacterError"
	KindTime            Kind = "TimeError"
	KindWorkingSet      Kind = "WorkingSetError"
	KindAuth            Kind = "AuthError"
	KindConflict        Kind = "ConflictError"
	KindUpstream        Kind = "UpstreamError"
	KindInterrupted     Kind = "InterruptedError"
)

// Error carries a Kind alongside a human-readable message, the way the
// teacher's state_go/db.go DatabaseError pairs a message with an
// underlying cause.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func newErr(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
