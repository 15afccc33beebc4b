package session

import "fmt"

// ErrorKind classifies a session-level failure into a fixed taxonomy, so a
// caller can branch on "what kind of thing went wrong" without
// string-matching error text.
type ErrorKind int

const (
	KindTransport ErrorKind = iota
	KindTimeout
	KindCancelled
	KindProtocolViolation
	KindChecksumMismatch
	KindUnsupportedType
	KindUnsupportedKind
	KindSchemaMismatch
	KindSessionBusy
	KindServerException
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "Transport"
	case KindTimeout:
		return "Timeout"
	case KindCancelled:
		return "Cancelled"
	case KindProtocolViolation:
		return "ProtocolViolation"
	case KindChecksumMismatch:
		return "ChecksumMismatch"
	case KindUnsupportedType:
		return "UnsupportedType"
	case KindUnsupportedKind:
		return "UnsupportedKind"
	case KindSchemaMismatch:
		return "SchemaMismatch"
	case KindSessionBusy:
		return "SessionBusy"
	case KindServerException:
		return "ServerException"
	default:
		return "Unknown"
	}
}

// Error is the single error type session returns for every session-level
// failure. Cause carries the underlying error, if any — a
// wrapped transport error, a *proto.Exception for KindServerException, a
// *column.UnsupportedType/UnsupportedKind, etc.
type Error struct {
	Kind  ErrorKind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("session: %s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("session: %s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

func newErr(kind ErrorKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Cause: cause}
}

func wrapTransport(cause error) *Error {
	return newErr(KindTransport, "transport failure", cause)
}
