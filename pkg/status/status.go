// Package status defines the stable, ordinal status codes shared by every
// engine and by the dispatch layer. The ordinals match the order listed in
// the public contract: callers that persist or compare raw ordinals (test
// fixtures, cross-process diagnostics) depend on this order never changing.
package status

// Code is a stable ordinal result code returned by every public operation.
type Code int

const (
	OK Code = iota
	UnknownError
	NotFound
	NotSupported
	InvalidArgument
	ConfigParsingError
	ConfigTypeError
	StoppedByCB
	OutOfMemory
	WrongEngineName
	TransactionScopeError
	ComparatorMismatch
	Failed
)

var names = [...]string{
	"OK",
	"UNKNOWN_ERROR",
	"NOT_FOUND",
	"NOT_SUPPORTED",
	"INVALID_ARGUMENT",
	"CONFIG_PARSING_ERROR",
	"CONFIG_TYPE_ERROR",
	"STOPPED_BY_CB",
	"OUT_OF_MEMORY",
	"WRONG_ENGINE_NAME",
	"TRANSACTION_SCOPE_ERROR",
	"COMPARATOR_MISMATCH",
	"FAILED",
}

func (c Code) String() string {
	if c < 0 || int(c) >= len(names) {
		return "UNKNOWN_ERROR"
	}
	return names[c]
}

// Error wraps a Code with a diagnostic message, matching the original
// library's pattern of an ordinal status paired with a free-form message
// pulled from a last-error channel.
type Error struct {
	Code Code
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Code.String()
	}
	return e.Code.String() + ": " + e.Msg
}

// New builds a *Error for code c with the given diagnostic message.
func New(c Code, msg string) *Error {
	return &Error{Code: c, Msg: msg}
}

// Is reports whether err is a *Error carrying code c, so callers can write
// `status.Is(err, status.NotFound)` instead of type-asserting by hand.
func Is(err error, c Code) bool {
	se, ok := err.(*Error)
	return ok && se.Code == c
}

// CodeOf extracts the Code carried by err, defaulting to Failed for errors
// that did not originate from this package (e.g. an unrecovered panic).
func CodeOf(err error) Code {
	if err == nil {
		return OK
	}
	if se, ok := err.(*Error); ok {
		return se.Code
	}
	return Failed
}
