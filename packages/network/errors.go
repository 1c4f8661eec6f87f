package network

// ErrorKind classifies a failed call.
type ErrorKind int

const (
	// KindFailure is a transport error or a missing body.
	KindFailure ErrorKind = iota
	// KindUnauthorized is reported by the transport when credentials were rejected.
	KindUnauthorized
	// KindUnexpected means the request could not be built.
	KindUnexpected
)

func (k ErrorKind) String() string {
	switch k {
	case KindFailure:
		return "failure"
	case KindUnauthorized:
		return "unauthorized"
	case KindUnexpected:
		return "unexpected"
	default:
		return "unknown"
	}
}

// NoDataMessage is the failure message used when a call completes without a body.
const NoDataMessage = "Error: No data returned from network request"

// NetworkError is the terminal error of a call.
type NetworkError struct {
	Kind    ErrorKind
	Message string
}

var (
	// ErrUnauthorized is returned by transports for rejected credentials.
	ErrUnauthorized = &NetworkError{Kind: KindUnauthorized}
	// ErrUnexpected is delivered when a descriptor cannot be built.
	ErrUnexpected = &NetworkError{Kind: KindUnexpected}
)

// Failure returns a failure carrying a human-readable message.
func Failure(message string) *NetworkError {
	return &NetworkError{Kind: KindFailure, Message: message}
}

func (e *NetworkError) Error() string {
	switch e.Kind {
	case KindUnauthorized:
		return "Unauthorized action"
	case KindUnexpected:
		return "An unexpected error occured. Please try again later."
	default:
		return e.Message
	}
}

// Is matches on kind. A failure target with an empty message matches any failure.
func (e *NetworkError) Is(target error) bool {
	t, ok := target.(*NetworkError)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Kind != KindFailure || t.Message == "" || t.Message == e.Message
}
