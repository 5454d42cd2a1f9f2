package analysis

// ErrorKind enumerates analysis failure categories.
type ErrorKind int

const (
	// KindInsufficientInput means the extracted text is below the
	// minimum length worth sending to the model.
	KindInsufficientInput ErrorKind = iota
	// KindMalformedResponse means the model returned something that is
	// not a structurally valid result even after repair.
	KindMalformedResponse
	// KindServiceBusy means the provider rate limited or timed out.
	KindServiceBusy
	// KindInputTooLarge means the provider rejected the input size.
	KindInputTooLarge
	// KindProvider covers other provider failures.
	KindProvider
)

// Error is the closed failure type for analysis runs.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }
