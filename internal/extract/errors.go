package extract

// ErrorKind enumerates extraction failure categories.
type ErrorKind int

const (
	// KindUnsupportedType means the MIME type is neither PDF nor raster image.
	KindUnsupportedType ErrorKind = iota
	// KindNoText means extraction ran but produced too little usable text.
	KindNoText
)

// Error is the closed failure type for the extraction stage.
type Error struct {
	Kind   ErrorKind
	Reason string
	Err    error
}

func (e *Error) Error() string { return e.Reason }

func (e *Error) Unwrap() error { return e.Err }
