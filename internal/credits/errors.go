package credits

import "errors"

// ErrInsufficientCredits indicates the owner has no credits left.
var ErrInsufficientCredits = errors.New("insufficient credits")
