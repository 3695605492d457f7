package review

import "errors"

var (
	// ErrNotFound means the backing store has no blob at the resolved key.
	ErrNotFound = errors.New("artifact not found")

	// ErrMalformed means a client payload or a stored JSON blob failed to parse.
	ErrMalformed = errors.New("malformed payload")

	// ErrPriorStateMissing means a fold-mode save found neither a previously
	// annotated record nor a pristine indicator record to fold into.
	ErrPriorStateMissing = errors.New("prior indicator state missing")
)
