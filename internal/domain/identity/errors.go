package identity

import "errors"

// ErrForbidden is returned when the actor's role or business unit does not
// allow the requested operation.
var ErrForbidden = errors.New("you are not allowed to perform this action")
