package schema

import "errors"

// ErrSchemaMismatch is returned when the deployed storage schema lacks a
// table the operation requires. It is a configuration fault, not a caller
// error, and is never retried.
var ErrSchemaMismatch = errors.New("storage schema does not match any supported revision")
