package matching

import dErrors "bloodlink/pkg/domain-errors"

// Sentinels for errors.Is. Domain errors match by code, so any error this
// package returns with the same code satisfies errors.Is against these.
var (
	ErrInvalidBloodGroup = &dErrors.Error{Code: dErrors.CodeInvalidBloodGroup}
	ErrInvalidLocation   = &dErrors.Error{Code: dErrors.CodeInvalidLocation}
)
