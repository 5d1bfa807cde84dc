package service

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Concrete errors wrap exactly one of these so the transport
// layer can map them to a status code with errors.Is.
var (
	ErrValidation     = errors.New("validation failed")
	ErrAuthentication = errors.New("authentication failed")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("not found")
	ErrPrecondition   = errors.New("precondition failed")
)

var (
	ErrUserAlreadyExists  = fmt.Errorf("%w: user already exists", ErrValidation)
	ErrInvalidCredentials = fmt.Errorf("%w: invalid email or password", ErrAuthentication)

	ErrDonationNotFound  = fmt.Errorf("%w: donation not found", ErrNotFound)
	ErrVolunteerNotFound = fmt.Errorf("%w: volunteer not found", ErrNotFound)

	ErrNotAssignee       = fmt.Errorf("%w: not assigned to you", ErrForbidden)
	ErrNotDonationViewer = fmt.Errorf("%w: not authorized to view this donation", ErrForbidden)
	ErrCannotDelete      = fmt.Errorf("%w: not authorized to delete this donation", ErrForbidden)
)

// validationError wraps a field-level message as ErrValidation
func validationError(err error) error {
	return fmt.Errorf("%w: %s", ErrValidation, err.Error())
}

// roleError reports a role that the policy does not allow for an operation
func roleError(msg string) error {
	return fmt.Errorf("%w: %s", ErrForbidden, msg)
}

// preconditionError reports a donation that is not in the status a transition needs
func preconditionError(msg string) error {
	return fmt.Errorf("%w: %s", ErrPrecondition, msg)
}

// Message strips the kind prefix so clients see only the specific reason
func Message(err error) string {
	for _, kind := range []error{ErrValidation, ErrAuthentication, ErrForbidden, ErrNotFound, ErrPrecondition} {
		if msg, ok := strings.CutPrefix(err.Error(), kind.Error()+": "); ok {
			return msg
		}
	}
	return err.Error()
}
