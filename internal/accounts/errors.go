package accounts

import (
	"errors"
	"fmt"

	"github.com/Abhijeet1005/SartiaProject/internal/platform/httpx"
)

// Operation failures. Each wraps an httpx sentinel so the HTTP boundary maps
// it to a status code with errors.Is; the message is what the caller sees.
var (
	ErrMissingFields = fmt.Errorf("%w: fullname, email and password are required", httpx.ErrValidation)
	ErrInvalidEmail  = fmt.Errorf("%w: enter a valid email", httpx.ErrValidation)
	ErrMissingEmail  = fmt.Errorf("%w: email is required", httpx.ErrValidation)
	ErrEmailTaken    = fmt.Errorf("%w: email already taken", httpx.ErrDuplicate)
	ErrUserNotFound  = fmt.Errorf("%w: user not found", httpx.ErrNotFound)

	ErrInactive       = fmt.Errorf("%w: user is not active", httpx.ErrUnauthorized)
	ErrBadCredentials = fmt.Errorf("%w: re-check the credentials", httpx.ErrUnauthorized)
	ErrBadOldPassword = fmt.Errorf("%w: invalid old password", httpx.ErrValidation)

	// ErrLoginMissingEmail is an auth failure, not a validation failure: the
	// login endpoint answers 401 for a missing email while forgot-password
	// answers 400 via ErrMissingEmail.
	ErrLoginMissingEmail = fmt.Errorf("%w: email is required", httpx.ErrUnauthorized)

	ErrInvalidOrExpiredToken = fmt.Errorf("%w: invalid or expired reset token", httpx.ErrValidation)

	// ErrEmailSend deliberately does not wrap a 4xx sentinel: transport
	// failures surface as a generic 500.
	ErrEmailSend = errors.New("sending the email failed")

	ErrNotAdmin = fmt.Errorf("%w: logged in user is not an admin", httpx.ErrForbidden)

	ErrMissingToken = fmt.Errorf("%w: missing authentication token", httpx.ErrUnauthorized)
	ErrInvalidToken = fmt.Errorf("%w: invalid authentication token", httpx.ErrUnauthorized)
	ErrExpiredToken = fmt.Errorf("%w: expired authentication token", httpx.ErrUnauthorized)
)
