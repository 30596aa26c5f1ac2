package services

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateIdentity  = errors.New("duplicate identity")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("you need to be logged in")
	ErrForbidden          = errors.New("admin access required")
	ErrLineNotFound       = errors.New("product is not in the cart")
	ErrInvalidQuantity    = errors.New("quantity must be between 1 and 2147483647")
	ErrNotFound           = errors.New("not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrDuplicateProduct   = errors.New("duplicate product")
	ErrInternal           = errors.New("internal error")
)

// Error codes shared by every transport.
const (
	CodeUnauthenticated    = "UNAUTHENTICATED"
	CodeForbidden          = "FORBIDDEN"
	CodeDuplicateIdentity  = "DUPLICATE_IDENTITY"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeLineNotFound       = "LINE_NOT_FOUND"
	CodeInvalidQuantity    = "INVALID_QUANTITY"
	CodeNotFound           = "NOT_FOUND"
	CodeInvalidInput       = "BAD_USER_INPUT"
	CodeDuplicateProduct   = "DUPLICATE_PRODUCT"
	CodeInternal           = "INTERNAL"
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrUnauthenticated, CodeUnauthenticated},
	{ErrForbidden, CodeForbidden},
	{ErrDuplicateIdentity, CodeDuplicateIdentity},
	{ErrInvalidCredentials, CodeInvalidCredentials},
	{ErrLineNotFound, CodeLineNotFound},
	{ErrInvalidQuantity, CodeInvalidQuantity},
	{ErrNotFound, CodeNotFound},
	{ErrInvalidInput, CodeInvalidInput},
	{ErrDuplicateProduct, CodeDuplicateProduct},
}

// ErrorCode classifies err. Anything that is not a domain error is INTERNAL.
func ErrorCode(err error) string {
	if errors.Is(err, ErrInternal) {
		return CodeInternal
	}
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return CodeInternal
}

// PublicMessage returns the message safe to show to API clients.
func PublicMessage(err error) string {
	if ErrorCode(err) == CodeInternal {
		return ErrInternal.Error()
	}
	return err.Error()
}

func internalError(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(ErrInternal, err))
}

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
