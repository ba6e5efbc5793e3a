package verify

import (
	"errors"
	"fmt"
)

var (
	ErrAccountFetchFailed = errors.New("account fetch failed")
	ErrMismatch           = errors.New("field mismatch")
)

// AccountFetchFailedError is returned when an account could not be retrieved or deserialized.
// Account is the address or a human label for it.
type AccountFetchFailedError struct {
	Account string
	Err     error
}

func (e *AccountFetchFailedError) Error() string {
	return fmt.Sprintf("Failed to get candy machine account data from Miraland for address: %s.", e.Account)
}

func (e *AccountFetchFailedError) Unwrap() error {
	return e.Err
}

func (e *AccountFetchFailedError) Is(target error) bool {
	return target == ErrAccountFetchFailed
}

// MismatchError reports an on-chain value that differs from the local one. Both values are kept in
// display form so numbers, keys and strings share one shape.
type MismatchError struct {
	Field    string
	Expected string
	Found    string
}

func NewMismatch(field string, expected, found any) *MismatchError {
	return &MismatchError{
		Field:    field,
		Expected: fmt.Sprintf("%v", expected),
		Found:    fmt.Sprintf("%v", found),
	}
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s mismatch (expected='%s', found='%s')", e.Field, e.Expected, e.Found)
}

func (e *MismatchError) Is(target error) bool {
	return target == ErrMismatch
}
